// Package chesscom adapts the chess.com published-data API to the importer's
// platform contract. Archives are exposed per calendar month, so one import
// run issues one request per (year, month) pair.
package chesscom

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chessvault/internal/domain"
	"github.com/park285/chessvault/internal/obslog"
	"github.com/park285/chessvault/internal/pgnkit"
	"github.com/park285/chessvault/internal/platform"
)

const DefaultBaseURL = "https://api.chess.com/pub"

// terminationTokens are the per-side outcome tokens that name the losing
// side's reason; any side reporting one of these carries the termination.
var terminationTokens = map[string]struct{}{
	"checkmated": {},
	"resigned":   {},
	"timeout":    {},
	"abandoned":  {},
}

type Adapter struct {
	baseURL string
	client  *platform.Client
	deriver pgnkit.Deriver
}

func New(baseURL string, client *platform.Client, deriver pgnkit.Deriver) *Adapter {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Adapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		deriver: deriver,
	}
}

func (a *Adapter) Platform() domain.Platform { return domain.PlatformChessCom }

// Windows walks backward from the current month monthsBack times. time.Date
// normalizes out-of-range months, so the year rolls correctly however far
// back the walk goes.
func (a *Adapter) Windows(now time.Time, monthsBack int) []platform.Window {
	windows := make([]platform.Window, 0, monthsBack)
	for i := 0; i < monthsBack; i++ {
		t := time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		windows = append(windows, platform.Window{Year: t.Year(), Month: t.Month()})
	}
	return windows
}

type rawGame struct {
	payload gamePayload
}

func (r rawGame) ExternalID() string { return r.payload.UUID }

func (a *Adapter) Fetch(ctx context.Context, username string, w platform.Window) ([]platform.RawGame, error) {
	url := fmt.Sprintf("%s/player/%s/games/%04d/%02d", a.baseURL, username, w.Year, int(w.Month))
	status, body, err := a.client.Get(ctx, url)
	if err != nil {
		return nil, &platform.APIError{Platform: a.Platform(), Unit: w.Label(), Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &platform.APIError{
			Platform: a.Platform(),
			Unit:     w.Label(),
			Status:   status,
			Body:     platform.Truncate(string(body), 256),
		}
	}

	var archive archiveResponse
	if err := json.Unmarshal(body, &archive); err != nil {
		return nil, &platform.APIError{Platform: a.Platform(), Unit: w.Label(), Err: fmt.Errorf("decode archive: %w", err)}
	}

	records := make([]platform.RawGame, 0, len(archive.Games))
	for _, g := range archive.Games {
		records = append(records, rawGame{payload: g})
	}
	obslog.L().Debug("chesscom_fetch",
		zap.String("username", username),
		zap.String("window", w.Label()),
		zap.Int("games", len(records)),
	)
	return records, nil
}

// Normalize maps one archive entry into the canonical record. Derived display
// fields are best-effort: a movetext the parser rejects leaves them empty.
func (a *Adapter) Normalize(raw platform.RawGame) (*domain.ChessGame, error) {
	r, ok := raw.(rawGame)
	if !ok {
		return nil, fmt.Errorf("unexpected raw record type %T", raw)
	}
	g := r.payload
	if strings.TrimSpace(g.UUID) == "" {
		return nil, fmt.Errorf("record missing uuid")
	}
	if strings.TrimSpace(g.White.Username) == "" || strings.TrimSpace(g.Black.Username) == "" {
		return nil, fmt.Errorf("game %s: missing player usernames", g.UUID)
	}

	result, winner := deriveResult(g.White.Result, g.Black.Result)

	rules := g.Rules
	if rules == "" {
		rules = "chess"
	}

	game := &domain.ChessGame{
		ExternalID:    g.UUID,
		Platform:      domain.PlatformChessCom,
		ExternalURL:   g.URL,
		WhiteUsername: g.White.Username,
		BlackUsername: g.Black.Username,
		WhiteRating:   g.White.Rating,
		BlackRating:   g.Black.Rating,
		GameDate:      time.Unix(g.EndTime, 0).UTC(),
		TimeControl:   g.TimeControl,
		TimeClass:     g.TimeClass,
		Rules:         rules,
		Rated:         g.Rated,
		Result:        result,
		Winner:        winner,
		Termination:   deriveTermination(g.White.Result, g.Black.Result),
		PGN:           g.PGN,
		Duration:      time.Duration(g.EndTime-g.StartTime) * time.Second,
	}

	if plies, fen, err := a.deriver.Derive(g.PGN); err == nil {
		game.TotalPlies = plies
		game.FENFinal = fen
	} else {
		obslog.L().Debug("chesscom_derive_failed", zap.String("game_id", g.UUID), zap.Error(err))
	}
	return game, nil
}

// deriveResult maps the per-side outcome tokens to the result and winner
// tokens. Anything that is not a win on either side is a draw (agreement,
// repetition, stalemate, insufficient material, ...).
func deriveResult(whiteResult, blackResult string) (string, string) {
	switch {
	case whiteResult == "win":
		return domain.ResultWhiteWon, domain.WinnerWhite
	case blackResult == "win":
		return domain.ResultBlackWon, domain.WinnerBlack
	default:
		return domain.ResultDraw, ""
	}
}

func deriveTermination(whiteResult, blackResult string) string {
	if _, ok := terminationTokens[whiteResult]; ok {
		return whiteResult
	}
	return blackResult
}
