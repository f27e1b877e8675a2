// Package lichess adapts the lichess games export API to the importer's
// platform contract. The export is one paginated NDJSON call covering the
// whole requested window, capped at maxGames records.
package lichess

import (
	"bufio"
	"bytes"
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

const (
	DefaultBaseURL = "https://lichess.org/api"

	// maxGames is the page cap lichess enforces per export call.
	maxGames = 200

	// windowDays is the flat month approximation the since parameter uses.
	windowDays = 30
)

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

func (a *Adapter) Platform() domain.Platform { return domain.PlatformLichess }

// Windows returns the single since-window: monthsBack flat 30-day periods
// back from now. Lichess has no calendar-month buckets, so the two platforms
// deliberately keep their own windowing semantics.
func (a *Adapter) Windows(now time.Time, monthsBack int) []platform.Window {
	since := now.Add(-time.Duration(monthsBack) * windowDays * 24 * time.Hour)
	return []platform.Window{{Since: since}}
}

type rawGame struct {
	payload   gamePayload
	decodeErr error
}

func (r rawGame) ExternalID() string {
	if r.payload.ID == "" {
		return "unknown"
	}
	return r.payload.ID
}

func (a *Adapter) Fetch(ctx context.Context, username string, w platform.Window) ([]platform.RawGame, error) {
	url := fmt.Sprintf("%s/games/user/%s?max=%d&rated=true&format=json&since=%d&moves=true&tags=true",
		a.baseURL, username, maxGames, w.Since.UnixMilli())
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

	var records []platform.RawGame
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var g gamePayload
		if err := json.Unmarshal(line, &g); err != nil {
			// A bad line is a per-record failure surfaced on normalize,
			// not a reason to drop the rest of the page.
			records = append(records, rawGame{decodeErr: fmt.Errorf("decode ndjson line: %w", err)})
			continue
		}
		records = append(records, rawGame{payload: g})
	}
	if err := scanner.Err(); err != nil {
		return nil, &platform.APIError{Platform: a.Platform(), Unit: w.Label(), Err: fmt.Errorf("scan ndjson: %w", err)}
	}
	obslog.L().Debug("lichess_fetch",
		zap.String("username", username),
		zap.String("window", w.Label()),
		zap.Int("games", len(records)),
	)
	return records, nil
}

// Normalize maps one export line into the canonical record, synthesizing a
// minimal PGN document from the structured fields before derivation.
func (a *Adapter) Normalize(raw platform.RawGame) (*domain.ChessGame, error) {
	r, ok := raw.(rawGame)
	if !ok {
		return nil, fmt.Errorf("unexpected raw record type %T", raw)
	}
	if r.decodeErr != nil {
		return nil, r.decodeErr
	}
	g := r.payload
	if strings.TrimSpace(g.ID) == "" {
		return nil, fmt.Errorf("record missing id")
	}

	whiteName := sideName(g.Players.White)
	blackName := sideName(g.Players.Black)

	result, winner := deriveResult(g.Winner)

	var timeControl string
	var initialSeconds int
	if g.Clock != nil {
		timeControl = fmt.Sprintf("%d+%d", g.Clock.Initial, g.Clock.Increment)
		initialSeconds = g.Clock.Initial
	}

	variant := g.Variant
	if variant == "" {
		variant = "standard"
	}

	pgn := buildPGN(g, whiteName, blackName, result, variant)

	game := &domain.ChessGame{
		ExternalID:    g.ID,
		Platform:      domain.PlatformLichess,
		ExternalURL:   "https://lichess.org/" + g.ID,
		WhiteUsername: whiteName,
		BlackUsername: blackName,
		WhiteRating:   g.Players.White.Rating,
		BlackRating:   g.Players.Black.Rating,
		GameDate:      time.UnixMilli(g.CreatedAt).UTC(),
		TimeControl:   timeControl,
		TimeClass:     domain.TimeClassFromSeconds(initialSeconds),
		Rules:         variant,
		Rated:         g.Rated,
		Result:        result,
		Winner:        winner,
		Termination:   g.Status,
		PGN:           pgn,
		Duration:      time.Duration((g.LastMoveAt-g.CreatedAt)/1000) * time.Second,
	}

	if plies, fen, err := a.deriver.Derive(pgn); err == nil {
		game.TotalPlies = plies
		game.FENFinal = fen
	} else {
		obslog.L().Debug("lichess_derive_failed", zap.String("game_id", g.ID), zap.Error(err))
	}
	return game, nil
}

func sideName(s sidePayload) string {
	if s.User != nil && strings.TrimSpace(s.User.Name) != "" {
		return s.User.Name
	}
	return "Anonymous"
}

// deriveResult maps the explicit winner-color field; absence means draw.
func deriveResult(winner string) (string, string) {
	switch winner {
	case domain.WinnerWhite:
		return domain.ResultWhiteWon, domain.WinnerWhite
	case domain.WinnerBlack:
		return domain.ResultBlackWon, domain.WinnerBlack
	default:
		return domain.ResultDraw, ""
	}
}

// buildPGN synthesizes a minimal PGN document: seven standard headers plus
// the raw move list.
func buildPGN(g gamePayload, whiteName, blackName, result, variant string) string {
	date := time.UnixMilli(g.CreatedAt).UTC()
	var b strings.Builder
	b.WriteString("[Event \"Lichess game\"]\n")
	b.WriteString(fmt.Sprintf("[Site \"https://lichess.org/%s\"]\n", g.ID))
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(whiteName)))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(blackName)))
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n", result))
	b.WriteString(fmt.Sprintf("[Variant \"%s\"]\n", sanitizePGN(variant)))
	b.WriteString("\n")
	b.WriteString(numberMoves(g.Moves))
	return b.String()
}

// numberMoves turns the space-separated SAN list into numbered movetext.
func numberMoves(moves string) string {
	fields := strings.Fields(moves)
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(fields); i += 2 {
		turn := (i / 2) + 1
		b.WriteString(fmt.Sprintf("%d. %s", turn, fields[i]))
		if i+1 < len(fields) {
			b.WriteString(" ")
			b.WriteString(fields[i+1])
		}
		b.WriteString(" ")
	}
	return strings.TrimSpace(b.String())
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
