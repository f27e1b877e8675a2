package domain

import "time"

// Platform identifies an upstream game-hosting service. The string values
// match the upstream services' own naming and are used on the wire and in
// persisted rows, so they must not change.
type Platform string

const (
	PlatformChessCom Platform = "chess.com"
	PlatformLichess  Platform = "lichess"
)

func (p Platform) Valid() bool {
	return p == PlatformChessCom || p == PlatformLichess
}

// Result tokens as stored on a game row.
const (
	ResultWhiteWon = "1-0"
	ResultBlackWon = "0-1"
	ResultDraw     = "1/2-1/2"
)

// Winner tokens; a draw stores the empty string.
const (
	WinnerWhite = "white"
	WinnerBlack = "black"
)

// TimeClassFromSeconds buckets an initial clock time into the standard
// speed classes.
func TimeClassFromSeconds(initial int) string {
	switch {
	case initial < 180:
		return "bullet"
	case initial < 600:
		return "blitz"
	case initial < 1800:
		return "rapid"
	default:
		return "classical"
	}
}

// ChessGame is the canonical, platform-independent representation of one
// imported game. ExternalID is the upstream platform's identifier, unique
// per platform.
type ChessGame struct {
	ID          int64
	ExternalID  string
	Platform    Platform
	ExternalURL string

	WhiteUsername string
	BlackUsername string
	WhitePlayerID int64
	BlackPlayerID int64
	WhiteRating   int
	BlackRating   int

	OwnerID     int64
	GameDate    time.Time
	TimeControl string
	TimeClass   string
	Rules       string
	Rated       bool

	Result      string
	Termination string
	Winner      string

	PGN        string
	FENFinal   string
	TotalPlies int
	Duration   time.Duration

	PNGFilename    string
	PNGPath        string
	PNGSize        int64
	PNGGeneratedAt time.Time

	RetrievedAt time.Time
}

// IsDraw reports whether the game ended without a winner.
func (g *ChessGame) IsDraw() bool { return g.Winner == "" }

// PlayerIdentity is one (username, platform) pair. The pair is globally
// unique; rating is optional metadata, not part of the key.
type PlayerIdentity struct {
	ID        int64
	Username  string
	Platform  Platform
	Rating    int
	CreatedAt time.Time
}

// ImportRequest is the immutable input to one import run.
type ImportRequest struct {
	OwnerID    int64
	Platform   Platform
	Username   string
	MonthsBack int
}

// ImportOutcome accumulates the result of one import run. It is owned by the
// orchestrator for the full lifetime of the run and returned immutable.
type ImportOutcome struct {
	RunID    string
	Imported int
	Skipped  int
	Errors   []string
}
