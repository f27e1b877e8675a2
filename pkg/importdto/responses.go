package importdto

import "time"

// ImportGamesResponse summarises a completed import run.
type ImportGamesResponse struct {
	RunID    string   `json:"run_id"`
	Platform string   `json:"platform"`
	Username string   `json:"username"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// GameRecord is the wire form of one stored game.
type GameRecord struct {
	ExternalID    string    `json:"external_id"`
	Platform      string    `json:"platform"`
	ExternalURL   string    `json:"external_url,omitempty"`
	WhiteUsername string    `json:"white_username"`
	BlackUsername string    `json:"black_username"`
	WhiteRating   int       `json:"white_rating,omitempty"`
	BlackRating   int       `json:"black_rating,omitempty"`
	GameDate      time.Time `json:"game_date"`
	TimeControl   string    `json:"time_control,omitempty"`
	TimeClass     string    `json:"time_class,omitempty"`
	Rules         string    `json:"rules,omitempty"`
	Rated         bool      `json:"rated"`
	Result        string    `json:"result"`
	Termination   string    `json:"termination,omitempty"`
	Winner        string    `json:"winner,omitempty"`
	PGN           string    `json:"pgn,omitempty"`
	FENFinal      string    `json:"fen_final,omitempty"`
	TotalPlies    int       `json:"total_plies,omitempty"`
	DurationSec   int64     `json:"duration_seconds,omitempty"`
}

// GamesResponse is the paged listing payload.
type GamesResponse struct {
	Games []GameRecord `json:"games"`
	Count int          `json:"count"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}
