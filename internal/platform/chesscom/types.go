package chesscom

// Wire shapes for the chess.com published-data API. Only the fields the
// importer consumes are declared; the upstream payload carries more.

type archiveResponse struct {
	Games []gamePayload `json:"games"`
}

type gamePayload struct {
	UUID        string        `json:"uuid"`
	URL         string        `json:"url"`
	White       playerPayload `json:"white"`
	Black       playerPayload `json:"black"`
	PGN         string        `json:"pgn"`
	TimeControl string        `json:"time_control"`
	TimeClass   string        `json:"time_class"`
	Rules       string        `json:"rules"`
	Rated       bool          `json:"rated"`
	StartTime   int64         `json:"start_time"`
	EndTime     int64         `json:"end_time"`
}

type playerPayload struct {
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Result   string `json:"result"`
}
