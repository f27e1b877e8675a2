package lichess

// Wire shapes for the lichess games export API (NDJSON). Only the consumed
// subset is declared.

type gamePayload struct {
	ID         string         `json:"id"`
	Rated      bool           `json:"rated"`
	Variant    string         `json:"variant"`
	CreatedAt  int64          `json:"createdAt"`
	LastMoveAt int64          `json:"lastMoveAt"`
	Status     string         `json:"status"`
	Winner     string         `json:"winner"`
	Moves      string         `json:"moves"`
	Clock      *clockPayload  `json:"clock"`
	Players    playersPayload `json:"players"`
}

type clockPayload struct {
	Initial   int `json:"initial"`
	Increment int `json:"increment"`
}

type playersPayload struct {
	White sidePayload `json:"white"`
	Black sidePayload `json:"black"`
}

type sidePayload struct {
	User   *userPayload `json:"user"`
	Rating int          `json:"rating"`
}

type userPayload struct {
	Name string `json:"name"`
}
