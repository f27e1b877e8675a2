package importdto

// ImportGamesRequest triggers an import run for one player on one platform.
type ImportGamesRequest struct {
	OwnerID    int64  `json:"owner_id" validate:"required,min=1"`
	Platform   string `json:"platform" validate:"required,oneof=chess.com lichess"`
	Username   string `json:"username" validate:"required,min=1,max=64"`
	MonthsBack int    `json:"months_back" validate:"omitempty,min=1,max=24"`
}

// GamesQuery filters the stored game listing.
type GamesQuery struct {
	Platform string `query:"platform" validate:"required,oneof=chess.com lichess"`
	Username string `query:"username" validate:"required,min=1,max=64"`
	Limit    int    `query:"limit" validate:"omitempty,min=1,max=200"`
	Offset   int    `query:"offset" validate:"omitempty,min=0"`
}
