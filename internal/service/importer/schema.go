package importer

import (
	"context"
	"database/sql"
	"fmt"
)

// schema declares the two uniqueness constraints the engine's correctness
// rests on: (username, platform) for identities and (platform, external_id)
// for games.
const schema = `
CREATE TABLE IF NOT EXISTS player_identities (
	id         BIGSERIAL PRIMARY KEY,
	username   TEXT NOT NULL,
	platform   TEXT NOT NULL,
	rating     INTEGER,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (username, platform)
);

CREATE TABLE IF NOT EXISTS chess_games (
	id               BIGSERIAL PRIMARY KEY,
	external_id      TEXT NOT NULL,
	platform         TEXT NOT NULL,
	external_url     TEXT NOT NULL DEFAULT '',
	white_player_id  BIGINT NOT NULL REFERENCES player_identities(id),
	black_player_id  BIGINT NOT NULL REFERENCES player_identities(id),
	owner_id         BIGINT NOT NULL DEFAULT 0,
	game_date        TIMESTAMPTZ NOT NULL,
	time_control     TEXT NOT NULL DEFAULT '',
	time_class       TEXT NOT NULL DEFAULT '',
	rules            TEXT NOT NULL DEFAULT 'chess',
	rated            BOOLEAN NOT NULL DEFAULT TRUE,
	result           TEXT NOT NULL,
	termination      TEXT NOT NULL DEFAULT '',
	winner           TEXT,
	pgn              TEXT NOT NULL,
	fen_final        TEXT,
	total_plies      INTEGER NOT NULL DEFAULT 0,
	duration_seconds BIGINT NOT NULL DEFAULT 0,
	png_filename     TEXT,
	png_file_path    TEXT,
	png_file_size    BIGINT NOT NULL DEFAULT 0,
	png_generated_at TIMESTAMPTZ,
	retrieved_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (platform, external_id)
);

CREATE INDEX IF NOT EXISTS idx_chess_games_game_date ON chess_games (game_date DESC);
CREATE INDEX IF NOT EXISTS idx_chess_games_owner ON chess_games (owner_id);
`

// EnsureSchema creates the tables and indexes when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
