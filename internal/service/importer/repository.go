package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/park285/chessvault/internal/domain"
)

var ErrDuplicateGame = errors.New("chess game already imported")

// Repository is the persistence contract for the import engine. SaveGame is
// atomic per record: identity resolution and the game insert either all
// commit or all roll back.
type Repository interface {
	HasGame(ctx context.Context, p domain.Platform, externalID string) (bool, error)
	SaveGame(ctx context.Context, game *domain.ChessGame) (int64, error)
	ResolveIdentity(ctx context.Context, username string, p domain.Platform) (*domain.PlayerIdentity, error)
	ListGames(ctx context.Context, p domain.Platform, username string, limit, offset int) ([]*domain.ChessGame, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) HasGame(ctx context.Context, p domain.Platform, externalID string) (bool, error) {
	const query = `SELECT 1 FROM chess_games WHERE platform = $1 AND external_id = $2`
	var one int
	err := r.db.QueryRowContext(ctx, query, string(p), externalID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select chess game: %w", err)
	}
	return true, nil
}

// SaveGame resolves both player identities and inserts the game in one
// transaction. A concurrent duplicate insert loses to the uniqueness
// constraint on (platform, external_id) and reports ErrDuplicateGame.
func (r *repository) SaveGame(ctx context.Context, game *domain.ChessGame) (int64, error) {
	if game == nil {
		return 0, fmt.Errorf("nil chess game payload")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	white, err := resolveIdentityIn(ctx, tx, game.WhiteUsername, game.Platform, game.WhiteRating)
	if err != nil {
		return 0, err
	}
	black, err := resolveIdentityIn(ctx, tx, game.BlackUsername, game.Platform, game.BlackRating)
	if err != nil {
		return 0, err
	}
	game.WhitePlayerID = white.ID
	game.BlackPlayerID = black.ID

	const query = `
		INSERT INTO chess_games (
			external_id,
			platform,
			external_url,
			white_player_id,
			black_player_id,
			owner_id,
			game_date,
			time_control,
			time_class,
			rules,
			rated,
			result,
			termination,
			winner,
			pgn,
			fen_final,
			total_plies,
			duration_seconds,
			png_filename,
			png_file_path,
			png_file_size,
			png_generated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (platform, external_id) DO NOTHING
		RETURNING id`

	var pngGeneratedAt sql.NullTime
	if !game.PNGGeneratedAt.IsZero() {
		pngGeneratedAt = sql.NullTime{Time: game.PNGGeneratedAt, Valid: true}
	}

	var id sql.NullInt64
	err = tx.QueryRowContext(
		ctx,
		query,
		game.ExternalID,
		string(game.Platform),
		game.ExternalURL,
		game.WhitePlayerID,
		game.BlackPlayerID,
		game.OwnerID,
		game.GameDate,
		game.TimeControl,
		game.TimeClass,
		game.Rules,
		game.Rated,
		game.Result,
		game.Termination,
		nullString(game.Winner),
		game.PGN,
		nullString(game.FENFinal),
		game.TotalPlies,
		int64(game.Duration/time.Second),
		nullString(game.PNGFilename),
		nullString(game.PNGPath),
		game.PNGSize,
		pngGeneratedAt,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return 0, ErrDuplicateGame
	}
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateGame
		}
		return 0, fmt.Errorf("insert chess game: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit chess game: %w", err)
	}
	game.ID = id.Int64
	return id.Int64, nil
}

func (r *repository) ResolveIdentity(ctx context.Context, username string, p domain.Platform) (*domain.PlayerIdentity, error) {
	return resolveIdentityIn(ctx, r.db, username, p, 0)
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// resolveIdentityIn gets or creates a (username, platform) row. The insert
// never errors on conflict, so a resolver racing another import re-reads and
// reuses the winner's row.
func resolveIdentityIn(ctx context.Context, q queryer, username string, p domain.Platform, rating int) (*domain.PlayerIdentity, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("empty username for identity")
	}

	const insert = `
		INSERT INTO player_identities (username, platform, rating)
		VALUES ($1, $2, NULLIF($3, 0))
		ON CONFLICT (username, platform) DO NOTHING`
	if _, err := q.ExecContext(ctx, insert, username, string(p), rating); err != nil {
		return nil, fmt.Errorf("insert player identity: %w", err)
	}

	const query = `
		SELECT id, username, platform, COALESCE(rating, 0), created_at
		FROM player_identities
		WHERE username = $1 AND platform = $2`
	var identity domain.PlayerIdentity
	var platformStr string
	err := q.QueryRowContext(ctx, query, username, string(p)).Scan(
		&identity.ID,
		&identity.Username,
		&platformStr,
		&identity.Rating,
		&identity.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("select player identity: %w", err)
	}
	identity.Platform = domain.Platform(platformStr)
	return &identity, nil
}

func (r *repository) ListGames(ctx context.Context, p domain.Platform, username string, limit, offset int) ([]*domain.ChessGame, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
		SELECT
			g.id,
			g.external_id,
			g.platform,
			g.external_url,
			g.white_player_id,
			g.black_player_id,
			w.username,
			b.username,
			g.owner_id,
			g.game_date,
			g.time_control,
			g.time_class,
			g.rules,
			g.rated,
			g.result,
			g.termination,
			COALESCE(g.winner, ''),
			g.pgn,
			COALESCE(g.fen_final, ''),
			g.total_plies,
			g.duration_seconds,
			g.retrieved_at
		FROM chess_games g
		JOIN player_identities w ON w.id = g.white_player_id
		JOIN player_identities b ON b.id = g.black_player_id
		WHERE g.platform = $1 AND (w.username = $2 OR b.username = $2)
		ORDER BY g.game_date DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.db.QueryContext(ctx, query, string(p), username, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("select chess games: %w", err)
	}
	defer rows.Close()

	games := make([]*domain.ChessGame, 0, limit)
	for rows.Next() {
		var (
			game        domain.ChessGame
			platformStr string
			durationSec int64
		)
		if err := rows.Scan(
			&game.ID,
			&game.ExternalID,
			&platformStr,
			&game.ExternalURL,
			&game.WhitePlayerID,
			&game.BlackPlayerID,
			&game.WhiteUsername,
			&game.BlackUsername,
			&game.OwnerID,
			&game.GameDate,
			&game.TimeControl,
			&game.TimeClass,
			&game.Rules,
			&game.Rated,
			&game.Result,
			&game.Termination,
			&game.Winner,
			&game.PGN,
			&game.FENFinal,
			&game.TotalPlies,
			&durationSec,
			&game.RetrievedAt,
		); err != nil {
			return nil, fmt.Errorf("scan chess game: %w", err)
		}
		game.Platform = domain.Platform(platformStr)
		game.Duration = time.Duration(durationSec) * time.Second
		games = append(games, &game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chess games: %w", err)
	}
	return games, nil
}

func nullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
