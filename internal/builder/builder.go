// Package builder wires configuration into the import service and its
// supporting stores.
package builder

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/park285/chessvault/internal/boardshot"
	"github.com/park285/chessvault/internal/config"
	"github.com/park285/chessvault/internal/pgnkit"
	"github.com/park285/chessvault/internal/platform"
	"github.com/park285/chessvault/internal/platform/chesscom"
	"github.com/park285/chessvault/internal/platform/lichess"
	"github.com/park285/chessvault/internal/runlock"
	"github.com/park285/chessvault/internal/service/importer"
)

type Deps struct {
	Service *importer.Service
	Repo    importer.Repository
	DB      *sql.DB
	Lock    *runlock.Lock
}

// Close releases the database and redis handles.
func (d *Deps) Close() {
	if d.Lock != nil {
		d.Lock.Close()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}

func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the game store")
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := importer.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	repo := importer.NewRepository(db)

	client := platform.NewClient(
		platform.WithTimeout(cfg.ImportFetchTimeout),
		platform.WithRetry(3),
	)
	deriver := pgnkit.New()
	adapters := []platform.Adapter{
		chesscom.New(cfg.ChessComBaseURL, client, deriver),
		lichess.New(cfg.LichessBaseURL, client, deriver),
	}

	var opts []importer.Option

	// Run lock is optional; without redis, concurrent runs for the same
	// player race on the database constraints instead.
	var lock *runlock.Lock
	if strings.TrimSpace(cfg.RedisURL) != "" {
		lock, err = runlock.New(cfg.RedisURL)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init run lock: %w", err)
		}
		opts = append(opts, importer.WithLocker(lock))
	} else {
		logger.Warn("run_lock_disabled", zap.String("reason", "REDIS_URL not set"))
	}

	if strings.TrimSpace(cfg.SnapshotDir) != "" {
		opts = append(opts, importer.WithSnapshotter(boardshot.NewStore(cfg.SnapshotDir)))
	}

	svc := importer.NewService(adapters, repo, importer.Config{
		FetchConcurrency: cfg.ImportFetchConcurrency,
		FetchTimeout:     cfg.ImportFetchTimeout,
		MonthsBack:       cfg.ImportMonthsBack,
	}, opts...)

	return &Deps{Service: svc, Repo: repo, DB: db, Lock: lock}, nil
}
