// Package importer drives one import run: per-window fetches against a
// platform adapter, record normalization, identity resolution and
// exactly-once persistence, with per-unit and per-record failure isolation.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/chessvault/internal/domain"
	"github.com/park285/chessvault/internal/obslog"
	"github.com/park285/chessvault/internal/platform"
)

var (
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrEmptyUsername       = errors.New("username is required")
	ErrImportInProgress    = errors.New("import already in progress for this user")
)

const (
	defaultMonthsBack       = 3
	defaultFetchConcurrency = 3
	defaultFetchTimeout     = 30 * time.Second
)

// Locker guards against the same (platform, username) import running twice
// concurrently. Acquire reports ok=false when the lock is held elsewhere.
type Locker interface {
	Acquire(ctx context.Context, p domain.Platform, username string) (release func(), ok bool, err error)
}

// Snapshotter renders a final-position image for a normalized game and fills
// its PNG fields. Failures are best-effort and never fail the record.
type Snapshotter interface {
	Snapshot(game *domain.ChessGame) error
}

type Config struct {
	FetchConcurrency int
	FetchTimeout     time.Duration

	// MonthsBack applies when a request leaves months_back unset.
	MonthsBack int
}

type Service struct {
	adapters map[domain.Platform]platform.Adapter
	repo     Repository
	lock     Locker
	snap     Snapshotter
	cfg      Config
	now      func() time.Time
}

type Option func(*Service)

// WithLocker enables the cross-process run lock.
func WithLocker(l Locker) Option {
	return func(s *Service) { s.lock = l }
}

// WithSnapshotter enables final-position PNG snapshots.
func WithSnapshotter(sn Snapshotter) Option {
	return func(s *Service) { s.snap = sn }
}

// WithClock overrides the time source; tests use this to pin window math.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(adapters []platform.Adapter, repo Repository, cfg Config, opts ...Option) *Service {
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = defaultFetchConcurrency
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.MonthsBack <= 0 {
		cfg.MonthsBack = defaultMonthsBack
	}
	s := &Service{
		adapters: make(map[domain.Platform]platform.Adapter, len(adapters)),
		repo:     repo,
		cfg:      cfg,
		now:      time.Now,
	}
	for _, a := range adapters {
		s.adapters[a.Platform()] = a
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one import and returns the accumulated outcome. Only an
// unsupported platform, a missing username, a held run lock or caller
// cancellation fail the call; everything else lands in Errors.
func (s *Service) Run(ctx context.Context, req domain.ImportRequest) (*domain.ImportOutcome, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, ErrEmptyUsername
	}
	adapter, ok := s.adapters[req.Platform]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, req.Platform)
	}
	monthsBack := req.MonthsBack
	if monthsBack <= 0 {
		monthsBack = s.cfg.MonthsBack
	}

	if s.lock != nil {
		release, ok, err := s.lock.Acquire(ctx, req.Platform, username)
		if err != nil {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			return nil, ErrImportInProgress
		}
		defer release()
	}

	outcome := &domain.ImportOutcome{RunID: uuid.NewString()}
	logger := obslog.L().With(
		zap.String("run_id", outcome.RunID),
		zap.String("platform", string(req.Platform)),
		zap.String("username", username),
	)
	logger.Info("import_run_start", zap.Int("months_back", monthsBack))

	windows := adapter.Windows(s.now(), monthsBack)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.cfg.FetchConcurrency)
	)

	for _, w := range windows {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(w platform.Window) {
			defer wg.Done()
			defer func() { <-sem }()
			s.runWindow(ctx, logger, adapter, req.OwnerID, username, w, outcome, &mu)
		}(w)
	}
	wg.Wait()

	// Cancellation is all-or-nothing for the caller: no partial outcome.
	if err := ctx.Err(); err != nil {
		logger.Warn("import_run_cancelled", zap.Error(err))
		return nil, err
	}

	logger.Info("import_run_done",
		zap.Int("imported", outcome.Imported),
		zap.Int("skipped", outcome.Skipped),
		zap.Int("errors", len(outcome.Errors)),
	)
	return outcome, nil
}

// runWindow fetches one time unit and processes its records. A fetch failure
// becomes one diagnostic; it never touches the imported/skipped counts.
func (s *Service) runWindow(ctx context.Context, logger *zap.Logger, adapter platform.Adapter, ownerID int64, username string, w platform.Window, outcome *domain.ImportOutcome, mu *sync.Mutex) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	records, err := adapter.Fetch(fetchCtx, username, w)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Warn("import_fetch_error", zap.String("window", w.Label()), zap.Error(err))
		mu.Lock()
		outcome.Errors = append(outcome.Errors, err.Error())
		mu.Unlock()
		return
	}

	for _, raw := range records {
		if ctx.Err() != nil {
			return
		}
		s.processRecord(ctx, logger, adapter, ownerID, raw, outcome, mu)
	}
}

// processRecord runs dedup-check, normalize, resolve and persist for one raw
// record. A failure anywhere yields one diagnostic naming the external id; a
// lost duplicate-insert race counts as a skip.
func (s *Service) processRecord(ctx context.Context, logger *zap.Logger, adapter platform.Adapter, ownerID int64, raw platform.RawGame, outcome *domain.ImportOutcome, mu *sync.Mutex) {
	externalID := raw.ExternalID()

	exists, err := s.repo.HasGame(ctx, adapter.Platform(), externalID)
	if err != nil {
		s.recordError(logger, outcome, mu, externalID, fmt.Errorf("dedup check: %w", err))
		return
	}
	if exists {
		mu.Lock()
		outcome.Skipped++
		mu.Unlock()
		return
	}

	game, err := adapter.Normalize(raw)
	if err != nil {
		s.recordError(logger, outcome, mu, externalID, err)
		return
	}
	game.OwnerID = ownerID

	if s.snap != nil && game.FENFinal != "" {
		if err := s.snap.Snapshot(game); err != nil {
			logger.Debug("import_snapshot_failed", zap.String("game_id", externalID), zap.Error(err))
		}
	}

	if _, err := s.repo.SaveGame(ctx, game); err != nil {
		if errors.Is(err, ErrDuplicateGame) {
			// A concurrent import won the insert race; same end state.
			mu.Lock()
			outcome.Skipped++
			mu.Unlock()
			return
		}
		s.recordError(logger, outcome, mu, externalID, err)
		return
	}

	mu.Lock()
	outcome.Imported++
	mu.Unlock()
}

func (s *Service) recordError(logger *zap.Logger, outcome *domain.ImportOutcome, mu *sync.Mutex, externalID string, err error) {
	msg := fmt.Sprintf("game %s: %v", externalID, err)
	logger.Warn("import_record_error", zap.String("game_id", externalID), zap.Error(err))
	mu.Lock()
	outcome.Errors = append(outcome.Errors, msg)
	mu.Unlock()
}

// ListGames exposes the query surface consumed by the HTTP layer.
func (s *Service) ListGames(ctx context.Context, p domain.Platform, username string, limit, offset int) ([]*domain.ChessGame, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, p)
	}
	return s.repo.ListGames(ctx, p, strings.TrimSpace(username), limit, offset)
}
