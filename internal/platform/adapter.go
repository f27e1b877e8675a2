// Package platform defines the capability contract shared by the upstream
// game-hosting adapters and the transport client they fetch with.
package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/park285/chessvault/internal/domain"
)

// Window is one fetch granularity: a calendar (year, month) pair for
// chess.com, a single since-timestamp for lichess. Each adapter computes its
// own windows and reads only the fields it set.
type Window struct {
	Year  int
	Month time.Month
	Since time.Time
}

// Label renders the window for diagnostics.
func (w Window) Label() string {
	if !w.Since.IsZero() {
		return "since " + w.Since.UTC().Format("2006-01-02")
	}
	return fmt.Sprintf("%04d/%02d", w.Year, int(w.Month))
}

// RawGame is one platform-specific record as fetched. The orchestrator sees
// only the external id for dedup; everything else stays opaque until the
// owning adapter normalizes it.
type RawGame interface {
	ExternalID() string
}

// Adapter fetches and normalizes game listings for one platform.
type Adapter interface {
	Platform() domain.Platform

	// Windows computes the time units to fetch for a run, newest first.
	Windows(now time.Time, monthsBack int) []Window

	// Fetch returns the raw records for one window. Transport failures and
	// non-2xx responses surface as *APIError.
	Fetch(ctx context.Context, username string, w Window) ([]RawGame, error)

	// Normalize maps one raw record into the canonical shape. Player identity
	// references are left unresolved for the caller.
	Normalize(raw RawGame) (*domain.ChessGame, error)
}

// APIError is a recoverable upstream failure: transport error, timeout, or
// non-2xx status for one window.
type APIError struct {
	Platform domain.Platform
	Unit     string
	Status   int
	Body     string
	Err      error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s api error for %s: %v", e.Platform, e.Unit, e.Err)
	}
	return fmt.Sprintf("%s api error for %s: status=%d body=%s", e.Platform, e.Unit, e.Status, e.Body)
}

func (e *APIError) Unwrap() error { return e.Err }
