package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/park285/chessvault/internal/domain"
	"github.com/park285/chessvault/internal/platform"
	"github.com/park285/chessvault/internal/service/importer"
	"github.com/park285/chessvault/pkg/importdto"
)

type stubRaw struct{ id string }

func (r stubRaw) ExternalID() string { return r.id }

type stubAdapter struct {
	games []*domain.ChessGame
}

func (a *stubAdapter) Platform() domain.Platform { return domain.PlatformChessCom }

func (a *stubAdapter) Windows(now time.Time, monthsBack int) []platform.Window {
	return []platform.Window{{Year: now.Year(), Month: now.Month()}}
}

func (a *stubAdapter) Fetch(ctx context.Context, username string, w platform.Window) ([]platform.RawGame, error) {
	raws := make([]platform.RawGame, 0, len(a.games))
	for _, g := range a.games {
		raws = append(raws, stubRaw{id: g.ExternalID})
	}
	return raws, nil
}

func (a *stubAdapter) Normalize(raw platform.RawGame) (*domain.ChessGame, error) {
	for _, g := range a.games {
		if g.ExternalID == raw.ExternalID() {
			cp := *g
			return &cp, nil
		}
	}
	return nil, &platform.APIError{Platform: domain.PlatformChessCom, Unit: "stub"}
}

func newTestApp(games ...*domain.ChessGame) (*fiber.App, importer.Repository) {
	repo := importer.NewMemoryRepository()
	svc := importer.NewService(
		[]platform.Adapter{&stubAdapter{games: games}},
		repo,
		importer.Config{},
	)
	return NewFiberApp(svc), repo
}

func sampleGame(id string) *domain.ChessGame {
	return &domain.ChessGame{
		ExternalID:    id,
		Platform:      domain.PlatformChessCom,
		WhiteUsername: "alice",
		BlackUsername: "bob",
		GameDate:      time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		Result:        domain.ResultWhiteWon,
		Winner:        domain.WinnerWhite,
	}
}

func postImport(t *testing.T, app *fiber.App, body importdto.ImportGamesRequest) (*http.Response, importdto.ImportGamesResponse) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/chess/import-games", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	var out importdto.ImportGamesResponse
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp, out
}

func TestImportGamesEndpoint(t *testing.T) {
	app, _ := newTestApp(sampleGame("g1"), sampleGame("g2"))

	resp, out := postImport(t, app, importdto.ImportGamesRequest{
		OwnerID:  7,
		Platform: "chess.com",
		Username: "alice",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if out.Imported != 2 || out.Skipped != 0 {
		t.Fatalf("imported/skipped = %d/%d", out.Imported, out.Skipped)
	}
	if out.RunID == "" {
		t.Fatal("missing run id")
	}

	// Re-running the same import is idempotent.
	resp, out = postImport(t, app, importdto.ImportGamesRequest{
		OwnerID:  7,
		Platform: "chess.com",
		Username: "alice",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if out.Imported != 0 || out.Skipped != 2 {
		t.Fatalf("rerun imported/skipped = %d/%d", out.Imported, out.Skipped)
	}
}

func TestImportGamesRejectsUnknownPlatform(t *testing.T) {
	app, _ := newTestApp()

	resp, _ := postImport(t, app, importdto.ImportGamesRequest{
		OwnerID:  1,
		Platform: "chess24",
		Username: "alice",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestImportGamesRejectsMissingUsername(t *testing.T) {
	app, _ := newTestApp()

	resp, _ := postImport(t, app, importdto.ImportGamesRequest{
		OwnerID:  1,
		Platform: "lichess",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestListGamesEndpoint(t *testing.T) {
	app, _ := newTestApp(sampleGame("g1"))

	if resp, _ := postImport(t, app, importdto.ImportGamesRequest{
		OwnerID:  1,
		Platform: "chess.com",
		Username: "alice",
	}); resp.StatusCode != http.StatusOK {
		t.Fatalf("import status = %d", resp.StatusCode)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/chess/games?platform=chess.com&username=alice", nil)
	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out importdto.GamesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Count != 1 || len(out.Games) != 1 {
		t.Fatalf("count = %d games = %d", out.Count, len(out.Games))
	}
	if out.Games[0].ExternalID != "g1" || out.Games[0].Result != "1-0" {
		t.Fatalf("unexpected record: %+v", out.Games[0])
	}
}

type refusingLocker struct{}

func (refusingLocker) Acquire(ctx context.Context, p domain.Platform, username string) (func(), bool, error) {
	return nil, false, nil
}

func TestImportGamesHeldLockConflict(t *testing.T) {
	svc := importer.NewService(
		[]platform.Adapter{&stubAdapter{}},
		importer.NewMemoryRepository(),
		importer.Config{},
		importer.WithLocker(refusingLocker{}),
	)
	app := NewFiberApp(svc)

	resp, _ := postImport(t, app, importdto.ImportGamesRequest{
		OwnerID:  1,
		Platform: "chess.com",
		Username: "alice",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body importdto.DomainError
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Code != "import_in_progress" || !body.Retryable {
		t.Fatalf("body = %+v", body)
	}
}

func TestListGamesRejectsOversizedLimit(t *testing.T) {
	app, _ := newTestApp()

	req := httptest.NewRequest(http.MethodGet, "/api/chess/games?platform=lichess&username=alice&limit=300", nil)
	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body importdto.DomainError
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Code != "invalid_request" {
		t.Fatalf("body = %+v", body)
	}
}

func TestListGamesRequiresUsername(t *testing.T) {
	app, _ := newTestApp()

	req := httptest.NewRequest(http.MethodGet, "/api/chess/games?platform=lichess", nil)
	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	app, _ := newTestApp()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out importdto.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Status != "ok" {
		t.Fatalf("status field = %q", out.Status)
	}
}
