package importer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/park285/chessvault/internal/domain"
)

func storedGame(id string, date time.Time) *domain.ChessGame {
	return &domain.ChessGame{
		ExternalID:    id,
		Platform:      domain.PlatformChessCom,
		WhiteUsername: "alice",
		BlackUsername: "bob",
		WhiteRating:   1500,
		BlackRating:   1480,
		GameDate:      date,
		Result:        domain.ResultWhiteWon,
	}
}

func TestMemrepoSaveAndHasGame(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	exists, err := repo.HasGame(ctx, domain.PlatformChessCom, "g1")
	if err != nil || exists {
		t.Fatalf("HasGame before save = %v/%v", exists, err)
	}

	id, err := repo.SaveGame(ctx, storedGame("g1", time.Now()))
	if err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	if id == 0 {
		t.Fatal("zero game id")
	}

	exists, err = repo.HasGame(ctx, domain.PlatformChessCom, "g1")
	if err != nil || !exists {
		t.Fatalf("HasGame after save = %v/%v", exists, err)
	}
}

func TestMemrepoDuplicateSave(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if _, err := repo.SaveGame(ctx, storedGame("g1", time.Now())); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if _, err := repo.SaveGame(ctx, storedGame("g1", time.Now())); !errors.Is(err, ErrDuplicateGame) {
		t.Fatalf("second save err = %v", err)
	}
}

func TestMemrepoSameIDAcrossPlatforms(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if _, err := repo.SaveGame(ctx, storedGame("g1", time.Now())); err != nil {
		t.Fatalf("chess.com save: %v", err)
	}
	other := storedGame("g1", time.Now())
	other.Platform = domain.PlatformLichess
	if _, err := repo.SaveGame(ctx, other); err != nil {
		t.Fatalf("lichess save with same external id: %v", err)
	}
}

func TestMemrepoIdentityReuse(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	g1 := storedGame("g1", time.Now())
	g2 := storedGame("g2", time.Now())
	if _, err := repo.SaveGame(ctx, g1); err != nil {
		t.Fatalf("save g1: %v", err)
	}
	if _, err := repo.SaveGame(ctx, g2); err != nil {
		t.Fatalf("save g2: %v", err)
	}

	if g1.WhitePlayerID == 0 || g1.BlackPlayerID == 0 {
		t.Fatal("player ids not assigned")
	}
	if g1.WhitePlayerID != g2.WhitePlayerID || g1.BlackPlayerID != g2.BlackPlayerID {
		t.Fatal("same players resolved to different identities")
	}

	identity, err := repo.ResolveIdentity(ctx, "alice", domain.PlatformChessCom)
	if err != nil {
		t.Fatalf("ResolveIdentity: %v", err)
	}
	if identity.ID != g1.WhitePlayerID {
		t.Fatalf("identity id = %d, want %d", identity.ID, g1.WhitePlayerID)
	}
}

func TestMemrepoConcurrentIdentityResolution(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	const workers = 16
	ids := make([]int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			identity, err := repo.ResolveIdentity(ctx, "alice", domain.PlatformLichess)
			if err != nil {
				t.Errorf("ResolveIdentity: %v", err)
				return
			}
			ids[i] = identity.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("identity ids diverged: %v", ids)
		}
	}
	if ids[0] == 0 {
		t.Fatal("zero identity id")
	}
}

func TestMemrepoListGamesOrderAndPaging(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"g1", "g2", "g3"} {
		if _, err := repo.SaveGame(ctx, storedGame(id, base.AddDate(0, 0, i))); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	games, err := repo.ListGames(ctx, domain.PlatformChessCom, "alice", 2, 0)
	if err != nil {
		t.Fatalf("ListGames: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("len = %d", len(games))
	}
	if games[0].ExternalID != "g3" || games[1].ExternalID != "g2" {
		t.Fatalf("order = %s, %s", games[0].ExternalID, games[1].ExternalID)
	}

	games, err = repo.ListGames(ctx, domain.PlatformChessCom, "alice", 2, 2)
	if err != nil {
		t.Fatalf("ListGames offset: %v", err)
	}
	if len(games) != 1 || games[0].ExternalID != "g1" {
		t.Fatalf("paged result = %+v", games)
	}

	games, err = repo.ListGames(ctx, domain.PlatformChessCom, "nobody", 10, 0)
	if err != nil {
		t.Fatalf("ListGames unknown user: %v", err)
	}
	if len(games) != 0 {
		t.Fatalf("unexpected games for unknown user: %d", len(games))
	}
}
