package importer

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/park285/chessvault/internal/domain"
)

// memrepo is an in-memory Repository used by tests and DB-less development.
// It enforces the same uniqueness rules as the postgres schema.
type memrepo struct {
	mu sync.Mutex

	nextGameID     int64
	nextIdentityID int64

	games      map[string]*domain.ChessGame      // platform|externalID -> game
	identities map[string]*domain.PlayerIdentity // username|platform -> identity
}

func NewMemoryRepository() Repository {
	return &memrepo{
		games:      make(map[string]*domain.ChessGame),
		identities: make(map[string]*domain.PlayerIdentity),
	}
}

func (m *memrepo) HasGame(ctx context.Context, p domain.Platform, externalID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.games[gameKey(p, externalID)]
	return ok, nil
}

func (m *memrepo) SaveGame(ctx context.Context, game *domain.ChessGame) (int64, error) {
	if game == nil {
		return 0, ErrDuplicateGame
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := gameKey(game.Platform, game.ExternalID)
	if _, exists := m.games[key]; exists {
		return 0, ErrDuplicateGame
	}

	white := m.resolveLocked(game.WhiteUsername, game.Platform, game.WhiteRating)
	black := m.resolveLocked(game.BlackUsername, game.Platform, game.BlackRating)
	game.WhitePlayerID = white.ID
	game.BlackPlayerID = black.ID

	m.nextGameID++
	stored := *game
	stored.ID = m.nextGameID
	stored.RetrievedAt = time.Now()
	m.games[key] = &stored
	game.ID = stored.ID
	return stored.ID, nil
}

func (m *memrepo) ResolveIdentity(ctx context.Context, username string, p domain.Platform) (*domain.PlayerIdentity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	identity := m.resolveLocked(username, p, 0)
	copied := *identity
	return &copied, nil
}

func (m *memrepo) resolveLocked(username string, p domain.Platform, rating int) *domain.PlayerIdentity {
	key := identityKey(username, p)
	if identity, ok := m.identities[key]; ok {
		return identity
	}
	m.nextIdentityID++
	identity := &domain.PlayerIdentity{
		ID:        m.nextIdentityID,
		Username:  strings.TrimSpace(username),
		Platform:  p,
		Rating:    rating,
		CreatedAt: time.Now(),
	}
	m.identities[key] = identity
	return identity
}

func (m *memrepo) ListGames(ctx context.Context, p domain.Platform, username string, limit, offset int) ([]*domain.ChessGame, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var items []*domain.ChessGame
	for _, g := range m.games {
		if g.Platform != p {
			continue
		}
		if g.WhiteUsername != username && g.BlackUsername != username {
			continue
		}
		copied := *g
		items = append(items, &copied)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].GameDate.Equal(items[j].GameDate) {
			return items[i].GameDate.After(items[j].GameDate)
		}
		return items[i].ID > items[j].ID
	})
	if offset >= len(items) {
		return []*domain.ChessGame{}, nil
	}
	items = items[offset:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func gameKey(p domain.Platform, externalID string) string {
	return string(p) + "|" + strings.TrimSpace(externalID)
}

func identityKey(username string, p domain.Platform) string {
	return strings.TrimSpace(username) + "|" + string(p)
}
