package archive

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/park285/annan-shogi-server/internal/domain"
)

// memrepo keeps archived games in process memory when no database is configured.
type memrepo struct {
	mu        sync.RWMutex
	nextID    int64
	byID      map[int64]*domain.AnnanGame
	bySession map[string]*domain.AnnanGame
}

func NewMemoryRepository() Repository {
	return &memrepo{
		byID:      make(map[int64]*domain.AnnanGame),
		bySession: make(map[string]*domain.AnnanGame),
	}
}

func (m *memrepo) InsertGame(ctx context.Context, game *domain.AnnanGame) (int64, error) {
	if game == nil {
		return 0, ErrDuplicateGame
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.bySession[game.SessionUUID]; exists {
		return 0, ErrDuplicateGame
	}
	m.nextID++
	stored := cloneGame(game)
	stored.ID = m.nextID
	m.byID[stored.ID] = stored
	m.bySession[stored.SessionUUID] = stored
	return stored.ID, nil
}

func (m *memrepo) GetRecentGames(ctx context.Context, limit int) ([]*domain.AnnanGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]*domain.AnnanGame, 0, len(m.byID))
	for _, g := range m.byID {
		items = append(items, cloneGame(g))
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit <= 0 {
		limit = 10
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memrepo) GetGame(ctx context.Context, id int64) (*domain.AnnanGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.byID[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	return cloneGame(g), nil
}

func (m *memrepo) GetGameBySession(ctx context.Context, sessionUUID string) (*domain.AnnanGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.bySession[sessionUUID]
	if !ok {
		return nil, ErrGameNotFound
	}
	return cloneGame(g), nil
}

func cloneGame(g *domain.AnnanGame) *domain.AnnanGame {
	c := *g
	c.MovesUSI = append([]string(nil), g.MovesUSI...)
	return &c
}

func msDuration(ms int64) time.Duration { return time.Duration(ms) * time.Millisecond }
