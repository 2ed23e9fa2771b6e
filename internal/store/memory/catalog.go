package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/doumori-team/tradingpost/internal/domain"
)

// Catalog is an in-memory CatalogLookup seeded with a fixed game list. The
// development mode serves it directly; tests seed it with fixtures.
type Catalog struct {
	mu    sync.RWMutex
	games map[string]domain.Game
	items map[string]domain.CatalogItem
}

// NewCatalog creates a catalog holding the given games.
func NewCatalog(games ...domain.Game) *Catalog {
	c := &Catalog{
		games: make(map[string]domain.Game),
		items: make(map[string]domain.CatalogItem),
	}
	for _, g := range games {
		c.games[g.ID] = g
	}
	return c
}

// SeedItems adds catalog items, replacing any with the same id.
func (c *Catalog) SeedItems(items ...domain.CatalogItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range items {
		c.items[it.ID] = it
	}
}

// GetGame returns the game by slug.
func (c *Catalog) GetGame(_ context.Context, gameID string) (domain.Game, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	g, ok := c.games[gameID]
	if !ok {
		return domain.Game{}, domain.ErrNotFound
	}
	return g, nil
}

// ListGames returns all games ordered by slug.
func (c *Catalog) ListGames(_ context.Context) ([]domain.Game, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Game, 0, len(c.games))
	for _, g := range c.games {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ResolveItems returns metadata for the requested item ids. Unknown ids and
// items from other games are omitted, matching the relational lookup.
func (c *Catalog) ResolveItems(_ context.Context, gameID string, itemIDs []string) ([]domain.CatalogItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.CatalogItem, 0, len(itemIDs))
	for _, id := range itemIDs {
		it, ok := c.items[id]
		if !ok || it.GameID != gameID {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

var _ domain.CatalogLookup = (*Catalog)(nil)
