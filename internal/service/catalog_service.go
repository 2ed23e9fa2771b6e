package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/doumori-team/tradingpost/internal/domain"
)

// CatalogService fronts the catalog collaborator with a Redis cache. Only
// catalog metadata is cached; listing and offer state never passes through
// here.
type CatalogService struct {
	lookup domain.CatalogLookup
	cache  domain.CatalogCache
	logger *slog.Logger
}

// NewCatalogService creates a CatalogService. cache may be nil, in which
// case every read goes to the underlying lookup.
func NewCatalogService(lookup domain.CatalogLookup, cache domain.CatalogCache, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		lookup: lookup,
		cache:  cache,
		logger: logger.With(slog.String("component", "catalog_service")),
	}
}

// GetGame retrieves a game by slug, checking the cache first and falling
// back to the store on a miss.
func (s *CatalogService) GetGame(ctx context.Context, gameID string) (domain.Game, error) {
	if s.cache != nil {
		if g, err := s.cache.GetGame(ctx, gameID); err == nil {
			return g, nil
		}
	}

	g, err := s.lookup.GetGame(ctx, gameID)
	if err != nil {
		return domain.Game{}, fmt.Errorf("catalog_service: get game %q: %w", gameID, err)
	}

	if s.cache != nil {
		if cacheErr := s.cache.SetGame(ctx, g); cacheErr != nil {
			s.logger.WarnContext(ctx, "catalog_service: cache set failed",
				slog.String("game_id", gameID),
				slog.String("error", cacheErr.Error()),
			)
		}
	}
	return g, nil
}

// ListGames returns the full game list directly from the store.
func (s *CatalogService) ListGames(ctx context.Context) ([]domain.Game, error) {
	games, err := s.lookup.ListGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog_service: list games: %w", err)
	}
	return games, nil
}

// ResolveItems resolves item metadata, serving cached entries where possible
// and back-filling the cache for the rest.
func (s *CatalogService) ResolveItems(ctx context.Context, gameID string, itemIDs []string) ([]domain.CatalogItem, error) {
	out := make([]domain.CatalogItem, 0, len(itemIDs))
	var missing []string

	if s.cache == nil {
		missing = itemIDs
	} else {
		for _, id := range itemIDs {
			it, err := s.cache.GetItem(ctx, gameID, id)
			if err != nil {
				missing = append(missing, id)
				continue
			}
			out = append(out, it)
		}
	}

	if len(missing) == 0 {
		return out, nil
	}

	resolved, err := s.lookup.ResolveItems(ctx, gameID, missing)
	if err != nil {
		return nil, fmt.Errorf("catalog_service: resolve items: %w", err)
	}

	for _, it := range resolved {
		if s.cache != nil {
			if cacheErr := s.cache.SetItem(ctx, it); cacheErr != nil {
				s.logger.WarnContext(ctx, "catalog_service: cache set failed",
					slog.String("item_id", it.ID),
					slog.String("error", cacheErr.Error()),
				)
			}
		}
		out = append(out, it)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.CatalogLookup = (*CatalogService)(nil)
