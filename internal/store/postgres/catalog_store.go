package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/doumori-team/tradingpost/internal/domain"
)

// CatalogStore implements domain.CatalogLookup over the catalog tables. The
// tables are synced by the main site; this service only reads them.
type CatalogStore struct {
	pool *pgxpool.Pool
}

// NewCatalogStore creates a CatalogStore backed by the given connection pool.
func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

// GetGame returns the game with the given id.
func (s *CatalogStore) GetGame(ctx context.Context, gameID string) (domain.Game, error) {
	var g domain.Game
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, trading_enabled, has_friend_codes, has_transfer_codes
		FROM games WHERE id = $1`, gameID,
	).Scan(&g.ID, &g.Title, &g.TradingEnabled, &g.HasFriendCodes, &g.HasTransferCodes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Game{}, domain.ErrNotFound
		}
		return domain.Game{}, fmt.Errorf("postgres: get game %s: %w", gameID, err)
	}
	return g, nil
}

// ListGames returns all games in the catalog.
func (s *CatalogStore) ListGames(ctx context.Context) ([]domain.Game, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, trading_enabled, has_friend_codes, has_transfer_codes
		FROM games ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list games: %w", err)
	}
	defer rows.Close()

	var games []domain.Game
	for rows.Next() {
		var g domain.Game
		if err := rows.Scan(&g.ID, &g.Title, &g.TradingEnabled, &g.HasFriendCodes, &g.HasTransferCodes); err != nil {
			return nil, fmt.Errorf("postgres: scan game: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// ResolveItems returns item metadata for the given ids within a game scope.
// Unknown ids are omitted from the result; the caller decides whether a
// partial resolution is an error.
func (s *CatalogStore) ResolveItems(ctx context.Context, gameID string, itemIDs []string) ([]domain.CatalogItem, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, game_id, name, category, tradable
		FROM catalog_items WHERE game_id = $1 AND id = ANY($2)`,
		gameID, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("postgres: resolve items in %s: %w", gameID, err)
	}
	defer rows.Close()

	var items []domain.CatalogItem
	for rows.Next() {
		var it domain.CatalogItem
		if err := rows.Scan(&it.ID, &it.GameID, &it.Name, &it.Category, &it.Tradable); err != nil {
			return nil, fmt.Errorf("postgres: scan catalog item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Compile-time interface check.
var _ domain.CatalogLookup = (*CatalogStore)(nil)
