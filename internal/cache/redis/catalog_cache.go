package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/doumori-team/tradingpost/internal/domain"
)

const catalogTTL = 10 * time.Minute

// CatalogCache implements domain.CatalogCache using Redis hashes with
// JSON-serialized catalog metadata. Listing and offer state is never cached
// here.
//
// Key schema:
//
//	catalog:game:{gameID}        - hash with field "data" containing JSON
//	catalog:item:{gameID}:{id}   - hash with field "data" containing JSON
type CatalogCache struct {
	rdb *redis.Client
}

// NewCatalogCache creates a CatalogCache backed by the given Client.
func NewCatalogCache(c *Client) *CatalogCache {
	return &CatalogCache{rdb: c.Underlying()}
}

func gameKey(gameID string) string         { return "catalog:game:" + gameID }
func itemKey(gameID, itemID string) string { return "catalog:item:" + gameID + ":" + itemID }

// SetGame stores a game with the catalog TTL.
func (cc *CatalogCache) SetGame(ctx context.Context, game domain.Game) error {
	data, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("redis: marshal game %s: %w", game.ID, err)
	}

	key := gameKey(game.ID)
	pipe := cc.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data)
	pipe.Expire(ctx, key, catalogTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set game %s: %w", game.ID, err)
	}
	return nil
}

// GetGame retrieves a game by slug. It returns domain.ErrNotFound when the
// key does not exist.
func (cc *CatalogCache) GetGame(ctx context.Context, gameID string) (domain.Game, error) {
	data, err := cc.rdb.HGet(ctx, gameKey(gameID), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Game{}, domain.ErrNotFound
		}
		return domain.Game{}, fmt.Errorf("redis: get game %s: %w", gameID, err)
	}

	var game domain.Game
	if err := json.Unmarshal(data, &game); err != nil {
		return domain.Game{}, fmt.Errorf("redis: unmarshal game %s: %w", gameID, err)
	}
	return game, nil
}

// SetItem stores a catalog item with the catalog TTL.
func (cc *CatalogCache) SetItem(ctx context.Context, item domain.CatalogItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("redis: marshal item %s: %w", item.ID, err)
	}

	key := itemKey(item.GameID, item.ID)
	pipe := cc.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data)
	pipe.Expire(ctx, key, catalogTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set item %s: %w", item.ID, err)
	}
	return nil
}

// GetItem retrieves a catalog item. It returns domain.ErrNotFound when the
// key does not exist.
func (cc *CatalogCache) GetItem(ctx context.Context, gameID, itemID string) (domain.CatalogItem, error) {
	data, err := cc.rdb.HGet(ctx, itemKey(gameID, itemID), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.CatalogItem{}, domain.ErrNotFound
		}
		return domain.CatalogItem{}, fmt.Errorf("redis: get item %s: %w", itemID, err)
	}

	var item domain.CatalogItem
	if err := json.Unmarshal(data, &item); err != nil {
		return domain.CatalogItem{}, fmt.Errorf("redis: unmarshal item %s: %w", itemID, err)
	}
	return item, nil
}

// Invalidate removes a game and all of its cached items.
func (cc *CatalogCache) Invalidate(ctx context.Context, gameID string) error {
	keys := []string{gameKey(gameID)}

	iter := cc.rdb.Scan(ctx, 0, itemKey(gameID, "*"), 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis: scan items for %s: %w", gameID, err)
	}

	if err := cc.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: invalidate game %s: %w", gameID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.CatalogCache = (*CatalogCache)(nil)
