package domain

import (
	"context"
	"time"
)

// CatalogCache provides fast catalog metadata lookups in front of the
// catalog collaborator. Listing and offer state is never cached; any cached
// copy could go stale relative to a concurrent transition.
type CatalogCache interface {
	SetGame(ctx context.Context, game Game) error
	GetGame(ctx context.Context, gameID string) (Game, error)
	SetItem(ctx context.Context, item CatalogItem) error
	GetItem(ctx context.Context, gameID, itemID string) (CatalogItem, error)
	Invalidate(ctx context.Context, gameID string) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed mutual exclusion. The archive job takes a
// lock so that overlapping runs cannot ship the same audit batch twice.
type LockManager interface {
	// Acquire obtains the lock and returns its release function, or
	// ErrLockHeld when another holder owns it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// StreamMessage represents a single entry from a durable event stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and durable streams for transition events.
// Publishing is fire-and-forget with respect to the state machine: a failed
// publish is logged, never rolled back into the transition.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
