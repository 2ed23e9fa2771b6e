package domain

import "context"

// Game describes one entry of the game catalog. The trading post only reads
// these; catalog content is owned elsewhere.
type Game struct {
	ID               string // short slug, e.g. "gc", "ww", "cf", "nl", "nh"
	Title            string
	TradingEnabled   bool
	HasFriendCodes   bool
	HasTransferCodes bool // newest generation only
}

// CatalogItem is display metadata for a tradable in-game item.
type CatalogItem struct {
	ID       string
	GameID   string
	Name     string
	Category string
	Tradable bool
}

// CatalogLookup resolves game and item identifiers to display metadata.
type CatalogLookup interface {
	GetGame(ctx context.Context, gameID string) (Game, error)
	ListGames(ctx context.Context) ([]Game, error)
	ResolveItems(ctx context.Context, gameID string, itemIDs []string) ([]CatalogItem, error)
}
