// Package domain defines the core types of the trading post: listings,
// offers, contact methods, and the store interfaces that persist them.
package domain

// Scope identifies the game catalog a listing trades within. The zero value
// is the unscoped ("real-world") scope, used for trades of physical items
// that are not tied to any in-game catalog.
//
// Scoped and unscoped are distinct constructors rather than a sentinel game
// ID, so "no scope" can never collide with an invalid or unknown game.
type Scope struct {
	gameID string
	scoped bool
}

// ScopeFor returns a Scope bound to the given game ID.
func ScopeFor(gameID string) Scope {
	return Scope{gameID: gameID, scoped: true}
}

// Unscoped returns the real-world scope.
func Unscoped() Scope {
	return Scope{}
}

// IsScoped reports whether the scope is bound to a game.
func (s Scope) IsScoped() bool {
	return s.scoped
}

// GameID returns the bound game ID and true, or "" and false for the
// unscoped scope.
func (s Scope) GameID() (string, bool) {
	if !s.scoped {
		return "", false
	}
	return s.gameID, true
}

// String renders the scope for logs and audit detail.
func (s Scope) String() string {
	if !s.scoped {
		return "unscoped"
	}
	return s.gameID
}
