package exchange

import (
	"fmt"

	"github.com/doumori-team/tradingpost/internal/domain"
)

// MethodsForGame returns the contact methods valid for the given game. The
// set is derived from the catalog's capability flags, never from a list
// duplicated per call site: every game supports in-game character
// references; friend codes and transfer codes depend on the generation.
func MethodsForGame(g domain.Game) []domain.ContactKind {
	kinds := []domain.ContactKind{domain.ContactKindCharacter}
	if g.HasFriendCodes {
		kinds = append(kinds, domain.ContactKindFriendCode)
	}
	if g.HasTransferCodes {
		kinds = append(kinds, domain.ContactKindTransferCode)
	}
	return kinds
}

// ValidateMethod checks that the requested kind is among the methods valid
// for the game.
func ValidateMethod(g domain.Game, kind domain.ContactKind) error {
	for _, k := range MethodsForGame(g) {
		if k == kind {
			return nil
		}
	}
	return fmt.Errorf("%w: %s does not support %s", domain.ErrMethodNotSupported, g.ID, kind)
}
