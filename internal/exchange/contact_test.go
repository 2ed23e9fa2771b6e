package exchange

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doumori-team/tradingpost/internal/domain"
)

var (
	oldGen = domain.Game{ID: "gc", Title: "Gamecube generation", TradingEnabled: true}
	midGen = domain.Game{ID: "nl", Title: "Handheld generation", TradingEnabled: true, HasFriendCodes: true}
	newGen = domain.Game{ID: "nh", Title: "Newest generation", TradingEnabled: true, HasFriendCodes: true, HasTransferCodes: true}
)

func TestMethodsForGame(t *testing.T) {
	assert.Equal(t,
		[]domain.ContactKind{domain.ContactKindCharacter},
		MethodsForGame(oldGen))

	assert.Equal(t,
		[]domain.ContactKind{domain.ContactKindCharacter, domain.ContactKindFriendCode},
		MethodsForGame(midGen))

	assert.Equal(t,
		[]domain.ContactKind{domain.ContactKindCharacter, domain.ContactKindFriendCode, domain.ContactKindTransferCode},
		MethodsForGame(newGen))
}

func TestValidateMethod(t *testing.T) {
	assert.NoError(t, ValidateMethod(newGen, domain.ContactKindTransferCode))
	assert.NoError(t, ValidateMethod(midGen, domain.ContactKindFriendCode))
	assert.NoError(t, ValidateMethod(oldGen, domain.ContactKindCharacter))

	assert.ErrorIs(t, ValidateMethod(midGen, domain.ContactKindTransferCode), domain.ErrMethodNotSupported)
	assert.ErrorIs(t, ValidateMethod(oldGen, domain.ContactKindFriendCode), domain.ErrMethodNotSupported)
}

func TestGenerateFriendCode(t *testing.T) {
	re := regexp.MustCompile(`^\d{4}-\d{4}-\d{4}$`)
	for i := 0; i < 20; i++ {
		code, err := GenerateFriendCode()
		require.NoError(t, err)
		assert.Regexp(t, re, code)
	}
}

func TestGenerateTransferCode(t *testing.T) {
	now := time.Now().UTC()
	seen := make(map[string]bool)

	for i := 0; i < 50; i++ {
		m, err := GenerateTransferCode(now)
		require.NoError(t, err)

		assert.Equal(t, domain.ContactKindTransferCode, m.Kind)
		assert.Len(t, m.Value, transferCodeLen)
		for _, r := range m.Value {
			assert.Contains(t, transferAlphabet, string(r))
		}

		require.NotNil(t, m.ExpiresAt)
		assert.Equal(t, now.Add(TransferCodeTTL), *m.ExpiresAt)

		seen[m.Value] = true
	}

	// 31^5 possible codes; 50 draws colliding into one value would mean the
	// generator is broken.
	assert.Greater(t, len(seen), 1)
}

func TestCharacterRef(t *testing.T) {
	assert.Equal(t, "Melba of Brewster", CharacterRef("Melba", "Brewster"))
}
