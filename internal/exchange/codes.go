package exchange

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/doumori-team/tradingpost/internal/domain"
)

// TransferCodeTTL is how long a generated transfer code stays valid.
const TransferCodeTTL = 30 * time.Minute

// transferAlphabet excludes look-alike characters (0/O, 1/I/L) so codes
// survive being read aloud.
const transferAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const transferCodeLen = 5

// GenerateFriendCode produces a console friend code in XXXX-XXXX-XXXX form.
func GenerateFriendCode() (string, error) {
	groups := make([]string, 3)
	for i := range groups {
		n, err := rand.Int(rand.Reader, big.NewInt(10000))
		if err != nil {
			return "", fmt.Errorf("exchange: generate friend code: %w", err)
		}
		groups[i] = fmt.Sprintf("%04d", n.Int64())
	}
	return groups[0] + "-" + groups[1] + "-" + groups[2], nil
}

// GenerateTransferCode produces a short-lived visit code valid for
// TransferCodeTTL from now.
func GenerateTransferCode(now time.Time) (domain.ContactMethod, error) {
	code := make([]byte, transferCodeLen)
	max := big.NewInt(int64(len(transferAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return domain.ContactMethod{}, fmt.Errorf("exchange: generate transfer code: %w", err)
		}
		code[i] = transferAlphabet[n.Int64()]
	}
	expires := now.Add(TransferCodeTTL)
	return domain.ContactMethod{
		Kind:      domain.ContactKindTransferCode,
		Value:     string(code),
		ExpiresAt: &expires,
	}, nil
}

// CharacterRef formats an in-game character reference as "Character of Town".
func CharacterRef(character, town string) string {
	return character + " of " + town
}
