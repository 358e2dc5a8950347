package order

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

const orderSuffixLen = 9

// NewOrderID returns ORDER_<unix millis>_<9 base36 chars>. The suffix comes from a
// random UUID, so collisions are unlikely but possible; CreateOrder checks the ledger.
func NewOrderID(now time.Time) string {
	u := uuid.New()
	suffix := new(big.Int).SetBytes(u[:]).Text(36)
	if len(suffix) < orderSuffixLen {
		suffix = strings.Repeat("0", orderSuffixLen-len(suffix)) + suffix
	}
	return fmt.Sprintf("ORDER_%d_%s", now.UnixMilli(), suffix[len(suffix)-orderSuffixLen:])
}
