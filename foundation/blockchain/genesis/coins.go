package genesis

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// coinExp is the decimal exponent of the smallest unit.
const coinExp = -8

// FormatCoins renders an amount in smallest units as coins.
func FormatCoins(units uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), coinExp).String()
}

// ParseCoins converts an amount in coins such as "1.5" into smallest units.
// Amounts with more precision than one unit are rejected.
func ParseCoins(coins string) (uint64, error) {
	d, err := decimal.NewFromString(coins)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", coins, err)
	}

	if d.IsNegative() {
		return 0, fmt.Errorf("amount %q is negative", coins)
	}

	units := d.Shift(-coinExp)
	if !units.IsInteger() {
		return 0, fmt.Errorf("amount %q is more precise than one unit", coins)
	}

	bi := units.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("amount %q is too large", coins)
	}

	return bi.Uint64(), nil
}
