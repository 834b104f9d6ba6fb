// internal/domain/issuance/amount.go
package issuance

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxDecimals is the largest precision accepted for a new mint.
const MaxDecimals = 9

// ParseSupply parses a human entered supply such as "1000000" or "12.5".
// Signs and exponents are rejected; the value must be strictly positive.
func ParseSupply(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: supply is empty", ErrInvalidSupply)
	}
	if strings.ContainsAny(s, "eE+-") {
		return decimal.Zero, fmt.Errorf("%w: supply %q must be a plain decimal", ErrInvalidSupply, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidSupply, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: supply must be greater than zero", ErrInvalidSupply)
	}
	return d, nil
}

// ToBaseUnits converts supply × 10^decimals into the integer amount stored by the ledger.
//
// Fails with ErrInvalidDecimals when decimals is outside [0, MaxDecimals],
// ErrPrecisionLoss when supply has more fractional digits than decimals allows,
// and ErrAmountOverflow when the product does not fit in a uint64.
func ToBaseUnits(supply decimal.Decimal, decimals int) (uint64, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return 0, fmt.Errorf("%w: got %d, want 0..%d", ErrInvalidDecimals, decimals, MaxDecimals)
	}
	if !supply.IsPositive() {
		return 0, fmt.Errorf("%w: supply must be greater than zero", ErrInvalidSupply)
	}

	scaled := supply.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s has more than %d fractional digits", ErrPrecisionLoss, supply.String(), decimals)
	}

	bi := scaled.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("%w: %s × 10^%d exceeds 2^64-1", ErrAmountOverflow, supply.String(), decimals)
	}
	return bi.Uint64(), nil
}

// FromBaseUnits is the inverse of ToBaseUnits.
func FromBaseUnits(amount uint64, decimals int) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals))
}
