package core

import "github.com/shopspring/decimal"

// MeetsMinBid returns true if amount meets or exceeds the auction's minimum
// bid. Uses decimal arithmetic rounded to MonetaryPrecision to avoid
// floating-point comparison errors.
func MeetsMinBid(amount, minBid decimal.Decimal) bool {
	return amount.Round(MonetaryPrecision).GreaterThanOrEqual(minBid.Round(MonetaryPrecision))
}
