package reconciliation

import "github.com/shopspring/decimal"

// BalanceScale is the number of decimal places balances are stored with.
const BalanceScale int32 = 4

// Epsilon is the smallest absolute balance delta treated as a real change.
var Epsilon = decimal.New(1, -BalanceScale)

// RoundBalance rounds to BalanceScale places, half away from zero, matching
// how Postgres stores NUMERIC(20,4).
func RoundBalance(value decimal.Decimal) decimal.Decimal {
	return value.Round(BalanceScale)
}

// IsMeaningfulChange reports whether candidate differs from previous by more than Epsilon.
func IsMeaningfulChange(previous, candidate decimal.Decimal) bool {
	return candidate.Sub(previous).Abs().GreaterThan(Epsilon)
}
