package reconciliation

import "github.com/shopspring/decimal"

// BalanceObservation is one validated row of a reconciliation batch.
// The report date is batch-wide and passed alongside the batch.
type BalanceObservation struct {
	AccountKey       string
	CurrentBalance   decimal.Decimal
	AvailableBalance decimal.Decimal
}

// Normalized returns the observation with balances rounded to BalanceScale.
func (o BalanceObservation) Normalized() BalanceObservation {
	o.CurrentBalance = RoundBalance(o.CurrentBalance)
	o.AvailableBalance = RoundBalance(o.AvailableBalance)
	return o
}
