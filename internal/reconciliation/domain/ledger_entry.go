package reconciliation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEntry is an immutable record of one accepted balance change.
type LedgerEntry struct {
	ID              string
	AccountID       string
	Amount          decimal.Decimal
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
	RecordedAt      time.Time
}

// NewLedgerEntry records the move from previous to next. Amount is next-previous.
func NewLedgerEntry(accountID string, previous, next decimal.Decimal, recordedAt time.Time) LedgerEntry {
	return LedgerEntry{
		ID:              uuid.NewString(),
		AccountID:       accountID,
		Amount:          next.Sub(previous),
		PreviousBalance: previous,
		NewBalance:      next,
		RecordedAt:      recordedAt.UTC(),
	}
}
