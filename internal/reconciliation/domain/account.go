package reconciliation

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the live balance of a bank account as held by the ledger.
type Account struct {
	ID                string
	AccountKey        string
	CurrentBalance    decimal.Decimal
	AvailableBalance  decimal.Decimal
	LastTransactionAt *time.Time
	ManagerID         string
}

// UpdateBalance moves the account to the reported balances as of at.
// The update is refused if it would move LastTransactionAt backwards.
func (a *Account) UpdateBalance(current, available decimal.Decimal, at time.Time) error {
	if a == nil {
		return ErrNilAccount
	}
	if a.LastTransactionAt != nil && at.Before(*a.LastTransactionAt) {
		return ErrNonMonotonicUpdate
	}
	a.CurrentBalance = current
	a.AvailableBalance = available
	stamp := at.UTC()
	a.LastTransactionAt = &stamp
	return nil
}

// Clone returns a detached copy.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	copy := *a
	if a.LastTransactionAt != nil {
		at := *a.LastTransactionAt
		copy.LastTransactionAt = &at
	}
	return &copy
}
