package reconciliation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountUpdateBalance(t *testing.T) {
	day1 := EndOfDay(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	day2 := EndOfDay(time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC))

	acct := &Account{ID: "acct-1", AccountKey: "ACC-001", CurrentBalance: decimal.RequireFromString("1000.00")}
	require.NoError(t, acct.UpdateBalance(decimal.RequireFromString("1500.00"), decimal.RequireFromString("1400.00"), day2))

	assert.True(t, acct.CurrentBalance.Equal(decimal.RequireFromString("1500.00")))
	assert.True(t, acct.AvailableBalance.Equal(decimal.RequireFromString("1400.00")))
	require.NotNil(t, acct.LastTransactionAt)
	assert.Equal(t, day2, *acct.LastTransactionAt)

	err := acct.UpdateBalance(decimal.RequireFromString("2000.00"), decimal.Zero, day1)
	assert.ErrorIs(t, err, ErrNonMonotonicUpdate)
	assert.True(t, acct.CurrentBalance.Equal(decimal.RequireFromString("1500.00")))

	var nilAccount *Account
	assert.ErrorIs(t, nilAccount.UpdateBalance(decimal.Zero, decimal.Zero, day2), ErrNilAccount)
}

func TestAccountCloneIsDetached(t *testing.T) {
	at := time.Date(2024, time.January, 1, 23, 59, 59, 0, time.UTC)
	acct := &Account{ID: "acct-1", LastTransactionAt: &at}

	clone := acct.Clone()
	*clone.LastTransactionAt = at.Add(time.Hour)

	assert.Equal(t, at, *acct.LastTransactionAt)
}

func TestNewLedgerEntry(t *testing.T) {
	recordedAt := EndOfDay(time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC))
	entry := NewLedgerEntry("acct-1", decimal.RequireFromString("1000.00"), decimal.RequireFromString("1500.00"), recordedAt)

	assert.NotEmpty(t, entry.ID)
	assert.True(t, entry.Amount.Equal(decimal.RequireFromString("500.00")))
	assert.True(t, entry.NewBalance.Sub(entry.PreviousBalance).Equal(entry.Amount))
	assert.Equal(t, recordedAt, entry.RecordedAt)
}
