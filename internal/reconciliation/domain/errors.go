package reconciliation

import "errors"

var (
	// ErrEmptyAccountKey is returned when an observation or account has no key.
	ErrEmptyAccountKey = errors.New("reconciliation: empty account key")
	// ErrEmptyManagerID is returned when a snapshot has no manager.
	ErrEmptyManagerID = errors.New("reconciliation: empty manager id")
	// ErrInvalidReportDate is returned when the report date is zero.
	ErrInvalidReportDate = errors.New("reconciliation: invalid report date")
	// ErrAccountNotFound is returned when an account key does not resolve.
	ErrAccountNotFound = errors.New("reconciliation: account not found")
	// ErrNilAccount is returned when saving a nil account.
	ErrNilAccount = errors.New("reconciliation: nil account")
	// ErrNilSnapshot is returned when saving a nil snapshot.
	ErrNilSnapshot = errors.New("reconciliation: nil snapshot")
	// ErrNonMonotonicUpdate is returned when an update would move last_transaction_at backwards.
	ErrNonMonotonicUpdate = errors.New("reconciliation: non-monotonic account update")
	// ErrReconciliationFailed is the only error surfaced to callers for a rolled back batch.
	ErrReconciliationFailed = errors.New("reconciliation: batch failed")
)
