package reconciliation

import "time"

// MayApply reports whether a batch stamped reportEndOfDay may overwrite an
// account last updated at lastTransactionAt. Equal instants are rejected, so
// resubmitting the same report date never applies twice.
func MayApply(lastTransactionAt *time.Time, reportEndOfDay time.Time) bool {
	if lastTransactionAt == nil || lastTransactionAt.IsZero() {
		return true
	}
	return reportEndOfDay.After(*lastTransactionAt)
}
