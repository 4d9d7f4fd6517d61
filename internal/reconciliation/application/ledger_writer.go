package application

import (
	"context"
	"fmt"
	"time"

	reconciliation "balance-recon/internal/reconciliation/domain"
)

// Outcome is the result of applying one observation to an account.
type Outcome int

const (
	// OutcomeApplied means a ledger entry was written and the account advanced.
	OutcomeApplied Outcome = iota + 1
	// OutcomeSkippedStale means the report date was not newer than the account's last update.
	OutcomeSkippedStale
	// OutcomeSkippedUnchanged means the reported balance is within epsilon of the stored one.
	OutcomeSkippedUnchanged
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeSkippedStale:
		return "skipped_stale"
	case OutcomeSkippedUnchanged:
		return "skipped_unchanged"
	default:
		return "unknown"
	}
}

// LedgerWriter decides whether an observation changes an account and, if so,
// appends a ledger entry and saves the account within the given transaction.
type LedgerWriter struct{}

// Apply runs the ordering guard, then the tolerance check, then writes.
// The account is mutated in place only when the outcome is OutcomeApplied.
func (LedgerWriter) Apply(ctx context.Context, tx reconciliation.Tx, account *reconciliation.Account, obs reconciliation.BalanceObservation, reportDate time.Time) (Outcome, error) {
	if account == nil {
		return 0, reconciliation.ErrNilAccount
	}
	if reportDate.IsZero() {
		return 0, reconciliation.ErrInvalidReportDate
	}

	recordedAt := reconciliation.EndOfDay(reportDate)
	if !reconciliation.MayApply(account.LastTransactionAt, recordedAt) {
		return OutcomeSkippedStale, nil
	}

	// Compare and record at storage scale so persisted entries keep
	// |amount| > Epsilon and new - previous == amount.
	obs = obs.Normalized()
	previous := reconciliation.RoundBalance(account.CurrentBalance)
	if !reconciliation.IsMeaningfulChange(previous, obs.CurrentBalance) {
		return OutcomeSkippedUnchanged, nil
	}

	entry := reconciliation.NewLedgerEntry(account.ID, previous, obs.CurrentBalance, recordedAt)
	if err := tx.Ledger().Insert(ctx, entry); err != nil {
		return 0, fmt.Errorf("insert ledger entry for %s: %w", account.AccountKey, err)
	}

	if err := account.UpdateBalance(obs.CurrentBalance, obs.AvailableBalance, recordedAt); err != nil {
		return 0, err
	}
	if err := tx.Accounts().Save(ctx, account); err != nil {
		return 0, fmt.Errorf("save account %s: %w", account.AccountKey, err)
	}
	return OutcomeApplied, nil
}
