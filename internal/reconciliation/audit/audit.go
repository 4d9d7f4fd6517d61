package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	reconciliation "balance-recon/internal/reconciliation/domain"
)

// Finding kinds.
const (
	KindChainBreak     = "chain_break"
	KindAmountMismatch = "amount_mismatch"
	KindSubEpsilon     = "sub_epsilon_amount"
	KindOutOfOrder     = "out_of_order"
	KindBalanceDrift   = "balance_drift"
	KindStampDrift     = "last_transaction_drift"
)

// Source lists committed accounts and their ledger entries.
type Source interface {
	ListAccounts(ctx context.Context) ([]*reconciliation.Account, error)
	reconciliation.LedgerReader
}

// Finding is one integrity violation on an account's ledger.
type Finding struct {
	AccountKey string
	EntryID    string
	Kind       string
	Detail     string
}

// Report is the result of an audit run.
type Report struct {
	Accounts []*reconciliation.Account
	Entries  []reconciliation.LedgerEntry
	Findings []Finding
}

// Run loads every account and its ledger and checks them.
func Run(ctx context.Context, src Source) (Report, error) {
	if src == nil {
		return Report{}, errors.New("audit: nil source")
	}
	accounts, err := src.ListAccounts(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list accounts: %w", err)
	}

	report := Report{Accounts: accounts}
	for _, acct := range accounts {
		entries, err := src.ListByAccount(ctx, acct.ID)
		if err != nil {
			return Report{}, fmt.Errorf("list ledger %s: %w", acct.AccountKey, err)
		}
		report.Entries = append(report.Entries, entries...)
		report.Findings = append(report.Findings, CheckAccount(acct, entries)...)
	}
	return report, nil
}

// CheckAccount verifies that entries, in recorded order, form an unbroken
// chain ending at the account's current balance and last transaction time.
func CheckAccount(acct *reconciliation.Account, entries []reconciliation.LedgerEntry) []Finding {
	if acct == nil {
		return nil
	}
	var findings []Finding
	add := func(entryID, kind, format string, args ...any) {
		findings = append(findings, Finding{
			AccountKey: acct.AccountKey,
			EntryID:    entryID,
			Kind:       kind,
			Detail:     fmt.Sprintf(format, args...),
		})
	}

	for i, entry := range entries {
		if !entry.NewBalance.Sub(entry.PreviousBalance).Equal(entry.Amount) {
			add(entry.ID, KindAmountMismatch, "amount %s != %s - %s", entry.Amount, entry.NewBalance, entry.PreviousBalance)
		}
		if !entry.Amount.Abs().GreaterThan(reconciliation.Epsilon) {
			add(entry.ID, KindSubEpsilon, "amount %s not above epsilon %s", entry.Amount, reconciliation.Epsilon)
		}
		if i == 0 {
			continue
		}
		prev := entries[i-1]
		if !entry.PreviousBalance.Equal(prev.NewBalance) {
			add(entry.ID, KindChainBreak, "previous balance %s, prior entry ended at %s", entry.PreviousBalance, prev.NewBalance)
		}
		if !entry.RecordedAt.After(prev.RecordedAt) {
			add(entry.ID, KindOutOfOrder, "recorded at %s, prior entry at %s", entry.RecordedAt.Format(time.RFC3339), prev.RecordedAt.Format(time.RFC3339))
		}
	}

	if len(entries) == 0 {
		return findings
	}
	last := entries[len(entries)-1]
	if !acct.CurrentBalance.Equal(last.NewBalance) {
		add(last.ID, KindBalanceDrift, "account balance %s, ledger ends at %s", acct.CurrentBalance, last.NewBalance)
	}
	if acct.LastTransactionAt == nil || !acct.LastTransactionAt.Equal(last.RecordedAt) {
		add(last.ID, KindStampDrift, "last transaction %s, ledger ends at %s", formatOptionalTime(acct.LastTransactionAt), last.RecordedAt.Format(time.RFC3339))
	}
	return findings
}

func formatOptionalTime(value *time.Time) string {
	if value == nil {
		return "never"
	}
	return value.UTC().Format(time.RFC3339)
}
