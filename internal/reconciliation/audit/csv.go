package audit

import (
	"encoding/csv"
	"io"
	"time"

	reconciliation "balance-recon/internal/reconciliation/domain"
)

// WriteAccountsCSV writes one row per account.
func WriteAccountsCSV(w io.Writer, accounts []*reconciliation.Account) error {
	rows := make([][]string, 0, len(accounts))
	for _, acct := range accounts {
		rows = append(rows, []string{
			acct.ID,
			acct.AccountKey,
			acct.ManagerID,
			acct.CurrentBalance.String(),
			acct.AvailableBalance.String(),
			formatCSVTime(acct.LastTransactionAt),
		})
	}
	return writeCSV(w, []string{"id", "account_key", "manager_id", "current_balance", "available_balance", "last_transaction_at"}, rows)
}

// WriteLedgerCSV writes one row per ledger entry.
func WriteLedgerCSV(w io.Writer, entries []reconciliation.LedgerEntry) error {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		recordedAt := entry.RecordedAt
		rows = append(rows, []string{
			entry.ID,
			entry.AccountID,
			entry.Amount.String(),
			entry.PreviousBalance.String(),
			entry.NewBalance.String(),
			formatCSVTime(&recordedAt),
		})
	}
	return writeCSV(w, []string{"id", "account_id", "amount", "previous_balance", "new_balance", "recorded_at"}, rows)
}

// WriteSnapshotsCSV writes one row per manager snapshot.
func WriteSnapshotsCSV(w io.Writer, snapshots []*reconciliation.ManagerDailySnapshot) error {
	rows := make([][]string, 0, len(snapshots))
	for _, snap := range snapshots {
		rows = append(rows, []string{
			snap.ManagerID(),
			snap.Day().Format("2006-01-02"),
			snap.TimeKey(),
			snap.TotalBalance().String(),
		})
	}
	return writeCSV(w, []string{"manager_id", "day", "time_key", "total_balance"}, rows)
}

// WriteFindingsCSV writes one row per finding.
func WriteFindingsCSV(w io.Writer, findings []Finding) error {
	rows := make([][]string, 0, len(findings))
	for _, f := range findings {
		rows = append(rows, []string{f.AccountKey, f.EntryID, f.Kind, f.Detail})
	}
	return writeCSV(w, []string{"account_key", "entry_id", "kind", "detail"}, rows)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	return writer.Error()
}

func formatCSVTime(value *time.Time) string {
	if value == nil || value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
