package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	reconciliation "balance-recon/internal/reconciliation/domain"
)

// LedgerRepository appends ledger entries inside a transaction.
type LedgerRepository struct {
	tx *sql.Tx
}

// Insert appends one entry.
func (r *LedgerRepository) Insert(ctx context.Context, entry reconciliation.LedgerEntry) error {
	if r == nil || r.tx == nil {
		return errors.New("ledger repo: nil tx")
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	account_id,
	amount,
	previous_balance,
	new_balance,
	recorded_at
) VALUES (
	$1, $2, $3, $4, $5, $6
)`, ledgerTable)

	_, err := r.tx.ExecContext(ctx, query,
		entry.ID,
		entry.AccountID,
		entry.Amount,
		entry.PreviousBalance,
		entry.NewBalance,
		entry.RecordedAt.UTC(),
	)
	return err
}
