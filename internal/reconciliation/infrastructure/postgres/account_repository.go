package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	reconciliation "balance-recon/internal/reconciliation/domain"
)

const accountColumns = `id, account_key, current_balance, available_balance, last_transaction_at, manager_id`

// AccountRepository reads and writes accounts inside a transaction.
type AccountRepository struct {
	tx *sql.Tx
}

// ResolveForUpdate loads the account by key and locks its row until the
// transaction ends, so concurrent batches cannot lose each other's updates.
func (r *AccountRepository) ResolveForUpdate(ctx context.Context, accountKey string) (*reconciliation.Account, error) {
	if r == nil || r.tx == nil {
		return nil, errors.New("account repo: nil tx")
	}
	if accountKey == "" {
		return nil, reconciliation.ErrEmptyAccountKey
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE account_key = $1
FOR UPDATE`, accountColumns, accountsTable)

	acct, err := scanAccount(r.tx.QueryRowContext(ctx, query, accountKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reconciliation.ErrAccountNotFound
	}
	return acct, err
}

// Save writes the balances and last transaction time of the account.
func (r *AccountRepository) Save(ctx context.Context, account *reconciliation.Account) error {
	if r == nil || r.tx == nil {
		return errors.New("account repo: nil tx")
	}
	if account == nil {
		return reconciliation.ErrNilAccount
	}

	query := fmt.Sprintf(`
UPDATE %s
SET current_balance = $1,
	available_balance = $2,
	last_transaction_at = $3,
	updated_at = NOW()
WHERE id = $4`, accountsTable)

	res, err := r.tx.ExecContext(ctx, query, account.CurrentBalance, account.AvailableBalance, nullableTime(account.LastTransactionAt), account.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return reconciliation.ErrAccountNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*reconciliation.Account, error) {
	var acct reconciliation.Account
	var last sql.NullTime
	if err := row.Scan(
		&acct.ID,
		&acct.AccountKey,
		&acct.CurrentBalance,
		&acct.AvailableBalance,
		&last,
		&acct.ManagerID,
	); err != nil {
		return nil, err
	}
	if last.Valid {
		at := last.Time.UTC()
		acct.LastTransactionAt = &at
	}
	return &acct, nil
}

func nullableTime(at *time.Time) any {
	if at == nil {
		return nil
	}
	return at.UTC()
}
