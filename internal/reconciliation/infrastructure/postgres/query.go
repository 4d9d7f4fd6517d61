package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	reconciliation "balance-recon/internal/reconciliation/domain"
)

// Query serves committed reads and account provisioning outside reconciliation batches.
type Query struct {
	db *sql.DB
}

// NewQuery constructs a query service.
func NewQuery(db *sql.DB) *Query {
	return &Query{db: db}
}

// CreateAccount inserts a new account.
func (q *Query) CreateAccount(ctx context.Context, account *reconciliation.Account) error {
	if q == nil || q.db == nil {
		return errors.New("reconciliation query: nil db")
	}
	if account == nil {
		return reconciliation.ErrNilAccount
	}
	if account.AccountKey == "" {
		return reconciliation.ErrEmptyAccountKey
	}

	query := fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES ($1, $2, $3, $4, $5, $6)`, accountsTable, accountColumns)

	_, err := q.db.ExecContext(ctx, query,
		account.ID,
		account.AccountKey,
		account.CurrentBalance,
		account.AvailableBalance,
		nullableTime(account.LastTransactionAt),
		account.ManagerID,
	)
	return err
}

// GetByKey returns the committed account.
func (q *Query) GetByKey(ctx context.Context, accountKey string) (*reconciliation.Account, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("reconciliation query: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE account_key = $1
LIMIT 1`, accountColumns, accountsTable)

	acct, err := scanAccount(q.db.QueryRowContext(ctx, query, accountKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reconciliation.ErrAccountNotFound
	}
	return acct, err
}

// ListAccounts returns every account ordered by account key.
func (q *Query) ListAccounts(ctx context.Context) ([]*reconciliation.Account, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("reconciliation query: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
ORDER BY account_key ASC`, accountColumns, accountsTable)

	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*reconciliation.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListByAccount returns ledger entries of an account in recorded order.
func (q *Query) ListByAccount(ctx context.Context, accountID string) ([]reconciliation.LedgerEntry, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("reconciliation query: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, account_id, amount, previous_balance, new_balance, recorded_at
FROM %s
WHERE account_id = $1
ORDER BY recorded_at ASC, created_at ASC`, ledgerTable)

	rows, err := q.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []reconciliation.LedgerEntry
	for rows.Next() {
		var entry reconciliation.LedgerEntry
		if err := rows.Scan(&entry.ID, &entry.AccountID, &entry.Amount, &entry.PreviousBalance, &entry.NewBalance, &entry.RecordedAt); err != nil {
			return nil, err
		}
		entry.RecordedAt = entry.RecordedAt.UTC()
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// FindByManagerAndDay loads a snapshot, returning nil when none exists.
func (q *Query) FindByManagerAndDay(ctx context.Context, managerID string, reportDate time.Time) (*reconciliation.ManagerDailySnapshot, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("reconciliation query: nil db")
	}
	if managerID == "" {
		return nil, reconciliation.ErrEmptyManagerID
	}
	if reportDate.IsZero() {
		return nil, reconciliation.ErrInvalidReportDate
	}

	query := fmt.Sprintf(`
SELECT manager_id, day, total_balance
FROM %s
WHERE manager_id = $1 AND day = $2
LIMIT 1`, snapshotsTable)

	snap, err := scanSnapshot(q.db.QueryRowContext(ctx, query, managerID, reconciliation.DayStart(reportDate)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return snap, err
}

// ListByDay returns every snapshot for the day ordered by manager id.
func (q *Query) ListByDay(ctx context.Context, reportDate time.Time) ([]*reconciliation.ManagerDailySnapshot, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("reconciliation query: nil db")
	}
	if reportDate.IsZero() {
		return nil, reconciliation.ErrInvalidReportDate
	}

	query := fmt.Sprintf(`
SELECT manager_id, day, total_balance
FROM %s
WHERE day = $1
ORDER BY manager_id ASC`, snapshotsTable)

	rows, err := q.db.QueryContext(ctx, query, reconciliation.DayStart(reportDate))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*reconciliation.ManagerDailySnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanSnapshot(row rowScanner) (*reconciliation.ManagerDailySnapshot, error) {
	var managerID string
	var day time.Time
	var total decimal.Decimal
	if err := row.Scan(&managerID, &day, &total); err != nil {
		return nil, err
	}
	snap, err := reconciliation.NewManagerDailySnapshot(managerID, day.UTC())
	if err != nil {
		return nil, err
	}
	snap.Recalculate(total)
	snap.MarkPersisted()
	return snap, nil
}

var (
	_ reconciliation.AccountReader  = (*Query)(nil)
	_ reconciliation.LedgerReader   = (*Query)(nil)
	_ reconciliation.SnapshotReader = (*Query)(nil)
)
