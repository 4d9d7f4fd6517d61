package postgres

import (
	"context"
	"database/sql"
	"errors"

	reconciliation "balance-recon/internal/reconciliation/domain"
)

const (
	accountsTable  = "accounts"
	ledgerTable    = "ledger_entries"
	snapshotsTable = "manager_daily_snapshots"
)

// UnitOfWork opens Postgres transactions for reconciliation batches.
type UnitOfWork struct {
	db        *sql.DB
	isolation sql.IsolationLevel
}

// UnitOfWorkOption configures the unit of work.
type UnitOfWorkOption func(*UnitOfWork)

// WithIsolation overrides the transaction isolation level.
// Levels weaker than read committed are ignored.
func WithIsolation(level sql.IsolationLevel) UnitOfWorkOption {
	return func(u *UnitOfWork) {
		if level >= sql.LevelReadCommitted {
			u.isolation = level
		}
	}
}

// NewUnitOfWork constructs a unit of work with read committed isolation.
func NewUnitOfWork(db *sql.DB, opts ...UnitOfWorkOption) *UnitOfWork {
	u := &UnitOfWork{db: db, isolation: sql.LevelReadCommitted}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Begin starts a transaction.
func (u *UnitOfWork) Begin(ctx context.Context) (reconciliation.Tx, error) {
	if u == nil || u.db == nil {
		return nil, errors.New("reconciliation unit of work: nil db")
	}
	sqlTx, err := u.db.BeginTx(ctx, &sql.TxOptions{Isolation: u.isolation})
	if err != nil {
		return nil, err
	}
	return &Tx{tx: sqlTx}, nil
}

// Tx wraps a sql.Tx.
type Tx struct {
	tx *sql.Tx
}

// Accounts returns the in-transaction account repository.
func (t *Tx) Accounts() reconciliation.AccountRepository { return &AccountRepository{tx: t.tx} }

// Ledger returns the in-transaction ledger repository.
func (t *Tx) Ledger() reconciliation.LedgerRepository { return &LedgerRepository{tx: t.tx} }

// Snapshots returns the in-transaction snapshot repository.
func (t *Tx) Snapshots() reconciliation.SnapshotRepository { return &SnapshotRepository{tx: t.tx} }

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	_ = ctx
	return t.tx.Commit()
}

// Rollback aborts the transaction. Rolling back a finished transaction is not an error.
func (t *Tx) Rollback(ctx context.Context) error {
	_ = ctx
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

var _ reconciliation.UnitOfWork = (*UnitOfWork)(nil)
