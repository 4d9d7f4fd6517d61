package reconciliation

import (
	"context"
	"time"
)

// AccountRepository resolves and saves accounts inside a transaction.
// ResolveForUpdate locks the account row until the transaction ends and
// returns ErrAccountNotFound when the key is unknown.
type AccountRepository interface {
	ResolveForUpdate(ctx context.Context, accountKey string) (*Account, error)
	Save(ctx context.Context, account *Account) error
}

// LedgerRepository appends ledger entries.
type LedgerRepository interface {
	Insert(ctx context.Context, entry LedgerEntry) error
}

// SnapshotRepository upserts manager daily snapshots.
type SnapshotRepository interface {
	Upsert(ctx context.Context, snapshot *ManagerDailySnapshot) error
}

// Tx is one storage transaction spanning a reconciliation batch.
type Tx interface {
	Accounts() AccountRepository
	Ledger() LedgerRepository
	Snapshots() SnapshotRepository
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UnitOfWork begins storage transactions.
type UnitOfWork interface {
	Begin(ctx context.Context) (Tx, error)
}

// AccountReader reads committed account state.
type AccountReader interface {
	GetByKey(ctx context.Context, accountKey string) (*Account, error)
}

// LedgerReader reads committed ledger entries.
type LedgerReader interface {
	ListByAccount(ctx context.Context, accountID string) ([]LedgerEntry, error)
}

// SnapshotReader reads committed manager snapshots.
type SnapshotReader interface {
	FindByManagerAndDay(ctx context.Context, managerID string, reportDate time.Time) (*ManagerDailySnapshot, error)
	ListByDay(ctx context.Context, reportDate time.Time) ([]*ManagerDailySnapshot, error)
}
