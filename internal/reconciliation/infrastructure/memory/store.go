package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	reconciliation "balance-recon/internal/reconciliation/domain"
)

// Store is an in-memory ledger with transactional batches.
// Only one transaction may be open at a time; Begin blocks until the
// previous batch commits or rolls back.
type Store struct {
	batch chan struct{}

	mu        sync.RWMutex
	accounts  map[string]*reconciliation.Account
	ledger    []reconciliation.LedgerEntry
	snapshots map[string]*reconciliation.ManagerDailySnapshot
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		batch:     make(chan struct{}, 1),
		accounts:  make(map[string]*reconciliation.Account),
		snapshots: make(map[string]*reconciliation.ManagerDailySnapshot),
	}
}

// SeedAccount inserts or replaces an account outside any batch.
func (s *Store) SeedAccount(account *reconciliation.Account) error {
	if account == nil {
		return reconciliation.ErrNilAccount
	}
	if account.AccountKey == "" {
		return reconciliation.ErrEmptyAccountKey
	}
	s.mu.Lock()
	s.accounts[account.AccountKey] = account.Clone()
	s.mu.Unlock()
	return nil
}

// Begin opens a transaction, waiting for any open batch to finish.
func (s *Store) Begin(ctx context.Context) (reconciliation.Tx, error) {
	select {
	case s.batch <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &tx{
		store:     s,
		accounts:  make(map[string]*reconciliation.Account),
		snapshots: make(map[string]*reconciliation.ManagerDailySnapshot),
	}, nil
}

// GetByKey returns the committed account.
func (s *Store) GetByKey(ctx context.Context, accountKey string) (*reconciliation.Account, error) {
	_ = ctx
	s.mu.RLock()
	acct := s.accounts[accountKey]
	s.mu.RUnlock()
	if acct == nil {
		return nil, reconciliation.ErrAccountNotFound
	}
	return acct.Clone(), nil
}

// ListAccounts returns committed accounts ordered by account key.
func (s *Store) ListAccounts(ctx context.Context) ([]*reconciliation.Account, error) {
	_ = ctx
	s.mu.RLock()
	result := make([]*reconciliation.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		result = append(result, acct.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].AccountKey < result[j].AccountKey })
	return result, nil
}

// ListByAccount returns committed ledger entries for an account in insert order.
func (s *Store) ListByAccount(ctx context.Context, accountID string) ([]reconciliation.LedgerEntry, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []reconciliation.LedgerEntry
	for _, entry := range s.ledger {
		if entry.AccountID == accountID {
			result = append(result, entry)
		}
	}
	return result, nil
}

// LedgerEntries returns a copy of every committed ledger entry.
func (s *Store) LedgerEntries() []reconciliation.LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make([]reconciliation.LedgerEntry, len(s.ledger))
	copy(copied, s.ledger)
	return copied
}

// FindByManagerAndDay loads a committed snapshot.
func (s *Store) FindByManagerAndDay(ctx context.Context, managerID string, reportDate time.Time) (*reconciliation.ManagerDailySnapshot, error) {
	_ = ctx
	id, err := reconciliation.BuildSnapshotID(managerID, reportDate)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	snap := s.snapshots[string(id)]
	s.mu.RUnlock()
	if snap == nil {
		return nil, nil
	}
	return snap.Clone(), nil
}

// ListByDay returns committed snapshots for a day ordered by manager id.
func (s *Store) ListByDay(ctx context.Context, reportDate time.Time) ([]*reconciliation.ManagerDailySnapshot, error) {
	_ = ctx
	key, err := reconciliation.NewDayTimeKey(reportDate)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	var result []*reconciliation.ManagerDailySnapshot
	for _, snap := range s.snapshots {
		if snap.TimeKey() == key.String() {
			result = append(result, snap.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].ManagerID() < result[j].ManagerID() })
	return result, nil
}

var errTxClosed = errors.New("memory store: transaction closed")

// tx stages writes until Commit.
type tx struct {
	store  *Store
	closed bool

	accounts  map[string]*reconciliation.Account
	ledger    []reconciliation.LedgerEntry
	snapshots map[string]*reconciliation.ManagerDailySnapshot
}

func (t *tx) Accounts() reconciliation.AccountRepository { return txAccounts{t} }
func (t *tx) Ledger() reconciliation.LedgerRepository { return txLedger{t} }
func (t *tx) Snapshots() reconciliation.SnapshotRepository { return txSnapshots{t} }

func (t *tx) Commit(ctx context.Context) error {
	_ = ctx
	if t.closed {
		return errTxClosed
	}
	t.closed = true

	s := t.store
	s.mu.Lock()
	for key, acct := range t.accounts {
		s.accounts[key] = acct
	}
	s.ledger = append(s.ledger, t.ledger...)
	for id, snap := range t.snapshots {
		s.snapshots[id] = snap
	}
	s.mu.Unlock()

	<-s.batch
	return nil
}

// Rollback discards staged writes. It is a no-op on a closed transaction.
func (t *tx) Rollback(ctx context.Context) error {
	_ = ctx
	if t.closed {
		return nil
	}
	t.closed = true
	t.accounts = nil
	t.ledger = nil
	t.snapshots = nil
	<-t.store.batch
	return nil
}

type txAccounts struct{ t *tx }

// ResolveForUpdate returns the staged account, loading it from committed state on first use.
func (r txAccounts) ResolveForUpdate(ctx context.Context, accountKey string) (*reconciliation.Account, error) {
	_ = ctx
	if r.t.closed {
		return nil, errTxClosed
	}
	if accountKey == "" {
		return nil, reconciliation.ErrEmptyAccountKey
	}
	if staged, ok := r.t.accounts[accountKey]; ok {
		return staged.Clone(), nil
	}

	r.t.store.mu.RLock()
	acct := r.t.store.accounts[accountKey]
	r.t.store.mu.RUnlock()
	if acct == nil {
		return nil, reconciliation.ErrAccountNotFound
	}
	return acct.Clone(), nil
}

func (r txAccounts) Save(ctx context.Context, account *reconciliation.Account) error {
	_ = ctx
	if r.t.closed {
		return errTxClosed
	}
	if account == nil {
		return reconciliation.ErrNilAccount
	}
	if account.AccountKey == "" {
		return reconciliation.ErrEmptyAccountKey
	}
	r.t.accounts[account.AccountKey] = account.Clone()
	return nil
}

type txLedger struct{ t *tx }

func (r txLedger) Insert(ctx context.Context, entry reconciliation.LedgerEntry) error {
	_ = ctx
	if r.t.closed {
		return errTxClosed
	}
	r.t.ledger = append(r.t.ledger, entry)
	return nil
}

type txSnapshots struct{ t *tx }

// Upsert stages the snapshot, replacing any prior value for the same manager and day.
func (r txSnapshots) Upsert(ctx context.Context, snapshot *reconciliation.ManagerDailySnapshot) error {
	_ = ctx
	if r.t.closed {
		return errTxClosed
	}
	if snapshot == nil {
		return reconciliation.ErrNilSnapshot
	}
	id := snapshot.ID()
	if id == "" {
		return reconciliation.ErrEmptyManagerID
	}
	r.t.snapshots[string(id)] = snapshot.Clone()
	snapshot.MarkPersisted()
	return nil
}

var (
	_ reconciliation.UnitOfWork     = (*Store)(nil)
	_ reconciliation.AccountReader  = (*Store)(nil)
	_ reconciliation.LedgerReader   = (*Store)(nil)
	_ reconciliation.SnapshotReader = (*Store)(nil)
)
