package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	reconciliation "balance-recon/internal/reconciliation/domain"
)

const snapshotSavepoint = "manager_snapshot_upsert"

// SnapshotRepository upserts manager daily snapshots inside a transaction.
type SnapshotRepository struct {
	tx *sql.Tx
}

// Upsert replaces the snapshot for (manager, day). The statement runs under a
// savepoint so a failure leaves the enclosing transaction usable.
func (r *SnapshotRepository) Upsert(ctx context.Context, snapshot *reconciliation.ManagerDailySnapshot) error {
	if r == nil || r.tx == nil {
		return errors.New("snapshot repo: nil tx")
	}
	if snapshot == nil {
		return reconciliation.ErrNilSnapshot
	}

	if _, err := r.tx.ExecContext(ctx, "SAVEPOINT "+snapshotSavepoint); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	manager_id,
	day,
	total_balance,
	version
) VALUES (
	$1, $2, $3, 1
)
ON CONFLICT (manager_id, day)
DO UPDATE SET
	total_balance = EXCLUDED.total_balance,
	version = %s.version + 1,
	updated_at = NOW()`, snapshotsTable, snapshotsTable)

	_, err := r.tx.ExecContext(ctx, query, snapshot.ManagerID(), snapshot.Day(), snapshot.TotalBalance())
	if err != nil {
		if _, rbErr := r.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+snapshotSavepoint); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}

	if _, err := r.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+snapshotSavepoint); err != nil {
		return err
	}
	snapshot.MarkPersisted()
	return nil
}
