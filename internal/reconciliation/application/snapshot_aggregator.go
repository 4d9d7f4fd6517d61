package application

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	reconciliation "balance-recon/internal/reconciliation/domain"
)

// ManagerTotal is one manager's accumulated as-reported balance.
type ManagerTotal struct {
	ManagerID string
	Total     decimal.Decimal
}

// SnapshotAggregator sums reported current balances per manager for a single
// batch. Managers keep first-seen order so flushes are deterministic.
type SnapshotAggregator struct {
	order  []string
	totals map[string]decimal.Decimal
	logger *zap.Logger
}

// NewSnapshotAggregator constructs an empty aggregator.
func NewSnapshotAggregator(logger *zap.Logger) *SnapshotAggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotAggregator{
		totals: make(map[string]decimal.Decimal),
		logger: logger,
	}
}

// Accumulate adds amount to the manager's running total.
func (a *SnapshotAggregator) Accumulate(managerID string, amount decimal.Decimal) error {
	if managerID == "" {
		return reconciliation.ErrEmptyManagerID
	}
	current, ok := a.totals[managerID]
	if !ok {
		a.order = append(a.order, managerID)
		current = decimal.Zero
	}
	a.totals[managerID] = current.Add(amount)
	return nil
}

// Totals returns the accumulated totals in first-seen order.
func (a *SnapshotAggregator) Totals() []ManagerTotal {
	result := make([]ManagerTotal, 0, len(a.order))
	for _, managerID := range a.order {
		result = append(result, ManagerTotal{ManagerID: managerID, Total: a.totals[managerID]})
	}
	return result
}

// FlushReport summarises a flush.
type FlushReport struct {
	Written []string
	Failed  []string
}

// Flush upserts one snapshot per accumulated manager for the report date,
// replacing any existing value. A failed upsert is logged and recorded in the
// report; the remaining managers are still written.
func (a *SnapshotAggregator) Flush(ctx context.Context, repo reconciliation.SnapshotRepository, reportDate time.Time) FlushReport {
	var report FlushReport
	for _, total := range a.Totals() {
		if err := upsertSnapshot(ctx, repo, total, reportDate); err != nil {
			a.logger.Error("manager snapshot upsert failed",
				zap.String("manager_id", total.ManagerID),
				zap.String("report_date", reportDate.Format(dateLayout)),
				zap.String("total_balance", total.Total.String()),
				zap.Error(err),
			)
			report.Failed = append(report.Failed, total.ManagerID)
			continue
		}
		report.Written = append(report.Written, total.ManagerID)
	}
	return report
}

func upsertSnapshot(ctx context.Context, repo reconciliation.SnapshotRepository, total ManagerTotal, reportDate time.Time) error {
	snap, err := reconciliation.NewManagerDailySnapshot(total.ManagerID, reportDate)
	if err != nil {
		return err
	}
	snap.Recalculate(total.Total)
	return repo.Upsert(ctx, snap)
}
