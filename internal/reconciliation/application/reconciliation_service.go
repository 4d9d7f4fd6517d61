package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"balance-recon/internal/observability/metrics"
	reconciliation "balance-recon/internal/reconciliation/domain"
)

const dateLayout = "2006-01-02"

// FailureMessage is the only message returned for a rolled back batch.
const FailureMessage = "balance reconciliation failed"

// Result summarises one reconciliation batch.
type Result struct {
	RunID            string `json:"run_id"`
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	AppliedCount     int    `json:"applied_count"`
	SkippedCount     int    `json:"skipped_count"`
	UnresolvedCount  int    `json:"unresolved_count"`
	StaleCount       int    `json:"stale_count"`
	UnchangedCount   int    `json:"unchanged_count"`
	SnapshotCount    int    `json:"snapshot_count"`
	SnapshotFailures int    `json:"snapshot_failures"`
}

// ReconciliationService reconciles batches of balance observations against
// the ledger inside a single storage transaction.
type ReconciliationService struct {
	uow       reconciliation.UnitOfWork
	writer    LedgerWriter
	publisher CompletionPublisher
	clock     Clock
	logger    *zap.Logger
	timeout   time.Duration
}

// ServiceOption configures the service.
type ServiceOption func(*ReconciliationService)

// WithPublisher sets the completion publisher.
func WithPublisher(publisher CompletionPublisher) ServiceOption {
	return func(s *ReconciliationService) {
		s.publisher = publisher
	}
}

// WithClock overrides the clock used for event timestamps.
func WithClock(clock Clock) ServiceOption {
	return func(s *ReconciliationService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *ReconciliationService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTimeout bounds a whole batch. Zero disables the bound.
func WithTimeout(timeout time.Duration) ServiceOption {
	return func(s *ReconciliationService) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// NewReconciliationService constructs the service.
func NewReconciliationService(uow reconciliation.UnitOfWork, opts ...ServiceOption) (*ReconciliationService, error) {
	if uow == nil {
		return nil, errors.New("reconciliation service: nil unit of work")
	}
	s := &ReconciliationService{
		uow:    uow,
		clock:  SystemClock{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Reconcile applies the batch for reportDate. On success every ledger and
// snapshot write is committed. On any unexpected failure the whole batch is
// rolled back, the cause is logged, and ErrReconciliationFailed is returned
// with a generic message.
func (s *ReconciliationService) Reconcile(ctx context.Context, batch []reconciliation.BalanceObservation, reportDate time.Time) (Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := s.logger.With(
		zap.String("run_id", runID),
		zap.String("report_date", reportDate.Format(dateLayout)),
		zap.Int("rows", len(batch)),
	)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, report, err := s.run(ctx, logger, batch, reportDate)
	if err != nil {
		logger.Error("reconciliation rolled back", zap.Error(err))
		metrics.ObserveBatch(metrics.ResultError, len(batch), time.Since(start))
		return Result{RunID: runID, Success: false, Message: FailureMessage}, reconciliation.ErrReconciliationFailed
	}

	result.RunID = runID
	metrics.ObserveBatch(metrics.ResultSuccess, len(batch), time.Since(start))
	metrics.AddRowOutcomes(result.AppliedCount, result.StaleCount, result.UnchangedCount, result.UnresolvedCount)
	metrics.AddSnapshots(result.SnapshotCount, result.SnapshotFailures)
	logger.Info("reconciliation committed",
		zap.Int("applied", result.AppliedCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Int("unresolved", result.UnresolvedCount),
		zap.Int("snapshots", result.SnapshotCount),
		zap.Int("snapshot_failures", result.SnapshotFailures),
	)

	s.publishCompleted(ctx, logger, result, report, reportDate)
	return result, nil
}

func (s *ReconciliationService) run(ctx context.Context, logger *zap.Logger, batch []reconciliation.BalanceObservation, reportDate time.Time) (Result, FlushReport, error) {
	var result Result
	if reportDate.IsZero() {
		return result, FlushReport{}, reconciliation.ErrInvalidReportDate
	}

	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return result, FlushReport{}, fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
			logger.Error("rollback failed", zap.Error(err))
		}
	}()

	aggregator := NewSnapshotAggregator(logger)
	for i, obs := range batch {
		obs = obs.Normalized()
		if err := ctx.Err(); err != nil {
			return result, FlushReport{}, fmt.Errorf("row %d: %w", i, err)
		}

		account, err := tx.Accounts().ResolveForUpdate(ctx, obs.AccountKey)
		if errors.Is(err, reconciliation.ErrAccountNotFound) || errors.Is(err, reconciliation.ErrEmptyAccountKey) {
			logger.Warn("account not resolved, row skipped", zap.Int("row", i), zap.String("account_key", obs.AccountKey))
			result.UnresolvedCount++
			continue
		}
		if err != nil {
			return result, FlushReport{}, fmt.Errorf("resolve account %s: %w", obs.AccountKey, err)
		}

		// Snapshots reflect what was reported, so stale rows still count.
		if err := aggregator.Accumulate(account.ManagerID, obs.CurrentBalance); err != nil {
			logger.Warn("account has no manager, excluded from snapshot", zap.String("account_key", obs.AccountKey))
		}

		lastTransactionAt := account.LastTransactionAt
		outcome, err := s.writer.Apply(ctx, tx, account, obs, reportDate)
		if err != nil {
			return result, FlushReport{}, err
		}
		switch outcome {
		case OutcomeApplied:
			result.AppliedCount++
		case OutcomeSkippedStale:
			logger.Info("report date not newer than last update, row skipped",
				zap.String("account_key", obs.AccountKey),
				zap.Timep("last_transaction_at", lastTransactionAt),
			)
			result.StaleCount++
		case OutcomeSkippedUnchanged:
			result.UnchangedCount++
		}
	}

	report := aggregator.Flush(ctx, tx.Snapshots(), reportDate)
	if err := ctx.Err(); err != nil {
		return result, report, fmt.Errorf("flush snapshots: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return result, report, fmt.Errorf("commit: %w", err)
	}
	committed = true

	result.Success = true
	result.SkippedCount = result.UnresolvedCount + result.StaleCount + result.UnchangedCount
	result.SnapshotCount = len(report.Written)
	result.SnapshotFailures = len(report.Failed)
	result.Message = fmt.Sprintf("reconciled %d observations for %s: %d applied, %d skipped",
		len(batch), reportDate.Format(dateLayout), result.AppliedCount, result.SkippedCount)
	return result, report, nil
}

func (s *ReconciliationService) publishCompleted(ctx context.Context, logger *zap.Logger, result Result, report FlushReport, reportDate time.Time) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishReconciliationCompleted(context.WithoutCancel(ctx), ReconciliationCompleted{
		RunID:        result.RunID,
		ReportDate:   reportDate.Format(dateLayout),
		Applied:      result.AppliedCount,
		Skipped:      result.SkippedCount,
		Unresolved:   result.UnresolvedCount,
		Managers:     report.Written,
		SnapshotFail: report.Failed,
		OccurredAt:   s.clock.Now(),
	})
	if err != nil {
		logger.Warn("publish reconciliation completed failed", zap.Error(err))
		metrics.IncPublish(metrics.ResultError)
		return
	}
	metrics.IncPublish(metrics.ResultSuccess)
}
