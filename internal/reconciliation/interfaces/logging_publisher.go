package interfaces

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"balance-recon/internal/reconciliation/application"
)

// LoggingPublisher logs reconciliation completed events.
type LoggingPublisher struct {
	logger *zap.Logger
}

// NewLoggingPublisher constructs a logging publisher.
func NewLoggingPublisher(logger *zap.Logger) *LoggingPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingPublisher{logger: logger}
}

// PublishReconciliationCompleted logs the event.
func (p *LoggingPublisher) PublishReconciliationCompleted(ctx context.Context, event application.ReconciliationCompleted) error {
	_ = ctx
	if p == nil {
		return errors.New("reconciliation publisher: nil publisher")
	}
	p.logger.Info("reconciliation completed",
		zap.String("run_id", event.RunID),
		zap.String("report_date", event.ReportDate),
		zap.Int("applied", event.Applied),
		zap.Int("skipped", event.Skipped),
		zap.Int("unresolved", event.Unresolved),
		zap.Strings("managers", event.Managers),
		zap.Strings("snapshot_failures", event.SnapshotFail),
	)
	return nil
}
