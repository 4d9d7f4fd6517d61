package application

import (
	"context"
	"time"
)

// ReconciliationCompleted is emitted after a batch commits.
type ReconciliationCompleted struct {
	RunID        string    `json:"run_id"`
	ReportDate   string    `json:"report_date"`
	Applied      int       `json:"applied"`
	Skipped      int       `json:"skipped"`
	Unresolved   int       `json:"unresolved"`
	Managers     []string  `json:"managers"`
	SnapshotFail []string  `json:"snapshot_failures,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// CompletionPublisher emits reconciliation completed events.
type CompletionPublisher interface {
	PublishReconciliationCompleted(ctx context.Context, event ReconciliationCompleted) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
