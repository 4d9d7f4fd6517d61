package reconciliation

import (
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotID is the identity of a manager daily snapshot.
type SnapshotID string

// ManagerDailySnapshot is the as-reported total balance of a manager's
// portfolio for one report day. Identity: managerID + day time key.
type ManagerDailySnapshot struct {
	id        SnapshotID
	managerID string
	day       time.Time
	timeKey   TimeKey

	totalBalance decimal.Decimal

	isNew bool
}

// BuildSnapshotID builds the snapshot identity from manager and report date.
func BuildSnapshotID(managerID string, reportDate time.Time) (SnapshotID, error) {
	if managerID == "" {
		return "", ErrEmptyManagerID
	}
	key, err := NewDayTimeKey(reportDate)
	if err != nil {
		return "", err
	}
	return SnapshotID(managerID + "|" + key.String()), nil
}

// NewManagerDailySnapshot creates a snapshot for the manager and report date.
func NewManagerDailySnapshot(managerID string, reportDate time.Time) (*ManagerDailySnapshot, error) {
	id, err := BuildSnapshotID(managerID, reportDate)
	if err != nil {
		return nil, err
	}
	key, err := NewDayTimeKey(reportDate)
	if err != nil {
		return nil, err
	}

	return &ManagerDailySnapshot{
		id:           id,
		managerID:    managerID,
		day:          DayStart(reportDate),
		timeKey:      key,
		totalBalance: decimal.Zero,
		isNew:        true,
	}, nil
}

// Recalculate overwrites the total balance.
func (s *ManagerDailySnapshot) Recalculate(total decimal.Decimal) {
	s.totalBalance = total
}

// ID returns snapshot identity.
func (s *ManagerDailySnapshot) ID() SnapshotID { return s.id }

// ManagerID returns the manager id.
func (s *ManagerDailySnapshot) ManagerID() string { return s.managerID }

// Day returns the report day at midnight UTC.
func (s *ManagerDailySnapshot) Day() time.Time { return s.day }

// TimeKey returns the day time key.
func (s *ManagerDailySnapshot) TimeKey() string { return s.timeKey.String() }

// TotalBalance returns the reported total.
func (s *ManagerDailySnapshot) TotalBalance() decimal.Decimal { return s.totalBalance }

// IsNew reports whether the snapshot was freshly created.
func (s *ManagerDailySnapshot) IsNew() bool { return s.isNew }

// MarkPersisted marks the snapshot as persisted.
func (s *ManagerDailySnapshot) MarkPersisted() {
	if s != nil {
		s.isNew = false
	}
}

// Clone returns a detached copy marked as persisted.
func (s *ManagerDailySnapshot) Clone() *ManagerDailySnapshot {
	if s == nil {
		return nil
	}
	copy := *s
	copy.isNew = false
	return &copy
}
