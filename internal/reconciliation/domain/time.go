package reconciliation

import "time"

// TimeKey is the persisted representation of a report day.
type TimeKey string

// NewDayTimeKey builds a TimeKey for the given report date.
func NewDayTimeKey(reportDate time.Time) (TimeKey, error) {
	if reportDate.IsZero() {
		return "", ErrInvalidReportDate
	}
	return TimeKey(DayStart(reportDate).Format("20060102")), nil
}

// String returns the raw string for storage.
func (k TimeKey) String() string { return string(k) }

// DayStart truncates a report date to midnight UTC of its calendar day.
func DayStart(reportDate time.Time) time.Time {
	y, m, d := reportDate.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last second of the report date's calendar day in UTC.
// Ledger entries and last_transaction_at are stamped with this instant.
func EndOfDay(reportDate time.Time) time.Time {
	return DayStart(reportDate).Add(24*time.Hour - time.Second)
}
