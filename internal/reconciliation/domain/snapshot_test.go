package reconciliation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerDailySnapshot(t *testing.T) {
	reportDate := time.Date(2024, time.February, 1, 15, 0, 0, 0, time.UTC)

	snap, err := NewManagerDailySnapshot("manager-1", reportDate)
	require.NoError(t, err)
	assert.Equal(t, SnapshotID("manager-1|20240201"), snap.ID())
	assert.Equal(t, DayStart(reportDate), snap.Day())
	assert.True(t, snap.IsNew())
	assert.True(t, snap.TotalBalance().IsZero())

	snap.Recalculate(decimal.RequireFromString("1000.00"))
	snap.Recalculate(decimal.RequireFromString("700.00"))
	assert.True(t, snap.TotalBalance().Equal(decimal.RequireFromString("700.00")), "recalculate overwrites")

	clone := snap.Clone()
	assert.False(t, clone.IsNew())
	assert.True(t, snap.IsNew())

	_, err = NewManagerDailySnapshot("", reportDate)
	assert.ErrorIs(t, err, ErrEmptyManagerID)
	_, err = NewManagerDailySnapshot("manager-1", time.Time{})
	assert.ErrorIs(t, err, ErrInvalidReportDate)
}
