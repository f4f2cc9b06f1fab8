package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestFormatAverage(t *testing.T) {
	assert.Equal(t, "0.0", FormatAverage(nil))
	assert.Equal(t, "4.3", FormatAverage(floatPtr(4.26)))
	assert.Equal(t, "12.0", FormatAverage(floatPtr(12)))
}

func TestEstimatedRemaining(t *testing.T) {
	assert.InDelta(t, 6, EstimatedRemaining(floatPtr(10), 4), 1e-9)
	assert.Zero(t, EstimatedRemaining(floatPtr(3), 4))
	assert.Zero(t, EstimatedRemaining(nil, 4))
}

func TestServingSnapshot(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
	start := now.Add(-4 * time.Minute)

	snapshot := ServingSnapshot("AD4", "guest-4", &start, floatPtr(10), now)
	require.NotNil(t, snapshot)
	assert.Equal(t, "AD4", snapshot.QueueNumber)
	assert.Equal(t, "4.0", snapshot.ElapsedMinutes)
	assert.Equal(t, "6.0", snapshot.EstimatedRemainingMinutes)
}

func TestApplyAggregates(t *testing.T) {
	var stats Statistics
	stats.ApplyAggregates(
		Aggregate{Count: 2, AvgServing: floatPtr(7.5), AvgWaiting: floatPtr(3), AvgTotal: floatPtr(10.5)},
		Aggregate{},
	)

	assert.Equal(t, 2, stats.TotalServed)
	assert.Equal(t, "7.5", stats.AvgServingTime)
	assert.Equal(t, "3.0", stats.AvgWaitingTime)
	assert.Equal(t, "10.5", stats.AvgTotalTime)
	assert.Equal(t, 0, stats.WeeklyTotalServed)
	assert.Equal(t, "0.0", stats.WeeklyAvgServingTime)
}
