package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"qms/guest-queue-service/internal/models"
)

func TestComputeTimingsWithServingStart(t *testing.T) {
	created := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	start := created.Add(5 * time.Minute)
	ticket := models.Ticket{CreatedAt: created, ServingStartTime: &start}

	timings := ComputeTimings(ticket, created.Add(12*time.Minute))

	assert.InDelta(t, 5, timings.WaitingMinutes, 1e-9)
	assert.InDelta(t, 7, timings.ServingMinutes, 1e-9)
	assert.InDelta(t, 12, timings.TotalMinutes, 1e-9)
	assert.Equal(t, TimingInfo{
		WaitingTimeMinutes: "5.00",
		ServingTimeMinutes: "7.00",
		TotalTimeMinutes:   "12.00",
	}, timings.Info())
}

func TestComputeTimingsNeverServed(t *testing.T) {
	created := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	ticket := models.Ticket{CreatedAt: created}

	timings := ComputeTimings(ticket, created.Add(90*time.Second))

	assert.InDelta(t, 1.5, timings.WaitingMinutes, 1e-9)
	assert.Zero(t, timings.ServingMinutes)
	assert.InDelta(t, 1.5, timings.TotalMinutes, 1e-9)
	assert.Equal(t, "0.00", FormatMinutes(timings.ServingMinutes))
}

func TestComputeTimingsClampsNegativeSpans(t *testing.T) {
	created := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	start := created.Add(-time.Minute)
	ticket := models.Ticket{CreatedAt: created, ServingStartTime: &start}

	timings := ComputeTimings(ticket, created.Add(-2*time.Minute))

	assert.Zero(t, timings.WaitingMinutes)
	assert.Zero(t, timings.ServingMinutes)
	assert.Zero(t, timings.TotalMinutes)
}
