package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qms/guest-queue-service/internal/models"
)

func sampleTicket(created time.Time) models.Ticket {
	start := created.Add(5 * time.Minute)
	return models.Ticket{
		TicketID:         "9b1f0c1e-0000-4000-8000-000000000001",
		GuestUserID:      "guest-1",
		Department:       "Admissions",
		QueueNumber:      "AD3",
		Status:           models.StatusAccepted,
		CreatedAt:        created,
		ServingStartTime: &start,
	}
}

func TestBuildArchiveServed(t *testing.T) {
	cal := NewCalendar(time.UTC)
	created := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	now := created.Add(20 * time.Minute)

	archived, timings, err := BuildArchive(sampleTicket(created), models.ExitServed, ArchiveMeta{}, now, cal)
	require.NoError(t, err)

	assert.NotEmpty(t, archived.ArchiveID)
	assert.Equal(t, "9b1f0c1e-0000-4000-8000-000000000001", archived.OriginalQueueID)
	assert.Equal(t, "AD3", archived.OriginalQueueNumber)
	assert.Equal(t, models.ArchiveCompleted, archived.Status)
	assert.Equal(t, models.ExitServed, archived.ExitReason)
	assert.Equal(t, "2024-03-10", archived.ArchiveDate)
	assert.Equal(t, UniqueArchiveID("AD3", now), archived.UniqueArchiveID)
	require.NotNil(t, archived.ServingEndTime)
	assert.True(t, archived.ServingEndTime.Equal(now))
	assert.Equal(t, "5.00", *archived.WaitingTimeMinutes)
	assert.Equal(t, "15.00", *archived.ServingTimeMinutes)
	assert.Equal(t, "20.00", *archived.TotalTimeMinutes)
	assert.InDelta(t, 15, timings.ServingMinutes, 1e-9)
}

func TestBuildArchiveExitReasons(t *testing.T) {
	cal := NewCalendar(time.UTC)
	created := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	now := created.Add(time.Minute)

	cases := []struct {
		exit       string
		status     string
		servingEnd bool
	}{
		{models.ExitUserLeft, models.ArchiveLeft, false},
		{models.ExitRejoined, models.ArchiveLeft, false},
		{models.ExitOther, models.ArchiveLeft, false},
		{models.ExitTransferred, models.ArchiveTransferred, true},
		{models.ExitRemovedByAdmin, models.ArchiveRemovedByAdmin, true},
	}
	for _, tt := range cases {
		archived, _, err := BuildArchive(sampleTicket(created), tt.exit, ArchiveMeta{}, now, cal)
		require.NoError(t, err)
		assert.Equalf(t, tt.status, archived.Status, "status for %s", tt.exit)
		assert.Equalf(t, tt.servingEnd, archived.ServingEndTime != nil, "serving end for %s", tt.exit)
	}

	_, _, err := BuildArchive(sampleTicket(created), "vanished", ArchiveMeta{}, now, cal)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBuildArchiveCarriesMetadata(t *testing.T) {
	cal := NewCalendar(time.UTC)
	created := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	to, by, reason := "Registrar", "clerk-7", "Wrong counter"

	archived, _, err := BuildArchive(sampleTicket(created), models.ExitTransferred, ArchiveMeta{
		TransferredTo:  &to,
		TransferredBy:  &by,
		TransferReason: &reason,
	}, created.Add(time.Minute), cal)
	require.NoError(t, err)

	assert.Equal(t, "Registrar", *archived.TransferredTo)
	assert.Equal(t, "clerk-7", *archived.TransferredBy)
	assert.Equal(t, "Wrong counter", *archived.TransferReason)
	assert.Nil(t, archived.RemovedBy)
}
