package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"qms/guest-queue-service/internal/models"
)

// ArchiveMeta carries the operation details recorded beside an archive row.
type ArchiveMeta struct {
	TransferredTo  *string
	TransferredBy  *string
	TransferReason *string
	RemovedBy      *string
	RemovalReason  *string
}

// BuildArchive copies a live ticket into its archive form with timing
// metrics computed against now. The row is complete before it is written.
func BuildArchive(ticket models.Ticket, exitReason string, meta ArchiveMeta, now time.Time, cal Calendar) (models.ArchivedTicket, Timings, error) {
	if !models.ValidExitReason(exitReason) {
		return models.ArchivedTicket{}, Timings{}, ValidationError("unknown exit reason %q", exitReason)
	}
	timings := ComputeTimings(ticket, now)
	waiting := FormatMinutes(timings.WaitingMinutes)
	serving := FormatMinutes(timings.ServingMinutes)
	total := FormatMinutes(timings.TotalMinutes)

	archived := models.ArchivedTicket{
		ArchiveID:           uuid.NewString(),
		UniqueArchiveID:     UniqueArchiveID(ticket.QueueNumber, now),
		OriginalQueueID:     ticket.TicketID,
		GuestUserID:         ticket.GuestUserID,
		Department:          ticket.Department,
		QueueNumber:         ticket.QueueNumber,
		OriginalQueueNumber: ticket.QueueNumber,
		TicketStatus:        ticket.Status,
		Status:              models.ArchiveStatusFor(exitReason),
		ExitReason:          exitReason,
		CreatedAt:           ticket.CreatedAt,
		ServingStartTime:    ticket.ServingStartTime,
		IsSkipped:           ticket.IsSkipped,
		SkippedBy:           ticket.SkippedBy,
		SkippedAt:           ticket.SkippedAt,
		TransferredFrom:     ticket.TransferredFrom,
		PreviousQueueNumber: ticket.PreviousQueueNumber,
		TransferredTo:       meta.TransferredTo,
		TransferredBy:       meta.TransferredBy,
		TransferReason:      meta.TransferReason,
		RemovedBy:           meta.RemovedBy,
		RemovalReason:       meta.RemovalReason,
		ArchivedAt:          now,
		ArchiveDate:         cal.Day(now),
		WaitingTimeMinutes:  &waiting,
		ServingTimeMinutes:  &serving,
		TotalTimeMinutes:    &total,
	}
	switch exitReason {
	case models.ExitServed, models.ExitTransferred, models.ExitRemovedByAdmin:
		end := now
		archived.ServingEndTime = &end
	}
	return archived, timings, nil
}

// UniqueArchiveID keys an archive row by queue number and archival instant.
func UniqueArchiveID(queueNumber string, at time.Time) string {
	return fmt.Sprintf("%s-%d", queueNumber, at.UnixMilli())
}
