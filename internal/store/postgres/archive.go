package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"qms/guest-queue-service/internal/models"
	"qms/guest-queue-service/internal/store"
)

const archiveColumns = `archive_id::text, unique_archive_id, original_queue_id, guest_user_id, department, queue_number,
	original_queue_number, ticket_status, status, exit_reason, created_at, serving_start_time, serving_end_time,
	is_skipped, skipped_by, skipped_at, transferred_from, previous_queue_number, transferred_to, transferred_by,
	transfer_reason, removed_by, removal_reason, archived_at, archive_date,
	waiting_time_minutes::text, serving_time_minutes::text, total_time_minutes::text`

const (
	defaultArchiveLimit = 500
	maxArchiveLimit     = 5000
)

// archiveAndDelete moves a locked active ticket into the archive within tx.
// The archive row is written complete, then the active row is removed.
func (s *Store) archiveAndDelete(ctx context.Context, tx pgx.Tx, ticket models.Ticket, exitReason string, meta store.ArchiveMeta) (models.ArchivedTicket, store.Timings, error) {
	archived, timings, err := store.BuildArchive(ticket, exitReason, meta, s.timestamp(), s.calendar)
	if err != nil {
		return models.ArchivedTicket{}, store.Timings{}, err
	}
	if err := insertArchive(ctx, tx, archived); err != nil {
		return models.ArchivedTicket{}, store.Timings{}, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM active_tickets WHERE ticket_id = $1`, ticket.TicketID); err != nil {
		return models.ArchivedTicket{}, store.Timings{}, err
	}

	payload := store.PayloadFor(ticket)
	payload.ExitReason = exitReason
	if meta.TransferredTo != nil {
		payload.ToDepartment = *meta.TransferredTo
	}
	if meta.TransferredBy != nil {
		payload.Actor = *meta.TransferredBy
	}
	if meta.RemovedBy != nil {
		payload.Actor = *meta.RemovedBy
	}
	if err := s.appendEvent(ctx, tx, ticket, eventByExit[exitReason], payload); err != nil {
		return models.ArchivedTicket{}, store.Timings{}, err
	}
	return archived, timings, nil
}

func insertArchive(ctx context.Context, tx pgx.Tx, a models.ArchivedTicket) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO archived_tickets (
			archive_id, unique_archive_id, original_queue_id, guest_user_id, department, queue_number,
			original_queue_number, ticket_status, status, exit_reason, created_at, serving_start_time, serving_end_time,
			is_skipped, skipped_by, skipped_at, transferred_from, previous_queue_number, transferred_to, transferred_by,
			transfer_reason, removed_by, removal_reason, archived_at, archive_date,
			waiting_time_minutes, serving_time_minutes, total_time_minutes
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26::text::numeric, $27::text::numeric, $28::text::numeric
		)
	`, a.ArchiveID, a.UniqueArchiveID, a.OriginalQueueID, a.GuestUserID, a.Department, a.QueueNumber,
		a.OriginalQueueNumber, a.TicketStatus, a.Status, a.ExitReason, a.CreatedAt, a.ServingStartTime, a.ServingEndTime,
		a.IsSkipped, a.SkippedBy, a.SkippedAt, a.TransferredFrom, a.PreviousQueueNumber, a.TransferredTo, a.TransferredBy,
		a.TransferReason, a.RemovedBy, a.RemovalReason, a.ArchivedAt, a.ArchiveDate,
		a.WaitingTimeMinutes, a.ServingTimeMinutes, a.TotalTimeMinutes)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: archive %s already written", store.ErrConflict, a.UniqueArchiveID)
		}
		return err
	}
	return nil
}

func scanArchive(row scanner) (models.ArchivedTicket, error) {
	var a models.ArchivedTicket
	var servingStart, servingEnd, skippedAt sql.NullTime
	var skippedBy, transferredFrom, previousNumber, transferredTo, transferredBy sql.NullString
	var transferReason, removedBy, removalReason sql.NullString
	var waiting, serving, total sql.NullString
	if err := row.Scan(&a.ArchiveID, &a.UniqueArchiveID, &a.OriginalQueueID, &a.GuestUserID, &a.Department, &a.QueueNumber,
		&a.OriginalQueueNumber, &a.TicketStatus, &a.Status, &a.ExitReason, &a.CreatedAt, &servingStart, &servingEnd,
		&a.IsSkipped, &skippedBy, &skippedAt, &transferredFrom, &previousNumber, &transferredTo, &transferredBy,
		&transferReason, &removedBy, &removalReason, &a.ArchivedAt, &a.ArchiveDate,
		&waiting, &serving, &total); err != nil {
		return models.ArchivedTicket{}, err
	}
	a.ServingStartTime = nullTimePtr(servingStart)
	a.ServingEndTime = nullTimePtr(servingEnd)
	a.SkippedAt = nullTimePtr(skippedAt)
	a.SkippedBy = nullStringPtr(skippedBy)
	a.TransferredFrom = nullStringPtr(transferredFrom)
	a.PreviousQueueNumber = nullStringPtr(previousNumber)
	a.TransferredTo = nullStringPtr(transferredTo)
	a.TransferredBy = nullStringPtr(transferredBy)
	a.TransferReason = nullStringPtr(transferReason)
	a.RemovedBy = nullStringPtr(removedBy)
	a.RemovalReason = nullStringPtr(removalReason)
	a.WaitingTimeMinutes = nullStringPtr(waiting)
	a.ServingTimeMinutes = nullStringPtr(serving)
	a.TotalTimeMinutes = nullStringPtr(total)
	return a, nil
}

// ListArchived returns archive rows newest first. Viewers with access to all
// departments ignore the department filter.
func (s *Store) ListArchived(ctx context.Context, query store.ArchiveQuery) ([]models.ArchivedTicket, error) {
	for _, day := range []string{query.From, query.To} {
		if day != "" && !s.calendar.ValidDay(day) {
			return nil, store.ValidationError("date must be YYYY-MM-DD, got %q", day)
		}
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultArchiveLimit
	}
	if limit > maxArchiveLimit {
		limit = maxArchiveLimit
	}

	var filters []string
	var args []interface{}
	add := func(clause string, value interface{}) {
		args = append(args, value)
		filters = append(filters, fmt.Sprintf(clause, len(args)))
	}
	if department := strings.TrimSpace(query.Department); department != "" && !query.AllDepartments {
		add("department = $%d", department)
	}
	if query.From != "" {
		add("archive_date >= $%d", query.From)
	}
	if query.To != "" {
		add("archive_date <= $%d", query.To)
	}

	sqlText := `SELECT ` + archiveColumns + ` FROM archived_tickets`
	if len(filters) > 0 {
		sqlText += " WHERE " + strings.Join(filters, " AND ")
	}
	args = append(args, limit)
	sqlText += fmt.Sprintf(" ORDER BY archived_at DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.ArchivedTicket{}
	for rows.Next() {
		record, err := scanArchive(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
