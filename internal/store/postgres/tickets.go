package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"qms/guest-queue-service/internal/metrics"
	"qms/guest-queue-service/internal/models"
	"qms/guest-queue-service/internal/store"
)

const (
	defaultSkippedBy      = "admin"
	defaultTransferReason = "Administrative transfer"
	defaultRemovalReason  = "Administrative action"
)

func invalidState(action string, ticket models.Ticket) error {
	return fmt.Errorf("%w: cannot %s ticket %s in status %s", store.ErrInvalidState, action, ticket.QueueNumber, ticket.Status)
}

// CreateTicket issues a pending ticket. A guest already in a queue has the
// old ticket archived as rejoined first.
func (s *Store) CreateTicket(ctx context.Context, input store.CreateTicketInput) (models.Ticket, error) {
	guestUserID := strings.TrimSpace(input.GuestUserID)
	if guestUserID == "" {
		return models.Ticket{}, store.ValidationError("guestUserId is required")
	}
	department, err := requireDepartment(input.Department)
	if err != nil {
		return models.Ticket{}, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	existing, found, err := findTicketByGuest(ctx, tx, guestUserID, true)
	if err != nil {
		return models.Ticket{}, err
	}
	var rejoined *models.ArchivedTicket
	var rejoinTimings store.Timings
	if found {
		var archived models.ArchivedTicket
		archived, rejoinTimings, err = s.archiveAndDelete(ctx, tx, existing, models.ExitRejoined, store.ArchiveMeta{})
		if err != nil {
			return models.Ticket{}, err
		}
		rejoined = &archived
	}

	ticket, err := s.insertPending(ctx, tx, guestUserID, department, nil, nil)
	if err != nil {
		return models.Ticket{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			err = fmt.Errorf("%w: %v", store.ErrConflict, err)
		}
		return models.Ticket{}, err
	}

	if rejoined != nil {
		metrics.ObserveArchive(rejoined.Department, rejoined.ExitReason, rejoinTimings.WaitingMinutes, rejoinTimings.ServingMinutes)
	}
	metrics.TicketsCreatedTotal.WithLabelValues(department).Inc()
	return ticket, nil
}

// insertPending numbers and inserts a new pending ticket within tx.
func (s *Store) insertPending(ctx context.Context, tx pgx.Tx, guestUserID, department string, transferredFrom, previousNumber *string) (models.Ticket, error) {
	number, err := s.nextQueueNumber(ctx, tx, department)
	if err != nil {
		return models.Ticket{}, err
	}
	ticket, err := scanTicket(tx.QueryRow(ctx, `
		INSERT INTO active_tickets (
			ticket_id, guest_user_id, department, queue_number, status, created_at, transferred_from, previous_queue_number
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+ticketColumns,
		uuid.NewString(), guestUserID, department, number, models.StatusPending, s.timestamp(), transferredFrom, previousNumber))
	if err != nil {
		if isUniqueViolation(err) {
			return models.Ticket{}, fmt.Errorf("%w: %v", store.ErrConflict, err)
		}
		return models.Ticket{}, err
	}

	payload := store.PayloadFor(ticket)
	if transferredFrom != nil {
		payload.Actor = "transfer:" + *transferredFrom
	}
	if err := s.appendEvent(ctx, tx, ticket, store.EventCreated, payload); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) GetTicket(ctx context.Context, ref store.TicketRef) (models.Ticket, error) {
	return findTicket(ctx, s.pool, ref, false)
}

// TicketStatus reports the active status, falling back to today's latest
// archive status for the number.
func (s *Store) TicketStatus(ctx context.Context, ref store.TicketRef) (string, error) {
	ticket, err := findTicket(ctx, s.pool, ref, false)
	if err == nil {
		return ticket.Status, nil
	}
	if !errors.Is(err, store.ErrTicketNotFound) {
		return "", err
	}

	query := `
		SELECT status FROM archived_tickets
		WHERE original_queue_number = $1 AND archive_date = $2`
	args := []interface{}{normalizeQueueNumber(ref.QueueNumber), s.calendar.Today(s.now())}
	if department := strings.TrimSpace(ref.Department); department != "" {
		query += " AND department = $3"
		args = append(args, department)
	}
	query += " ORDER BY archived_at DESC LIMIT 1"

	var status string
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", store.ErrTicketNotFound
		}
		return "", err
	}
	return status, nil
}

func (s *Store) ListPending(ctx context.Context, department string) ([]models.Ticket, error) {
	department, err := requireDepartment(department)
	if err != nil {
		return nil, err
	}
	return listPending(ctx, s.pool, department)
}

// ListSkipped returns skipped tickets, most recently skipped first.
func (s *Store) ListSkipped(ctx context.Context, department string) ([]models.Ticket, error) {
	department, err := requireDepartment(department)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+ticketColumns+`
		FROM active_tickets
		WHERE department = $1 AND status = 'skipped' AND is_skipped
		ORDER BY skipped_at DESC NULLS LAST
	`, department)
	if err != nil {
		return nil, err
	}
	return collectTickets(rows)
}

func (s *Store) CurrentlyServing(ctx context.Context, department string) (*models.Ticket, error) {
	department, err := requireDepartment(department)
	if err != nil {
		return nil, err
	}
	return currentlyServing(ctx, s.pool, department)
}

func currentlyServing(ctx context.Context, q querier, department string) (*models.Ticket, error) {
	ticket, err := scanTicket(q.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM active_tickets
		WHERE department = $1 AND status = 'accepted'
		ORDER BY serving_start_time DESC NULLS LAST
		LIMIT 1
	`, department))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ticket, nil
}

// CurrentQueueNumber is the highest numeric suffix among pending tickets.
func (s *Store) CurrentQueueNumber(ctx context.Context, department string) (int, error) {
	department, err := requireDepartment(department)
	if err != nil {
		return 0, err
	}
	prefix, err := s.departments.Prefix(department)
	if err != nil {
		return 0, err
	}
	numbers, err := queryStrings(ctx, s.pool, `
		SELECT queue_number FROM active_tickets WHERE department = $1 AND status = 'pending'
	`, department)
	if err != nil {
		return 0, err
	}
	return store.MaxSequence(prefix, numbers), nil
}

// AcceptTicket starts serving a pending ticket. The serving start is kept if
// already set, and the next pending number is returned as a hint.
func (s *Store) AcceptTicket(ctx context.Context, ref store.TicketRef) (store.AcceptResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.AcceptResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	ticket, err := findTicket(ctx, tx, ref, true)
	if err != nil {
		return store.AcceptResult{}, err
	}
	if !store.ValidTransition(store.ActionAccept, ticket.Status) {
		err = invalidState(store.ActionAccept, ticket)
		return store.AcceptResult{}, err
	}

	ticket, err = scanTicket(tx.QueryRow(ctx, `
		UPDATE active_tickets
		SET status = 'accepted',
			serving_start_time = COALESCE(serving_start_time, $2)
		WHERE ticket_id = $1
		RETURNING `+ticketColumns,
		ticket.TicketID, s.timestamp()))
	if err != nil {
		return store.AcceptResult{}, err
	}

	next, err := firstPending(ctx, tx, ticket.Department)
	if err != nil {
		return store.AcceptResult{}, err
	}
	if err = s.appendEvent(ctx, tx, ticket, store.EventAccepted, store.PayloadFor(ticket)); err != nil {
		return store.AcceptResult{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return store.AcceptResult{}, err
	}

	result := store.AcceptResult{Ticket: ticket}
	if next != nil {
		result.NextQueueNumber = &next.QueueNumber
	}
	return result, nil
}

// FinishTicket archives a ticket as served and reports the department's
// rollup for the day, including this ticket.
func (s *Store) FinishTicket(ctx context.Context, ref store.TicketRef) (store.FinishResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.FinishResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	ticket, err := findTicket(ctx, tx, ref, true)
	if err != nil {
		return store.FinishResult{}, err
	}
	if !store.ValidTransition(store.ActionFinish, ticket.Status) {
		err = invalidState(store.ActionFinish, ticket)
		return store.FinishResult{}, err
	}

	archived, timings, err := s.archiveAndDelete(ctx, tx, ticket, models.ExitServed, store.ArchiveMeta{})
	if err != nil {
		return store.FinishResult{}, err
	}
	next, err := firstPending(ctx, tx, ticket.Department)
	if err != nil {
		return store.FinishResult{}, err
	}
	day, err := completedAggregate(ctx, tx, ticket.Department, archived.ArchiveDate, archived.ArchiveDate)
	if err != nil {
		return store.FinishResult{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return store.FinishResult{}, err
	}

	metrics.ObserveArchive(archived.Department, archived.ExitReason, timings.WaitingMinutes, timings.ServingMinutes)
	return store.FinishResult{
		Archived:  archived,
		Timings:   timings,
		NextQueue: next,
		Stats: store.DayStats{
			TotalServed:    day.Count,
			AvgServingTime: store.FormatAverage(day.AvgServing),
			AvgWaitingTime: store.FormatAverage(day.AvgWaiting),
			AvgTotalTime:   store.FormatAverage(day.AvgTotal),
		},
	}, nil
}

// SkipTicket marks a pending or accepted ticket skipped and returns the
// refreshed pending queue.
func (s *Store) SkipTicket(ctx context.Context, input store.SkipInput) (store.SkipResult, error) {
	skippedBy := strings.TrimSpace(input.SkippedBy)
	if skippedBy == "" {
		skippedBy = defaultSkippedBy
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.SkipResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	ticket, err := findTicket(ctx, tx, input.Ref, true)
	if err != nil {
		return store.SkipResult{}, err
	}
	if !store.ValidTransition(store.ActionSkip, ticket.Status) {
		err = invalidState(store.ActionSkip, ticket)
		return store.SkipResult{}, err
	}

	ticket, err = scanTicket(tx.QueryRow(ctx, `
		UPDATE active_tickets
		SET status = 'skipped',
			is_skipped = TRUE,
			skipped_by = $2,
			skipped_at = $3
		WHERE ticket_id = $1
		RETURNING `+ticketColumns,
		ticket.TicketID, skippedBy, s.timestamp()))
	if err != nil {
		return store.SkipResult{}, err
	}

	pending, err := listPending(ctx, tx, ticket.Department)
	if err != nil {
		return store.SkipResult{}, err
	}
	payload := store.PayloadFor(ticket)
	payload.Actor = skippedBy
	if err = s.appendEvent(ctx, tx, ticket, store.EventSkipped, payload); err != nil {
		return store.SkipResult{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return store.SkipResult{}, err
	}
	return store.SkipResult{Ticket: ticket, Pending: pending}, nil
}

// ReintegrateTicket returns a skipped ticket to pending. Its original
// createdAt restores its queue position. Tickets that are not skipped are
// returned unchanged.
func (s *Store) ReintegrateTicket(ctx context.Context, ref store.TicketRef) (models.Ticket, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	ticket, err := findTicket(ctx, tx, ref, true)
	if err != nil {
		return models.Ticket{}, err
	}
	if !ticket.IsSkipped && !store.ValidTransition(store.ActionReintegrate, ticket.Status) {
		if err = tx.Commit(ctx); err != nil {
			return models.Ticket{}, err
		}
		return ticket, nil
	}

	ticket, err = scanTicket(tx.QueryRow(ctx, `
		UPDATE active_tickets
		SET status = 'pending',
			is_skipped = FALSE,
			skipped_by = NULL,
			skipped_at = NULL
		WHERE ticket_id = $1
		RETURNING `+ticketColumns,
		ticket.TicketID))
	if err != nil {
		return models.Ticket{}, err
	}
	if err = s.appendEvent(ctx, tx, ticket, store.EventReintegrated, store.PayloadFor(ticket)); err != nil {
		return models.Ticket{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

// TransferTicket archives a ticket as transferred and issues the guest a
// fresh pending ticket in the target department, atomically.
func (s *Store) TransferTicket(ctx context.Context, input store.TransferInput) (store.TransferResult, error) {
	target, err := requireDepartment(input.TargetDepartment)
	if err != nil {
		return store.TransferResult{}, store.ValidationError("targetDepartment is required")
	}
	reason := strings.TrimSpace(input.TransferReason)
	if reason == "" {
		reason = defaultTransferReason
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.TransferResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	ticket, err := findTicket(ctx, tx, input.Ref, true)
	if err != nil {
		return store.TransferResult{}, err
	}
	if !store.ValidTransition(store.ActionTransfer, ticket.Status) {
		err = invalidState(store.ActionTransfer, ticket)
		return store.TransferResult{}, err
	}
	if target == ticket.Department {
		err = store.ValidationError("ticket %s is already in %s", ticket.QueueNumber, target)
		return store.TransferResult{}, err
	}

	archived, timings, err := s.archiveAndDelete(ctx, tx, ticket, models.ExitTransferred, store.ArchiveMeta{
		TransferredTo:  &target,
		TransferredBy:  stringPtr(strings.TrimSpace(input.TransferredBy)),
		TransferReason: &reason,
	})
	if err != nil {
		return store.TransferResult{}, err
	}

	from := ticket.Department
	previous := ticket.QueueNumber
	newTicket, err := s.insertPending(ctx, tx, ticket.GuestUserID, target, &from, &previous)
	if err != nil {
		return store.TransferResult{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return store.TransferResult{}, err
	}

	metrics.ObserveArchive(archived.Department, archived.ExitReason, timings.WaitingMinutes, timings.ServingMinutes)
	metrics.TicketsCreatedTotal.WithLabelValues(target).Inc()
	return store.TransferResult{Archived: archived, NewTicket: newTicket, Timings: timings}, nil
}

// RemoveTicket archives a ticket on staff action and reports what is left
// of the department's pending queue.
func (s *Store) RemoveTicket(ctx context.Context, input store.RemoveInput) (store.RemoveResult, error) {
	reason := strings.TrimSpace(input.RemovalReason)
	if reason == "" {
		reason = defaultRemovalReason
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.RemoveResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	ticket, err := findTicket(ctx, tx, input.Ref, true)
	if err != nil {
		return store.RemoveResult{}, err
	}
	if !store.ValidTransition(store.ActionRemove, ticket.Status) {
		err = invalidState(store.ActionRemove, ticket)
		return store.RemoveResult{}, err
	}

	archived, timings, err := s.archiveAndDelete(ctx, tx, ticket, models.ExitRemovedByAdmin, store.ArchiveMeta{
		RemovedBy:     stringPtr(strings.TrimSpace(input.RemovedBy)),
		RemovalReason: &reason,
	})
	if err != nil {
		return store.RemoveResult{}, err
	}
	remaining, err := countPending(ctx, tx, ticket.Department)
	if err != nil {
		return store.RemoveResult{}, err
	}
	next, err := firstPending(ctx, tx, ticket.Department)
	if err != nil {
		return store.RemoveResult{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return store.RemoveResult{}, err
	}

	metrics.ObserveArchive(archived.Department, archived.ExitReason, timings.WaitingMinutes, timings.ServingMinutes)
	return store.RemoveResult{Archived: archived, Timings: timings, RemainingCount: remaining, NextQueue: next}, nil
}

// ArchiveTicket archives the ticket found by queue number or guest with any
// exit reason, user_left by default.
func (s *Store) ArchiveTicket(ctx context.Context, input store.ArchiveInput) (models.ArchivedTicket, error) {
	exitReason := strings.TrimSpace(input.ExitReason)
	if exitReason == "" {
		exitReason = models.ExitUserLeft
	}
	if !models.ValidExitReason(exitReason) {
		return models.ArchivedTicket{}, store.ValidationError("unknown exit reason %q", exitReason)
	}
	queueNumber := strings.TrimSpace(input.QueueNumber)
	guestUserID := strings.TrimSpace(input.GuestUserID)
	if queueNumber == "" && guestUserID == "" {
		return models.ArchivedTicket{}, store.ValidationError("queueNumber or guestUserId is required")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.ArchivedTicket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var ticket models.Ticket
	if queueNumber != "" {
		ticket, err = findTicket(ctx, tx, store.TicketRef{QueueNumber: queueNumber, Department: input.Department}, true)
	} else {
		var found bool
		ticket, found, err = findTicketByGuest(ctx, tx, guestUserID, true)
		if err == nil && !found {
			err = store.ErrTicketNotFound
		}
	}
	if err != nil {
		return models.ArchivedTicket{}, err
	}
	if !store.ValidTransition(store.ActionArchive, ticket.Status) {
		err = invalidState(store.ActionArchive, ticket)
		return models.ArchivedTicket{}, err
	}

	archived, timings, err := s.archiveAndDelete(ctx, tx, ticket, exitReason, store.ArchiveMeta{})
	if err != nil {
		return models.ArchivedTicket{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.ArchivedTicket{}, err
	}

	metrics.ObserveArchive(archived.Department, archived.ExitReason, timings.WaitingMinutes, timings.ServingMinutes)
	return archived, nil
}

// LeaveQueue archives a ticket whose guest walked away and returns the
// ticket as it was.
func (s *Store) LeaveQueue(ctx context.Context, ref store.TicketRef) (models.Ticket, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	ticket, err := findTicket(ctx, tx, ref, true)
	if err != nil {
		return models.Ticket{}, err
	}
	if !store.ValidTransition(store.ActionLeave, ticket.Status) {
		err = invalidState(store.ActionLeave, ticket)
		return models.Ticket{}, err
	}

	archived, timings, err := s.archiveAndDelete(ctx, tx, ticket, models.ExitUserLeft, store.ArchiveMeta{})
	if err != nil {
		return models.Ticket{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, err
	}

	metrics.ObserveArchive(archived.Department, archived.ExitReason, timings.WaitingMinutes, timings.ServingMinutes)
	return ticket, nil
}
