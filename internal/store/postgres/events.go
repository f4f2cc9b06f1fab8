package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"qms/guest-queue-service/internal/models"
	"qms/guest-queue-service/internal/store"
)

const eventColumns = `event_id::text, ticket_id, ticket_seq, department, queue_number, type, payload::text, created_at, prev_hash, hash`

var eventByExit = map[string]string{
	models.ExitServed:         store.EventServed,
	models.ExitUserLeft:       store.EventLeft,
	models.ExitRejoined:       store.EventRejoined,
	models.ExitTransferred:    store.EventTransferred,
	models.ExitRemovedByAdmin: store.EventRemoved,
	models.ExitOther:          store.EventArchived,
}

// appendEvent links one event onto the ticket's chain inside tx.
func (s *Store) appendEvent(ctx context.Context, tx pgx.Tx, ticket models.Ticket, eventType string, payload store.EventPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, ticket.TicketID); err != nil {
		return err
	}

	var lastSeq int
	var prevHash sql.NullString
	row := tx.QueryRow(ctx, `
		SELECT ticket_seq, hash
		FROM queue_events
		WHERE ticket_id = $1
		ORDER BY ticket_seq DESC
		LIMIT 1
	`, ticket.TicketID)
	if err := row.Scan(&lastSeq, &prevHash); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	nextSeq := lastSeq + 1
	prev := ""
	if prevHash.Valid {
		prev = prevHash.String
	}
	createdAt := s.timestamp()
	hash := store.ComputeEventHash(prev, ticket.TicketID, eventType, raw, createdAt, nextSeq)

	_, err = tx.Exec(ctx, `
		INSERT INTO queue_events (event_id, ticket_id, ticket_seq, department, queue_number, type, payload, created_at, prev_hash, hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7::json, $8, $9, $10)
	`, uuid.NewString(), ticket.TicketID, nextSeq, ticket.Department, ticket.QueueNumber, eventType, string(raw), createdAt, prev, hash)
	return err
}

func (s *Store) ListEvents(ctx context.Context, query store.EventQuery) ([]store.QueueEvent, error) {
	limit := query.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	sqlText := `SELECT ` + eventColumns + ` FROM queue_events WHERE created_at > $1`
	args := []interface{}{query.After}
	if query.Department != "" {
		sqlText += " AND department = $2 ORDER BY created_at ASC, ticket_seq ASC LIMIT $3"
		args = append(args, query.Department, limit)
	} else {
		sqlText += " ORDER BY created_at ASC, ticket_seq ASC LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

// ListTicketEvents returns a ticket's chain after verifying it.
func (s *Store) ListTicketEvents(ctx context.Context, ticketID string) ([]store.QueueEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM queue_events
		WHERE ticket_id = $1
		ORDER BY ticket_seq ASC
	`, ticketID)
	if err != nil {
		return nil, err
	}
	events, err := collectEvents(rows)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, store.ErrTicketNotFound
	}
	if err := store.VerifyEventChain(events); err != nil {
		return events, err
	}
	return events, nil
}

func collectEvents(rows pgx.Rows) ([]store.QueueEvent, error) {
	defer rows.Close()
	events := []store.QueueEvent{}
	for rows.Next() {
		var event store.QueueEvent
		var payload string
		if err := rows.Scan(&event.EventID, &event.TicketID, &event.TicketSeq, &event.Department, &event.QueueNumber, &event.Type, &payload, &event.CreatedAt, &event.PrevHash, &event.Hash); err != nil {
			return nil, err
		}
		event.Payload = json.RawMessage(payload)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
