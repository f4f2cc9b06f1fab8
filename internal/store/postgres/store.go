package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"qms/guest-queue-service/internal/models"
	"qms/guest-queue-service/internal/store"
)

const ticketColumns = `ticket_id::text, guest_user_id, department, queue_number, status, created_at,
	serving_start_time, is_skipped, skipped_by, skipped_at, transferred_from, previous_queue_number`

var _ store.QueueStore = (*Store)(nil)

type Store struct {
	pool        *pgxpool.Pool
	departments store.Departments
	calendar    store.Calendar
	now         func() time.Time
	stats       *statsCache
	guests      *guestCache
}

type Options struct {
	Departments    store.Departments
	Calendar       store.Calendar
	StatsCacheSize int
	StatsCacheTTL  time.Duration
	GuestCacheTTL  time.Duration
	Now            func() time.Time
}

func NewStore(pool *pgxpool.Pool, options Options) *Store {
	now := options.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		pool:        pool,
		departments: options.Departments,
		calendar:    options.Calendar,
		now:         now,
		stats:       newStatsCache(options.StatsCacheSize, options.StatsCacheTTL),
		guests:      newGuestCache(options.GuestCacheTTL),
	}
}

// timestamp is the store clock truncated to the precision PostgreSQL keeps.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

type querier interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTicket(row scanner) (models.Ticket, error) {
	var ticket models.Ticket
	var servingStartNull sql.NullTime
	var skippedByNull sql.NullString
	var skippedAtNull sql.NullTime
	var transferredFromNull sql.NullString
	var previousNumberNull sql.NullString
	if err := row.Scan(&ticket.TicketID, &ticket.GuestUserID, &ticket.Department, &ticket.QueueNumber, &ticket.Status, &ticket.CreatedAt,
		&servingStartNull, &ticket.IsSkipped, &skippedByNull, &skippedAtNull, &transferredFromNull, &previousNumberNull); err != nil {
		return models.Ticket{}, err
	}
	ticket.ServingStartTime = nullTimePtr(servingStartNull)
	ticket.SkippedBy = nullStringPtr(skippedByNull)
	ticket.SkippedAt = nullTimePtr(skippedAtNull)
	ticket.TransferredFrom = nullStringPtr(transferredFromNull)
	ticket.PreviousQueueNumber = nullStringPtr(previousNumberNull)
	return ticket, nil
}

func collectTickets(rows pgx.Rows) ([]models.Ticket, error) {
	defer rows.Close()
	tickets := []models.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

func normalizeQueueNumber(queueNumber string) string {
	return strings.ToUpper(strings.TrimSpace(queueNumber))
}

// findTicket resolves a queue number to exactly one active ticket.
func findTicket(ctx context.Context, q querier, ref store.TicketRef, forUpdate bool) (models.Ticket, error) {
	number := normalizeQueueNumber(ref.QueueNumber)
	if number == "" {
		return models.Ticket{}, store.ValidationError("queue number is required")
	}
	query := `SELECT ` + ticketColumns + ` FROM active_tickets WHERE queue_number = $1`
	args := []interface{}{number}
	if department := strings.TrimSpace(ref.Department); department != "" {
		query += " AND department = $2"
		args = append(args, department)
	}
	query += " ORDER BY created_at ASC LIMIT 2"
	if forUpdate {
		query += " FOR UPDATE"
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return models.Ticket{}, err
	}
	tickets, err := collectTickets(rows)
	if err != nil {
		return models.Ticket{}, err
	}
	switch len(tickets) {
	case 0:
		return models.Ticket{}, store.ErrTicketNotFound
	case 1:
		return tickets[0], nil
	default:
		return models.Ticket{}, store.ErrAmbiguousTicket
	}
}

func findTicketByGuest(ctx context.Context, q querier, guestUserID string, forUpdate bool) (models.Ticket, bool, error) {
	query := `SELECT ` + ticketColumns + ` FROM active_tickets WHERE guest_user_id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}
	ticket, err := scanTicket(q.QueryRow(ctx, query, guestUserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, false, nil
		}
		return models.Ticket{}, false, err
	}
	return ticket, true, nil
}

func listPending(ctx context.Context, q querier, department string) ([]models.Ticket, error) {
	rows, err := q.Query(ctx, `
		SELECT `+ticketColumns+`
		FROM active_tickets
		WHERE department = $1 AND status = 'pending'
		ORDER BY created_at ASC, ticket_id ASC
	`, department)
	if err != nil {
		return nil, err
	}
	return collectTickets(rows)
}

func firstPending(ctx context.Context, q querier, department string) (*models.Ticket, error) {
	ticket, err := scanTicket(q.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM active_tickets
		WHERE department = $1 AND status = 'pending'
		ORDER BY created_at ASC, ticket_id ASC
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

func countPending(ctx context.Context, q querier, department string) (int, error) {
	var count int
	err := q.QueryRow(ctx, `
		SELECT count(*) FROM active_tickets WHERE department = $1 AND status = 'pending'
	`, department).Scan(&count)
	return count, err
}

func requireDepartment(department string) (string, error) {
	department = strings.TrimSpace(department)
	if department == "" {
		return "", store.ValidationError("department is required")
	}
	return department, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func stringPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	return &value.Time
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	return &value.String
}
