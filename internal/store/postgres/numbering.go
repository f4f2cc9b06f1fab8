package postgres

import (
	"context"

	"qms/guest-queue-service/internal/store"
)

// nextQueueNumber issues the next number of a department for today. The
// highest number already in use seeds the sequence row, whose lock
// serializes concurrent creators until the caller's transaction ends.
func (s *Store) nextQueueNumber(ctx context.Context, q querier, department string) (string, error) {
	prefix, err := s.departments.Prefix(department)
	if err != nil {
		return "", err
	}
	today := s.calendar.Today(s.now())

	active, err := queryStrings(ctx, q, `
		SELECT queue_number FROM active_tickets WHERE department = $1
	`, department)
	if err != nil {
		return "", err
	}
	archived, err := queryStrings(ctx, q, `
		SELECT original_queue_number FROM archived_tickets WHERE department = $1 AND archive_date = $2
	`, department, today)
	if err != nil {
		return "", err
	}
	seed := store.MaxSequence(prefix, active)
	if fromArchive := store.MaxSequence(prefix, archived); fromArchive > seed {
		seed = fromArchive
	}

	var next int
	row := q.QueryRow(ctx, `
		INSERT INTO queue_sequences (department, queue_date, last_number)
		VALUES ($1, $2, $3::int + 1)
		ON CONFLICT (department, queue_date)
		DO UPDATE SET last_number = GREATEST(queue_sequences.last_number, $3::int) + 1
		RETURNING last_number
	`, department, today, seed)
	if err := row.Scan(&next); err != nil {
		return "", err
	}
	return store.FormatQueueNumber(prefix, next), nil
}

func queryStrings(ctx context.Context, q querier, query string, args ...interface{}) ([]string, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return values, nil
}
