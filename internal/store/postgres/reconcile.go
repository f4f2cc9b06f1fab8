package postgres

import (
	"context"

	"qms/guest-queue-service/internal/metrics"
)

// Reconcile deletes active tickets that already have an archive copy, left
// behind by writers that archived without removing the live row. The archive
// copy wins.
func (s *Store) Reconcile(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM active_tickets
		WHERE ticket_id IN (
			SELECT a.ticket_id
			FROM active_tickets a
			JOIN archived_tickets r ON r.original_queue_id = a.ticket_id::text
			LIMIT $1
			FOR UPDATE OF a SKIP LOCKED
		)
	`, batchSize)
	if err != nil {
		return 0, err
	}
	removed := int(tag.RowsAffected())
	if removed > 0 {
		metrics.ReconciledTicketsTotal.Add(float64(removed))
	}
	return removed, nil
}
