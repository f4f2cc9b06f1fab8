package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"qms/guest-queue-service/internal/metrics"
	"qms/guest-queue-service/internal/store"
)

type rollup struct {
	day  store.Aggregate
	week store.Aggregate
}

// statsCache keeps rollups of closed days. Archive rows are append-only and
// dated at write time, so a day before today never changes.
type statsCache struct {
	cache *expirable.LRU[string, rollup]
}

func newStatsCache(size int, ttl time.Duration) *statsCache {
	if size <= 0 {
		size = 256
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &statsCache{cache: expirable.NewLRU[string, rollup](size, nil, ttl)}
}

func (c *statsCache) Get(key string) (rollup, bool) {
	value, ok := c.cache.Get(key)
	if ok {
		metrics.StatsCacheHitsTotal.Inc()
		return value, true
	}
	metrics.StatsCacheMissesTotal.Inc()
	return rollup{}, false
}

func (c *statsCache) Add(key string, value rollup) {
	c.cache.Add(key, value)
}

func (c *statsCache) Len() int {
	return c.cache.Len()
}

// Statistics builds the department rollup for date (today when empty). The
// pending count and the serving snapshot are always live.
func (s *Store) Statistics(ctx context.Context, department, date string) (store.Statistics, error) {
	department, err := requireDepartment(department)
	if err != nil {
		return store.Statistics{}, err
	}
	now := s.now()
	today := s.calendar.Today(now)
	date = strings.TrimSpace(date)
	if date == "" {
		date = today
	}
	weekStart, err := s.calendar.WeekStart(date)
	if err != nil {
		return store.Statistics{}, err
	}

	agg, err := s.rollup(ctx, department, date, weekStart, date < today)
	if err != nil {
		return store.Statistics{}, err
	}

	stats := store.Statistics{Date: date, Department: department, WeekStart: weekStart}
	stats.ApplyAggregates(agg.day, agg.week)

	if stats.PendingCount, err = countPending(ctx, s.pool, department); err != nil {
		return store.Statistics{}, err
	}
	serving, err := currentlyServing(ctx, s.pool, department)
	if err != nil {
		return store.Statistics{}, err
	}
	if serving != nil {
		stats.CurrentlyServing = store.ServingSnapshot(serving.QueueNumber, serving.GuestUserID, serving.ServingStartTime, agg.day.AvgServing, now)
	}
	return stats, nil
}

func (s *Store) rollup(ctx context.Context, department, date, weekStart string, closed bool) (rollup, error) {
	key := department + "|" + date
	if closed {
		if cached, ok := s.stats.Get(key); ok {
			return cached, nil
		}
	}

	day, err := completedAggregate(ctx, s.pool, department, date, date)
	if err != nil {
		return rollup{}, err
	}
	week, err := completedAggregate(ctx, s.pool, department, weekStart, date)
	if err != nil {
		return rollup{}, err
	}
	result := rollup{day: day, week: week}
	if closed {
		s.stats.Add(key, result)
	}
	return result, nil
}

// completedAggregate averages completed archive rows with archiveDate in
// [from, to]. Dates compare as YYYY-MM-DD text.
func completedAggregate(ctx context.Context, q querier, department, from, to string) (store.Aggregate, error) {
	var agg store.Aggregate
	var serving, waiting, total sql.NullFloat64
	err := q.QueryRow(ctx, `
		SELECT count(*),
			AVG(serving_time_minutes)::float8,
			AVG(waiting_time_minutes)::float8,
			AVG(total_time_minutes)::float8
		FROM archived_tickets
		WHERE department = $1 AND status = 'completed'
			AND archive_date >= $2 AND archive_date <= $3
	`, department, from, to).Scan(&agg.Count, &serving, &waiting, &total)
	if err != nil {
		return store.Aggregate{}, err
	}
	agg.AvgServing = nullFloatPtr(serving)
	agg.AvgWaiting = nullFloatPtr(waiting)
	agg.AvgTotal = nullFloatPtr(total)
	return agg, nil
}

func nullFloatPtr(value sql.NullFloat64) *float64 {
	if !value.Valid {
		return nil
	}
	return &value.Float64
}
