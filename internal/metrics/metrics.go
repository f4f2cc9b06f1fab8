// Package metrics holds the Prometheus collectors of the guest queue service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guest_queue_http_requests_total",
			Help: "HTTP requests served by the guest queue service.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guest_queue_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guest_queue_http_rate_limited_total",
		Help: "Requests rejected by the per-client rate limiter.",
	})

	TicketsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guest_queue_tickets_created_total",
			Help: "Tickets issued, by department.",
		},
		[]string{"department"},
	)

	TicketsArchivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guest_queue_tickets_archived_total",
			Help: "Tickets moved to the archive, by department and exit reason.",
		},
		[]string{"department", "exit_reason"},
	)

	// Waiting and serving spans in minutes.
	WaitingMinutes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guest_queue_waiting_minutes",
			Help:    "Minutes between ticket creation and serving start.",
			Buckets: []float64{1, 2, 5, 10, 15, 30, 45, 60, 90, 120},
		},
		[]string{"department"},
	)

	ServingMinutes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guest_queue_serving_minutes",
			Help:    "Minutes between serving start and completion.",
			Buckets: []float64{1, 2, 5, 10, 15, 30, 45, 60},
		},
		[]string{"department"},
	)

	StatsCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guest_queue_stats_cache_hits_total",
		Help: "Statistics rollups served from the LRU cache.",
	})

	StatsCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guest_queue_stats_cache_misses_total",
		Help: "Statistics rollups computed from the archive.",
	})

	GuestCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guest_queue_guest_cache_hits_total",
		Help: "Guest registrations answered from the in-process cache.",
	})

	ReconciledTicketsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guest_queue_reconciled_tickets_total",
		Help: "Active tickets removed because an archive copy already existed.",
	})
)

// ObserveArchive records one archived ticket.
func ObserveArchive(department, exitReason string, waitingMinutes, servingMinutes float64) {
	TicketsArchivedTotal.WithLabelValues(department, exitReason).Inc()
	WaitingMinutes.WithLabelValues(department).Observe(waitingMinutes)
	if exitReason == "served" {
		ServingMinutes.WithLabelValues(department).Observe(servingMinutes)
	}
}
