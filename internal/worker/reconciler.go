// Package worker runs the background sweep that removes active tickets
// already copied into the archive.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Reconcilable is the store method the sweep drives.
type Reconcilable interface {
	Reconcile(ctx context.Context, batchSize int) (int, error)
}

type Config struct {
	BatchSize int
	Interval  time.Duration
	// MaxBatches bounds one sweep so a large backlog cannot hold the loop.
	MaxBatches int
}

type Reconciler struct {
	store      Reconcilable
	batchSize  int
	interval   time.Duration
	maxBatches int
	log        zerolog.Logger
}

func NewReconciler(store Reconcilable, cfg Config, log zerolog.Logger) *Reconciler {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}
	maxBatches := cfg.MaxBatches
	if maxBatches <= 0 {
		maxBatches = 50
	}
	return &Reconciler{
		store:      store,
		batchSize:  batch,
		interval:   cfg.Interval,
		maxBatches: maxBatches,
		log:        log.With().Str("component", "reconciler").Logger(),
	}
}

// RunOnce sweeps in batches until a batch comes back short.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	total := 0
	for i := 0; i < r.maxBatches; i++ {
		count, err := r.store.Reconcile(ctx, r.batchSize)
		if err != nil {
			return total, err
		}
		total += count
		if count < r.batchSize {
			break
		}
	}
	if total > 0 {
		r.log.Info().Int("count", total).Msg("reconciled archived tickets")
	}
	return total, nil
}

// Run sweeps once immediately, then on every interval tick until ctx ends.
// A non-positive interval runs only the initial sweep.
func (r *Reconciler) Run(ctx context.Context) {
	r.sweep(ctx)
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reconciler) sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
		r.log.Error().Err(err).Msg("reconcile error")
	}
}
