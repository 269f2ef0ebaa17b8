package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/activity-reminders/internal/queue"
)

var errLeaseExpired = errors.New("job lease expired before the handler reported back")

const reapBatch = 100

// Reaper polls the job store for active jobs whose lease has run out (a
// crashed or stuck worker) and runs them through the normal failure
// transition, so the lost attempt counts toward the retry budget.
// It also purges completed jobs older than the retention window; failed jobs
// are kept as failure telemetry.
type Reaper struct {
	q         *queue.Queue
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
	hooks     MetricHooks
}

func NewReaper(
	q *queue.Queue,
	interval time.Duration,
	retention time.Duration,
	logger *zap.Logger,
	hooks MetricHooks,
) *Reaper {
	return &Reaper{q: q, interval: interval, retention: retention, logger: logger, hooks: hooks.withDefaults()}
}

// Run ticks every interval. Stops cleanly when ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reaper started",
		zap.Duration("interval", r.interval),
		zap.Duration("retention", r.retention),
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reaper stopping")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	now := r.q.Now().UTC()
	st := r.q.Store()

	expired, err := st.FindExpired(ctx, now, reapBatch)
	if err != nil {
		r.logger.Error("find expired leases", zap.Error(err))
		return
	}
	for _, job := range expired {
		settleFailure(ctx, st, job, errLeaseExpired, now, r.hooks,
			r.logger.With(zap.String("job_id", job.ID), zap.String("kind", string(job.Kind))))
	}
	if len(expired) > 0 {
		r.logger.Warn("recovered jobs with expired leases", zap.Int("count", len(expired)))
	}

	if r.retention <= 0 {
		return
	}
	purged, err := st.PurgeCompleted(ctx, now.Add(-r.retention))
	if err != nil {
		r.logger.Error("purge completed jobs", zap.Error(err))
		return
	}
	if purged > 0 {
		r.logger.Info("purged completed jobs", zap.Int("count", purged))
	}
}
