package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/activity-reminders/internal/domain"
	"github.com/notifyhub/activity-reminders/internal/queue"
)

// leaseGrace is added to the handler timeout so a worker that is about to
// time out is not raced by the reaper.
const leaseGrace = 10 * time.Second

// Dispatcher claims due jobs from the store and hands them to the workers.
// It polls every interval and also right after an Enqueue, so a fresh job
// does not wait a full tick.
//
// Jobs whose retry time is in the future stay pending in the store and are
// picked up by whichever poll first sees them due; the backoff survives a
// process restart.
type Dispatcher struct {
	q        *queue.Queue
	buf      *queue.Buffer
	interval time.Duration
	lease    time.Duration
	logger   *zap.Logger
	onDepth  func(kind domain.JobKind, depth int)
}

func NewDispatcher(
	q *queue.Queue,
	buf *queue.Buffer,
	interval time.Duration,
	handlerTimeout time.Duration,
	logger *zap.Logger,
	onDepth func(domain.JobKind, int),
) *Dispatcher {
	if onDepth == nil {
		onDepth = func(domain.JobKind, int) {}
	}
	return &Dispatcher{
		q: q, buf: buf, interval: interval,
		lease: handlerTimeout + leaseGrace, logger: logger, onDepth: onDepth,
	}
}

// Run ticks every interval and dispatches due jobs. Stops when ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("dispatcher started", zap.Duration("interval", d.interval))

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping")
			return
		case <-ticker.C:
			d.poll(ctx)
		case <-d.q.Wake():
			d.poll(ctx)
		}
	}
}

// poll claims at most the free buffer space of each kind and returns the
// number of jobs handed to workers.
func (d *Dispatcher) poll(ctx context.Context) int {
	dispatched := 0
	now := d.q.Now().UTC()

	for _, kind := range d.q.Kinds() {
		free := d.buf.Free(kind)
		if free == 0 {
			d.onDepth(kind, d.buf.Depths()[kind])
			continue
		}

		jobs, err := d.q.Store().Claim(ctx, kind, now, free, d.lease)
		if err != nil {
			d.logger.Error("claim error", zap.String("kind", string(kind)), zap.Error(err))
			continue
		}

		for _, job := range jobs {
			if err := d.buf.Push(job); err != nil {
				// Left active; the reaper recovers it when the lease ends.
				d.logger.Warn("could not dispatch claimed job",
					zap.String("job_id", job.ID), zap.Error(err))
				continue
			}
			dispatched++
		}
		d.onDepth(kind, d.buf.Depths()[kind])
	}

	if dispatched > 0 {
		d.logger.Debug("dispatched due jobs", zap.Int("count", dispatched))
	}
	return dispatched
}
