package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/activity-reminders/internal/domain"
	"github.com/notifyhub/activity-reminders/internal/queue"
	"github.com/notifyhub/activity-reminders/internal/ratelimiter"
)

// MetricHooks carries the metric callbacks injected by main.
// Nil fields are no-ops.
type MetricHooks struct {
	OnCompleted func(kind domain.JobKind, latency time.Duration)
	OnRetry     func(kind domain.JobKind)
	OnFailed    func(kind domain.JobKind)
}

func (h MetricHooks) withDefaults() MetricHooks {
	if h.OnCompleted == nil {
		h.OnCompleted = func(domain.JobKind, time.Duration) {}
	}
	if h.OnRetry == nil {
		h.OnRetry = func(domain.JobKind) {}
	}
	if h.OnFailed == nil {
		h.OnFailed = func(domain.JobKind) {}
	}
	return h
}

// Pool manages the lifecycle of all job workers. Each kind gets its own set
// of goroutines, so jobs of one kind run in parallel with no ordering between
// them.
type Pool struct {
	workers []*Worker
	wg      sync.WaitGroup
}

// NewPool creates concurrency[kind] workers per kind.
func NewPool(
	q *queue.Queue,
	buf *queue.Buffer,
	limiter *ratelimiter.KindLimiters,
	concurrency map[domain.JobKind]int,
	timeout time.Duration,
	logger *zap.Logger,
	hooks MetricHooks,
) *Pool {
	var workers []*Worker
	for _, kind := range q.Kinds() {
		for i := 0; i < concurrency[kind]; i++ {
			id := len(workers)
			workers = append(workers, NewWorker(
				id, kind, q, buf, limiter, timeout,
				logger.With(zap.Int("worker_id", id), zap.String("kind", string(kind))),
				hooks,
			))
		}
	}
	return &Pool{workers: workers}
}

// Start launches all workers as goroutines.
// Cancelling ctx triggers a graceful shutdown of the entire pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has returned after ctx is cancelled.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) Size() int { return len(p.workers) }
