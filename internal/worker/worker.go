package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/activity-reminders/internal/domain"
	"github.com/notifyhub/activity-reminders/internal/queue"
	"github.com/notifyhub/activity-reminders/internal/ratelimiter"
)

var errNoHandler = errors.New("no handler registered for job kind")

// Worker is a single goroutine that pulls claimed jobs of one kind from the
// dispatch buffer, runs the registered handler under a timeout and records
// the outcome in the job store.
type Worker struct {
	id      int
	kind    domain.JobKind
	q       *queue.Queue
	buf     *queue.Buffer
	limiter *ratelimiter.KindLimiters
	timeout time.Duration
	logger  *zap.Logger
	hooks   MetricHooks
}

func NewWorker(
	id int,
	kind domain.JobKind,
	q *queue.Queue,
	buf *queue.Buffer,
	limiter *ratelimiter.KindLimiters,
	timeout time.Duration,
	logger *zap.Logger,
	hooks MetricHooks,
) *Worker {
	return &Worker{
		id: id, kind: kind, q: q, buf: buf, limiter: limiter,
		timeout: timeout, logger: logger, hooks: hooks.withDefaults(),
	}
}

// Run blocks until ctx is cancelled, processing one job per iteration.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started")
	for {
		job, ok := w.buf.Pop(ctx, w.kind)
		if !ok {
			w.logger.Info("worker stopping")
			return
		}
		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job *domain.Job) {
	log := w.logger.With(
		zap.String("job_id", job.ID),
		zap.Int("attempt", job.Attempts),
	)

	h, ok := w.q.Handler(job.Kind)
	if !ok {
		settleFailure(context.WithoutCancel(ctx), w.q.Store(), job, queue.Permanent(errNoHandler), w.q.Now(), w.hooks, log)
		return
	}

	// Shutdown while waiting for a token leaves the job leased; the reaper
	// picks it up once the lease expires.
	if err := w.limiter.Wait(ctx, job.Kind); err != nil {
		return
	}

	// A claim that waited in the buffer may no longer cover a full handler
	// run. Running it could overlap a re-dispatch after the reaper requeues
	// it, so it is left for the reaper.
	if !w.leaseCovers(job) {
		log.Warn("skipping job whose lease ends before the handler timeout",
			zap.Timep("locked_until", job.LockedUntil))
		return
	}

	start := w.q.Now()
	hctx, cancel := context.WithTimeout(ctx, w.timeout)
	err := invoke(hctx, h, job)
	cancel()
	elapsed := w.q.Now().Sub(start)

	// Bookkeeping must land even if ctx was cancelled mid-handler.
	bctx := context.WithoutCancel(ctx)
	if err != nil {
		settleFailure(bctx, w.q.Store(), job, err, w.q.Now(), w.hooks, log)
		return
	}

	if err := w.q.Store().Complete(bctx, job, w.q.Now().UTC()); err != nil {
		log.Warn("could not mark job completed", zap.Error(err))
		return
	}
	w.hooks.OnCompleted(job.Kind, elapsed)
	log.Info("job completed", zap.Duration("latency", elapsed))
}

func (w *Worker) leaseCovers(job *domain.Job) bool {
	if job.LockedUntil == nil {
		return true
	}
	return job.LockedUntil.Sub(w.q.Now()) >= w.timeout
}

// invoke runs h and converts a panic or an exceeded deadline into an error.
// A handler that ignores its context is abandoned once the deadline passes.
func invoke(ctx context.Context, h queue.Handler, job *domain.Job) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("handler panic: %v", r)
			}
		}()
		done <- h(ctx, job)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("handler did not finish: %w", ctx.Err())
	}
}

// settleFailure applies the retry policy to a failed attempt: permanent
// errors and exhausted jobs become failed, everything else goes back to
// pending after base * 2^(attempt-1).
func settleFailure(
	ctx context.Context,
	st queue.Store,
	job *domain.Job,
	cause error,
	now time.Time,
	hooks MetricHooks,
	log *zap.Logger,
) {
	msg := cause.Error()
	permanent := queue.IsPermanent(cause)

	if permanent || job.Exhausted() {
		if err := st.Fail(ctx, job, msg, now.UTC()); err != nil {
			log.Warn("could not mark job failed", zap.Error(err))
			return
		}
		hooks.OnFailed(job.Kind)
		log.Error("job failed",
			zap.Int("attempts", job.Attempts),
			zap.Int("max_attempts", job.MaxAttempts),
			zap.Bool("permanent", permanent),
			zap.Error(cause),
		)
		return
	}

	delay := queue.Backoff(job.BackoffBase, job.Attempts)
	if err := st.Retry(ctx, job, now.Add(delay).UTC(), msg); err != nil {
		log.Warn("could not schedule retry", zap.Error(err))
		return
	}
	hooks.OnRetry(job.Kind)
	log.Warn("job attempt failed, retry scheduled",
		zap.Duration("delay", delay),
		zap.Error(cause),
	)
}
