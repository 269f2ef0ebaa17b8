// Package queue is the producer side of the job queue: enqueueing, handler
// registration, the retry policy and the Store contract the runtime in
// package worker drives.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/activity-reminders/internal/domain"
)

// Handler processes one job. A nil return completes the job; any error counts
// as a failed attempt unless wrapped with Permanent.
type Handler func(ctx context.Context, job *domain.Job) error

// Config holds the defaults applied to every enqueued job.
type Config struct {
	MaxAttempts int
	BackoffBase time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Enqueuer is the producer side of Queue, taken by components that only
// enqueue.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind domain.JobKind, payload any, opts ...EnqueueOption) (*domain.Job, error)
}

type Queue struct {
	store  Store
	cfg    Config
	logger *zap.Logger

	mu       sync.RWMutex
	handlers map[domain.JobKind]Handler

	wake chan struct{}
}

func New(store Store, cfg Config, logger *zap.Logger) *Queue {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = domain.DefaultMaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = domain.DefaultBackoffBase
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Queue{
		store:    store,
		cfg:      cfg,
		logger:   logger,
		handlers: make(map[domain.JobKind]Handler),
		wake:     make(chan struct{}, 1),
	}
}

type enqueueOptions struct {
	id          string
	maxAttempts int
	backoffBase time.Duration
	runAt       time.Time
}

type EnqueueOption func(*enqueueOptions)

// WithJobID makes the insert idempotent: enqueueing an id that already exists
// returns the existing job.
func WithJobID(id string) EnqueueOption {
	return func(o *enqueueOptions) { o.id = id }
}

func WithMaxAttempts(n int) EnqueueOption {
	return func(o *enqueueOptions) { o.maxAttempts = n }
}

func WithBackoff(base time.Duration) EnqueueOption {
	return func(o *enqueueOptions) { o.backoffBase = base }
}

// WithRunAt delays the first attempt until t.
func WithRunAt(t time.Time) EnqueueOption {
	return func(o *enqueueOptions) { o.runAt = t }
}

// Enqueue persists a pending job. A store failure is reported as
// domain.ErrQueueUnavailable and is not retried here.
func (q *Queue) Enqueue(ctx context.Context, kind domain.JobKind, payload any, opts ...EnqueueOption) (*domain.Job, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("enqueue: unknown job kind %q", kind)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal %s payload: %v", domain.ErrInvalidPayload, kind, err)
	}

	now := q.cfg.Now().UTC()
	o := enqueueOptions{
		maxAttempts: q.cfg.MaxAttempts,
		backoffBase: q.cfg.BackoffBase,
		runAt:       now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	if o.maxAttempts <= 0 {
		o.maxAttempts = q.cfg.MaxAttempts
	}

	job := &domain.Job{
		ID:          o.id,
		Kind:        kind,
		Payload:     data,
		Status:      domain.JobPending,
		MaxAttempts: o.maxAttempts,
		BackoffBase: o.backoffBase,
		RunAt:       o.runAt.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	stored, err := q.store.Insert(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrQueueUnavailable, err)
	}

	q.signal()
	q.logger.Debug("job enqueued",
		zap.String("job_id", stored.ID),
		zap.String("kind", string(kind)),
		zap.Time("run_at", stored.RunAt),
	)
	return stored, nil
}

// RegisterWorker binds h to kind, replacing any previous handler.
func (q *Queue) RegisterWorker(kind domain.JobKind, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[kind] = h
}

func (q *Queue) Handler(kind domain.JobKind) (Handler, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	h, ok := q.handlers[kind]
	return h, ok
}

// Kinds returns the registered kinds in a stable order.
func (q *Queue) Kinds() []domain.JobKind {
	q.mu.RLock()
	defer q.mu.RUnlock()
	kinds := make([]domain.JobKind, 0, len(q.handlers))
	for k := range q.handlers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Wake fires after every successful Enqueue so the dispatcher does not wait
// for its next poll. Signals coalesce.
func (q *Queue) Wake() <-chan struct{} { return q.wake }

func (q *Queue) Store() Store { return q.store }

func (q *Queue) Now() time.Time { return q.cfg.Now() }

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Backoff returns the delay before the next attempt after the given attempt
// failed: base, 2*base, 4*base, ...
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 31 {
		attempt = 31
	}
	return base << (attempt - 1)
}
