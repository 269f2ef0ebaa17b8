package queue

import (
	"context"
	"time"

	"github.com/notifyhub/activity-reminders/internal/domain"
)

// Store is the durable substrate behind the queue.
// The Postgres implementation is repository.NewPgJobStore; tests and the
// single-process mode use MemoryStore.
//
// Complete, Retry and Fail only apply to a job that is still active under the
// same claim (same attempt count). They return domain.ErrNotFound otherwise,
// e.g. when the reaper has already taken over an expired lease.
type Store interface {
	// Insert persists a new job. Inserting an id that already exists is a
	// no-op and returns the stored job.
	Insert(ctx context.Context, job *domain.Job) (*domain.Job, error)
	// Claim atomically moves up to limit due pending jobs of kind to active,
	// increments their attempt count and leases them until now+lease.
	Claim(ctx context.Context, kind domain.JobKind, now time.Time, limit int, lease time.Duration) ([]*domain.Job, error)
	Complete(ctx context.Context, job *domain.Job, at time.Time) error
	Retry(ctx context.Context, job *domain.Job, runAt time.Time, errMsg string) error
	Fail(ctx context.Context, job *domain.Job, errMsg string, at time.Time) error
	// FindExpired returns active jobs whose lease ended before now.
	FindExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Job, error)
	// PurgeCompleted deletes completed jobs finished before the cutoff.
	PurgeCompleted(ctx context.Context, before time.Time) (int, error)
	Get(ctx context.Context, id string) (*domain.Job, error)
	Counts(ctx context.Context) (map[domain.JobStatus]int, error)
}
