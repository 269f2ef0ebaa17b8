package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/notifyhub/activity-reminders/internal/domain"
)

// MemoryStore is a hand-written, in-memory Store. It backs unit tests and the
// single-process mode; one mutex gives Claim its atomicity.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job

	// Optional error overrides, set in tests to simulate failure paths.
	InsertErr error
	ClaimErr  error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*domain.Job)}
}

func (m *MemoryStore) Insert(_ context.Context, job *domain.Job) (*domain.Job, error) {
	if m.InsertErr != nil {
		return nil, m.InsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.jobs[job.ID]; ok {
		return cloneJob(existing), nil
	}
	m.jobs[job.ID] = cloneJob(job)
	return cloneJob(job), nil
}

func (m *MemoryStore) Claim(_ context.Context, kind domain.JobKind, now time.Time, limit int, lease time.Duration) ([]*domain.Job, error) {
	if m.ClaimErr != nil {
		return nil, m.ClaimErr
	}
	if limit <= 0 {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []*domain.Job
	for _, j := range m.jobs {
		if j.Kind == kind && j.Status == domain.JobPending && !j.RunAt.After(now) {
			due = append(due, j)
		}
	}
	sort.Slice(due, func(a, b int) bool {
		if !due[a].RunAt.Equal(due[b].RunAt) {
			return due[a].RunAt.Before(due[b].RunAt)
		}
		return due[a].CreatedAt.Before(due[b].CreatedAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}

	lockedUntil := now.Add(lease)
	claimed := make([]*domain.Job, len(due))
	for i, j := range due {
		j.Status = domain.JobActive
		j.Attempts++
		j.LockedUntil = &lockedUntil
		j.UpdatedAt = now
		claimed[i] = cloneJob(j)
	}
	return claimed, nil
}

// active returns the stored job only if it is still held by the given claim.
// Callers must hold m.mu.
func (m *MemoryStore) active(job *domain.Job) (*domain.Job, error) {
	j, ok := m.jobs[job.ID]
	if !ok || j.Status != domain.JobActive || j.Attempts != job.Attempts {
		return nil, domain.ErrNotFound
	}
	return j, nil
}

func (m *MemoryStore) Complete(_ context.Context, job *domain.Job, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, err := m.active(job)
	if err != nil {
		return err
	}
	j.Status = domain.JobCompleted
	j.LockedUntil = nil
	j.CompletedAt = &at
	j.UpdatedAt = at
	return nil
}

func (m *MemoryStore) Retry(_ context.Context, job *domain.Job, runAt time.Time, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, err := m.active(job)
	if err != nil {
		return err
	}
	j.Status = domain.JobPending
	j.RunAt = runAt
	j.LockedUntil = nil
	j.LastError = &errMsg
	j.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) Fail(_ context.Context, job *domain.Job, errMsg string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, err := m.active(job)
	if err != nil {
		return err
	}
	j.Status = domain.JobFailed
	j.LockedUntil = nil
	j.LastError = &errMsg
	j.UpdatedAt = at
	return nil
}

func (m *MemoryStore) FindExpired(_ context.Context, now time.Time, limit int) ([]*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Job
	for _, j := range m.jobs {
		if len(out) >= limit {
			break
		}
		if j.Status == domain.JobActive && j.LockedUntil != nil && j.LockedUntil.Before(now) {
			out = append(out, cloneJob(j))
		}
	}
	return out, nil
}

func (m *MemoryStore) PurgeCompleted(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, j := range m.jobs {
		if j.Status == domain.JobCompleted && j.CompletedAt != nil && j.CompletedAt.Before(before) {
			delete(m.jobs, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneJob(j), nil
}

func (m *MemoryStore) Counts(_ context.Context) (map[domain.JobStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[domain.JobStatus]int, 4)
	for _, j := range m.jobs {
		counts[j.Status]++
	}
	return counts, nil
}

// Jobs returns every stored job of kind, oldest first.
func (m *MemoryStore) Jobs(kind domain.JobKind) []*domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Job
	for _, j := range m.jobs {
		if j.Kind == kind {
			out = append(out, cloneJob(j))
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.Before(out[b].CreatedAt)
		}
		return out[a].ID < out[b].ID
	})
	return out
}

func cloneJob(j *domain.Job) *domain.Job {
	c := *j
	if j.LockedUntil != nil {
		t := *j.LockedUntil
		c.LockedUntil = &t
	}
	if j.LastError != nil {
		s := *j.LastError
		c.LastError = &s
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	c.Payload = append([]byte(nil), j.Payload...)
	return &c
}
