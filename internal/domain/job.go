package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// JobKind selects the handler a job is routed to.
type JobKind string

const (
	KindProcessNotification     JobKind = "process-notification"
	KindCheckMissingSubmissions JobKind = "check-missing-submissions"
)

func (k JobKind) IsValid() bool {
	switch k {
	case KindProcessNotification, KindCheckMissingSubmissions:
		return true
	}
	return false
}

// JobStatus tracks the lifecycle of a job.
//
//	pending → active → completed
//	             ↓ ↑
//	           (retry)
//	             ↓
//	           failed (terminal)
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobActive    JobStatus = "active"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Retry defaults: three attempts, 2s base delay doubled per attempt.
const (
	DefaultMaxAttempts = 3
	DefaultBackoffBase = 2 * time.Second
)

// Job is a unit of asynchronous work owned by the job queue.
// Attempts counts claims so far; it is incremented when a worker claims the job.
type Job struct {
	ID          string          `json:"id"`
	Kind        JobKind         `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	Status      JobStatus       `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	BackoffBase time.Duration   `json:"backoff_base"`
	RunAt       time.Time       `json:"run_at"`
	LockedUntil *time.Time      `json:"locked_until,omitempty"`
	LastError   *string         `json:"last_error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// Exhausted reports whether the job has used its whole attempt budget.
func (j *Job) Exhausted() bool {
	return j.Attempts >= j.MaxAttempts
}

// Decode unmarshals the job payload into v.
func (j *Job) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("%w: %s job %s: %v", ErrInvalidPayload, j.Kind, j.ID, err)
	}
	return nil
}
