package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/activity-reminders/internal/domain"
	"github.com/notifyhub/activity-reminders/internal/queue"
)

type pgJobStore struct {
	pool *pgxpool.Pool
}

// NewPgJobStore returns a queue.Store backed by the jobs table. Claims use
// FOR UPDATE SKIP LOCKED, so any number of processes can share the table
// without two of them running the same job.
func NewPgJobStore(pool *pgxpool.Pool) queue.Store {
	return &pgJobStore{pool: pool}
}

const jobColumns = `
	id, kind, payload, status, attempts, max_attempts, backoff_ms,
	run_at, locked_until, last_error, created_at, updated_at, completed_at`

func (s *pgJobStore) Insert(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO jobs
			(id, kind, payload, status, attempts, max_attempts, backoff_ms, run_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO NOTHING`,
		job.ID, job.Kind, []byte(job.Payload), job.Status, job.Attempts, job.MaxAttempts,
		job.BackoffBase.Milliseconds(), job.RunAt, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.Get(ctx, job.ID)
	}
	clone := *job
	return &clone, nil
}

func (s *pgJobStore) Claim(ctx context.Context, kind domain.JobKind, now time.Time, limit int, lease time.Duration) ([]*domain.Job, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		UPDATE jobs
		SET status = 'active', attempts = attempts + 1, locked_until = $4, updated_at = $3
		WHERE id IN (
			SELECT id FROM jobs
			WHERE kind = $1 AND status = 'pending' AND run_at <= $3
			ORDER BY run_at, created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING`+jobColumns,
		kind, limit, now, now.Add(lease))
	if err != nil {
		return nil, fmt.Errorf("claim jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (s *pgJobStore) Complete(ctx context.Context, job *domain.Job, at time.Time) error {
	return s.transition(ctx, "complete", `
		UPDATE jobs
		SET status = 'completed', locked_until = NULL, completed_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'active' AND attempts = $2`,
		job.ID, job.Attempts, at)
}

func (s *pgJobStore) Retry(ctx context.Context, job *domain.Job, runAt time.Time, errMsg string) error {
	return s.transition(ctx, "retry", `
		UPDATE jobs
		SET status = 'pending', run_at = $3, last_error = $4, locked_until = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'active' AND attempts = $2`,
		job.ID, job.Attempts, runAt, errMsg)
}

func (s *pgJobStore) Fail(ctx context.Context, job *domain.Job, errMsg string, at time.Time) error {
	return s.transition(ctx, "fail", `
		UPDATE jobs
		SET status = 'failed', last_error = $3, locked_until = NULL, updated_at = $4
		WHERE id = $1 AND status = 'active' AND attempts = $2`,
		job.ID, job.Attempts, errMsg, at)
}

// transition runs a guarded status update; no matching row means the claim
// was lost.
func (s *pgJobStore) transition(ctx context.Context, op, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s job: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *pgJobStore) FindExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Job, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT`+jobColumns+`
		FROM jobs
		WHERE status = 'active' AND locked_until < $1
		ORDER BY locked_until
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("find expired jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (s *pgJobStore) PurgeCompleted(ctx context.Context, before time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM jobs WHERE status = 'completed' AND completed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge completed jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *pgJobStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT`+jobColumns+` FROM jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (s *pgJobStore) Counts(ctx context.Context) (map[domain.JobStatus]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.JobStatus]int, 4)
	for rows.Next() {
		var status domain.JobStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// ---- helpers ----

func scanJob(row pgx.Row) (*domain.Job, error) {
	var j domain.Job
	var payload []byte
	var backoffMS int64
	err := row.Scan(
		&j.ID, &j.Kind, &payload, &j.Status, &j.Attempts, &j.MaxAttempts, &backoffMS,
		&j.RunAt, &j.LockedUntil, &j.LastError, &j.CreatedAt, &j.UpdatedAt, &j.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	j.Payload = payload
	j.BackoffBase = time.Duration(backoffMS) * time.Millisecond
	return &j, nil
}

func scanJobs(rows pgx.Rows) ([]*domain.Job, error) {
	var result []*domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, j)
	}
	return result, rows.Err()
}
