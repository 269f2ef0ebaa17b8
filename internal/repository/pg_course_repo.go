package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/activity-reminders/internal/domain"
)

type pgCourseRepository struct {
	pool *pgxpool.Pool
}

// NewPgCourseRepository returns a CourseRepository backed by PostgreSQL.
func NewPgCourseRepository(pool *pgxpool.Pool) CourseRepository {
	return &pgCourseRepository{pool: pool}
}

// Ids are UUID columns; anything that does not parse cannot exist.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *pgCourseRepository) GetFacilitator(ctx context.Context, id string) (*domain.Facilitator, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	var f domain.Facilitator
	err := r.pool.QueryRow(ctx, `
		SELECT f.id::text, u.first_name, u.last_name, u.email
		FROM facilitators f
		JOIN users u ON u.id = f.user_id
		WHERE f.id = $1`, id).
		Scan(&f.ID, &f.FirstName, &f.LastName, &f.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get facilitator: %w", err)
	}
	return &f, nil
}

const offeringColumns = `
	o.id::text, o.facilitator_id::text, m.code, m.name, o.is_active`

func (r *pgCourseRepository) GetCourseOffering(ctx context.Context, id string) (*domain.CourseOffering, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
		SELECT`+offeringColumns+`
		FROM course_offerings o
		JOIN modules m ON m.id = o.module_id
		WHERE o.id = $1`, id)

	o, err := scanOffering(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get course offering: %w", err)
	}
	return o, nil
}

func (r *pgCourseRepository) ListActiveCourseOfferings(ctx context.Context) ([]*domain.CourseOffering, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+offeringColumns+`
		FROM course_offerings o
		JOIN modules m ON m.id = o.module_id
		WHERE o.is_active
		ORDER BY m.code, o.id`)
	if err != nil {
		return nil, fmt.Errorf("list active course offerings: %w", err)
	}
	defer rows.Close()

	var result []*domain.CourseOffering
	for rows.Next() {
		o, err := scanOffering(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func (r *pgCourseRepository) FindActivityRecord(ctx context.Context, allocationID string, weekNumber int) (*domain.ActivityRecord, error) {
	if !validID(allocationID) {
		return nil, nil
	}
	var rec domain.ActivityRecord
	var notes *string
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, allocation_id::text, facilitator_id::text, week_number, notes, submitted_at, is_late
		FROM activity_tracker
		WHERE allocation_id = $1 AND week_number = $2`, allocationID, weekNumber).
		Scan(&rec.ID, &rec.AllocationID, &rec.FacilitatorID, &rec.WeekNumber, &notes, &rec.SubmittedAt, &rec.IsLate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find activity record: %w", err)
	}
	if notes != nil {
		rec.Notes = *notes
	}
	return &rec, nil
}

func (r *pgCourseRepository) CreateActivityRecord(ctx context.Context, rec *domain.ActivityRecord) error {
	var notes *string
	if rec.Notes != "" {
		notes = &rec.Notes
	}
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO activity_tracker
			(id, allocation_id, facilitator_id, week_number, notes, submitted_at, is_late)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (allocation_id, week_number) DO NOTHING`,
		rec.ID, rec.AllocationID, rec.FacilitatorID, rec.WeekNumber, notes, rec.SubmittedAt, rec.IsLate,
	)
	if err != nil {
		return fmt.Errorf("insert activity record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicateSubmission
	}
	return nil
}

// scanOffering reads a single offering row from any pgx row type.
func scanOffering(row pgx.Row) (*domain.CourseOffering, error) {
	var o domain.CourseOffering
	if err := row.Scan(&o.ID, &o.FacilitatorID, &o.ModuleCode, &o.ModuleName, &o.Active); err != nil {
		return nil, err
	}
	return &o, nil
}
