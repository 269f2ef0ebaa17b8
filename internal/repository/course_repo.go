package repository

import (
	"context"

	"github.com/notifyhub/activity-reminders/internal/domain"
)

// CourseRepository is the narrow read interface over the relational store,
// plus the single write Submission Ingest needs.
// The pgx implementation is in pg_course_repo.go.
// Tests use a hand-written mock (mock_course_repo.go).
type CourseRepository interface {
	GetFacilitator(ctx context.Context, id string) (*domain.Facilitator, error)
	GetCourseOffering(ctx context.Context, id string) (*domain.CourseOffering, error)
	ListActiveCourseOfferings(ctx context.Context) ([]*domain.CourseOffering, error)
	// FindActivityRecord returns (nil, nil) when no record exists for the pair.
	FindActivityRecord(ctx context.Context, allocationID string, weekNumber int) (*domain.ActivityRecord, error)
	// CreateActivityRecord fails with domain.ErrDuplicateSubmission when a
	// record already exists for (AllocationID, WeekNumber).
	CreateActivityRecord(ctx context.Context, rec *domain.ActivityRecord) error
}
