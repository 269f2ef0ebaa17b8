package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/activity-reminders/internal/domain"
	"github.com/notifyhub/activity-reminders/internal/queue"
	"github.com/notifyhub/activity-reminders/internal/repository"
	"github.com/notifyhub/activity-reminders/internal/week"
)

// SubmissionService records facilitator activity logs and queues the
// manager notification for each one.
type SubmissionService struct {
	repo   repository.CourseRepository
	enq    queue.Enqueuer
	calc   week.Calculator
	now    func() time.Time
	logger *zap.Logger
}

// NewSubmissionService wires the service. now may be nil.
func NewSubmissionService(
	repo repository.CourseRepository,
	enq queue.Enqueuer,
	calc week.Calculator,
	now func() time.Time,
	logger *zap.Logger,
) *SubmissionService {
	if now == nil {
		now = time.Now
	}
	return &SubmissionService{repo: repo, enq: enq, calc: calc, now: now, logger: logger}
}

// Submit validates and stores the activity log, then enqueues an
// activity_log_submitted notification.
//
// The record is committed before the enqueue. When the enqueue fails the
// record is returned together with an error wrapping
// domain.ErrQueueUnavailable, so the caller knows the log was saved but no
// notification is on its way.
func (s *SubmissionService) Submit(
	ctx context.Context,
	req domain.SubmitActivityLogRequest,
) (*domain.ActivityRecord, *domain.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	offering, err := s.repo.GetCourseOffering(ctx, req.AllocationID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, domain.ErrAllocationNotAssigned
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load course offering: %w", err)
	}
	if !offering.Active || offering.FacilitatorID != req.FacilitatorID {
		return nil, nil, domain.ErrAllocationNotAssigned
	}

	existing, err := s.repo.FindActivityRecord(ctx, req.AllocationID, req.WeekNumber)
	if err != nil {
		return nil, nil, fmt.Errorf("check existing submission: %w", err)
	}
	if existing != nil {
		return nil, nil, domain.ErrDuplicateSubmission
	}

	submittedAt := s.now().UTC()
	rec := &domain.ActivityRecord{
		ID:            uuid.New().String(),
		AllocationID:  req.AllocationID,
		FacilitatorID: req.FacilitatorID,
		WeekNumber:    req.WeekNumber,
		Notes:         req.Notes,
		SubmittedAt:   submittedAt,
		IsLate:        s.calc.IsLate(submittedAt, req.WeekNumber),
	}

	if err := s.repo.CreateActivityRecord(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrDuplicateSubmission) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("persist activity record: %w", err)
	}

	job, err := s.enq.Enqueue(ctx, domain.KindProcessNotification, domain.NotificationPayload{
		Type:          domain.TypeActivityLogSubmitted,
		FacilitatorID: rec.FacilitatorID,
		AllocationID:  rec.AllocationID,
		WeekNumber:    rec.WeekNumber,
		IsLate:        rec.IsLate,
		SubmittedAt:   &submittedAt,
	})
	if err != nil {
		s.logger.Error("activity log saved but notification not queued",
			zap.String("record_id", rec.ID), zap.Error(err))
		return rec, nil, err
	}

	s.logger.Info("activity log submitted",
		zap.String("record_id", rec.ID),
		zap.String("allocation_id", rec.AllocationID),
		zap.Int("week", rec.WeekNumber),
		zap.Bool("is_late", rec.IsLate),
		zap.String("job_id", job.ID),
	)
	return rec, job, nil
}
