// Package reminder finds course offerings with no activity log for a week
// and queues a reminder notification for each.
package reminder

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
	"github.com/notifyhub/activity-reminders/internal/scheduler"
	"github.com/notifyhub/activity-reminders/internal/week"
)

// ScheduleName identifies the daily scan in the scheduler.
const ScheduleName = "missing-submission-reminders"

// fanOutNamespace seeds reminder job ids derived from (scan job, allocation).
var fanOutNamespace = uuid.MustParse("d3c5b1f0-8a2e-4f7b-b6a1-5e9c2d4f7a83")

// Scanner is the handler for domain.KindCheckMissingSubmissions.
type Scanner struct {
	repo       repository.CourseRepository
	enq        queue.Enqueuer
	logger     *zap.Logger
	onEnqueued func(n int)
}

// NewScanner wires the scanner. onEnqueued is optional.
func NewScanner(repo repository.CourseRepository, enq queue.Enqueuer, logger *zap.Logger, onEnqueued func(int)) *Scanner {
	if onEnqueued == nil {
		onEnqueued = func(int) {}
	}
	return &Scanner{repo: repo, enq: enq, logger: logger, onEnqueued: onEnqueued}
}

// Handle enqueues one missing_submission_reminder per active offering with
// no record for the week. It returns once the reminders are queued and does
// not wait for them to run.
//
// Reminder job ids are derived from the scan job id, so a retried scan skips
// the reminders it already queued while the next day's scan queues fresh ones.
func (s *Scanner) Handle(ctx context.Context, job *domain.Job) error {
	var payload domain.ReminderScanPayload
	if err := job.Decode(&payload); err != nil {
		return err
	}
	if !domain.ValidWeek(payload.WeekNumber) {
		return queue.Permanent(fmt.Errorf("%w: %d", domain.ErrInvalidWeek, payload.WeekNumber))
	}

	offerings, err := s.repo.ListActiveCourseOfferings(ctx)
	if err != nil {
		return fmt.Errorf("%w: active course offerings: %w", domain.ErrReferenceNotFound, err)
	}

	var errs []error
	enqueued, submitted := 0, 0
	for _, o := range offerings {
		rec, err := s.repo.FindActivityRecord(ctx, o.ID, payload.WeekNumber)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: activity record %s/%d: %w",
				domain.ErrReferenceNotFound, o.ID, payload.WeekNumber, err))
			continue
		}
		if rec != nil {
			submitted++
			continue
		}

		id := uuid.NewSHA1(fanOutNamespace, []byte(job.ID+"/"+o.ID)).String()
		_, err = s.enq.Enqueue(ctx, domain.KindProcessNotification, domain.NotificationPayload{
			Type:          domain.TypeMissingSubmissionReminder,
			FacilitatorID: o.FacilitatorID,
			AllocationID:  o.ID,
			WeekNumber:    payload.WeekNumber,
		}, queue.WithJobID(id))
		if err != nil {
			errs = append(errs, fmt.Errorf("enqueue reminder for %s: %w", o.ID, err))
			continue
		}
		enqueued++
	}

	s.onEnqueued(enqueued)
	s.logger.Info("missing submission scan finished",
		zap.String("job_id", job.ID),
		zap.Int("week", payload.WeekNumber),
		zap.Int("offerings", len(offerings)),
		zap.Int("submitted", submitted),
		zap.Int("reminders_enqueued", enqueued),
		zap.Int("errors", len(errs)),
	)
	return errors.Join(errs...)
}

// RegisterSchedule adds the daily scan. The week is computed when the
// schedule fires, so one registration follows the calendar.
func RegisterSchedule(s *scheduler.Scheduler, spec string, calc week.Calculator) error {
	return s.Register(ScheduleName, spec, domain.KindCheckMissingSubmissions, func(fireAt time.Time) any {
		return domain.ReminderScanPayload{WeekNumber: calc.Number(fireAt)}
	})
}
