package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/activity-reminders/internal/domain"
	"github.com/notifyhub/activity-reminders/internal/queue"
	"github.com/notifyhub/activity-reminders/internal/store"
	"github.com/notifyhub/activity-reminders/internal/week"
)

// NotificationService is the manager-facing read path over the notification
// store, plus the manual trigger for a reminder scan.
// HTTP handlers depend on this service, not on the store or queue directly.
type NotificationService struct {
	store  store.NotificationStore
	enq    queue.Enqueuer
	calc   week.Calculator
	now    func() time.Time
	logger *zap.Logger
}

// NewNotificationService wires the service. now may be nil.
func NewNotificationService(
	st store.NotificationStore,
	enq queue.Enqueuer,
	calc week.Calculator,
	now func() time.Time,
	logger *zap.Logger,
) *NotificationService {
	if now == nil {
		now = time.Now
	}
	return &NotificationService{store: st, enq: enq, calc: calc, now: now, logger: logger}
}

// List returns notifications newest first.
func (s *NotificationService) List(ctx context.Context, limit, offset int) ([]*domain.NotificationRecord, error) {
	return s.store.List(ctx, limit, offset)
}

// MarkRead flags the notification as read. Unknown ids are ignored.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	return s.store.MarkRead(ctx, id)
}

// QueueReminderScan enqueues a missing-submission scan for weekNumber, or
// for the current week when weekNumber is 0.
func (s *NotificationService) QueueReminderScan(ctx context.Context, weekNumber int) (*domain.Job, error) {
	if weekNumber == 0 {
		weekNumber = s.calc.Number(s.now())
	}
	if !domain.ValidWeek(weekNumber) {
		return nil, domain.ErrInvalidWeek
	}

	job, err := s.enq.Enqueue(ctx, domain.KindCheckMissingSubmissions, domain.ReminderScanPayload{WeekNumber: weekNumber})
	if err != nil {
		return nil, fmt.Errorf("queue reminder scan: %w", err)
	}

	s.logger.Info("reminder scan queued", zap.String("job_id", job.ID), zap.Int("week", weekNumber))
	return job, nil
}
