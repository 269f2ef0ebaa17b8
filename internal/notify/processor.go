// Package notify turns process-notification jobs into manager-facing
// notification records.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/activity-reminders/internal/domain"
	"github.com/notifyhub/activity-reminders/internal/queue"
	"github.com/notifyhub/activity-reminders/internal/repository"
	"github.com/notifyhub/activity-reminders/internal/store"
)

// Processor is the handler for domain.KindProcessNotification.
type Processor struct {
	repo     repository.CourseRepository
	store    store.NotificationStore
	logger   *zap.Logger
	now      func() time.Time
	onStored func(domain.NotificationType)
}

// NewProcessor wires the processor. onStored is optional (nil = no-op).
func NewProcessor(
	repo repository.CourseRepository,
	st store.NotificationStore,
	logger *zap.Logger,
	onStored func(domain.NotificationType),
) *Processor {
	if onStored == nil {
		onStored = func(domain.NotificationType) {}
	}
	return &Processor{repo: repo, store: st, logger: logger, now: time.Now, onStored: onStored}
}

// Handle resolves the facilitator and offering, renders the message and
// appends the record. Lookup failures are retryable: the record that
// triggered the job may not be visible to this read yet.
func (p *Processor) Handle(ctx context.Context, job *domain.Job) error {
	var payload domain.NotificationPayload
	if err := job.Decode(&payload); err != nil {
		return err
	}
	if !payload.Type.IsValid() {
		return queue.Permanent(fmt.Errorf("%w: %q", domain.ErrUnknownNotificationType, payload.Type))
	}

	facilitator, err := p.repo.GetFacilitator(ctx, payload.FacilitatorID)
	if err != nil {
		return fmt.Errorf("%w: facilitator %s: %w", domain.ErrReferenceNotFound, payload.FacilitatorID, err)
	}
	offering, err := p.repo.GetCourseOffering(ctx, payload.AllocationID)
	if err != nil {
		return fmt.Errorf("%w: course offering %s: %w", domain.ErrReferenceNotFound, payload.AllocationID, err)
	}

	subject, message, err := Render(payload, facilitator, offering)
	if err != nil {
		return queue.Permanent(err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate notification id: %w", err)
	}

	ts := p.now().UTC()
	if payload.SubmittedAt != nil {
		ts = payload.SubmittedAt.UTC()
	}

	rec := &domain.NotificationRecord{
		ID:               id.String(),
		Type:             payload.Type,
		Subject:          subject,
		Message:          message,
		FacilitatorID:    facilitator.ID,
		FacilitatorName:  facilitator.FullName(),
		FacilitatorEmail: facilitator.Email,
		CourseCode:       offering.ModuleCode,
		CourseName:       offering.ModuleName,
		WeekNumber:       payload.WeekNumber,
		IsLate:           payload.IsLate,
		Timestamp:        ts,
	}

	if err := p.store.Append(ctx, rec); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	p.onStored(rec.Type)
	p.logger.Info("notification stored",
		zap.String("job_id", job.ID),
		zap.String("notification_id", rec.ID),
		zap.String("type", string(rec.Type)),
		zap.Int("week", rec.WeekNumber),
		zap.Bool("is_late", rec.IsLate),
	)
	return nil
}
