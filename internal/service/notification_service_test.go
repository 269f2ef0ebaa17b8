package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/activity-reminders/internal/domain"
	"github.com/notifyhub/activity-reminders/internal/queue"
	"github.com/notifyhub/activity-reminders/internal/service"
	"github.com/notifyhub/activity-reminders/internal/store"
	"github.com/notifyhub/activity-reminders/internal/week"
)

func newNotificationService() (*service.NotificationService, *store.Memory, *queue.MemoryStore) {
	st := store.NewMemory(store.DefaultCapacity)
	jobs := queue.NewMemoryStore()
	q := queue.New(jobs, queue.Config{}, zap.NewNop())
	svc := service.NewNotificationService(st, q, week.New(time.UTC), func() time.Time { return onTime }, zap.NewNop())
	return svc, st, jobs
}

func seed(t *testing.T, st store.NotificationStore, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		err := st.Append(context.Background(), &domain.NotificationRecord{
			ID:      fmt.Sprintf("n-%d", i),
			Type:    domain.TypeActivityLogSubmitted,
			Subject: fmt.Sprintf("Activity Log Submitted - Week %d", i),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestNotificationService_ListNewestFirst(t *testing.T) {
	svc, st, _ := newNotificationService()
	seed(t, st, 3)

	got, err := svc.List(context.Background(), 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(got))
	}
	for i, want := range []string{"n-3", "n-2", "n-1"} {
		if got[i].ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, got[i].ID)
		}
	}
}

func TestNotificationService_ListInvalidRange(t *testing.T) {
	svc, _, _ := newNotificationService()
	if _, err := svc.List(context.Background(), -1, 0); !errors.Is(err, domain.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestNotificationService_MarkRead(t *testing.T) {
	svc, st, _ := newNotificationService()
	seed(t, st, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := svc.MarkRead(ctx, "n-1"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if err := svc.MarkRead(ctx, "does-not-exist"); err != nil {
		t.Fatalf("absent id should be a no-op, got %v", err)
	}

	got, _ := svc.List(ctx, 10, 0)
	if got[0].Read || !got[1].Read {
		t.Fatalf("expected only n-1 read, got %v/%v", got[0].Read, got[1].Read)
	}
}

func TestNotificationService_QueueReminderScan(t *testing.T) {
	t.Run("current week by default", func(t *testing.T) {
		svc, _, jobs := newNotificationService()
		job, err := svc.QueueReminderScan(context.Background(), 0)
		if err != nil {
			t.Fatal(err)
		}
		if job.Kind != domain.KindCheckMissingSubmissions {
			t.Fatalf("unexpected kind %s", job.Kind)
		}
		var p domain.ReminderScanPayload
		if err := jobs.Jobs(domain.KindCheckMissingSubmissions)[0].Decode(&p); err != nil {
			t.Fatal(err)
		}
		// Feb 4 is day 35.
		if p.WeekNumber != 5 {
			t.Fatalf("expected week 5, got %d", p.WeekNumber)
		}
	})

	t.Run("explicit week", func(t *testing.T) {
		svc, _, jobs := newNotificationService()
		if _, err := svc.QueueReminderScan(context.Background(), 12); err != nil {
			t.Fatal(err)
		}
		var p domain.ReminderScanPayload
		if err := jobs.Jobs(domain.KindCheckMissingSubmissions)[0].Decode(&p); err != nil {
			t.Fatal(err)
		}
		if p.WeekNumber != 12 {
			t.Fatalf("expected week 12, got %d", p.WeekNumber)
		}
	})

	t.Run("invalid week", func(t *testing.T) {
		svc, _, jobs := newNotificationService()
		if _, err := svc.QueueReminderScan(context.Background(), 60); !errors.Is(err, domain.ErrInvalidWeek) {
			t.Fatalf("expected ErrInvalidWeek, got %v", err)
		}
		if n := len(jobs.Jobs(domain.KindCheckMissingSubmissions)); n != 0 {
			t.Fatalf("expected no job, got %d", n)
		}
	})

	t.Run("queue unavailable", func(t *testing.T) {
		svc, _, jobs := newNotificationService()
		jobs.InsertErr = errors.New("down")
		if _, err := svc.QueueReminderScan(context.Background(), 3); !errors.Is(err, domain.ErrQueueUnavailable) {
			t.Fatalf("expected ErrQueueUnavailable, got %v", err)
		}
	})
}
