package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/notifyhub/activity-reminders/internal/domain"
	"github.com/notifyhub/activity-reminders/internal/queue"
	"github.com/notifyhub/activity-reminders/internal/queue/queuetest"
)

func TestMemoryStore(t *testing.T) {
	queuetest.RunStoreTests(t, func(*testing.T) queue.Store {
		return queue.NewMemoryStore()
	})
}

func TestMemoryStore_InjectedErrors(t *testing.T) {
	st := queue.NewMemoryStore()
	ctx := context.Background()
	down := errors.New("connection refused")

	st.InsertErr = down
	if _, err := st.Insert(ctx, queuetest.PendingJob("j", domain.KindProcessNotification, epoch)); !errors.Is(err, down) {
		t.Fatalf("expected injected insert error, got %v", err)
	}

	st.InsertErr = nil
	st.ClaimErr = down
	_, _ = st.Insert(ctx, queuetest.PendingJob("j", domain.KindProcessNotification, epoch))
	if _, err := st.Claim(ctx, domain.KindProcessNotification, epoch, 1, time.Minute); !errors.Is(err, down) {
		t.Fatalf("expected injected claim error, got %v", err)
	}
}

func TestMemoryStore_JobsReturnsCopies(t *testing.T) {
	st := queue.NewMemoryStore()
	_, _ = st.Insert(context.Background(), queuetest.PendingJob("j", domain.KindProcessNotification, epoch))

	jobs := st.Jobs(domain.KindProcessNotification)
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	jobs[0].Status = domain.JobFailed

	got, _ := st.Get(context.Background(), "j")
	if got.Status != domain.JobPending {
		t.Fatalf("mutating a snapshot changed the store: %s", got.Status)
	}
}
