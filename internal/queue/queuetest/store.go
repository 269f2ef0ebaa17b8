// Package queuetest holds the behaviour every queue.Store implementation must
// share. Implementations run it from their own tests with a fresh store per
// case.
package queuetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/notifyhub/activity-reminders/internal/domain"
	"github.com/notifyhub/activity-reminders/internal/queue"
)

// Epoch is the clock every case starts from. Whole seconds in UTC, so stores
// with microsecond timestamps compare equal.
var Epoch = time.Date(2025, time.February, 3, 9, 0, 0, 0, time.UTC)

// PendingJob returns a job ready to insert, due at runAt.
func PendingJob(id string, kind domain.JobKind, runAt time.Time) *domain.Job {
	return &domain.Job{
		ID:          id,
		Kind:        kind,
		Payload:     []byte(`{}`),
		Status:      domain.JobPending,
		MaxAttempts: 3,
		BackoffBase: 2 * time.Second,
		RunAt:       runAt,
		CreatedAt:   runAt,
		UpdatedAt:   runAt,
	}
}

// RunStoreTests exercises claim, lease and transition rules against the
// stores newStore returns. newStore must hand back an empty store.
func RunStoreTests(t *testing.T, newStore func(t *testing.T) queue.Store) {
	t.Helper()
	tests := []struct {
		name string
		fn   func(t *testing.T, st queue.Store)
	}{
		{"InsertIsIdempotent", testInsertIsIdempotent},
		{"ClaimOnlyDueJobsOfKind", testClaimOnlyDueJobsOfKind},
		{"ClaimRespectsLimitAndOrder", testClaimRespectsLimitAndOrder},
		{"TransitionsRequireTheSameClaim", testTransitionsRequireTheSameClaim},
		{"FailedJobIsNeverClaimedAgain", testFailedJobIsNeverClaimedAgain},
		{"FindExpiredAndPurge", testFindExpiredAndPurge},
		{"ConcurrentClaimsNeverOverlap", testConcurrentClaimsNeverOverlap},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}

func mustInsert(t *testing.T, st queue.Store, job *domain.Job) {
	t.Helper()
	if _, err := st.Insert(context.Background(), job); err != nil {
		t.Fatalf("insert %s: %v", job.ID, err)
	}
}

func mustClaim(t *testing.T, st queue.Store, kind domain.JobKind, now time.Time, limit int, lease time.Duration) []*domain.Job {
	t.Helper()
	jobs, err := st.Claim(context.Background(), kind, now, limit, lease)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	return jobs
}

func testInsertIsIdempotent(t *testing.T, st queue.Store) {
	ctx := context.Background()
	mustInsert(t, st, PendingJob("j", domain.KindProcessNotification, Epoch))

	dup := PendingJob("j", domain.KindCheckMissingSubmissions, Epoch.Add(time.Hour))
	got, err := st.Insert(ctx, dup)
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != domain.KindProcessNotification || !got.RunAt.Equal(Epoch) {
		t.Fatalf("expected the stored job back, got %s at %s", got.Kind, got.RunAt)
	}
	counts, _ := st.Counts(ctx)
	if counts[domain.JobPending] != 1 {
		t.Fatalf("expected one stored job, got %v", counts)
	}
}

func testClaimOnlyDueJobsOfKind(t *testing.T, st queue.Store) {
	mustInsert(t, st, PendingJob("due", domain.KindProcessNotification, Epoch.Add(-time.Second)))
	mustInsert(t, st, PendingJob("future", domain.KindProcessNotification, Epoch.Add(time.Minute)))
	mustInsert(t, st, PendingJob("other-kind", domain.KindCheckMissingSubmissions, Epoch))

	claimed := mustClaim(t, st, domain.KindProcessNotification, Epoch, 10, time.Minute)
	if len(claimed) != 1 || claimed[0].ID != "due" {
		t.Fatalf("expected only the due job, got %d", len(claimed))
	}
	j := claimed[0]
	if j.Status != domain.JobActive || j.Attempts != 1 {
		t.Fatalf("expected active job on attempt 1, got %s/%d", j.Status, j.Attempts)
	}
	if j.LockedUntil == nil || !j.LockedUntil.Equal(Epoch.Add(time.Minute)) {
		t.Fatalf("expected lease until now+1m, got %v", j.LockedUntil)
	}

	if again := mustClaim(t, st, domain.KindProcessNotification, Epoch, 10, time.Minute); len(again) != 0 {
		t.Fatal("an active job must not be claimed twice")
	}
}

func testClaimRespectsLimitAndOrder(t *testing.T, st queue.Store) {
	for i, id := range []string{"c", "a", "b"} {
		mustInsert(t, st, PendingJob(id, domain.KindProcessNotification, Epoch.Add(time.Duration(i)*time.Second)))
	}

	claimed := mustClaim(t, st, domain.KindProcessNotification, Epoch.Add(time.Hour), 2, time.Minute)
	if len(claimed) != 2 {
		t.Fatalf("expected 2 claimed jobs, got %d", len(claimed))
	}
	ids := map[string]bool{claimed[0].ID: true, claimed[1].ID: true}
	if !ids["c"] || !ids["a"] {
		t.Fatalf("expected the two oldest jobs, got %v", ids)
	}
}

func testTransitionsRequireTheSameClaim(t *testing.T, st queue.Store) {
	ctx := context.Background()
	mustInsert(t, st, PendingJob("j", domain.KindProcessNotification, Epoch))

	first := mustClaim(t, st, domain.KindProcessNotification, Epoch, 1, time.Minute)
	if err := st.Retry(ctx, first[0], Epoch.Add(2*time.Second), "boom"); err != nil {
		t.Fatal(err)
	}

	// A stale claim (attempt 1) cannot complete the job after it was retried.
	if err := st.Complete(ctx, first[0], Epoch); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for stale claim, got %v", err)
	}
	if early := mustClaim(t, st, domain.KindProcessNotification, Epoch.Add(time.Second), 1, time.Minute); len(early) != 0 {
		t.Fatal("job claimed before its retry time")
	}

	second := mustClaim(t, st, domain.KindProcessNotification, Epoch.Add(2*time.Second), 1, time.Minute)
	if len(second) != 1 || second[0].Attempts != 2 {
		t.Fatalf("expected re-claim on attempt 2, got %v", second)
	}
	if err := st.Complete(ctx, second[0], Epoch.Add(3*time.Second)); err != nil {
		t.Fatal(err)
	}

	got, err := st.Get(ctx, "j")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.JobCompleted || got.CompletedAt == nil || got.LockedUntil != nil {
		t.Fatalf("unexpected completed job: %+v", got)
	}
	if got.LastError == nil || *got.LastError != "boom" {
		t.Fatalf("expected last error to be kept, got %v", got.LastError)
	}
	if got.BackoffBase != 2*time.Second || got.MaxAttempts != 3 {
		t.Fatalf("retry policy not preserved: %s/%d", got.BackoffBase, got.MaxAttempts)
	}
}

func testFailedJobIsNeverClaimedAgain(t *testing.T, st queue.Store) {
	ctx := context.Background()
	mustInsert(t, st, PendingJob("j", domain.KindProcessNotification, Epoch))

	claimed := mustClaim(t, st, domain.KindProcessNotification, Epoch, 1, time.Minute)
	if err := st.Fail(ctx, claimed[0], "fatal", Epoch); err != nil {
		t.Fatal(err)
	}
	if err := st.Retry(ctx, claimed[0], Epoch, "late retry"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("failed job must not return to pending, got %v", err)
	}
	if again := mustClaim(t, st, domain.KindProcessNotification, Epoch.Add(time.Hour), 10, time.Minute); len(again) != 0 {
		t.Fatal("failed job was claimed again")
	}
	if _, err := st.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an unknown id, got %v", err)
	}
}

func testFindExpiredAndPurge(t *testing.T, st queue.Store) {
	ctx := context.Background()
	mustInsert(t, st, PendingJob("slow", domain.KindProcessNotification, Epoch))
	mustInsert(t, st, PendingJob("done", domain.KindCheckMissingSubmissions, Epoch))

	mustClaim(t, st, domain.KindProcessNotification, Epoch, 1, time.Second)
	done := mustClaim(t, st, domain.KindCheckMissingSubmissions, Epoch, 1, time.Minute)
	if err := st.Complete(ctx, done[0], Epoch); err != nil {
		t.Fatal(err)
	}

	if expired, _ := st.FindExpired(ctx, Epoch, 10); len(expired) != 0 {
		t.Fatal("lease has not expired yet")
	}
	expired, err := st.FindExpired(ctx, Epoch.Add(2*time.Second), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(expired) != 1 || expired[0].ID != "slow" {
		t.Fatalf("expected the slow job, got %v", expired)
	}

	n, err := st.PurgeCompleted(ctx, Epoch.Add(time.Second))
	if err != nil || n != 1 {
		t.Fatalf("expected 1 purged job, got %d (%v)", n, err)
	}
	if _, err := st.Get(ctx, "done"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatal("purged job still present")
	}

	counts, _ := st.Counts(ctx)
	if counts[domain.JobActive] != 1 || counts[domain.JobCompleted] != 0 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func testConcurrentClaimsNeverOverlap(t *testing.T, st queue.Store) {
	const jobs, claimers = 40, 4
	for i := 0; i < jobs; i++ {
		mustInsert(t, st, PendingJob(fmt.Sprintf("job-%02d", i), domain.KindProcessNotification, Epoch))
	}

	var (
		mu   sync.Mutex
		seen = make(map[string]int)
		wg   sync.WaitGroup
		errs = make(chan error, claimers)
	)
	for c := 0; c < claimers; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				claimed, err := st.Claim(context.Background(), domain.KindProcessNotification, Epoch, 3, time.Minute)
				if err != nil {
					errs <- err
					return
				}
				if len(claimed) == 0 {
					return
				}
				mu.Lock()
				for _, j := range claimed {
					seen[j.ID]++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("claim: %v", err)
	}

	if len(seen) != jobs {
		t.Fatalf("expected %d distinct jobs claimed, got %d", jobs, len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("job %s claimed %d times", id, n)
		}
	}
}
