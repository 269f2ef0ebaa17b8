package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/notifyhub/activity-reminders/internal/domain"
	"github.com/notifyhub/activity-reminders/internal/queue"
)

func job(id string, kind domain.JobKind) *domain.Job {
	return &domain.Job{ID: id, Kind: kind}
}

func newBuffer(size int) *queue.Buffer {
	return queue.NewBuffer(map[domain.JobKind]int{
		domain.KindProcessNotification:     size,
		domain.KindCheckMissingSubmissions: size,
	})
}

func TestBuffer_PushPop(t *testing.T) {
	b := newBuffer(4)
	ctx := context.Background()

	if err := b.Push(job("1", domain.KindProcessNotification)); err != nil {
		t.Fatal(err)
	}
	got, ok := b.Pop(ctx, domain.KindProcessNotification)
	if !ok || got.ID != "1" {
		t.Fatalf("expected job 1, got %v (ok=%v)", got, ok)
	}
}

func TestBuffer_KindsAreIsolated(t *testing.T) {
	b := newBuffer(1)

	_ = b.Push(job("n", domain.KindProcessNotification))
	if err := b.Push(job("n2", domain.KindProcessNotification)); err != queue.ErrBufferFull {
		t.Fatalf("expected ErrBufferFull, got %v", err)
	}
	if err := b.Push(job("s", domain.KindCheckMissingSubmissions)); err != nil {
		t.Fatalf("a full kind must not block another kind: %v", err)
	}

	depths := b.Depths()
	if depths[domain.KindProcessNotification] != 1 || depths[domain.KindCheckMissingSubmissions] != 1 {
		t.Fatalf("unexpected depths: %v", depths)
	}
	if free := b.Free(domain.KindProcessNotification); free != 0 {
		t.Fatalf("expected 0 free slots, got %d", free)
	}
}

func TestBuffer_UnknownKind(t *testing.T) {
	b := queue.NewBuffer(map[domain.JobKind]int{domain.KindProcessNotification: 1})
	if err := b.Push(job("x", domain.KindCheckMissingSubmissions)); err == nil {
		t.Fatal("expected error for kind without a buffer")
	}
	if b.Free(domain.KindCheckMissingSubmissions) != 0 {
		t.Fatal("expected no free slots for kind without a buffer")
	}
}

// TestBuffer_PopReturnsOnCancel verifies Pop returns (nil, false) when the
// context is cancelled while blocking.
func TestBuffer_PopReturnsOnCancel(t *testing.T) {
	b := newBuffer(1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, ok := b.Pop(ctx, domain.KindProcessNotification)
		done <- ok
	}()

	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected ok=false after context cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not return after context cancellation")
	}
}

func TestBuffer_ConcurrentPushPop(t *testing.T) {
	b := newBuffer(16)

	const producers = 4
	const perProducer = 50
	const total = producers * perProducer

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan struct{}, total)
	var consumers sync.WaitGroup
	for i := 0; i < 3; i++ {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for {
				if _, ok := b.Pop(ctx, domain.KindProcessNotification); !ok {
					return
				}
				received <- struct{}{}
			}
		}()
	}

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				for b.Push(job("id", domain.KindProcessNotification)) != nil {
					time.Sleep(time.Millisecond)
				}
			}
		}()
	}
	wg.Wait()

	for i := 0; i < total; i++ {
		select {
		case <-received:
		case <-ctx.Done():
			t.Fatalf("timeout: only received %d/%d jobs", i, total)
		}
	}
	cancel()
	consumers.Wait()
}
