package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/notifyhub/activity-reminders/internal/domain"
)

var ErrBufferFull = errors.New("dispatch buffer full")

// Buffer holds claimed jobs between the dispatcher and the workers, one
// bounded channel per job kind. Kinds never compete for a slot, so a burst of
// notification jobs cannot starve the reminder scan.
//
// The dispatcher only claims as many jobs as a kind has free slots, which
// keeps the number of leased-but-idle jobs bounded by the buffer size.
type Buffer struct {
	chans map[domain.JobKind]chan *domain.Job
}

// NewBuffer creates one channel per kind with the given capacity.
func NewBuffer(sizes map[domain.JobKind]int) *Buffer {
	chans := make(map[domain.JobKind]chan *domain.Job, len(sizes))
	for kind, size := range sizes {
		chans[kind] = make(chan *domain.Job, size)
	}
	return &Buffer{chans: chans}
}

// Push is non-blocking: a full channel returns ErrBufferFull immediately.
func (b *Buffer) Push(job *domain.Job) error {
	ch, ok := b.chans[job.Kind]
	if !ok {
		return fmt.Errorf("no dispatch buffer for kind %q", job.Kind)
	}
	select {
	case ch <- job:
		return nil
	default:
		return ErrBufferFull
	}
}

// Pop blocks until a job of kind is available or ctx is cancelled.
// Returns (nil, false) on cancellation.
func (b *Buffer) Pop(ctx context.Context, kind domain.JobKind) (*domain.Job, bool) {
	ch, ok := b.chans[kind]
	if !ok {
		<-ctx.Done()
		return nil, false
	}
	select {
	case job := <-ch:
		return job, true
	case <-ctx.Done():
		return nil, false
	}
}

// Free returns the number of jobs of kind that can be pushed without blocking.
func (b *Buffer) Free(kind domain.JobKind) int {
	ch, ok := b.chans[kind]
	if !ok {
		return 0
	}
	return cap(ch) - len(ch)
}

// Depths returns the number of jobs waiting per kind.
func (b *Buffer) Depths() map[domain.JobKind]int {
	out := make(map[domain.JobKind]int, len(b.chans))
	for kind, ch := range b.chans {
		out[kind] = len(ch)
	}
	return out
}
