package store

import (
	"context"
	"sync"

	"github.com/notifyhub/activity-reminders/internal/domain"
)

// Memory is a process-local NotificationStore. Records are held oldest-first
// behind one mutex; reads walk the slice backwards. Callers never see the
// stored pointers, only copies.
type Memory struct {
	mu       sync.Mutex
	capacity int
	records  []*domain.NotificationRecord
}

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Memory{
		capacity: capacity,
		records:  make([]*domain.NotificationRecord, 0, capacity+1),
	}
}

func (m *Memory) Append(_ context.Context, rec *domain.NotificationRecord) error {
	clone := *rec

	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, &clone)
	if over := len(m.records) - m.capacity; over > 0 {
		// Shift in place so the backing array does not grow without bound.
		n := copy(m.records, m.records[over:])
		for i := n; i < len(m.records); i++ {
			m.records[i] = nil
		}
		m.records = m.records[:n]
	}
	return nil
}

func (m *Memory) List(_ context.Context, limit, offset int) ([]*domain.NotificationRecord, error) {
	if err := checkRange(limit, offset); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.NotificationRecord, 0, min(limit, len(m.records)))
	for i := len(m.records) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		clone := *m.records[i]
		out = append(out, &clone)
	}
	return out, nil
}

func (m *Memory) MarkRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.records {
		if r.ID == id {
			r.Read = true
			return nil
		}
	}
	return nil
}

func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records), nil
}
