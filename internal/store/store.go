// Package store holds the manager-facing notification list: a capacity-bounded,
// most-recent-first collection of notification records.
package store

import (
	"context"

	"github.com/notifyhub/activity-reminders/internal/domain"
)

// DefaultCapacity is the number of records kept before the oldest is evicted.
const DefaultCapacity = 100

// NotificationStore is the single synchronization point for notification
// records. Append and MarkRead are the only mutations; both are atomic with
// respect to each other and to eviction.
// The in-memory implementation is in memory.go; the Redis one in redis.go.
type NotificationStore interface {
	// Append inserts rec as the most recent record and evicts the oldest
	// records beyond capacity.
	Append(ctx context.Context, rec *domain.NotificationRecord) error
	// List returns up to limit records, most recent first, skipping offset.
	List(ctx context.Context, limit, offset int) ([]*domain.NotificationRecord, error)
	// MarkRead flags the record with the given id as read. An absent id is
	// not an error: the record may already have been evicted.
	MarkRead(ctx context.Context, id string) error
	Len(ctx context.Context) (int, error)
}

func checkRange(limit, offset int) error {
	if limit < 0 || offset < 0 {
		return domain.ErrInvalidRange
	}
	return nil
}
