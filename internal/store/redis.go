package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/notifyhub/activity-reminders/internal/domain"
)

// DefaultKey is the logical name of the manager notification list.
const DefaultKey = "notifications:managers"

// Each mutation runs as a single Lua script so append+trim and mark-read are
// serialized server-side. All keys share one hash tag and land in the same
// cluster slot.
//
// KEYS[1] list of ids, newest first
// KEYS[2] hash id -> record JSON
// KEYS[3] set of read ids
var (
	appendScript = redis.NewScript(`
redis.call('HSET', KEYS[2], ARGV[1], ARGV[2])
redis.call('LPUSH', KEYS[1], ARGV[1])
local cap = tonumber(ARGV[3])
while redis.call('LLEN', KEYS[1]) > cap do
  local old = redis.call('RPOP', KEYS[1])
  redis.call('HDEL', KEYS[2], old)
  redis.call('SREM', KEYS[3], old)
end
return redis.call('LLEN', KEYS[1])
`)

	markReadScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[2], ARGV[1]) == 1 then
  return redis.call('SADD', KEYS[3], ARGV[1])
end
return 0
`)

	listScript = redis.NewScript(`
local ids = redis.call('LRANGE', KEYS[1], ARGV[1], ARGV[2])
local out = {}
for _, id in ipairs(ids) do
  local rec = redis.call('HGET', KEYS[2], id)
  if rec then
    out[#out + 1] = rec
    out[#out + 1] = redis.call('SISMEMBER', KEYS[3], id)
  end
end
return out
`)
)

// Redis is a NotificationStore shared by every process pointed at the same
// Redis instance.
type Redis struct {
	rdb      *redis.Client
	keys     []string
	capacity int
	logger   *zap.Logger
}

func NewRedis(rdb *redis.Client, key string, capacity int, logger *zap.Logger) *Redis {
	if key == "" {
		key = DefaultKey
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	tagged := "{" + key + "}"
	return &Redis{
		rdb:      rdb,
		keys:     []string{tagged, tagged + ":records", tagged + ":read"},
		capacity: capacity,
		logger:   logger,
	}
}

func (s *Redis) Append(ctx context.Context, rec *domain.NotificationRecord) error {
	clone := *rec
	clone.Read = false
	data, err := json.Marshal(&clone)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	size, err := appendScript.Run(ctx, s.rdb, s.keys, rec.ID, data, s.capacity).Int()
	if err != nil {
		return fmt.Errorf("append notification: %w", err)
	}

	s.logger.Debug("notification appended",
		zap.String("notification_id", rec.ID),
		zap.Int("size", size),
	)
	return nil
}

func (s *Redis) List(ctx context.Context, limit, offset int) ([]*domain.NotificationRecord, error) {
	if err := checkRange(limit, offset); err != nil {
		return nil, err
	}
	if limit == 0 {
		return []*domain.NotificationRecord{}, nil
	}

	raw, err := listScript.Run(ctx, s.rdb, s.keys, offset, offset+limit-1).Slice()
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	out := make([]*domain.NotificationRecord, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		data, _ := raw[i].(string)
		var rec domain.NotificationRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			s.logger.Error("skipping undecodable notification", zap.Error(err))
			continue
		}
		read, _ := raw[i+1].(int64)
		rec.Read = read == 1
		out = append(out, &rec)
	}
	return out, nil
}

func (s *Redis) MarkRead(ctx context.Context, id string) error {
	if err := markReadScript.Run(ctx, s.rdb, s.keys, id).Err(); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func (s *Redis) Len(ctx context.Context) (int, error) {
	n, err := s.rdb.LLen(ctx, s.keys[0]).Result()
	if err != nil {
		return 0, fmt.Errorf("notification store length: %w", err)
	}
	return int(n), nil
}
