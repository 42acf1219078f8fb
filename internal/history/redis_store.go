package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps records as JSON under "<prefix><sha256(openid)>:<day>" with a TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed history. Prefix may be empty.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "checkin:"
	}
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) key(openid string, day time.Time) string {
	return r.prefix + subject(openid) + ":" + Day(day)
}

func (r *RedisStore) Save(ctx context.Context, openid string, rec *Record) error {
	if rec.CheckedAt.IsZero() {
		rec.CheckedAt = time.Now()
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(openid, rec.CheckedAt), b, r.ttl).Err()
}

// Get returns nil, nil when nothing was recorded for that day.
func (r *RedisStore) Get(ctx context.Context, openid string, day time.Time) (*Record, error) {
	b, err := r.client.Get(ctx, r.key(openid, day)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
