package dedup

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "jobpilot:fp:"

// RedisStore keeps fingerprints as keys holding their discovery time. Keys
// expire after ttl, but SeenSince still compares the stored time so a
// shorter query window is honoured.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultLookback
	}
	return &RedisStore{client: client, ttl: ttl}
}

// NewRedisStoreFromURL parses a redis:// URL.
func NewRedisStoreFromURL(rawURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}
	return NewRedisStore(redis.NewClient(opts), ttl), nil
}

func (s *RedisStore) SeenSince(ctx context.Context, fp string, since time.Time) (bool, error) {
	v, err := s.client.Get(ctx, redisKeyPrefix+fp).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	ts, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		// unreadable value: treat as seen now
		return true, nil
	}
	return !time.Unix(ts, 0).Before(since), nil
}

// Remember records fp as discovered at at, resetting its expiry.
func (s *RedisStore) Remember(ctx context.Context, fp string, at time.Time) error {
	return s.client.Set(ctx, redisKeyPrefix+fp, strconv.FormatInt(at.Unix(), 10), s.ttl).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
