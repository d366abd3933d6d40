package redisStore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

func (s *Store) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

func (s *Store) IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

// ListPush appends values and refreshes the key's TTL in one round trip.
func (s *Store) ListPush(ctx context.Context, key string, ttl time.Duration, values ...interface{}) error {
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// ListTrim keeps only the newest max entries.
func (s *Store) ListTrim(ctx context.Context, key string, max int64) error {
	return s.client.LTrim(ctx, key, -max, -1).Err()
}

func (s *Store) ListGetAll(ctx context.Context, key string) ([]string, error) {
	return s.client.LRange(ctx, key, 0, -1).Result()
}
