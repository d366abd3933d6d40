package store

import (
	"context"

	"github.com/akolanti/ThreadQA/internal/config"
	"github.com/akolanti/ThreadQA/internal/data/redisStore"
	"github.com/akolanti/ThreadQA/pkg/logger_i"
)

type RedisEventStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

// GetRedisEventStore returns nil when Redis is unreachable.
func GetRedisEventStore(ctx context.Context, addr, password string) *RedisEventStore {
	s := redisStore.GetRedisStore(ctx, addr, password, config.RedisTraceStore)
	if s == nil {
		return nil
	}
	return TestEventStore(s)
}

// TestEventStore wraps an already connected Store.
func TestEventStore(s *redisStore.Store) *RedisEventStore {
	return &RedisEventStore{
		store:  s,
		logger: logger_i.NewLogger("EventStore"),
	}
}

func eventKey(sessionId string) string {
	return config.RedisTraceKeyPrefix + sessionId
}

func (s *RedisEventStore) Append(ctx context.Context, sessionId string, record []byte) error {
	log := s.logger.FromContext(ctx).With("sessionId", sessionId)
	key := eventKey(sessionId)
	if err := s.store.ListPush(ctx, key, config.RedisTraceStoreTTL, record); err != nil {
		log.Error("error saving event", "error", err)
		return err
	}
	if err := s.store.ListTrim(ctx, key, config.MaxEventsPerSession); err != nil {
		log.Warn("could not trim event list", "error", err)
	}
	return nil
}

func (s *RedisEventStore) List(ctx context.Context, sessionId string) ([][]byte, error) {
	res, err := s.store.ListGetAll(ctx, eventKey(sessionId))
	if err != nil {
		if s.store.IsNil(err) {
			return [][]byte{}, nil
		}
		s.logger.FromContext(ctx).Error("Error getting events", "sessionId", sessionId, "error", err)
		return nil, err
	}
	out := make([][]byte, len(res))
	for i, r := range res {
		out[i] = []byte(r)
	}
	return out, nil
}

func (s *RedisEventStore) Delete(ctx context.Context, sessionId string) error {
	return s.store.Del(ctx, eventKey(sessionId))
}
