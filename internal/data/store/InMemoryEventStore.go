package store

import (
	"context"
	"sync"

	"github.com/akolanti/ThreadQA/internal/config"
)

type InMemoryEventStore struct {
	lock     *sync.RWMutex
	events   map[string][][]byte
	capacity int
}

func InitInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{
		lock:     new(sync.RWMutex),
		events:   make(map[string][][]byte),
		capacity: config.MaxEventsPerSession,
	}
}

func (store *InMemoryEventStore) Append(ctx context.Context, sessionId string, record []byte) error {
	store.lock.Lock()
	defer store.lock.Unlock()
	list := append(store.events[sessionId], append([]byte(nil), record...))
	if over := len(list) - store.capacity; over > 0 {
		list = append([][]byte(nil), list[over:]...)
	}
	store.events[sessionId] = list
	return nil
}

func (store *InMemoryEventStore) List(ctx context.Context, sessionId string) ([][]byte, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()
	out := make([][]byte, len(store.events[sessionId]))
	copy(out, store.events[sessionId])
	return out, nil
}

func (store *InMemoryEventStore) Delete(ctx context.Context, sessionId string) error {
	store.lock.Lock()
	defer store.lock.Unlock()
	delete(store.events, sessionId)
	return nil
}
