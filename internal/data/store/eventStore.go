package store

import "context"

// EventStore keeps the ordered turn events of each session as opaque JSON records.
type EventStore interface {
	Append(ctx context.Context, sessionId string, record []byte) error
	List(ctx context.Context, sessionId string) ([][]byte, error)
	Delete(ctx context.Context, sessionId string) error
}
