package trace

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/akolanti/ThreadQA/internal/data/store"
	"github.com/akolanti/ThreadQA/pkg/logger_i"
)

type EventType string

const (
	QueryReceived     EventType = "query_received"
	QueryRewritten    EventType = "query_rewritten"
	RetrievalComplete EventType = "retrieval_complete"
	AnswerGenerated   EventType = "answer_generated"
)

// Event carries enough of one turn step to reconstruct the decision without re-running it.
type Event struct {
	Type      EventType      `json:"type"`
	TraceID   string         `json:"trace_id"`
	SessionID string         `json:"session_id"`
	ThreadID  string         `json:"thread_id"`
	Timestamp time.Time      `json:"timestamp"`
	Fields    map[string]any `json:"fields"`
}

// Sink errors are reported to the caller but must never abort a turn.
type Sink interface {
	Emit(ctx context.Context, e Event) error
}

type LogSink struct {
	logger *logger_i.Logger
}

func NewLogSink() *LogSink {
	return &LogSink{logger: logger_i.NewLogger("trace")}
}

func (s *LogSink) Emit(ctx context.Context, e Event) error {
	args := []any{"event", string(e.Type), "sessionId", e.SessionID, "threadId", e.ThreadID}
	for k, v := range e.Fields {
		args = append(args, k, v)
	}
	s.logger.FromContext(ctx).Info("turn event", args...)
	return nil
}

// StoreSink persists events as JSON records in an EventStore, keyed by session.
type StoreSink struct {
	store store.EventStore
}

func NewStoreSink(s store.EventStore) *StoreSink {
	return &StoreSink{store: s}
}

func (s *StoreSink) Emit(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.store.Append(ctx, e.SessionID, data)
}

// Events decodes what was stored for a session. Records that no longer decode are skipped.
func (s *StoreSink) Events(ctx context.Context, sessionId string) ([]Event, error) {
	records, err := s.store.List(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(records))
	for _, r := range records {
		var e Event
		if json.Unmarshal(r, &e) == nil {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *StoreSink) Forget(ctx context.Context, sessionId string) error {
	return s.store.Delete(ctx, sessionId)
}

// MultiSink fans out to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
