package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/ThreadQA/internal/adapter/utils"
	"github.com/akolanti/ThreadQA/internal/config"
	"github.com/akolanti/ThreadQA/internal/domain/commonModels"
	"github.com/akolanti/ThreadQA/internal/metrics"
	"github.com/akolanti/ThreadQA/internal/rag/answer"
	"github.com/akolanti/ThreadQA/internal/rag/index"
	"github.com/akolanti/ThreadQA/internal/rag/llm"
	"github.com/akolanti/ThreadQA/internal/rag/memory"
	"github.com/akolanti/ThreadQA/internal/rag/retrieval"
	"github.com/akolanti/ThreadQA/internal/rag/rewrite"
	"github.com/akolanti/ThreadQA/internal/trace"
	"github.com/akolanti/ThreadQA/pkg/logger_i"
)

// Service is the process-local session store. Handlers only talk to this.
type Service interface {
	StartSession(ctx context.Context, threadId string) (string, error)
	Ask(ctx context.Context, sessionId, question string, topK int) (TurnResult, error)
	ResetSession(ctx context.Context, sessionId string) error
	EndSession(ctx context.Context, sessionId string) error
	Events(ctx context.Context, sessionId string) ([]trace.Event, error)
	Threads() []index.ThreadInfo
	SessionCount() int
	EvictIdle(maxIdle time.Duration) int
	StartJanitor(ctx context.Context, interval, maxIdle time.Duration)
}

// EventLog exposes stored turn events; *trace.StoreSink implements it.
type EventLog interface {
	Events(ctx context.Context, sessionId string) ([]trace.Event, error)
	Forget(ctx context.Context, sessionId string) error
}

type Dependencies struct {
	Catalog   *index.Catalog
	Provider  llm.Provider
	Fusion    retrieval.FusionConfig
	MaxTurns  int
	Extractor memory.Extractor
	Answer    answer.Options
	Sink      trace.Sink
	Events    EventLog
}

type service struct {
	deps     Dependencies
	rewriter QueryRewriter
	composer answer.Composer

	mu       sync.RWMutex
	sessions map[string]*ThreadSession
	logger   *logger_i.Logger
}

func NewService(deps Dependencies) Service {
	if deps.MaxTurns < 1 {
		deps.MaxTurns = config.MemoryMaxTurns
	}
	return &service{
		deps:     deps,
		rewriter: rewrite.New(deps.Provider),
		composer: answer.NewComposer(deps.Provider, deps.Answer),
		sessions: make(map[string]*ThreadSession),
		logger:   logger_i.NewLogger("session_service"),
	}
}

func (s *service) StartSession(ctx context.Context, threadId string) (string, error) {
	idx, err := s.deps.Catalog.Get(threadId)
	if err != nil {
		return "", err
	}

	id := utils.GetNewUUID()
	sess := NewThreadSession(
		id,
		threadId,
		retrieval.ForIndex(idx, s.deps.Fusion),
		memory.NewManager(s.deps.MaxTurns, s.deps.Extractor),
		s.rewriter,
		s.composer,
		s.deps.Sink,
	)

	s.mu.Lock()
	s.sessions[id] = sess
	count := len(s.sessions)
	s.mu.Unlock()

	metrics.SetActiveSessions(count)
	s.logger.FromContext(ctx).Info("session started", "sessionId", id, "threadId", threadId)
	return id, nil
}

func (s *service) get(sessionId string) (*ThreadSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionId]
	if !ok {
		return nil, fmt.Errorf("%w: %s", commonModels.ErrUnknownSession, sessionId)
	}
	return sess, nil
}

func (s *service) Ask(ctx context.Context, sessionId, question string, topK int) (TurnResult, error) {
	sess, err := s.get(sessionId)
	if err != nil {
		return TurnResult{}, err
	}
	return sess.Ask(ctx, question, topK)
}

func (s *service) ResetSession(ctx context.Context, sessionId string) error {
	sess, err := s.get(sessionId)
	if err != nil {
		return err
	}
	sess.Reset()
	return nil
}

// EndSession drops the session; later calls with its id fail with ErrUnknownSession.
// An in-flight turn on the dropped session still completes.
func (s *service) EndSession(ctx context.Context, sessionId string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionId]
	delete(s.sessions, sessionId)
	count := len(s.sessions)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", commonModels.ErrUnknownSession, sessionId)
	}
	metrics.SetActiveSessions(count)
	sess.close()
	s.forget(ctx, sessionId)
	s.logger.FromContext(ctx).Info("session ended", "sessionId", sessionId)
	return nil
}

func (s *service) forget(ctx context.Context, sessionId string) {
	if s.deps.Events == nil {
		return
	}
	if err := s.deps.Events.Forget(ctx, sessionId); err != nil {
		s.logger.Warn("could not drop turn events", "sessionId", sessionId, "error", err)
	}
}

func (s *service) Events(ctx context.Context, sessionId string) ([]trace.Event, error) {
	if _, err := s.get(sessionId); err != nil {
		return nil, err
	}
	if s.deps.Events == nil {
		return []trace.Event{}, nil
	}
	return s.deps.Events.Events(ctx, sessionId)
}

func (s *service) Threads() []index.ThreadInfo {
	return s.deps.Catalog.Threads()
}

func (s *service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// EvictIdle removes sessions untouched for longer than maxIdle and returns how many were removed.
func (s *service) EvictIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	var evicted []*ThreadSession
	for id, sess := range s.sessions {
		if sess.LastUsed().Before(cutoff) {
			delete(s.sessions, id)
			evicted = append(evicted, sess)
		}
	}
	count := len(s.sessions)
	s.mu.Unlock()

	if len(evicted) > 0 {
		for _, sess := range evicted {
			sess.close()
			s.forget(context.Background(), sess.ID())
		}
		metrics.SetActiveSessions(count)
		s.logger.Info("evicted idle sessions", "evicted", len(evicted), "remaining", count)
	}
	return len(evicted)
}

// StartJanitor evicts idle sessions every interval until ctx is cancelled.
func (s *service) StartJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("session janitor stopped")
				return
			case <-ticker.C:
				s.EvictIdle(maxIdle)
			}
		}
	}()
}
