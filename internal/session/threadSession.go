package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/ThreadQA/internal/adapter/utils"
	"github.com/akolanti/ThreadQA/internal/config"
	"github.com/akolanti/ThreadQA/internal/domain/commonModels"
	"github.com/akolanti/ThreadQA/internal/metrics"
	"github.com/akolanti/ThreadQA/internal/rag/answer"
	"github.com/akolanti/ThreadQA/internal/rag/memory"
	"github.com/akolanti/ThreadQA/internal/rag/retrieval"
	"github.com/akolanti/ThreadQA/internal/rag/rewrite"
	"github.com/akolanti/ThreadQA/internal/trace"
	"github.com/akolanti/ThreadQA/pkg/logger_i"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("threadqa/session")

// Searcher is the retrieval side of a turn; *retrieval.FusionRetriever satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) (retrieval.Result, error)
}

type QueryRewriter interface {
	Rewrite(ctx context.Context, question string, mem memory.Context) rewrite.Decision
}

// ThreadSession runs one conversation over one thread. Turns are serialized by mu, and Reset takes the same
// lock, so a reset can never interleave with an in-flight memory update.
type ThreadSession struct {
	id       string
	threadId string

	retriever Searcher
	memory    *memory.Manager
	rewriter  QueryRewriter
	composer  answer.Composer
	sink      trace.Sink

	mu       sync.Mutex
	closed   bool
	lastUsed atomic.Int64
	logger   *logger_i.Logger
}

func NewThreadSession(id, threadId string, retriever Searcher, mem *memory.Manager, rewriter QueryRewriter, composer answer.Composer, sink trace.Sink) *ThreadSession {
	s := &ThreadSession{
		id:        id,
		threadId:  threadId,
		retriever: retriever,
		memory:    mem,
		rewriter:  rewriter,
		composer:  composer,
		sink:      sink,
		logger:    logger_i.NewLogger("thread_session").With("sessionId", id, "threadId", threadId),
	}
	s.touch()
	return s
}

func (s *ThreadSession) ID() string       { return s.id }
func (s *ThreadSession) ThreadID() string { return s.threadId }

func (s *ThreadSession) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

func (s *ThreadSession) touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

// Ask drives one turn through every TurnState. Degraded components still produce a result; only invalid input
// or a failing index lookup is returned as an error.
func (s *ThreadSession) Ask(ctx context.Context, question string, topK int) (TurnResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return TurnResult{}, commonModels.ErrEmptyQuestion
	}
	if topK == 0 {
		topK = config.DefaultTopK
	}
	if topK < 1 || topK > config.MaxTopK {
		return TurnResult{}, fmt.Errorf("%w: %d (allowed 1..%d)", commonModels.ErrInvalidTopK, topK, config.MaxTopK)
	}

	// an accepted turn runs to completion even if the caller goes away; provider calls keep their own timeouts
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return TurnResult{}, fmt.Errorf("%w: %s", commonModels.ErrUnknownSession, s.id)
	}
	s.touch()
	defer s.touch()

	traceId, ok := ctx.Value(config.TRACE_ID_KEY).(string)
	if !ok || traceId == "" {
		traceId = utils.GetNewUUID()
		ctx = context.WithValue(ctx, config.TRACE_ID_KEY, traceId)
	}
	log := s.logger.FromContext(ctx)

	ctx, span := tracer.Start(ctx, "session.turn")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", s.id),
		attribute.String("thread.id", s.threadId),
		attribute.Int("top_k", topK),
	)

	start := time.Now()
	res := TurnResult{
		TraceId:   traceId,
		SessionId: s.id,
		ThreadId:  s.threadId,
		Question:  question,
	}

	res.advance(Received)
	s.emit(ctx, log, trace.QueryReceived, map[string]any{"question": question, "top_k": topK})

	mem := s.executeMemoryReadStep(ctx, &res)

	decision := s.executeRewriteStep(ctx, &res, mem)

	ranked, err := s.executeRetrievalStep(ctx, &res, decision.Effective, topK)
	if err != nil {
		log.Error("retrieval failed", "error", err)
		metrics.CaptureTurnMetrics("error", time.Since(start))
		return res, err
	}

	ans := s.executeAnswerStep(ctx, &res, decision.Effective, ranked)

	s.executeMemoryUpdateStep(ctx, &res, question, ans.Text)

	res.advance(Logged)
	outcome := string(ans.Fallback)
	if outcome == "" {
		outcome = string(commonModels.FallbackNone)
	}
	metrics.CaptureTurnMetrics(outcome, time.Since(start))
	span.SetAttributes(attribute.Bool("turn.rewritten", res.Rewritten), attribute.String("turn.outcome", outcome))
	log.Info("turn complete", "rewritten", res.Rewritten, "chunks", len(ranked), "citations", len(ans.Citations), "outcome", outcome)
	return res, nil
}

// Memory returns a detached snapshot of the conversation state.
func (s *ThreadSession) Memory() memory.Context {
	return s.memory.Context()
}

// Reset clears memory and history; the session id stays valid.
func (s *ThreadSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memory.Reset()
	s.touch()
	s.logger.Info("session reset")
}

// close waits out an in-flight turn and refuses any turn queued behind it.
func (s *ThreadSession) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *ThreadSession) emit(ctx context.Context, log *logger_i.Logger, typ trace.EventType, fields map[string]any) {
	if s.sink == nil {
		return
	}
	traceId, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	err := s.sink.Emit(ctx, trace.Event{
		Type:      typ,
		TraceID:   traceId,
		SessionID: s.id,
		ThreadID:  s.threadId,
		Timestamp: time.Now().UTC(),
		Fields:    fields,
	})
	if err != nil {
		log.Warn("trace event not recorded", "event", string(typ), "error", err)
	}
}
