package session

import (
	"context"
	"time"

	"github.com/akolanti/ThreadQA/internal/domain/commonModels"
	"github.com/akolanti/ThreadQA/internal/metrics"
	"github.com/akolanti/ThreadQA/internal/rag/memory"
	"github.com/akolanti/ThreadQA/internal/rag/rewrite"
	"github.com/akolanti/ThreadQA/internal/trace"
	"go.opentelemetry.io/otel/attribute"
)

func (s *ThreadSession) executeMemoryReadStep(ctx context.Context, res *TurnResult) memory.Context {
	_, span := tracer.Start(ctx, "session.memory_read")
	defer span.End()

	mem := s.memory.Context()
	span.SetAttributes(attribute.Int("memory.turns", len(mem.History)))
	res.advance(MemoryRead)
	return mem
}

func (s *ThreadSession) executeRewriteStep(ctx context.Context, res *TurnResult, mem memory.Context) rewrite.Decision {
	ctx, span := tracer.Start(ctx, "session.rewrite")
	defer span.End()

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("turn_rewrite", time.Since(start)) }()

	decision := s.rewriter.Rewrite(ctx, res.Question, mem)
	res.RewrittenQuery = decision.Effective
	res.Rewritten = decision.Rewritten
	res.RewriteReason = decision.Reason
	res.warn(decision.Warning)
	res.advance(Rewritten)

	span.SetAttributes(attribute.Bool("rewrite.applied", decision.Rewritten), attribute.Bool("rewrite.degraded", decision.Degraded))
	// always emitted so a no-op or failed rewrite is visible in the trace
	s.emit(ctx, s.logger.FromContext(ctx), trace.QueryRewritten, map[string]any{
		"original":  decision.Original,
		"rewritten": decision.Effective,
		"applied":   decision.Rewritten,
		"noop":      !decision.Rewritten,
		"degraded":  decision.Degraded,
		"reason":    decision.Reason,
	})
	return decision
}

func (s *ThreadSession) executeRetrievalStep(ctx context.Context, res *TurnResult, query string, topK int) (commonModels.RankedResult, error) {
	ctx, span := tracer.Start(ctx, "session.retrieve")
	defer span.End()

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("turn_retrieval", time.Since(start)) }()

	result, err := s.retriever.Search(ctx, query, topK)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for _, w := range result.Warnings {
		res.warn(w)
	}
	res.RetrievedChunks = retrievedChunks(result.Ranked)
	res.RetrievedChunkIds = result.Ranked.ChunkIds()
	res.advance(Retrieved)

	span.SetAttributes(attribute.Int("retrieval.count", len(result.Ranked)))
	s.emit(ctx, s.logger.FromContext(ctx), trace.RetrievalComplete, map[string]any{
		"query":         query,
		"chunks":        res.RetrievedChunks,
		"keyword_count": result.KeywordCount,
		"vector_count":  result.VectorCount,
	})
	return result.Ranked, nil
}

func (s *ThreadSession) executeAnswerStep(ctx context.Context, res *TurnResult, query string, ranked commonModels.RankedResult) commonModels.Answer {
	ctx, span := tracer.Start(ctx, "session.answer")
	defer span.End()

	ans := s.composer.Answer(ctx, query, ranked)
	res.AnswerText = ans.Text
	res.Citations = ans.Citations
	res.Grounded = ans.Grounded
	res.Fallback = ans.Fallback
	if ans.Fallback == commonModels.FallbackGenerationFailed {
		res.warn("answer generation failed; returned a fallback answer")
	}
	res.advance(Answered)

	span.SetAttributes(attribute.Int("answer.citations", len(ans.Citations)), attribute.String("answer.fallback", string(ans.Fallback)))
	s.emit(ctx, s.logger.FromContext(ctx), trace.AnswerGenerated, map[string]any{
		"answer":            ans.Text,
		"citations":         ans.Citations,
		"dropped_citations": ans.DroppedCitations,
		"fallback":          string(ans.Fallback),
	})
	return ans
}

// executeMemoryUpdateStep records the user's original question, not the rewrite, alongside the answer.
func (s *ThreadSession) executeMemoryUpdateStep(ctx context.Context, res *TurnResult, question, answerText string) {
	_, span := tracer.Start(ctx, "session.memory_update")
	defer span.End()

	s.memory.Record(question, answerText)
	res.advance(MemoryUpdated)
}
