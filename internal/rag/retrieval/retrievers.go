package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/akolanti/ThreadQA/internal/domain/commonModels"
	"github.com/akolanti/ThreadQA/internal/metrics"
	"github.com/akolanti/ThreadQA/internal/rag/index"
)

// Retriever produces one raw ranking, best first.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]commonModels.ScoredChunk, error)
}

type KeywordRetriever struct {
	idx index.ThreadIndex
}

func NewKeywordRetriever(idx index.ThreadIndex) *KeywordRetriever {
	return &KeywordRetriever{idx: idx}
}

func (r *KeywordRetriever) Retrieve(ctx context.Context, query string, k int) ([]commonModels.ScoredChunk, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("keyword_search", time.Since(start)) }()
	return r.idx.KeywordSearch(query, k), nil
}

type VectorRetriever struct {
	idx index.ThreadIndex
}

func NewVectorRetriever(idx index.ThreadIndex) *VectorRetriever {
	return &VectorRetriever{idx: idx}
}

func (r *VectorRetriever) Retrieve(ctx context.Context, query string, k int) ([]commonModels.ScoredChunk, error) {
	embedStart := time.Now()
	vector, err := r.idx.Embed(ctx, query)
	metrics.CaptureExecutionMetrics("embedding", time.Since(embedStart))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	searchStart := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(searchStart)) }()
	return r.idx.VectorSearch(ctx, vector, k)
}
