package index

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/akolanti/ThreadQA/internal/config"
	"github.com/akolanti/ThreadQA/internal/domain/commonModels"
	"github.com/akolanti/ThreadQA/internal/rag/embedding"
	"github.com/akolanti/ThreadQA/internal/rag/vectorDB"
)

var ErrNoEmbedder = errors.New("no embedding service configured")

// ThreadIndex is the read-only view of one thread. Implementations must be safe for concurrent readers.
type ThreadIndex interface {
	ThreadID() string
	Chunks() []commonModels.Chunk
	Chunk(chunkId string) (commonModels.Chunk, bool)
	KeywordSearch(query string, k int) []commonModels.ScoredChunk
	VectorSearch(ctx context.Context, vector []float32, k int) ([]commonModels.ScoredChunk, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

type threadIndex struct {
	threadId string
	chunks   []commonModels.Chunk // sorted by chunk id
	byId     map[string]int
	keyword  *bm25Index
	searcher vectorDB.ThreadSearcher
	embedder embedding.Embedder
}

// Build validates the chunks and derives the keyword index. The searcher must already hold the thread's vectors
// (see Index on vectorDB.ThreadSearcher); either dependency may be nil, which disables dense search.
func Build(threadId string, chunks []commonModels.Chunk, searcher vectorDB.ThreadSearcher, embedder embedding.Embedder) (ThreadIndex, error) {
	if threadId == "" {
		return nil, errors.New("empty thread id")
	}

	sorted := make([]commonModels.Chunk, len(chunks))
	copy(sorted, chunks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ChunkId < sorted[j].ChunkId })

	byId := make(map[string]int, len(sorted))
	texts := make([]string, len(sorted))
	for i, c := range sorted {
		if err := c.Validate(threadId); err != nil {
			return nil, err
		}
		if _, dup := byId[c.ChunkId]; dup {
			return nil, fmt.Errorf("duplicate chunk id %s in thread %s", c.ChunkId, threadId)
		}
		byId[c.ChunkId] = i
		texts[i] = keywordText(c)
	}

	return &threadIndex{
		threadId: threadId,
		chunks:   sorted,
		byId:     byId,
		keyword:  newBM25(texts, config.BM25K1, config.BM25B),
		searcher: searcher,
		embedder: embedder,
	}, nil
}

// keywordText lets exact filename and message id queries hit.
func keywordText(c commonModels.Chunk) string {
	if c.Filename == "" {
		return c.Text + " " + c.MessageId
	}
	return c.Text + " " + c.Filename + " " + c.MessageId
}

func (t *threadIndex) ThreadID() string {
	return t.threadId
}

func (t *threadIndex) Chunks() []commonModels.Chunk {
	out := make([]commonModels.Chunk, len(t.chunks))
	copy(out, t.chunks)
	return out
}

func (t *threadIndex) Chunk(chunkId string) (commonModels.Chunk, bool) {
	i, ok := t.byId[chunkId]
	if !ok {
		return commonModels.Chunk{}, false
	}
	return t.chunks[i], true
}

func (t *threadIndex) KeywordSearch(query string, k int) []commonModels.ScoredChunk {
	hits := t.keyword.search(query, k)
	out := make([]commonModels.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		out = append(out, commonModels.ScoredChunk{Chunk: t.chunks[h.doc], Score: h.score})
	}
	return out
}

func (t *threadIndex) VectorSearch(ctx context.Context, vector []float32, k int) ([]commonModels.ScoredChunk, error) {
	if t.searcher == nil {
		return nil, errors.New("no vector searcher configured")
	}
	hits, err := t.searcher.Search(ctx, t.threadId, vector, k)
	if err != nil {
		return nil, err
	}
	out := make([]commonModels.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		c, ok := t.Chunk(h.ChunkId)
		if !ok {
			// stale point left in an external store
			continue
		}
		out = append(out, commonModels.ScoredChunk{Chunk: c, Score: h.Score})
	}
	return out, nil
}

func (t *threadIndex) Embed(ctx context.Context, text string) ([]float32, error) {
	if t.embedder == nil {
		return nil, ErrNoEmbedder
	}
	return t.embedder.GetEmbedding(ctx, text)
}
