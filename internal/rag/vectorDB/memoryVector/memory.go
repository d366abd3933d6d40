package memoryVector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/akolanti/ThreadQA/internal/domain/commonModels"
	"github.com/akolanti/ThreadQA/internal/rag/vectorDB"
)

type entry struct {
	chunkId string
	vector  []float32
	norm    float64
}

type store struct {
	mu      sync.RWMutex
	threads map[string][]entry
}

func NewStore() vectorDB.ThreadSearcher {
	return &store{threads: make(map[string][]entry)}
}

func (s *store) Index(ctx context.Context, threadId string, chunks []commonModels.Chunk) error {
	entries := make([]entry, 0, len(chunks))
	dim := -1
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		if dim == -1 {
			dim = len(c.Embedding)
		} else if len(c.Embedding) != dim {
			return fmt.Errorf("chunk %s: embedding dimension %d, expected %d", c.ChunkId, len(c.Embedding), dim)
		}
		entries = append(entries, entry{chunkId: c.ChunkId, vector: c.Embedding, norm: norm(c.Embedding)})
	}

	s.mu.Lock()
	s.threads[threadId] = entries
	s.mu.Unlock()
	return nil
}

func (s *store) Search(ctx context.Context, threadId string, vector []float32, k int) ([]vectorDB.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	entries := s.threads[threadId]
	s.mu.RUnlock()

	if len(entries) == 0 || k <= 0 {
		return []vectorDB.Hit{}, nil
	}
	if len(vector) != len(entries[0].vector) {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(vector), len(entries[0].vector))
	}

	qNorm := norm(vector)
	hits := make([]vectorDB.Hit, 0, len(entries))
	for _, e := range entries {
		hits = append(hits, vectorDB.Hit{ChunkId: e.chunkId, Score: cosine(vector, qNorm, e.vector, e.norm)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].ChunkId < hits[j].ChunkId
		}
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}
