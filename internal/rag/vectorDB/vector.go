package vectorDB

import (
	"context"

	"github.com/akolanti/ThreadQA/internal/domain/commonModels"
)

type Hit struct {
	ChunkId string
	Score   float64
}

// ThreadSearcher answers dense similarity queries scoped to one thread.
// Index is called once per thread while the catalog is loading; Search is read-only afterwards.
type ThreadSearcher interface {
	Index(ctx context.Context, threadId string, chunks []commonModels.Chunk) error
	Search(ctx context.Context, threadId string, vector []float32, k int) ([]Hit, error)
}
