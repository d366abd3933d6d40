package embedding

import "context"

type Embedder interface {
	GetEmbedding(ctx context.Context, query string) ([]float32, error)
	// BatchEmbedding returns one vector per input, in input order.
	BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error)
}
