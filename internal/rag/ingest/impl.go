package ingest

import (
	"context"
	"fmt"

	"github.com/akolanti/ThreadQA/internal/config"
	"github.com/akolanti/ThreadQA/internal/domain/commonModels"
	"github.com/akolanti/ThreadQA/internal/rag/embedding"
	"github.com/akolanti/ThreadQA/pkg/logger_i"
)

// BackfillEmbeddings embeds every chunk that arrived without a vector, in batches of config.EmbeddingBatchSize.
// The input slice is not modified.
func BackfillEmbeddings(ctx context.Context, chunks []commonModels.Chunk, embedder embedding.Embedder, log *logger_i.Logger) ([]commonModels.Chunk, error) {
	out := make([]commonModels.Chunk, len(chunks))
	copy(out, chunks)

	var missing []int
	for i, c := range out {
		if len(c.Embedding) == 0 && c.Text != "" {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	batchSize := config.EmbeddingBatchSize
	for i := 0; i < len(missing); i += batchSize {
		end := i + batchSize
		if end > len(missing) {
			end = len(missing)
		}
		currentBatch := missing[i:end]

		texts := make([]string, len(currentBatch))
		for j, pos := range currentBatch {
			texts[j] = out[pos].Text
		}

		log.Debug("Starting embedding call", "batch", i/batchSize, "size", len(texts))
		vectors, err := embedder.BatchEmbedding(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding batch failed: %w", err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("embedding batch returned %d vectors for %d texts", len(vectors), len(texts))
		}
		for j, pos := range currentBatch {
			out[pos].Embedding = vectors[j]
		}
	}
	return out, nil
}
