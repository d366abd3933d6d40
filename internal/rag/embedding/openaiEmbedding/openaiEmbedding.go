package openaiEmbedding

import (
	"context"
	"fmt"
	"net/http"

	"github.com/akolanti/ThreadQA/internal/config"
	"github.com/akolanti/ThreadQA/internal/rag/embedding"
	"github.com/akolanti/ThreadQA/internal/rag/llm"
	"github.com/akolanti/ThreadQA/pkg/logger_i"
	"github.com/cenkalti/backoff/v5"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type client struct {
	openai     openai.Client
	model      string
	retryDelay backoff.BackOff
	logger     *logger_i.Logger
}

// NewClient builds an embedder on the OpenAI embeddings endpoint. Vectors are requested at
// config.EmbeddingOutputDimensionality so they line up with the stored chunk vectors.
// Extra request options are appended last, which lets callers point it at another base URL.
func NewClient(modelName string, apikey string, httpClient *http.Client, extra ...option.RequestOption) embedding.Embedder {
	opts := []option.RequestOption{option.WithAPIKey(apikey), option.WithMaxRetries(0)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	opts = append(opts, extra...)

	c := &client{
		openai:     openai.NewClient(opts...),
		model:      modelName,
		retryDelay: backoff.NewConstantBackOff(config.EmbeddingRetryDelay),
		logger:     logger_i.NewLogger("openai_embedding"),
	}
	c.logger.Info("OpenAI Embedding client created", "model", modelName)
	return c
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	log := c.logger.FromContext(ctx)

	vectors, err := c.callWithRetry(ctx, []string{query}, log)
	if err != nil {
		log.Error("Error getting query embedding from OpenAI", "error", err)
		return nil, err
	}
	return vectors[0], nil
}

func (c *client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	log := c.logger.FromContext(ctx).With("chunks", len(chunks))
	if len(chunks) == 0 {
		return nil, nil
	}

	vectors, err := c.callWithRetry(ctx, chunks, log)
	if err != nil {
		log.Error("Error getting Embeddings from OpenAI", "error", err)
		return nil, err
	}
	return vectors, nil
}

func (c *client) callWithRetry(ctx context.Context, texts []string, log *logger_i.Logger) ([][]float32, error) {
	operation := func() ([][]float32, error) {
		vectors, err := c.doCall(ctx, texts)
		if err != nil {
			if llm.IsRetryable(err) {
				log.Warn("Transient embedding failure", "error", err)
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return vectors, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.retryDelay),
		backoff.WithMaxTries(2),
	)
}

func (c *client) doCall(ctx context.Context, texts []string) ([][]float32, error) {
	res, err := c.openai.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model:          openai.EmbeddingModel(c.model),
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Dimensions:     openai.Int(int64(config.EmbeddingOutputDimensionality)),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, err
	}
	return toVectors(res.Data, len(texts))
}

// toVectors orders the response by its index field and narrows every value to float32.
func toVectors(data []openai.Embedding, want int) ([][]float32, error) {
	if len(data) != want {
		return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", want, len(data))
	}
	out := make([][]float32, want)
	for _, d := range data {
		if d.Index < 0 || int(d.Index) >= want || out[d.Index] != nil {
			return nil, fmt.Errorf("embedding response has bad index %d", d.Index)
		}
		v := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			v[i] = float32(f)
		}
		out[d.Index] = v
	}
	return out, nil
}
