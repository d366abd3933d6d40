package googleEmbedding

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/akolanti/ThreadQA/internal/config"
	"github.com/akolanti/ThreadQA/internal/rag/embedding"
	"github.com/akolanti/ThreadQA/pkg/logger_i"
	"google.golang.org/genai"
)

var logger *logger_i.Logger
var once sync.Once
var embeddingClient *client
var dimension int32 = config.EmbeddingOutputDimensionality

type client struct {
	genAi *genai.Client
	model string
}

func newGoogleEmbedder(ctx context.Context, modelName string, apikey string, httpClient *http.Client) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey, HTTPClient: httpClient})
	if err != nil {
		logger.Error("Error creating Google Embedding client", "error", err)
		return
	}
	embeddingClient = &client{
		genAi: c,
		model: modelName,
	}
	logger.Info("Google Embedding client created", "model", modelName)
	go closeClient(ctx, embeddingClient)
}

func closeClient(ctx context.Context, embeddingClient *client) {
	<-ctx.Done()
	logger.Info("Closing Google Embedding client")
	embeddingClient.genAi = nil
	embeddingClient.model = ""
}

// GetGoogleEmbeddingClient returns nil when the client cannot be created; vector retrieval is then disabled.
func GetGoogleEmbeddingClient(ctx context.Context, modelName string, apikey string, httpClient *http.Client) embedding.Embedder {
	once.Do(func() {
		logger = logger_i.NewLogger("google_embedding")
		newGoogleEmbedder(ctx, modelName, apikey, httpClient)
	})

	if embeddingClient == nil {
		return nil
	}
	return &client{genAi: embeddingClient.genAi, model: embeddingClient.model}
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	log := logger.FromContext(ctx)

	res, err := c.callWithRetry(ctx, genai.Text(query), "RETRIEVAL_QUERY", log)
	if err != nil {
		log.Error("Error getting query embedding from Google", "error", err)
		return nil, err
	}
	if len(res.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return res.Embeddings[0].Values, nil
}

func (c *client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	log := logger.FromContext(ctx).With("chunks", len(chunks))

	res, err := c.callWithRetry(ctx, getContent(chunks), "RETRIEVAL_DOCUMENT", log)
	if err != nil {
		log.Error("Error getting Embeddings from Google", "error", err)
		return nil, err
	}
	if len(res.Embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(chunks), len(res.Embeddings))
	}

	embeddingResults := make([][]float32, 0, len(res.Embeddings))
	for _, r := range res.Embeddings {
		embeddingResults = append(embeddingResults, r.Values)
	}
	return embeddingResults, nil
}

func (c *client) doCall(ctx context.Context, content []*genai.Content, taskType string) (*genai.EmbedContentResponse, error) {
	return c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{OutputDimensionality: &dimension, TaskType: taskType})
}
