package googleEmbedding

import (
	"context"
	"errors"
	"net/http"

	"github.com/akolanti/ThreadQA/internal/config"
	"github.com/akolanti/ThreadQA/pkg/logger_i"
	"github.com/cenkalti/backoff/v5"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))

	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, &genai.Content{
			Parts: []*genai.Part{{Text: chunk}},
		})
	}
	return contentsToSend
}

// doRetry only treats quota exhaustion as transient.
func doRetry(err error, log *logger_i.Logger) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		log.Warn("Rate limit hit", "error", err)
		return true
	}
	if s, ok := status.FromError(err); ok {
		if s.Code() == codes.ResourceExhausted {
			log.Warn("Rate limit hit", "error", err)
			return true
		}
	}
	return false
}

func (c *client) callWithRetry(ctx context.Context, content []*genai.Content, taskType string, log *logger_i.Logger) (*genai.EmbedContentResponse, error) {
	operation := func() (*genai.EmbedContentResponse, error) {
		res, err := c.doCall(ctx, content, taskType)
		if err != nil {
			if doRetry(err, log) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return res, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(config.EmbeddingRetryDelay)),
		backoff.WithMaxTries(2),
	)
}
