package openaiLLM

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/akolanti/ThreadQA/internal/rag/llm"
	"github.com/akolanti/ThreadQA/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type llmClient struct {
	client    openai.Client
	modelName string
	logger    *logger_i.Logger
}

func NewClient(modelName string, apikey string, httpClient *http.Client) llm.Provider {
	opts := []option.RequestOption{option.WithAPIKey(apikey)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	c := &llmClient{
		client:    openai.NewClient(opts...),
		modelName: modelName,
		logger:    logger_i.NewLogger("llm_openai"),
	}
	c.logger.Info("OpenAI client created", "model", modelName)
	return c
}

func (c *llmClient) Name() string {
	return "openai"
}

func (c *llmClient) Generate(ctx context.Context, req llm.Request) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.modelName),
		Messages:    messages,
		Temperature: openai.Float(float64(req.Temperature)),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
