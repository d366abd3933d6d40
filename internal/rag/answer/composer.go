package answer

import (
	"context"
	"strings"
	"time"

	"github.com/akolanti/ThreadQA/internal/config"
	"github.com/akolanti/ThreadQA/internal/domain/commonModels"
	"github.com/akolanti/ThreadQA/internal/metrics"
	"github.com/akolanti/ThreadQA/internal/rag/llm"
	"github.com/akolanti/ThreadQA/pkg/logger_i"
	"github.com/cenkalti/backoff/v5"
)

// Composer never returns an error: every failure ends in one of the fixed fallback answers.
type Composer interface {
	Answer(ctx context.Context, query string, ranked commonModels.RankedResult) commonModels.Answer
}

type Options struct {
	ContextChunks int
	CharLimit     int
	RetryDelay    time.Duration
}

func DefaultOptions() Options {
	return Options{
		ContextChunks: config.AnswerContextChunks,
		CharLimit:     config.AnswerChunkCharLimit,
		RetryDelay:    config.AnswerRetryDelay,
	}
}

type composer struct {
	provider llm.Provider
	opts     Options
	logger   *logger_i.Logger
}

func NewComposer(provider llm.Provider, opts Options) Composer {
	if opts.ContextChunks < 1 {
		opts.ContextChunks = config.AnswerContextChunks
	}
	return &composer{
		provider: provider,
		opts:     opts,
		logger:   logger_i.NewLogger("answer_composer"),
	}
}

func Insufficient() commonModels.Answer {
	return commonModels.Answer{
		Text:      config.InsufficientInfoText,
		Citations: []commonModels.Citation{},
		Fallback:  commonModels.FallbackInsufficient,
	}
}

func CannotAnswer() commonModels.Answer {
	return commonModels.Answer{
		Text:      config.CannotAnswerText,
		Citations: []commonModels.Citation{},
		Fallback:  commonModels.FallbackGenerationFailed,
	}
}

func (c *composer) Answer(ctx context.Context, query string, ranked commonModels.RankedResult) commonModels.Answer {
	log := c.logger.FromContext(ctx)

	if len(ranked) == 0 {
		log.Info("empty retrieval, skipping generation")
		return Insufficient()
	}
	if c.provider == nil {
		log.Warn("no generation service configured")
		metrics.CountGenerationFallback("answer")
		return CannotAnswer()
	}

	sources := ranked
	if len(sources) > c.opts.ContextChunks {
		sources = sources[:c.opts.ContextChunks]
	}
	req := llm.Request{
		System:      systemPrompt(config.InsufficientInfoText),
		Prompt:      buildPrompt(query, sources, c.opts.CharLimit),
		Temperature: config.ModelTemperature,
	}

	start := time.Now()
	text, err := c.generate(ctx, req, log)
	metrics.CaptureExecutionMetrics("answer_generation", time.Since(start))
	if err != nil {
		log.Error("answer generation failed after retry", "error", err)
		metrics.CountGenerationFallback("answer")
		return CannotAnswer()
	}
	if text == "" {
		log.Warn("generation returned empty text")
		return Insufficient()
	}

	valid, dropped := Validate(ExtractCitations(text), sources)
	if dropped > 0 {
		log.Warn("dropped ungrounded citations", "dropped", dropped)
		metrics.CountDroppedCitations(dropped)
	}

	ans := commonModels.Answer{
		Text:             text,
		Citations:        valid,
		Grounded:         len(valid) > 0,
		Fallback:         commonModels.FallbackNone,
		DroppedCitations: dropped,
	}
	if text == config.InsufficientInfoText {
		ans.Fallback = commonModels.FallbackInsufficient
	}
	return ans
}

// generate makes at most two identical calls. Any failure earns the second call unless the caller is gone.
func (c *composer) generate(ctx context.Context, req llm.Request, log *logger_i.Logger) (string, error) {
	attempt := 0
	operation := func() (string, error) {
		attempt++
		out, err := c.provider.Generate(ctx, req)
		if err != nil {
			log.Warn("generation attempt failed", "attempt", attempt, "error", err)
			if ctx.Err() != nil {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		return strings.TrimSpace(out), nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.opts.RetryDelay)),
		backoff.WithMaxTries(2),
	)
}
