package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/ThreadQA/internal/config"
	"github.com/akolanti/ThreadQA/internal/domain/commonModels"
	"github.com/akolanti/ThreadQA/internal/metrics"
	"github.com/akolanti/ThreadQA/pkg/logger_i"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

type guardedProvider struct {
	inner   Provider
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration
	logger  *logger_i.Logger
}

// Guard wraps a provider with a per-call timeout, a client-side rate limit and a circuit breaker.
// Every failure it returns wraps commonModels.ErrGenerationService.
func Guard(inner Provider, timeout time.Duration) Provider {
	log := logger_i.NewLogger("llm_guard").With("provider", inner.Name())
	return &guardedProvider{
		inner: inner,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        inner.Name(),
			MaxRequests: config.BreakerMaxRequests,
			Interval:    config.BreakerInterval,
			Timeout:     config.BreakerOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 5 && failureRatio >= 0.6
			},
			// rejected requests and caller cancellations say nothing about provider health
			IsSuccessful: func(err error) bool {
				return err == nil || !IsRetryable(err)
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				log.Warn("circuit breaker state change", "from", from.String(), "to", to.String())
			},
		}),
		limiter: rate.NewLimiter(rate.Limit(config.GenerationRequestsPerSecond), config.GenerationBurst),
		timeout: timeout,
		logger:  log,
	}
}

func (g *guardedProvider) Name() string {
	return g.inner.Name()
}

func (g *guardedProvider) Generate(ctx context.Context, req Request) (string, error) {
	ctx, span := otel.Tracer("threadqa/llm").Start(ctx, "llm.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", g.inner.Name()),
		attribute.Int("llm.prompt_chars", len(req.Prompt)),
	)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_"+g.inner.Name(), time.Since(start)) }()

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.limiter.Wait(callCtx); err != nil {
		span.SetAttributes(attribute.Bool("llm.rate_limited", true))
		return "", g.fail(span, err)
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.Generate(callCtx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			span.SetAttributes(attribute.Bool("llm.circuit_breaker_open", true))
		}
		g.logger.FromContext(ctx).Warn("generation failed", "error", err)
		return "", g.fail(span, err)
	}

	text := result.(string)
	span.SetAttributes(attribute.Int("llm.output_chars", len(text)))
	return text, nil
}

func (g *guardedProvider) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return fmt.Errorf("%w: %w", commonModels.ErrGenerationService, err)
}
