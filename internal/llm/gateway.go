package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GoSim-25-26J-441/plantuml-studio/internal/logging"
	"golang.org/x/time/rate"
)

// ErrLLMFailure wraps every backend fault surfaced by the Gateway.
var ErrLLMFailure = errors.New("llm request failed")

// Gateway wraps the text-generation backend with diagram-type aware prompting.
// Responses are returned verbatim: no trimming, fence stripping or retries.
type Gateway struct {
	client  ChatClient
	model   string
	limiter *rate.Limiter
}

type Option func(*Gateway)

// WithRateLimit caps outbound requests at perMinute with the given burst.
// A non-positive perMinute disables limiting.
func WithRateLimit(perMinute, burst int) Option {
	return func(g *Gateway) {
		if perMinute <= 0 {
			g.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
	}
}

func NewGateway(client ChatClient, model string, opts ...Option) *Gateway {
	g := &Gateway{client: client, model: model}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate asks the backend for PlantUML describing prompt.
func (g *Gateway) Generate(ctx context.Context, prompt string) (string, error) {
	diagramType := ClassifyPrompt(prompt)
	logging.FromContext(ctx).LogInfof("llm_generate", "diagram_type=%q", diagramType)
	return g.complete(ctx, "llm_generate", diagramType, prompt)
}

// Refine asks the backend to rework existingCode according to feedback.
func (g *Gateway) Refine(ctx context.Context, existingCode, feedback string) (string, error) {
	diagramType := ClassifyCode(existingCode)
	logging.FromContext(ctx).LogInfof("llm_refine", "diagram_type=%q", diagramType)
	return g.complete(ctx, "llm_refine", diagramType, RefineMessage(existingCode, feedback))
}

func (g *Gateway) complete(ctx context.Context, operation, diagramType, userMessage string) (string, error) {
	logger := logging.FromContext(ctx)

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			logger.LogError(operation, err)
			return "", fmt.Errorf("%w: rate limit wait: %w", ErrLLMFailure, err)
		}
	}

	start := time.Now()
	out, err := g.client.Complete(ctx, g.model, []Message{
		{Role: RoleSystem, Content: SystemPrompt(diagramType)},
		{Role: RoleUser, Content: userMessage},
	})
	if err != nil {
		logger.LogError(operation, err)
		return "", fmt.Errorf("%w: %w", ErrLLMFailure, err)
	}

	logger.LogInfof(operation, "model=%s latency=%s response_bytes=%d", g.model, time.Since(start), len(out))
	logger.LogDebugf(operation, "response:\n%s", out)
	return out, nil
}
