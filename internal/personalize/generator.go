package personalize

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/gruppenwerk/outreach-cli/internal/config"
	"github.com/gruppenwerk/outreach-cli/internal/model"
	"github.com/gruppenwerk/outreach-cli/internal/resilience"
	"github.com/gruppenwerk/outreach-cli/pkg/anthropic"
	"github.com/gruppenwerk/outreach-cli/pkg/openai"
)

// Generator turns a prompt into icebreaker text. Implementations report
// throttling as model.ErrRateLimited and any other failure as model.ErrService.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// usageReporter is implemented by generators that track token spend.
type usageReporter interface {
	LogUsage(phase string)
}

// NewGenerator builds the generator for cfg.Provider. It returns nil when
// no API key is available so callers degrade to the fallback catalog.
func NewGenerator(cfg config.AIConfig) (Generator, error) {
	key := cfg.APIKey()
	if key == "" {
		return nil, nil
	}

	switch cfg.Provider {
	case config.ProviderAnthropic:
		return NewAnthropicGenerator(anthropic.NewClient(key), cfg), nil
	case config.ProviderOpenAI:
		return NewOpenAIGenerator(openai.NewClient(key, cfg.BaseURL), cfg), nil
	default:
		return nil, eris.Wrapf(model.ErrConfiguration, "personalize: unknown provider %q", cfg.Provider)
	}
}

// AnthropicGenerator generates icebreakers with the Messages API.
type AnthropicGenerator struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64

	mu    sync.Mutex
	usage anthropic.TokenUsage
}

// NewAnthropicGenerator wraps client with the model settings from cfg.
func NewAnthropicGenerator(client anthropic.Client, cfg config.AIConfig) *AnthropicGenerator {
	return &AnthropicGenerator{
		client:      client,
		model:       cfg.Model,
		maxTokens:   int64(cfg.MaxTokens),
		temperature: cfg.Temperature,
	}
}

// Generate sends prompt as the user message after SystemPrompt.
func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	temp := g.temperature
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		System:      SystemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return "", classify("anthropic", err, anthropic.StatusCode(err), anthropic.IsRateLimited(err))
	}

	g.mu.Lock()
	g.usage = g.usage.Add(resp.Usage)
	g.mu.Unlock()

	return resp.Text(), nil
}

// LogUsage logs the accumulated token spend and resets it.
func (g *AnthropicGenerator) LogUsage(phase string) {
	g.mu.Lock()
	usage := g.usage
	g.usage = anthropic.TokenUsage{}
	g.mu.Unlock()

	usage.LogCost(g.model, phase)
}

// OpenAIGenerator generates icebreakers with the chat completions API.
type OpenAIGenerator struct {
	client      openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIGenerator wraps client with the model settings from cfg.
func NewOpenAIGenerator(client openai.Client, cfg config.AIConfig) *OpenAIGenerator {
	return &OpenAIGenerator{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
	}
}

// Generate sends prompt as the user message after SystemPrompt.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:       g.model,
		System:      SystemPrompt,
		Prompt:      prompt,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", classify("openai", err, openai.StatusCode(err), openai.IsRateLimited(err))
	}
	return resp.Text, nil
}

// classify maps a provider error onto the generation error taxonomy,
// keeping the HTTP status for the circuit breaker.
func classify(provider string, err error, status int, rateLimited bool) error {
	sentinel := model.ErrService
	if rateLimited {
		sentinel = model.ErrRateLimited
	}
	wrapped := eris.Wrapf(sentinel, "%s: %v", provider, err)
	if status > 0 {
		return resilience.NewStatusError(wrapped, status)
	}
	return wrapped
}
