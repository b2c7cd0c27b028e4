// Package personalize produces the per-assignment icebreaker, either through
// an external text generator or from a deterministic fallback catalog.
package personalize

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/gruppenwerk/outreach-cli/internal/config"
	"github.com/gruppenwerk/outreach-cli/internal/model"
	"github.com/gruppenwerk/outreach-cli/internal/resilience"
	"github.com/gruppenwerk/outreach-cli/internal/rules"
)

// Personalizer generates icebreakers for batches of assignments.
type Personalizer struct {
	gen          Generator
	rules        *rules.RuleSet
	cfg          config.AIConfig
	retry        resilience.RetryConfig
	limiter      *rate.Limiter
	breaker      *resilience.Breaker
	fallbackOnly bool
}

// Option configures a Personalizer.
type Option func(*Personalizer)

// WithFallbackOnly forces the fallback catalog even when a generator exists.
func WithFallbackOnly(on bool) Option {
	return func(p *Personalizer) { p.fallbackOnly = on }
}

// WithRetryConfig overrides the retry policy derived from the AI config.
func WithRetryConfig(rc resilience.RetryConfig) Option {
	return func(p *Personalizer) { p.retry = rc }
}

// New creates a Personalizer. A nil gen means no credential is configured
// and every text comes from the fallback catalog.
func New(gen Generator, rs *rules.RuleSet, cfg config.AIConfig, opts ...Option) *Personalizer {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	p := &Personalizer{
		gen:     gen,
		rules:   rs,
		cfg:     cfg,
		retry:   resilience.FromRetryConfig(cfg.MaxRetries, cfg.RetryDelaySecs, cfg.MaxBackoffSecs, cfg.Jitter),
		breaker: resilience.NewBreaker(resilience.FromBreakerConfig(cfg.Provider, cfg.BreakerFailures, cfg.BreakerTimeoutSecs)),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// UsesAI reports whether batches will call the external generator.
func (p *Personalizer) UsesAI() bool {
	return p.gen != nil && p.cfg.Enabled && !p.fallbackOnly
}

// GenerateBatch returns one personalization per assignment, in input order.
// Generation runs with at most cfg.Concurrency calls in flight. A failed
// assignment falls back on its own; the batch as a whole never fails.
func (p *Personalizer) GenerateBatch(ctx context.Context, assignments []model.Assignment) []model.Personalization {
	out := make([]model.Personalization, len(assignments))

	if !p.UsesAI() {
		if p.gen == nil && p.cfg.Enabled && !p.fallbackOnly {
			zap.L().Warn("personalize: no API key configured, using fallback icebreakers",
				zap.String("provider", p.cfg.Provider))
		}
		for i, a := range assignments {
			out[i] = model.Personalization{Text: Fallback(a), Source: model.SourceFallback}
		}
		return out
	}

	var fallbacks atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(p.cfg.Concurrency)
	for i := range assignments {
		g.Go(func() error {
			out[i] = p.generateOne(ctx, assignments[i])
			if out[i].Source == model.SourceFallback {
				fallbacks.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("personalize: batch complete",
		zap.Int("assignments", len(assignments)),
		zap.Int64("fallbacks", fallbacks.Load()),
		zap.String("breaker", p.breaker.State()),
	)
	if ur, ok := p.gen.(usageReporter); ok {
		ur.LogUsage("icebreaker")
	}
	return out
}

// Generate personalizes a single assignment with the same policy as
// GenerateBatch.
func (p *Personalizer) Generate(ctx context.Context, a model.Assignment) model.Personalization {
	return p.GenerateBatch(ctx, []model.Assignment{a})[0]
}

func (p *Personalizer) generateOne(ctx context.Context, a model.Assignment) model.Personalization {
	log := zap.L().With(
		zap.String("email", a.Email()),
		zap.String("company", a.CompanyID),
		zap.String("segment", a.SegmentID),
	)

	var company *rules.CompanyRule
	if p.rules != nil {
		company, _ = p.rules.Company(a.CompanyID)
	}
	prompt := BuildPrompt(a, company, p.cfg.CityDefault)

	rc := p.retry
	rc.ShouldRetry = func(err error) bool {
		return !errors.Is(err, resilience.ErrCircuitOpen)
	}
	rc.OnRetry = func(attempt int, err error, delay time.Duration) {
		log.Warn("personalize: generation failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", rc.MaxAttempts),
			zap.Bool("rate_limited", resilience.IsRateLimited(err)),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}

	text, err := resilience.DoVal(ctx, rc, func(ctx context.Context) (string, error) {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return "", eris.Wrap(err, "personalize: rate limiter")
			}
		}
		var text string
		err := p.breaker.Execute(func() error {
			var genErr error
			text, genErr = p.gen.Generate(ctx, prompt)
			return genErr
		})
		return text, err
	})
	if err == nil {
		text = model.TruncatePersonalization(text)
		if text == "" {
			err = eris.Wrap(model.ErrService, "personalize: empty response")
		}
	}

	if err != nil {
		log.Warn("personalize: using fallback icebreaker",
			zap.Error(eris.Wrap(model.ErrExhaustedRetries, err.Error())))
		return model.Personalization{Text: Fallback(a), Source: model.SourceFallback}
	}

	log.Debug("personalize: icebreaker generated", zap.String("preview", preview(text)))
	return model.Personalization{Text: text, Source: model.SourceAI}
}

func preview(text string) string {
	r := []rune(text)
	if len(r) <= 50 {
		return text
	}
	return string(r[:50]) + "..."
}
