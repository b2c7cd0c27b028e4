package personalize

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gruppenwerk/outreach-cli/internal/config"
	"github.com/gruppenwerk/outreach-cli/internal/model"
	"github.com/gruppenwerk/outreach-cli/internal/resilience"
	"github.com/gruppenwerk/outreach-cli/internal/rules"
)

func testAIConfig() config.AIConfig {
	return config.AIConfig{
		Enabled:        true,
		Provider:       config.ProviderAnthropic,
		Model:          "claude-sonnet-4-5-20250929",
		MaxTokens:      150,
		Temperature:    0.7,
		MaxRetries:     3,
		Concurrency:    4,
		RetryDelaySecs: 0,
		CityDefault:    "Hamburg",
	}
}

func fastRetry(attempts int) Option {
	return WithRetryConfig(resilience.RetryConfig{MaxAttempts: attempts, BaseDelay: time.Millisecond})
}

func testRules() *rules.RuleSet {
	return rules.NewRuleSet([]rules.CompanyRule{
		{ID: "seehafer_elemente", DisplayName: "Seehafer Elemente", Segments: []string{"hausverwaltung", "gewerbe"}},
	}, nil)
}

func batchOf(n int) []model.Assignment {
	out := make([]model.Assignment, n)
	segs := FallbackSegments()
	for i := range out {
		out[i] = model.Assignment{
			Lead: &model.Lead{
				Email:       fmt.Sprintf("lead%d@example.de", i),
				FirstName:   fmt.Sprintf("Lead%d", i),
				Title:       "Geschäftsführer",
				CompanyName: fmt.Sprintf("Firma %d", i),
			},
			CompanyID: "seehafer_elemente",
			SegmentID: segs[i%len(segs)],
		}
	}
	return out
}

// nameFromPrompt extracts the first name line so fakes can answer per lead.
func nameFromPrompt(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if rest, ok := strings.CutPrefix(line, "- Name: "); ok {
			return strings.Fields(rest)[0]
		}
	}
	return ""
}

func TestGenerateBatch_NoGeneratorUsesFallback(t *testing.T) {
	in := batchOf(5)
	p := New(nil, testRules(), testAIConfig())

	assert.False(t, p.UsesAI())
	out := p.GenerateBatch(context.Background(), in)

	require.Len(t, out, len(in))
	want := FallbackBatch(in)
	for i := range out {
		assert.Equal(t, want[i], out[i].Text)
		assert.Equal(t, model.SourceFallback, out[i].Source)
	}
}

func TestGenerateBatch_FallbackOnlyMakesNoCalls(t *testing.T) {
	gen := new(MockGenerator)
	in := batchOf(3)
	p := New(gen, testRules(), testAIConfig(), WithFallbackOnly(true))

	out := p.GenerateBatch(context.Background(), in)

	require.Len(t, out, 3)
	for i := range out {
		assert.Equal(t, Fallback(in[i]), out[i].Text)
	}
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestGenerateBatch_DisabledMakesNoCalls(t *testing.T) {
	gen := new(MockGenerator)
	cfg := testAIConfig()
	cfg.Enabled = false
	p := New(gen, testRules(), cfg)

	out := p.GenerateBatch(context.Background(), batchOf(2))

	require.Len(t, out, 2)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestGenerateBatch_PreservesOrder(t *testing.T) {
	in := batchOf(20)
	gen := GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		name := nameFromPrompt(prompt)
		var idx int
		fmt.Sscanf(name, "Lead%d", &idx) //nolint:errcheck
		// Later leads finish first.
		time.Sleep(time.Duration(20-idx) * time.Millisecond)
		return "  schön, dass wir uns kennenlernen, " + name + ".  ", nil
	})
	p := New(gen, testRules(), testAIConfig(), fastRetry(3))

	out := p.GenerateBatch(context.Background(), in)

	require.Len(t, out, len(in))
	for i := range in {
		assert.Equal(t, fmt.Sprintf("schön, dass wir uns kennenlernen, Lead%d.", i), out[i].Text)
		assert.Equal(t, model.SourceAI, out[i].Source)
	}
}

func TestGenerateBatch_BoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	gen := GeneratorFunc(func(_ context.Context, _ string) (string, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return "ok", nil
	})
	cfg := testAIConfig()
	cfg.Concurrency = 3
	p := New(gen, testRules(), cfg, fastRetry(1))

	out := p.GenerateBatch(context.Background(), batchOf(15))

	assert.Len(t, out, 15)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Greater(t, peak.Load(), int32(0))
}

func TestGenerateBatch_RetriesThenSucceeds(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("", eris.Wrap(model.ErrRateLimited, "anthropic: 429")).Once()
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("", eris.Wrap(model.ErrService, "anthropic: 500")).Once()
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("wir kennen die Herausforderungen im Bestand.", nil).Once()

	p := New(gen, testRules(), testAIConfig(), fastRetry(3))
	out := p.GenerateBatch(context.Background(), batchOf(1))

	require.Len(t, out, 1)
	assert.Equal(t, "wir kennen die Herausforderungen im Bestand.", out[0].Text)
	assert.Equal(t, model.SourceAI, out[0].Source)
	gen.AssertNumberOfCalls(t, "Generate", 3)
}

func TestGenerateBatch_ExhaustionFallsBackPerAssignment(t *testing.T) {
	in := batchOf(4)
	var calls atomic.Int32
	gen := GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		calls.Add(1)
		if nameFromPrompt(prompt) == "Lead2" {
			return "", eris.Wrap(model.ErrService, "anthropic: overloaded")
		}
		return "passt.", nil
	})
	p := New(gen, testRules(), testAIConfig(), fastRetry(3))

	out := p.GenerateBatch(context.Background(), in)

	require.Len(t, out, 4)
	for i := range in {
		if i == 2 {
			assert.Equal(t, Fallback(in[2]), out[i].Text)
			assert.Equal(t, model.SourceFallback, out[i].Source)
			continue
		}
		assert.Equal(t, "passt.", out[i].Text)
		assert.Equal(t, model.SourceAI, out[i].Source)
	}
	// three successes plus three attempts for the failing lead
	assert.Equal(t, int32(6), calls.Load())
}

func TestGenerateBatch_TruncatesLongText(t *testing.T) {
	long := strings.Repeat("x", 250)
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("\n"+long+"\n", nil)

	p := New(gen, testRules(), testAIConfig(), fastRetry(1))
	out := p.GenerateBatch(context.Background(), batchOf(1))

	require.Len(t, out, 1)
	assert.Len(t, []rune(out[0].Text), 200)
	assert.Equal(t, strings.Repeat("x", 197)+"...", out[0].Text)
}

func TestGenerateBatch_EmptyResponseFallsBack(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("   ", nil)

	in := batchOf(1)
	p := New(gen, testRules(), testAIConfig(), fastRetry(2))
	out := p.GenerateBatch(context.Background(), in)

	assert.Equal(t, Fallback(in[0]), out[0].Text)
	assert.Equal(t, model.SourceFallback, out[0].Source)
}

func TestGenerateBatch_OpenBreakerFailsFast(t *testing.T) {
	var calls atomic.Int32
	gen := GeneratorFunc(func(_ context.Context, _ string) (string, error) {
		calls.Add(1)
		return "", resilience.NewStatusError(eris.Wrap(model.ErrService, "anthropic: 503"), 503)
	})
	cfg := testAIConfig()
	cfg.Concurrency = 1
	cfg.BreakerFailures = 2
	cfg.BreakerTimeoutSecs = 60
	p := New(gen, testRules(), cfg, fastRetry(3))

	in := batchOf(3)
	out := p.GenerateBatch(context.Background(), in)

	require.Len(t, out, 3)
	for i := range out {
		assert.Equal(t, Fallback(in[i]), out[i].Text)
	}
	// the breaker opens after two failures; later attempts never reach the generator
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerateBatch_CancelledContextFallsBack(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := GeneratorFunc(func(ctx context.Context, _ string) (string, error) {
		return "", eris.Wrap(ctx.Err(), "anthropic: create message")
	})
	in := batchOf(3)
	p := New(gen, testRules(), testAIConfig(), fastRetry(3))

	out := p.GenerateBatch(ctx, in)

	require.Len(t, out, 3)
	for i := range out {
		assert.Equal(t, model.SourceFallback, out[i].Source)
	}
}

func TestGenerate_Single(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "Absender-Firma: Seehafer Elemente")
	})).Return("als Verwalter kennen Sie das.", nil).Once()

	p := New(gen, testRules(), testAIConfig(), fastRetry(1))
	got := p.Generate(context.Background(), batchOf(1)[0])

	assert.Equal(t, "als Verwalter kennen Sie das.", got.Text)
	gen.AssertExpectations(t)
}

func TestNew_RequestRateLimiter(t *testing.T) {
	cfg := testAIConfig()
	cfg.RequestsPerSecond = 0.5
	p := New(new(MockGenerator), testRules(), cfg)

	require.NotNil(t, p.limiter)
	assert.Equal(t, 1, p.limiter.Burst())

	cfg.RequestsPerSecond = 0
	assert.Nil(t, New(nil, nil, cfg).limiter)
}

func TestNew_RetryPolicyFromConfig(t *testing.T) {
	cfg := testAIConfig()
	cfg.MaxRetries = 4
	cfg.RetryDelaySecs = 0.5
	cfg.MaxBackoffSecs = 10
	cfg.Jitter = 0.25

	p := New(nil, testRules(), cfg)

	assert.Equal(t, 4, p.retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, p.retry.BaseDelay)
	assert.Equal(t, 10*time.Second, p.retry.MaxBackoff)
	assert.InDelta(t, 0.25, p.retry.JitterFraction, 1e-9)
}
