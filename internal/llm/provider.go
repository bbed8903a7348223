package llm

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadflow/internal/config"
	"github.com/sells-group/leadflow/internal/resilience"
	"github.com/sells-group/leadflow/pkg/anthropic"
)

// Provider names accepted by ai.provider.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// New builds the configured Completer wrapped in a Guard. Breakers are keyed
// by provider so every Completer for the same provider shares one circuit.
func New(ctx context.Context, cfg config.AIConfig, breakers *resilience.Breakers) (Completer, error) {
	var backend Completer
	switch cfg.Provider {
	case ProviderAnthropic, "":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("llm: ai.anthropic.key is required")
		}
		backend = NewAnthropicCompleter(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model)
	case ProviderGemini:
		g, err := NewGeminiCompleter(ctx, cfg.Gemini.Key, cfg.Gemini.Model)
		if err != nil {
			return nil, err
		}
		backend = g
	default:
		return nil, eris.Errorf("llm: unknown provider %q", cfg.Provider)
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderAnthropic
	}
	var breaker *resilience.CircuitBreaker
	if breakers != nil {
		breaker = breakers.Get(provider)
	}

	return NewGuard(
		backend,
		time.Duration(cfg.CallTimeoutSecs)*time.Second,
		resilience.FromRetryConfig(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs),
		breaker,
	), nil
}
