package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// NewChatModel builds the provider client named by cfg.Provider and wraps it in a
// circuit breaker.
func NewChatModel(cfg *Config, logger *zap.Logger) (ChatModel, error) {
	var (
		model ChatModel
		err   error
	)

	switch cfg.Provider {
	case "", "openai":
		model, err = NewOpenAIClient(cfg, logger)
	case "anthropic":
		model, err = NewAnthropicClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.Provider, err)
	}

	breaker := cfg.CircuitBreaker
	if breaker.Threshold == 0 {
		breaker = DefaultCircuitBreakerConfig()
	}

	return NewGuardedModel(model, breaker), nil
}
