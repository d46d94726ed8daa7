package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// CircuitState represents the current state of the circuit breaker.
type CircuitState int

const (
	// CircuitClosed means calls flow through.
	CircuitClosed CircuitState = iota
	// CircuitOpen means the provider failed repeatedly and calls are rejected.
	CircuitOpen
	// CircuitHalfOpen means one probe call is in flight.
	CircuitHalfOpen
)

// String returns a human-readable string for the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// Threshold is the number of consecutive failures before the circuit trips.
	Threshold int
	// ResetAfter is the duration to wait before letting a probe call through.
	ResetAfter time.Duration
}

// DefaultCircuitBreakerConfig returns 5 failures / 30 seconds.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Threshold:  5,
		ResetAfter: 30 * time.Second,
	}
}

// CircuitBreaker trips open after N consecutive failures and resets after a timeout period.
// It remembers the classification of the last failure so a rejected call reports the same
// kind of error the provider did (a quota outage keeps looking like a quota error).
type CircuitBreaker struct {
	mu               sync.RWMutex
	consecutiveFails int
	threshold        int
	resetAfter       time.Duration
	lastFailure      time.Time
	lastErrType      ErrorType
	state            CircuitState
	now              func() time.Time
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.Threshold <= 0 {
		config.Threshold = DefaultCircuitBreakerConfig().Threshold
	}
	return &CircuitBreaker{
		threshold:  config.Threshold,
		resetAfter: config.ResetAfter,
		state:      CircuitClosed,
		now:        time.Now,
	}
}

// Allow returns nil if a call may proceed. An open circuit transitions to half-open once
// the reset timeout has elapsed and lets exactly one call through.
func (cb *CircuitBreaker) Allow() *Error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return nil
	case CircuitOpen:
		if cb.now().Sub(cb.lastFailure) > cb.resetAfter {
			cb.state = CircuitHalfOpen
			return nil
		}
		return cb.rejection(fmt.Sprintf("circuit breaker open: model provider failed %d times, last failure %v ago",
			cb.consecutiveFails, cb.now().Sub(cb.lastFailure).Round(time.Second)))
	case CircuitHalfOpen:
		return cb.rejection("circuit breaker half-open: testing if model provider has recovered")
	default:
		return cb.rejection(fmt.Sprintf("circuit breaker in unknown state: %v", cb.state))
	}
}

func (cb *CircuitBreaker) rejection(msg string) *Error {
	errType := cb.lastErrType
	if errType == "" {
		errType = ErrorTypeUnavailable
	}
	e := NewError(errType, msg, true, nil)
	if errType == ErrorTypeQuota {
		e.StatusCode = 429
	}
	return e
}

// RecordSuccess resets the failure count and closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails = 0
	cb.lastErrType = ""
	cb.state = CircuitClosed
}

// RecordFailure increments the failure count and trips the circuit if threshold is reached.
func (cb *CircuitBreaker) RecordFailure(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails++
	cb.lastFailure = cb.now()
	cb.lastErrType = GetErrorType(err)

	if cb.state == CircuitHalfOpen {
		cb.state = CircuitOpen
		return
	}

	if cb.consecutiveFails >= cb.threshold {
		cb.state = CircuitOpen
	}
}

// releaseProbe reopens a half-open circuit without counting a failure.
// A probe cancelled by the client proves nothing either way.
func (cb *CircuitBreaker) releaseProbe() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitHalfOpen {
		cb.state = CircuitOpen
		cb.lastFailure = cb.now().Add(-cb.resetAfter)
	}
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// ConsecutiveFailures returns the current count of consecutive failures.
func (cb *CircuitBreaker) ConsecutiveFailures() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.consecutiveFails
}

// GuardedModel wraps a ChatModel with a circuit breaker.
type GuardedModel struct {
	model   ChatModel
	breaker *CircuitBreaker
}

var _ ChatModel = (*GuardedModel)(nil)

// NewGuardedModel wraps model with a breaker built from config.
func NewGuardedModel(model ChatModel, config CircuitBreakerConfig) *GuardedModel {
	return &GuardedModel{model: model, breaker: NewCircuitBreaker(config)}
}

// Invoke implements ChatModel. Cancellation by the caller is not a provider failure.
func (g *GuardedModel) Invoke(ctx context.Context, messages []Message, tools []ToolDefinition) (*Completion, error) {
	if err := g.breaker.Allow(); err != nil {
		err.Model = g.model.GetModel()
		return nil, err
	}

	completion, err := g.model.Invoke(ctx, messages, tools)
	switch {
	case err == nil:
		g.breaker.RecordSuccess()
	case errors.Is(err, context.Canceled):
		g.breaker.releaseProbe()
	default:
		g.breaker.RecordFailure(err)
	}
	return completion, err
}

// GetModel returns the underlying model name.
func (g *GuardedModel) GetModel() string {
	return g.model.GetModel()
}

// Breaker exposes the breaker for health reporting.
func (g *GuardedModel) Breaker() *CircuitBreaker {
	return g.breaker
}
