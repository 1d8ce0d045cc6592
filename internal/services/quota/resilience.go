package quota

import (
	"context"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/sony/gobreaker"

	"github.com/j-veylop/ai-quota-bar/internal/logger"
	"github.com/j-veylop/ai-quota-bar/internal/models"
)

// RetryConfig controls retries of a single fetch.
type RetryConfig struct {
	MaxRetries  int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	JitterDelay time.Duration
}

// DefaultRetryConfig returns the stock retry settings.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  2,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		JitterDelay: 250 * time.Millisecond,
	}
}

// BreakerConfig controls the per-provider circuit breaker.
type BreakerConfig struct {
	// ConsecutiveFailures opens the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before a trial request.
	OpenTimeout time.Duration
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultBreakerConfig returns the stock breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		ConsecutiveFailures: 3,
		OpenTimeout:         5 * time.Minute,
	}
}

// guardedProvider wraps a provider with retries inside a circuit breaker so a
// provider that keeps failing is skipped until its breaker half-opens.
type guardedProvider struct {
	Provider
	executor failsafe.Executor[*models.ProviderUsage]
	breaker  *gobreaker.CircuitBreaker
}

func newRetryPolicy(cfg RetryConfig) retrypolicy.RetryPolicy[*models.ProviderUsage] {
	builder := retrypolicy.NewBuilder[*models.ProviderUsage]().
		HandleIf(func(_ *models.ProviderUsage, err error) bool {
			return isRetryable(err)
		}).
		WithMaxRetries(cfg.MaxRetries).
		ReturnLastFailure()
	if cfg.BaseDelay > 0 {
		builder = builder.WithBackoff(cfg.BaseDelay, cfg.MaxDelay)
	}
	if cfg.JitterDelay > 0 {
		builder = builder.WithJitter(cfg.JitterDelay)
	}
	return builder.Build()
}

func newBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker {
	onChange := cfg.OnStateChange
	if onChange == nil {
		onChange = func(name string, from, to gobreaker.State) {
			logger.Warn("provider circuit changed", "provider", name, "from", from.String(), "to", to.String())
		}
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: onChange,
		// Missing credentials and malformed responses are configuration
		// problems, not outages.
		IsSuccessful: func(err error) bool {
			return err == nil || !isRetryable(err)
		},
	})
}

func guard(p Provider, retry RetryConfig, breaker BreakerConfig) *guardedProvider {
	return &guardedProvider{
		Provider: p,
		executor: failsafe.With[*models.ProviderUsage](newRetryPolicy(retry)),
		breaker:  newBreaker(p.Key(), breaker),
	}
}

// Fetch runs the provider through the breaker and retry policy.
func (g *guardedProvider) Fetch(ctx context.Context) (*models.ProviderUsage, error) {
	result, err := g.breaker.Execute(func() (any, error) {
		return g.executor.WithContext(ctx).Get(func() (*models.ProviderUsage, error) {
			return g.Provider.Fetch(ctx)
		})
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.ProviderUsage), nil
}

// Open reports whether the breaker is currently rejecting fetches.
func (g *guardedProvider) Open() bool {
	return g.breaker.State() == gobreaker.StateOpen
}
