// Package quota polls usage providers and caches their latest limits.
package quota

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/j-veylop/ai-quota-bar/internal/config"
	"github.com/j-veylop/ai-quota-bar/internal/models"
)

// Provider fetches the current usage of one service.
type Provider interface {
	Key() string
	Name() string
	Fetch(ctx context.Context) (*models.ProviderUsage, error)
}

var (
	// ErrMissingCredentials is returned when a provider's secret env var is unset.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrNoLimits is returned when none of a provider's limit paths matched.
	ErrNoLimits = errors.New("no limits found in response")

	// ErrInvalidBody is returned for non-JSON responses.
	ErrInvalidBody = errors.New("response is not valid JSON")
)

// StatusError is returned for non-2xx provider responses.
type StatusError struct {
	Provider string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d %s", e.Provider, e.Code, http.StatusText(e.Code))
}

// Retryable reports whether the request may succeed if repeated.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// isRetryable reports whether err is worth another attempt. Bad credentials,
// unparseable bodies and other client errors are not.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrMissingCredentials) ||
		errors.Is(err, ErrNoLimits) || errors.Is(err, ErrInvalidBody) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return true
}

// NewProviders builds an HTTP provider for every enabled provider in s.
func NewProviders(s *config.Settings, client *http.Client) []Provider {
	var out []Provider
	for _, pc := range s.Providers {
		if pc.Disabled {
			continue
		}
		out = append(out, NewHTTPProvider(pc, client))
	}
	return out
}
