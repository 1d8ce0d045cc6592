package quota

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/j-veylop/ai-quota-bar/internal/logger"
	"github.com/j-veylop/ai-quota-bar/internal/models"
)

// EventType represents the type of quota event.
type EventType int

const (
	// EventUsageUpdated is emitted when a provider was polled successfully.
	EventUsageUpdated EventType = iota
	// EventUsageError is emitted when polling a provider failed.
	EventUsageError
)

// Event represents a quota-related event.
type Event struct {
	Error    error
	Usage    *models.ProviderUsage
	Provider string
	Type     EventType
}

// Config holds quota service configuration.
type Config struct {
	Retry         RetryConfig
	Breaker       BreakerConfig
	PollInterval  time.Duration
	MaxConcurrent int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Retry:         DefaultRetryConfig(),
		Breaker:       DefaultBreakerConfig(),
		PollInterval:  5 * time.Minute,
		MaxConcurrent: 4,
	}
}

// ErrUnknownProvider is returned by Refresh for keys that are not configured.
var ErrUnknownProvider = errors.New("unknown provider")

// Service polls providers and caches their usage.
type Service struct {
	providers  map[string]*guardedProvider
	order      []string
	usageCache map[string]*models.ProviderUsage
	eventChan  chan Event
	stopChan   chan struct{}
	refreshSem chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
	config     Config
	wg         sync.WaitGroup
	mu         sync.RWMutex
	closeOnce  sync.Once
}

// New creates a quota service and starts polling in the background.
func New(providers []Provider, cfg Config) *Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		usageCache: make(map[string]*models.ProviderUsage),
		eventChan:  make(chan Event, 100),
		stopChan:   make(chan struct{}),
		refreshSem: make(chan struct{}, cfg.MaxConcurrent),
		ctx:        ctx,
		cancel:     cancel,
		config:     cfg,
	}
	s.SetProviders(providers)

	s.wg.Add(1)
	go s.pollUsage()

	return s
}

// Events returns the event channel for subscribing to quota updates.
func (s *Service) Events() <-chan Event {
	return s.eventChan
}

// SetProviders replaces the polled providers. Breaker state is kept for
// providers whose key is unchanged; cached usage of removed providers is
// dropped.
func (s *Service) SetProviders(providers []Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]*guardedProvider, len(providers))
	order := make([]string, 0, len(providers))
	for _, p := range providers {
		g := guard(p, s.config.Retry, s.config.Breaker)
		if old, ok := s.providers[p.Key()]; ok {
			g.breaker = old.breaker
		}
		next[p.Key()] = g
		order = append(order, p.Key())
	}
	for key := range s.usageCache {
		if _, ok := next[key]; !ok {
			delete(s.usageCache, key)
		}
	}
	s.providers = next
	s.order = order
}

// Providers returns the configured provider keys in settings order.
func (s *Service) Providers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Refresh polls one provider now.
func (s *Service) Refresh(ctx context.Context, key string) (*models.ProviderUsage, error) {
	s.mu.RLock()
	p, ok := s.providers[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownProvider
	}

	usage, err := p.Fetch(ctx)
	if err != nil {
		return s.handleUsageError(p, err)
	}
	usage.ProviderKey = key
	if usage.FetchedAt.IsZero() {
		usage.FetchedAt = time.Now()
	}

	s.mu.Lock()
	s.usageCache[key] = usage
	s.mu.Unlock()

	s.sendEvent(Event{Type: EventUsageUpdated, Provider: key, Usage: usage})
	return usage, nil
}

// handleUsageError caches the failure next to the last good rows so the
// dashboard keeps showing them.
func (s *Service) handleUsageError(p Provider, err error) (*models.ProviderUsage, error) {
	logger.Warn("provider fetch failed", "provider", p.Key(), "error", err)

	usage := &models.ProviderUsage{
		FetchedAt:   time.Now(),
		Provider:    p.Name(),
		ProviderKey: p.Key(),
		Error:       err.Error(),
	}
	s.mu.Lock()
	if prev, ok := s.usageCache[p.Key()]; ok {
		usage.Rows = prev.Rows
	}
	s.usageCache[p.Key()] = usage
	s.mu.Unlock()

	s.sendEvent(Event{Type: EventUsageError, Provider: p.Key(), Usage: usage, Error: err})
	return usage, err
}

// Get returns the cached usage of a provider.
func (s *Service) Get(key string) (*models.ProviderUsage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.usageCache[key]
	return u, ok
}

// GetAll returns all cached usage.
func (s *Service) GetAll() map[string]*models.ProviderUsage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.usageCache)
}

// RefreshAll polls every provider with bounded concurrency.
func (s *Service) RefreshAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, key := range s.Providers() {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()

			select {
			case s.refreshSem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-s.refreshSem }()

			_, _ = s.Refresh(ctx, key)
		}(key)
	}
	wg.Wait()
}

// pollUsage runs the background polling goroutine.
func (s *Service) pollUsage() {
	defer s.wg.Done()

	s.RefreshAll(s.ctx)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RefreshAll(s.ctx)
		case <-s.stopChan:
			return
		}
	}
}

// sendEvent sends an event to the event channel non-blocking.
func (s *Service) sendEvent(event Event) {
	select {
	case s.eventChan <- event:
	default:
		// Channel full, drop oldest
		select {
		case <-s.eventChan:
		default:
		}
		select {
		case s.eventChan <- event:
		default:
		}
	}
}

// Close stops polling and waits for in-flight fetches.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.cancel()
		s.wg.Wait()
	})
	return nil
}

// Stats holds statistics about the quota service.
type Stats struct {
	Providers    int
	Cached       int
	Failing      int
	OpenBreakers int
}

// GetStats returns current statistics.
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{Providers: len(s.providers), Cached: len(s.usageCache)}
	for _, u := range s.usageCache {
		if u.Error != "" {
			stats.Failing++
		}
	}
	for _, p := range s.providers {
		if p.Open() {
			stats.OpenBreakers++
		}
	}
	return stats
}
