// Package services provides service orchestration for the TUI.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/ai-quota-bar/internal/config"
	"github.com/j-veylop/ai-quota-bar/internal/db"
	"github.com/j-veylop/ai-quota-bar/internal/logger"
	"github.com/j-veylop/ai-quota-bar/internal/metrics"
	"github.com/j-veylop/ai-quota-bar/internal/models"
	"github.com/j-veylop/ai-quota-bar/internal/server"
	"github.com/j-veylop/ai-quota-bar/internal/services/alerts"
	"github.com/j-veylop/ai-quota-bar/internal/services/history"
	"github.com/j-veylop/ai-quota-bar/internal/services/projection"
	"github.com/j-veylop/ai-quota-bar/internal/services/quota"
	"github.com/j-veylop/ai-quota-bar/internal/services/settings"
)

type (
	// UsageUpdatedEvent is emitted after a provider poll has been recorded.
	UsageUpdatedEvent struct {
		Usage    *models.ProviderUsage
		Statuses []models.KeyStatus
	}

	// SettingsChangedEvent is emitted when the settings file changes.
	SettingsChangedEvent struct {
		Settings *config.Settings
	}

	// AlertEvent is emitted for every notification sent.
	AlertEvent struct {
		Alert alerts.Alert
	}

	// RollupEvent is emitted after each daily rollup.
	RollupEvent struct {
		Error  error
		Result db.RollupResult
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Error   error
		Service string
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (UsageUpdatedEvent) isServiceEvent()    {}
func (SettingsChangedEvent) isServiceEvent() {}
func (AlertEvent) isServiceEvent()           {}
func (RollupEvent) isServiceEvent()          {}
func (ErrorEvent) isServiceEvent()           {}

// Option customizes a Manager.
type Option func(*Manager)

// WithNotifier replaces the desktop notifier.
func WithNotifier(n alerts.Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithProviders polls the given providers instead of those in the settings
// file.
func WithProviders(providers []quota.Provider) Option {
	return func(m *Manager) { m.fixedProviders = providers }
}

// WithClock sets the time source used to timestamp samples.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager orchestrates services and event routing.
type Manager struct {
	mu             sync.RWMutex
	cfg            *config.Config
	database       *db.DB
	store          *history.Store
	scheduler      *history.Scheduler
	projection     *projection.Service
	quota          *quota.Service
	settings       *settings.Service
	alerts         *alerts.Service
	metrics        *metrics.Metrics
	server         *server.Server
	notifier       alerts.Notifier
	fixedProviders []quota.Provider
	now            func() time.Time
	cancel         context.CancelFunc
	eventChan      chan ServiceEvent
	stopChan       chan struct{}
	subscribers    []chan<- ServiceEvent
	closeOnce      sync.Once
}

// NewManager creates a new service manager.
func NewManager(cfg *config.Config, opts ...Option) (*Manager, error) {
	m := &Manager{
		cfg:       cfg,
		notifier:  alerts.DesktopNotifier{},
		now:       time.Now,
		eventChan: make(chan ServiceEvent, 100),
		stopChan:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	var err error
	m.store, m.database, err = OpenStore(cfg, m.now())
	if err != nil {
		return nil, err
	}

	m.projection = projection.New(m.store, projectionParams(cfg))
	m.metrics = metrics.New()
	m.alerts = alerts.New(m.notifier)

	m.settings, err = settings.New(cfg.SettingsPath)
	if err != nil {
		_ = m.database.Close()
		return nil, err
	}

	quotaConfig := quota.DefaultConfig()
	quotaConfig.PollInterval = cfg.RefreshInterval
	m.quota = quota.New(m.providers(m.settings.Get()), quotaConfig)

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	m.scheduler, err = history.NewScheduler(m.store, cfg.RollupSchedule, m.onRollup)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	if err := m.scheduler.Start(ctx); err != nil {
		_ = m.Close()
		return nil, err
	}

	if cfg.MetricsAddr != "" {
		m.server = server.New(cfg.MetricsAddr, m, m.metrics)
		go func() {
			if err := m.server.ListenAndServe(); err != nil {
				logger.Error("status server stopped", "error", err)
				m.broadcast(ErrorEvent{Service: "server", Error: err})
			}
		}()
	}

	go m.routeEvents()

	return m, nil
}

// OpenStore opens the sample log and loads the trend store without starting
// any background service. A trend file that cannot be read is rebuilt from the
// sample log. The caller closes the returned database.
func OpenStore(cfg *config.Config, now time.Time) (*history.Store, *db.DB, error) {
	database, err := db.New(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	store := history.New(cfg.HistoryPath, database, historyParams(cfg))
	if err := store.Load(); err != nil {
		logger.Warn("trend file unusable, rebuilding from sample log", "path", cfg.HistoryPath, "error", err)
		if err := store.Rebuild(now); err != nil {
			logger.Error("rebuild failed", "error", err)
		}
	}
	return store, database, nil
}

func historyParams(cfg *config.Config) history.Params {
	p := history.DefaultParams()
	if cfg.ResetDropPct > 0 {
		p.ResetDropPct = cfg.ResetDropPct
	}
	if cfg.HistoryMaxAge > 0 {
		p.MaxAge = cfg.HistoryMaxAge
	}
	if cfg.LimitHitPct > 0 {
		p.Retention.LimitHitPct = cfg.LimitHitPct
	}
	if cfg.SampleRetention > 0 {
		p.Retention.SampleRetention = cfg.SampleRetention
	}
	if cfg.DailyRetentionDays > 0 {
		p.Retention.DailyRetentionDays = cfg.DailyRetentionDays
	}
	return p
}

func projectionParams(cfg *config.Config) projection.Params {
	p := projection.DefaultParams()
	if cfg.BurnWindow > 0 {
		p.Window = cfg.BurnWindow
	}
	if cfg.MinSpan > 0 {
		p.MinSpan = cfg.MinSpan
	}
	if cfg.HalfLife > 0 {
		p.HalfLife = cfg.HalfLife
	}
	return p
}

func (m *Manager) providers(st *config.Settings) []quota.Provider {
	if m.fixedProviders != nil {
		return m.fixedProviders
	}
	return quota.NewProviders(st, nil)
}

// routeEvents routes events from individual services to subscribers.
func (m *Manager) routeEvents() {
	for {
		select {
		case event := <-m.settings.Events():
			m.handleSettingsEvent(event)

		case event := <-m.quota.Events():
			m.handleQuotaEvent(event)

		case <-m.stopChan:
			return
		}
	}
}

func (m *Manager) handleSettingsEvent(event settings.Event) {
	switch event.Type {
	case settings.EventSettingsChanged:
		m.quota.SetProviders(m.providers(event.Settings))
		m.forgetRemoved(event.Settings)
		m.broadcast(SettingsChangedEvent{Settings: event.Settings})

	case settings.EventError:
		m.broadcast(ErrorEvent{Service: "settings", Error: event.Error})
	}
}

// forgetRemoved drops alert state for keys whose provider left the settings.
func (m *Manager) forgetRemoved(st *config.Settings) {
	for _, key := range m.store.Keys() {
		if _, ok := st.Provider(key.Provider()); !ok {
			m.alerts.Forget(key)
		}
	}
}

func (m *Manager) handleQuotaEvent(event quota.Event) {
	switch event.Type {
	case quota.EventUsageUpdated:
		m.recordUsage(event.Usage)

	case quota.EventUsageError:
		m.metrics.IncPollError(event.Provider)
		m.broadcast(ErrorEvent{Service: "quota", Error: event.Error})
		m.broadcast(UsageUpdatedEvent{Usage: event.Usage, Statuses: m.Statuses()})
	}
}

// recordUsage runs one successful poll through the pipeline: append every
// row to history, persist the trend file, check limit alerts, refresh burn
// estimates, check pacing, then publish.
func (m *Manager) recordUsage(usage *models.ProviderUsage) {
	if usage == nil {
		return
	}
	now := m.now()
	st := m.settings.Get()

	for _, row := range usage.Rows {
		key := usage.RowKey(row)
		if err := m.store.Append(key, row.Pct, now); err != nil {
			logger.Warn("failed to record sample", "key", key, "error", err)
			m.broadcast(ErrorEvent{Service: "history", Error: err})
		}
		m.metrics.ObserveSample(key, row.Pct)
	}

	if err := m.store.Save(); err != nil {
		logger.Warn("failed to save trend file", "error", err)
	}

	for _, a := range m.alerts.CheckUsage(usage, st) {
		m.broadcast(AlertEvent{Alert: a})
	}

	for _, row := range usage.Rows {
		key := usage.RowKey(row)
		est := m.projection.Estimate(key, now)
		m.metrics.ObserveEstimate(est)
		if a, ok := m.alerts.CheckPacing(est, rowName(usage, row), st); ok {
			m.broadcast(AlertEvent{Alert: a})
		}
	}

	m.broadcast(UsageUpdatedEvent{Usage: usage, Statuses: m.Statuses()})
}

func (m *Manager) onRollup(res db.RollupResult, took time.Duration, err error) {
	m.metrics.ObserveRollup(took, err)
	m.broadcast(RollupEvent{Result: res, Error: err})
}

func rowName(usage *models.ProviderUsage, row models.LimitRow) string {
	if len(usage.Rows) <= 1 || row.Label == "" {
		return usage.Provider
	}
	return usage.Provider + " " + row.Label
}

// Statuses returns one entry per tracked limit in provider order.
func (m *Manager) Statuses() []models.KeyStatus {
	all := m.quota.GetAll()
	var out []models.KeyStatus
	for _, providerKey := range m.quota.Providers() {
		usage, ok := all[providerKey]
		if !ok {
			continue
		}
		for _, row := range usage.Rows {
			key := usage.RowKey(row)
			est, _ := m.projection.Cached(key)
			out = append(out, models.KeyStatus{
				ResetAt:  row.ResetAt,
				Key:      key,
				Provider: usage.Provider,
				Label:    row.Label,
				Estimate: est,
				Trend:    m.store.Values(key),
				Pct:      row.Pct,
			})
		}
	}
	return out
}

// Usage returns the cached usage of every provider.
func (m *Manager) Usage() map[string]*models.ProviderUsage {
	return m.quota.GetAll()
}

// WeeklyStats returns the closed days of the last week for key.
func (m *Manager) WeeklyStats(key models.Key, now time.Time) ([]models.DailyStat, error) {
	return m.store.WeeklyStats(key, now)
}

// LimitHitCount returns the samples at or above the limit-hit threshold over
// the last week.
func (m *Manager) LimitHitCount(key models.Key, now time.Time) (int, error) {
	return m.store.LimitHitCount(key, now)
}

// HistoryOverview summarizes the last days of daily stats.
func (m *Manager) HistoryOverview(timeRange models.TimeRange) (*models.HistoryOverview, error) {
	return m.store.Overview(m.now(), timeRange.Days())
}

// Refresh polls every provider now.
func (m *Manager) Refresh(ctx context.Context) {
	m.quota.RefreshAll(ctx)
}

// ToggleNotification flips a notification toggle and returns its new state.
func (m *Manager) ToggleNotification(name string) (bool, error) {
	return m.settings.ToggleNotification(name)
}

// Settings returns a copy of the current settings.
func (m *Manager) Settings() *config.Settings {
	return m.settings.Get()
}

// Config returns the process configuration.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// NextRollup returns when the next scheduled rollup runs.
func (m *Manager) NextRollup() time.Time {
	return m.scheduler.NextRun()
}

// QuotaStats returns poller statistics.
func (m *Manager) QuotaStats() quota.Stats {
	return m.quota.GetStats()
}

// Store returns the history store.
func (m *Manager) Store() *history.Store {
	return m.store
}

// Projection returns the projection service.
func (m *Manager) Projection() *projection.Service {
	return m.projection
}

// Metrics returns the metrics registry wrapper.
func (m *Manager) Metrics() *metrics.Metrics {
	return m.metrics
}

// Database returns the database instance for direct access.
func (m *Manager) Database() *db.DB {
	return m.database
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	select {
	case m.eventChan <- event:
	default:
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, WaitForEvent(ch)
}

// WaitForEvent returns a tea.Cmd for the next event on a channel.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Close stops all services, saves the trend file and closes the database.
func (m *Manager) Close() error {
	var errs []error
	m.closeOnce.Do(func() {
		close(m.stopChan)
		if m.cancel != nil {
			m.cancel()
		}

		m.mu.Lock()
		for _, sub := range m.subscribers {
			close(sub)
		}
		m.subscribers = nil
		m.mu.Unlock()

		if m.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := m.server.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
			cancel()
		}
		if m.scheduler != nil {
			m.scheduler.Stop()
		}
		if m.quota != nil {
			if err := m.quota.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := m.settings.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := m.store.Save(); err != nil {
			errs = append(errs, err)
		}
		if err := m.database.Close(); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}
