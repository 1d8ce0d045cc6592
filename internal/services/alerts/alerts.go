// Package alerts sends desktop notifications for limit crossings, resets and
// pacing.
package alerts

import (
	"fmt"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/j-veylop/ai-quota-bar/internal/config"
	"github.com/j-veylop/ai-quota-bar/internal/logger"
	"github.com/j-veylop/ai-quota-bar/internal/models"
)

// resetDropPct is the minimum fall from above the warning threshold that is
// reported as a reset.
const resetDropPct = 10

// Kind identifies the alert type.
type Kind string

// Alert kinds.
const (
	KindWarning  Kind = "warning"
	KindCritical Kind = "critical"
	KindReset    Kind = "reset"
	KindPacing   Kind = "pacing"
)

// Alert is a notification that was sent.
type Alert struct {
	Key     models.Key
	Kind    Kind
	Title   string
	Message string
}

// Notifier delivers a notification.
type Notifier interface {
	Notify(title, message string) error
}

// DesktopNotifier sends notifications through the OS notification center.
type DesktopNotifier struct{}

// Notify implements Notifier.
func (DesktopNotifier) Notify(title, message string) error {
	return beeep.Notify(title, message, "")
}

type warnState struct {
	warn bool
	crit bool
}

// Service tracks per-key alert state so each crossing is reported once.
type Service struct {
	notifier Notifier
	prev     map[models.Key]int
	warned   map[models.Key]warnState
	paced    map[models.Key]bool
	mu       sync.Mutex
}

// New creates an alert service.
func New(notifier Notifier) *Service {
	return &Service{
		notifier: notifier,
		prev:     make(map[models.Key]int),
		warned:   make(map[models.Key]warnState),
		paced:    make(map[models.Key]bool),
	}
}

// CheckUsage compares each row of usage with the previous poll and sends
// warning, critical and reset notifications. It returns what was sent.
func (s *Service) CheckUsage(usage *models.ProviderUsage, st *config.Settings) []Alert {
	if usage == nil || usage.Error != "" {
		return nil
	}
	th := st.Thresholds
	warnOn := st.NotificationEnabled(usage.ProviderKey, config.NotifyWarning)
	resetOn := st.NotificationEnabled(usage.ProviderKey, config.NotifyReset)

	s.mu.Lock()
	defer s.mu.Unlock()

	var sent []Alert
	for _, row := range usage.Rows {
		key := usage.RowKey(row)
		name := rowName(usage, row)
		state := s.warned[key]
		prev, hadPrev := s.prev[key]
		s.prev[key] = row.Pct

		if hadPrev && prev >= th.Warning && row.Pct < th.Warning && prev-row.Pct >= resetDropPct {
			state = warnState{}
			if resetOn {
				sent = s.send(sent, Alert{
					Key:     key,
					Kind:    KindReset,
					Title:   name + " has reset",
					Message: fmt.Sprintf("Now at %d%%, you're good to go.", row.Pct),
				})
			}
		}

		switch {
		case row.Pct < th.Warning:
			state = warnState{}
		case row.Pct >= th.Critical && !state.crit:
			state.crit = true
			if warnOn {
				sent = s.send(sent, Alert{
					Key:     key,
					Kind:    KindCritical,
					Title:   fmt.Sprintf("%s is at %d%%!", name, row.Pct),
					Message: orDefault(models.ResetText(row.ResetAt, usage.FetchedAt), "Limit almost reached"),
				})
			}
		case row.Pct >= th.Warning && row.Pct < th.Critical && !state.warn:
			state.warn = true
			if warnOn {
				sent = s.send(sent, Alert{
					Key:     key,
					Kind:    KindWarning,
					Title:   fmt.Sprintf("%s is at %d%%", name, row.Pct),
					Message: orDefault(models.ResetText(row.ResetAt, usage.FetchedAt), "Approaching limit"),
				})
			}
		}
		s.warned[key] = state
	}
	return sent
}

// CheckPacing sends a predictive alert when the estimated time to limit is at
// or under the pacing threshold. A key alerts once until its ETA recovers.
func (s *Service) CheckPacing(est models.Estimate, name string, st *config.Settings) (Alert, bool) {
	if !st.NotificationEnabled(est.Key.Provider(), config.NotifyPacing) {
		return Alert{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !est.HasETA || float64(est.ETAMinutes) > st.Thresholds.Pacing.Minutes() {
		delete(s.paced, est.Key)
		return Alert{}, false
	}
	if s.paced[est.Key] {
		return Alert{}, false
	}
	s.paced[est.Key] = true

	a := Alert{
		Key:     est.Key,
		Kind:    KindPacing,
		Title:   fmt.Sprintf("Slow down: %s limit in ~%s", name, models.FormatETA(est.ETAMinutes)),
		Message: "At your current pace you'll hit the cap soon.",
	}
	if sent := s.send(nil, a); len(sent) == 0 {
		return Alert{}, false
	}
	return a, true
}

// Forget drops all state for key.
func (s *Service) Forget(key models.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prev, key)
	delete(s.warned, key)
	delete(s.paced, key)
}

func (s *Service) send(sent []Alert, a Alert) []Alert {
	if s.notifier == nil {
		return sent
	}
	if err := s.notifier.Notify(a.Title, a.Message); err != nil {
		logger.Debug("notification suppressed", "key", a.Key, "kind", a.Kind, "error", err)
		return sent
	}
	logger.Info("notification sent", "key", a.Key, "kind", a.Kind)
	return append(sent, a)
}

func rowName(usage *models.ProviderUsage, row models.LimitRow) string {
	if len(usage.Rows) <= 1 || row.Label == "" {
		return usage.Provider
	}
	return usage.Provider + " " + row.Label
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
