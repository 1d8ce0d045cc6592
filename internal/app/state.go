// Package app provides the main Bubble Tea application model and state management.
package app

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/j-veylop/ai-quota-bar/internal/config"
	"github.com/j-veylop/ai-quota-bar/internal/models"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	// NotificationSuccess represents a success notification.
	NotificationSuccess NotificationType = iota
	// NotificationError represents an error notification.
	NotificationError
	// NotificationWarning represents a warning notification.
	NotificationWarning
	// NotificationInfo represents an informational notification.
	NotificationInfo
	// NotificationLoading represents a loading notification with spinner.
	NotificationLoading
)

const (
	// LoadingNotificationID is the fixed ID for loading notifications.
	LoadingNotificationID = "__loading__"

	maxNotifications = 10
)

// String returns the string representation of a NotificationType.
func (n NotificationType) String() string {
	switch n {
	case NotificationSuccess:
		return "success"
	case NotificationError:
		return "error"
	case NotificationWarning:
		return "warning"
	case NotificationInfo:
		return "info"
	case NotificationLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Notification represents a user-facing notification message.
type Notification struct {
	CreatedAt time.Time
	ID        string
	Message   string
	Type      NotificationType
	Duration  time.Duration
}

// IsExpired returns true if the notification has expired.
func (n *Notification) IsExpired() bool {
	if n.Duration <= 0 {
		return false
	}
	return time.Since(n.CreatedAt) > n.Duration
}

// LoadingState tracks loading states for different resources.
type LoadingState struct {
	Initial bool
	Usage   bool
	History bool
}

// State is shared between the root model and the tabs.
type State struct {
	LastUpdated time.Time
	Settings    *config.Settings
	Usage       map[string]*models.ProviderUsage
	Statuses    []models.KeyStatus

	notifications []Notification
	Loading       LoadingState

	SelectedIndex   int
	notificationSeq int

	mu sync.RWMutex
}

// NewState creates the shared state with initial loading set.
func NewState() *State {
	return &State{
		Settings:      config.DefaultSettings(),
		Usage:         make(map[string]*models.ProviderUsage),
		notifications: make([]Notification, 0),
		Loading: LoadingState{
			Initial: true,
		},
	}
}

// SetLoading sets the loading state for a specific resource.
func (s *State) SetLoading(resource string, loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch resource {
	case "initial":
		s.Loading.Initial = loading
	case "usage":
		s.Loading.Usage = loading
	case "history":
		s.Loading.History = loading
	}
}

// AnyLoading returns true if any resource is currently loading.
func (s *State) AnyLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Loading.Initial || s.Loading.Usage || s.Loading.History
}

// IsInitialLoading returns true if initial data is still loading.
func (s *State) IsInitialLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Loading.Initial
}

// GetLoadingResources returns a list of currently loading resources.
func (s *State) GetLoadingResources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var resources []string
	if s.Loading.Initial {
		resources = append(resources, "initial")
	}
	if s.Loading.Usage {
		resources = append(resources, "usage")
	}
	if s.Loading.History {
		resources = append(resources, "history")
	}
	return resources
}

// SetUsage replaces the current statuses and provider results.
func (s *State) SetUsage(statuses []models.KeyStatus, usage map[string]*models.ProviderUsage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Statuses = statuses
	if usage != nil {
		s.Usage = usage
	}
	s.LastUpdated = time.Now()
	if s.SelectedIndex >= len(statuses) {
		s.SelectedIndex = max(len(statuses)-1, 0)
	}
}

// GetStatuses returns a copy of the current statuses.
func (s *State) GetStatuses() []models.KeyStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.Statuses)
}

// GetStatusCount returns the number of tracked limits.
func (s *State) GetStatusCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Statuses)
}

// GetSelectedStatus returns the status under the cursor.
func (s *State) GetSelectedStatus() (models.KeyStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.SelectedIndex < 0 || s.SelectedIndex >= len(s.Statuses) {
		return models.KeyStatus{}, false
	}
	return s.Statuses[s.SelectedIndex], true
}

// ProviderErrors returns "Provider: error" for every provider whose last poll
// failed, sorted by provider key.
func (s *State) ProviderErrors() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, k := range slices.Sorted(maps.Keys(s.Usage)) {
		u := s.Usage[k]
		if u != nil && u.Error != "" {
			out = append(out, fmt.Sprintf("%s: %s", u.Provider, u.Error))
		}
	}
	return out
}

// SetSettings stores the latest settings.
func (s *State) SetSettings(st *config.Settings) {
	if st == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Settings = st
}

// GetSettings returns the latest settings.
func (s *State) GetSettings() *config.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Settings
}

// AddNotification adds a new notification and returns its ID.
func (s *State) AddNotification(notifType NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notificationSeq++
	id := fmt.Sprintf("%s-%d", time.Now().Format("20060102150405"), s.notificationSeq)

	s.notifications = append(s.notifications, Notification{
		ID:        id,
		Type:      notifType,
		Message:   message,
		CreatedAt: time.Now(),
		Duration:  duration,
	})

	if len(s.notifications) > maxNotifications {
		s.notifications = s.notifications[len(s.notifications)-maxNotifications:]
	}

	return id
}

// RemoveNotification removes a notification by ID.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return
		}
	}
}

// ClearExpiredNotifications removes all expired notifications.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	s.notifications = active
}

// GetNotifications returns a copy of all active notifications.
func (s *State) GetNotifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	return active
}

// SetLoadingNotification sets a loading notification message.
func (s *State) SetLoadingNotification(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == LoadingNotificationID {
			s.notifications[i].Message = message
			return
		}
	}

	s.notifications = append(s.notifications, Notification{
		ID:        LoadingNotificationID,
		Type:      NotificationLoading,
		Message:   message,
		CreatedAt: time.Now(),
	})
}

// ClearLoadingNotification removes the loading notification.
func (s *State) ClearLoadingNotification() {
	s.RemoveNotification(LoadingNotificationID)
}

// GetLastUpdated returns the last time usage was updated.
func (s *State) GetLastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastUpdated
}

// GetSelectedIndex returns the currently selected row.
func (s *State) GetSelectedIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.SelectedIndex
}

// SetSelectedIndex updates the selected row.
func (s *State) SetSelectedIndex(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SelectedIndex = idx
}
