package app

import (
	"time"

	"github.com/j-veylop/ai-quota-bar/internal/config"
	"github.com/j-veylop/ai-quota-bar/internal/db"
	"github.com/j-veylop/ai-quota-bar/internal/models"
	"github.com/j-veylop/ai-quota-bar/internal/services"
)

// TickMsg is sent periodically to trigger state refresh.
type TickMsg struct {
	Time time.Time
}

// StartLoadingMsg signals that a resource is starting to load.
type StartLoadingMsg struct {
	Resource string
}

// StopLoadingMsg signals that a resource has finished loading.
type StopLoadingMsg struct {
	Resource string
}

// UsageLoadedMsg carries the latest statuses of every tracked limit.
type UsageLoadedMsg struct {
	Usage    map[string]*models.ProviderUsage
	Settings *config.Settings
	Statuses []models.KeyStatus
}

// RefreshMsg requests an immediate poll of every provider.
type RefreshMsg struct{}

// ToggleNotificationMsg requests flipping a notification toggle such as
// "claude_pacing".
type ToggleNotificationMsg struct {
	Name string
}

// ToggleNotificationResultMsg contains the result of a toggle.
type ToggleNotificationResultMsg struct {
	Error error
	Name  string
	On    bool
}

// RollupCompletedMsg is sent after the daily rollup has run.
type RollupCompletedMsg struct {
	Result db.RollupResult
}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Message  string
	Type     NotificationType
	Duration time.Duration
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// ServiceEventMsg wraps a service event from the service manager.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// SubscriptionEventMsg is the callback wrapper for service subscription.
type SubscriptionEventMsg struct {
	Channel chan services.ServiceEvent
}

// ErrorMsg represents a general error.
type ErrorMsg struct {
	Error   error
	Context string
}

// TabSwitchMsg requests switching to a specific tab.
type TabSwitchMsg struct {
	Tab TabID
}

// ToggleHelpMsg toggles the help display.
type ToggleHelpMsg struct{}

