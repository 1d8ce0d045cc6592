package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/ai-quota-bar/internal/services"
)

const (
	// DefaultTickInterval is the default interval between ticks.
	DefaultTickInterval = 2 * time.Second

	// DefaultNotificationDuration is the default duration for notifications.
	DefaultNotificationDuration = 5 * time.Second

	// QuickNotificationDuration is for brief notifications.
	QuickNotificationDuration = 3 * time.Second

	// LongNotificationDuration is for important notifications.
	LongNotificationDuration = 10 * time.Second

	refreshTimeout = time.Minute
)

// tickCmd returns a command that sends a TickMsg after the specified interval.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

func defaultTickCmd() tea.Cmd {
	return tickCmd(DefaultTickInterval)
}

// loadUsageCmd reads the cached statuses without polling.
func loadUsageCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		return UsageLoadedMsg{
			Statuses: mgr.Statuses(),
			Usage:    mgr.Usage(),
			Settings: mgr.Settings(),
		}
	}
}

// refreshUsageCmd polls every provider and then reports the new statuses.
func refreshUsageCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		mgr.Refresh(ctx)
		return UsageLoadedMsg{
			Statuses: mgr.Statuses(),
			Usage:    mgr.Usage(),
			Settings: mgr.Settings(),
		}
	}
}

// toggleNotificationCmd flips a notification toggle in the settings file.
func toggleNotificationCmd(mgr *services.Manager, name string) tea.Cmd {
	return func() tea.Msg {
		on, err := mgr.ToggleNotification(name)
		return ToggleNotificationResultMsg{Name: name, On: on, Error: err}
	}
}

// subscribeToServicesCmd returns a command that subscribes to service events.
func subscribeToServicesCmd(mgr *services.Manager) tea.Cmd {
	ch, _ := mgr.Subscribe()
	return func() tea.Msg {
		return SubscriptionEventMsg{Channel: ch}
	}
}

// waitForServiceEventCmd returns a command that waits for the next service event.
func waitForServiceEventCmd(ch <-chan services.ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return ServiceEventMsg{Event: event}
	}
}

// clearNotificationCmd returns a command that removes a notification after a delay.
func clearNotificationCmd(id string, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(_ time.Time) tea.Msg {
		return RemoveNotificationMsg{ID: id}
	})
}

func notifyCmd(t NotificationType, message string, d time.Duration) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{Type: t, Message: message, Duration: d}
	}
}

func notifySuccessCmd(message string) tea.Cmd {
	return notifyCmd(NotificationSuccess, message, DefaultNotificationDuration)
}

func notifyErrorCmd(message string) tea.Cmd {
	return notifyCmd(NotificationError, message, LongNotificationDuration)
}

func notifyWarningCmd(message string) tea.Cmd {
	return notifyCmd(NotificationWarning, message, LongNotificationDuration)
}

func notifyInfoCmd(message string) tea.Cmd {
	return notifyCmd(NotificationInfo, message, QuickNotificationDuration)
}

// Commands exposes the command constructors to code outside the package.
type Commands struct {
	manager *services.Manager
}

// NewCommands creates a new Commands instance.
func NewCommands(mgr *services.Manager) *Commands {
	return &Commands{manager: mgr}
}

// LoadUsage returns a command that reads the cached statuses.
func (c *Commands) LoadUsage() tea.Cmd {
	return loadUsageCmd(c.manager)
}

// RefreshUsage returns a command that polls every provider.
func (c *Commands) RefreshUsage() tea.Cmd {
	return refreshUsageCmd(c.manager)
}

// ToggleNotification returns a command that flips a notification toggle.
func (c *Commands) ToggleNotification(name string) tea.Cmd {
	return toggleNotificationCmd(c.manager, name)
}

// NotifyError returns a command that adds an error notification.
func (c *Commands) NotifyError(message string) tea.Cmd {
	return notifyErrorCmd(message)
}

// NotifyInfo returns a command that adds an info notification.
func (c *Commands) NotifyInfo(message string) tea.Cmd {
	return notifyInfoCmd(message)
}
