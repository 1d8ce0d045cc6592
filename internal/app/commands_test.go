package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/ai-quota-bar/internal/config"
	"github.com/j-veylop/ai-quota-bar/internal/models"
	"github.com/j-veylop/ai-quota-bar/internal/services"
	"github.com/j-veylop/ai-quota-bar/internal/services/quota"
)

type stubProvider struct{}

func (stubProvider) Key() string  { return "claude" }
func (stubProvider) Name() string { return "Claude" }

func (stubProvider) Fetch(context.Context) (*models.ProviderUsage, error) {
	return &models.ProviderUsage{
		Provider:    "Claude",
		ProviderKey: "claude",
		Rows: []models.LimitRow{
			{Label: "Session", Pct: 30},
			{Label: "Weekly", Pct: 55},
		},
	}, nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string) error { return nil }

func newTestManager(t *testing.T) *services.Manager {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		DatabasePath:    filepath.Join(dir, "history.db"),
		HistoryPath:     filepath.Join(dir, "history.json"),
		SettingsPath:    filepath.Join(dir, "settings.yaml"),
		RollupSchedule:  "@hourly",
		RefreshInterval: time.Hour,
	}
	mgr, err := services.NewManager(cfg,
		services.WithProviders([]quota.Provider{stubProvider{}}),
		services.WithNotifier(nopNotifier{}),
	)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr
}

func TestCommands_Notifications(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) tea.Cmd
		want NotificationType
	}{
		{"Success", notifySuccessCmd, NotificationSuccess},
		{"Error", notifyErrorCmd, NotificationError},
		{"Warning", notifyWarningCmd, NotificationWarning},
		{"Info", notifyInfoCmd, NotificationInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.fn("msg")()

			addMsg, ok := msg.(AddNotificationMsg)
			if !ok {
				t.Fatalf("Expected AddNotificationMsg, got %T", msg)
			}
			if addMsg.Type != tt.want {
				t.Errorf("Type = %v, want %v", addMsg.Type, tt.want)
			}
			if addMsg.Message != "msg" {
				t.Errorf("Message = %q, want msg", addMsg.Message)
			}
			if addMsg.Duration <= 0 {
				t.Error("Duration should be positive")
			}
		})
	}
}

func TestCommands_RefreshUsage(t *testing.T) {
	cmds := NewCommands(newTestManager(t))

	msg, ok := cmds.RefreshUsage()().(UsageLoadedMsg)
	if !ok {
		t.Fatal("expected UsageLoadedMsg")
	}
	if len(msg.Statuses) != 2 {
		t.Fatalf("statuses = %+v", msg.Statuses)
	}
	if msg.Statuses[0].Key != "claude_session" || msg.Statuses[1].Pct != 55 {
		t.Errorf("statuses = %+v", msg.Statuses)
	}
	if msg.Settings == nil || msg.Usage["claude"] == nil {
		t.Errorf("msg = %+v", msg)
	}
}

func TestCommands_ToggleNotification(t *testing.T) {
	cmds := NewCommands(newTestManager(t))

	res, ok := cmds.ToggleNotification("claude_warning")().(ToggleNotificationResultMsg)
	if !ok {
		t.Fatal("expected ToggleNotificationResultMsg")
	}
	if res.Error != nil || res.On || res.Name != "claude_warning" {
		t.Errorf("result = %+v", res)
	}
}

func TestWaitForServiceEventCmd(t *testing.T) {
	ch := make(chan services.ServiceEvent, 1)
	ch <- services.ErrorEvent{Service: "quota"}

	msg, ok := waitForServiceEventCmd(ch)().(ServiceEventMsg)
	if !ok {
		t.Fatal("expected ServiceEventMsg")
	}
	if ev, ok := msg.Event.(services.ErrorEvent); !ok || ev.Service != "quota" {
		t.Errorf("event = %#v", msg.Event)
	}

	close(ch)
	if msg := waitForServiceEventCmd(ch)(); msg != nil {
		t.Errorf("closed channel should yield nil, got %#v", msg)
	}
}

func TestClearNotificationCmd(t *testing.T) {
	msg := clearNotificationCmd("id", time.Millisecond)()
	if rm, ok := msg.(RemoveNotificationMsg); !ok || rm.ID != "id" {
		t.Errorf("msg = %#v", msg)
	}
}
