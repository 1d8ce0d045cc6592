package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/j-veylop/ai-quota-bar/internal/config"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()

	settingsPath := filepath.Join(t.TempDir(), "settings.yaml")
	svc, err := New(settingsPath)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	t.Cleanup(func() {
		if err := svc.Close(); err != nil {
			t.Logf("Close() failed: %v", err)
		}
	})

	return svc, settingsPath
}

func waitFor(t *testing.T, svc *Service, want EventType) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case event := <-svc.Events():
			if event.Type == want {
				return event
			}
		case <-timeout:
			t.Fatalf("timeout waiting for event %d", want)
			return Event{}
		}
	}
}

func TestNew_CreatesDefaults(t *testing.T) {
	svc, settingsPath := newTestService(t)

	if _, err := os.Stat(settingsPath); err != nil {
		t.Errorf("settings file was not created: %v", err)
	}

	event := waitFor(t, svc, EventSettingsLoaded)
	if event.Settings.Thresholds.Warning != 80 || event.Settings.Thresholds.Critical != 95 {
		t.Errorf("thresholds = %+v", event.Settings.Thresholds)
	}
	if svc.Path() != settingsPath {
		t.Errorf("Path() = %q", svc.Path())
	}
}

func TestNew_CorruptFileUsesDefaults(t *testing.T) {
	settingsPath := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(settingsPath, []byte("providers: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}

	svc, err := New(settingsPath)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer func() { _ = svc.Close() }()

	event := waitFor(t, svc, EventError)
	if !strings.Contains(event.Error.Error(), ".bak") {
		t.Errorf("error = %v, want mention of backup", event.Error)
	}
	if _, err := os.Stat(settingsPath + ".bak"); err != nil {
		t.Errorf("backup missing: %v", err)
	}
	if got := svc.Get(); got.Thresholds.Pacing != 30*time.Minute {
		t.Errorf("settings = %+v", got)
	}
}

func TestSetNotification_Persists(t *testing.T) {
	svc, settingsPath := newTestService(t)

	if err := svc.SetNotification("claude_pacing", false); err != nil {
		t.Fatalf("SetNotification() failed: %v", err)
	}
	if svc.Get().NotificationEnabled("claude", config.NotifyPacing) {
		t.Error("toggle not applied in memory")
	}

	saved, err := config.LoadSettings(settingsPath)
	if err != nil {
		t.Fatalf("LoadSettings() failed: %v", err)
	}
	if saved.NotificationEnabled("claude", config.NotifyPacing) {
		t.Error("toggle not persisted")
	}
}

func TestToggleNotification(t *testing.T) {
	svc, _ := newTestService(t)

	on, err := svc.ToggleNotification("cursor_warning")
	if err != nil || on {
		t.Fatalf("first toggle = %v, %v; want off", on, err)
	}
	on, err = svc.ToggleNotification("cursor_warning")
	if err != nil || !on {
		t.Fatalf("second toggle = %v, %v; want on", on, err)
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	svc, _ := newTestService(t)

	got := svc.Get()
	got.Notifications["claude_reset"] = false
	got.Thresholds.Warning = 10

	again := svc.Get()
	if !again.NotificationEnabled("claude", config.NotifyReset) || again.Thresholds.Warning != 80 {
		t.Errorf("mutating Get() result leaked: %+v", again)
	}
}

func TestWatchFileChange(t *testing.T) {
	svc, settingsPath := newTestService(t)
	waitFor(t, svc, EventSettingsLoaded)

	content := []byte(`thresholds:
  warning: 70
  critical: 90
  pacing: 45m
providers:
  - key: claude
    name: Claude
    url: https://claude.ai/api/usage
    limits:
      - label: Session
        pct_path: five_hour.utilization
`)
	if err := os.WriteFile(settingsPath, content, 0o600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	event := waitFor(t, svc, EventSettingsChanged)
	if event.Settings.Thresholds.Warning != 70 || len(event.Settings.Providers) != 1 {
		t.Errorf("reloaded settings = %+v", event.Settings)
	}
	if got := svc.Get(); got.Thresholds.Pacing != 45*time.Minute {
		t.Errorf("Get() pacing = %v", got.Thresholds.Pacing)
	}
}

func TestSendEvent_Full(t *testing.T) {
	svc, _ := newTestService(t)

	for range 150 {
		svc.sendEvent(Event{Type: EventSettingsChanged})
	}
	if got := len(svc.eventChan); got != 100 {
		t.Errorf("buffered events = %d, want 100", got)
	}
}
