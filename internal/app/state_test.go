package app

import (
	"testing"
	"time"

	"github.com/j-veylop/ai-quota-bar/internal/config"
	"github.com/j-veylop/ai-quota-bar/internal/models"
)

func TestNewState(t *testing.T) {
	s := NewState()
	if s == nil {
		t.Fatal("NewState returned nil")
	}
	if len(s.Statuses) != 0 {
		t.Error("Statuses should be empty")
	}
	if !s.Loading.Initial {
		t.Error("Initial loading should be true")
	}
	if s.GetSettings() == nil {
		t.Error("Settings should default")
	}
}

func TestState_SetLoading(t *testing.T) {
	s := NewState()

	s.SetLoading("usage", true)
	if !s.Loading.Usage || !s.AnyLoading() {
		t.Error("usage should be loading")
	}

	s.SetLoading("usage", false)
	if !s.AnyLoading() {
		t.Error("AnyLoading should be true (Initial is true)")
	}

	s.SetLoading("initial", false)
	if s.AnyLoading() {
		t.Error("AnyLoading should be false")
	}
	if resources := s.GetLoadingResources(); len(resources) != 0 {
		t.Errorf("GetLoadingResources should be empty, got %v", resources)
	}

	s.SetLoading("history", true)
	if resources := s.GetLoadingResources(); len(resources) != 1 || resources[0] != "history" {
		t.Errorf("GetLoadingResources should contain history, got %v", resources)
	}
}

func TestState_SetUsage(t *testing.T) {
	s := NewState()
	s.SetSelectedIndex(5)

	statuses := []models.KeyStatus{
		{Key: "claude_session", Provider: "Claude", Label: "Session", Pct: 10},
		{Key: "cursor", Provider: "Cursor", Pct: 70},
	}
	s.SetUsage(statuses, map[string]*models.ProviderUsage{
		"cursor": {Provider: "Cursor", ProviderKey: "cursor", Error: "cursor: unexpected status 401"},
		"claude": {Provider: "Claude", ProviderKey: "claude"},
	})

	if s.GetStatusCount() != 2 {
		t.Errorf("GetStatusCount = %d, want 2", s.GetStatusCount())
	}
	if s.GetSelectedIndex() != 1 {
		t.Errorf("selection should clamp to last row, got %d", s.GetSelectedIndex())
	}
	if st, ok := s.GetSelectedStatus(); !ok || st.Key != "cursor" {
		t.Errorf("GetSelectedStatus = %+v, %v", st, ok)
	}
	if s.GetLastUpdated().IsZero() {
		t.Error("LastUpdated not set")
	}

	errs := s.ProviderErrors()
	if len(errs) != 1 || errs[0] != "Cursor: cursor: unexpected status 401" {
		t.Errorf("ProviderErrors = %v", errs)
	}

	got := s.GetStatuses()
	got[0].Pct = 99
	if s.GetStatuses()[0].Pct != 10 {
		t.Error("GetStatuses should return a copy")
	}
}

func TestState_Settings(t *testing.T) {
	s := NewState()
	st := config.DefaultSettings()
	st.Thresholds.Warning = 70

	s.SetSettings(st)
	s.SetSettings(nil)
	if s.GetSettings().Thresholds.Warning != 70 {
		t.Errorf("settings = %+v", s.GetSettings())
	}
}

func TestState_Notifications(t *testing.T) {
	s := NewState()

	id := s.AddNotification(NotificationInfo, "test", time.Minute)
	if id == "" {
		t.Error("AddNotification returned empty ID")
	}

	notifs := s.GetNotifications()
	if len(notifs) != 1 || notifs[0].Message != "test" {
		t.Fatalf("GetNotifications = %+v", notifs)
	}

	s.RemoveNotification(id)
	if len(s.GetNotifications()) != 0 {
		t.Error("Notification should be removed")
	}

	for range 15 {
		s.AddNotification(NotificationInfo, "spam", time.Minute)
	}
	if n := len(s.GetNotifications()); n != maxNotifications {
		t.Errorf("notifications = %d, want %d", n, maxNotifications)
	}
}

func TestState_ClearExpiredNotifications(t *testing.T) {
	s := NewState()

	s.notifications = append(s.notifications,
		Notification{ID: "expired", CreatedAt: time.Now().Add(-2 * time.Minute), Duration: time.Minute},
		Notification{ID: "active", CreatedAt: time.Now(), Duration: time.Minute},
	)

	s.ClearExpiredNotifications()

	notifs := s.GetNotifications()
	if len(notifs) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(notifs))
	}
	if notifs[0].ID != "active" {
		t.Errorf("Expected active notification, got %s", notifs[0].ID)
	}
}

func TestState_LoadingNotification(t *testing.T) {
	s := NewState()

	s.SetLoadingNotification("loading...")
	s.SetLoadingNotification("still loading...")

	notifs := s.GetNotifications()
	if len(notifs) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(notifs))
	}
	if notifs[0].ID != LoadingNotificationID || notifs[0].Message != "still loading..." {
		t.Errorf("notification = %+v", notifs[0])
	}

	s.ClearLoadingNotification()
	if len(s.GetNotifications()) != 0 {
		t.Error("Loading notification should be cleared")
	}
}

func TestNotificationType_String(t *testing.T) {
	tests := []struct {
		n    NotificationType
		want string
	}{
		{NotificationSuccess, "success"},
		{NotificationError, "error"},
		{NotificationWarning, "warning"},
		{NotificationInfo, "info"},
		{NotificationLoading, "loading"},
		{NotificationType(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.n.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.n, got, tt.want)
		}
	}
}
