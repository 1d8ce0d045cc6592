package app

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/ai-quota-bar/internal/config"
	"github.com/j-veylop/ai-quota-bar/internal/db"
	"github.com/j-veylop/ai-quota-bar/internal/models"
	"github.com/j-veylop/ai-quota-bar/internal/services"
	"github.com/j-veylop/ai-quota-bar/internal/services/alerts"
)

// recordingTab records the messages it receives.
type recordingTab struct {
	msgs   []tea.Msg
	width  int
	height int
}

func (r *recordingTab) Init() tea.Cmd { return nil }

func (r *recordingTab) Update(msg tea.Msg) (Tab, tea.Cmd) {
	r.msgs = append(r.msgs, msg)
	return r, nil
}

func (r *recordingTab) View() string              { return "recording tab" }
func (r *recordingTab) SetSize(width, height int) { r.width, r.height = width, height }
func (r *recordingTab) ShortHelp() []key.Binding  { return nil }
func (r *recordingTab) FullHelp() [][]key.Binding { return nil }

func TestNewModel(t *testing.T) {
	model := NewModel(nil)
	if model == nil {
		t.Fatal("NewModel returned nil")
	}
	if model.GetState() == nil {
		t.Error("State should be initialized")
	}
	if model.GetActiveTab() != TabDashboard {
		t.Error("Default tab should be Dashboard")
	}
	if len(model.tabs) != 3 {
		t.Errorf("Should have 3 tab slots, got %d", len(model.tabs))
	}
}

func TestModel_Init(t *testing.T) {
	model := NewModel(nil)
	if model.Init() == nil {
		t.Error("Init returned nil command")
	}
	notifs := model.state.GetNotifications()
	if len(notifs) != 1 || notifs[0].ID != LoadingNotificationID {
		t.Errorf("expected loading notification, got %+v", notifs)
	}
}

func TestModel_Update_WindowSize(t *testing.T) {
	model := NewModel(nil)
	tab := &recordingTab{}
	model.SetTabs([]Tab{tab, nil, nil})

	newModel, _ := model.Update(tea.WindowSizeMsg{Width: 100, Height: 50})
	m := newModel.(*Model)

	if m.width != 100 || m.height != 50 {
		t.Errorf("size = %dx%d, want 100x50", m.width, m.height)
	}
	if !m.IsReady() {
		t.Error("Model should be ready after WindowSizeMsg")
	}
	if tab.width != 100 || tab.height != 45 {
		t.Errorf("tab size = %dx%d, want 100x45", tab.width, tab.height)
	}
}

func TestModel_TabSwitching(t *testing.T) {
	model := NewModel(nil)
	model.ready = true
	model.width, model.height = 100, 50

	model.Update(TabSwitchMsg{Tab: TabHistory})
	if model.activeTab != TabHistory {
		t.Errorf("ActiveTab = %v, want History", model.activeTab)
	}

	cmd := model.handleKeyMsg(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'3'}})
	if model.activeTab != TabInfo {
		t.Errorf("ActiveTab = %v, want Info", model.activeTab)
	}
	if msg, ok := cmd().(TabSwitchMsg); !ok || msg.Tab != TabInfo {
		t.Errorf("key 3 should emit TabSwitchMsg, got %#v", msg)
	}

	model.handleKeyMsg(tea.KeyMsg{Type: tea.KeyTab})
	if model.activeTab != TabDashboard {
		t.Errorf("tab should wrap to Dashboard, got %v", model.activeTab)
	}
	model.handleKeyMsg(tea.KeyMsg{Type: tea.KeyShiftTab})
	if model.activeTab != TabInfo {
		t.Errorf("shift+tab should wrap to Info, got %v", model.activeTab)
	}
}

func TestModel_Update_Tick(t *testing.T) {
	model := NewModel(nil)
	if _, cmd := model.Update(TickMsg{Time: time.Now()}); cmd == nil {
		t.Error("TickMsg should return a command (next tick)")
	}
}

func TestModel_View(t *testing.T) {
	model := NewModel(nil)

	if view := model.View(); !strings.Contains(view, "Loading...") {
		t.Error("View should show Loading when not ready")
	}

	model.ready = true
	model.width, model.height = 80, 24

	view := model.View()
	if !strings.Contains(view, "Dashboard") {
		t.Error("View should show Dashboard tab")
	}
	if !strings.Contains(view, "not yet implemented") {
		t.Error("View should show placeholder text")
	}

	model.SetTabs([]Tab{&recordingTab{}, nil, nil})
	if view := model.View(); !strings.Contains(view, "recording tab") {
		t.Error("View should render the active tab")
	}
}

func TestModel_Help(t *testing.T) {
	model := NewModel(nil)
	model.ready = true
	model.width, model.height = 80, 24

	model.Update(ToggleHelpMsg{})
	if !model.showHelp {
		t.Error("showHelp should be true")
	}
	if view := model.View(); !strings.Contains(view, "Keyboard Shortcuts") {
		t.Error("View should show help modal")
	}

	model.handleKeyMsg(tea.KeyMsg{Type: tea.KeyEsc})
	if model.showHelp {
		t.Error("showHelp should be false after esc")
	}
}

func TestModel_Notifications(t *testing.T) {
	model := NewModel(nil)

	model.Update(AddNotificationMsg{Message: "Test Note", Type: NotificationInfo})
	if n := len(model.state.GetNotifications()); n != 1 {
		t.Errorf("Expected 1 notification, got %d", n)
	}

	model.ready = true
	model.width, model.height = 80, 24
	if view := model.View(); !strings.Contains(view, "Test Note") {
		t.Error("View should show notification")
	}
}

func TestModel_UsageLoaded(t *testing.T) {
	model := NewModel(nil)
	tab := &recordingTab{}
	model.SetTabs([]Tab{tab, nil, nil})
	model.Init()

	st := config.DefaultSettings()
	st.Thresholds.Critical = 90
	model.Update(UsageLoadedMsg{
		Statuses: []models.KeyStatus{{Key: "cursor", Provider: "Cursor", Pct: 12}},
		Settings: st,
	})

	if model.state.IsInitialLoading() || model.state.AnyLoading() {
		t.Error("loading should be cleared")
	}
	if model.state.GetStatusCount() != 1 {
		t.Error("statuses should be stored")
	}
	if model.state.GetSettings().Thresholds.Critical != 90 {
		t.Error("settings should be stored")
	}
	if len(model.state.GetNotifications()) != 0 {
		t.Error("loading notification should be cleared")
	}
	if len(tab.msgs) == 0 {
		t.Error("active tab should receive the message")
	}
}

func TestModel_HandleServiceEvent(t *testing.T) {
	tests := []struct {
		name  string
		event services.ServiceEvent
		want  any
	}{
		{
			name:  "warning alert",
			event: services.AlertEvent{Alert: alerts.Alert{Kind: alerts.KindPacing, Title: "Slow down"}},
			want:  NotificationWarning,
		},
		{
			name:  "reset alert",
			event: services.AlertEvent{Alert: alerts.Alert{Kind: alerts.KindReset, Title: "Claude reset"}},
			want:  NotificationSuccess,
		},
		{
			name:  "error",
			event: services.ErrorEvent{Service: "quota", Error: errors.New("boom")},
			want:  NotificationError,
		},
		{
			name:  "rollup failure",
			event: services.RollupEvent{Error: errors.New("locked")},
			want:  NotificationError,
		},
		{
			name:  "settings changed",
			event: services.SettingsChangedEvent{Settings: config.DefaultSettings()},
			want:  NotificationInfo,
		},
		{
			name:  "rollup done",
			event: services.RollupEvent{Result: db.RollupResult{Days: 2}},
			want:  RollupCompletedMsg{Result: db.RollupResult{Days: 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := NewModel(nil)
			cmd := model.handleServiceEvent(tt.event)
			if cmd == nil {
				t.Fatal("expected a command")
			}
			msg := cmd()
			switch want := tt.want.(type) {
			case NotificationType:
				add, ok := msg.(AddNotificationMsg)
				if !ok || add.Type != want {
					t.Errorf("msg = %#v, want notification %v", msg, want)
				}
			default:
				if msg != want {
					t.Errorf("msg = %#v, want %#v", msg, want)
				}
			}
		})
	}
}

func TestModel_UsageUpdatedWithoutManager(t *testing.T) {
	model := NewModel(nil)
	model.handleServiceEvent(services.UsageUpdatedEvent{
		Statuses: []models.KeyStatus{{Key: "claude"}, {Key: "cursor"}},
	})
	if model.state.GetStatusCount() != 2 {
		t.Error("statuses should be applied from the event")
	}
}

func TestModel_Loading(t *testing.T) {
	model := NewModel(nil)
	model.state.SetLoading("initial", false)

	model.Update(StartLoadingMsg{Resource: "usage"})
	if !model.state.Loading.Usage {
		t.Error("Loading.Usage should be true")
	}

	model.Update(StopLoadingMsg{Resource: "usage"})
	if model.state.Loading.Usage {
		t.Error("Loading.Usage should be false")
	}
}

func TestModel_ToggleResult(t *testing.T) {
	model := NewModel(nil)

	msg := model.handleToggleResult(ToggleNotificationResultMsg{Name: "claude_pacing", On: false})()
	if add, ok := msg.(AddNotificationMsg); !ok || !strings.Contains(add.Message, "claude_pacing notifications off") {
		t.Errorf("msg = %#v", msg)
	}

	msg = model.handleToggleResult(ToggleNotificationResultMsg{Name: "x", Error: errors.New("read-only")})()
	if add, ok := msg.(AddNotificationMsg); !ok || add.Type != NotificationError {
		t.Errorf("msg = %#v", msg)
	}
}

func TestModel_WithManager(t *testing.T) {
	mgr := newTestManager(t)
	model := NewModel(mgr)

	cmds := model.handleRefresh()
	if len(cmds) != 2 {
		t.Fatalf("refresh cmds = %d, want 2", len(cmds))
	}
	model.Update(cmds[0]())
	if !model.state.Loading.Usage {
		t.Error("refresh should mark usage loading")
	}

	model.Update(cmds[1]())
	if model.state.Loading.Usage || model.state.GetStatusCount() != 2 {
		t.Errorf("usage not applied: %+v", model.state.GetStatuses())
	}
}

func TestModel_HandleSpinnerTick(t *testing.T) {
	model := NewModel(nil)
	if _, cmd := model.Update(spinner.TickMsg{}); cmd == nil {
		t.Error("Spinner tick should return command")
	}
}

func TestTabID_String(t *testing.T) {
	tests := []struct {
		tab  TabID
		want string
	}{
		{TabDashboard, "Dashboard"},
		{TabHistory, "History"},
		{TabInfo, "Info"},
		{TabID(999), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.tab.String(); got != tt.want {
			t.Errorf("TabID(%d).String() = %q, want %q", tt.tab, got, tt.want)
		}
	}
}

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()
	if len(km.ShortHelp()) == 0 {
		t.Error("ShortHelp empty")
	}
	if len(km.FullHelp()) == 0 {
		t.Error("FullHelp empty")
	}
}
