package dashboard

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/ai-quota-bar/internal/app"
	"github.com/j-veylop/ai-quota-bar/internal/models"
)

func testStatuses() []models.KeyStatus {
	return []models.KeyStatus{
		{
			Key:      "claude_session",
			Provider: "Claude",
			Label:    "Session",
			Pct:      42,
			ResetAt:  time.Now().Add(90 * time.Minute),
			Trend:    []int{10, 20, 30, 42},
			Estimate: models.Estimate{Key: "claude_session", Rate: 0.5, HasRate: true, ETAMinutes: 10, HasETA: true, CurrentPct: 42},
		},
		{Key: "claude_weekly", Provider: "Claude", Label: "Weekly", Pct: 85},
		{Key: "cursor", Provider: "Cursor", Pct: 12},
	}
}

func newLoadedState() *app.State {
	state := app.NewState()
	state.SetLoading("initial", false)
	state.SetUsage(testStatuses(), map[string]*models.ProviderUsage{
		"zai": {Provider: "Z.ai", ProviderKey: "zai", Error: "zai: unexpected status 401"},
	})
	return state
}

func TestNew(t *testing.T) {
	m := New(app.NewState())
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.Init() == nil {
		t.Error("Init returned nil")
	}
}

func TestModel_ViewLoading(t *testing.T) {
	m := New(app.NewState())
	m.SetSize(80, 24)
	if !strings.Contains(m.View(), "Polling providers") {
		t.Error("initial view should show the spinner label")
	}
}

func TestModel_ViewEmpty(t *testing.T) {
	state := app.NewState()
	state.SetLoading("initial", false)
	m := New(state)
	m.SetSize(100, 40)

	if !strings.Contains(m.View(), "No usage reported yet") {
		t.Error("empty view should explain there is no data")
	}
}

func TestModel_View(t *testing.T) {
	m := New(newLoadedState())
	m.SetSize(120, 60)

	view := m.View()
	for _, want := range []string{"Claude", "Cursor", "Session", "Weekly", "42%", "0.5%/min", "CRITICAL", "Limit in ~10 min", "resets in 1h", "Provider errors", "Z.ai"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_ViewCompact(t *testing.T) {
	m := New(newLoadedState())
	m.SetSize(50, 60)

	view := m.View()
	for _, want := range []string{"Session", "CRITICAL", "Limit in ~10 min"} {
		if !strings.Contains(view, want) {
			t.Errorf("compact view missing %q", want)
		}
	}
	if strings.Contains(view, "%/min") {
		t.Error("compact view should omit the burn rate column")
	}
}

func TestModel_Navigation(t *testing.T) {
	state := newLoadedState()
	m := New(state)

	tests := []struct {
		key  tea.KeyMsg
		want int
	}{
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}}, 1},
		{tea.KeyMsg{Type: tea.KeyDown}, 2},
		{tea.KeyMsg{Type: tea.KeyDown}, 0},
		{tea.KeyMsg{Type: tea.KeyUp}, 2},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}}, 0},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}}, 2},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}}, 1},
	}

	for _, tt := range tests {
		m.Update(tt.key)
		if got := state.GetSelectedIndex(); got != tt.want {
			t.Errorf("after %q: selected = %d, want %d", tt.key.String(), got, tt.want)
		}
	}
}

func TestModel_Toggles(t *testing.T) {
	state := newLoadedState()
	m := New(state)

	tests := []struct {
		key  rune
		want string
	}{
		{'w', "claude_warning"},
		{'p', "claude_pacing"},
		{'x', "claude_reset"},
	}

	for _, tt := range tests {
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{tt.key}})
		if cmd == nil {
			t.Fatalf("%c: expected command", tt.key)
		}
		msg, ok := cmd().(app.ToggleNotificationMsg)
		if !ok || msg.Name != tt.want {
			t.Errorf("%c: msg = %#v, want %s", tt.key, msg, tt.want)
		}
	}

	state.SetSelectedIndex(2)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'w'}})
	if msg, ok := cmd().(app.ToggleNotificationMsg); !ok || msg.Name != "cursor_warning" {
		t.Errorf("msg = %#v, want cursor_warning", msg)
	}
}

func TestModel_ToggleWithoutStatuses(t *testing.T) {
	m := New(app.NewState())
	if cmd := m.handleKeyMsg(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'w'}}); cmd != nil {
		t.Error("toggle without a selection should do nothing")
	}
}

func TestModel_Animation(t *testing.T) {
	state := newLoadedState()
	m := New(state)

	start := time.Now()
	if !m.syncAnimationTargets(start) {
		t.Fatal("new targets should animate")
	}

	m.stepAnimations(start.Add(animationDuration / 2))
	mid := m.animations["claude_session"].CurrentPercent
	if mid <= 0 || mid >= 42 {
		t.Errorf("mid animation = %.1f, want between 0 and 42", mid)
	}

	m.stepAnimations(start.Add(animationDuration))
	if got := m.displayPct("claude_session", 0); got != 42 {
		t.Errorf("final = %.1f, want 42", got)
	}

	state.SetUsage([]models.KeyStatus{{Key: "cursor", Pct: 12}}, nil)
	m.syncAnimationTargets(start)
	if _, ok := m.animations["claude_session"]; ok {
		t.Error("animations of vanished keys should be dropped")
	}
	if got := m.displayPct("unknown", 7); got != 7 {
		t.Errorf("displayPct fallback = %.1f, want 7", got)
	}
}

func TestModel_AnimationTick(t *testing.T) {
	state := newLoadedState()
	m := New(state)

	if cmd := m.handleAnimationTick(animationTickMsg(time.Now())); cmd == nil {
		t.Error("tick should continue while animating")
	}
	m.handleAnimationTick(animationTickMsg(time.Now().Add(2 * animationDuration)))
	if cmd := m.handleAnimationTick(animationTickMsg(time.Now().Add(3 * animationDuration))); cmd != nil {
		t.Error("tick should stop once settled")
	}
}

func TestModel_Help(t *testing.T) {
	m := New(app.NewState())
	if len(m.ShortHelp()) == 0 {
		t.Error("ShortHelp empty")
	}
	if len(m.FullHelp()) == 0 {
		t.Error("FullHelp empty")
	}
}

func TestBadgeText(t *testing.T) {
	tests := []struct {
		status models.ProjectionStatus
		want   string
	}{
		{models.ProjectionCritical, "▲ CRITICAL"},
		{models.ProjectionWarning, "▲ WARNING"},
		{models.ProjectionSafe, "● SAFE"},
		{models.ProjectionUnknown, "○ --"},
	}
	for _, tt := range tests {
		if got := badgeText(tt.status); got != tt.want {
			t.Errorf("badgeText(%s) = %q, want %q", tt.status, got, tt.want)
		}
	}
}
