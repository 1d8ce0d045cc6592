package history

import (
	"errors"
	"slices"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/ai-quota-bar/internal/app"
	"github.com/j-veylop/ai-quota-bar/internal/db"
	"github.com/j-veylop/ai-quota-bar/internal/models"
	"github.com/j-veylop/ai-quota-bar/internal/ui/components"
)

type fakeSource struct {
	overview *models.HistoryOverview
	err      error
	ranges   []models.TimeRange
}

func (f *fakeSource) HistoryOverview(tr models.TimeRange) (*models.HistoryOverview, error) {
	f.ranges = append(f.ranges, tr)
	return f.overview, f.err
}

func sampleOverview() *models.HistoryOverview {
	claude := []models.DailyStat{
		{Date: "2026-10-10", Key: "claude_session", AvgPct: 40, PeakPct: 70},
		{Date: "2026-10-11", Key: "claude_session", AvgPct: 60, PeakPct: 100, LimitHits: 2},
	}
	cursor := []models.DailyStat{
		{Date: "2026-10-11", Key: "cursor", AvgPct: 10, PeakPct: 20},
	}
	return &models.HistoryOverview{
		Keys:       []models.KeySummary{models.Summarize("claude_session", claude), models.Summarize("cursor", cursor)},
		DayMax:     []models.DayValue{{Date: "2026-10-10", Pct: 40}, {Date: "2026-10-11", Pct: 60}},
		HighestDay: "2026-10-11",
		HighestPct: 60,
		LowestDay:  "2026-10-10",
		LowestPct:  40,
		AvgPct:     50,
		TotalHits:  2,
		TotalDays:  2,
	}
}

// load runs cmd and feeds its message back into m.
func load(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected load command")
	}
	m.Update(cmd())
}

func TestNew(t *testing.T) {
	m := New(app.NewState(), nil)
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.timeRange != models.TimeRange7Days {
		t.Errorf("default range = %v", m.timeRange)
	}
}

func TestModel_NilSource(t *testing.T) {
	m := New(app.NewState(), nil)
	cmd := m.Init()
	msg := cmd()
	if _, ok := msg.(historyErrorMsg); !ok {
		t.Fatalf("msg = %#v, want historyErrorMsg", msg)
	}

	_, notify := m.Update(msg)
	if notify == nil {
		t.Fatal("error should raise a notification")
	}
	if add, ok := notify().(app.AddNotificationMsg); !ok || add.Type != app.NotificationError {
		t.Errorf("notification = %#v", add)
	}
	m.SetSize(80, 24)
	if !strings.Contains(m.View(), "history store not available") {
		t.Error("View should show the error")
	}
}

func TestModel_Empty(t *testing.T) {
	src := &fakeSource{overview: &models.HistoryOverview{}}
	m := New(app.NewState(), src)
	m.SetSize(80, 24)

	cmd := m.Init()
	if !strings.Contains(m.View(), "Loading") {
		t.Error("View should show loading before the first result")
	}
	load(t, m, cmd)
	if !strings.Contains(m.View(), "No daily statistics") {
		t.Error("View should explain there is no data")
	}
}

func TestModel_View(t *testing.T) {
	state := app.NewState()
	state.SetUsage([]models.KeyStatus{{Key: "cursor", Pct: 5}}, nil)

	src := &fakeSource{overview: sampleOverview()}
	m := New(state, src)
	m.SetSize(120, 160)
	load(t, m, m.Init())

	view := m.View()
	for _, want := range []string{"7 Days", "Overview", "2026-10-11", "Claude Session", "Cursor", "Limit hits", "Daily average per key", "Average usage", "▸"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_ToggleRange(t *testing.T) {
	src := &fakeSource{overview: sampleOverview()}
	m := New(app.NewState(), src)

	for _, want := range []models.TimeRange{models.TimeRange30Days, models.TimeRange90Days, models.TimeRange7Days} {
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
		if m.timeRange != want {
			t.Errorf("range = %v, want %v", m.timeRange, want)
		}
		load(t, m, cmd)
	}
	if len(src.ranges) != 3 || src.ranges[0] != models.TimeRange30Days {
		t.Errorf("requested ranges = %v", src.ranges)
	}
}

func TestModel_StaleResultDropped(t *testing.T) {
	src := &fakeSource{overview: sampleOverview()}
	m := New(app.NewState(), src)
	m.Update(historyLoadedMsg{overview: sampleOverview(), timeRange: models.TimeRange90Days})
	if m.overview != nil {
		t.Error("result for another range should be ignored")
	}
}

func TestModel_ReloadTriggers(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.Msg
		want bool
	}{
		{"reload key", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}}, true},
		{"switch to history", app.TabSwitchMsg{Tab: app.TabHistory}, true},
		{"switch elsewhere", app.TabSwitchMsg{Tab: app.TabInfo}, false},
		{"rollup finished", app.RollupCompletedMsg{Result: db.RollupResult{Days: 1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{err: errors.New("locked")}
			m := New(app.NewState(), src)
			_, cmd := m.Update(tt.msg)
			if (cmd != nil) != tt.want {
				t.Fatalf("cmd = %v, want reload %v", cmd != nil, tt.want)
			}
			if tt.want {
				if _, ok := cmd().(historyErrorMsg); !ok {
					t.Error("reload should query the source")
				}
				if len(src.ranges) != 1 {
					t.Errorf("queries = %d", len(src.ranges))
				}
			}
		})
	}
}

func TestModel_Help(t *testing.T) {
	m := New(app.NewState(), nil)
	if len(m.ShortHelp()) == 0 || len(m.FullHelp()) == 0 {
		t.Error("help bindings empty")
	}
}

func TestLastDays(t *testing.T) {
	days := make([]models.DailyStat, 10)
	if got := len(lastDays(days, 7)); got != 7 {
		t.Errorf("lastDays = %d, want 7", got)
	}
	if got := len(lastDays(days[:3], 7)); got != 3 {
		t.Errorf("lastDays = %d, want 3", got)
	}
}

func TestKeySeries(t *testing.T) {
	series, keys := keySeries(sampleOverview())
	if len(series) != 2 || len(keys) != 2 {
		t.Fatalf("got %d series, %d keys, want 2", len(series), len(keys))
	}
	if keys[1] != "cursor" {
		t.Errorf("keys[1] = %q, want cursor", keys[1])
	}

	tests := []struct {
		name string
		got  []float64
		want []float64
	}{
		{"complete key", series[0], []float64{40, 60}},
		{"missing day is zero", series[1], []float64{0, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !slices.Equal(tt.got, tt.want) {
				t.Errorf("series = %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestKeySeries_CapsKeys(t *testing.T) {
	ov := sampleOverview()
	for range 10 {
		ov.Keys = append(ov.Keys, ov.Keys[1])
	}
	series, _ := keySeries(ov)
	if len(series) != len(components.SeriesColors) {
		t.Errorf("series = %d, want %d", len(series), len(components.SeriesColors))
	}
}
