// Package dashboard provides the live quota tab.
package dashboard

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/ai-quota-bar/internal/app"
	"github.com/j-veylop/ai-quota-bar/internal/config"
	"github.com/j-veylop/ai-quota-bar/internal/models"
	"github.com/j-veylop/ai-quota-bar/internal/ui/components"
)

const animationDuration = 1500 * time.Millisecond

type animationTickMsg time.Time

func animationTickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*40, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

// keyMap defines the key bindings specific to the dashboard tab.
type keyMap struct {
	Next         key.Binding
	Prev         key.Binding
	First        key.Binding
	Last         key.Binding
	ToggleWarn   key.Binding
	TogglePacing key.Binding
	ToggleReset  key.Binding
	Refresh      key.Binding
}

// defaultKeyMap returns the default key bindings for the dashboard tab.
func defaultKeyMap() keyMap {
	return keyMap{
		Next: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j", "next limit"),
		),
		Prev: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k", "prev limit"),
		),
		First: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "first limit"),
		),
		Last: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "last limit"),
		),
		ToggleWarn: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "toggle warning alerts"),
		),
		TogglePacing: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "toggle pacing alerts"),
		),
		ToggleReset: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "toggle reset alerts"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "poll now"),
		),
	}
}

// AnimationState tracks the state of an animation.
type AnimationState struct {
	StartTime      time.Time
	CurrentPercent float64
	TargetPercent  float64
	StartPercent   float64
}

// Model represents the dashboard tab state.
type Model struct {
	state          *app.State
	animations     map[models.Key]*AnimationState
	spinner        components.LoadingSpinner
	keys           keyMap
	viewport       viewport.Model
	width          int
	height         int
	animationFrame int
}

// New creates a new dashboard model.
func New(state *app.State) *Model {
	return &Model{
		state:      state,
		spinner:    components.NewSpinner("Polling providers..."),
		keys:       defaultKeyMap(),
		viewport:   viewport.New(0, 0),
		animations: make(map[models.Key]*AnimationState),
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Init(), animationTickCmd())
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case animationTickMsg:
		cmds = append(cmds, m.handleAnimationTick(msg))

	case app.StartLoadingMsg:
		cmds = append(cmds, animationTickCmd())

	case app.UsageLoadedMsg, app.ServiceEventMsg:
		if m.syncAnimationTargets(time.Now()) {
			cmds = append(cmds, animationTickCmd())
		}

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeyMsg(msg))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleAnimationTick(msg animationTickMsg) tea.Cmd {
	m.animationFrame++
	now := time.Time(msg)

	animating := m.syncAnimationTargets(now)
	m.stepAnimations(now)

	if animating || m.state.AnyLoading() {
		return animationTickCmd()
	}
	return nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	count := m.state.GetStatusCount()
	selected := m.state.GetSelectedIndex()

	switch {
	case key.Matches(msg, m.keys.Next):
		if count > 0 {
			m.state.SetSelectedIndex((selected + 1) % count)
		}
	case key.Matches(msg, m.keys.Prev):
		if count > 0 {
			m.state.SetSelectedIndex((selected - 1 + count) % count)
		}
	case key.Matches(msg, m.keys.First):
		m.state.SetSelectedIndex(0)
	case key.Matches(msg, m.keys.Last):
		if count > 0 {
			m.state.SetSelectedIndex(count - 1)
		}
	case key.Matches(msg, m.keys.ToggleWarn):
		return m.toggle(config.NotifyWarning)
	case key.Matches(msg, m.keys.TogglePacing):
		return m.toggle(config.NotifyPacing)
	case key.Matches(msg, m.keys.ToggleReset):
		return m.toggle(config.NotifyReset)
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	return nil
}

// toggle flips the notification toggle of the selected provider.
func (m *Model) toggle(kind string) tea.Cmd {
	st, ok := m.state.GetSelectedStatus()
	if !ok {
		return nil
	}
	name := st.Key.Provider() + "_" + kind
	return func() tea.Msg {
		return app.ToggleNotificationMsg{Name: name}
	}
}

// SetSize sets the available size for the dashboard.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// syncAnimationTargets points each key's animation at its current percentage
// and drops animations of keys that disappeared.
func (m *Model) syncAnimationTargets(now time.Time) (animating bool) {
	statuses := m.state.GetStatuses()
	seen := make(map[models.Key]bool, len(statuses))

	for _, st := range statuses {
		seen[st.Key] = true
		if m.updateAnimationState(st.Key, float64(st.Pct), now) {
			animating = true
		}
	}
	for k := range m.animations {
		if !seen[k] {
			delete(m.animations, k)
		}
	}
	return animating
}

func (m *Model) updateAnimationState(k models.Key, target float64, now time.Time) bool {
	state, exists := m.animations[k]
	if !exists {
		state = &AnimationState{StartTime: now}
		m.animations[k] = state
	}

	if target != state.TargetPercent {
		state.StartPercent = state.CurrentPercent
		state.TargetPercent = target
		state.StartTime = now
	}

	return state.CurrentPercent != state.TargetPercent
}

func (m *Model) stepAnimations(now time.Time) {
	for _, state := range m.animations {
		if state.CurrentPercent == state.TargetPercent {
			continue
		}
		elapsed := now.Sub(state.StartTime)
		if elapsed >= animationDuration {
			state.CurrentPercent = state.TargetPercent
			continue
		}
		progress := elapsed.Seconds() / animationDuration.Seconds()
		ease := 1.0 - (1.0-progress)*(1.0-progress)
		state.CurrentPercent = state.StartPercent + (state.TargetPercent-state.StartPercent)*ease
	}
}

// displayPct returns the animated percentage of key, falling back to pct.
func (m *Model) displayPct(k models.Key, pct int) float64 {
	if anim, ok := m.animations[k]; ok {
		return anim.CurrentPercent
	}
	return float64(pct)
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{
		m.keys.Next,
		m.keys.Prev,
		m.keys.Refresh,
	}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Next, m.keys.Prev},
		{m.keys.First, m.keys.Last},
		{m.keys.ToggleWarn, m.keys.TogglePacing, m.keys.ToggleReset},
		{m.keys.Refresh},
	}
}
