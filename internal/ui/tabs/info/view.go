package info

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/ai-quota-bar/internal/config"
	"github.com/j-veylop/ai-quota-bar/internal/ui/styles"
	"github.com/j-veylop/ai-quota-bar/internal/version"
)

// View renders the info tab.
func (m *Model) View() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		m.renderTitle(),
		m.renderConfigCard(),
		m.renderProvidersCard(),
		m.renderStatusCard(),
		m.renderAboutCard(),
	)

	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Info")
	subtitle := styles.HelpStyle.Render("Configuration, providers and runtime status")

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 50), 90)
}

func (m *Model) card(title string, rows ...string) string {
	rows = append([]string{styles.CardTitleStyle.Render(title)}, rows...)
	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) renderConfigCard() string {
	if m.config == nil {
		return m.card("Configuration", styles.HelpStyle.Render("Configuration not loaded"))
	}

	metrics := m.config.MetricsAddr
	if metrics == "" {
		metrics = "disabled"
	}

	return m.card("Configuration",
		renderRow("Settings", m.config.SettingsPath),
		renderRow("Database", m.config.DatabasePath),
		renderRow("Trend file", m.config.HistoryPath),
		renderRow("Log file", m.config.LogPath),
		renderRow("Poll interval", m.config.RefreshInterval.String()),
		renderRow("Rollup", m.config.RollupSchedule),
		renderRow("Metrics", metrics),
	)
}

func (m *Model) renderProvidersCard() string {
	settings := m.settings()
	th := settings.Thresholds

	rows := []string{
		renderRow("Warning at", fmt.Sprintf("%d%%", th.Warning)),
		renderRow("Critical at", fmt.Sprintf("%d%%", th.Critical)),
		renderRow("Pacing", "limit within "+th.Pacing.String()),
		"",
	}

	if len(settings.Providers) == 0 {
		rows = append(rows, styles.HelpStyle.Render("No providers configured"))
		return m.card("Providers", rows...)
	}

	for _, p := range settings.Providers {
		name := p.Name
		if name == "" {
			name = p.Key
		}
		state := styles.SuccessTextStyle.Render("●")
		if p.Disabled {
			state = styles.HelpStyle.Render("○")
		}

		var toggles []string
		for _, kind := range []string{config.NotifyWarning, config.NotifyPacing, config.NotifyReset} {
			toggles = append(toggles, toggleText(kind, settings.NotificationEnabled(p.Key, kind)))
		}

		rows = append(rows, fmt.Sprintf("%s %-16s %s  %s",
			state,
			name,
			styles.HelpStyle.Render(fmt.Sprintf("%d limits", len(p.Limits))),
			strings.Join(toggles, " "),
		))
	}

	return m.card("Providers", rows...)
}

func toggleText(kind string, on bool) string {
	if on {
		return styles.SuccessTextStyle.Render(kind + ":on")
	}
	return styles.HelpStyle.Render(kind + ":off")
}

func (m *Model) renderStatusCard() string {
	if m.source == nil {
		return m.card("Status", styles.HelpStyle.Render("Services not running"))
	}

	stats := m.source.QuotaStats()
	next := "not scheduled"
	if t := m.source.NextRollup(); !t.IsZero() {
		next = t.Local().Format("Jan 2 15:04") + " (in " + time.Until(t).Round(time.Minute).String() + ")"
	}

	failing := fmt.Sprintf("%d", stats.Failing)
	if stats.Failing > 0 {
		failing = styles.ErrorTextStyle.Render(failing)
	}
	breakers := fmt.Sprintf("%d", stats.OpenBreakers)
	if stats.OpenBreakers > 0 {
		breakers = styles.WarningTextStyle.Render(breakers)
	}

	rows := []string{
		renderRow("Providers", fmt.Sprintf("%d (%d cached)", stats.Providers, stats.Cached)),
		renderRow("Failing", failing),
		renderRow("Open breakers", breakers),
		renderRow("Next rollup", next),
	}
	if last := m.state.GetLastUpdated(); !last.IsZero() {
		rows = append(rows, renderRow("Last poll", last.Format("15:04:05")))
	}

	return m.card("Status", rows...)
}

func (m *Model) renderAboutCard() string {
	return m.card("About AI Quota Bar",
		renderRow("Version", version.GetVersion()),
		renderRow("Build Date", version.GetDate()),
		renderRow("Git Commit", version.GetCommit()),
		renderRow("Go Version", runtime.Version()),
		renderRow("Platform", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)),
		"",
		fmt.Sprintf("Tracked limits: %s", styles.InfoTextStyle.Render(fmt.Sprintf("%d", m.state.GetStatusCount()))),
	)
}

// renderRow renders a key-value row.
func renderRow(label, value string) string {
	labelStyle := lipgloss.NewStyle().
		Width(16).
		Foreground(styles.TextMuted)

	valueStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary)

	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}
