package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/ai-quota-bar/internal/models"
	"github.com/j-veylop/ai-quota-bar/internal/ui/components"
	"github.com/j-veylop/ai-quota-bar/internal/ui/styles"
)

const (
	indentSpace  = "    "
	percentWidth = 6
	rateWidth    = 11
	badgeWidth   = 12
	compactWidth = 60
)

// View renders the dashboard component.
func (m *Model) View() string {
	if m.state.IsInitialLoading() {
		return components.RenderSpinnerCentered(m.spinner, m.width, m.height)
	}

	sections := []string{m.renderTitle()}

	if errs := m.state.ProviderErrors(); len(errs) > 0 {
		sections = append(sections, m.renderErrors(errs))
	}
	sections = append(sections, m.renderProviders()...)

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("AI Quota Bar")
	subtitle := styles.HelpStyle.Render("Usage limits, burn rate and time to limit")
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) cardWidth() int {
	return max(m.width-6, 40)
}

func (m *Model) renderErrors(errs []string) string {
	rows := []string{styles.ErrorTextStyle.Bold(true).Render("✗ Provider errors")}
	for _, e := range errs {
		rows = append(rows, "  "+styles.ErrorTextStyle.Render(e))
	}
	return styles.CardStyle.BorderForeground(styles.Error).Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

// renderProviders renders one card per provider, rows kept in status order.
func (m *Model) renderProviders() []string {
	statuses := m.state.GetStatuses()
	cardWidth := m.cardWidth()

	if len(statuses) == 0 {
		rows := []string{
			styles.CardTitleStyle.Render("◈ Limits"),
			"  " + styles.HelpStyle.Render("No usage reported yet"),
			"",
			styles.InfoTextStyle.Render("  ╰─▶ Add providers to the settings file"),
		}
		if m.state.AnyLoading() {
			rows = append(rows, "", indentSpace+components.RenderLoadingBar(styles.Primary, cardWidth-12, m.animationFrame))
		}
		return []string{styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))}
	}

	selected := m.state.GetSelectedIndex()
	now := time.Now()

	var cards []string
	var rows []string
	provider := ""
	hasSelection := false

	flush := func() {
		if len(rows) == 0 {
			return
		}
		style := styles.CardStyle
		if hasSelection {
			style = styles.SelectedCardStyle
		}
		cards = append(cards, style.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))
		rows = nil
		hasSelection = false
	}

	for i, st := range statuses {
		if st.Provider != provider || len(rows) == 0 {
			flush()
			provider = st.Provider
			color := styles.ProviderColor(st.Key)
			rows = append(rows, lipgloss.NewStyle().Foreground(color).Bold(true).Render("◈ "+st.Provider))
		}
		if i == selected {
			hasSelection = true
		}
		rows = append(rows, "", m.renderRow(st, i == selected, cardWidth-4, now))
	}
	flush()

	return cards
}

func (m *Model) renderRow(st models.KeyStatus, selected bool, width int, now time.Time) string {
	settings := m.state.GetSettings()
	th := settings.Thresholds

	prefix := "  "
	if selected {
		prefix = styles.HelpKeyStyle.Render("▸ ")
	}
	label := st.Label
	if label == "" {
		label = st.Key.Label()
	}
	header := prefix + lipgloss.NewStyle().Bold(true).Render(label)

	display := m.displayPct(st.Key, st.Pct)
	if width < compactWidth {
		return m.renderCompactRow(st, prefix+label, display, width, now)
	}

	barWidth := max(width-len(indentSpace)-percentWidth-rateWidth-badgeWidth-4, 10)

	pctStr := styles.UsageStyle(st.Pct, th.Warning, th.Critical).
		Width(percentWidth).
		Align(lipgloss.Right).
		Render(fmt.Sprintf("%d%%", st.Pct))

	status := st.Estimate.Status(th.Pacing)
	rateStr := lipgloss.NewStyle().Width(rateWidth).Render("")
	if st.Estimate.HasRate {
		rateStr = styles.StatusStyle(status).
			Width(rateWidth).
			Align(lipgloss.Right).
			Render(fmt.Sprintf("%.1f%%/min", st.Estimate.Rate))
	}

	badgeStr := styles.StatusStyle(status).
		Width(badgeWidth).
		Align(lipgloss.Right).
		Render(badgeText(status))

	line1 := lipgloss.JoinHorizontal(lipgloss.Left,
		indentSpace,
		components.RenderUsageBar(display, barWidth),
		" ",
		pctStr,
		" ",
		rateStr,
		" ",
		badgeStr,
	)

	var details []string
	if reset := models.ResetText(st.ResetAt, now); reset != "" {
		details = append(details, reset)
	}
	if eta := st.Estimate.ETAText(); eta != "" {
		details = append(details, styles.StatusStyle(status).Render(eta))
	}
	if spark := models.Sparkline(st.Trend, barWidth/2); spark != "" {
		details = append(details, lipgloss.NewStyle().Foreground(styles.ProviderColor(st.Key)).Render(spark))
	}

	lines := []string{header, line1}
	if len(details) > 0 {
		lines = append(lines, indentSpace+styles.HelpStyle.Render(strings.Join(details, "  ·  ")))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderCompactRow fits a limit on narrow terminals: the bar line, then the
// status badge with the ETA.
func (m *Model) renderCompactRow(st models.KeyStatus, label string, display float64, width int, now time.Time) string {
	status := st.Estimate.Status(m.state.GetSettings().Thresholds.Pacing)
	details := []string{styles.StatusStyle(status).Render(badgeText(status))}
	if eta := st.Estimate.ETAText(); eta != "" {
		details = append(details, eta)
	}
	if reset := models.ResetText(st.ResetAt, now); reset != "" {
		details = append(details, reset)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		components.SimpleUsageBar(display, label, width),
		indentSpace+styles.HelpStyle.Render(strings.Join(details, " · ")),
	)
}

func badgeText(status models.ProjectionStatus) string {
	switch status {
	case models.ProjectionCritical:
		return "▲ CRITICAL"
	case models.ProjectionWarning:
		return "▲ WARNING"
	case models.ProjectionSafe:
		return "● SAFE"
	default:
		return "○ --"
	}
}
