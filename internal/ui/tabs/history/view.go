package history

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/ai-quota-bar/internal/models"
	"github.com/j-veylop/ai-quota-bar/internal/ui/components"
	"github.com/j-veylop/ai-quota-bar/internal/ui/styles"
)

// View renders the history tab.
func (m *Model) View() string {
	if m.loading && m.overview == nil {
		return m.renderLoading()
	}
	if m.errorMsg != "" {
		return m.renderError()
	}
	if !m.overview.HasData() {
		return m.renderEmpty()
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderOverview(),
		m.renderDailyChart(),
		m.renderKeyTrends(),
		m.renderKeyTable(),
		m.renderAverages(),
	)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderLoading() string {
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(styles.HelpStyle.Render("Loading history data..."))
}

func (m *Model) renderError() string {
	content := fmt.Sprintf("%s %s",
		styles.ErrorTextStyle.Render("Error:"),
		m.errorMsg,
	)
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m *Model) renderEmpty() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.TitleStyle.Render("History"),
		"",
		styles.HelpStyle.Render("No daily statistics for the last "+m.timeRange.String()+"."),
		styles.HelpStyle.Render("Days appear once samples have been rolled up."),
		"",
		styles.HelpStyle.Render("[t] change range"),
	)
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m *Model) cardWidth() int {
	return max(m.width-6, 40)
}

func (m *Model) thresholds() (warning, critical int) {
	th := m.state.GetSettings().Thresholds
	return th.Warning, th.Critical
}

func (m *Model) renderHeader() string {
	title := styles.TitleStyle.Render("History")

	rangeStyle := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Primary)

	rangeIndicator := rangeStyle.Render(fmt.Sprintf("[t] %s", m.timeRange.String()))
	header := lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", rangeIndicator)

	ov := m.overview
	first, last := ov.DayMax[0].Date, ov.DayMax[len(ov.DayMax)-1].Date
	subtitle := fmt.Sprintf("Data: %s → %s (%d days)", first, last, ov.TotalDays)
	if !m.lastRefresh.IsZero() {
		subtitle += "  ·  loaded " + m.lastRefresh.Format("15:04:05")
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, styles.HelpStyle.Render(subtitle), "")
}

func (m *Model) renderOverview() string {
	ov := m.overview
	warning, critical := m.thresholds()

	stat := func(label string, pct int, suffix string) string {
		value := styles.UsageStyle(pct, warning, critical).Render(fmt.Sprintf("%d%%", pct))
		return fmt.Sprintf("  %-14s %s %s", label, value, styles.HelpStyle.Render(suffix))
	}

	hits := styles.SuccessTextStyle.Render("0")
	if ov.TotalHits > 0 {
		hits = styles.ErrorTextStyle.Bold(true).Render(fmt.Sprintf("%d", ov.TotalHits))
	}

	rows := []string{
		styles.CardTitleStyle.Render("◈ Overview"),
		stat("Average", ov.AvgPct, ""),
		stat("Highest day", ov.HighestPct, ov.HighestDay),
		stat("Lowest day", ov.LowestPct, ov.LowestDay),
		fmt.Sprintf("  %-14s %s", "Limit hits", hits),
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderDailyChart() string {
	cardWidth := m.cardWidth()
	warning, critical := m.thresholds()

	days := m.overview.DayMax
	data := make([]float64, len(days))
	heat := make([]int, len(days))
	for i, d := range days {
		data[i] = float64(d.Pct)
		heat[i] = d.Pct
	}

	rows := []string{styles.CardTitleStyle.Render("◈ Busiest key per day"), ""}

	chart := components.RenderLineChart(data, max(cardWidth-14, 30), 8,
		fmt.Sprintf("Highest average usage, last %d days", len(days)))
	for line := range strings.SplitSeq(chart, "\n") {
		rows = append(rows, "  "+line)
	}
	rows = append(rows, "", "  "+components.RenderHeatStrip(heat, warning, critical))

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// keySeries aligns each key's daily averages on the dates of DayMax, zero
// where a key has no entry. At most len(components.SeriesColors) keys are
// returned so colours stay distinct.
func keySeries(ov *models.HistoryOverview) ([][]float64, []models.Key) {
	keys := ov.Keys
	if len(keys) > len(components.SeriesColors) {
		keys = keys[:len(components.SeriesColors)]
	}

	index := make(map[string]int, len(ov.DayMax))
	for i, d := range ov.DayMax {
		index[d.Date] = i
	}

	series := make([][]float64, len(keys))
	names := make([]models.Key, len(keys))
	for i, k := range keys {
		series[i] = make([]float64, len(ov.DayMax))
		names[i] = k.Key
		for _, d := range k.Days {
			if j, ok := index[d.Date]; ok {
				series[i][j] = float64(d.AvgPct)
			}
		}
	}
	return series, names
}

func (m *Model) renderKeyTrends() string {
	series, keys := keySeries(m.overview)
	if len(series) < 2 || len(m.overview.DayMax) < 2 {
		return ""
	}

	cardWidth := m.cardWidth()
	rows := []string{styles.CardTitleStyle.Render("◈ Daily average per key"), ""}
	chart := components.RenderMultiLineChart(series, max(cardWidth-14, 30), 8, "Average usage per day")
	for line := range strings.SplitSeq(chart, "\n") {
		rows = append(rows, "  "+line)
	}

	legend := make([]components.LegendItem, len(keys))
	for i, k := range keys {
		legend[i] = components.LegendItem{Label: k.Label(), Color: components.SeriesColors[i].Legend}
	}
	rows = append(rows, "", "  "+components.RenderLegend(legend))

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// lastDays returns at most the final n days of s.
func lastDays(s []models.DailyStat, n int) []models.DailyStat {
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}

func (m *Model) renderKeyTable() string {
	warning, critical := m.thresholds()

	var selected models.Key
	if st, ok := m.state.GetSelectedStatus(); ok {
		selected = st.Key
	}

	header := styles.HelpStyle.Bold(true).Render(
		fmt.Sprintf("  %-24s %6s %6s %5s  %s", "Key", "Avg", "Peak", "Hits", "7d"),
	)
	rows := []string{styles.CardTitleStyle.Render("◈ Per key"), header}

	for _, k := range m.overview.Keys {
		avg := styles.UsageStyle(k.AvgPct, warning, critical).Render(fmt.Sprintf("%5d%%", k.AvgPct))
		peak := styles.UsageStyle(k.PeakPct, warning, critical).Render(fmt.Sprintf("%5d%%", k.PeakPct))
		spark := lipgloss.NewStyle().Foreground(styles.ProviderColor(k.Key)).
			Render(models.WeeklySparkline(lastDays(k.Days, 7)))

		name := k.Key.Label()
		if len(name) > 24 {
			name = name[:21] + "..."
		}
		line := fmt.Sprintf("  %-24s %s %s %5d  %s", name, avg, peak, k.LimitHits, spark)
		if k.Key == selected {
			line = styles.SelectedRowStyle.Render("▸" + line[1:])
		}
		rows = append(rows, line)
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderAverages() string {
	keys := m.overview.Keys
	values := make([]float64, len(keys))
	labels := make([]string, len(keys))
	legend := make([]components.LegendItem, 0, len(keys))
	for i, k := range keys {
		values[i] = float64(k.AvgPct)
		labels[i] = k.Key.Label()
		legend = append(legend, components.LegendItem{Label: labels[i], Color: styles.ProviderColor(k.Key)})
	}

	rows := []string{styles.CardTitleStyle.Render("◈ Average usage"), ""}
	for line := range strings.SplitSeq(components.RenderBarChart(values, labels, m.cardWidth()-8), "\n") {
		rows = append(rows, "  "+line)
	}
	rows = append(rows, "", "  "+components.RenderLegend(legend))

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
