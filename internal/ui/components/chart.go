package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/ai-quota-bar/internal/ui/styles"
)

// SeriesColors pairs the asciigraph colour of a series with its legend colour.
var SeriesColors = []struct {
	Graph  asciigraph.AnsiColor
	Legend lipgloss.Color
}{
	{asciigraph.Red, lipgloss.Color("#ff6b6b")},
	{asciigraph.Blue, lipgloss.Color("#4285f4")},
	{asciigraph.Green, lipgloss.Color("#51cf66")},
	{asciigraph.Yellow, lipgloss.Color("#ffd93d")},
	{asciigraph.Magenta, lipgloss.Color("#cc5de8")},
	{asciigraph.Cyan, lipgloss.Color("#22b8cf")},
}

// RenderLineChart creates a single-series ASCII line chart on a 0-100 scale.
func RenderLineChart(data []float64, width, height int, caption string) string {
	if len(data) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	return asciigraph.Plot(data,
		asciigraph.Height(max(height, 3)),
		asciigraph.Width(max(width, 20)),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(100),
		asciigraph.Caption(caption),
	)
}

// RenderMultiLineChart plots several series, padding shorter ones with zeros.
// Series colours follow SeriesColors.
func RenderMultiLineChart(series [][]float64, width, height int, caption string) string {
	maxLen := 0
	for _, s := range series {
		maxLen = max(maxLen, len(s))
	}
	if maxLen == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	data := make([][]float64, len(series))
	colors := make([]asciigraph.AnsiColor, len(series))
	for i, s := range series {
		data[i] = make([]float64, maxLen)
		copy(data[i][maxLen-len(s):], s)
		colors[i] = SeriesColors[i%len(SeriesColors)].Graph
	}

	return asciigraph.PlotMany(data,
		asciigraph.Height(max(height, 3)),
		asciigraph.Width(max(width, 20)),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(100),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(colors...),
	)
}

// RenderBarChart creates a simple horizontal bar chart.
func RenderBarChart(values []float64, labels []string, width int) string {
	if len(values) == 0 {
		return ""
	}

	maxVal := 0.0
	for _, v := range values {
		maxVal = max(maxVal, v)
	}
	if maxVal == 0 {
		maxVal = 1
	}

	maxLabelLen := 0
	for _, l := range labels {
		maxLabelLen = max(maxLabelLen, lipgloss.Width(l))
	}

	barWidth := max(width-maxLabelLen-10, 10)

	lines := make([]string, 0, len(values))
	for i, v := range values {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}

		barLen := max(int((v/maxVal)*float64(barWidth)), 0)
		lines = append(lines, fmt.Sprintf("%*s │%s %.0f%%", maxLabelLen, label, strings.Repeat("█", barLen), v))
	}

	return strings.Join(lines, "\n")
}

// HeatmapBlocks are Unicode block characters for heatmaps (low to high intensity).
var HeatmapBlocks = []rune{'░', '▒', '▓', '█'}

// RenderHeatStrip renders one block per value, shaded by absolute percentage
// against the warning and critical thresholds.
func RenderHeatStrip(values []int, warning, critical int) string {
	var b strings.Builder
	for _, v := range values {
		var idx int
		var color lipgloss.Color
		switch {
		case v >= critical:
			idx, color = 3, styles.Error
		case v >= warning:
			idx, color = 2, styles.Warning
		case v >= warning/2:
			idx, color = 1, styles.Success
		default:
			idx, color = 0, styles.Subtle
		}
		b.WriteString(lipgloss.NewStyle().Foreground(color).Render(string(HeatmapBlocks[idx])))
	}
	return b.String()
}

// RenderLegend creates a chart legend.
func RenderLegend(items []LegendItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		colorBox := lipgloss.NewStyle().Foreground(item.Color).Render("■")
		parts = append(parts, fmt.Sprintf("%s %s", colorBox, item.Label))
	}
	return strings.Join(parts, "  ")
}

// LegendItem represents a single legend entry.
type LegendItem struct {
	Label string
	Color lipgloss.Color
}
