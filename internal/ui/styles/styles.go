// Package styles defines the visual styling for the application.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/ai-quota-bar/internal/models"
)

// Default thresholds used when no settings are available.
const (
	DefaultWarning  = 80
	DefaultCritical = 95
)

// Color definitions.
var (
	// Primary colors
	Primary   = lipgloss.Color("75")  // Sky blue
	Secondary = lipgloss.Color("63")  // Purple
	Subtle    = lipgloss.Color("240") // Gray

	// Status colors
	Success = lipgloss.Color("42")  // Green
	Error   = lipgloss.Color("196") // Red
	Warning = lipgloss.Color("220") // Yellow
	Info    = lipgloss.Color("39")  // Blue

	// Background colors
	BgDark   = lipgloss.Color("235")
	BgLight  = lipgloss.Color("237")
	BgAccent = lipgloss.Color("236")

	// Text colors
	TextPrimary   = lipgloss.Color("252")
	TextSecondary = lipgloss.Color("245")
	TextMuted     = lipgloss.Color("240")

	// ToastStyle for floating notifications.
	ToastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1).
			MarginBottom(1)
)

// providerColors maps provider key prefixes to brand colors.
var providerColors = map[string]lipgloss.Color{
	"claude":  lipgloss.Color("208"), // Orange
	"chatgpt": lipgloss.Color("36"),  // Teal
	"codex":   lipgloss.Color("36"),
	"gemini":  lipgloss.Color("39"), // Blue
	"cursor":  lipgloss.Color("255"),
	"copilot": lipgloss.Color("141"),
	"zai":     lipgloss.Color("171"),
}

// TitleStyle is used for main headings.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	MarginBottom(1)

// DocStyle provides consistent document margins.
var DocStyle = lipgloss.NewStyle().
	Margin(1, 2).
	Padding(0, 1)

// CardStyle creates a bordered card container.
var CardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Subtle).
	Padding(1, 2).
	MarginBottom(1)

// SelectedCardStyle highlights the card holding the selection.
var SelectedCardStyle = CardStyle.
	BorderForeground(Primary)

// CardTitleStyle styles card headers.
var CardTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	MarginBottom(1)

// HelpStyle is the base style for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(TextMuted)

// HelpKeyStyle styles keyboard shortcut keys.
var HelpKeyStyle = lipgloss.NewStyle().
	Foreground(Primary).
	Bold(true)

// HelpPanelStyle creates the help overlay panel.
var HelpPanelStyle = lipgloss.NewStyle().
	Border(lipgloss.DoubleBorder()).
	BorderForeground(Primary).
	Padding(1, 3).
	Background(BgDark)

// SelectedRowStyle styles the selected table row.
var SelectedRowStyle = lipgloss.NewStyle().
	Background(BgAccent).
	Foreground(TextPrimary).
	Bold(true)

// ErrorTextStyle for error messages.
var ErrorTextStyle = lipgloss.NewStyle().
	Foreground(Error)

// SuccessTextStyle for success messages.
var SuccessTextStyle = lipgloss.NewStyle().
	Foreground(Success)

// WarningTextStyle for warning messages.
var WarningTextStyle = lipgloss.NewStyle().
	Foreground(Warning)

// InfoTextStyle for info messages.
var InfoTextStyle = lipgloss.NewStyle().
	Foreground(Info)

var ProjectionSafeStyle = lipgloss.NewStyle().
	Foreground(Success)

var ProjectionWarningStyle = lipgloss.NewStyle().
	Foreground(Warning).
	Bold(true)

var ProjectionCriticalStyle = lipgloss.NewStyle().
	Foreground(Error).
	Bold(true)

var ProjectionUnknownStyle = lipgloss.NewStyle().
	Foreground(Subtle)

// UsageStyle colors a percentage against the warning and critical thresholds.
func UsageStyle(pct, warning, critical int) lipgloss.Style {
	switch {
	case pct >= critical:
		return ErrorTextStyle.Bold(true)
	case pct >= warning:
		return WarningTextStyle
	default:
		return SuccessTextStyle
	}
}

// StatusStyle returns the badge style for a projection status.
func StatusStyle(status models.ProjectionStatus) lipgloss.Style {
	switch status {
	case models.ProjectionSafe:
		return ProjectionSafeStyle
	case models.ProjectionWarning:
		return ProjectionWarningStyle
	case models.ProjectionCritical:
		return ProjectionCriticalStyle
	default:
		return ProjectionUnknownStyle
	}
}

// ProviderColor returns the brand color for the provider owning key.
func ProviderColor(key models.Key) lipgloss.Color {
	if c, ok := providerColors[key.Provider()]; ok {
		return c
	}
	return Secondary
}

// CenterBoth centers content both horizontally and vertically.
func CenterBoth(content string, width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center).
		AlignVertical(lipgloss.Center).
		Render(content)
}
