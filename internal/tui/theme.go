package tui

import "github.com/charmbracelet/lipgloss"

// ---------------------------------------------------------------------------
// Catppuccin Mocha palette, true-color hex values
// https://catppuccin.com/palette
// ---------------------------------------------------------------------------

const (
	colorPink     lipgloss.Color = "#f5c2e7"
	colorMauve    lipgloss.Color = "#cba6f7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorBlue     lipgloss.Color = "#89b4fa"
	colorLavender lipgloss.Color = "#b4befe"

	colorText     lipgloss.Color = "#cdd6f4"
	colorSubtext0 lipgloss.Color = "#a6adc8"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorOverlay0 lipgloss.Color = "#6c7086"
	colorSurface2 lipgloss.Color = "#585b70"
	colorSurface0 lipgloss.Color = "#313244"
	colorBase     lipgloss.Color = "#1e1e2e"
	colorMantle   lipgloss.Color = "#181825"
)

// ---------------------------------------------------------------------------
// Semantic color aliases
// ---------------------------------------------------------------------------

const (
	colorBrand   = colorPink
	colorFocus   = colorLavender
	colorUser    = colorBlue
	colorAgent   = colorMauve
	colorSuccess = colorGreen
	colorError   = colorRed
	colorWarning = colorYellow
	colorInfo    = colorTeal
)

// paletteColors returns every color the UI draws with.
func paletteColors() []lipgloss.Color {
	return []lipgloss.Color{
		colorPink, colorMauve, colorRed, colorPeach, colorYellow,
		colorGreen, colorTeal, colorBlue, colorLavender,
		colorText, colorSubtext0, colorOverlay1, colorOverlay0,
		colorSurface2, colorSurface0, colorBase, colorMantle,
	}
}

// ---------------------------------------------------------------------------
// Styles
// ---------------------------------------------------------------------------

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(colorBrand)
	mutedStyle      = lipgloss.NewStyle().Foreground(colorOverlay1)
	textStyle       = lipgloss.NewStyle().Foreground(colorText)
	userLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorUser)
	agentLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAgent)
	errorTextStyle  = lipgloss.NewStyle().Foreground(colorError)
	exampleStyle    = lipgloss.NewStyle().Foreground(colorPeach)

	stepBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	stepTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	stepResultStyle = lipgloss.NewStyle().Foreground(colorSubtext0)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorFocus)
	inputBoxBusyStyle = inputBoxStyle.BorderForeground(colorSurface2)

	statusBarStyle = lipgloss.NewStyle().Foreground(colorSubtext0).Background(colorMantle)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBrand).
			Background(colorBase).
			Padding(1, 2)
	alertStyle = modalStyle.BorderForeground(colorWarning)
)

// statusColor maps a step status onto the palette. Unknown statuses are
// shown neutrally.
func statusColor(status string) lipgloss.Color {
	switch status {
	case "success":
		return colorSuccess
	case "error", "failed":
		return colorError
	case "running", "pending", "in_progress":
		return colorWarning
	default:
		return colorOverlay0
	}
}
