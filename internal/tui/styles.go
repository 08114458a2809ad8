package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	colorGreen  = lipgloss.Color("#98C379")
	colorYellow = lipgloss.Color("#E5C07B")
	colorBlue   = lipgloss.Color("#61AFEF")
	colorRed    = lipgloss.Color("#E06C75")
	colorMuted  = lipgloss.Color("#636B78")
	colorDim    = lipgloss.Color("#5C6370")
)

// Component styles
var (
	titleStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true).
			PaddingLeft(1)

	countStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	instanceStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true)

	liveBadgeStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	storedBadgeStyle = lipgloss.NewStyle().
				Foreground(colorMuted)

	descStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			PaddingLeft(1)

	emptyStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			PaddingLeft(1)

	helpStyle = lipgloss.NewStyle().
			PaddingLeft(1)
)
