package review

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	colorPrimary = lipgloss.Color("86")  // Cyan
	colorSuccess = lipgloss.Color("42")  // Green
	colorError   = lipgloss.Color("196") // Red
	colorWarn    = lipgloss.Color("214") // Orange
	colorMuted   = lipgloss.Color("240") // Gray
)

// Style definitions
var (
	headerStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	unselectedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	warnStyle = lipgloss.NewStyle().
			Foreground(colorWarn)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	analysisBoxStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorMuted).
				Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true).
			MarginTop(1)
)

func renderHeader(text string) string {
	return headerStyle.Render(text)
}

func renderChoice(selected, focused bool, text string) string {
	mark := "[ ]"
	if selected {
		mark = "[x]"
	}
	prefix := "  "
	if focused {
		prefix = "> "
	}
	line := prefix + mark + " " + text
	if focused {
		return selectedStyle.Render(line)
	}
	return unselectedStyle.Render(line)
}

func renderStatusBar(text string) string {
	return statusBarStyle.Render(text)
}
