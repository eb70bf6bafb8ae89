package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Base styles for the hyprcaptions TUI components
var (
	// Header style for titles and section headers
	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	// Label style for form field labels
	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true)

	// Success style for positive feedback
	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// Error style for error messages
	StyleError = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	// Warning style for warnings
	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// Muted style for secondary text
	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// Box style for bordered containers
	StyleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSubtle).
			Padding(1, 2)
)

const logoASCII = `
 _                                     _   _
| |__  _   _ _ __  _ __ ___ __ _ _ __ | |_(_) ___  _ __  ___
| '_ \| | | | '_ \| '__/ __/ _` + "`" + ` | '_ \| __| |/ _ \| '_ \/ __|
| | | | |_| | |_) | | | (_| (_| | |_) | |_| | (_) | | | \__ \
|_| |_|\__, | .__/|_|  \___\__,_| .__/ \__|_|\___/|_| |_|___/
       |___/|_|                 |_|`

// Logo returns the hyprcaptions ASCII art
func Logo() string {
	return StyleHeader.Render(strings.Trim(logoASCII, "\n"))
}
