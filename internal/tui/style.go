package tui

import "github.com/charmbracelet/lipgloss"

// Styles for the session screen. Banner colours follow the status kind.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	timerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255"))

	recordingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	speakingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	infoBanner = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	progressBanner = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63"))

	errorBanner = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)
