package render

import "github.com/charmbracelet/lipgloss"

var (
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	infoColor    = lipgloss.Color("#3B82F6")
	subtleColor  = lipgloss.Color("#6B7280")

	titleStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	headingStyle = lipgloss.NewStyle().Bold(true).MarginTop(1)
	successStyle = lipgloss.NewStyle().Foreground(successColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	infoStyle    = lipgloss.NewStyle().Foreground(infoColor)
	subtleStyle  = lipgloss.NewStyle().Foreground(subtleColor)
)
