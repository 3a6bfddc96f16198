package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorNeonGreen  = lipgloss.Color("#00FF99")
	colorNeonPurple = lipgloss.Color("#874BFD")
	colorTextMain   = lipgloss.Color("#E2E8F0")
	colorTextSub    = lipgloss.Color("#64748B")
	colorDanger     = lipgloss.Color("#FF0055")
	colorWarning    = lipgloss.Color("#F59E0B")

	dimStyle  = lipgloss.NewStyle().Foreground(colorTextSub)
	special   = lipgloss.NewStyle().Foreground(colorNeonGreen).Bold(true)
	danger    = lipgloss.NewStyle().Foreground(colorDanger)
	warning   = lipgloss.NewStyle().Foreground(colorWarning)
	highlight = lipgloss.NewStyle().Foreground(colorNeonPurple).Bold(true)

	titleStyle = lipgloss.NewStyle().
			Foreground(colorNeonPurple).
			Bold(true).
			Padding(0, 1)

	hudStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorNeonPurple).
			Padding(0, 1).
			Foreground(colorTextMain)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorTextSub).
			Padding(0, 1)

	listSelectedStyle = lipgloss.NewStyle().
				Foreground(colorTextMain).
				Background(lipgloss.Color("#331832")).
				Bold(true)

	listNormalStyle = lipgloss.NewStyle().
			Foreground(colorTextSub)
)
