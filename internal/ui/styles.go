package ui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))

	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
	activeTabStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).
			Foreground(lipgloss.Color("230")).Background(lipgloss.Color("63"))

	statsStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))

	completedStyle = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("240"))
	overdueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	todayStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	highStyle      = lipgloss.NewStyle().Bold(true)
	categoryStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
	alertStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 1).
			Bold(true)

	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)
