package main

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#7D56F4")
	colorSubtext = lipgloss.Color("#A0AEC0")
	colorError   = lipgloss.Color("#E53E3E")

	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	timeStyle = lipgloss.NewStyle().
			Foreground(colorSubtext)

	clientStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FFFF")).
			Width(10)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	// per message type
	typeStyles = map[string]lipgloss.Style{
		"join":      lipgloss.NewStyle().Foreground(lipgloss.Color("#38A169")).Width(10),
		"leave":     lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Width(10),
		"offer":     lipgloss.NewStyle().Foreground(colorPrimary).Width(10),
		"answer":    lipgloss.NewStyle().Foreground(lipgloss.Color("#9F7AEA")).Width(10),
		"candidate": lipgloss.NewStyle().Foreground(colorSubtext).Width(10),
	}
)

func typeStyle(t string) lipgloss.Style {
	if s, ok := typeStyles[t]; ok {
		return s
	}
	return lipgloss.NewStyle().Width(10)
}
