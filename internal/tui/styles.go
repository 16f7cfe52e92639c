// Package tui implements the optional live status display shown when the
// client is started with --tui: one status card for the single
// DimensionDoor tunnel plus a scrolling traffic log.
package tui

import (
	"fmt"

	"charm.land/lipgloss/v2"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	urlStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	statusStyles = map[string]lipgloss.Style{
		"connecting": lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"running":    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"backoff":    lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"terminated": lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}

	methodStyles = map[string]lipgloss.Style{
		"GET":     lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		"HEAD":    lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		"POST":    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"PUT":     lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"DELETE":  lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		"PATCH":   lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
		"OPTIONS": lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
)

// StyledMethod returns a method string padded to 7 chars and colored.
func StyledMethod(method string) string {
	padded := fmt.Sprintf("%-7s", method)
	if style, ok := methodStyles[method]; ok {
		return style.Render(padded)
	}
	return padded
}

// StyledStatus returns a status code string colored by range.
func StyledStatus(status int) string {
	s := fmt.Sprintf("%d", status)
	switch {
	case status >= 500:
		return errorStyle.Render(s)
	case status >= 400:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Render(s)
	case status >= 300:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Render(s)
	case status >= 200:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Render(s)
	default:
		return s
	}
}

// StyledTunnelStatus returns a styled status label.
func StyledTunnelStatus(status string) string {
	labels := map[string]string{
		"init":       "Starting...",
		"connecting": "Connecting...",
		"running":    "Connected",
		"backoff":    "Reconnecting...",
		"terminated": "Disconnected",
	}
	label, ok := labels[status]
	if !ok {
		label = status
	}
	if style, ok := statusStyles[status]; ok {
		return style.Render(label)
	}
	return label
}
