package report

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title   lipgloss.Style
	name    lipgloss.Style
	muted   lipgloss.Style
	err     lipgloss.Style
	warning lipgloss.Style
	info    lipgloss.Style
	success lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{title: plain, name: plain, muted: plain, err: plain, warning: plain, info: plain, success: plain}
	}
	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")),
		name: lipgloss.NewStyle().Bold(true),
		muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")),
		err: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true),
		warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")),
		info: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#38BDF8")),
		success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")),
	}
}
