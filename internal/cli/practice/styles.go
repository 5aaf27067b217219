// internal/cli/practice/styles.go
package practice

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ColonelBlimp/morsetrainer/internal/feedback"
)

type styles struct {
	title    lipgloss.Style
	panel    lipgloss.Style
	selected lipgloss.Style
	dim      lipgloss.Style
	big      lipgloss.Style
	code     lipgloss.Style
	unknown  lipgloss.Style
	warn     lipgloss.Style
	leds     map[feedback.Color]lipgloss.Style
}

func newStyles() styles {
	brand := lipgloss.Color("63")
	subtle := lipgloss.Color("244")

	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(brand),
		panel:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(brand).Padding(0, 2),
		selected: lipgloss.NewStyle().Bold(true).Foreground(brand),
		dim:      lipgloss.NewStyle().Foreground(subtle),
		big:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")),
		code:     lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		unknown:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
		warn:     lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		leds: map[feedback.Color]lipgloss.Style{
			feedback.ColorNone:  lipgloss.NewStyle().Foreground(subtle),
			feedback.ColorRed:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
			feedback.ColorBlue:  lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
			feedback.ColorGreen: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		},
	}
}
