package styles

import (
	"github.com/charmbracelet/lipgloss"

	serialstream "github.com/allbin/go-serialstream"
	"github.com/allbin/go-serialstream/internal/tui/colors"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve).
			Background(colors.Surface0).
			Padding(0, 1)

	StatusOpenStyle = lipgloss.NewStyle().
			Foreground(colors.Green).
			Bold(true)

	StatusClosedStyle = lipgloss.NewStyle().
				Foreground(colors.Red).
				Bold(true)

	StatusPendingStyle = lipgloss.NewStyle().
				Foreground(colors.Yellow).
				Bold(true)

	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colors.Surface1)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface2).
			Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Red).
			Align(lipgloss.Center)

	InfoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve).
			Align(lipgloss.Center)
)

// StateStyle picks the indicator style for a stream state
func StateStyle(state serialstream.State) lipgloss.Style {
	switch state {
	case serialstream.StateOpen:
		return StatusOpenStyle
	case serialstream.StateOpening, serialstream.StateClosing:
		return StatusPendingStyle
	default:
		return StatusClosedStyle
	}
}

// StateSymbol is the one-character indicator for a stream state
func StateSymbol(state serialstream.State) string {
	switch state {
	case serialstream.StateOpen:
		return "●"
	case serialstream.StateErrored:
		return "✗"
	default:
		return "○"
	}
}
