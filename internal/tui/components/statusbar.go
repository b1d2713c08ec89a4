package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	serialstream "github.com/allbin/go-serialstream"
	"github.com/allbin/go-serialstream/internal/tui/colors"
	"github.com/allbin/go-serialstream/internal/tui/styles"
)

// ConnectionInfo is the line settings shown on the right of the status bar
type ConnectionInfo struct {
	Driver   string
	BaudRate int
	DataBits int
	StopBits int
	Parity   serialstream.Parity
	Flow     string
}

func NewConnectionInfo(driverName string, cfg serialstream.Config) *ConnectionInfo {
	return &ConnectionInfo{
		Driver:   driverName,
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		StopBits: cfg.StopBits,
		Parity:   cfg.Parity,
		Flow:     flowString(cfg),
	}
}

func flowString(cfg serialstream.Config) string {
	var flow []string
	if cfg.RTSCTS {
		flow = append(flow, "RTS/CTS")
	}
	if cfg.Xon || cfg.Xoff {
		flow = append(flow, "XON/XOFF")
	}
	if cfg.Xany {
		flow = append(flow, "XANY")
	}
	if len(flow) == 0 {
		return "None"
	}
	return strings.Join(flow, "+")
}

func parityLetter(p serialstream.Parity) string {
	switch p {
	case serialstream.ParityEven:
		return "E"
	case serialstream.ParityOdd:
		return "O"
	case serialstream.ParityMark:
		return "M"
	case serialstream.ParitySpace:
		return "S"
	default:
		return "N"
	}
}

// Summary renders e.g. "115200 baud 8N1 None"
func (ci *ConnectionInfo) Summary() string {
	return fmt.Sprintf("%d baud %d%s%d %s",
		ci.BaudRate, ci.DataBits, parityLetter(ci.Parity), ci.StopBits, ci.Flow)
}

type StatusBar struct {
	portPath       string
	status         string
	err            error
	width          int
	connectionInfo *ConnectionInfo
	stats          serialstream.Stats
}

func NewStatusBar(portPath string) *StatusBar {
	return &StatusBar{
		portPath: portPath,
		status:   "Initializing...",
	}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetConnectionInfo(info *ConnectionInfo) {
	sb.connectionInfo = info
}

func (sb *StatusBar) SetStats(stats serialstream.Stats) {
	sb.stats = stats
}

// SetEvent updates the status line from a stream event
func (sb *StatusBar) SetEvent(ev serialstream.Event) {
	switch ev.Type {
	case serialstream.EventOpen:
		sb.status = "Connected"
		sb.err = nil
	case serialstream.EventClose:
		sb.status = "Disconnected"
		sb.err = nil
	case serialstream.EventEnd:
		sb.status = "End of stream"
	case serialstream.EventError:
		sb.status = fmt.Sprintf("Error: %v", ev.Err)
		sb.err = ev.Err
	}
}

func (sb *StatusBar) Status() string {
	return sb.status
}

func (sb *StatusBar) Err() error {
	return sb.err
}

// Render draws the status bar: mode, port and state on the left, line
// settings, counters and the clock on the right.
func (sb *StatusBar) Render(inputMode, sendingMode string, state serialstream.State, timestamp string) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	modeStyle := lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(colors.Blue).
		Bold(true).
		Padding(0, 1)
	if inputMode == "INSERT" {
		modeStyle = modeStyle.Background(colors.Green)
	}
	mode := modeStyle.Render(inputMode)

	port := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(sb.portPath)

	indicator := styles.StateStyle(state).Render(styles.StateSymbol(state))
	if sb.err != nil {
		indicator = styles.StatusClosedStyle.Render("✗")
	}

	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	left := []string{mode, port, indicator}
	if inputMode == "INSERT" && sendingMode != "" {
		left = append(left, lipgloss.NewStyle().
			Foreground(colors.Peach).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("[%s] Tab to toggle", sendingMode)))
	}
	left = append(left, divider)
	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, left...)

	info := "⚡ serial"
	if sb.connectionInfo != nil {
		info = "⚡ " + sb.connectionInfo.Summary()
	}
	details := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1).
		Render(info)

	counters := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1).
		Render(fmt.Sprintf("RX %d TX %d", sb.stats.BytesRead, sb.stats.BytesWritten))

	clock := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(timestamp)

	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, details, divider, counters, divider, clock)

	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	return lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(terminalWidth).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
