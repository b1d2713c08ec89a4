package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-serialstream/internal/tui/colors"
)

// Transmit states shown next to TX lines
const (
	TxPending = "PENDING"
	TxWritten = "WRITTEN"
	TxError   = "ERROR"
)

// DataReceivedMsg is one line in the terminal: a received chunk or a
// queued write. ID ties a write to its later status update.
type DataReceivedMsg struct {
	ID        int
	Timestamp time.Time
	Data      []byte
	IsTX      bool
	Status    string // TX only
}

type DisplayMode struct {
	ShowHex        bool
	ShowASCII      bool
	ShowTimestamps bool
	ShowIndicators bool
}

type DataFormatter struct {
	mode DisplayMode
}

func NewDataFormatter(showHex, showASCII bool) *DataFormatter {
	return &DataFormatter{
		mode: DisplayMode{
			ShowHex:        showHex,
			ShowASCII:      showASCII,
			ShowTimestamps: true,
			ShowIndicators: true,
		},
	}
}

func (df *DataFormatter) SetDisplayMode(showHex, showASCII bool) {
	df.mode.ShowHex = showHex
	df.mode.ShowASCII = showASCII
}

// SetFormatOptions hides timestamps and/or the RX/TX indicators
func (df *DataFormatter) SetFormatOptions(noTimestamps, noIndicators bool) {
	df.mode.ShowTimestamps = !noTimestamps
	df.mode.ShowIndicators = !noIndicators
}

func (df *DataFormatter) GetDisplayMode() DisplayMode {
	return df.mode
}

// HexString renders data as space separated upper case hex pairs
func HexString(data []byte) string {
	return fmt.Sprintf("% X", data)
}

// ASCIIString replaces every non-printable byte with a dot
func ASCIIString(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		if c >= 32 && c <= 126 {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

func txIndicator(status string) string {
	var txColor lipgloss.Color
	var statusText string

	switch status {
	case TxPending:
		txColor = colors.Yellow
		statusText = "TX ○"
	case TxWritten:
		txColor = colors.Green
		statusText = "TX ✓"
	case TxError:
		txColor = colors.Red
		statusText = "TX ✗"
	default:
		txColor = colors.Peach
		statusText = "TX"
	}

	return lipgloss.NewStyle().
		Foreground(txColor).
		Bold(true).
		Render("↗ " + statusText)
}

func (df *DataFormatter) FormatMessage(msg DataReceivedMsg) string {
	var prefix []string

	if df.mode.ShowTimestamps {
		prefix = append(prefix, lipgloss.NewStyle().
			Foreground(colors.Subtext0).
			Render(fmt.Sprintf("[%s]", msg.Timestamp.Format("15:04:05.000"))))
	}

	if df.mode.ShowIndicators {
		if msg.IsTX {
			prefix = append(prefix, txIndicator(msg.Status))
		} else {
			prefix = append(prefix, lipgloss.NewStyle().
				Foreground(colors.Sky).
				Bold(true).
				Render("↙ RX"))
		}
	}

	var parts []string
	if df.mode.ShowHex {
		parts = append(parts, "HEX: "+HexString(msg.Data))
	}
	if df.mode.ShowASCII {
		parts = append(parts, "ASCII: "+ASCIIString(msg.Data))
	}
	if !df.mode.ShowHex && !df.mode.ShowASCII {
		parts = append(parts, fmt.Sprintf("BYTES: %d", len(msg.Data)))
	}

	body := strings.Join(parts, "  ")
	if len(prefix) == 0 {
		return body
	}
	return strings.Join(prefix, " ") + ": " + body
}

func (df *DataFormatter) FormatMessages(messages []DataReceivedMsg) []string {
	formatted := make([]string, len(messages))
	for i, msg := range messages {
		formatted[i] = df.FormatMessage(msg)
	}
	return formatted
}

func (df *DataFormatter) ToggleHex() {
	df.mode.ShowHex = !df.mode.ShowHex
}

func (df *DataFormatter) ToggleASCII() {
	df.mode.ShowASCII = !df.mode.ShowASCII
}

func (df *DataFormatter) ToggleTimestamps() {
	df.mode.ShowTimestamps = !df.mode.ShowTimestamps
}

func (df *DataFormatter) ToggleIndicators() {
	df.mode.ShowIndicators = !df.mode.ShowIndicators
}
