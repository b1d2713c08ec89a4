/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	serialstream "github.com/allbin/go-serialstream"
	"github.com/allbin/go-serialstream/internal/tui/colors"
	"github.com/allbin/go-serialstream/internal/tui/components"
	"github.com/allbin/go-serialstream/internal/tui/keys"
	"github.com/allbin/go-serialstream/internal/tui/models"
	"github.com/allbin/go-serialstream/internal/tui/styles"
)

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen <port>",
	Short: "Listen for data on a serial port with real-time display",
	Long: `Listen for incoming data on a serial port with a real-time TUI display.

Every chunk is shown as it was read from the device, with timestamps and
hex/ASCII views that can be toggled while running. The status bar tracks the
connection state and byte counters.

Example usage:
  serialstream listen /dev/ttyUSB0
  serialstream listen /dev/ttyUSB0 --baud 9600
  serialstream listen /dev/ttyUSB0 --rtscts --raw`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		noTimestamps, _ := cmd.Flags().GetBool("no-timestamps")
		showIndicators, _ := cmd.Flags().GetBool("show-indicators")
		rawMode, _ := cmd.Flags().GetBool("raw")

		sess, err := newSession(args[0], true)
		if err != nil {
			return err
		}
		defer sess.close()

		terminal := components.NewTerminal(80, 20)
		if rawMode {
			terminal.SetFormatOptions(true, true)
		} else {
			terminal.SetFormatOptions(noTimestamps, !showIndicators)
		}
		return runTUI(newListenModel(sess, terminal))
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().Bool("no-timestamps", false, "Hide timestamps from output")
	listenCmd.Flags().Bool("show-indicators", false, "Show RX/TX indicators (off by default)")
	listenCmd.Flags().Bool("raw", false, "Raw output mode: no timestamps, no indicators")
}

// streamTUI is a bubbletea model backed by a stream session
type streamTUI interface {
	tea.Model
	serial() *models.SerialModel
}

// runTUI starts the pumps, runs the program and stops the pumps again.
// The session itself is closed by the caller.
func runTUI(m streamTUI) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	m.serial().Start(p.Send)
	_, err := p.Run()
	if cerr := m.serial().Cleanup(); err == nil {
		err = cerr
	}
	return err
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// listenModel represents the Bubble Tea model for the listen command
type listenModel struct {
	*models.SerialModel
	terminal  *components.Terminal
	statusBar *components.StatusBar
	help      help.Model
	keys      keys.TerminalKeys
	ready     bool
}

func newListenModel(sess *session, terminal *components.Terminal) *listenModel {
	m := &listenModel{
		SerialModel: models.NewSerialModel(sess.stream),
		terminal:    terminal,
		statusBar:   components.NewStatusBar(sess.stream.Config().Path),
		help:        help.New(),
		keys:        keys.NewTerminalKeys(),
	}
	m.statusBar.SetConnectionInfo(components.NewConnectionInfo(sess.driver, sess.stream.Config()))
	return m
}

func (m *listenModel) serial() *models.SerialModel {
	return m.SerialModel
}

func (m *listenModel) Init() tea.Cmd {
	return tick()
}

// handleStreamMsg applies the messages both TUIs share and reports whether
// msg was one of them.
func handleStreamMsg(sm *models.SerialModel, terminal *components.Terminal, sb *components.StatusBar, msg tea.Msg) bool {
	switch msg := msg.(type) {
	case components.DataReceivedMsg:
		sm.AddRawData(msg)
		terminal.AddMessage(msg)
	case models.StreamEventMsg:
		sb.SetEvent(msg.Event)
	case models.StreamEndedMsg:
		if msg.Err != nil {
			sb.SetEvent(serialstream.Event{Type: serialstream.EventError, Err: msg.Err})
		} else {
			sb.SetEvent(serialstream.Event{Type: serialstream.EventEnd})
		}
	case models.TxStatusMsg:
		if sm.SetTxStatus(msg.ID, msg.Err) {
			terminal.RefreshDisplayWithRawData(sm.GetRawData())
		}
	default:
		return false
	}
	sb.SetStats(sm.Stream().Stats())
	return true
}

// handleTerminalKey applies the display key bindings
func handleTerminalKey(sm *models.SerialModel, terminal *components.Terminal, k keys.TerminalKeys, msg tea.KeyMsg) bool {
	switch {
	case key.Matches(msg, k.Clear):
		sm.ClearData()
		terminal.Clear()
		return true
	case key.Matches(msg, k.ToggleHex):
		terminal.ToggleHex()
	case key.Matches(msg, k.ToggleASCII):
		terminal.ToggleASCII()
	case key.Matches(msg, k.ToggleTimestamps):
		terminal.ToggleTimestamps()
	case key.Matches(msg, k.ToggleIndicators):
		terminal.ToggleIndicators()
	case key.Matches(msg, k.GotoTop):
		terminal.GotoTop()
		return true
	case key.Matches(msg, k.GotoBottom):
		terminal.GotoBottom()
		return true
	default:
		return false
	}
	terminal.RefreshDisplayWithRawData(sm.GetRawData())
	return true
}

func (m *listenModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if handleStreamMsg(m.SerialModel, m.terminal, m.statusBar, msg) {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// status bar is a single line plus the content border
		m.terminal.SetSize(msg.Width, msg.Height-2)
		m.statusBar.SetWidth(msg.Width)
		m.ready = true
		_, cmd := m.terminal.Update(msg)
		return m, cmd

	case tickMsg:
		m.statusBar.SetStats(m.Stream().Stats())
		return m, tick()

	case tea.MouseMsg:
		_, cmd := m.terminal.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		default:
			handleTerminalKey(m.SerialModel, m.terminal, m.keys, msg)
		}
	}
	return m, nil
}

func helpBox(h help.Model, k help.KeyMap) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colors.Surface2).
		Padding(1, 2).
		Margin(1, 0).
		Render(h.View(k))
}

func (m *listenModel) View() string {
	content := "Initializing..."
	if m.ready {
		content = m.terminal.View()
	}

	mode := "LISTEN"
	if !m.terminal.Following() {
		mode = "SCROLL"
	}
	statusBar := m.statusBar.Render(mode, "", m.State(), time.Now().Format("15:04:05"))

	parts := []string{styles.ContentBorderStyle.Render(content)}
	if m.help.ShowAll {
		parts = append(parts, helpBox(m.help, m.keys))
	}
	parts = append(parts, statusBar)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
