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

	"github.com/allbin/go-serialstream/internal/tui/components"
	"github.com/allbin/go-serialstream/internal/tui/keys"
	"github.com/allbin/go-serialstream/internal/tui/models"
	"github.com/allbin/go-serialstream/internal/tui/styles"
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect <port>",
	Short: "Connect to a serial port with bidirectional communication",
	Long: `Connect to a serial port with an interactive bidirectional terminal.

Received chunks scroll in the upper pane. Press 'i' to type a message and
Enter to queue it; every sent line shows whether the device accepted it.
Tab switches between ASCII and hex input.

Example usage:
  serialstream connect /dev/ttyUSB0
  serialstream connect /dev/ttyUSB0 --baud 9600 --parity even
  serialstream connect /dev/ttyUSB0 --hex`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hexMode, _ := cmd.Flags().GetBool("hex")

		sess, err := newSession(args[0], true)
		if err != nil {
			return err
		}
		defer sess.close()

		m := newConnectModel(sess)
		if hexMode {
			m.input.SetSendingMode(components.SendingModeHex)
		}
		return runTUI(m)
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().Bool("hex", false, "Start with hex input")
}

// connectModel represents the Bubble Tea model for the connect command
type connectModel struct {
	*models.SerialModel
	terminal  *components.Terminal
	statusBar *components.StatusBar
	input     *components.Input
	help      help.Model
	keys      keys.ConnectKeys
	inputErr  error
	ready     bool
}

func newConnectModel(sess *session) *connectModel {
	m := &connectModel{
		SerialModel: models.NewSerialModel(sess.stream),
		terminal:    components.NewTerminal(80, 20),
		statusBar:   components.NewStatusBar(sess.stream.Config().Path),
		input:       components.NewInput(),
		help:        help.New(),
		keys:        keys.NewConnectKeys(),
	}
	m.input.Blur()
	m.statusBar.SetConnectionInfo(components.NewConnectionInfo(sess.driver, sess.stream.Config()))
	return m
}

func (m *connectModel) serial() *models.SerialModel {
	return m.SerialModel
}

func (m *connectModel) Init() tea.Cmd {
	return tick()
}

// transmit queues the current input and shows it as a pending TX line
func (m *connectModel) transmit() {
	payload, err := m.input.Payload()
	if err != nil {
		m.inputErr = err
		return
	}
	m.inputErr = nil

	line := m.Transmit(payload)
	m.terminal.AddMessage(line)
	m.input.AddToHistory(m.input.Value())
	m.input.SetValue("")
}

func (m *connectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if handleStreamMsg(m.SerialModel, m.terminal, m.statusBar, msg) {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// input box (3) + status bar (1) + content border (1)
		m.terminal.SetSize(msg.Width, msg.Height-5)
		m.statusBar.SetWidth(msg.Width)
		m.input.SetWidth(msg.Width)
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
		if m.IsInInsertMode() {
			return m, m.updateInsert(msg)
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.InsertMode):
			m.SetInputMode(models.InputModeInsert)
			m.input.Focus()
		default:
			handleTerminalKey(m.SerialModel, m.terminal, m.keys.TerminalKeys, msg)
		}
	}
	return m, nil
}

func (m *connectModel) updateInsert(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.SetInputMode(models.InputModeNormal)
		m.input.Blur()
		m.inputErr = nil
	case msg.Type == tea.KeyCtrlC:
		return tea.Quit
	case key.Matches(msg, m.keys.Queue):
		m.transmit()
	case key.Matches(msg, m.keys.InputFormat):
		m.input.ToggleSendingMode()
	case key.Matches(msg, m.keys.HistoryPrev):
		m.input.NavigateHistoryUp()
	case key.Matches(msg, m.keys.HistoryNext):
		m.input.NavigateHistoryDown()
	default:
		_, cmd := m.input.Update(msg)
		return cmd
	}
	return nil
}

func (m *connectModel) View() string {
	content := "Initializing..."
	if m.ready {
		content = m.terminal.View()
	}

	inputView := m.input.View(m.IsInInsertMode())
	if m.inputErr != nil {
		inputView = lipgloss.JoinVertical(lipgloss.Left,
			styles.ErrorStyle.Render(m.inputErr.Error()), inputView)
	}

	statusBar := m.statusBar.Render(
		m.GetInputMode().String(),
		m.input.GetSendingMode().String(),
		m.State(),
		time.Now().Format("15:04:05"),
	)

	parts := []string{styles.ContentBorderStyle.Render(content), inputView}
	if m.help.ShowAll {
		parts = append(parts, helpBox(m.help, m.keys))
	}
	parts = append(parts, statusBar)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
