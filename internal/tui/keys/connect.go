package keys

import "github.com/charmbracelet/bubbles/key"

// ConnectKeys extend the terminal keys with the TX input line. A queued
// message is shown as PENDING until its write resolves to WRITTEN or ERROR.
type ConnectKeys struct {
	TerminalKeys
	Queue       key.Binding
	InputFormat key.Binding
	HistoryPrev key.Binding
	HistoryNext key.Binding
}

func NewConnectKeys() ConnectKeys {
	return ConnectKeys{
		TerminalKeys: NewTerminalKeys(),
		Queue: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "queue TX (pending → written)"),
		),
		InputFormat: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "ascii/hex input"),
		),
		HistoryPrev: key.NewBinding(
			key.WithKeys("up", "ctrl+p"),
			key.WithHelp("↑", "older TX"),
		),
		HistoryNext: key.NewBinding(
			key.WithKeys("down", "ctrl+n"),
			key.WithHelp("↓", "newer TX"),
		),
	}
}

func (k ConnectKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.InsertMode, k.Queue, k.Quit}
}

// FullHelp groups the input line keys apart from the display toggles
func (k ConnectKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Queue, k.InputFormat, k.HistoryPrev, k.HistoryNext},
		{k.ToggleHex, k.ToggleASCII, k.ToggleTimestamps, k.ToggleIndicators},
		{k.InsertMode, k.Escape, k.Clear, k.GotoTop, k.GotoBottom},
		{k.Help, k.Quit},
	}
}
