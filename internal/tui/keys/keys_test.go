package keys

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestConnectKeysMatch(t *testing.T) {
	k := NewConnectKeys()

	tests := []struct {
		name    string
		msg     tea.KeyMsg
		binding key.Binding
	}{
		{name: "enter queues", msg: tea.KeyMsg{Type: tea.KeyEnter}, binding: k.Queue},
		{name: "tab switches input format", msg: tea.KeyMsg{Type: tea.KeyTab}, binding: k.InputFormat},
		{name: "up recalls older", msg: tea.KeyMsg{Type: tea.KeyUp}, binding: k.HistoryPrev},
		{name: "ctrl+p recalls older", msg: tea.KeyMsg{Type: tea.KeyCtrlP}, binding: k.HistoryPrev},
		{name: "down recalls newer", msg: tea.KeyMsg{Type: tea.KeyDown}, binding: k.HistoryNext},
		{name: "ctrl+n recalls newer", msg: tea.KeyMsg{Type: tea.KeyCtrlN}, binding: k.HistoryNext},
		{name: "h toggles hex", msg: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("h")}, binding: k.ToggleHex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, key.Matches(tt.msg, tt.binding))
		})
	}
}

func TestConnectKeysHelp(t *testing.T) {
	k := NewConnectKeys()

	assert.Contains(t, k.Queue.Help().Desc, "pending")
	assert.Contains(t, k.Queue.Help().Desc, "written")
	assert.Contains(t, k.ShortHelp(), k.Queue)

	var all []key.Binding
	for _, col := range k.FullHelp() {
		all = append(all, col...)
	}
	for _, b := range []key.Binding{k.Queue, k.InputFormat, k.HistoryPrev, k.HistoryNext, k.GotoTop, k.GotoBottom, k.Quit} {
		assert.Contains(t, all, b, b.Help().Key)
	}
	assert.Equal(t, []key.Binding{k.Queue, k.InputFormat, k.HistoryPrev, k.HistoryNext}, k.FullHelp()[0])
}
