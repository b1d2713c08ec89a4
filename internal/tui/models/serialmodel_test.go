package models

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serialstream "github.com/allbin/go-serialstream"
	"github.com/allbin/go-serialstream/internal/tui/components"
)

// scriptDevice returns queued reads in order and ends the stream after them
type scriptDevice struct {
	mu       sync.Mutex
	reads    [][]byte
	writeErr error
}

func (d *scriptDevice) Open(context.Context, serialstream.Config) (serialstream.Handle, error) {
	return 1, nil
}

func (d *scriptDevice) Read(ctx context.Context, _ serialstream.Handle, p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.reads) == 0 {
		return 0, nil
	}
	n := copy(p, d.reads[0])
	d.reads = d.reads[1:]
	return n, nil
}

func (d *scriptDevice) Write(context.Context, serialstream.Handle, []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeErr
}

type collector struct {
	ch chan tea.Msg
}

func (c collector) send(msg tea.Msg) { c.ch <- msg }

func (c collector) next(t *testing.T) tea.Msg {
	t.Helper()
	select {
	case msg := <-c.ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func newModel(t *testing.T, dev serialstream.Device) *SerialModel {
	t.Helper()
	s, err := serialstream.New(dev,
		serialstream.WithPath("/dev/ttyTEST"),
		serialstream.WithBaudRate(9600),
		serialstream.WithAutoOpen(false),
	)
	require.NoError(t, err)
	require.NoError(t, s.Open(context.Background()))
	m := NewSerialModel(s)
	t.Cleanup(func() { _ = m.Cleanup() })
	return m
}

func TestReadPumpDeliversChunksThenEnd(t *testing.T) {
	m := newModel(t, &scriptDevice{reads: [][]byte{[]byte("ab"), []byte("c")}})
	c := collector{ch: make(chan tea.Msg, 16)}
	go m.readChunks(c.send)

	var got []string
	for {
		msg := c.next(t)
		if end, ok := msg.(StreamEndedMsg); ok {
			assert.NoError(t, end.Err)
			break
		}
		data, ok := msg.(components.DataReceivedMsg)
		require.True(t, ok, "unexpected %T", msg)
		assert.False(t, data.IsTX)
		got = append(got, string(data.Data))
	}
	assert.Equal(t, []string{"ab", "c"}, got)
}

func TestTransmitResolvesStatus(t *testing.T) {
	dev := &scriptDevice{}
	m := newModel(t, dev)
	c := collector{ch: make(chan tea.Msg, 16)}
	m.send = c.send

	line := m.Transmit([]byte{1, 2})
	assert.Equal(t, components.TxPending, line.Status)
	require.Len(t, m.GetRawData(), 1)

	status, ok := c.next(t).(TxStatusMsg)
	require.True(t, ok)
	assert.Equal(t, line.ID, status.ID)
	assert.NoError(t, status.Err)
	assert.True(t, m.SetTxStatus(status.ID, status.Err))
	assert.Equal(t, components.TxWritten, m.GetRawData()[0].Status)

	dev.mu.Lock()
	dev.writeErr = errors.New("nak")
	dev.mu.Unlock()
	line = m.Transmit([]byte{3})
	status = c.next(t).(TxStatusMsg)
	assert.Error(t, status.Err)
	assert.True(t, m.SetTxStatus(line.ID, status.Err))
	assert.Equal(t, components.TxError, m.GetRawData()[1].Status)

	assert.False(t, m.SetTxStatus(99, nil))
}

func TestInputModeAndCleanup(t *testing.T) {
	m := newModel(t, &scriptDevice{})
	assert.Equal(t, "NORMAL", m.GetInputMode().String())
	m.SetInputMode(InputModeInsert)
	assert.True(t, m.IsInInsertMode())

	m.AddRawData(components.DataReceivedMsg{Data: []byte{1}})
	m.ClearData()
	assert.Empty(t, m.GetRawData())

	require.NoError(t, m.Cleanup())
	assert.Equal(t, serialstream.StateClosed, m.State())
	// second cleanup sees an already closed stream
	assert.NoError(t, m.Cleanup())
}
