package models

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	serialstream "github.com/allbin/go-serialstream"
	"github.com/allbin/go-serialstream/internal/tui/components"
)

const closeTimeout = 2 * time.Second

// InputMode represents the current input mode (vim-like)
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeInsert
)

func (m InputMode) String() string {
	switch m {
	case InputModeInsert:
		return "INSERT"
	default:
		return "NORMAL"
	}
}

// StreamEventMsg carries a stream lifecycle event into the program
type StreamEventMsg struct {
	Event serialstream.Event
}

// StreamEndedMsg is sent once the read loop stops. Err is nil at end of
// stream.
type StreamEndedMsg struct {
	Err error
}

// TxStatusMsg reports the outcome of a queued write
type TxStatusMsg struct {
	ID  int
	Err error
}

// SerialModel is the state shared by the stream-backed TUI commands. The
// read and event pumps run on their own goroutines and talk to the program
// only through send; everything else is called from Update.
type SerialModel struct {
	stream *serialstream.Stream

	rawData []components.DataReceivedMsg
	nextID  int

	inputMode InputMode

	// send delivers messages to the running program
	send func(tea.Msg)

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex
}

func NewSerialModel(stream *serialstream.Stream) *SerialModel {
	ctx, cancel := context.WithCancel(context.Background())
	return &SerialModel{
		stream:    stream,
		inputMode: InputModeNormal,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (m *SerialModel) Stream() *serialstream.Stream {
	return m.stream
}

func (m *SerialModel) PortPath() string {
	return m.stream.Config().Path
}

func (m *SerialModel) State() serialstream.State {
	return m.stream.State()
}

// Start launches the read and event pumps. send is normally the program's
// Send method.
func (m *SerialModel) Start(send func(tea.Msg)) {
	m.send = send
	go m.readChunks(send)
	go m.forwardEvents(send)
}

func (m *SerialModel) readChunks(send func(tea.Msg)) {
	for {
		chunk, err := m.stream.ReadChunk(m.ctx)
		if err != nil {
			if m.ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				err = nil
			}
			send(StreamEndedMsg{Err: err})
			return
		}
		send(components.DataReceivedMsg{
			Timestamp: time.Now(),
			Data:      chunk,
		})
	}
}

func (m *SerialModel) forwardEvents(send func(tea.Msg)) {
	for {
		select {
		case <-m.ctx.Done():
			return
		case ev := <-m.stream.Events():
			send(StreamEventMsg{Event: ev})
		}
	}
}

// Transmit queues data and records it as a pending TX line. The result
// arrives later as a TxStatusMsg with the returned line's ID.
func (m *SerialModel) Transmit(data []byte) components.DataReceivedMsg {
	m.nextID++
	msg := components.DataReceivedMsg{
		ID:        m.nextID,
		Timestamp: time.Now(),
		Data:      data,
		IsTX:      true,
		Status:    components.TxPending,
	}
	m.rawData = append(m.rawData, msg)

	done, _ := m.stream.WriteAsync(data)
	send := m.send
	go func(id int) {
		select {
		case err := <-done:
			if send != nil {
				send(TxStatusMsg{ID: id, Err: err})
			}
		case <-m.ctx.Done():
		}
	}(msg.ID)
	return msg
}

// SetTxStatus resolves a pending TX line and reports whether it was found
func (m *SerialModel) SetTxStatus(id int, err error) bool {
	for i := len(m.rawData) - 1; i >= 0; i-- {
		if m.rawData[i].IsTX && m.rawData[i].ID == id {
			if err != nil {
				m.rawData[i].Status = components.TxError
			} else {
				m.rawData[i].Status = components.TxWritten
			}
			return true
		}
	}
	return false
}

func (m *SerialModel) GetRawData() []components.DataReceivedMsg {
	return m.rawData
}

func (m *SerialModel) AddRawData(msg components.DataReceivedMsg) {
	m.rawData = append(m.rawData, msg)
}

func (m *SerialModel) ClearData() {
	m.rawData = nil
}

func (m *SerialModel) GetInputMode() InputMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inputMode
}

func (m *SerialModel) SetInputMode(mode InputMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputMode = mode
}

func (m *SerialModel) IsInInsertMode() bool {
	return m.GetInputMode() == InputModeInsert
}

// Cleanup stops the pumps and closes the stream
func (m *SerialModel) Cleanup() error {
	m.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	err := m.stream.Close(ctx)
	if errors.Is(err, serialstream.ErrPortClosed) {
		return nil
	}
	return err
}
