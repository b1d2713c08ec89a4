package serialstream

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ChunkReader is the producing side of a stream: data arrives as chunks in
// the order the device delivered it, followed by io.EOF at end of stream.
type ChunkReader interface {
	ReadChunk(ctx context.Context) ([]byte, error)
}

// ChunkWriter is the consuming side of a stream: each call returns once the
// device acknowledged the bytes or failed them.
type ChunkWriter interface {
	WriteContext(ctx context.Context, p []byte) error
}

// Ensure Stream implements the stream interfaces at compile time
var (
	_ ChunkReader = (*Stream)(nil)
	_ ChunkWriter = (*Stream)(nil)
	_ io.Reader   = (*Stream)(nil)
	_ io.Writer   = (*Stream)(nil)
)

// EventType identifies a stream notification
type EventType int

const (
	EventOpen EventType = iota
	EventError
	EventClose
	EventEnd
)

func (t EventType) String() string {
	switch t {
	case EventOpen:
		return "open"
	case EventError:
		return "error"
	case EventClose:
		return "close"
	case EventEnd:
		return "end"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is a lifecycle notification. Err is set for EventError.
type Event struct {
	Type EventType
	Err  error
}

// Stream is a duplex byte stream over a Device.
type Stream struct {
	cfg            Config
	dev            Device
	logger         *zap.Logger
	openCallback   func(error)
	readRetryDelay time.Duration

	mu     sync.Mutex
	cond   *sync.Cond // broadcast on every change to the fields below
	state  State
	handle Handle

	// readable side
	chunks        [][]byte
	buffered      int
	ended         bool
	pulled        bool
	readerID      uint64
	readerRunning bool
	readerCancel  context.CancelFunc

	// writable side
	writes        []*pendingWrite
	writeBuffered int
	writing       bool

	events chan Event
	stats  counters
}

// New validates the configuration and returns a stream over dev. With
// AutoOpen (the default) the device is opened in the background; the outcome
// goes to the WithOpenCallback function, or to an EventError when none was
// given and the open failed.
func New(dev Device, opts ...Option) (*Stream, error) {
	if dev == nil {
		return nil, ErrNoDevice
	}
	st, err := resolve(opts)
	if err != nil {
		return nil, err
	}

	s := &Stream{
		cfg:            st.config,
		dev:            dev,
		logger:         st.logger.With(zap.String("path", st.config.Path)),
		openCallback:   st.openCallback,
		readRetryDelay: st.readRetryDelay,
		state:          StateClosed,
		events:         make(chan Event, st.eventBuffer),
	}
	s.cond = sync.NewCond(&s.mu)

	if s.cfg.AutoOpen {
		go s.autoOpen()
	}
	return s, nil
}

func (s *Stream) autoOpen() {
	err := s.Open(context.Background())
	if s.openCallback != nil {
		s.openCallback(err)
		return
	}
	if err != nil {
		s.emit(Event{Type: EventError, Err: err})
	}
}

// Config returns the resolved configuration
func (s *Stream) Config() Config {
	return s.cfg
}

// State returns the current connection state
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns a snapshot of the stream counters
func (s *Stream) Stats() Stats {
	return s.stats.snapshot()
}

// Events returns the notification channel. Events are dropped, not queued,
// when nobody keeps up with the channel.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Open acquires the device. It fails without touching the device when the
// stream is already open or opening.
func (s *Stream) Open(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateOpen:
		s.mu.Unlock()
		return ErrAlreadyOpen
	case StateOpening:
		s.mu.Unlock()
		return ErrOpening
	case StateClosing:
		s.mu.Unlock()
		return fmt.Errorf("%w: close in progress", ErrPortClosed)
	}
	s.setStateLocked(StateOpening)
	s.mu.Unlock()

	h, err := s.dev.Open(ctx, s.cfg)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		// the device was never acquired
		s.setStateLocked(StateClosed)
		s.logger.Warn("open failed", zap.Error(err))
		return fmt.Errorf("failed to open %s: %w", s.cfg.Path, err)
	}

	s.handle = h
	s.setStateLocked(StateOpen)
	s.logger.Info("port opened", zap.Int("baud_rate", s.cfg.BaudRate))
	s.emit(Event{Type: EventOpen})
	if s.pulled {
		s.startReaderLocked()
	}
	return nil
}

// Close stops reading, fails writes that have not reached the device yet with
// ErrPortClosed and releases the handle. A write already in flight runs to
// completion. The stream can be opened again afterwards.
func (s *Stream) Close(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateOpen:
	case StateOpening:
		s.mu.Unlock()
		return ErrOpening
	default:
		s.mu.Unlock()
		return ErrPortClosed
	}
	s.setStateLocked(StateClosing)
	h := s.handle
	s.handle = nil
	s.stopReaderLocked()
	s.failQueuedWritesLocked(ErrPortClosed)
	if s.cfg.EndOnClose {
		s.endLocked()
	}
	s.mu.Unlock()

	var err error
	if c, ok := s.dev.(Closer); ok {
		err = c.Close(ctx, h)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.setStateLocked(StateErrored)
		s.logger.Error("close failed", zap.Error(err))
		return fmt.Errorf("failed to close %s: %w", s.cfg.Path, err)
	}
	s.setStateLocked(StateClosed)
	s.logger.Info("port closed")
	s.emit(Event{Type: EventClose})
	return nil
}

func (s *Stream) setStateLocked(to State) {
	from := s.state
	if !canTransition(from, to) {
		s.logger.DPanic("invalid state transition",
			zap.Stringer("from", from),
			zap.Stringer("to", to))
	}
	s.state = to
	s.logger.Debug("state changed",
		zap.Stringer("from", from),
		zap.Stringer("to", to))
	s.cond.Broadcast()
}

func (s *Stream) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.stats.droppedEvents.Inc()
		s.logger.Warn("event dropped, nobody is receiving",
			zap.Stringer("event", ev.Type),
			zap.Error(ev.Err))
	}
}

// waitLocked blocks until ready reports true or ctx is done. s.mu must be
// held; it is released while waiting.
func (s *Stream) waitLocked(ctx context.Context, ready func() bool) error {
	if ready() {
		return nil
	}
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer stop()
	for !ready() {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.cond.Wait()
	}
	return nil
}
