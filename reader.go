package serialstream

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// ReadChunk returns the next chunk exactly as the device delivered it, or
// io.EOF once the stream has ended and every chunk was consumed. Called
// before the port is open, it waits for the open.
//
// The returned slice aliases the read pool and stays valid: pools are
// replaced, never rewritten.
func (s *Stream) ReadChunk(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pullLocked()
	if err := s.waitLocked(ctx, s.readableLocked); err != nil {
		return nil, err
	}
	if len(s.chunks) == 0 {
		return nil, io.EOF
	}
	chunk := s.chunks[0]
	s.chunks[0] = nil
	s.chunks = s.chunks[1:]
	s.buffered -= len(chunk)
	s.cond.Broadcast()
	return chunk, nil
}

// Read implements io.Reader on top of the chunk queue. A chunk larger than p
// is consumed across several calls.
func (s *Stream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pullLocked()
	if err := s.waitLocked(context.Background(), s.readableLocked); err != nil {
		return 0, err
	}
	if len(s.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.chunks[0])
	if n < len(s.chunks[0]) {
		s.chunks[0] = s.chunks[0][n:]
	} else {
		s.chunks[0] = nil
		s.chunks = s.chunks[1:]
	}
	s.buffered -= n
	s.cond.Broadcast()
	return n, nil
}

// Buffered returns the number of received bytes not yet consumed
func (s *Stream) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffered
}

func (s *Stream) readableLocked() bool {
	return len(s.chunks) > 0 || s.ended
}

// pullLocked records that a consumer wants data. Before the port is open this
// only marks the request; Open starts the scheduler when it succeeds.
func (s *Stream) pullLocked() {
	s.pulled = true
	if s.state == StateOpen && !s.readerRunning && !s.ended {
		s.startReaderLocked()
	}
}

func (s *Stream) startReaderLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	s.readerID++
	s.readerRunning = true
	s.readerCancel = cancel

	sched := &readScheduler{
		s:      s,
		id:     s.readerID,
		handle: s.handle,
		logger: s.logger.With(zap.Uint64("reader", s.readerID)),
	}
	go sched.run(ctx)
}

func (s *Stream) stopReaderLocked() {
	if s.readerCancel != nil {
		s.readerCancel()
		s.readerCancel = nil
	}
	s.readerRunning = false
}

// endLocked marks end of stream. Consumers drain what is queued, then get io.EOF.
func (s *Stream) endLocked() {
	if s.ended {
		return
	}
	s.ended = true
	s.cond.Broadcast()
	s.emit(Event{Type: EventEnd})
}

// readScheduler drives reads for one open session. It keeps exactly one read
// in flight and only issues the next one while the consumer buffer is below
// the high water mark. The pool belongs to this goroutine alone.
type readScheduler struct {
	s      *Stream
	id     uint64
	handle Handle
	pool   *pool
	logger *zap.Logger
}

func (r *readScheduler) run(ctx context.Context) {
	defer r.finish()

	hwm := r.s.cfg.HighWaterMark
	var failures uint64
	for {
		want, ok := r.room(ctx)
		if !ok {
			return
		}

		var fresh bool
		if r.pool, fresh = ensurePool(r.pool, hwm); fresh {
			r.s.stats.poolAllocs.Inc()
		}
		start, length := r.pool.region(want)

		n, err := r.s.dev.Read(ctx, r.handle, r.pool.buf[start:start+length])
		if ctx.Err() != nil {
			// closed while the read was in flight; its bytes are discarded
			return
		}
		if err == nil && (n < 0 || n > length) {
			err = fmt.Errorf("device reported %d bytes for a %d byte read", n, length)
		}
		if err != nil {
			// Read errors are never surfaced: the same request is issued again.
			failures++
			r.s.stats.readRetries.Inc()
			r.logger.Debug("read failed, retrying",
				zap.Uint64("retries", failures),
				zap.Error(err))
			if !r.pause(ctx) {
				return
			}
			continue
		}
		failures = 0

		if n == 0 {
			r.end(ctx)
			return
		}

		r.deliver(ctx, r.pool.advance(start, n))
	}
}

// room waits until the consumer has space and returns how many bytes it
// still accepts.
func (r *readScheduler) room(ctx context.Context) (int, bool) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.waitLocked(ctx, func() bool {
		return s.buffered < s.cfg.HighWaterMark || s.ended
	})
	if err != nil || s.ended {
		return 0, false
	}
	return s.cfg.HighWaterMark - s.buffered, true
}

// deliver queues chunk for the consumer. Close cancels ctx under s.mu, so
// checking it here drops bytes from a session that has already closed.
func (r *readScheduler) deliver(ctx context.Context, chunk []byte) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended || ctx.Err() != nil {
		return
	}
	s.chunks = append(s.chunks, chunk)
	s.buffered += len(chunk)
	s.stats.chunks.Inc()
	s.stats.bytesRead.Add(uint64(len(chunk)))
	s.cond.Broadcast()
}

func (r *readScheduler) end(ctx context.Context) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	s.endLocked()
	r.logger.Debug("end of stream")
}

func (r *readScheduler) pause(ctx context.Context) bool {
	if r.s.readRetryDelay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(r.s.readRetryDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *readScheduler) finish() {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readerID == r.id {
		s.readerRunning = false
		if s.readerCancel != nil {
			s.readerCancel()
			s.readerCancel = nil
		}
	}
}
