package serialstream

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// pendingWrite is one queued write and the channel its result goes to
type pendingWrite struct {
	ctx  context.Context
	data []byte
	done chan error
}

// Write implements io.Writer. It blocks until the device acknowledged p; a
// write submitted before the port is open waits for the open.
func (s *Stream) Write(p []byte) (int, error) {
	if err := s.WriteContext(context.Background(), p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteContext queues p behind earlier writes and waits for its result. When
// ctx ends first, a write that has not reached the device is withdrawn; one
// already in flight still completes at the device.
func (s *Stream) WriteContext(ctx context.Context, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	w, _ := s.submit(ctx, p)
	select {
	case err := <-w.done:
		return err
	case <-ctx.Done():
		s.withdraw(w)
		return ctx.Err()
	}
}

// WriteValues writes a list of byte values, each converted as byte(v).
func (s *Stream) WriteValues(ctx context.Context, values []int) error {
	p := make([]byte, len(values))
	for i, v := range values {
		p[i] = byte(v)
	}
	return s.WriteContext(ctx, p)
}

// WriteAsync queues a copy of p and returns a channel that receives the
// write's result. The bool is false once queued bytes reach the high water
// mark; callers should wait for earlier results before writing more.
func (s *Stream) WriteAsync(p []byte) (<-chan error, bool) {
	data := make([]byte, len(p))
	copy(data, p)
	w, ok := s.submit(context.Background(), data)
	return w.done, ok
}

func (s *Stream) submit(ctx context.Context, p []byte) (*pendingWrite, bool) {
	w := &pendingWrite{
		ctx:  ctx,
		data: p,
		done: make(chan error, 1),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, w)
	s.writeBuffered += len(p)
	if !s.writing {
		s.writing = true
		go s.writeLoop()
	}
	s.cond.Broadcast()
	return w, s.writeBuffered < s.cfg.HighWaterMark
}

// withdraw drops w from the queue if it has not been handed to the device.
func (s *Stream) withdraw(w *pendingWrite) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, q := range s.writes {
		if q == w {
			s.writes = append(s.writes[:i], s.writes[i+1:]...)
			s.writeBuffered -= len(w.data)
			s.cond.Broadcast()
			return
		}
	}
}

func (s *Stream) failQueuedWritesLocked(err error) {
	for _, w := range s.writes {
		s.writeBuffered -= len(w.data)
		w.done <- err
	}
	s.writes = nil
	s.cond.Broadcast()
}

// writeLoop hands queued writes to the device one at a time, in submission
// order, while the port is open. It exits when the queue is empty.
func (s *Stream) writeLoop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		for len(s.writes) > 0 && s.state != StateOpen {
			s.cond.Wait()
		}
		if len(s.writes) == 0 {
			s.writing = false
			return
		}

		w := s.writes[0]
		s.writes[0] = nil
		s.writes = s.writes[1:]
		h := s.handle

		s.mu.Unlock()
		err := s.issue(w, h)
		s.mu.Lock()

		s.writeBuffered -= len(w.data)
		w.done <- err
	}
}

func (s *Stream) issue(w *pendingWrite, h Handle) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}
	s.stats.writes.Inc()
	if err := s.dev.Write(w.ctx, h, w.data); err != nil {
		s.stats.writeErrors.Inc()
		if errors.Is(err, ErrCanceled) {
			// TODO: decide whether a canceled write should close the port;
			// for now the stream stays up and only the caller sees the error.
			s.stats.canceledWrites.Inc()
			s.logger.Debug("write canceled", zap.Int("bytes", len(w.data)), zap.Error(err))
		} else {
			s.logger.Warn("write failed", zap.Int("bytes", len(w.data)), zap.Error(err))
		}
		return fmt.Errorf("failed to write %d bytes: %w", len(w.data), err)
	}
	s.stats.bytesWritten.Add(uint64(len(w.data)))
	return nil
}
