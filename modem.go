package serialstream

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// modem returns the open handle and the device's modem control. The device
// call itself runs without the lock.
func (s *Stream) modem() (ModemControl, Handle, error) {
	mc, ok := s.dev.(ModemControl)
	if !ok {
		return nil, nil, ErrNotSupported
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return nil, nil, ErrPortClosed
	}
	return mc, s.handle, nil
}

// SetDTR asserts or clears Data Terminal Ready
func (s *Stream) SetDTR(ctx context.Context, on bool) error {
	mc, h, err := s.modem()
	if err != nil {
		return err
	}
	if err := mc.SetDTR(ctx, h, on); err != nil {
		return fmt.Errorf("failed to set DTR on %s: %w", s.cfg.Path, err)
	}
	s.logger.Debug("DTR set", zap.Bool("on", on))
	return nil
}

// SetRTS asserts or clears Request To Send. With hardware flow control the
// driver may take RTS back over.
func (s *Stream) SetRTS(ctx context.Context, on bool) error {
	mc, h, err := s.modem()
	if err != nil {
		return err
	}
	if err := mc.SetRTS(ctx, h, on); err != nil {
		return fmt.Errorf("failed to set RTS on %s: %w", s.cfg.Path, err)
	}
	s.logger.Debug("RTS set", zap.Bool("on", on))
	return nil
}

// ModemSignals reads the current state of the modem control lines
func (s *Stream) ModemSignals(ctx context.Context) (ModemSignals, error) {
	mc, h, err := s.modem()
	if err != nil {
		return ModemSignals{}, err
	}
	sig, err := mc.ModemSignals(ctx, h)
	if err != nil {
		return ModemSignals{}, fmt.Errorf("failed to read modem signals on %s: %w", s.cfg.Path, err)
	}
	return sig, nil
}
