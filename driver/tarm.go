package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/tarm/serial"

	"github.com/allbin/go-serialstream"
)

// Tarm drives a port through github.com/tarm/serial. It only knows baud
// rate, data bits, parity and stop bits; flow control settings are rejected.
// On Linux the library accepts none, odd and even parity only.
type Tarm struct {
	ReadTimeout time.Duration
}

var (
	_ serialstream.Device = (*Tarm)(nil)
	_ serialstream.Closer = (*Tarm)(nil)
)

type tarmPort struct {
	port *serial.Port
	path string
}

func tarmConfig(cfg serialstream.Config, timeout time.Duration) (*serial.Config, error) {
	c := &serial.Config{
		Name:        cfg.Path,
		Baud:        cfg.BaudRate,
		ReadTimeout: timeout,
		Size:        byte(cfg.DataBits),
		StopBits:    serial.Stop1,
	}
	if cfg.StopBits == 2 {
		c.StopBits = serial.Stop2
	}

	switch cfg.Parity {
	case serialstream.ParityNone:
		c.Parity = serial.ParityNone
	case serialstream.ParityOdd:
		c.Parity = serial.ParityOdd
	case serialstream.ParityEven:
		c.Parity = serial.ParityEven
	case serialstream.ParityMark:
		c.Parity = serial.ParityMark
	case serialstream.ParitySpace:
		c.Parity = serial.ParitySpace
	default:
		return nil, fmt.Errorf("%w: parity %v", serialstream.ErrInvalidConfig, cfg.Parity)
	}

	if cfg.RTSCTS || cfg.Xon || cfg.Xoff || cfg.Xany {
		return nil, fmt.Errorf("%w: tarm driver has no flow control", serialstream.ErrInvalidConfig)
	}
	return c, nil
}

func (d *Tarm) Open(ctx context.Context, cfg serialstream.Config) (serialstream.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := tarmConfig(cfg, pollInterval(d.ReadTimeout))
	if err != nil {
		return nil, err
	}
	port, err := serial.OpenPort(c)
	if err != nil {
		return nil, mapTarmError(err)
	}
	return &tarmPort{port: port, path: cfg.Path}, nil
}

// Read treats the library's io.EOF as a read timeout, not end of stream
func (d *Tarm) Read(ctx context.Context, h serialstream.Handle, p []byte) (int, error) {
	tp, err := asTarm(h)
	if err != nil {
		return 0, err
	}
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := tp.port.Read(p)
		if n > 0 {
			return n, nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("read %s: %w", tp.path, err)
		}
	}
}

func (d *Tarm) Write(ctx context.Context, h serialstream.Handle, p []byte) error {
	tp, err := asTarm(h)
	if err != nil {
		return err
	}
	for len(p) > 0 {
		if err := ctx.Err(); err != nil {
			return canceled(err)
		}
		n, err := tp.port.Write(p)
		if err != nil {
			return fmt.Errorf("write %s: %w", tp.path, err)
		}
		p = p[n:]
	}
	return nil
}

func (d *Tarm) Close(_ context.Context, h serialstream.Handle) error {
	tp, err := asTarm(h)
	if err != nil {
		return err
	}
	if err := tp.port.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tp.path, err)
	}
	return nil
}

func asTarm(h serialstream.Handle) (*tarmPort, error) {
	tp, ok := h.(*tarmPort)
	if !ok || tp == nil {
		return nil, fmt.Errorf("%w: not a tarm handle", serialstream.ErrPortClosed)
	}
	return tp, nil
}

func mapTarmError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", serialstream.ErrDeviceNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", serialstream.ErrPermissionDenied, err)
	case errors.Is(err, serial.ErrBadParity), errors.Is(err, serial.ErrBadSize), errors.Is(err, serial.ErrBadStopBits):
		return fmt.Errorf("%w: %v", serialstream.ErrInvalidConfig, err)
	}
	return err
}
