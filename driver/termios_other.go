//go:build !linux

package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/allbin/go-serialstream"
)

// Termios is only implemented on Linux; use Bugst elsewhere.
type Termios struct {
	PollInterval time.Duration
}

var errTermiosUnsupported = fmt.Errorf("%w: termios driver requires linux, use bugst", serialstream.ErrInvalidConfig)

func (d *Termios) Open(context.Context, serialstream.Config) (serialstream.Handle, error) {
	return nil, errTermiosUnsupported
}

func (d *Termios) Read(context.Context, serialstream.Handle, []byte) (int, error) {
	return 0, errTermiosUnsupported
}

func (d *Termios) Write(context.Context, serialstream.Handle, []byte) error {
	return errTermiosUnsupported
}

func (d *Termios) Close(context.Context, serialstream.Handle) error {
	return errTermiosUnsupported
}

func (d *Termios) SetDTR(context.Context, serialstream.Handle, bool) error {
	return errTermiosUnsupported
}

func (d *Termios) SetRTS(context.Context, serialstream.Handle, bool) error {
	return errTermiosUnsupported
}

func (d *Termios) ModemSignals(context.Context, serialstream.Handle) (serialstream.ModemSignals, error) {
	return serialstream.ModemSignals{}, errTermiosUnsupported
}
