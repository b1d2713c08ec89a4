package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"go.bug.st/serial"

	"github.com/allbin/go-serialstream"
)

// Bugst is a portable driver backed by go.bug.st/serial.
//
// Software flow control is not available through this backend and is
// rejected at open. RTSCTS only asserts RTS at open.
type Bugst struct {
	// ReadTimeout bounds one blocking read before ctx is re-checked.
	// Zero means DefaultPollInterval.
	ReadTimeout time.Duration
}

var (
	_ serialstream.Device = (*Bugst)(nil)
	_ serialstream.Closer       = (*Bugst)(nil)
	_ serialstream.ModemControl = (*Bugst)(nil)
)

type bugstPort struct {
	port serial.Port
	path string
}

func bugstMode(cfg serialstream.Config) (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		StopBits: serial.OneStopBit,
	}
	if cfg.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}

	switch cfg.Parity {
	case serialstream.ParityNone:
		mode.Parity = serial.NoParity
	case serialstream.ParityOdd:
		mode.Parity = serial.OddParity
	case serialstream.ParityEven:
		mode.Parity = serial.EvenParity
	case serialstream.ParityMark:
		mode.Parity = serial.MarkParity
	case serialstream.ParitySpace:
		mode.Parity = serial.SpaceParity
	default:
		return nil, fmt.Errorf("%w: parity %v", serialstream.ErrInvalidConfig, cfg.Parity)
	}

	if cfg.Xon || cfg.Xoff || cfg.Xany {
		return nil, fmt.Errorf("%w: bugst driver has no software flow control", serialstream.ErrInvalidConfig)
	}
	if cfg.RTSCTS {
		mode.InitialStatusBits = &serial.ModemOutputBits{RTS: true, DTR: true}
	}
	return mode, nil
}

// Open opens cfg.Path with the mode derived from cfg
func (d *Bugst) Open(ctx context.Context, cfg serialstream.Config) (serialstream.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mode, err := bugstMode(cfg)
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(cfg.Path, mode)
	if err != nil {
		return nil, mapBugstError(err)
	}
	if err := port.SetReadTimeout(pollInterval(d.ReadTimeout)); err != nil {
		port.Close()
		return nil, mapBugstError(err)
	}
	return &bugstPort{port: port, path: cfg.Path}, nil
}

// Read loops over read timeouts until data arrives or ctx ends
func (d *Bugst) Read(ctx context.Context, h serialstream.Handle, p []byte) (int, error) {
	bp, err := asBugst(h)
	if err != nil {
		return 0, err
	}
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := bp.port.Read(p)
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", bp.path, mapBugstError(err))
		}
		if n > 0 {
			return n, nil
		}
	}
}

// Write writes all of p
func (d *Bugst) Write(ctx context.Context, h serialstream.Handle, p []byte) error {
	bp, err := asBugst(h)
	if err != nil {
		return err
	}
	for len(p) > 0 {
		if err := ctx.Err(); err != nil {
			return canceled(err)
		}
		n, err := bp.port.Write(p)
		if err != nil {
			return fmt.Errorf("write %s: %w", bp.path, mapBugstError(err))
		}
		p = p[n:]
	}
	return nil
}

func (d *Bugst) Close(_ context.Context, h serialstream.Handle) error {
	bp, err := asBugst(h)
	if err != nil {
		return err
	}
	if err := bp.port.Close(); err != nil {
		return fmt.Errorf("close %s: %w", bp.path, mapBugstError(err))
	}
	return nil
}

func (d *Bugst) SetDTR(_ context.Context, h serialstream.Handle, on bool) error {
	bp, err := asBugst(h)
	if err != nil {
		return err
	}
	return mapBugstError(bp.port.SetDTR(on))
}

func (d *Bugst) SetRTS(_ context.Context, h serialstream.Handle, on bool) error {
	bp, err := asBugst(h)
	if err != nil {
		return err
	}
	return mapBugstError(bp.port.SetRTS(on))
}

// ModemSignals reports the input lines only; this backend cannot read DTR
// and RTS back.
func (d *Bugst) ModemSignals(_ context.Context, h serialstream.Handle) (serialstream.ModemSignals, error) {
	bp, err := asBugst(h)
	if err != nil {
		return serialstream.ModemSignals{}, err
	}
	bits, err := bp.port.GetModemStatusBits()
	if err != nil {
		return serialstream.ModemSignals{}, mapBugstError(err)
	}
	return serialstream.ModemSignals{
		CTS: bits.CTS,
		DSR: bits.DSR,
		RI:  bits.RI,
		DCD: bits.DCD,
	}, nil
}

func asBugst(h serialstream.Handle) (*bugstPort, error) {
	bp, ok := h.(*bugstPort)
	if !ok || bp == nil {
		return nil, fmt.Errorf("%w: not a bugst handle", serialstream.ErrPortClosed)
	}
	return bp, nil
}

func mapBugstError(err error) error {
	var pe *serial.PortError
	if errors.As(err, &pe) {
		switch pe.Code() {
		case serial.PortBusy:
			return fmt.Errorf("%w: %v", serialstream.ErrDeviceInUse, err)
		case serial.PortNotFound:
			return fmt.Errorf("%w: %v", serialstream.ErrDeviceNotFound, err)
		case serial.PermissionDenied:
			return fmt.Errorf("%w: %v", serialstream.ErrPermissionDenied, err)
		case serial.PortClosed:
			return fmt.Errorf("%w: %v", serialstream.ErrPortClosed, err)
		case serial.InvalidSpeed:
			return fmt.Errorf("%w: %v", serialstream.ErrInvalidBaudRate, err)
		case serial.InvalidDataBits, serial.InvalidParity, serial.InvalidStopBits:
			return fmt.Errorf("%w: %v", serialstream.ErrInvalidConfig, err)
		}
		return err
	}
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", serialstream.ErrDeviceNotFound, err)
	}
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %v", serialstream.ErrPermissionDenied, err)
	}
	return err
}
