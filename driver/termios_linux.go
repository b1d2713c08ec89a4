//go:build linux

package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/allbin/go-serialstream"
)

// Termios drives a tty directly through termios ioctls.
type Termios struct {
	// PollInterval is the VTIME read timeout, rounded to deciseconds.
	// Zero means DefaultPollInterval.
	PollInterval time.Duration
}

var (
	_ serialstream.Device = (*Termios)(nil)
	_ serialstream.Closer       = (*Termios)(nil)
	_ serialstream.ModemControl = (*Termios)(nil)
)

// termiosPort is the handle returned by Termios.Open
type termiosPort struct {
	mu     sync.RWMutex
	fd     int
	path   string
	closed bool
}

// getBaudRate converts an integer baud rate to the unix constant
func getBaudRate(rate int) (uint32, error) {
	switch rate {
	case 50:
		return unix.B50, nil
	case 75:
		return unix.B75, nil
	case 110:
		return unix.B110, nil
	case 134:
		return unix.B134, nil
	case 150:
		return unix.B150, nil
	case 200:
		return unix.B200, nil
	case 300:
		return unix.B300, nil
	case 600:
		return unix.B600, nil
	case 1200:
		return unix.B1200, nil
	case 1800:
		return unix.B1800, nil
	case 2400:
		return unix.B2400, nil
	case 4800:
		return unix.B4800, nil
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	case 460800:
		return unix.B460800, nil
	case 500000:
		return unix.B500000, nil
	case 576000:
		return unix.B576000, nil
	case 921600:
		return unix.B921600, nil
	case 1000000:
		return unix.B1000000, nil
	case 1152000:
		return unix.B1152000, nil
	case 1500000:
		return unix.B1500000, nil
	case 2000000:
		return unix.B2000000, nil
	case 2500000:
		return unix.B2500000, nil
	case 3000000:
		return unix.B3000000, nil
	case 3500000:
		return unix.B3500000, nil
	case 4000000:
		return unix.B4000000, nil
	default:
		return 0, fmt.Errorf("%w: %d is not a standard rate", serialstream.ErrInvalidBaudRate, rate)
	}
}

// Open opens and configures cfg.Path. The descriptor is opened non-blocking
// so a missing carrier cannot stall the open, then switched back to blocking
// reads bounded by VTIME.
func (d *Termios) Open(ctx context.Context, cfg serialstream.Config) (serialstream.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fd, err := unix.Open(cfg.Path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, mapErrno(err)
	}

	if cfg.Lock {
		if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
			unix.Close(fd)
			return nil, mapErrno(err)
		}
	}

	if err := configurePort(fd, cfg, pollInterval(d.PollInterval)); err != nil {
		unix.Close(fd)
		return nil, err
	}

	if err := unix.SetNonblock(fd, false); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to clear O_NONBLOCK: %w", err)
	}

	return &termiosPort{fd: fd, path: cfg.Path}, nil
}

// configurePort puts the tty in raw mode and applies cfg
func configurePort(fd int, cfg serialstream.Config, poll time.Duration) error {
	current, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("failed to get termios: %w", err)
	}

	termios, err := rawTermios(*current, cfg, poll)
	if err != nil {
		return err
	}
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("failed to set termios: %w", err)
	}

	// Assert RTS so the peer may start sending. Not every tty supports it.
	if cfg.RTSCTS {
		_ = unix.IoctlSetPointerInt(fd, unix.TIOCMBIS, unix.TIOCM_RTS)
	}
	return nil
}

// rawTermios derives the raw-mode settings for cfg from the tty's current
// ones. Only the control characters of base survive.
func rawTermios(base unix.Termios, cfg serialstream.Config, poll time.Duration) (*unix.Termios, error) {
	baudRate, err := getBaudRate(cfg.BaudRate)
	if err != nil {
		return nil, err
	}

	termios := base
	termios.Cflag = unix.CREAD | unix.CLOCAL | baudRate
	termios.Iflag = 0
	termios.Oflag = 0
	termios.Lflag = 0
	termios.Ispeed = baudRate
	termios.Ospeed = baudRate

	switch cfg.DataBits {
	case 5:
		termios.Cflag |= unix.CS5
	case 6:
		termios.Cflag |= unix.CS6
	case 7:
		termios.Cflag |= unix.CS7
	default:
		termios.Cflag |= unix.CS8
	}

	if cfg.StopBits == 2 {
		termios.Cflag |= unix.CSTOPB
	}

	switch cfg.Parity {
	case serialstream.ParityOdd:
		termios.Cflag |= unix.PARENB | unix.PARODD
	case serialstream.ParityEven:
		termios.Cflag |= unix.PARENB
	case serialstream.ParityMark:
		termios.Cflag |= unix.PARENB | unix.CMSPAR | unix.PARODD
	case serialstream.ParitySpace:
		termios.Cflag |= unix.PARENB | unix.CMSPAR
	}
	if cfg.Parity != serialstream.ParityNone {
		termios.Iflag |= unix.INPCK
	}

	if cfg.RTSCTS {
		termios.Cflag |= unix.CRTSCTS
	}
	if cfg.HUPCL {
		termios.Cflag |= unix.HUPCL
	}
	if cfg.Xon {
		termios.Iflag |= unix.IXON
	}
	if cfg.Xoff {
		termios.Iflag |= unix.IXOFF
	}
	if cfg.Xany {
		termios.Iflag |= unix.IXANY
	}

	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = vtime(poll)
	return &termios, nil
}

// vtime converts d to VTIME deciseconds, clamped to 1..255
func vtime(d time.Duration) uint8 {
	ds := d / (100 * time.Millisecond)
	switch {
	case ds < 1:
		return 1
	case ds > 255:
		return 255
	default:
		return uint8(ds)
	}
}

// Read blocks until at least one byte arrives or ctx ends. VTIME expiries are
// absorbed here: a real serial line never reports end of stream.
func (d *Termios) Read(ctx context.Context, h serialstream.Handle, p []byte) (int, error) {
	port, err := asTermios(h)
	if err != nil {
		return 0, err
	}
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := port.read(p)
		switch {
		case errors.Is(err, unix.EINTR), errors.Is(err, unix.EAGAIN):
			continue
		case err != nil:
			return 0, fmt.Errorf("read %s: %w", port.path, err)
		case n > 0:
			return n, nil
		}
	}
}

func (p *termiosPort) read(buf []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return 0, serialstream.ErrPortClosed
	}
	return unix.Read(p.fd, buf)
}

// Write writes all of p. Between partial writes ctx is checked; an abandoned
// write wraps serialstream.ErrCanceled.
func (d *Termios) Write(ctx context.Context, h serialstream.Handle, p []byte) error {
	port, err := asTermios(h)
	if err != nil {
		return err
	}
	for len(p) > 0 {
		if err := ctx.Err(); err != nil {
			return canceled(err)
		}
		n, err := port.write(p)
		if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
			continue
		}
		if err != nil {
			return fmt.Errorf("write %s: %w", port.path, err)
		}
		p = p[n:]
	}
	return nil
}

func (p *termiosPort) write(data []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return 0, serialstream.ErrPortClosed
	}
	return unix.Write(p.fd, data)
}

// Close releases the descriptor and with it the flock. It waits for an
// in-progress read, which returns within one poll interval.
func (d *Termios) Close(_ context.Context, h serialstream.Handle) error {
	port, err := asTermios(h)
	if err != nil {
		return err
	}
	port.mu.Lock()
	defer port.mu.Unlock()
	if port.closed {
		return serialstream.ErrPortClosed
	}
	port.closed = true
	if err := unix.Close(port.fd); err != nil {
		return fmt.Errorf("close %s: %w", port.path, err)
	}
	return nil
}

func (d *Termios) SetDTR(_ context.Context, h serialstream.Handle, on bool) error {
	return setModemBit(h, unix.TIOCM_DTR, on)
}

func (d *Termios) SetRTS(_ context.Context, h serialstream.Handle, on bool) error {
	return setModemBit(h, unix.TIOCM_RTS, on)
}

func (d *Termios) ModemSignals(_ context.Context, h serialstream.Handle) (serialstream.ModemSignals, error) {
	port, err := asTermios(h)
	if err != nil {
		return serialstream.ModemSignals{}, err
	}
	port.mu.RLock()
	defer port.mu.RUnlock()
	if port.closed {
		return serialstream.ModemSignals{}, serialstream.ErrPortClosed
	}

	status, err := unix.IoctlGetInt(port.fd, unix.TIOCMGET)
	if err != nil {
		return serialstream.ModemSignals{}, fmt.Errorf("failed to get modem status: %w", err)
	}
	return modemSignals(status), nil
}

func modemSignals(status int) serialstream.ModemSignals {
	return serialstream.ModemSignals{
		CTS: status&unix.TIOCM_CTS != 0,
		DSR: status&unix.TIOCM_DSR != 0,
		RI:  status&unix.TIOCM_RI != 0,
		DCD: status&unix.TIOCM_CAR != 0,
		RTS: status&unix.TIOCM_RTS != 0,
		DTR: status&unix.TIOCM_DTR != 0,
	}
}

// setModemBit raises or drops one modem output with TIOCMBIS or TIOCMBIC
func setModemBit(h serialstream.Handle, bit int, on bool) error {
	port, err := asTermios(h)
	if err != nil {
		return err
	}
	port.mu.RLock()
	defer port.mu.RUnlock()
	if port.closed {
		return serialstream.ErrPortClosed
	}

	req := uint(unix.TIOCMBIC)
	if on {
		req = unix.TIOCMBIS
	}
	if err := unix.IoctlSetPointerInt(port.fd, req, bit); err != nil {
		return fmt.Errorf("failed to set modem bits: %w", err)
	}
	return nil
}

func asTermios(h serialstream.Handle) (*termiosPort, error) {
	port, ok := h.(*termiosPort)
	if !ok || port == nil {
		return nil, fmt.Errorf("%w: not a termios handle", serialstream.ErrPortClosed)
	}
	return port, nil
}

// mapErrno translates open and lock failures onto the stream's sentinels
func mapErrno(err error) error {
	switch {
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENXIO), errors.Is(err, unix.ENODEV):
		return fmt.Errorf("%w: %v", serialstream.ErrDeviceNotFound, err)
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: %v", serialstream.ErrPermissionDenied, err)
	case errors.Is(err, unix.EBUSY), errors.Is(err, unix.EWOULDBLOCK):
		return fmt.Errorf("%w: %v", serialstream.ErrDeviceInUse, err)
	default:
		return err
	}
}
