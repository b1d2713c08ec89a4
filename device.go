package serialstream

import "context"

// Handle is the opaque value a Device returns from Open. The stream owns it
// while the port is open and never looks inside.
type Handle any

// Device is the low-level capability a Stream drives. Every call may block;
// the stream never issues two reads or two writes concurrently on one handle.
//
// Read returns the number of bytes placed in p. A return of 0 with a nil
// error means end of stream. Write returns once all of p has been accepted
// by the device; a write abandoned by the device should wrap ErrCanceled.
type Device interface {
	Open(ctx context.Context, cfg Config) (Handle, error)
	Read(ctx context.Context, h Handle, p []byte) (int, error)
	Write(ctx context.Context, h Handle, p []byte) error
}

// Closer is implemented by devices that can release a handle.
type Closer interface {
	Close(ctx context.Context, h Handle) error
}

// ModemSignals is a snapshot of the modem control lines
type ModemSignals struct {
	CTS bool // Clear To Send
	DSR bool // Data Set Ready
	RI  bool // Ring Indicator
	DCD bool // Data Carrier Detect
	RTS bool // Request To Send
	DTR bool // Data Terminal Ready
}

// ModemControl is implemented by devices that expose the modem control
// lines. Drivers that cannot read back the outputs report RTS and DTR as
// false.
type ModemControl interface {
	SetDTR(ctx context.Context, h Handle, on bool) error
	SetRTS(ctx context.Context, h Handle, on bool) error
	ModemSignals(ctx context.Context, h Handle) (ModemSignals, error)
}
