package serialstream

import "errors"

// Predefined error types for robust error handling
var (
	// Configuration errors, returned synchronously by NewConfig and New
	ErrNoDevice        = errors.New("no device capability supplied")
	ErrPathRequired    = errors.New("serial device path is required")
	ErrInvalidBaudRate = errors.New("invalid baud rate")
	ErrInvalidConfig   = errors.New("invalid serial configuration")

	// Open state machine errors
	ErrAlreadyOpen = errors.New("serial port is already open")
	ErrOpening     = errors.New("serial port is opening")
	ErrPortClosed  = errors.New("serial port is closed")

	// Device errors, drivers wrap these so callers can use errors.Is
	ErrDeviceNotFound   = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrDeviceInUse      = errors.New("serial device already in use")
	ErrCanceled         = errors.New("serial operation canceled")
	ErrNotSupported     = errors.New("operation not supported by device")
)
