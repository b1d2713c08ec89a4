// Package driver provides serialstream.Device implementations for real
// serial hardware and helpers to discover ports.
//
// Three backends are available:
//
//   - termios: direct termios configuration through golang.org/x/sys/unix
//     (Linux only). Supports mark/space parity, software flow control,
//     HUPCL and exclusive locking.
//   - bugst: go.bug.st/serial, portable across Linux, macOS and Windows.
//   - tarm: github.com/tarm/serial, kept for hardware that was validated
//     against it.
//
// Pick one by name with New, or construct the struct directly to tune it.
package driver

import (
	"fmt"
	"sort"
	"time"

	"github.com/allbin/go-serialstream"
)

// DefaultPollInterval bounds how long a single blocking read may sit in the
// kernel before the driver re-checks its context.
const DefaultPollInterval = 100 * time.Millisecond

var registry = map[string]func() serialstream.Device{
	"termios": func() serialstream.Device { return &Termios{} },
	"bugst":   func() serialstream.Device { return &Bugst{} },
	"tarm":    func() serialstream.Device { return &Tarm{} },
}

// New returns the driver registered under name
func New(name string) (serialstream.Device, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown driver %q (available: %v)", serialstream.ErrInvalidConfig, name, Names())
	}
	return ctor(), nil
}

// Names lists the registered driver names in sorted order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func pollInterval(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultPollInterval
	}
	return d
}

// canceled wraps a context error so the stream recognizes an abandoned write.
func canceled(err error) error {
	return fmt.Errorf("%w: %v", serialstream.ErrCanceled, err)
}
