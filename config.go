package serialstream

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	case ParityMark:
		return "mark"
	case ParitySpace:
		return "space"
	default:
		return fmt.Sprintf("Parity(%d)", int(p))
	}
}

// ParseParity converts a parity name ("none", "odd", "even", "mark", "space"
// or the single letters N/O/E/M/S) to a Parity.
func ParseParity(s string) (Parity, error) {
	switch s {
	case "", "none", "n", "N":
		return ParityNone, nil
	case "odd", "o", "O":
		return ParityOdd, nil
	case "even", "e", "E":
		return ParityEven, nil
	case "mark", "m", "M":
		return ParityMark, nil
	case "space", "s", "S":
		return ParitySpace, nil
	default:
		return ParityNone, fmt.Errorf("%w: unknown parity %q", ErrInvalidConfig, s)
	}
}

const (
	// DefaultHighWaterMark is the default pool size and the bound on
	// buffered-but-unread bytes.
	DefaultHighWaterMark = 64 * 1024

	// MinPoolSpace is the spare threshold: a pool with less free space than
	// this is replaced before the next read.
	MinPoolSpace = 128
)

// Config holds the resolved configuration of a stream. It is produced once by
// NewConfig and never mutated afterwards.
type Config struct {
	Path     string
	BaudRate int
	DataBits int
	StopBits int
	Parity   Parity

	// Flow control, passed through to the device
	RTSCTS bool
	Xon    bool
	Xoff   bool
	Xany   bool

	HUPCL bool // drop modem lines on close
	Lock  bool // exclusive access to the device

	HighWaterMark int
	AutoOpen      bool
	EndOnClose    bool // end the readable side when the port closes
}

// Option is a functional option for configuring a stream
type Option func(*settings) error

// settings is what options act on: the Config plus the stream-only knobs that
// never reach the device.
type settings struct {
	config         Config
	logger         *zap.Logger
	openCallback   func(error)
	readRetryDelay time.Duration
	eventBuffer    int
}

// DefaultConfig returns a configuration with sensible defaults. Path and
// BaudRate have no default and must be supplied.
func DefaultConfig() Config {
	return Config{
		DataBits:      8,
		StopBits:      1,
		Parity:        ParityNone,
		HUPCL:         true,
		Lock:          true,
		HighWaterMark: DefaultHighWaterMark,
		AutoOpen:      true,
	}
}

func defaultSettings() settings {
	return settings{
		config:      DefaultConfig(),
		logger:      zap.NewNop(),
		eventBuffer: 16,
	}
}

// NewConfig applies opts over DefaultConfig and validates the result.
func NewConfig(opts ...Option) (Config, error) {
	s, err := resolve(opts)
	if err != nil {
		return Config{}, err
	}
	return s.config, nil
}

func resolve(opts []Option) (settings, error) {
	s := defaultSettings()
	for _, opt := range opts {
		if err := opt(&s); err != nil {
			return settings{}, err
		}
	}
	if err := s.config.Validate(); err != nil {
		return settings{}, err
	}
	return s, nil
}

// Validate checks a resolved configuration. It runs once when a stream or
// config is built, so a Config supplied whole through WithConfig is held to
// the same ranges as the individual options.
func (c Config) Validate() error {
	if c.Path == "" {
		return ErrPathRequired
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBaudRate, c.BaudRate)
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		return fmt.Errorf("%w: data bits %d must be 5-8", ErrInvalidConfig, c.DataBits)
	}
	if c.StopBits != 1 && c.StopBits != 2 {
		return fmt.Errorf("%w: stop bits %d must be 1 or 2", ErrInvalidConfig, c.StopBits)
	}
	if c.Parity < ParityNone || c.Parity > ParitySpace {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, c.Parity)
	}
	if c.HighWaterMark <= MinPoolSpace {
		return fmt.Errorf("%w: high water mark %d must exceed %d", ErrInvalidConfig, c.HighWaterMark, MinPoolSpace)
	}
	return nil
}

// WithConfig replaces the whole configuration, e.g. one loaded from a file.
// Options applied after it still win.
func WithConfig(cfg Config) Option {
	return func(s *settings) error {
		s.config = cfg
		return nil
	}
}

// WithPath sets the device path
func WithPath(path string) Option {
	return func(s *settings) error {
		s.config.Path = path
		return nil
	}
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(s *settings) error {
		if rate <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidBaudRate, rate)
		}
		s.config.BaudRate = rate
		return nil
	}
}

// WithDataBits sets the number of data bits (5, 6, 7, or 8)
func WithDataBits(bits int) Option {
	return func(s *settings) error {
		if bits < 5 || bits > 8 {
			return ErrInvalidConfig
		}
		s.config.DataBits = bits
		return nil
	}
}

// WithStopBits sets the number of stop bits (1 or 2)
func WithStopBits(bits int) Option {
	return func(s *settings) error {
		if bits != 1 && bits != 2 {
			return ErrInvalidConfig
		}
		s.config.StopBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(s *settings) error {
		if parity < ParityNone || parity > ParitySpace {
			return ErrInvalidConfig
		}
		s.config.Parity = parity
		return nil
	}
}

// WithRTSCTS enables hardware flow control
func WithRTSCTS(enabled bool) Option {
	return func(s *settings) error {
		s.config.RTSCTS = enabled
		return nil
	}
}

// WithXonXoff sets the software flow control flags
func WithXonXoff(xon, xoff, xany bool) Option {
	return func(s *settings) error {
		s.config.Xon = xon
		s.config.Xoff = xoff
		s.config.Xany = xany
		return nil
	}
}

// WithHUPCL controls whether modem lines are dropped on close
func WithHUPCL(enabled bool) Option {
	return func(s *settings) error {
		s.config.HUPCL = enabled
		return nil
	}
}

// WithLock controls exclusive access to the device
func WithLock(enabled bool) Option {
	return func(s *settings) error {
		s.config.Lock = enabled
		return nil
	}
}

// WithHighWaterMark sets the pool size and the bound on unread buffered bytes.
// It must leave room for at least one read beyond the spare threshold.
func WithHighWaterMark(size int) Option {
	return func(s *settings) error {
		if size <= MinPoolSpace {
			return fmt.Errorf("%w: high water mark %d must exceed %d", ErrInvalidConfig, size, MinPoolSpace)
		}
		s.config.HighWaterMark = size
		return nil
	}
}

// WithAutoOpen controls whether New opens the device right away
func WithAutoOpen(enabled bool) Option {
	return func(s *settings) error {
		s.config.AutoOpen = enabled
		return nil
	}
}

// WithEndOnClose ends the readable side when the port is closed
func WithEndOnClose(enabled bool) Option {
	return func(s *settings) error {
		s.config.EndOnClose = enabled
		return nil
	}
}

// WithLogger sets the logger used by the stream
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) error {
		if logger == nil {
			logger = zap.NewNop()
		}
		s.logger = logger
		return nil
	}
}

// WithOpenCallback receives the result of the automatic open started by New.
// Without it, a failed automatic open is reported as an EventError.
func WithOpenCallback(fn func(error)) Option {
	return func(s *settings) error {
		s.openCallback = fn
		return nil
	}
}

// WithReadRetryDelay inserts a pause before a failed read is re-issued.
// The default of zero retries immediately.
func WithReadRetryDelay(d time.Duration) Option {
	return func(s *settings) error {
		if d < 0 {
			return ErrInvalidConfig
		}
		s.readRetryDelay = d
		return nil
	}
}

// WithEventBuffer sets the capacity of the Events channel
func WithEventBuffer(n int) Option {
	return func(s *settings) error {
		if n < 0 {
			return ErrInvalidConfig
		}
		s.eventBuffer = n
		return nil
	}
}
