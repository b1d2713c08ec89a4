/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	serialstream "github.com/allbin/go-serialstream"
	"github.com/allbin/go-serialstream/driver"
	"github.com/allbin/go-serialstream/internal/logger"
)

// cliConfig is the merged view of flags, environment and config file
type cliConfig struct {
	Driver         string        `mapstructure:"driver"`
	Baud           string        `mapstructure:"baud"`
	DataBits       int           `mapstructure:"data-bits"`
	StopBits       int           `mapstructure:"stop-bits"`
	Parity         string        `mapstructure:"parity"`
	RTSCTS         bool          `mapstructure:"rtscts"`
	Xon            bool          `mapstructure:"xon"`
	Xoff           bool          `mapstructure:"xoff"`
	Xany           bool          `mapstructure:"xany"`
	HUPCL          bool          `mapstructure:"hupcl"`
	Lock           bool          `mapstructure:"lock"`
	HighWaterMark  int           `mapstructure:"high-water-mark"`
	ReadRetryDelay time.Duration `mapstructure:"read-retry-delay"`
	LogLevel       string        `mapstructure:"log-level"`
	LogFormat      string        `mapstructure:"log-format"`
	LogFile        string        `mapstructure:"log-file"`
}

func loadCLIConfig(v *viper.Viper) (cliConfig, error) {
	var c cliConfig
	if err := v.Unmarshal(&c); err != nil {
		return cliConfig{}, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return c, nil
}

// parseBaud accepts a decimal baud rate, as the flag or environment gives it
func parseBaud(s string) (int, error) {
	rate, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", serialstream.ErrInvalidBaudRate, s)
	}
	if rate <= 0 {
		return 0, fmt.Errorf("%w: %d", serialstream.ErrInvalidBaudRate, rate)
	}
	return rate, nil
}

// options turns the CLI settings into stream options for path
func (c cliConfig) options(path string) ([]serialstream.Option, error) {
	baud, err := parseBaud(c.Baud)
	if err != nil {
		return nil, err
	}
	parity, err := serialstream.ParseParity(strings.ToLower(c.Parity))
	if err != nil {
		return nil, err
	}

	opts := []serialstream.Option{
		serialstream.WithPath(path),
		serialstream.WithBaudRate(baud),
		serialstream.WithDataBits(c.DataBits),
		serialstream.WithStopBits(c.StopBits),
		serialstream.WithParity(parity),
		serialstream.WithRTSCTS(c.RTSCTS),
		serialstream.WithXonXoff(c.Xon, c.Xoff, c.Xany),
		serialstream.WithHUPCL(c.HUPCL),
		serialstream.WithLock(c.Lock),
		serialstream.WithHighWaterMark(c.HighWaterMark),
		serialstream.WithReadRetryDelay(c.ReadRetryDelay),
	}
	return opts, nil
}

// newLogger builds the CLI logger. A full screen UI owns the terminal, so
// there only the log file is written.
func (c cliConfig) newLogger(tui bool) (*zap.Logger, error) {
	var w io.Writer
	if tui {
		if c.LogFile == "" {
			return zap.NewNop(), nil
		}
		w = io.Discard
	}
	return logger.New(logger.Config{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		File:       c.LogFile,
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}, w)
}

// session is a configured stream plus what the commands show about it
type session struct {
	stream *serialstream.Stream
	driver string
	logger *zap.Logger
}

// newSession builds a stream over the configured driver. extra options are
// applied last.
func newSession(path string, tui bool, extra ...serialstream.Option) (*session, error) {
	c, err := loadCLIConfig(v)
	if err != nil {
		return nil, err
	}
	lg, err := c.newLogger(tui)
	if err != nil {
		return nil, err
	}
	opts, err := c.options(path)
	if err != nil {
		return nil, err
	}
	dev, err := driver.New(c.Driver)
	if err != nil {
		return nil, err
	}

	opts = append(opts, serialstream.WithLogger(lg))
	opts = append(opts, extra...)
	s, err := serialstream.New(dev, opts...)
	if err != nil {
		return nil, err
	}
	return &session{stream: s, driver: c.Driver, logger: lg}, nil
}

// openSession is newSession followed by a synchronous open
func openSession(ctx context.Context, path string, extra ...serialstream.Option) (*session, error) {
	extra = append(extra, serialstream.WithAutoOpen(false))
	sess, err := newSession(path, false, extra...)
	if err != nil {
		return nil, err
	}
	if err := sess.stream.Open(ctx); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.stream.Close(ctx); err != nil {
		s.logger.Debug("close", zap.Error(err))
	}
	_ = s.logger.Sync()
}
