//go:build linux

package driver

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/allbin/go-serialstream"
)

// openPair returns the controlling side of a pty pair and the path of its tty
func openPair(t *testing.T) (*os.File, string) {
	t.Helper()
	ptmx, tty, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() {
		tty.Close()
		ptmx.Close()
	})
	return ptmx, tty.Name()
}

func TestGetBaudRate(t *testing.T) {
	tests := []struct {
		rate    int
		want    uint32
		wantErr bool
	}{
		{9600, unix.B9600, false},
		{115200, unix.B115200, false},
		{230400, unix.B230400, false},
		{4000000, unix.B4000000, false},
		{12345, 0, true},
		{0, 0, true},
	}

	for _, tt := range tests {
		got, err := getBaudRate(tt.rate)
		if tt.wantErr {
			assert.ErrorIs(t, err, serialstream.ErrInvalidBaudRate, "rate %d", tt.rate)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestVtime(t *testing.T) {
	assert.Equal(t, uint8(1), vtime(0))
	assert.Equal(t, uint8(1), vtime(100*time.Millisecond))
	assert.Equal(t, uint8(5), vtime(500*time.Millisecond))
	assert.Equal(t, uint8(255), vtime(time.Hour))
}

func TestTermiosConfiguresPort(t *testing.T) {
	_, path := openPair(t)
	cfg := testConfig(t,
		serialstream.WithPath(path),
		serialstream.WithBaudRate(230400),
		serialstream.WithDataBits(7),
		serialstream.WithParity(serialstream.ParityEven),
		serialstream.WithStopBits(2),
		serialstream.WithXonXoff(true, true, false),
	)

	d := &Termios{}
	h, err := d.Open(context.Background(), cfg)
	require.NoError(t, err)
	defer d.Close(context.Background(), h)

	port := h.(*termiosPort)
	termios, err := unix.IoctlGetTermios(port.fd, unix.TCGETS)
	require.NoError(t, err)

	// ptys drop the hardware Cflag bits, see TestRawTermios for those
	assert.NotZero(t, termios.Iflag&unix.IXON)
	assert.NotZero(t, termios.Iflag&unix.IXOFF)
	assert.Zero(t, termios.Iflag&unix.IXANY)
	assert.Zero(t, termios.Lflag&unix.ICANON)
	assert.Equal(t, uint8(0), termios.Cc[unix.VMIN])
	assert.Equal(t, uint8(1), termios.Cc[unix.VTIME])
}

func TestRawTermios(t *testing.T) {
	tests := []struct {
		name      string
		opts      []serialstream.Option
		wantCflag uint32
		wantIflag uint32
	}{
		{
			name:      "8N1 defaults",
			wantCflag: unix.CS8 | unix.HUPCL,
		},
		{
			name: "7E2",
			opts: []serialstream.Option{
				serialstream.WithDataBits(7),
				serialstream.WithParity(serialstream.ParityEven),
				serialstream.WithStopBits(2),
			},
			wantCflag: unix.CS7 | unix.PARENB | unix.CSTOPB | unix.HUPCL,
			wantIflag: unix.INPCK,
		},
		{
			name: "5O1 without hupcl",
			opts: []serialstream.Option{
				serialstream.WithDataBits(5),
				serialstream.WithParity(serialstream.ParityOdd),
				serialstream.WithHUPCL(false),
			},
			wantCflag: unix.CS5 | unix.PARENB | unix.PARODD,
			wantIflag: unix.INPCK,
		},
		{
			name:      "mark parity",
			opts:      []serialstream.Option{serialstream.WithDataBits(6), serialstream.WithParity(serialstream.ParityMark)},
			wantCflag: unix.CS6 | unix.PARENB | unix.CMSPAR | unix.PARODD | unix.HUPCL,
			wantIflag: unix.INPCK,
		},
		{
			name:      "space parity",
			opts:      []serialstream.Option{serialstream.WithParity(serialstream.ParitySpace)},
			wantCflag: unix.CS8 | unix.PARENB | unix.CMSPAR | unix.HUPCL,
			wantIflag: unix.INPCK,
		},
		{
			name: "flow control",
			opts: []serialstream.Option{
				serialstream.WithRTSCTS(true),
				serialstream.WithXonXoff(true, true, true),
			},
			wantCflag: unix.CS8 | unix.CRTSCTS | unix.HUPCL,
			wantIflag: unix.IXON | unix.IXOFF | unix.IXANY,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]serialstream.Option{
				serialstream.WithPath("/dev/ttyS0"),
				serialstream.WithBaudRate(9600),
			}, tt.opts...)
			cfg := testConfig(t, opts...)

			base := unix.Termios{Iflag: unix.ICRNL, Oflag: unix.OPOST, Lflag: unix.ICANON | unix.ECHO}
			base.Cc[unix.VINTR] = 3
			termios, err := rawTermios(base, cfg, 500*time.Millisecond)
			require.NoError(t, err)

			assert.Equal(t, unix.CREAD|unix.CLOCAL|unix.B9600|tt.wantCflag, termios.Cflag)
			assert.Equal(t, tt.wantIflag, termios.Iflag)
			assert.Zero(t, termios.Oflag)
			assert.Zero(t, termios.Lflag)
			assert.Equal(t, uint32(unix.B9600), termios.Ispeed)
			assert.Equal(t, uint32(unix.B9600), termios.Ospeed)
			assert.Equal(t, uint8(0), termios.Cc[unix.VMIN])
			assert.Equal(t, uint8(5), termios.Cc[unix.VTIME])
			assert.Equal(t, uint8(3), termios.Cc[unix.VINTR])
		})
	}

	t.Run("unsupported baud rate", func(t *testing.T) {
		cfg := testConfig(t, serialstream.WithPath("/dev/ttyS0"), serialstream.WithBaudRate(12345))
		_, err := rawTermios(unix.Termios{}, cfg, 0)
		assert.ErrorIs(t, err, serialstream.ErrInvalidBaudRate)
	})
}

func TestTermiosReadWrite(t *testing.T) {
	ptmx, path := openPair(t)
	d := &Termios{}
	ctx := context.Background()

	h, err := d.Open(ctx, testConfig(t, serialstream.WithPath(path)))
	require.NoError(t, err)
	defer d.Close(ctx, h)

	require.NoError(t, d.Write(ctx, h, []byte{1, 2, 3, 4, 5}))
	got := make([]byte, 5)
	_, err = io.ReadFull(ptmx, got)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, got)

	_, err = ptmx.Write([]byte("hello"))
	require.NoError(t, err)

	var received []byte
	buf := make([]byte, 64)
	for len(received) < 5 {
		n, err := d.Read(ctx, h, buf)
		require.NoError(t, err)
		require.Positive(t, n)
		received = append(received, buf[:n]...)
	}
	assert.Equal(t, "hello", string(received))
}

func TestTermiosReadHonorsContext(t *testing.T) {
	_, path := openPair(t)
	d := &Termios{}

	h, err := d.Open(context.Background(), testConfig(t, serialstream.WithPath(path)))
	require.NoError(t, err)
	defer d.Close(context.Background(), h)

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	start := time.Now()
	n, err := d.Read(ctx, h, make([]byte, 16))
	assert.Zero(t, n)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestTermiosLock(t *testing.T) {
	_, path := openPair(t)
	d := &Termios{}
	ctx := context.Background()

	h, err := d.Open(ctx, testConfig(t, serialstream.WithPath(path)))
	require.NoError(t, err)

	_, err = d.Open(ctx, testConfig(t, serialstream.WithPath(path)))
	assert.ErrorIs(t, err, serialstream.ErrDeviceInUse)

	require.NoError(t, d.Close(ctx, h))
	assert.ErrorIs(t, d.Close(ctx, h), serialstream.ErrPortClosed)

	h, err = d.Open(ctx, testConfig(t, serialstream.WithPath(path)))
	require.NoError(t, err)
	require.NoError(t, d.Close(ctx, h))
}

func TestTermiosOpenErrors(t *testing.T) {
	d := &Termios{}
	ctx := context.Background()

	_, err := d.Open(ctx, testConfig(t, serialstream.WithPath("/dev/serialstream-does-not-exist")))
	assert.ErrorIs(t, err, serialstream.ErrDeviceNotFound)

	_, path := openPair(t)
	_, err = d.Open(ctx, testConfig(t, serialstream.WithPath(path), serialstream.WithBaudRate(12345)))
	assert.ErrorIs(t, err, serialstream.ErrInvalidBaudRate)

	canceledCtx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = d.Open(canceledCtx, testConfig(t, serialstream.WithPath(path)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStreamOverTermios(t *testing.T) {
	ptmx, path := openPair(t)

	s, err := serialstream.New(&Termios{},
		serialstream.WithPath(path),
		serialstream.WithBaudRate(115200),
		serialstream.WithAutoOpen(false),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Open(ctx))
	defer s.Close(context.Background())

	_, err = ptmx.Write([]byte{1, 2, 3, 4, 5})
	require.NoError(t, err)

	var received []byte
	for len(received) < 5 {
		chunk, err := s.ReadChunk(ctx)
		require.NoError(t, err)
		received = append(received, chunk...)
	}
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, received)

	require.NoError(t, s.WriteValues(ctx, []int{6, 7, 8}))
	got := make([]byte, 3)
	_, err = io.ReadFull(ptmx, got)
	require.NoError(t, err)
	assert.Equal(t, []byte{6, 7, 8}, got)
}

func TestModemSignalsFromStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   serialstream.ModemSignals
	}{
		{name: "all low", status: 0},
		{
			name:   "inputs",
			status: unix.TIOCM_CTS | unix.TIOCM_DSR | unix.TIOCM_RI | unix.TIOCM_CAR,
			want:   serialstream.ModemSignals{CTS: true, DSR: true, RI: true, DCD: true},
		},
		{
			name:   "outputs",
			status: unix.TIOCM_DTR | unix.TIOCM_RTS,
			want:   serialstream.ModemSignals{DTR: true, RTS: true},
		},
		{
			name:   "unrelated bits ignored",
			status: unix.TIOCM_LE | unix.TIOCM_ST | unix.TIOCM_CTS,
			want:   serialstream.ModemSignals{CTS: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, modemSignals(tt.status))
		})
	}
}

func TestTermiosModemClosedHandle(t *testing.T) {
	_, path := openPair(t)
	d := &Termios{}
	ctx := context.Background()

	h, err := d.Open(ctx, testConfig(t, serialstream.WithPath(path)))
	require.NoError(t, err)
	require.NoError(t, d.Close(ctx, h))

	assert.ErrorIs(t, d.SetDTR(ctx, h, true), serialstream.ErrPortClosed)
	assert.ErrorIs(t, d.SetRTS(ctx, h, true), serialstream.ErrPortClosed)
	_, err = d.ModemSignals(ctx, h)
	assert.ErrorIs(t, err, serialstream.ErrPortClosed)

	assert.ErrorIs(t, d.SetDTR(ctx, "not a handle", true), serialstream.ErrPortClosed)
}
