package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serialstream "github.com/allbin/go-serialstream"
	"github.com/allbin/go-serialstream/driver"
	"github.com/allbin/go-serialstream/internal/tui/components"
)

type sliceReader struct {
	chunks [][]byte
	err    error
}

func (r *sliceReader) ReadChunk(ctx context.Context) ([]byte, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return nil, r.err
		}
		return nil, io.EOF
	}
	c := r.chunks[0]
	r.chunks = r.chunks[1:]
	return c, nil
}

type recordingWriter struct {
	mu     sync.Mutex
	writes [][]byte
	err    error
}

func (w *recordingWriter) WriteContext(ctx context.Context, p []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.writes = append(w.writes, append([]byte(nil), p...))
	return nil
}

func TestCaptureCopiesChunks(t *testing.T) {
	r := &sliceReader{chunks: [][]byte{[]byte("hello "), []byte("world")}}
	var file, console bytes.Buffer

	n, err := capture(context.Background(), r, &file, &console)
	require.NoError(t, err)
	assert.EqualValues(t, 11, n)
	assert.Equal(t, "hello world", file.String())
	assert.Equal(t, "hello world", console.String())
}

func TestCaptureReportsReadErrors(t *testing.T) {
	boom := errors.New("boom")
	r := &sliceReader{chunks: [][]byte{[]byte("x")}, err: boom}
	var file bytes.Buffer

	n, err := capture(context.Background(), r, &file, nil)
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 1, n)
}

func TestSendOnce(t *testing.T) {
	w := &recordingWriter{}
	writes, err := sendRepeated(context.Background(), w, []byte{1, 2, 3}, time.Second, 0, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, writes)
	assert.Equal(t, [][]byte{{1, 2, 3}}, w.writes)
}

func TestSendRepeatedStopsAtCount(t *testing.T) {
	w := &recordingWriter{}
	var seen []int
	writes, err := sendRepeated(context.Background(), w, []byte{1, 2, 3, 4, 5}, time.Second, time.Millisecond, 3, func(n int) {
		seen = append(seen, n)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, writes)
	assert.Len(t, w.writes, 3)
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestSendRepeatedStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	w := &recordingWriter{}
	writes, err := sendRepeated(ctx, w, []byte{1}, time.Second, 5*time.Millisecond, 0, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, writes, 1)
}

func TestSendFailure(t *testing.T) {
	w := &recordingWriter{err: errors.New("nak")}
	writes, err := sendRepeated(context.Background(), w, []byte{1}, time.Second, 0, 0, nil)
	assert.Error(t, err)
	assert.Zero(t, writes)
}

func TestEncodePayload(t *testing.T) {
	b, err := encodePayload("AT", false, true)
	require.NoError(t, err)
	assert.Equal(t, []byte("AT\n"), b)

	b, err = encodePayload("0x48 0x69", true, true)
	require.NoError(t, err)
	assert.Equal(t, []byte("Hi"), b)

	_, err = encodePayload("", false, false)
	assert.ErrorIs(t, err, components.ErrEmptyInput)

	_, err = encodePayload("4", true, false)
	assert.Error(t, err)
}

func TestParseValues(t *testing.T) {
	b, err := parseValues("1, 2,3,4,5")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, b)

	b, err = parseValues("0xff,255")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xff}, b)

	_, err = parseValues("256")
	assert.Error(t, err)
	_, err = parseValues("a")
	assert.Error(t, err)
}

func TestParseSignalState(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{in: "high", want: true},
		{in: "ON", want: true},
		{in: "true", want: true},
		{in: "1", want: true},
		{in: "low"},
		{in: "Off"},
		{in: "false"},
		{in: "0"},
		{in: "toggle", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSignalState(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintSignals(t *testing.T) {
	sig := serialstream.ModemSignals{CTS: true, DCD: true, DTR: true}

	tests := []struct {
		name    string
		outputs bool
		want    []string
	}{
		{
			name:    "outputs readable",
			outputs: true,
			want:    []string{"CTS (Clear To Send):       HIGH", "DSR (Data Set Ready):      LOW", "RTS (Request To Send):     LOW", "DTR (Data Terminal Ready): HIGH"},
		},
		{
			name: "outputs unknown",
			want: []string{"DCD (Data Carrier Detect): HIGH", "RTS (Request To Send):     n/a", "DTR (Data Terminal Ready): n/a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			printSignals(&out, "/dev/ttyUSB0", sig, tt.outputs)
			assert.Contains(t, out.String(), "Modem Signals for /dev/ttyUSB0:")
			for _, line := range tt.want {
				assert.Contains(t, out.String(), line)
			}
		})
	}
}

func testPorts() []*driver.PortInfo {
	return []*driver.PortInfo{
		{Name: "ttyS0", Path: "/dev/ttyS0", Description: "Standard Serial Port"},
		{Name: "ttyUSB0", Path: "/dev/ttyUSB0", Description: "USB Serial Port", IsUSB: true, VendorID: "0403", ProductID: "6001", Product: "FT232R"},
		{Name: "ttyAMA0", Path: "/dev/ttyAMA0", Description: "ARM Serial Port"},
	}
}

func TestFilterPorts(t *testing.T) {
	names := func(ports []*driver.PortInfo) []string {
		var out []string
		for _, p := range ports {
			out = append(out, p.Name)
		}
		return out
	}

	tests := map[string][]string{
		"":         {"ttyS0", "ttyUSB0", "ttyAMA0"},
		"all":      {"ttyS0", "ttyUSB0", "ttyAMA0"},
		"usb":      {"ttyUSB0"},
		"USB":      {"ttyUSB0"},
		"standard": {"ttyS0"},
		"arm":      {"ttyAMA0"},
	}
	for filter, want := range tests {
		got, err := filterPorts(testPorts(), filter)
		require.NoError(t, err, filter)
		assert.Equal(t, want, names(got), filter)
	}

	_, err := filterPorts(testPorts(), "bluetooth")
	assert.Error(t, err)
}

func TestRenderPorts(t *testing.T) {
	var simple bytes.Buffer
	renderSimple(&simple, testPorts())
	assert.Equal(t, "/dev/ttyS0\n/dev/ttyUSB0\n/dev/ttyAMA0\n", simple.String())

	var tbl bytes.Buffer
	renderTable(&tbl, testPorts())
	out := tbl.String()
	assert.Contains(t, out, "Found 3 serial port(s)")
	assert.Contains(t, out, "/dev/ttyUSB0")
	assert.Contains(t, out, "0403:6001")
	assert.Contains(t, out, "FT232R")
}
