package serialstream

import (
	"context"
	"sync"
)

type readResult struct {
	data []byte
	err  error
}

// fakeDevice is a scripted Device. Reads take their results from the reads
// channel in order; writes are recorded and may be held on writeGate.
type fakeDevice struct {
	reads     chan readResult
	openGate  chan struct{}
	closeGate chan struct{}
	writeGate chan struct{}

	mu          sync.Mutex
	openErr     error
	closeErr    error
	writeErr    error
	opens       int
	closes      int
	openCfg     Config
	readSizes   []int
	readHandles []Handle
	reading     int
	writes      [][]byte
	inflight    int
	maxInflight int
	modemErr    error
	signals     ModemSignals
	modemHandle Handle
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{reads: make(chan readResult, 64)}
}

func (d *fakeDevice) Open(ctx context.Context, cfg Config) (Handle, error) {
	if d.openGate != nil {
		select {
		case <-d.openGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens++
	d.openCfg = cfg
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.opens, nil
}

func (d *fakeDevice) Read(ctx context.Context, h Handle, p []byte) (int, error) {
	d.mu.Lock()
	d.readSizes = append(d.readSizes, len(p))
	d.readHandles = append(d.readHandles, h)
	d.reading++
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.reading--
		d.mu.Unlock()
	}()

	select {
	case r := <-d.reads:
		return copy(p, r.data), r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (d *fakeDevice) Write(ctx context.Context, h Handle, p []byte) error {
	d.mu.Lock()
	d.inflight++
	if d.inflight > d.maxInflight {
		d.maxInflight = d.inflight
	}
	d.writes = append(d.writes, append([]byte(nil), p...))
	err := d.writeErr
	gate := d.writeGate
	d.mu.Unlock()

	if gate != nil {
		<-gate
	}

	d.mu.Lock()
	d.inflight--
	d.mu.Unlock()
	return err
}

func (d *fakeDevice) Close(ctx context.Context, h Handle) error {
	if d.closeGate != nil {
		<-d.closeGate
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	return d.closeErr
}

func (d *fakeDevice) SetDTR(ctx context.Context, h Handle, on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modemHandle = h
	if d.modemErr != nil {
		return d.modemErr
	}
	d.signals.DTR = on
	return nil
}

func (d *fakeDevice) SetRTS(ctx context.Context, h Handle, on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modemHandle = h
	if d.modemErr != nil {
		return d.modemErr
	}
	d.signals.RTS = on
	return nil
}

func (d *fakeDevice) ModemSignals(ctx context.Context, h Handle) (ModemSignals, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modemHandle = h
	return d.signals, d.modemErr
}

func (d *fakeDevice) push(data ...byte) {
	d.reads <- readResult{data: data}
}

func (d *fakeDevice) fail(err error) {
	d.reads <- readResult{err: err}
}

func (d *fakeDevice) openCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

func (d *fakeDevice) readCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.readSizes)
}

func (d *fakeDevice) readsInFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reading
}

func (d *fakeDevice) lastReadSize() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readSizes[len(d.readSizes)-1]
}

func (d *fakeDevice) written() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]byte(nil), d.writes...)
}

// noCloseDevice hides the Closer and ModemControl of a fakeDevice
type noCloseDevice struct {
	d *fakeDevice
}

func (n noCloseDevice) Open(ctx context.Context, cfg Config) (Handle, error) {
	return n.d.Open(ctx, cfg)
}

func (n noCloseDevice) Read(ctx context.Context, h Handle, p []byte) (int, error) {
	return n.d.Read(ctx, h, p)
}

func (n noCloseDevice) Write(ctx context.Context, h Handle, p []byte) error {
	return n.d.Write(ctx, h, p)
}
