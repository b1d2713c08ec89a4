package serialstream

import "go.uber.org/atomic"

// Stats is a snapshot of a stream's counters
type Stats struct {
	BytesRead      uint64
	BytesWritten   uint64
	Chunks         uint64
	ReadRetries    uint64
	PoolAllocs     uint64
	Writes         uint64
	WriteErrors    uint64
	CanceledWrites uint64
	DroppedEvents  uint64
}

type counters struct {
	bytesRead      atomic.Uint64
	bytesWritten   atomic.Uint64
	chunks         atomic.Uint64
	readRetries    atomic.Uint64
	poolAllocs     atomic.Uint64
	writes         atomic.Uint64
	writeErrors    atomic.Uint64
	canceledWrites atomic.Uint64
	droppedEvents  atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		BytesRead:      c.bytesRead.Load(),
		BytesWritten:   c.bytesWritten.Load(),
		Chunks:         c.chunks.Load(),
		ReadRetries:    c.readRetries.Load(),
		PoolAllocs:     c.poolAllocs.Load(),
		Writes:         c.writes.Load(),
		WriteErrors:    c.writeErrors.Load(),
		CanceledWrites: c.canceledWrites.Load(),
		DroppedEvents:  c.droppedEvents.Load(),
	}
}
