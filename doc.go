// Package serialstream turns a low-level serial device into a duplex byte
// stream with backpressure on the read side and strictly serialized writes.
//
// A Device only has to provide three blocking calls: Open, Read into a
// caller-owned region, and Write. Stream adds the rest: an open/close state
// machine, a read loop that stages data in a recycled pool and never runs
// ahead of the consumer, and a write queue that keeps one write at the device
// at a time.
//
// # Basic Usage
//
// Drivers for real hardware live in the driver package:
//
//	dev, _ := driver.New("termios")
//	s, err := serialstream.New(dev,
//	    serialstream.WithPath("/dev/ttyUSB0"),
//	    serialstream.WithBaudRate(230400),
//	)
//	if err != nil {
//	    log.Fatal(err) // configuration error
//	}
//	defer s.Close(context.Background())
//
//	// Each chunk is exactly what one device read returned
//	chunk, err := s.ReadChunk(ctx)
//
//	// Writes are queued and acknowledged in order
//	err = s.WriteContext(ctx, []byte{1, 2, 3, 4, 5})
//
// Stream also implements io.Reader and io.Writer.
//
// # Opening
//
// With AutoOpen (the default) New opens the device in the background. The
// result goes to the WithOpenCallback function if one was given; otherwise a
// failure shows up as an EventError on Events. Reads and writes issued before
// the port is open wait for it.
//
// Open on a stream that is already open or opening fails with ErrAlreadyOpen
// or ErrOpening and never reaches the device.
//
// # Reading
//
// Incoming bytes are read into a pool of HighWaterMark bytes. When fewer than
// MinPoolSpace bytes remain free, the next read gets a fresh pool, so chunks
// already handed out are never overwritten. At most HighWaterMark bytes are
// buffered for the consumer; the read loop waits while the buffer is full.
//
// A failed read is retried immediately and indefinitely without reporting
// the error to the consumer. WithReadRetryDelay adds a pause between
// attempts. A read that returns zero bytes ends the stream.
//
// # Error Handling
//
// Configuration problems are returned synchronously from New and NewConfig:
//
//	var (
//	    ErrNoDevice        // nil Device
//	    ErrPathRequired    // empty path
//	    ErrInvalidBaudRate // missing or non-positive baud rate
//	    ErrInvalidConfig   // out of range option value
//	)
//
// Write failures are returned to the write that caused them. Errors wrapping
// ErrCanceled mark writes the device abandoned; they do not close the stream.
//
// # Modem Lines
//
// Devices that implement ModemControl expose DTR, RTS and the input lines
// through SetDTR, SetRTS and ModemSignals. Other devices return
// ErrNotSupported.
//
// # Default Configuration
//
//   - DataBits: 8
//   - StopBits: 1
//   - Parity: None
//   - HUPCL: true
//   - Lock: true
//   - HighWaterMark: 64 KiB
//   - AutoOpen: true
package serialstream
