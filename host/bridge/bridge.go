package bridge

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"time"
)

// MotionSink receives batched motion reports, normally a *link.Link.
type MotionSink interface {
	SendMotion(port int, dx, dy int32) error
}

// DefaultFlushInterval batches deltas into roughly 100Hz reports,
// matching the report rate of a typical USB mouse.
const DefaultFlushInterval = 10 * time.Millisecond

// Bridge accumulates relative motion events and flushes the summed
// deltas to the sink at a fixed interval. Events between flushes
// collapse into a single report.
type Bridge struct {
	src      EventSource
	sink     MotionSink
	port     int
	interval time.Duration
	log      *slog.Logger

	accX atomic.Int32
	accY atomic.Int32
}

// EventSource produces raw input_event bytes, normally an evdev
// device file.
type EventSource interface {
	Read(p []byte) (int, error)
	Close() error
}

// NewBridge wires an event source to a motion sink for one port.
// A zero interval selects DefaultFlushInterval; a nil logger discards.
func NewBridge(src EventSource, sink MotionSink, port int, interval time.Duration, log *slog.Logger) *Bridge {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Bridge{
		src:      src,
		sink:     sink,
		port:     port,
		interval: interval,
		log:      log,
	}
}

// Run pumps events until ctx is cancelled or the source fails.
func (b *Bridge) Run(ctx context.Context) error {
	readErr := make(chan error, 1)
	go b.readEvents(readErr)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.src.Close() // unblocks the reader
			<-readErr
			return ctx.Err()
		case err := <-readErr:
			return err
		case <-ticker.C:
			if err := b.flush(); err != nil {
				b.src.Close()
				<-readErr
				return err
			}
		}
	}
}

func (b *Bridge) readEvents(done chan<- error) {
	var parser eventParser
	buf := make([]byte, 1024)
	for {
		n, err := b.src.Read(buf)
		if n > 0 {
			parser.feed(buf[:n], b.handleEvent)
		}
		if err != nil {
			done <- err
			return
		}
	}
}

func (b *Bridge) handleEvent(etype, code uint16, value int32) {
	if etype != evRel {
		return
	}
	switch code {
	case relX:
		b.accX.Add(value)
	case relY:
		b.accY.Add(value)
	}
}

func (b *Bridge) flush() error {
	dx := b.accX.Swap(0)
	dy := b.accY.Swap(0)
	if dx == 0 && dy == 0 {
		return nil
	}
	b.log.Debug("motion", "port", b.port, "dx", dx, "dy", dy)
	return b.sink.SendMotion(b.port, dx, dy)
}
