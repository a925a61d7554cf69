// Package link implements the host side of the encoder wire protocol:
// it frames commands onto a byte stream and decodes response frames
// coming back from the board.
package link

import (
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/stanley-fork/bluepad32/protocol"
)

// ErrClosed is returned by calls made after Close.
var ErrClosed = fmt.Errorf("link: closed")

// Link drives one encoder board over a byte stream. Commands are
// fire-and-forget; the scale factor query waits for the board's
// response frame. A background reader pumps the stream until the
// link is closed or the read side fails.
type Link struct {
	rw io.ReadWriteCloser

	// Sequence tracking for outgoing frames
	writeMu sync.Mutex
	seq     uint8

	// Latest scale_factor response. Buffered so the reader never
	// blocks; a stale value is replaced by the newest one.
	scaleCh chan float32

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}

	onError func(error)
}

// New starts a link over rw. onError, if non-nil, is called once when
// the read side fails for a reason other than Close.
func New(rw io.ReadWriteCloser, onError func(error)) *Link {
	l := &Link{
		rw:      rw,
		scaleCh: make(chan float32, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		onError: onError,
	}
	go l.readLoop()
	return l
}

// ConfigurePort assigns the four output pins of a port.
func (l *Link) ConfigurePort(port int, hA, hB, vA, vB uint32) error {
	p := protocol.AppendUint(nil, protocol.CmdConfigQuadraturePort)
	for _, v := range []uint32{uint32(port), hA, hB, vA, vB} {
		p = protocol.AppendUint(p, v)
	}
	return l.send(p)
}

// Start resumes line generation on a port.
func (l *Link) Start(port int) error {
	p := protocol.AppendUint(nil, protocol.CmdQuadratureStart)
	p = protocol.AppendUint(p, uint32(port))
	return l.send(p)
}

// Pause freezes line generation on a port.
func (l *Link) Pause(port int) error {
	p := protocol.AppendUint(nil, protocol.CmdQuadraturePause)
	p = protocol.AppendUint(p, uint32(port))
	return l.send(p)
}

// SendMotion reports one motion delta for a port.
func (l *Link) SendMotion(port int, dx, dy int32) error {
	p := protocol.AppendUint(nil, protocol.CmdQuadratureUpdate)
	p = protocol.AppendUint(p, uint32(port))
	p = protocol.AppendInt(p, dx)
	p = protocol.AppendInt(p, dy)
	return l.send(p)
}

// SetScaleFactor sets the board's calibration scale factor.
func (l *Link) SetScaleFactor(f float32) error {
	p := protocol.AppendUint(nil, protocol.CmdSetScaleFactor)
	p = protocol.AppendUint(p, math.Float32bits(f))
	return l.send(p)
}

// QueryScaleFactor asks the board for its current scale factor and
// waits up to timeout for the response.
func (l *Link) QueryScaleFactor(timeout time.Duration) (float32, error) {
	// Drop a stale response left over from an earlier query.
	select {
	case <-l.scaleCh:
	default:
	}

	p := protocol.AppendUint(nil, protocol.CmdGetScaleFactor)
	if err := l.send(p); err != nil {
		return 0, err
	}

	select {
	case f := <-l.scaleCh:
		return f, nil
	case <-time.After(timeout):
		return 0, fmt.Errorf("link: scale factor response timeout after %v", timeout)
	case <-l.stop:
		return 0, ErrClosed
	}
}

// Close stops the reader and closes the underlying stream.
func (l *Link) Close() error {
	var err error
	l.stopOnce.Do(func() {
		close(l.stop)
		err = l.rw.Close() // unblocks the pending Read
	})
	<-l.done
	return err
}

func (l *Link) send(payload []byte) error {
	select {
	case <-l.stop:
		return ErrClosed
	default:
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	wire, err := protocol.EncodeFrame(l.seq, payload)
	if err != nil {
		return err
	}
	l.seq = (l.seq + 1) & protocol.SeqMask

	n, err := l.rw.Write(wire)
	if err != nil {
		return fmt.Errorf("link: write: %w", err)
	}
	if n != len(wire) {
		return fmt.Errorf("link: incomplete write: %d/%d bytes", n, len(wire))
	}
	return nil
}

func (l *Link) readLoop() {
	defer close(l.done)

	dec := protocol.NewDecoder()
	buf := make([]byte, protocol.MaxFrameLen)

	for {
		n, err := l.rw.Read(buf)
		if n > 0 {
			for _, f := range dec.Push(buf[:n]) {
				l.handleFrame(f)
			}
		}
		if err != nil {
			select {
			case <-l.stop:
				return
			default:
			}
			if err == io.EOF {
				// tarm/serial reports a timed-out read on a quiet port
				// as (0, io.EOF). The board only transmits responses,
				// so a silent stretch is normal; keep pumping.
				continue
			}
			if l.onError != nil {
				l.onError(err)
			}
			return
		}
	}
}

func (l *Link) handleFrame(f protocol.Frame) {
	data := f.Payload
	id, err := protocol.DecodeUint(&data)
	if err != nil {
		return
	}
	if id != protocol.RspScaleFactor {
		return
	}
	bits, err := protocol.DecodeUint(&data)
	if err != nil {
		return
	}

	// Replace a stale value rather than blocking the reader.
	select {
	case <-l.scaleCh:
	default:
	}
	l.scaleCh <- math.Float32frombits(bits)
}
