package protocol

import (
	"bytes"
	"errors"
)

// Frame layout: len, seq, payload..., crc-hi, crc-lo, sync. len counts
// the whole frame. seq carries a destination nibble so stray bytes that
// happen to look like a length are rejected quickly.
const (
	headerSize  = 2
	trailerSize = 3

	MinFrameLen = headerSize + trailerSize
	MaxFrameLen = 64

	SyncByte = 0x7E
	SeqMask  = 0x0F
	destBits = 0x10

	posLen = 0
	posSeq = 1
)

// ErrFrameTooLong is returned for payloads that do not fit a frame.
var ErrFrameTooLong = errors.New("protocol: frame too long")

// Frame is one validated message.
type Frame struct {
	Seq     uint8
	Payload []byte
}

// EncodeFrame wraps payload in the length/sequence header and the
// CRC/sync trailer. Only the low bits of seq are carried.
func EncodeFrame(seq uint8, payload []byte) ([]byte, error) {
	n := len(payload) + MinFrameLen
	if n > MaxFrameLen {
		return nil, ErrFrameTooLong
	}
	buf := make([]byte, 0, n)
	buf = append(buf, byte(n), destBits|seq&SeqMask)
	buf = append(buf, payload...)
	crc := CRC16(buf)
	return append(buf, byte(crc>>8), byte(crc), SyncByte), nil
}

// Decoder reassembles frames from a raw byte stream. After garbage, a
// framing violation or a CRC failure it discards input until the next
// sync byte.
type Decoder struct {
	buf    []byte
	synced bool
}

// NewDecoder creates a Decoder that starts out synchronized.
func NewDecoder() *Decoder {
	return &Decoder{synced: true}
}

// Push appends raw bytes and returns every complete frame they yield.
func (d *Decoder) Push(data []byte) []Frame {
	d.buf = append(d.buf, data...)
	var frames []Frame
	for {
		f, ok := d.next()
		if !ok {
			return frames
		}
		frames = append(frames, f)
	}
}

func (d *Decoder) next() (Frame, bool) {
	for {
		if !d.synced {
			i := bytes.IndexByte(d.buf, SyncByte)
			if i < 0 {
				d.buf = d.buf[:0]
				return Frame{}, false
			}
			d.buf = d.buf[i+1:]
			d.synced = true
		}

		// Skip inter-frame sync bytes.
		for len(d.buf) > 0 && d.buf[0] == SyncByte {
			d.buf = d.buf[1:]
		}
		if len(d.buf) < MinFrameLen {
			return Frame{}, false
		}

		n := int(d.buf[posLen])
		if n < MinFrameLen || n > MaxFrameLen {
			d.desync()
			continue
		}
		if d.buf[posSeq]&^SeqMask != destBits {
			d.desync()
			continue
		}
		if len(d.buf) < n {
			return Frame{}, false
		}
		if d.buf[n-1] != SyncByte {
			d.desync()
			continue
		}
		wire := uint16(d.buf[n-trailerSize])<<8 | uint16(d.buf[n-trailerSize+1])
		if wire != CRC16(d.buf[:n-trailerSize]) {
			d.desync()
			continue
		}

		payload := make([]byte, n-MinFrameLen)
		copy(payload, d.buf[headerSize:n-trailerSize])
		f := Frame{Seq: d.buf[posSeq] & SeqMask, Payload: payload}
		d.buf = d.buf[n:]
		return f, true
	}
}

// desync drops the byte that broke framing and hunts for the next sync.
func (d *Decoder) desync() {
	d.buf = d.buf[1:]
	d.synced = false
}
