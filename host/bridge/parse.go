// Package bridge feeds relative motion from a Linux input device into
// an encoder link, batching deltas into periodic reports.
package bridge

import (
	"encoding/binary"
)

// Minimal Linux input constants
const (
	evSyn = 0x00
	evRel = 0x02

	relX = 0x00
	relY = 0x01

	synReport = 0x00
)

// eventParser parses Linux input_event structs from a stream.
// The kernel uses different struct sizes depending on timeval size
// (16 bytes on 32-bit, 24 bytes on 64-bit).
type eventParser struct {
	buf []byte
	sz  int // 0 unknown, else 16 or 24
}

func (p *eventParser) feed(chunk []byte, cb func(etype uint16, code uint16, value int32)) {
	p.buf = append(p.buf, chunk...)
	if p.sz == 0 {
		if len(p.buf) >= 48 && len(p.buf)%24 == 0 {
			p.sz = 24
		} else if len(p.buf) >= 32 && len(p.buf)%16 == 0 {
			p.sz = 16
		} else if len(p.buf) >= 24 {
			// fallback: assume the 64-bit layout
			p.sz = 24
		}
	}
	for p.sz != 0 && len(p.buf) >= p.sz {
		ev := p.buf[:p.sz]
		p.buf = p.buf[p.sz:]
		var etype, code uint16
		var value int32
		if p.sz == 24 {
			etype = binary.LittleEndian.Uint16(ev[16:18])
			code = binary.LittleEndian.Uint16(ev[18:20])
			value = int32(binary.LittleEndian.Uint32(ev[20:24]))
		} else {
			etype = binary.LittleEndian.Uint16(ev[8:10])
			code = binary.LittleEndian.Uint16(ev[10:12])
			value = int32(binary.LittleEndian.Uint32(ev[12:16]))
		}
		cb(etype, code, value)
	}
}
