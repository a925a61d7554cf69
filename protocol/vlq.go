// Package protocol implements the serial link between the firmware and
// the host: a compact VLQ integer codec and CRC16-checked frames, plus
// the command identifiers both sides speak.
package protocol

import "errors"

var (
	// ErrTruncated is returned when a value or frame ends early.
	ErrTruncated = errors.New("protocol: truncated data")
)

// AppendInt appends v to dst in VLQ form: big-endian groups of 7 bits,
// high bit set on every byte but the last.
func AppendInt(dst []byte, v int32) []byte {
	if !(-(1<<26) <= v && v < (3<<26)) {
		dst = append(dst, byte((v>>28)&0x7F)|0x80)
	}
	if !(-(1<<19) <= v && v < (3<<19)) {
		dst = append(dst, byte((v>>21)&0x7F)|0x80)
	}
	if !(-(1<<12) <= v && v < (3<<12)) {
		dst = append(dst, byte((v>>14)&0x7F)|0x80)
	}
	if !(-(1<<5) <= v && v < (3<<5)) {
		dst = append(dst, byte((v>>7)&0x7F)|0x80)
	}
	return append(dst, byte(v&0x7F))
}

// AppendUint appends v in the same encoding as AppendInt.
func AppendUint(dst []byte, v uint32) []byte {
	return AppendInt(dst, int32(v))
}

// DecodeInt consumes one VLQ integer from *data, advancing the slice.
func DecodeInt(data *[]byte) (int32, error) {
	if len(*data) == 0 {
		return 0, ErrTruncated
	}

	c := uint32((*data)[0])
	*data = (*data)[1:]

	v := c & 0x7F
	// The first byte carries the sign in bits 5-6.
	if c&0x60 == 0x60 {
		v |= ^uint32(0x1F)
	}

	for c&0x80 != 0 {
		if len(*data) == 0 {
			return 0, ErrTruncated
		}
		c = uint32((*data)[0])
		*data = (*data)[1:]
		v = v<<7 | c&0x7F
	}

	return int32(v), nil
}

// DecodeUint consumes one VLQ unsigned integer from *data.
func DecodeUint(data *[]byte) (uint32, error) {
	v, err := DecodeInt(data)
	return uint32(v), err
}
