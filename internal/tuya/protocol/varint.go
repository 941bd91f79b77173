package protocol

import "fmt"

// The chunk header uses a 7-bit varint: little-endian groups of seven bits,
// high bit set on all but the last byte. The protocol caps it at four bytes
// (28 bits), which comfortably covers chunk numbers and envelope lengths.

const maxVarintBytes = 4

// AppendUvarint appends the varint encoding of v to buf.
func AppendUvarint(buf []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if v == 0 {
			return buf
		}
	}
}

// ReadUvarint decodes a varint from data starting at pos, returning the
// value and the position of the first byte after it.
func ReadUvarint(data []byte, pos int) (uint32, int, error) {
	var v uint32
	for i := 0; i < maxVarintBytes; i++ {
		if pos+i >= len(data) {
			return 0, 0, fmt.Errorf("%w: truncated varint", ErrFormat)
		}
		b := data[pos+i]
		v |= uint32(b&0x7F) << (i * 7)
		if b&0x80 == 0 {
			return v, pos + i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: varint exceeds %d bytes", ErrFormat, maxVarintBytes)
}
