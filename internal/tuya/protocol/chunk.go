package protocol

import "fmt"

// Fragment splits an encoded frame envelope into chunks that each fit the
// transport MTU. Every chunk starts with its varint chunk number; chunk 0
// additionally carries the varint total envelope length and a version byte
// (protocol version in the high nibble), so the receiver can detect a new
// frame starting without a separate control channel.
func Fragment(envelope []byte, mtu int, protocolVersion byte) ([][]byte, error) {
	if len(envelope) == 0 {
		return nil, fmt.Errorf("%w: empty envelope", ErrDataLength)
	}

	var chunks [][]byte
	pos := 0
	for num := uint32(0); pos < len(envelope); num++ {
		chunk := AppendUvarint(nil, num)
		if num == 0 {
			chunk = AppendUvarint(chunk, uint32(len(envelope)))
			chunk = append(chunk, protocolVersion<<4)
		}
		if len(chunk) >= mtu {
			return nil, fmt.Errorf("%w: MTU %d does not fit the chunk header", ErrDataLength, mtu)
		}
		n := mtu - len(chunk)
		if n > len(envelope)-pos {
			n = len(envelope) - pos
		}
		chunk = append(chunk, envelope[pos:pos+n]...)
		chunks = append(chunks, chunk)
		pos += n
	}
	return chunks, nil
}

// Reassembler rebuilds a frame envelope from notification chunks. Chunks
// for one frame must arrive in order; a gap, duplicate or overlong buffer
// invalidates the in-progress frame and is reported rather than corrected.
// A chunk numbered 0 always starts a new frame, discarding any unfinished
// one. Not safe for concurrent use; the session feeds it from the single
// notification callback.
type Reassembler struct {
	buf         []byte
	expectedNum uint32
	expectedLen int
}

// Feed consumes one chunk. It returns the completed envelope once the final
// chunk arrives, nil while the frame is still partial.
func (r *Reassembler) Feed(chunk []byte) ([]byte, error) {
	num, pos, err := ReadUvarint(chunk, 0)
	if err != nil {
		r.Reset()
		return nil, err
	}

	// A restarted sequence discards the previous buffer. The device does
	// this when it gave up on a frame mid-transmission.
	if num < r.expectedNum {
		r.Reset()
	}
	if num != r.expectedNum {
		want := r.expectedNum
		r.Reset()
		return nil, fmt.Errorf("%w: chunk %d, expected %d", ErrFormat, num, want)
	}

	if num == 0 {
		length, next, err := ReadUvarint(chunk, pos)
		if err != nil {
			r.Reset()
			return nil, err
		}
		pos = next + 1 // skip the version byte
		if pos > len(chunk) {
			r.Reset()
			return nil, fmt.Errorf("%w: first chunk truncated", ErrDataLength)
		}
		r.buf = nil
		r.expectedLen = int(length)
	}

	r.buf = append(r.buf, chunk[pos:]...)
	r.expectedNum++

	if len(r.buf) > r.expectedLen {
		got, want := len(r.buf), r.expectedLen
		r.Reset()
		return nil, fmt.Errorf("%w: received %d bytes, frame announced %d", ErrDataLength, got, want)
	}
	if len(r.buf) == r.expectedLen {
		out := r.buf
		r.Reset()
		return out, nil
	}
	return nil, nil
}

// Reset discards any in-progress frame. The session calls it whenever a new
// handshake starts so stale fragments never merge into a new session.
func (r *Reassembler) Reset() {
	r.buf = nil
	r.expectedNum = 0
	r.expectedLen = 0
}
