package protocol

import (
	"encoding/binary"
	"fmt"

	tuyacrypto "github.com/tuyago/tuya-ble/internal/tuya/crypto"
)

const (
	// headerSize is seq(4) + responseTo(4) + code(2) + length(2).
	headerSize = 12
	crcSize    = 2
	ivSize     = 16

	// minEnvelopeSize is flag + IV + one ciphertext block.
	minEnvelopeSize = 1 + ivSize + 16

	// MaxPayloadSize is bounded by the frame's 16-bit length field.
	MaxPayloadSize = 0xFFFF
)

// Frame is one logical protocol message. SeqNum correlates a response to
// its originating request via the responder's ResponseTo field; a frame
// with ResponseTo == 0 is device-initiated.
type Frame struct {
	SeqNum     uint32
	ResponseTo uint32
	Code       Code
	Payload    []byte
}

// KeyFunc resolves the encryption key for a security flag. It returns nil
// when no key is available for the flag, which fails the decode.
type KeyFunc func(flag SecurityFlag) []byte

// Encode serializes the frame, appends the CRC over header and payload,
// zero-pads to the AES block and encrypts with key, producing the
// flag || IV || ciphertext envelope ready for fragmentation.
func (f *Frame) Encode(key []byte, flag SecurityFlag) ([]byte, error) {
	if len(f.Payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: payload %d bytes exceeds %d", ErrDataLength, len(f.Payload), MaxPayloadSize)
	}

	raw := make([]byte, 0, headerSize+len(f.Payload)+crcSize)
	raw = binary.BigEndian.AppendUint32(raw, f.SeqNum)
	raw = binary.BigEndian.AppendUint32(raw, f.ResponseTo)
	raw = binary.BigEndian.AppendUint16(raw, uint16(f.Code))
	raw = binary.BigEndian.AppendUint16(raw, uint16(len(f.Payload)))
	raw = append(raw, f.Payload...)
	raw = binary.BigEndian.AppendUint16(raw, CRC16(raw))

	iv, err := tuyacrypto.NewIV()
	if err != nil {
		return nil, err
	}
	ciphertext, err := tuyacrypto.Encrypt(key, iv, raw)
	if err != nil {
		return nil, err
	}

	envelope := make([]byte, 0, 1+len(iv)+len(ciphertext))
	envelope = append(envelope, byte(flag))
	envelope = append(envelope, iv...)
	envelope = append(envelope, ciphertext...)
	return envelope, nil
}

// Decode parses a reassembled envelope back into a Frame. It validates the
// minimum length, looks up the key for the security flag, decrypts, and
// verifies the length field and CRC before returning. A frame that fails
// any check is never partially applied: the error classifies it (format,
// decryption, length, CRC) and the caller drops it.
func Decode(envelope []byte, keyFor KeyFunc) (*Frame, error) {
	if len(envelope) < minEnvelopeSize {
		return nil, fmt.Errorf("%w: envelope is %d bytes, need at least %d", ErrDataLength, len(envelope), minEnvelopeSize)
	}

	flag := SecurityFlag(envelope[0])
	key := keyFor(flag)
	if key == nil {
		return nil, fmt.Errorf("%w: no key for security flag 0x%02x", ErrFormat, byte(flag))
	}

	iv := envelope[1 : 1+ivSize]
	raw, err := tuyacrypto.Decrypt(key, iv, envelope[1+ivSize:])
	if err != nil {
		return nil, err
	}

	if len(raw) < headerSize {
		return nil, fmt.Errorf("%w: decrypted frame is %d bytes", ErrDataLength, len(raw))
	}
	seqNum := binary.BigEndian.Uint32(raw[0:4])
	responseTo := binary.BigEndian.Uint32(raw[4:8])
	code := Code(binary.BigEndian.Uint16(raw[8:10]))
	length := int(binary.BigEndian.Uint16(raw[10:12]))

	end := headerSize + length
	if len(raw) < end+crcSize {
		return nil, fmt.Errorf("%w: payload length %d exceeds frame", ErrDataLength, length)
	}
	want := binary.BigEndian.Uint16(raw[end : end+crcSize])
	if !VerifyCRC16(raw[:end], want) {
		return nil, fmt.Errorf("%w: got 0x%04x, frame says 0x%04x", ErrCRC, CRC16(raw[:end]), want)
	}

	payload := make([]byte, length)
	copy(payload, raw[headerSize:end])

	return &Frame{
		SeqNum:     seqNum,
		ResponseTo: responseTo,
		Code:       code,
		Payload:    payload,
	}, nil
}
