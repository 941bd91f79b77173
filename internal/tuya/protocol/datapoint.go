package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DPType declares the runtime shape of a datapoint value.
type DPType uint8

const (
	DTRaw    DPType = 0 // []byte
	DTBool   DPType = 1 // bool, one byte on the wire
	DTValue  DPType = 2 // int32, big-endian
	DTString DPType = 3 // string, UTF-8
	DTEnum   DPType = 4 // uint32, smallest of 1/2/4 bytes
	DTBitmap DPType = 5 // []byte, interpreted as bit flags
)

// Valid reports whether t is a known datapoint type.
func (t DPType) Valid() bool {
	return t <= DTBitmap
}

func (t DPType) String() string {
	switch t {
	case DTRaw:
		return "raw"
	case DTBool:
		return "bool"
	case DTValue:
		return "value"
	case DTString:
		return "string"
	case DTEnum:
		return "enum"
	case DTBitmap:
		return "bitmap"
	}
	return fmt.Sprintf("invalid(%d)", uint8(t))
}

// EncodeValue serializes a datapoint value per its declared type. A value
// whose runtime shape does not match the type is an error, never a
// coercion.
func EncodeValue(t DPType, value any) ([]byte, error) {
	switch t {
	case DTRaw, DTBitmap:
		b, ok := value.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: %s datapoint wants []byte, got %T", ErrFormat, t, value)
		}
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil

	case DTBool:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: bool datapoint wants bool, got %T", ErrFormat, value)
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil

	case DTValue:
		v, err := asInt32(value)
		if err != nil {
			return nil, err
		}
		return binary.BigEndian.AppendUint32(nil, uint32(v)), nil

	case DTEnum:
		v, err := asEnum(value)
		if err != nil {
			return nil, err
		}
		switch {
		case v > 0xFFFF:
			return binary.BigEndian.AppendUint32(nil, v), nil
		case v > 0xFF:
			return binary.BigEndian.AppendUint16(nil, uint16(v)), nil
		default:
			return []byte{byte(v)}, nil
		}

	case DTString:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: string datapoint wants string, got %T", ErrFormat, value)
		}
		return []byte(s), nil
	}
	return nil, fmt.Errorf("%w: unknown datapoint type %d", ErrFormat, uint8(t))
}

// DecodeValue parses a raw wire value per the declared type. A payload
// whose length does not match the type's expectation fails with
// ErrDataLength rather than being truncated or padded.
func DecodeValue(t DPType, raw []byte) (any, error) {
	switch t {
	case DTRaw, DTBitmap:
		out := make([]byte, len(raw))
		copy(out, raw)
		return out, nil

	case DTBool:
		if len(raw) != 1 {
			return nil, fmt.Errorf("%w: bool datapoint is %d bytes, want 1", ErrDataLength, len(raw))
		}
		return raw[0] != 0, nil

	case DTValue:
		if len(raw) != 4 {
			return nil, fmt.Errorf("%w: value datapoint is %d bytes, want 4", ErrDataLength, len(raw))
		}
		return int32(binary.BigEndian.Uint32(raw)), nil

	case DTEnum:
		switch len(raw) {
		case 1:
			return uint32(raw[0]), nil
		case 2:
			return uint32(binary.BigEndian.Uint16(raw)), nil
		case 4:
			return binary.BigEndian.Uint32(raw), nil
		}
		return nil, fmt.Errorf("%w: enum datapoint is %d bytes, want 1, 2 or 4", ErrDataLength, len(raw))

	case DTString:
		return string(raw), nil
	}
	return nil, fmt.Errorf("%w: unknown datapoint type %d", ErrFormat, uint8(t))
}

// Report is one decoded entry of a device datapoint report.
type Report struct {
	ID    uint8
	Type  DPType
	Value any
}

// AppendTLV appends one id/type/length/value entry to a SEND_DPS payload.
func AppendTLV(buf []byte, id uint8, t DPType, value []byte) ([]byte, error) {
	if len(value) > 0xFF {
		return nil, fmt.Errorf("%w: datapoint %d value is %d bytes, max 255", ErrDataLength, id, len(value))
	}
	buf = append(buf, id, byte(t), byte(len(value)))
	return append(buf, value...), nil
}

// ParseReports decodes the id/type/length/value stream carried by DP report
// frames. One frame can carry several datapoints; each is decoded per its
// declared type. Trailing bytes too short to hold another entry are
// ignored, matching device behavior.
func ParseReports(data []byte) ([]Report, error) {
	var reports []Report
	pos := 0
	for len(data)-pos >= 4 {
		id := data[pos]
		t := DPType(data[pos+1])
		if !t.Valid() {
			return nil, fmt.Errorf("%w: datapoint %d has unknown type %d", ErrFormat, id, data[pos+1])
		}
		length := int(data[pos+2])
		pos += 3
		if pos+length > len(data) {
			return nil, fmt.Errorf("%w: datapoint %d announces %d bytes, %d left", ErrDataLength, id, length, len(data)-pos)
		}
		value, err := DecodeValue(t, data[pos:pos+length])
		if err != nil {
			return nil, err
		}
		reports = append(reports, Report{ID: id, Type: t, Value: value})
		pos += length
	}
	return reports, nil
}

func asInt32(value any) (int32, error) {
	switch v := value.(type) {
	case int32:
		return v, nil
	case int:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return 0, fmt.Errorf("%w: value %d overflows int32", ErrFormat, v)
		}
		return int32(v), nil
	}
	return 0, fmt.Errorf("%w: value datapoint wants int32, got %T", ErrFormat, value)
}

func asEnum(value any) (uint32, error) {
	switch v := value.(type) {
	case uint32:
		return v, nil
	case uint8:
		return uint32(v), nil
	case uint16:
		return uint32(v), nil
	case int32:
		if v < 0 {
			return 0, ErrEnumValue
		}
		return uint32(v), nil
	case int:
		if v < 0 {
			return 0, ErrEnumValue
		}
		if uint64(v) > math.MaxUint32 {
			return 0, fmt.Errorf("%w: enum %d overflows uint32", ErrFormat, v)
		}
		return uint32(v), nil
	}
	return 0, ErrEnumValue
}
