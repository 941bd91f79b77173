package cli

import (
	"bytes"
	"testing"

	"github.com/tuyago/tuya-ble/internal/tuya/protocol"
)

func TestParseTypedValue(t *testing.T) {
	cases := []struct {
		typeName string
		raw      string
		wantType protocol.DPType
		want     any
	}{
		{"bool", "true", protocol.DTBool, true},
		{"bool", "0", protocol.DTBool, false},
		{"value", "-42", protocol.DTValue, int32(-42)},
		{"string", "hello", protocol.DTString, "hello"},
		{"enum", "3", protocol.DTEnum, uint32(3)},
		{"raw", "deadbeef", protocol.DTRaw, []byte{0xDE, 0xAD, 0xBE, 0xEF}},
		{"bitmap", "0f", protocol.DTBitmap, []byte{0x0F}},
	}
	for _, c := range cases {
		gotType, got, err := parseTypedValue(c.typeName, c.raw)
		if err != nil {
			t.Fatalf("parseTypedValue(%s, %q) error = %v", c.typeName, c.raw, err)
		}
		if gotType != c.wantType {
			t.Errorf("parseTypedValue(%s, %q) type = %s, want %s", c.typeName, c.raw, gotType, c.wantType)
		}
		if b, ok := c.want.([]byte); ok {
			if !bytes.Equal(got.([]byte), b) {
				t.Errorf("parseTypedValue(%s, %q) = %x, want %x", c.typeName, c.raw, got, b)
			}
		} else if got != c.want {
			t.Errorf("parseTypedValue(%s, %q) = %v, want %v", c.typeName, c.raw, got, c.want)
		}
	}
}

func TestParseTypedValueErrors(t *testing.T) {
	cases := [][2]string{
		{"bool", "maybe"},
		{"value", "2147483648"}, // overflows int32
		{"enum", "-1"},
		{"raw", "zz"},
		{"color", "ff0000"},
	}
	for _, c := range cases {
		if _, _, err := parseTypedValue(c[0], c[1]); err == nil {
			t.Errorf("parseTypedValue(%s, %q) did not error", c[0], c[1])
		}
	}
}

func TestParseDPID(t *testing.T) {
	if id, err := parseDPID("255"); err != nil || id != 255 {
		t.Errorf("parseDPID(255) = (%d, %v), want (255, nil)", id, err)
	}
	for _, bad := range []string{"256", "-1", "abc", ""} {
		if _, err := parseDPID(bad); err == nil {
			t.Errorf("parseDPID(%q) did not error", bad)
		}
	}
}
