package protocol

import "testing"

func TestCRC16CheckValue(t *testing.T) {
	// Standard check value for the reflected 0xA001 polynomial with 0xFFFF init.
	got := CRC16([]byte("123456789"))
	if got != 0x4B37 {
		t.Errorf("CRC16(check string) = 0x%04X, want 0x4B37", got)
	}
}

func TestCRC16Empty(t *testing.T) {
	if got := CRC16(nil); got != 0xFFFF {
		t.Errorf("CRC16(nil) = 0x%04X, want 0xFFFF (init value)", got)
	}
}

func TestCRC16SingleByteSensitivity(t *testing.T) {
	a := CRC16([]byte{0x00, 0x01, 0x02, 0x03})
	b := CRC16([]byte{0x00, 0x01, 0x02, 0x04})
	if a == b {
		t.Error("one-byte change produced identical CRC")
	}
}

func TestVerifyCRC16(t *testing.T) {
	data := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	sum := CRC16(data)
	if !VerifyCRC16(data, sum) {
		t.Error("VerifyCRC16 rejected its own checksum")
	}
	if VerifyCRC16(data, sum^0x0001) {
		t.Error("VerifyCRC16 accepted a wrong checksum")
	}
}
