package protocol

// CRC16 computes the checksum carried in the Tuya BLE frame trailer:
// initial value 0xFFFF, reflected polynomial 0xA001, no final XOR.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// VerifyCRC16 reports whether data checksums to expected.
func VerifyCRC16(data []byte, expected uint16) bool {
	return CRC16(data) == expected
}
