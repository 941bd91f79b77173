package protocol

import (
	"errors"
	"fmt"
)

// Frame and datapoint error taxonomy. Frame-level failures (format, CRC)
// cause the frame to be dropped by the session layer; datapoint failures
// surface to the caller of the specific operation.
var (
	// ErrFormat marks bytes that do not parse as a Tuya BLE structure.
	ErrFormat = errors.New("protocol: malformed packet")
	// ErrCRC marks a frame whose checksum does not match its contents.
	ErrCRC = errors.New("protocol: invalid CRC")
	// ErrDataLength marks a structure whose length field disagrees with
	// the bytes actually present.
	ErrDataLength = errors.New("protocol: invalid data length")
	// ErrEnumValue marks an ENUM datapoint value outside the unsigned range.
	ErrEnumValue = errors.New("protocol: enum value must be an unsigned integer")
)

// DeviceError is a non-zero result code returned by the device in response
// to a command.
type DeviceError struct {
	Code int
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("protocol: device returned error code %d", e.Code)
}
