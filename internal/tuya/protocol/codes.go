// Package protocol implements the Tuya BLE v3 wire format: framed,
// sequence-numbered, CRC-checked packets encrypted with AES-128-CBC and
// fragmented to the GATT MTU, plus the datapoint TLV codec carried in
// DP frames.
package protocol

import "fmt"

// Code identifies a Tuya BLE function. Codes below 0x8000 are sent by the
// client; codes at 0x8000 and above originate on the device.
type Code uint16

const (
	CodeDeviceInfo   Code = 0x0000 // key exchange, first frame of the handshake
	CodePair         Code = 0x0001
	CodeSendDPs      Code = 0x0002
	CodeDeviceStatus Code = 0x0003
	CodeUnbind       Code = 0x0005
	CodeDeviceReset  Code = 0x0006

	// OTA transfer codes. Named for completeness; no upload engine here.
	CodeOTAStart   Code = 0x000C
	CodeOTAFile    Code = 0x000D
	CodeOTAOffset  Code = 0x000E
	CodeOTAUpgrade Code = 0x000F
	CodeOTAOver    Code = 0x0010

	// Protocol v4 only, unsupported by this client.
	CodeSendDPsV4 Code = 0x0027

	CodeReceiveDP         Code = 0x8001
	CodeReceiveTimeDP     Code = 0x8003
	CodeReceiveSignDP     Code = 0x8004
	CodeReceiveSignTimeDP Code = 0x8005
	CodeReceiveDPV4       Code = 0x8006
	CodeReceiveTimeDPV4   Code = 0x8007
	CodeTime1Request      Code = 0x8011
	CodeTime2Request      Code = 0x8012
)

// IsReport reports whether the code is a device-initiated datapoint report.
// Unsolicited frames are routed by code, not sequence number: a frame with
// an unknown sequence but a report code is a report, anything else is stale.
func (c Code) IsReport() bool {
	switch c {
	case CodeReceiveDP, CodeReceiveTimeDP, CodeReceiveSignDP, CodeReceiveSignTimeDP:
		return true
	}
	return false
}

// IsTimeRequest reports whether the device is asking for the local clock.
func (c Code) IsTimeRequest() bool {
	return c == CodeTime1Request || c == CodeTime2Request
}

func (c Code) String() string {
	switch c {
	case CodeDeviceInfo:
		return "DEVICE_INFO"
	case CodePair:
		return "PAIR"
	case CodeSendDPs:
		return "SEND_DPS"
	case CodeDeviceStatus:
		return "DEVICE_STATUS"
	case CodeUnbind:
		return "UNBIND"
	case CodeDeviceReset:
		return "DEVICE_RESET"
	case CodeOTAStart:
		return "OTA_START"
	case CodeOTAFile:
		return "OTA_FILE"
	case CodeOTAOffset:
		return "OTA_OFFSET"
	case CodeOTAUpgrade:
		return "OTA_UPGRADE"
	case CodeOTAOver:
		return "OTA_OVER"
	case CodeSendDPsV4:
		return "SEND_DPS_V4"
	case CodeReceiveDP:
		return "RECEIVE_DP"
	case CodeReceiveTimeDP:
		return "RECEIVE_TIME_DP"
	case CodeReceiveSignDP:
		return "RECEIVE_SIGN_DP"
	case CodeReceiveSignTimeDP:
		return "RECEIVE_SIGN_TIME_DP"
	case CodeReceiveDPV4:
		return "RECEIVE_DP_V4"
	case CodeReceiveTimeDPV4:
		return "RECEIVE_TIME_DP_V4"
	case CodeTime1Request:
		return "TIME1_REQUEST"
	case CodeTime2Request:
		return "TIME2_REQUEST"
	}
	return fmt.Sprintf("UNKNOWN(0x%04x)", uint16(c))
}

// SecurityFlag selects which key encrypted a frame envelope.
type SecurityFlag byte

const (
	FlagAuthKey    SecurityFlag = 0x01
	FlagLoginKey   SecurityFlag = 0x04
	FlagSessionKey SecurityFlag = 0x05
)
