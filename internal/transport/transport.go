// Package transport abstracts the BLE link to a Tuya device. The protocol
// engine only issues characteristic writes and consumes notification
// callbacks; discovery, GATT connection and MTU negotiation belong to the
// Adapter implementation.
package transport

import "context"

// Tuya BLE GATT identifiers.
const (
	ServiceUUID    = "0000a201-0000-1000-8000-00805f9b34fb"
	WriteCharUUID  = "00002b11-0000-1000-8000-00805f9b34fb"
	NotifyCharUUID = "00002b10-0000-1000-8000-00805f9b34fb"

	// ManufacturerID is the company identifier Tuya devices advertise under.
	ManufacturerID = 0x07D0

	// DefaultMTU is the chunk size used when the link reports nothing
	// better. Tuya firmware assumes 20-byte GATT payloads.
	DefaultMTU = 20
)

// Device is a discovered BLE peripheral with the advertisement payloads the
// protocol layer needs to identify Tuya devices.
type Device struct {
	Name    string
	Address string
	RSSI    int

	// ServiceData is the payload advertised under ServiceUUID, if any.
	ServiceData []byte
	// ManufacturerData is the payload advertised under ManufacturerID.
	ManufacturerData []byte
}

// Characteristic represents a BLE GATT characteristic.
type Characteristic interface {
	// Write sends data to the characteristic without response.
	Write(data []byte) error
	// Subscribe registers a callback for notifications on this
	// characteristic. The transport delivers notifications in order.
	Subscribe(callback func(data []byte)) error
}

// Connection represents an active BLE connection to a peripheral.
type Connection interface {
	// DiscoverCharacteristic finds a characteristic by UUID within a service.
	DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error)
	// MTU returns the negotiated write payload size for this connection.
	MTU() int
	// Disconnect terminates the connection.
	Disconnect() error
	// OnDisconnect registers a callback invoked when the connection drops.
	OnDisconnect(callback func())
}

// Adapter abstracts the BLE hardware adapter so the session layer can be
// tested against a mock.
type Adapter interface {
	// Enable powers on the BLE adapter.
	Enable() error
	// Scan discovers peripherals advertising the given service UUID until
	// ctx is done.
	Scan(ctx context.Context, serviceUUID string) ([]Device, error)
	// Connect establishes a connection to the device with the given address.
	Connect(ctx context.Context, address string) (Connection, error)
}
