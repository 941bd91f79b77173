// Package devices manages Tuya BLE device credentials: the long-lived
// secrets obtained out-of-band (from the Tuya cloud or an extraction tool)
// that the session layer needs to pair with a device.
package devices

import "fmt"

// Credentials identifies and authenticates one Tuya BLE device. The record
// is immutable once stored; the session layer only reads it.
type Credentials struct {
	Address      string `yaml:"address"`
	UUID         string `yaml:"uuid"`
	LocalKey     string `yaml:"local_key"`
	DeviceID     string `yaml:"device_id"`
	Category     string `yaml:"category"`
	ProductID    string `yaml:"product_id"`
	DeviceName   string `yaml:"device_name,omitempty"`
	ProductModel string `yaml:"product_model,omitempty"`
	ProductName  string `yaml:"product_name,omitempty"`
}

// Validate checks that the fields required for pairing are present.
func (c Credentials) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("devices: address must not be empty")
	}
	if c.UUID == "" {
		return fmt.Errorf("devices: uuid must not be empty")
	}
	if len(c.LocalKey) < 6 {
		return fmt.Errorf("devices: local_key must be at least 6 characters")
	}
	if c.DeviceID == "" {
		return fmt.Errorf("devices: device_id must not be empty")
	}
	if c.Category == "" {
		return fmt.Errorf("devices: category must not be empty")
	}
	if c.ProductID == "" {
		return fmt.Errorf("devices: product_id must not be empty")
	}
	return nil
}

// String masks the secrets so credentials can be logged safely.
func (c Credentials) String() string {
	return fmt.Sprintf(
		"address: %s, uuid: xxxx, local_key: xxxx, device_id: xxxx, category: %s, product_id: %s, device_name: %s",
		c.Address, c.Category, c.ProductID, c.DeviceName,
	)
}

// Store is the credential lookup contract consumed by the session layer.
// Any component satisfying get/put/list is a valid backend; the bundled
// FileStore keeps one YAML record per device keyed by address.
type Store interface {
	// Get returns the credentials for a device address.
	Get(address string) (Credentials, bool)
	// Put adds or replaces a credential record and persists it.
	Put(creds Credentials) error
	// List returns all stored credentials.
	List() []Credentials
}
