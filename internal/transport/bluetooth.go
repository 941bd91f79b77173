package transport

import (
	"context"
	"fmt"
	"sync"

	"tinygo.org/x/bluetooth"
)

// BluetoothAdapter wraps tinygo-org/bluetooth. On Linux the device address
// is a MAC; on macOS it is the CoreBluetooth UUID. The Address fields in
// Device and the credential store carry whichever form the platform uses.
type BluetoothAdapter struct {
	adapter *bluetooth.Adapter

	// mu protects the connections map.
	mu          sync.Mutex
	connections map[string]*bluetoothConnection // keyed by device address
}

// NewBluetoothAdapter creates an Adapter backed by the platform's default
// BLE hardware.
func NewBluetoothAdapter() *BluetoothAdapter {
	return &BluetoothAdapter{
		adapter:     bluetooth.DefaultAdapter,
		connections: make(map[string]*bluetoothConnection),
	}
}

func (a *BluetoothAdapter) Enable() error {
	if err := a.adapter.Enable(); err != nil {
		return err
	}

	// The adapter-level handler fires with connected=false when a
	// peripheral drops; route it to the matching connection's callback.
	a.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		addr := device.Address.String()
		a.mu.Lock()
		conn, ok := a.connections[addr]
		a.mu.Unlock()
		if ok && conn.disconnectCb != nil {
			conn.disconnectCb()
		}
	})

	return nil
}

func (a *BluetoothAdapter) Scan(ctx context.Context, serviceUUID string) ([]Device, error) {
	uuid, err := bluetooth.ParseUUID(serviceUUID)
	if err != nil {
		return nil, fmt.Errorf("transport: parse service UUID: %w", err)
	}

	var mu sync.Mutex
	var devices []Device
	seen := make(map[string]bool)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			a.adapter.StopScan()
		case <-done:
		}
	}()

	err = a.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		if !result.HasServiceUUID(uuid) {
			return
		}
		addr := result.Address.String()
		mu.Lock()
		defer mu.Unlock()
		if seen[addr] {
			return
		}
		seen[addr] = true

		dev := Device{
			Name:    result.LocalName(),
			Address: addr,
			RSSI:    int(result.RSSI),
		}
		for _, sd := range result.ServiceData() {
			if sd.UUID == uuid {
				dev.ServiceData = append([]byte(nil), sd.Data...)
			}
		}
		for _, md := range result.ManufacturerData() {
			if md.CompanyID == ManufacturerID {
				dev.ManufacturerData = append([]byte(nil), md.Data...)
			}
		}
		devices = append(devices, dev)
	})
	close(done)

	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("transport: scan: %w", err)
	}
	return devices, nil
}

func (a *BluetoothAdapter) Connect(ctx context.Context, address string) (Connection, error) {
	var addr bluetooth.Address
	addr.Set(address)

	// tinygo/bluetooth's Connect blocks with its own timeout; wrap it so we
	// also honor ctx cancellation.
	type connectResult struct {
		device bluetooth.Device
		err    error
	}
	ch := make(chan connectResult, 1)
	go func() {
		device, err := a.adapter.Connect(addr, bluetooth.ConnectionParams{})
		ch <- connectResult{device, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("transport: connect to %s: %w", address, ctx.Err())
	case result := <-ch:
		if result.err != nil {
			return nil, fmt.Errorf("transport: connect to %s: %w", address, result.err)
		}
		conn := &bluetoothConnection{device: &result.device, mtu: DefaultMTU}

		a.mu.Lock()
		a.connections[address] = conn
		a.mu.Unlock()

		return conn, nil
	}
}

// Compile-time check that BluetoothAdapter implements Adapter.
var _ Adapter = (*BluetoothAdapter)(nil)

type bluetoothConnection struct {
	device       *bluetooth.Device
	mtu          int
	disconnectCb func()
}

func (c *bluetoothConnection) DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error) {
	svcUUID, err := bluetooth.ParseUUID(serviceUUID)
	if err != nil {
		return nil, err
	}
	charUUIDParsed, err := bluetooth.ParseUUID(charUUID)
	if err != nil {
		return nil, err
	}

	svcs, err := c.device.DiscoverServices([]bluetooth.UUID{svcUUID})
	if err != nil {
		return nil, fmt.Errorf("transport: discover services: %w", err)
	}
	if len(svcs) == 0 {
		return nil, fmt.Errorf("transport: service %s not found", serviceUUID)
	}

	chars, err := svcs[0].DiscoverCharacteristics([]bluetooth.UUID{charUUIDParsed})
	if err != nil {
		return nil, fmt.Errorf("transport: discover characteristics: %w", err)
	}
	if len(chars) == 0 {
		return nil, fmt.Errorf("transport: characteristic %s not found", charUUID)
	}

	// The write payload is the ATT MTU minus the 3-byte write header. Keep
	// the Tuya default when the stack reports nothing usable.
	if m, err := chars[0].GetMTU(); err == nil && int(m) > 3 {
		c.mtu = int(m) - 3
	}

	return &bluetoothCharacteristic{char: &chars[0]}, nil
}

func (c *bluetoothConnection) MTU() int {
	return c.mtu
}

func (c *bluetoothConnection) Disconnect() error {
	return c.device.Disconnect()
}

func (c *bluetoothConnection) OnDisconnect(cb func()) {
	c.disconnectCb = cb
}

type bluetoothCharacteristic struct {
	char *bluetooth.DeviceCharacteristic
}

func (c *bluetoothCharacteristic) Write(data []byte) error {
	_, err := c.char.WriteWithoutResponse(data)
	return err
}

func (c *bluetoothCharacteristic) Subscribe(cb func([]byte)) error {
	return c.char.EnableNotifications(func(buf []byte) {
		cb(buf)
	})
}
