package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

// defaultScanWindow bounds a scan when the context has no deadline
const defaultScanWindow = 5 * time.Second

// TinygoBackend implements GATTBackend on the host Bluetooth adapter
type TinygoBackend struct {
	adapter    *bluetooth.Adapter
	scanWindow time.Duration

	enableOnce sync.Once
	enableErr  error

	mu        sync.Mutex
	addresses map[string]bluetooth.Address
}

// NewTinygoBackend uses the default adapter
func NewTinygoBackend(scanWindow time.Duration) *TinygoBackend {
	if scanWindow <= 0 {
		scanWindow = defaultScanWindow
	}
	return &TinygoBackend{
		adapter:    bluetooth.DefaultAdapter,
		scanWindow: scanWindow,
		addresses:  make(map[string]bluetooth.Address),
	}
}

func (b *TinygoBackend) enable() error {
	b.enableOnce.Do(func() {
		b.enableErr = b.adapter.Enable()
	})
	return b.enableErr
}

// Scan listens for advertisements until the scan window or context ends
func (b *TinygoBackend) Scan(ctx context.Context, serviceUUID string) ([]BluetoothDeviceInfo, error) {
	uuid, err := bluetooth.ParseUUID(serviceUUID)
	if err != nil {
		return nil, fmt.Errorf("invalid service uuid: %w", err)
	}
	if err := b.enable(); err != nil {
		return nil, fmt.Errorf("failed to enable bluetooth adapter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.scanWindow)
	defer cancel()

	go func() {
		<-ctx.Done()
		b.adapter.StopScan()
	}()

	var (
		mu    sync.Mutex
		found []BluetoothDeviceInfo
		seen  = make(map[string]bool)
	)
	err = b.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
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
		found = append(found, BluetoothDeviceInfo{Address: addr, Name: result.LocalName()})

		b.mu.Lock()
		b.addresses[addr] = result.Address
		b.mu.Unlock()
	})
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	return found, nil
}

// Connect opens a GATT connection to a device seen by Scan
func (b *TinygoBackend) Connect(ctx context.Context, dev BluetoothDeviceInfo) (GATTConn, error) {
	b.mu.Lock()
	addr, ok := b.addresses[dev.Address]
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("device %s was not found by a scan", dev.Address)
	}

	device, err := b.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, err
	}
	return &tinygoConn{device: device, connected: true}, nil
}

type tinygoConn struct {
	device    bluetooth.Device
	mu        sync.Mutex
	connected bool
}

func (c *tinygoConn) PrimaryService(uuid string) (GATTService, error) {
	id, err := bluetooth.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}
	services, err := c.device.DiscoverServices([]bluetooth.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(services) == 0 {
		return nil, ErrServiceNotFound
	}
	return tinygoService{svc: services[0]}, nil
}

func (c *tinygoConn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *tinygoConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected = false
	return c.device.Disconnect()
}

type tinygoService struct {
	svc bluetooth.DeviceService
}

func (s tinygoService) Characteristic(uuid string) (GATTCharacteristic, error) {
	id, err := bluetooth.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}
	chars, err := s.svc.DiscoverCharacteristics([]bluetooth.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(chars) == 0 {
		return nil, ErrCharacteristicNotFound
	}
	return chars[0], nil
}
