package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/storekit/thermalprint/internal/registry"
	"github.com/storekit/thermalprint/internal/settings"
	"github.com/storekit/thermalprint/pkg/receipt"
)

// GATT identifiers of the serial-port service used by BLE receipt printers
const (
	PrinterServiceUUID        = "000018f0-0000-1000-8000-00805f9b34fb"
	PrinterCharacteristicUUID = "00002af1-0000-1000-8000-00805f9b34fb"
)

// BluetoothChunkSize is the largest write sent to the characteristic at once
const BluetoothChunkSize = 100

// BluetoothDeviceInfo describes a device found while scanning
type BluetoothDeviceInfo struct {
	Address string
	Name    string
}

// GATTBackend scans for and connects to BLE devices
type GATTBackend interface {
	// Scan returns devices advertising the given service
	Scan(ctx context.Context, serviceUUID string) ([]BluetoothDeviceInfo, error)
	Connect(ctx context.Context, dev BluetoothDeviceInfo) (GATTConn, error)
}

// GATTConn is a connected GATT server
type GATTConn interface {
	PrimaryService(uuid string) (GATTService, error)
	Connected() bool
	Disconnect() error
}

// GATTService is a discovered primary service
type GATTService interface {
	Characteristic(uuid string) (GATTCharacteristic, error)
}

// GATTCharacteristic is a writable characteristic
type GATTCharacteristic interface {
	WriteWithoutResponse(p []byte) (int, error)
}

// BluetoothChooser picks one device out of the scan results. Returning false declines.
type BluetoothChooser func(ctx context.Context, candidates []BluetoothDeviceInfo) (BluetoothDeviceInfo, bool)

// BluetoothDriver prints over a BLE serial characteristic in fixed-size chunks
type BluetoothDriver struct {
	backend GATTBackend
	chooser BluetoothChooser
	opts    options
	logger  *zap.Logger

	mu      sync.Mutex
	conn    GATTConn
	char    GATTCharacteristic
	printer *ConnectedPrinter
}

// NewBluetoothDriver creates a Bluetooth driver. A nil chooser picks the first device found.
func NewBluetoothDriver(backend GATTBackend, chooser BluetoothChooser, opts ...Option) *BluetoothDriver {
	if chooser == nil {
		chooser = func(_ context.Context, c []BluetoothDeviceInfo) (BluetoothDeviceInfo, bool) {
			if len(c) == 0 {
				return BluetoothDeviceInfo{}, false
			}
			return c[0], true
		}
	}
	o := buildOptions(opts)
	return &BluetoothDriver{
		backend: backend,
		chooser: chooser,
		opts:    o,
		logger:  o.logger.Named("bluetooth"),
	}
}

// Name returns the transport name
func (d *BluetoothDriver) Name() string {
	return NameBluetooth
}

// RequestAndConnect scans for printers advertising the serial service, connects
// to the chosen one and resolves the write characteristic
func (d *BluetoothDriver) RequestAndConnect(ctx context.Context) ConnectResult {
	found, err := d.backend.Scan(ctx, PrinterServiceUUID)
	if err != nil {
		d.logger.Warn("bluetooth scan failed", zap.Error(err))
		return failed(fmt.Errorf("failed to scan for bluetooth printers: %w", err))
	}
	if len(found) == 0 {
		return declined()
	}

	dev, ok := d.chooser(ctx, found)
	if !ok {
		return declined()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		d.disconnectLocked()
	}

	conn, err := d.backend.Connect(ctx, dev)
	if err != nil {
		d.logger.Warn("bluetooth connect failed", zap.String("address", dev.Address), zap.Error(err))
		return failed(fmt.Errorf("failed to connect to %s: %w", dev.Address, err))
	}

	char, err := resolveCharacteristic(conn)
	if err != nil {
		if derr := conn.Disconnect(); derr != nil {
			d.logger.Debug("bluetooth disconnect after failed setup", zap.Error(derr))
		}
		d.logger.Warn("bluetooth printer setup failed", zap.String("address", dev.Address), zap.Error(err))
		return failed(err)
	}

	name := dev.Name
	if name == "" {
		name = dev.Address
	}

	d.conn = conn
	d.char = char
	d.printer = &ConnectedPrinter{
		ProductName: name,
		Transport:   NameBluetooth,
		Address:     dev.Address,
	}

	if d.opts.registry != nil {
		info := registry.DeviceInfo{Kind: registry.KindBluetooth, Address: dev.Address, Description: dev.Name}
		if _, err := d.opts.registry.Authorize(info); err != nil {
			d.logger.Warn("failed to remember bluetooth printer", zap.Error(err))
		}
	}

	d.logger.Info("bluetooth printer connected", zap.Stringer("printer", d.printer))
	return connected(d.printer)
}

func resolveCharacteristic(conn GATTConn) (GATTCharacteristic, error) {
	svc, err := conn.PrimaryService(PrinterServiceUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get printer service: %w", err)
	}
	char, err := svc.Characteristic(PrinterCharacteristicUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get printer characteristic: %w", err)
	}
	return char, nil
}

// Disconnect closes the GATT connection if it is still up. State is always cleared.
func (d *BluetoothDriver) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.disconnectLocked()
}

func (d *BluetoothDriver) disconnectLocked() error {
	conn := d.conn
	d.conn = nil
	d.char = nil
	d.printer = nil

	if conn == nil || !conn.Connected() {
		return nil
	}
	if err := conn.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect bluetooth printer: %w", err)
	}
	return nil
}

// Connected returns the open printer, or nil
func (d *BluetoothDriver) Connected() *ConnectedPrinter {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.printer == nil {
		return nil
	}
	p := *d.printer
	return &p
}

// Print encodes r and writes it in sequential chunks of BluetoothChunkSize bytes
func (d *BluetoothDriver) Print(ctx context.Context, r *receipt.Data, _ settings.AppSettings) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.char == nil {
		return ErrNotConnected
	}

	data := d.opts.encoder.Encode(r)
	chunks := 0
	for off := 0; off < len(data); off += BluetoothChunkSize {
		if err := ctx.Err(); err != nil {
			return &TransportError{Transport: NameBluetooth, Err: err}
		}

		end := min(off+BluetoothChunkSize, len(data))
		if _, err := d.char.WriteWithoutResponse(data[off:end]); err != nil {
			return &TransportError{
				Transport: NameBluetooth,
				Err:       fmt.Errorf("chunk %d: %w", chunks, err),
			}
		}
		chunks++
	}

	d.logger.Debug("receipt sent", zap.Int("bytes", len(data)), zap.Int("chunks", chunks))
	return nil
}

// ErrServiceNotFound is returned by backends when the device lacks the printer service
var ErrServiceNotFound = errors.New("service not found")

// ErrCharacteristicNotFound is returned by backends when the service lacks the write characteristic
var ErrCharacteristicNotFound = errors.New("characteristic not found")
