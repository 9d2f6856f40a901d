package transport

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/storekit/thermalprint/pkg/receipt"
)

func sampleReceipt() *receipt.Data {
	return &receipt.Data{
		ShopName:     "Acme",
		InvoiceID:    "INV-2024-000123",
		Date:         "2024-05-01",
		CustomerName: "Jane",
		Items:        []receipt.LineItem{{Name: "Bolt", Quantity: 3, Price: 2.5}},
		Subtotal:     7.5,
		PaidAmount:   7.5,
		DueAmount:    0,
	}
}

type fakeUSBHandle struct {
	buf        bytes.Buffer
	writes     int
	writeErr   error
	releaseErr error
	closeErr   error
	released   bool
	closed     bool
}

func (h *fakeUSBHandle) Write(p []byte) (int, error) {
	h.writes++
	if h.writeErr != nil {
		return 0, h.writeErr
	}
	return h.buf.Write(p)
}

func (h *fakeUSBHandle) Release() error {
	h.released = true
	return h.releaseErr
}

func (h *fakeUSBHandle) Close() error {
	h.closed = true
	return h.closeErr
}

type fakeUSBBackend struct {
	devices []USBDeviceInfo
	listErr error
	openErr error
	handle  *fakeUSBHandle
	opened  []USBDeviceInfo
}

func (b *fakeUSBBackend) List(ctx context.Context) ([]USBDeviceInfo, error) {
	return b.devices, b.listErr
}

func (b *fakeUSBBackend) Open(ctx context.Context, dev USBDeviceInfo) (USBHandle, error) {
	b.opened = append(b.opened, dev)
	if b.openErr != nil {
		return nil, b.openErr
	}
	if b.handle == nil {
		b.handle = &fakeUSBHandle{}
	}
	return b.handle, nil
}

type fakeCharacteristic struct {
	mu     sync.Mutex
	chunks [][]byte
	failAt int // 1-based chunk index that fails, 0 for never
}

func (c *fakeCharacteristic) WriteWithoutResponse(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failAt > 0 && len(c.chunks)+1 == c.failAt {
		return 0, errors.New("gatt write failed")
	}
	chunk := make([]byte, len(p))
	copy(chunk, p)
	c.chunks = append(c.chunks, chunk)
	return len(p), nil
}

type fakeService struct {
	char    *fakeCharacteristic
	charErr error
}

func (s *fakeService) Characteristic(uuid string) (GATTCharacteristic, error) {
	if s.charErr != nil {
		return nil, s.charErr
	}
	if uuid != PrinterCharacteristicUUID {
		return nil, ErrCharacteristicNotFound
	}
	return s.char, nil
}

type fakeGATTConn struct {
	svc           *fakeService
	svcErr        error
	connected     bool
	disconnects   int
	disconnectErr error
}

func (c *fakeGATTConn) PrimaryService(uuid string) (GATTService, error) {
	if c.svcErr != nil {
		return nil, c.svcErr
	}
	if uuid != PrinterServiceUUID {
		return nil, ErrServiceNotFound
	}
	return c.svc, nil
}

func (c *fakeGATTConn) Connected() bool {
	return c.connected
}

func (c *fakeGATTConn) Disconnect() error {
	c.disconnects++
	c.connected = false
	return c.disconnectErr
}

type fakeGATTBackend struct {
	devices    []BluetoothDeviceInfo
	scanErr    error
	connectErr error
	conn       *fakeGATTConn
	scanned    string
}

func (b *fakeGATTBackend) Scan(ctx context.Context, serviceUUID string) ([]BluetoothDeviceInfo, error) {
	b.scanned = serviceUUID
	return b.devices, b.scanErr
}

func (b *fakeGATTBackend) Connect(ctx context.Context, dev BluetoothDeviceInfo) (GATTConn, error) {
	if b.connectErr != nil {
		return nil, b.connectErr
	}
	b.conn.connected = true
	return b.conn, nil
}

func newFakeGATT() (*fakeGATTBackend, *fakeCharacteristic) {
	char := &fakeCharacteristic{}
	return &fakeGATTBackend{
		devices: []BluetoothDeviceInfo{{Address: "AA:BB:CC:DD:EE:FF", Name: "MTP-II"}},
		conn:    &fakeGATTConn{svc: &fakeService{char: char}},
	}, char
}
