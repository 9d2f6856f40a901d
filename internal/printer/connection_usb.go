package printer

import (
	"errors"
	"sync"

	"github.com/google/gousb"

	"github.com/storekit/thermalprint/internal/transport"
)

// USBConnection is a claimed printer-class interface on a USB device
type USBConnection struct {
	handle transport.USBHandle
	mu     sync.Mutex
}

// ConnectUSB opens the printer with the given IDs and claims its bulk OUT endpoint
func ConnectUSB(usbCtx *gousb.Context, vendorID, productID uint16) (*USBConnection, error) {
	handle, err := transport.OpenUSBPrinter(usbCtx, vendorID, productID)
	if err != nil {
		return nil, err
	}
	return &USBConnection{handle: handle}, nil
}

// Write sends data in a single bulk transfer
func (c *USBConnection) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.handle.Write(data)
}

// Close releases the interface and closes the device
func (c *USBConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return errors.Join(c.handle.Release(), c.handle.Close())
}
