package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/storekit/thermalprint/internal/registry"
	"github.com/storekit/thermalprint/internal/settings"
	"github.com/storekit/thermalprint/pkg/receipt"
)

// USBFilter is a vendor/product pair of a known thermal printer
type USBFilter struct {
	VendorID  uint16
	ProductID uint16
	Name      string
}

// USBFilters is the allow-list offered to the device chooser
var USBFilters = []USBFilter{
	{VendorID: 0x04b8, ProductID: 0x0202, Name: "Epson TM series"},
	{VendorID: 0x04b8, ProductID: 0x0e15, Name: "Epson TM-T20II"},
	{VendorID: 0x04b8, ProductID: 0x0e28, Name: "Epson TM-T20III"},
	{VendorID: 0x0519, ProductID: 0x0001, Name: "Star TSP100"},
	{VendorID: 0x0519, ProductID: 0x0003, Name: "Star TSP650"},
	{VendorID: 0x0416, ProductID: 0x5011, Name: "Xprinter POS-80"},
	{VendorID: 0x0fe6, ProductID: 0x811e, Name: "Rongta RP80"},
	{VendorID: 0x1d90, ProductID: 0x2060, Name: "Citizen CT-S310II"},
	{VendorID: 0x1504, ProductID: 0x0006, Name: "Bixolon SRP-350"},
}

// MatchUSBFilter returns the allow-list entry for a vendor/product pair
func MatchUSBFilter(vendorID, productID uint16) (USBFilter, bool) {
	for _, f := range USBFilters {
		if f.VendorID == vendorID && f.ProductID == productID {
			return f, true
		}
	}
	return USBFilter{}, false
}

// USBDeviceInfo describes an attached USB device
type USBDeviceInfo struct {
	VendorID    uint16
	ProductID   uint16
	ProductName string
	Serial      string
}

// USBBackend enumerates and opens USB printers
type USBBackend interface {
	// List returns attached devices matching the allow-list
	List(ctx context.Context) ([]USBDeviceInfo, error)
	// Open claims the printer-class interface of a device and its bulk OUT endpoint
	Open(ctx context.Context, dev USBDeviceInfo) (USBHandle, error)
}

// USBHandle is an opened printer with a claimed interface
type USBHandle interface {
	io.Writer
	// Release releases the claimed interface
	Release() error
	// Close closes the device
	Close() error
}

// Chooser picks one device out of the candidates. Returning false declines.
type Chooser func(ctx context.Context, candidates []USBDeviceInfo) (USBDeviceInfo, bool)

// FirstDevice is a Chooser that picks the first candidate
func FirstDevice(_ context.Context, candidates []USBDeviceInfo) (USBDeviceInfo, bool) {
	if len(candidates) == 0 {
		return USBDeviceInfo{}, false
	}
	return candidates[0], true
}

// USBDriver prints to a USB printer through a single bulk transfer
type USBDriver struct {
	backend USBBackend
	chooser Chooser
	opts    options
	logger  *zap.Logger

	mu      sync.Mutex
	handle  USBHandle
	printer *ConnectedPrinter
}

// NewUSBDriver creates a USB driver. A nil chooser picks the first matching device.
func NewUSBDriver(backend USBBackend, chooser Chooser, opts ...Option) *USBDriver {
	if chooser == nil {
		chooser = FirstDevice
	}
	o := buildOptions(opts)
	return &USBDriver{
		backend: backend,
		chooser: chooser,
		opts:    o,
		logger:  o.logger.Named("usb"),
	}
}

// Name returns the transport name
func (d *USBDriver) Name() string {
	return NameUSB
}

// RequestAndConnect lets the chooser pick an allow-listed device and opens it
func (d *USBDriver) RequestAndConnect(ctx context.Context) ConnectResult {
	candidates, err := d.candidates(ctx)
	if err != nil {
		d.logger.Warn("usb enumeration failed", zap.Error(err))
		return failed(err)
	}
	if len(candidates) == 0 {
		return declined()
	}

	dev, ok := d.chooser(ctx, candidates)
	if !ok {
		return declined()
	}

	return d.connect(ctx, dev)
}

// GetConnectedPrinter restores a connection to a previously authorized device
// without invoking the chooser
func (d *USBDriver) GetConnectedPrinter(ctx context.Context) ConnectResult {
	if p := d.Connected(); p != nil {
		return connected(p)
	}
	if d.opts.registry == nil {
		return declined()
	}

	candidates, err := d.candidates(ctx)
	if err != nil {
		d.logger.Debug("usb enumeration failed", zap.Error(err))
		return declined()
	}

	for _, dev := range candidates {
		if d.opts.registry.IsAuthorized(usbDeviceInfo(dev)) {
			return d.connect(ctx, dev)
		}
	}
	return declined()
}

func (d *USBDriver) candidates(ctx context.Context) ([]USBDeviceInfo, error) {
	devices, err := d.backend.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list usb devices: %w", err)
	}

	var out []USBDeviceInfo
	for _, dev := range devices {
		if _, ok := MatchUSBFilter(dev.VendorID, dev.ProductID); ok {
			out = append(out, dev)
		}
	}
	return out, nil
}

func (d *USBDriver) connect(ctx context.Context, dev USBDeviceInfo) ConnectResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.handle != nil {
		d.closeLocked()
	}

	handle, err := d.backend.Open(ctx, dev)
	if err != nil {
		d.logger.Warn("failed to open usb printer",
			zap.String("device", fmt.Sprintf("%04x:%04x", dev.VendorID, dev.ProductID)),
			zap.Error(err))
		return failed(err)
	}

	name := dev.ProductName
	if name == "" {
		if f, ok := MatchUSBFilter(dev.VendorID, dev.ProductID); ok {
			name = f.Name
		}
	}

	d.handle = handle
	d.printer = &ConnectedPrinter{
		ProductName: name,
		Transport:   NameUSB,
		VendorID:    dev.VendorID,
		ProductID:   dev.ProductID,
	}

	if d.opts.registry != nil {
		if _, err := d.opts.registry.Authorize(usbDeviceInfo(dev)); err != nil {
			d.logger.Warn("failed to remember usb printer", zap.Error(err))
		}
	}

	d.logger.Info("usb printer connected", zap.Stringer("printer", d.printer))
	return connected(d.printer)
}

// Disconnect releases the interface and closes the device. Local state is
// cleared even when either step fails.
func (d *USBDriver) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.handle == nil {
		return nil
	}
	return d.closeLocked()
}

func (d *USBDriver) closeLocked() error {
	defer func() {
		d.handle = nil
		d.printer = nil
	}()

	releaseErr := d.handle.Release()
	closeErr := d.handle.Close()
	if err := errors.Join(releaseErr, closeErr); err != nil {
		d.logger.Warn("usb disconnect failed", zap.Error(err))
		return fmt.Errorf("failed to disconnect usb printer: %w", err)
	}
	return nil
}

// Connected returns the open printer, or nil
func (d *USBDriver) Connected() *ConnectedPrinter {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.printer == nil {
		return nil
	}
	p := *d.printer
	return &p
}

// Print encodes r and writes it in one bulk transfer
func (d *USBDriver) Print(ctx context.Context, r *receipt.Data, _ settings.AppSettings) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.handle == nil {
		return ErrNotConnected
	}

	data := d.opts.encoder.Encode(r)
	n, err := d.handle.Write(data)
	if err == nil && n < len(data) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return &TransportError{Transport: NameUSB, Err: err}
	}

	d.logger.Debug("receipt sent", zap.Int("bytes", n))
	return nil
}

func usbDeviceInfo(dev USBDeviceInfo) registry.DeviceInfo {
	return registry.DeviceInfo{
		Kind:        registry.KindUSB,
		VendorID:    dev.VendorID,
		ProductID:   dev.ProductID,
		Serial:      dev.Serial,
		Description: dev.ProductName,
	}
}
