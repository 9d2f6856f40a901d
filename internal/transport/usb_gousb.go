package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/gousb"
)

// ErrNoPrinterEndpoint is returned when a device has no printer-class bulk OUT endpoint
var ErrNoPrinterEndpoint = errors.New("no printer interface with a bulk OUT endpoint")

// printerConfig is the configuration selected before scanning interfaces
const printerConfig = 1

// GousbBackend talks to USB printers through libusb
type GousbBackend struct {
	ctx *gousb.Context
	mu  sync.Mutex
}

// NewGousbBackend creates a libusb context. Call Close when done.
func NewGousbBackend() *GousbBackend {
	return &GousbBackend{ctx: gousb.NewContext()}
}

// Close releases the libusb context
func (b *GousbBackend) Close() error {
	return b.ctx.Close()
}

// List returns attached devices on the allow-list
func (b *GousbBackend) List(ctx context.Context) ([]USBDeviceInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	devs, err := b.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		_, ok := MatchUSBFilter(uint16(desc.Vendor), uint16(desc.Product))
		return ok
	})
	// OpenDevices returns the devices it could open alongside the first error
	if err != nil && len(devs) == 0 {
		return nil, err
	}

	out := make([]USBDeviceInfo, 0, len(devs))
	for _, dev := range devs {
		info := USBDeviceInfo{
			VendorID:  uint16(dev.Desc.Vendor),
			ProductID: uint16(dev.Desc.Product),
		}
		if name, err := dev.Product(); err == nil {
			info.ProductName = name
		}
		if serial, err := dev.SerialNumber(); err == nil {
			info.Serial = serial
		}
		out = append(out, info)
		dev.Close()
	}
	return out, nil
}

// Open opens the device, selects configuration 1 and claims the first
// printer-class interface that has a bulk OUT endpoint
func (b *GousbBackend) Open(ctx context.Context, info USBDeviceInfo) (USBHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return OpenUSBPrinter(b.ctx, info.VendorID, info.ProductID)
}

// OpenUSBPrinter opens a printer by vendor/product ID on an existing libusb context
func OpenUSBPrinter(usbCtx *gousb.Context, vendorID, productID uint16) (USBHandle, error) {
	dev, err := usbCtx.OpenDeviceWithVIDPID(gousb.ID(vendorID), gousb.ID(productID))
	if err != nil {
		return nil, fmt.Errorf("failed to open USB device: %w", err)
	}
	if dev == nil {
		return nil, fmt.Errorf("device %04x:%04x: %w", vendorID, productID, gousb.ErrorNoDevice)
	}

	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		return nil, fmt.Errorf("failed to enable kernel driver auto-detach: %w", err)
	}

	cfg, err := dev.Config(printerConfig)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("failed to select configuration %d: %w", printerConfig, err)
	}

	for _, ifaceDesc := range cfg.Desc.Interfaces {
		for _, alt := range ifaceDesc.AltSettings {
			if alt.Class != gousb.ClassPrinter {
				continue
			}
			for _, ep := range alt.Endpoints {
				if ep.Direction != gousb.EndpointDirectionOut || ep.TransferType != gousb.TransferTypeBulk {
					continue
				}

				iface, err := cfg.Interface(alt.Number, alt.Alternate)
				if err != nil {
					cfg.Close()
					dev.Close()
					return nil, fmt.Errorf("failed to claim interface %d: %w", alt.Number, err)
				}
				out, err := iface.OutEndpoint(ep.Number)
				if err != nil {
					iface.Close()
					cfg.Close()
					dev.Close()
					return nil, fmt.Errorf("failed to open endpoint %d: %w", ep.Number, err)
				}

				return &gousbHandle{dev: dev, cfg: cfg, iface: iface, out: out}, nil
			}
		}
	}

	cfg.Close()
	dev.Close()
	return nil, fmt.Errorf("device %04x:%04x: %w", vendorID, productID, ErrNoPrinterEndpoint)
}

type gousbHandle struct {
	dev   *gousb.Device
	cfg   *gousb.Config
	iface *gousb.Interface
	out   *gousb.OutEndpoint
}

func (h *gousbHandle) Write(p []byte) (int, error) {
	return h.out.Write(p)
}

func (h *gousbHandle) Release() error {
	h.iface.Close()
	return h.cfg.Close()
}

func (h *gousbHandle) Close() error {
	return h.dev.Close()
}
