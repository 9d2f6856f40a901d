package printer

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/gousb"
	"go.bug.st/serial/enumerator"
)

// Device is a printer candidate attached to the host
type Device struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Path        string `json:"path,omitempty"`
	VendorID    uint16 `json:"vendorId,omitempty"`
	ProductID   uint16 `json:"productId,omitempty"`
	Serial      string `json:"serial,omitempty"`
}

// serialSkipPatterns excludes ports that are never printers
var serialSkipPatterns = []string{"Bluetooth", "Modem", "SPP", "DialIn", "Callout", "KeySerial", "debug-console"}

// ListSerialPorts enumerates serial ports, with USB details when the OS reports them
func ListSerialPorts() ([]Device, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	var devices []Device
	for _, port := range ports {
		if skipSerialPort(port.Name) {
			continue
		}

		dev := Device{
			ID:          "serial:" + port.Name,
			Type:        "serial",
			Path:        port.Name,
			Description: "Serial: " + filepath.Base(port.Name),
		}
		if port.IsUSB {
			dev.VendorID = parseHexID(port.VID)
			dev.ProductID = parseHexID(port.PID)
			dev.Serial = port.SerialNumber
			if port.Product != "" {
				dev.Description = fmt.Sprintf("Serial: %s (%s)", port.Product, filepath.Base(port.Name))
			}
		}
		devices = append(devices, dev)
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Path < devices[j].Path })
	return devices, nil
}

func skipSerialPort(name string) bool {
	for _, pattern := range serialSkipPatterns {
		if strings.Contains(name, pattern) {
			return true
		}
	}
	return false
}

func parseHexID(s string) uint16 {
	var v uint16
	if _, err := fmt.Sscanf(s, "%x", &v); err != nil {
		return 0
	}
	return v
}

// ListUSBPrinters enumerates USB devices exposing a printer-class interface
func ListUSBPrinters(usbCtx *gousb.Context) ([]Device, error) {
	devs, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return isPrinterClass(desc)
	})
	if err != nil && len(devs) == 0 {
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}

	var devices []Device
	for _, dev := range devs {
		desc := dev.Desc
		manufacturer, _ := dev.Manufacturer()
		product, _ := dev.Product()
		serial, _ := dev.SerialNumber()

		description := fmt.Sprintf("USB: %04X:%04X", desc.Vendor, desc.Product)
		if manufacturer != "" || product != "" {
			description = fmt.Sprintf("USB: %s %s (%04X:%04X)",
				manufacturer, product, desc.Vendor, desc.Product)
		}

		devices = append(devices, Device{
			ID:          fmt.Sprintf("usb:%04x:%04x", uint16(desc.Vendor), uint16(desc.Product)),
			Type:        "usb",
			Description: description,
			VendorID:    uint16(desc.Vendor),
			ProductID:   uint16(desc.Product),
			Serial:      serial,
		})
		dev.Close()
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices, nil
}

func isPrinterClass(desc *gousb.DeviceDesc) bool {
	if desc.Class == gousb.ClassPrinter {
		return true
	}
	for _, cfg := range desc.Configs {
		for _, iface := range cfg.Interfaces {
			for _, alt := range iface.AltSettings {
				if alt.Class == gousb.ClassPrinter {
					return true
				}
			}
		}
	}
	return false
}

// Devices lists attached USB printers and serial ports. A failure in one
// enumeration does not hide the results of the other.
func (d *Dialer) Devices(ctx context.Context) ([]Device, error) {
	var devices []Device

	usbDevices, usbErr := ListUSBPrinters(d.usbContext())
	devices = append(devices, usbDevices...)

	serialDevices, serialErr := ListSerialPorts()
	devices = append(devices, serialDevices...)

	if usbErr != nil && serialErr != nil {
		return nil, fmt.Errorf("%v; %w", usbErr, serialErr)
	}
	return devices, nil
}
