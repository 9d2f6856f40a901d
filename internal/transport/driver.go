// Package transport delivers receipts to printers over USB, an HTTP print
// server, Bluetooth GATT, or an HTML print document
package transport

import (
	"context"
	"fmt"

	"github.com/storekit/thermalprint/internal/settings"
	"github.com/storekit/thermalprint/pkg/receipt"
)

// Transport names
const (
	NameUSB       = "usb"
	NameNetwork   = "network"
	NameBluetooth = "bluetooth"
	NameHTML      = "html"
)

// Driver prints a receipt over one transport
type Driver interface {
	Name() string
	Print(ctx context.Context, r *receipt.Data, s settings.AppSettings) error
}

// Connector is implemented by drivers that hold a device connection
type Connector interface {
	RequestAndConnect(ctx context.Context) ConnectResult
	Disconnect() error
	Connected() *ConnectedPrinter
}

// Outcome of a discovery attempt
type Outcome int

const (
	// Declined means nothing was chosen or no matching device is present
	Declined Outcome = iota
	// Connected means a printer is open and ready
	Connected
	// Failed means a device was chosen but could not be opened
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return "declined"
	}
}

// ConnectResult is returned by discovery. Discovery never returns an error
// directly; device failures are reported as a Failed outcome.
type ConnectResult struct {
	Outcome Outcome
	Printer *ConnectedPrinter
	Err     error
}

// OK reports whether a printer was connected
func (r ConnectResult) OK() bool {
	return r.Outcome == Connected && r.Printer != nil
}

func connected(p *ConnectedPrinter) ConnectResult {
	return ConnectResult{Outcome: Connected, Printer: p}
}

func declined() ConnectResult {
	return ConnectResult{Outcome: Declined}
}

func failed(err error) ConnectResult {
	return ConnectResult{Outcome: Failed, Err: err}
}

// ConnectedPrinter describes the device a driver currently holds
type ConnectedPrinter struct {
	ProductName string `json:"productName"`
	Transport   string `json:"transport"`
	VendorID    uint16 `json:"vendorId,omitempty"`
	ProductID   uint16 `json:"productId,omitempty"`
	Address     string `json:"address,omitempty"`
	IP          string `json:"ip,omitempty"`
	Port        int    `json:"port,omitempty"`
}

func (p *ConnectedPrinter) String() string {
	switch p.Transport {
	case NameUSB:
		return fmt.Sprintf("%s (%04x:%04x)", p.ProductName, p.VendorID, p.ProductID)
	case NameBluetooth:
		return fmt.Sprintf("%s (%s)", p.ProductName, p.Address)
	case NameNetwork:
		return fmt.Sprintf("%s:%d", p.IP, p.Port)
	}
	return p.ProductName
}
