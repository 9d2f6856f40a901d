package printer

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/gousb"

	"github.com/storekit/thermalprint/pkg/receipt"
)

// Connection is an open link to a hardware printer
type Connection interface {
	io.Writer
	Close() error
}

// Opener opens a connection for a print target
type Opener interface {
	Open(ctx context.Context, target receipt.PrinterTarget) (Connection, error)
}

// Dialer opens TCP, USB and serial printer connections
type Dialer struct {
	ConnectTimeout  time.Duration
	DefaultBaudRate int

	usbOnce sync.Once
	usb     *gousb.Context
}

// NewDialer creates a dialer. USB support is initialized lazily on first use.
func NewDialer(connectTimeout time.Duration, defaultBaudRate int) *Dialer {
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	if defaultBaudRate <= 0 {
		defaultBaudRate = 9600
	}
	return &Dialer{ConnectTimeout: connectTimeout, DefaultBaudRate: defaultBaudRate}
}

// ValidateTarget checks that the options required by the printer type are present.
// A missing serial path is reported when opening, as a connectivity failure.
func ValidateTarget(target receipt.PrinterTarget) error {
	opts := target.Options

	switch target.Type {
	case receipt.PrinterTCP:
		if opts.Host == "" || opts.Port <= 0 || opts.Port > 65535 {
			return fmt.Errorf("%w: tcp printers need host and port", ErrInvalidRequest)
		}
	case receipt.PrinterUSB:
		if opts.VendorID == 0 || opts.ProductID == 0 {
			return fmt.Errorf("%w: usb printers need vendorId and productId", ErrInvalidRequest)
		}
	case receipt.PrinterSerial:
	default:
		return fmt.Errorf("%w: unsupported printer type %q", ErrInvalidRequest, target.Type)
	}
	return nil
}

// Open connects to the printer described by target
func (d *Dialer) Open(ctx context.Context, target receipt.PrinterTarget) (Connection, error) {
	if err := ValidateTarget(target); err != nil {
		return nil, err
	}
	opts := target.Options

	switch target.Type {
	case receipt.PrinterTCP:
		return ConnectNetwork(ctx, opts.Host, opts.Port, d.ConnectTimeout)
	case receipt.PrinterUSB:
		return ConnectUSB(d.usbContext(), opts.VendorID, opts.ProductID)
	case receipt.PrinterSerial:
		if opts.Path == "" {
			return nil, fmt.Errorf("serial printer path: %w", ErrMissingPath)
		}
		baud := opts.BaudRate
		if baud <= 0 {
			baud = d.DefaultBaudRate
		}
		return ConnectSerial(opts.Path, baud)
	}
	return nil, fmt.Errorf("%w: unsupported printer type %q", ErrInvalidRequest, target.Type)
}

func (d *Dialer) usbContext() *gousb.Context {
	d.usbOnce.Do(func() {
		d.usb = gousb.NewContext()
	})
	return d.usb
}

// Close releases the USB context if one was created
func (d *Dialer) Close() error {
	if d.usb == nil {
		return nil
	}
	return d.usb.Close()
}
