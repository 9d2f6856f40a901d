// Package selector picks the transport driver for the configured print method
// and runs a print through it
package selector

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/storekit/thermalprint/internal/metrics"
	"github.com/storekit/thermalprint/internal/settings"
	"github.com/storekit/thermalprint/internal/transport"
	"github.com/storekit/thermalprint/pkg/receipt"
)

// Drivers holds one instance of each transport driver
type Drivers struct {
	USB       transport.Driver
	Network   transport.Driver
	Bluetooth transport.Driver
	HTML      transport.Driver
}

// Selector maps settings to drivers
type Selector struct {
	drivers Drivers
	store   settings.Store
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// New creates a selector over the given drivers and settings store.
// metrics may be nil.
func New(drivers Drivers, store settings.Store, m *metrics.Metrics, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{
		drivers: drivers,
		store:   store,
		metrics: m,
		logger:  logger.Named("selector"),
	}
}

// GetDriver returns the driver for s.PrintMethod. Unknown or unset methods
// fall back to the HTML driver.
func (sel *Selector) GetDriver(s settings.AppSettings) transport.Driver {
	switch s.PrintMethod {
	case settings.MethodWebUSB:
		return sel.drivers.USB
	case settings.MethodNetwork:
		return sel.drivers.Network
	case settings.MethodBluetooth:
		return sel.drivers.Bluetooth
	default:
		return sel.drivers.HTML
	}
}

// PrintReceipt loads the current settings, selects a driver and prints r.
// Any failure is returned as a *PrintError. There are no retries.
func (sel *Selector) PrintReceipt(ctx context.Context, r *receipt.Data) error {
	s, err := sel.store.Load(ctx)
	if err != nil {
		return &PrintError{Message: "Could not load printer settings.", Err: err}
	}

	if err := receipt.Validate(r); err != nil {
		return &PrintError{Message: "The receipt is incomplete.", Err: err}
	}

	driver := sel.GetDriver(s)
	logger := sel.logger.With(zap.String("driver", driver.Name()), zap.String("invoice", r.ShortInvoiceID()))

	err = driver.Print(ctx, r, s)
	sel.metrics.ObservePrint(driver.Name(), err)
	if err != nil {
		logger.Error("print failed", zap.Error(err))
		return &PrintError{Message: userMessage(err), Err: err}
	}

	logger.Info("receipt printed")
	return nil
}

// PrintError is the single user-visible failure of a print attempt
type PrintError struct {
	Message string
	Err     error
}

func (e *PrintError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *PrintError) Unwrap() error {
	return e.Err
}

func userMessage(err error) string {
	var (
		configErr    *transport.ConfigError
		remoteErr    *transport.RemoteError
		transportErr *transport.TransportError
	)

	switch {
	case errors.Is(err, transport.ErrNotConnected):
		return "No printer connected. Connect a printer and try again."
	case errors.As(err, &configErr):
		return "Network printer IP and port are not configured."
	case errors.As(err, &remoteErr):
		if remoteErr.Message != "" {
			return remoteErr.Message
		}
		return fmt.Sprintf("The print server returned status %d.", remoteErr.StatusCode)
	case errors.As(err, &transportErr):
		return "Failed to send data to the printer."
	default:
		return "Printing failed."
	}
}
