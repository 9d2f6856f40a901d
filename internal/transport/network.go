package transport

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/storekit/thermalprint/internal/settings"
	"github.com/storekit/thermalprint/pkg/receipt"
)

// printPath is the print server endpoint
const printPath = "/api/print"

// NetworkDriver forwards receipts to the print server, which writes them to a TCP printer
type NetworkDriver struct {
	client *resty.Client
	logger *zap.Logger
}

// NewNetworkDriver creates a network driver
func NewNetworkDriver(opts ...Option) *NetworkDriver {
	o := buildOptions(opts)
	client := resty.New().
		SetHeader("Content-Type", "application/json").
		SetTimeout(o.httpTimeout)

	return &NetworkDriver{
		client: client,
		logger: o.logger.Named("network"),
	}
}

// Name returns the transport name
func (d *NetworkDriver) Name() string {
	return NameNetwork
}

// Print posts the receipt together with the printer address. Settings
// without an IP or port fail before any request is made.
func (d *NetworkDriver) Print(ctx context.Context, r *receipt.Data, s settings.AppSettings) error {
	np := s.NetworkPrinter
	if np == nil || np.IP == "" {
		return &ConfigError{Field: "networkPrinter.ip", Reason: "is required"}
	}
	if np.Port <= 0 {
		return &ConfigError{Field: "networkPrinter.port", Reason: "is required"}
	}

	body := receipt.PrintRequest{
		Printer: receipt.PrinterTarget{
			Type:    receipt.PrinterTCP,
			Options: receipt.PrinterOptions{Host: np.IP, Port: np.Port},
		},
		Data: receipt.OrderFromData(r),
	}

	var result, apiErr receipt.PrintResponse
	url := strings.TrimRight(s.ServerURL(), "/") + printPath
	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		SetError(&apiErr).
		Post(url)
	if err != nil {
		return &TransportError{Transport: NameNetwork, Err: err}
	}

	if resp.IsError() {
		d.logger.Warn("print server rejected receipt",
			zap.Int("status", resp.StatusCode()),
			zap.String("message", apiErr.Message))
		return &RemoteError{StatusCode: resp.StatusCode(), Message: apiErr.Message}
	}

	d.logger.Debug("receipt forwarded",
		zap.String("printer", np.IP),
		zap.Int("port", np.Port),
		zap.String("message", result.Message))
	return nil
}
