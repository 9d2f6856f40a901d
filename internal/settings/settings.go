// Package settings holds the application settings consumed by the print path
package settings

import (
	"context"
)

// PrintMethod selects the active transport driver
type PrintMethod string

const (
	MethodHTML      PrintMethod = "html"
	MethodWebUSB    PrintMethod = "webusb"
	MethodNetwork   PrintMethod = "network"
	MethodBluetooth PrintMethod = "bluetooth"
)

// DefaultPrintServerURL is where the network driver posts when nothing is configured
const DefaultPrintServerURL = "http://localhost:12212"

// NetworkPrinter addresses a TCP printer behind the print server
type NetworkPrinter struct {
	IP   string `json:"ip"`
	Port int    `json:"port"`
}

// Complete reports whether both ip and port are set
func (n *NetworkPrinter) Complete() bool {
	return n != nil && n.IP != "" && n.Port > 0
}

// AppSettings is the subset of application settings relevant to printing
type AppSettings struct {
	PrintMethod    PrintMethod     `json:"printMethod"`
	NetworkPrinter *NetworkPrinter `json:"networkPrinter,omitempty"`
	PrintServerURL string          `json:"printServerUrl,omitempty"`

	// Server-side endpoint path
	PosPrinterType string `json:"posPrinterType,omitempty"`
	PosPrinterHost string `json:"posPrinterHost,omitempty"`
	PosPrinterPort int    `json:"posPrinterPort,omitempty"`
}

// Defaults returns the settings used before anything is saved
func Defaults() AppSettings {
	return AppSettings{
		PrintMethod:    MethodHTML,
		PrintServerURL: DefaultPrintServerURL,
	}
}

// ServerURL returns the configured print server URL or the default
func (s AppSettings) ServerURL() string {
	if s.PrintServerURL == "" {
		return DefaultPrintServerURL
	}
	return s.PrintServerURL
}

// Store loads and saves settings
type Store interface {
	Load(ctx context.Context) (AppSettings, error)
	Save(ctx context.Context, s AppSettings) error
}

// Static is a read-only Store returning fixed settings
type Static AppSettings

// Load returns the fixed settings
func (s Static) Load(ctx context.Context) (AppSettings, error) {
	return AppSettings(s), nil
}

// Save is not supported on static settings and is a no-op
func (s Static) Save(ctx context.Context, _ AppSettings) error {
	return nil
}
