package transport

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned by Print on a driver with no open device
var ErrNotConnected = errors.New("no printer connected")

// ConfigError reports missing or invalid settings, detected before any I/O
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("printer not configured: %s %s", e.Field, e.Reason)
}

// TransportError wraps an I/O failure while sending data to a device
type TransportError struct {
	Transport string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to send data to the printer: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteError is a non-2xx response from the print server
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("print server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("print server returned status %d: %s", e.StatusCode, e.Message)
}
