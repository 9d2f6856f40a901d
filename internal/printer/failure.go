package printer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"syscall"

	"github.com/google/gousb"
)

// Reason classifies why a print failed
type Reason string

const (
	ReasonPermission   Reason = "permission"
	ReasonConnectivity Reason = "connectivity"
	ReasonUnknown      Reason = "unknown"
)

var (
	// ErrInvalidRequest marks malformed print requests
	ErrInvalidRequest = errors.New("invalid print request")
	// ErrMissingPath is returned when a serial printer has no device path
	ErrMissingPath = errors.New("device path is missing")
)

// Failure is a classified print failure
type Failure struct {
	Reason Reason
	Err    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failure: %v", f.Reason, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// StatusCode maps the failure reason to an HTTP status
func (f *Failure) StatusCode() int {
	switch f.Reason {
	case ReasonPermission:
		return http.StatusForbidden
	case ReasonConnectivity:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Message is the text shown to the operator
func (f *Failure) Message() string {
	switch f.Reason {
	case ReasonPermission:
		return "Permission denied while accessing the printer. Check USB or serial port access rights."
	case ReasonConnectivity:
		return "Printer not reachable. Check that it is powered on and connected."
	}
	return "Failed to print receipt."
}

// Classify wraps err into a Failure with its reason
func Classify(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Reason: reasonOf(err), Err: err}
}

func reasonOf(err error) Reason {
	if errors.Is(err, os.ErrPermission) || errors.Is(err, gousb.ErrorAccess) {
		return ReasonPermission
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ReasonConnectivity
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonConnectivity
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, os.ErrNotExist),
		errors.Is(err, ErrMissingPath),
		errors.Is(err, gousb.ErrorNoDevice),
		errors.Is(err, gousb.ErrorNotFound),
		errors.Is(err, gousb.ErrorTimeout):
		return ReasonConnectivity
	}

	return ReasonUnknown
}
