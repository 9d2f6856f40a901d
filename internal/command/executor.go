// Package command runs the client-side print commands: printing through the
// selected driver, device authorization and settings changes
package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/storekit/thermalprint/internal/escpos"
	"github.com/storekit/thermalprint/internal/preview"
	"github.com/storekit/thermalprint/internal/registry"
	"github.com/storekit/thermalprint/internal/selector"
	"github.com/storekit/thermalprint/internal/settings"
	"github.com/storekit/thermalprint/internal/transport"
)

// Deps are the collaborators of an Executor. USB, Bluetooth and Preview may be nil.
type Deps struct {
	Store     settings.Store
	Registry  *registry.Registry
	Selector  *selector.Selector
	USB       *transport.USBDriver
	Bluetooth *transport.BluetoothDriver
	Encoder   *escpos.Encoder
	Preview   *preview.Renderer
}

// Executor executes commands
type Executor struct {
	store     settings.Store
	registry  *registry.Registry
	selector  *selector.Selector
	usb       *transport.USBDriver
	bluetooth *transport.BluetoothDriver
	encoder   *escpos.Encoder
	preview   *preview.Renderer
}

// NewExecutor creates a new command executor
func NewExecutor(d Deps) *Executor {
	enc := d.Encoder
	if enc == nil {
		enc = escpos.NewEncoder()
	}
	return &Executor{
		store:     d.Store,
		registry:  d.Registry,
		selector:  d.Selector,
		usb:       d.USB,
		bluetooth: d.Bluetooth,
		encoder:   enc,
		preview:   d.Preview,
	}
}

// Result represents the result of executing a command
type Result struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func ok(message string, data map[string]any) *Result {
	return &Result{Success: true, Message: message, Data: data}
}

func fail(format string, args ...any) *Result {
	return &Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Execute parses a command string and runs it
func (e *Executor) Execute(ctx context.Context, cmdStr string) *Result {
	return e.Run(ctx, parseCommand(cmdStr))
}

// Run runs an already split command
func (e *Executor) Run(ctx context.Context, parts []string) *Result {
	if len(parts) == 0 {
		return fail("empty command")
	}

	command := parts[0]
	args := parts[1:]

	switch command {
	case "print":
		return e.handlePrint(ctx, args)
	case "encode":
		return e.handleEncode(args)
	case "preview":
		return e.handlePreview(args)
	case "connect":
		return e.handleConnect(ctx, args)
	case "disconnect":
		return e.handleDisconnect()
	case "printer":
		return e.handlePrinter(args)
	case "settings":
		return e.handleSettings(ctx, args)
	case "help":
		return e.handleHelp()
	default:
		return fail("unknown command: %s. Type 'help' for available commands", command)
	}
}

// parseCommand splits a command string into parts, handling quoted strings
func parseCommand(cmdStr string) []string {
	cmdStr = strings.TrimSpace(cmdStr)
	if cmdStr == "" {
		return nil
	}

	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := byte(0)

	for i := 0; i < len(cmdStr); i++ {
		char := cmdStr[i]

		switch {
		case (char == '"' || char == '\'') && !inQuotes:
			inQuotes = true
			quoteChar = char
		case inQuotes && char == quoteChar:
			inQuotes = false
			quoteChar = 0
		case char == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteByte(char)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}
