package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/storekit/thermalprint/internal/registry"
	"github.com/storekit/thermalprint/internal/selector"
	"github.com/storekit/thermalprint/internal/settings"
	"github.com/storekit/thermalprint/internal/transport"
	"github.com/storekit/thermalprint/pkg/receipt"
)

func (e *Executor) handlePrint(ctx context.Context, args []string) *Result {
	if len(args) < 1 {
		return fail("usage: print <receipt-path>")
	}

	r, err := receipt.ParseFile(args[0])
	if err != nil {
		return fail("%v", err)
	}

	s, err := e.store.Load(ctx)
	if err != nil {
		return fail("failed to load settings: %v", err)
	}

	// Device transports need an open connection before printing. A declined
	// discovery is left to the driver, which reports that no printer is connected.
	var printerName string
	if conn, res := e.ensureConnected(ctx, s.PrintMethod); res != nil {
		return res
	} else if conn != nil {
		printerName = conn.String()
	}

	if err := e.selector.PrintReceipt(ctx, r); err != nil {
		var pe *selector.PrintError
		if errors.As(err, &pe) {
			return fail("%s", pe.Message)
		}
		return fail("%v", err)
	}

	data := map[string]any{
		"method":  string(s.PrintMethod),
		"invoice": r.ShortInvoiceID(),
	}
	if printerName != "" {
		data["printer"] = printerName
	}
	return ok("Receipt printed", data)
}

// ensureConnected connects the USB or Bluetooth driver when the method needs one.
// It returns a failing Result only when a chosen device could not be opened.
func (e *Executor) ensureConnected(ctx context.Context, method settings.PrintMethod) (*transport.ConnectedPrinter, *Result) {
	var res transport.ConnectResult

	switch method {
	case settings.MethodWebUSB:
		if e.usb == nil {
			return nil, nil
		}
		res = e.usb.GetConnectedPrinter(ctx)
		if res.Outcome == transport.Declined {
			res = e.usb.RequestAndConnect(ctx)
		}
	case settings.MethodBluetooth:
		if e.bluetooth == nil {
			return nil, nil
		}
		if p := e.bluetooth.Connected(); p != nil {
			return p, nil
		}
		res = e.bluetooth.RequestAndConnect(ctx)
	default:
		return nil, nil
	}

	if res.Outcome == transport.Failed {
		return nil, fail("failed to connect printer: %v", res.Err)
	}
	return res.Printer, nil
}

func (e *Executor) handleEncode(args []string) *Result {
	if len(args) < 2 {
		return fail("usage: encode <receipt-path> <output-path>")
	}

	r, err := receipt.ParseFile(args[0])
	if err != nil {
		return fail("%v", err)
	}
	if err := receipt.Validate(r); err != nil {
		return fail("%v", err)
	}

	data := e.encoder.Encode(r)
	if err := os.WriteFile(args[1], data, 0644); err != nil {
		return fail("failed to write %s: %v", args[1], err)
	}
	return ok(fmt.Sprintf("Wrote %d bytes to %s", len(data), args[1]), map[string]any{"bytes": len(data)})
}

func (e *Executor) handlePreview(args []string) *Result {
	if len(args) < 2 {
		return fail("usage: preview <receipt-path> <output.png>")
	}
	if e.preview == nil {
		return fail("preview is not available")
	}

	r, err := receipt.ParseFile(args[0])
	if err != nil {
		return fail("%v", err)
	}

	f, err := os.Create(args[1])
	if err != nil {
		return fail("failed to create %s: %v", args[1], err)
	}
	defer f.Close()

	if err := e.preview.WritePNG(f, r); err != nil {
		return fail("%v", err)
	}
	return ok("Preview written to "+args[1], nil)
}

func (e *Executor) handleConnect(ctx context.Context, args []string) *Result {
	if len(args) < 1 {
		return fail("usage: connect <usb|bluetooth>")
	}

	var res transport.ConnectResult
	switch args[0] {
	case transport.NameUSB:
		if e.usb == nil {
			return fail("usb is not available")
		}
		res = e.usb.RequestAndConnect(ctx)
	case transport.NameBluetooth:
		if e.bluetooth == nil {
			return fail("bluetooth is not available")
		}
		res = e.bluetooth.RequestAndConnect(ctx)
	default:
		return fail("unknown transport: %s", args[0])
	}

	switch res.Outcome {
	case transport.Connected:
		return ok("Connected to "+res.Printer.String(), map[string]any{"printer": res.Printer})
	case transport.Failed:
		return fail("failed to connect printer: %v", res.Err)
	default:
		return ok("No printer selected", nil)
	}
}

func (e *Executor) handleDisconnect() *Result {
	var errs []error
	if e.usb != nil {
		errs = append(errs, e.usb.Disconnect())
	}
	if e.bluetooth != nil {
		errs = append(errs, e.bluetooth.Disconnect())
	}
	if err := errors.Join(errs...); err != nil {
		return fail("%v", err)
	}
	return ok("Disconnected", nil)
}

func (e *Executor) handlePrinter(args []string) *Result {
	if len(args) == 0 {
		return fail("usage: printer <list|rename|forget>")
	}
	if e.registry == nil {
		return fail("device registry is not available")
	}

	switch args[0] {
	case "list":
		kind := ""
		if len(args) > 1 {
			kind = args[1]
			if kind != registry.KindUSB && kind != registry.KindBluetooth {
				return fail("unknown device kind: %s", kind)
			}
		}
		devices := e.registry.Authorized(kind)
		return ok(fmt.Sprintf("%d authorized printer(s)", len(devices)), map[string]any{"printers": devices})

	case "rename":
		if len(args) < 3 {
			return fail("usage: printer rename <id> <name>")
		}
		found, err := e.registry.SetLabel(args[1], args[2])
		if err != nil {
			return fail("failed to save registry: %v", err)
		}
		if !found {
			return fail("printer not found: %s", args[1])
		}
		return ok("Printer renamed", map[string]any{"printer_id": args[1]})

	case "forget":
		if len(args) < 2 {
			return fail("usage: printer forget <id>")
		}
		found, err := e.registry.Revoke(args[1])
		if err != nil {
			return fail("failed to save registry: %v", err)
		}
		if !found {
			return fail("printer not found: %s", args[1])
		}
		return ok("Printer forgotten", map[string]any{"printer_id": args[1]})

	default:
		return fail("unknown printer subcommand: %s", args[0])
	}
}

func (e *Executor) handleSettings(ctx context.Context, args []string) *Result {
	s, err := e.store.Load(ctx)
	if err != nil {
		return fail("failed to load settings: %v", err)
	}

	if len(args) == 0 || args[0] == "show" {
		return ok("", map[string]any{"settings": s})
	}

	switch args[0] {
	case "method":
		if len(args) < 2 {
			return fail("usage: settings method <html|webusb|network|bluetooth>")
		}
		method := settings.PrintMethod(args[1])
		switch method {
		case settings.MethodHTML, settings.MethodWebUSB, settings.MethodNetwork, settings.MethodBluetooth:
		default:
			return fail("unknown print method: %s", args[1])
		}
		s.PrintMethod = method

	case "network":
		if len(args) < 3 {
			return fail("usage: settings network <ip> <port>")
		}
		port, err := strconv.Atoi(args[2])
		if err != nil || port <= 0 || port > 65535 {
			return fail("invalid port: %s", args[2])
		}
		s.NetworkPrinter = &settings.NetworkPrinter{IP: args[1], Port: port}

	case "server":
		if len(args) < 2 {
			return fail("usage: settings server <url>")
		}
		s.PrintServerURL = args[1]

	default:
		return fail("unknown settings subcommand: %s", args[0])
	}

	if err := e.store.Save(ctx, s); err != nil {
		return fail("failed to save settings: %v", err)
	}
	return ok("Settings saved", map[string]any{"settings": s})
}

func (e *Executor) handleHelp() *Result {
	help := `Available commands:

  print <receipt-path>                Print a receipt with the configured method
  encode <receipt-path> <output>      Write the ESC/POS bytes of a receipt to a file
  preview <receipt-path> <out.png>    Render a PNG preview of a receipt
  connect <usb|bluetooth>             Choose and connect a printer
  disconnect                          Close open printer connections
  printer list [usb|bluetooth]        List authorized printers
  printer rename <id> <name>          Set a custom name for a printer
  printer forget <id>                 Remove a printer authorization
  settings [show]                     Show print settings
  settings method <method>            Set the print method (html, webusb, network, bluetooth)
  settings network <ip> <port>        Set the network printer address
  settings server <url>               Set the print server URL
  help                                Show this help`

	return ok(help, nil)
}
