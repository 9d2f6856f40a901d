package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/storekit/thermalprint/internal/command"
	"github.com/storekit/thermalprint/internal/config"
	"github.com/storekit/thermalprint/internal/escpos"
	"github.com/storekit/thermalprint/internal/logging"
	"github.com/storekit/thermalprint/internal/preview"
	"github.com/storekit/thermalprint/internal/registry"
	"github.com/storekit/thermalprint/internal/selector"
	"github.com/storekit/thermalprint/internal/settings"
	"github.com/storekit/thermalprint/internal/transport"
	"github.com/storekit/thermalprint/internal/tui"
)

func main() {
	configFile := flag.String("config", "", "path to config file")
	autoSelect := flag.Bool("y", false, "pick the first discovered printer without prompting")
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Interactive output goes to the terminal, so logs default to stderr
	if cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	exec, cleanup, err := newExecutor(cfg, logger, *autoSelect)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	result := exec.Run(ctx, flag.Args())
	cleanup()

	if result.Success {
		printSuccess(result)
		return
	}
	printError(result)
	os.Exit(1)
}

// newExecutor wires the settings store, device registry and the four drivers
func newExecutor(cfg *config.Config, logger *zap.Logger, autoSelect bool) (*command.Executor, func(), error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	reg, err := registry.New(cfg.Registry.Path)
	if err != nil {
		return nil, nil, err
	}

	encOpts := []escpos.Option{escpos.WithWidth(cfg.Printer.Width)}
	if cfg.Printer.CodePage != "" {
		cp, err := escpos.LookupCodePage(cfg.Printer.CodePage)
		if err != nil {
			return nil, nil, err
		}
		encOpts = append(encOpts, escpos.WithCodePage(cp))
	}
	enc := escpos.NewEncoder(encOpts...)

	opts := []transport.Option{
		transport.WithLogger(logger),
		transport.WithEncoder(enc),
		transport.WithRegistry(reg),
		transport.WithHTTPTimeout(cfg.Network.Timeout),
	}

	usbBackend := transport.NewGousbBackend()
	usb := transport.NewUSBDriver(usbBackend, usbChooser(autoSelect), opts...)
	bt := transport.NewBluetoothDriver(transport.NewTinygoBackend(cfg.Printer.BluetoothScan), bluetoothChooser(autoSelect), opts...)

	drivers := selector.Drivers{
		USB:       usb,
		Network:   transport.NewNetworkDriver(opts...),
		Bluetooth: bt,
		HTML:      transport.NewHTMLDriver(transport.SpoolSink{Dir: cfg.Spool.Dir}, opts...),
	}

	renderer, err := preview.New(cfg.Printer.Width)
	if err != nil {
		return nil, nil, err
	}

	exec := command.NewExecutor(command.Deps{
		Store:     store,
		Registry:  reg,
		Selector:  selector.New(drivers, store, nil, logger),
		USB:       usb,
		Bluetooth: bt,
		Encoder:   enc,
		Preview:   renderer,
	})

	cleanup := func() {
		if err := usb.Disconnect(); err != nil {
			logger.Warn("usb disconnect failed", zap.Error(err))
		}
		if err := bt.Disconnect(); err != nil {
			logger.Warn("bluetooth disconnect failed", zap.Error(err))
		}
		usbBackend.Close()
	}
	return exec, cleanup, nil
}

func openStore(cfg *config.Config) (settings.Store, error) {
	if cfg.Settings.Backend == config.BackendPostgres {
		return settings.OpenPostgres(cfg.Database.DSN)
	}
	return settings.NewFileStore(cfg.Settings.Path), nil
}

func usbChooser(auto bool) transport.Chooser {
	return func(ctx context.Context, candidates []transport.USBDeviceInfo) (transport.USBDeviceInfo, bool) {
		labels := make([]string, len(candidates))
		for i, c := range candidates {
			labels[i] = fmt.Sprintf("%s (%04x:%04x)", c.ProductName, c.VendorID, c.ProductID)
		}
		i, ok := choose(labels, auto)
		if !ok {
			return transport.USBDeviceInfo{}, false
		}
		return candidates[i], true
	}
}

func bluetoothChooser(auto bool) transport.BluetoothChooser {
	return func(ctx context.Context, candidates []transport.BluetoothDeviceInfo) (transport.BluetoothDeviceInfo, bool) {
		labels := make([]string, len(candidates))
		for i, c := range candidates {
			labels[i] = fmt.Sprintf("%s (%s)", c.Name, c.Address)
		}
		i, ok := choose(labels, auto)
		if !ok {
			return transport.BluetoothDeviceInfo{}, false
		}
		return candidates[i], true
	}
}

// choose asks the user to pick one of labels. Cancelling declines.
func choose(labels []string, auto bool) (int, bool) {
	if len(labels) == 0 {
		return 0, false
	}
	if auto {
		return 0, true
	}

	i, ok, err := tui.Pick("Select a printer", labels, os.Stdin, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, tui.ErrorStyle.Render(err.Error()))
		return 0, false
	}
	return i, ok
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Thermal receipt printing CLI

Usage:
  thermalprint [flags] <command>

Flags:
  -config <path>    Config file (default: ./config.yaml)
  -y                Pick the first discovered printer without prompting

Commands:
  print <receipt.json>                Print with the configured method
  encode <receipt.json> <out.bin>     Write the ESC/POS bytes to a file
  preview <receipt.json> <out.png>    Render a PNG preview
  connect <usb|bluetooth>             Choose and authorize a printer
  printer list [usb|bluetooth]        List authorized printers
  printer rename <id> <name>          Name an authorized printer
  printer forget <id>                 Remove an authorization
  settings [show]                     Show print settings
  settings method <method>            html, webusb, network or bluetooth
  settings network <ip> <port>        Network printer address
  settings server <url>               Print server URL
  help                                Show command help

Examples:
  thermalprint settings method network
  thermalprint settings network 192.168.1.100 9100
  thermalprint print ./receipt.json
  thermalprint -y connect usb
  thermalprint printer rename usb-04b8-0e15 "Front Desk"
`)
}

func printSuccess(result *command.Result) {
	if result.Message != "" {
		fmt.Println(tui.SuccessStyle.Render(result.Message))
	}
	if len(result.Data) == 0 {
		return
	}

	if devices, ok := result.Data["printers"].([]registry.Device); ok {
		for _, d := range devices {
			name := d.Label
			if name == "" {
				name = d.Description
			}
			fmt.Printf("  %s: %s %s\n", d.ID, name, tui.MutedStyle.Render("("+d.Kind+")"))
		}
		return
	}

	if s, ok := result.Data["settings"]; ok {
		out, _ := json.MarshalIndent(s, "", "  ")
		fmt.Println(string(out))
	}
}

func printError(result *command.Result) {
	if result.Error != "" {
		fmt.Fprintln(os.Stderr, tui.ErrorStyle.Render("Error: "+result.Error))
	} else if result.Message != "" {
		fmt.Fprintln(os.Stderr, tui.WarningStyle.Render(result.Message))
	}
}
