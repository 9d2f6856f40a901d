package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/storekit/thermalprint/internal/api"
	"github.com/storekit/thermalprint/internal/config"
	"github.com/storekit/thermalprint/internal/logging"
	"github.com/storekit/thermalprint/internal/metrics"
	"github.com/storekit/thermalprint/internal/preview"
	"github.com/storekit/thermalprint/internal/printer"
	"github.com/storekit/thermalprint/internal/tui"
)

// Version is set during build via ldflags
var Version = "dev"

const dashboardLogFile = "./data/thermalprint.log"

func main() {
	configFile := flag.String("config", "", "path to config file")
	dashboard := flag.Bool("tui", false, "show the terminal dashboard")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// The dashboard owns the terminal, so console logs move to a file
	if *dashboard && (cfg.Logging.Output == "stdout" || cfg.Logging.Output == "stderr") {
		cfg.Logging.Output = dashboardLogFile
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger, *dashboard); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger, withDashboard bool) error {
	jobs := printer.NewJobLog(0)

	var dash *tui.Dashboard
	if withDashboard {
		dash = tui.NewDashboard(jobs, cfg.Server.Addr())
		logger = logging.Tee(logger, dash.LogWriter())
	}

	logger.Info("print server starting", zap.String("version", Version))

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	dialer := printer.NewDialer(cfg.Printer.ConnectTimeout, cfg.Printer.DefaultBaudRate)
	defer dialer.Close()

	service := printer.NewService(dialer, jobs, cfg.Printer.Width, m, logger)

	renderer, err := preview.New(cfg.Printer.Width)
	if err != nil {
		return fmt.Errorf("failed to create preview renderer: %w", err)
	}

	server := api.NewServer(api.Options{
		Service: service,
		Devices: dialer.Devices,
		Preview: renderer,
		Metrics: m,
		Logger:  logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Printer.MonitorInterval > 0 {
		monitor := printer.NewMonitor(dialer.Devices, cfg.Printer.MonitorInterval, logger)
		monitor.OnAdded(func(dev printer.Device) {
			server.Hub().BroadcastPrinterAdded(dev)
			if dash != nil {
				dash.PrinterAdded(dev)
			}
		})
		monitor.OnRemoved(func(dev printer.Device) {
			server.Hub().BroadcastPrinterRemoved(dev)
			if dash != nil {
				dash.PrinterRemoved(dev)
			}
		})
		monitor.Start(ctx)
		defer monitor.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run(cfg.Server.Addr())
	}()

	dashDone := make(chan error, 1)
	if dash != nil {
		go func() {
			dashDone <- dash.Run()
		}()
	}

	select {
	case err := <-errCh:
		if dash != nil {
			dash.Stop()
		}
		return err
	case err := <-dashDone:
		if err != nil {
			logger.Error("dashboard stopped", zap.Error(err))
		}
	case <-ctx.Done():
		if dash != nil {
			dash.Stop()
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
