// Package printer implements the print endpoint: it opens TCP, USB or serial
// printers, encodes order payloads and classifies failures
package printer

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/storekit/thermalprint/internal/metrics"
	"github.com/storekit/thermalprint/pkg/receipt"
)

// Service handles print requests
type Service struct {
	opener  Opener
	width   int
	jobs    *JobLog
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewService creates a print service. m may be nil.
func NewService(opener Opener, jobs *JobLog, width int, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		opener:  opener,
		width:   width,
		jobs:    jobs,
		metrics: m,
		logger:  logger.Named("printer"),
	}
}

// Jobs returns the job log
func (s *Service) Jobs() *JobLog {
	return s.jobs
}

// Print encodes the order, writes it to the target printer and records the job.
// Request validation errors wrap ErrInvalidRequest and are not recorded.
// Every other error is a *Failure.
func (s *Service) Print(ctx context.Context, req *receipt.PrintRequest) (Job, error) {
	family, err := ResolveFamily(req.Printer)
	if err != nil {
		return Job{}, err
	}
	if err := ValidateTarget(req.Printer); err != nil {
		return Job{}, err
	}
	if err := receipt.ValidateOrder(&req.Data); err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	data, err := NewTemplateEncoder(family, s.width).Encode(&req.Data)
	if err != nil {
		return Job{}, err
	}

	job := s.jobs.Start(req.Printer.Type, describeTarget(req.Printer), req.Data.OrderID)
	logger := s.logger.With(
		zap.String("job", job.ID),
		zap.String("type", req.Printer.Type),
		zap.String("target", job.Target),
		zap.String("family", string(family)),
	)

	start := time.Now()
	written, err := s.write(ctx, req.Printer, data)

	var failure *Failure
	if err != nil {
		failure = Classify(err)
		logger.Error("print failed", zap.String("reason", string(failure.Reason)), zap.Error(err))
	} else {
		logger.Info("order printed", zap.Int("bytes", written))
	}

	s.jobs.Finish(job.ID, family, written, failure)
	s.metrics.ObserveJob(req.Printer.Type, reasonLabel(failure), time.Since(start), written)

	if done := s.jobs.Get(job.ID); done != nil {
		job = *done
	}
	if failure != nil {
		return job, failure
	}
	return job, nil
}

func (s *Service) write(ctx context.Context, target receipt.PrinterTarget, data []byte) (int, error) {
	conn, err := s.opener.Open(ctx, target)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to printer: %w", err)
	}

	n, err := conn.Write(data)
	if err == nil && n < len(data) {
		err = io.ErrShortWrite
	}
	closeErr := conn.Close()

	if err != nil {
		return n, fmt.Errorf("failed to write to printer: %w", err)
	}
	if closeErr != nil {
		s.logger.Warn("failed to close printer connection", zap.Error(closeErr))
	}
	return n, nil
}

func describeTarget(t receipt.PrinterTarget) string {
	switch t.Type {
	case receipt.PrinterTCP:
		return net.JoinHostPort(t.Options.Host, strconv.Itoa(t.Options.Port))
	case receipt.PrinterUSB:
		return fmt.Sprintf("%04x:%04x", t.Options.VendorID, t.Options.ProductID)
	case receipt.PrinterSerial:
		return t.Options.Path
	}
	return t.Type
}

func reasonLabel(f *Failure) string {
	if f == nil {
		return ""
	}
	return string(f.Reason)
}
