package printer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/storekit/thermalprint/internal/metrics"
	"github.com/storekit/thermalprint/pkg/receipt"
)

type fakeConn struct {
	buf      bytes.Buffer
	writeErr error
	closed   bool
}

func (c *fakeConn) Write(p []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	return c.buf.Write(p)
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type fakeOpener struct {
	conn    *fakeConn
	err     error
	targets []receipt.PrinterTarget
}

func (o *fakeOpener) Open(ctx context.Context, target receipt.PrinterTarget) (Connection, error) {
	o.targets = append(o.targets, target)
	if o.err != nil {
		return nil, o.err
	}
	return o.conn, nil
}

func newTestService(opener Opener) *Service {
	return NewService(opener, NewJobLog(0), 48, metrics.New(), zap.NewNop())
}

func tcpRequest() *receipt.PrintRequest {
	return &receipt.PrintRequest{
		Printer: receipt.PrinterTarget{Type: "tcp", Options: receipt.PrinterOptions{Host: "10.0.0.5", Port: 9100}},
		Data:    *sampleOrder(),
	}
}

func TestService_Print(t *testing.T) {
	opener := &fakeOpener{conn: &fakeConn{}}
	svc := newTestService(opener)

	job, err := svc.Print(context.Background(), tcpRequest())
	if err != nil {
		t.Fatalf("Print failed: %v", err)
	}

	if job.Status != StatusCompleted || job.Family != FamilyEpson || job.Target != "10.0.0.5:9100" {
		t.Errorf("Unexpected job: %+v", job)
	}
	if job.Bytes != opener.conn.buf.Len() {
		t.Errorf("Expected %d bytes recorded, got %d", opener.conn.buf.Len(), job.Bytes)
	}
	if !opener.conn.closed {
		t.Error("Expected connection to be closed")
	}
	if !bytes.Contains(opener.conn.buf.Bytes(), []byte("Espresso")) {
		t.Error("Expected encoded order to be written")
	}
}

func TestService_ConnectFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason Reason
	}{
		{"permission", &os.PathError{Op: "open", Path: "/dev/usb/lp0", Err: syscall.EACCES}, ReasonPermission},
		{"refused", &net.OpError{Op: "dial", Net: "tcp", Err: &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED}}, ReasonConnectivity},
		{"unknown", errors.New("printer on fire"), ReasonUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&fakeOpener{err: tt.err})

			job, err := svc.Print(context.Background(), tcpRequest())

			var f *Failure
			if !errors.As(err, &f) {
				t.Fatalf("Expected Failure, got %v", err)
			}
			if f.Reason != tt.reason {
				t.Errorf("Expected reason %s, got %s", tt.reason, f.Reason)
			}
			if job.Status != StatusFailed || job.Reason != tt.reason {
				t.Errorf("Unexpected job: %+v", job)
			}
		})
	}
}

func TestService_WriteFailureClosesConnection(t *testing.T) {
	conn := &fakeConn{writeErr: syscall.EPIPE}
	svc := newTestService(&fakeOpener{conn: conn})

	_, err := svc.Print(context.Background(), tcpRequest())

	var f *Failure
	if !errors.As(err, &f) || f.Reason != ReasonConnectivity {
		t.Errorf("Expected connectivity failure, got %v", err)
	}
	if !conn.closed {
		t.Error("Expected connection to be closed after write failure")
	}
}

func TestService_InvalidRequests(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*receipt.PrintRequest)
	}{
		{"unknown type", func(r *receipt.PrintRequest) { r.Printer.Type = "lpt" }},
		{"missing host", func(r *receipt.PrintRequest) { r.Printer.Options.Host = "" }},
		{"bad family", func(r *receipt.PrintRequest) { r.Printer.Options.Family = "zebra" }},
		{"bad item", func(r *receipt.PrintRequest) { r.Data.Items[0].Quantity = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opener := &fakeOpener{conn: &fakeConn{}}
			svc := newTestService(opener)
			req := tcpRequest()
			tt.mutate(req)

			_, err := svc.Print(context.Background(), req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("Expected ErrInvalidRequest, got %v", err)
			}
			if len(opener.targets) != 0 {
				t.Error("Expected no connection attempt")
			}
			if len(svc.Jobs().All()) != 0 {
				t.Error("Expected invalid requests not to be recorded")
			}
		})
	}
}

func TestService_USBDefaultsToStar(t *testing.T) {
	opener := &fakeOpener{conn: &fakeConn{}}
	svc := newTestService(opener)

	req := tcpRequest()
	req.Printer = receipt.PrinterTarget{Type: "usb", Options: receipt.PrinterOptions{VendorID: 0x0519, ProductID: 0x0003}}

	job, err := svc.Print(context.Background(), req)
	if err != nil {
		t.Fatalf("Print failed: %v", err)
	}
	if job.Family != FamilyStar || job.Target != "0519:0003" {
		t.Errorf("Unexpected job: %+v", job)
	}
	if !bytes.Contains(opener.conn.buf.Bytes(), []byte{0x1B, 'd', 0x03}) {
		t.Error("Expected star cut sequence")
	}
}

func TestDialer_TCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()

	addr := ln.Addr().(*net.TCPAddr)
	req := tcpRequest()
	req.Printer.Options = receipt.PrinterOptions{Host: "127.0.0.1", Port: addr.Port}

	svc := newTestService(NewDialer(time.Second, 9600))
	if _, err := svc.Print(context.Background(), req); err != nil {
		t.Fatalf("Print failed: %v", err)
	}

	select {
	case data := <-received:
		if !bytes.Contains(data, []byte("Corner Cafe")) {
			t.Error("Expected printer to receive the order")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for printer data")
	}
}

func TestDialer_TCPRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	req := tcpRequest()
	req.Printer.Options = receipt.PrinterOptions{Host: "127.0.0.1", Port: port}

	_, err = newTestService(NewDialer(time.Second, 9600)).Print(context.Background(), req)

	var f *Failure
	if !errors.As(err, &f) || f.Reason != ReasonConnectivity || f.StatusCode() != 503 {
		t.Errorf("Expected connectivity failure, got %v", err)
	}
}

func TestDialer_SerialMissingPath(t *testing.T) {
	_, err := NewDialer(0, 0).Open(context.Background(), receipt.PrinterTarget{Type: "serial"})
	if !errors.Is(err, ErrMissingPath) {
		t.Errorf("Expected ErrMissingPath, got %v", err)
	}
	if Classify(err).Reason != ReasonConnectivity {
		t.Error("Expected missing path to classify as connectivity")
	}
}
