package command

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/storekit/thermalprint/internal/escpos"
	"github.com/storekit/thermalprint/internal/preview"
	"github.com/storekit/thermalprint/internal/registry"
	"github.com/storekit/thermalprint/internal/selector"
	"github.com/storekit/thermalprint/internal/settings"
	"github.com/storekit/thermalprint/internal/transport"
	"github.com/storekit/thermalprint/pkg/receipt"
)

type fakeHandle struct {
	buf    bytes.Buffer
	closed bool
}

func (h *fakeHandle) Write(p []byte) (int, error) { return h.buf.Write(p) }
func (h *fakeHandle) Release() error              { return nil }
func (h *fakeHandle) Close() error                { h.closed = true; return nil }

type fakeUSB struct {
	devices []transport.USBDeviceInfo
	handle  *fakeHandle
	openErr error
}

func (f *fakeUSB) List(ctx context.Context) ([]transport.USBDeviceInfo, error) {
	return f.devices, nil
}

func (f *fakeUSB) Open(ctx context.Context, dev transport.USBDeviceInfo) (transport.USBHandle, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.handle, nil
}

type fixture struct {
	exec     *Executor
	store    *settings.FileStore
	registry *registry.Registry
	usb      *fakeUSB
	spool    string
	dir      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	store := settings.NewFileStore(filepath.Join(dir, "settings.json"))
	reg, err := registry.New("")
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}

	usb := &fakeUSB{
		devices: []transport.USBDeviceInfo{{VendorID: 0x04b8, ProductID: 0x0e15, ProductName: "TM-T20II"}},
		handle:  &fakeHandle{},
	}
	spool := filepath.Join(dir, "spool")

	usbDriver := transport.NewUSBDriver(usb, nil, transport.WithRegistry(reg))
	drivers := selector.Drivers{
		USB:       usbDriver,
		Network:   transport.NewNetworkDriver(),
		Bluetooth: transport.NewBluetoothDriver(nil, nil),
		HTML:      transport.NewHTMLDriver(transport.SpoolSink{Dir: spool}),
	}

	renderer, err := preview.New(escpos.Width)
	if err != nil {
		t.Fatalf("preview.New: %v", err)
	}

	exec := NewExecutor(Deps{
		Store:    store,
		Registry: reg,
		Selector: selector.New(drivers, store, nil, nil),
		USB:      usbDriver,
		Preview:  renderer,
	})

	return &fixture{exec: exec, store: store, registry: reg, usb: usb, spool: spool, dir: dir}
}

func (f *fixture) writeReceipt(t *testing.T) string {
	t.Helper()
	r := &receipt.Data{
		ShopName:     "Acme Hardware",
		InvoiceID:    "inv-0000-1111-2222ab",
		CustomerName: "Jane",
		Items:        []receipt.LineItem{{Name: "Bolt", Quantity: 3, Price: 2.5}},
		Subtotal:     7.5,
		PaidAmount:   7.5,
	}
	data, err := r.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	path := filepath.Join(f.dir, "receipt.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write receipt: %v", err)
	}
	return path
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"help", []string{"help"}},
		{`printer rename usb-1 "Front Desk"`, []string{"printer", "rename", "usb-1", "Front Desk"}},
		{`printer rename usb-1 'It"s'`, []string{"printer", "rename", "usb-1", `It"s`}},
		{"  settings   show  ", []string{"settings", "show"}},
	}
	for _, tc := range cases {
		if got := parseCommand(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("parseCommand(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExecute_UnknownCommand(t *testing.T) {
	f := newFixture(t)
	res := f.exec.Execute(context.Background(), "dance")
	if res.Success || !strings.Contains(res.Error, "unknown command") {
		t.Errorf("Unexpected result %+v", res)
	}
	if res := f.exec.Execute(context.Background(), ""); res.Success {
		t.Error("Expected failure for empty command")
	}
}

func TestPrint_HTMLByDefault(t *testing.T) {
	f := newFixture(t)
	path := f.writeReceipt(t)

	res := f.exec.Execute(context.Background(), "print "+path)
	if !res.Success {
		t.Fatalf("print failed: %s", res.Error)
	}
	if res.Data["method"] != string(settings.MethodHTML) {
		t.Errorf("Expected html method, got %v", res.Data["method"])
	}

	entries, err := os.ReadDir(f.spool)
	if err != nil || len(entries) != 1 {
		t.Fatalf("Expected one spooled document, got %v (%v)", entries, err)
	}
}

func TestPrint_USBConnectsAndAuthorizes(t *testing.T) {
	f := newFixture(t)
	path := f.writeReceipt(t)
	ctx := context.Background()

	if res := f.exec.Execute(ctx, "settings method webusb"); !res.Success {
		t.Fatalf("settings method failed: %s", res.Error)
	}

	res := f.exec.Execute(ctx, "print "+path)
	if !res.Success {
		t.Fatalf("print failed: %s", res.Error)
	}
	if !strings.Contains(res.Data["printer"].(string), "TM-T20II") {
		t.Errorf("Expected printer name in result, got %v", res.Data["printer"])
	}
	if f.usb.handle.buf.Len() == 0 {
		t.Error("Expected bytes written to the usb handle")
	}
	if n := len(f.registry.Authorized(registry.KindUSB)); n != 1 {
		t.Errorf("Expected device authorized, got %d", n)
	}
}

func TestPrint_USBOpenFailure(t *testing.T) {
	f := newFixture(t)
	f.usb.openErr = errors.New("LIBUSB_ERROR_ACCESS")
	path := f.writeReceipt(t)
	ctx := context.Background()

	f.exec.Execute(ctx, "settings method webusb")
	res := f.exec.Execute(ctx, "print "+path)
	if res.Success || !strings.Contains(res.Error, "failed to connect printer") {
		t.Errorf("Unexpected result %+v", res)
	}
}

func TestPrint_USBNoDevice(t *testing.T) {
	f := newFixture(t)
	f.usb.devices = nil
	path := f.writeReceipt(t)
	ctx := context.Background()

	f.exec.Execute(ctx, "settings method webusb")
	res := f.exec.Execute(ctx, "print "+path)
	if res.Success || !strings.Contains(res.Error, "No printer connected") {
		t.Errorf("Unexpected result %+v", res)
	}
}

func TestPrint_NetworkNotConfigured(t *testing.T) {
	f := newFixture(t)
	path := f.writeReceipt(t)
	ctx := context.Background()

	f.exec.Execute(ctx, "settings method network")
	res := f.exec.Execute(ctx, "print "+path)
	if res.Success || !strings.Contains(res.Error, "not configured") {
		t.Errorf("Unexpected result %+v", res)
	}
}

func TestPrint_MissingFile(t *testing.T) {
	f := newFixture(t)
	res := f.exec.Execute(context.Background(), "print "+filepath.Join(f.dir, "nope.json"))
	if res.Success {
		t.Error("Expected failure for missing receipt file")
	}
}

func TestEncode(t *testing.T) {
	f := newFixture(t)
	path := f.writeReceipt(t)
	out := filepath.Join(f.dir, "receipt.bin")

	res := f.exec.Execute(context.Background(), "encode "+path+" "+out)
	if !res.Success {
		t.Fatalf("encode failed: %s", res.Error)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0x1B, 0x40}) {
		t.Errorf("Expected ESC @ prefix, got % x", data[:2])
	}
	if !bytes.HasSuffix(data, []byte{0x1D, 0x56, 0x41, 0x03}) {
		t.Error("Expected GS V 65 3 cut at the end")
	}
}

func TestPreview(t *testing.T) {
	f := newFixture(t)
	path := f.writeReceipt(t)
	out := filepath.Join(f.dir, "receipt.png")

	res := f.exec.Execute(context.Background(), "preview "+path+" "+out)
	if !res.Success {
		t.Fatalf("preview failed: %s", res.Error)
	}
	data, err := os.ReadFile(out)
	if err != nil || !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Errorf("Expected PNG output, err=%v", err)
	}
}

func TestConnectAndDisconnect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.exec.Execute(ctx, "connect usb")
	if !res.Success || !strings.Contains(res.Message, "TM-T20II") {
		t.Fatalf("Unexpected connect result %+v", res)
	}

	if res := f.exec.Execute(ctx, "disconnect"); !res.Success {
		t.Fatalf("disconnect failed: %s", res.Error)
	}
	if !f.usb.handle.closed {
		t.Error("Expected usb handle closed")
	}

	f.usb.devices = nil
	res = f.exec.Execute(ctx, "connect usb")
	if !res.Success || res.Message != "No printer selected" {
		t.Errorf("Expected declined connect, got %+v", res)
	}

	if res := f.exec.Execute(ctx, "connect bluetooth"); res.Success {
		t.Error("Expected failure without a bluetooth driver")
	}
}

func TestPrinterCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.exec.Execute(ctx, "connect usb")

	devices := f.registry.Authorized(registry.KindUSB)
	if len(devices) != 1 {
		t.Fatalf("Expected 1 authorized device, got %d", len(devices))
	}
	id := devices[0].ID

	if res := f.exec.Execute(ctx, "printer list usb"); !res.Success {
		t.Errorf("list failed: %s", res.Error)
	}
	if res := f.exec.Execute(ctx, "printer list serial"); res.Success {
		t.Error("Expected failure for unknown kind")
	}

	if res := f.exec.Execute(ctx, `printer rename `+id+` "Front Desk"`); !res.Success {
		t.Fatalf("rename failed: %s", res.Error)
	}
	if got := f.registry.Get(id).Label; got != "Front Desk" {
		t.Errorf("Expected label Front Desk, got %q", got)
	}

	if res := f.exec.Execute(ctx, "printer forget "+id); !res.Success {
		t.Fatalf("forget failed: %s", res.Error)
	}
	if res := f.exec.Execute(ctx, "printer forget "+id); res.Success {
		t.Error("Expected failure forgetting an unknown printer")
	}
}

func TestSettingsCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		cmd string
		ok  bool
	}{
		{"settings method bluetooth", true},
		{"settings method fax", false},
		{"settings network 192.168.1.50 9100", true},
		{"settings network 192.168.1.50 ninety", false},
		{"settings server http://pos.local:12212", true},
		{"settings reset", false},
	}
	for _, tc := range cases {
		if res := f.exec.Execute(ctx, tc.cmd); res.Success != tc.ok {
			t.Errorf("%q: expected success=%v, got %+v", tc.cmd, tc.ok, res)
		}
	}

	s, err := f.store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.PrintMethod != settings.MethodBluetooth {
		t.Errorf("Expected bluetooth method, got %q", s.PrintMethod)
	}
	if !s.NetworkPrinter.Complete() || s.NetworkPrinter.Port != 9100 {
		t.Errorf("Unexpected network printer %+v", s.NetworkPrinter)
	}
	if s.ServerURL() != "http://pos.local:12212" {
		t.Errorf("Unexpected server URL %q", s.ServerURL())
	}

	if res := f.exec.Execute(ctx, "settings"); !res.Success || res.Data["settings"] == nil {
		t.Errorf("Expected settings in show result, got %+v", res)
	}
}
