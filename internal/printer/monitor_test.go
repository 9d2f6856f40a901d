package printer

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestMonitor_Check(t *testing.T) {
	current := []Device{{ID: "usb:04b8:0e15", Description: "Epson"}}
	var scanErr error
	scan := func(context.Context) ([]Device, error) { return current, scanErr }

	m := NewMonitor(scan, 0, zap.NewNop())
	var added, removed []string
	m.OnAdded(func(d Device) { added = append(added, d.ID) })
	m.OnRemoved(func(d Device) { removed = append(removed, d.ID) })

	m.Check(context.Background())
	if len(added) != 1 || added[0] != "usb:04b8:0e15" {
		t.Fatalf("Expected one added device, got %v", added)
	}

	m.Check(context.Background())
	if len(added) != 1 {
		t.Error("Expected no change on an identical scan")
	}

	scanErr = errors.New("libusb busy")
	current = nil
	m.Check(context.Background())
	if len(removed) != 0 {
		t.Error("Expected a failed scan not to report removals")
	}

	scanErr = nil
	current = []Device{{ID: "serial:/dev/ttyUSB0"}}
	m.Check(context.Background())
	if len(removed) != 1 || removed[0] != "usb:04b8:0e15" {
		t.Errorf("Expected usb device removed, got %v", removed)
	}
	if len(added) != 2 {
		t.Errorf("Expected serial device added, got %v", added)
	}
}

func TestSkipSerialPort(t *testing.T) {
	if !skipSerialPort("/dev/cu.Bluetooth-Incoming-Port") {
		t.Error("Expected bluetooth port to be skipped")
	}
	if skipSerialPort("/dev/ttyUSB0") {
		t.Error("Expected ttyUSB0 to be kept")
	}
}

func TestParseHexID(t *testing.T) {
	if got := parseHexID("04B8"); got != 0x04b8 {
		t.Errorf("Expected 0x04b8, got %04x", got)
	}
	if got := parseHexID(""); got != 0 {
		t.Errorf("Expected 0 for empty id, got %d", got)
	}
}
