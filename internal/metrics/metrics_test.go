package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObservePrint("usb", nil)
	m.ObserveJob("tcp", "", time.Second, 10)
}

func TestObservePrint(t *testing.T) {
	m := New()
	m.ObservePrint("usb", nil)
	m.ObservePrint("usb", errors.New("stall"))
	m.ObservePrint("usb", errors.New("stall"))

	if got := testutil.ToFloat64(m.prints.WithLabelValues("usb", "success")); got != 1 {
		t.Errorf("Expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(m.prints.WithLabelValues("usb", "error")); got != 2 {
		t.Errorf("Expected 2 errors, got %v", got)
	}
}

func TestObserveJob(t *testing.T) {
	m := New()
	m.ObserveJob("tcp", "", 20*time.Millisecond, 512)
	m.ObserveJob("tcp", "connectivity", 5*time.Millisecond, 0)

	if got := testutil.ToFloat64(m.jobs.WithLabelValues("tcp", "connectivity")); got != 1 {
		t.Errorf("Expected 1 connectivity failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.bytesWritten.WithLabelValues("tcp")); got != 512 {
		t.Errorf("Expected 512 bytes, got %v", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObservePrint("html", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `thermalprint_client_prints_total{driver="html",result="success"} 1`) {
		t.Errorf("Expected print counter in output, got:\n%s", body)
	}
}
