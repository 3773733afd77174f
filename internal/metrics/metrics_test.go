package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_Counts(t *testing.T) {
	c := New()
	c.ObserveCheck(true)
	c.ObserveCheck(false)
	c.ObserveCheck(false)
	c.ObserveAlert("sent")
	c.SetTargets(4)

	if got := testutil.ToFloat64(c.checks.WithLabelValues("down")); got != 2 {
		t.Fatalf("want 2 down checks, got %v", got)
	}
	if got := testutil.ToFloat64(c.alerts.WithLabelValues("sent")); got != 1 {
		t.Fatalf("want 1 sent alert, got %v", got)
	}
	if got := testutil.ToFloat64(c.targets); got != 4 {
		t.Fatalf("want 4 targets, got %v", got)
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	c.ObserveCheck(true)
	c.ObserveAlert("failed")
	c.ObserveStatusChange("down")
	c.SetTargets(1)
	c.SetRunning(true)
	c.ObserveCycle(time.Second)
	c.SaveFailed()
}

func TestCollector_Handler(t *testing.T) {
	c := New()
	c.ObserveCheck(true)
	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	if rr.Code != 200 || !strings.Contains(rr.Body.String(), "servermonitor_checks_total") {
		t.Fatalf("metrics not exposed: %d\n%s", rr.Code, rr.Body.String())
	}
}
