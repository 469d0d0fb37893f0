package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/samvad-hq/tokens-api-suite/pkg/gateway"
)

func TestRecorderCountsFailuresByKind(t *testing.T) {
	r := NewRecorder()
	r.ObserveRequest("/tokens", 200, 0, 120*time.Millisecond)
	r.ObserveRequest("/tokens", 400, gateway.KindClient, 80*time.Millisecond)
	r.ObserveRequest("/tokens", 0, gateway.KindTransport, time.Second)
	r.ObserveRequest("/tokens", 400, gateway.KindClient, 10*time.Millisecond)

	if got := testutil.ToFloat64(r.failures.WithLabelValues("/tokens", "client_error")); got != 2 {
		t.Fatalf("client_error failures = %v", got)
	}
	if got := testutil.ToFloat64(r.failures.WithLabelValues("/tokens", "transport")); got != 1 {
		t.Fatalf("transport failures = %v", got)
	}
	if got := testutil.CollectAndCount(r.requestDuration); got != 3 {
		t.Fatalf("expected 3 histogram series (ok, client_error, transport), got %d", got)
	}
}

func TestRecorderScenarioCounter(t *testing.T) {
	r := NewRecorder()
	r.ObserveScenario("functional", "passed")
	r.ObserveScenario("functional", "passed")
	r.ObserveScenario("security", "failed")

	if got := testutil.ToFloat64(r.scenarios.WithLabelValues("functional", "passed")); got != 2 {
		t.Fatalf("functional passed = %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRecorder()
	r.ObserveRequest("/tokens", 405, 0, time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "tokensuite_gateway_request_duration_seconds") {
		t.Fatalf("histogram missing from exposition:\n%s", body)
	}
	if !strings.Contains(body, `outcome="status_405"`) {
		t.Fatalf("probe outcome label missing:\n%s", body)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.ObserveRequest("/tokens", 200, 0, time.Millisecond)
	r.ObserveScenario("functional", "passed")
}
