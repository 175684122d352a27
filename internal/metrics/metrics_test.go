package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	m := New()

	m.SlipsPrinted.WithLabelValues("warnings", "button").Inc()
	m.SlipsPrinted.WithLabelValues("warnings", "button").Inc()
	m.GenerationFailures.Inc()
	m.TriggersRejected.Inc()

	if got := testutil.ToFloat64(m.SlipsPrinted.WithLabelValues("warnings", "button")); got != 2 {
		t.Errorf("SlipsPrinted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.GenerationFailures); got != 1 {
		t.Errorf("GenerationFailures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.PrintFailures); got != 0 {
		t.Errorf("PrintFailures = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.TriggersRejected); got != 1 {
		t.Errorf("TriggersRejected = %v, want 1", got)
	}
}

func TestIndependentRegistries(t *testing.T) {
	// Two instances must not share state; a second New() in tests or a
	// restarted daemon should start from zero.
	a := New()
	b := New()

	a.GenerationFailures.Inc()
	if got := testutil.ToFloat64(b.GenerationFailures); got != 0 {
		t.Errorf("second instance saw %v generation failures, want 0", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.SlipsPrinted.WithLabelValues("rituals", "api").Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("metrics endpoint returned %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "gritd_slips_printed_total") {
		t.Error("exposition missing gritd_slips_printed_total")
	}
	if !strings.Contains(body, `category="rituals"`) {
		t.Error("exposition missing category label")
	}
}
