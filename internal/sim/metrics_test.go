package sim

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"netattack-sim/internal/telemetry"
)

func TestMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.ObserveStep(telemetry.StepRow{ActionType: "exploit", Outcome: "chance_failure"})
	m.ObserveStep(telemetry.StepRow{ActionType: "exploit", Outcome: "chance_failure"})
	m.ObserveEpisode(telemetry.EpisodeRow{Steps: 12, TotalReward: 180, StepLimitReached: true, Compromised: 2})

	if got := testutil.ToFloat64(m.Steps.WithLabelValues("exploit", "chance_failure")); got != 2 {
		t.Fatalf("netattack_steps_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Episodes.WithLabelValues("step_limit")); got != 1 {
		t.Fatalf("netattack_episodes_total = %v, want 1", got)
	}

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), "netattack_episode_reward_count 1") {
		t.Fatalf("metrics output missing reward histogram:\n%s", body)
	}
}

func TestMetricsRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("first NewMetrics: %v", err)
	}
	b, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("second NewMetrics: %v", err)
	}
	a.ObserveStep(telemetry.StepRow{ActionType: "noop", Outcome: "success"})
	if got := testutil.ToFloat64(b.Steps.WithLabelValues("noop", "success")); got != 1 {
		t.Fatalf("second registration should share collectors, got %v", got)
	}
}

func TestNilMetricsAreIgnored(t *testing.T) {
	var m *Metrics
	m.ObserveStep(telemetry.StepRow{})
	m.ObserveEpisode(telemetry.EpisodeRow{})
	if m.Handler() == nil {
		t.Fatalf("nil metrics should still serve a handler")
	}
}
