package admin

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"netattack-sim/internal/scenario"
	"netattack-sim/internal/sim"
	"netattack-sim/internal/telemetry"
)

func newTestServer(t *testing.T) (*Server, *sim.Env) {
	t.Helper()
	d, err := scenario.Load("testdata/tiny.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	env := sim.NewEnv(d, sim.Options{FlatActions: true})
	m, err := sim.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	return NewServer(env, m), env
}

func TestHandleState(t *testing.T) {
	server, env := newTestServer(t)
	if _, err := env.Step(0); err != nil {
		t.Fatalf("step: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status OK, got %v", resp.StatusCode)
	}
	var snap sim.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if snap.Step != 1 || len(snap.Hosts) != 3 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if snap.LastAction == "" {
		t.Errorf("expected last action to be reported")
	}
}

func TestHandleScenarioRoundTrips(t *testing.T) {
	server, env := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/scenario", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status OK, got %v", w.Code)
	}
	d, err := scenario.Parse(w.Body.Bytes(), "served")
	if err != nil {
		t.Fatalf("served scenario does not parse: %v", err)
	}
	if d.NumHosts() != env.Definition().NumHosts() {
		t.Errorf("expected %d hosts, got %d", env.Definition().NumHosts(), d.NumHosts())
	}
}

func TestHandleSummary(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	var sum scenarioSummary
	if err := json.NewDecoder(w.Body).Decode(&sum); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if sum.Hosts != 3 || sum.Sensitive != 2 {
		t.Errorf("unexpected summary: %+v", sum)
	}
	if !sum.Options.FlatActions || sum.Options.FullyObservable {
		t.Errorf("expected env options reported, got %+v", sum.Options)
	}
	if len(sum.ActionSpace) != 1 || sum.ActionSpace[0] != 18 {
		t.Errorf("expected flat action space [18], got %v", sum.ActionSpace)
	}
	if sum.BestScore <= 0 || sum.MinimalSteps <= 0 {
		t.Errorf("expected positive best score and minimal steps: %+v", sum)
	}
}

func TestHandleIndex(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status OK, got %v", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"tiny", "(2, 0)", "step 0/1000"} {
		if !strings.Contains(body, want) {
			t.Errorf("index missing %q", want)
		}
	}
}

func TestHandleMetrics(t *testing.T) {
	server, _ := newTestServer(t)
	server.Metrics.ObserveEpisode(telemetry.EpisodeRow{GoalReached: true, Steps: 6, Compromised: 3})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), `netattack_episodes_total{result="goal"} 1`) {
		t.Errorf("metrics output missing episode counter:\n%s", w.Body.String())
	}
}

func TestStartShutsDownOnCancel(t *testing.T) {
	server, _ := newTestServer(t)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- server.Start(ctx, addr) }()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + addr + "/healthz")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never came up: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if strings.TrimSpace(string(body)) != "ok" {
		t.Fatalf("unexpected health body %q", body)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("start returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("server did not shut down")
	}
}
