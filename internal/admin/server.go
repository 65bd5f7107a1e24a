package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"netattack-sim/internal/logging"
	"netattack-sim/internal/network"
	"netattack-sim/internal/sim"
)

// Server exposes the live episode of an Env over HTTP.
type Server struct {
	Env     *sim.Env
	Metrics *sim.Metrics
	tpl     *template.Template
	mux     *http.ServeMux
}

//go:embed templates/index.html
var content embed.FS

type scenarioSummary struct {
	Name         string      `json:"name"`
	Hosts        int         `json:"hosts"`
	Sensitive    int         `json:"sensitive"`
	StepLimit    int         `json:"step_limit"`
	MinimalSteps int         `json:"minimal_steps"`
	BestScore    float64     `json:"best_score"`
	Options      sim.Options `json:"options"`
	ActionSpace  []int       `json:"action_space"`
	Observation  []int       `json:"observation"`
}

func NewServer(env *sim.Env, metrics *sim.Metrics) *Server {
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	s := &Server{Env: env, Metrics: metrics, tpl: tpl, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("GET /api/scenario", s.handleScenario)
	s.mux.HandleFunc("GET /api/summary", s.handleSummary)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", s.Metrics.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// Start serves until ctx is cancelled, then shuts the listener down.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logging.FromContext(ctx).Info("admin UI listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Summary scenarioSummary
		State   sim.Snapshot
	}{
		Summary: s.summary(),
		State:   s.Env.Snapshot(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, data); err != nil {
		logging.FromContext(r.Context()).Error("render index", "err", err)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Env.Snapshot())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.summary())
}

func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	b, err := s.Env.Definition().Encode()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(b)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) summary() scenarioSummary {
	def := s.Env.Definition()
	return scenarioSummary{
		Name:         def.Name,
		Hosts:        def.NumHosts(),
		Sensitive:    len(def.Sensitive),
		StepLimit:    def.StepLimit,
		MinimalSteps: network.MinimalSteps(def),
		BestScore:    network.BestScore(def),
		Options:      s.Env.Options(),
		ActionSpace:  s.Env.ActionSpaceShape(),
		Observation:  s.Env.ObservationShape(),
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
