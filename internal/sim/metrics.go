package sim

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"netattack-sim/internal/telemetry"
)

// Metrics exposes episode runner counters to Prometheus.
type Metrics struct {
	gatherer prometheus.Gatherer

	Steps        *prometheus.CounterVec
	Episodes     *prometheus.CounterVec
	EpisodeSteps prometheus.Histogram
	Reward       prometheus.Histogram
	Compromised  prometheus.Gauge
}

// NewMetrics registers the runner metrics against reg, or the default
// registerer when reg is nil. Registering twice reuses the first collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	steps, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netattack_steps_total",
		Help: "Actions executed, by action type and outcome.",
	}, []string{"action_type", "outcome"}), "netattack_steps_total")
	if err != nil {
		return nil, err
	}
	episodes, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netattack_episodes_total",
		Help: "Finished episodes, by termination reason.",
	}, []string{"result"}), "netattack_episodes_total")
	if err != nil {
		return nil, err
	}
	episodeSteps, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "netattack_episode_steps",
		Help:    "Steps taken per episode.",
		Buckets: prometheus.ExponentialBuckets(8, 2, 10),
	}), "netattack_episode_steps")
	if err != nil {
		return nil, err
	}
	reward, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "netattack_episode_reward",
		Help:    "Total reward per episode.",
		Buckets: []float64{-1000, -500, -100, 0, 50, 100, 150, 200, 300, 500},
	}), "netattack_episode_reward")
	if err != nil {
		return nil, err
	}
	compromised, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netattack_hosts_compromised",
		Help: "Hosts compromised at the end of the last episode.",
	}), "netattack_hosts_compromised")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		gatherer:     gatherer,
		Steps:        steps,
		Episodes:     episodes,
		EpisodeSteps: episodeSteps,
		Reward:       reward,
		Compromised:  compromised,
	}, nil
}

// ObserveStep counts one executed action.
func (m *Metrics) ObserveStep(row telemetry.StepRow) {
	if m == nil {
		return
	}
	m.Steps.WithLabelValues(row.ActionType, row.Outcome).Inc()
}

// ObserveEpisode records a finished episode.
func (m *Metrics) ObserveEpisode(row telemetry.EpisodeRow) {
	if m == nil {
		return
	}
	m.Episodes.WithLabelValues(episodeResult(row)).Inc()
	m.EpisodeSteps.Observe(float64(row.Steps))
	m.Reward.Observe(row.TotalReward)
	m.Compromised.Set(float64(row.Compromised))
}

// Handler serves the registry the metrics were registered with.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func episodeResult(row telemetry.EpisodeRow) string {
	switch {
	case row.GoalReached:
		return "goal"
	case row.StepLimitReached:
		return "step_limit"
	default:
		return "cancelled"
	}
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return c, nil
}
