// Episode controller wrapping network state, executor and encoder
package sim

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"netattack-sim/internal/network"
	"netattack-sim/internal/observation"
	"netattack-sim/internal/scenario"
)

// ErrEpisodeOver is returned when stepping a terminated episode before Reset.
var ErrEpisodeOver = errors.New("episode is over, reset first")

// Options select the action and observation encodings of an Env.
type Options struct {
	FullyObservable  bool `yaml:"fully_observable" json:"fully_observable"`
	FlatActions      bool `yaml:"flat_actions" json:"flat_actions"`
	FlatObservations bool `yaml:"flat_observations" json:"flat_observations"`
}

// Info carries the executor result behind a step.
type Info struct {
	Step   int
	Result network.Result
}

// StepResult is returned by every successful step.
type StepResult struct {
	Observation      observation.Observation
	Reward           float64
	GoalReached      bool
	StepLimitReached bool
	Info             Info
}

// Done reports whether the episode terminated with this step.
func (r StepResult) Done() bool { return r.GoalReached || r.StepLimitReached }

// Env runs episodes over one scenario definition. A definition may back any
// number of Envs; each Env owns its state and random source.
//
// The mutex only serialises stepping against Snapshot, Env is not meant to be
// stepped from several goroutines.
type Env struct {
	def   *scenario.Definition
	opts  Options
	space *network.ActionSpace
	enc   observation.Encoder

	mu          sync.Mutex
	seed        int64
	state       *network.State
	exec        *network.Executor
	steps       int
	total       float64
	goal, limit bool
	last        *network.Result
}

// NewEnv creates an Env and resets it with seed 0.
func NewEnv(def *scenario.Definition, opts Options) *Env {
	e := &Env{
		def:   def,
		opts:  opts,
		space: network.NewActionSpace(def),
		enc: observation.NewEncoder(def, observation.Options{
			FullyObservable: opts.FullyObservable,
			Flat:            opts.FlatObservations,
		}),
	}
	e.Reset(0)
	return e
}

// Definition returns the scenario the Env runs.
func (e *Env) Definition() *scenario.Definition { return e.def }

// Options returns the encodings the Env was built with.
func (e *Env) Options() Options { return e.opts }

// ActionSpace exposes the flat action list.
func (e *Env) ActionSpace() *network.ActionSpace { return e.space }

// Reset starts a new episode. The seed drives every stochastic outcome of
// the episode.
func (e *Env) Reset(seed int64) observation.Observation {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seed = seed
	e.state = network.NewState(e.def)
	e.exec = network.NewExecutor(e.def, rand.New(rand.NewSource(seed)))
	e.steps = 0
	e.total = 0
	e.goal, e.limit = false, false
	e.last = nil
	return e.enc.Reset(e.state)
}

// Step executes the flat action at index i.
func (e *Env) Step(i int) (StepResult, error) {
	a, err := e.space.Get(i)
	if err != nil {
		return StepResult{}, err
	}
	return e.step(a)
}

// StepParam executes a parameterised action.
func (e *Env) StepParam(p network.ParamAction) (StepResult, error) {
	a, err := e.space.Resolve(p)
	if err != nil {
		return StepResult{}, err
	}
	return e.step(a)
}

// StepVector executes a vector action; vectors naming no exploit or
// escalation run as noop.
func (e *Env) StepVector(v []int) (StepResult, error) {
	a, err := e.space.FromVector(v)
	if err != nil {
		return StepResult{}, err
	}
	return e.step(a)
}

func (e *Env) step(a network.Action) (StepResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.goal || e.limit {
		return StepResult{}, ErrEpisodeOver
	}
	res := e.exec.Apply(e.state, a)
	e.steps++
	reward := res.Reward()
	e.total += reward
	e.goal = e.state.GoalReached()
	e.limit = e.steps >= e.def.StepLimit
	e.last = &res
	return StepResult{
		Observation:      e.enc.Encode(e.state, res),
		Reward:           reward,
		GoalReached:      e.goal,
		StepLimitReached: e.limit,
		Info:             Info{Step: e.steps, Result: res},
	}, nil
}

// ActionSpaceShape is [actions] for flat actions, otherwise the vector
// dimensions [type, subnet, host, os, service, process].
func (e *Env) ActionSpaceShape() []int {
	if e.opts.FlatActions {
		return []int{e.space.Len()}
	}
	return e.space.VectorDims()
}

// ObservationShape is the shape of every observation the Env returns.
func (e *Env) ObservationShape() []int { return e.enc.Shape() }

// State returns a copy of the current network state.
func (e *Env) State() *network.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// HostSnapshot is the rendered state of one host.
type HostSnapshot struct {
	Address     string  `json:"address"`
	OS          string  `json:"os"`
	Compromised bool    `json:"compromised"`
	Reachable   bool    `json:"reachable"`
	Discovered  bool    `json:"discovered"`
	Access      string  `json:"access"`
	Sensitive   bool    `json:"sensitive"`
	Value       float64 `json:"value"`
}

// Snapshot is a detached view of an episode used by renderers.
type Snapshot struct {
	Scenario         string         `json:"scenario"`
	Seed             int64          `json:"seed"`
	Step             int            `json:"step"`
	StepLimit        int            `json:"step_limit"`
	TotalReward      float64        `json:"total_reward"`
	GoalReached      bool           `json:"goal_reached"`
	StepLimitReached bool           `json:"step_limit_reached"`
	LastAction       string         `json:"last_action,omitempty"`
	LastOutcome      string         `json:"last_outcome,omitempty"`
	Hosts            []HostSnapshot `json:"hosts"`
}

// Snapshot copies the episode state. It is safe to call while another
// goroutine steps the Env.
func (e *Env) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := Snapshot{
		Scenario:         e.def.Name,
		Seed:             e.seed,
		Step:             e.steps,
		StepLimit:        e.def.StepLimit,
		TotalReward:      e.total,
		GoalReached:      e.goal,
		StepLimitReached: e.limit,
	}
	if e.last != nil {
		snap.LastAction = e.last.Action.String()
		snap.LastOutcome = e.last.Outcome.String()
	}
	for _, h := range e.state.Hosts() {
		cfg := e.def.Hosts[h.Address]
		snap.Hosts = append(snap.Hosts, HostSnapshot{
			Address:     h.Address.String(),
			OS:          cfg.OS,
			Compromised: h.Compromised,
			Reachable:   h.Reachable,
			Discovered:  h.Discovered,
			Access:      h.Access.String(),
			Sensitive:   e.def.IsSensitive(h.Address),
			Value:       cfg.Value,
		})
	}
	return snap
}

func (s Snapshot) String() string {
	return fmt.Sprintf("%s step %d/%d reward %.1f", s.Scenario, s.Step, s.StepLimit, s.TotalReward)
}
