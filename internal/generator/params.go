package generator

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidParams is wrapped by every parameter validation failure.
var ErrInvalidParams = errors.New("invalid generator parameters")

var validate = validator.New()

// Params controls scenario generation. Zero counts fall back to the
// defaults documented on each field.
type Params struct {
	Name         string `yaml:"name,omitempty"`
	NumHosts     int    `yaml:"num_hosts" validate:"min=3"`
	NumServices  int    `yaml:"num_services" validate:"min=1"`
	NumOS        int    `yaml:"num_os" validate:"min=1"`
	NumProcesses int    `yaml:"num_processes" validate:"min=1"`
	// NumExploits of 0 means one per service.
	NumExploits int `yaml:"num_exploits,omitempty" validate:"min=0"`
	// NumPrivEscs of 0 means one per process.
	NumPrivEscs int `yaml:"num_privescs,omitempty" validate:"min=0"`

	RSensitive float64 `yaml:"r_sensitive" validate:"gt=0"`
	RUser      float64 `yaml:"r_user" validate:"gt=0"`

	ExploitCost     float64    `yaml:"exploit_cost" validate:"min=0"`
	ExploitProbs    ProbPolicy `yaml:"exploit_probs"`
	PrivEscCost     float64    `yaml:"privesc_cost" validate:"min=0"`
	PrivEscProbs    ProbPolicy `yaml:"privesc_probs"`
	ServiceScanCost float64    `yaml:"service_scan_cost" validate:"min=0"`
	OSScanCost      float64    `yaml:"os_scan_cost" validate:"min=0"`
	SubnetScanCost  float64    `yaml:"subnet_scan_cost" validate:"min=0"`
	ProcessScanCost float64    `yaml:"process_scan_cost" validate:"min=0"`

	Uniform bool    `yaml:"uniform"`
	AlphaH  float64 `yaml:"alpha_h" validate:"gt=0"`
	AlphaV  float64 `yaml:"alpha_v" validate:"gt=0"`
	LambdaV float64 `yaml:"lambda_v" validate:"gt=0"`

	// Restrictiveness is the number of services blocked on links between zones.
	Restrictiveness    int     `yaml:"restrictiveness" validate:"min=0"`
	RandomGoal         bool    `yaml:"random_goal"`
	HostDiscoveryValue float64 `yaml:"host_discovery_value" validate:"min=0"`
	StepLimit          int     `yaml:"step_limit" validate:"gt=0"`
	Seed               int64   `yaml:"seed"`
	// MaxAttempts bounds regeneration; 0 means DefaultMaxAttempts.
	MaxAttempts int `yaml:"max_attempts,omitempty" validate:"min=0"`
}

// DefaultMaxAttempts bounds how many candidates Generate draws.
const DefaultMaxAttempts = 20

// DefaultParams returns a small network with the usual defaults.
func DefaultParams() Params {
	return Params{
		NumHosts:        8,
		NumServices:     3,
		NumOS:           2,
		NumProcesses:    2,
		RSensitive:      10,
		RUser:           10,
		ExploitCost:     1,
		ExploitProbs:    Fixed(1),
		PrivEscCost:     1,
		PrivEscProbs:    Fixed(1),
		ServiceScanCost: 1,
		OSScanCost:      1,
		SubnetScanCost:  1,
		ProcessScanCost: 1,
		AlphaH:          2,
		AlphaV:          2,
		LambdaV:         1,
		Restrictiveness: 5,
		StepLimit:       1000,
		MaxAttempts:     DefaultMaxAttempts,
	}
}

// Validate checks the parameters without generating anything.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("%w: %s fails %s=%s", ErrInvalidParams, e.Field(), e.Tag(), e.Param())
		}
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if err := p.ExploitProbs.check(p.numExploits()); err != nil {
		return fmt.Errorf("%w: exploit_probs: %v", ErrInvalidParams, err)
	}
	if err := p.PrivEscProbs.check(p.numPrivEscs()); err != nil {
		return fmt.Errorf("%w: privesc_probs: %v", ErrInvalidParams, err)
	}
	if limit := p.NumServices * (p.NumOS + 1); p.numExploits() > limit {
		return fmt.Errorf("%w: %d exploits requested but only %d distinct service/os pairs exist", ErrInvalidParams, p.numExploits(), limit)
	}
	if limit := p.NumProcesses * (p.NumOS + 1); p.numPrivEscs() > limit {
		return fmt.Errorf("%w: %d escalations requested but only %d distinct process/os pairs exist", ErrInvalidParams, p.numPrivEscs(), limit)
	}
	return nil
}

func (p Params) numExploits() int {
	if p.NumExploits == 0 {
		return p.NumServices
	}
	return p.NumExploits
}

func (p Params) numPrivEscs() int {
	if p.NumPrivEscs == 0 {
		return p.NumProcesses
	}
	return p.NumPrivEscs
}

func (p Params) maxAttempts() int {
	if p.MaxAttempts == 0 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

// PolicyKind selects how success probabilities are assigned.
type PolicyKind int

const (
	PolicyFixed PolicyKind = iota
	PolicyUniform
	PolicyMixed
	PolicyList
)

// ProbPolicy assigns success probabilities to generated exploits or
// escalations. In YAML it is a number, "uniform", "mixed" or a list.
type ProbPolicy struct {
	Kind   PolicyKind
	Value  float64
	Values []float64
}

// Fixed gives every action probability p.
func Fixed(p float64) ProbPolicy { return ProbPolicy{Kind: PolicyFixed, Value: p} }

// Uniform draws each probability uniformly from (0, 1).
func Uniform() ProbPolicy { return ProbPolicy{Kind: PolicyUniform} }

// Mixed draws each probability from low, medium and high levels.
func Mixed() ProbPolicy { return ProbPolicy{Kind: PolicyMixed} }

// List assigns ps in action order.
func List(ps ...float64) ProbPolicy { return ProbPolicy{Kind: PolicyList, Values: ps} }

func validProb(p float64) bool { return p > 0 && p <= 1 }

func (p ProbPolicy) check(n int) error {
	switch p.Kind {
	case PolicyFixed:
		if !validProb(p.Value) {
			return fmt.Errorf("probability %g not in (0, 1]", p.Value)
		}
	case PolicyList:
		if len(p.Values) != n {
			return fmt.Errorf("expected %d probabilities, got %d", n, len(p.Values))
		}
		for _, v := range p.Values {
			if !validProb(v) {
				return fmt.Errorf("probability %g not in (0, 1]", v)
			}
		}
	case PolicyUniform, PolicyMixed:
	default:
		return fmt.Errorf("unknown policy kind %d", p.Kind)
	}
	return nil
}

var (
	mixedLevels      = []float64{0.3, 0.6, 0.9}
	mixedWeights     = []float64{0.2, 0.4, 0.4}
	mixedPairLevels  = []float64{0.6, 0.9}
	mixedPairWeights = []float64{0.5, 0.5}
)

// draw returns n probabilities.
func (p ProbPolicy) draw(rng *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	switch p.Kind {
	case PolicyFixed:
		for i := range out {
			out[i] = p.Value
		}
	case PolicyList:
		copy(out, p.Values)
	case PolicyUniform:
		for i := range out {
			// (0, 1): a zero draw would make the action impossible
			for out[i] == 0 {
				out[i] = rng.Float64()
			}
		}
	case PolicyMixed:
		levels, weights := mixedLevels, mixedWeights
		if n == 1 {
			levels, weights = mixedPairLevels, mixedPairWeights
		}
		for i := range out {
			out[i] = levels[categorical(rng, weights)]
		}
	}
	return out
}

func categorical(rng *rand.Rand, weights []float64) int {
	x := rng.Float64()
	for i, w := range weights {
		if x < w {
			return i
		}
		x -= w
	}
	return len(weights) - 1
}

func (p *ProbPolicy) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		switch node.Value {
		case "mixed":
			*p = Mixed()
			return nil
		case "uniform":
			*p = Uniform()
			return nil
		}
		v, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return fmt.Errorf("line %d: probability policy must be a number, \"mixed\", \"uniform\" or a list, got %q", node.Line, node.Value)
		}
		*p = Fixed(v)
		return nil
	case yaml.SequenceNode:
		var vs []float64
		if err := node.Decode(&vs); err != nil {
			return err
		}
		*p = List(vs...)
		return nil
	}
	return fmt.Errorf("line %d: unsupported probability policy", node.Line)
}

func (p ProbPolicy) MarshalYAML() (any, error) {
	switch p.Kind {
	case PolicyUniform:
		return "uniform", nil
	case PolicyMixed:
		return "mixed", nil
	case PolicyList:
		return p.Values, nil
	}
	return p.Value, nil
}
