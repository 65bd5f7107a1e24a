// YAML run config loader with CUE validation integration
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"netattack-sim/internal/agent"
	"netattack-sim/internal/catalog"
	"netattack-sim/internal/generator"
	"netattack-sim/internal/scenario"
	"netattack-sim/internal/schema"
	"netattack-sim/internal/sim"
)

//go:embed schema.cue
var schemaSrc []byte

// ErrInvalidConfig is wrapped by every run config failure.
var ErrInvalidConfig = errors.New("invalid run config")

// RunConfig is the root configuration of a simulation run. Exactly one of
// Scenario, ScenarioFile and Generator names the network.
type RunConfig struct {
	// Scenario is a catalog entry name.
	Scenario     string
	ScenarioFile string
	// Generator parameters override generator.DefaultParams field by field.
	Generator *generator.Params
	Seed      int64
	Episodes  int
	Agent     string
	Env       sim.Options
	Interval  time.Duration
	RunID     string
	AdminAddr string
	LogFile   string
}

// file is the YAML form of a RunConfig.
type file struct {
	Scenario     string        `yaml:"scenario"`
	ScenarioFile string        `yaml:"scenario_file"`
	Generator    yaml.Node     `yaml:"generator"`
	Seed         int64         `yaml:"seed"`
	Episodes     int           `yaml:"episodes"`
	Agent        string        `yaml:"agent"`
	Env          sim.Options   `yaml:",inline"`
	Interval     time.Duration `yaml:"interval"`
	RunID        string        `yaml:"run_id"`
	AdminAddr    string        `yaml:"admin_addr"`
	LogFile      string        `yaml:"log_file"`
}

// Default returns a single random-agent episode on the tiny scenario.
func Default() *RunConfig {
	return &RunConfig{
		Scenario: "tiny",
		Episodes: 1,
		Agent:    "random",
		Env:      sim.Options{FlatActions: true},
	}
}

// Load reads and validates a run config file.
func Load(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read run config: %w", err)
	}
	cfg, err := Parse(data, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	// Scenario files are relative to the config file.
	if cfg.ScenarioFile != "" && !filepath.IsAbs(cfg.ScenarioFile) {
		cfg.ScenarioFile = filepath.Join(filepath.Dir(path), cfg.ScenarioFile)
	}
	return cfg, nil
}

// Parse validates data against the embedded CUE schema, decodes it and
// fills defaults.
func Parse(data []byte, name string) (*RunConfig, error) {
	if err := schema.Validate(name, data, schemaSrc, "#RunConfig"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg := &RunConfig{
		Scenario:     f.Scenario,
		ScenarioFile: f.ScenarioFile,
		Seed:         f.Seed,
		Episodes:     f.Episodes,
		Agent:        f.Agent,
		Env:          f.Env,
		Interval:     f.Interval,
		RunID:        f.RunID,
		AdminAddr:    f.AdminAddr,
		LogFile:      f.LogFile,
	}
	if !f.Generator.IsZero() {
		p := generator.DefaultParams()
		if err := f.Generator.Decode(&p); err != nil {
			return nil, fmt.Errorf("%w: generator: %v", ErrInvalidConfig, err)
		}
		cfg.Generator = &p
	}
	if cfg.Episodes == 0 {
		cfg.Episodes = 1
	}
	if cfg.Agent == "" {
		cfg.Agent = "random"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the cross-field rules the schema cannot express.
func (c *RunConfig) Validate() error {
	var sources []string
	if c.Scenario != "" {
		sources = append(sources, "scenario")
	}
	if c.ScenarioFile != "" {
		sources = append(sources, "scenario_file")
	}
	if c.Generator != nil {
		sources = append(sources, "generator")
	}
	switch len(sources) {
	case 0:
		return fmt.Errorf("%w: one of scenario, scenario_file or generator is required", ErrInvalidConfig)
	case 1:
	default:
		return fmt.Errorf("%w: %s are mutually exclusive", ErrInvalidConfig, strings.Join(sources, ", "))
	}
	if c.Episodes < 1 {
		return fmt.Errorf("%w: episodes must be at least 1, got %d", ErrInvalidConfig, c.Episodes)
	}
	if !slices.Contains(agent.Names(), c.Agent) {
		return fmt.Errorf("%w: unknown agent %q", ErrInvalidConfig, c.Agent)
	}
	if c.Interval < 0 {
		return fmt.Errorf("%w: interval must not be negative", ErrInvalidConfig)
	}
	if c.Generator != nil {
		if err := c.Generator.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Definition builds the scenario the run plays. Generated catalog entries
// and inline generator blocks without a seed use the run seed.
func (c *RunConfig) Definition() (*scenario.Definition, error) {
	switch {
	case c.ScenarioFile != "":
		return scenario.Load(c.ScenarioFile)
	case c.Generator != nil:
		p := *c.Generator
		if p.Seed == 0 {
			p.Seed = c.Seed
		}
		return generator.Generate(p)
	default:
		return catalog.Default().Scenario(c.Scenario, c.Seed)
	}
}

// ScenarioName is the name recorded in traces before the definition is built.
func (c *RunConfig) ScenarioName() string {
	switch {
	case c.ScenarioFile != "":
		return strings.TrimSuffix(filepath.Base(c.ScenarioFile), filepath.Ext(c.ScenarioFile))
	case c.Generator != nil:
		if c.Generator.Name != "" {
			return c.Generator.Name
		}
		return "generated"
	default:
		return c.Scenario
	}
}
