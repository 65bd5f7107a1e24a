package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"netattack-sim/internal/generator"
)

func TestLoadCatalogConfig(t *testing.T) {
	cfg, err := Load("testdata/catalog.yaml")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Scenario != "small-gen" || cfg.Seed != 7 || cfg.Episodes != 3 || cfg.Agent != "bruteforce" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !cfg.Env.FullyObservable || !cfg.Env.FlatActions || cfg.Env.FlatObservations {
		t.Fatalf("unexpected env options: %+v", cfg.Env)
	}
	if cfg.Interval != 250*time.Millisecond || cfg.RunID != "bench-1" {
		t.Fatalf("unexpected interval or run id: %v %q", cfg.Interval, cfg.RunID)
	}
	d, err := cfg.Definition()
	if err != nil {
		t.Fatalf("Definition: %v", err)
	}
	if d.NumHosts() == 0 {
		t.Fatalf("empty scenario")
	}
	if cfg.ScenarioName() != "small-gen" {
		t.Fatalf("ScenarioName = %q", cfg.ScenarioName())
	}
}

func TestScenarioFileIsRelativeToConfig(t *testing.T) {
	cfg, err := Load("testdata/file.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ScenarioFile != filepath.Join("testdata", "tiny.yaml") {
		t.Fatalf("ScenarioFile = %q", cfg.ScenarioFile)
	}
	if cfg.Episodes != 1 {
		t.Fatalf("episodes should default to 1, got %d", cfg.Episodes)
	}
	d, err := cfg.Definition()
	if err != nil {
		t.Fatalf("Definition: %v", err)
	}
	if d.NumHosts() != 3 || cfg.ScenarioName() != "tiny" {
		t.Fatalf("unexpected scenario %s with %d hosts", cfg.ScenarioName(), d.NumHosts())
	}
}

func TestGeneratorBlockOverridesDefaults(t *testing.T) {
	cfg, err := Load("testdata/generator.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := generator.DefaultParams()
	p := cfg.Generator
	if p == nil {
		t.Fatalf("generator block not decoded")
	}
	if p.NumHosts != 5 || p.NumServices != 2 || p.Restrictiveness != 1 {
		t.Fatalf("overrides not applied: %+v", p)
	}
	if p.NumOS != def.NumOS || p.StepLimit != def.StepLimit {
		t.Fatalf("defaults not kept: %+v", p)
	}
	if p.ExploitProbs.Kind != generator.PolicyFixed || p.ExploitProbs.Value != 0.7 {
		t.Fatalf("exploit probs = %+v", p.ExploitProbs)
	}
	a, err := cfg.Definition()
	if err != nil {
		t.Fatalf("Definition: %v", err)
	}
	b, err := cfg.Definition()
	if err != nil {
		t.Fatalf("Definition: %v", err)
	}
	ea, _ := a.Encode()
	eb, _ := b.Encode()
	if string(ea) != string(eb) {
		t.Fatalf("run seed should make generation deterministic")
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"no source":     "episodes: 2\n",
		"two sources":   "scenario: tiny\nscenario_file: x.yaml\n",
		"schema type":   "scenario: tiny\nepisodes: many\n",
		"zero episodes": "scenario: tiny\nepisodes: 0\n",
		"unknown field": "scenario: tiny\nspeed: 3\n",
		"bad generator": "generator:\n  num_hosts: 1\n",
		"bad interval":  "scenario: tiny\ninterval: soon\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc), name); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestUnknownAgent(t *testing.T) {
	if _, err := Load("testdata/bad_agent.yaml"); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}
