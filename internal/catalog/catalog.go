package catalog

import (
	"embed"
	"errors"
	"fmt"
	"sort"

	"netattack-sim/internal/generator"
	"netattack-sim/internal/scenario"
)

//go:embed scenarios/*.yaml
var files embed.FS

// ErrUnknownScenario is returned for names missing from the catalog.
var ErrUnknownScenario = errors.New("unknown scenario")

// Entry is one benchmark scenario: either a static file or generator
// parameters whose seed is supplied when the scenario is built.
type Entry struct {
	Name   string
	File   string
	Params *generator.Params
}

// Generated reports whether the entry is built by the generator.
func (e Entry) Generated() bool { return e.Params != nil }

// Catalog is an immutable set of named benchmark scenarios. It is safe for
// concurrent use.
type Catalog struct {
	entries map[string]Entry
}

var defaultCatalog = mustNew()

// Default returns the built-in benchmark catalog.
func Default() *Catalog { return defaultCatalog }

func mustNew() *Catalog {
	c := &Catalog{entries: map[string]Entry{
		"tiny":  {Name: "tiny", File: "scenarios/tiny.yaml"},
		"small": {Name: "small", File: "scenarios/small.yaml"},
	}}
	for _, e := range presets() {
		c.entries[e.Name] = e
	}
	return c
}

// presets are the standard benchmark sizes. blocked is the number of services
// closed on every link between zones.
func presets() []Entry {
	type size struct {
		name                         string
		hosts, os, services, procs   int
		exploits, blocked, stepLimit int
		randomGoal                   bool
	}
	sizes := []size{
		{name: "tiny-gen", hosts: 3, os: 1, services: 1, procs: 1, blocked: 0, stepLimit: 1000},
		{name: "tiny-gen-rgoal", hosts: 3, os: 1, services: 1, procs: 1, blocked: 0, stepLimit: 1000, randomGoal: true},
		{name: "small-gen", hosts: 8, os: 2, services: 3, procs: 2, blocked: 1, stepLimit: 1000},
		{name: "small-gen-rgoal", hosts: 8, os: 2, services: 3, procs: 2, blocked: 1, stepLimit: 1000, randomGoal: true},
		{name: "medium-gen", hosts: 16, os: 2, services: 5, procs: 2, blocked: 2, stepLimit: 2000},
		{name: "large-gen", hosts: 23, os: 3, services: 7, procs: 3, blocked: 4, stepLimit: 5000},
		{name: "huge-gen", hosts: 38, os: 4, services: 10, procs: 4, blocked: 7, stepLimit: 10000},
		{name: "pocp-1-gen", hosts: 35, os: 2, services: 50, procs: 2, exploits: 60, blocked: 45, stepLimit: 30000},
		{name: "pocp-2-gen", hosts: 95, os: 3, services: 10, procs: 3, exploits: 30, blocked: 5, stepLimit: 30000},
	}
	out := make([]Entry, 0, len(sizes))
	for _, s := range sizes {
		p := generator.DefaultParams()
		p.Name = s.name
		p.NumHosts = s.hosts
		p.NumOS = s.os
		p.NumServices = s.services
		p.NumProcesses = s.procs
		p.NumExploits = s.exploits
		p.Restrictiveness = s.blocked
		p.StepLimit = s.stepLimit
		p.RandomGoal = s.randomGoal
		p.RSensitive = 100
		p.RUser = 100
		p.ExploitProbs = generator.Mixed()
		p.PrivEscProbs = generator.Fixed(1)
		p.HostDiscoveryValue = 1
		out = append(out, Entry{Name: s.name, Params: &p})
	}
	return out
}

// Names lists every scenario name in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for n := range c.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a copy of the entry registered under name.
func (c *Catalog) Lookup(name string) (Entry, error) {
	e, ok := c.entries[name]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
	if e.Params != nil {
		p := *e.Params
		e.Params = &p
	}
	return e, nil
}

// Scenario builds the named scenario. seed only affects generated entries.
func (c *Catalog) Scenario(name string, seed int64) (*scenario.Definition, error) {
	e, err := c.Lookup(name)
	if err != nil {
		return nil, err
	}
	if e.Generated() {
		p := *e.Params
		p.Seed = seed
		return generator.Generate(p)
	}
	data, err := files.ReadFile(e.File)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", e.File, err)
	}
	return scenario.Parse(data, e.Name)
}
