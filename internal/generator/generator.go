package generator

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"netattack-sim/internal/network"
	"netattack-sim/internal/scenario"
)

// Zone subnets of a generated network. Subnets above sensitiveSubnet form
// the user zone.
const (
	dmzSubnet       = 1
	sensitiveSubnet = 2
	userSubnet      = 3
	userSubnetSize  = 5
)

// ErrGenerationFailed is returned when no valid, solvable scenario was
// produced within the attempt budget.
var ErrGenerationFailed = errors.New("scenario generation failed")

// GenerationError carries what went wrong with the last attempt.
type GenerationError struct {
	Attempts   int
	Violations []scenario.Violation
	Unsolvable bool
}

func (e *GenerationError) Error() string {
	reason := "goal unreachable"
	if len(e.Violations) > 0 {
		msgs := make([]string, len(e.Violations))
		for i, v := range e.Violations {
			msgs[i] = v.String()
		}
		reason = strings.Join(msgs, "; ")
	}
	return fmt.Sprintf("%v after %d attempt(s): %s", ErrGenerationFailed, e.Attempts, reason)
}

func (e *GenerationError) Unwrap() error { return ErrGenerationFailed }

// Generate builds a random scenario from p. The same parameters always
// produce the same scenario.
func Generate(p Params) (*scenario.Definition, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(p.Seed))
	gerr := &GenerationError{}
	for attempt := 1; attempt <= p.maxAttempts(); attempt++ {
		gerr.Attempts = attempt
		d := newBuilder(p, rng).build()
		if vs := scenario.Validate(d); len(vs) > 0 {
			gerr.Violations, gerr.Unsolvable = vs, false
			continue
		}
		if !network.Solvable(d) {
			gerr.Violations, gerr.Unsolvable = nil, true
			continue
		}
		return d, nil
	}
	return nil, gerr
}

type hostConfig struct {
	os        string
	services  []bool
	processes []bool
}

type builder struct {
	p   Params
	rng *rand.Rand

	subnets   []int
	topology  [][]int
	services  []string
	oses      []string
	processes []string
	exploits  map[string]scenario.Exploit
	privescs  map[string]scenario.PrivEsc
	sensitive map[scenario.Address]float64
	addrs     []scenario.Address
	hosts     map[scenario.Address]*hostConfig
	firewall  map[scenario.Link][]string
}

func newBuilder(p Params, rng *rand.Rand) *builder {
	return &builder{p: p, rng: rng}
}

func (b *builder) build() *scenario.Definition {
	b.generateSubnets()
	b.generateTopology()
	b.services = names("srv", b.p.NumServices)
	b.oses = names("os", b.p.NumOS)
	b.processes = names("proc", b.p.NumProcesses)
	b.generateExploits()
	b.generatePrivEscs()
	b.generateSensitiveHosts()
	if b.p.Uniform {
		b.generateUniformHosts()
	} else {
		b.generateCorrelatedHosts()
	}
	b.ensureVulnerability()
	b.ensureRootable()
	b.generateFirewall()
	return b.definition()
}

func names(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s_%d", prefix, i)
	}
	return out
}

func (b *builder) generateSubnets() {
	rest := b.p.NumHosts - 2
	b.subnets = []int{1, 1, 1}
	for i := 0; i < rest/userSubnetSize; i++ {
		b.subnets = append(b.subnets, userSubnetSize)
	}
	if rest%userSubnetSize != 0 {
		b.subnets = append(b.subnets, rest%userSubnetSize)
	}
	b.addrs = nil
	for s := 1; s < len(b.subnets); s++ {
		for h := 0; h < b.subnets[s]; h++ {
			b.addrs = append(b.addrs, scenario.Address{Subnet: s, Host: h})
		}
	}
}

// generateTopology links the internet to the DMZ, fully connects the DMZ,
// sensitive and first user subnet, and hangs further user subnets off the
// first one as a binary tree.
func (b *builder) generateTopology() {
	n := len(b.subnets)
	t := make([][]int, n)
	for i := range t {
		t[i] = make([]int, n)
		t[i][i] = 1
	}
	connect := func(i, j int) {
		t[i][j], t[j][i] = 1, 1
	}
	connect(scenario.Internet, dmzSubnet)
	for i := dmzSubnet; i <= userSubnet; i++ {
		for j := dmzSubnet; j <= userSubnet; j++ {
			connect(i, j)
		}
	}
	for row := userSubnet + 1; row < n; row++ {
		pos := row - userSubnet
		connect(row, (pos-1)/2+userSubnet)
	}
	b.topology = t
}

func osSuffix(os string) string {
	if os == "" {
		return ""
	}
	return "_" + os
}

// pickOS returns an OS name or "" for any OS.
func (b *builder) pickOS() string {
	i := b.rng.Intn(len(b.oses) + 1)
	if i == len(b.oses) {
		return ""
	}
	return b.oses[i]
}

func (b *builder) generateExploits() {
	n := b.p.numExploits()
	probs := b.p.ExploitProbs.draw(b.rng, n)
	b.exploits = make(map[string]scenario.Exploit, n)
	for len(b.exploits) < n {
		srv := b.services[b.rng.Intn(len(b.services))]
		os := b.pickOS()
		name := "e_" + srv + osSuffix(os)
		if _, ok := b.exploits[name]; ok {
			continue
		}
		access := scenario.UserAccess
		if b.rng.Intn(2) == 1 {
			access = scenario.RootAccess
		}
		b.exploits[name] = scenario.Exploit{
			Name:    name,
			Service: srv,
			OS:      os,
			Prob:    probs[len(b.exploits)],
			Cost:    b.p.ExploitCost,
			Access:  access,
		}
	}
}

func (b *builder) generatePrivEscs() {
	n := b.p.numPrivEscs()
	probs := b.p.PrivEscProbs.draw(b.rng, n)
	b.privescs = make(map[string]scenario.PrivEsc, n)
	for len(b.privescs) < n {
		proc := b.processes[b.rng.Intn(len(b.processes))]
		os := b.pickOS()
		name := "pe_" + proc + osSuffix(os)
		if _, ok := b.privescs[name]; ok {
			continue
		}
		b.privescs[name] = scenario.PrivEsc{
			Name:    name,
			Process: proc,
			OS:      os,
			Prob:    probs[len(b.privescs)],
			Cost:    b.p.PrivEscCost,
			Access:  scenario.RootAccess,
		}
	}
}

func (b *builder) generateSensitiveHosts() {
	b.sensitive = map[scenario.Address]float64{
		{Subnet: sensitiveSubnet, Host: 0}: b.p.RSensitive,
	}
	last := len(b.subnets) - 1
	goal := scenario.Address{Subnet: last, Host: b.subnets[last] - 1}
	if b.p.RandomGoal && len(b.subnets) > userSubnet {
		s := userSubnet + b.rng.Intn(len(b.subnets)-userSubnet)
		goal = scenario.Address{Subnet: s, Host: b.rng.Intn(b.subnets[s])}
	}
	b.sensitive[goal] = b.p.RUser
}

func (b *builder) generateUniformHosts() {
	b.hosts = make(map[scenario.Address]*hostConfig, len(b.addrs))
	for _, a := range b.addrs {
		cfg := &hostConfig{
			os:        b.oses[b.rng.Intn(len(b.oses))],
			services:  make([]bool, len(b.services)),
			processes: make([]bool, len(b.processes)),
		}
		for !anyTrue(cfg.services) {
			for i := range cfg.services {
				cfg.services[i] = b.rng.Intn(2) == 1
			}
		}
		for i := range cfg.processes {
			cfg.processes[i] = b.rng.Intn(2) == 1
		}
		b.hosts[a] = cfg
	}
}

// generateCorrelatedHosts draws host configurations from a nested Dirichlet
// process: a host reuses an earlier configuration with probability
// n/(alpha_H+n) and each new configuration reuses earlier services, OS and
// processes with concentration alpha_V.
func (b *builder) generateCorrelatedHosts() {
	b.hosts = make(map[scenario.Address]*hostConfig, len(b.addrs))
	var prevConfigs []*hostConfig
	var prevServices, prevProcs []int
	var prevOS []string
	for n, a := range b.addrs {
		var cfg *hostConfig
		if n == 0 || b.rng.Float64() < b.p.AlphaH/(b.p.AlphaH+float64(n)) {
			cfg = b.sampleConfig(&prevServices, &prevProcs, &prevOS)
		} else {
			cfg = prevConfigs[b.rng.Intn(len(prevConfigs))]
		}
		prevConfigs = append(prevConfigs, cfg)
		b.hosts[a] = cfg.clone()
	}
}

func (b *builder) sampleConfig(prevServices, prevProcs *[]int, prevOS *[]string) *hostConfig {
	cfg := &hostConfig{
		services:  make([]bool, len(b.services)),
		processes: make([]bool, len(b.processes)),
	}
	b.dirichletDraws(cfg.services, prevServices, max(poisson(b.rng, b.p.LambdaV), 1))
	b.dirichletDraws(cfg.processes, prevProcs, poisson(b.rng, b.p.LambdaV))
	if len(*prevOS) == 0 || b.rng.Float64() < b.p.AlphaV/(b.p.AlphaV+float64(len(*prevOS))) {
		cfg.os = b.oses[b.rng.Intn(len(b.oses))]
	} else {
		cfg.os = (*prevOS)[b.rng.Intn(len(*prevOS))]
	}
	*prevOS = append(*prevOS, cfg.os)
	return cfg
}

// dirichletDraws sets k entries of set, each a fresh uniform pick with
// probability alpha_V/(alpha_V+i) or a repeat of an earlier pick.
func (b *builder) dirichletDraws(set []bool, prev *[]int, k int) {
	if len(set) == 0 {
		return
	}
	for i := 0; i < k; i++ {
		var x int
		if i == 0 || len(*prev) == 0 || b.rng.Float64() < b.p.AlphaV/(b.p.AlphaV+float64(i)) {
			x = b.rng.Intn(len(set))
		} else {
			x = (*prev)[b.rng.Intn(len(*prev))]
		}
		set[x] = true
		*prev = append(*prev, x)
	}
}

// poisson samples a Poisson variate by Knuth's multiplication method.
func poisson(rng *rand.Rand, lambda float64) int {
	limit := math.Exp(-lambda)
	k, p := 0, 1.0
	for {
		p *= rng.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}

func (c *hostConfig) clone() *hostConfig {
	return &hostConfig{
		os:        c.os,
		services:  append([]bool(nil), c.services...),
		processes: append([]bool(nil), c.processes...),
	}
}

func anyTrue(bs []bool) bool {
	for _, b := range bs {
		if b {
			return true
		}
	}
	return false
}

func (b *builder) serviceIndex(srv string) int {
	for i, s := range b.services {
		if s == srv {
			return i
		}
	}
	return -1
}

func (b *builder) processIndex(proc string) int {
	for i, p := range b.processes {
		if p == proc {
			return i
		}
	}
	return -1
}

func (b *builder) vulnerableTo(cfg *hostConfig, e scenario.Exploit) bool {
	return cfg.services[b.serviceIndex(e.Service)] && e.MatchesOS(cfg.os)
}

func (b *builder) vulnerable(cfg *hostConfig) bool {
	for _, name := range sortedNames(b.exploits) {
		if b.vulnerableTo(cfg, b.exploits[name]) {
			return true
		}
	}
	return false
}

// makeVulnerable opens a random exploit's service on the host, switching
// its OS when the exploit needs one.
func (b *builder) makeVulnerable(cfg *hostConfig) {
	names := sortedNames(b.exploits)
	e := b.exploits[names[b.rng.Intn(len(names))]]
	cfg.services[b.serviceIndex(e.Service)] = true
	if e.OS != "" {
		cfg.os = e.OS
	}
}

// ensureVulnerability makes every sensitive host and at least one host per
// subnet exploitable.
func (b *builder) ensureVulnerability() {
	covered := map[int]bool{}
	for _, a := range b.addrs {
		_, sensitive := b.sensitive[a]
		if !sensitive && covered[a.Subnet] {
			continue
		}
		cfg := b.hosts[a]
		if b.vulnerable(cfg) {
			covered[a.Subnet] = true
		} else if sensitive {
			b.makeVulnerable(cfg)
			covered[a.Subnet] = true
		}
	}
	for s := 1; s < len(b.subnets); s++ {
		if covered[s] {
			continue
		}
		b.makeVulnerable(b.hosts[scenario.Address{Subnet: s, Host: b.rng.Intn(b.subnets[s])}])
	}
}

// ensureRootable gives every sensitive host a way to root: a root exploit
// it is already open to, or a matching escalation whose process is added.
func (b *builder) ensureRootable() {
	for _, a := range sortedAddrs(b.sensitive) {
		cfg := b.hosts[a]
		if b.rootable(cfg) {
			continue
		}
		var procs []string
		for _, name := range sortedNames(b.privescs) {
			if pe := b.privescs[name]; pe.MatchesOS(cfg.os) {
				procs = append(procs, pe.Process)
			}
		}
		if len(procs) > 0 {
			cfg.processes[b.processIndex(procs[b.rng.Intn(len(procs))])] = true
			continue
		}
		var srvs []string
		for _, name := range sortedNames(b.exploits) {
			if e := b.exploits[name]; e.Access == scenario.RootAccess && e.MatchesOS(cfg.os) {
				srvs = append(srvs, e.Service)
			}
		}
		if len(srvs) > 0 {
			cfg.services[b.serviceIndex(srvs[b.rng.Intn(len(srvs))])] = true
			continue
		}
		b.switchToPrivEscOS(cfg)
	}
}

// switchToPrivEscOS moves the host onto the OS of a random escalation and
// reopens an exploit that still works there. Candidates that remain stuck
// are rejected by the solvability check.
func (b *builder) switchToPrivEscOS(cfg *hostConfig) {
	names := sortedNames(b.privescs)
	pe := b.privescs[names[b.rng.Intn(len(names))]]
	if pe.OS != "" {
		cfg.os = pe.OS
	}
	cfg.processes[b.processIndex(pe.Process)] = true
	if b.vulnerable(cfg) {
		return
	}
	var srvs []string
	for _, name := range sortedNames(b.exploits) {
		if e := b.exploits[name]; e.MatchesOS(cfg.os) {
			srvs = append(srvs, e.Service)
		}
	}
	if len(srvs) > 0 {
		cfg.services[b.serviceIndex(srvs[b.rng.Intn(len(srvs))])] = true
	}
}

func (b *builder) rootable(cfg *hostConfig) bool {
	for _, name := range sortedNames(b.exploits) {
		if e := b.exploits[name]; e.Access == scenario.RootAccess && b.vulnerableTo(cfg, e) {
			return true
		}
	}
	for _, name := range sortedNames(b.privescs) {
		pe := b.privescs[name]
		if cfg.processes[b.processIndex(pe.Process)] && pe.MatchesOS(cfg.os) {
			return true
		}
	}
	return false
}

// generateFirewall allows everything between user subnets. Every other link
// blocks Restrictiveness random services, then re-opens one service that is
// exploitable in the destination subnet if none is left, and never ends up
// with nothing allowed.
func (b *builder) generateFirewall() {
	exploitable := make([][]string, len(b.subnets))
	for s := range exploitable {
		seen := map[string]bool{}
		for _, a := range b.addrs {
			if a.Subnet != s {
				continue
			}
			for _, name := range sortedNames(b.exploits) {
				e := b.exploits[name]
				if !seen[e.Service] && b.vulnerableTo(b.hosts[a], e) {
					seen[e.Service] = true
				}
			}
		}
		exploitable[s] = sortedSet(seen)
	}

	b.firewall = map[scenario.Link][]string{}
	for src := range b.subnets {
		for dst := range b.subnets {
			if src == dst || b.topology[src][dst] == 0 {
				continue
			}
			link := scenario.Link{Src: src, Dst: dst}
			if src > sensitiveSubnet && dst > sensitiveSubnet {
				b.firewall[link] = append([]string(nil), b.services...)
				continue
			}
			blocked := map[string]bool{}
			perm := b.rng.Perm(len(b.services))
			for _, i := range perm[:min(b.p.Restrictiveness, len(perm))] {
				blocked[b.services[i]] = true
			}
			if vuln := exploitable[dst]; len(vuln) > 0 && allBlocked(vuln, blocked) {
				delete(blocked, vuln[b.rng.Intn(len(vuln))])
			}
			if len(blocked) == len(b.services) {
				delete(blocked, b.services[b.rng.Intn(len(b.services))])
			}
			var allowed []string
			for _, srv := range b.services {
				if !blocked[srv] {
					allowed = append(allowed, srv)
				}
			}
			sort.Strings(allowed)
			b.firewall[link] = allowed
		}
	}
}

func allBlocked(srvs []string, blocked map[string]bool) bool {
	for _, s := range srvs {
		if !blocked[s] {
			return false
		}
	}
	return true
}

func (b *builder) definition() *scenario.Definition {
	name := b.p.Name
	if name == "" {
		name = "generated"
	}
	d := &scenario.Definition{
		Name:      name,
		Subnets:   b.subnets,
		Topology:  b.topology,
		OS:        b.oses,
		Services:  b.services,
		Processes: b.processes,
		Hosts:     make(map[scenario.Address]scenario.Host, len(b.addrs)),
		Firewall:  b.firewall,
		Exploits:  b.exploits,
		PrivEscs:  b.privescs,
		Sensitive: b.sensitive,
		ScanCosts: scenario.ScanCosts{
			Service: b.p.ServiceScanCost,
			OS:      b.p.OSScanCost,
			Subnet:  b.p.SubnetScanCost,
			Process: b.p.ProcessScanCost,
		},
		StepLimit: b.p.StepLimit,
	}
	for _, a := range b.addrs {
		cfg := b.hosts[a]
		h := scenario.Host{
			Address:        a,
			OS:             cfg.os,
			Value:          b.sensitive[a],
			DiscoveryValue: b.p.HostDiscoveryValue,
		}
		for i, on := range cfg.services {
			if on {
				h.Services = append(h.Services, b.services[i])
			}
		}
		for i, on := range cfg.processes {
			if on {
				h.Processes = append(h.Processes, b.processes[i])
			}
		}
		d.Hosts[a] = h
	}
	return d
}

func sortedNames[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedSet(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedAddrs(m map[scenario.Address]float64) []scenario.Address {
	out := make([]scenario.Address, 0, len(m))
	for a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
