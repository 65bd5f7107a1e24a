package network

import (
	"slices"

	"netattack-sim/internal/scenario"
)

// Roller supplies uniform draws in [0, 1). *rand.Rand satisfies it.
type Roller interface {
	Float64() float64
}

// Executor applies actions to a State following the network rules of one
// scenario. It holds no episode state of its own.
type Executor struct {
	def *scenario.Definition
	rng Roller
}

// NewExecutor binds an executor to a scenario and a random source.
func NewExecutor(def *scenario.Definition, rng Roller) *Executor {
	return &Executor{def: def, rng: rng}
}

// Apply resolves a against s, mutating s in place on success. Failed actions
// leave s untouched; their cost is still reflected in the result's reward.
func (e *Executor) Apply(s *State, a Action) Result {
	res := Result{Action: a}
	if a.Type == NoOp {
		return res
	}
	tgt := s.host(a.Target)
	if tgt == nil || !tgt.Reachable || !tgt.Discovered {
		res.Outcome = ConnectionError
		return res
	}
	if a.Type.Remote() && !e.remotePermitted(s, a) {
		res.Outcome = PermissionError
		return res
	}
	if a.Type == Exploit && !e.trafficPermitted(s, a.Target, a.Service) {
		res.Outcome = ConnectionError
		return res
	}
	if a.Type.Local() && !s.HasAccess(a.Target, a.Required) {
		res.Outcome = PermissionError
		return res
	}

	host := e.def.Hosts[a.Target]
	switch a.Type {
	case Exploit:
		if !host.RunsService(a.Service) || (a.OS != "" && a.OS != host.OS) {
			res.Outcome = PreconditionFailed
			return res
		}
	case PrivilegeEscalation:
		if !host.RunsProcess(a.Process) || (a.OS != "" && a.OS != host.OS) {
			res.Outcome = PreconditionFailed
			return res
		}
	}

	alreadyOwned := a.Type == Exploit && tgt.Compromised
	if a.Prob < 1 && !alreadyOwned && e.rng.Float64() > a.Prob {
		res.Outcome = ChanceFailure
		return res
	}

	switch a.Type {
	case ServiceScan:
		res.Services = slices.Clone(host.Services)
	case OSScan:
		res.OS = host.OS
	case ProcessScan:
		res.Processes = slices.Clone(host.Processes)
		res.Access = tgt.Access
	case SubnetScan:
		e.subnetScan(s, a.Target.Subnet, &res)
	case Exploit:
		res.Services = slices.Clone(host.Services)
		res.OS = host.OS
		tgt.Compromised = true
		res.Value = e.raise(tgt, a.Access, host)
		res.Access = tgt.Access
		res.NewlyReachable = e.propagate(s, a.Target.Subnet)
	case PrivilegeEscalation:
		res.Processes = slices.Clone(host.Processes)
		res.OS = host.OS
		res.Value = e.raise(tgt, a.Access, host)
		res.Access = tgt.Access
	}
	return res
}

// raise lifts access without ever lowering it and returns the host value the
// first time root is reached.
func (e *Executor) raise(h *HostState, level scenario.AccessLevel, host scenario.Host) float64 {
	if level <= h.Access {
		return 0
	}
	wasRoot := h.Access >= scenario.RootAccess
	h.Access = level
	if !wasRoot && level >= scenario.RootAccess {
		return host.Value
	}
	return 0
}

// remotePermitted checks that a remote action has somewhere to be launched
// from: the internet for public subnets, otherwise a compromised host whose
// subnet is connected to the target (scans) or whose subnet firewall passes
// the exploited service (exploits).
func (e *Executor) remotePermitted(s *State, a Action) bool {
	if e.def.Public(a.Target.Subnet) {
		return true
	}
	for _, src := range s.hosts {
		if !src.Compromised || src.Access < a.Required {
			continue
		}
		if a.Type.Scan() && !e.def.Connected(src.Address.Subnet, a.Target.Subnet) {
			continue
		}
		if a.Type == Exploit && !e.def.Allowed(src.Address.Subnet, a.Target.Subnet, a.Service) {
			continue
		}
		return true
	}
	return false
}

// trafficPermitted checks both firewall layers for srv traffic reaching dst.
func (e *Executor) trafficPermitted(s *State, dst scenario.Address, srv string) bool {
	if e.def.Public(dst.Subnet) && e.def.Allowed(scenario.Internet, dst.Subnet, srv) {
		return true
	}
	host := e.def.Hosts[dst]
	for _, src := range s.hosts {
		if !src.Compromised || src.Address == dst {
			continue
		}
		if !e.def.Allowed(src.Address.Subnet, dst.Subnet, srv) {
			continue
		}
		if host.Denies(src.Address, srv) {
			continue
		}
		return true
	}
	return false
}

// propagate marks reachable every host in a subnet connected to from whose
// link from that subnet passes at least one service.
func (e *Executor) propagate(s *State, from int) []scenario.Address {
	var newly []scenario.Address
	for i := range s.hosts {
		h := &s.hosts[i]
		if h.Reachable {
			continue
		}
		sub := h.Address.Subnet
		if e.def.Connected(from, sub) && e.def.LinkOpen(from, sub) {
			h.Reachable = true
			newly = append(newly, h.Address)
		}
	}
	return newly
}

// subnetScan discovers every host in subnets connected to the scanned one.
func (e *Executor) subnetScan(s *State, from int, res *Result) {
	for i := range s.hosts {
		h := &s.hosts[i]
		if !e.def.Connected(from, h.Address.Subnet) {
			continue
		}
		res.Discovered = append(res.Discovered, h.Address)
		if h.Discovered {
			continue
		}
		h.Discovered = true
		res.NewlyDiscovered = append(res.NewlyDiscovered, h.Address)
		res.DiscoveryValue += e.def.Hosts[h.Address].DiscoveryValue
	}
}
