package network

import "netattack-sim/internal/scenario"

// HostState is the dynamic status of one host within an episode.
type HostState struct {
	Address     scenario.Address
	Compromised bool
	Reachable   bool
	Discovered  bool
	Access      scenario.AccessLevel
}

// State is the mutable per-episode network state. Access, compromise,
// reachability and discovery only ever move forward.
type State struct {
	def   *scenario.Definition
	hosts []HostState
	pos   map[scenario.Address]int
}

// NewState returns the state at the start of an episode: hosts in public
// subnets whose internet link lets any service through are reachable and
// discovered, every other host is unknown.
func NewState(def *scenario.Definition) *State {
	addrs := def.Addresses()
	s := &State{
		def:   def,
		hosts: make([]HostState, len(addrs)),
		pos:   make(map[scenario.Address]int, len(addrs)),
	}
	for i, a := range addrs {
		open := def.Public(a.Subnet) && def.LinkOpen(scenario.Internet, a.Subnet)
		s.hosts[i] = HostState{Address: a, Reachable: open, Discovered: open}
		s.pos[a] = i
	}
	return s
}

// Definition returns the scenario the state belongs to.
func (s *State) Definition() *scenario.Definition { return s.def }

// Host returns a copy of the status of a. Unknown addresses yield a zero value.
func (s *State) Host(a scenario.Address) HostState {
	if i, ok := s.pos[a]; ok {
		return s.hosts[i]
	}
	return HostState{Address: a}
}

// Hosts returns a copy of every host status in canonical order.
func (s *State) Hosts() []HostState {
	return append([]HostState(nil), s.hosts...)
}

func (s *State) host(a scenario.Address) *HostState {
	if i, ok := s.pos[a]; ok {
		return &s.hosts[i]
	}
	return nil
}

// HasAccess reports whether the attacker holds at least level on a.
func (s *State) HasAccess(a scenario.Address, level scenario.AccessLevel) bool {
	h := s.host(a)
	return h != nil && h.Compromised && h.Access >= level
}

// GoalReached reports whether every sensitive host is held at root.
func (s *State) GoalReached() bool {
	for a := range s.def.Sensitive {
		h := s.host(a)
		if h == nil || h.Access < scenario.RootAccess {
			return false
		}
	}
	return true
}

// Clone returns an independent copy sharing the same definition.
func (s *State) Clone() *State {
	return &State{
		def:   s.def,
		hosts: append([]HostState(nil), s.hosts...),
		pos:   s.pos,
	}
}

// progress is a monotone measure of everything the attacker has gained.
func (s *State) progress() int {
	n := 0
	for _, h := range s.hosts {
		n += int(h.Access)
		if h.Compromised {
			n++
		}
		if h.Reachable {
			n++
		}
		if h.Discovered {
			n++
		}
	}
	return n
}
