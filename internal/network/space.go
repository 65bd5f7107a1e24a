package network

import (
	"fmt"

	"netattack-sim/internal/scenario"
)

// ParamAction names an action by target, type and, for exploits and
// escalations, the exploit or escalation name.
type ParamAction struct {
	Target scenario.Address
	Type   ActionType
	Name   string
}

type actionKey struct {
	target scenario.Address
	typ    ActionType
	name   string
}

// vectorTypes orders action types in the vector action form.
var vectorTypes = []ActionType{Exploit, PrivilegeEscalation, ServiceScan, OSScan, SubnetScan, ProcessScan}

// ActionSpace enumerates every action of a scenario. Flat index i and the
// equivalent ParamAction resolve to the same Action.
type ActionSpace struct {
	def     *scenario.Definition
	actions []Action
	index   map[actionKey]int
}

// NewActionSpace lists, for each address in canonical order, the four scans
// followed by every exploit and every escalation in name order.
func NewActionSpace(def *scenario.Definition) *ActionSpace {
	s := &ActionSpace{def: def, index: make(map[actionKey]int)}
	exploits := def.ExploitNames()
	privescs := def.PrivEscNames()
	c := def.ScanCosts
	for _, a := range def.Addresses() {
		s.add(scanAction(ServiceScan, a, c.Service), "")
		s.add(scanAction(OSScan, a, c.OS), "")
		s.add(scanAction(SubnetScan, a, c.Subnet), "")
		s.add(scanAction(ProcessScan, a, c.Process), "")
		for _, name := range exploits {
			s.add(exploitAction(a, def.Exploits[name]), name)
		}
		for _, name := range privescs {
			s.add(privEscAction(a, def.PrivEscs[name]), name)
		}
	}
	return s
}

func (s *ActionSpace) add(a Action, name string) {
	s.index[actionKey{target: a.Target, typ: a.Type, name: name}] = len(s.actions)
	s.actions = append(s.actions, a)
}

// Len is the size of the flat action space.
func (s *ActionSpace) Len() int { return len(s.actions) }

// Get returns the action at flat index i.
func (s *ActionSpace) Get(i int) (Action, error) {
	if i < 0 || i >= len(s.actions) {
		return Action{}, fmt.Errorf("%w: %d not in [0, %d)", ErrActionIndex, i, len(s.actions))
	}
	return s.actions[i], nil
}

// Actions returns a copy of the flat action list.
func (s *ActionSpace) Actions() []Action {
	return append([]Action(nil), s.actions...)
}

// Index returns the flat index of p.
func (s *ActionSpace) Index(p ParamAction) (int, error) {
	if p.Type == NoOp {
		return 0, fmt.Errorf("%w: noop has no flat index", ErrActionType)
	}
	if _, ok := actionTypeNames[p.Type]; !ok {
		return 0, fmt.Errorf("%w: %d", ErrActionType, int(p.Type))
	}
	if !s.def.HasAddress(p.Target) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTarget, p.Target)
	}
	name := ""
	switch p.Type {
	case Exploit:
		if _, ok := s.def.Exploits[p.Name]; !ok {
			return 0, fmt.Errorf("%w: exploit %q", ErrUnknownAction, p.Name)
		}
		name = p.Name
	case PrivilegeEscalation:
		if _, ok := s.def.PrivEscs[p.Name]; !ok {
			return 0, fmt.Errorf("%w: privilege escalation %q", ErrUnknownAction, p.Name)
		}
		name = p.Name
	}
	i, ok := s.index[actionKey{target: p.Target, typ: p.Type, name: name}]
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrUnknownAction, p)
	}
	return i, nil
}

// Resolve turns a ParamAction into an Action. A NoOp tuple resolves to the
// no-op action whatever its target.
func (s *ActionSpace) Resolve(p ParamAction) (Action, error) {
	if p.Type == NoOp {
		return NoOpAction(), nil
	}
	i, err := s.Index(p)
	if err != nil {
		return Action{}, err
	}
	return s.actions[i], nil
}

// VectorDims returns the size of each component of the vector action form:
// type, subnet (internet excluded), host, os (0 = any), service, process.
func (s *ActionSpace) VectorDims() []int {
	d := s.def
	return []int{
		len(vectorTypes),
		len(d.Subnets) - 1,
		d.MaxSubnetSize(),
		len(d.OS) + 1,
		max(len(d.Services), 1),
		max(len(d.Processes), 1),
	}
}

// FromVector decodes the vector action form. The host component wraps
// around the size of the chosen subnet. An exploit or escalation vector
// that names no defined exploit or escalation decodes to the no-op.
func (s *ActionSpace) FromVector(v []int) (Action, error) {
	dims := s.VectorDims()
	if len(v) != len(dims) {
		return Action{}, fmt.Errorf("%w: expected %d components, got %d", ErrActionVector, len(dims), len(v))
	}
	for i, x := range v {
		if x < 0 || x >= dims[i] {
			return Action{}, fmt.Errorf("%w: component %d = %d not in [0, %d)", ErrActionVector, i, x, dims[i])
		}
	}
	d := s.def
	subnet := v[1] + 1
	target := scenario.Address{Subnet: subnet, Host: v[2] % d.Subnets[subnet]}
	os := ""
	if v[3] > 0 {
		os = d.OS[v[3]-1]
	}
	typ := vectorTypes[v[0]]
	switch typ {
	case Exploit:
		if len(d.Services) == 0 {
			return NoOpAction(), nil
		}
		srv := d.Services[v[4]]
		for _, name := range d.ExploitNames() {
			e := d.Exploits[name]
			if e.Service == srv && e.OS == os {
				return s.Resolve(ParamAction{Target: target, Type: Exploit, Name: name})
			}
		}
		return NoOpAction(), nil
	case PrivilegeEscalation:
		if len(d.Processes) == 0 {
			return NoOpAction(), nil
		}
		proc := d.Processes[v[5]]
		for _, name := range d.PrivEscNames() {
			p := d.PrivEscs[name]
			if p.Process == proc && p.OS == os {
				return s.Resolve(ParamAction{Target: target, Type: PrivilegeEscalation, Name: name})
			}
		}
		return NoOpAction(), nil
	}
	return s.Resolve(ParamAction{Target: target, Type: typ})
}
