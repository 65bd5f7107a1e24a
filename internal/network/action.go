package network

import (
	"fmt"

	"netattack-sim/internal/scenario"
)

// ActionType enumerates what an action does.
type ActionType int

const (
	NoOp ActionType = iota
	ServiceScan
	OSScan
	SubnetScan
	ProcessScan
	Exploit
	PrivilegeEscalation
)

var actionTypeNames = map[ActionType]string{
	NoOp:                "noop",
	ServiceScan:         "service_scan",
	OSScan:              "os_scan",
	SubnetScan:          "subnet_scan",
	ProcessScan:         "process_scan",
	Exploit:             "exploit",
	PrivilegeEscalation: "privilege_escalation",
}

func (t ActionType) String() string {
	if n, ok := actionTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("action_type(%d)", int(t))
}

// ParseActionType maps a name such as "os_scan" back to its type.
func ParseActionType(s string) (ActionType, error) {
	for t, n := range actionTypeNames {
		if n == s {
			return t, nil
		}
	}
	return NoOp, fmt.Errorf("%w: %q", ErrActionType, s)
}

// Remote actions are launched across the network at the target.
func (t ActionType) Remote() bool {
	return t == ServiceScan || t == OSScan || t == Exploit
}

// Local actions run on a target the attacker already controls.
func (t ActionType) Local() bool {
	return t == SubnetScan || t == ProcessScan || t == PrivilegeEscalation
}

// Scan reports whether the action only gathers information.
func (t ActionType) Scan() bool {
	return t == ServiceScan || t == OSScan || t == SubnetScan || t == ProcessScan
}

// Action is a fully resolved action against one host. Actions are values
// built by the ActionSpace; callers never need to fill one in by hand.
type Action struct {
	Type   ActionType
	Target scenario.Address
	// Name is the exploit or privilege escalation name, empty for scans.
	Name    string
	Service string
	Process string
	// OS restricts exploits and escalations; empty matches every OS.
	OS   string
	Cost float64
	Prob float64
	// Access is the level granted by exploits and escalations.
	Access scenario.AccessLevel
	// Required is the level the attacker needs on the source (remote actions)
	// or on the target (local actions).
	Required scenario.AccessLevel
}

func (a Action) String() string {
	switch a.Type {
	case NoOp:
		return "noop"
	case Exploit, PrivilegeEscalation:
		return fmt.Sprintf("%s %s on %s", a.Type, a.Name, a.Target)
	default:
		return fmt.Sprintf("%s on %s", a.Type, a.Target)
	}
}

// NoOpAction does nothing and costs nothing.
func NoOpAction() Action {
	return Action{Type: NoOp, Prob: 1}
}

func scanAction(t ActionType, target scenario.Address, cost float64) Action {
	return Action{Type: t, Target: target, Cost: cost, Prob: 1, Required: scenario.UserAccess}
}

func exploitAction(target scenario.Address, e scenario.Exploit) Action {
	return Action{
		Type:     Exploit,
		Target:   target,
		Name:     e.Name,
		Service:  e.Service,
		OS:       e.OS,
		Cost:     e.Cost,
		Prob:     e.Prob,
		Access:   e.Access,
		Required: scenario.UserAccess,
	}
}

func privEscAction(target scenario.Address, p scenario.PrivEsc) Action {
	return Action{
		Type:     PrivilegeEscalation,
		Target:   target,
		Name:     p.Name,
		Process:  p.Process,
		OS:       p.OS,
		Cost:     p.Cost,
		Prob:     p.Prob,
		Access:   p.Access,
		Required: scenario.UserAccess,
	}
}
