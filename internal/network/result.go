package network

import "netattack-sim/internal/scenario"

// Outcome classifies how an action resolved.
type Outcome int

const (
	Succeeded Outcome = iota
	// ConnectionError: the target is unknown, unreachable or firewalled off.
	ConnectionError
	// PermissionError: the attacker lacks the access the action needs.
	PermissionError
	// PreconditionFailed: the target lacks the service, process or OS the
	// action needs. It never depends on chance.
	PreconditionFailed
	// ChanceFailure: every precondition held but the probability roll failed.
	ChanceFailure
)

var outcomeNames = []string{"success", "connection_error", "permission_error", "precondition_failed", "chance_failure"}

func (o Outcome) String() string {
	if int(o) >= 0 && int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Result describes what an action did and what it revealed.
type Result struct {
	Action  Action
	Outcome Outcome
	// Value is granted once per host, when root is first reached.
	Value          float64
	DiscoveryValue float64

	Services  []string
	OS        string
	Processes []string
	Access    scenario.AccessLevel

	// Discovered lists every host seen by a subnet scan.
	Discovered      []scenario.Address
	NewlyDiscovered []scenario.Address
	NewlyReachable  []scenario.Address
}

// Success reports whether the action took effect.
func (r Result) Success() bool { return r.Outcome == Succeeded }

// InvalidTarget reports whether the action could not be aimed at its target
// at all, as opposed to failing on a missing precondition or a roll.
func (r Result) InvalidTarget() bool {
	return r.Outcome == ConnectionError || r.Outcome == PermissionError
}

// Reward is value gained minus the action cost. Cost is charged whatever
// the outcome.
func (r Result) Reward() float64 {
	return r.Value + r.DiscoveryValue - r.Action.Cost
}
