package observation

import (
	"slices"

	"netattack-sim/internal/network"
	"netattack-sim/internal/scenario"
)

// Aux row columns, set from the outcome of the last action.
const (
	AuxSuccess = iota
	AuxConnectionError
	AuxPermissionError
	AuxPreconditionFailed
	AuxChanceFailure
	auxWidth
)

// feature groups share one reveal rule.
type group int

const (
	gAddress group = iota
	gCompromised
	gReachable
	gDiscovered
	gValue
	gDiscoveryValue
	gAccess
	gOS
	gServices
	gProcesses
	numGroups
)

type span struct{ off, n int }

// layout maps feature groups of a scenario to columns of a host row.
type layout struct {
	def   *scenario.Definition
	addrs []scenario.Address
	spans [numGroups]span
	width int
}

func newLayout(def *scenario.Definition) layout {
	l := layout{def: def, addrs: def.Addresses()}
	sizes := [numGroups]int{
		gAddress:        len(def.Subnets) + def.MaxSubnetSize(),
		gCompromised:    1,
		gReachable:      1,
		gDiscovered:     1,
		gValue:          1,
		gDiscoveryValue: 1,
		gAccess:         1,
		gOS:             len(def.OS),
		gServices:       len(def.Services),
		gProcesses:      len(def.Processes),
	}
	off := 0
	for g := group(0); g < numGroups; g++ {
		l.spans[g] = span{off: off, n: sizes[g]}
		off += sizes[g]
	}
	l.width = max(off, auxWidth)
	return l
}

// rows is one row per host plus the aux row.
func (l layout) rows() int { return len(l.addrs) + 1 }

// fill writes the true values of group g for host a into row.
func (l layout) fill(row []float64, g group, a scenario.Address, hs network.HostState) {
	sp := l.spans[g]
	cols := row[sp.off : sp.off+sp.n]
	clear(cols)
	host := l.def.Hosts[a]
	switch g {
	case gAddress:
		cols[a.Subnet] = 1
		cols[len(l.def.Subnets)+a.Host] = 1
	case gCompromised:
		cols[0] = boolf(hs.Compromised)
	case gReachable:
		cols[0] = boolf(hs.Reachable)
	case gDiscovered:
		cols[0] = boolf(hs.Discovered)
	case gValue:
		cols[0] = host.Value
	case gDiscoveryValue:
		cols[0] = host.DiscoveryValue
	case gAccess:
		cols[0] = float64(hs.Access)
	case gOS:
		if i := slices.Index(l.def.OS, host.OS); i >= 0 {
			cols[i] = 1
		}
	case gServices:
		for i, srv := range l.def.Services {
			cols[i] = boolf(host.RunsService(srv))
		}
	case gProcesses:
		for i, proc := range l.def.Processes {
			cols[i] = boolf(host.RunsProcess(proc))
		}
	}
}

func fillAux(row []float64, res network.Result) {
	clear(row[:auxWidth])
	switch res.Outcome {
	case network.Succeeded:
		row[AuxSuccess] = 1
	case network.ConnectionError:
		row[AuxConnectionError] = 1
	case network.PermissionError:
		row[AuxPermissionError] = 1
	case network.PreconditionFailed:
		row[AuxPreconditionFailed] = 1
	case network.ChanceFailure:
		row[AuxChanceFailure] = 1
	}
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
