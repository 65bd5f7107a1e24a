package observation

import (
	"netattack-sim/internal/network"
	"netattack-sim/internal/scenario"
)

// Observation is a dense feature tensor. Shape is [rows*cols] for the flat
// layout and [rows, cols] for the 2D layout; Data is row-major either way.
type Observation struct {
	Shape []int
	Data  []float64
}

// Options select the encoding strategy and layout.
type Options struct {
	FullyObservable bool
	Flat            bool
}

// Encoder turns network state and action results into observations.
type Encoder interface {
	// Reset forgets everything observed and encodes the initial state.
	Reset(s *network.State) Observation
	// Encode encodes the state after res was applied.
	Encode(s *network.State, res network.Result) Observation
	// Shape is the shape of every observation this encoder produces.
	Shape() []int
	// Cols is the number of columns in a host row.
	Cols() int
}

// NewEncoder builds the encoder for def selected by opts.
func NewEncoder(def *scenario.Definition, opts Options) Encoder {
	l := newLayout(def)
	if opts.FullyObservable {
		return &fullEncoder{layout: l, flat: opts.Flat}
	}
	return &partialEncoder{layout: l, flat: opts.Flat}
}

func shape(rows, cols int, flat bool) []int {
	if flat {
		return []int{rows * cols}
	}
	return []int{rows, cols}
}

// fullEncoder reports the truth for every host whether or not it has been
// discovered.
type fullEncoder struct {
	layout
	flat bool
}

func (e *fullEncoder) Shape() []int { return shape(e.rows(), e.width, e.flat) }

func (e *fullEncoder) Cols() int { return e.width }

func (e *fullEncoder) Reset(s *network.State) Observation {
	return e.encode(s, nil)
}

func (e *fullEncoder) Encode(s *network.State, res network.Result) Observation {
	return e.encode(s, &res)
}

func (e *fullEncoder) encode(s *network.State, res *network.Result) Observation {
	data := make([]float64, e.rows()*e.width)
	for i, a := range e.addrs {
		row := data[i*e.width : (i+1)*e.width]
		hs := s.Host(a)
		for g := group(0); g < numGroups; g++ {
			e.fill(row, g, a, hs)
		}
	}
	if res != nil {
		fillAux(data[len(e.addrs)*e.width:], *res)
	}
	return Observation{Shape: e.Shape(), Data: data}
}

// partialEncoder reports only what actions have revealed. Each host row
// holds three blocks of width columns: the last known value of every
// feature, a flag set only when the feature was revealed by this step, and a
// flag set once the feature has been revealed at all. A known zero and a
// never-observed feature differ only in the last block.
type partialEncoder struct {
	layout
	flat  bool
	known [][]float64
	seen  [][]bool
}

func (e *partialEncoder) Shape() []int { return shape(e.rows(), e.Cols(), e.flat) }

func (e *partialEncoder) Cols() int { return 3 * e.width }

func (e *partialEncoder) Reset(s *network.State) Observation {
	e.known = make([][]float64, len(e.addrs))
	e.seen = make([][]bool, len(e.addrs))
	for i := range e.known {
		e.known[i] = make([]float64, e.width)
		e.seen[i] = make([]bool, e.width)
	}
	fresh := e.freshRows()
	for i, a := range e.addrs {
		if s.Host(a).Discovered {
			e.reveal(s, fresh, i, gAddress, gReachable, gDiscovered)
		}
	}
	return e.emit(fresh, nil)
}

func (e *partialEncoder) Encode(s *network.State, res network.Result) Observation {
	if e.known == nil {
		e.Reset(s)
	}
	fresh := e.freshRows()
	if res.Success() && res.Action.Type != network.NoOp {
		t := e.indexOf(res.Action.Target)
		switch res.Action.Type {
		case network.Exploit:
			e.reveal(s, fresh, t, gAddress, gReachable, gDiscovered, gCompromised, gValue, gServices, gOS, gAccess)
		case network.PrivilegeEscalation:
			e.reveal(s, fresh, t, gAddress, gReachable, gDiscovered, gCompromised, gValue, gProcesses, gOS, gAccess)
		case network.ServiceScan:
			e.reveal(s, fresh, t, gAddress, gReachable, gDiscovered, gServices)
		case network.OSScan:
			e.reveal(s, fresh, t, gAddress, gReachable, gDiscovered, gOS)
		case network.ProcessScan:
			e.reveal(s, fresh, t, gAddress, gReachable, gDiscovered, gProcesses, gAccess)
		case network.SubnetScan:
			e.reveal(s, fresh, t, gAddress, gReachable, gDiscovered, gCompromised)
			for _, a := range res.Discovered {
				e.reveal(s, fresh, e.indexOf(a), gAddress, gReachable, gDiscovered, gDiscoveryValue)
			}
		}
	}
	return e.emit(fresh, &res)
}

func (e *partialEncoder) freshRows() [][]bool {
	fresh := make([][]bool, len(e.addrs))
	for i := range fresh {
		fresh[i] = make([]bool, e.width)
	}
	return fresh
}

func (e *partialEncoder) indexOf(a scenario.Address) int {
	for i, x := range e.addrs {
		if x == a {
			return i
		}
	}
	return -1
}

func (e *partialEncoder) reveal(s *network.State, fresh [][]bool, i int, groups ...group) {
	if i < 0 {
		return
	}
	a := e.addrs[i]
	hs := s.Host(a)
	for _, g := range groups {
		e.fill(e.known[i], g, a, hs)
		sp := e.spans[g]
		for c := sp.off; c < sp.off+sp.n; c++ {
			fresh[i][c] = true
			e.seen[i][c] = true
		}
	}
}

func (e *partialEncoder) emit(fresh [][]bool, res *network.Result) Observation {
	cols := e.Cols()
	data := make([]float64, e.rows()*cols)
	for i := range e.addrs {
		row := data[i*cols : (i+1)*cols]
		copy(row, e.known[i])
		for c, f := range fresh[i] {
			row[e.width+c] = boolf(f)
			row[2*e.width+c] = boolf(e.seen[i][c])
		}
	}
	if res != nil {
		fillAux(data[len(e.addrs)*cols:], *res)
	}
	return Observation{Shape: e.Shape(), Data: data}
}
