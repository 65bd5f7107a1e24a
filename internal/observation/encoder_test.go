package observation

import (
	"slices"
	"testing"

	"netattack-sim/internal/network"
	"netattack-sim/internal/scenario"
)

type fixedRoller float64

func (r fixedRoller) Float64() float64 { return float64(r) }

type episode struct {
	def   *scenario.Definition
	space *network.ActionSpace
	state *network.State
	exec  *network.Executor
}

func newEpisode(t *testing.T) *episode {
	t.Helper()
	d, err := scenario.Load("testdata/tiny.yaml")
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	return &episode{
		def:   d,
		space: network.NewActionSpace(d),
		state: network.NewState(d),
		exec:  network.NewExecutor(d, fixedRoller(0)),
	}
}

func (ep *episode) apply(t *testing.T, target scenario.Address, typ network.ActionType, name string) network.Result {
	t.Helper()
	a, err := ep.space.Resolve(network.ParamAction{Target: target, Type: typ, Name: name})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return ep.exec.Apply(ep.state, a)
}

func cell(o Observation, cols, row, col int) float64 { return o.Data[row*cols+col] }

func TestShapes(t *testing.T) {
	ep := newEpisode(t)
	// 4 subnets + 1 host slot + 6 scalars + 1 os + 1 service + 1 process
	const width = 14
	cases := []struct {
		opts Options
		want []int
	}{
		{Options{FullyObservable: true}, []int{4, width}},
		{Options{FullyObservable: true, Flat: true}, []int{4 * width}},
		{Options{}, []int{4, 3 * width}},
		{Options{Flat: true}, []int{4 * 3 * width}},
	}
	for _, c := range cases {
		enc := NewEncoder(ep.def, c.opts)
		obs := enc.Reset(ep.state)
		if !slices.Equal(obs.Shape, c.want) || !slices.Equal(enc.Shape(), c.want) {
			t.Fatalf("%+v: expected shape %v, got %v", c.opts, c.want, obs.Shape)
		}
		n := 1
		for _, d := range c.want {
			n *= d
		}
		if len(obs.Data) != n {
			t.Fatalf("%+v: expected %d values, got %d", c.opts, n, len(obs.Data))
		}
	}
}

func TestFlatAndMatrixCarrySameData(t *testing.T) {
	for _, full := range []bool{true, false} {
		ep := newEpisode(t)
		flat := NewEncoder(ep.def, Options{FullyObservable: full, Flat: true})
		matrix := NewEncoder(ep.def, Options{FullyObservable: full})
		a := flat.Reset(ep.state)
		b := matrix.Reset(ep.state)
		if !slices.Equal(a.Data, b.Data) {
			t.Fatalf("full=%v: reset data differs between layouts", full)
		}
		res := ep.apply(t, scenario.Address{Subnet: 1, Host: 0}, network.Exploit, "e_ssh")
		a = flat.Encode(ep.state, res)
		b = matrix.Encode(ep.state, res)
		if !slices.Equal(a.Data, b.Data) {
			t.Fatalf("full=%v: step data differs between layouts", full)
		}
	}
}

func TestFullObservabilityIgnoresDiscovery(t *testing.T) {
	ep := newEpisode(t)
	enc := NewEncoder(ep.def, Options{FullyObservable: true})
	obs := enc.Reset(ep.state)
	l := newLayout(ep.def)
	// row 1 is (2, 0), not yet discovered
	if got := cell(obs, enc.Cols(), 1, l.spans[gServices].off); got != 1 {
		t.Fatalf("expected ssh visible on undiscovered host, got %v", got)
	}
	if got := cell(obs, enc.Cols(), 1, l.spans[gValue].off); got != 100 {
		t.Fatalf("expected value 100 on sensitive host, got %v", got)
	}
	if got := cell(obs, enc.Cols(), 1, l.spans[gDiscovered].off); got != 0 {
		t.Fatalf("expected discovered flag 0, got %v", got)
	}
}

func TestPartialInitialObservation(t *testing.T) {
	ep := newEpisode(t)
	enc := NewEncoder(ep.def, Options{})
	obs := enc.Reset(ep.state)
	l := newLayout(ep.def)
	cols := enc.Cols()

	if cell(obs, cols, 0, l.spans[gDiscovered].off) != 1 || cell(obs, cols, 0, l.width+l.spans[gDiscovered].off) != 1 {
		t.Fatalf("expected public host discovered and freshly observed")
	}
	if cell(obs, cols, 0, l.spans[gServices].off) != 0 {
		t.Fatalf("services must stay hidden before a scan")
	}
	for c := 0; c < cols; c++ {
		if cell(obs, cols, 1, c) != 0 {
			t.Fatalf("undiscovered host row must be empty, column %d = %v", c, cell(obs, cols, 1, c))
		}
	}
}

func TestPartialKeepsStaleValues(t *testing.T) {
	ep := newEpisode(t)
	enc := NewEncoder(ep.def, Options{})
	enc.Reset(ep.state)
	l := newLayout(ep.def)
	cols := enc.Cols()
	srv := l.spans[gServices].off

	res := ep.apply(t, scenario.Address{Subnet: 1, Host: 0}, network.ServiceScan, "")
	obs := enc.Encode(ep.state, res)
	if cell(obs, cols, 0, srv) != 1 || cell(obs, cols, 0, l.width+srv) != 1 {
		t.Fatalf("expected services revealed and fresh after scan")
	}

	obs = enc.Encode(ep.state, ep.exec.Apply(ep.state, network.NoOpAction()))
	if cell(obs, cols, 0, srv) != 1 {
		t.Fatalf("expected stale service value to be kept")
	}
	if cell(obs, cols, 0, l.width+srv) != 0 {
		t.Fatalf("expected fresh flag cleared on a later step")
	}
}

func TestPartialSeparatesObservedZeroFromUnobserved(t *testing.T) {
	public := scenario.Address{Subnet: 1, Host: 0}
	run := func(scan bool) (Observation, *partialEncoder) {
		ep := newEpisode(t)
		h := ep.def.Hosts[public]
		h.Processes = nil
		ep.def.Hosts[public] = h
		enc := NewEncoder(ep.def, Options{}).(*partialEncoder)
		enc.Reset(ep.state)
		enc.Encode(ep.state, ep.apply(t, public, network.Exploit, "e_ssh"))
		if scan {
			res := ep.apply(t, public, network.ProcessScan, "")
			if !res.Success() {
				t.Fatalf("process scan failed: %v", res.Outcome)
			}
			enc.Encode(ep.state, res)
		} else {
			enc.Encode(ep.state, ep.exec.Apply(ep.state, network.NoOpAction()))
		}
		return enc.Encode(ep.state, ep.exec.Apply(ep.state, network.NoOpAction())), enc
	}

	scanned, enc := run(true)
	unscanned, _ := run(false)
	cols := enc.Cols()
	proc := enc.spans[gProcesses].off

	if cell(scanned, cols, 0, proc) != 0 || cell(unscanned, cols, 0, proc) != 0 {
		t.Fatalf("expected no process values on either host row")
	}
	if cell(scanned, cols, 0, enc.width+proc) != 0 {
		t.Fatalf("fresh flag must clear after the scan step")
	}
	if cell(scanned, cols, 0, 2*enc.width+proc) != 1 {
		t.Fatalf("expected processes marked observed after a process scan")
	}
	if cell(unscanned, cols, 0, 2*enc.width+proc) != 0 {
		t.Fatalf("processes never scanned must not be marked observed")
	}
	if slices.Equal(scanned.Data[:cols], unscanned.Data[:cols]) {
		t.Fatalf("observed-empty and never-observed processes encode identically")
	}
}

func TestPartialSubnetScanRevealsHosts(t *testing.T) {
	ep := newEpisode(t)
	enc := NewEncoder(ep.def, Options{})
	enc.Reset(ep.state)
	l := newLayout(ep.def)
	cols := enc.Cols()

	ep.apply(t, scenario.Address{Subnet: 1, Host: 0}, network.Exploit, "e_ssh")
	res := ep.apply(t, scenario.Address{Subnet: 1, Host: 0}, network.SubnetScan, "")
	obs := enc.Encode(ep.state, res)
	for row := 1; row <= 2; row++ {
		if cell(obs, cols, row, l.spans[gDiscovered].off) != 1 {
			t.Fatalf("row %d: expected host discovered by subnet scan", row)
		}
		if cell(obs, cols, row, l.spans[gServices].off) != 0 {
			t.Fatalf("row %d: subnet scan must not reveal services", row)
		}
	}
	if cell(obs, cols, 0, l.spans[gCompromised].off) != 1 {
		t.Fatalf("expected scanning host shown as compromised")
	}
}

func TestAuxRow(t *testing.T) {
	ep := newEpisode(t)
	enc := NewEncoder(ep.def, Options{FullyObservable: true})
	enc.Reset(ep.state)
	cols := enc.Cols()
	aux := len(ep.def.Addresses())

	res := ep.apply(t, scenario.Address{Subnet: 2, Host: 0}, network.OSScan, "")
	obs := enc.Encode(ep.state, res)
	if cell(obs, cols, aux, AuxConnectionError) != 1 || cell(obs, cols, aux, AuxSuccess) != 0 {
		t.Fatalf("expected connection error in aux row")
	}
	res = ep.apply(t, scenario.Address{Subnet: 1, Host: 0}, network.OSScan, "")
	obs = enc.Encode(ep.state, res)
	if cell(obs, cols, aux, AuxSuccess) != 1 {
		t.Fatalf("expected success in aux row")
	}
}
