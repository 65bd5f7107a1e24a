package scenario

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidScenario is wrapped by every ValidationError.
var ErrInvalidScenario = errors.New("invalid scenario")

// Violation is one broken scenario constraint.
type Violation struct {
	Field   string
	Message string
}

func (v Violation) String() string { return v.Field + ": " + v.Message }

// ValidationError lists every violation found in a scenario.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return fmt.Sprintf("%v: %d violation(s): %s", ErrInvalidScenario, len(e.Violations), strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidScenario }

// Validate checks d against the static scenario invariants and returns every
// violation found, in a stable order. It never modifies d.
func Validate(d *Definition) []Violation {
	v := &validator{d: d}
	v.subnets()
	v.topology()
	osSet := v.names("os", d.OS, true)
	srvSet := v.names("services", d.Services, true)
	procSet := v.names("processes", d.Processes, false)
	v.exploits(osSet, srvSet)
	v.privEscs(osSet, procSet)
	v.scanCosts()
	v.hosts(osSet, srvSet, procSet)
	v.sensitive()
	v.firewall(srvSet)
	if d.StepLimit <= 0 {
		v.add("step_limit", "must be positive, got %d", d.StepLimit)
	}
	return v.out
}

type validator struct {
	d   *Definition
	out []Violation
}

func (v *validator) add(field, format string, args ...any) {
	v.out = append(v.out, Violation{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) subnets() {
	d := v.d
	if len(d.Subnets) < 2 {
		v.add("subnets", "at least one subnet is required")
		return
	}
	if d.Subnets[Internet] != 1 {
		v.add("subnets", "internet placeholder must have size 1, got %d", d.Subnets[Internet])
	}
	for s := 1; s < len(d.Subnets); s++ {
		if d.Subnets[s] <= 0 {
			v.add("subnets", "subnet %d must hold at least one host, got %d", s, d.Subnets[s])
		}
	}
}

func (v *validator) topology() {
	d := v.d
	n := len(d.Subnets)
	if len(d.Topology) != n {
		v.add("topology", "expected %d rows, got %d", n, len(d.Topology))
		return
	}
	for i, row := range d.Topology {
		if len(row) != n {
			v.add("topology", "row %d: expected %d columns, got %d", i, n, len(row))
			return
		}
	}
	for i := 0; i < n; i++ {
		if d.Topology[i][i] != 1 {
			v.add("topology", "subnet %d must be connected to itself", i)
		}
		for j := 0; j < n; j++ {
			c := d.Topology[i][j]
			if c != 0 && c != 1 {
				v.add("topology", "entry [%d][%d] must be 0 or 1, got %d", i, j, c)
			}
			if j > i && c != d.Topology[j][i] {
				v.add("topology", "entries [%d][%d] and [%d][%d] differ", i, j, j, i)
			}
		}
	}
}

func (v *validator) names(field string, names []string, required bool) map[string]bool {
	set := make(map[string]bool, len(names))
	if required && len(names) == 0 {
		v.add(field, "at least one entry is required")
	}
	for _, n := range names {
		if n == "" {
			v.add(field, "empty name")
			continue
		}
		if n == anyOS {
			v.add(field, "%q is reserved", anyOS)
		}
		if set[n] {
			v.add(field, "duplicate entry %q", n)
		}
		set[n] = true
	}
	return set
}

func (v *validator) exploits(osSet, srvSet map[string]bool) {
	d := v.d
	if len(d.Exploits) == 0 {
		v.add("exploits", "at least one exploit is required")
	}
	for _, name := range d.ExploitNames() {
		e := d.Exploits[name]
		field := "exploits." + name
		if !srvSet[e.Service] {
			v.add(field, "unknown service %q", e.Service)
		}
		if e.OS != "" && !osSet[e.OS] {
			v.add(field, "unknown os %q", e.OS)
		}
		v.action(field, e.Prob, e.Cost, e.Access)
	}
}

func (v *validator) privEscs(osSet, procSet map[string]bool) {
	d := v.d
	for _, name := range d.PrivEscNames() {
		p := d.PrivEscs[name]
		field := "privilege_escalation." + name
		if !procSet[p.Process] {
			v.add(field, "unknown process %q", p.Process)
		}
		if p.OS != "" && !osSet[p.OS] {
			v.add(field, "unknown os %q", p.OS)
		}
		v.action(field, p.Prob, p.Cost, p.Access)
	}
}

func (v *validator) action(field string, prob, cost float64, access AccessLevel) {
	if prob <= 0 || prob > 1 {
		v.add(field, "probability must be in (0, 1], got %g", prob)
	}
	if cost < 0 {
		v.add(field, "cost must be non-negative, got %g", cost)
	}
	if access != UserAccess && access != RootAccess {
		v.add(field, "access must be user or root, got %s", access)
	}
}

func (v *validator) scanCosts() {
	c := v.d.ScanCosts
	for _, sc := range []struct {
		field string
		cost  float64
	}{
		{"service_scan_cost", c.Service},
		{"os_scan_cost", c.OS},
		{"subnet_scan_cost", c.Subnet},
		{"process_scan_cost", c.Process},
	} {
		if sc.cost < 0 {
			v.add(sc.field, "must be non-negative, got %g", sc.cost)
		}
	}
}

func (v *validator) hosts(osSet, srvSet, procSet map[string]bool) {
	d := v.d
	for _, a := range d.Addresses() {
		h, ok := d.Hosts[a]
		field := "host_configurations." + a.String()
		if !ok {
			v.add(field, "missing host configuration")
			continue
		}
		if h.Address != a {
			v.add(field, "host records address %s", h.Address)
		}
		if !osSet[h.OS] {
			v.add(field, "unknown os %q", h.OS)
		}
		seen := map[string]bool{}
		for _, s := range h.Services {
			if !srvSet[s] {
				v.add(field, "unknown service %q", s)
			}
			if seen[s] {
				v.add(field, "duplicate service %q", s)
			}
			seen[s] = true
		}
		for _, p := range h.Processes {
			if !procSet[p] {
				v.add(field, "unknown process %q", p)
			}
		}
		if h.Value != d.Sensitive[a] {
			v.add(field, "value %g does not match sensitive value %g", h.Value, d.Sensitive[a])
		}
		if h.DiscoveryValue < 0 {
			v.add(field, "discovery value must be non-negative, got %g", h.DiscoveryValue)
		}
		srcs := make([]Address, 0, len(h.Firewall))
		for src := range h.Firewall {
			srcs = append(srcs, src)
		}
		sort.Slice(srcs, func(i, j int) bool { return srcs[i].Less(srcs[j]) })
		for _, src := range srcs {
			if !d.HasAddress(src) {
				v.add(field+".firewall", "unknown source address %s", src)
			}
			for _, s := range h.Firewall[src] {
				if !srvSet[s] {
					v.add(field+".firewall", "unknown service %q", s)
				}
			}
		}
	}
	extra := make([]Address, 0)
	for a := range d.Hosts {
		if !d.HasAddress(a) {
			extra = append(extra, a)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].Less(extra[j]) })
	for _, a := range extra {
		v.add("host_configurations."+a.String(), "address does not exist in subnets")
	}
}

func (v *validator) sensitive() {
	d := v.d
	if len(d.Sensitive) == 0 {
		v.add("sensitive_hosts", "at least one sensitive host is required")
	}
	for _, a := range d.SensitiveAddresses() {
		if !d.HasAddress(a) {
			v.add("sensitive_hosts", "address %s does not exist", a)
		}
		if d.Sensitive[a] < 0 {
			v.add("sensitive_hosts", "value of %s must be non-negative, got %g", a, d.Sensitive[a])
		}
	}
}

func (v *validator) firewall(srvSet map[string]bool) {
	d := v.d
	links := make([]Link, 0, len(d.Firewall))
	for l := range d.Firewall {
		links = append(links, l)
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].Src != links[j].Src {
			return links[i].Src < links[j].Src
		}
		return links[i].Dst < links[j].Dst
	})
	for _, l := range links {
		field := fmt.Sprintf("firewall.(%d, %d)", l.Src, l.Dst)
		if l.Src < 0 || l.Dst < 0 || l.Src >= len(d.Subnets) || l.Dst >= len(d.Subnets) {
			v.add(field, "unknown subnet")
			continue
		}
		if l.Src == l.Dst {
			v.add(field, "rule within a single subnet")
			continue
		}
		if !d.Connected(l.Src, l.Dst) {
			v.add(field, "subnets are not connected")
		}
		for _, s := range d.Firewall[l] {
			if !srvSet[s] {
				v.add(field, "unknown service %q", s)
			}
		}
	}
}
