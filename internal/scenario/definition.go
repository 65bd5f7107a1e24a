package scenario

import (
	"slices"
	"sort"
)

// Host is the static configuration of one machine.
type Host struct {
	Address   Address
	OS        string
	Services  []string
	Processes []string
	// Firewall maps a source host to the services this host refuses from it.
	Firewall       map[Address][]string
	Value          float64
	DiscoveryValue float64
}

// RunsService reports whether the host exposes srv.
func (h Host) RunsService(srv string) bool { return slices.Contains(h.Services, srv) }

// RunsProcess reports whether the host runs proc.
func (h Host) RunsProcess(proc string) bool { return slices.Contains(h.Processes, proc) }

// Denies reports whether the host firewall drops srv traffic coming from src.
func (h Host) Denies(src Address, srv string) bool {
	return slices.Contains(h.Firewall[src], srv)
}

// Exploit grants access on hosts exposing Service. An empty OS matches any OS.
type Exploit struct {
	Name    string
	Service string
	OS      string
	Prob    float64
	Cost    float64
	Access  AccessLevel
}

// MatchesOS reports whether the exploit works against os.
func (e Exploit) MatchesOS(os string) bool { return e.OS == "" || e.OS == os }

// PrivEsc raises access on hosts running Process. An empty OS matches any OS.
type PrivEsc struct {
	Name    string
	Process string
	OS      string
	Prob    float64
	Cost    float64
	Access  AccessLevel
}

// MatchesOS reports whether the escalation works against os.
func (p PrivEsc) MatchesOS(os string) bool { return p.OS == "" || p.OS == os }

// Link is a directed subnet pair used to key firewall rules.
type Link struct {
	Src int
	Dst int
}

// ScanCosts holds the fixed cost of each scan type.
type ScanCosts struct {
	Service float64
	OS      float64
	Subnet  float64
	Process float64
}

// Definition describes a network and the attacker's toolkit. It is built once
// by the loader or the generator and treated as read-only afterwards, so a
// single Definition may back many episodes concurrently.
type Definition struct {
	Name string
	// Subnets holds the size of each subnet; Subnets[Internet] is always 1.
	Subnets   []int
	Topology  [][]int
	OS        []string
	Services  []string
	Processes []string
	Hosts     map[Address]Host
	Firewall  map[Link][]string
	Exploits  map[string]Exploit
	PrivEscs  map[string]PrivEsc
	Sensitive map[Address]float64
	ScanCosts ScanCosts
	StepLimit int
}

// Addresses lists every host address in canonical order.
func (d *Definition) Addresses() []Address {
	var out []Address
	for s := 1; s < len(d.Subnets); s++ {
		for h := 0; h < d.Subnets[s]; h++ {
			out = append(out, Address{Subnet: s, Host: h})
		}
	}
	return out
}

// NumHosts counts hosts outside the internet.
func (d *Definition) NumHosts() int {
	n := 0
	for s := 1; s < len(d.Subnets); s++ {
		n += d.Subnets[s]
	}
	return n
}

// MaxSubnetSize returns the size of the largest host-bearing subnet.
func (d *Definition) MaxSubnetSize() int {
	m := 0
	for s := 1; s < len(d.Subnets); s++ {
		m = max(m, d.Subnets[s])
	}
	return m
}

// HasAddress reports whether a names a real host.
func (d *Definition) HasAddress(a Address) bool {
	return a.Subnet > Internet && a.Subnet < len(d.Subnets) && a.Host >= 0 && a.Host < d.Subnets[a.Subnet]
}

// Connected reports whether two subnets share a topology edge.
func (d *Definition) Connected(a, b int) bool {
	if a < 0 || b < 0 || a >= len(d.Topology) || b >= len(d.Topology[a]) {
		return false
	}
	return d.Topology[a][b] == 1
}

// Public reports whether subnet s is exposed to the internet.
func (d *Definition) Public(s int) bool { return d.Connected(s, Internet) }

// Allowed reports whether the subnet firewall lets srv traffic from src to dst.
func (d *Definition) Allowed(src, dst int, srv string) bool {
	if src == dst {
		return true
	}
	if !d.Connected(src, dst) {
		return false
	}
	return slices.Contains(d.Firewall[Link{Src: src, Dst: dst}], srv)
}

// LinkOpen reports whether any traffic at all passes from src to dst.
func (d *Definition) LinkOpen(src, dst int) bool {
	if src == dst {
		return true
	}
	return d.Connected(src, dst) && len(d.Firewall[Link{Src: src, Dst: dst}]) > 0
}

// IsSensitive reports whether a is a goal host.
func (d *Definition) IsSensitive(a Address) bool {
	_, ok := d.Sensitive[a]
	return ok
}

// TotalSensitiveValue sums the value of every goal host.
func (d *Definition) TotalSensitiveValue() float64 {
	var total float64
	for _, v := range d.Sensitive {
		total += v
	}
	return total
}

// ExploitNames returns exploit names sorted.
func (d *Definition) ExploitNames() []string { return sortedKeys(d.Exploits) }

// PrivEscNames returns privilege escalation names sorted.
func (d *Definition) PrivEscNames() []string { return sortedKeys(d.PrivEscs) }

// SensitiveAddresses returns goal host addresses in canonical order.
func (d *Definition) SensitiveAddresses() []Address {
	out := make([]Address, 0, len(d.Sensitive))
	for a := range d.Sensitive {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
