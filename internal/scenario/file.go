package scenario

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// anyOS is the file spelling of an exploit or escalation that matches every OS.
const anyOS = "none"

// file is the YAML wire format of a Definition.
type file struct {
	Name            string                 `yaml:"name,omitempty"`
	Subnets         []int                  `yaml:"subnets"`
	Topology        [][]int                `yaml:"topology,flow"`
	SensitiveHosts  map[string]float64     `yaml:"sensitive_hosts"`
	OS              []string               `yaml:"os,flow"`
	Services        []string               `yaml:"services,flow"`
	Processes       []string               `yaml:"processes,flow,omitempty"`
	Exploits        map[string]exploitSpec `yaml:"exploits"`
	PrivEscs        map[string]privEscSpec `yaml:"privilege_escalation,omitempty"`
	ServiceScanCost float64                `yaml:"service_scan_cost"`
	OSScanCost      float64                `yaml:"os_scan_cost"`
	SubnetScanCost  float64                `yaml:"subnet_scan_cost"`
	ProcessScanCost float64                `yaml:"process_scan_cost"`
	HostConfigs     map[string]hostSpec    `yaml:"host_configurations"`
	Firewall        map[string][]string    `yaml:"firewall"`
	StepLimit       int                    `yaml:"step_limit"`
}

type exploitSpec struct {
	Service string  `yaml:"service"`
	OS      string  `yaml:"os,omitempty"`
	Prob    float64 `yaml:"prob"`
	Cost    float64 `yaml:"cost"`
	Access  string  `yaml:"access"`
}

type privEscSpec struct {
	Process string  `yaml:"process"`
	OS      string  `yaml:"os,omitempty"`
	Prob    float64 `yaml:"prob"`
	Cost    float64 `yaml:"cost"`
	Access  string  `yaml:"access"`
}

type hostSpec struct {
	OS             string              `yaml:"os"`
	Services       []string            `yaml:"services,flow"`
	Processes      []string            `yaml:"processes,flow,omitempty"`
	Firewall       map[string][]string `yaml:"firewall,omitempty"`
	DiscoveryValue float64             `yaml:"discovery_value,omitempty"`
}

// MarshalYAML renders the definition in the scenario file format. Map keys are
// sorted by the encoder so equal definitions produce identical bytes.
func (d *Definition) MarshalYAML() (any, error) {
	return d.toFile(), nil
}

// Encode returns the YAML form of d.
func (d *Definition) Encode() ([]byte, error) {
	return yaml.Marshal(d)
}

func (d *Definition) toFile() file {
	f := file{
		Name:            d.Name,
		Topology:        d.Topology,
		SensitiveHosts:  make(map[string]float64, len(d.Sensitive)),
		OS:              d.OS,
		Services:        d.Services,
		Processes:       d.Processes,
		Exploits:        make(map[string]exploitSpec, len(d.Exploits)),
		ServiceScanCost: d.ScanCosts.Service,
		OSScanCost:      d.ScanCosts.OS,
		SubnetScanCost:  d.ScanCosts.Subnet,
		ProcessScanCost: d.ScanCosts.Process,
		HostConfigs:     make(map[string]hostSpec, len(d.Hosts)),
		Firewall:        make(map[string][]string, len(d.Firewall)),
		StepLimit:       d.StepLimit,
	}
	if len(d.Subnets) > 1 {
		f.Subnets = d.Subnets[1:]
	}
	for a, v := range d.Sensitive {
		f.SensitiveHosts[a.String()] = v
	}
	for name, e := range d.Exploits {
		f.Exploits[name] = exploitSpec{Service: e.Service, OS: osOrAny(e.OS), Prob: e.Prob, Cost: e.Cost, Access: e.Access.String()}
	}
	if len(d.PrivEscs) > 0 {
		f.PrivEscs = make(map[string]privEscSpec, len(d.PrivEscs))
		for name, p := range d.PrivEscs {
			f.PrivEscs[name] = privEscSpec{Process: p.Process, OS: osOrAny(p.OS), Prob: p.Prob, Cost: p.Cost, Access: p.Access.String()}
		}
	}
	for a, h := range d.Hosts {
		hs := hostSpec{OS: h.OS, Services: h.Services, Processes: h.Processes, DiscoveryValue: h.DiscoveryValue}
		if len(h.Firewall) > 0 {
			hs.Firewall = make(map[string][]string, len(h.Firewall))
			for src, denied := range h.Firewall {
				hs.Firewall[src.String()] = denied
			}
		}
		f.HostConfigs[a.String()] = hs
	}
	for l, allowed := range d.Firewall {
		f.Firewall[fmt.Sprintf("(%d, %d)", l.Src, l.Dst)] = allowed
	}
	return f
}

func osOrAny(os string) string {
	if os == "" {
		return anyOS
	}
	return os
}

func osFromFile(os string) string {
	if os == anyOS {
		return ""
	}
	return os
}

// definition converts the wire format. Keys or enums that cannot be parsed
// are reported as violations instead of aborting so the caller sees every
// problem at once.
func (f file) definition() (*Definition, []Violation) {
	var vs []Violation
	d := &Definition{
		Name:      f.Name,
		Subnets:   append([]int{1}, f.Subnets...),
		Topology:  f.Topology,
		OS:        f.OS,
		Services:  f.Services,
		Processes: f.Processes,
		Hosts:     make(map[Address]Host, len(f.HostConfigs)),
		Firewall:  make(map[Link][]string, len(f.Firewall)),
		Exploits:  make(map[string]Exploit, len(f.Exploits)),
		PrivEscs:  make(map[string]PrivEsc, len(f.PrivEscs)),
		Sensitive: make(map[Address]float64, len(f.SensitiveHosts)),
		ScanCosts: ScanCosts{
			Service: f.ServiceScanCost,
			OS:      f.OSScanCost,
			Subnet:  f.SubnetScanCost,
			Process: f.ProcessScanCost,
		},
		StepLimit: f.StepLimit,
	}

	for _, key := range sortedKeys(f.SensitiveHosts) {
		a, err := ParseAddress(key)
		if err != nil {
			vs = append(vs, Violation{Field: "sensitive_hosts", Message: err.Error()})
			continue
		}
		d.Sensitive[a] = f.SensitiveHosts[key]
	}

	for _, name := range sortedKeys(f.Exploits) {
		spec := f.Exploits[name]
		access, err := ParseAccessLevel(spec.Access)
		if err != nil {
			vs = append(vs, Violation{Field: "exploits." + name + ".access", Message: err.Error()})
		}
		d.Exploits[name] = Exploit{Name: name, Service: spec.Service, OS: osFromFile(spec.OS), Prob: spec.Prob, Cost: spec.Cost, Access: access}
	}

	for _, name := range sortedKeys(f.PrivEscs) {
		spec := f.PrivEscs[name]
		access, err := ParseAccessLevel(spec.Access)
		if err != nil {
			vs = append(vs, Violation{Field: "privilege_escalation." + name + ".access", Message: err.Error()})
		}
		d.PrivEscs[name] = PrivEsc{Name: name, Process: spec.Process, OS: osFromFile(spec.OS), Prob: spec.Prob, Cost: spec.Cost, Access: access}
	}

	for _, key := range sortedKeys(f.HostConfigs) {
		spec := f.HostConfigs[key]
		a, err := ParseAddress(key)
		if err != nil {
			vs = append(vs, Violation{Field: "host_configurations", Message: err.Error()})
			continue
		}
		h := Host{
			Address:        a,
			OS:             spec.OS,
			Services:       spec.Services,
			Processes:      spec.Processes,
			Value:          d.Sensitive[a],
			DiscoveryValue: spec.DiscoveryValue,
		}
		if len(spec.Firewall) > 0 {
			h.Firewall = make(map[Address][]string, len(spec.Firewall))
			for _, srcKey := range sortedKeys(spec.Firewall) {
				src, err := ParseAddress(srcKey)
				if err != nil {
					vs = append(vs, Violation{Field: "host_configurations." + key + ".firewall", Message: err.Error()})
					continue
				}
				h.Firewall[src] = spec.Firewall[srcKey]
			}
		}
		d.Hosts[a] = h
	}

	for _, key := range sortedKeys(f.Firewall) {
		a, err := ParseAddress(key)
		if err != nil {
			vs = append(vs, Violation{Field: "firewall", Message: err.Error()})
			continue
		}
		allowed := append([]string(nil), f.Firewall[key]...)
		sort.Strings(allowed)
		d.Firewall[Link{Src: a.Subnet, Dst: a.Host}] = allowed
	}
	return d, vs
}
