package scenario

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestLoadTiny(t *testing.T) {
	d, err := Load("testdata/tiny.yaml")
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if d.Name != "tiny" {
		t.Fatalf("unexpected name %s", d.Name)
	}
	if len(d.Subnets) != 4 || d.Subnets[Internet] != 1 {
		t.Fatalf("expected internet prepended to subnets, got %v", d.Subnets)
	}
	if d.NumHosts() != 3 {
		t.Fatalf("expected 3 hosts, got %d", d.NumHosts())
	}
	if !d.Public(1) || d.Public(2) {
		t.Fatalf("expected only subnet 1 to be public")
	}
	h := d.Hosts[Address{Subnet: 2, Host: 0}]
	if h.Value != 100 {
		t.Fatalf("expected sensitive host value 100, got %v", h.Value)
	}
	if d.Hosts[Address{Subnet: 1, Host: 0}].Value != 0 {
		t.Fatalf("expected non-sensitive host value 0")
	}
	e := d.Exploits["e_ssh"]
	if e.Access != UserAccess || e.Prob != 0.8 || e.OS != "linux" {
		t.Fatalf("unexpected exploit %+v", e)
	}
	if d.PrivEscs["pe_tomcat"].Access != RootAccess {
		t.Fatalf("expected root privesc")
	}
	if d.LinkOpen(1, 2) {
		t.Fatalf("expected empty firewall rule to close the link")
	}
	if !d.Allowed(1, 3, "ssh") || d.Allowed(1, 2, "ssh") {
		t.Fatalf("unexpected firewall evaluation")
	}
	if d.TotalSensitiveValue() != 200 {
		t.Fatalf("expected total sensitive value 200, got %v", d.TotalSensitiveValue())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("testdata/missing.yaml"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestParseReportsEveryViolation(t *testing.T) {
	_, err := Load("testdata/bad_refs.yaml")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !errors.Is(err, ErrInvalidScenario) {
		t.Fatalf("expected ErrInvalidScenario in chain")
	}
	for _, field := range []string{
		"exploits.e_ftp",
		"host_configurations.(1, 0)",
		"sensitive_hosts",
		"firewall.(1, 2)",
	} {
		if !hasViolation(verr.Violations, field) {
			t.Fatalf("expected violation on %s, got %v", field, verr.Violations)
		}
	}
}

func TestParseRejectsSchemaErrors(t *testing.T) {
	_, err := Load("testdata/bad_schema.yaml")
	if err == nil {
		t.Fatalf("expected schema error")
	}
	if !errors.Is(err, ErrInvalidScenario) {
		t.Fatalf("expected ErrInvalidScenario, got %v", err)
	}
}

func TestValidateDoesNotRepair(t *testing.T) {
	d, err := Load("testdata/tiny.yaml")
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	h := d.Hosts[Address{Subnet: 1, Host: 0}]
	h.OS = "windows"
	d.Hosts[h.Address] = h
	d.StepLimit = 0
	vs := Validate(d)
	if !hasViolation(vs, "host_configurations.(1, 0)") || !hasViolation(vs, "step_limit") {
		t.Fatalf("expected os and step limit violations, got %v", vs)
	}
	if d.Hosts[h.Address].OS != "windows" || d.StepLimit != 0 {
		t.Fatalf("validate must not modify the definition")
	}
}

func TestValidateTopology(t *testing.T) {
	d, err := Load("testdata/tiny.yaml")
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	d.Topology = [][]int{{1, 1, 0, 0}, {0, 1, 1, 1}, {0, 1, 1, 1}, {0, 1, 1, 2}}
	vs := Validate(d)
	var msgs []string
	for _, v := range vs {
		if v.Field == "topology" {
			msgs = append(msgs, v.Message)
		}
	}
	if len(msgs) < 2 {
		t.Fatalf("expected asymmetry and value violations, got %v", msgs)
	}
}

func TestValidateHostValueMismatch(t *testing.T) {
	d, err := Load("testdata/tiny.yaml")
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	h := d.Hosts[Address{Subnet: 1, Host: 0}]
	h.Value = 5
	d.Hosts[h.Address] = h
	if !hasViolation(Validate(d), "host_configurations.(1, 0)") {
		t.Fatalf("expected value violation for non-sensitive host")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	d, err := Load("testdata/tiny.yaml")
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	first, err := d.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	again, err := Parse(first, "tiny")
	if err != nil {
		t.Fatalf("parse encoded scenario: %v\n%s", err, first)
	}
	second, err := again.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("encoding is not stable:\n%s\n---\n%s", first, second)
	}
	if !strings.Contains(string(first), "(2, 0)") {
		t.Fatalf("expected address keys in output:\n%s", first)
	}
}

func TestParseAddress(t *testing.T) {
	cases := map[string]Address{
		"(1, 0)": {Subnet: 1, Host: 0},
		"3,4":    {Subnet: 3, Host: 4},
		"2 7":    {Subnet: 2, Host: 7},
	}
	for in, want := range cases {
		got, err := ParseAddress(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %v got %v", in, want, got)
		}
	}
	if _, err := ParseAddress("(1)"); err == nil {
		t.Fatalf("expected error for malformed address")
	}
}

func hasViolation(vs []Violation, field string) bool {
	for _, v := range vs {
		if v.Field == field {
			return true
		}
	}
	return false
}
