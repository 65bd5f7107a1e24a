package main

import (
	"bytes"
	"strings"
	"testing"

	"netattack-sim/internal/catalog"
	"netattack-sim/internal/scenario"
)

func TestValidateReportsViolations(t *testing.T) {
	var out bytes.Buffer
	validateCmd.SetOut(&out)
	defer validateCmd.SetOut(nil)

	err := validateCmd.RunE(validateCmd, []string{"testdata/tiny.yaml", "testdata/bad_refs.yaml"})
	if err == nil {
		t.Fatalf("expected error for invalid file")
	}
	got := out.String()
	if !strings.Contains(got, "testdata/tiny.yaml: ok") {
		t.Fatalf("valid file not reported ok:\n%s", got)
	}
	if !strings.Contains(got, "exploits.e_ftp") {
		t.Fatalf("violation not listed:\n%s", got)
	}
	if !strings.Contains(err.Error(), "1 of 2") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestDescribeTiny(t *testing.T) {
	d, err := scenario.Load("testdata/tiny.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var out bytes.Buffer
	describe(&out, d)
	got := out.String()
	for _, want := range []string{
		"Minimal steps:",
		"Best score:",
		"Actions (flat):         [18]",
		"Actions (vector):       [6 3 1 2 1 1]",
		"Solvable:               true",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("describe output missing %q:\n%s", want, got)
		}
	}
}

func TestListCatalog(t *testing.T) {
	var out bytes.Buffer
	if err := listCatalog(&out); err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, name := range catalog.Default().Names() {
		if !strings.Contains(out.String(), name) {
			t.Fatalf("catalog listing missing %s", name)
		}
	}
}

func TestGenerateParamsFromPreset(t *testing.T) {
	f := generateCmd.Flags()
	for k, v := range map[string]string{"preset": "tiny-gen", "seed": "11", "hosts": "5"} {
		if err := f.Set(k, v); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}
	p, err := generateParams(generateCmd)
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	if p.NumHosts != 5 || p.Seed != 11 {
		t.Fatalf("flags not applied: %+v", p)
	}
	e, _ := catalog.Default().Lookup("tiny-gen")
	if p.NumServices != e.Params.NumServices {
		t.Fatalf("preset not used: got %d services, want %d", p.NumServices, e.Params.NumServices)
	}
}
