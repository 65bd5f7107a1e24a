package scenario

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"netattack-sim/internal/schema"
)

//go:embed schema.cue
var schemaCUE []byte

// Load reads a YAML scenario file from disk. The file name without its
// extension becomes the scenario name when the document does not set one.
func Load(path string) (*Definition, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(b, name)
}

// Parse decodes and validates a YAML scenario document. Schema failures are
// returned as plain errors; semantic problems come back as a *ValidationError
// listing every violation.
func Parse(data []byte, name string) (*Definition, error) {
	if err := schema.Validate(name, data, schemaCUE, "#Scenario"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if f.Name == "" {
		f.Name = name
	}
	d, vs := f.definition()
	vs = append(vs, Validate(d)...)
	if len(vs) > 0 {
		return nil, &ValidationError{Violations: vs}
	}
	return d, nil
}
