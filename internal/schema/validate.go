// CUE schema validation of YAML documents
package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"
)

// Validate checks a YAML document against the CUE definition named def
// (for example "#Scenario") declared in schemaSrc. name is only used in
// error positions.
func Validate(name string, yamlBytes, schemaSrc []byte, def string) error {
	ctx := cuecontext.New()

	schemaVal := ctx.CompileBytes(schemaSrc, cue.Filename(name+".cue"))
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("compile CUE schema: %w", err)
	}
	target := schemaVal.LookupPath(cue.ParsePath(def))
	if !target.Exists() {
		return fmt.Errorf("schema definition %s not found", def)
	}

	file, err := yaml.Extract(name, yamlBytes)
	if err != nil {
		return fmt.Errorf("cannot parse YAML: %w", err)
	}
	docVal := ctx.BuildFile(file)
	if err := docVal.Err(); err != nil {
		return fmt.Errorf("cannot build YAML value: %w", err)
	}

	final := target.Unify(docVal)
	if err := final.Err(); err != nil {
		return fmt.Errorf("schema unify failed: %w", err)
	}
	if err := final.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
