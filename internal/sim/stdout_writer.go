// Writer selection for STDOUT traces
package sim

import (
	"netattack-sim/internal/scenario"
)

// StdoutWriter is a trace writer that also reports episode summaries.
type StdoutWriter interface {
	StepWriter
	EpisodeWriter
}

// NewStdoutWriter returns a colorized writer when colorize is set and a JSON
// lines writer otherwise.
func NewStdoutWriter(def *scenario.Definition, colorize bool) StdoutWriter {
	if colorize {
		return NewColorStdoutWriter(def)
	}
	return NewJSONStdoutWriter()
}
