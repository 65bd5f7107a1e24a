package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"netattack-sim/internal/telemetry"
)

// JSONStdoutWriter prints step and episode rows as JSON to STDOUT.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

// WriteStep outputs a step row in JSON format.
func (w *JSONStdoutWriter) WriteStep(row telemetry.StepRow) error {
	return w.print(row)
}

// WriteEpisode outputs an episode summary in JSON format.
func (w *JSONStdoutWriter) WriteEpisode(row telemetry.EpisodeRow) error {
	return w.print(row)
}

func (w *JSONStdoutWriter) print(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}
