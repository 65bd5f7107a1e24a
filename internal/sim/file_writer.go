package sim

import (
	"encoding/json"
	"os"

	"netattack-sim/internal/telemetry"
)

// FileWriter writes step and episode rows to JSONL files.
type FileWriter struct {
	stepFile    *os.File
	episodeFile *os.File
	stepEnc     *json.Encoder
	episodeEnc  *json.Encoder
}

// NewFileWriter creates a FileWriter. episodePath may be empty to skip
// episode summaries.
func NewFileWriter(stepPath, episodePath string) (*FileWriter, error) {
	sf, err := os.Create(stepPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{stepFile: sf, stepEnc: json.NewEncoder(sf)}
	if episodePath != "" {
		ef, err := os.Create(episodePath)
		if err != nil {
			sf.Close()
			return nil, err
		}
		fw.episodeFile = ef
		fw.episodeEnc = json.NewEncoder(ef)
	}
	return fw, nil
}

// WriteStep logs a single step row.
func (f *FileWriter) WriteStep(row telemetry.StepRow) error {
	return f.stepEnc.Encode(row)
}

// WriteEpisode logs an episode summary, if enabled.
func (f *FileWriter) WriteEpisode(row telemetry.EpisodeRow) error {
	if f.episodeEnc == nil {
		return nil
	}
	return f.episodeEnc.Encode(row)
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	if f.stepFile != nil {
		if e := f.stepFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.episodeFile != nil {
		if e := f.episodeFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
