package sim

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"netattack-sim/internal/telemetry"
)

// ReplayLog replays step rows from r to writer. A speed >0 accelerates playback.
// If speed <= 0, no artificial delay is inserted.
func ReplayLog(r io.Reader, writer StepWriter, speed float64) (int, error) {
	dec := json.NewDecoder(r)
	var prev time.Time
	n := 0
	for {
		var row telemetry.StepRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, err
		}
		if !prev.IsZero() && speed > 0 {
			diff := row.Timestamp.Sub(prev)
			if speed != 1 {
				diff = time.Duration(float64(diff) / speed)
			}
			if diff > 0 {
				time.Sleep(diff)
			}
		}
		if err := writer.WriteStep(row); err != nil {
			return n, err
		}
		n++
		prev = row.Timestamp
	}
}

// ReplayLogFile opens a file and replays its step rows.
func ReplayLogFile(path string, writer StepWriter, speed float64) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return ReplayLog(f, writer, speed)
}
