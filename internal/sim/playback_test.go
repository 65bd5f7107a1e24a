package sim

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"netattack-sim/internal/telemetry"
)

func TestReplayLog(t *testing.T) {
	rows := []telemetry.StepRow{
		{EpisodeID: "e1", Step: 1, Timestamp: time.Unix(0, 0)},
		{EpisodeID: "e1", Step: 2, Timestamp: time.Unix(1, 0)},
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	cw := &collectWriter{}
	n, err := ReplayLog(&buf, cw, 0)
	if err != nil {
		t.Fatalf("ReplayLog: %v", err)
	}
	if n != len(rows) || len(cw.steps) != len(rows) {
		t.Fatalf("expected %d rows, got %d (%d written)", len(rows), n, len(cw.steps))
	}
	for i, r := range rows {
		if cw.steps[i].Step != r.Step {
			t.Fatalf("row %d mismatch: %+v vs %+v", i, cw.steps[i], r)
		}
	}
}

func TestReplayLogSpeed(t *testing.T) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.Encode(telemetry.StepRow{Step: 1, Timestamp: time.Unix(0, 0)})
	enc.Encode(telemetry.StepRow{Step: 2, Timestamp: time.Unix(0, int64(100*time.Millisecond))})
	start := time.Now()
	if _, err := ReplayLog(&buf, &collectWriter{}, 10); err != nil {
		t.Fatalf("ReplayLog: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 90*time.Millisecond {
		t.Fatalf("playback at 10x took %v", elapsed)
	}
}

func TestReplayLogMalformed(t *testing.T) {
	cw := &collectWriter{}
	n, err := ReplayLog(strings.NewReader("{\"step\":1}\nnot json\n"), cw, 0)
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if n != 1 {
		t.Fatalf("expected one row before the error, got %d", n)
	}
}

func TestReplayLogFileMissing(t *testing.T) {
	if _, err := ReplayLogFile(filepath.Join(t.TempDir(), "nope.jsonl"), &collectWriter{}, 0); err == nil {
		t.Fatalf("expected error")
	}
}
