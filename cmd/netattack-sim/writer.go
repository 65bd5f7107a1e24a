package main

import (
	"context"
	"os"

	"golang.org/x/term"

	"netattack-sim/internal/logging"
	"netattack-sim/internal/scenario"
	"netattack-sim/internal/sim"
	"netattack-sim/internal/telemetry"
)

// newWriters sets up trace writers based on flags and env vars.
// It returns the writer and a cleanup function to close any resources.
func newWriters(ctx context.Context, def *scenario.Definition, printOnly, tui bool, logFile string) (sim.StepWriter, func(), error) {
	var ws []sim.StepWriter
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	if !printOnly {
		if endpoint := os.Getenv("GREPTIMEDB_ENDPOINT"); endpoint != "" {
			w, err := greptimeWriter(ctx, endpoint)
			if err != nil {
				return nil, nil, err
			}
			ws = append(ws, w)
		}
	}

	switch {
	case tui:
		tw := sim.NewTUIWriter(def)
		ws = append(ws, tw)
		closers = append(closers, tw.Close)
	case len(ws) == 0:
		ws = append(ws, sim.NewStdoutWriter(def, term.IsTerminal(int(os.Stdout.Fd()))))
	}

	if logFile != "" {
		fw, err := sim.NewFileWriter(logFile, logFile+".episodes")
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		ws = append(ws, fw)
		closers = append(closers, fw.Close)
	}

	if len(ws) == 1 {
		return ws[0], cleanup, nil
	}
	return sim.NewMultiWriter(ws...), cleanup, nil
}

func greptimeWriter(ctx context.Context, endpoint string) (*sim.GreptimeDBWriter, error) {
	database := os.Getenv("GREPTIMEDB_DATABASE")
	if database == "" {
		database = "public"
	}
	return sim.NewGreptimeDBWriter(endpoint, database, telemetry.StepTableName, telemetry.EpisodeTableName, logging.FromContext(ctx))
}

// newReplayWriter creates a step writer for replays: GreptimeDB when
// configured, STDOUT otherwise.
func newReplayWriter(ctx context.Context, printOnly bool) (sim.StepWriter, error) {
	if endpoint := os.Getenv("GREPTIMEDB_ENDPOINT"); !printOnly && endpoint != "" {
		return greptimeWriter(ctx, endpoint)
	}
	return sim.NewStdoutWriter(nil, term.IsTerminal(int(os.Stdout.Fd()))), nil
}
