package main

import (
	"github.com/spf13/cobra"

	"netattack-sim/internal/logging"
	"netattack-sim/internal/sim"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a step trace file",
	Long:  "replay feeds step rows from a JSONL trace back into GreptimeDB or STDOUT.",
	RunE: func(cmd *cobra.Command, args []string) error {
		writer, err := newReplayWriter(cmd.Context(), replayPrintOnly)
		if err != nil {
			return err
		}
		n, err := sim.ReplayLogFile(replayInput, writer, replaySpeed)
		logging.FromContext(cmd.Context()).Info("replay finished", "input", replayInput, "rows", n)
		return err
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to step trace file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier; 0 replays without delay")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print steps to STDOUT instead of writing to DB")
	_ = replayCmd.MarkFlagRequired("input")
}
