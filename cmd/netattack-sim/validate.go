package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"netattack-sim/internal/scenario"
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Check scenario files",
	Long:  "validate loads each scenario file and lists every violation it finds.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		failed := 0
		for _, path := range args {
			_, err := scenario.Load(path)
			if err == nil {
				fmt.Fprintf(out, "%s: ok\n", path)
				continue
			}
			failed++
			var verr *scenario.ValidationError
			if !errors.As(err, &verr) {
				fmt.Fprintf(out, "%s: %v\n", path, err)
				continue
			}
			fmt.Fprintf(out, "%s: %d violation(s)\n", path, len(verr.Violations))
			for _, v := range verr.Violations {
				fmt.Fprintf(out, "  %s\n", v)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d scenario file(s) invalid", failed, len(args))
		}
		return nil
	},
}
