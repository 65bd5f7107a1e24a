package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"netattack-sim/internal/catalog"
	"netattack-sim/internal/network"
	"netattack-sim/internal/scenario"
	"netattack-sim/internal/sim"
)

var (
	describeFile string
	describeSeed int64
)

var describeCmd = &cobra.Command{
	Use:   "describe [NAME]",
	Short: "Summarise a scenario",
	Long:  "describe prints the size, difficulty and space shapes of a catalog scenario or scenario file. Without arguments it lists the catalog.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 0 && describeFile == "" {
			return listCatalog(out)
		}
		var (
			def *scenario.Definition
			err error
		)
		if describeFile != "" {
			def, err = scenario.Load(describeFile)
		} else {
			def, err = catalog.Default().Scenario(args[0], describeSeed)
		}
		if err != nil {
			return err
		}
		describe(out, def)
		return nil
	},
}

func listCatalog(out io.Writer) error {
	c := catalog.Default()
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND")
	for _, name := range c.Names() {
		e, err := c.Lookup(name)
		if err != nil {
			return err
		}
		kind := "static"
		if e.Generated() {
			kind = "generated"
		}
		fmt.Fprintf(tw, "%s\t%s\n", name, kind)
	}
	return tw.Flush()
}

func describe(out io.Writer, def *scenario.Definition) {
	partial := sim.NewEnv(def, sim.Options{})
	full := sim.NewEnv(def, sim.Options{FullyObservable: true, FlatActions: true})

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", def.Name)
	fmt.Fprintf(tw, "Hosts:\t%d in %d subnets\n", def.NumHosts(), len(def.Subnets)-1)
	fmt.Fprintf(tw, "Sensitive hosts:\t%v\n", def.SensitiveAddresses())
	fmt.Fprintf(tw, "Subnet depths:\t%v\n", network.SubnetDepths(def))
	fmt.Fprintf(tw, "Solvable:\t%t\n", network.Solvable(def))
	fmt.Fprintf(tw, "Minimal steps:\t%d\n", network.MinimalSteps(def))
	fmt.Fprintf(tw, "Best score:\t%.1f\n", network.BestScore(def))
	fmt.Fprintf(tw, "Step limit:\t%d\n", def.StepLimit)
	fmt.Fprintf(tw, "Actions (flat):\t%v\n", full.ActionSpaceShape())
	fmt.Fprintf(tw, "Actions (vector):\t%v\n", partial.ActionSpaceShape())
	fmt.Fprintf(tw, "Observation (partial):\t%v\n", partial.ObservationShape())
	fmt.Fprintf(tw, "Observation (full):\t%v\n", full.ObservationShape())
	tw.Flush()
}

func init() {
	describeCmd.Flags().StringVar(&describeFile, "file", "", "Describe a scenario file instead of a catalog entry")
	describeCmd.Flags().Int64Var(&describeSeed, "seed", 0, "Seed for generated catalog entries")
}
