package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"netattack-sim/internal/catalog"
	"netattack-sim/internal/generator"
	"netattack-sim/internal/logging"
)

var (
	genParamsPath string
	genPreset     string
	genName       string
	genHosts      int
	genServices   int
	genOS         int
	genProcesses  int
	genRestrict   int
	genRandomGoal bool
	genSeed       int64
	genOut        string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a scenario file",
	Long:  "generate builds a random network from generator parameters and writes it as a scenario YAML file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := generateParams(cmd)
		if err != nil {
			return err
		}
		def, err := generator.Generate(p)
		if err != nil {
			return err
		}
		b, err := def.Encode()
		if err != nil {
			return err
		}
		logging.FromContext(cmd.Context()).Info("generated scenario", "name", def.Name, "hosts", def.NumHosts(), "seed", p.Seed)
		if genOut == "" {
			_, err = os.Stdout.Write(b)
			return err
		}
		return os.WriteFile(genOut, b, 0o644)
	},
}

// generateParams starts from a catalog preset or the defaults, applies the
// params file and then any flags that were set.
func generateParams(cmd *cobra.Command) (generator.Params, error) {
	p := generator.DefaultParams()
	if genPreset != "" {
		e, err := catalog.Default().Lookup(genPreset)
		if err != nil {
			return p, err
		}
		if !e.Generated() {
			return p, fmt.Errorf("catalog scenario %q is static", genPreset)
		}
		p = *e.Params
	}
	if genParamsPath != "" {
		b, err := os.ReadFile(genParamsPath)
		if err != nil {
			return p, err
		}
		if err := yaml.Unmarshal(b, &p); err != nil {
			return p, fmt.Errorf("parse params: %w", err)
		}
	}
	flags := cmd.Flags()
	if flags.Changed("name") {
		p.Name = genName
	}
	if flags.Changed("hosts") {
		p.NumHosts = genHosts
	}
	if flags.Changed("services") {
		p.NumServices = genServices
	}
	if flags.Changed("os") {
		p.NumOS = genOS
	}
	if flags.Changed("processes") {
		p.NumProcesses = genProcesses
	}
	if flags.Changed("restrictiveness") {
		p.Restrictiveness = genRestrict
	}
	if flags.Changed("random-goal") {
		p.RandomGoal = genRandomGoal
	}
	if flags.Changed("seed") {
		p.Seed = genSeed
	}
	return p, p.Validate()
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&genParamsPath, "params", "", "YAML file with generator parameters")
	f.StringVar(&genPreset, "preset", "", "Start from a generated catalog entry (e.g. small-gen)")
	f.StringVar(&genName, "name", "", "Scenario name")
	f.IntVar(&genHosts, "hosts", 0, "Number of hosts")
	f.IntVar(&genServices, "services", 0, "Number of services")
	f.IntVar(&genOS, "os", 0, "Number of operating systems")
	f.IntVar(&genProcesses, "processes", 0, "Number of processes")
	f.IntVar(&genRestrict, "restrictiveness", 0, "Services blocked on links between zones")
	f.BoolVar(&genRandomGoal, "random-goal", false, "Pick the sensitive host in each zone at random")
	f.Int64Var(&genSeed, "seed", 0, "Generator seed")
	f.StringVar(&genOut, "out", "", "Write the scenario here instead of STDOUT")
}
