package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"netattack-sim/internal/admin"
	"netattack-sim/internal/agent"
	"netattack-sim/internal/config"
	"netattack-sim/internal/logging"
	"netattack-sim/internal/sim"
	"netattack-sim/internal/telemetry"
)

var (
	runConfigPath   string
	runScenario     string
	runScenarioFile string
	runSeed         int64
	runEpisodes     int
	runAgent        string
	runFullyObs     bool
	runFlatObs      bool
	runFlatActions  bool
	runInterval     time.Duration
	runPrintOnly    bool
	runTUI          bool
	runLogFile      string
	runAdminAddr    string
	runID           string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an agent against a scenario",
	Long:  "run plays episodes of a catalog, file or generated scenario and writes a step trace to STDOUT, a TUI, JSONL files or GreptimeDB.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := runConfig(cmd)
		if err != nil {
			return err
		}
		log := logging.FromContext(cmd.Context())

		def, err := cfg.Definition()
		if err != nil {
			return err
		}
		env := sim.NewEnv(def, cfg.Env)
		ag, err := agent.New(cfg.Agent, cfg.Seed)
		if err != nil {
			return err
		}

		writer, closeWriters, err := newWriters(cmd.Context(), def, runPrintOnly, runTUI, cfg.LogFile)
		if err != nil {
			return err
		}
		defer closeWriters()

		metrics, err := sim.NewMetrics(nil)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.AdminAddr != "" {
			srv := admin.NewServer(env, metrics)
			setAdminStatus(writer, true)
			go func() {
				if err := srv.Start(ctx, cfg.AdminAddr); err != nil {
					log.Error("admin server failed", "addr", cfg.AdminAddr, "err", err)
					setAdminStatus(writer, false)
				}
			}()
		}

		rec := telemetry.NewRecorder(cfg.RunID, def.Name, ag.Name())
		runner := sim.NewRunner(env, ag, rec, writer, metrics)
		rows, err := runner.Run(ctx, sim.RunConfig{Episodes: cfg.Episodes, Seed: cfg.Seed, Interval: cfg.Interval})
		if errors.Is(err, context.Canceled) {
			log.Info("run interrupted", "episodes_done", len(rows))
			return nil
		}
		return err
	},
}

// runConfig merges the optional config file, flags and environment. Flags win
// over the file; RUN_ID and TICK_INTERVAL win over both.
func runConfig(cmd *cobra.Command) (*config.RunConfig, error) {
	cfg := config.Default()
	if runConfigPath != "" {
		var err error
		if cfg, err = config.Load(runConfigPath); err != nil {
			return nil, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("scenario") {
		cfg.Scenario, cfg.ScenarioFile, cfg.Generator = runScenario, "", nil
	}
	if flags.Changed("scenario-file") {
		cfg.Scenario, cfg.ScenarioFile, cfg.Generator = "", runScenarioFile, nil
	}
	if flags.Changed("seed") {
		cfg.Seed = runSeed
	}
	if flags.Changed("episodes") {
		cfg.Episodes = runEpisodes
	}
	if flags.Changed("agent") {
		cfg.Agent = runAgent
	}
	if flags.Changed("fully-observable") {
		cfg.Env.FullyObservable = runFullyObs
	}
	if flags.Changed("flat-obs") {
		cfg.Env.FlatObservations = runFlatObs
	}
	if flags.Changed("flat-actions") {
		cfg.Env.FlatActions = runFlatActions
	}
	if flags.Changed("interval") {
		cfg.Interval = runInterval
	}
	if flags.Changed("log-file") {
		cfg.LogFile = runLogFile
	}
	if flags.Changed("admin-addr") {
		cfg.AdminAddr = runAdminAddr
	}
	if flags.Changed("run-id") {
		cfg.RunID = runID
	}
	if v := os.Getenv("RUN_ID"); v != "" {
		cfg.RunID = v
	}
	if v := os.Getenv("TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, err
		}
		cfg.Interval = d
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setAdminStatus(w sim.StepWriter, active bool) {
	if s, ok := w.(interface{ SetAdminStatus(bool) }); ok {
		s.SetAdminStatus(active)
	}
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runConfigPath, "config", "", "Path to a run configuration YAML")
	f.StringVar(&runScenario, "scenario", "", "Catalog scenario name")
	f.StringVar(&runScenarioFile, "scenario-file", "", "Path to a scenario YAML file")
	f.Int64Var(&runSeed, "seed", 0, "Seed of the first episode")
	f.IntVar(&runEpisodes, "episodes", 1, "Number of episodes to play")
	f.StringVar(&runAgent, "agent", "random", "Agent to run (bruteforce, random)")
	f.BoolVar(&runFullyObs, "fully-observable", false, "Reveal the full network state to the agent")
	f.BoolVar(&runFlatObs, "flat-obs", false, "Flatten observations to one dimension")
	f.BoolVar(&runFlatActions, "flat-actions", true, "Report the action space as one flat index range")
	f.DurationVar(&runInterval, "interval", 0, "Delay between steps (e.g. 200ms)")
	f.BoolVar(&runPrintOnly, "print-only", false, "Print traces to STDOUT instead of writing to DB")
	f.BoolVar(&runTUI, "tui", false, "Render the run in a terminal UI")
	f.StringVar(&runLogFile, "log-file", "", "Path to export step traces (JSONL); episodes go to <path>.episodes")
	f.StringVar(&runAdminAddr, "admin-addr", "", "Serve the admin UI on this address (e.g. :8080)")
	f.StringVar(&runID, "run-id", "", "Run identifier recorded in traces")
}
