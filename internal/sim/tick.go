package sim

import (
	"context"
	"time"

	"netattack-sim/internal/agent"
	"netattack-sim/internal/logging"
	"netattack-sim/internal/telemetry"
)

// StepWriter is an interface to support different trace outputs.
type StepWriter interface {
	WriteStep(telemetry.StepRow) error
}

// EpisodeWriter receives one summary row per finished episode.
type EpisodeWriter interface {
	WriteEpisode(telemetry.EpisodeRow) error
}

// Optional: writers can buffer steps and flush them per episode.
type batchStepWriter interface {
	WriteSteps([]telemetry.StepRow) error
}

// Optional: writers that render the live network.
type snapshotWriter interface {
	WriteSnapshot(Snapshot) error
}

// Optional: writers that implement WriteSteps but may decline batching.
type batchReporter interface {
	Batched() bool
}

// Optional: writers that buffer internally until the episode ends.
type flusher interface {
	Flush() error
}

// Optional: writers that show whether the admin UI is up.
type adminStatusWriter interface {
	SetAdminStatus(bool)
}

// batchWriter returns w as a batch writer when it wants whole episodes.
func batchWriter(w StepWriter) (batchStepWriter, bool) {
	bw, ok := w.(batchStepWriter)
	if !ok {
		return nil, false
	}
	if br, ok := w.(batchReporter); ok && !br.Batched() {
		return nil, false
	}
	return bw, true
}

// RunConfig controls a batch of episodes.
type RunConfig struct {
	Episodes int
	// Seed of the first episode; episode i uses Seed+i.
	Seed int64
	// Interval paces steps for live viewing. Zero runs flat out.
	Interval time.Duration
}

// Runner drives an agent through episodes of an Env and writes the trace.
type Runner struct {
	env     *Env
	agent   agent.Agent
	rec     *telemetry.Recorder
	writer  StepWriter
	metrics *Metrics
}

// NewRunner wires an agent to an Env. metrics may be nil.
func NewRunner(env *Env, ag agent.Agent, rec *telemetry.Recorder, writer StepWriter, metrics *Metrics) *Runner {
	return &Runner{env: env, agent: ag, rec: rec, writer: writer, metrics: metrics}
}

// Env returns the environment the runner steps.
func (r *Runner) Env() *Env { return r.env }

// Run plays cfg.Episodes episodes and returns their summaries. It stops early
// when ctx is done and returns the summaries finished so far with ctx.Err().
func (r *Runner) Run(ctx context.Context, cfg RunConfig) ([]telemetry.EpisodeRow, error) {
	log := logging.FromContext(ctx)
	log.Info("starting runner", "scenario", r.env.Definition().Name, "agent", r.agent.Name(), "episodes", cfg.Episodes, "interval", cfg.Interval)

	var ticker *time.Ticker
	if cfg.Interval > 0 {
		ticker = time.NewTicker(cfg.Interval)
		defer ticker.Stop()
	}

	var out []telemetry.EpisodeRow
	for i := 0; i < cfg.Episodes; i++ {
		row, err := r.episode(ctx, cfg.Seed+int64(i), ticker)
		if err != nil {
			log.Info("stopping runner", "episodes_done", len(out), "err", err)
			return out, err
		}
		out = append(out, row)
	}
	log.Info("runner finished", "episodes", len(out))
	return out, nil
}

func (r *Runner) episode(ctx context.Context, seed int64, ticker *time.Ticker) (telemetry.EpisodeRow, error) {
	log := logging.FromContext(ctx)
	obs := r.env.Reset(seed)
	r.agent.Reset(r.env.ActionSpace().Len())
	episodeID := r.rec.StartEpisode(seed)
	r.snapshot(ctx)

	var batch []telemetry.StepRow
	bw, batched := batchWriter(r.writer)
	for {
		if ticker != nil {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return telemetry.EpisodeRow{}, ctx.Err()
			}
		} else if err := ctx.Err(); err != nil {
			return telemetry.EpisodeRow{}, err
		}

		res, err := r.env.Step(r.agent.Act(obs))
		if err != nil {
			return telemetry.EpisodeRow{}, err
		}
		row := r.rec.RecordStep(res.Info.Result, res.GoalReached, res.StepLimitReached)
		r.metrics.ObserveStep(row)
		if batched {
			batch = append(batch, row)
		} else if err := r.writer.WriteStep(row); err != nil {
			log.Error("write failed", "episode_id", episodeID, "step", row.Step, "err", err)
		}
		r.snapshot(ctx)
		obs = res.Observation
		if res.Done() {
			break
		}
	}

	if batched {
		if err := bw.WriteSteps(batch); err != nil {
			log.Error("batch write failed", "episode_id", episodeID, "rows", len(batch), "err", err)
		}
	}
	if f, ok := r.writer.(flusher); ok {
		if err := f.Flush(); err != nil {
			log.Error("flush failed", "episode_id", episodeID, "err", err)
		}
	}
	snap := r.env.Snapshot()
	sum := r.rec.EndEpisode(r.env.State(), snap.GoalReached, snap.StepLimitReached)
	r.metrics.ObserveEpisode(sum)
	if ew, ok := r.writer.(EpisodeWriter); ok {
		if err := ew.WriteEpisode(sum); err != nil {
			log.Error("episode write failed", "episode_id", episodeID, "err", err)
		}
	}
	log.Info("episode finished", "episode_id", episodeID, "seed", seed, "steps", sum.Steps, "reward", sum.TotalReward, "goal", sum.GoalReached)
	return sum, nil
}

func (r *Runner) snapshot(ctx context.Context) {
	sw, ok := r.writer.(snapshotWriter)
	if !ok {
		return
	}
	if err := sw.WriteSnapshot(r.env.Snapshot()); err != nil {
		logging.FromContext(ctx).Error("snapshot write failed", "err", err)
	}
}
