package telemetry

import (
	"time"

	"github.com/google/uuid"

	"netattack-sim/internal/network"
)

// Recorder turns executed actions into trace rows for one run.
type Recorder struct {
	RunID    string
	Scenario string
	Agent    string

	episodeID string
	seed      int64
	steps     int
	total     float64
	now       func() time.Time
}

// NewRecorder creates a recorder. An empty runID is replaced by a fresh UUID.
func NewRecorder(runID, scenario, agent string) *Recorder {
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Recorder{RunID: runID, Scenario: scenario, Agent: agent, now: func() time.Time { return time.Now().UTC() }}
}

// StartEpisode resets the counters and returns the new episode ID.
func (r *Recorder) StartEpisode(seed int64) string {
	r.episodeID = uuid.NewString()
	r.seed = seed
	r.steps = 0
	r.total = 0
	return r.episodeID
}

// EpisodeID is the ID of the episode being recorded.
func (r *Recorder) EpisodeID() string { return r.episodeID }

// RecordStep builds the row for one step.
func (r *Recorder) RecordStep(res network.Result, goal, limit bool) StepRow {
	r.steps++
	reward := res.Reward()
	r.total += reward
	row := StepRow{
		RunID:            r.RunID,
		EpisodeID:        r.episodeID,
		Scenario:         r.Scenario,
		Step:             r.steps,
		Action:           res.Action.String(),
		ActionType:       res.Action.Type.String(),
		Outcome:          res.Outcome.String(),
		Reward:           reward,
		Value:            res.Value + res.DiscoveryValue,
		Cost:             res.Action.Cost,
		TotalReward:      r.total,
		GoalReached:      goal,
		StepLimitReached: limit,
		Timestamp:        r.now(),
	}
	if res.Action.Type != network.NoOp {
		row.Target = res.Action.Target.String()
	}
	return row
}

// EndEpisode builds the summary row of the current episode.
func (r *Recorder) EndEpisode(s *network.State, goal, limit bool) EpisodeRow {
	compromised := 0
	for _, h := range s.Hosts() {
		if h.Compromised {
			compromised++
		}
	}
	return EpisodeRow{
		RunID:            r.RunID,
		EpisodeID:        r.episodeID,
		Scenario:         r.Scenario,
		Agent:            r.Agent,
		Seed:             r.seed,
		Steps:            r.steps,
		TotalReward:      r.total,
		GoalReached:      goal,
		StepLimitReached: limit,
		Compromised:      compromised,
		Timestamp:        r.now(),
	}
}
