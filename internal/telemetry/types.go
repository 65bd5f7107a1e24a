// Trace rows written for every step and episode
package telemetry

import (
	"os"
	"time"
)

// StepRow is one executed action.
type StepRow struct {
	RunID            string    `json:"run_id"`     // TAG
	EpisodeID        string    `json:"episode_id"` // TAG
	Scenario         string    `json:"scenario"`   // TAG
	Step             int       `json:"step"`
	Action           string    `json:"action"`
	ActionType       string    `json:"action_type"`
	Target           string    `json:"target"`
	Outcome          string    `json:"outcome"`
	Reward           float64   `json:"reward"`
	Value            float64   `json:"value"`
	Cost             float64   `json:"cost"`
	TotalReward      float64   `json:"total_reward"`
	GoalReached      bool      `json:"goal_reached"`
	StepLimitReached bool      `json:"step_limit_reached"`
	Timestamp        time.Time `json:"ts"` // TIME INDEX
}

// EpisodeRow summarises a finished episode.
type EpisodeRow struct {
	RunID            string    `json:"run_id"`     // TAG
	EpisodeID        string    `json:"episode_id"` // TAG
	Scenario         string    `json:"scenario"`   // TAG
	Agent            string    `json:"agent"`
	Seed             int64     `json:"seed"`
	Steps            int       `json:"steps"`
	TotalReward      float64   `json:"total_reward"`
	GoalReached      bool      `json:"goal_reached"`
	StepLimitReached bool      `json:"step_limit_reached"`
	Compromised      int       `json:"compromised"`
	Timestamp        time.Time `json:"ts"` // TIME INDEX
}

// StepTableName is the GreptimeDB table for step rows. It defaults to
// "attack_steps" and can be overridden with GREPTIMEDB_TABLE.
var StepTableName = envOr("GREPTIMEDB_TABLE", "attack_steps")

// EpisodeTableName is the GreptimeDB table for episode rows, overridable
// with GREPTIMEDB_EPISODE_TABLE.
var EpisodeTableName = envOr("GREPTIMEDB_EPISODE_TABLE", "attack_episodes")

func (StepRow) TableName() string { return StepTableName }

func (EpisodeRow) TableName() string { return EpisodeTableName }

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
