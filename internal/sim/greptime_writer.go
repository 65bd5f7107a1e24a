package sim

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"netattack-sim/internal/telemetry"
)

// greptimeClient is the subset of the ingester client the writer needs.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes step and episode rows to GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	client       greptimeClient
	stepTable    string
	episodeTable string
	log          *slog.Logger
}

// NewGreptimeDBWriter connects to endpoint ("host" or "host:port") and
// writes into database. Empty table names fall back to the telemetry defaults.
func NewGreptimeDBWriter(endpoint, database, stepTable, episodeTable string, log *slog.Logger) (*GreptimeDBWriter, error) {
	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	cfg := greptime.NewConfig(host).WithDatabase(database)
	if port > 0 {
		cfg = cfg.WithPort(port)
	}
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptimedb client: %w", err)
	}
	if stepTable == "" {
		stepTable = telemetry.StepTableName
	}
	if episodeTable == "" {
		episodeTable = telemetry.EpisodeTableName
	}
	if log == nil {
		log = slog.Default()
	}
	return &GreptimeDBWriter{client: client, stepTable: stepTable, episodeTable: episodeTable, log: log}, nil
}

func splitEndpoint(endpoint string) (string, int, error) {
	if endpoint == "" {
		return "", 0, fmt.Errorf("greptimedb endpoint is empty")
	}
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return endpoint, 0, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("greptimedb endpoint %q: bad port: %w", endpoint, err)
	}
	return host, port, nil
}

// WriteStep inserts a single step row.
func (w *GreptimeDBWriter) WriteStep(row telemetry.StepRow) error {
	return w.WriteSteps([]telemetry.StepRow{row})
}

// WriteSteps inserts multiple step rows in one request.
func (w *GreptimeDBWriter) WriteSteps(rows []telemetry.StepRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.stepTable)
	if err != nil {
		return err
	}
	cols := []struct {
		name string
		tag  bool
		typ  types.ColumnType
	}{
		{"run_id", true, types.STRING},
		{"episode_id", true, types.STRING},
		{"scenario", true, types.STRING},
		{"step", false, types.INT64},
		{"action", false, types.STRING},
		{"action_type", false, types.STRING},
		{"target", false, types.STRING},
		{"outcome", false, types.STRING},
		{"reward", false, types.FLOAT64},
		{"value", false, types.FLOAT64},
		{"cost", false, types.FLOAT64},
		{"total_reward", false, types.FLOAT64},
		{"goal_reached", false, types.BOOLEAN},
		{"step_limit_reached", false, types.BOOLEAN},
	}
	for _, c := range cols {
		if c.tag {
			err = tbl.AddTagColumn(c.name, c.typ)
		} else {
			err = tbl.AddFieldColumn(c.name, c.typ)
		}
		if err != nil {
			return err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.RunID, r.EpisodeID, r.Scenario, int64(r.Step), r.Action, r.ActionType, r.Target, r.Outcome,
			r.Reward, r.Value, r.Cost, r.TotalReward, r.GoalReached, r.StepLimitReached, r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(tbl, len(rows))
}

// WriteEpisode inserts an episode summary row.
func (w *GreptimeDBWriter) WriteEpisode(r telemetry.EpisodeRow) error {
	tbl, err := table.New(w.episodeTable)
	if err != nil {
		return err
	}
	for _, name := range []string{"run_id", "episode_id", "scenario"} {
		if err := tbl.AddTagColumn(name, types.STRING); err != nil {
			return err
		}
	}
	fields := []struct {
		name string
		typ  types.ColumnType
	}{
		{"agent", types.STRING},
		{"seed", types.INT64},
		{"steps", types.INT64},
		{"total_reward", types.FLOAT64},
		{"goal_reached", types.BOOLEAN},
		{"step_limit_reached", types.BOOLEAN},
		{"compromised", types.INT64},
	}
	for _, f := range fields {
		if err := tbl.AddFieldColumn(f.name, f.typ); err != nil {
			return err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return err
	}
	if err := tbl.AddRow(r.RunID, r.EpisodeID, r.Scenario, r.Agent, r.Seed, int64(r.Steps), r.TotalReward,
		r.GoalReached, r.StepLimitReached, int64(r.Compromised), r.Timestamp); err != nil {
		return err
	}
	return w.write(tbl, 1)
}

func (w *GreptimeDBWriter) write(tbl *table.Table, n int) error {
	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		w.log.Error("greptimedb write failed", "err", err)
		return err
	}
	w.log.Debug("greptimedb wrote rows", "rows", n)
	return nil
}
