// Package history records streamed plot jobs in a DuckDB database.
package history

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marcboeker/go-duckdb"
	"github.com/plotter-studio/backend/internal/models"
)

// ErrNotFound is returned when no run has the requested id.
var ErrNotFound = errors.New("plot run not found")

// Store persists plot runs.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Summary aggregates every recorded run.
type Summary struct {
	Runs           int     `json:"runs"`
	Completed      int     `json:"completed"`
	Canceled       int     `json:"canceled"`
	Failed         int     `json:"failed"`
	PacketsSent    int64   `json:"packetsSent"`
	DrawDistance   float64 `json:"drawDistance"`
	TravelDistance float64 `json:"travelDistance"`
}

// Open opens or creates the history database. An empty path keeps history in memory.
func Open(dbPath string) (*Store, error) {
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				fmt.Printf("[History] Pragma warning: %v\n", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS plot_runs (
			id              VARCHAR PRIMARY KEY,
			session_id      VARCHAR NOT NULL,
			mode            VARCHAR NOT NULL,
			model           VARCHAR NOT NULL,
			layer_count     INTEGER NOT NULL,
			stroke_count    INTEGER NOT NULL,
			point_count     INTEGER NOT NULL,
			draw_distance   DOUBLE NOT NULL,
			travel_distance DOUBLE NOT NULL,
			out_of_bounds   INTEGER NOT NULL,
			total_packets   INTEGER NOT NULL,
			sent_packets    INTEGER NOT NULL,
			state           VARCHAR NOT NULL,
			message         VARCHAR,
			started_at      TIMESTAMP NOT NULL,
			finished_at     TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	where := dbPath
	if where == "" {
		where = "memory"
	}
	fmt.Printf("[History] Database ready at %s\n", where)

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a run or replaces an earlier snapshot of it.
func (s *Store) Record(ctx context.Context, run models.PlotRun) error {
	var finished any
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO plot_runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SessionID, string(run.Mode), string(run.Model),
		run.Stats.LayerCount, run.Stats.StrokeCount, run.Stats.PointCount,
		run.Stats.DrawDistance, run.Stats.TravelDistance, run.Stats.OutOfBoundsPoints,
		run.TotalPackets, run.SentPackets, string(run.State), run.Message,
		run.StartedAt, finished,
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", run.ID, err)
	}
	return nil
}

const selectRuns = `
	SELECT id, session_id, mode, model, layer_count, stroke_count, point_count,
	       draw_distance, travel_distance, out_of_bounds, total_packets, sent_packets,
	       state, message, started_at, finished_at
	FROM plot_runs`

// List returns the most recent runs first.
func (s *Store) List(ctx context.Context, limit int) ([]models.PlotRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, selectRuns+` ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs := []models.PlotRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns one run.
func (s *Store) Get(ctx context.Context, id string) (models.PlotRun, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return run, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, err
}

// Summarize aggregates all recorded runs.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	var sum Summary
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE state = 'connected'),
			COUNT(*) FILTER (WHERE state = 'canceled'),
			COUNT(*) FILTER (WHERE state = 'error'),
			CAST(COALESCE(SUM(sent_packets), 0) AS BIGINT),
			COALESCE(SUM(draw_distance), 0),
			COALESCE(SUM(travel_distance), 0)
		FROM plot_runs`,
	).Scan(&sum.Runs, &sum.Completed, &sum.Canceled, &sum.Failed,
		&sum.PacketsSent, &sum.DrawDistance, &sum.TravelDistance)
	if err != nil {
		return sum, fmt.Errorf("summarizing runs: %w", err)
	}
	return sum, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (models.PlotRun, error) {
	var (
		run      models.PlotRun
		mode     string
		model    string
		state    string
		message  sql.NullString
		started  time.Time
		finished sql.NullTime
	)

	err := row.Scan(
		&run.ID, &run.SessionID, &mode, &model,
		&run.Stats.LayerCount, &run.Stats.StrokeCount, &run.Stats.PointCount,
		&run.Stats.DrawDistance, &run.Stats.TravelDistance, &run.Stats.OutOfBoundsPoints,
		&run.TotalPackets, &run.SentPackets, &state, &message, &started, &finished,
	)
	if err != nil {
		return run, err
	}

	run.Mode = models.LayerMode(mode)
	run.Model = models.PlotterModel(model)
	run.State = models.PlotterState(state)
	run.Message = message.String
	run.StartedAt = started
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return run, nil
}
