// Package history keeps a SQLite ledger of training runs, per-episode
// progress and evaluation results.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("history: run not found")

// Run describes one invocation of the trainer.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is in progress
	Seed       int64
	StartModel string
	Config     string // JSON rendering of the effective configuration
	Episodes   int    // episodes completed, set by FinishRun
}

// Episode is the outcome of one collect-and-update cycle.
type Episode struct {
	RunID       string
	Episode     int
	Games       int
	Transitions int
	Aborts      int
	MeanReward  float64
	Loss        float64
	Skipped     bool
	Duration    time.Duration
	Checkpoint  string // checkpoint written after the episode, if any
	RecordedAt  time.Time
}

// Eval is the outcome of an evaluation run.
type Eval struct {
	ID         string
	Model      string
	Opponent   string
	Games      int
	WinRate    float64
	MeanReward float64
	AbortRate  float64
	RecordedAt time.Time
}

// Store is a SQLite-backed ledger.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger at path. ":memory:" gives a
// private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if path != ":memory:" {
		if parent := filepath.Dir(path); parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS runs (
    id             TEXT PRIMARY KEY,
    started_at_ms  INTEGER NOT NULL,
    finished_at_ms INTEGER,
    seed           INTEGER NOT NULL,
    start_model    TEXT NOT NULL DEFAULT '',
    config_json    TEXT NOT NULL DEFAULT '{}',
    episodes       INTEGER NOT NULL DEFAULT 0
)`,
		`
CREATE TABLE IF NOT EXISTS episodes (
    run_id         TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    episode        INTEGER NOT NULL,
    games          INTEGER NOT NULL,
    transitions    INTEGER NOT NULL,
    aborts         INTEGER NOT NULL,
    mean_reward    REAL NOT NULL,
    loss           REAL NOT NULL,
    skipped        INTEGER NOT NULL,
    duration_ms    INTEGER NOT NULL DEFAULT 0,
    checkpoint     TEXT NOT NULL DEFAULT '',
    recorded_at_ms INTEGER NOT NULL,
    PRIMARY KEY (run_id, episode)
)`,
		`
CREATE TABLE IF NOT EXISTS evals (
    id             TEXT PRIMARY KEY,
    model          TEXT NOT NULL,
    opponent       TEXT NOT NULL,
    games          INTEGER NOT NULL,
    win_rate       REAL NOT NULL,
    mean_reward    REAL NOT NULL,
    abort_rate     REAL NOT NULL,
    recorded_at_ms INTEGER NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_evals_model ON evals(model, recorded_at_ms DESC)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// StartRun records a new run.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (id, started_at_ms, seed, start_model, config_json)
VALUES (?, ?, ?, ?, ?)
`, run.ID, run.StartedAt.UTC().UnixMilli(), run.Seed, run.StartModel, run.Config)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun stamps a run as finished after episodes episodes.
func (s *Store) FinishRun(ctx context.Context, id string, episodes int, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE runs SET finished_at_ms = ?, episodes = ? WHERE id = ?
`, at.UTC().UnixMilli(), episodes, id)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// RecordEpisode stores an episode. Recording the same episode twice
// replaces the earlier row.
func (s *Store) RecordEpisode(ctx context.Context, e Episode) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO episodes (
    run_id, episode, games, transitions, aborts, mean_reward, loss, skipped, duration_ms, checkpoint, recorded_at_ms
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (run_id, episode) DO UPDATE SET
    games = excluded.games,
    transitions = excluded.transitions,
    aborts = excluded.aborts,
    mean_reward = excluded.mean_reward,
    loss = excluded.loss,
    skipped = excluded.skipped,
    duration_ms = excluded.duration_ms,
    checkpoint = excluded.checkpoint,
    recorded_at_ms = excluded.recorded_at_ms
`, e.RunID, e.Episode, e.Games, e.Transitions, e.Aborts, e.MeanReward, e.Loss, boolInt(e.Skipped),
		e.Duration.Milliseconds(), e.Checkpoint, e.RecordedAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record episode %d of run %s: %w", e.Episode, e.RunID, err)
	}
	return nil
}

// Run returns a single run.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, started_at_ms, finished_at_ms, seed, start_model, config_json, episodes
FROM runs WHERE id = ?
`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// Runs returns every run, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, started_at_ms, finished_at_ms, seed, start_model, config_json, episodes
FROM runs ORDER BY started_at_ms DESC, id DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// Episodes returns the episodes of a run in order.
func (s *Store) Episodes(ctx context.Context, runID string) ([]Episode, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT run_id, episode, games, transitions, aborts, mean_reward, loss, skipped, duration_ms, checkpoint, recorded_at_ms
FROM episodes WHERE run_id = ? ORDER BY episode
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Episode
	for rows.Next() {
		var (
			e          Episode
			skipped    int
			durationMs int64
			at         int64
		)
		if err := rows.Scan(&e.RunID, &e.Episode, &e.Games, &e.Transitions, &e.Aborts,
			&e.MeanReward, &e.Loss, &skipped, &durationMs, &e.Checkpoint, &at); err != nil {
			return nil, err
		}
		e.Skipped = skipped != 0
		e.Duration = time.Duration(durationMs) * time.Millisecond
		e.RecordedAt = time.UnixMilli(at).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// RecordEval stores an evaluation result.
func (s *Store) RecordEval(ctx context.Context, e Eval) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO evals (id, model, opponent, games, win_rate, mean_reward, abort_rate, recorded_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, e.ID, e.Model, e.Opponent, e.Games, e.WinRate, e.MeanReward, e.AbortRate, e.RecordedAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record eval %s: %w", e.ID, err)
	}
	return nil
}

// Evals returns the evaluations of a model, newest first.
func (s *Store) Evals(ctx context.Context, model string) ([]Eval, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, model, opponent, games, win_rate, mean_reward, abort_rate, recorded_at_ms
FROM evals WHERE model = ? ORDER BY recorded_at_ms DESC, id DESC
`, model)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Eval
	for rows.Next() {
		var (
			e  Eval
			at int64
		)
		if err := rows.Scan(&e.ID, &e.Model, &e.Opponent, &e.Games, &e.WinRate, &e.MeanReward, &e.AbortRate, &at); err != nil {
			return nil, err
		}
		e.RecordedAt = time.UnixMilli(at).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		run      Run
		started  int64
		finished sql.NullInt64
	)
	if err := s.Scan(&run.ID, &started, &finished, &run.Seed, &run.StartModel, &run.Config, &run.Episodes); err != nil {
		return Run{}, err
	}
	run.StartedAt = time.UnixMilli(started).UTC()
	if finished.Valid {
		run.FinishedAt = time.UnixMilli(finished.Int64).UTC()
	}
	return run, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
