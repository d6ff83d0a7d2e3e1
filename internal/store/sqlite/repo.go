// Package sqlite implements store.Repository on SQLite via modernc.org/sqlite
// (pure Go, no cgo). Timestamps are stored as RFC3339Nano TEXT; SQLite has
// no native timestamp type and TEXT round-trips reliably.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"datamerge/internal/dataset"
	"datamerge/internal/join"
	"datamerge/internal/store"
)

const datasetSchema = `CREATE TABLE IF NOT EXISTS datasets (
  name    TEXT PRIMARY KEY,
  columns TEXT NOT NULL,
  rows    TEXT NOT NULL
);`

const schema = `CREATE TABLE IF NOT EXISTS merge_runs (
  id          TEXT PRIMARY KEY,
  job         TEXT NOT NULL,
  join_type   TEXT NOT NULL,
  key_name    TEXT NOT NULL,
  datasets    TEXT NOT NULL,
  stats       TEXT NOT NULL,
  row_count   INTEGER NOT NULL,
  truncated   INTEGER NOT NULL,
  output_path TEXT NOT NULL,
  started_at  TEXT NOT NULL,
  duration_ms INTEGER NOT NULL
);`

type Repo struct {
	db *sql.DB
}

func init() {
	store.Register("sqlite", New)
}

func New(ctx context.Context, cfg store.Config) (store.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

func (r *Repo) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: create merge_runs: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, datasetSchema); err != nil {
		return fmt.Errorf("sqlite: create datasets: %w", err)
	}
	return nil
}

// SaveDataset upserts by name; re-uploading a file replaces its rows.
func (r *Repo) SaveDataset(ctx context.Context, ds dataset.Dataset) error {
	columns, err := store.EncodeStrings(ds.Columns)
	if err != nil {
		return err
	}
	rows, err := store.EncodeRows(ds.Rows)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO datasets (name, columns, rows) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET columns = excluded.columns, rows = excluded.rows`,
		ds.Name, columns, rows,
	)
	if err != nil {
		return fmt.Errorf("sqlite: save dataset %s: %w", ds.Name, err)
	}
	return nil
}

func (r *Repo) LoadDataset(ctx context.Context, name string) (dataset.Dataset, error) {
	var columns, rows string
	err := r.db.QueryRowContext(ctx,
		`SELECT columns, rows FROM datasets WHERE name = ?`, name).Scan(&columns, &rows)
	if errors.Is(err, sql.ErrNoRows) {
		return dataset.Dataset{}, store.ErrDatasetNotFound
	}
	if err != nil {
		return dataset.Dataset{}, fmt.Errorf("sqlite: load dataset %s: %w", name, err)
	}
	return decodeDataset(name, columns, rows)
}

func (r *Repo) ListDatasets(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM datasets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list datasets: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("sqlite: list datasets: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func decodeDataset(name, columns, rows string) (dataset.Dataset, error) {
	ds := dataset.Dataset{Name: name}
	var err error
	if ds.Columns, err = store.DecodeStrings(columns); err != nil {
		return dataset.Dataset{}, err
	}
	if ds.Rows, err = store.DecodeRows(rows); err != nil {
		return dataset.Dataset{}, err
	}
	return ds, nil
}

// SaveRun inserts one run. INSERT OR IGNORE keys on the primary key, so a
// retried save of the same run ID is a no-op.
func (r *Repo) SaveRun(ctx context.Context, run store.Run) error {
	datasets, err := store.EncodeStrings(run.Datasets)
	if err != nil {
		return err
	}
	stats, err := store.EncodeStats(run.Stats)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO merge_runs
		   (id, job, join_type, key_name, datasets, stats, row_count, truncated, output_path, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Job, string(run.JoinType), run.KeyName, datasets, stats,
		run.RowCount, run.Truncated, run.OutputPath,
		formatTime(run.StartedAt), run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save run %s: %w", run.ID, err)
	}
	return nil
}

func (r *Repo) GetRun(ctx context.Context, id string) (store.Run, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, job, join_type, key_name, datasets, stats, row_count, truncated, output_path, started_at, duration_ms
		 FROM merge_runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, store.ErrRunNotFound
	}
	if err != nil {
		return store.Run{}, fmt.Errorf("sqlite: get run %s: %w", id, err)
	}
	return run, nil
}

func (r *Repo) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	q := `SELECT id, job, join_type, key_name, datasets, stats, row_count, truncated, output_path, started_at, duration_ms
	      FROM merge_runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list runs: %w", err)
	}
	defer rows.Close()

	var out []store.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: list runs: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (store.Run, error) {
	var (
		run        store.Run
		joinType   string
		datasets   string
		stats      string
		startedAt  string
		durationMS int64
	)
	if err := s.Scan(&run.ID, &run.Job, &joinType, &run.KeyName, &datasets, &stats,
		&run.RowCount, &run.Truncated, &run.OutputPath, &startedAt, &durationMS); err != nil {
		return store.Run{}, err
	}

	run.JoinType = join.Type(joinType)
	run.Duration = time.Duration(durationMS) * time.Millisecond

	var err error
	if run.Datasets, err = store.DecodeStrings(datasets); err != nil {
		return store.Run{}, err
	}
	if run.Stats, err = store.DecodeStats(stats); err != nil {
		return store.Run{}, err
	}
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return store.Run{}, err
	}
	return run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time string")
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time format: %q", s)
}
