// Package postgres implements store.Repository on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"datamerge/internal/dataset"
	"datamerge/internal/join"
	"datamerge/internal/store"
)

const datasetSchema = `CREATE TABLE IF NOT EXISTS datasets (
  name    TEXT PRIMARY KEY,
  columns JSONB NOT NULL,
  rows    JSONB NOT NULL
);`

const schema = `CREATE TABLE IF NOT EXISTS merge_runs (
  id          TEXT PRIMARY KEY,
  job         TEXT NOT NULL,
  join_type   TEXT NOT NULL,
  key_name    TEXT NOT NULL,
  datasets    JSONB NOT NULL,
  stats       JSONB NOT NULL,
  row_count   BIGINT NOT NULL,
  truncated   BIGINT NOT NULL,
  output_path TEXT NOT NULL,
  started_at  TIMESTAMPTZ NOT NULL,
  duration_ms BIGINT NOT NULL
);`

type Repo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg store.Config) (store.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() { r.pool.Close() }

func (r *Repo) Init(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: create merge_runs: %w", err)
	}
	if _, err := r.pool.Exec(ctx, datasetSchema); err != nil {
		return fmt.Errorf("postgres: create datasets: %w", err)
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

	_, err = r.pool.Exec(ctx,
		`INSERT INTO datasets (name, columns, rows) VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO UPDATE SET columns = EXCLUDED.columns, rows = EXCLUDED.rows`,
		ds.Name, columns, rows,
	)
	if err != nil {
		return fmt.Errorf("postgres: save dataset %s: %w", ds.Name, err)
	}
	return nil
}

func (r *Repo) LoadDataset(ctx context.Context, name string) (dataset.Dataset, error) {
	var columns, rows string
	err := r.pool.QueryRow(ctx,
		`SELECT columns::text, rows::text FROM datasets WHERE name = $1`, name).Scan(&columns, &rows)
	if errors.Is(err, pgx.ErrNoRows) {
		return dataset.Dataset{}, store.ErrDatasetNotFound
	}
	if err != nil {
		return dataset.Dataset{}, fmt.Errorf("postgres: load dataset %s: %w", name, err)
	}

	ds := dataset.Dataset{Name: name}
	if ds.Columns, err = store.DecodeStrings(columns); err != nil {
		return dataset.Dataset{}, err
	}
	if ds.Rows, err = store.DecodeRows(rows); err != nil {
		return dataset.Dataset{}, err
	}
	return ds, nil
}

func (r *Repo) ListDatasets(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT name FROM datasets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list datasets: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("postgres: list datasets: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// SaveRun inserts one run. ON CONFLICT DO NOTHING keys on the primary key,
// so a retried save of the same run ID is a no-op.
func (r *Repo) SaveRun(ctx context.Context, run store.Run) error {
	datasets, err := store.EncodeStrings(run.Datasets)
	if err != nil {
		return err
	}
	stats, err := store.EncodeStats(run.Stats)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO merge_runs
		   (id, job, join_type, key_name, datasets, stats, row_count, truncated, output_path, started_at, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO NOTHING`,
		run.ID, run.Job, string(run.JoinType), run.KeyName, datasets, stats,
		run.RowCount, run.Truncated, run.OutputPath,
		run.StartedAt.UTC(), run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("postgres: save run %s: %w", run.ID, err)
	}
	return nil
}

func (r *Repo) GetRun(ctx context.Context, id string) (store.Run, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, job, join_type, key_name, datasets::text, stats::text, row_count, truncated, output_path, started_at, duration_ms
		 FROM merge_runs WHERE id = $1`, id)

	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Run{}, store.ErrRunNotFound
	}
	if err != nil {
		return store.Run{}, fmt.Errorf("postgres: get run %s: %w", id, err)
	}
	return run, nil
}

func (r *Repo) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	q := `SELECT id, job, join_type, key_name, datasets::text, stats::text, row_count, truncated, output_path, started_at, duration_ms
	      FROM merge_runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		q += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list runs: %w", err)
	}
	defer rows.Close()

	var out []store.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: list runs: %w", err)
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
		startedAt  time.Time
		durationMS int64
	)
	if err := s.Scan(&run.ID, &run.Job, &joinType, &run.KeyName, &datasets, &stats,
		&run.RowCount, &run.Truncated, &run.OutputPath, &startedAt, &durationMS); err != nil {
		return store.Run{}, err
	}

	run.JoinType = join.Type(joinType)
	run.StartedAt = startedAt.UTC()
	run.Duration = time.Duration(durationMS) * time.Millisecond

	var err error
	if run.Datasets, err = store.DecodeStrings(datasets); err != nil {
		return store.Run{}, err
	}
	if run.Stats, err = store.DecodeStats(stats); err != nil {
		return store.Run{}, err
	}
	return run, nil
}
