// Package mssql implements store.Repository on Microsoft SQL Server via
// database/sql and the go-mssqldb driver.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"datamerge/internal/dataset"
	"datamerge/internal/join"
	"datamerge/internal/store"
)

const datasetSchema = `IF NOT EXISTS (SELECT 1 FROM sys.tables WHERE name = 'datasets')
CREATE TABLE datasets (
  name      NVARCHAR(256) NOT NULL PRIMARY KEY,
  columns   NVARCHAR(MAX) NOT NULL,
  [rows]    NVARCHAR(MAX) NOT NULL
);`

// SQL Server has no CREATE TABLE IF NOT EXISTS; the guard query keeps Init
// idempotent.
const schema = `IF NOT EXISTS (SELECT 1 FROM sys.tables WHERE name = 'merge_runs')
CREATE TABLE merge_runs (
  id          NVARCHAR(64) NOT NULL PRIMARY KEY,
  job         NVARCHAR(256) NOT NULL,
  join_type   NVARCHAR(32) NOT NULL,
  key_name    NVARCHAR(256) NOT NULL,
  datasets    NVARCHAR(MAX) NOT NULL,
  stats       NVARCHAR(MAX) NOT NULL,
  row_count   BIGINT NOT NULL,
  truncated   BIGINT NOT NULL,
  output_path NVARCHAR(1024) NOT NULL,
  started_at  DATETIMEOFFSET NOT NULL,
  duration_ms BIGINT NOT NULL
);`

type Repo struct {
	db *sql.DB
}

func init() {
	store.Register("mssql", New)
}

func New(ctx context.Context, cfg store.Config) (store.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
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
		return fmt.Errorf("mssql: create merge_runs: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, datasetSchema); err != nil {
		return fmt.Errorf("mssql: create datasets: %w", err)
	}
	return nil
}

// SaveDataset upserts by name; re-uploading a file replaces its rows. The
// update-then-insert pair runs in one transaction so concurrent writers for
// the same name serialize cleanly.
func (r *Repo) SaveDataset(ctx context.Context, ds dataset.Dataset) error {
	columns, err := store.EncodeStrings(ds.Columns)
	if err != nil {
		return err
	}
	rows, err := store.EncodeRows(ds.Rows)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mssql: save dataset %s: %w", ds.Name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE datasets SET columns = @p2, [rows] = @p3 WHERE name = @p1`,
		ds.Name, columns, rows); err != nil {
		return fmt.Errorf("mssql: save dataset %s: %w", ds.Name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO datasets (name, columns, [rows])
		 SELECT @p1, @p2, @p3
		 WHERE NOT EXISTS (SELECT 1 FROM datasets WHERE name = @p1)`,
		ds.Name, columns, rows); err != nil {
		return fmt.Errorf("mssql: save dataset %s: %w", ds.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mssql: save dataset %s: %w", ds.Name, err)
	}
	return nil
}

func (r *Repo) LoadDataset(ctx context.Context, name string) (dataset.Dataset, error) {
	var columns, rows string
	err := r.db.QueryRowContext(ctx,
		`SELECT columns, [rows] FROM datasets WHERE name = @p1`, name).Scan(&columns, &rows)
	if errors.Is(err, sql.ErrNoRows) {
		return dataset.Dataset{}, store.ErrDatasetNotFound
	}
	if err != nil {
		return dataset.Dataset{}, fmt.Errorf("mssql: load dataset %s: %w", name, err)
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
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM datasets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("mssql: list datasets: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("mssql: list datasets: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// SaveRun inserts one run, guarded by NOT EXISTS so a retried save of the
// same run ID is a no-op.
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
		`INSERT INTO merge_runs
		   (id, job, join_type, key_name, datasets, stats, row_count, truncated, output_path, started_at, duration_ms)
		 SELECT @p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8, @p9, @p10, @p11
		 WHERE NOT EXISTS (SELECT 1 FROM merge_runs WHERE id = @p1)`,
		run.ID, run.Job, string(run.JoinType), run.KeyName, datasets, stats,
		run.RowCount, run.Truncated, run.OutputPath,
		run.StartedAt.UTC(), run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("mssql: save run %s: %w", run.ID, err)
	}
	return nil
}

func (r *Repo) GetRun(ctx context.Context, id string) (store.Run, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, job, join_type, key_name, datasets, stats, row_count, truncated, output_path, started_at, duration_ms
		 FROM merge_runs WHERE id = @p1`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, store.ErrRunNotFound
	}
	if err != nil {
		return store.Run{}, fmt.Errorf("mssql: get run %s: %w", id, err)
	}
	return run, nil
}

func (r *Repo) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	q := `SELECT id, job, join_type, key_name, datasets, stats, row_count, truncated, output_path, started_at, duration_ms
	      FROM merge_runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		q += ` OFFSET 0 ROWS FETCH NEXT @p1 ROWS ONLY`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("mssql: list runs: %w", err)
	}
	defer rows.Close()

	var out []store.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("mssql: list runs: %w", err)
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
