package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"datamerge/internal/dataset"
	"datamerge/internal/join"
	"datamerge/internal/store"
)

func openTestRepo(t *testing.T) store.Repository {
	t.Helper()

	ctx := context.Background()
	repo, err := store.New(ctx, store.Config{
		Kind: "sqlite",
		DSN:  filepath.Join(t.TempDir(), "runs.db"),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(repo.Close)

	if err := repo.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	// Init must be idempotent.
	if err := repo.Init(ctx); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	return repo
}

func sampleRun(id string, startedAt time.Time) store.Run {
	return store.Run{
		ID:         id,
		Job:        "customers-orders",
		JoinType:   join.Outer,
		KeyName:    "Customer ID",
		Datasets:   []string{"customers.csv", "orders.json"},
		Stats:      join.Stats{join.Inner: 5, join.Left: 7, join.Outer: 8, join.Additive: 8},
		RowCount:   8,
		Truncated:  0,
		OutputPath: "merged.csv",
		StartedAt:  startedAt,
		Duration:   1500 * time.Millisecond,
	}
}

func TestSaveGetRoundTrip(t *testing.T) {
	t.Parallel()

	repo := openTestRepo(t)
	ctx := context.Background()

	want := sampleRun("run-1", time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	if err := repo.SaveRun(ctx, want); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := repo.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("round trip:\nwant %+v\ngot  %+v", want, got)
	}
}

func TestSaveRunIdempotent(t *testing.T) {
	t.Parallel()

	repo := openTestRepo(t)
	ctx := context.Background()

	run := sampleRun("run-1", time.Now().UTC().Truncate(time.Second))
	if err := repo.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	// Same ID again: must not error or duplicate.
	run.RowCount = 999
	if err := repo.SaveRun(ctx, run); err != nil {
		t.Fatalf("second SaveRun: %v", err)
	}

	runs, err := repo.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if runs[0].RowCount != 8 {
		t.Fatalf("retry overwrote the original row: %+v", runs[0])
	}
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()

	repo := openTestRepo(t)
	if _, err := repo.GetRun(context.Background(), "missing"); !errors.Is(err, store.ErrRunNotFound) {
		t.Fatalf("err = %v, want ErrRunNotFound", err)
	}
}

func TestDatasetRoundTripAndUpsert(t *testing.T) {
	t.Parallel()

	repo := openTestRepo(t)
	ctx := context.Background()

	ds := dataset.Dataset{
		Name:    "customers.csv",
		Columns: []string{"id", "name", "total"},
		Rows: []dataset.Row{
			{"id": "1", "name": "Alice", "total": int64(10)},
			{"id": "2", "total": 1.5},
		},
	}
	if err := repo.SaveDataset(ctx, ds); err != nil {
		t.Fatalf("SaveDataset: %v", err)
	}

	got, err := repo.LoadDataset(ctx, "customers.csv")
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if !reflect.DeepEqual(ds, got) {
		t.Fatalf("round trip:\nwant %+v\ngot  %+v", ds, got)
	}

	// Re-saving the same name replaces the content.
	ds.Rows = ds.Rows[:1]
	if err := repo.SaveDataset(ctx, ds); err != nil {
		t.Fatalf("second SaveDataset: %v", err)
	}
	got, err = repo.LoadDataset(ctx, "customers.csv")
	if err != nil {
		t.Fatalf("LoadDataset after upsert: %v", err)
	}
	if len(got.Rows) != 1 {
		t.Fatalf("upsert did not replace rows: %+v", got.Rows)
	}

	if _, err := repo.LoadDataset(ctx, "missing.csv"); !errors.Is(err, store.ErrDatasetNotFound) {
		t.Fatalf("missing dataset err = %v", err)
	}

	names, err := repo.ListDatasets(ctx)
	if err != nil {
		t.Fatalf("ListDatasets: %v", err)
	}
	if len(names) != 1 || names[0] != "customers.csv" {
		t.Fatalf("names = %v", names)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	t.Parallel()

	repo := openTestRepo(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		if err := repo.SaveRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("SaveRun %s: %v", id, err)
		}
	}

	runs, err := repo.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != "run-c" || runs[1].ID != "run-b" {
		t.Fatalf("order = %s, %s", runs[0].ID, runs[1].ID)
	}
}
