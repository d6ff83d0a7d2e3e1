// Package store persists merge run history. Backends register themselves by
// kind from an init() in their own package; importing store/all pulls in
// every built-in backend.
package store

import (
	"context"
	"fmt"
	"sync"

	"datamerge/internal/dataset"
)

// Config selects and configures a backend.
type Config struct {
	// Kind matches a registered backend kind ("sqlite", "postgres", "mssql").
	Kind string
	// DSN is passed through to the backend factory; validation is
	// backend-specific.
	DSN string
}

// Repository is the backend-agnostic interface for run history.
//
// Implementations must be safe for concurrent use. Each backend implements
// the upsert and schema semantics its engine supports natively (Postgres ON
// CONFLICT, SQLite OR IGNORE, SQL Server NOT EXISTS).
type Repository interface {
	// Close releases backend resources. Call once at shutdown.
	Close()

	// Init creates the run history schema if it does not exist. Idempotent
	// and safe to call on every invocation.
	Init(ctx context.Context) error

	// SaveRun persists one run. Saving an ID that already exists is a
	// no-op, so retried jobs do not duplicate history.
	SaveRun(ctx context.Context, run Run) error

	// GetRun fetches a run by ID. Returns ErrRunNotFound when absent.
	GetRun(ctx context.Context, id string) (Run, error)

	// ListRuns returns the most recent runs, newest first. limit <= 0
	// means no limit.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// SaveDataset upserts a workspace dataset by name.
	SaveDataset(ctx context.Context, ds dataset.Dataset) error

	// LoadDataset fetches a dataset by name. Returns ErrDatasetNotFound
	// when absent.
	LoadDataset(ctx context.Context, name string) (dataset.Dataset, error)

	// ListDatasets returns the stored dataset names, sorted.
	ListDatasets(ctx context.Context) ([]string, error)
}

// ErrRunNotFound reports a GetRun miss.
var ErrRunNotFound = fmt.Errorf("store: run not found")

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend factory under a kind. Call from an init()
// in the backend package.
//
// Panics on empty kind, nil factory, or duplicate registration; ambiguous
// backend selection should fail at startup, not at job time.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("store: Register called with empty kind")
	}
	if f == nil {
		panic("store: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("store: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("store: missing storage.kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// Kinds returns the registered backend kinds, for error messages and CLI
// usage text.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	return out
}
