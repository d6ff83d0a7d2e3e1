// Package metrics defines the minimal metrics facade the merge pipeline
// emits through. Backends (Datadog, or the no-op default) live behind the
// Backend interface so pipeline code never depends on a vendor SDK.
package metrics

import "sync"

// Labels are metric dimensions ("join_type", "status", ...).
type Labels map[string]string

// Backend receives pipeline metrics. Implementations must be safe for
// concurrent use; emission must never block pipeline work.
type Backend interface {
	// IncCounter adds delta to a named counter.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records one sample of a named distribution
	// (durations in seconds, sizes in rows).
	ObserveHistogram(name string, value float64, labels Labels)
}

// Metric names emitted by the pipeline. Backends may ignore names they do
// not recognize.
const (
	// MergeRunsTotal counts merge executions. Labels: join_type, status.
	MergeRunsTotal = "merge_runs_total"
	// MergeRowsTotal counts rows flowing through a run. Labels: kind
	// (input | output | truncated).
	MergeRowsTotal = "merge_rows_total"
	// MergeRunDurationSeconds samples end-to-end run durations.
	// Labels: join_type.
	MergeRunDurationSeconds = "merge_run_duration_seconds"
	// AdvisorRequestsTotal counts advisor calls. Labels: op, status.
	AdvisorRequestsTotal = "advisor_requests_total"
)

// Nop is the default backend: it drops everything.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}

var (
	mu      sync.RWMutex
	backend Backend = Nop{}
)

// SetBackend installs the process-wide backend. Call once at startup before
// pipeline work begins; the default is Nop.
func SetBackend(b Backend) {
	if b == nil {
		b = Nop{}
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

// IncCounter emits through the installed backend.
func IncCounter(name string, delta float64, labels Labels) {
	mu.RLock()
	b := backend
	mu.RUnlock()
	b.IncCounter(name, delta, labels)
}

// ObserveHistogram emits through the installed backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	mu.RLock()
	b := backend
	mu.RUnlock()
	b.ObserveHistogram(name, value, labels)
}
