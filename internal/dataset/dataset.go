// Package dataset defines the shared shapes that flow between ingestion, the
// join engine, the advisor boundary, and output: an uploaded tabular Dataset,
// its untyped rows, and the join Candidate proposed for a group of datasets.
//
// Everything here is request-scoped plain data. Nothing in this package owns
// goroutines, connections, or persistent state.
package dataset

import (
	"encoding/json"
	"fmt"
)

// Row is one record of a dataset: column name → cell value.
//
// Cell values are restricted to a closed set by construction: ingestion runs
// every externally-sourced value through Coerce, so downstream code only ever
// sees string, float64, int64, bool, nil, or (pre-sanitization) []any and
// map[string]any built from those.
type Row map[string]any

// Dataset is an independently-uploaded table: a unique name within the
// session, an ordered column list, and ordered rows.
//
// Invariant: every row's keys are a subset of Columns. Ingestion enforces
// this; the join engine relies on it for deterministic output ordering.
type Dataset struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Candidate is a proposed join key across datasets: the output key name plus
// one source column per dataset. Candidates are produced outside the engine
// (advisor service or local heuristic) and are immutable once handed to it.
//
// A dataset absent from ColumnMappings contributes no rows to the join for
// this candidate. That is a configuration gap, not an error.
type Candidate struct {
	KeyName        string            `json:"key_name"`
	ColumnMappings map[string]string `json:"column_mappings"` // dataset name -> column name
	Confidence     float64           `json:"confidence"`
	Reasoning      string            `json:"reasoning,omitempty"`
	Issues         []string          `json:"issues,omitempty"`
}

// KeyColumn returns the mapped key column for the named dataset, or "" when
// the dataset is not part of this candidate.
func (c Candidate) KeyColumn(datasetName string) string {
	return c.ColumnMappings[datasetName]
}

// Coerce converts an arbitrary decoded value into the closed cell-value set.
//
// Rules:
//   - json.Number becomes int64 when it parses as an integer, float64 otherwise.
//   - []any and map[string]any are rebuilt with coerced elements (structured
//     cells survive until sanitization flattens them).
//   - string, bool, nil, and the numeric kinds pass through.
//   - anything else falls back to its fmt string form.
//
// Coerce never fails; ingestion calls it on every cell so the rest of the
// pipeline can switch over a known set of kinds.
func Coerce(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string, bool, float64, int64, int:
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Coerce(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Coerce(e)
		}
		return out
	default:
		return fmt.Sprint(t)
	}
}

// CoerceRow applies Coerce to every cell of a decoded record.
func CoerceRow(rec map[string]any) Row {
	row := make(Row, len(rec))
	for k, v := range rec {
		row[k] = Coerce(v)
	}
	return row
}
