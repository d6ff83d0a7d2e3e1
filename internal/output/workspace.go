package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"datamerge/internal/dataset"
)

// ExportWorkspace writes the whole workspace, every dataset with its
// columns and rows, as one JSON array, the same shape ImportWorkspace reads
// back.
func ExportWorkspace(w io.Writer, datasets []dataset.Dataset) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(datasets); err != nil {
		return fmt.Errorf("encode workspace: %w", err)
	}
	return nil
}

// ImportWorkspace reads a workspace export back into datasets. Cell values
// re-coerce into the closed cell-value set, and any row key missing from a
// dataset's column list is appended (sorted) so the subset invariant holds
// even for hand-edited exports.
func ImportWorkspace(r io.Reader) ([]dataset.Dataset, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw []struct {
		Name    string           `json:"name"`
		Columns []string         `json:"columns"`
		Rows    []map[string]any `json:"rows"`
	}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode workspace: %w", err)
	}

	out := make([]dataset.Dataset, 0, len(raw))
	for _, d := range raw {
		ds := dataset.Dataset{Name: d.Name, Columns: d.Columns}
		known := make(map[string]bool, len(ds.Columns))
		for _, c := range ds.Columns {
			known[c] = true
		}
		var extra []string
		for _, rec := range d.Rows {
			row := dataset.CoerceRow(rec)
			for k := range row {
				if !known[k] {
					known[k] = true
					extra = append(extra, k)
				}
			}
			ds.Rows = append(ds.Rows, row)
		}
		sort.Strings(extra)
		ds.Columns = append(ds.Columns, extra...)
		out = append(out, ds)
	}
	return out, nil
}
