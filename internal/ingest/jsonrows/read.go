// Package jsonrows reads JSON documents into datasets.
package jsonrows

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"datamerge/internal/config"
	"datamerge/internal/dataset"
)

// Read decodes JSON from r into a Dataset named name.
//
// Accepted document shapes, in order of detection:
//   - a root array: every object element becomes a row (non-object elements
//     are skipped);
//   - an envelope object: the first field holding an array of objects is the
//     row source ({"data": [...], "meta": {...}});
//   - a single object: one row.
//
// Column order: JSON objects carry no reliable field order across decoders,
// so columns are the sorted union of keys seen in any row. Values coerce
// through dataset.Coerce; numbers decode via json.Number to keep integers
// intact.
func Read(r io.Reader, name string, opt config.Options) (dataset.Dataset, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return dataset.Dataset{}, fmt.Errorf("json %s: %w", name, err)
	}

	objs := rowObjects(root)

	ds := dataset.Dataset{Name: name}
	seen := map[string]bool{}
	for _, obj := range objs {
		row := dataset.CoerceRow(obj)
		for k := range row {
			if !seen[k] {
				seen[k] = true
				ds.Columns = append(ds.Columns, k)
			}
		}
		ds.Rows = append(ds.Rows, row)
	}
	sort.Strings(ds.Columns)
	return ds, nil
}

// rowObjects extracts the row source per the accepted document shapes.
func rowObjects(root any) []map[string]any {
	switch t := root.(type) {
	case []any:
		var objs []map[string]any
		for _, el := range t {
			if obj, ok := el.(map[string]any); ok {
				objs = append(objs, obj)
			}
		}
		return objs
	case map[string]any:
		// Envelope: first array-of-objects field wins. Field names are
		// sorted so detection is deterministic across runs.
		var fields []string
		for k := range t {
			fields = append(fields, k)
		}
		sort.Strings(fields)
		for _, k := range fields {
			arr, ok := t[k].([]any)
			if !ok || len(arr) == 0 {
				continue
			}
			if _, ok := arr[0].(map[string]any); ok {
				return rowObjects(arr)
			}
		}
		// Single object document.
		return []map[string]any{t}
	default:
		return nil
	}
}
