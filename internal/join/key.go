package join

import (
	"fmt"
	"strings"

	"datamerge/internal/dataset"
)

// NormalizeKey converts a raw key cell value to the canonical string form
// used for equality during grouping ("Germany", "8429529").
//
// nil and missing values normalize to "", the reserved unjoinable sentinel:
// rows whose key normalizes to "" never enter any key group. All other values
// take their trimmed string form; this is a string-equality join, not a
// typed comparison, so 101 (number) and "101" (text) match.
func NormalizeKey(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case int64:
		return fmt.Sprintf("%d", t)
	case int:
		return fmt.Sprintf("%d", t)
	case []byte:
		return strings.TrimSpace(string(t))
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// KeyIndex groups one dataset's rows by normalized key.
//
// Keys preserves first-encountered order scanning the dataset's rows; group
// contents preserve the dataset's original row order. Both orderings feed the
// executor's deterministic output order. A KeyIndex is built fresh per join
// attempt and never persisted.
type KeyIndex struct {
	Keys   []string
	Groups map[string][]dataset.Row
}

// KeyCounts is the per-dataset key→occurrence-count summary the estimator
// consumes. It carries no row data.
type KeyCounts struct {
	Keys   []string
	Counts map[string]int
}

// Index builds the key index for one dataset.
//
// keyColumn == "" means the dataset has no mapping in the chosen candidate;
// the result is an empty index and the dataset is invisible to every key of
// this join. That is the designed degradation for a configuration gap, not an
// error. Rows whose key value normalizes to the "" sentinel are skipped.
func Index(ds dataset.Dataset, keyColumn string) KeyIndex {
	ix := KeyIndex{Groups: make(map[string][]dataset.Row)}
	if keyColumn == "" {
		return ix
	}
	for _, row := range ds.Rows {
		key := NormalizeKey(row[keyColumn])
		if key == "" {
			continue
		}
		if _, seen := ix.Groups[key]; !seen {
			ix.Keys = append(ix.Keys, key)
		}
		ix.Groups[key] = append(ix.Groups[key], row)
	}
	return ix
}

// KeyCounts reduces the index to its count summary.
func (ix KeyIndex) KeyCounts() KeyCounts {
	kc := KeyCounts{
		Keys:   ix.Keys,
		Counts: make(map[string]int, len(ix.Groups)),
	}
	for k, g := range ix.Groups {
		kc.Counts[k] = len(g)
	}
	return kc
}

// allKeys returns the union of keys across datasets in first-encountered
// order, scanning datasets in their given order. Estimator and executor walk
// the same sequence so their results line up row for row.
func allKeys(perDataset []KeyCounts) []string {
	var keys []string
	seen := make(map[string]struct{})
	for _, kc := range perDataset {
		for _, k := range kc.Keys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys
}
