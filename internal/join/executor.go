package join

import (
	"fmt"
	"sort"

	"datamerge/internal/dataset"
)

// TruncatedStatus marks additive records of a key whose combination count hit
// the opt-in per-key cap of ExecuteCapped.
const TruncatedStatus = "Truncated"

// Estimate indexes every dataset under the candidate's mapping and returns
// the stats preview. Convenience wrapper over Index + EstimateStats.
func Estimate(datasets []dataset.Dataset, cand dataset.Candidate) Stats {
	perDataset := make([]KeyCounts, len(datasets))
	for i, ds := range datasets {
		perDataset[i] = Index(ds, cand.KeyColumn(ds.Name)).KeyCounts()
	}
	return EstimateStats(perDataset)
}

// Execute materializes the join of datasets under the candidate's key mapping
// with the given join type, preserving full cartesian semantics.
//
// Per key (keys visited in first-encountered order across datasets):
//  1. Each dataset contributes its row group for the key, or a single null
//     placeholder when it has none.
//  2. The full cartesian product across the groups is enumerated, dataset 0
//     varying slowest and the last dataset fastest.
//  3. Combinations are filtered per join type: Inner drops any combination
//     containing a placeholder, Left drops those with a placeholder in the
//     dataset-0 position, Outer and Additive keep everything.
//  4. Each surviving combination becomes one Record: the key under the
//     candidate's key name, then every non-key column of every present row
//     under "<SanitizeName(dataset)> - <column>". Additive adds _Join_Status
//     and a "TRUE"/"FALSE" _Found_In_ flag per dataset.
//
// Output is deterministic: identical inputs produce identical sequences, and
// len(Execute(...)) always equals the EstimateStats entry for jt. There is no
// failure path; a dataset without a key mapping simply counts as missing for
// every key.
func Execute(datasets []dataset.Dataset, cand dataset.Candidate, jt Type) []Record {
	records, _ := run(datasets, cand, jt, 0)
	return records
}

// ExecuteCapped is Execute with an opt-in hardening cap on the number of
// combinations emitted per key. A key whose surviving combinations exceed the
// cap emits only the first perKeyCap of them (marked _Join_Status =
// "Truncated" under Additive) and the rest are dropped; the second return
// value is the total number of dropped combinations across all keys.
// perKeyCap <= 0 disables capping and matches Execute exactly.
func ExecuteCapped(datasets []dataset.Dataset, cand dataset.Candidate, jt Type, perKeyCap int) ([]Record, int) {
	return run(datasets, cand, jt, perKeyCap)
}

func run(datasets []dataset.Dataset, cand dataset.Candidate, jt Type, perKeyCap int) ([]Record, int) {
	indexes := make([]KeyIndex, len(datasets))
	perDataset := make([]KeyCounts, len(datasets))
	for i, ds := range datasets {
		indexes[i] = Index(ds, cand.KeyColumn(ds.Name))
		perDataset[i] = indexes[i].KeyCounts()
	}

	var records []Record
	totalDropped := 0

	for _, key := range allKeys(perDataset) {
		// Placeholder groups hold a single nil row, so every key yields
		// at least one combination before filtering.
		groups := make([][]dataset.Row, len(datasets))
		for i := range datasets {
			if g := indexes[i].Groups[key]; len(g) > 0 {
				groups[i] = g
			} else {
				groups[i] = []dataset.Row{nil}
			}
		}

		emitted, dropped := 0, 0
		forEachCombination(groups, func(combo []dataset.Row) bool {
			if !keep(combo, jt) {
				return true
			}
			if perKeyCap > 0 && emitted >= perKeyCap {
				dropped++
				return true
			}
			records = append(records, buildRecord(datasets, cand, jt, key, combo))
			emitted++
			return true
		})

		if dropped > 0 {
			totalDropped += dropped
			if jt == Additive {
				for i := len(records) - emitted; i < len(records); i++ {
					records[i][StatusColumn] = TruncatedStatus
				}
			}
		}
	}

	return records, totalDropped
}

// keep applies the per-type combination filter.
func keep(combo []dataset.Row, jt Type) bool {
	switch jt {
	case Inner:
		for _, row := range combo {
			if row == nil {
				return false
			}
		}
		return true
	case Left:
		return len(combo) > 0 && combo[0] != nil
	default:
		return true
	}
}

// buildRecord flattens one surviving combination into an output record.
func buildRecord(datasets []dataset.Dataset, cand dataset.Candidate, jt Type, key string, combo []dataset.Row) Record {
	rec := Record{cand.KeyName: key}

	var found, missing []string
	for i, ds := range datasets {
		row := combo[i]
		if row == nil {
			missing = append(missing, ds.Name)
			continue
		}
		found = append(found, ds.Name)

		keyCol := cand.KeyColumn(ds.Name)
		prefix := SanitizeName(ds.Name) + " - "
		for _, col := range ds.Columns {
			if col == keyCol {
				continue
			}
			v, ok := row[col]
			if !ok {
				continue
			}
			rec[prefix+col] = Sanitize(v)
		}
	}

	if jt == Additive {
		rec[StatusColumn] = additiveStatus(found, missing, len(datasets))
		for i, ds := range datasets {
			flag := "FALSE"
			if combo[i] != nil {
				flag = "TRUE"
			}
			rec[FoundInPrefix+SanitizeName(ds.Name)] = flag
		}
	}

	return rec
}

// additiveStatus picks the provenance label, in order of precedence: full
// match, unique to a single file, partial match.
func additiveStatus(found, missing []string, total int) string {
	switch {
	case len(missing) == 0:
		return "Matched (All Files)"
	case len(found) == 1:
		return "Unique to " + found[0]
	default:
		return fmt.Sprintf("Partial Match (Found in %d/%d)", len(found), total)
	}
}

// Header derives the CSV/sheet column order for a result: the key name first,
// then each dataset's renamed non-key columns in dataset order, then the
// additive metadata columns. Columns absent from the FIRST record are
// filtered out; downstream sheet writers derive their header from the first
// record only, so values appearing solely in later records are silently
// dropped. That quirk is load-bearing for compatibility; see DESIGN.md.
//
// Returns nil for an empty result.
func Header(records []Record, datasets []dataset.Dataset, cand dataset.Candidate, jt Type) []string {
	if len(records) == 0 {
		return nil
	}
	first := records[0]

	// Semantic results carry advisor-produced column names the engine cannot
	// predict from the datasets, so the header comes from the first record
	// itself: key first when present, remaining columns sorted.
	if jt == Semantic {
		return semanticHeader(first, cand.KeyName)
	}

	ordered := []string{cand.KeyName}
	for _, ds := range datasets {
		keyCol := cand.KeyColumn(ds.Name)
		prefix := SanitizeName(ds.Name) + " - "
		for _, col := range ds.Columns {
			if col == keyCol {
				continue
			}
			ordered = append(ordered, prefix+col)
		}
	}
	if jt == Additive {
		ordered = append(ordered, StatusColumn)
		for _, ds := range datasets {
			ordered = append(ordered, FoundInPrefix+SanitizeName(ds.Name))
		}
	}

	header := make([]string, 0, len(first))
	seen := make(map[string]struct{}, len(ordered))
	for _, col := range ordered {
		if _, dup := seen[col]; dup {
			continue
		}
		seen[col] = struct{}{}
		if _, ok := first[col]; ok {
			header = append(header, col)
		}
	}
	return header
}

// semanticHeader orders a record's own columns deterministically: the key
// column leads when the record carries it, the rest follow sorted.
func semanticHeader(first Record, keyName string) []string {
	rest := make([]string, 0, len(first))
	for col := range first {
		if col == keyName {
			continue
		}
		rest = append(rest, col)
	}
	sort.Strings(rest)

	header := make([]string, 0, len(first))
	if keyName != "" {
		if _, ok := first[keyName]; ok {
			header = append(header, keyName)
		}
	}
	return append(header, rest...)
}

// forEachCombination enumerates the cartesian product of groups with the last
// group varying fastest. fn returning false stops the enumeration early.
func forEachCombination(groups [][]dataset.Row, fn func(combo []dataset.Row) bool) {
	n := len(groups)
	if n == 0 {
		return
	}
	idx := make([]int, n)
	combo := make([]dataset.Row, n)
	for {
		for i := range groups {
			combo[i] = groups[i][idx[i]]
		}
		if !fn(combo) {
			return
		}
		// Odometer increment, rightmost position first.
		i := n - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(groups[i]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return
		}
	}
}
