// Package profile computes per-dataset column statistics: value kinds,
// bounded distinct counts, and uniqueness ratios.
//
// Profiles serve two consumers: they are the dataset summaries sent to the
// advisor service when asking for join-key candidates, and they feed the
// local heuristic that proposes candidates when no advisor is configured.
// All inference is best-effort and never fails.
package profile

import (
	"strconv"
	"strings"

	"datamerge/internal/dataset"
	"datamerge/internal/join"
)

// distinctCap bounds per-column distinct tracking so profiling stays cheap on
// wide uploads. Once capped, the distinct count stops growing and the column
// is flagged.
const distinctCap = 10000

// maxSamples is how many example values a column profile carries.
const maxSamples = 5

// Column is the profile of one column.
//
// Uniqueness uses a per-column denominator: only rows where the column holds
// a meaningful (non-nil, non-blank) value count toward it. A column that is
// mostly empty can still be perfectly unique where present.
type Column struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"` // integer | float | boolean | text
	NonNull    int      `json:"non_null"`
	Distinct   int      `json:"distinct"`
	Capped     bool     `json:"capped,omitempty"`
	Uniqueness float64  `json:"uniqueness"`
	Samples    []string `json:"samples,omitempty"`
}

// Summary profiles one dataset.
type Summary struct {
	Dataset  string   `json:"dataset"`
	RowCount int      `json:"row_count"`
	Columns  []Column `json:"columns"`
}

// Describe profiles a dataset. Column order follows the dataset's.
func Describe(ds dataset.Dataset) Summary {
	sum := Summary{
		Dataset:  ds.Name,
		RowCount: len(ds.Rows),
		Columns:  make([]Column, 0, len(ds.Columns)),
	}

	for _, name := range ds.Columns {
		col := Column{Name: name}
		seen := make(map[string]struct{})
		allInt, allFloat, allBool := true, true, true

		for _, row := range ds.Rows {
			v := join.NormalizeKey(row[name])
			if v == "" {
				continue
			}
			col.NonNull++

			if !col.Capped {
				if _, ok := seen[v]; !ok {
					if len(seen) >= distinctCap {
						col.Capped = true
					} else {
						seen[v] = struct{}{}
					}
				}
			}
			if len(col.Samples) < maxSamples && !sampled(col.Samples, v) {
				col.Samples = append(col.Samples, v)
			}

			if allInt {
				if _, err := strconv.ParseInt(v, 10, 64); err != nil {
					allInt = false
				}
			}
			if allFloat {
				if _, err := strconv.ParseFloat(v, 64); err != nil {
					allFloat = false
				}
			}
			if allBool {
				if _, err := strconv.ParseBool(strings.ToLower(v)); err != nil {
					allBool = false
				}
			}
		}

		col.Distinct = len(seen)
		if col.NonNull > 0 {
			col.Uniqueness = float64(col.Distinct) / float64(col.NonNull)
		}
		col.Kind = pickKind(col.NonNull > 0, allInt, allFloat, allBool)
		sum.Columns = append(sum.Columns, col)
	}

	return sum
}

// DescribeAll profiles every dataset in order.
func DescribeAll(datasets []dataset.Dataset) []Summary {
	out := make([]Summary, len(datasets))
	for i, ds := range datasets {
		out[i] = Describe(ds)
	}
	return out
}

// Column looks up a column profile by name.
func (s Summary) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// pickKind prefers more specific kinds, mirroring ingestion-side inference.
func pickKind(seen, allInt, allFloat, allBool bool) string {
	switch {
	case !seen:
		return "text"
	case allInt:
		return "integer"
	case allBool:
		return "boolean"
	case allFloat:
		return "float"
	default:
		return "text"
	}
}

func sampled(samples []string, v string) bool {
	for _, s := range samples {
		if s == v {
			return true
		}
	}
	return false
}
