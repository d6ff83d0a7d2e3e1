// Package output writes merged results and workspaces to their downstream
// surfaces: CSV sheets, JSON Lines, terminal preview tables, and the JSON
// workspace export/import round-trip.
//
// The sheet surface has one deliberate quirk, preserved for compatibility:
// the header comes from the first record only (see join.Header), so columns
// that appear only in later records are silently dropped from the sheet.
package output

import (
	"fmt"
	"io"
	"strconv"

	"datamerge/internal/join"
)

// Formatter writes a merged result to its destination. The header fixes both
// column order and column membership; record cells outside it are dropped.
type Formatter interface {
	Format(header []string, records []join.Record) error
	SetOutput(w io.Writer)
}

// formatValue renders a join-safe scalar for a text surface. nil renders as
// the empty string, the text-surface form of the in-memory null.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
