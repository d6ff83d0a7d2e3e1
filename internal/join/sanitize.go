package join

import (
	"encoding/json"
	"fmt"
	"strings"
)

// arraySeparator joins flattened array elements in a sanitized cell.
const arraySeparator = " | "

// Sanitize reduces an arbitrary cell value to a join-safe scalar.
//
// Rules, in order:
//  1. nil stays nil (text surfaces render it as "" at write time).
//  2. Arrays flatten to their elements' string forms joined with " | ";
//     nested objects and arrays inside are JSON-stringified.
//  3. Plain objects become their JSON string representation.
//  4. Primitives pass through unchanged.
//
// Sanitize is total and idempotent: it never fails, and re-sanitizing an
// already-scalar value returns it unchanged.
func Sanitize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = elementString(e)
		}
		return strings.Join(parts, arraySeparator)
	case map[string]any:
		return jsonString(t)
	default:
		return v
	}
}

// elementString renders a single array element. Structured elements (and nil,
// which has no scalar form of its own inside an array) are JSON-stringified;
// primitives use their plain string form.
func elementString(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case map[string]any, []any:
		return jsonString(t)
	default:
		return fmt.Sprint(t)
	}
}

func jsonString(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Marshal of the closed cell-value set cannot fail; this guards
		// values that bypassed ingestion coercion.
		return fmt.Sprint(v)
	}
	return string(b)
}

// SanitizeRecord sanitizes every cell of a record-shaped value. A value that
// is not a record at all (a bare string, a number, nil) sanitizes to an empty
// record rather than failing; external merge results are accepted row by row
// on a best-effort basis.
func SanitizeRecord(v any) Record {
	m := asMap(v)
	rec := make(Record, len(m))
	for k, cell := range m {
		rec[k] = Sanitize(cell)
	}
	return rec
}

func asMap(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case Record:
		return t
	default:
		return nil
	}
}

// SanitizeExternalRows converts an externally produced row array into
// engine-shaped records, sanitizing every cell. Non-record elements become
// empty records; the whole-response shape check (array vs not) belongs to the
// advisor boundary, not here.
func SanitizeExternalRows(rows []any) []Record {
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = SanitizeRecord(r)
	}
	return out
}

// SanitizeName converts a dataset name into its output-column prefix form:
// the file extension is stripped and every non-alphanumeric character becomes
// an underscore. "orders (march).csv" → "orders__march_".
func SanitizeName(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		ext := name[i+1:]
		if ext != "" && !strings.ContainsAny(ext, "/\\") {
			name = name[:i]
		}
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
