package output

import (
	"encoding/json"
	"fmt"
	"io"

	"datamerge/internal/join"
)

// JSONLFormatter writes records as JSON Lines: one object per line.
type JSONLFormatter struct {
	writer io.Writer
}

// NewJSONLFormatter creates a JSON Lines formatter writing to w.
func NewJSONLFormatter(w io.Writer) *JSONLFormatter {
	return &JSONLFormatter{writer: w}
}

// SetOutput changes the destination writer.
func (j *JSONLFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// Format writes one JSON object per record, restricted to the header's
// columns so the JSON surface matches the sheet surface column-for-column.
// In-memory nulls stay JSON null here; only text surfaces flatten them to "".
func (j *JSONLFormatter) Format(header []string, records []join.Record) error {
	enc := json.NewEncoder(j.writer)
	for i, rec := range records {
		obj := make(map[string]any, len(header))
		for _, col := range header {
			if v, ok := rec[col]; ok {
				obj[col] = v
			} else {
				obj[col] = nil
			}
		}
		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	return nil
}
