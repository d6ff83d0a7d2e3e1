package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"datamerge/internal/dataset"
)

// ErrDatasetNotFound reports a LoadDataset miss.
var ErrDatasetNotFound = fmt.Errorf("store: dataset not found")

// EncodeRows marshals dataset rows for a text column. nil encodes as an
// empty array.
func EncodeRows(rows []dataset.Row) (string, error) {
	if rows == nil {
		rows = []dataset.Row{}
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("store: encode rows: %w", err)
	}
	return string(b), nil
}

// DecodeRows reverses EncodeRows. Cell values re-coerce into the closed
// cell-value set (json.Number becomes int64 or float64), so a persisted
// dataset loads back exactly as it was ingested.
func DecodeRows(s string) ([]dataset.Row, error) {
	if s == "" || s == "[]" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("store: decode rows: %w", err)
	}
	out := make([]dataset.Row, 0, len(raw))
	for _, rec := range raw {
		out = append(out, dataset.CoerceRow(rec))
	}
	return out, nil
}
