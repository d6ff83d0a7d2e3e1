package output

import (
	"encoding/csv"
	"fmt"
	"io"

	"datamerge/internal/join"
)

// CSVFormatter writes records as a CSV sheet.
type CSVFormatter struct {
	writer io.Writer
}

// NewCSVFormatter creates a CSV formatter writing to w.
func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{writer: w}
}

// SetOutput changes the destination writer.
func (c *CSVFormatter) SetOutput(w io.Writer) {
	c.writer = w
}

// Format writes the header row and one line per record. Cells absent from a
// record, and in-memory nulls, render as empty strings. Record keys outside
// the header are dropped, which is how later-record-only columns vanish from
// the sheet.
//
// An empty result writes nothing, not even a header.
func (c *CSVFormatter) Format(header []string, records []join.Record) error {
	if len(records) == 0 || len(header) == 0 {
		return nil
	}

	cw := csv.NewWriter(c.writer)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	line := make([]string, len(header))
	for _, rec := range records {
		for i, col := range header {
			line[i] = formatValue(rec[col])
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
