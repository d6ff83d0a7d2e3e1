// Package csv reads delimited text files into datasets.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"datamerge/internal/config"
	"datamerge/internal/dataset"
)

// Read parses delimited text from r into a Dataset named name.
//
// Options:
//   - has_header (bool, default true): first row is the column list. Without
//     a header, columns are named col_1..col_N.
//   - comma (string, default ","): field delimiter, first rune used.
//   - trim_space (bool, default true): trim cells and header names.
//   - lazy_quotes (bool, default false): tolerate bare quotes.
//   - encoding (string): IANA charset name ("windows-1250", "ISO-8859-2");
//     input is transcoded to UTF-8 before parsing.
//   - header_map (map): rename source headers to canonical column names.
//
// Cells are kept as strings; empty cells become nil so key normalization and
// sanitization treat them as missing. A UTF-8 BOM on the first header cell is
// stripped.
func Read(r io.Reader, name string, opt config.Options) (dataset.Dataset, error) {
	if enc := opt.String("encoding", ""); enc != "" {
		e, err := ianaindex.IANA.Encoding(enc)
		if err != nil || e == nil {
			return dataset.Dataset{}, fmt.Errorf("csv %s: unknown encoding %q", name, enc)
		}
		r = transform.NewReader(r, e.NewDecoder())
	}

	hasHeader := opt.Bool("has_header", true)
	trim := opt.Bool("trim_space", true)
	hm := opt.StringMap("header_map")

	cr := csv.NewReader(r)
	cr.Comma = opt.Rune("comma", ',')
	cr.LazyQuotes = opt.Bool("lazy_quotes", false)
	cr.FieldsPerRecord = -1

	var columns []string
	line := 0

	readRec := func() ([]string, error) {
		line++
		return cr.Read()
	}

	if hasHeader {
		hdr, err := readRec()
		if err != nil {
			if err == io.EOF {
				return dataset.Dataset{Name: name}, nil
			}
			return dataset.Dataset{}, fmt.Errorf("csv %s: read header: %w", name, err)
		}
		columns = make([]string, len(hdr))
		for i, h := range hdr {
			if i == 0 {
				h = strings.TrimPrefix(h, "\uFEFF")
			}
			if trim {
				h = strings.TrimSpace(h)
			}
			if mapped, ok := hm[h]; ok {
				h = mapped
			}
			columns[i] = h
		}
	}

	ds := dataset.Dataset{Name: name, Columns: columns}

	for {
		rec, err := readRec()
		if err == io.EOF {
			break
		}
		if err != nil {
			return dataset.Dataset{}, fmt.Errorf("csv %s: line %d: %w", name, line, err)
		}

		// Headerless files grow the column list to the widest row seen.
		for len(ds.Columns) < len(rec) {
			ds.Columns = append(ds.Columns, fmt.Sprintf("col_%d", len(ds.Columns)+1))
		}

		row := make(dataset.Row, len(rec))
		for i, cell := range rec {
			if i >= len(ds.Columns) {
				break
			}
			if trim {
				cell = strings.TrimSpace(cell)
			}
			if cell == "" {
				continue // absent, not empty string
			}
			row[ds.Columns[i]] = cell
		}
		ds.Rows = append(ds.Rows, row)
	}

	return ds, nil
}
