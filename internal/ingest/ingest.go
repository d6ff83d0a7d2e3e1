// Package ingest turns uploaded tabular files into dataset.Dataset values.
//
// Format-specific readers live in subpackages (csv, jsonrows, htmltable,
// parquet); this package only dispatches on the configured or inferred
// format. All readers coerce cell values through dataset.Coerce so the rest
// of the pipeline sees the closed cell-value set.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"datamerge/internal/config"
	"datamerge/internal/dataset"
	csvingest "datamerge/internal/ingest/csv"
	"datamerge/internal/ingest/htmltable"
	"datamerge/internal/ingest/jsonrows"
	parquetingest "datamerge/internal/ingest/parquet"
)

// Load reads one configured source into a Dataset.
func Load(src config.Source) (dataset.Dataset, error) {
	format := src.Format
	if format == "" {
		format = DetectFormat(src.Path)
	}
	name := src.EffectiveName()

	switch format {
	case "parquet":
		// Parquet needs a seekable file, not a stream.
		return parquetingest.ReadFile(src.Path, name)
	case "csv", "json", "html":
		f, err := os.Open(src.Path)
		if err != nil {
			return dataset.Dataset{}, fmt.Errorf("open source %s: %w", src.Path, err)
		}
		defer f.Close()
		switch format {
		case "csv":
			return csvingest.Read(f, name, src.Options)
		case "json":
			return jsonrows.Read(f, name, src.Options)
		default:
			return htmltable.Read(f, name, src.Options)
		}
	default:
		return dataset.Dataset{}, fmt.Errorf("source %s: unsupported format %q", src.Path, format)
	}
}

// LoadAll loads every source in order. Dataset order matters downstream (the
// first source is the left side of a left join), so this preserves it.
func LoadAll(sources []config.Source) ([]dataset.Dataset, error) {
	out := make([]dataset.Dataset, 0, len(sources))
	for _, src := range sources {
		ds, err := Load(src)
		if err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	return out, nil
}

// DetectFormat infers the reader from the file extension. Unknown extensions
// default to csv, the dominant upload format.
func DetectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonl", ".ndjson":
		return "json"
	case ".html", ".htm":
		return "html"
	case ".parquet":
		return "parquet"
	default:
		return "csv"
	}
}
