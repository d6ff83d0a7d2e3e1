// Package parquet reads Apache Parquet files into datasets.
package parquet

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"datamerge/internal/dataset"
)

// ReadFile loads every row of a parquet file into a Dataset named name.
//
// Column order follows the file schema. Values coerce through dataset.Coerce,
// so parquet's typed scalars land in the closed cell-value set. The whole
// file is materialized; uploads in this system are interactive-scale.
func ReadFile(path, name string) (dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataset.Dataset{}, fmt.Errorf("parquet %s: %w", name, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return dataset.Dataset{}, fmt.Errorf("parquet %s: stat: %w", name, err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return dataset.Dataset{}, fmt.Errorf("parquet %s: open: %w", name, err)
	}

	ds := dataset.Dataset{Name: name}
	for _, field := range pf.Schema().Fields() {
		ds.Columns = append(ds.Columns, field.Name())
	}

	pr := parquet.NewReader(pf)
	defer pr.Close()

	for {
		rec := map[string]any{}
		if err := pr.Read(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return dataset.Dataset{}, fmt.Errorf("parquet %s: read row: %w", name, err)
		}
		ds.Rows = append(ds.Rows, dataset.CoerceRow(rec))
	}

	return ds, nil
}
