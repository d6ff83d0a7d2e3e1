package parquet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
)

type sampleRow struct {
	ID     string `parquet:"id"`
	Amount int64  `parquet:"amount"`
}

func writeSample(t *testing.T, rows []sampleRow) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.parquet")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	w := parquet.NewGenericWriter[sampleRow](f)
	if _, err := w.Write(rows); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	path := writeSample(t, []sampleRow{
		{ID: "101", Amount: 10},
		{ID: "102", Amount: 20},
	})

	ds, err := ReadFile(path, "sample.parquet")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(ds.Columns) != 2 || ds.Columns[0] != "id" || ds.Columns[1] != "amount" {
		t.Fatalf("Columns = %v, want schema order [id amount]", ds.Columns)
	}
	if len(ds.Rows) != 2 {
		t.Fatalf("got %d rows", len(ds.Rows))
	}
	if ds.Rows[0]["id"] != "101" {
		t.Errorf("row 0 id = %#v", ds.Rows[0]["id"])
	}
	if ds.Rows[1]["amount"] != int64(20) {
		t.Errorf("row 1 amount = %#v", ds.Rows[1]["amount"])
	}
}

func TestReadFileMissing(t *testing.T) {
	t.Parallel()

	if _, err := ReadFile(filepath.Join(t.TempDir(), "nope.parquet"), "nope"); err == nil {
		t.Fatal("missing file must fail")
	}
}
