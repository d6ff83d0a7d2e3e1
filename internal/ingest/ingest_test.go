package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"datamerge/internal/config"
)

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"data.csv", "csv"},
		{"data.CSV", "csv"},
		{"data.tsv", "csv"}, // unknown extensions default to csv
		{"rows.json", "json"},
		{"rows.ndjson", "json"},
		{"page.html", "html"},
		{"page.htm", "html"},
		{"cols.parquet", "parquet"},
	}
	for _, tt := range tests {
		if got := DetectFormat(tt.path); got != tt.want {
			t.Errorf("DetectFormat(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestLoadAll(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "customers.csv")
	if err := os.WriteFile(csvPath, []byte("id,name\n1,Alice\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	jsonPath := filepath.Join(dir, "orders.json")
	if err := os.WriteFile(jsonPath, []byte(`[{"ref":"1","total":5}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	datasets, err := LoadAll([]config.Source{
		{Path: csvPath},
		{Name: "orders", Path: jsonPath},
	})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(datasets) != 2 {
		t.Fatalf("got %d datasets", len(datasets))
	}
	// Source order is preserved: dataset 0 is the left side downstream.
	if datasets[0].Name != "customers.csv" || datasets[1].Name != "orders" {
		t.Fatalf("names = %q, %q", datasets[0].Name, datasets[1].Name)
	}
	if datasets[0].Rows[0]["name"] != "Alice" {
		t.Errorf("csv row = %#v", datasets[0].Rows[0])
	}
	if datasets[1].Rows[0]["total"] != int64(5) {
		t.Errorf("json row = %#v", datasets[1].Rows[0])
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	t.Parallel()

	if _, err := Load(config.Source{Path: "x.bin", Format: "xlsx"}); err == nil {
		t.Fatal("unsupported format must fail")
	}
}
