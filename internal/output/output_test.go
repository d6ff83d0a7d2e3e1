package output

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"datamerge/internal/dataset"
	"datamerge/internal/join"
)

func TestCSVFormatter(t *testing.T) {
	t.Parallel()

	header := []string{"id", "a - name", "b - total"}
	records := []join.Record{
		{"id": "1", "a - name": "Alice", "b - total": int64(10)},
		{"id": "2", "a - name": nil},                                  // null renders as ""
		{"id": "3", "a - name": "Cora", "later - col": "dropped"},     // outside header
		{"id": "4", "a - name": "Dan", "b - total": float64(1.5)},
	}

	var buf bytes.Buffer
	if err := NewCSVFormatter(&buf).Format(header, records); err != nil {
		t.Fatalf("Format: %v", err)
	}

	want := "id,a - name,b - total\n" +
		"1,Alice,10\n" +
		"2,,\n" +
		"3,Cora,\n" +
		"4,Dan,1.5\n"
	if buf.String() != want {
		t.Fatalf("csv output:\n%q\nwant:\n%q", buf.String(), want)
	}
}

func TestCSVFormatterEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := NewCSVFormatter(&buf).Format(nil, nil); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("empty result must write nothing, got %q", buf.String())
	}
}

func TestJSONLFormatter(t *testing.T) {
	t.Parallel()

	header := []string{"id", "v"}
	records := []join.Record{
		{"id": "1", "v": "x", "extra": "dropped"},
		{"id": "2"},
	}

	var buf bytes.Buffer
	if err := NewJSONLFormatter(&buf).Format(header, records); err != nil {
		t.Fatalf("Format: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 0 not json: %v", err)
	}
	if first["id"] != "1" || first["v"] != "x" {
		t.Errorf("line 0 = %v", first)
	}
	if _, ok := first["extra"]; ok {
		t.Error("columns outside the header must be dropped")
	}
	var second map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("line 1 not json: %v", err)
	}
	if v, ok := second["v"]; !ok || v != nil {
		t.Errorf("missing cell must encode as null, got %v", second)
	}
}

func TestPreview(t *testing.T) {
	t.Parallel()

	header := []string{"id", "name"}
	records := []join.Record{
		{"id": "1", "name": "Alice"},
		{"id": "2", "name": "Bob"},
		{"id": "3", "name": "Cora"},
	}

	var buf bytes.Buffer
	Preview(&buf, header, records, 2)
	out := buf.String()
	if !strings.Contains(out, "Alice") || !strings.Contains(out, "Bob") {
		t.Fatalf("preview missing rows:\n%s", out)
	}
	if strings.Contains(out, "Cora") {
		t.Fatalf("limit not applied:\n%s", out)
	}
	if !strings.Contains(out, "2 of 3 rows shown") {
		t.Fatalf("truncation note missing:\n%s", out)
	}

	buf.Reset()
	Preview(&buf, nil, nil, 10)
	if !strings.Contains(buf.String(), "(no rows)") {
		t.Fatalf("empty preview = %q", buf.String())
	}
}

func TestWorkspaceRoundTrip(t *testing.T) {
	t.Parallel()

	in := []dataset.Dataset{
		{
			Name:    "customers.csv",
			Columns: []string{"id", "name"},
			Rows: []dataset.Row{
				{"id": "1", "name": "Alice"},
				{"id": "2"},
			},
		},
		{
			Name:    "orders.json",
			Columns: []string{"ref", "total"},
			Rows:    []dataset.Row{{"ref": "1", "total": int64(10)}},
		},
	}

	var buf bytes.Buffer
	if err := ExportWorkspace(&buf, in); err != nil {
		t.Fatalf("Export: %v", err)
	}
	out, err := ImportWorkspace(&buf)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\nin:  %+v\nout: %+v", in, out)
	}
}

// Hand-edited exports can carry row keys missing from the column list; the
// importer repairs the subset invariant.
func TestWorkspaceImportRepairsColumns(t *testing.T) {
	t.Parallel()

	const body = `[{"name": "x.csv", "columns": ["a"], "rows": [{"a": "1", "z": "2", "b": "3"}]}]`
	out, err := ImportWorkspace(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if want := []string{"a", "b", "z"}; !reflect.DeepEqual(out[0].Columns, want) {
		t.Fatalf("Columns = %v, want %v", out[0].Columns, want)
	}
}

func TestWorkspaceImportMalformed(t *testing.T) {
	t.Parallel()

	if _, err := ImportWorkspace(strings.NewReader(`{"not": "an array"}`)); err == nil {
		t.Fatal("non-array workspace must fail to import")
	}
}
