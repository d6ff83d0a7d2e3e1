package config

import (
	"strings"
	"testing"
)

func TestOptionsAccessors(t *testing.T) {
	t.Parallel()

	o := Options{
		"flag":      true,
		"flag_str":  "true",
		"name":      "semicolon",
		"count":     float64(7), // encoding/json decodes numbers as float64
		"ratio":     float64(0.5),
		"comma":     ";",
		"empty":     "",
		"headers":   map[string]any{"Old": "new", "n": float64(1)},
		"not_a_map": "x",
	}

	if !o.Bool("flag", false) || !o.Bool("flag_str", false) {
		t.Error("Bool coercion failed")
	}
	if o.Bool("missing", true) != true {
		t.Error("Bool default not honored")
	}
	if o.String("name", "") != "semicolon" || o.String("missing", "dft") != "dft" {
		t.Error("String accessor failed")
	}
	if o.Int("count", 0) != 7 || o.Int("missing", 3) != 3 {
		t.Error("Int accessor failed")
	}
	if o.Float("ratio", 0) != 0.5 {
		t.Error("Float accessor failed")
	}
	if o.Rune("comma", ',') != ';' {
		t.Error("Rune accessor failed")
	}
	if o.Rune("empty", ',') != ',' || o.Rune("missing", '\t') != '\t' {
		t.Error("Rune default not honored")
	}
	hm := o.StringMap("headers")
	if hm["Old"] != "new" {
		t.Errorf("StringMap = %v", hm)
	}
	if _, ok := hm["n"]; ok {
		t.Error("StringMap must skip non-string values")
	}
	if o.StringMap("not_a_map") != nil {
		t.Error("StringMap of a non-map must be nil")
	}
}

func TestDecodeJob(t *testing.T) {
	t.Parallel()

	const body = `{
		"name": "customers-orders",
		"sources": [
			{"path": "testdata/customers.csv"},
			{"name": "orders", "path": "testdata/orders.json", "options": {"has_header": true}}
		],
		"join": {"type": "additive", "key_name": "CustomerID",
			"mappings": {"customers.csv": "CustomerID", "orders": "Cust_Ref_ID"}},
		"output": {"format": "csv", "path": "out.csv"}
	}`

	job, err := DecodeJob(strings.NewReader(body))
	if err != nil {
		t.Fatalf("DecodeJob: %v", err)
	}
	if job.Sources[0].EffectiveName() != "customers.csv" {
		t.Errorf("EffectiveName = %q, want base name fallback", job.Sources[0].EffectiveName())
	}
	if job.Sources[1].EffectiveName() != "orders" {
		t.Errorf("explicit name not honored: %q", job.Sources[1].EffectiveName())
	}
	if iss := Validate(job); HasError(iss) {
		t.Fatalf("valid job reported errors: %v", iss)
	}
}

func TestDecodeJobUnknownField(t *testing.T) {
	t.Parallel()

	_, err := DecodeJob(strings.NewReader(`{"name": "x", "surces": []}`))
	if err == nil {
		t.Fatal("unknown fields must be rejected")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() Job {
		return Job{
			Sources: []Source{
				{Path: "a.csv"},
				{Path: "b.csv"},
			},
			Join:   Join{Type: "inner", KeyName: "id", Mappings: map[string]string{"a.csv": "id", "b.csv": "id"}},
			Output: Output{Format: "csv"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Job)
		wantErr bool
	}{
		{"valid", func(j *Job) {}, false},
		{"one source", func(j *Job) { j.Sources = j.Sources[:1] }, true},
		{"missing path", func(j *Job) { j.Sources[0].Path = "" }, true},
		{"duplicate names", func(j *Job) { j.Sources[1].Path = "a.csv" }, true},
		{"bad join type", func(j *Job) { j.Join.Type = "cross" }, true},
		{"semantic without assist", func(j *Job) { j.Join.Type = "semantic" }, true},
		{"semantic with assist", func(j *Job) {
			j.Join.Type = "semantic"
			j.Assist = &Assist{BaseURL: "https://advisor.local"}
		}, false},
		{"mappings without key name", func(j *Job) { j.Join.KeyName = "" }, true},
		{"negative cap", func(j *Job) { j.Join.PerKeyCap = -1 }, true},
		{"bad output format", func(j *Job) { j.Output.Format = "xlsx" }, true},
		{"storage missing dsn", func(j *Job) { j.Storage = &Storage{Kind: "sqlite"} }, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			job := base()
			tt.mutate(&job)
			if got := HasError(Validate(job)); got != tt.wantErr {
				t.Fatalf("HasError = %v, want %v (issues: %v)", got, tt.wantErr, Validate(job))
			}
		})
	}
}

// An unmapped dataset is the engine's documented degradation: warn, not fail.
func TestValidateUnmappedDatasetWarns(t *testing.T) {
	t.Parallel()

	job := Job{
		Sources: []Source{{Path: "a.csv"}, {Path: "b.csv"}},
		Join:    Join{Type: "left", KeyName: "id", Mappings: map[string]string{"a.csv": "id"}},
	}
	issues := Validate(job)
	if HasError(issues) {
		t.Fatalf("unmapped dataset must not be an error: %v", issues)
	}
	found := false
	for _, iss := range issues {
		if iss.Severity == SeverityWarning && strings.Contains(iss.Message, "b.csv") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a warning naming b.csv, got %v", issues)
	}
}
