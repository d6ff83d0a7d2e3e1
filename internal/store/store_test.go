package store

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"datamerge/internal/dataset"
	"datamerge/internal/join"
)

func TestNewRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("empty kind must error")
	}
	_, err := New(context.Background(), Config{Kind: "no-such-backend"})
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("unknown kind error = %v", err)
	}
}

func TestRegisterPanics(t *testing.T) {
	mustPanic := func(name string, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Errorf("%s: expected panic", name)
			}
		}()
		fn()
	}

	nop := func(context.Context, Config) (Repository, error) { return nil, nil }

	mustPanic("empty kind", func() { Register("", nop) })
	mustPanic("nil factory", func() { Register("test-nil", nil) })

	Register("test-dup", nop)
	mustPanic("duplicate", func() { Register("test-dup", nop) })
}

func TestNewRunStampsIdentity(t *testing.T) {
	t.Parallel()

	a := NewRun("job", join.Inner, "Customer ID", []string{"a.csv", "b.csv"})
	b := NewRun("job", join.Inner, "Customer ID", []string{"a.csv", "b.csv"})

	if a.ID == "" || b.ID == "" || a.ID == b.ID {
		t.Fatalf("run IDs must be unique and non-empty: %q %q", a.ID, b.ID)
	}
	if a.StartedAt.IsZero() {
		t.Fatal("StartedAt not stamped")
	}
	if a.JoinType != join.Inner || a.KeyName != "Customer ID" {
		t.Fatalf("run = %+v", a)
	}
}

func TestStringsRoundTrip(t *testing.T) {
	t.Parallel()

	in := []string{"customers.csv", "orders.json"}
	enc, err := EncodeStrings(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeStrings(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip: %v != %v", out, in)
	}

	enc, err = EncodeStrings(nil)
	if err != nil {
		t.Fatalf("encode nil: %v", err)
	}
	if enc != "[]" {
		t.Fatalf("nil encodes as %q", enc)
	}
	if out, err := DecodeStrings(enc); err != nil || out != nil {
		t.Fatalf("empty decode = %v, %v", out, err)
	}
}

// Persisted rows must come back with the same cell types they were stored
// with: JSON turns int64 into a number, DecodeRows must turn it back.
func TestRowsRoundTrip(t *testing.T) {
	t.Parallel()

	in := []dataset.Row{
		{"id": "1", "name": "Alice", "total": int64(10), "score": 1.5, "active": true},
		{"id": "2"},
	}
	enc, err := EncodeRows(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeRows(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip:\nin:  %v\nout: %v", in, out)
	}

	if out, err := DecodeRows(""); err != nil || out != nil {
		t.Fatalf("empty decode = %v, %v", out, err)
	}
}

func TestStatsRoundTrip(t *testing.T) {
	t.Parallel()

	in := join.Stats{join.Inner: 5, join.Left: 7, join.Outer: 8, join.Additive: 8}
	enc, err := EncodeStats(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeStats(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip: %v != %v", out, in)
	}
}
