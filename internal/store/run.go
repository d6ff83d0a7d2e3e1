package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"datamerge/internal/join"
)

// Run is one completed merge execution.
type Run struct {
	// ID is a UUID assigned at run start.
	ID string
	// Job is the job name from config.
	Job string
	// JoinType is the join type that ran.
	JoinType join.Type
	// KeyName is the logical key the datasets joined on.
	KeyName string
	// Datasets are the input dataset names, in join order.
	Datasets []string
	// Stats holds the pre-merge estimates for every join type.
	Stats join.Stats
	// RowCount is the number of records actually produced.
	RowCount int
	// Truncated is the number of records dropped by the per-key cap.
	Truncated int
	// OutputPath is where the result was written, if anywhere.
	OutputPath string
	// StartedAt is the run start, UTC.
	StartedAt time.Time
	// Duration is the end-to-end run time.
	Duration time.Duration
}

// NewRun stamps a fresh run with an ID and start time.
func NewRun(job string, jt join.Type, keyName string, datasets []string) Run {
	return Run{
		ID:        uuid.NewString(),
		Job:       job,
		JoinType:  jt,
		KeyName:   keyName,
		Datasets:  datasets,
		StartedAt: time.Now().UTC(),
	}
}

// Backends store Datasets and Stats as JSON text so the schema stays flat
// across engines. These helpers keep the encoding uniform.

// EncodeStrings marshals a string slice for a text column. nil encodes as
// an empty array.
func EncodeStrings(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("store: encode strings: %w", err)
	}
	return string(b), nil
}

// DecodeStrings reverses EncodeStrings. Empty input decodes as nil.
func DecodeStrings(s string) ([]string, error) {
	if s == "" || s == "[]" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("store: decode strings: %w", err)
	}
	return out, nil
}

// EncodeStats marshals join stats for a text column.
func EncodeStats(s join.Stats) (string, error) {
	if s == nil {
		s = join.Stats{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("store: encode stats: %w", err)
	}
	return string(b), nil
}

// DecodeStats reverses EncodeStats. Empty input decodes as nil.
func DecodeStats(s string) (join.Stats, error) {
	if s == "" || s == "{}" {
		return nil, nil
	}
	var out join.Stats
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("store: decode stats: %w", err)
	}
	return out, nil
}
