package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Job is the top-level merge job config, decoded from a JSON file.
type Job struct {
	Name    string   `json:"name"`
	Sources []Source `json:"sources"`
	Join    Join     `json:"join"`
	Output  Output   `json:"output"`
	Storage *Storage `json:"storage,omitempty"`
	Assist  *Assist  `json:"assist,omitempty"`
}

// Source names one uploaded tabular file. Format is inferred from the path
// extension when empty.
type Source struct {
	Name    string  `json:"name,omitempty"` // defaults to the file base name
	Path    string  `json:"path"`
	Format  string  `json:"format,omitempty"` // csv | json | html | parquet
	Options Options `json:"options,omitempty"`
}

// EffectiveName is the dataset name this source contributes under: the
// configured name, or the file base name when unset.
func (s Source) EffectiveName() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Path == "" {
		return ""
	}
	return filepath.Base(s.Path)
}

// Join selects the join semantics and the key mapping. When Mappings is
// empty the candidate comes from the advisor (or the local heuristic when no
// advisor is configured).
type Join struct {
	Type      string            `json:"type"`
	KeyName   string            `json:"key_name,omitempty"`
	Mappings  map[string]string `json:"mappings,omitempty"` // dataset name -> column name
	PerKeyCap int               `json:"per_key_cap,omitempty"`
}

// Output controls where and how the merged result is written.
type Output struct {
	Format      string `json:"format,omitempty"` // csv | jsonl (default csv)
	Path        string `json:"path,omitempty"`   // empty means stdout
	PreviewRows int    `json:"preview_rows,omitempty"`
}

// Storage optionally persists datasets and the join run.
type Storage struct {
	Kind string `json:"kind"` // sqlite | postgres | mssql
	DSN  string `json:"dsn"`
}

// Assist configures the external reasoning service.
type Assist struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model,omitempty"`
	// APIKeyEnv names the environment variable holding the key; the key
	// itself never lives in config files.
	APIKeyEnv string `json:"api_key_env,omitempty"`
}

// LoadJob reads and decodes a job config file.
func LoadJob(path string) (Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return Job{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return DecodeJob(f)
}

// DecodeJob decodes a job config from r. Unknown fields are rejected so
// typos in config files fail loudly instead of silently doing nothing.
func DecodeJob(r io.Reader) (Job, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var job Job
	if err := dec.Decode(&job); err != nil {
		return Job{}, fmt.Errorf("decode config: %w", err)
	}
	return job, nil
}
