package config

import "fmt"

// Severity grades a validation issue.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Issue is one validation finding, addressed by a dotted config path.
type Issue struct {
	Severity string
	Path     string
	Message  string
}

var validJoinTypes = map[string]bool{
	"inner": true, "left": true, "outer": true, "additive": true, "semantic": true,
}

var validFormats = map[string]bool{
	"": true, "csv": true, "json": true, "html": true, "parquet": true,
}

var validOutputFormats = map[string]bool{
	"": true, "csv": true, "jsonl": true,
}

// Validate checks a job config and returns all findings, errors and warnings
// alike. An empty result means the job is runnable as-is.
//
// Degradations the engine handles on its own (a dataset with no key mapping,
// for instance) are warnings, not errors.
func Validate(job Job) []Issue {
	var issues []Issue
	errf := func(path, format string, args ...any) {
		issues = append(issues, Issue{SeverityError, path, fmt.Sprintf(format, args...)})
	}
	warnf := func(path, format string, args ...any) {
		issues = append(issues, Issue{SeverityWarning, path, fmt.Sprintf(format, args...)})
	}

	if len(job.Sources) < 2 {
		errf("sources", "need at least two sources to join, got %d", len(job.Sources))
	}

	seen := map[string]bool{}
	for i, src := range job.Sources {
		path := fmt.Sprintf("sources[%d]", i)
		if src.Path == "" {
			errf(path+".path", "path is required")
		}
		name := src.EffectiveName()
		if name == "" {
			errf(path+".name", "source has neither name nor path to derive one from")
		} else if seen[name] {
			errf(path+".name", "duplicate source name %q", name)
		}
		seen[name] = true
		if !validFormats[src.Format] {
			errf(path+".format", "unknown format %q", src.Format)
		}
	}

	if !validJoinTypes[job.Join.Type] {
		errf("join.type", "unknown join type %q", job.Join.Type)
	}
	if job.Join.Type == "semantic" && job.Assist == nil {
		errf("join.type", "semantic join requires an assist section")
	}
	if len(job.Join.Mappings) > 0 {
		if job.Join.KeyName == "" {
			errf("join.key_name", "key_name is required when mappings are given")
		}
		for ds := range job.Join.Mappings {
			if !seen[ds] {
				warnf("join.mappings", "mapping references unknown dataset %q", ds)
			}
		}
		for name := range seen {
			if _, ok := job.Join.Mappings[name]; !ok && name != "" {
				warnf("join.mappings", "dataset %q has no key mapping and will never match", name)
			}
		}
	}
	if job.Join.PerKeyCap < 0 {
		errf("join.per_key_cap", "per_key_cap must be >= 0")
	}

	if !validOutputFormats[job.Output.Format] {
		errf("output.format", "unknown output format %q", job.Output.Format)
	}

	if job.Storage != nil {
		if job.Storage.Kind == "" {
			errf("storage.kind", "kind is required")
		}
		if job.Storage.DSN == "" {
			errf("storage.dsn", "dsn is required")
		}
	}
	if job.Assist != nil && job.Assist.BaseURL == "" {
		errf("assist.base_url", "base_url is required")
	}

	return issues
}

// HasError reports whether any issue is severity error.
func HasError(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
