// Package config defines the merge job configuration: source files, the join
// section, output, optional storage and advisor settings, plus the loosely
// typed Options bag parsers read their knobs from.
package config

import (
	"encoding/json"
	"strconv"
)

// Options is a free-form option bag decoded from JSON config. Parsers and
// formatters read from it with typed accessors; unknown keys are ignored so
// per-format options can share one shape.
type Options map[string]any

// Bool returns the option as a bool, or def when absent or not coercible.
func (o Options) Bool(key string, def bool) bool {
	v, ok := o[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(t); err == nil {
			return b
		}
	}
	return def
}

// String returns the option as a string, or def when absent.
func (o Options) String(key, def string) string {
	if s, ok := o[key].(string); ok {
		return s
	}
	return def
}

// Int returns the option as an int. JSON numbers arrive as float64 or
// json.Number depending on the decoder; both are accepted.
func (o Options) Int(key string, def int) int {
	v, ok := o[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i)
		}
	case string:
		if i, err := strconv.Atoi(t); err == nil {
			return i
		}
	}
	return def
}

// Float returns the option as a float64, or def.
func (o Options) Float(key string, def float64) float64 {
	v, ok := o[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
	}
	return def
}

// Rune returns the first rune of a string option, or def. Used for CSV
// delimiters ("comma": ";").
func (o Options) Rune(key string, def rune) rune {
	s, ok := o[key].(string)
	if !ok || s == "" {
		return def
	}
	return []rune(s)[0]
}

// StringMap returns a string→string option (e.g. header_map). Non-string
// values are skipped. Returns nil when the option is absent.
func (o Options) StringMap(key string) map[string]string {
	raw, ok := o[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
