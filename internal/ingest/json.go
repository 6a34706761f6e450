package ingest

import (
	"fmt"
	"strings"
	"time"
)

// Helpers for probing loosely typed JSON payloads decoded into
// map[string]any.

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asMapList(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []map[string]any
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// asFloat accepts the numeric types a JSON decode or a literal test fixture
// can produce.
func asFloat(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case float32:
		f := float64(n)
		return &f
	case int:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	}
	return nil
}

// numField returns the first key in order whose value is numeric.
func numField(m map[string]any, keys ...string) *float64 {
	for _, key := range keys {
		if v := asFloat(m[key]); v != nil {
			return v
		}
	}
	return nil
}

func asStringList(v any) []string {
	switch s := v.(type) {
	case string:
		return []string{s}
	case []any:
		var out []string
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	case []string:
		return s
	}
	return nil
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		// JSON integers decode as float64; render them without a fraction.
		if s == float64(int64(s)) {
			return fmt.Sprintf("%d", int64(s))
		}
		return fmt.Sprintf("%g", s)
	default:
		return fmt.Sprintf("%v", v)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// parseISO8601 accepts the timestamp shapes cameras emit: RFC 3339 with a
// trailing Z or offset, or a bare local timestamp with no zone.
func parseISO8601(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseTimeField returns the first key in order that parses as a timestamp.
func parseTimeField(m map[string]any, keys ...string) *time.Time {
	for _, key := range keys {
		s, ok := m[key].(string)
		if !ok {
			continue
		}
		if t, ok := parseISO8601(s); ok {
			return &t
		}
	}
	return nil
}
