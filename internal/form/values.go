package form

import (
	"fmt"
	"strings"
)

// Values is a submitted value tree as decoded from JSON: strings, numbers,
// booleans, []any and nested map[string]any.
type Values map[string]any

// String returns the trimmed string at key. Numbers and booleans are formatted.
func (v Values) String(key string) string {
	switch raw := v[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(raw)
	default:
		return strings.TrimSpace(fmt.Sprint(raw))
	}
}

// Strings returns the non-empty trimmed strings at key. A single string is
// split on newlines and commas so textarea input and list input read alike.
func (v Values) Strings(key string) []string {
	return v.list(key, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})
}

// Lines is Strings for values that may contain commas themselves: a single
// string is split on newlines only.
func (v Values) Lines(key string) []string {
	return v.list(key, func(r rune) bool {
		return r == '\n' || r == '\r'
	})
}

func (v Values) list(key string, sep func(rune) bool) []string {
	var parts []string
	switch raw := v[key].(type) {
	case nil:
		return nil
	case string:
		parts = strings.FieldsFunc(raw, sep)
	case []string:
		parts = raw
	case []any:
		parts = make([]string, 0, len(raw))
		for _, item := range raw {
			if item == nil {
				continue
			}
			parts = append(parts, fmt.Sprint(item))
		}
	case map[string]any:
		// Checkboxes may submit {"option": "option", "other": 0}; keep the checked ones.
		for key, item := range raw {
			if s, ok := item.(string); ok && s != "" && s != "0" {
				parts = append(parts, key)
			}
		}
	default:
		parts = []string{fmt.Sprint(raw)}
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Map returns the nested value tree at key, or an empty tree.
func (v Values) Map(key string) Values {
	switch raw := v[key].(type) {
	case map[string]any:
		return Values(raw)
	case Values:
		return raw
	}
	return Values{}
}
