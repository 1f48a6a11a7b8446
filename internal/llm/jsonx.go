package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSON recovers a JSON value from an LLM reply through tiered
// extraction: strict parse, then the first fenced code block, then the
// widest bracket span. Returns (nil, false) when every tier fails.
func ExtractJSON(raw string) (any, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}

	if v, ok := tryParse(raw); ok {
		return v, true
	}

	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		if v, ok := tryParse(strings.TrimSpace(m[1])); ok {
			return v, true
		}
	}

	for _, pair := range [][2]byte{{'[', ']'}, {'{', '}'}} {
		start := strings.IndexByte(raw, pair[0])
		end := strings.LastIndexByte(raw, pair[1])
		if start >= 0 && end > start {
			if v, ok := tryParse(raw[start : end+1]); ok {
				return v, true
			}
		}
	}

	return nil, false
}

func tryParse(s string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

// StringArray coerces an extracted JSON value into a slice of non-empty
// strings. Returns (nil, false) if the value is not an array of strings or
// the array is empty after trimming.
func StringArray(v any) ([]string, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}
