// Package extract recovers structured data from free-text model output and
// resolves the row indices each decoded item refers to.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fencePattern = regexp.MustCompile("^```[\\w.+-]*[ \\t]*\\r?\\n?([\\s\\S]*?)\\s*```$")
	spanPattern  = regexp.MustCompile(`(\{[\s\S]*\}|\[[\s\S]*\])`)
)

// Raw returns the JSON text recovered from s. It tries, in order: the
// trimmed text itself, the body of a fenced block spanning the whole text,
// and the widest bracketed span. The first candidate that parses wins.
func Raw(s string) (string, bool) {
	for _, candidate := range candidates(s) {
		if json.Valid([]byte(candidate)) {
			return candidate, true
		}
	}
	return "", false
}

func candidates(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	out := []string{s}
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		out = append(out, strings.TrimSpace(m[1]))
	}
	if m := spanPattern.FindString(s); m != "" {
		out = append(out, m)
	}
	return out
}

// Extract decodes the JSON value embedded in s. It never fails loudly: when
// nothing parses it returns nil and false.
func Extract(s string) (any, bool) {
	raw, ok := Raw(s)
	if !ok {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, false
	}
	return v, true
}
