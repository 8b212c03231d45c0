package unifiedllm

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Validate decides whether a raw response is usable and returns its payload.
//
// Without a marker the whole text is the payload. With a marker, the payload
// is everything after its first occurrence and a missing marker fails. For
// the metadata classification every required field must appear as a
// "<Name>:" heading at the start of a line of the payload and at least one
// heading must be followed by non-blank content.
func Validate(text, marker, classification string, requiredFields []string) (string, error) {
	payload := text
	if marker != "" {
		idx := strings.Index(text, marker)
		if idx < 0 {
			return "", validationErrorf(nil, "marker %q not found", marker)
		}
		payload = text[idx+len(marker):]
	}
	if strings.TrimSpace(payload) == "" {
		return "", validationErrorf(nil, "empty payload")
	}

	if classification == ClassificationMetadata && len(requiredFields) > 0 {
		if err := validateHeadings(payload, requiredFields); err != nil {
			return "", err
		}
	}
	return strings.TrimSpace(payload), nil
}

type heading struct {
	name  string
	start int // offset of the heading
	body  int // offset just past the colon
}

func validateHeadings(payload string, fields []string) error {
	var found []heading
	var missing []string
	for _, name := range fields {
		loc := headingPattern(name).FindStringIndex(payload)
		if loc == nil {
			missing = append(missing, name)
			continue
		}
		found = append(found, heading{name: name, start: loc[0], body: loc[1]})
	}
	if len(missing) > 0 {
		return validationErrorf(missing, "missing headings %s", strings.Join(missing, ", "))
	}

	sort.Slice(found, func(i, j int) bool { return found[i].start < found[j].start })
	for i, h := range found {
		end := len(payload)
		if i+1 < len(found) {
			end = found[i+1].start
		}
		if end > h.body && strings.TrimSpace(payload[h.body:end]) != "" {
			return nil
		}
	}
	return validationErrorf(nil, "all headings are blank")
}

// headingPattern matches "Name:" opening a line, allowing leading blanks and
// markdown emphasis or list markers around the name, as in "**Date:**".
func headingPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^[ \t]*(?:[-*>#]+[ \t]*)?[*_]*` + regexp.QuoteMeta(name) + `[*_]*[ \t]*:[*_]*`)
}

func validationErrorf(missing []string, format string, args ...any) error {
	return &ValidationError{
		SDKError: SDKError{Message: fmt.Sprintf(format, args...)},
		Missing:  missing,
	}
}
