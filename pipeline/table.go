package pipeline

import (
	"encoding/json"
	"slices"
	"sort"

	"github.com/martinemde/archivist/unifiedllm"
)

// Row is one dataset row offered to a job.
type Row struct {
	Index  int
	Text   string
	Images unifiedllm.ImagePayload
}

// ResultRow holds the fields extracted for one dataset row.
type ResultRow struct {
	Index  int
	Fields map[string]any
}

// Table is a set of result rows sorted ascending by index with at most one
// row per index.
type Table []ResultRow

// combine deduplicates rows by index, keeping the last one written, and
// sorts the result.
func combine(rows []ResultRow) Table {
	pos := make(map[int]int, len(rows))
	out := make(Table, 0, len(rows))
	for _, row := range rows {
		if i, ok := pos[row.Index]; ok {
			out[i] = row
			continue
		}
		pos[row.Index] = len(out)
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Columns returns the union of field names in first-seen order, sorting
// the names that first appear in the same row.
func (t Table) Columns() []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range t {
		var fresh []string
		for name := range row.Fields {
			if !seen[name] {
				seen[name] = true
				fresh = append(fresh, name)
			}
		}
		slices.Sort(fresh)
		cols = append(cols, fresh...)
	}
	return cols
}

// Lookup returns the row for index.
func (t Table) Lookup(index int) (ResultRow, bool) {
	i, ok := sort.Find(len(t), func(i int) int { return index - t[i].Index })
	if !ok {
		return ResultRow{}, false
	}
	return t[i], true
}

// FormatValue renders a decoded field value as plain text.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
