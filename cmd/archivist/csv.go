package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/martinemde/archivist/pipeline"
	"github.com/martinemde/archivist/unifiedllm"
)

// readRows parses a dataset of index,text[,image] records. A header row is
// skipped when its first cell is "index". Relative image paths are resolved
// against baseDir.
func readRows(r io.Reader, baseDir string) ([]pipeline.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var rows []pipeline.Row
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "index") {
			continue
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("line %d: expected index,text[,image]", line)
		}
		idx, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("line %d: invalid row index %q", line, rec[0])
		}

		row := pipeline.Row{Index: idx, Text: rec[1], Images: unifiedllm.NoImages()}
		if len(rec) > 2 && strings.TrimSpace(rec[2]) != "" {
			path := strings.TrimSpace(rec[2])
			if !filepath.IsAbs(path) {
				path = filepath.Join(baseDir, path)
			}
			row.Images = unifiedllm.SingleImage(unifiedllm.NewImage(path, ""))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readRowsFile(path string) ([]pipeline.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readRows(f, filepath.Dir(path))
}

// writeTable writes one record per result row with a column per field.
func writeTable(w io.Writer, table pipeline.Table) error {
	cols := table.Columns()
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"index"}, cols...)); err != nil {
		return err
	}
	for _, row := range table {
		rec := make([]string, 0, len(cols)+1)
		rec = append(rec, strconv.Itoa(row.Index))
		for _, col := range cols {
			rec = append(rec, pipeline.FormatValue(row.Fields[col]))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeResults writes the outcome of single-row jobs. Failed rows keep an
// empty result and report the error.
func writeResults(w io.Writer, results []unifiedllm.JobResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"index", "result", "error"}); err != nil {
		return err
	}
	for _, res := range results {
		errText := ""
		if res.Err != nil {
			errText = res.Err.Error()
		}
		if err := cw.Write([]string{strconv.Itoa(res.RowIndex), res.Text, errText}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// openOutput returns stdout for "" or "-", otherwise a new file.
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
