package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/martinemde/archivist/pipeline"
	"github.com/martinemde/archivist/unifiedllm"
)

func TestReadRows(t *testing.T) {
	in := "index,text,image\n0,\"Dear Sir,\nI write\",scans/p0.jpg\n1,second page,\n2,third,/abs/p2.png\n"
	rows, err := readRows(strings.NewReader(in), "/data")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Text != "Dear Sir,\nI write" {
		t.Errorf("row 0 text = %q", rows[0].Text)
	}
	if got := rows[0].Images.Images[0].Path; got != filepath.Join("/data", "scans/p0.jpg") {
		t.Errorf("relative image path = %q", got)
	}
	if !rows[1].Images.Empty() {
		t.Error("row 1 has no image")
	}
	if got := rows[2].Images.Images[0].Path; got != "/abs/p2.png" {
		t.Errorf("absolute image path = %q", got)
	}
}

func TestReadRowsWithoutHeader(t *testing.T) {
	rows, err := readRows(strings.NewReader("5,only text\n"), ".")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Index != 5 {
		t.Errorf("unexpected rows %+v", rows)
	}
}

func TestReadRowsErrors(t *testing.T) {
	for _, in := range []string{"abc,text\n", "-1,text\n", "7\n"} {
		if _, err := readRows(strings.NewReader(in), "."); err == nil {
			t.Errorf("expected an error for %q", in)
		}
	}
}

func TestWriteTable(t *testing.T) {
	table := pipeline.Table{
		{Index: 1, Fields: map[string]any{"Location": "Boston"}},
		{Index: 4, Fields: map[string]any{"Location": "Salem", "Date": "1850"}},
	}
	var buf bytes.Buffer
	if err := writeTable(&buf, table); err != nil {
		t.Fatal(err)
	}
	want := "index,Location,Date\n1,Boston,\n4,Salem,1850\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteResults(t *testing.T) {
	results := []unifiedllm.JobResult{
		{RowIndex: 0, Text: "fixed"},
		{RowIndex: 1, Err: &unifiedllm.JobError{RowIndex: 1, Attempts: 3, Cause: errors.New("boom")}},
	}
	var buf bytes.Buffer
	if err := writeResults(&buf, results); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || lines[1] != "0,fixed," || !strings.HasPrefix(lines[2], "1,,row 1 failed") {
		t.Errorf("unexpected output %q", buf.String())
	}
}
