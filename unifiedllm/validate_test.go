package unifiedllm

import (
	"errors"
	"reflect"
	"testing"
)

func TestValidate(t *testing.T) {
	fields := []string{"Date", "Place", "Author"}

	tests := []struct {
		name           string
		text           string
		marker         string
		classification string
		fields         []string
		want           string
		wantErr        bool
	}{
		{name: "plain text", text: "  the page  ", want: "the page"},
		{name: "blank text", text: " \n\t", wantErr: true},
		{name: "empty text", text: "", wantErr: true},
		{name: "marker present", text: "Notes. TRANSCRIPTION: body", marker: "TRANSCRIPTION:", want: "body"},
		{name: "first marker wins", text: "A: one A: two", marker: "A:", want: "one A: two"},
		{name: "marker missing", text: "body", marker: "TRANSCRIPTION:", wantErr: true},
		{name: "marker with blank payload", text: "TRANSCRIPTION:   ", marker: "TRANSCRIPTION:", wantErr: true},
		{
			name:           "metadata complete",
			text:           "Date: 1850\nPlace:\nAuthor:",
			classification: ClassificationMetadata,
			fields:         fields,
			want:           "Date: 1850\nPlace:\nAuthor:",
		},
		{
			name:           "metadata missing heading",
			text:           "Date: 1850\nPlace: Boston",
			classification: ClassificationMetadata,
			fields:         fields,
			wantErr:        true,
		},
		{
			name:           "metadata all blank",
			text:           "Date:\nPlace:  \nAuthor:",
			classification: ClassificationMetadata,
			fields:         fields,
			wantErr:        true,
		},
		{
			name:           "heading must open a line",
			text:           "End Date: 1850\nPlace: Boston\nAuthor: Smith",
			classification: ClassificationMetadata,
			fields:         fields,
			wantErr:        true,
		},
		{
			name:           "heading inside a word",
			text:           "UpdateDate: 1850\nPlace: Boston\nAuthor: Smith",
			classification: ClassificationMetadata,
			fields:         fields,
			wantErr:        true,
		},
		{
			name:           "markdown headings",
			text:           "**Date:** 1850\n  - Place: Boston\n__Author__: Smith",
			classification: ClassificationMetadata,
			fields:         fields,
			want:           "**Date:** 1850\n  - Place: Boston\n__Author__: Smith",
		},
		{
			name:           "headings ignored outside metadata",
			text:           "Date: 1850",
			classification: ClassificationAnalysis,
			fields:         fields,
			want:           "Date: 1850",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(tt.text, tt.marker, tt.classification, tt.fields)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got payload %q", got)
				}
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected ValidationError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("payload = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateReportsMissingHeadings(t *testing.T) {
	_, err := Validate("Place: Boston", "", ClassificationMetadata, []string{"Date", "Place", "Author"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if want := []string{"Date", "Author"}; !reflect.DeepEqual(ve.Missing, want) {
		t.Errorf("Missing = %v, want %v", ve.Missing, want)
	}
	if !IsRetryable(err) {
		t.Error("validation failures are retryable")
	}
}

func TestValidateMetadataAfterMarker(t *testing.T) {
	_, err := Validate("Metadata:\nEnd Date: 1850\nSummary:", "Metadata:", ClassificationMetadata, []string{"Date", "Summary"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if want := []string{"Date"}; !reflect.DeepEqual(ve.Missing, want) {
		t.Errorf("Missing = %v, want %v", ve.Missing, want)
	}

	got, err := Validate("Metadata:\nDate: 1850\nSummary:", "Metadata:", ClassificationMetadata, []string{"Date", "Summary"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Date: 1850\nSummary:" {
		t.Errorf("payload = %q", got)
	}
}
