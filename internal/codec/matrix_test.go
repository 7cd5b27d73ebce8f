package codec

import (
	"strings"
	"testing"
)

func TestParseMatrixFile_S3(t *testing.T) {
	input := "rolename|permissions|description\n" +
		"editor|text[rwx],route[rw-],content[r--]|editor desc\n"

	header, records, err := ParseMatrixFile(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseMatrixFile failed: %v", err)
	}
	if len(header) != 3 {
		t.Fatalf("expected 3 header columns, got %d", len(header))
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	rec := records[0]
	if rec.Description != "editor desc" {
		t.Errorf("expected description 'editor desc', got %q", rec.Description)
	}

	rolename, ok := rec.Get("rolename")
	if !ok || rolename.Single != "editor" {
		t.Errorf("expected rolename 'editor', got %+v", rolename)
	}

	perms, ok := rec.Get("permissions")
	if !ok || perms.Kind != KindModifiedList {
		t.Fatalf("expected permissions to be a ModifiedList, got %+v", perms)
	}
	if len(perms.ModifiedList) != 3 {
		t.Fatalf("expected 3 permission entries, got %d", len(perms.ModifiedList))
	}
}

func TestMatrixFile_RoundTrip(t *testing.T) {
	header := []string{"term_id", "vocabulary", "properties", "description"}
	records := []MatrixRecord{
		{
			Order: []string{"term_id", "vocabulary", "properties"},
			Fields: map[string]MatrixValue{
				"term_id":    Single("tech"),
				"vocabulary": Single("topics"),
				"properties": ModifiedListValue(
					ModifiedItem{Name: "weight", Mods: []string{"10"}},
					ModifiedItem{Name: "enabled", Mods: []string{"true"}},
				),
			},
			Description: "technology topics",
		},
	}

	data := EmitMatrixFile(header, records)
	gotHeader, gotRecords, err := ParseMatrixFile(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}
	if len(gotHeader) != len(header) {
		t.Fatalf("header mismatch: got %v, want %v", gotHeader, header)
	}
	if len(gotRecords) != 1 {
		t.Fatalf("expected 1 record, got %d", len(gotRecords))
	}
	if gotRecords[0].Description != records[0].Description {
		t.Errorf("description mismatch: got %q, want %q", gotRecords[0].Description, records[0].Description)
	}
	for name, want := range records[0].Fields {
		got, ok := gotRecords[0].Get(name)
		if !ok {
			t.Fatalf("field %s missing after round-trip", name)
		}
		if !got.Equal(want) {
			t.Errorf("field %s: got %+v, want %+v", name, got, want)
		}
	}
}

func TestParseMatrixFile_SkipsCommentsAndBlankLines(t *testing.T) {
	input := "# a comment\n\nterm_id|vocabulary|description\n\n# another\ntech|topics|\n"
	_, records, err := ParseMatrixFile(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseMatrixFile failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}
