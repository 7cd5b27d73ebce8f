package codec

import (
	"strings"
	"testing"
)

func TestParseScalarFile_S1(t *testing.T) {
	input := `# text.csv
key|value|description
page.title@en|Welcome|
page.title@en@dev|Welcome [DEV]|
`
	records, err := ParseScalarFile(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseScalarFile failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Key != "page.title@en" || records[0].Value != "Welcome" {
		t.Errorf("unexpected record 0: %+v", records[0])
	}
	if records[1].Key != "page.title@en@dev" || records[1].Value != "Welcome [DEV]" {
		t.Errorf("unexpected record 1: %+v", records[1])
	}
}

func TestParseScalarFile_WrongArity(t *testing.T) {
	input := "key|value|description\nonly.two|fields\n"
	_, err := ParseScalarFile(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected parse error for wrong field count")
	}
}

func TestParseScalarFile_EscapedPipe(t *testing.T) {
	input := `key|value|description
a.b|left\|right|has a pipe
`
	records, err := ParseScalarFile(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseScalarFile failed: %v", err)
	}
	if records[0].Value != "left|right" {
		t.Errorf("expected unescaped value 'left|right', got %q", records[0].Value)
	}
}

func TestScalarFile_RoundTrip(t *testing.T) {
	records := []ScalarRecord{
		{Key: "a.b", Value: "v", Description: ""},
		{Key: "c.d", Value: "has|pipe", Description: "desc with, comma"},
	}
	data := EmitScalarFile(records)
	reparsed, err := ParseScalarFile(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}
	if len(reparsed) != len(records) {
		t.Fatalf("expected %d records, got %d", len(records), len(reparsed))
	}
	for i := range records {
		if reparsed[i] != records[i] {
			t.Errorf("record %d: got %+v, want %+v", i, reparsed[i], records[i])
		}
	}
}
