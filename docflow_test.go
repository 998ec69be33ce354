package docflow

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseReaderExportsPlainText(t *testing.T) {
	p := New(nil)
	var buf bytes.Buffer
	_, err := p.ParseReader(strings.NewReader("hello\nworld\n"), "note.txt").ExportAs("txt", &buf)
	if err != nil {
		t.Fatalf("ExportAs: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected non-empty plain text output")
	}
}

func TestExportAsRejectsUnknownFormat(t *testing.T) {
	p := New(nil)
	var buf bytes.Buffer
	_, err := p.ParseReader(strings.NewReader("hi"), "note.txt").ExportAs("bogus", &buf)
	if err == nil {
		t.Fatal("expected an error for an unknown export format")
	}
}
