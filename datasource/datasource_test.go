package datasource

import (
	"bytes"
	"io"
	"testing"

	"github.com/mailchannels/docflow/mimetype"
)

func TestFromBufferSpan(t *testing.T) {
	ds := FromBuffer([]byte("hello world"))
	got, err := ds.Span(6, 5)
	if err != nil {
		t.Fatalf("Span: %v", err)
	}
	if string(got) != "world" {
		t.Fatalf("got %q, want %q", got, "world")
	}
}

func TestFromSpanWindow(t *testing.T) {
	parent := []byte("0123456789")
	ds := FromSpan(parent, 2, 4)
	s, err := ds.Stream()
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	got, _ := io.ReadAll(s)
	if string(got) != "2345" {
		t.Fatalf("got %q, want %q", got, "2345")
	}
}

func TestUnseekableStreamMaterializesOnce(t *testing.T) {
	src := bytes.NewReader([]byte("the quick brown fox"))
	ds := FromUnseekableStream(src)

	first, err := ds.Span(4, 5)
	if err != nil {
		t.Fatalf("first Span: %v", err)
	}
	if string(first) != "quick" {
		t.Fatalf("got %q, want %q", first, "quick")
	}

	// Second read overlapping the first must be served from the cache,
	// not a re-read of the now-advanced underlying reader.
	second, err := ds.Span(0, 9)
	if err != nil {
		t.Fatalf("second Span: %v", err)
	}
	if string(second) != "the quick" {
		t.Fatalf("got %q, want %q", second, "the quick")
	}
}

func TestStringMaxBytes(t *testing.T) {
	ds := FromBuffer([]byte("abcdefghij"))
	s, err := ds.String(4)
	if err != nil {
		t.Fatalf("String: %v", err)
	}
	if s != "abcd" {
		t.Fatalf("got %q, want %q", s, "abcd")
	}
}

func TestFileExtension(t *testing.T) {
	ds := FromPath("/tmp/report.DOCX")
	ext, ok := ds.FileExtension()
	if !ok || ext != "docx" {
		t.Fatalf("got (%q, %v), want (\"docx\", true)", ext, ok)
	}
}

func TestMimeHypothesesAndEncryption(t *testing.T) {
	ds := FromBuffer([]byte("PK\x03\x04"))
	ds.AddMimeHypothesis(mimetype.Zip, mimetype.Medium)
	ds.AddMimeHypothesis(mimetype.XLSX, mimetype.High)

	top, conf, ok := ds.HighestMimeTypeConfidence()
	if !ok || top != mimetype.XLSX || conf != mimetype.High {
		t.Fatalf("got (%v, %v, %v), want (%v, %v, true)", top, conf, ok, mimetype.XLSX, mimetype.High)
	}

	if !ds.HasHighestConfidenceMimeTypeIn(mimetype.NewSet(mimetype.XLSX, mimetype.XLS)) {
		t.Fatalf("expected XLSX to be in set")
	}

	if err := ds.AssertNotEncrypted(); err != nil {
		t.Fatalf("expected no encryption error, got %v", err)
	}

	ds.AddMimeHypothesis("application/vnd.ms-excel.sheet.encrypted", mimetype.VeryHigh)
	if err := ds.AssertNotEncrypted(); err == nil {
		t.Fatal("expected encryption error")
	}
}

func TestIDsAreUnique(t *testing.T) {
	a := FromBuffer([]byte("a"))
	b := FromBuffer([]byte("b"))
	if a.ID() == b.ID() {
		t.Fatal("expected distinct process-unique ids")
	}
}
