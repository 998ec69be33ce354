package mimescan

import (
	"strings"
	"testing"
)

const multipartMessage = "Subject: test\r\n" +
	"Content-Type: multipart/mixed; boundary=BOUNDARY\r\n" +
	"\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"hello world\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"report.pdf\"\r\n" +
	"\r\n" +
	"%PDF-1.4 fake body\r\n" +
	"--BOUNDARY--\r\n"

func TestScanFlattensContainerAndLeaves(t *testing.T) {
	parts, err := New().Scan([]byte(multipartMessage))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts (container + 2 leaves), got %d", len(parts))
	}

	root := parts[0]
	if root.ContentType == nil || root.ContentType.Type != "multipart/mixed" {
		t.Fatalf("root content type = %+v", root.ContentType)
	}
	if root.Body != nil {
		t.Fatal("multipart container should not carry body bytes")
	}

	text := parts[1]
	if text.ContentType == nil || text.ContentType.Type != "text/plain" {
		t.Fatalf("text part content type = %+v", text.ContentType)
	}
	if text.Charset != "utf-8" {
		t.Fatalf("expected utf-8 charset, got %q", text.Charset)
	}
	if !strings.Contains(string(text.Body), "hello world") {
		t.Fatalf("text body = %q", text.Body)
	}

	attachment := parts[2]
	if attachment.DispositionFileName != "report.pdf" {
		t.Fatalf("expected filename report.pdf, got %q", attachment.DispositionFileName)
	}
	if attachment.ContentDisposition != "attachment" {
		t.Fatalf("expected disposition attachment, got %q", attachment.ContentDisposition)
	}
	if !strings.Contains(string(attachment.Body), "%PDF-1.4") {
		t.Fatalf("attachment body = %q", attachment.Body)
	}
}

func TestScanSinglePartMessage(t *testing.T) {
	raw := "Subject: test\r\nContent-Type: text/plain\r\n\r\nplain body\r\n"
	parts, err := New().Scan([]byte(raw))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(parts) != 1 {
		t.Fatalf("expected a single part, got %d", len(parts))
	}
	if !strings.Contains(string(parts[0].Body), "plain body") {
		t.Fatalf("body = %q", parts[0].Body)
	}
}

func TestContentTypeStringSplitsOnMainType(t *testing.T) {
	ct := &ContentType{Type: "text/html", Params: map[string]string{"charset": "iso-8859-1"}}
	full := ct.String()
	if !strings.HasPrefix(full, "text/html") {
		t.Fatalf("String() = %q", full)
	}
}
