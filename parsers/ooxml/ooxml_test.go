package ooxml

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/mailchannels/docflow/datasource"
	"github.com/mailchannels/docflow/message"
	"github.com/mailchannels/docflow/mimetype"
)

type collector struct {
	got []message.Message
}

func (c *collector) Emit(msg message.Message) (message.Continuation, error) {
	c.got = append(c.got, msg)
	return message.Proceed, nil
}

func buildDocx(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.Write([]byte(`<w:document><w:body><w:p><w:r><w:t>Hello</w:t></w:r></w:p></w:body></w:document>`))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseDOCXExtractsText(t *testing.T) {
	ds := datasource.FromBuffer(buildDocx(t))
	ds.AddMimeHypothesis(mimetype.DOCX, mimetype.Highest)
	c := &collector{}
	p := New()
	if _, err := p.Parse(context.Background(), ds, c, nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var gotText string
	for _, m := range c.got {
		if m.Kind == message.KindText {
			gotText = m.Text
		}
	}
	if gotText != "Hello" {
		t.Fatalf("got text %q, want %q", gotText, "Hello")
	}
}
