package odf

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

func buildOdt(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("content.xml")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.Write([]byte(`<office:document-content><office:body><office:text><text:p>Hi there</text:p></office:text></office:body></office:document-content>`))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseODTExtractsParagraph(t *testing.T) {
	ds := datasource.FromBuffer(buildOdt(t))
	ds.AddMimeHypothesis(mimetype.ODT, mimetype.Highest)
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
	if gotText != "Hi there" {
		t.Fatalf("got text %q, want %q", gotText, "Hi there")
	}
}
