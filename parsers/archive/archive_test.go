package archive

import (
	"archive/tar"
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

func buildZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("notes/hello.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte("hi")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseZipEmitsFile(t *testing.T) {
	ds := datasource.FromBuffer(buildZip(t))
	ds.AddMimeHypothesis(mimetype.Zip, mimetype.Medium)
	c := &collector{}
	p := New()
	if _, err := p.Parse(context.Background(), ds, c, nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var found bool
	for _, m := range c.got {
		if m.Kind == message.KindFile && m.File.HasName && m.File.Name == "hello.txt" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a File message named hello.txt, got %v", c.got)
	}
}

func buildTar(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	content := []byte("hi")
	if err := tw.WriteHeader(&tar.Header{Name: "hello.txt", Size: int64(len(content)), Typeflag: tar.TypeReg}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseTarEmitsFile(t *testing.T) {
	ds := datasource.FromBuffer(buildTar(t))
	ds.AddMimeHypothesis(mimetype.Tar, mimetype.Medium)
	c := &collector{}
	p := New()
	if _, err := p.Parse(context.Background(), ds, c, nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var found bool
	for _, m := range c.got {
		if m.Kind == message.KindFile && m.File.HasName && m.File.Name == "hello.txt" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a File message named hello.txt, got %v", c.got)
	}
}
