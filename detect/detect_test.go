package detect

import (
	"testing"

	"github.com/mailchannels/docflow/datasource"
	"github.com/mailchannels/docflow/mimetype"
)

func TestRunDetectsPDFBySignature(t *testing.T) {
	ds := datasource.FromBuffer([]byte("%PDF-1.4\n%%EOF"))
	if err := Run(ds, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	top, conf, ok := ds.HighestMimeTypeConfidence()
	if !ok || top != mimetype.PDF {
		t.Fatalf("got (%v, %v), want PDF", top, ok)
	}
	if conf != mimetype.Medium {
		t.Fatalf("got confidence %v, want %v", conf, mimetype.Medium)
	}
}

func TestRunDetectsHTMLOverSignature(t *testing.T) {
	ds := datasource.FromBuffer([]byte("<!DOCTYPE html><html><body>hi</body></html>"))
	if err := Run(ds, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	top, conf, ok := ds.HighestMimeTypeConfidence()
	if !ok || top != mimetype.HTML {
		t.Fatalf("got (%v, %v), want HTML", top, ok)
	}
	if conf != mimetype.High {
		t.Fatalf("got confidence %v, want %v", conf, mimetype.High)
	}
}

func TestRunNoHypothesisForUnrecognizedContent(t *testing.T) {
	buf := datasource.FromBuffer([]byte("plain text, no signature"))
	if err := Run(buf, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, _, ok := buf.HighestMimeTypeConfidence(); ok {
		t.Fatal("expected no hypothesis for unrecognized plain content")
	}
}

func TestASPDistinguishesDotNet(t *testing.T) {
	ds := datasource.FromBuffer([]byte(`<%@ Page Language="C#" %><html></html>`))
	if err := Run(ds, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	conf, ok := ds.MimeTypeConfidence(mimetype.ASPDotNet)
	if !ok || conf != mimetype.High {
		t.Fatalf("got (%v, %v), want (%v, true)", conf, ok, mimetype.High)
	}
}
