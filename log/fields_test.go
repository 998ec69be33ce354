package log

import (
	"testing"

	"github.com/mailchannels/docflow/docerr"
	"github.com/mailchannels/docflow/message"
)

func TestMessageFieldsTagsAttachment(t *testing.T) {
	msg := message.Attachment("invoice.pdf", true, 2048, "pdf", true)
	f := MessageFields(msg)
	if f["attachment_name"] != "invoice.pdf" {
		t.Fatalf("got %+v", f)
	}
	if _, ok := f["correlation_id"]; !ok {
		t.Fatal("expected correlation_id field")
	}
}

func TestErrorFieldsIncludesContext(t *testing.T) {
	err := docerr.New(docerr.UnknownFormat, "no parser").WithContext(docerr.Frame{"mime_type": "application/x-foo"})
	f := ErrorFields(err)
	if f["error_kind"] != docerr.UnknownFormat.String() {
		t.Fatalf("got %+v", f)
	}
	if f["ctx_mime_type"] != "application/x-foo" {
		t.Fatalf("got %+v", f)
	}
}
