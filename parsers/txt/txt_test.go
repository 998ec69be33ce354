package txt

import (
	"context"
	"testing"

	"github.com/mailchannels/docflow/datasource"
	"github.com/mailchannels/docflow/message"
)

type collector struct {
	got []message.Message
}

func (c *collector) Emit(msg message.Message) (message.Continuation, error) {
	c.got = append(c.got, msg)
	return message.Proceed, nil
}

func TestParseSplitsParagraphsAndLines(t *testing.T) {
	ds := datasource.FromBuffer([]byte("line one\nline two\n\nsecond paragraph\n"))
	c := &collector{}
	p := New()
	if _, err := p.Parse(context.Background(), ds, c, nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var kinds []message.Kind
	for _, m := range c.got {
		kinds = append(kinds, m.Kind)
	}
	want := []message.Kind{
		message.KindDocument,
		message.KindParagraph,
		message.KindText,
		message.KindBreakLine,
		message.KindText,
		message.KindCloseParagraph,
		message.KindParagraph,
		message.KindText,
		message.KindCloseParagraph,
		message.KindCloseDocument,
	}
	if len(kinds) != len(want) {
		t.Fatalf("got %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("at %d: got %v, want %v (full: %v)", i, kinds[i], want[i], kinds)
		}
	}
}
