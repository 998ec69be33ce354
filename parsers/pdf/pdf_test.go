package pdf

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

const simplePDF = "stream\nBT\n/F1 12 Tf\n0 0 Td\n(Hello) Tj\nET\nendstream"

func TestParseExtractsText(t *testing.T) {
	ds := datasource.FromBuffer([]byte(simplePDF))
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
		t.Fatalf("got text %q, want Hello", gotText)
	}
}

func TestGroupLinesSplitsOnGap(t *testing.T) {
	runs := []Run{
		{Text: "Hello", X: 0, Y: 100, FontSize: 12},
		{Text: "World", X: 100, Y: 100, FontSize: 12},
	}
	lines := GroupLines(runs)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if lines[0] != "Hello World" {
		t.Fatalf("got %q, want %q", lines[0], "Hello World")
	}
}
