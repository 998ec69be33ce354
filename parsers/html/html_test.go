package html

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

func TestParseBasicStructure(t *testing.T) {
	doc := `<html><body><p>Hello <b>bold</b> <a href="http://x">link</a></p></body></html>`
	ds := datasource.FromBuffer([]byte(doc))
	c := &collector{}
	p := New()
	if _, err := p.Parse(context.Background(), ds, c, nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var texts []string
	var sawBold, sawLink bool
	for _, m := range c.got {
		switch m.Kind {
		case message.KindText:
			texts = append(texts, m.Text)
		case message.KindBold:
			sawBold = true
		case message.KindLink:
			sawLink = true
			if !m.Link.HasURL || m.Link.URL != "http://x" {
				t.Fatalf("got link %+v", m.Link)
			}
		}
	}
	if !sawBold || !sawLink {
		t.Fatalf("expected bold and link, got messages: %v", c.got)
	}
	if len(texts) != 3 {
		t.Fatalf("got texts %v, want 3 entries", texts)
	}
}
