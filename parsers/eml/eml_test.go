package eml

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

const simpleMail = "From: alice@example.com\r\n" +
	"To: bob@example.com\r\n" +
	"Subject: Hello there\r\n" +
	"Date: Mon, 02 Jan 2006 15:04:05 -0700\r\n" +
	"Content-Type: text/plain; charset=us-ascii\r\n" +
	"\r\n" +
	"body text\r\n"

func TestParseSimpleMail(t *testing.T) {
	ds := datasource.FromBuffer([]byte(simpleMail))
	c := &collector{}
	p := New()
	if _, err := p.Parse(context.Background(), ds, c, nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var sawMail bool
	for _, m := range c.got {
		if m.Kind == message.KindMail {
			sawMail = true
			if !m.Mail.HasSubject || m.Mail.Subject != "Hello there" {
				t.Fatalf("got mail %+v", m.Mail)
			}
		}
	}
	if !sawMail {
		t.Fatalf("expected a Mail message, got %v", c.got)
	}
}
