package chain

import (
	"testing"

	"github.com/mailchannels/docflow/message"
)

type recordingTerminal struct {
	TerminalElement
	got []message.Message
}

func (r *recordingTerminal) Handle(msg message.Message, next, back Emitter) (message.Continuation, error) {
	r.got = append(r.got, msg)
	return message.Proceed, nil
}

func TestChainForwardsInOrder(t *testing.T) {
	passthrough := ElementFunc(func(msg message.Message, next, back Emitter) (message.Continuation, error) {
		return next.Emit(msg)
	})
	term := &recordingTerminal{}

	c, err := New(passthrough, term)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	msgs := []message.Message{message.Page(), message.Text("hi", nil, 0, false), message.ClosePage()}
	if _, err := c.Run(msgs); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(term.got) != 3 {
		t.Fatalf("got %d messages, want 3", len(term.got))
	}
	if term.got[1].Text != "hi" {
		t.Fatalf("got %q, want %q", term.got[1].Text, "hi")
	}
}

func TestNewRejectsMisplacedTerminal(t *testing.T) {
	term := &recordingTerminal{}
	passthrough := ElementFunc(func(msg message.Message, next, back Emitter) (message.Continuation, error) {
		return next.Emit(msg)
	})
	if _, err := New(term, passthrough); err == nil {
		t.Fatal("expected error when terminal is not last")
	}
	if _, err := New(passthrough); err == nil {
		t.Fatal("expected error when chain has no terminal")
	}
}

func TestStopHaltsIteration(t *testing.T) {
	stopper := ElementFunc(func(msg message.Message, next, back Emitter) (message.Continuation, error) {
		if msg.Kind == message.KindClosePage {
			return message.Stop, nil
		}
		return next.Emit(msg)
	})
	term := &recordingTerminal{}
	c, err := New(stopper, term)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cont, err := c.Run([]message.Message{message.Page(), message.ClosePage(), message.Text("unreached", nil, 0, false)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cont != message.Stop {
		t.Fatalf("got %v, want Stop", cont)
	}
	if len(term.got) != 1 {
		t.Fatalf("got %d messages forwarded, want 1 (only Page before the stop)", len(term.got))
	}
}
