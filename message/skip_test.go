package message

import "testing"

type recordingEmitter struct {
	got  []Message
	next Continuation
}

func (r *recordingEmitter) Emit(msg Message) (Continuation, error) {
	r.got = append(r.got, msg)
	return r.next, nil
}

func TestEmitOpenerProceedsOnProceed(t *testing.T) {
	e := &recordingEmitter{next: Proceed}
	proceed, cont, err := EmitOpener(e, Paragraph())
	if err != nil || cont != Proceed || !proceed {
		t.Fatalf("got proceed=%v cont=%v err=%v", proceed, cont, err)
	}
	if len(e.got) != 1 {
		t.Fatalf("expected only the opener emitted, got %d messages", len(e.got))
	}
}

func TestEmitOpenerEmitsCloserAndSuppressesChildrenOnSkip(t *testing.T) {
	e := &recordingEmitter{next: Skip}
	proceed, cont, err := EmitOpener(e, Paragraph())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proceed {
		t.Fatal("expected proceed=false on Skip")
	}
	if cont != Proceed {
		t.Fatalf("expected the caller to see Proceed after a handled Skip, got %v", cont)
	}
	if len(e.got) != 2 || e.got[0].Kind != KindParagraph || e.got[1].Kind != KindCloseParagraph {
		t.Fatalf("expected opener then closer, got %+v", e.got)
	}
}

func TestEmitOpenerPropagatesStopWithoutClosing(t *testing.T) {
	e := &recordingEmitter{next: Stop}
	proceed, cont, err := EmitOpener(e, Paragraph())
	if err != nil || proceed || cont != Stop {
		t.Fatalf("got proceed=%v cont=%v err=%v", proceed, cont, err)
	}
	if len(e.got) != 1 {
		t.Fatalf("expected no closer emitted on Stop, got %+v", e.got)
	}
}
