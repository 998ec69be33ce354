package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mailchannels/docflow/message"
)

func TestPlainTextWriterJoinsParagraphs(t *testing.T) {
	var buf bytes.Buffer
	w := NewPlainTextWriter(&buf)
	msgs := []message.Message{
		message.Paragraph(),
		message.Text("hello", nil, 0, false),
		message.CloseParagraph(),
		message.Paragraph(),
		message.Text("world", nil, 0, false),
		message.CloseParagraph(),
	}
	for _, m := range msgs {
		if _, err := w.Handle(m, nil, nil); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if buf.String() != "hello\nworld\n" {
		t.Fatalf("got %q", buf.String())
	}
}

func TestHtmlWriterWrapsTags(t *testing.T) {
	var buf bytes.Buffer
	w := NewHtmlWriter(&buf)
	msgs := []message.Message{
		message.Paragraph(),
		message.Bold(),
		message.Text("hi", nil, 0, false),
		message.CloseBold(),
		message.CloseParagraph(),
	}
	for _, m := range msgs {
		if _, err := w.Handle(m, nil, nil); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	want := "<p><b>hi</b></p>"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestHtmlWriterEmitsRenderedFragmentUpstreamOnClose(t *testing.T) {
	var buf bytes.Buffer
	w := NewHtmlWriter(&buf)

	var received message.Message
	var gotBack bool
	back := emitterFunc(func(msg message.Message) (message.Continuation, error) {
		gotBack = true
		received = msg
		return message.Proceed, nil
	})

	msgs := []message.Message{
		message.Paragraph(),
		message.Text("hi", nil, 0, false),
		message.CloseParagraph(),
		message.CloseDocument(),
	}
	for _, m := range msgs {
		if _, err := w.Handle(m, nil, back); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}

	if !gotBack {
		t.Fatal("expected a message delivered through the back emitter on CloseDocument")
	}
	if received.Kind != message.KindDataSourceRef || received.File == nil || received.File.Source == nil {
		t.Fatalf("expected a DataSource message, got %+v", received)
	}
}

func TestCsvWriterWritesRows(t *testing.T) {
	var buf bytes.Buffer
	w := NewCsvWriter(&buf)
	msgs := []message.Message{
		message.TableRow(),
		message.TableCell(),
		message.Text("a", nil, 0, false),
		message.CloseTableCell(),
		message.TableCell(),
		message.Text("b", nil, 0, false),
		message.CloseTableCell(),
		message.CloseTableRow(),
	}
	for _, m := range msgs {
		if _, err := w.Handle(m, nil, nil); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "a,b" {
		t.Fatalf("got %q", buf.String())
	}
}

func TestKeywordTallyRanksFrequency(t *testing.T) {
	tally := NewKeywordTally()
	texts := []string{"the quick fox", "quick quick fox jumps"}
	for _, text := range texts {
		if _, err := tally.Handle(message.Text(text, nil, 0, false), nil, nil); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}
	top := tally.Top(1)
	if len(top) != 1 || top[0].Word != "quick" || top[0].Count != 3 {
		t.Fatalf("got %+v", top)
	}
}

func TestFindReportsMatches(t *testing.T) {
	f, err := NewFind(`wor\w+`)
	if err != nil {
		t.Fatalf("NewFind: %v", err)
	}
	emitter := emitterFunc(func(msg message.Message) (message.Continuation, error) {
		return message.Proceed, nil
	})
	if _, err := f.Handle(message.Text("hello world", nil, 0, false), emitter, nil); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	matches := f.Matches()
	if len(matches) != 1 || matches[0].Text != "world" {
		t.Fatalf("got %+v", matches)
	}
}

type emitterFunc func(message.Message) (message.Continuation, error)

func (f emitterFunc) Emit(msg message.Message) (message.Continuation, error) { return f(msg) }
