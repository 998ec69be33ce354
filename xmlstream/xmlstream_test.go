package xmlstream

import (
	"encoding/xml"
	"strings"
	"testing"
)

func TestWalkDispatchesTagsAndText(t *testing.T) {
	doc := `<root><title>Report</title><body><p>one</p><p>two</p></body></root>`

	var title string
	var paragraphs []string
	var bodyStarts, bodyEnds int

	w := NewWalker().
		OnChars("title", func(tag, text string) error { title = text; return nil }).
		OnChars("p", func(tag, text string) error { paragraphs = append(paragraphs, text); return nil }).
		OnStart("body", func(el xml.StartElement, attrs map[string]string) error { bodyStarts++; return nil }).
		OnEnd("body", func(el xml.EndElement) error { bodyEnds++; return nil })

	if err := w.Walk(strings.NewReader(doc)); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if title != "Report" {
		t.Fatalf("got title %q, want %q", title, "Report")
	}
	if len(paragraphs) != 2 || paragraphs[0] != "one" || paragraphs[1] != "two" {
		t.Fatalf("got paragraphs %v, want [one two]", paragraphs)
	}
	if bodyStarts != 1 || bodyEnds != 1 {
		t.Fatalf("got bodyStarts=%d bodyEnds=%d, want 1 1", bodyStarts, bodyEnds)
	}
}
