package export

import (
	"bytes"
	"html"
	"io"

	"github.com/mailchannels/docflow/chain"
	"github.com/mailchannels/docflow/datasource"
	"github.com/mailchannels/docflow/message"
)

// htmlTagTable maps an opener Kind to the tag it should emit; the
// matching closer is derived via message.Closer.
var htmlTagTable = map[message.Kind]string{
	message.KindParagraph: "p",
	message.KindBold:      "b",
	message.KindItalic:    "i",
	message.KindUnderline: "u",
	message.KindList:      "ul",
	message.KindListItem:  "li",
	message.KindTable:     "table",
	message.KindTableRow:  "tr",
	message.KindTableCell: "td",
	message.KindHeader:    "header",
	message.KindFooter:    "footer",
}

// HtmlWriter renders the message stream as a minimal HTML fragment: one
// tag per structural opener/closer pair from htmlTagTable, HTML-escaped
// text in between, and a <br> for each BreakLine. It accumulates into an
// internal buffer rather than writing straight through, since on
// CloseDocument it hands the rendered fragment back upstream as a
// DataSource message (the data-source-to-exporter hand-off: whatever
// dispatched to this writer can pick the rendered bytes up again without
// reading the destination writer back).
type HtmlWriter struct {
	chain.TerminalElement
	dest io.Writer
	buf  bytes.Buffer
	err  error
}

// NewHtmlWriter renders into an internal buffer, flushed to w on Flush.
func NewHtmlWriter(w io.Writer) *HtmlWriter {
	return &HtmlWriter{dest: w}
}

func (h *HtmlWriter) Handle(msg message.Message, _, back chain.Emitter) (message.Continuation, error) {
	if h.err != nil {
		return message.Stop, h.err
	}

	var out string
	switch {
	case msg.Kind == message.KindText:
		out = html.EscapeString(msg.Text)
	case msg.Kind == message.KindBreakLine:
		out = "<br>"
	case msg.Kind == message.KindLink && msg.Link != nil && msg.Link.HasURL:
		out = "<a href=\"" + html.EscapeString(msg.Link.URL) + "\">"
	case msg.Kind == message.KindCloseLink:
		out = "</a>"
	default:
		if tag, ok := htmlTagTable[msg.Kind]; ok {
			out = "<" + tag + ">"
		} else if tag, ok := htmlTagTable[closerOpener(msg.Kind)]; ok {
			out = "</" + tag + ">"
		}
	}

	if out != "" {
		h.buf.WriteString(out)
	}

	if msg.Kind == message.KindCloseDocument && back != nil {
		rendered := append([]byte(nil), h.buf.Bytes()...)
		if cont, err := back.Emit(message.FromDataSource(datasource.FromBuffer(rendered))); err != nil || cont == message.Stop {
			return cont, err
		}
	}

	return message.Proceed, nil
}

// closerOpener finds the opener Kind whose Closer is k, the reverse of
// message.Closer.
func closerOpener(k message.Kind) message.Kind {
	for opener := range htmlTagTable {
		if c, ok := message.Closer(opener); ok && c == k {
			return opener
		}
	}
	return k
}

// Flush pushes the rendered bytes to the destination writer given to
// NewHtmlWriter. Callers that only care about the reverse-emitted
// DataSource message (see Handle) can skip calling this.
func (h *HtmlWriter) Flush() error {
	if h.err != nil {
		return h.err
	}
	_, err := h.dest.Write(h.buf.Bytes())
	return err
}
