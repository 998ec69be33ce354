// Package export implements the exporter elements: the four required
// terminal writers (plain text, HTML, CSV, metadata) plus two
// supplemented elements (KeywordTally, Find). Every terminal writer is a
// chain.Terminal: the last element in a ParsingChain, writing rather
// than forwarding.
package export

import (
	"bufio"
	"io"

	"github.com/mailchannels/docflow/chain"
	"github.com/mailchannels/docflow/message"
)

// PlainTextWriter renders the message stream as plain text: each Text
// message is written as is, a single newline is written at each
// CloseParagraph, BreakLine, ClosePage and CloseTableRow, and every other
// message is ignored.
type PlainTextWriter struct {
	chain.TerminalElement
	w   *bufio.Writer
	err error
}

// NewPlainTextWriter wraps w for buffered writing. Call Flush when the
// chain finishes to surface any buffered write error and push remaining
// bytes out.
func NewPlainTextWriter(w io.Writer) *PlainTextWriter {
	return &PlainTextWriter{w: bufio.NewWriter(w)}
}

func (p *PlainTextWriter) Handle(msg message.Message, _, _ chain.Emitter) (message.Continuation, error) {
	if p.err != nil {
		return message.Stop, p.err
	}
	switch msg.Kind {
	case message.KindText:
		if _, err := p.w.WriteString(msg.Text); err != nil {
			p.err = err
			return message.Stop, err
		}
	case message.KindCloseParagraph, message.KindBreakLine, message.KindClosePage, message.KindCloseTableRow:
		if _, err := p.w.WriteString("\n"); err != nil {
			p.err = err
			return message.Stop, err
		}
	}
	return message.Proceed, nil
}

// Flush pushes any buffered bytes to the underlying writer and returns
// the first write error encountered, if any.
func (p *PlainTextWriter) Flush() error {
	if p.err != nil {
		return p.err
	}
	return p.w.Flush()
}
