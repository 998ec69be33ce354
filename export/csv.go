package export

import (
	"encoding/csv"
	"io"

	"github.com/mailchannels/docflow/chain"
	"github.com/mailchannels/docflow/message"
)

// CsvWriter renders every Table in the message stream as a CSV record
// set, one encoding/csv.Writer row per TableRow, one field per
// TableCell's concatenated Text content. Content outside of a Table is
// ignored, matching the export contract's narrow, format-specific
// terminals (PlainTextWriter and HtmlWriter cover the general case).
type CsvWriter struct {
	chain.TerminalElement
	w        *csv.Writer
	row      []string
	cellText string
	inRow    bool
	inCell   bool
	err      error
}

// NewCsvWriter wraps w with encoding/csv's default dialect.
func NewCsvWriter(w io.Writer) *CsvWriter {
	return &CsvWriter{w: csv.NewWriter(w)}
}

func (c *CsvWriter) Handle(msg message.Message, _, _ chain.Emitter) (message.Continuation, error) {
	if c.err != nil {
		return message.Stop, c.err
	}
	switch msg.Kind {
	case message.KindTableRow:
		c.inRow = true
		c.row = nil
	case message.KindTableCell:
		c.inCell = true
		c.cellText = ""
	case message.KindText:
		if c.inCell {
			c.cellText += msg.Text
		}
	case message.KindCloseTableCell:
		c.inCell = false
		c.row = append(c.row, c.cellText)
	case message.KindCloseTableRow:
		c.inRow = false
		if err := c.w.Write(c.row); err != nil {
			c.err = err
			return message.Stop, err
		}
	}
	return message.Proceed, nil
}

// Flush pushes any buffered records to the underlying writer.
func (c *CsvWriter) Flush() error {
	if c.err != nil {
		return c.err
	}
	c.w.Flush()
	return c.w.Error()
}
