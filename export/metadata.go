package export

import (
	"bufio"
	"fmt"
	"io"

	"github.com/mailchannels/docflow/chain"
	"github.com/mailchannels/docflow/message"
)

// MetadataExporter writes one "key: value" line per populated field of
// the Metadata a Document message's MetadataFunc resolves, the moment
// each Document is seen. It never writes anything for the document body
// itself.
type MetadataExporter struct {
	chain.TerminalElement
	w   *bufio.Writer
	err error
}

// NewMetadataExporter wraps w for buffered writing.
func NewMetadataExporter(w io.Writer) *MetadataExporter {
	return &MetadataExporter{w: bufio.NewWriter(w)}
}

func (m *MetadataExporter) Handle(msg message.Message, _, _ chain.Emitter) (message.Continuation, error) {
	if m.err != nil {
		return message.Stop, m.err
	}
	if msg.Kind != message.KindDocument || msg.Document == nil || msg.Document.Metadata == nil {
		return message.Proceed, nil
	}

	meta, err := msg.Document.Metadata()
	if err != nil {
		return message.Proceed, nil
	}

	lines := []string{}
	if meta.Author != "" {
		lines = append(lines, fmt.Sprintf("author: %s", meta.Author))
	}
	if meta.LastModifiedBy != "" {
		lines = append(lines, fmt.Sprintf("last_modified_by: %s", meta.LastModifiedBy))
	}
	if meta.CreationDate != nil {
		lines = append(lines, fmt.Sprintf("creation_date: %s", meta.CreationDate.Format("2006-01-02T15:04:05")))
	}
	if meta.LastModificationDate != nil {
		lines = append(lines, fmt.Sprintf("last_modification_date: %s", meta.LastModificationDate.Format("2006-01-02T15:04:05")))
	}
	if meta.PageCount > 0 {
		lines = append(lines, fmt.Sprintf("page_count: %d", meta.PageCount))
	}
	if meta.WordCount > 0 {
		lines = append(lines, fmt.Sprintf("word_count: %d", meta.WordCount))
	}
	if meta.HasEmailAttrs {
		lines = append(lines, fmt.Sprintf("email_subject: %s", meta.EmailAttrs.Subject))
		lines = append(lines, fmt.Sprintf("email_from: %s", meta.EmailAttrs.From))
	}

	for _, line := range lines {
		if _, err := m.w.WriteString(line + "\n"); err != nil {
			m.err = err
			return message.Stop, err
		}
	}
	return message.Proceed, nil
}

// Flush pushes any buffered bytes to the underlying writer.
func (m *MetadataExporter) Flush() error {
	if m.err != nil {
		return m.err
	}
	return m.w.Flush()
}
