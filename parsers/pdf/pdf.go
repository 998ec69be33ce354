// Package pdf implements the PDF parser. Real PDF rendering (font
// programs, compressed object streams, arbitrary content-stream
// operators) is out of scope for this pipeline and left to an external
// renderer like PDFium, wired in through the Backend interface; this
// package ships only a minimal structural backend good enough to
// recover positioned text runs from an uncompressed, single-content-
// stream PDF, plus the layout logic that turns
// those runs back into lines and paragraphs.
package pdf

import (
	"context"

	"github.com/mailchannels/docflow/chain"
	"github.com/mailchannels/docflow/datasource"
	"github.com/mailchannels/docflow/docerr"
	"github.com/mailchannels/docflow/log"
	"github.com/mailchannels/docflow/message"
	"github.com/mailchannels/docflow/mimetype"
)

// Run is one positioned piece of text recovered from a page's content
// stream: the text itself, its baseline origin, and the font size it
// was shown at.
type Run struct {
	Text     string
	X, Y     float64
	FontSize float64
}

// Page is the ordered (as encountered in the content stream, not
// necessarily reading order) set of text runs on one page.
type Page struct {
	Runs []Run
}

// Backend extracts positioned text runs from raw PDF bytes. Production
// deployments wire in a real renderer (PDFium via cgo, or an
// out-of-process worker); Backend is the seam that lets them do so
// without touching this package.
type Backend interface {
	Pages(data []byte) ([]Page, error)
}

// Parser decodes PDF sources through a Backend, defaulting to
// minimalBackend when none is supplied via NewWithBackend.
type Parser struct {
	backend Backend
}

// New returns a Parser using the bundled structural backend.
func New() *Parser { return &Parser{backend: minimalBackend{}} }

// NewWithBackend returns a Parser delegating text extraction to b (a
// real PDFium-backed implementation, typically).
func NewWithBackend(b Backend) *Parser { return &Parser{backend: b} }

func (*Parser) SupportedTypes() mimetype.Set {
	return mimetype.NewSet(mimetype.PDF)
}

func (p *Parser) Parse(_ context.Context, ds *datasource.DataSource, emit chain.Emitter, logger log.Logger) (message.Continuation, error) {
	full, err := ds.String(0)
	if err != nil {
		return message.Proceed, docerr.Wrap(docerr.IOFailure, "read pdf source", err)
	}

	pages, err := p.backend.Pages([]byte(full))
	if err != nil {
		return message.Proceed, docerr.Wrap(docerr.ExternalLibraryFailure, "extract pdf text", err)
	}

	proceed, cont, err := message.EmitOpener(emit, message.Document(func() (message.Metadata, error) {
		return message.Metadata{PageCount: len(pages)}, nil
	}))
	if err != nil || cont == message.Stop {
		return cont, err
	}
	if !proceed {
		return cont, nil
	}

	for _, pg := range pages {
		pageProceed, cont, err := message.EmitOpener(emit, message.Page())
		if err != nil || cont == message.Stop {
			return cont, err
		}
		if pageProceed {
			for _, line := range GroupLines(pg.Runs) {
				paraProceed, cont, err := message.EmitOpener(emit, message.Paragraph())
				if err != nil || cont == message.Stop {
					return cont, err
				}
				if !paraProceed {
					continue
				}
				cont, err = emit.Emit(message.Text(line, nil, 0, false))
				if err != nil || cont == message.Stop {
					return cont, err
				}
				cont, err = emit.Emit(message.CloseParagraph())
				if err != nil || cont == message.Stop {
					return cont, err
				}
			}

			if cont, err := emit.Emit(message.ClosePage()); err != nil || cont == message.Stop {
				return cont, err
			}
		}
	}

	return emit.Emit(message.CloseDocument())
}
