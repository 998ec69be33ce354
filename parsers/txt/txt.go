// Package txt implements the plain-text parser: paragraphs
// split on blank lines, individual line breaks within a paragraph
// preserved as BreakLine messages.
package txt

import (
	"bufio"
	"context"
	"strings"

	"github.com/mailchannels/docflow/chain"
	"github.com/mailchannels/docflow/datasource"
	"github.com/mailchannels/docflow/docerr"
	"github.com/mailchannels/docflow/log"
	"github.com/mailchannels/docflow/message"
	"github.com/mailchannels/docflow/mimetype"
)

// Parser decodes text/plain sources.
type Parser struct{}

// New returns a ready-to-register Parser.
func New() *Parser { return &Parser{} }

func (*Parser) SupportedTypes() mimetype.Set {
	return mimetype.NewSet(mimetype.Plain)
}

func (*Parser) Parse(_ context.Context, ds *datasource.DataSource, emit chain.Emitter, logger log.Logger) (message.Continuation, error) {
	return parse(ds, emit, logger)
}

func parse(ds *datasource.DataSource, emit chain.Emitter, logger log.Logger) (message.Continuation, error) {
	text, err := ds.String(0)
	if err != nil {
		return message.Proceed, docerr.Wrap(docerr.IOFailure, "read text source", err)
	}

	proceed, cont, err := message.EmitOpener(emit, message.Document(func() (message.Metadata, error) {
		return message.Metadata{WordCount: len(strings.Fields(text))}, nil
	}))
	if err != nil || cont == message.Stop {
		return cont, err
	}
	if !proceed {
		return cont, nil
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	inParagraph := false
	skipParagraph := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if inParagraph && !skipParagraph {
				if cont, err := emit.Emit(message.CloseParagraph()); err != nil || cont == message.Stop {
					return cont, err
				}
			}
			inParagraph = false
			skipParagraph = false
			continue
		}
		if !inParagraph {
			proceed, cont, err := message.EmitOpener(emit, message.Paragraph())
			if err != nil || cont == message.Stop {
				return cont, err
			}
			inParagraph = true
			skipParagraph = !proceed
		} else if !skipParagraph {
			if cont, err := emit.Emit(message.BreakLine()); err != nil || cont == message.Stop {
				return cont, err
			}
		}
		if skipParagraph {
			continue
		}
		if cont, err := emit.Emit(message.Text(line, nil, 0, false)); err != nil || cont == message.Stop {
			return cont, err
		}
	}
	if inParagraph && !skipParagraph {
		if cont, err := emit.Emit(message.CloseParagraph()); err != nil || cont == message.Stop {
			return cont, err
		}
	}
	if err := scanner.Err(); err != nil {
		return message.Proceed, docerr.Wrap(docerr.IOFailure, "scan text source", err)
	}

	return emit.Emit(message.CloseDocument())
}
