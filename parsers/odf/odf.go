// Package odf implements the OpenDocument family: zip-packaged
// odt/ods/odp (content.xml inside a zip, read the same way ooxml reads
// its parts) and the single-file "flat XML" variant (tagged ODTFlat for
// text, ODS/ODP for the others) where the whole document is one XML file
// with no zip wrapper at all.
package odf

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/mailchannels/docflow/chain"
	"github.com/mailchannels/docflow/datasource"
	"github.com/mailchannels/docflow/docerr"
	"github.com/mailchannels/docflow/log"
	"github.com/mailchannels/docflow/message"
	"github.com/mailchannels/docflow/mimetype"
	"github.com/mailchannels/docflow/xmlstream"
)

// Parser decodes ODT/ODS/ODP sources, zip-packaged or flat-XML.
type Parser struct{}

// New returns a ready-to-register Parser.
func New() *Parser { return &Parser{} }

func (*Parser) SupportedTypes() mimetype.Set {
	return mimetype.NewSet(mimetype.ODT, mimetype.ODS, mimetype.ODP, mimetype.ODTFlat)
}

func (*Parser) Parse(_ context.Context, ds *datasource.DataSource, emit chain.Emitter, logger log.Logger) (message.Continuation, error) {
	top, _, _ := ds.HighestMimeTypeConfidence()
	// The detect cascade tags flat spreadsheets and presentations as
	// ODS/ODP, so a source without a zip signature is read as flat XML too.
	head, _ := ds.Span(0, 4)
	flat := top == mimetype.ODTFlat || !bytes.Equal(head, []byte("PK\x03\x04"))

	var content io.Reader
	if flat {
		r, err := ds.Stream()
		if err != nil {
			return message.Proceed, docerr.Wrap(docerr.IOFailure, "read odf flat source", err)
		}
		content = r
	} else {
		full, err := ds.String(0)
		if err != nil {
			return message.Proceed, docerr.Wrap(docerr.IOFailure, "read odf source", err)
		}
		zr, err := zip.NewReader(strings.NewReader(full), int64(len(full)))
		if err != nil {
			return message.Proceed, docerr.Wrap(docerr.UninterpretableData, "open odf zip container", err)
		}
		var f *zip.File
		for _, zf := range zr.File {
			if zf.Name == "content.xml" {
				f = zf
				break
			}
		}
		if f == nil {
			return message.Proceed, docerr.New(docerr.UninterpretableData, "missing content.xml in odf container")
		}
		rc, err := f.Open()
		if err != nil {
			return message.Proceed, docerr.Wrap(docerr.IOFailure, "open content.xml", err)
		}
		defer rc.Close()
		content = rc
	}

	docProceed, cont, err := message.EmitOpener(emit, message.Document(func() (message.Metadata, error) {
		return message.Metadata{}, nil
	}))
	if err != nil || cont == message.Stop {
		return cont, err
	}
	if !docProceed {
		return cont, nil
	}

	var emitErr error
	inParagraph := false
	skipParagraph := false

	real := xmlstream.NewWalker()
	real.OnChars("p", func(tag, text string) error {
		if !inParagraph {
			proceed, c, err := message.EmitOpener(emit, message.Paragraph())
			if err != nil {
				emitErr = err
				return errStop(c, err)
			}
			inParagraph = true
			skipParagraph = !proceed
			if c == message.Stop {
				return errStop(c, nil)
			}
		}
		if skipParagraph {
			return nil
		}
		c, err := emit.Emit(message.Text(text, nil, 0, false))
		if err != nil {
			emitErr = err
		}
		return errStop(c, err)
	})

	walkErr := real.Walk(content)
	if inParagraph && !skipParagraph {
		if _, err2 := emit.Emit(message.CloseParagraph()); err2 != nil {
			emitErr = err2
		}
	}
	if emitErr != nil {
		return message.Proceed, emitErr
	}
	if walkErr != nil {
		if _, ok := walkErr.(stopErr); ok {
			return message.Stop, nil
		}
		return message.Proceed, docerr.Wrap(docerr.UninterpretableData, "walk odf content", walkErr)
	}

	return emit.Emit(message.CloseDocument())
}

type stopErr struct{}

func (stopErr) Error() string { return "stop" }

func errStop(cont message.Continuation, err error) error {
	if err != nil {
		return err
	}
	if cont == message.Stop {
		return stopErr{}
	}
	return nil
}
