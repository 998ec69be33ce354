// Package ooxml implements the Office Open XML family (docx/xlsx/pptx):
// a zip container (read with stdlib archive/zip, the designated
// swappable "external" zip collaborator) whose document.xml /
// sheetN.xml / slideN.xml parts are walked with xmlstream instead of a
// full DOM.
package ooxml

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mailchannels/docflow/chain"
	"github.com/mailchannels/docflow/datasource"
	"github.com/mailchannels/docflow/docerr"
	"github.com/mailchannels/docflow/log"
	"github.com/mailchannels/docflow/message"
	"github.com/mailchannels/docflow/mimetype"
	"github.com/mailchannels/docflow/xmlstream"
)

// Parser decodes DOCX/XLSX/PPTX sources.
type Parser struct{}

// New returns a ready-to-register Parser.
func New() *Parser { return &Parser{} }

func (*Parser) SupportedTypes() mimetype.Set {
	return mimetype.NewSet(mimetype.DOCX, mimetype.XLSX, mimetype.PPTX)
}

func (*Parser) Parse(_ context.Context, ds *datasource.DataSource, emit chain.Emitter, logger log.Logger) (message.Continuation, error) {
	full, err := ds.String(0)
	if err != nil {
		return message.Proceed, docerr.Wrap(docerr.IOFailure, "read ooxml source", err)
	}
	zr, err := zip.NewReader(strings.NewReader(full), int64(len(full)))
	if err != nil {
		return message.Proceed, docerr.Wrap(docerr.UninterpretableData, "open ooxml zip container", err)
	}
	byName := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		byName[f.Name] = f
	}

	top, _, _ := ds.HighestMimeTypeConfidence()

	proceed, cont, err := message.EmitOpener(emit, message.Document(func() (message.Metadata, error) {
		return coreMetadata(byName), nil
	}))
	if err != nil || cont == message.Stop {
		return cont, err
	}
	if !proceed {
		return cont, nil
	}

	switch top {
	case mimetype.XLSX:
		cont, err = parseXLSX(byName, emit)
	case mimetype.PPTX:
		cont, err = parsePPTX(byName, emit)
	default:
		cont, err = parseDOCX(byName, emit)
	}
	if err != nil || cont == message.Stop {
		return cont, err
	}

	return emit.Emit(message.CloseDocument())
}

func openPart(byName map[string]*zip.File, name string) (io.ReadCloser, bool) {
	f, ok := byName[name]
	if !ok {
		return nil, false
	}
	rc, err := f.Open()
	if err != nil {
		return nil, false
	}
	return rc, true
}

func coreMetadata(byName map[string]*zip.File) message.Metadata {
	rc, ok := openPart(byName, "docProps/core.xml")
	if !ok {
		return message.Metadata{}
	}
	defer rc.Close()

	var meta message.Metadata
	w := xmlstream.NewWalker().
		OnChars("creator", func(tag, text string) error { meta.Author = text; return nil }).
		OnChars("lastModifiedBy", func(tag, text string) error { meta.LastModifiedBy = text; return nil })
	_ = w.Walk(rc)
	return meta
}

// parseDOCX walks word/document.xml's flat run of <w:p>/<w:r>/<w:t>
// elements into Paragraph/Text messages.
func parseDOCX(byName map[string]*zip.File, emit chain.Emitter) (message.Continuation, error) {
	rc, ok := openPart(byName, "word/document.xml")
	if !ok {
		return message.Proceed, docerr.New(docerr.UninterpretableData, "missing word/document.xml")
	}
	defer rc.Close()

	cont := message.Proceed
	var emitErr error
	inParagraph := false
	skipParagraph := false
	bold := false

	w := xmlstream.NewWalker()
	w.OnStart("p", func(el xml.StartElement, attrs map[string]string) error {
		proceed, c, err := message.EmitOpener(emit, message.Paragraph())
		cont, emitErr = c, err
		inParagraph = true
		skipParagraph = !proceed
		return stopIf(c, err)
	})
	w.OnEnd("p", func(el xml.EndElement) error {
		if inParagraph && !skipParagraph {
			cont, emitErr = emit.Emit(message.CloseParagraph())
		}
		inParagraph = false
		skipParagraph = false
		return stopIf(cont, emitErr)
	})
	w.OnStart("b", func(el xml.StartElement, attrs map[string]string) error {
		if skipParagraph {
			return nil
		}
		cont, emitErr = emit.Emit(message.Bold())
		bold = true
		return stopIf(cont, emitErr)
	})
	w.OnEnd("b", func(el xml.EndElement) error {
		if skipParagraph {
			return nil
		}
		if bold {
			cont, emitErr = emit.Emit(message.CloseBold())
			bold = false
		}
		return stopIf(cont, emitErr)
	})
	w.OnChars("t", func(tag, text string) error {
		if skipParagraph {
			return nil
		}
		cont, emitErr = emit.Emit(message.Text(text, nil, 0, false))
		return stopIf(cont, emitErr)
	})

	walkErr := w.Walk(rc)
	return walkErrResult(cont, emitErr, walkErr)
}

// parsePPTX walks every slideN.xml part in numeric order, emitting one
// Page per slide.
func parsePPTX(byName map[string]*zip.File, emit chain.Emitter) (message.Continuation, error) {
	var slideNames []string
	for name := range byName {
		if strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml") {
			slideNames = append(slideNames, name)
		}
	}
	// Every name shares the "ppt/slides/slide" prefix and ".xml" suffix,
	// so a shorter name carries a smaller slide number.
	sort.Slice(slideNames, func(i, j int) bool {
		if len(slideNames[i]) != len(slideNames[j]) {
			return len(slideNames[i]) < len(slideNames[j])
		}
		return slideNames[i] < slideNames[j]
	})

	cont := message.Proceed
	for _, name := range slideNames {
		pageProceed, c, err := message.EmitOpener(emit, message.Page())
		if err != nil || c == message.Stop {
			return c, err
		}
		cont = c
		if !pageProceed {
			continue
		}

		rc, ok := openPart(byName, name)
		if !ok {
			continue
		}
		var emitErr error
		w := xmlstream.NewWalker().OnChars("t", func(tag, text string) error {
			cont, emitErr = emit.Emit(message.Text(text, nil, 0, false))
			return stopIf(cont, emitErr)
		})
		walkErr := w.Walk(rc)
		rc.Close()
		if resultCont, resultErr := walkErrResult(cont, emitErr, walkErr); resultErr != nil || resultCont == message.Stop {
			return resultCont, resultErr
		}

		cont, err = emit.Emit(message.ClosePage())
		if err != nil || cont == message.Stop {
			return cont, err
		}
	}
	return cont, nil
}

// parseXLSX reads the shared-strings table and walks each sheetN.xml's
// row/cell structure into Table/TableRow/TableCell messages.
func parseXLSX(byName map[string]*zip.File, emit chain.Emitter) (message.Continuation, error) {
	shared := readSharedStrings(byName)

	var sheetNames []string
	for name := range byName {
		if strings.HasPrefix(name, "xl/worksheets/sheet") && strings.HasSuffix(name, ".xml") {
			sheetNames = append(sheetNames, name)
		}
	}
	sort.Strings(sheetNames)

	cont := message.Proceed
	for _, name := range sheetNames {
		tableProceed, c, err := message.EmitOpener(emit, message.Table())
		if err != nil || c == message.Stop {
			return c, err
		}
		cont = c
		if !tableProceed {
			continue
		}

		rc, ok := openPart(byName, name)
		if !ok {
			continue
		}
		var emitErr error
		inRow := false
		skipRow := false
		cellType := ""
		w := xmlstream.NewWalker()
		w.OnStart("row", func(el xml.StartElement, attrs map[string]string) error {
			rowProceed, c, err := message.EmitOpener(emit, message.TableRow())
			cont, emitErr = c, err
			inRow = true
			skipRow = !rowProceed
			return stopIf(c, err)
		})
		w.OnEnd("row", func(el xml.EndElement) error {
			if inRow && !skipRow {
				cont, emitErr = emit.Emit(message.CloseTableRow())
			}
			inRow = false
			skipRow = false
			return stopIf(cont, emitErr)
		})
		w.OnStart("c", func(el xml.StartElement, attrs map[string]string) error {
			if skipRow {
				return nil
			}
			cellType = attrs["t"]
			cont, emitErr = emit.Emit(message.TableCell())
			return stopIf(cont, emitErr)
		})
		w.OnEnd("c", func(el xml.EndElement) error {
			if skipRow {
				return nil
			}
			cont, emitErr = emit.Emit(message.CloseTableCell())
			return stopIf(cont, emitErr)
		})
		w.OnChars("v", func(tag, text string) error {
			if skipRow {
				return nil
			}
			val := text
			if cellType == "s" {
				if idx, convErr := atoi(text); convErr == nil && idx >= 0 && idx < len(shared) {
					val = shared[idx]
				}
			}
			cont, emitErr = emit.Emit(message.Text(val, nil, 0, false))
			return stopIf(cont, emitErr)
		})

		walkErr := w.Walk(rc)
		rc.Close()
		if resultCont, resultErr := walkErrResult(cont, emitErr, walkErr); resultErr != nil || resultCont == message.Stop {
			return resultCont, resultErr
		}

		cont, err = emit.Emit(message.CloseTable())
		if err != nil || cont == message.Stop {
			return cont, err
		}
	}
	return cont, nil
}

func readSharedStrings(byName map[string]*zip.File) []string {
	rc, ok := openPart(byName, "xl/sharedStrings.xml")
	if !ok {
		return nil
	}
	defer rc.Close()

	var strs []string
	w := xmlstream.NewWalker().OnChars("t", func(tag, text string) error {
		strs = append(strs, text)
		return nil
	})
	_ = w.Walk(rc)
	return strs
}

func atoi(s string) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a digit: %q", s)
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

func stopIf(cont message.Continuation, err error) error {
	if err != nil {
		return err
	}
	if cont == message.Stop {
		return errStop
	}
	return nil
}

var errStop = stopSentinel{}

type stopSentinel struct{}

func (stopSentinel) Error() string { return "chain requested stop" }

// walkErrResult turns a Walk() error into (Continuation, error): a
// deliberate errStop sentinel (raised by a handler when the downstream
// chain returned message.Stop) is not a real failure, so it is
// unwrapped back into a clean Stop continuation instead of being
// reported as a parse error.
func walkErrResult(cont message.Continuation, emitErr, walkErr error) (message.Continuation, error) {
	if emitErr != nil {
		return cont, emitErr
	}
	if walkErr == nil {
		return cont, nil
	}
	if _, ok := walkErr.(stopSentinel); ok {
		return message.Stop, nil
	}
	return message.Proceed, docerr.Wrap(docerr.UninterpretableData, "walk xml part", walkErr)
}
