// Package archive implements plain zip and tar containers (not the
// office zip dialects ooxml/odf already claim): every entry becomes a
// Folder/File message, with each file's content wrapped in a fresh
// DataSource so the dispatch element can recurse into it exactly as it
// would a top-level source. Scope is deliberately zip and tar only — no
// 7z/rar/gzip-wrapped-tar.
package archive

import (
	"archive/tar"
	"archive/zip"
	"context"
	"io"
	"strings"

	"github.com/mailchannels/docflow/chain"
	"github.com/mailchannels/docflow/datasource"
	"github.com/mailchannels/docflow/docerr"
	"github.com/mailchannels/docflow/log"
	"github.com/mailchannels/docflow/message"
	"github.com/mailchannels/docflow/mimetype"
)

// Parser decodes generic zip and tar archives.
type Parser struct{}

// New returns a ready-to-register Parser.
func New() *Parser { return &Parser{} }

func (*Parser) SupportedTypes() mimetype.Set {
	return mimetype.NewSet(mimetype.Zip, mimetype.Tar)
}

func (*Parser) Parse(_ context.Context, ds *datasource.DataSource, emit chain.Emitter, logger log.Logger) (message.Continuation, error) {
	top, _, _ := ds.HighestMimeTypeConfidence()

	proceed, cont, err := message.EmitOpener(emit, message.Document(func() (message.Metadata, error) {
		return message.Metadata{}, nil
	}))
	if err != nil || cont == message.Stop {
		return cont, err
	}
	if !proceed {
		return cont, nil
	}

	if top == mimetype.Tar {
		cont, err = parseTar(ds, emit, logger)
	} else {
		cont, err = parseZip(ds, emit, logger)
	}
	if err != nil || cont == message.Stop {
		return cont, err
	}

	return emit.Emit(message.CloseDocument())
}

func entryLevel(name string) int {
	trimmed := strings.Trim(name, "/")
	if trimmed == "" {
		return 0
	}
	return strings.Count(trimmed, "/")
}

func entryBaseName(name string) string {
	trimmed := strings.Trim(name, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

func parseZip(ds *datasource.DataSource, emit chain.Emitter, logger log.Logger) (message.Continuation, error) {
	full, err := ds.String(0)
	if err != nil {
		return message.Proceed, docerr.Wrap(docerr.IOFailure, "read zip archive", err)
	}
	zr, err := zip.NewReader(strings.NewReader(full), int64(len(full)))
	if err != nil {
		return message.Proceed, docerr.Wrap(docerr.UninterpretableData, "open zip archive", err)
	}

	cont := message.Proceed
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			folderProceed, c, e := message.EmitOpener(emit, message.Folder(entryBaseName(f.Name), true, entryLevel(f.Name), true))
			if e != nil || c == message.Stop {
				return c, e
			}
			cont = c
			if folderProceed {
				cont, err = emit.Emit(message.CloseFolder())
				if err != nil || cont == message.Stop {
					return cont, err
				}
			}
			continue
		}

		rc, err2 := f.Open()
		if err2 != nil {
			if logger != nil {
				logger.WithSource(ds.ID(), "archive.zip").Warn("skipping unreadable entry " + f.Name)
			}
			continue
		}
		content, err2 := io.ReadAll(rc)
		rc.Close()
		if err2 != nil {
			if logger != nil {
				logger.WithSource(ds.ID(), "archive.zip").Warn("skipping unreadable entry " + f.Name)
			}
			continue
		}

		nested := datasource.FromBuffer(content)
		cont, err = emit.Emit(message.File(f.Name, true, nested, entryBaseName(f.Name), true))
		if err != nil || cont == message.Stop {
			return cont, err
		}
	}
	return cont, nil
}

func parseTar(ds *datasource.DataSource, emit chain.Emitter, logger log.Logger) (message.Continuation, error) {
	r, err := ds.Stream()
	if err != nil {
		return message.Proceed, docerr.Wrap(docerr.IOFailure, "read tar archive", err)
	}
	tr := tar.NewReader(r)

	cont := message.Proceed
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return message.Proceed, docerr.Wrap(docerr.UninterpretableData, "read tar header", err)
		}

		if hdr.Typeflag == tar.TypeDir {
			folderProceed, c, e := message.EmitOpener(emit, message.Folder(entryBaseName(hdr.Name), true, entryLevel(hdr.Name), true))
			if e != nil || c == message.Stop {
				return c, e
			}
			cont = c
			if folderProceed {
				cont, err = emit.Emit(message.CloseFolder())
				if err != nil || cont == message.Stop {
					return cont, err
				}
			}
			continue
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		content, err := io.ReadAll(tr)
		if err != nil {
			if logger != nil {
				logger.WithSource(ds.ID(), "archive.tar").Warn("skipping unreadable entry " + hdr.Name)
			}
			continue
		}

		nested := datasource.FromBuffer(content)
		cont, err = emit.Emit(message.File(hdr.Name, true, nested, entryBaseName(hdr.Name), true))
		if err != nil || cont == message.Stop {
			return cont, err
		}
	}
	return cont, nil
}
