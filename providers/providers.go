// Package providers groups the bundled parsers into families by format
// rather than registering every parser in one flat list.
package providers

import (
	"github.com/mailchannels/docflow/parser"
	"github.com/mailchannels/docflow/parsers/archive"
	"github.com/mailchannels/docflow/parsers/eml"
	"github.com/mailchannels/docflow/parsers/html"
	"github.com/mailchannels/docflow/parsers/odf"
	"github.com/mailchannels/docflow/parsers/ooxml"
	"github.com/mailchannels/docflow/parsers/pdf"
	"github.com/mailchannels/docflow/parsers/txt"
	"github.com/mailchannels/docflow/parsers/xls"
)

// BasicParserProvider covers the formats that need no OLE/zip container
// walk of their own: plain text, HTML, PDF, and generic archives.
type BasicParserProvider struct{}

func (BasicParserProvider) Parsers() []parser.Parser {
	return []parser.Parser{txt.New(), html.New(), pdf.New(), archive.New()}
}

// OfficeFormatsParserProvider covers the office document families: the
// OOXML zip dialect, the OpenDocument zip/flat-XML dialect, and legacy
// BIFF XLS over an OLE container.
type OfficeFormatsParserProvider struct{}

func (OfficeFormatsParserProvider) Parsers() []parser.Parser {
	return []parser.Parser{ooxml.New(), odf.New(), xls.New()}
}

// MailParserProvider covers RFC 822 / MIME e-mail.
type MailParserProvider struct{}

func (MailParserProvider) Parsers() []parser.Parser {
	return []parser.Parser{eml.New()}
}

// All aggregates the three bundled providers in dispatch order:
// generic/basic formats first, then office containers, then mail.
func All() []parser.Provider {
	return []parser.Provider{
		BasicParserProvider{},
		OfficeFormatsParserProvider{},
		MailParserProvider{},
	}
}
