// Package mimescan provides the MIME structural-tree boundary: walking a
// message's Content-Type/boundary nesting and per-part headers is an
// external-collaborator concern in production (a streaming, RFC-2046-exact
// scanner is swapped in via the Scanner interface, the same seam the ole
// and pdf packages use for their own external collaborators). This package
// defines that interface and ships a minimal reference scanner, built on
// stdlib mime/multipart, good enough to recover the header/body tree of
// well-formed nested multipart messages.
package mimescan

import "net/textproto"

// ContentType is a parsed Content-Type header: the type/subtype pair plus
// any parameters (boundary, charset, name, ...).
type ContentType struct {
	Type   string
	Params map[string]string
}

// String reconstructs a Content-Type header value, primarily so callers
// can recover the bare "type/subtype" by splitting on the first ';'.
func (c *ContentType) String() string {
	if c == nil {
		return ""
	}
	s := c.Type
	for k, v := range c.Params {
		s += "; " + k + "=\"" + v + "\""
	}
	return s
}

// Part is one node of the MIME structural tree: a message itself (the
// root), or one of its (possibly nested) body parts. Containers
// (multipart/*) and leaves both appear in the flat list Scan returns, in
// document order; a container's Body is nil since its content is fully
// represented by the children that follow it.
type Part struct {
	Headers textproto.MIMEHeader
	Body    []byte

	Charset          string
	TransferEncoding string
	ContentType      *ContentType

	ContentDisposition   string
	ContentName          string
	DispositionFileName  string
}

// Scanner walks a MIME message's structural tree: boundaries, per-part
// headers, and body bytes, without decoding transfer encodings or
// transcoding charsets itself (that is left to the caller, same as the
// encoding and charset packages). Production deployments may wire in a
// fuller, streaming scanner through this interface; New's default is
// sufficient for the well-formed nested multipart messages this pipeline
// targets.
type Scanner interface {
	Scan(raw []byte) ([]*Part, error)
}

// New returns the bundled reference Scanner.
func New() Scanner { return defaultScanner{} }
