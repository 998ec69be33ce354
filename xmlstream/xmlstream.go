// Package xmlstream wraps encoding/xml.Decoder with a SAX-style
// tag-name-to-handler dispatch table: one registry of element handlers
// fed a single forward-only token stream, the shape every OOXML and ODF
// part parser here builds on. Handlers register by (possibly namespaced)
// local tag name, then Walk drives the stream once, without a
// virtual-dispatch inheritance hierarchy.
package xmlstream

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/mailchannels/docflow/docerr"
)

// StartHandler is called when an opening tag matching its registered
// name is encountered. attrs is indexed by local attribute name
// (namespace prefix stripped, matching el.Name.Local's own treatment).
type StartHandler func(el xml.StartElement, attrs map[string]string) error

// EndHandler is called when the matching closing tag is encountered.
type EndHandler func(el xml.EndElement) error

// CharHandler is called for character data encountered between a tag's
// start and end, concatenated instead of split across library-chosen
// chunk boundaries.
type CharHandler func(tag string, text string) error

// Walker dispatches SAX-like events from an XML token stream to
// registered handlers, keyed by local element name.
type Walker struct {
	starts map[string]StartHandler
	ends   map[string]EndHandler
	chars  map[string]CharHandler

	// DefaultStart/DefaultEnd fire for any tag without a specific
	// handler registered, letting a caller observe unknown structure
	// (e.g. to skip it) without registering every possible tag.
	DefaultStart StartHandler
	DefaultEnd   EndHandler
}

// NewWalker returns an empty Walker ready for handler registration.
func NewWalker() *Walker {
	return &Walker{
		starts: make(map[string]StartHandler),
		ends:   make(map[string]EndHandler),
		chars:  make(map[string]CharHandler),
	}
}

// OnStart registers a handler for the opening tag named localName.
func (w *Walker) OnStart(localName string, h StartHandler) *Walker {
	w.starts[localName] = h
	return w
}

// OnEnd registers a handler for the closing tag named localName.
func (w *Walker) OnEnd(localName string, h EndHandler) *Walker {
	w.ends[localName] = h
	return w
}

// OnChars registers a handler receiving character data nested directly
// inside the tag named localName.
func (w *Walker) OnChars(localName string, h CharHandler) *Walker {
	w.chars[localName] = h
	return w
}

// Walk consumes r as an XML token stream, dispatching matched start/end
// tags and accumulated character data to the registered handlers. It
// stops at the first handler error or at EOF.
func (w *Walker) Walk(r io.Reader) error {
	dec := xml.NewDecoder(r)
	dec.Strict = false

	var tagStack []string
	var charBuf strings.Builder

	flushChars := func() error {
		if len(tagStack) == 0 {
			charBuf.Reset()
			return nil
		}
		top := tagStack[len(tagStack)-1]
		text := charBuf.String()
		charBuf.Reset()
		if text == "" {
			return nil
		}
		if h, ok := w.chars[top]; ok {
			return h(top, text)
		}
		return nil
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return docerr.Wrap(docerr.UninterpretableData, "xml token stream", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if err := flushChars(); err != nil {
				return err
			}
			tagStack = append(tagStack, t.Name.Local)
			attrs := make(map[string]string, len(t.Attr))
			for _, a := range t.Attr {
				attrs[a.Name.Local] = a.Value
			}
			if h, ok := w.starts[t.Name.Local]; ok {
				if err := h(t, attrs); err != nil {
					return err
				}
			} else if w.DefaultStart != nil {
				if err := w.DefaultStart(t, attrs); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if err := flushChars(); err != nil {
				return err
			}
			if len(tagStack) > 0 {
				tagStack = tagStack[:len(tagStack)-1]
			}
			if h, ok := w.ends[t.Name.Local]; ok {
				if err := h(t); err != nil {
					return err
				}
			} else if w.DefaultEnd != nil {
				if err := w.DefaultEnd(t); err != nil {
					return err
				}
			}
		case xml.CharData:
			charBuf.Write(t)
		}
	}
}
