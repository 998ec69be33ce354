// Package charset wraps the non-thread-safe charset-conversion backends
// used by the EML parser (body-part charsets and RFC 2047 header words;
// the HTML and TXT parsers do not use it): a single process-wide decoder
// whose backend is swappable between two interchangeable implementations
// - golang.org/x/net/html/charset and cgo iconv - behind the same
// mime.WordDecoder.CharsetReader slot, guarded by a mutex because neither
// backend is safe for concurrent use from multiple parser goroutines.
package charset

import (
	"fmt"
	"io"
	"mime"
	"strings"
	"sync"

	xcharset "golang.org/x/net/html/charset"
)

// Mutex is the process-wide charset-converter lock: every call into a
// charset backend is serialized through it, regardless of which backend
// is active.
var Mutex sync.Mutex

// Reader is a charset-conversion backend: given an IANA/MIME charset label
// and a reader positioned at the start of charset-encoded bytes, it returns
// a reader yielding UTF-8.
type Reader func(label string, input io.Reader) (io.Reader, error)

// backend is the active charset conversion backend. Defaults to the
// golang.org/x/net/html/charset table, which covers the charsets most
// commonly seen in HTML meta tags and EML header/body declarations.
var backend Reader = xcharset.NewReaderLabel

// SetBackend swaps the active backend, e.g. to the cgo iconv-based one for
// charsets x/net doesn't recognize. It takes Mutex, so it waits for any
// NewReader call in progress to finish.
func SetBackend(r Reader) {
	Mutex.Lock()
	defer Mutex.Unlock()
	backend = r
}

// NewReader transcodes input (declared to be in the given charset) to UTF-8.
// An empty or "utf-8" label returns input unchanged.
func NewReader(label string, input io.Reader) (io.Reader, error) {
	Mutex.Lock()
	defer Mutex.Unlock()
	if label == "" || strings.EqualFold(label, "utf-8") {
		return input, nil
	}
	r, err := backend(label, input)
	if err != nil {
		return nil, fmt.Errorf("charset: unhandled charset %q: %w", label, err)
	}
	return r, nil
}

// WordDecoder decodes RFC 2047 encoded-words (EML Subject/From/To headers)
// using the same pluggable backend, so a header like
// "=?ISO-8859-1?Q?Hello?=" resolves through the identical conversion path
// as an EML body part's declared charset.
var WordDecoder = &mime.WordDecoder{
	CharsetReader: func(label string, input io.Reader) (io.Reader, error) {
		return NewReader(label, input)
	},
}

// DecodeHeader decodes a raw MIME header value that may contain one or more
// RFC 2047 encoded-words, falling back to the raw value if it doesn't parse
// (most header values are plain ASCII and never hit the encoded-word path).
func DecodeHeader(raw string) string {
	if decoded, err := WordDecoder.DecodeHeader(raw); err == nil {
		return decoded
	}
	return raw
}
