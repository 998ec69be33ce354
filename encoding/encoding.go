// Package encoding wraps the content-transfer-encodings the EML and HTML parsers
// need to peel off before a part's bytes can be handed to a nested
// DataSource: base64, quoted-printable, and the "data:" URL scheme used by
// inline HTML images.
package encoding

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime/quotedprintable"
	"strings"
)

// DecodeTransferEncoding decodes body according to a MIME
// Content-Transfer-Encoding header value ("base64", "quoted-printable",
// "7bit", "8bit", "binary", or empty). Unknown encodings are returned
// unchanged, matching the source's "recoverable, don't abort the parse"
// error policy - a mislabeled part still yields its raw bytes.
func DecodeTransferEncoding(encoding string, body []byte) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return decodeBase64(body)
	case "quoted-printable":
		return decodeQuotedPrintable(body)
	case "", "7bit", "8bit", "binary":
		return body, nil
	default:
		return body, nil
	}
}

func decodeBase64(body []byte) ([]byte, error) {
	// base64 bodies are usually wrapped at 76 columns; strip all
	// whitespace rather than assuming a particular line length.
	clean := make([]byte, 0, len(body))
	for _, b := range body {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			clean = append(clean, b)
		}
	}
	out := make([]byte, base64.StdEncoding.DecodedLen(len(clean)))
	n, err := base64.StdEncoding.Decode(out, clean)
	if err != nil {
		// fall back to raw-std encoding (no padding) before giving up
		out2 := make([]byte, base64.RawStdEncoding.DecodedLen(len(clean)))
		n2, err2 := base64.RawStdEncoding.Decode(out2, clean)
		if err2 != nil {
			return nil, fmt.Errorf("encoding: base64 decode: %w", err)
		}
		return out2[:n2], nil
	}
	return out[:n], nil
}

func decodeQuotedPrintable(body []byte) ([]byte, error) {
	r := quotedprintable.NewReader(strings.NewReader(string(body)))
	out, err := io.ReadAll(r)
	if err != nil && len(out) == 0 {
		return nil, fmt.Errorf("encoding: quoted-printable decode: %w", err)
	}
	return out, nil
}

// DataURL is a decoded "data:" URL (RFC 2397), as found in inline HTML
// <img src="data:image/png;base64,...">.
type DataURL struct {
	MimeType string
	Data     []byte
}

// DecodeDataURL parses and decodes a "data:" URL. ok is false if s doesn't
// start with the data: scheme.
func DecodeDataURL(s string) (d DataURL, ok bool) {
	const prefix = "data:"
	if !strings.HasPrefix(s, prefix) {
		return DataURL{}, false
	}
	rest := s[len(prefix):]
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return DataURL{}, false
	}
	meta, payload := rest[:comma], rest[comma+1:]
	isBase64 := strings.HasSuffix(meta, ";base64")
	mimeType := strings.TrimSuffix(meta, ";base64")
	if mimeType == "" {
		mimeType = "text/plain;charset=US-ASCII"
	}
	var data []byte
	var err error
	if isBase64 {
		data, err = decodeBase64([]byte(payload))
	} else {
		var unescaped string
		unescaped, err = urlUnescape(payload)
		data = []byte(unescaped)
	}
	if err != nil {
		return DataURL{}, false
	}
	return DataURL{MimeType: mimeType, Data: data}, true
}

// urlUnescape decodes percent-escapes without pulling in net/url's stricter
// validation (data: URL payloads are freeform text, not a URL path/query).
func urlUnescape(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			var hi, lo byte
			if v, ok := hexVal(s[i+1]); ok {
				hi = v
			} else {
				b.WriteByte(s[i])
				continue
			}
			if v, ok := hexVal(s[i+2]); ok {
				lo = v
			} else {
				b.WriteByte(s[i])
				continue
			}
			b.WriteByte(hi<<4 | lo)
			i += 2
		} else {
			b.WriteByte(s[i])
		}
	}
	return b.String(), nil
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
