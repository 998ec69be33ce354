package mimescan

import (
	"bufio"
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/mailchannels/docflow/docerr"
)

// defaultScanner recovers the part tree via stdlib mime/multipart, one
// nesting level at a time: read this entity's headers, and if its
// Content-Type names a multipart/* boundary, hand the rest of the bytes to
// multipart.Reader and recurse into each sub-part's own headers and body.
// It does not attempt recovery from a missing/empty boundary parameter or a
// truncated final boundary beyond what multipart.Reader already tolerates.
type defaultScanner struct{}

func (defaultScanner) Scan(raw []byte) ([]*Part, error) {
	r := bufio.NewReader(bytes.NewReader(raw))
	tp := textproto.NewReader(r)
	hdr, err := tp.ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return nil, docerr.Wrap(docerr.UninterpretableData, "scan mime headers", err)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, docerr.Wrap(docerr.IOFailure, "read mime body", err)
	}

	var parts []*Part
	buildErr := appendEntity(hdr, body, &parts)
	if buildErr != nil {
		return parts, docerr.Wrap(docerr.UninterpretableData, "scan mime structure", buildErr)
	}
	return parts, nil
}

// appendEntity parses hdr into a Part, appends it to out, and — if it
// introduces a multipart/* container — recurses into each child entity in
// document order. A container's own Body is left nil; only leaves (and
// containers whose boundary can't be determined) carry body bytes.
func appendEntity(hdr textproto.MIMEHeader, body []byte, out *[]*Part) error {
	part := partFromHeader(hdr)
	*out = append(*out, part)

	if part.ContentType == nil || !strings.HasPrefix(part.ContentType.Type, "multipart/") {
		part.Body = body
		return nil
	}
	boundary := part.ContentType.Params["boundary"]
	if boundary == "" {
		part.Body = body
		return nil
	}

	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		mp, err := mr.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		childBody, err := io.ReadAll(mp)
		if err != nil {
			return err
		}
		if err := appendEntity(textproto.MIMEHeader(mp.Header), childBody, out); err != nil {
			return err
		}
	}
}

func partFromHeader(hdr textproto.MIMEHeader) *Part {
	part := &Part{Headers: hdr}

	if raw := hdr.Get("Content-Type"); raw != "" {
		if t, params, err := mime.ParseMediaType(raw); err == nil {
			part.ContentType = &ContentType{Type: t, Params: params}
			part.Charset = params["charset"]
			part.ContentName = params["name"]
		}
	}
	part.TransferEncoding = hdr.Get("Content-Transfer-Encoding")

	if raw := hdr.Get("Content-Disposition"); raw != "" {
		disposition := raw
		if i := strings.IndexByte(raw, ';'); i >= 0 {
			disposition = raw[:i]
		}
		part.ContentDisposition = strings.TrimSpace(disposition)
		if _, params, err := mime.ParseMediaType(raw); err == nil {
			part.DispositionFileName = params["filename"]
		}
	}

	return part
}
