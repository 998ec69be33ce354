// Package datasource implements the DataSource abstraction: a uniform
// handle over any of several ways content can be supplied to the
// pipeline — a filesystem path, an in-memory buffer, a sub-span of a
// buffer, a string, a seekable stream, or an unseekable stream — plus the
// accumulated MIME-type hypotheses the detection cascade attaches to it.
//
// An unseekable stream is read once; bytes read are mirrored into a
// memCache (cache.go, a flush-on-full growing buffer adapted to never
// flush since the cache itself is the materialized span) so a second
// caller — typically a parser running after a detector already consumed
// a probe prefix — is served from memory instead of re-reading a stream
// that cannot be rewound.
package datasource

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/mailchannels/docflow/docerr"
	"github.com/mailchannels/docflow/mimetype"
)

// backing identifies which variant of source a DataSource wraps.
type backing int

const (
	backingPath backing = iota
	backingBuffer
	backingSpan
	backingString
	backingSeekableStream
	backingUnseekableStream
)

var nextID uint64

// hypothesis is one MIME-type guess attached by a detector, with the
// confidence it was made at.
type hypothesis struct {
	Type       mimetype.Type
	Confidence mimetype.Confidence
}

// DataSource is a handle over document bytes, however they were supplied.
// The zero value is not usable; construct one with the package's FromX
// functions.
type DataSource struct {
	id      uint64
	backing backing

	path string

	buf       []byte // backingBuffer and backingSpan share this field
	spanStart int64
	spanLen   int64

	str string

	seekable   io.ReadSeeker
	unseekable io.Reader
	cache      *memCache

	extension    string
	hasExtension bool

	hypotheses []hypothesis
}

func newID() uint64 {
	return atomic.AddUint64(&nextID, 1)
}

// ID returns the process-unique identifier assigned to this DataSource at
// construction, used to correlate log lines and cross-reference a
// re-entrant parse (e.g. an Attachment's nested DataSource) back to its
// origin.
func (d *DataSource) ID() uint64 { return d.id }

// FromPath wraps a filesystem path. The file is not opened until Stream,
// Span, or String is called.
func FromPath(path string) *DataSource {
	ds := &DataSource{id: newID(), backing: backingPath, path: path}
	ds.extension, ds.hasExtension = extensionOf(path)
	return ds
}

// FromBuffer wraps an in-memory byte slice the caller already owns. The
// slice is retained, not copied; callers must not mutate it afterward.
func FromBuffer(b []byte) *DataSource {
	return &DataSource{id: newID(), backing: backingBuffer, buf: b}
}

// FromSpan wraps a byte-offset window into a buffer the caller already
// owns — e.g. one part of a multipart MIME body, or one member of an
// archive's central directory, without copying the rest of the parent
// buffer.
func FromSpan(parent []byte, offset, length int64) *DataSource {
	return &DataSource{id: newID(), backing: backingSpan, buf: parent, spanStart: offset, spanLen: length}
}

// FromString wraps a string directly, useful when a parser has already
// decoded text and wants to feed it back through the pipeline as a new
// DataSource (e.g. re-entrant parsing of a data: URL payload).
func FromString(s string) *DataSource {
	return &DataSource{id: newID(), backing: backingString, str: s}
}

// FromSeekableStream wraps an io.ReadSeeker. Span and String rewind and
// read directly; no cache is needed since the stream can always be
// re-read from the start.
func FromSeekableStream(r io.ReadSeeker) *DataSource {
	return &DataSource{id: newID(), backing: backingSeekableStream, seekable: r}
}

// FromUnseekableStream wraps a plain io.Reader that cannot be rewound
// (e.g. a network socket or a pipe). Bytes read through Stream are
// mirrored into an internal cache so later callers can still obtain the
// full span.
func FromUnseekableStream(r io.Reader) *DataSource {
	return &DataSource{id: newID(), backing: backingUnseekableStream, unseekable: r, cache: &memCache{}}
}

// FromNamedStream is FromUnseekableStream plus a display name the
// extension probe can use, for sources that arrive as a stream with a
// known filename but no filesystem path (an HTTP upload, an archive
// member re-entrantly parsed from memory).
func FromNamedStream(r io.Reader, name string) *DataSource {
	ds := FromUnseekableStream(r)
	ds.extension, ds.hasExtension = extensionOf(name)
	return ds
}

// Path returns the filesystem path backing this DataSource, and whether
// it is path-backed at all.
func (d *DataSource) Path() (string, bool) {
	if d.backing == backingPath {
		return d.path, true
	}
	return "", false
}

// FileExtension returns the lower-cased extension (without the leading
// dot) inferred from the path, or ok=false if this DataSource has no
// associated name.
func (d *DataSource) FileExtension() (string, bool) {
	return d.extension, d.hasExtension
}

func extensionOf(path string) (string, bool) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", false
	}
	return strings.ToLower(strings.TrimPrefix(ext, ".")), true
}

// Stream returns an io.Reader positioned at the start of the content.
// For stream-backed sources this may only be called once per logical
// pass for the unseekable case beyond what's cached; repeated calls
// against a seekable or materialized source always restart from byte 0.
func (d *DataSource) Stream() (io.Reader, error) {
	switch d.backing {
	case backingPath:
		f, err := os.Open(d.path)
		if err != nil {
			return nil, docerr.Wrap(docerr.IOFailure, "open path", err).WithContext(docerr.Frame{"path": d.path})
		}
		return f, nil
	case backingBuffer:
		return bytes.NewReader(d.buf), nil
	case backingSpan:
		return bytes.NewReader(d.spanBytes()), nil
	case backingString:
		return strings.NewReader(d.str), nil
	case backingSeekableStream:
		if _, err := d.seekable.Seek(0, io.SeekStart); err != nil {
			return nil, docerr.Wrap(docerr.IOFailure, "seek to start", err)
		}
		return d.seekable, nil
	case backingUnseekableStream:
		if d.cache.complete {
			return bytes.NewReader(d.cache.bytes()), nil
		}
		if len(d.cache.bytes()) > 0 {
			// Partially drained already: replay what's cached, then
			// continue mirroring the remainder of the live stream.
			return io.MultiReader(bytes.NewReader(d.cache.bytes()), &cachingReader{src: d.unseekable, cache: d.cache}), nil
		}
		return &cachingReader{src: d.unseekable, cache: d.cache}, nil
	default:
		return nil, docerr.New(docerr.IOFailure, "unrecognized data source backing")
	}
}

func (d *DataSource) spanBytes() []byte {
	end := d.spanStart + d.spanLen
	if end > int64(len(d.buf)) {
		end = int64(len(d.buf))
	}
	if d.spanStart >= int64(len(d.buf)) {
		return nil
	}
	return d.buf[d.spanStart:end]
}

// Span reads and returns up to length bytes starting at offset,
// materializing a stream-backed source into the cache if necessary —
// the key algorithm behind lazy cache materialization.
func (d *DataSource) Span(offset, length int64) ([]byte, error) {
	switch d.backing {
	case backingBuffer:
		return sliceWithin(d.buf, offset, length), nil
	case backingSpan:
		full := d.spanBytes()
		return sliceWithin(full, offset, length), nil
	case backingString:
		return sliceWithin([]byte(d.str), offset, length), nil
	case backingSeekableStream:
		if _, err := d.seekable.Seek(offset, io.SeekStart); err != nil {
			return nil, docerr.Wrap(docerr.IOFailure, "seek", err)
		}
		out := make([]byte, length)
		n, err := io.ReadFull(d.seekable, out)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return nil, docerr.Wrap(docerr.IOFailure, "read span", err)
		}
		return out[:n], nil
	case backingPath:
		f, err := os.Open(d.path)
		if err != nil {
			return nil, docerr.Wrap(docerr.IOFailure, "open path", err).WithContext(docerr.Frame{"path": d.path})
		}
		defer f.Close()
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return nil, docerr.Wrap(docerr.IOFailure, "seek", err)
		}
		out := make([]byte, length)
		n, err := io.ReadFull(f, out)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return nil, docerr.Wrap(docerr.IOFailure, "read span", err)
		}
		return out[:n], nil
	case backingUnseekableStream:
		if err := d.materialize(offset + length); err != nil {
			return nil, err
		}
		return sliceWithin(d.cache.bytes(), offset, length), nil
	default:
		return nil, docerr.New(docerr.IOFailure, "unrecognized data source backing")
	}
}

// materialize drains the unseekable stream into the cache until at least
// upTo bytes are buffered or the stream is exhausted.
func (d *DataSource) materialize(upTo int64) error {
	for int64(len(d.cache.bytes())) < upTo && !d.cache.complete {
		buf := make([]byte, 32*1024)
		n, err := d.unseekable.Read(buf)
		if n > 0 {
			d.cache.write(buf[:n])
		}
		if err == io.EOF {
			d.cache.complete = true
			break
		}
		if err != nil {
			return docerr.Wrap(docerr.IOFailure, "materialize stream", err)
		}
	}
	return nil
}

func sliceWithin(b []byte, offset, length int64) []byte {
	if offset >= int64(len(b)) {
		return nil
	}
	end := offset + length
	if end > int64(len(b)) {
		end = int64(len(b))
	}
	return b[offset:end]
}

// String returns the content decoded as UTF-8 text, capped at maxBytes
// (0 means unlimited). An unseekable stream is materialized into the
// cache only up to maxBytes (all of it when maxBytes is 0); every other
// backing is read directly through Stream.
func (d *DataSource) String(maxBytes int64) (string, error) {
	var all []byte
	var err error
	switch d.backing {
	case backingUnseekableStream:
		if maxBytes > 0 {
			err = d.materialize(maxBytes)
			all = sliceWithin(d.cache.bytes(), 0, maxBytes)
		} else {
			err = d.materialize(1 << 62)
			all = d.cache.bytes()
		}
	default:
		r, serr := d.Stream()
		if serr != nil {
			return "", serr
		}
		if maxBytes > 0 {
			all, err = io.ReadAll(io.LimitReader(r, maxBytes))
		} else {
			all, err = io.ReadAll(r)
		}
		if rc, ok := r.(io.Closer); ok {
			rc.Close()
		}
	}
	if err != nil {
		return "", err
	}
	return string(all), nil
}

// AddMimeHypothesis records a detector's guess at this source's MIME
// type, at the stated confidence. Detectors
// run in a fixed cascade order and confidence is expected to be
// monotonically non-decreasing across the cascade, but DataSource itself
// does not enforce that — it is the cascade's invariant, not the
// container's.
func (d *DataSource) AddMimeHypothesis(t mimetype.Type, c mimetype.Confidence) {
	d.hypotheses = append(d.hypotheses, hypothesis{Type: t.Normalize(), Confidence: c.Clamp()})
}

// MimeTypeConfidence returns the highest confidence recorded for the
// given type, or ok=false if no detector ever hypothesized it.
func (d *DataSource) MimeTypeConfidence(t mimetype.Type) (mimetype.Confidence, bool) {
	t = t.Normalize()
	found := false
	var best mimetype.Confidence
	for _, h := range d.hypotheses {
		if h.Type == t && (!found || h.Confidence > best) {
			best = h.Confidence
			found = true
		}
	}
	return best, found
}

// HighestMimeTypeConfidence returns the type with the single highest
// recorded confidence across all hypotheses. Ties keep the first type
// reaching that confidence, matching detector cascade order.
func (d *DataSource) HighestMimeTypeConfidence() (mimetype.Type, mimetype.Confidence, bool) {
	if len(d.hypotheses) == 0 {
		return "", 0, false
	}
	best := d.hypotheses[0]
	for _, h := range d.hypotheses[1:] {
		if h.Confidence > best.Confidence {
			best = h
		}
	}
	return best.Type, best.Confidence, true
}

// HasHighestConfidenceMimeTypeIn reports whether the type currently
// holding the highest confidence is a member of set, used by parsers to
// self-select from a dispatch table.
func (d *DataSource) HasHighestConfidenceMimeTypeIn(set mimetype.Set) bool {
	t, _, ok := d.HighestMimeTypeConfidence()
	if !ok {
		return false
	}
	return set.Contains(t)
}

// AssertNotEncrypted returns a *docerr.Error with Kind FileEncrypted if
// any recorded hypothesis names one of mimetype.EncryptedHints at
// mimetype.Medium confidence or above, nil otherwise. This is the shared
// pre-decode guard every format parser calls before it starts emitting
// Document/Page/... messages.
func (d *DataSource) AssertNotEncrypted() error {
	for _, h := range d.hypotheses {
		if mimetype.EncryptedHints.Contains(h.Type) && h.Confidence.AtLeast(mimetype.Medium) {
			return docerr.New(docerr.FileEncrypted, fmt.Sprintf("source hypothesized as encrypted (%s)", h.Type)).
				WithContext(docerr.Frame{"mime_type": string(h.Type), "confidence": int(h.Confidence)})
		}
	}
	return nil
}
