// Package mimetype defines the MimeType newtype and the Confidence scale
// used throughout the detection cascade and parser dispatch.
package mimetype

import "strings"

// Type is a MIME type string constrained to the "type/subtype" lexical
// form. Equality is case-insensitive over ASCII, so comparisons always go
// through Equal or Normalize rather than raw string comparison.
type Type string

// Normalize lower-cases all of t with strings.ToLower, including any
// parameters trailing a ';'.
func (t Type) Normalize() Type {
	return Type(strings.ToLower(string(t)))
}

// Equal compares two MIME types case-insensitively over ASCII.
func (t Type) Equal(other Type) bool {
	return strings.EqualFold(string(t), string(other))
}

// String implements fmt.Stringer.
func (t Type) String() string {
	return string(t)
}

// Confidence is an integer in [0, 100] expressing a detector's certainty
// about a MIME-type hypothesis.
type Confidence int

// Named confidence thresholds used by every detector.
const (
	Low       Confidence = 30
	Medium    Confidence = 60
	High      Confidence = 80
	VeryHigh  Confidence = 90
	Highest   Confidence = 99
	Certain   Confidence = 100
	Zero      Confidence = 0
	MaxConfidence Confidence = 100
)

// Clamp constrains c to [0, 100].
func (c Confidence) Clamp() Confidence {
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	default:
		return c
	}
}

// AtLeast reports whether c meets or exceeds threshold.
func (c Confidence) AtLeast(threshold Confidence) bool {
	return c >= threshold
}

// Set is an unordered collection of MIME types, used by
// DataSource.HasHighestConfidenceMimeTypeIn.
type Set map[Type]struct{}

// NewSet builds a Set from the given types, normalizing each.
func NewSet(types ...Type) Set {
	s := make(Set, len(types))
	for _, t := range types {
		s[t.Normalize()] = struct{}{}
	}
	return s
}

// Contains reports whether t (case-insensitively) is a member of s.
func (s Set) Contains(t Type) bool {
	_, ok := s[t.Normalize()]
	return ok
}

// Canonical MIME type strings used for parser dispatch.
const (
	PDF                  Type = "application/pdf"
	XLS                  Type = "application/vnd.ms-excel"
	XLSMacroEnabled12    Type = "application/vnd.ms-excel.sheet.macroenabled.12"
	DOCX                 Type = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	XLSX                 Type = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	XLSB                 Type = "application/vnd.ms-excel.sheet.binary.macroenabled.12"
	PPTX                 Type = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	ODT                  Type = "application/vnd.oasis.opendocument.text"
	ODS                  Type = "application/vnd.oasis.opendocument.spreadsheet"
	ODP                  Type = "application/vnd.oasis.opendocument.presentation"
	ODTFlat              Type = "application/vnd.oasis.opendocument.text-flat-xml"
	Pages                Type = "application/vnd.apple.pages"
	Numbers              Type = "application/vnd.apple.numbers"
	Keynote              Type = "application/vnd.apple.keynote"
	IWorkPages           Type = "application/x-iwork-pages-sffpages"
	Outlook              Type = "application/vnd.ms-outlook"
	OutlookPST           Type = "application/vnd.ms-outlook-pst"
	MSMessage            Type = "application/x-ms-msg"
	RFC822               Type = "message/rfc822"
	HTML                 Type = "text/html"
	ASP                  Type = "text/asp"
	ASPDotNet            Type = "text/aspdotnet"
	XML                  Type = "text/xml"
	Plain                Type = "text/plain"
	RTF                  Type = "application/rtf"
	TextRTF              Type = "text/rtf"
	RichText             Type = "text/richtext"
	PNG                  Type = "image/png"
	JPEG                 Type = "image/jpeg"
	TIFF                 Type = "image/tiff"
	BMP                  Type = "image/bmp"
	WEBP                 Type = "image/webp"
	Zip                  Type = "application/zip"
	Tar                  Type = "application/x-tar"
	OctetStream          Type = "application/octet-stream"
)

// EncryptedHints is the set of MIME subtypes that, when hypothesized,
// indicate the source is a password-protected container.
var EncryptedHints = NewSet(
	"application/vnd.ms-excel.sheet.encrypted",
	"application/x-ole-storage-encrypted",
	"application/pdf.encrypted",
)
