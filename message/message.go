// Package message defines the polymorphic document-event stream:
// a closed set of message variants flowing through the chain, the
// Continuation a consumer returns to its producer, and the small value
// types (Position, Styling, Metadata) that attach to structural variants.
//
// Rather than a tagged union plus a visitor, Message is a single struct
// wrapping exactly one payload value from a closed set, dispatched with
// a type switch on Kind.
package message

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/mailchannels/docflow/docerr"
)

// Continuation signals proceed/skip/stop back to a message's producer.
// Only structural openers honor Skip; all other variants
// treat Skip as Proceed.
type Continuation int

const (
	Proceed Continuation = iota
	Skip
	Stop
)

func (c Continuation) String() string {
	switch c {
	case Proceed:
		return "proceed"
	case Skip:
		return "skip"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// Position locates a text run or image in source coordinate space.
// All fields are optional; a zero value with every Has* flag false
// means "not positioned".
type Position struct {
	X, Y, Width, Height float64
	HasX, HasY, HasWidth, HasHeight bool
}

// Styling attaches to any structural variant.
type Styling struct {
	Classes []string
	ID      string
	Style   string
}

// EmailAttrs is the email-specific subset of Metadata.
type EmailAttrs struct {
	From    string
	Date    time.Time
	To      []string
	Subject string
	ReplyTo string
	Sender  string
}

// DateTime is a broken-down calendar value: OLE
// summary-info sources are UTC by convention, MIME dates carry their
// declared zone, so this keeps both the parsed time.Time and a flag for
// whether the zone was authoritative.
type DateTime struct {
	time.Time
	ZoneKnown bool
}

// Metadata is obtained via a callback attached to a Document message,
// evaluated lazily so it is cheap to construct a Document before the
// decoder has finished scanning enough of the source to answer these
// questions.
type Metadata struct {
	Author               string
	CreationDate         *DateTime
	LastModifiedBy        string
	LastModificationDate *DateTime
	PageCount            int
	WordCount            int
	HasEmailAttrs        bool
	EmailAttrs           EmailAttrs
}

// MetadataFunc is the lazy metadata callback attached to a Document
// message. It must remain valid until the corresponding CloseDocument is
// emitted because it may hold a reference into the parser's
// still-mutating decoded state (e.g. an OOXML core.xml reader that hasn't
// finished streaming).
type MetadataFunc func() (Metadata, error)

// Kind identifies which payload a Message carries. The zero Kind is
// KindDataSourceRef, the Kind that FromDataSource sets.
type Kind int

const (
	KindDataSourceRef Kind = iota
	KindFile
	KindDocument
	KindCloseDocument
	KindPage
	KindClosePage
	KindParagraph
	KindCloseParagraph
	KindSection
	KindCloseSection
	KindSpan
	KindCloseSpan
	KindBold
	KindCloseBold
	KindItalic
	KindCloseItalic
	KindUnderline
	KindCloseUnderline
	KindBreakLine
	KindText
	KindLink
	KindCloseLink
	KindImage
	KindStyle
	KindList
	KindCloseList
	KindListItem
	KindCloseListItem
	KindTable
	KindCloseTable
	KindTableRow
	KindCloseTableRow
	KindTableCell
	KindCloseTableCell
	KindCaption
	KindCloseCaption
	KindHeader
	KindCloseHeader
	KindFooter
	KindCloseFooter
	KindComment
	KindMail
	KindCloseMail
	KindMailBody
	KindCloseMailBody
	KindAttachment
	KindCloseAttachment
	KindFolder
	KindCloseFolder
	KindError
)

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

var kindNames = map[Kind]string{
	KindDataSourceRef:   "DataSource",
	KindFile:            "File",
	KindDocument:        "Document",
	KindCloseDocument:   "CloseDocument",
	KindPage:            "Page",
	KindClosePage:       "ClosePage",
	KindParagraph:       "Paragraph",
	KindCloseParagraph:  "CloseParagraph",
	KindSection:         "Section",
	KindCloseSection:    "CloseSection",
	KindSpan:            "Span",
	KindCloseSpan:       "CloseSpan",
	KindBold:            "Bold",
	KindCloseBold:       "CloseBold",
	KindItalic:          "Italic",
	KindCloseItalic:     "CloseItalic",
	KindUnderline:       "Underline",
	KindCloseUnderline:  "CloseUnderline",
	KindBreakLine:       "BreakLine",
	KindText:            "Text",
	KindLink:            "Link",
	KindCloseLink:       "CloseLink",
	KindImage:           "Image",
	KindStyle:           "Style",
	KindList:            "List",
	KindCloseList:       "CloseList",
	KindListItem:        "ListItem",
	KindCloseListItem:   "CloseListItem",
	KindTable:           "Table",
	KindCloseTable:      "CloseTable",
	KindTableRow:        "TableRow",
	KindCloseTableRow:   "CloseTableRow",
	KindTableCell:       "TableCell",
	KindCloseTableCell:  "CloseTableCell",
	KindCaption:         "Caption",
	KindCloseCaption:    "CloseCaption",
	KindHeader:          "Header",
	KindCloseHeader:     "CloseHeader",
	KindFooter:          "Footer",
	KindCloseFooter:     "CloseFooter",
	KindComment:         "Comment",
	KindMail:            "Mail",
	KindCloseMail:       "CloseMail",
	KindMailBody:        "MailBody",
	KindCloseMailBody:   "CloseMailBody",
	KindAttachment:      "Attachment",
	KindCloseAttachment: "CloseAttachment",
	KindFolder:          "Folder",
	KindCloseFolder:     "CloseFolder",
	KindError:           "Error",
}

// openerCloser maps every structural opener Kind to its matching closer,
// read through Closer/IsOpener/IsCloser by EmitOpener and by
// exporters that need to know, generically, what a closer un-does.
var openerCloser = map[Kind]Kind{
	KindDocument:   KindCloseDocument,
	KindPage:       KindClosePage,
	KindParagraph:  KindCloseParagraph,
	KindSection:    KindCloseSection,
	KindSpan:       KindCloseSpan,
	KindBold:       KindCloseBold,
	KindItalic:     KindCloseItalic,
	KindUnderline:  KindCloseUnderline,
	KindLink:       KindCloseLink,
	KindList:       KindCloseList,
	KindListItem:   KindCloseListItem,
	KindTable:      KindCloseTable,
	KindTableRow:   KindCloseTableRow,
	KindTableCell:  KindCloseTableCell,
	KindCaption:    KindCloseCaption,
	KindHeader:     KindCloseHeader,
	KindFooter:     KindCloseFooter,
	KindMail:       KindCloseMail,
	KindMailBody:   KindCloseMailBody,
	KindAttachment: KindCloseAttachment,
	KindFolder:     KindCloseFolder,
}

// Closer returns the closer Kind matching an opener, and ok=false if k is
// not a structural opener.
func Closer(k Kind) (Kind, bool) {
	c, ok := openerCloser[k]
	return c, ok
}

// IsOpener reports whether k is a structural opener with a matching closer.
func IsOpener(k Kind) bool {
	_, ok := openerCloser[k]
	return ok
}

// IsCloser reports whether k is a structural closer.
func IsCloser(k Kind) bool {
	for _, c := range openerCloser {
		if c == k {
			return true
		}
	}
	return false
}

// Message is a type-erased container holding exactly one payload value
// drawn from the closed Kind set. Construct one with the
// constructor functions below (Paragraph, Text, Mail, ...) rather than
// the zero value.
type Message struct {
	Kind    Kind
	Styling *Styling

	// Payload fields: exactly the ones relevant to Kind are populated.
	// A single struct (rather than an interface{} payload) keeps
	// allocation-free construction and avoids a second type switch on
	// top of Kind.
	Text  string
	Image *Image
	Mail  *MailInfo
	Attachment *AttachmentInfo
	Folder *FolderInfo
	File  *FileInfo
	Link  *LinkInfo
	List  *ListInfo
	Comment *CommentInfo
	Style string
	Position *Position
	FontSize float64
	HasFontSize bool

	Document *DocumentInfo
	Err      *docerr.Error
}

// DocumentInfo carries the lazy Metadata callback.
type DocumentInfo struct {
	Metadata MetadataFunc
}

// Image is the payload of an Image message. Source is itself a DataSource
// (declared as an opaque reference here to avoid an import cycle between
// message and datasource; datasource.DataSource implements this).
type Image struct {
	Source            DataSourceRef
	Alt               string
	HasAlt            bool
	StructuredContent  []Message
}

// DataSourceRef is the minimal surface message needs from a DataSource,
// avoiding a circular import between the message and datasource packages.
// datasource.DataSource satisfies this interface.
type DataSourceRef interface {
	ID() uint64
}

// LinkInfo is the payload of a Link message.
type LinkInfo struct {
	URL    string
	HasURL bool
}

// ListInfo is the payload of a List message.
type ListInfo struct {
	Type string // "ordered" | "unordered"
}

// CommentInfo is the payload of a Comment message.
type CommentInfo struct {
	Author  string
	HasAuthor bool
	Time    *time.Time
	Text    string
	HasText bool
}

// FileInfo is the payload of a File message: a recursive entry
// point via a path or stream, plus an optional display name.
type FileInfo struct {
	Path      string
	HasPath   bool
	Source    DataSourceRef
	Name      string
	HasName   bool
}

// MailInfo is the payload of a Mail message. CorrelationID is a random
// UUID generated when the Mail message is constructed; the Attachment
// messages emitted under this Mail carry their own, unrelated IDs.
type MailInfo struct {
	Subject       string
	HasSubject    bool
	Date          *time.Time
	Level         int
	HasLevel      bool
	CorrelationID string
}

// AttachmentInfo is the payload of an Attachment message. CorrelationID
// is a random UUID generated when the Attachment message is constructed;
// the messages produced by parsing the attachment's content do not
// carry it.
// HumanSize is Size rendered for logging, not for display to an end user.
type AttachmentInfo struct {
	Name          string
	HasName       bool
	Size          int64
	HumanSize     string
	Extension     string
	HasExtension  bool
	CorrelationID string
}

// FolderInfo is the payload of a Folder message (mail container hierarchy).
type FolderInfo struct {
	Name    string
	HasName bool
	Level   int
	HasLevel bool
}

// --- constructors -----------------------------------------------------

func simple(k Kind) Message { return Message{Kind: k} }

func Document(meta MetadataFunc) Message {
	return Message{Kind: KindDocument, Document: &DocumentInfo{Metadata: meta}}
}
func CloseDocument() Message { return simple(KindCloseDocument) }

func Page() Message      { return simple(KindPage) }
func ClosePage() Message { return simple(KindClosePage) }

func Paragraph() Message      { return simple(KindParagraph) }
func CloseParagraph() Message { return simple(KindCloseParagraph) }

func Section() Message      { return simple(KindSection) }
func CloseSection() Message { return simple(KindCloseSection) }

func Span() Message      { return simple(KindSpan) }
func CloseSpan() Message { return simple(KindCloseSpan) }

func Bold() Message       { return simple(KindBold) }
func CloseBold() Message  { return simple(KindCloseBold) }
func Italic() Message     { return simple(KindItalic) }
func CloseItalic() Message { return simple(KindCloseItalic) }
func Underline() Message  { return simple(KindUnderline) }
func CloseUnderline() Message { return simple(KindCloseUnderline) }

func BreakLine() Message { return simple(KindBreakLine) }

// Text constructs a Text message with optional position and font size.
func Text(text string, pos *Position, fontSize float64, hasFontSize bool) Message {
	return Message{Kind: KindText, Text: text, Position: pos, FontSize: fontSize, HasFontSize: hasFontSize}
}

func Link(url string, hasURL bool) Message {
	return Message{Kind: KindLink, Link: &LinkInfo{URL: url, HasURL: hasURL}}
}
func CloseLink() Message { return simple(KindCloseLink) }

func ImageMsg(source DataSourceRef, alt string, hasAlt bool, pos *Position) Message {
	return Message{Kind: KindImage, Image: &Image{Source: source, Alt: alt, HasAlt: hasAlt}, Position: pos}
}

func Style(cssText string) Message { return Message{Kind: KindStyle, Style: cssText} }

func List(listType string) Message { return Message{Kind: KindList, List: &ListInfo{Type: listType}} }
func CloseList() Message           { return simple(KindCloseList) }
func ListItem() Message            { return simple(KindListItem) }
func CloseListItem() Message       { return simple(KindCloseListItem) }

func Table() Message           { return simple(KindTable) }
func CloseTable() Message      { return simple(KindCloseTable) }
func TableRow() Message        { return simple(KindTableRow) }
func CloseTableRow() Message   { return simple(KindCloseTableRow) }
func TableCell() Message       { return simple(KindTableCell) }
func CloseTableCell() Message  { return simple(KindCloseTableCell) }

func Caption() Message      { return simple(KindCaption) }
func CloseCaption() Message { return simple(KindCloseCaption) }
func Header() Message       { return simple(KindHeader) }
func CloseHeader() Message  { return simple(KindCloseHeader) }
func Footer() Message       { return simple(KindFooter) }
func CloseFooter() Message  { return simple(KindCloseFooter) }

func Comment(author string, hasAuthor bool, t *time.Time, text string, hasText bool) Message {
	return Message{Kind: KindComment, Comment: &CommentInfo{Author: author, HasAuthor: hasAuthor, Time: t, Text: text, HasText: hasText}}
}

func Mail(subject string, hasSubject bool, date *time.Time, level int, hasLevel bool) Message {
	return Message{Kind: KindMail, Mail: &MailInfo{
		Subject:       subject,
		HasSubject:    hasSubject,
		Date:          date,
		Level:         level,
		HasLevel:      hasLevel,
		CorrelationID: uuid.NewString(),
	}}
}
func CloseMail() Message { return simple(KindCloseMail) }

func MailBody() Message      { return simple(KindMailBody) }
func CloseMailBody() Message { return simple(KindCloseMailBody) }

func Attachment(name string, hasName bool, size int64, extension string, hasExtension bool) Message {
	return Message{Kind: KindAttachment, Attachment: &AttachmentInfo{
		Name:          name,
		HasName:       hasName,
		Size:          size,
		HumanSize:     humanize.Bytes(uint64(size)),
		Extension:     extension,
		HasExtension:  hasExtension,
		CorrelationID: uuid.NewString(),
	}}
}
func CloseAttachment() Message { return simple(KindCloseAttachment) }

func Folder(name string, hasName bool, level int, hasLevel bool) Message {
	return Message{Kind: KindFolder, Folder: &FolderInfo{Name: name, HasName: hasName, Level: level, HasLevel: hasLevel}}
}
func CloseFolder() Message { return simple(KindCloseFolder) }

func File(path string, hasPath bool, source DataSourceRef, name string, hasName bool) Message {
	return Message{Kind: KindFile, File: &FileInfo{Path: path, HasPath: hasPath, Source: source, Name: name, HasName: hasName}}
}

func FromDataSource(ds DataSourceRef) Message {
	return Message{Kind: KindDataSourceRef, Image: nil, File: &FileInfo{Source: ds}}
}

func Error(err *docerr.Error) Message {
	return Message{Kind: KindError, Err: err}
}
