// Package detect implements the content-type detection cascade (spec
// §4.2): a fixed sequence of probes, each attaching a MIME-type
// hypothesis to a DataSource. Run calls every probe on every source,
// cheap byte-prefix probes first and zip/OLE container probes after;
// no probe looks at what an earlier one hypothesized.
package detect

import (
	"archive/zip"
	"bytes"
	"strings"

	"github.com/mailchannels/docflow/datasource"
	"github.com/mailchannels/docflow/log"
	"github.com/mailchannels/docflow/mimetype"
	"github.com/mailchannels/docflow/ole"
)

// probeBytes is how much of the source each byte-level probe inspects.
// Signature/ASP/HTML/ODF-flat probes only ever need a small prefix; the
// zip- and OLE-backed probes (iWork, Outlook, XLSB) open the container
// structure directly instead of scanning bytes.
const probeBytes = 4096

// extensionTable maps a lower-cased file extension (without the dot) to
// the MIME type it weakly implies, at the cascade's lowest confidence:
// an extension is trivially spoofable.
var extensionTable = map[string]mimetype.Type{
	"pdf":  mimetype.PDF,
	"xls":  mimetype.XLS,
	"xlsx": mimetype.XLSX,
	"xlsb": mimetype.XLSB,
	"docx": mimetype.DOCX,
	"pptx": mimetype.PPTX,
	"odt":  mimetype.ODT,
	"ods":  mimetype.ODS,
	"odp":  mimetype.ODP,
	"html": mimetype.HTML,
	"htm":  mimetype.HTML,
	"xml":  mimetype.XML,
	"txt":  mimetype.Plain,
	"rtf":  mimetype.RTF,
	"eml":  mimetype.RFC822,
	"msg":  mimetype.Outlook,
	"pst":  mimetype.OutlookPST,
	"asp":  mimetype.ASP,
	"aspx": mimetype.ASPDotNet,
	"zip":  mimetype.Zip,
	"tar":  mimetype.Tar,
	"pages": mimetype.Pages,
	"numbers": mimetype.Numbers,
	"key":  mimetype.Keynote,
}

// Run executes the full fixed-order cascade against ds, attaching every
// hypothesis a probe produces. It never returns an error for a probe
// that simply finds nothing to hypothesize; it only returns an error if
// reading the source itself failed.
func Run(ds *datasource.DataSource, logger log.Logger) error {
	head, err := ds.Span(0, probeBytes)
	if err != nil {
		return err
	}

	byExtension(ds)
	bySignature(ds, head)
	byASP(ds, head)
	byHTML(ds, head)
	byODFFlat(ds, head)
	byOOXML(ds, logger)
	byODFZip(ds, logger)
	byIWork(ds, logger)
	byOutlook(ds, logger)
	byXLSB(ds, logger)

	return nil
}

func byExtension(ds *datasource.DataSource) {
	ext, ok := ds.FileExtension()
	if !ok {
		return
	}
	if t, ok := extensionTable[ext]; ok {
		ds.AddMimeHypothesis(t, mimetype.Low)
	}
}

func bySignature(ds *datasource.DataSource, head []byte) {
	if t, ok := matchSignature(head); ok {
		ds.AddMimeHypothesis(t, mimetype.Medium)
	}
}

// byASP distinguishes classic ASP ("<%...%>" with VBScript-flavored
// directives) from ASP.NET (a "<%@ Page" directive, or a
// "runat=\"server\"" attribute), both of which otherwise look like
// ordinary HTML/text to the signature probe.
func byASP(ds *datasource.DataSource, head []byte) {
	s := string(head)
	lower := strings.ToLower(s)
	if !strings.Contains(s, "<%") {
		return
	}
	switch {
	case strings.Contains(lower, "<%@ page") || strings.Contains(lower, "runat=\"server\""):
		ds.AddMimeHypothesis(mimetype.ASPDotNet, mimetype.High)
	default:
		ds.AddMimeHypothesis(mimetype.ASP, mimetype.High)
	}
}

func byHTML(ds *datasource.DataSource, head []byte) {
	lower := strings.ToLower(string(head))
	if strings.Contains(lower, "<!doctype html") || strings.Contains(lower, "<html") {
		ds.AddMimeHypothesis(mimetype.HTML, mimetype.High)
	}
}

// byODFFlat detects the single-file "flat XML" ODF variant (.fodt/.fods/
// .fodp), distinguishable from zip-packaged ODF only by its root element
// namespace, since it has no zip signature at all.
func byODFFlat(ds *datasource.DataSource, head []byte) {
	s := string(head)
	if !strings.Contains(s, "office:document") {
		return
	}
	switch {
	case strings.Contains(s, "office:mimetype=\"application/vnd.oasis.opendocument.text\""):
		ds.AddMimeHypothesis(mimetype.ODTFlat, mimetype.VeryHigh)
	case strings.Contains(s, "application/vnd.oasis.opendocument.spreadsheet"):
		ds.AddMimeHypothesis(mimetype.ODS, mimetype.VeryHigh)
	case strings.Contains(s, "application/vnd.oasis.opendocument.presentation"):
		ds.AddMimeHypothesis(mimetype.ODP, mimetype.VeryHigh)
	default:
		ds.AddMimeHypothesis(mimetype.ODTFlat, mimetype.High)
	}
}

// zipEntryNames opens ds as a zip central directory and returns its
// member names, or nil if ds is not a valid zip (including plain,
// non-archive content — this is not an error, just "no hypothesis").
func zipEntryNames(ds *datasource.DataSource, logger log.Logger) []string {
	full, err := ds.String(0)
	if err != nil {
		return nil
	}
	r, err := zip.NewReader(strings.NewReader(full), int64(len(full)))
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names
}

// hasZipEntry is a tiny helper over a name list, kept bytes-equal to
// avoid repeated String() materialization in each zip-backed probe.
func hasZipEntry(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

var zipEntryCache = map[uint64][]string{}

func cachedZipEntries(ds *datasource.DataSource, logger log.Logger) []string {
	if names, ok := zipEntryCache[ds.ID()]; ok {
		return names
	}
	names := zipEntryNames(ds, logger)
	zipEntryCache[ds.ID()] = names
	return names
}

// byOOXML refines a zip-backed candidate to one of the Office Open XML
// formats by the presence of its format-defining part, distinguishing
// docx/xlsx/pptx from a plain zip or an ODF package that also happens to
// carry the "PK\x03\x04" signature.
func byOOXML(ds *datasource.DataSource, logger log.Logger) {
	names := cachedZipEntries(ds, logger)
	if names == nil || !hasZipEntry(names, "[Content_Types].xml") {
		return
	}
	switch {
	case hasZipEntry(names, "word/document.xml"):
		ds.AddMimeHypothesis(mimetype.DOCX, mimetype.VeryHigh)
	case hasZipEntry(names, "xl/workbook.xml"):
		ds.AddMimeHypothesis(mimetype.XLSX, mimetype.VeryHigh)
	case hasZipEntry(names, "ppt/presentation.xml"):
		ds.AddMimeHypothesis(mimetype.PPTX, mimetype.VeryHigh)
	}
}

// byODFZip refines a zip-backed candidate to one of the OpenDocument
// formats by reading its uncompressed "mimetype" entry, the format's own
// self-declaration, rather than guessing from part names the way the
// OOXML probe must.
func byODFZip(ds *datasource.DataSource, logger log.Logger) {
	names := cachedZipEntries(ds, logger)
	if names == nil || !hasZipEntry(names, "mimetype") {
		return
	}
	full, err := ds.String(0)
	if err != nil {
		return
	}
	r, err := zip.NewReader(strings.NewReader(full), int64(len(full)))
	if err != nil {
		return
	}
	for _, f := range r.File {
		if f.Name != "mimetype" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return
		}
		defer rc.Close()
		buf := make([]byte, 128)
		n, _ := rc.Read(buf)
		declared := string(buf[:n])
		switch {
		case strings.Contains(declared, "opendocument.text"):
			ds.AddMimeHypothesis(mimetype.ODT, mimetype.VeryHigh)
		case strings.Contains(declared, "opendocument.spreadsheet"):
			ds.AddMimeHypothesis(mimetype.ODS, mimetype.VeryHigh)
		case strings.Contains(declared, "opendocument.presentation"):
			ds.AddMimeHypothesis(mimetype.ODP, mimetype.VeryHigh)
		}
		return
	}
}

// byIWork identifies Apple iWork '13+ packages, which are zip archives
// carrying an "Index/Document.iwa" (or a top-level *.iwa for newer
// releases) protobuf-encoded document instead of XML.
func byIWork(ds *datasource.DataSource, logger log.Logger) {
	names := cachedZipEntries(ds, logger)
	if names == nil {
		return
	}
	for _, n := range names {
		if strings.HasPrefix(n, "Index/Document.iwa") || strings.HasSuffix(n, ".iwa") {
			ds.AddMimeHypothesis(mimetype.IWorkPages, mimetype.VeryHigh)
			return
		}
	}
}

// byOutlook opens ds as an OLE compound file and adds an Outlook
// hypothesis at VeryHigh when any stream name starts with
// "__properties_version1.0" or "__substg1.0_". It does not recurse into
// embedded messages and does not tell .msg from .pst apart;
// outlookProbe accepts allowMultiple but does not use it.
func byOutlook(ds *datasource.DataSource, logger log.Logger) {
	outlookProbe(ds, logger, true)
}

func outlookProbe(ds *datasource.DataSource, logger log.Logger, allowMultiple bool) {
	head, err := ds.Span(0, 8)
	if err != nil || !bytes.Equal(head, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}) {
		return
	}
	full, err := ds.String(0)
	if err != nil {
		return
	}
	st, err := ole.Open(strings.NewReader(full), int64(len(full)))
	if err != nil {
		if logger != nil {
			logger.WithSource(ds.ID(), "detect.outlook").Debug("not a valid OLE container, skipping outlook probe")
		}
		return
	}
	for _, name := range st.Streams() {
		if strings.HasPrefix(name, "__properties_version1.0") || strings.HasPrefix(name, "__substg1.0_") {
			ds.AddMimeHypothesis(mimetype.Outlook, mimetype.VeryHigh)
			return
		}
	}
	_ = allowMultiple
}

// byXLSB refines a zip-backed candidate to the binary (BIFF12) Excel
// format by checking for "xl/workbook.bin" instead of
// "xl/workbook.xml", which OOXML's own probe would otherwise also match
// loosely on the shared "xl/" prefix.
func byXLSB(ds *datasource.DataSource, logger log.Logger) {
	names := cachedZipEntries(ds, logger)
	if names == nil {
		return
	}
	if hasZipEntry(names, "xl/workbook.bin") {
		ds.AddMimeHypothesis(mimetype.XLSB, mimetype.Highest)
	}
}
