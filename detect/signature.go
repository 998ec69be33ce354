package detect

import "github.com/mailchannels/docflow/mimetype"

// signatureEntry is one byte-prefix magic-number rule, in the same
// (offset, prefix, type) shape as perkeep's pkg/magic prefixTable — the
// grounding for this whole probe — trimmed to the document formats this
// pipeline dispatches on rather than perkeep's full media-type catalog.
type signatureEntry struct {
	offset int
	prefix []byte
	mtype  mimetype.Type
}

var signatureTable = []signatureEntry{
	{0, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, mimetype.XLS}, // OLE compound file; refined by the OLE probe
	{0, []byte("%PDF"), mimetype.PDF},
	{0, []byte{'P', 'K', 3, 4}, mimetype.Zip}, // OOXML/ODF/iWork/plain zip; refined by later probes
	{0, []byte("{\\rtf"), mimetype.RTF},
	{0, []byte("<?xml"), mimetype.XML},
	{257, []byte("ustar"), mimetype.Tar},
}

// matchSignature returns the first signatureTable entry whose prefix
// matches head at its offset, and ok=false if none match.
func matchSignature(head []byte) (mimetype.Type, bool) {
	for _, e := range signatureTable {
		end := e.offset + len(e.prefix)
		if end > len(head) {
			continue
		}
		match := true
		for i, b := range e.prefix {
			if head[e.offset+i] != b {
				match = false
				break
			}
		}
		if match {
			return e.mtype, true
		}
	}
	return "", false
}
