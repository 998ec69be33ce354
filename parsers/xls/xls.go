// Package xls implements the legacy BIFF8 spreadsheet format (Excel 97
// and later), read out of an OLE compound-file container via the ole
// package's Storage abstraction; the record layouts of earlier BIFF
// versions are not handled. It understands exactly the records needed to
// recover text content: BOF/EOF substream framing, BOUNDSHEET sheet
// names, the SST shared-string table, ROW/cell records (LABELSST, LABEL,
// RK, MULRK, NUMBER), and CONTINUE record splicing.
package xls

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"

	"github.com/mailchannels/docflow/chain"
	"github.com/mailchannels/docflow/datasource"
	"github.com/mailchannels/docflow/docerr"
	"github.com/mailchannels/docflow/log"
	"github.com/mailchannels/docflow/message"
	"github.com/mailchannels/docflow/mimetype"
	"github.com/mailchannels/docflow/ole"
)

// BIFF record type codes used by this reader. Unlisted record types are
// skipped whole.
const (
	recBOF        = 0x0809
	recEOF        = 0x000A
	recBOUNDSHEET = 0x0085
	recSST        = 0x00FC
	recCONTINUE   = 0x003C
	recLABELSST   = 0x00FD
	recNUMBER     = 0x0203
	recRK         = 0x027E
	recMULRK      = 0x00BD
	recROW        = 0x0208
	recLABEL      = 0x0204
	recFILEPASS   = 0x002F
)

// Parser decodes XLS (BIFF8) sources.
type Parser struct{}

// New returns a ready-to-register Parser.
func New() *Parser { return &Parser{} }

func (*Parser) SupportedTypes() mimetype.Set {
	return mimetype.NewSet(mimetype.XLS)
}

func (*Parser) Parse(_ context.Context, ds *datasource.DataSource, emit chain.Emitter, logger log.Logger) (message.Continuation, error) {
	full, err := ds.String(0)
	if err != nil {
		return message.Proceed, docerr.Wrap(docerr.IOFailure, "read xls source", err)
	}
	raw := []byte(full)

	container, err := ole.Open(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return message.Proceed, docerr.Wrap(docerr.UninterpretableData, "open xls ole container", err)
	}
	if container.IsEncrypted() {
		return message.Proceed, docerr.New(docerr.FileEncrypted, "workbook stream has a FILEPASS record")
	}

	wbName := ""
	for _, name := range container.Streams() {
		if name == "Workbook" || name == "Book" {
			wbName = name
			break
		}
	}
	if wbName == "" {
		return message.Proceed, docerr.New(docerr.UninterpretableData, "no Workbook/Book stream in xls container")
	}
	stream, err := container.OpenStream(wbName)
	if err != nil {
		return message.Proceed, docerr.Wrap(docerr.IOFailure, "open workbook stream", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(stream); err != nil {
		return message.Proceed, docerr.Wrap(docerr.IOFailure, "read workbook stream", err)
	}

	records, err := scanRecords(buf.Bytes())
	if err != nil {
		return message.Proceed, docerr.Wrap(docerr.UninterpretableData, "scan biff records", err)
	}

	shared := readSST(records)
	sheets := readBoundsheets(records)

	proceed, cont, err := message.EmitOpener(emit, message.Document(func() (message.Metadata, error) {
		return message.Metadata{}, nil
	}))
	if err != nil || cont == message.Stop {
		return cont, err
	}
	if !proceed {
		return cont, nil
	}

	for _, sh := range sheets {
		var emitErr error
		cont, emitErr = emitSheet(records, sh, shared, emit)
		if emitErr != nil || cont == message.Stop {
			return cont, emitErr
		}
	}

	return emit.Emit(message.CloseDocument())
}

type record struct {
	typ    uint16
	data   []byte
	offset int
}

// scanRecords walks the BIFF stream into a flat list of records,
// splicing any CONTINUE record's payload onto the immediately preceding
// record (SST strings and long labels routinely span CONTINUE
// boundaries).
func scanRecords(data []byte) ([]record, error) {
	var records []record
	pos := 0
	for pos+4 <= len(data) {
		typ := binary.LittleEndian.Uint16(data[pos : pos+2])
		length := int(binary.LittleEndian.Uint16(data[pos+2 : pos+4]))
		start := pos
		pos += 4
		if pos+length > len(data) {
			break
		}
		payload := data[pos : pos+length]
		pos += length

		if typ == recCONTINUE && len(records) > 0 {
			last := &records[len(records)-1]
			last.data = append(last.data, payload...)
			continue
		}
		records = append(records, record{typ: typ, data: payload, offset: start})
	}
	return records, nil
}

// readSST extracts the shared string table from the (already
// CONTINUE-spliced) SST record, if present. Rich-text formatting runs
// and phonetic data following each string are skipped; only the raw
// text is kept.
func readSST(records []record) []string {
	for _, r := range records {
		if r.typ != recSST {
			continue
		}
		if len(r.data) < 8 {
			return nil
		}
		count := int(binary.LittleEndian.Uint32(r.data[4:8]))
		pos := 8
		strs := make([]string, 0, count)
		for i := 0; i < count && pos+3 <= len(r.data); i++ {
			s, next, ok := readUnicodeString(r.data, pos)
			if !ok {
				break
			}
			strs = append(strs, s)
			pos = next
		}
		return strs
	}
	return nil
}

// readUnicodeString decodes a BIFF8 XLUnicodeString at offset pos:
// a uint16 char count, a flags byte (bit 0 = double-byte), optionally a
// richtext run count and an extended-data byte length, then the
// character data itself. Only plain single-byte/double-byte text is
// handled; rich-text runs and extended (Far East) data are skipped by
// their declared lengths.
func readUnicodeString(b []byte, pos int) (string, int, bool) {
	if pos+3 > len(b) {
		return "", pos, false
	}
	charCount := int(binary.LittleEndian.Uint16(b[pos : pos+2]))
	flags := b[pos+2]
	pos += 3
	doubleByte := flags&0x01 != 0
	richRuns := 0
	if flags&0x08 != 0 {
		if pos+2 > len(b) {
			return "", pos, false
		}
		richRuns = int(binary.LittleEndian.Uint16(b[pos : pos+2]))
		pos += 2
	}
	extLen := 0
	if flags&0x04 != 0 {
		if pos+4 > len(b) {
			return "", pos, false
		}
		extLen = int(binary.LittleEndian.Uint32(b[pos : pos+4]))
		pos += 4
	}

	byteLen := charCount
	if doubleByte {
		byteLen = charCount * 2
	}
	if pos+byteLen > len(b) {
		return "", pos, false
	}
	var runes []uint16
	if doubleByte {
		for i := 0; i < charCount; i++ {
			runes = append(runes, binary.LittleEndian.Uint16(b[pos+i*2:pos+i*2+2]))
		}
	} else {
		for i := 0; i < charCount; i++ {
			runes = append(runes, uint16(b[pos+i]))
		}
	}
	pos += byteLen
	pos += richRuns * 4
	pos += extLen

	out := make([]rune, len(runes))
	for i, u := range runes {
		out[i] = rune(u)
	}
	return string(out), pos, true
}

type boundsheet struct {
	name   string
	offset uint32
}

func readBoundsheets(records []record) []boundsheet {
	var out []boundsheet
	for _, r := range records {
		if r.typ != recBOUNDSHEET || len(r.data) < 6 {
			continue
		}
		offset := binary.LittleEndian.Uint32(r.data[0:4])
		name, _, ok := readUnicodeString(r.data, 5)
		if !ok {
			name = ""
		}
		out = append(out, boundsheet{name: name, offset: offset})
	}
	return out
}

// emitSheet finds sh's BOF record by stream offset and walks forward
// through the record list, emitting one TableRow per ROW record and one
// TableCell per recognized cell record, until the matching EOF.
func emitSheet(records []record, sh boundsheet, shared []string, emit chain.Emitter) (message.Continuation, error) {
	start := -1
	for i, r := range records {
		if r.typ == recBOF && uint32(r.offset) == sh.offset {
			start = i
			break
		}
	}
	if start < 0 {
		return message.Proceed, nil
	}

	tableProceed, cont, err := message.EmitOpener(emit, message.Table())
	if err != nil || cont == message.Stop {
		return cont, err
	}
	if !tableProceed {
		return cont, nil
	}

	inRow := false
	skipRow := false
	for i := start + 1; i < len(records); i++ {
		r := records[i]
		if r.typ == recEOF {
			break
		}
		switch r.typ {
		case recROW:
			if inRow && !skipRow {
				cont, err = emit.Emit(message.CloseTableRow())
				if err != nil || cont == message.Stop {
					return cont, err
				}
			}
			rowProceed, c, rerr := message.EmitOpener(emit, message.TableRow())
			cont, err = c, rerr
			inRow = true
			skipRow = !rowProceed
			if err != nil || cont == message.Stop {
				return cont, err
			}
		case recLABELSST:
			if skipRow || len(r.data) < 10 {
				continue
			}
			idx := int(binary.LittleEndian.Uint32(r.data[6:10]))
			text := ""
			if idx >= 0 && idx < len(shared) {
				text = shared[idx]
			}
			if cont, err = emitCell(emit, text); err != nil || cont == message.Stop {
				return cont, err
			}
		case recLABEL:
			if skipRow {
				continue
			}
			text, _, _ := readUnicodeString(r.data, 6)
			if cont, err = emitCell(emit, text); err != nil || cont == message.Stop {
				return cont, err
			}
		case recNUMBER:
			if skipRow || len(r.data) < 14 {
				continue
			}
			v := math.Float64frombits(binary.LittleEndian.Uint64(r.data[6:14]))
			if cont, err = emitCell(emit, formatFloat(v)); err != nil || cont == message.Stop {
				return cont, err
			}
		case recRK:
			if skipRow || len(r.data) < 10 {
				continue
			}
			v := decodeRK(binary.LittleEndian.Uint32(r.data[6:10]))
			if cont, err = emitCell(emit, formatFloat(v)); err != nil || cont == message.Stop {
				return cont, err
			}
		case recMULRK:
			if skipRow {
				continue
			}
			for off := 6; off+6 <= len(r.data)-2; off += 6 {
				v := decodeRK(binary.LittleEndian.Uint32(r.data[off+2 : off+6]))
				if cont, err = emitCell(emit, formatFloat(v)); err != nil || cont == message.Stop {
					return cont, err
				}
			}
		}
	}
	if inRow && !skipRow {
		cont, err = emit.Emit(message.CloseTableRow())
		if err != nil || cont == message.Stop {
			return cont, err
		}
	}
	return emit.Emit(message.CloseTable())
}

func emitCell(emit chain.Emitter, text string) (message.Continuation, error) {
	cont, err := emit.Emit(message.TableCell())
	if err != nil || cont == message.Stop {
		return cont, err
	}
	cont, err = emit.Emit(message.Text(text, nil, 0, false))
	if err != nil || cont == message.Stop {
		return cont, err
	}
	return emit.Emit(message.CloseTableCell())
}

// decodeRK unpacks a BIFF RK-encoded number: when bit 1 is set the upper
// 30 bits are a signed integer; when it is clear they are the top 30
// bits of an IEEE double (its low 34 bits zero). Bit 0 requests the
// result be divided by 100.
func decodeRK(rk uint32) float64 {
	var v float64
	if rk&0x02 != 0 {
		v = float64(int32(rk) >> 2)
	} else {
		bits := uint64(rk&0xFFFFFFFC) << 32
		v = math.Float64frombits(bits)
	}
	if rk&0x01 != 0 {
		v /= 100
	}
	return v
}

func formatFloat(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return intString(int64(v))
	}
	return formatDecimal(v)
}

func intString(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

// formatDecimal renders v with up to 10 significant fractional digits,
// trimming trailing zeros; good enough for cell text, not a general
// float formatter.
func formatDecimal(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	whole := int64(v)
	frac := v - float64(whole)
	out := intString(whole)
	if frac > 1e-12 {
		out += "."
		for i := 0; i < 10 && frac > 1e-12; i++ {
			frac *= 10
			d := int64(frac)
			out += string(byte('0' + d))
			frac -= float64(d)
		}
	}
	if neg {
		out = "-" + out
	}
	return out
}
