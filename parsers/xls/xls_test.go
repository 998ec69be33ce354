package xls

import (
	"encoding/binary"
	"testing"
)

func biffRecord(typ uint16, data []byte) []byte {
	hdr := make([]byte, 4)
	binary.LittleEndian.PutUint16(hdr[0:2], typ)
	binary.LittleEndian.PutUint16(hdr[2:4], uint16(len(data)))
	return append(hdr, data...)
}

func TestScanRecordsSplicesContinue(t *testing.T) {
	first := biffRecord(recSST, []byte{1, 2, 3, 4})
	cont := biffRecord(recCONTINUE, []byte{5, 6})
	stream := append(first, cont...)

	records, err := scanRecords(stream)
	if err != nil {
		t.Fatalf("scanRecords: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1 (continue should splice)", len(records))
	}
	want := []byte{1, 2, 3, 4, 5, 6}
	if string(records[0].data) != string(want) {
		t.Fatalf("got data %v, want %v", records[0].data, want)
	}
}

func TestReadUnicodeStringSingleByte(t *testing.T) {
	b := []byte{5, 0, 0x00, 'h', 'e', 'l', 'l', 'o'}
	s, next, ok := readUnicodeString(b, 0)
	if !ok {
		t.Fatal("expected ok")
	}
	if s != "hello" {
		t.Fatalf("got %q, want hello", s)
	}
	if next != len(b) {
		t.Fatalf("got next %d, want %d", next, len(b))
	}
}

func TestDecodeRKInteger(t *testing.T) {
	// bit1 set => 30-bit signed int, value 42.
	rk := uint32(42) << 2
	rk |= 0x02
	if got := decodeRK(rk); got != 42 {
		t.Fatalf("got %v, want 42", got)
	}
}

func TestFormatFloatWholeNumber(t *testing.T) {
	if got := formatFloat(100); got != "100" {
		t.Fatalf("got %q, want 100", got)
	}
}

func TestFormatFloatFraction(t *testing.T) {
	got := formatFloat(1.5)
	if got != "1.5" {
		t.Fatalf("got %q, want 1.5", got)
	}
}
