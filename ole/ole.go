// Package ole provides the OLE/CFB (Compound File Binary) container
// boundary: the full format — FAT and mini-FAT sector chains,
// red-black directory tree, transacted writes — is an
// external-collaborator concern in production (a fuller reader is
// swapped in via the Storage interface). This package defines that
// interface and ships a minimal reference reader good enough to
// enumerate and extract whole streams for the fixture sizes this
// pipeline targets: full-FAT sector chains only, no mini-stream
// defragmentation, no write support.
package ole

import (
	"encoding/binary"
	"io"
	"unicode/utf16"

	"github.com/mailchannels/docflow/docerr"
)

const (
	sectorSize   = 512
	headerSize   = 512
	freeSect     = 0xFFFFFFFF
	endOfChain   = 0xFFFFFFFE
	fatSect      = 0xFFFFFFFD
	difatSect    = 0xFFFFFFFC
	dirEntrySize = 128
)

var signature = [8]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// Storage is the minimal surface the xls parser and the Outlook detector
// need from an OLE compound file. A production deployment may wire in a
// more complete implementation; this interface is the seam.
type Storage interface {
	// Streams lists the directory-entry name of every stream in the
	// container (e.g. "Workbook", "__substg1.0_0037001F"); a stream inside
	// a sub-storage is listed under its own name, without a storage path.
	Streams() []string
	// OpenStream returns a reader over the named stream's full
	// contents.
	OpenStream(name string) (io.ReadSeeker, error)
	// IsEncrypted reports whether the container carries a FILEPASS-style
	// encryption marker (checked by the xls parser via
	// assert-not-encrypted before any record decoding begins).
	IsEncrypted() bool
}

type dirEntry struct {
	name       string
	objectType byte
	startSect  uint32
	size       uint64
	children   []int
}

type storage struct {
	sectorSize int
	fat        []uint32
	entries    []dirEntry
	data       []byte // whole file, sectors indexed directly off this
}

// Open parses r as a Compound File Binary container of the given total
// size, returning a Storage over its stream tree.
func Open(r io.ReaderAt, size int64) (Storage, error) {
	buf := make([]byte, size)
	if _, err := r.ReadAt(buf, 0); err != nil && err != io.EOF {
		return nil, docerr.Wrap(docerr.IOFailure, "read ole container", err)
	}
	if len(buf) < headerSize || !bytesEqual(buf[0:8], signature[:]) {
		return nil, docerr.New(docerr.UninterpretableData, "not an OLE compound file (bad signature)")
	}

	secShift := binary.LittleEndian.Uint16(buf[30:32])
	secSize := 1 << secShift
	numFATSectors := binary.LittleEndian.Uint32(buf[44:48])
	firstDirSector := binary.LittleEndian.Uint32(buf[48:52])
	numDIFATSectors := binary.LittleEndian.Uint32(buf[72:76])

	s := &storage{sectorSize: secSize, data: buf}

	// DIFAT: first 109 entries live in the header itself.
	difat := make([]uint32, 0, numFATSectors)
	for i := 0; i < 109 && uint32(len(difat)) < numFATSectors; i++ {
		off := 76 + i*4
		v := binary.LittleEndian.Uint32(buf[off : off+4])
		if v == freeSect {
			break
		}
		difat = append(difat, v)
	}
	if numDIFATSectors > 0 {
		// Additional DIFAT sectors are not followed in this minimal
		// reader; containers needing more than 109 FAT sectors
		// (roughly a 7MB+ file at 512-byte sectors) exceed this
		// reference backing's scope.
		return nil, docerr.New(docerr.ExternalLibraryFailure, "ole container too large for minimal reader (extended DIFAT unsupported)")
	}

	fat := make([]uint32, 0, len(difat)*secSize/4)
	for _, sectorID := range difat {
		sec, err := s.sector(sectorID)
		if err != nil {
			return nil, err
		}
		for i := 0; i+4 <= len(sec); i += 4 {
			fat = append(fat, binary.LittleEndian.Uint32(sec[i:i+4]))
		}
	}
	s.fat = fat

	// Walk the directory stream's FAT chain starting at firstDirSector,
	// collecting dirEntrySize-byte entries.
	dirBytes, err := s.readChain(firstDirSector)
	if err != nil {
		return nil, err
	}
	for off := 0; off+dirEntrySize <= len(dirBytes); off += dirEntrySize {
		e := parseDirEntry(dirBytes[off : off+dirEntrySize])
		s.entries = append(s.entries, e)
	}

	return s, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func parseDirEntry(b []byte) dirEntry {
	nameLen := binary.LittleEndian.Uint16(b[64:66])
	var name string
	if nameLen >= 2 {
		u16 := make([]uint16, 0, (nameLen-2)/2)
		for i := 0; i+2 <= int(nameLen)-2; i += 2 {
			u16 = append(u16, binary.LittleEndian.Uint16(b[i:i+2]))
		}
		name = string(utf16.Decode(u16))
	}
	objType := b[66]
	startSect := binary.LittleEndian.Uint32(b[116:120])
	size := binary.LittleEndian.Uint64(b[120:128])
	return dirEntry{name: name, objectType: objType, startSect: startSect, size: size}
}

func (s *storage) sector(id uint32) ([]byte, error) {
	start := headerSize + int(id)*s.sectorSize
	end := start + s.sectorSize
	if start < 0 || end > len(s.data) {
		return nil, docerr.New(docerr.UninterpretableData, "ole sector out of range")
	}
	return s.data[start:end], nil
}

// readChain follows the FAT chain starting at startSect, concatenating
// every sector's bytes until endOfChain.
func (s *storage) readChain(startSect uint32) ([]byte, error) {
	var out []byte
	id := startSect
	seen := map[uint32]bool{}
	for id != endOfChain && id != freeSect {
		if seen[id] {
			return nil, docerr.New(docerr.UninterpretableData, "ole FAT chain cycle detected")
		}
		seen[id] = true
		sec, err := s.sector(id)
		if err != nil {
			return nil, err
		}
		out = append(out, sec...)
		if int(id) >= len(s.fat) {
			return nil, docerr.New(docerr.UninterpretableData, "ole FAT chain runs past FAT table")
		}
		id = s.fat[id]
	}
	return out, nil
}

func (s *storage) Streams() []string {
	names := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		// objectType 2 == stream; 1 == storage (sub-folder); 5 == root.
		if e.objectType == 2 {
			names = append(names, e.name)
		}
	}
	return names
}

func (s *storage) OpenStream(name string) (io.ReadSeeker, error) {
	for _, e := range s.entries {
		if e.objectType == 2 && e.name == name {
			full, err := s.readChain(e.startSect)
			if err != nil {
				return nil, err
			}
			if uint64(len(full)) > e.size {
				full = full[:e.size]
			}
			return &sliceReadSeeker{data: full}, nil
		}
	}
	return nil, docerr.New(docerr.IOFailure, "ole stream not found: "+name)
}

// IsEncrypted looks for Excel's FILEPASS record signature (0x002F) in
// the Workbook stream, the standard BIFF marker that the workbook uses
// RC4/XOR obfuscation and cannot be decoded further without a key. Only
// detection is implemented; no decryption is attempted — encryption
// handling here is detect-then-fail, never decrypt.
func (s *storage) IsEncrypted() bool {
	for _, name := range []string{"Workbook", "Book"} {
		r, err := s.OpenStream(name)
		if err != nil {
			continue
		}
		buf, err := io.ReadAll(r)
		if err != nil {
			continue
		}
		for off := 0; off+4 <= len(buf); {
			recType := binary.LittleEndian.Uint16(buf[off : off+2])
			recLen := binary.LittleEndian.Uint16(buf[off+2 : off+4])
			if recType == 0x002F { // FILEPASS
				return true
			}
			off += 4 + int(recLen)
		}
	}
	return false
}

type sliceReadSeeker struct {
	data []byte
	pos  int64
}

func (r *sliceReadSeeker) Read(p []byte) (int, error) {
	if r.pos >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += int64(n)
	return n, nil
}

func (r *sliceReadSeeker) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = r.pos
	case io.SeekEnd:
		base = int64(len(r.data))
	}
	newPos := base + offset
	if newPos < 0 {
		return 0, docerr.New(docerr.IOFailure, "negative seek position")
	}
	r.pos = newPos
	return r.pos, nil
}
