// Package kpar implements the kpar archive container: an ordered list
// of named file entries, each independently compressed, used to
// distribute an Interchange Project as a single file.
//
// Layout (all integers big-endian):
//
//	0..3   magic "KPAR"
//	4..7   format version (currently 1)
//	8..11  entry count
//	then per entry:
//	  method tag (1 byte), name length (uint16), name (UTF-8, '/'
//	  separated), uncompressed size (uint64), compressed size (uint64),
//	  SHA-256 of the uncompressed content (32 bytes), payload.
//
// The method tag is recorded per entry so an unpacker needs no prior
// knowledge of how the archive was built, and so entries may in
// principle mix methods within one archive.
package kpar

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	headerSize       = 12
	supportedVersion = 1

	// maxNameLen bounds entry names; maxEntrySize bounds a single
	// decompressed entry to keep hostile archives from exhausting memory.
	maxNameLen   = 4096
	maxEntrySize = 1 << 31
)

var magic = [4]byte{'K', 'P', 'A', 'R'}

// Method identifies the compression applied to one archive entry. The
// enumeration is closed: decoders must reject tags they do not know.
type Method uint8

const (
	Store Method = iota
	Deflate
	Bzip2
	Zstd
	Xz
	Ppmd
)

var methodNames = map[Method]string{
	Store:   "store",
	Deflate: "deflate",
	Bzip2:   "bzip2",
	Zstd:    "zstd",
	Xz:      "xz",
	Ppmd:    "ppmd",
}

// String returns the canonical lowercase method name.
func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("method(%d)", uint8(m))
}

// ParseMethod maps a method name to its tag.
func ParseMethod(name string) (Method, error) {
	for m, n := range methodNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown compression method %q", name)
}

// Methods returns all known method tags in tag order.
func Methods() []Method {
	return []Method{Store, Deflate, Bzip2, Zstd, Xz, Ppmd}
}

// Header is the fixed-size archive header.
type Header struct {
	Version    uint32
	NumEntries uint32
}

// Marshal serializes the header to its canonical 12 bytes.
func (h Header) Marshal() []byte {
	buf := make([]byte, headerSize)
	copy(buf[:4], magic[:])
	binary.BigEndian.PutUint32(buf[4:8], h.Version)
	binary.BigEndian.PutUint32(buf[8:12], h.NumEntries)
	return buf
}

// UnmarshalHeader parses and validates an archive header.
func UnmarshalHeader(data []byte) (*Header, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("header too short (%d bytes): %w", len(data), ErrCorruptArchive)
	}
	if string(data[:4]) != string(magic[:]) {
		return nil, fmt.Errorf("bad magic %q: %w", data[:4], ErrCorruptArchive)
	}
	version := binary.BigEndian.Uint32(data[4:8])
	if version != supportedVersion {
		return nil, fmt.Errorf("unsupported format version %d: %w", version, ErrCorruptArchive)
	}
	return &Header{
		Version:    version,
		NumEntries: binary.BigEndian.Uint32(data[8:12]),
	}, nil
}

// entryHeader is the per-entry metadata preceding the payload.
type entryHeader struct {
	Method   Method
	Name     string
	Size     uint64 // uncompressed
	Stored   uint64 // compressed
	Checksum [32]byte
}

func (e entryHeader) write(w io.Writer) error {
	if len(e.Name) > maxNameLen {
		return fmt.Errorf("entry name too long (%d bytes)", len(e.Name))
	}
	buf := make([]byte, 0, 1+2+len(e.Name)+8+8+32)
	buf = append(buf, byte(e.Method))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(e.Name)))
	buf = append(buf, e.Name...)
	buf = binary.BigEndian.AppendUint64(buf, e.Size)
	buf = binary.BigEndian.AppendUint64(buf, e.Stored)
	buf = append(buf, e.Checksum[:]...)
	_, err := w.Write(buf)
	return err
}

func readEntryHeader(r io.Reader) (*entryHeader, error) {
	var fixed [3]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return nil, fmt.Errorf("entry header: %v: %w", err, ErrCorruptArchive)
	}
	nameLen := binary.BigEndian.Uint16(fixed[1:3])
	if nameLen == 0 || nameLen > maxNameLen {
		return nil, fmt.Errorf("entry name length %d: %w", nameLen, ErrCorruptArchive)
	}
	rest := make([]byte, int(nameLen)+8+8+32)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, fmt.Errorf("entry header: %v: %w", err, ErrCorruptArchive)
	}
	e := &entryHeader{
		Method: Method(fixed[0]),
		Name:   string(rest[:nameLen]),
		Size:   binary.BigEndian.Uint64(rest[nameLen : nameLen+8]),
		Stored: binary.BigEndian.Uint64(rest[nameLen+8 : nameLen+16]),
	}
	copy(e.Checksum[:], rest[nameLen+16:])
	if e.Size > maxEntrySize || e.Stored > maxEntrySize {
		return nil, fmt.Errorf("entry %q exceeds size limit: %w", e.Name, ErrCorruptArchive)
	}
	return e, nil
}
