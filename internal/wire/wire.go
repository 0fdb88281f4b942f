// Package wire frames cached payloads with the metadata the freshness policy
// and the artifact builder need: fetch time and version for source entries,
// source version for derived artifacts. Anything that fails strict validation
// is reported as corrupt and self-healed by the caller.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	version      byte = 1
	kindEntry    byte = 1
	kindArtifact byte = 2
)

var (
	ErrCorrupt = errors.New("qingque: corrupt cache envelope")
	magic4     = [...]byte{'Q', 'Q', 'C', 'E'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Entry is a cached source resource.
type Entry struct {
	FetchedAt time.Time
	Version   string
	Payload   []byte
}

// Artifact is a cached derived payload pinned to the source version it was
// rendered from.
type Artifact struct {
	SourceVersion string
	Payload       []byte
}

// Entry: magic(4) | ver(1) | kind(1=entry) | fetchedAt unixnano (i64 be) |
// vlen(u16 be) | version(vlen) | plen(u32 be) | payload(plen)
func EncodeEntry(fetchedAt time.Time, ver string, payload []byte) []byte {
	return encode(kindEntry, fetchedAt.UnixNano(), ver, payload)
}

// Artifact: magic(4) | ver(1) | kind(2=artifact) |
// vlen(u16 be) | sourceVersion(vlen) | plen(u32 be) | payload(plen)
func EncodeArtifact(sourceVersion string, payload []byte) []byte {
	return encode(kindArtifact, 0, sourceVersion, payload)
}

func encode(kind byte, nanos int64, ver string, payload []byte) []byte {
	if len(ver) > 0xFFFF {
		panic("qingque: version tag too long")
	}
	size := 4 + 1 + 1 + 2 + len(ver) + 4 + len(payload)
	if kind == kindEntry {
		size += 8
	}

	var buf bytes.Buffer
	buf.Grow(size)

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kind)

	var u8 [8]byte
	var u4 [4]byte
	var u2 [2]byte

	if kind == kindEntry {
		binary.BigEndian.PutUint64(u8[:], uint64(nanos))
		buf.Write(u8[:])
	}

	binary.BigEndian.PutUint16(u2[:], uint16(len(ver)))
	buf.Write(u2[:])
	buf.WriteString(ver)

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])
	buf.Write(payload)

	return buf.Bytes()
}

func DecodeEntry(b []byte) (Entry, error) {
	const hdr = 4 + 1 + 1 + 8 + 2 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version || b[5] != kindEntry {
		return Entry{}, ErrCorrupt
	}
	off := 6

	nanos := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	ver, payload, err := decodeTail(b, off)
	if err != nil {
		return Entry{}, err
	}
	return Entry{FetchedAt: time.Unix(0, nanos), Version: ver, Payload: payload}, nil
}

func DecodeArtifact(b []byte) (Artifact, error) {
	const hdr = 4 + 1 + 1 + 2 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version || b[5] != kindArtifact {
		return Artifact{}, ErrCorrupt
	}
	ver, payload, err := decodeTail(b, 6)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{SourceVersion: ver, Payload: payload}, nil
}

// decodeTail reads version-string | payload starting at off.
func decodeTail(b []byte, off int) (string, []byte, error) {
	if off+2 > len(b) {
		return "", nil, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	if vlen > len(b)-off {
		return "", nil, ErrCorrupt
	}
	ver := string(b[off : off+vlen])
	off += vlen

	if off+4 > len(b) {
		return "", nil, ErrCorrupt
	}
	plen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if plen < 0 || plen != len(b)-off { // overflow-safe, no trailing garbage
		return "", nil, ErrCorrupt
	}
	return ver, b[off : off+plen], nil
}
