// Package header implements the self-describing descriptor stored at the
// front of the carrier buffer.
//
// The descriptor has two sections. The fixed section has a compile-time-known
// size, so extraction can read it blind; its flags and length fields then
// describe the variable metadata section that follows. Each section carries
// its own CRC32 so corruption, foreign images, and mismatched parameters are
// reported as format errors instead of decoding into garbage.
package header

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"pnger/pkg/stego/pattern"
	"pnger/pkg/stego/seed"
)

// Magic identifies a pnger descriptor.
var Magic = [4]byte{'P', 'N', 'G', 'R'}

// Version is the current wire format version.
const Version = 1

const (
	// FixedSize is the serialized size of the fixed section in bytes.
	FixedSize = 16

	// minMetaSize is pattern kind + bit index + CRC32.
	minMetaSize = 6

	crcSize = 4
)

// Flags describe what the rest of the descriptor contains.
type Flags uint8

const (
	// FlagObfuscated marks an XOR-transformed payload.
	FlagObfuscated Flags = 1 << 0

	// FlagRandomPattern marks a keyed random payload schedule.
	FlagRandomPattern Flags = 1 << 1
)

// seedKindShift positions the seed source kind in bits 2-3 of the flags.
const seedKindShift = 2

// SeedKind is the seed-acquisition path recorded in the flags.
type SeedKind uint8

const (
	// SeedNone: linear pattern, no seed involved.
	SeedNone SeedKind = iota

	// SeedAuto: seed and salt are stored in the metadata section.
	SeedAuto

	// SeedPassword: only the salt is stored; the password comes from the
	// caller at extraction time.
	SeedPassword

	// SeedManual: nothing is stored; the caller must re-supply the seed.
	SeedManual
)

// SeedKind extracts the seed source kind from the flags.
func (f Flags) SeedKind() SeedKind {
	return SeedKind(f >> seedKindShift & 0b11)
}

// WithSeedKind returns the flags with the seed source kind set.
func (f Flags) WithSeedKind(k SeedKind) Flags {
	return f&^(0b11<<seedKindShift) | Flags(k)<<seedKindShift
}

var (
	// ErrBadMagic indicates the buffer does not start with a pnger descriptor.
	ErrBadMagic = errors.New("header: bad magic")

	// ErrUnsupportedVersion indicates an unrecognized wire format version.
	ErrUnsupportedVersion = errors.New("header: unsupported version")

	// ErrChecksumMismatch indicates a section CRC disagreement: corrupted
	// data, a foreign image, or mismatched extraction parameters.
	ErrChecksumMismatch = errors.New("header: checksum mismatch")

	// ErrTruncated indicates the buffer is shorter than a section claims.
	ErrTruncated = errors.New("header: truncated")

	// ErrMalformed indicates internally inconsistent descriptor fields.
	ErrMalformed = errors.New("header: malformed")
)

// Fixed is the always-present section of the descriptor.
type Fixed struct {
	Version    uint8
	Flags      Flags
	PayloadLen uint32
	MetaLen    uint16
}

// TotalSize returns the serialized size of the full descriptor in bytes.
func (f *Fixed) TotalSize() int {
	return FixedSize + int(f.MetaLen)
}

// Metadata is the variable section of the descriptor.
type Metadata struct {
	PatternKind pattern.Kind
	BitIndex    uint8

	// Seed is non-nil only for SeedAuto.
	Seed *[seed.Size]byte

	// Salt is non-nil for SeedAuto and SeedPassword.
	Salt []byte
}

// Header is a complete descriptor.
type Header struct {
	Fixed Fixed
	Meta  Metadata
}

// Build assembles a descriptor for an embed operation. The metadata length
// and flags are derived from the arguments; payloadLen is the
// post-obfuscation payload length in bytes.
func Build(kind pattern.Kind, bitIndex uint8, payloadLen uint32, seedKind SeedKind, mat *seed.Material, obfuscated bool) (*Header, error) {
	var flags Flags
	if obfuscated {
		flags |= FlagObfuscated
	}
	if kind == pattern.Random {
		flags |= FlagRandomPattern
	}
	flags = flags.WithSeedKind(seedKind)

	meta := Metadata{PatternKind: kind, BitIndex: bitIndex}
	metaLen := minMetaSize
	switch seedKind {
	case SeedAuto:
		if mat == nil || mat.Salt == nil {
			return nil, fmt.Errorf("%w: auto seed source without material", ErrMalformed)
		}
		s := mat.Seed
		meta.Seed = &s
		meta.Salt = mat.Salt
		metaLen += seed.Size + 1 + len(mat.Salt)
	case SeedPassword:
		if mat == nil || mat.Salt == nil {
			return nil, fmt.Errorf("%w: password seed source without salt", ErrMalformed)
		}
		meta.Salt = mat.Salt
		metaLen += 1 + len(mat.Salt)
	case SeedNone, SeedManual:
		// Nothing stored.
	default:
		return nil, fmt.Errorf("%w: seed kind %d", ErrMalformed, seedKind)
	}
	if len(meta.Salt) > 255 {
		return nil, fmt.Errorf("%w: salt longer than 255 bytes", ErrMalformed)
	}

	return &Header{
		Fixed: Fixed{
			Version:    Version,
			Flags:      flags,
			PayloadLen: payloadLen,
			MetaLen:    uint16(metaLen),
		},
		Meta: meta,
	}, nil
}

// MarshalBinary serializes the descriptor: fixed section, its CRC, metadata
// section, its CRC. All integers big-endian.
func (h *Header) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(h.Fixed.TotalSize())

	buf.Write(Magic[:])
	buf.WriteByte(h.Fixed.Version)
	buf.WriteByte(byte(h.Fixed.Flags))
	var be [4]byte
	binary.BigEndian.PutUint32(be[:], h.Fixed.PayloadLen)
	buf.Write(be[:])
	binary.BigEndian.PutUint16(be[:2], h.Fixed.MetaLen)
	buf.Write(be[:2])
	binary.BigEndian.PutUint32(be[:], crc32.ChecksumIEEE(buf.Bytes()))
	buf.Write(be[:])

	metaStart := buf.Len()
	buf.WriteByte(byte(h.Meta.PatternKind))
	buf.WriteByte(h.Meta.BitIndex)
	if h.Meta.Seed != nil {
		buf.Write(h.Meta.Seed[:])
	}
	if h.Meta.Salt != nil {
		buf.WriteByte(byte(len(h.Meta.Salt)))
		buf.Write(h.Meta.Salt)
	}
	binary.BigEndian.PutUint32(be[:], crc32.ChecksumIEEE(buf.Bytes()[metaStart:]))
	buf.Write(be[:])

	if buf.Len() != h.Fixed.TotalSize() {
		return nil, fmt.Errorf("%w: encoded %d bytes, declared %d", ErrMalformed, buf.Len(), h.Fixed.TotalSize())
	}
	return buf.Bytes(), nil
}

// ParseFixed decodes and validates the fixed section from the first
// FixedSize bytes of b.
func ParseFixed(b []byte) (*Fixed, error) {
	if len(b) < FixedSize {
		return nil, fmt.Errorf("%w: %d bytes, fixed section needs %d", ErrTruncated, len(b), FixedSize)
	}
	if !bytes.Equal(b[:4], Magic[:]) {
		return nil, ErrBadMagic
	}
	f := &Fixed{
		Version:    b[4],
		Flags:      Flags(b[5]),
		PayloadLen: binary.BigEndian.Uint32(b[6:10]),
		MetaLen:    binary.BigEndian.Uint16(b[10:12]),
	}
	want := binary.BigEndian.Uint32(b[12:16])
	if got := crc32.ChecksumIEEE(b[:12]); got != want {
		return nil, fmt.Errorf("%w: fixed section crc %08x, computed %08x", ErrChecksumMismatch, want, got)
	}
	// CRC is checked first so a version bump with a valid checksum is
	// reported as unsupported rather than as corruption.
	if f.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, f.Version)
	}
	if f.MetaLen < minMetaSize {
		return nil, fmt.Errorf("%w: metadata length %d below minimum %d", ErrMalformed, f.MetaLen, minMetaSize)
	}
	return f, nil
}

// ParseMetadata decodes and validates the metadata section. b must be
// exactly the MetaLen bytes following the fixed section.
func ParseMetadata(f *Fixed, b []byte) (*Metadata, error) {
	if len(b) != int(f.MetaLen) {
		return nil, fmt.Errorf("%w: metadata is %d bytes, declared %d", ErrTruncated, len(b), f.MetaLen)
	}
	want := binary.BigEndian.Uint32(b[len(b)-crcSize:])
	if got := crc32.ChecksumIEEE(b[:len(b)-crcSize]); got != want {
		return nil, fmt.Errorf("%w: metadata crc %08x, computed %08x", ErrChecksumMismatch, want, got)
	}

	m := &Metadata{
		PatternKind: pattern.Kind(b[0]),
		BitIndex:    b[1],
	}
	rest := b[2 : len(b)-crcSize]

	kind := f.Flags.SeedKind()
	if kind == SeedAuto {
		if len(rest) < seed.Size {
			return nil, fmt.Errorf("%w: auto seed missing", ErrMalformed)
		}
		var s [seed.Size]byte
		copy(s[:], rest[:seed.Size])
		m.Seed = &s
		rest = rest[seed.Size:]
	}
	if kind == SeedAuto || kind == SeedPassword {
		if len(rest) < 1 {
			return nil, fmt.Errorf("%w: salt length missing", ErrMalformed)
		}
		saltLen := int(rest[0])
		rest = rest[1:]
		if len(rest) < saltLen {
			return nil, fmt.Errorf("%w: salt truncated", ErrMalformed)
		}
		m.Salt = append([]byte(nil), rest[:saltLen]...)
		rest = rest[saltLen:]
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing metadata bytes", ErrMalformed, len(rest))
	}

	if err := m.checkConsistency(f); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metadata) checkConsistency(f *Fixed) error {
	random := f.Flags&FlagRandomPattern != 0
	switch m.PatternKind {
	case pattern.Linear:
		if random {
			return fmt.Errorf("%w: random flag with linear pattern kind", ErrMalformed)
		}
		if f.Flags.SeedKind() != SeedNone {
			return fmt.Errorf("%w: seed source recorded for linear pattern", ErrMalformed)
		}
	case pattern.Random:
		if !random {
			return fmt.Errorf("%w: linear flag with random pattern kind", ErrMalformed)
		}
		if f.Flags.SeedKind() == SeedNone {
			return fmt.Errorf("%w: random pattern without seed source", ErrMalformed)
		}
	default:
		return fmt.Errorf("%w: pattern kind %d", ErrMalformed, m.PatternKind)
	}
	if m.BitIndex > 7 {
		return fmt.Errorf("%w: bit index %d", ErrMalformed, m.BitIndex)
	}
	return nil
}
