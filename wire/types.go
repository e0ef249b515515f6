package wire

import (
	"fmt"

	"github.com/anirudhraja/accelite/schema"
)

// ===== ACCEL WIRE FORMAT TYPES =====

// WireType is the 4-bit code carried in the low nibble of every tag. The
// numeric values are part of the format and must never be renumbered.
type WireType uint8

const (
	WireMissing        WireType = 0  // no value present
	WireFixed8         WireType = 1  // 1 byte: int8, uint8, bool
	WireFixed16        WireType = 2  // 2 bytes: int16, uint16, char
	WireFixed24        WireType = 3  // 3 bytes
	WireFixed32        WireType = 4  // 4 bytes: int32, uint32, float32
	WireFixed40        WireType = 5  // 5 bytes
	WireFixed48        WireType = 6  // 6 bytes
	WireFixed56        WireType = 7  // 7 bytes
	WireFixed64        WireType = 8  // 8 bytes: int64, uint64, float64
	WireFixed72        WireType = 9  // 9 bytes
	WireFixed80        WireType = 10 // 10 bytes
	WireFixed88        WireType = 11 // 11 bytes
	WireFixed96        WireType = 12 // 12 bytes
	WireFixed104       WireType = 13 // 13 bytes
	WireFixed128       WireType = 14 // 16 bytes; there is no 14 byte code
	WireLengthPrefixed WireType = 15 // varint length followed by that many bytes
)

// fixedSizes maps each code to its payload width. Zero means the code has no
// fixed width.
var fixedSizes = [16]uint8{
	WireFixed8:   1,
	WireFixed16:  2,
	WireFixed24:  3,
	WireFixed32:  4,
	WireFixed40:  5,
	WireFixed48:  6,
	WireFixed56:  7,
	WireFixed64:  8,
	WireFixed72:  9,
	WireFixed80:  10,
	WireFixed88:  11,
	WireFixed96:  12,
	WireFixed104: 13,
	WireFixed128: 16,
}

var wireTypeNames = [16]string{
	WireMissing:        "missing",
	WireFixed8:         "fixed8",
	WireFixed16:        "fixed16",
	WireFixed24:        "fixed24",
	WireFixed32:        "fixed32",
	WireFixed40:        "fixed40",
	WireFixed48:        "fixed48",
	WireFixed56:        "fixed56",
	WireFixed64:        "fixed64",
	WireFixed72:        "fixed72",
	WireFixed80:        "fixed80",
	WireFixed88:        "fixed88",
	WireFixed96:        "fixed96",
	WireFixed104:       "fixed104",
	WireFixed128:       "fixed128",
	WireLengthPrefixed: "length_prefixed",
}

// Valid reports whether t is one of the 16 catalog codes.
func (t WireType) Valid() bool {
	return t <= WireLengthPrefixed
}

// FixedSize returns the payload width of a fixed wire type. ok is false for
// WireMissing, WireLengthPrefixed and codes outside the catalog.
func (t WireType) FixedSize() (size int, ok bool) {
	if !t.Valid() || fixedSizes[t] == 0 {
		return 0, false
	}
	return int(fixedSizes[t]), true
}

func (t WireType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("wiretype(%d)", uint8(t))
	}
	return wireTypeNames[t]
}

// MarshalText renders the wire type by name in JSON and YAML output.
func (t WireType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// TypeForLength picks the wire type a payload of n bytes is written with:
// the fixed code of that exact width when one exists, otherwise
// WireLengthPrefixed. Widths 0, 14, 15 and anything above 16 are always
// length-prefixed.
func TypeForLength(n int) WireType {
	switch {
	case n >= 1 && n <= 13:
		return WireType(n)
	case n == 16:
		return WireFixed128
	default:
		return WireLengthPrefixed
	}
}

// FieldIndex is the caller-assigned identifier of a field. Indices need not
// be contiguous or sorted.
type FieldIndex uint32

// MaxFieldIndex is the largest index that survives the 4-bit shift into a
// 32-bit tag.
const MaxFieldIndex FieldIndex = schema.MaxFieldIndex

// Tag is a field index and wire type packed as index<<4 | wireType.
type Tag uint32

// MakeTag packs a field index and wire type into a tag.
func MakeTag(index FieldIndex, wireType WireType) Tag {
	return Tag(uint32(index)<<4 | uint32(wireType&0xF))
}

// ParseTag splits a tag into its field index and wire type.
func ParseTag(tag Tag) (FieldIndex, WireType) {
	return tag.Index(), tag.WireType()
}

// Index returns the field index carried by the tag.
func (t Tag) Index() FieldIndex {
	return FieldIndex(t >> 4)
}

// WireType returns the wire type carried by the tag.
func (t Tag) WireType() WireType {
	return WireType(t & 0xF)
}

// Uint128 is the value of a WireFixed128 field. Hi holds the most
// significant 64 bits regardless of the stream byte order.
type Uint128 struct {
	Hi uint64 `json:"hi" yaml:"hi"`
	Lo uint64 `json:"lo" yaml:"lo"`
}

// IsZero reports whether both halves are zero.
func (u Uint128) IsZero() bool {
	return u.Hi == 0 && u.Lo == 0
}

// FieldInfo describes one field seen while walking a stream without a schema.
type FieldInfo struct {
	Index    FieldIndex `json:"index" yaml:"index"`
	WireType WireType   `json:"wire_type" yaml:"wire_type"`
	Offset   int        `json:"offset" yaml:"offset"` // offset of the tag
	Size     int        `json:"size" yaml:"size"`     // payload bytes, excluding any length prefix
}
