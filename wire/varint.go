package wire

// MaxVarintLen32 is the longest varint a 32-bit value can produce.
const MaxVarintLen32 = 5

// DecodeVarint decodes a varint starting at buf[off] and returns the value
// and the number of bytes it occupied.
//
// Each byte contributes its low 7 bits, least significant group first; the
// high bit marks continuation. Values are accumulated into 32 bits: bits
// shifted past bit 31 by the fifth group are dropped. Running off the end
// of buf yields ErrOutOfData, and a fifth byte that still has the
// continuation bit set yields ErrVarintTooLong.
func DecodeVarint(buf []byte, off int) (uint32, int, error) {
	if off < 0 {
		return 0, 0, ErrOutOfData
	}

	var value uint32
	for i := 0; i < MaxVarintLen32; i++ {
		if off+i >= len(buf) {
			return 0, 0, ErrOutOfData
		}

		b := buf[off+i]
		value |= uint32(b&0x7F) << (7 * i)

		if b&0x80 == 0 {
			return value, i + 1, nil
		}
	}

	return 0, 0, ErrVarintTooLong
}

// AppendVarint appends the varint encoding of v to dst.
func AppendVarint(dst []byte, v uint32) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// VarintSize returns the number of bytes AppendVarint writes for v.
func VarintSize(v uint32) int {
	switch {
	case v < 1<<7:
		return 1
	case v < 1<<14:
		return 2
	case v < 1<<21:
		return 3
	case v < 1<<28:
		return 4
	default:
		return 5
	}
}

// DecodeTag decodes the tag varint at buf[off].
func DecodeTag(buf []byte, off int) (Tag, int, error) {
	v, n, err := DecodeVarint(buf, off)
	if err != nil {
		return 0, 0, err
	}
	return Tag(v), n, nil
}

// AppendTag appends the varint encoding of the tag for (index, wireType).
func AppendTag(dst []byte, index FieldIndex, wireType WireType) ([]byte, error) {
	if !wireType.Valid() {
		return dst, &InvalidWireTypeError{WireType: wireType}
	}
	if index > MaxFieldIndex {
		return dst, &InvalidFieldIndexError{Index: index}
	}
	return AppendVarint(dst, uint32(MakeTag(index, wireType))), nil
}

// EncodeZigZag64 maps signed values onto unsigned ones so that small
// magnitudes stay short: 0→0, -1→1, 1→2, -2→3.
func EncodeZigZag64(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

// DecodeZigZag64 reverses EncodeZigZag64.
func DecodeZigZag64(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}
