// Package endian provides the byte order engines used by the accel wire
// format.
//
// An EndianEngine combines binary.ByteOrder and binary.AppendByteOrder so
// the reader can decode fixed-width fields in place and the writer can append
// them without temporary buffers. On top of the standard widths the package
// handles the odd 1-8 byte widths used by variable-width integers.
//
// All functions are safe for concurrent use; engines are stateless.
package endian

import "encoding/binary"

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary.
//
// This interface is satisfied by binary.LittleEndian and binary.BigEndian.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}

// IsLittleEndian reports whether engine places the least significant byte
// first.
func IsLittleEndian(engine EndianEngine) bool {
	return engine == binary.LittleEndian
}

// Uint reassembles an unsigned integer from the first n bytes of b, where n
// is between 1 and 8. With a little-endian engine the first byte is the
// least significant; with a big-endian engine it is the most significant.
func Uint(engine EndianEngine, b []byte, n int) uint64 {
	_ = b[n-1]

	var v uint64
	if IsLittleEndian(engine) {
		for i := n - 1; i >= 0; i-- {
			v = v<<8 | uint64(b[i])
		}
		return v
	}

	for i := 0; i < n; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// AppendUint appends the low n bytes of v to dst in engine order.
func AppendUint(engine EndianEngine, dst []byte, v uint64, n int) []byte {
	if IsLittleEndian(engine) {
		for i := 0; i < n; i++ {
			dst = append(dst, byte(v>>(8*i)))
		}
		return dst
	}

	for i := n - 1; i >= 0; i-- {
		dst = append(dst, byte(v>>(8*i)))
	}
	return dst
}

// ByteLen returns the number of low-order bytes needed to hold v, with a
// minimum of 1.
func ByteLen(v uint64) int {
	n := 1
	for v > 0xFF {
		v >>= 8
		n++
	}
	return n
}
