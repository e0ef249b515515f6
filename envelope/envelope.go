// Package envelope frames an encoded stream for storage or transport.
//
// A frame is laid out as:
//
//	magic "ACB" | version | compression | xxhash64 (8 bytes LE) | rawLen varint | payloadLen varint | payload
//
// The checksum covers the uncompressed stream, so a successful Unpack
// guarantees the caller sees exactly the bytes given to Pack.
package envelope

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/anirudhraja/accelite/compress"
	"github.com/anirudhraja/accelite/endian"
	"github.com/anirudhraja/accelite/wire"
)

// Version is the frame layout written by Pack.
const Version byte = 1

// MaxRawSize bounds the uncompressed size Unpack will allocate. Codecs stop
// decoding once their output passes the size a header declares.
const MaxRawSize = compress.MaxDecodedSize

var magic = [3]byte{'A', 'C', 'B'}

var (
	ErrBadMagic           = errors.New("envelope: bad magic")
	ErrUnsupportedVersion = errors.New("envelope: unsupported version")
	ErrChecksum           = errors.New("envelope: checksum mismatch")
	ErrTooLarge           = errors.New("envelope: stream too large")
	ErrTrailingData       = errors.New("envelope: trailing data after payload")
)

// Header describes a frame without its payload.
type Header struct {
	Version     byte          `json:"version" yaml:"version"`
	Compression compress.Type `json:"compression" yaml:"compression"`
	Checksum    uint64        `json:"checksum" yaml:"checksum"`
	RawSize     int           `json:"raw_size" yaml:"raw_size"`
	PayloadSize int           `json:"payload_size" yaml:"payload_size"`
	HeaderSize  int           `json:"header_size" yaml:"header_size"`
}

// Pack compresses stream with t and frames it. Input a codec cannot shrink
// is stored uncompressed and the header records None.
func Pack(stream []byte, t compress.Type) ([]byte, error) {
	if len(stream) > MaxRawSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(stream))
	}

	codec, err := compress.GetCodec(t)
	if err != nil {
		return nil, err
	}

	payload, err := codec.Compress(stream)
	switch {
	case errors.Is(err, compress.ErrIncompressible):
		t, payload = compress.None, stream
	case err != nil:
		return nil, fmt.Errorf("envelope: compress %s: %w", t, err)
	case t != compress.None && len(payload) >= len(stream):
		t, payload = compress.None, stream
	}

	le := endian.GetLittleEndianEngine()
	frame := make([]byte, 0, len(magic)+2+8+2*wire.MaxVarintLen32+len(payload))
	frame = append(frame, magic[:]...)
	frame = append(frame, Version, byte(t))
	frame = le.AppendUint64(frame, xxhash.Sum64(stream))
	frame = wire.AppendVarint(frame, uint32(len(stream)))
	frame = wire.AppendVarint(frame, uint32(len(payload)))
	frame = append(frame, payload...)

	return frame, nil
}

// ReadHeader parses and validates the frame header.
func ReadHeader(frame []byte) (Header, error) {
	const fixed = len(magic) + 2 + 8
	if len(frame) < fixed {
		return Header{}, fmt.Errorf("envelope: header needs %d bytes, have %d: %w", fixed, len(frame), wire.ErrOutOfData)
	}
	if [3]byte(frame[:3]) != magic {
		return Header{}, fmt.Errorf("%w: % x", ErrBadMagic, frame[:3])
	}
	if frame[3] != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, frame[3])
	}

	h := Header{
		Version:     frame[3],
		Compression: compress.Type(frame[4]),
		Checksum:    endian.GetLittleEndianEngine().Uint64(frame[5:13]),
	}

	off := fixed
	rawSize, n, err := wire.DecodeVarint(frame, off)
	if err != nil {
		return Header{}, fmt.Errorf("envelope: raw size: %w", err)
	}
	off += n
	payloadSize, n, err := wire.DecodeVarint(frame, off)
	if err != nil {
		return Header{}, fmt.Errorf("envelope: payload size: %w", err)
	}
	off += n

	if rawSize > MaxRawSize {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, rawSize)
	}

	h.RawSize = int(rawSize)
	h.PayloadSize = int(payloadSize)
	h.HeaderSize = off
	return h, nil
}

// Unpack validates a frame and returns the original stream.
func Unpack(frame []byte) ([]byte, error) {
	h, err := ReadHeader(frame)
	if err != nil {
		return nil, err
	}

	body := frame[h.HeaderSize:]
	if len(body) < h.PayloadSize {
		return nil, fmt.Errorf("envelope: payload needs %d bytes, have %d: %w", h.PayloadSize, len(body), wire.ErrOutOfData)
	}
	if len(body) > h.PayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTrailingData, len(body)-h.PayloadSize)
	}

	codec, err := compress.GetCodec(h.Compression)
	if err != nil {
		return nil, err
	}
	stream, err := codec.Decompress(body, h.RawSize)
	if err != nil {
		return nil, fmt.Errorf("envelope: decompress %s: %w", h.Compression, err)
	}

	if sum := xxhash.Sum64(stream); sum != h.Checksum {
		return nil, fmt.Errorf("%w: got %016x, header %016x", ErrChecksum, sum, h.Checksum)
	}
	return stream, nil
}
