package wire

import (
	"fmt"
	"math"

	"github.com/anirudhraja/accelite/endian"
	"github.com/anirudhraja/accelite/internal/options"
)

// Writer appends tagged fields to a buffer in the format Reader consumes.
// Every field is written as a tag followed by its payload; the writer never
// emits WireMissing.
type Writer struct {
	buf          []byte
	cfg          Config
	order        endian.EndianEngine
	header       bool
	omitDefaults bool
}

// WriterOption configures a Writer.
type WriterOption = options.Option[*Writer]

// WithHeader makes the writer start the buffer with the config byte, so the
// result can be opened with OpenStream.
func WithHeader() WriterOption {
	return options.NoError(func(w *Writer) {
		w.header = true
	})
}

// WithOmitDefaults drops scalar fields holding their zero value and empty
// strings, byte slices and messages.
func WithOmitDefaults() WriterOption {
	return options.NoError(func(w *Writer) {
		w.omitDefaults = true
	})
}

// NewWriter creates a writer producing fields in the format described by cfg.
func NewWriter(cfg Config, opts ...WriterOption) (*Writer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	w := &Writer{
		cfg:   cfg,
		order: cfg.Order.Engine(),
	}
	if err := options.Apply(w, opts...); err != nil {
		return nil, err
	}

	w.Reset()
	return w, nil
}

// Config returns the stream settings.
func (w *Writer) Config() Config { return w.cfg }

// Bytes returns the encoded bytes. The slice aliases the writer's buffer
// until the next write or Reset.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written, including the header.
func (w *Writer) Len() int { return len(w.buf) }

// Reset clears the buffer, keeping its capacity.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	if w.header {
		w.buf = append(w.buf, w.cfg.Byte())
	}
}

// WriteUint8 writes v as a Fixed8 field.
func (w *Writer) WriteUint8(index FieldIndex, v uint8) error {
	if w.omitDefaults && v == 0 {
		return nil
	}
	if err := w.tag(index, WireFixed8); err != nil {
		return err
	}
	w.buf = append(w.buf, v)
	return nil
}

// WriteInt8 writes v as a Fixed8 field in two's complement.
func (w *Writer) WriteInt8(index FieldIndex, v int8) error {
	return w.WriteUint8(index, uint8(v))
}

// WriteBool writes true as 1 and false as 0.
func (w *Writer) WriteBool(index FieldIndex, v bool) error {
	var b uint8
	if v {
		b = 1
	}
	return w.WriteUint8(index, b)
}

// WriteUint16 writes v as a Fixed16 field in the stream byte order.
func (w *Writer) WriteUint16(index FieldIndex, v uint16) error {
	if w.omitDefaults && v == 0 {
		return nil
	}
	if err := w.tag(index, WireFixed16); err != nil {
		return err
	}
	w.buf = w.order.AppendUint16(w.buf, v)
	return nil
}

// WriteInt16 writes v as a Fixed16 field in two's complement.
func (w *Writer) WriteInt16(index FieldIndex, v int16) error {
	return w.WriteUint16(index, uint16(v))
}

// WriteChar writes a single UTF-16 code unit. Runes outside the basic
// multilingual plane are rejected.
func (w *Writer) WriteChar(index FieldIndex, r rune) error {
	if r < 0 || r > 0xFFFF {
		return fmt.Errorf("%w: rune %U does not fit a 16-bit char", ErrInvalidString, r)
	}
	return w.WriteUint16(index, uint16(r))
}

// WriteUint32 writes v as a Fixed32 field in the stream byte order.
func (w *Writer) WriteUint32(index FieldIndex, v uint32) error {
	if w.omitDefaults && v == 0 {
		return nil
	}
	if err := w.tag(index, WireFixed32); err != nil {
		return err
	}
	w.buf = w.order.AppendUint32(w.buf, v)
	return nil
}

// WriteInt32 writes v as a Fixed32 field in two's complement.
func (w *Writer) WriteInt32(index FieldIndex, v int32) error {
	return w.WriteUint32(index, uint32(v))
}

// WriteFloat32 writes the IEEE-754 bits of v as a Fixed32 field.
func (w *Writer) WriteFloat32(index FieldIndex, v float32) error {
	return w.WriteUint32(index, math.Float32bits(v))
}

// WriteUint64 writes v as a Fixed64 field in the stream byte order.
func (w *Writer) WriteUint64(index FieldIndex, v uint64) error {
	if w.omitDefaults && v == 0 {
		return nil
	}
	if err := w.tag(index, WireFixed64); err != nil {
		return err
	}
	w.buf = w.order.AppendUint64(w.buf, v)
	return nil
}

// WriteInt64 writes v as a Fixed64 field in two's complement.
func (w *Writer) WriteInt64(index FieldIndex, v int64) error {
	return w.WriteUint64(index, uint64(v))
}

// WriteFloat64 writes the IEEE-754 bits of v as a Fixed64 field.
func (w *Writer) WriteFloat64(index FieldIndex, v float64) error {
	return w.WriteUint64(index, math.Float64bits(v))
}

// WriteUint128 writes v as 16 bytes; the high half comes first in
// big-endian streams and last in little-endian ones.
func (w *Writer) WriteUint128(index FieldIndex, v Uint128) error {
	if w.omitDefaults && v.IsZero() {
		return nil
	}
	if err := w.tag(index, WireFixed128); err != nil {
		return err
	}
	if w.cfg.Order == BigEndian {
		w.buf = w.order.AppendUint64(w.buf, v.Hi)
		w.buf = w.order.AppendUint64(w.buf, v.Lo)
	} else {
		w.buf = w.order.AppendUint64(w.buf, v.Lo)
		w.buf = w.order.AppendUint64(w.buf, v.Hi)
	}
	return nil
}

// WriteVarUint writes v using only as many bytes as its magnitude needs,
// tagged with the fixed code of that width.
func (w *Writer) WriteVarUint(index FieldIndex, v uint64) error {
	if w.omitDefaults && v == 0 {
		return nil
	}

	n := endian.ByteLen(v)
	if err := w.tag(index, WireType(n)); err != nil {
		return err
	}
	w.buf = endian.AppendUint(w.order, w.buf, v, n)
	return nil
}

// WriteVarInt zigzag-encodes v and writes it with WriteVarUint.
func (w *Writer) WriteVarInt(index FieldIndex, v int64) error {
	return w.WriteVarUint(index, EncodeZigZag64(v))
}

// WriteBytes writes p under the wire type TypeForLength selects, so short
// payloads of a fixed width carry no length prefix.
func (w *Writer) WriteBytes(index FieldIndex, p []byte) error {
	if w.omitDefaults && len(p) == 0 {
		return nil
	}
	return w.WriteRaw(index, TypeForLength(len(p)), p)
}

// WriteString encodes s in the stream's string encoding and writes it like
// WriteBytes.
func (w *Writer) WriteString(index FieldIndex, s string) error {
	if w.omitDefaults && s == "" {
		return nil
	}

	p, err := encodeString(s, w.cfg)
	if err != nil {
		return err
	}
	return w.WriteRaw(index, TypeForLength(len(p)), p)
}

// WriteRaw writes payload under an explicit wire type. Fixed types require
// a payload of exactly their width; WireLengthPrefixed adds the prefix.
func (w *Writer) WriteRaw(index FieldIndex, wt WireType, payload []byte) error {
	switch {
	case wt == WireLengthPrefixed:
		if uint64(len(payload)) > math.MaxUint32 {
			return fmt.Errorf("accelite: payload of %d bytes exceeds the length prefix range", len(payload))
		}
	case wt == WireMissing || !wt.Valid():
		return &InvalidWireTypeError{WireType: wt}
	default:
		if size, _ := wt.FixedSize(); size != len(payload) {
			return fmt.Errorf("accelite: %s payload must be %d bytes, got %d", wt, size, len(payload))
		}
	}

	if err := w.tag(index, wt); err != nil {
		return err
	}
	if wt == WireLengthPrefixed {
		w.buf = AppendVarint(w.buf, uint32(len(payload)))
	}
	w.buf = append(w.buf, payload...)
	return nil
}

// WriteMessage writes a nested object. fn receives a writer with the same
// config whose output becomes the field payload.
func (w *Writer) WriteMessage(index FieldIndex, fn func(*Writer) error) error {
	if err := checkIndex(index); err != nil {
		return err
	}

	child := &Writer{cfg: w.cfg, order: w.order, omitDefaults: w.omitDefaults}
	if err := fn(child); err != nil {
		return err
	}

	if w.omitDefaults && len(child.buf) == 0 {
		return nil
	}
	return w.WriteRaw(index, TypeForLength(len(child.buf)), child.buf)
}

func (w *Writer) tag(index FieldIndex, wt WireType) error {
	if err := checkIndex(index); err != nil {
		return err
	}

	var err error
	w.buf, err = AppendTag(w.buf, index, wt)
	return err
}

func checkIndex(index FieldIndex) error {
	if index == 0 || index > MaxFieldIndex {
		return &InvalidFieldIndexError{Index: index}
	}
	return nil
}
