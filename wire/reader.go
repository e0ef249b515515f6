package wire

import (
	"fmt"
	"math"

	"github.com/anirudhraja/accelite/endian"
)

type readerState uint8

const (
	stateUnpositioned readerState = iota // constructed, HasNext not yet called
	stateCurrent                         // a tag is cached and its payload is unread
	stateConsumed                        // the current payload was read or skipped
	stateExhausted                       // HasNext returned false
	stateFailed                          // a decode error aborted the stream
)

// Reader is a cursor over an encoded field sequence.
//
// Fields are visited with HasNext, which decodes the next tag and makes it
// current. The caller then reads the payload with the accessor matching the
// wire type, or calls Skip. Accessors check the cached wire type exactly: a
// 32-bit accessor needs WireFixed32, and no widening or narrowing is done.
//
// The buffer is borrowed and never modified. A Reader is not safe for
// concurrent use, but any number of Readers may share one buffer.
//
// Any error other than a type mismatch or a missing current field aborts the
// stream: the offset stays wherever the failing call stopped and every later
// call returns the same error. Type mismatches are detected before any byte
// is consumed, so the field stays current and may still be skipped.
type Reader struct {
	buf   []byte
	off   int
	cfg   Config
	order endian.EndianEngine
	tag   Tag
	state readerState
	err   error
}

// NewReader returns a Reader over data positioned at off, using cfg for the
// whole stream. data must not contain the config byte at off; use
// OpenStream for complete streams.
func NewReader(data []byte, off int, cfg Config) (*Reader, error) {
	if off < 0 || off > len(data) {
		return nil, fmt.Errorf("%w: start offset %d outside buffer of %d bytes", ErrOutOfData, off, len(data))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Reader{
		buf:   data,
		off:   off,
		cfg:   cfg,
		order: cfg.Order.Engine(),
	}, nil
}

// OpenStream reads the leading config byte of a stream and returns a Reader
// positioned at the first field.
func OpenStream(data []byte) (*Reader, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: stream has no config byte", ErrOutOfData)
	}

	cfg, err := ParseConfig(data[0])
	if err != nil {
		return nil, err
	}

	return NewReader(data, 1, cfg)
}

// Config returns the stream settings.
func (r *Reader) Config() Config { return r.cfg }

// Offset returns the current read position within the buffer.
func (r *Reader) Offset() int { return r.off }

// Len returns the buffer length.
func (r *Reader) Len() int { return len(r.buf) }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// Err returns the error that aborted the stream, if any.
func (r *Reader) Err() error { return r.err }

// HasNext advances to the next field. It returns true with the field's tag
// cached when bytes remain, and false once the buffer is exhausted. A field
// that was made current but neither read nor skipped is skipped first.
func (r *Reader) HasNext() (bool, error) {
	switch r.state {
	case stateFailed:
		return false, r.err
	case stateCurrent:
		if err := r.Skip(); err != nil {
			return false, err
		}
	}

	if r.off >= len(r.buf) {
		r.tag = 0
		r.state = stateExhausted
		return false, nil
	}

	tag, n, err := DecodeTag(r.buf, r.off)
	if err != nil {
		return false, r.fail(fmt.Errorf("decode tag at offset %d: %w", r.off, err))
	}

	r.off += n
	r.tag = tag
	r.state = stateCurrent
	return true, nil
}

// Current returns the cached tag. ok is false outside a current field.
func (r *Reader) Current() (tag Tag, ok bool) {
	if r.state != stateCurrent {
		return 0, false
	}
	return r.tag, true
}

// FieldIndex returns the index of the current field.
func (r *Reader) FieldIndex() (FieldIndex, error) {
	if err := r.current(); err != nil {
		return 0, err
	}
	return r.tag.Index(), nil
}

// WireType returns the wire type of the current field.
func (r *Reader) WireType() (WireType, error) {
	if err := r.current(); err != nil {
		return WireMissing, err
	}
	return r.tag.WireType(), nil
}

// Skip advances past the payload of the current field without decoding it.
// For length-prefixed fields this consumes the prefix and the payload.
func (r *Reader) Skip() error {
	_, err := r.skip()
	return err
}

// skip consumes the current field and returns its payload size, excluding
// any length prefix.
func (r *Reader) skip() (int, error) {
	if err := r.current(); err != nil {
		return 0, err
	}

	n, err := r.lengthFor(r.tag.WireType())
	if err != nil {
		return 0, err
	}
	if _, err := r.take(n); err != nil {
		return 0, err
	}

	r.consume()
	return n, nil
}

// ReadUint8 reads a WireFixed8 field.
func (r *Reader) ReadUint8() (uint8, error) {
	p, err := r.readFixed(WireFixed8, "uint8")
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

// ReadInt8 reads a WireFixed8 field.
func (r *Reader) ReadInt8() (int8, error) {
	p, err := r.readFixed(WireFixed8, "int8")
	if err != nil {
		return 0, err
	}
	return int8(p[0]), nil
}

// ReadBool reads a WireFixed8 field; any non-zero byte is true.
func (r *Reader) ReadBool() (bool, error) {
	p, err := r.readFixed(WireFixed8, "bool")
	if err != nil {
		return false, err
	}
	return p[0] != 0, nil
}

// ReadUint16 reads a WireFixed16 field.
func (r *Reader) ReadUint16() (uint16, error) {
	p, err := r.readFixed(WireFixed16, "uint16")
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(p), nil
}

// ReadInt16 reads a WireFixed16 field.
func (r *Reader) ReadInt16() (int16, error) {
	p, err := r.readFixed(WireFixed16, "int16")
	if err != nil {
		return 0, err
	}
	return int16(r.order.Uint16(p)), nil
}

// ReadChar reads a WireFixed16 field holding one UTF-16 code unit.
func (r *Reader) ReadChar() (rune, error) {
	p, err := r.readFixed(WireFixed16, "char")
	if err != nil {
		return 0, err
	}
	return rune(r.order.Uint16(p)), nil
}

// ReadUint32 reads a WireFixed32 field.
func (r *Reader) ReadUint32() (uint32, error) {
	p, err := r.readFixed(WireFixed32, "uint32")
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(p), nil
}

// ReadInt32 reads a WireFixed32 field.
func (r *Reader) ReadInt32() (int32, error) {
	p, err := r.readFixed(WireFixed32, "int32")
	if err != nil {
		return 0, err
	}
	return int32(r.order.Uint32(p)), nil
}

// ReadFloat32 reads a WireFixed32 field as an IEEE-754 single.
func (r *Reader) ReadFloat32() (float32, error) {
	p, err := r.readFixed(WireFixed32, "float32")
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(r.order.Uint32(p)), nil
}

// ReadUint64 reads a WireFixed64 field.
func (r *Reader) ReadUint64() (uint64, error) {
	p, err := r.readFixed(WireFixed64, "uint64")
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(p), nil
}

// ReadInt64 reads a WireFixed64 field.
func (r *Reader) ReadInt64() (int64, error) {
	p, err := r.readFixed(WireFixed64, "int64")
	if err != nil {
		return 0, err
	}
	return int64(r.order.Uint64(p)), nil
}

// ReadFloat64 reads a WireFixed64 field as an IEEE-754 double.
func (r *Reader) ReadFloat64() (float64, error) {
	p, err := r.readFixed(WireFixed64, "float64")
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(r.order.Uint64(p)), nil
}

// ReadUint128 reads a WireFixed128 field.
func (r *Reader) ReadUint128() (Uint128, error) {
	p, err := r.readFixed(WireFixed128, "uint128")
	if err != nil {
		return Uint128{}, err
	}
	if r.cfg.Order == BigEndian {
		return Uint128{Hi: r.order.Uint64(p[:8]), Lo: r.order.Uint64(p[8:])}, nil
	}
	return Uint128{Hi: r.order.Uint64(p[8:]), Lo: r.order.Uint64(p[:8])}, nil
}

// ReadVarUint reads a variable-width unsigned integer: any fixed field of
// 1 to 8 bytes, reassembled in stream byte order.
func (r *Reader) ReadVarUint() (uint64, error) {
	if err := r.current(); err != nil {
		return 0, err
	}

	wt := r.tag.WireType()
	if wt < WireFixed8 || wt > WireFixed64 {
		return 0, r.mismatch("varuint")
	}

	n := int(wt)
	p, err := r.take(n)
	if err != nil {
		return 0, err
	}

	r.consume()
	return endian.Uint(r.order, p, n), nil
}

// ReadVarInt reads a zigzag-encoded variable-width signed integer.
func (r *Reader) ReadVarInt() (int64, error) {
	v, err := r.ReadVarUint()
	if err != nil {
		return 0, err
	}
	return DecodeZigZag64(v), nil
}

// ReadRaw returns the payload of the current field as a view into the
// buffer. Any wire type with a length is accepted.
func (r *Reader) ReadRaw() ([]byte, error) {
	return r.readPayload("raw")
}

// ReadBytes returns a copy of the payload of the current field.
func (r *Reader) ReadBytes() ([]byte, error) {
	p, err := r.readPayload("bytes")
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(p))
	copy(out, p)
	return out, nil
}

// ReadString decodes the payload of the current field with the stream's
// string encoding.
func (r *Reader) ReadString() (string, error) {
	p, err := r.readPayload("string")
	if err != nil {
		return "", err
	}

	s, err := decodeString(p, r.cfg)
	if err != nil {
		return "", r.fail(err)
	}
	return s, nil
}

// ReadMessage returns a Reader scoped to the payload of the current field,
// sharing this stream's config. It is how nested objects are decoded.
func (r *Reader) ReadMessage() (*Reader, error) {
	p, err := r.readPayload("message")
	if err != nil {
		return nil, err
	}

	return &Reader{
		buf:   p,
		cfg:   r.cfg,
		order: r.order,
	}, nil
}

// Walk visits every remaining field without decoding payloads and reports
// where each one sits in the buffer.
func (r *Reader) Walk(fn func(FieldInfo) error) error {
	for {
		start := r.off
		ok, err := r.HasNext()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		info := FieldInfo{Index: r.tag.Index(), WireType: r.tag.WireType(), Offset: start}
		if info.Size, err = r.skip(); err != nil {
			return err
		}

		if err := fn(info); err != nil {
			return err
		}
	}
}

// lengthFor returns the payload length of wire type wt. Fixed types are a
// table lookup; WireLengthPrefixed decodes the varint prefix at the cursor
// and consumes it.
func (r *Reader) lengthFor(wt WireType) (int, error) {
	if n, ok := wt.FixedSize(); ok {
		return n, nil
	}

	if wt != WireLengthPrefixed {
		return 0, r.fail(&InvalidWireTypeError{WireType: wt})
	}

	v, n, err := DecodeVarint(r.buf, r.off)
	if err != nil {
		return 0, r.fail(fmt.Errorf("decode length prefix at offset %d: %w", r.off, err))
	}
	r.off += n

	length := int(v)
	if length < 0 {
		return 0, r.fail(outOfData(int(v), r.off, r.Remaining()))
	}
	return length, nil
}

// readFixed checks the current wire type against wt and consumes its
// payload.
func (r *Reader) readFixed(wt WireType, target string) ([]byte, error) {
	if err := r.current(); err != nil {
		return nil, err
	}
	if r.tag.WireType() != wt {
		return nil, r.mismatch(target)
	}

	size, _ := wt.FixedSize()
	p, err := r.take(size)
	if err != nil {
		return nil, err
	}

	r.consume()
	return p, nil
}

// readPayload consumes the payload of any wire type that has a length.
func (r *Reader) readPayload(target string) ([]byte, error) {
	if err := r.current(); err != nil {
		return nil, err
	}
	if r.tag.WireType() == WireMissing {
		return nil, r.mismatch(target)
	}

	n, err := r.lengthFor(r.tag.WireType())
	if err != nil {
		return nil, err
	}
	p, err := r.take(n)
	if err != nil {
		return nil, err
	}

	r.consume()
	return p, nil
}

// take consumes n bytes after checking them against the buffer end.
func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || n > len(r.buf)-r.off {
		return nil, r.fail(outOfData(n, r.off, r.Remaining()))
	}

	p := r.buf[r.off : r.off+n : r.off+n]
	r.off += n
	return p, nil
}

func (r *Reader) current() error {
	switch r.state {
	case stateFailed:
		return r.err
	case stateCurrent:
		return nil
	default:
		return ErrNoCurrentField
	}
}

func (r *Reader) consume() {
	r.tag = 0
	r.state = stateConsumed
}

func (r *Reader) mismatch(target string) error {
	return &TypeMismatchError{Index: r.tag.Index(), Actual: r.tag.WireType(), Target: target}
}

func (r *Reader) fail(err error) error {
	r.err = err
	r.tag = 0
	r.state = stateFailed
	return err
}
