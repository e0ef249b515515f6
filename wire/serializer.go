package wire

// FieldReader is the read side of the field stream as seen by custom
// serializers. *Reader satisfies it.
type FieldReader interface {
	HasNext() (bool, error)
	FieldIndex() (FieldIndex, error)
	WireType() (WireType, error)
	Skip() error

	ReadUint8() (uint8, error)
	ReadInt8() (int8, error)
	ReadBool() (bool, error)
	ReadUint16() (uint16, error)
	ReadInt16() (int16, error)
	ReadChar() (rune, error)
	ReadUint32() (uint32, error)
	ReadInt32() (int32, error)
	ReadFloat32() (float32, error)
	ReadUint64() (uint64, error)
	ReadInt64() (int64, error)
	ReadFloat64() (float64, error)
	ReadUint128() (Uint128, error)
	ReadVarUint() (uint64, error)
	ReadVarInt() (int64, error)
	ReadRaw() ([]byte, error)
	ReadBytes() ([]byte, error)
	ReadString() (string, error)
	ReadMessage() (*Reader, error)
}

// FieldWriter is the write side of the field stream as seen by custom
// serializers. *Writer satisfies it.
type FieldWriter interface {
	WriteUint8(index FieldIndex, v uint8) error
	WriteInt8(index FieldIndex, v int8) error
	WriteBool(index FieldIndex, v bool) error
	WriteUint16(index FieldIndex, v uint16) error
	WriteInt16(index FieldIndex, v int16) error
	WriteChar(index FieldIndex, r rune) error
	WriteUint32(index FieldIndex, v uint32) error
	WriteInt32(index FieldIndex, v int32) error
	WriteFloat32(index FieldIndex, v float32) error
	WriteUint64(index FieldIndex, v uint64) error
	WriteInt64(index FieldIndex, v int64) error
	WriteFloat64(index FieldIndex, v float64) error
	WriteUint128(index FieldIndex, v Uint128) error
	WriteVarUint(index FieldIndex, v uint64) error
	WriteVarInt(index FieldIndex, v int64) error
	WriteBytes(index FieldIndex, p []byte) error
	WriteString(index FieldIndex, s string) error
	WriteRaw(index FieldIndex, wt WireType, payload []byte) error
	WriteMessage(index FieldIndex, fn func(*Writer) error) error
}

var (
	_ FieldReader = (*Reader)(nil)
	_ FieldWriter = (*Writer)(nil)
)

// Serializer converts a user type to and from a field stream. The format
// never inspects T; implementations choose field indices and accessors.
type Serializer[T any] interface {
	Serialize(v T, w FieldWriter) error
	Deserialize(r FieldReader) (T, error)
}

// SerializerFuncs builds a Serializer from two functions.
type SerializerFuncs[T any] struct {
	SerializeFunc   func(v T, w FieldWriter) error
	DeserializeFunc func(r FieldReader) (T, error)
}

func (s SerializerFuncs[T]) Serialize(v T, w FieldWriter) error {
	return s.SerializeFunc(v, w)
}

func (s SerializerFuncs[T]) Deserialize(r FieldReader) (T, error) {
	return s.DeserializeFunc(r)
}

// WriteObject writes v as a nested object under index.
func WriteObject[T any](w *Writer, index FieldIndex, v T, s Serializer[T]) error {
	return w.WriteMessage(index, func(child *Writer) error {
		return s.Serialize(v, child)
	})
}

// ReadObject decodes the current field of r as a nested object.
func ReadObject[T any](r *Reader, s Serializer[T]) (T, error) {
	sub, err := r.ReadMessage()
	if err != nil {
		var zero T
		return zero, err
	}
	return s.Deserialize(sub)
}

// Marshal encodes v as a complete stream, config byte included.
func Marshal[T any](v T, s Serializer[T], cfg Config) ([]byte, error) {
	w, err := NewWriter(cfg, WithHeader())
	if err != nil {
		return nil, err
	}
	if err := s.Serialize(v, w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Unmarshal decodes a complete stream produced by Marshal.
func Unmarshal[T any](data []byte, s Serializer[T]) (T, error) {
	r, err := OpenStream(data)
	if err != nil {
		var zero T
		return zero, err
	}
	return s.Deserialize(r)
}
