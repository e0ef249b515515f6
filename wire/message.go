package wire

import (
	"fmt"
	"reflect"
	"sort"

	"go.uber.org/zap"

	"github.com/anirudhraja/accelite/registry"
	"github.com/anirudhraja/accelite/schema"
)

// MessageDecoder decodes field streams into maps keyed by field name,
// following message schemas from a registry.
type MessageDecoder struct {
	registry *registry.Registry
	opts     DecodeOptions
	logger   *zap.Logger
}

// MessageEncoder encodes maps keyed by field name into field streams.
type MessageEncoder struct {
	registry *registry.Registry
	logger   *zap.Logger
}

// NewMessageDecoder creates a schema-driven decoder. A nil logger disables
// logging.
func NewMessageDecoder(reg *registry.Registry, opts DecodeOptions, logger *zap.Logger) *MessageDecoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageDecoder{registry: reg, opts: opts, logger: logger}
}

// NewMessageEncoder creates a schema-driven encoder. A nil logger disables
// logging.
func NewMessageEncoder(reg *registry.Registry, logger *zap.Logger) *MessageEncoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageEncoder{registry: reg, logger: logger}
}

// DecodeMessage decodes a field stream without a config byte using the
// process-wide DecodeOptions.
func DecodeMessage(data []byte, msg *schema.Message, reg *registry.Registry, cfg Config) (map[string]any, error) {
	r, err := NewReader(data, 0, cfg)
	if err != nil {
		return nil, err
	}
	return NewMessageDecoder(reg, GetDecodeOptions(), nil).Decode(r, msg)
}

// EncodeMessage encodes data as a field stream without a config byte.
func EncodeMessage(data map[string]any, msg *schema.Message, reg *registry.Registry, cfg Config) ([]byte, error) {
	w, err := NewWriter(cfg)
	if err != nil {
		return nil, err
	}
	if err := NewMessageEncoder(reg, nil).Encode(w, data, msg); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// DECODER METHODS

// Decode reads every remaining field of r. Fields the schema does not
// declare are skipped; repeated fields are collected in stream order.
func (md *MessageDecoder) Decode(r *Reader, msg *schema.Message) (map[string]any, error) {
	result := make(map[string]any)
	repeatedCollector := make(map[string][]any)
	var unknown []byte

	for {
		start := r.Offset()
		ok, err := r.HasNext()
		if err != nil {
			return nil, fmt.Errorf("failed to decode message %s: %w", msg.Name, err)
		}
		if !ok {
			break
		}

		index, _ := r.FieldIndex()
		field := msg.FieldByIndex(uint32(index))
		if field == nil {
			if md.opts.StrictUnknownFields {
				return nil, fmt.Errorf("%w: message %s has no field %d", ErrUnknownField, msg.Name, index)
			}
			if err := r.Skip(); err != nil {
				return nil, fmt.Errorf("failed to decode message %s: %w", msg.Name, err)
			}
			if md.opts.PreserveUnknown {
				unknown = append(unknown, r.buf[start:r.Offset()]...)
			}
			md.logger.Debug("skipped unknown field",
				zap.String("message", msg.Name),
				zap.Uint32("index", uint32(index)))
			continue
		}

		value, err := md.decodeValue(r, field)
		if err != nil {
			return nil, wrapWithField(err, field.Name)
		}

		if field.Label == schema.LabelRepeated {
			repeatedCollector[field.Name] = append(repeatedCollector[field.Name], value)
		} else {
			result[field.Name] = value
		}
	}

	for fieldName, repeatedData := range repeatedCollector {
		result[fieldName] = repeatedData
	}
	if len(unknown) > 0 {
		result[UnknownFieldsKey] = unknown
	}
	if md.opts.PopulateDefaults {
		md.populateDefaults(result, msg)
	}

	return result, nil
}

func (md *MessageDecoder) decodeValue(r *Reader, field *schema.Field) (any, error) {
	switch field.Type.Kind {
	case schema.KindScalar:
		return decodeScalar(r, field.Type.Scalar)
	case schema.KindEnum:
		n, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		return md.enumName(field.Type.EnumType, n), nil
	case schema.KindMessage:
		if md.registry == nil {
			return nil, fmt.Errorf("no registry to resolve message type %s", field.Type.MessageType)
		}
		nested, err := md.registry.GetMessage(field.Type.MessageType)
		if err != nil {
			return nil, err
		}
		sub, err := r.ReadMessage()
		if err != nil {
			return nil, err
		}
		return md.Decode(sub, nested)
	case schema.KindMap:
		return md.decodeMap(r, field)
	default:
		return nil, fmt.Errorf("unsupported field kind %q", field.Type.Kind)
	}
}

// decodeMap reads a map body: keys and values alternate, each under index 1.
// Keys are formatted as strings; a trailing key without a value gets the
// zero value.
func (md *MessageDecoder) decodeMap(r *Reader, field *schema.Field) (map[string]any, error) {
	keyField, valueField, err := mapEntryFields(field)
	if err != nil {
		return nil, err
	}
	sub, err := r.ReadMessage()
	if err != nil {
		return nil, err
	}

	result := make(map[string]any)
	for {
		ok, err := sub.HasNext()
		if err != nil {
			return nil, err
		}
		if !ok {
			return result, nil
		}

		key, err := md.decodeValue(sub, keyField)
		if err != nil {
			return nil, fmt.Errorf("map key: %w", err)
		}
		name := fmt.Sprint(key)

		ok, err = sub.HasNext()
		if err != nil {
			return nil, err
		}
		if !ok {
			result[name], err = md.zeroMapValue(sub, valueField)
			return result, err
		}

		value, err := md.decodeValue(sub, valueField)
		if err != nil {
			return nil, fmt.Errorf("map value for key %s: %w", name, err)
		}
		result[name] = value
	}
}

func (md *MessageDecoder) zeroMapValue(r *Reader, field *schema.Field) (any, error) {
	switch field.Type.Kind {
	case schema.KindScalar:
		return zeroScalar(field.Type.Scalar), nil
	case schema.KindEnum:
		return md.enumName(field.Type.EnumType, 0), nil
	case schema.KindMessage:
		if md.registry == nil {
			return nil, fmt.Errorf("no registry to resolve message type %s", field.Type.MessageType)
		}
		nested, err := md.registry.GetMessage(field.Type.MessageType)
		if err != nil {
			return nil, err
		}
		return md.Decode(&Reader{cfg: r.cfg, order: r.order}, nested)
	default:
		return nil, fmt.Errorf("unsupported map value kind %q", field.Type.Kind)
	}
}

// mapEntryFields describes the key and value of a map entry as fields
// carrying index 1.
func mapEntryFields(field *schema.Field) (key, value *schema.Field, err error) {
	if field.Type.MapKey == nil || field.Type.MapValue == nil {
		return nil, nil, fmt.Errorf("map field %s has no key or value type", field.Name)
	}
	key = &schema.Field{Name: field.Name, Index: 1, Label: schema.LabelOptional, Type: *field.Type.MapKey}
	value = &schema.Field{Name: field.Name, Index: 1, Label: schema.LabelOptional, Type: *field.Type.MapValue}
	return key, value, nil
}

func decodeScalar(r *Reader, t schema.ScalarType) (any, error) {
	switch t {
	case schema.TypeBool:
		return r.ReadBool()
	case schema.TypeInt8:
		return r.ReadInt8()
	case schema.TypeUint8:
		return r.ReadUint8()
	case schema.TypeInt16:
		return r.ReadInt16()
	case schema.TypeUint16:
		return r.ReadUint16()
	case schema.TypeChar:
		c, err := r.ReadChar()
		if err != nil {
			return nil, err
		}
		return string(c), nil
	case schema.TypeInt32:
		return r.ReadInt32()
	case schema.TypeUint32:
		return r.ReadUint32()
	case schema.TypeFloat32:
		return r.ReadFloat32()
	case schema.TypeInt64:
		return r.ReadInt64()
	case schema.TypeUint64:
		return r.ReadUint64()
	case schema.TypeFloat64:
		return r.ReadFloat64()
	case schema.TypeUint128:
		return r.ReadUint128()
	case schema.TypeVarInt:
		return r.ReadVarInt()
	case schema.TypeVarUint:
		return r.ReadVarUint()
	case schema.TypeString:
		return r.ReadString()
	case schema.TypeBytes:
		return r.ReadBytes()
	default:
		return nil, fmt.Errorf("unsupported scalar type %q", t)
	}
}

// enumName returns the symbolic name for n, or n itself when the enum is
// unknown or has no value numbered n.
func (md *MessageDecoder) enumName(enumType string, n int32) any {
	if md.registry == nil {
		return n
	}
	enum, err := md.registry.GetEnum(enumType)
	if err != nil {
		return n
	}
	if v := enum.ValueByNumber(n); v != nil {
		return v.Name
	}
	return n
}

func (md *MessageDecoder) populateDefaults(result map[string]any, msg *schema.Message) {
	for _, field := range msg.Fields {
		if field.Label == schema.LabelRepeated {
			continue
		}
		if _, ok := result[field.Name]; ok {
			continue
		}

		switch field.Type.Kind {
		case schema.KindScalar:
			result[field.Name] = zeroScalar(field.Type.Scalar)
		case schema.KindEnum:
			result[field.Name] = md.enumName(field.Type.EnumType, 0)
		}
	}
}

func zeroScalar(t schema.ScalarType) any {
	switch t {
	case schema.TypeBool:
		return false
	case schema.TypeInt8:
		return int8(0)
	case schema.TypeUint8:
		return uint8(0)
	case schema.TypeInt16:
		return int16(0)
	case schema.TypeUint16:
		return uint16(0)
	case schema.TypeChar:
		return string(rune(0))
	case schema.TypeInt32:
		return int32(0)
	case schema.TypeUint32:
		return uint32(0)
	case schema.TypeFloat32:
		return float32(0)
	case schema.TypeInt64, schema.TypeVarInt:
		return int64(0)
	case schema.TypeUint64, schema.TypeVarUint:
		return uint64(0)
	case schema.TypeFloat64:
		return float64(0)
	case schema.TypeUint128:
		return Uint128{}
	case schema.TypeString:
		return ""
	case schema.TypeBytes:
		return []byte{}
	default:
		return nil
	}
}

// ENCODER METHODS

// Encode writes the entries of data that msg declares, in increasing field
// index order. Keys the schema does not declare are ignored, except
// UnknownFieldsKey whose bytes are appended verbatim.
func (me *MessageEncoder) Encode(w *Writer, data map[string]any, msg *schema.Message) error {
	type fieldEntry struct {
		value any
		field *schema.Field
	}

	var entries []fieldEntry
	for fieldName, fieldValue := range data {
		field := msg.FieldByName(fieldName)
		if field == nil {
			continue
		}
		entries = append(entries, fieldEntry{value: fieldValue, field: field})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].field.Index < entries[j].field.Index
	})

	for _, entry := range entries {
		var err error
		if entry.field.Label == schema.LabelRepeated {
			err = me.encodeRepeated(w, entry.value, entry.field)
		} else {
			err = me.encodeValue(w, entry.value, entry.field)
		}
		if err != nil {
			return wrapWithField(err, entry.field.Name)
		}
	}

	if raw, ok := data[UnknownFieldsKey].([]byte); ok && len(raw) > 0 {
		w.buf = append(w.buf, raw...)
	}
	return nil
}

func (me *MessageEncoder) encodeRepeated(w *Writer, value any, field *schema.Field) error {
	if value == nil {
		return nil
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("%w: repeated field expects a list, got %T", ErrInvalidValue, value)
	}

	for i := 0; i < rv.Len(); i++ {
		if err := me.encodeValue(w, rv.Index(i).Interface(), field); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

func (me *MessageEncoder) encodeValue(w *Writer, value any, field *schema.Field) error {
	index := FieldIndex(field.Index)

	switch field.Type.Kind {
	case schema.KindScalar:
		return encodeScalar(w, index, value, field.Type.Scalar)
	case schema.KindEnum:
		n, err := me.enumNumber(field.Type.EnumType, value)
		if err != nil {
			return err
		}
		return w.WriteInt32(index, n)
	case schema.KindMessage:
		if me.registry == nil {
			return fmt.Errorf("no registry to resolve message type %s", field.Type.MessageType)
		}
		nested, err := me.registry.GetMessage(field.Type.MessageType)
		if err != nil {
			return err
		}
		m, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: message field expects an object, got %T", ErrInvalidValue, value)
		}
		return w.WriteMessage(index, func(child *Writer) error {
			return me.Encode(child, m, nested)
		})
	case schema.KindMap:
		return me.encodeMap(w, value, field)
	default:
		return fmt.Errorf("unsupported field kind %q", field.Type.Kind)
	}
}

// encodeMap writes value, any Go map, as one nested body holding each key
// followed by its value. Entries are ordered by the string form of their
// keys. Zero keys and values are always written so the pairs stay aligned.
func (me *MessageEncoder) encodeMap(w *Writer, value any, field *schema.Field) error {
	keyField, valueField, err := mapEntryFields(field)
	if err != nil {
		return err
	}
	if value == nil {
		return nil
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map {
		return fmt.Errorf("%w: map field expects a map, got %T", ErrInvalidValue, value)
	}

	keys := rv.MapKeys()
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = fmt.Sprint(k.Interface())
	}
	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return names[order[a]] < names[order[b]] })

	return w.WriteMessage(FieldIndex(field.Index), func(body *Writer) error {
		body.omitDefaults = false
		for _, i := range order {
			if err := me.encodeValue(body, keys[i].Interface(), keyField); err != nil {
				return fmt.Errorf("map key %s: %w", names[i], err)
			}
			if err := me.encodeValue(body, rv.MapIndex(keys[i]).Interface(), valueField); err != nil {
				return fmt.Errorf("map value for key %s: %w", names[i], err)
			}
		}
		return nil
	})
}

func (me *MessageEncoder) enumNumber(enumType string, value any) (int32, error) {
	if name, ok := value.(string); ok && me.registry != nil {
		enum, err := me.registry.GetEnum(enumType)
		if err != nil {
			return 0, err
		}
		if v := enum.ValueByName(name); v != nil {
			return v.Number, nil
		}
		return 0, fmt.Errorf("%w: enum %s has no value %q", ErrInvalidValue, enumType, name)
	}

	n, err := coerceToInt64(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return int32Range(n)
}

func encodeScalar(w *Writer, index FieldIndex, value any, t schema.ScalarType) error {
	switch t {
	case schema.TypeBool:
		b, err := coerceToBool(value)
		if err != nil {
			return err
		}
		return w.WriteBool(index, b)
	case schema.TypeString:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: string field got %T", ErrInvalidValue, value)
		}
		return w.WriteString(index, s)
	case schema.TypeBytes:
		p, err := coerceToBytes(value)
		if err != nil {
			return err
		}
		return w.WriteBytes(index, p)
	case schema.TypeChar:
		r, err := coerceToChar(value)
		if err != nil {
			return err
		}
		return w.WriteChar(index, r)
	case schema.TypeFloat32:
		f, err := coerceToFloat64(value)
		if err != nil {
			return err
		}
		return w.WriteFloat32(index, float32(f))
	case schema.TypeFloat64:
		f, err := coerceToFloat64(value)
		if err != nil {
			return err
		}
		return w.WriteFloat64(index, f)
	case schema.TypeUint128:
		u, err := coerceToUint128(value)
		if err != nil {
			return err
		}
		return w.WriteUint128(index, u)
	case schema.TypeInt8, schema.TypeInt16, schema.TypeInt32, schema.TypeInt64, schema.TypeVarInt:
		n, err := coerceToInt64(value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return encodeSigned(w, index, n, t)
	case schema.TypeUint8, schema.TypeUint16, schema.TypeUint32, schema.TypeUint64, schema.TypeVarUint:
		n, err := coerceToUint64(value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return encodeUnsigned(w, index, n, t)
	default:
		return fmt.Errorf("unsupported scalar type %q", t)
	}
}

func encodeSigned(w *Writer, index FieldIndex, n int64, t schema.ScalarType) error {
	switch t {
	case schema.TypeInt8:
		if n < -1<<7 || n > 1<<7-1 {
			return outOfRange(n, t)
		}
		return w.WriteInt8(index, int8(n))
	case schema.TypeInt16:
		if n < -1<<15 || n > 1<<15-1 {
			return outOfRange(n, t)
		}
		return w.WriteInt16(index, int16(n))
	case schema.TypeInt32:
		v, err := int32Range(n)
		if err != nil {
			return err
		}
		return w.WriteInt32(index, v)
	case schema.TypeVarInt:
		return w.WriteVarInt(index, n)
	default:
		return w.WriteInt64(index, n)
	}
}

func encodeUnsigned(w *Writer, index FieldIndex, n uint64, t schema.ScalarType) error {
	switch t {
	case schema.TypeUint8:
		if n > 1<<8-1 {
			return outOfRange(n, t)
		}
		return w.WriteUint8(index, uint8(n))
	case schema.TypeUint16:
		if n > 1<<16-1 {
			return outOfRange(n, t)
		}
		return w.WriteUint16(index, uint16(n))
	case schema.TypeUint32:
		if n > 1<<32-1 {
			return outOfRange(n, t)
		}
		return w.WriteUint32(index, uint32(n))
	case schema.TypeVarUint:
		return w.WriteVarUint(index, n)
	default:
		return w.WriteUint64(index, n)
	}
}

func int32Range(n int64) (int32, error) {
	if n < -1<<31 || n > 1<<31-1 {
		return 0, outOfRange(n, schema.TypeInt32)
	}
	return int32(n), nil
}

func outOfRange[N int64 | uint64](n N, t schema.ScalarType) error {
	return fmt.Errorf("%w: %d out of range for %s", ErrInvalidValue, n, t)
}
