package schema

import "fmt"

// MaxFieldIndex is the largest field index a tag can carry: 32 bits minus
// the 4-bit wire type.
const MaxFieldIndex = 1<<28 - 1

// File represents a single schema source file after parsing.
type File struct {
	Name     string     `json:"name" yaml:"name"`         // orders.proto
	Package  string     `json:"package" yaml:"package"`   // package name
	Imports  []string   `json:"imports" yaml:"imports"`   // imported file paths
	Messages []*Message `json:"messages" yaml:"messages"` // top level messages
	Enums    []*Enum    `json:"enums" yaml:"enums"`       // top level enums
}

// Message describes an object encoded as a sequence of tagged fields.
type Message struct {
	Name        string     `json:"name" yaml:"name"`                 // "Order"
	FullName    string     `json:"full_name" yaml:"full_name"`       // "shop.Order", set on registration
	Fields      []*Field   `json:"fields" yaml:"fields"`             // fields in declaration order
	NestedTypes []*Message `json:"nested_types" yaml:"nested_types"` // nested messages
	NestedEnums []*Enum    `json:"nested_enums" yaml:"nested_enums"` // nested enums
}

// Field describes one member of a message.
type Field struct {
	Name     string     `json:"name" yaml:"name"`         // "unit_price"
	Index    uint32     `json:"index" yaml:"index"`       // field index carried in the tag
	Label    FieldLabel `json:"label" yaml:"label"`       // optional or repeated
	Type     FieldType  `json:"type" yaml:"type"`         // field type information
	JsonName string     `json:"json_name" yaml:"json_name"` // lowerCamel name accepted on input
}

// FieldLabel represents field labels
type FieldLabel string

const (
	LabelOptional FieldLabel = "optional"
	LabelRepeated FieldLabel = "repeated"
)

// FieldType represents field type information
type FieldType struct {
	Kind        TypeKind   `json:"kind" yaml:"kind"`                                     // scalar, message, enum, map
	Scalar      ScalarType `json:"scalar,omitempty" yaml:"scalar,omitempty"`             // for scalar types
	MessageType string     `json:"message_type,omitempty" yaml:"message_type,omitempty"` // for message types: "Order.Line"
	EnumType    string     `json:"enum_type,omitempty" yaml:"enum_type,omitempty"`       // for enum types
	MapKey      *FieldType `json:"map_key,omitempty" yaml:"map_key,omitempty"`           // for map types, always a scalar
	MapValue    *FieldType `json:"map_value,omitempty" yaml:"map_value,omitempty"`       // for map types
}

// TypeKind represents the kind of field type
type TypeKind string

const (
	KindScalar  TypeKind = "scalar"
	KindMessage TypeKind = "message"
	KindEnum    TypeKind = "enum"
	KindMap     TypeKind = "map"
)

// ScalarType names a value the format encodes directly.
type ScalarType string

const (
	TypeBool    ScalarType = "bool"
	TypeInt8    ScalarType = "int8"
	TypeUint8   ScalarType = "uint8"
	TypeInt16   ScalarType = "int16"
	TypeUint16  ScalarType = "uint16"
	TypeChar    ScalarType = "char"
	TypeInt32   ScalarType = "int32"
	TypeUint32  ScalarType = "uint32"
	TypeFloat32 ScalarType = "float32"
	TypeInt64   ScalarType = "int64"
	TypeUint64  ScalarType = "uint64"
	TypeFloat64 ScalarType = "float64"
	TypeUint128 ScalarType = "uint128"
	TypeVarInt  ScalarType = "varint"  // zigzag, trimmed to its significant bytes
	TypeVarUint ScalarType = "varuint" // trimmed to its significant bytes
	TypeString  ScalarType = "string"
	TypeBytes   ScalarType = "bytes"
)

var scalarTypes = map[ScalarType]struct{}{
	TypeBool:    {},
	TypeInt8:    {},
	TypeUint8:   {},
	TypeInt16:   {},
	TypeUint16:  {},
	TypeChar:    {},
	TypeInt32:   {},
	TypeUint32:  {},
	TypeFloat32: {},
	TypeInt64:   {},
	TypeUint64:  {},
	TypeFloat64: {},
	TypeUint128: {},
	TypeVarInt:  {},
	TypeVarUint: {},
	TypeString:  {},
	TypeBytes:   {},
}

// IsScalarType reports whether t is a known scalar.
func IsScalarType(t ScalarType) bool {
	_, ok := scalarTypes[t]
	return ok
}

// Enum represents an enum definition. Enum values travel as int32.
type Enum struct {
	Name     string       `json:"name" yaml:"name"`           // "Status"
	FullName string       `json:"full_name" yaml:"full_name"` // "shop.Status"
	Values   []*EnumValue `json:"values" yaml:"values"`       // enum values
}

// EnumValue represents an enum value
type EnumValue struct {
	Name   string `json:"name" yaml:"name"`     // "ACTIVE"
	Number int32  `json:"number" yaml:"number"` // 1
}

// FieldByName returns the field called name, matching either the declared
// name or its JSON name.
func (m *Message) FieldByName(name string) *Field {
	for _, f := range m.Fields {
		if f.Name == name || (f.JsonName != "" && f.JsonName == name) {
			return f
		}
	}
	return nil
}

// FieldByIndex returns the field carrying index, or nil.
func (m *Message) FieldByIndex(index uint32) *Field {
	for _, f := range m.Fields {
		if f.Index == index {
			return f
		}
	}
	return nil
}

// Validate checks that field indices are in range and unique, that scalar
// fields name a known scalar, and that map fields have a usable key.
func (m *Message) Validate() error {
	seen := make(map[uint32]string, len(m.Fields))
	for _, f := range m.Fields {
		if f.Index == 0 || f.Index > MaxFieldIndex {
			return fmt.Errorf("message %s: field %s has index %d outside 1..%d", m.Name, f.Name, f.Index, MaxFieldIndex)
		}
		if other, dup := seen[f.Index]; dup {
			return fmt.Errorf("message %s: fields %s and %s share index %d", m.Name, other, f.Name, f.Index)
		}
		seen[f.Index] = f.Name

		switch f.Type.Kind {
		case KindScalar:
			if !IsScalarType(f.Type.Scalar) {
				return fmt.Errorf("message %s: field %s has unknown scalar type %q", m.Name, f.Name, f.Type.Scalar)
			}
		case KindMessage:
			if f.Type.MessageType == "" {
				return fmt.Errorf("message %s: field %s has no message type", m.Name, f.Name)
			}
		case KindEnum:
			if f.Type.EnumType == "" {
				return fmt.Errorf("message %s: field %s has no enum type", m.Name, f.Name)
			}
		case KindMap:
			if f.Label == LabelRepeated {
				return fmt.Errorf("message %s: map field %s cannot be repeated", m.Name, f.Name)
			}
			if err := validateMapType(f.Type); err != nil {
				return fmt.Errorf("message %s: map field %s: %w", m.Name, f.Name, err)
			}
		default:
			return fmt.Errorf("message %s: field %s has unknown kind %q", m.Name, f.Name, f.Type.Kind)
		}
	}
	return nil
}

var mapKeyScalars = map[ScalarType]struct{}{
	TypeBool:    {},
	TypeInt8:    {},
	TypeUint8:   {},
	TypeInt16:   {},
	TypeUint16:  {},
	TypeChar:    {},
	TypeInt32:   {},
	TypeUint32:  {},
	TypeInt64:   {},
	TypeUint64:  {},
	TypeVarInt:  {},
	TypeVarUint: {},
	TypeString:  {},
}

// IsMapKeyType reports whether t may key a map: integral scalars, bool,
// char and string.
func IsMapKeyType(t ScalarType) bool {
	_, ok := mapKeyScalars[t]
	return ok
}

func validateMapType(t FieldType) error {
	if t.MapKey == nil || t.MapValue == nil {
		return fmt.Errorf("missing key or value type")
	}
	if t.MapKey.Kind != KindScalar || !IsMapKeyType(t.MapKey.Scalar) {
		return fmt.Errorf("key type %q cannot key a map", t.MapKey.Scalar)
	}

	v := t.MapValue
	switch v.Kind {
	case KindScalar:
		if !IsScalarType(v.Scalar) {
			return fmt.Errorf("unknown value scalar type %q", v.Scalar)
		}
	case KindMessage:
		if v.MessageType == "" {
			return fmt.Errorf("value has no message type")
		}
	case KindEnum:
		if v.EnumType == "" {
			return fmt.Errorf("value has no enum type")
		}
	default:
		return fmt.Errorf("value kind %q is not allowed", v.Kind)
	}
	return nil
}

// ValueByName returns the enum value called name, or nil.
func (e *Enum) ValueByName(name string) *EnumValue {
	for _, v := range e.Values {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// ValueByNumber returns the first enum value numbered n, or nil.
func (e *Enum) ValueByNumber(n int32) *EnumValue {
	for _, v := range e.Values {
		if v.Number == n {
			return v
		}
	}
	return nil
}
