package registry

import (
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"

	protoparser "github.com/yoheimuta/go-protoparser/v4"
	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"

	"github.com/anirudhraja/accelite/schema"
)

// protoScalars maps schema-language scalar names to accel scalars. The
// accel names themselves are accepted too so schemas can use the narrow
// and variable-width types directly.
var protoScalars = map[string]schema.ScalarType{
	"double":   schema.TypeFloat64,
	"float":    schema.TypeFloat32,
	"int32":    schema.TypeInt32,
	"sfixed32": schema.TypeInt32,
	"uint32":   schema.TypeUint32,
	"fixed32":  schema.TypeUint32,
	"int64":    schema.TypeInt64,
	"sfixed64": schema.TypeInt64,
	"uint64":   schema.TypeUint64,
	"fixed64":  schema.TypeUint64,
	"sint32":   schema.TypeVarInt,
	"sint64":   schema.TypeVarInt,
	"bool":     schema.TypeBool,
	"string":   schema.TypeString,
	"bytes":    schema.TypeBytes,

	"int8":    schema.TypeInt8,
	"uint8":   schema.TypeUint8,
	"int16":   schema.TypeInt16,
	"uint16":  schema.TypeUint16,
	"char":    schema.TypeChar,
	"float32": schema.TypeFloat32,
	"float64": schema.TypeFloat64,
	"uint128": schema.TypeUint128,
	"varint":  schema.TypeVarInt,
	"varuint": schema.TypeVarUint,
}

// parseProto parses one schema file and converts it to schema types. Field
// references are left unresolved; the import locations are returned
// separately so the caller can follow them.
func parseProto(name string, src io.Reader) (*schema.File, []string, error) {
	parsed, err := protoparser.Parse(src, protoparser.WithFilename(name))
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", name, err)
	}

	file := &schema.File{Name: name}
	var imports []string

	for _, body := range parsed.ProtoBody {
		switch b := body.(type) {
		case *protoparserparser.Package:
			file.Package = b.Name
		case *protoparserparser.Import:
			imports = append(imports, strings.Trim(b.Location, `"`))
		case *protoparserparser.Message:
			msg, err := convertMessage(b)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", name, err)
			}
			file.Messages = append(file.Messages, msg)
		case *protoparserparser.Enum:
			enum, err := convertEnum(b)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", name, err)
			}
			file.Enums = append(file.Enums, enum)
		}
	}

	return file, imports, nil
}

func convertMessage(m *protoparserparser.Message) (*schema.Message, error) {
	msg := &schema.Message{Name: m.MessageName}

	for _, body := range m.MessageBody {
		switch b := body.(type) {
		case *protoparserparser.Field:
			field, err := convertField(b.FieldName, b.Type, b.FieldNumber, b.IsRepeated)
			if err != nil {
				return nil, fmt.Errorf("message %s: %w", m.MessageName, err)
			}
			msg.Fields = append(msg.Fields, field)
		case *protoparserparser.Oneof:
			// oneof members are plain optional fields on the wire
			for _, of := range b.OneofFields {
				field, err := convertField(of.FieldName, of.Type, of.FieldNumber, false)
				if err != nil {
					return nil, fmt.Errorf("message %s: %w", m.MessageName, err)
				}
				msg.Fields = append(msg.Fields, field)
			}
		case *protoparserparser.MapField:
			field, err := convertMapField(b)
			if err != nil {
				return nil, fmt.Errorf("message %s: %w", m.MessageName, err)
			}
			msg.Fields = append(msg.Fields, field)
		case *protoparserparser.Message:
			nested, err := convertMessage(b)
			if err != nil {
				return nil, err
			}
			msg.NestedTypes = append(msg.NestedTypes, nested)
		case *protoparserparser.Enum:
			nested, err := convertEnum(b)
			if err != nil {
				return nil, err
			}
			msg.NestedEnums = append(msg.NestedEnums, nested)
		}
	}

	return msg, nil
}

func convertField(name, typeName, number string, repeated bool) (*schema.Field, error) {
	index, err := strconv.ParseUint(number, 0, 32)
	if err != nil {
		return nil, fmt.Errorf("field %s: invalid number %q: %w", name, number, err)
	}

	field := &schema.Field{
		Name:     name,
		Index:    uint32(index),
		Label:    schema.LabelOptional,
		JsonName: toLowerCamel(name),
	}
	if repeated {
		field.Label = schema.LabelRepeated
	}

	if scalar, ok := protoScalars[typeName]; ok {
		field.Type = schema.FieldType{Kind: schema.KindScalar, Scalar: scalar}
	} else {
		// resolved to a message or enum once all names are known
		field.Type = schema.FieldType{Kind: schema.KindMessage, MessageType: typeName}
	}
	return field, nil
}

func convertMapField(f *protoparserparser.MapField) (*schema.Field, error) {
	field, err := convertField(f.MapName, f.Type, f.FieldNumber, false)
	if err != nil {
		return nil, err
	}

	key, ok := protoScalars[f.KeyType]
	if !ok || !schema.IsMapKeyType(key) {
		return nil, fmt.Errorf("map field %s: invalid key type %s", f.MapName, f.KeyType)
	}
	value := field.Type
	field.Type = schema.FieldType{
		Kind:     schema.KindMap,
		MapKey:   &schema.FieldType{Kind: schema.KindScalar, Scalar: key},
		MapValue: &value,
	}
	return field, nil
}

func convertEnum(e *protoparserparser.Enum) (*schema.Enum, error) {
	enum := &schema.Enum{Name: e.EnumName}
	for _, body := range e.EnumBody {
		ef, ok := body.(*protoparserparser.EnumField)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(ef.Number, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("enum %s value %s: invalid number %q: %w", e.EnumName, ef.Ident, ef.Number, err)
		}
		enum.Values = append(enum.Values, &schema.EnumValue{Name: ef.Ident, Number: int32(n)})
	}
	return enum, nil
}

func findIfProtoExists(protoPath string, dirs []string) (string, error) {
	var (
		fullPath      string
		fullProtoPath string
		err           error
	)
	protoPath = strings.Trim(protoPath, `"`)
	for _, dir := range dirs {
		fullPath = path.Join(dir, protoPath)
		if _, err = os.Stat(fullPath); err == nil {
			fullProtoPath = fullPath
			break
		}
	}
	if fullProtoPath == "" {
		return "", fmt.Errorf("import %s not found in %s: %w", protoPath, strings.Join(dirs, ", "), err)
	}
	if !strings.HasSuffix(fullProtoPath, ".proto") {
		return "", fmt.Errorf("import %s is not a .proto file", fullProtoPath)
	}
	return fullProtoPath, nil
}

// getReferencedType resolves a type reference made from inside scope:
// a leading dot means fully qualified, otherwise the reference is tried
// as written and then relative to each enclosing scope, innermost first.
func getReferencedType(typeName, scope string, known map[string]struct{}) (string, error) {
	if strings.HasPrefix(typeName, ".") {
		return getFullyQualifiedType(typeName, known)
	}
	if result, ok := splitNameAndCheck(typeName, scope, known); ok {
		return result, nil
	}
	if _, ok := known[typeName]; ok {
		return typeName, nil
	}
	return "", fmt.Errorf("unable to resolve type name: %s", typeName)
}

// splitNameAndCheck appends typeName to scope and each of its parents in
// turn until a known name is found.
func splitNameAndCheck(typeName, scope string, known map[string]struct{}) (string, bool) {
	scopeSplit := strings.Split(scope, ".")

	for len(scopeSplit) > 0 && scopeSplit[0] != "" {
		entityName := strings.Join(scopeSplit, ".") + "." + typeName
		if _, ok := known[entityName]; ok {
			return entityName, true
		}
		scopeSplit = scopeSplit[:len(scopeSplit)-1]
	}
	return "", false
}

func getFullyQualifiedType(typeName string, known map[string]struct{}) (string, error) {
	typeName = strings.TrimPrefix(typeName, ".")
	if _, ok := known[typeName]; ok {
		return typeName, nil
	}
	return "", fmt.Errorf("unable to resolve fully qualified type name: .%s", typeName)
}

// toLowerCamel converts snake_case to lowerCamelCase.
func toLowerCamel(s string) string {
	if !strings.Contains(s, "_") {
		if s != "" && s[0] >= 'A' && s[0] <= 'Z' {
			return string(s[0]-'A'+'a') + s[1:]
		}
		return s
	}

	out := make([]byte, 0, len(s))
	upperNext := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			upperNext = len(out) > 0
			continue
		}
		if len(out) == 0 && c >= 'A' && c <= 'Z' {
			c = c - 'A' + 'a'
		} else if upperNext && c >= 'a' && c <= 'z' {
			c = c - 'a' + 'A'
		}
		upperNext = false
		out = append(out, c)
	}
	return string(out)
}
