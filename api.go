package accelite

import (
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"github.com/anirudhraja/accelite/compress"
	"github.com/anirudhraja/accelite/envelope"
	"github.com/anirudhraja/accelite/internal/options"
	"github.com/anirudhraja/accelite/registry"
	"github.com/anirudhraja/accelite/schema"
	"github.com/anirudhraja/accelite/wire"
)

// ===== SCHEMA-AWARE API =====

// Accelite provides schema-aware encoding and decoding of accel streams
// without generated code.
type Accelite struct {
	registry    *registry.Registry
	cfg         wire.Config
	decodeOpts  wire.DecodeOptions
	compression compress.Type
	logger      *zap.Logger
	protoDirs   []string
}

// Option configures an Accelite instance.
type Option = options.Option[*Accelite]

// WithLogger sets the logger shared with the registry and the codec.
func WithLogger(logger *zap.Logger) Option {
	return options.NoError(func(a *Accelite) {
		if logger != nil {
			a.logger = logger
		}
	})
}

// WithConfig sets the config new streams are written with.
func WithConfig(cfg wire.Config) Option {
	return options.New(func(a *Accelite) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		a.cfg = cfg
		return nil
	})
}

// WithCompression sets the compression Pack applies.
func WithCompression(t compress.Type) Option {
	return options.New(func(a *Accelite) error {
		if _, err := compress.GetCodec(t); err != nil {
			return err
		}
		a.compression = t
		return nil
	})
}

// WithDecodeOptions overrides the process-wide decode options.
func WithDecodeOptions(o wire.DecodeOptions) Option {
	return options.NoError(func(a *Accelite) {
		a.decodeOpts = o
	})
}

// WithProtoDirectories adds directories searched for schema imports.
func WithProtoDirectories(dirs ...string) Option {
	return options.NoError(func(a *Accelite) {
		a.protoDirs = append(a.protoDirs, dirs...)
	})
}

// New creates an Accelite instance. Streams default to UTF-8 strings,
// little-endian payloads and no compression.
func New(opts ...Option) (*Accelite, error) {
	a := &Accelite{
		cfg:         wire.DefaultConfig,
		decodeOpts:  wire.GetDecodeOptions(),
		compression: compress.None,
		logger:      zap.NewNop(),
	}
	if err := options.Apply(a, opts...); err != nil {
		return nil, err
	}

	a.registry = registry.NewRegistry(
		registry.WithLogger(a.logger.Named("registry")),
		registry.WithProtoDirectories(a.protoDirs...),
	)
	return a, nil
}

// LoadSchema loads a .proto file or every .proto file below a directory.
func (a *Accelite) LoadSchema(path string) error {
	if err := a.registry.LoadSchema(path); err != nil {
		return err
	}
	a.logger.Debug("schema loaded",
		zap.String("path", path),
		zap.Int("messages", len(a.registry.ListMessages())))
	return nil
}

// Register adds a hand-built message schema.
func (a *Accelite) Register(msg *schema.Message) error {
	return a.registry.Register(msg)
}

// Parse decodes a complete stream, config byte included, as messageType.
func (a *Accelite) Parse(data []byte, messageType string) (map[string]any, error) {
	msg, err := a.registry.GetMessage(messageType)
	if err != nil {
		return nil, fmt.Errorf("message type not found: %s", messageType)
	}

	r, err := wire.OpenStream(data)
	if err != nil {
		return nil, err
	}
	return wire.NewMessageDecoder(a.registry, a.decodeOpts, a.logger.Named("decoder")).Decode(r, msg)
}

// Marshal encodes data as messageType into a complete stream.
func (a *Accelite) Marshal(data map[string]any, messageType string) ([]byte, error) {
	msg, err := a.registry.GetMessage(messageType)
	if err != nil {
		return nil, fmt.Errorf("message type not found: %s", messageType)
	}

	w, err := wire.NewWriter(a.cfg, wire.WithHeader())
	if err != nil {
		return nil, err
	}
	if err := wire.NewMessageEncoder(a.registry, a.logger.Named("encoder")).Encode(w, data, msg); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Unmarshal decodes a complete stream into the struct v points to. The
// struct's type name selects the message; fields are matched by their
// `accel` tag, then their `json` tag, then their name.
func (a *Accelite) Unmarshal(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("unmarshal target must be a pointer to struct")
	}

	messageType := rv.Elem().Type().Name()
	result, err := a.Parse(data, messageType)
	if err != nil {
		return err
	}

	return mapToStruct(result, rv.Elem())
}

// Inspect walks a complete stream without a schema and reports every field.
func (a *Accelite) Inspect(data []byte) ([]wire.FieldInfo, error) {
	r, err := wire.OpenStream(data)
	if err != nil {
		return nil, err
	}

	var fields []wire.FieldInfo
	err = r.Walk(func(info wire.FieldInfo) error {
		fields = append(fields, info)
		return nil
	})
	return fields, err
}

// Pack frames a stream with the configured compression and a checksum.
func (a *Accelite) Pack(stream []byte) ([]byte, error) {
	return envelope.Pack(stream, a.compression)
}

// Unpack verifies a frame produced by Pack and returns the stream.
func (a *Accelite) Unpack(frame []byte) ([]byte, error) {
	return envelope.Unpack(frame)
}

// mapToStruct maps parsed result to struct fields
func mapToStruct(data map[string]any, rv reflect.Value) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fieldValue := rv.Field(i)

		if !fieldValue.CanSet() {
			continue
		}

		if value, ok := data[fieldKey(field)]; ok {
			if err := setFieldValue(fieldValue, value); err != nil {
				return fmt.Errorf("failed to set field %s: %w", field.Name, err)
			}
		}
	}
	return nil
}

func fieldKey(field reflect.StructField) string {
	for _, tag := range []string{"accel", "json"} {
		if name, _, _ := strings.Cut(field.Tag.Get(tag), ","); name != "" && name != "-" {
			return name
		}
	}
	return field.Name
}

// setFieldValue sets a struct field with type conversion
func setFieldValue(fieldValue reflect.Value, value any) error {
	if value == nil {
		return nil
	}

	sourceValue := reflect.ValueOf(value)
	if sourceValue.Type().AssignableTo(fieldValue.Type()) {
		fieldValue.Set(sourceValue)
		return nil
	}

	if nested, ok := value.(map[string]any); ok && fieldValue.Kind() == reflect.Struct {
		return mapToStruct(nested, fieldValue)
	}

	if sourceValue.Kind() == reflect.Slice && fieldValue.Kind() == reflect.Slice &&
		sourceValue.Type().Elem().Kind() == reflect.Interface {
		out := reflect.MakeSlice(fieldValue.Type(), sourceValue.Len(), sourceValue.Len())
		for i := 0; i < sourceValue.Len(); i++ {
			if err := setFieldValue(out.Index(i), sourceValue.Index(i).Interface()); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		fieldValue.Set(out)
		return nil
	}

	if nested, ok := value.(map[string]any); ok && fieldValue.Kind() == reflect.Map &&
		fieldValue.Type().Key().Kind() == reflect.String {
		out := reflect.MakeMapWithSize(fieldValue.Type(), len(nested))
		for k, v := range nested {
			elem := reflect.New(fieldValue.Type().Elem()).Elem()
			if err := setFieldValue(elem, v); err != nil {
				return fmt.Errorf("key %s: %w", k, err)
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(fieldValue.Type().Key()), elem)
		}
		fieldValue.Set(out)
		return nil
	}

	// an int to string conversion yields a code point, not digits
	if fieldValue.Kind() == reflect.String && isNumericKind(sourceValue.Kind()) {
		return fmt.Errorf("cannot convert %T to %s", value, fieldValue.Type())
	}
	if sourceValue.Type().ConvertibleTo(fieldValue.Type()) {
		fieldValue.Set(sourceValue.Convert(fieldValue.Type()))
		return nil
	}

	return fmt.Errorf("cannot convert %T to %s", value, fieldValue.Type())
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// ===== REGISTRY ACCESS =====

func (a *Accelite) GetRegistry() *registry.Registry { return a.registry }
func (a *Accelite) Config() wire.Config             { return a.cfg }
func (a *Accelite) ListMessages() []string          { return a.registry.ListMessages() }
func (a *Accelite) ListEnums() []string             { return a.registry.ListEnums() }
