package registry

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/anirudhraja/accelite/internal/options"
	"github.com/anirudhraja/accelite/schema"
)

// Registry stores message and enum schemas by fully qualified name. The
// dynamic codec looks them up when it parses or marshals a message.
// A Registry is safe for concurrent use.
type Registry struct {
	// ProtoDirectories are searched, in order, when resolving imports.
	ProtoDirectories []string

	mu       sync.RWMutex
	files    map[string]*schema.File    // path -> parsed file
	messages map[string]*schema.Message // fully qualified name -> message
	enums    map[string]*schema.Enum    // fully qualified name -> enum
	logger   *zap.Logger
}

// Option configures a Registry.
type Option = options.Option[*Registry]

// WithLogger sets the logger used for schema loading diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return options.NoError(func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	})
}

// WithProtoDirectories adds import search directories.
func WithProtoDirectories(dirs ...string) Option {
	return options.NoError(func(r *Registry) {
		r.ProtoDirectories = append(r.ProtoDirectories, dirs...)
	})
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		files:    make(map[string]*schema.File),
		messages: make(map[string]*schema.Message),
		enums:    make(map[string]*schema.Enum),
		logger:   zap.NewNop(),
	}
	_ = options.Apply(r, opts...)
	return r
}

// Register adds a hand-built message and its nested types. Field types
// must already be fully qualified.
func (r *Registry) Register(msg *schema.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.registerMessage(msg, "")
}

// RegisterEnum adds a hand-built enum.
func (r *Registry) RegisterEnum(enum *schema.Enum) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.registerEnum(enum, "")
}

// LoadSchema loads a .proto file, or every .proto file below a directory,
// together with the files they import.
func (r *Registry) LoadSchema(protoPath string) error {
	info, err := os.Stat(protoPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	var paths []string
	if !info.IsDir() {
		if !strings.HasSuffix(protoPath, ".proto") {
			return fmt.Errorf("file %s is not a .proto file", protoPath)
		}
		paths = append(paths, protoPath)
	} else {
		err = filepath.WalkDir(protoPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".proto") {
				return nil
			}
			paths = append(paths, path)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to walk directory: %w", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dirs := r.ProtoDirectories
	if info.IsDir() {
		dirs = append([]string{protoPath}, dirs...)
	} else {
		dirs = append([]string{filepath.Dir(protoPath)}, dirs...)
	}

	var loaded []*schema.File
	for _, path := range paths {
		files, err := r.loadWithImports(path, dirs)
		if err != nil {
			return err
		}
		loaded = append(loaded, files...)
	}

	return r.buildSymbolTable(loaded)
}

// LoadProto parses a single schema read from src. name identifies the file
// in diagnostics; imports are not followed.
func (r *Registry) LoadProto(name string, src io.Reader) error {
	file, _, err := parseProto(name, src)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.files[name] = file
	return r.buildSymbolTable([]*schema.File{file})
}

// loadWithImports parses path and, depth first, every file it imports that
// has not been loaded yet.
func (r *Registry) loadWithImports(path string, dirs []string) ([]*schema.File, error) {
	var loaded []*schema.File

	var dfs func(path string) error
	dfs = func(path string) error {
		if _, ok := r.files[path]; ok {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		defer f.Close()

		file, imports, err := parseProto(filepath.Base(path), f)
		if err != nil {
			return fmt.Errorf("failed to load proto file %s: %w", path, err)
		}
		r.files[path] = file
		loaded = append(loaded, file)

		r.logger.Debug("parsed schema file",
			zap.String("path", path),
			zap.String("package", file.Package),
			zap.Int("messages", len(file.Messages)),
			zap.Int("enums", len(file.Enums)))

		for _, imp := range imports {
			if strings.HasPrefix(imp, "google/protobuf/") {
				continue
			}
			full, err := findIfProtoExists(imp, append([]string{filepath.Dir(path)}, dirs...))
			if err != nil {
				return err
			}
			file.Imports = append(file.Imports, full)
			if err := dfs(full); err != nil {
				return err
			}
		}
		return nil
	}

	if err := dfs(path); err != nil {
		return nil, err
	}
	return loaded, nil
}

// buildSymbolTable registers the names declared by files, then resolves the
// type references of their fields against everything registered so far.
func (r *Registry) buildSymbolTable(files []*schema.File) error {
	// Pass 1: register all message and enum names
	for _, file := range files {
		for _, msg := range file.Messages {
			if err := r.registerMessage(msg, file.Package); err != nil {
				return err
			}
		}
		for _, enum := range file.Enums {
			if err := r.registerEnum(enum, file.Package); err != nil {
				return err
			}
		}
	}

	// Pass 2: resolve field type references
	known := make(map[string]struct{}, len(r.messages)+len(r.enums))
	for name := range r.messages {
		known[name] = struct{}{}
	}
	for name := range r.enums {
		known[name] = struct{}{}
	}

	for _, file := range files {
		for _, msg := range file.Messages {
			if err := r.resolveMessage(msg, known); err != nil {
				return err
			}
		}
	}

	return nil
}

func (r *Registry) registerMessage(msg *schema.Message, scope string) error {
	if msg == nil || msg.Name == "" {
		return fmt.Errorf("message has no name")
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	if msg.FullName == "" {
		msg.FullName = getFullName(scope, msg.Name)
	}
	r.messages[msg.FullName] = msg

	for _, nested := range msg.NestedTypes {
		nested.FullName = getFullName(msg.FullName, nested.Name)
		if err := r.registerMessage(nested, msg.FullName); err != nil {
			return err
		}
	}
	for _, nested := range msg.NestedEnums {
		if err := r.registerEnum(nested, msg.FullName); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) registerEnum(enum *schema.Enum, scope string) error {
	if enum == nil || enum.Name == "" {
		return fmt.Errorf("enum has no name")
	}
	if enum.FullName == "" {
		enum.FullName = getFullName(scope, enum.Name)
	}
	r.enums[enum.FullName] = enum
	return nil
}

// resolveMessage rewrites the message and enum references of msg's fields to
// fully qualified names, including the value types of map fields. References
// parsed from a schema file start out as KindMessage; those naming an enum
// become KindEnum.
func (r *Registry) resolveMessage(msg *schema.Message, known map[string]struct{}) error {
	for _, field := range msg.Fields {
		typ := &field.Type
		if typ.Kind == schema.KindMap {
			typ = typ.MapValue
		}
		if typ.Kind == schema.KindScalar {
			continue
		}

		ref := typ.MessageType
		if typ.Kind == schema.KindEnum {
			ref = typ.EnumType
		}

		resolved, err := getReferencedType(ref, msg.FullName, known)
		if err != nil {
			return fmt.Errorf("message %s field %s: %w", msg.FullName, field.Name, err)
		}

		if _, isEnum := r.enums[resolved]; isEnum {
			*typ = schema.FieldType{Kind: schema.KindEnum, EnumType: resolved}
		} else {
			*typ = schema.FieldType{Kind: schema.KindMessage, MessageType: resolved}
		}
	}

	for _, nested := range msg.NestedTypes {
		if err := r.resolveMessage(nested, known); err != nil {
			return err
		}
	}
	return nil
}

func getFullName(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// GetMessage retrieves a message definition by fully qualified name, or by
// a trailing part of it when that is unambiguous.
func (r *Registry) GetMessage(name string) (*schema.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msg, err := lookup(r.messages, name)
	if err != nil {
		return nil, fmt.Errorf("message %w", err)
	}
	return msg, nil
}

// GetEnum retrieves an enum definition by name, like GetMessage.
func (r *Registry) GetEnum(name string) (*schema.Enum, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	enum, err := lookup(r.enums, name)
	if err != nil {
		return nil, fmt.Errorf("enum %w", err)
	}
	return enum, nil
}

func lookup[T any](table map[string]T, name string) (T, error) {
	name = strings.TrimPrefix(name, ".")
	if v, ok := table[name]; ok {
		return v, nil
	}

	var matches []string
	for fullName := range table {
		if strings.HasSuffix(fullName, "."+name) {
			matches = append(matches, fullName)
		}
	}

	var zero T
	switch len(matches) {
	case 0:
		return zero, fmt.Errorf("not found: %s", name)
	case 1:
		return table[matches[0]], nil
	default:
		sort.Strings(matches)
		return zero, fmt.Errorf("name %s is ambiguous: %s", name, strings.Join(matches, ", "))
	}
}

// ListMessages returns all registered message names in sorted order.
func (r *Registry) ListMessages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedKeys(r.messages)
}

// ListEnums returns all registered enum names in sorted order.
func (r *Registry) ListEnums() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedKeys(r.enums)
}

func sortedKeys[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
