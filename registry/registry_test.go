package registry

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/anirudhraja/accelite/schema"
)

const orderProto = `syntax = "proto3";
package shop;

message Order {
  uint64 id = 1;
  string customer_name = 2;
  Status status = 3;
  repeated Line lines = 4;
  sint64 balance = 5;
  uint128 trace_id = 6;
  double total = 7;

  oneof contact {
    string email = 8;
    string phone = 9;
  }

  message Line {
    string sku = 1;
    uint16 quantity = 2;
    float unit_price = 3;
  }
}

enum Status {
  UNKNOWN = 0;
  ACTIVE = 1;
  SHIPPED = 2;
}
`

func writeProto(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry(WithProtoDirectories("/a", "/b"))

	if registry == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if registry.messages == nil || registry.enums == nil || registry.files == nil {
		t.Error("Expected maps to be initialized")
	}
	if len(registry.ListMessages()) != 0 || len(registry.ListEnums()) != 0 {
		t.Error("Expected an empty registry")
	}
	if len(registry.ProtoDirectories) != 2 || registry.ProtoDirectories[1] != "/b" {
		t.Errorf("Expected proto directories [/a /b], got %v", registry.ProtoDirectories)
	}
}

func TestLoadSchema_NonExistentPath(t *testing.T) {
	registry := NewRegistry()

	err := registry.LoadSchema("/nonexistent/path")
	if err == nil {
		t.Fatal("Expected error for non-existent path")
	}
	if !strings.Contains(err.Error(), "path does not exist") {
		t.Errorf("Expected 'path does not exist' error, got: %v", err)
	}
}

func TestLoadSchema_NonProtoFile(t *testing.T) {
	path := writeProto(t, t.TempDir(), "test.txt", "not a schema")

	err := NewRegistry().LoadSchema(path)
	if err == nil {
		t.Fatal("Expected error for non-proto file")
	}
	if !strings.Contains(err.Error(), "is not a .proto file") {
		t.Errorf("Expected 'is not a .proto file' error, got: %v", err)
	}
}

func TestLoadSchema_SingleProtoFile(t *testing.T) {
	path := writeProto(t, t.TempDir(), "order.proto", orderProto)

	registry := NewRegistry()
	if err := registry.LoadSchema(path); err != nil {
		t.Fatalf("LoadSchema failed: %v", err)
	}

	messages := registry.ListMessages()
	if strings.Join(messages, ",") != "shop.Order,shop.Order.Line" {
		t.Errorf("Unexpected messages: %v", messages)
	}
	enums := registry.ListEnums()
	if strings.Join(enums, ",") != "shop.Status" {
		t.Errorf("Unexpected enums: %v", enums)
	}

	file := registry.files[path]
	if file == nil {
		t.Fatal("Proto file data is nil")
	}
	if file.Package != "shop" {
		t.Errorf("Expected package 'shop', got '%s'", file.Package)
	}

	order, err := registry.GetMessage("shop.Order")
	if err != nil {
		t.Fatal(err)
	}
	if order.FullName != "shop.Order" {
		t.Errorf("Expected full name shop.Order, got %s", order.FullName)
	}

	tests := []struct {
		name  string
		index uint32
		label schema.FieldLabel
		want  schema.FieldType
		json  string
	}{
		{"id", 1, schema.LabelOptional, schema.FieldType{Kind: schema.KindScalar, Scalar: schema.TypeUint64}, "id"},
		{"customer_name", 2, schema.LabelOptional, schema.FieldType{Kind: schema.KindScalar, Scalar: schema.TypeString}, "customerName"},
		{"status", 3, schema.LabelOptional, schema.FieldType{Kind: schema.KindEnum, EnumType: "shop.Status"}, "status"},
		{"lines", 4, schema.LabelRepeated, schema.FieldType{Kind: schema.KindMessage, MessageType: "shop.Order.Line"}, "lines"},
		{"balance", 5, schema.LabelOptional, schema.FieldType{Kind: schema.KindScalar, Scalar: schema.TypeVarInt}, "balance"},
		{"trace_id", 6, schema.LabelOptional, schema.FieldType{Kind: schema.KindScalar, Scalar: schema.TypeUint128}, "traceId"},
		{"total", 7, schema.LabelOptional, schema.FieldType{Kind: schema.KindScalar, Scalar: schema.TypeFloat64}, "total"},
		{"email", 8, schema.LabelOptional, schema.FieldType{Kind: schema.KindScalar, Scalar: schema.TypeString}, "email"},
		{"phone", 9, schema.LabelOptional, schema.FieldType{Kind: schema.KindScalar, Scalar: schema.TypeString}, "phone"},
	}

	for _, tt := range tests {
		field := order.FieldByName(tt.name)
		if field == nil {
			t.Errorf("Field %s not found", tt.name)
			continue
		}
		if field.Index != tt.index {
			t.Errorf("Field %s: expected index %d, got %d", tt.name, tt.index, field.Index)
		}
		if field.Label != tt.label {
			t.Errorf("Field %s: expected label %s, got %s", tt.name, tt.label, field.Label)
		}
		if field.Type != tt.want {
			t.Errorf("Field %s: expected type %+v, got %+v", tt.name, tt.want, field.Type)
		}
		if field.JsonName != tt.json {
			t.Errorf("Field %s: expected json name %s, got %s", tt.name, tt.json, field.JsonName)
		}
	}

	line, err := registry.GetMessage("Order.Line")
	if err != nil {
		t.Fatal(err)
	}
	if f := line.FieldByName("unitPrice"); f == nil || f.Type.Scalar != schema.TypeFloat32 {
		t.Errorf("Expected unitPrice to resolve to a float32 field, got %+v", f)
	}
	if f := line.FieldByIndex(2); f == nil || f.Type.Scalar != schema.TypeUint16 {
		t.Errorf("Expected field 2 to be uint16, got %+v", f)
	}
}

func TestLoadSchema_MapFields(t *testing.T) {
	path := writeProto(t, t.TempDir(), "stock.proto", `syntax = "proto3";
package stock;

enum Grade {
  GRADE_UNKNOWN = 0;
  GRADE_A = 1;
}

message Warehouse {
  message Bin {
    string label = 1;
  }

  map<string, uint32> counts = 1;
  map<int64, Bin> bins = 2;
  map<bool, Grade> grades = 3;
}
`)

	registry := NewRegistry()
	if err := registry.LoadSchema(path); err != nil {
		t.Fatalf("LoadSchema failed: %v", err)
	}

	msg, err := registry.GetMessage("stock.Warehouse")
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}

	tests := []struct {
		name  string
		key   schema.ScalarType
		value schema.FieldType
	}{
		{name: "counts", key: schema.TypeString, value: schema.FieldType{Kind: schema.KindScalar, Scalar: schema.TypeUint32}},
		{name: "bins", key: schema.TypeInt64, value: schema.FieldType{Kind: schema.KindMessage, MessageType: "stock.Warehouse.Bin"}},
		{name: "grades", key: schema.TypeBool, value: schema.FieldType{Kind: schema.KindEnum, EnumType: "stock.Grade"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field := msg.FieldByName(tt.name)
			if field == nil {
				t.Fatalf("Field %s not found", tt.name)
			}
			if field.Type.Kind != schema.KindMap || field.Label != schema.LabelOptional {
				t.Fatalf("Expected an optional map field, got %s %s", field.Label, field.Type.Kind)
			}
			if field.Type.MapKey == nil || field.Type.MapKey.Scalar != tt.key {
				t.Errorf("Expected key type %s, got %+v", tt.key, field.Type.MapKey)
			}
			if field.Type.MapValue == nil || *field.Type.MapValue != tt.value {
				t.Errorf("Expected value type %+v, got %+v", tt.value, field.Type.MapValue)
			}
		})
	}
}

func TestLoadSchema_FollowsImports(t *testing.T) {
	dir := t.TempDir()
	writeProto(t, dir, "common/money.proto", `syntax = "proto3";
package common;

message Money {
  string currency = 1;
  int64 units = 2;
}
`)
	orders := writeProto(t, t.TempDir(), "invoice.proto", `syntax = "proto3";
package billing;

import "common/money.proto";
import "google/protobuf/timestamp.proto";

message Invoice {
  common.Money amount = 1;
}
`)

	registry := NewRegistry(WithProtoDirectories(dir))
	if err := registry.LoadSchema(orders); err != nil {
		t.Fatalf("LoadSchema failed: %v", err)
	}

	invoice, err := registry.GetMessage("billing.Invoice")
	if err != nil {
		t.Fatal(err)
	}
	amount := invoice.FieldByName("amount")
	if amount == nil || amount.Type.Kind != schema.KindMessage || amount.Type.MessageType != "common.Money" {
		t.Errorf("Expected amount to reference common.Money, got %+v", amount)
	}

	file := registry.files[orders]
	if len(file.Imports) != 1 || file.Imports[0] != filepath.Join(dir, "common/money.proto") {
		t.Errorf("Expected one resolved import, got %v", file.Imports)
	}
}

func TestLoadSchema_MissingImport(t *testing.T) {
	path := writeProto(t, t.TempDir(), "broken.proto", `syntax = "proto3";
import "nowhere.proto";
message Broken { string a = 1; }
`)

	err := NewRegistry().LoadSchema(path)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected missing import error, got %v", err)
	}
}

func TestLoadSchema_Directory(t *testing.T) {
	dir := t.TempDir()
	writeProto(t, dir, "a.proto", `syntax = "proto3";
package alpha;
message Item { string name = 1; }
`)
	writeProto(t, dir, "nested/b.proto", `syntax = "proto3";
package beta;
import "a.proto";
message Item { alpha.Item inner = 1; }
enum Kind { NONE = 0; }
`)
	writeProto(t, dir, "README.md", "ignored")

	registry := NewRegistry()
	if err := registry.LoadSchema(dir); err != nil {
		t.Fatalf("LoadSchema failed: %v", err)
	}

	if got := strings.Join(registry.ListMessages(), ","); got != "alpha.Item,beta.Item" {
		t.Errorf("Unexpected messages: %s", got)
	}
	if got := strings.Join(registry.ListEnums(), ","); got != "beta.Kind" {
		t.Errorf("Unexpected enums: %s", got)
	}
}

func TestLoadSchema_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unresolved type",
			content: "syntax = \"proto3\";\nmessage A { Missing m = 1; }\n",
			wantErr: "unable to resolve type name: Missing",
		},
		{
			name:    "unresolved map value",
			content: "syntax = \"proto3\";\nmessage A { map<string, Missing> counts = 1; }\n",
			wantErr: "field counts: unable to resolve type name: Missing",
		},
		{
			name:    "duplicate index",
			content: "syntax = \"proto3\";\nmessage A { int32 a = 1; int32 b = 1; }\n",
			wantErr: "share index 1",
		},
		{
			name:    "syntax error",
			content: "syntax = \"proto3\";\nmessage A { int32 a = 1;\n",
			wantErr: "parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeProto(t, t.TempDir(), "bad.proto", tt.content)
			err := NewRegistry().LoadSchema(path)
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadProto(t *testing.T) {
	registry := NewRegistry()
	if err := registry.LoadProto("order.proto", strings.NewReader(orderProto)); err != nil {
		t.Fatalf("LoadProto failed: %v", err)
	}

	if _, err := registry.GetEnum("Status"); err != nil {
		t.Errorf("Expected Status enum, got %v", err)
	}
}

func TestGetMessage_NotFound(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.GetMessage("NonExistent")
	if err == nil || !strings.Contains(err.Error(), "message not found") {
		t.Errorf("Expected 'message not found' error, got %v", err)
	}

	_, err = registry.GetEnum("NonExistent")
	if err == nil || !strings.Contains(err.Error(), "enum not found") {
		t.Errorf("Expected 'enum not found' error, got %v", err)
	}
}

func TestGetMessage_Lookup(t *testing.T) {
	registry := NewRegistry()
	for _, pkg := range []string{"a", "b"} {
		err := registry.LoadProto(pkg+".proto", strings.NewReader("syntax = \"proto3\";\npackage "+pkg+";\nmessage Item { string name = 1; }\nmessage Only"+strings.ToUpper(pkg)+" { int32 x = 1; }\n"))
		if err != nil {
			t.Fatal(err)
		}
	}

	for _, name := range []string{"a.Item", ".a.Item", "OnlyA", "b.OnlyB"} {
		if _, err := registry.GetMessage(name); err != nil {
			t.Errorf("GetMessage(%q) failed: %v", name, err)
		}
	}

	_, err := registry.GetMessage("Item")
	if err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("Expected ambiguous error, got %v", err)
	}
}

func TestRegister(t *testing.T) {
	registry := NewRegistry()

	msg := &schema.Message{
		Name: "Point",
		Fields: []*schema.Field{
			{Name: "x", Index: 1, Type: schema.FieldType{Kind: schema.KindScalar, Scalar: schema.TypeInt32}},
			{Name: "y", Index: 2, Type: schema.FieldType{Kind: schema.KindScalar, Scalar: schema.TypeInt32}},
		},
		NestedTypes: []*schema.Message{{Name: "Meta"}},
		NestedEnums: []*schema.Enum{{Name: "Axis"}},
	}
	if err := registry.Register(msg); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if got := strings.Join(registry.ListMessages(), ","); got != "Point,Point.Meta" {
		t.Errorf("Unexpected messages: %s", got)
	}
	if _, err := registry.GetEnum("Point.Axis"); err != nil {
		t.Errorf("Expected nested enum, got %v", err)
	}

	bad := []*schema.Message{
		{},
		{Name: "Zero", Fields: []*schema.Field{{Name: "z", Index: 0, Type: schema.FieldType{Kind: schema.KindScalar, Scalar: schema.TypeBool}}}},
		{Name: "Huge", Fields: []*schema.Field{{Name: "h", Index: schema.MaxFieldIndex + 1, Type: schema.FieldType{Kind: schema.KindScalar, Scalar: schema.TypeBool}}}},
		{Name: "Scalar", Fields: []*schema.Field{{Name: "s", Index: 1, Type: schema.FieldType{Kind: schema.KindScalar, Scalar: "decimal"}}}},
	}
	for _, m := range bad {
		if err := registry.Register(m); err == nil {
			t.Errorf("Expected Register(%q) to fail", m.Name)
		}
	}

	if err := registry.RegisterEnum(&schema.Enum{}); err == nil {
		t.Error("Expected RegisterEnum to reject an unnamed enum")
	}
}

func TestRegistry_ConcurrentLookups(t *testing.T) {
	registry := NewRegistry()
	if err := registry.LoadProto("order.proto", strings.NewReader(orderProto)); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, err := registry.GetMessage("Order"); err != nil {
					t.Error(err)
					return
				}
				_ = registry.ListEnums()
			}
		}()
	}
	wg.Wait()
}

func TestGetFullName(t *testing.T) {
	tests := []struct {
		pkg, name, want string
	}{
		{"", "Msg", "Msg"},
		{"shop", "Msg", "shop.Msg"},
		{"shop.v1", "Msg", "shop.v1.Msg"},
	}

	for _, tt := range tests {
		if got := getFullName(tt.pkg, tt.name); got != tt.want {
			t.Errorf("getFullName(%q, %q) = %q, want %q", tt.pkg, tt.name, got, tt.want)
		}
	}
}

func TestToLowerCamel(t *testing.T) {
	tests := map[string]string{
		"id":             "id",
		"customer_name":  "customerName",
		"unit_price_usd": "unitPriceUsd",
		"Name":           "name",
		"_leading":       "leading",
		"a__b":           "aB",
	}

	for in, want := range tests {
		if got := toLowerCamel(in); got != want {
			t.Errorf("toLowerCamel(%q) = %q, want %q", in, got, want)
		}
	}
}
