package benchmark

import (
	"fmt"
	"testing"

	"github.com/anirudhraja/accelite"
	"github.com/anirudhraja/accelite/compress"
	"github.com/anirudhraja/accelite/envelope"
	"github.com/anirudhraja/accelite/wire"
)

var (
	client *accelite.Accelite

	simpleUser  map[string]any
	complexUser map[string]any

	simplePayload  []byte
	complexPayload []byte
)

func init() {
	var err error

	client, err = accelite.New()
	if err != nil {
		panic("failed to create client: " + err.Error())
	}
	if err = client.LoadSchema("testdata/user.proto"); err != nil {
		panic("failed to load schema: " + err.Error())
	}

	simpleUser = map[string]any{
		"id":     int32(123),
		"name":   "John Doe",
		"active": true,
		"email":  "john@example.com",
	}
	complexUser = createComplexUser()

	if simplePayload, err = client.Marshal(simpleUser, "User"); err != nil {
		panic("failed to create simple payload: " + err.Error())
	}
	if complexPayload, err = client.Marshal(complexUser, "User"); err != nil {
		panic("failed to create complex payload: " + err.Error())
	}
}

func createComplexUser() map[string]any {
	notifications := make([]any, 0, 20)
	for i := 0; i < 20; i++ {
		notifications = append(notifications, map[string]any{
			"id":        uint64(i + 1),
			"title":     fmt.Sprintf("Notification %d", i),
			"message":   "Your weekly digest is ready to read",
			"timestamp": int64(1640995200 + i*3600),
			"read":      i%2 == 0,
		})
	}

	return map[string]any{
		"id":     int32(1),
		"name":   "John Doe",
		"active": true,
		"status": "USER_ACTIVE",
		"email":  "john@example.com",
		"address": map[string]any{
			"street":      "123 Main St",
			"city":        "San Francisco",
			"country":     "USA",
			"postal_code": "94105",
			"coordinates": map[string]any{
				"latitude":  37.7749,
				"longitude": -122.4194,
			},
		},
		"interests":     []any{"golang", "serialization", "performance"},
		"notifications": notifications,
		"balances":      []any{int64(-1), int64(0), int64(1 << 40)},
		"avatar":        make([]byte, 256),
	}
}

var payloads = []struct {
	name string
	data func() []byte
	user func() map[string]any
}{
	{name: "simple", data: func() []byte { return simplePayload }, user: func() map[string]any { return simpleUser }},
	{name: "complex", data: func() []byte { return complexPayload }, user: func() map[string]any { return complexUser }},
}

func BenchmarkMarshal(b *testing.B) {
	for _, p := range payloads {
		b.Run(p.name, func(b *testing.B) {
			user := p.user()
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := client.Marshal(user, "User"); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkParse(b *testing.B) {
	for _, p := range payloads {
		b.Run(p.name, func(b *testing.B) {
			data := p.data()
			b.SetBytes(int64(len(data)))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := client.Parse(data, "User"); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkWalk visits every top-level field without a schema.
func BenchmarkWalk(b *testing.B) {
	for _, p := range payloads {
		b.Run(p.name, func(b *testing.B) {
			data := p.data()
			b.SetBytes(int64(len(data)))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				r, err := wire.OpenStream(data)
				if err != nil {
					b.Fatal(err)
				}
				if err := r.Walk(func(wire.FieldInfo) error { return nil }); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkReader reads the simple payload with hand-written field dispatch.
func BenchmarkReader(b *testing.B) {
	b.SetBytes(int64(len(simplePayload)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r, err := wire.OpenStream(simplePayload)
		if err != nil {
			b.Fatal(err)
		}
		for {
			ok, err := r.HasNext()
			if err != nil {
				b.Fatal(err)
			}
			if !ok {
				break
			}
			index, _ := r.FieldIndex()
			switch index {
			case 1:
				_, err = r.ReadInt32()
			case 2, 5:
				_, err = r.ReadString()
			case 3:
				_, err = r.ReadBool()
			}
			if err != nil {
				b.Fatal(err)
			}
		}
	}
}

func BenchmarkPack(b *testing.B) {
	for _, typ := range []compress.Type{compress.None, compress.Zstd, compress.S2, compress.LZ4} {
		b.Run(typ.String(), func(b *testing.B) {
			b.SetBytes(int64(len(complexPayload)))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := envelope.Pack(complexPayload, typ); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkUnpack(b *testing.B) {
	for _, typ := range []compress.Type{compress.None, compress.Zstd, compress.S2, compress.LZ4} {
		frame, err := envelope.Pack(complexPayload, typ)
		if err != nil {
			b.Fatal(err)
		}

		b.Run(typ.String(), func(b *testing.B) {
			b.SetBytes(int64(len(complexPayload)))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := envelope.Unpack(frame); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
