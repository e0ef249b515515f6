package main

import (
	"fmt"
	"log"
	"strings"

	"go.uber.org/zap"

	"github.com/anirudhraja/accelite"
	"github.com/anirudhraja/accelite/compress"
	"github.com/anirudhraja/accelite/wire"
)

// Reading mirrors telemetry.Reading for struct unmarshaling.
type Reading struct {
	Sensor   string   `accel:"sensor"`
	Channel  uint8    `accel:"channel"`
	Celsius  float32  `accel:"celsius"`
	Drift    int64    `accel:"drift"`
	Unit     string   `accel:"unit"`
	Health   string   `accel:"health"`
	Samples  []uint16 `accel:"samples"`
	Location Location `accel:"location"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Floor     int16   `json:"floor"`
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	client, err := accelite.New(
		accelite.WithLogger(logger),
		accelite.WithCompression(compress.Zstd),
	)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	if err := client.LoadSchema("sampleapp/testdata/telemetry.proto"); err != nil {
		log.Fatalf("Failed to load telemetry.proto: %v", err)
	}

	fmt.Println("Accelite Sample App")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Messages: %v\n", client.ListMessages())
	fmt.Printf("Enums:    %v\n", client.ListEnums())

	reading := map[string]any{
		"sensor":   "boiler-7",
		"channel":  3,
		"celsius":  71.5,
		"drift":    -12,
		"unit":     "C",
		"trace_id": "170141183460469231731687303715884105727",
		"health":   "HEALTH_DEGRADED",
		"location": map[string]any{
			"latitude":  59.9139,
			"longitude": 10.7522,
			"floor":     -2,
		},
		"samples":  []any{710, 712, 715, 713},
		"firmware": []byte{0xCA, 0xFE},
	}

	data, err := client.Marshal(reading, "telemetry.Reading")
	if err != nil {
		log.Fatalf("Failed to marshal: %v", err)
	}
	fmt.Printf("\nEncoded %d bytes (config byte %#02x)\n", len(data), data[0])

	showFields(client, data)

	decoded, err := client.Parse(data, "telemetry.Reading")
	if err != nil {
		log.Fatalf("Failed to parse: %v", err)
	}
	fmt.Println("\nDecoded message:")
	printMap(decoded, "  ")

	var r Reading
	if err := client.Unmarshal(data, &r); err != nil {
		log.Fatalf("Failed to unmarshal: %v", err)
	}
	fmt.Printf("\nStruct: %+v\n", r)

	demonstrateBigEndianUTF16(client)
	demonstrateEnvelope(client, data)
	demonstrateSchemaEvolution(data)
}

func showFields(client *accelite.Accelite, data []byte) {
	fields, err := client.Inspect(data)
	if err != nil {
		log.Fatalf("Failed to inspect: %v", err)
	}

	fmt.Println("\nFields on the wire:")
	for _, f := range fields {
		fmt.Printf("  #%-3d %-16s offset=%-4d size=%d\n", f.Index, f.WireType, f.Offset, f.Size)
	}
}

func demonstrateBigEndianUTF16(base *accelite.Accelite) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("Big-endian stream with UTF-16 strings")

	client, err := accelite.New(accelite.WithConfig(wire.Config{
		Encoding: wire.EncodingUTF16,
		Order:    wire.BigEndian,
	}))
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	if err := client.LoadSchema("sampleapp/testdata/telemetry.proto"); err != nil {
		log.Fatalf("Failed to load telemetry.proto: %v", err)
	}

	data, err := client.Marshal(map[string]any{"sensor": "ΔT", "channel": 1}, "telemetry.Reading")
	if err != nil {
		log.Fatalf("Failed to marshal: %v", err)
	}
	fmt.Printf("  bytes: % x\n", data)

	// the config byte travels with the stream, so any reader can decode it
	decoded, err := base.Parse(data, "telemetry.Reading")
	if err != nil {
		log.Fatalf("Failed to parse: %v", err)
	}
	fmt.Printf("  sensor=%v channel=%v\n", decoded["sensor"], decoded["channel"])
}

func demonstrateEnvelope(client *accelite.Accelite, data []byte) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("Envelope framing")

	frame, err := client.Pack(data)
	if err != nil {
		log.Fatalf("Failed to pack: %v", err)
	}
	fmt.Printf("  stream=%d bytes, frame=%d bytes\n", len(data), len(frame))

	restored, err := client.Unpack(frame)
	if err != nil {
		log.Fatalf("Failed to unpack: %v", err)
	}
	fmt.Printf("  round trip intact: %v\n", string(restored) == string(data))

	frame[len(frame)-1] ^= 0xFF
	if _, err := client.Unpack(frame); err != nil {
		fmt.Printf("  corrupted frame rejected: %v\n", err)
	}
}

func demonstrateSchemaEvolution(data []byte) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("Older reader with preserved unknown fields")

	old, err := accelite.New(accelite.WithDecodeOptions(wire.DecodeOptions{PreserveUnknown: true}))
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	if err := old.LoadSchema("sampleapp/testdata/telemetry_v1.proto"); err != nil {
		log.Fatalf("Failed to load telemetry_v1.proto: %v", err)
	}

	decoded, err := old.Parse(data, "telemetry.v1.Reading")
	if err != nil {
		log.Fatalf("Failed to parse: %v", err)
	}
	unknown, _ := decoded[wire.UnknownFieldsKey].([]byte)
	fmt.Printf("  sensor=%v, %d unknown bytes kept\n", decoded["sensor"], len(unknown))

	// writing the message back keeps the fields this reader does not know
	again, err := old.Marshal(decoded, "telemetry.v1.Reading")
	if err != nil {
		log.Fatalf("Failed to marshal: %v", err)
	}
	fmt.Printf("  re-encoded %d bytes, original %d bytes\n", len(again), len(data))
}

func printMap(m map[string]any, indent string) {
	for key, value := range m {
		if nested, ok := value.(map[string]any); ok {
			fmt.Printf("%s%s:\n", indent, key)
			printMap(nested, indent+"  ")
			continue
		}
		fmt.Printf("%s%s: %v\n", indent, key, value)
	}
}
