package wire

import (
	"fmt"

	"github.com/anirudhraja/accelite/endian"
)

// StringEncoding selects how string fields are encoded. It occupies the
// upper nibble of the config byte.
type StringEncoding uint8

const (
	EncodingUTF8  StringEncoding = 0
	EncodingUTF16 StringEncoding = 1
	EncodingASCII StringEncoding = 2
)

func (e StringEncoding) String() string {
	switch e {
	case EncodingUTF8:
		return "utf8"
	case EncodingUTF16:
		return "utf16"
	case EncodingASCII:
		return "ascii"
	default:
		return fmt.Sprintf("encoding(%d)", uint8(e))
	}
}

// Valid reports whether e has a catalog entry.
func (e StringEncoding) Valid() bool {
	return e <= EncodingASCII
}

// ByteOrder selects the byte order of fixed-width payloads. It occupies the
// lower nibble of the config byte.
type ByteOrder uint8

const (
	BigEndian    ByteOrder = 0
	LittleEndian ByteOrder = 1
)

func (o ByteOrder) String() string {
	switch o {
	case BigEndian:
		return "big"
	case LittleEndian:
		return "little"
	default:
		return fmt.Sprintf("byteorder(%d)", uint8(o))
	}
}

// Valid reports whether o has a catalog entry.
func (o ByteOrder) Valid() bool {
	return o <= LittleEndian
}

// Engine returns the endian engine for o. Invalid orders fall back to
// little-endian; validate with Config.Validate first.
func (o ByteOrder) Engine() endian.EndianEngine {
	if o == BigEndian {
		return endian.GetBigEndianEngine()
	}
	return endian.GetLittleEndianEngine()
}

// Config holds the stream-wide settings declared by the config byte.
type Config struct {
	Encoding StringEncoding `json:"encoding" yaml:"encoding"`
	Order    ByteOrder      `json:"order" yaml:"order"`
}

// DefaultConfig is UTF-8 strings with little-endian payloads (config byte 0x01).
var DefaultConfig = Config{Encoding: EncodingUTF8, Order: LittleEndian}

// ParseConfig decodes a config byte: the upper nibble is the string
// encoding and the lower nibble the byte order.
func ParseConfig(b byte) (Config, error) {
	cfg := Config{
		Encoding: StringEncoding(b >> 4),
		Order:    ByteOrder(b & 0x0F),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config byte 0x%02x: %w", b, err)
	}
	return cfg, nil
}

// Byte encodes the config as a single byte.
func (c Config) Byte() byte {
	return byte(c.Encoding)<<4 | byte(c.Order)&0x0F
}

// Validate checks that both settings have catalog entries.
func (c Config) Validate() error {
	if !c.Encoding.Valid() {
		return fmt.Errorf("%w: unknown string encoding %d", ErrInvalidConfig, uint8(c.Encoding))
	}
	if !c.Order.Valid() {
		return fmt.Errorf("%w: unknown byte order %d", ErrInvalidConfig, uint8(c.Order))
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("%s/%s-endian", c.Encoding, c.Order)
}
