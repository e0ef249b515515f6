package compress

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxDecodedSize bounds the output of any Decompress call.
const MaxDecodedSize = 256 << 20

// ErrIncompressible is returned by codecs that cannot shrink their input.
// Callers should store such data uncompressed.
var ErrIncompressible = errors.New("compress: input is incompressible")

// Type identifies the compression applied to a packed stream. The values
// are stored in envelope headers and must never be renumbered.
type Type uint8

const (
	None Type = 0x1 // None stores the stream as is.
	Zstd Type = 0x2 // Zstd uses Zstandard.
	S2   Type = 0x3 // S2 uses the Snappy-compatible S2 block format.
	LZ4  Type = 0x4 // LZ4 uses the LZ4 block format.
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case Zstd:
		return "zstd"
	case S2:
		return "s2"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("compression(%d)", uint8(t))
	}
}

// MarshalText renders the type by name in JSON and YAML output.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts the names produced by String.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseType converts a name such as "zstd" into a Type. The empty string
// means None.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return None, nil
	case "zstd":
		return Zstd, nil
	case "s2":
		return S2, nil
	case "lz4":
		return LZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

// Compressor compresses a complete stream.
//
// The returned slice is owned by the caller and the input is not modified.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores a stream compressed by the matching Compressor.
//
// rawSize is the length of the original stream as recorded by the caller.
// Block formats that do not carry their own length use it to size the
// output; implementations return an error when the result does not match.
type Decompressor interface {
	Decompress(data []byte, rawSize int) ([]byte, error)
}

// Codec combines both compression and decompression capabilities.
type Codec interface {
	Compressor
	Decompressor
}

var builtinCodecs = map[Type]Codec{
	None: NewNoOpCompressor(),
	Zstd: NewZstdCompressor(),
	S2:   NewS2Compressor(),
	LZ4:  NewLZ4Compressor(),
}

// GetCodec retrieves the built-in Codec for t. Codecs are stateless and
// safe for concurrent use.
func GetCodec(t Type) (Codec, error) {
	if codec, ok := builtinCodecs[t]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression type: %s", t)
}

// readExactly reads rawSize bytes from r and fails when r yields fewer or
// more. At most one byte beyond rawSize is read.
func readExactly(name string, r io.Reader, rawSize int) ([]byte, error) {
	if rawSize < 0 || rawSize > MaxDecodedSize {
		return nil, fmt.Errorf("%s: declared size %d outside 0..%d", name, rawSize, MaxDecodedSize)
	}

	buf := make([]byte, rawSize)
	n, err := io.ReadFull(r, buf)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return nil, fmt.Errorf("%s: decompressed %d bytes, expected %d", name, n, rawSize)
	case err != nil:
		return nil, fmt.Errorf("%s decompression failed: %w", name, err)
	}

	var extra [1]byte
	switch _, err := io.ReadFull(r, extra[:]); {
	case err == nil:
		return nil, fmt.Errorf("%s: decompressed more than %d bytes", name, rawSize)
	case !errors.Is(err, io.EOF):
		return nil, fmt.Errorf("%s decompression failed: %w", name, err)
	}
	return buf, nil
}

func checkSize(name string, got []byte, rawSize int) ([]byte, error) {
	if len(got) != rawSize {
		return nil, fmt.Errorf("%s: decompressed %d bytes, expected %d", name, len(got), rawSize)
	}
	return got, nil
}
