package compress

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ZstdCompressor provides Zstandard compression. It trades speed for the
// best ratio of the built-in codecs, which suits archived streams.
//
// Encoders and decoders are pooled, so the type is safe for concurrent use.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

var zstdDecoderPool = sync.Pool{
	New: func() any {
		decoder, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(false),
			zstd.WithDecoderMaxMemory(MaxDecodedSize),
		)
		if err != nil {
			panic(fmt.Sprintf("failed to create zstd decoder for pool: %v", err))
		}
		return decoder
	},
}

var zstdEncoderPool = sync.Pool{
	New: func() any {
		encoder, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderCRC(false),
		)
		if err != nil {
			panic(fmt.Sprintf("failed to create zstd encoder for pool: %v", err))
		}
		return encoder
	},
}

// NewZstdCompressor creates a Zstd codec with default settings.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}

func (c ZstdCompressor) Compress(data []byte) ([]byte, error) {
	encoder := zstdEncoderPool.Get().(*zstd.Encoder)
	defer zstdEncoderPool.Put(encoder)

	return encoder.EncodeAll(data, nil), nil
}

// Decompress streams the frame through a pooled decoder and stops one byte
// past rawSize, so a frame that inflates beyond its declared size fails
// without being fully materialized.
func (c ZstdCompressor) Decompress(data []byte, rawSize int) ([]byte, error) {
	if len(data) == 0 {
		return checkSize("zstd", nil, rawSize)
	}

	decoder := zstdDecoderPool.Get().(*zstd.Decoder)
	defer func() {
		_ = decoder.Reset(nil)
		zstdDecoderPool.Put(decoder)
	}()

	if err := decoder.Reset(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}

	return readExactly("zstd", decoder, rawSize)
}
