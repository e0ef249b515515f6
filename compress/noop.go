package compress

// NoOpCompressor passes data through unchanged.
type NoOpCompressor struct{}

var _ Codec = (*NoOpCompressor)(nil)

func NewNoOpCompressor() NoOpCompressor {
	return NoOpCompressor{}
}

func (c NoOpCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

func (c NoOpCompressor) Decompress(data []byte, rawSize int) ([]byte, error) {
	return checkSize("none", data, rawSize)
}
