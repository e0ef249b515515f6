package wire

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// utf16Encoding returns the UTF-16 codec matching the stream byte order.
// Streams carry no BOM.
func utf16Encoding(order ByteOrder) encoding.Encoding {
	if order == BigEndian {
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	}
	return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
}

// encodeString converts s into the stream's string encoding.
func encodeString(s string, cfg Config) ([]byte, error) {
	switch cfg.Encoding {
	case EncodingUTF16:
		b, err := utf16Encoding(cfg.Order).NewEncoder().Bytes([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidString, err)
		}
		return b, nil
	case EncodingASCII:
		b := make([]byte, 0, len(s))
		for _, r := range s {
			if r >= utf8.RuneSelf {
				r = '?'
			}
			b = append(b, byte(r))
		}
		return b, nil
	default:
		return []byte(s), nil
	}
}

// decodeString converts payload bytes in the stream's string encoding into
// a Go string.
func decodeString(p []byte, cfg Config) (string, error) {
	switch cfg.Encoding {
	case EncodingUTF16:
		if len(p)%2 != 0 {
			return "", fmt.Errorf("%w: utf16 payload has odd length %d", ErrInvalidString, len(p))
		}
		b, err := utf16Encoding(cfg.Order).NewDecoder().Bytes(p)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidString, err)
		}
		return string(b), nil
	case EncodingASCII:
		for i, c := range p {
			if c >= utf8.RuneSelf {
				return "", fmt.Errorf("%w: byte 0x%02x at %d is not ascii", ErrInvalidString, c, i)
			}
		}
		return string(p), nil
	default:
		if !utf8.Valid(p) {
			return "", fmt.Errorf("%w: payload is not valid utf8", ErrInvalidString)
		}
		return string(p), nil
	}
}
