package wire

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Helpers to coerce JSON inputs to integers (accept exponent/float forms if integral)
func coerceToInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", t)
		}
		return int64(t), nil
	case json.Number:
		// Try integer first
		if iv, err := t.Int64(); err == nil {
			return iv, nil
		}
		return integralFloat(t.String())
	case float64:
		return floatToInt64(t)
	case string:
		// allow explicit integer strings
		if strings.ContainsAny(t, ".eE") {
			return integralFloat(t)
		}
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, fmt.Errorf("expected integer-like, got %T", v)
	}
}

func integralFloat(s string) (int64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return floatToInt64(f)
}

// floatToInt64 accepts integral floats in [-2^63, 2^63).
func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("non-integer numeric for integer field")
	}
	if f < -(1<<63) || f >= 1<<63 {
		return 0, fmt.Errorf("%v overflows int64", f)
	}
	return int64(f), nil
}

func coerceToUint64(v any) (uint64, error) {
	switch t := v.(type) {
	case uint64:
		return t, nil
	case uint32:
		return uint64(t), nil
	case uint16:
		return uint64(t), nil
	case uint8:
		return uint64(t), nil
	case uint:
		return uint64(t), nil
	case int, int8, int16, int32, int64:
		n, _ := coerceToInt64(t)
		if n < 0 {
			return 0, fmt.Errorf("negative value %d for unsigned field", n)
		}
		return uint64(n), nil
	case json.Number:
		if uv, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return uv, nil
		}
		return integralUnsignedFloat(t.String())
	case float64:
		return floatToUint64(t)
	case string:
		if strings.ContainsAny(t, ".eE") {
			return integralUnsignedFloat(t)
		}
		return strconv.ParseUint(t, 10, 64)
	default:
		return 0, fmt.Errorf("expected unsigned-integer-like, got %T", v)
	}
}

func integralUnsignedFloat(s string) (uint64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return floatToUint64(f)
}

// floatToUint64 accepts integral floats in [0, 2^64).
func floatToUint64(f float64) (uint64, error) {
	if f < 0 || f != math.Trunc(f) {
		return 0, fmt.Errorf("non-integer numeric for unsigned field")
	}
	if f >= 1<<64 {
		return 0, fmt.Errorf("%v overflows uint64", f)
	}
	return uint64(f), nil
}

func coerceToFloat64(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		switch t {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		return strconv.ParseFloat(t, 64)
	default:
		if n, err := coerceToInt64(v); err == nil {
			return float64(n), nil
		}
		return 0, fmt.Errorf("%w: expected number, got %T", ErrInvalidValue, v)
	}
}

func coerceToBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return b, nil
	default:
		return false, fmt.Errorf("%w: expected bool, got %T", ErrInvalidValue, v)
	}
}

// coerceToBytes accepts raw bytes or their standard base64 form, which is
// how JSON input carries them.
func coerceToBytes(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		p, err := base64.StdEncoding.DecodeString(t)
		if err != nil {
			return nil, fmt.Errorf("%w: bytes field expects base64: %v", ErrInvalidValue, err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: expected bytes, got %T", ErrInvalidValue, v)
	}
}

func coerceToChar(v any) (rune, error) {
	switch t := v.(type) {
	case rune:
		return t, nil
	case string:
		if utf8.RuneCountInString(t) != 1 {
			return 0, fmt.Errorf("%w: char field expects one character, got %q", ErrInvalidValue, t)
		}
		r, _ := utf8.DecodeRuneInString(t)
		return r, nil
	default:
		n, err := coerceToUint64(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		if n > 0xFFFF {
			return 0, fmt.Errorf("%w: char code %d exceeds 0xFFFF", ErrInvalidValue, n)
		}
		return rune(n), nil
	}
}

var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// coerceToUint128 accepts a Uint128, any unsigned-integer-like value, or a
// decimal or 0x-prefixed string of up to 128 bits.
func coerceToUint128(v any) (Uint128, error) {
	switch t := v.(type) {
	case Uint128:
		return t, nil
	case map[string]any:
		hi, err := coerceToUint64(t["hi"])
		if err != nil {
			return Uint128{}, fmt.Errorf("%w: uint128 hi: %v", ErrInvalidValue, err)
		}
		lo, err := coerceToUint64(t["lo"])
		if err != nil {
			return Uint128{}, fmt.Errorf("%w: uint128 lo: %v", ErrInvalidValue, err)
		}
		return Uint128{Hi: hi, Lo: lo}, nil
	case string:
		n, ok := new(big.Int).SetString(t, 0)
		if !ok || n.Sign() < 0 || n.Cmp(maxUint128) > 0 {
			return Uint128{}, fmt.Errorf("%w: %q is not a 128-bit unsigned integer", ErrInvalidValue, t)
		}
		lo := new(big.Int).And(n, new(big.Int).SetUint64(math.MaxUint64))
		return Uint128{Hi: new(big.Int).Rsh(n, 64).Uint64(), Lo: lo.Uint64()}, nil
	default:
		n, err := coerceToUint64(v)
		if err != nil {
			return Uint128{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return Uint128{Lo: n}, nil
	}
}
