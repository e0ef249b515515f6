package wire

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriter_Header(t *testing.T) {
	w, err := NewWriter(Config{Encoding: EncodingUTF16, Order: BigEndian}, WithHeader())
	require.NoError(t, err)
	require.Equal(t, []byte{0x10}, w.Bytes())

	require.NoError(t, w.WriteUint8(1, 1))
	require.Equal(t, 3, w.Len())

	w.Reset()
	require.Equal(t, []byte{0x10}, w.Bytes())

	plain, err := NewWriter(DefaultConfig)
	require.NoError(t, err)
	require.Empty(t, plain.Bytes())
}

func TestWriter_FixedLayout(t *testing.T) {
	w, err := NewWriter(DefaultConfig, WithHeader())
	require.NoError(t, err)
	require.NoError(t, w.WriteUint32(3, 0x01020304))
	require.Equal(t, []byte{0x01, 0x34, 0x04, 0x03, 0x02, 0x01}, w.Bytes())

	w, err = NewWriter(Config{Order: BigEndian})
	require.NoError(t, err)
	require.NoError(t, w.WriteUint16(1, 0x0102))
	require.Equal(t, []byte{0x12, 0x01, 0x02}, w.Bytes())
}

func TestWriter_RoundTrip(t *testing.T) {
	for _, order := range []ByteOrder{LittleEndian, BigEndian} {
		t.Run(order.String(), func(t *testing.T) {
			require := require.New(t)
			cfg := Config{Order: order}

			w, err := NewWriter(cfg, WithHeader())
			require.NoError(err)
			require.NoError(w.WriteUint8(1, 200))
			require.NoError(w.WriteInt8(2, -100))
			require.NoError(w.WriteBool(3, true))
			require.NoError(w.WriteUint16(4, 0xBEEF))
			require.NoError(w.WriteInt16(5, math.MinInt16))
			require.NoError(w.WriteChar(6, 'é'))
			require.NoError(w.WriteUint32(7, math.MaxUint32))
			require.NoError(w.WriteInt32(8, math.MinInt32))
			require.NoError(w.WriteFloat32(9, 3.5))
			require.NoError(w.WriteUint64(10, math.MaxUint64))
			require.NoError(w.WriteInt64(11, math.MinInt64))
			require.NoError(w.WriteFloat64(12, math.Pi))
			require.NoError(w.WriteUint128(13, Uint128{Hi: 0x0102030405060708, Lo: 0x090A0B0C0D0E0F10}))
			require.NoError(w.WriteVarUint(14, 1<<40))
			require.NoError(w.WriteVarInt(15, -300))
			require.NoError(w.WriteBytes(16, []byte{1, 2, 3}))
			require.NoError(w.WriteString(17, "hello, world"))

			r, err := OpenStream(w.Bytes())
			require.NoError(err)
			require.Equal(cfg, r.Config())

			next := func(want FieldIndex) {
				ok, err := r.HasNext()
				require.NoError(err)
				require.True(ok)
				index, err := r.FieldIndex()
				require.NoError(err)
				require.Equal(want, index)
			}

			next(1)
			u8, err := r.ReadUint8()
			require.NoError(err)
			require.Equal(uint8(200), u8)

			next(2)
			i8, err := r.ReadInt8()
			require.NoError(err)
			require.Equal(int8(-100), i8)

			next(3)
			b, err := r.ReadBool()
			require.NoError(err)
			require.True(b)

			next(4)
			u16, err := r.ReadUint16()
			require.NoError(err)
			require.Equal(uint16(0xBEEF), u16)

			next(5)
			i16, err := r.ReadInt16()
			require.NoError(err)
			require.Equal(int16(math.MinInt16), i16)

			next(6)
			c, err := r.ReadChar()
			require.NoError(err)
			require.Equal('é', c)

			next(7)
			u32, err := r.ReadUint32()
			require.NoError(err)
			require.Equal(uint32(math.MaxUint32), u32)

			next(8)
			i32, err := r.ReadInt32()
			require.NoError(err)
			require.Equal(int32(math.MinInt32), i32)

			next(9)
			f32, err := r.ReadFloat32()
			require.NoError(err)
			require.Equal(float32(3.5), f32)

			next(10)
			u64, err := r.ReadUint64()
			require.NoError(err)
			require.Equal(uint64(math.MaxUint64), u64)

			next(11)
			i64, err := r.ReadInt64()
			require.NoError(err)
			require.Equal(int64(math.MinInt64), i64)

			next(12)
			f64, err := r.ReadFloat64()
			require.NoError(err)
			require.Equal(math.Pi, f64)

			next(13)
			u128, err := r.ReadUint128()
			require.NoError(err)
			require.Equal(Uint128{Hi: 0x0102030405060708, Lo: 0x090A0B0C0D0E0F10}, u128)

			next(14)
			wt, err := r.WireType()
			require.NoError(err)
			require.Equal(WireFixed48, wt)
			vu, err := r.ReadVarUint()
			require.NoError(err)
			require.Equal(uint64(1<<40), vu)

			next(15)
			vi, err := r.ReadVarInt()
			require.NoError(err)
			require.Equal(int64(-300), vi)

			next(16)
			p, err := r.ReadBytes()
			require.NoError(err)
			require.Equal([]byte{1, 2, 3}, p)

			next(17)
			s, err := r.ReadString()
			require.NoError(err)
			require.Equal("hello, world", s)

			ok, err := r.HasNext()
			require.NoError(err)
			require.False(ok)
		})
	}
}

func TestWriter_StringEncodings(t *testing.T) {
	configs := []Config{
		{Encoding: EncodingUTF8, Order: LittleEndian},
		{Encoding: EncodingUTF8, Order: BigEndian},
		{Encoding: EncodingUTF16, Order: LittleEndian},
		{Encoding: EncodingUTF16, Order: BigEndian},
		{Encoding: EncodingASCII, Order: LittleEndian},
	}
	inputs := []string{"", "a", "plain ascii text", "a longer sentence that needs a length prefix"}

	for _, cfg := range configs {
		t.Run(cfg.String(), func(t *testing.T) {
			w, err := NewWriter(cfg, WithHeader())
			require.NoError(t, err)
			for i, s := range inputs {
				require.NoError(t, w.WriteString(FieldIndex(i+1), s))
			}

			r, err := OpenStream(w.Bytes())
			require.NoError(t, err)
			for _, want := range inputs {
				ok, err := r.HasNext()
				require.NoError(t, err)
				require.True(t, ok)

				got, err := r.ReadString()
				require.NoError(t, err)
				require.Equal(t, want, got)
			}
		})
	}
}

func TestWriter_VarUintWidths(t *testing.T) {
	tests := []struct {
		v    uint64
		want WireType
	}{
		{0, WireFixed8},
		{0xFF, WireFixed8},
		{0x100, WireFixed16},
		{0xFFFFFF, WireFixed24},
		{1 << 32, WireFixed40},
		{math.MaxUint64, WireFixed64},
	}

	for _, tt := range tests {
		w, err := NewWriter(Config{Order: BigEndian})
		require.NoError(t, err)
		require.NoError(t, w.WriteVarUint(1, tt.v))

		tag, n, err := DecodeTag(w.Bytes(), 0)
		require.NoError(t, err)
		require.Equal(t, tt.want, tag.WireType(), "value %#x", tt.v)

		size, _ := tt.want.FixedSize()
		require.Len(t, w.Bytes(), n+size)
	}
}

func TestWriter_VarIntUsesZigZag(t *testing.T) {
	w, err := NewWriter(DefaultConfig)
	require.NoError(t, err)
	require.NoError(t, w.WriteVarInt(1, -1))
	require.Equal(t, []byte{0x11, 0x01}, w.Bytes())
}

func TestWriter_BytesPickFixedWidth(t *testing.T) {
	tests := []struct {
		n    int
		want WireType
	}{
		{0, WireLengthPrefixed},
		{5, WireFixed40},
		{14, WireLengthPrefixed},
		{16, WireFixed128},
		{200, WireLengthPrefixed},
	}

	for _, tt := range tests {
		w, err := NewWriter(DefaultConfig)
		require.NoError(t, err)
		require.NoError(t, w.WriteBytes(1, bytes.Repeat([]byte{0x5A}, tt.n)))

		tag, _, err := DecodeTag(w.Bytes(), 0)
		require.NoError(t, err)
		require.Equal(t, tt.want, tag.WireType(), "length %d", tt.n)
	}
}

func TestWriter_OmitDefaults(t *testing.T) {
	w, err := NewWriter(DefaultConfig, WithOmitDefaults())
	require.NoError(t, err)

	require.NoError(t, w.WriteUint8(1, 0))
	require.NoError(t, w.WriteBool(2, false))
	require.NoError(t, w.WriteInt32(3, 0))
	require.NoError(t, w.WriteFloat64(4, 0))
	require.NoError(t, w.WriteUint128(5, Uint128{}))
	require.NoError(t, w.WriteVarInt(6, 0))
	require.NoError(t, w.WriteString(7, ""))
	require.NoError(t, w.WriteBytes(8, nil))
	require.NoError(t, w.WriteMessage(9, func(*Writer) error { return nil }))
	require.Zero(t, w.Len())

	require.NoError(t, w.WriteInt32(3, 1))
	require.Equal(t, 5, w.Len())
}

func TestWriter_IndexValidation(t *testing.T) {
	w, err := NewWriter(DefaultConfig)
	require.NoError(t, err)

	require.ErrorIs(t, w.WriteUint8(0, 1), ErrInvalidFieldIndex)
	require.ErrorIs(t, w.WriteString(MaxFieldIndex+1, "x"), ErrInvalidFieldIndex)
	require.ErrorIs(t, w.WriteMessage(0, func(*Writer) error { return nil }), ErrInvalidFieldIndex)
	require.Zero(t, w.Len())

	require.NoError(t, w.WriteUint8(MaxFieldIndex, 1))
	require.Equal(t, []byte{0xF1, 0xFF, 0xFF, 0xFF, 0x0F, 0x01}, w.Bytes())
}

func TestWriter_WriteRaw(t *testing.T) {
	w, err := NewWriter(DefaultConfig)
	require.NoError(t, err)

	require.NoError(t, w.WriteRaw(1, WireFixed24, []byte{1, 2, 3}))
	require.Error(t, w.WriteRaw(2, WireFixed24, []byte{1, 2}))
	require.ErrorIs(t, w.WriteRaw(3, WireMissing, nil), ErrInvalidWireType)
	require.ErrorIs(t, w.WriteRaw(4, 16, nil), ErrInvalidWireType)
	require.NoError(t, w.WriteRaw(5, WireLengthPrefixed, []byte{9}))

	require.Equal(t, []byte{0x13, 1, 2, 3, 0x5F, 0x01, 9}, w.Bytes())
}

func TestWriter_WriteChar(t *testing.T) {
	w, err := NewWriter(DefaultConfig)
	require.NoError(t, err)
	require.ErrorIs(t, w.WriteChar(1, '😀'), ErrInvalidString)
	require.NoError(t, w.WriteChar(1, 'A'))
	require.Equal(t, []byte{0x12, 0x41, 0x00}, w.Bytes())
}

func TestWriter_MessageErrorPropagates(t *testing.T) {
	w, err := NewWriter(DefaultConfig)
	require.NoError(t, err)

	err = w.WriteMessage(1, func(child *Writer) error {
		return child.WriteUint8(0, 1)
	})
	require.ErrorIs(t, err, ErrInvalidFieldIndex)
	require.Zero(t, w.Len())
}

func TestNewWriter_InvalidConfig(t *testing.T) {
	_, err := NewWriter(Config{Encoding: 9})
	require.ErrorIs(t, err, ErrInvalidConfig)
}
