package wire

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type point struct {
	X, Y  int32
	Label string
}

type segment struct {
	From, To point
	Weight   uint64
}

var pointSerializer = SerializerFuncs[point]{
	SerializeFunc: func(p point, w FieldWriter) error {
		if err := w.WriteInt32(1, p.X); err != nil {
			return err
		}
		if err := w.WriteInt32(2, p.Y); err != nil {
			return err
		}
		return w.WriteString(3, p.Label)
	},
	DeserializeFunc: func(r FieldReader) (point, error) {
		var p point
		for {
			ok, err := r.HasNext()
			if err != nil || !ok {
				return p, err
			}
			index, err := r.FieldIndex()
			if err != nil {
				return p, err
			}

			switch index {
			case 1:
				p.X, err = r.ReadInt32()
			case 2:
				p.Y, err = r.ReadInt32()
			case 3:
				p.Label, err = r.ReadString()
			default:
				err = r.Skip()
			}
			if err != nil {
				return p, fmt.Errorf("field %d: %w", index, err)
			}
		}
	},
}

type segmentSerializer struct{}

func (segmentSerializer) Serialize(s segment, w FieldWriter) error {
	fw, ok := w.(*Writer)
	if !ok {
		return fmt.Errorf("unexpected writer %T", w)
	}
	if err := WriteObject(fw, 1, s.From, Serializer[point](pointSerializer)); err != nil {
		return err
	}
	if err := WriteObject(fw, 2, s.To, Serializer[point](pointSerializer)); err != nil {
		return err
	}
	return w.WriteVarUint(3, s.Weight)
}

func (segmentSerializer) Deserialize(r FieldReader) (segment, error) {
	var s segment
	fr, ok := r.(*Reader)
	if !ok {
		return s, fmt.Errorf("unexpected reader %T", r)
	}
	for {
		ok, err := fr.HasNext()
		if err != nil || !ok {
			return s, err
		}
		index, _ := fr.FieldIndex()

		switch index {
		case 1:
			s.From, err = ReadObject(fr, Serializer[point](pointSerializer))
		case 2:
			s.To, err = ReadObject(fr, Serializer[point](pointSerializer))
		case 3:
			s.Weight, err = fr.ReadVarUint()
		default:
			err = fr.Skip()
		}
		if err != nil {
			return s, err
		}
	}
}

func TestSerializer_RoundTrip(t *testing.T) {
	in := point{X: -5, Y: 1 << 20, Label: "origin"}

	for _, cfg := range []Config{DefaultConfig, {Encoding: EncodingUTF16, Order: BigEndian}} {
		data, err := Marshal(in, Serializer[point](pointSerializer), cfg)
		require.NoError(t, err)
		require.Equal(t, cfg.Byte(), data[0])

		out, err := Unmarshal(data, Serializer[point](pointSerializer))
		require.NoError(t, err)
		require.Equal(t, in, out)
	}
}

func TestSerializer_NestedObjects(t *testing.T) {
	in := segment{
		From:   point{X: 1, Y: 2, Label: "a"},
		To:     point{X: 3, Y: 4, Label: "a label long enough to need a prefix"},
		Weight: 70000,
	}

	data, err := Marshal(in, Serializer[segment](segmentSerializer{}), DefaultConfig)
	require.NoError(t, err)

	out, err := Unmarshal(data, Serializer[segment](segmentSerializer{}))
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestSerializer_SkipsUnknownFields(t *testing.T) {
	w, err := NewWriter(DefaultConfig, WithHeader())
	require.NoError(t, err)
	require.NoError(t, w.WriteInt32(1, 10))
	require.NoError(t, w.WriteUint128(9, Uint128{Hi: 1}))
	require.NoError(t, w.WriteBytes(10, make([]byte, 40)))
	require.NoError(t, w.WriteString(3, "kept"))

	out, err := Unmarshal(w.Bytes(), Serializer[point](pointSerializer))
	require.NoError(t, err)
	require.Equal(t, point{X: 10, Label: "kept"}, out)
}

func TestSerializer_TypeMismatchSurfaces(t *testing.T) {
	w, err := NewWriter(DefaultConfig, WithHeader())
	require.NoError(t, err)
	require.NoError(t, w.WriteInt64(1, 10))

	_, err = Unmarshal(w.Bytes(), Serializer[point](pointSerializer))
	require.ErrorIs(t, err, ErrTypeMismatch)
	require.Contains(t, err.Error(), "field 1")
}

func TestUnmarshal_BadStream(t *testing.T) {
	_, err := Unmarshal([]byte{0xF0}, Serializer[point](pointSerializer))
	require.ErrorIs(t, err, ErrInvalidConfig)
}
