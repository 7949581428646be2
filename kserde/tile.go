package kserde

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/birdayz/tilestreams/kdag"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported data format")
	ErrShortBuffer       = errors.New("buffer too short")
)

// ElementCodec converts single elements between float32 and a device data
// format. Encoded elements are little-endian.
type ElementCodec struct {
	Format kdag.DataFormat
	Size   int
	Encode func(dst []byte, v float32)
	Decode func(src []byte) float32
}

var BFloat16 = ElementCodec{
	Format: kdag.BFloat16,
	Size:   2,
	Encode: func(dst []byte, v float32) { binary.LittleEndian.PutUint16(dst, Float32ToBFloat16(v)) },
	Decode: func(src []byte) float32 { return BFloat16ToFloat32(binary.LittleEndian.Uint16(src)) },
}

var Float16 = ElementCodec{
	Format: kdag.Float16,
	Size:   2,
	Encode: func(dst []byte, v float32) { binary.LittleEndian.PutUint16(dst, Float32ToFloat16(v)) },
	Decode: func(src []byte) float32 { return Float16ToFloat32(binary.LittleEndian.Uint16(src)) },
}

var Float32Element = ElementCodec{
	Format: kdag.Float32,
	Size:   4,
	Encode: func(dst []byte, v float32) { binary.LittleEndian.PutUint32(dst, math.Float32bits(v)) },
	Decode: func(src []byte) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(src)) },
}

// ForFormat returns the codec for df.
func ForFormat(df kdag.DataFormat) (ElementCodec, error) {
	switch df {
	case kdag.BFloat16:
		return BFloat16, nil
	case kdag.Float16:
		return Float16, nil
	case kdag.Float32:
		return Float32Element, nil
	default:
		return ElementCodec{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, df)
	}
}

// Round returns v as it reads back after a trip through df.
func Round(df kdag.DataFormat, v float32) float32 {
	codec, err := ForFormat(df)
	if err != nil {
		return v
	}
	buf := make([]byte, codec.Size)
	codec.Encode(buf, v)
	return codec.Decode(buf)
}

// TileCount returns the number of whole tiles of format needed for count
// elements.
func TileCount(format kdag.Format, count int) int {
	per := format.TileElements()
	return (count + per - 1) / per
}

// EncodeTiles encodes the first count elements of data, zero-padded to a
// whole number of tiles.
func EncodeTiles(format kdag.Format, data []float32, count int) ([]byte, error) {
	codec, err := ForFormat(format.DataFormat)
	if err != nil {
		return nil, err
	}
	if count > len(data) {
		return nil, fmt.Errorf("%w: %d elements requested, %d available", ErrShortBuffer, count, len(data))
	}

	out := make([]byte, TileCount(format, count)*format.TileBytes())
	for i, v := range data[:count] {
		codec.Encode(out[i*codec.Size:], v)
	}
	return out, nil
}

// DecodeTiles decodes count elements from data into dst. Padding past count
// is ignored.
func DecodeTiles(format kdag.Format, data []byte, dst []float32, count int) error {
	codec, err := ForFormat(format.DataFormat)
	if err != nil {
		return err
	}
	if count > len(dst) {
		return fmt.Errorf("%w: destination holds %d elements, %d requested", ErrShortBuffer, len(dst), count)
	}
	if len(data) < count*codec.Size {
		return fmt.Errorf("%w: %d bytes hold fewer than %d %s elements", ErrShortBuffer, len(data), count, format.DataFormat)
	}

	for i := 0; i < count; i++ {
		dst[i] = codec.Decode(data[i*codec.Size:])
	}
	return nil
}

// Tile returns a SerDe for exactly one tile of format. Short input is
// zero-padded on serialization.
func Tile(format kdag.Format) Serde[[]float32] {
	return Serde[[]float32]{
		Serializer: func(data []float32) ([]byte, error) {
			if len(data) > format.TileElements() {
				return nil, fmt.Errorf("tile of %s holds %d elements, got %d", format, format.TileElements(), len(data))
			}
			return EncodeTiles(format, data, len(data))
		},
		Deserializer: func(data []byte) ([]float32, error) {
			if len(data) != format.TileBytes() {
				return nil, fmt.Errorf("tile of %s requires exactly %d bytes, got %d", format, format.TileBytes(), len(data))
			}
			out := make([]float32, format.TileElements())
			if err := DecodeTiles(format, data, out, len(out)); err != nil {
				return nil, err
			}
			return out, nil
		},
	}
}

// ConstantVector returns count copies of value.
func ConstantVector(count int, value float32) []float32 {
	out := make([]float32, count)
	for i := range out {
		out[i] = value
	}
	return out
}

// RandomVector returns count values drawn uniformly from [lo, hi).
func RandomVector(rng *rand.Rand, count int, lo, hi float32) []float32 {
	out := make([]float32, count)
	for i := range out {
		out[i] = lo + rng.Float32()*(hi-lo)
	}
	return out
}
