package codec

import (
	"encoding/binary"
	"math"
)

// Integer is any integer type.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Int stores an integer in 8 little-endian bytes.
type Int[T Integer] struct{}

func (Int[T]) FixedSize() int { return 8 }

func (Int[T]) Size(T) int { return 8 }

func (Int[T]) Encode(dst []byte, v T) { binary.LittleEndian.PutUint64(dst, uint64(v)) }

func (Int[T]) Decode(src []byte) T { return T(binary.LittleEndian.Uint64(src)) }

// Float64 stores a float64 in 8 little-endian bytes.
type Float64 struct{}

func (Float64) FixedSize() int { return 8 }

func (Float64) Size(float64) int { return 8 }

func (Float64) Encode(dst []byte, v float64) {
	binary.LittleEndian.PutUint64(dst, math.Float64bits(v))
}

func (Float64) Decode(src []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(src))
}

// Uvarint stores an unsigned integer in 1 to 10 bytes.
type Uvarint struct{}

func (Uvarint) Size(v uint64) int { return sizeVarint(v) }

func (Uvarint) Encode(dst []byte, v uint64) { binary.PutUvarint(dst, v) }

func (Uvarint) Decode(src []byte) uint64 {
	v, _ := binary.Uvarint(src)
	return v
}

func sizeVarint(x uint64) int {
	var n int
	for {
		n++
		x >>= 7
		if x == 0 {
			break
		}
	}
	return n
}
