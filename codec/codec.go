// Package codec converts values to and from the bytes kept in store memory.
//
// Store memory is plain bytes that the garbage collector does not scan, so
// consumers never place Go pointers in it. Strings, slices and other pointer
// carrying values are copied in and out through a Codec.
package codec

// Codec encodes values of type T into byte blocks.
type Codec[T any] interface {
	// Size returns the number of bytes Encode writes for v.
	Size(v T) int
	// Encode writes v into dst, which holds exactly Size(v) bytes.
	Encode(dst []byte, v T)
	// Decode reads a value from src, which holds exactly the bytes written by
	// Encode. The result must not alias src.
	Decode(src []byte) T
}

// Fixed is implemented by codecs whose encoded size never varies.
type Fixed interface {
	FixedSize() int
}

// FixedSize returns the constant encoded size of c, if it has one.
func FixedSize[T any](c Codec[T]) (int, bool) {
	f, ok := c.(Fixed)
	if !ok {
		return 0, false
	}
	return f.FixedSize(), true
}
