package store

import (
	"fmt"
	"math"
	"math/bits"
	"unsafe"
)

// Layout describes the shape of a block of memory.
type Layout struct {
	Size  int
	Align int
}

// NewLayout returns a layout of size bytes aligned to align, which must be a
// power of two.
func NewLayout(size, align int) (Layout, error) {
	if size < 0 || !IsPowerOfTwo(align) {
		return Layout{}, fmt.Errorf("%w: size %d, align %d", ErrLayout, size, align)
	}
	if size > math.MaxInt-(align-1) {
		return Layout{}, fmt.Errorf("%w: size %d overflows when aligned to %d", ErrLayout, size, align)
	}
	return Layout{Size: size, Align: align}, nil
}

// MustLayout is like NewLayout but panics on invalid input.
func MustLayout(size, align int) Layout {
	l, err := NewLayout(size, align)
	if err != nil {
		panic(err)
	}
	return l
}

// LayoutOf returns the layout of a value of type T.
func LayoutOf[T any]() Layout {
	var v T
	return Layout{Size: int(unsafe.Sizeof(v)), Align: int(unsafe.Alignof(v))}
}

// ArrayLayout returns the layout of n consecutive elements, each padded to
// its alignment.
func ArrayLayout(elem Layout, n int) (Layout, error) {
	if n < 0 {
		return Layout{}, fmt.Errorf("%w: negative count %d", ErrLayout, n)
	}
	stride := elem.PadToAlign().Size
	hi, lo := bits.Mul64(uint64(stride), uint64(n))
	if hi != 0 || lo > math.MaxInt-uint64(elem.Align-1) {
		return Layout{}, fmt.Errorf("%w: %d elements of %v overflow", ErrLayout, n, elem)
	}
	return Layout{Size: int(lo), Align: elem.Align}, nil
}

// Extend returns the layout of l immediately followed by next, and the offset
// of next within it. The result is not padded to its alignment.
func (l Layout) Extend(next Layout) (Layout, int, error) {
	offset := AlignUp(l.Size, next.Align)
	if offset < l.Size || next.Size > math.MaxInt-offset {
		return Layout{}, 0, fmt.Errorf("%w: %v extended by %v overflows", ErrLayout, l, next)
	}
	return Layout{Size: offset + next.Size, Align: max(l.Align, next.Align)}, offset, nil
}

// PadToAlign rounds the size up to a multiple of the alignment.
func (l Layout) PadToAlign() Layout {
	return Layout{Size: AlignUp(l.Size, l.Align), Align: l.Align}
}

func (l Layout) String() string {
	return fmt.Sprintf("{size: %d, align: %d}", l.Size, l.Align)
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// AlignUp rounds n up to the next multiple of align, a power of two.
func AlignUp(n, align int) int {
	mask := align - 1
	return (n + mask) &^ mask
}
