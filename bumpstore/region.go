package bumpstore

import (
	"fmt"
	"unsafe"

	"github.com/matthieu-m/storage/store"
)

// region is an aligned window of a Go allocation.
type region struct {
	raw   []byte
	base  int
	size  int
	align int
}

func newRegion(size, align int) (region, error) {
	if size < 0 || !store.IsPowerOfTwo(align) {
		return region{}, fmt.Errorf("%w: block of %d bytes aligned to %d", store.ErrLayout, size, align)
	}

	// The extra byte keeps the end of the block addressable.
	raw := make([]byte, size+align)
	return region{
		raw:   raw,
		base:  store.AlignOffset(raw, align),
		size:  size,
		align: align,
	}, nil
}

func (r *region) resolve(offset int) unsafe.Pointer {
	return unsafe.Pointer(&r.raw[r.base+offset])
}

func (r *region) bytes(offset, n int) []byte {
	start := r.base + offset
	return r.raw[start : start+n : start+n]
}

// place returns where layout lands when the watermark is at wm, and the
// watermark after it.
func (r *region) place(wm int, layout store.Layout) (offset, end int, ok bool) {
	if !store.IsPowerOfTwo(layout.Align) || layout.Align > r.align || layout.Size < 0 {
		return 0, 0, false
	}
	offset = store.AlignUp(wm, layout.Align)
	if offset > r.size || layout.Size > r.size-offset {
		return 0, 0, false
	}
	return offset, offset + layout.Size, true
}

// fitsInPlace reports whether the block at offset can take newLayout where it
// stands.
func (r *region) fitsInPlace(offset int, newLayout store.Layout) bool {
	return store.IsPowerOfTwo(newLayout.Align) && newLayout.Align <= r.align &&
		offset%newLayout.Align == 0 && newLayout.Size <= r.size-offset
}

func checkHandle[H store.Handle](size int) error {
	if _, ok := store.HandleFromOffset[H](size); !ok {
		return fmt.Errorf("%w: offset %d not representable by %d byte handles", store.ErrAlloc, size, store.HandleSize[H]())
	}
	return nil
}

func dangling[H store.Handle](r *region, align int) (H, error) {
	if !store.IsPowerOfTwo(align) || align > r.align {
		return 0, store.ErrAlloc
	}
	// The start of the block satisfies every alignment up to r.align.
	return 0, nil
}
