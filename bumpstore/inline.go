package bumpstore

import (
	"unsafe"

	"github.com/matthieu-m/storage/store"
)

// Inline is a bump store owning its block.
//
// It is Multiple and Stable but makes no promise across copies of the value
// nor across goroutines: calls must be serialized by the caller.
type Inline[H store.Handle] struct {
	r         region
	watermark int
}

var (
	_ store.Store[uint32]    = (*Inline[uint32])(nil)
	_ store.Grower[uint32]   = (*Inline[uint32])(nil)
	_ store.Shrinker[uint32] = (*Inline[uint32])(nil)
)

// NewInline creates a store over a block of size bytes aligned to align.
func NewInline[H store.Handle](size, align int) (*Inline[H], error) {
	if err := checkHandle[H](size); err != nil {
		return nil, err
	}
	r, err := newRegion(size, align)
	if err != nil {
		return nil, err
	}
	return &Inline[H]{r: r}, nil
}

func (s *Inline[H]) Capabilities() store.Capabilities {
	return store.Multiple | store.Stable
}

func (s *Inline[H]) Dangling(align int) (H, error) {
	return dangling[H](&s.r, align)
}

func (s *Inline[H]) Allocate(layout store.Layout) (H, int, error) {
	offset, end, ok := s.r.place(s.watermark, layout)
	if !ok {
		return 0, 0, store.ErrAlloc
	}
	s.watermark = end
	return H(offset), layout.Size, nil
}

// Deallocate does nothing; memory comes back with Reset.
func (s *Inline[H]) Deallocate(H, store.Layout) {}

func (s *Inline[H]) Resolve(h H) unsafe.Pointer {
	return s.r.resolve(int(h))
}

func (s *Inline[H]) Grow(h H, oldLayout, newLayout store.Layout) (H, int, error) {
	offset := int(h)
	if offset+oldLayout.Size == s.watermark && s.r.fitsInPlace(offset, newLayout) {
		s.watermark = offset + newLayout.Size
		return h, newLayout.Size, nil
	}
	return s.relocate(h, newLayout, oldLayout.Size)
}

// Shrink keeps the block where it is and reports its old size, unless the
// new alignment is not met by the current offset.
func (s *Inline[H]) Shrink(h H, oldLayout, newLayout store.Layout) (H, int, error) {
	if s.r.fitsInPlace(int(h), newLayout) {
		return h, oldLayout.Size, nil
	}
	return s.relocate(h, newLayout, newLayout.Size)
}

// Reset releases every block at once. All handles become invalid.
func (s *Inline[H]) Reset() {
	s.watermark = 0
}

// Used returns the watermark.
func (s *Inline[H]) Used() int {
	return s.watermark
}

// Size returns the size of the block.
func (s *Inline[H]) Size() int {
	return s.r.size
}

func (s *Inline[H]) relocate(h H, newLayout store.Layout, keep int) (H, int, error) {
	offset, end, ok := s.r.place(s.watermark, newLayout)
	if !ok {
		return 0, 0, store.ErrAlloc
	}
	s.watermark = end
	copy(s.r.bytes(offset, keep), s.r.bytes(int(h), keep))
	return H(offset), newLayout.Size, nil
}
