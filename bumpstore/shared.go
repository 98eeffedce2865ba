package bumpstore

import (
	"sync/atomic"
	"unsafe"

	"github.com/google/uuid"

	"github.com/matthieu-m/storage/store"
)

// Block is a fixed block of memory shared by Shared parts. The watermark is
// advanced atomically, so parts may allocate from several goroutines.
type Block struct {
	id        uuid.UUID
	r         region
	watermark atomic.Int64
}

// NewBlock creates a block of size bytes aligned to align.
func NewBlock(size, align int) (*Block, error) {
	r, err := newRegion(size, align)
	if err != nil {
		return nil, err
	}
	return &Block{id: uuid.New(), r: r}, nil
}

// ID identifies the sharing set formed by the parts of b.
func (b *Block) ID() uuid.UUID {
	return b.id
}

// Used returns the watermark.
func (b *Block) Used() int {
	return int(b.watermark.Load())
}

// Size returns the size of the block.
func (b *Block) Size() int {
	return b.r.size
}

// Reset releases every block at once. Handles of every part become invalid.
func (b *Block) Reset() {
	b.watermark.Store(0)
}

// reserve bumps the watermark for layout and returns the offset of the block.
func (b *Block) reserve(layout store.Layout) (int, bool) {
	for {
		wm := b.watermark.Load()
		offset, end, ok := b.r.place(int(wm), layout)
		if !ok {
			return 0, false
		}
		if b.watermark.CompareAndSwap(wm, int64(end)) {
			return offset, true
		}
	}
}

// Shared is one part of a Block.
type Shared[H store.Handle] struct {
	b *Block
}

var (
	_ store.Store[uint32]           = (*Shared[uint32])(nil)
	_ store.Grower[uint32]          = (*Shared[uint32])(nil)
	_ store.Shrinker[uint32]        = (*Shared[uint32])(nil)
	_ store.Sharer[*Shared[uint32]] = (*Shared[uint32])(nil)
)

// NewShared creates a part of b.
func NewShared[H store.Handle](b *Block) (*Shared[H], error) {
	if err := checkHandle[H](b.r.size); err != nil {
		return nil, err
	}
	return &Shared[H]{b: b}, nil
}

// Block returns the block this part allocates from.
func (s *Shared[H]) Block() *Block {
	return s.b
}

func (s *Shared[H]) Capabilities() store.Capabilities {
	return store.Multiple | store.Stable | store.Pinning | store.Sharing | store.Concurrent
}

func (s *Shared[H]) Dangling(align int) (H, error) {
	return dangling[H](&s.b.r, align)
}

func (s *Shared[H]) Allocate(layout store.Layout) (H, int, error) {
	offset, ok := s.b.reserve(layout)
	if !ok {
		return 0, 0, store.ErrAlloc
	}
	return H(offset), layout.Size, nil
}

// Deallocate does nothing; memory comes back with Reset.
func (s *Shared[H]) Deallocate(H, store.Layout) {}

func (s *Shared[H]) Resolve(h H) unsafe.Pointer {
	return s.b.r.resolve(int(h))
}

func (s *Shared[H]) Grow(h H, oldLayout, newLayout store.Layout) (H, int, error) {
	offset := int(h)
	if s.b.r.fitsInPlace(offset, newLayout) {
		old, grown := int64(offset+oldLayout.Size), int64(offset+newLayout.Size)
		if s.b.watermark.CompareAndSwap(old, grown) {
			return h, newLayout.Size, nil
		}
	}
	return s.relocate(h, newLayout, oldLayout.Size)
}

// Shrink keeps the block where it is and reports its old size, unless the
// new alignment is not met by the current offset.
func (s *Shared[H]) Shrink(h H, oldLayout, newLayout store.Layout) (H, int, error) {
	if s.b.r.fitsInPlace(int(h), newLayout) {
		return h, oldLayout.Size, nil
	}
	return s.relocate(h, newLayout, newLayout.Size)
}

// Share returns another part of the same block. It never fails.
func (s *Shared[H]) Share() (*Shared[H], error) {
	return &Shared[H]{b: s.b}, nil
}

func (s *Shared[H]) IsSharingWith(other *Shared[H]) bool {
	return other != nil && s.b.id == other.b.id
}

func (s *Shared[H]) relocate(h H, newLayout store.Layout, keep int) (H, int, error) {
	offset, ok := s.b.reserve(newLayout)
	if !ok {
		return 0, 0, store.ErrAlloc
	}
	copy(s.b.r.bytes(offset, keep), s.b.r.bytes(int(h), keep))
	return H(offset), newLayout.Size, nil
}
