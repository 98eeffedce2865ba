// Package singlestore provides a store holding at most one block.
//
// The store owns one fixed block and hands it out whole: every allocation
// request that fits returns the same handle, invalidating whatever was
// allocated before. It reports neither Multiple nor Concurrent, so consumers
// that keep several blocks alive reject it.
package singlestore

import (
	"fmt"
	"unsafe"

	"github.com/matthieu-m/storage/store"
)

// Handle identifies the only block of a Store.
type Handle = uint8

// Store is a single-block store.
type Store struct {
	raw   []byte
	base  int
	size  int
	align int
}

var (
	_ store.Store[Handle]         = (*Store)(nil)
	_ store.Grower[Handle]        = (*Store)(nil)
	_ store.Shrinker[Handle]      = (*Store)(nil)
	_ store.ZeroAllocator[Handle] = (*Store)(nil)
	_ store.ZeroGrower[Handle]    = (*Store)(nil)
)

// New creates a store whose block holds size bytes aligned to align.
func New(size, align int) (*Store, error) {
	if size < 0 || !store.IsPowerOfTwo(align) {
		return nil, fmt.Errorf("%w: block of %d bytes aligned to %d", store.ErrLayout, size, align)
	}
	raw := make([]byte, size+align)
	return &Store{
		raw:   raw,
		base:  store.AlignOffset(raw, align),
		size:  size,
		align: align,
	}, nil
}

// Size returns the size of the block.
func (s *Store) Size() int {
	return s.size
}

func (s *Store) Capabilities() store.Capabilities {
	return store.Stable
}

func (s *Store) Dangling(align int) (Handle, error) {
	if !store.IsPowerOfTwo(align) || align > s.align {
		return 0, store.ErrAlloc
	}
	return 0, nil
}

func (s *Store) Allocate(layout store.Layout) (Handle, int, error) {
	if !s.fits(layout) {
		return 0, 0, store.ErrAlloc
	}
	return 0, s.size, nil
}

func (s *Store) AllocateZeroed(layout store.Layout) (Handle, int, error) {
	h, n, err := s.Allocate(layout)
	if err != nil {
		return 0, 0, err
	}
	clear(s.block())
	return h, n, nil
}

func (s *Store) Deallocate(Handle, store.Layout) {}

func (s *Store) Resolve(Handle) unsafe.Pointer {
	return unsafe.Pointer(&s.raw[s.base])
}

// Grow never moves the block; it only checks that newLayout fits.
func (s *Store) Grow(h Handle, _, newLayout store.Layout) (Handle, int, error) {
	return s.Allocate(newLayout)
}

func (s *Store) GrowZeroed(h Handle, oldLayout, newLayout store.Layout) (Handle, int, error) {
	h, n, err := s.Grow(h, oldLayout, newLayout)
	if err != nil {
		return 0, 0, err
	}
	clear(s.block()[oldLayout.Size:])
	return h, n, nil
}

func (s *Store) Shrink(h Handle, _, newLayout store.Layout) (Handle, int, error) {
	return s.Allocate(newLayout)
}

func (s *Store) fits(layout store.Layout) bool {
	return store.IsPowerOfTwo(layout.Align) && layout.Align <= s.align && layout.Size >= 0 && layout.Size <= s.size
}

func (s *Store) block() []byte {
	return s.raw[s.base : s.base+s.size]
}
