package store

import "github.com/matthieu-m/storage/internal/debug"

// Grow extends the block of h from oldLayout to newLayout, which must not be
// smaller. On success the returned handle replaces h.
//
// Stores implementing Grower are used directly. Otherwise a Multiple store is
// grown by allocating a new block, copying and deallocating the old one; any
// other store cannot satisfy the request.
func Grow[H Handle](s Store[H], h H, oldLayout, newLayout Layout) (H, int, error) {
	debug.Assert(newLayout.Size >= oldLayout.Size, "grow: %v smaller than %v", newLayout, oldLayout)

	if g, ok := s.(Grower[H]); ok {
		return g.Grow(h, oldLayout, newLayout)
	}
	return relocate(s, h, oldLayout, newLayout, oldLayout.Size)
}

// Shrink reduces the block of h from oldLayout to newLayout, which must not
// be larger. On success the returned handle replaces h.
func Shrink[H Handle](s Store[H], h H, oldLayout, newLayout Layout) (H, int, error) {
	debug.Assert(newLayout.Size <= oldLayout.Size, "shrink: %v larger than %v", newLayout, oldLayout)

	if sh, ok := s.(Shrinker[H]); ok {
		return sh.Shrink(h, oldLayout, newLayout)
	}
	return relocate(s, h, oldLayout, newLayout, newLayout.Size)
}

// AllocateZeroed behaves like Allocate and zero-fills the whole usable block.
func AllocateZeroed[H Handle](s Store[H], layout Layout) (H, int, error) {
	if z, ok := s.(ZeroAllocator[H]); ok {
		return z.AllocateZeroed(layout)
	}

	h, n, err := s.Allocate(layout)
	if err != nil {
		return h, 0, err
	}
	clear(Bytes(s, h, n))
	return h, n, nil
}

// GrowZeroed behaves like Grow and zero-fills the bytes past oldLayout.Size.
func GrowZeroed[H Handle](s Store[H], h H, oldLayout, newLayout Layout) (H, int, error) {
	if z, ok := s.(ZeroGrower[H]); ok {
		return z.GrowZeroed(h, oldLayout, newLayout)
	}

	nh, n, err := Grow(s, h, oldLayout, newLayout)
	if err != nil {
		return nh, 0, err
	}
	if n > oldLayout.Size {
		clear(Bytes(s, nh, n)[oldLayout.Size:])
	}
	return nh, n, nil
}

// relocate moves the first keep bytes of h into a fresh block. Only sound
// when allocating does not invalidate h.
func relocate[H Handle](s Store[H], h H, oldLayout, newLayout Layout, keep int) (H, int, error) {
	if !s.Capabilities().Has(Multiple) {
		return 0, 0, ErrAlloc
	}

	nh, n, err := s.Allocate(newLayout)
	if err != nil {
		return 0, 0, err
	}

	copy(Bytes(s, nh, keep), Bytes(s, h, keep))
	s.Deallocate(h, oldLayout)

	return nh, n, nil
}
