package store

import (
	"fmt"
	"strings"
	"unsafe"
)

// Capabilities is the set of guarantees a backend makes beyond the base
// contract. Capabilities carry no behavior; they are promises consumers check
// before relying on them.
type Capabilities uint8

const (
	// Multiple: handles survive allocations, and unrelated handles survive
	// grow, shrink and deallocate.
	Multiple Capabilities = 1 << iota
	// Stable: resolved addresses survive further calls on the store.
	Stable
	// Pinning: resolved addresses survive moving the store. Implies Stable.
	Pinning
	// Sharing: the store implements Sharer and handles are valid on every part
	// of its sharing set.
	Sharing
	// Concurrent: the store is internally synchronized and may be called from
	// several goroutines at once.
	Concurrent
)

var capabilityNames = []struct {
	c    Capabilities
	name string
}{
	{Multiple, "multiple"},
	{Stable, "stable"},
	{Pinning, "pinning"},
	{Sharing, "sharing"},
	{Concurrent, "concurrent"},
}

// Has reports whether every capability in want is present.
func (c Capabilities) Has(want Capabilities) bool {
	return c&want == want
}

// Valid reports whether the set is self-consistent.
func (c Capabilities) Valid() bool {
	return !c.Has(Pinning) || c.Has(Stable)
}

func (c Capabilities) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	for _, n := range capabilityNames {
		if c.Has(n.c) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Dangler produces dangling handles.
type Dangler[H Handle] interface {
	// Dangling returns a handle that is never associated with memory and
	// resolves to an address aligned to align. It fails when the store cannot
	// represent that alignment. Nothing distinguishes a dangling handle from a
	// live one; the caller must remember which it holds.
	Dangling(align int) (H, error)
}

// Store is the allocation contract.
type Store[H Handle] interface {
	Dangler[H]

	// Capabilities returns the guarantees this store makes.
	Capabilities() Capabilities

	// Allocate returns a block of at least layout.Size bytes aligned to
	// layout.Align, together with the usable size of the block.
	Allocate(layout Layout) (H, int, error)

	// Deallocate releases the block of h. layout must fit the block.
	Deallocate(h H, layout Layout)

	// Resolve returns the address of the first byte of the block of h, which
	// must be valid and issued by this store.
	Resolve(h H) unsafe.Pointer
}

// Grower is implemented by stores with their own grow.
type Grower[H Handle] interface {
	Grow(h H, oldLayout, newLayout Layout) (H, int, error)
}

// Shrinker is implemented by stores with their own shrink.
type Shrinker[H Handle] interface {
	Shrink(h H, oldLayout, newLayout Layout) (H, int, error)
}

// ZeroAllocator is implemented by stores that zero memory more cheaply than a
// fill after allocation.
type ZeroAllocator[H Handle] interface {
	AllocateZeroed(layout Layout) (H, int, error)
}

// ZeroGrower is implemented by stores that zero grown memory more cheaply
// than a fill after growth.
type ZeroGrower[H Handle] interface {
	GrowZeroed(h H, oldLayout, newLayout Layout) (H, int, error)
}

// Sharer is implemented by stores reporting Sharing. S is the part type.
type Sharer[S any] interface {
	// Share creates another part of the same sharing set.
	Share() (S, error)
	// IsSharingWith reports whether other belongs to the same sharing set.
	IsSharingWith(other S) bool
}

// Require returns an error wrapping ErrUnsupported when s lacks any of want.
func Require[H Handle](s Store[H], want Capabilities) error {
	have := s.Capabilities()
	if have.Has(want) {
		return nil
	}
	return fmt.Errorf("%w: have %v, need %v", ErrUnsupported, have, want)
}
