package heapstore

import (
	"fmt"
	"log/slog"
	"math/bits"
	"sync"
	"unsafe"

	"github.com/google/uuid"

	"github.com/matthieu-m/storage/internal/debug"
	"github.com/matthieu-m/storage/store"
)

// Handle identifies a block of a Store.
type Handle = uint32

// MaxAlign is the largest alignment the store can satisfy.
const MaxAlign = 4096

// Dangling handles carry this bit and the log2 of their alignment.
const danglingBit Handle = 1 << 31

// maxBlocks bounds the block table so that live handles never carry danglingBit.
const maxBlocks = int(danglingBit) - 1

// Store is one part of a heap-backed sharing set.
type Store struct {
	a *arena
}

type arena struct {
	id     uuid.UUID
	limit  int
	logger *slog.Logger

	// sentinel backs dangling handles; it is never read or written.
	sentinel []byte

	mu     sync.RWMutex
	blocks []block
	free   []Handle
	stats  Stats
}

type block struct {
	mem    []byte
	offset int
	size   int
	live   bool
}

// Stats contains allocation statistics for a sharing set.
type Stats struct {
	Allocations   uint64 // Successful allocations, including relocations
	Deallocations uint64 // Blocks released
	Failures      uint64 // Requests that could not be satisfied
	LiveBlocks    int    // Blocks currently allocated
	BytesInUse    int    // Sum of the requested sizes of live blocks
	PeakBytes     int    // Largest BytesInUse observed
}

var (
	_ store.Store[Handle]         = (*Store)(nil)
	_ store.Grower[Handle]        = (*Store)(nil)
	_ store.Shrinker[Handle]      = (*Store)(nil)
	_ store.ZeroAllocator[Handle] = (*Store)(nil)
	_ store.Sharer[*Store]        = (*Store)(nil)
)

// New creates a Store heading a new sharing set.
func New(opts ...Option) *Store {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &Store{a: &arena{
		id:       uuid.New(),
		limit:    o.limit,
		logger:   o.logger,
		sentinel: make([]byte, 2*MaxAlign),
	}}
}

// ID returns the identifier of the sharing set.
func (s *Store) ID() uuid.UUID {
	return s.a.id
}

func (s *Store) Capabilities() store.Capabilities {
	return store.Multiple | store.Stable | store.Pinning | store.Sharing | store.Concurrent
}

func (s *Store) Dangling(align int) (Handle, error) {
	if !store.IsPowerOfTwo(align) || align > MaxAlign {
		return 0, store.ErrAlloc
	}
	return danglingBit | Handle(bits.TrailingZeros(uint(align))), nil
}

func (s *Store) Allocate(layout store.Layout) (Handle, int, error) {
	a := s.a
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.allocLocked(layout)
}

// AllocateZeroed is Allocate: fresh Go memory is always zeroed.
func (s *Store) AllocateZeroed(layout store.Layout) (Handle, int, error) {
	return s.Allocate(layout)
}

func (s *Store) Deallocate(h Handle, layout store.Layout) {
	a := s.a
	a.mu.Lock()
	defer a.mu.Unlock()

	a.freeLocked(h)
}

func (s *Store) Resolve(h Handle) unsafe.Pointer {
	a := s.a
	if h&danglingBit != 0 {
		align := 1 << (h &^ danglingBit)
		return unsafe.Pointer(&a.sentinel[store.AlignOffset(a.sentinel, align)])
	}

	a.mu.RLock()
	b := &a.blocks[h-1]
	debug.Assert(b.live, "heapstore: resolve of released handle %d", h)
	p := unsafe.Pointer(&b.mem[b.offset])
	a.mu.RUnlock()

	return p
}

// Grow extends the block in place when its current allocation already has
// room, and relocates it otherwise.
func (s *Store) Grow(h Handle, oldLayout, newLayout store.Layout) (Handle, int, error) {
	debug.Assert(newLayout.Size >= oldLayout.Size, "heapstore: grow %v to smaller %v", oldLayout, newLayout)
	return s.resize(h, newLayout, oldLayout.Size)
}

// Shrink keeps the block in place unless the new alignment is not met.
func (s *Store) Shrink(h Handle, oldLayout, newLayout store.Layout) (Handle, int, error) {
	debug.Assert(newLayout.Size <= oldLayout.Size, "heapstore: shrink %v to larger %v", oldLayout, newLayout)
	return s.resize(h, newLayout, newLayout.Size)
}

// Share returns another part of the same sharing set. It never fails.
func (s *Store) Share() (*Store, error) {
	return &Store{a: s.a}, nil
}

func (s *Store) IsSharingWith(other *Store) bool {
	return other != nil && s.a.id == other.a.id
}

// Stats returns a copy of the allocation statistics of the sharing set.
func (s *Store) Stats() Stats {
	a := s.a
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stats
}

// Validate checks the bookkeeping of the block table.
func (s *Store) Validate() error {
	a := s.a
	a.mu.RLock()
	defer a.mu.RUnlock()

	inUse, live := 0, 0
	for i, b := range a.blocks {
		if !b.live {
			continue
		}
		live++
		inUse += b.size
		if b.offset+b.size > len(b.mem) {
			return fmt.Errorf("block %d of size %d at offset %d exceeds its allocation of %d", i+1, b.size, b.offset, len(b.mem))
		}
	}
	if live != a.stats.LiveBlocks {
		return fmt.Errorf("live blocks: counted %d, recorded %d", live, a.stats.LiveBlocks)
	}
	if inUse != a.stats.BytesInUse {
		return fmt.Errorf("bytes in use: counted %d, recorded %d", inUse, a.stats.BytesInUse)
	}
	for _, h := range a.free {
		if a.blocks[h-1].live {
			return fmt.Errorf("handle %d is both free and live", h)
		}
	}
	if live+len(a.free) != len(a.blocks) {
		return fmt.Errorf("table of %d blocks holds %d live and %d free", len(a.blocks), live, len(a.free))
	}
	return nil
}

func (s *Store) resize(h Handle, newLayout store.Layout, keep int) (Handle, int, error) {
	a := s.a
	a.mu.Lock()
	defer a.mu.Unlock()

	if !store.IsPowerOfTwo(newLayout.Align) || newLayout.Align > MaxAlign {
		a.failLocked(newLayout)
		return 0, 0, store.ErrAlloc
	}

	b := &a.blocks[h-1]
	usable := len(b.mem) - b.offset
	aligned := store.AlignOffset(b.mem[b.offset:], newLayout.Align) == 0

	if aligned && newLayout.Size <= usable {
		delta := newLayout.Size - b.size
		if !a.reserveLocked(delta, newLayout) {
			return 0, 0, store.ErrAlloc
		}
		b.size = newLayout.Size
		return h, usable, nil
	}

	nh, n, err := a.allocLocked(newLayout)
	if err != nil {
		return 0, 0, err
	}

	// allocLocked may have grown the table.
	old, fresh := &a.blocks[h-1], &a.blocks[nh-1]
	copy(fresh.mem[fresh.offset:fresh.offset+keep], old.mem[old.offset:old.offset+keep])
	a.freeLocked(h)

	return nh, n, nil
}

func (a *arena) allocLocked(layout store.Layout) (Handle, int, error) {
	if !store.IsPowerOfTwo(layout.Align) || layout.Align > MaxAlign || layout.Size < 0 {
		a.failLocked(layout)
		return 0, 0, store.ErrAlloc
	}
	if len(a.free) == 0 && len(a.blocks) >= maxBlocks {
		a.failLocked(layout)
		return 0, 0, store.ErrAlloc
	}
	if !a.reserveLocked(layout.Size, layout) {
		return 0, 0, store.ErrAlloc
	}

	// At least one byte, so that even an empty block resolves in bounds.
	mem := make([]byte, max(layout.Size, 1)+layout.Align-1)
	b := block{
		mem:    mem,
		offset: store.AlignOffset(mem, layout.Align),
		size:   layout.Size,
		live:   true,
	}

	var h Handle
	if n := len(a.free); n > 0 {
		h = a.free[n-1]
		a.free = a.free[:n-1]
		a.blocks[h-1] = b
	} else {
		a.blocks = append(a.blocks, b)
		h = Handle(len(a.blocks))
	}

	a.stats.Allocations++
	a.stats.LiveBlocks++
	return h, len(mem) - b.offset, nil
}

func (a *arena) freeLocked(h Handle) {
	b := &a.blocks[h-1]
	debug.Assert(b.live, "heapstore: double deallocation of handle %d", h)

	a.stats.BytesInUse -= b.size
	a.stats.LiveBlocks--
	a.stats.Deallocations++

	*b = block{}
	a.free = append(a.free, h)
}

// reserveLocked accounts for delta more bytes in use, and reports whether the
// limit allows it.
func (a *arena) reserveLocked(delta int, layout store.Layout) bool {
	if a.limit > 0 && delta > 0 && a.stats.BytesInUse+delta > a.limit {
		a.failLocked(layout)
		return false
	}
	a.stats.BytesInUse += delta
	a.stats.PeakBytes = max(a.stats.PeakBytes, a.stats.BytesInUse)
	return true
}

func (a *arena) failLocked(layout store.Layout) {
	a.stats.Failures++
	a.logger.Debug("heap allocation failed",
		"size", layout.Size,
		"align", layout.Align,
		"in_use", a.stats.BytesInUse,
		"limit", a.limit)
}
