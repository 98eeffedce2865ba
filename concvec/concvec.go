// Package concvec implements a fixed-capacity, append-only vector whose Push
// may be called from several goroutines at once.
//
// The element count lives in one atomic word holding count+1. While a writer
// fills the next slot the word is negated, which locks out other writers
// without blocking readers: they only ever look at slots below the count,
// which are fully written. A full vector is detected before the lock is
// taken, so it never spins.
//
// Concurrent use requires a store reporting store.Concurrent. With any other
// store the vector must stay on one goroutine.
package concvec

import (
	"encoding/binary"
	"fmt"
	"iter"
	"log/slog"
	"runtime"
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/matthieu-m/storage/codec"
	"github.com/matthieu-m/storage/internal/debug"
	"github.com/matthieu-m/storage/store"
)

// Vec is a fixed-capacity vector of T kept in a store.
//
// Values of a codec with a fixed size are encoded directly into the slots of
// one block. Other values get a payload block each, and their slot holds the
// payload handle and size; this requires a store.Multiple store.
type Vec[H store.Handle, T any] struct {
	_ cpu.CacheLinePad
	// length is count+1, negated while a writer owns slot count.
	length atomic.Int64
	_      cpu.CacheLinePad

	s      store.Store[H]
	c      codec.Codec[T]
	logger *slog.Logger

	capacity int
	block    H
	layout   store.Layout
	dangling bool

	// fixed is set when values live in the slots.
	fixed    bool
	slotSize int
	// sizeAt is the offset of the payload size in a variable slot.
	sizeAt int
}

// New creates a vector holding up to capacity values, allocated from s.
func New[H store.Handle, T any](s store.Store[H], capacity int, c codec.Codec[T], opts ...Option) (*Vec[H, T], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	v := &Vec[H, T]{s: s, c: c, logger: o.logger, capacity: capacity}

	slot, err := v.slotLayout()
	if err != nil {
		return nil, err
	}
	v.layout, err = store.ArrayLayout(slot, capacity)
	if err != nil {
		return nil, fmt.Errorf("concvec: capacity %d: %w", capacity, err)
	}

	if v.layout.Size == 0 {
		v.block, err = s.Dangling(v.layout.Align)
		v.dangling = true
	} else {
		v.block, _, err = s.Allocate(v.layout)
	}
	if err != nil {
		return nil, fmt.Errorf("concvec: allocating %d slots: %w", capacity, err)
	}

	v.length.Store(1)
	v.logger.Debug("vector created",
		"capacity", capacity,
		"fixed", v.fixed,
		"slot_size", v.slotSize,
		"capabilities", s.Capabilities())
	return v, nil
}

func (v *Vec[H, T]) slotLayout() (store.Layout, error) {
	if n, ok := codec.FixedSize(v.c); ok {
		v.fixed = true
		v.slotSize = n
		return store.NewLayout(n, 1)
	}

	if err := store.Require(v.s, store.Multiple); err != nil {
		return store.Layout{}, fmt.Errorf("concvec: variable size values: %w", err)
	}

	slot, sizeAt, err := store.HandleLayout[H]().Extend(store.LayoutOf[uint32]())
	if err != nil {
		return store.Layout{}, err
	}
	slot = slot.PadToAlign()
	v.slotSize, v.sizeAt = slot.Size, sizeAt
	return slot, nil
}

// Len returns the number of values in the vector.
func (v *Vec[H, T]) Len() int {
	return count(v.length.Load())
}

// Capacity returns the maximum number of values.
func (v *Vec[H, T]) Capacity() int {
	return v.capacity
}

// IsEmpty reports whether the vector holds no value.
func (v *Vec[H, T]) IsEmpty() bool {
	return v.Len() == 0
}

// Push appends value. When the vector is full, or the payload of value cannot
// be allocated, it returns a *RejectedError holding value.
func (v *Vec[H, T]) Push(value T) error {
	length := v.length.Load()
	for {
		if count(length) >= v.capacity {
			v.logger.Debug("push rejected", "len", count(length), "error", ErrFull)
			return &RejectedError[T]{Value: value, Err: ErrFull}
		}

		if length < 0 {
			runtime.Gosched()
			length = v.length.Load()
			continue
		}

		if v.length.CompareAndSwap(length, -length) {
			break
		}
		length = v.length.Load()
	}

	// Slot length-1 is ours until the store below.
	index := int(length - 1)
	debug.Assert(index < v.capacity, "concvec: locked slot %d beyond capacity %d", index, v.capacity)

	if err := v.write(index, value); err != nil {
		v.length.Store(length)
		v.logger.Debug("push rejected", "index", index, "error", err)
		return &RejectedError[T]{Value: value, Err: err}
	}

	v.length.Store(length + 1)
	return nil
}

// Get returns the value at index i, if any.
func (v *Vec[H, T]) Get(i int) (T, bool) {
	if i < 0 || i >= v.Len() {
		var zero T
		return zero, false
	}
	return v.read(i), true
}

// At returns the value at index i and panics when i is out of range.
func (v *Vec[H, T]) At(i int) T {
	if n := v.Len(); i < 0 || i >= n {
		panic(fmt.Sprintf("concvec: index %d out of range [0:%d]", i, n))
	}
	return v.read(i)
}

// Slice returns a copy of the values currently in the vector.
func (v *Vec[H, T]) Slice() []T {
	n := v.Len()
	out := make([]T, n)
	for i := range n {
		out[i] = v.read(i)
	}
	return out
}

// All iterates over the values present when iteration starts.
func (v *Vec[H, T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		n := v.Len()
		for i := range n {
			if !yield(i, v.read(i)) {
				return
			}
		}
	}
}

// Set replaces the value at index i, which must be in range. The caller must
// have exclusive access to the vector.
func (v *Vec[H, T]) Set(i int, value T) error {
	if n := v.Len(); i < 0 || i >= n {
		panic(fmt.Sprintf("concvec: index %d out of range [0:%d]", i, n))
	}
	if v.fixed {
		v.c.Encode(v.slot(i), value)
		return nil
	}

	old, oldSize := v.payload(i)
	if err := v.write(i, value); err != nil {
		return err
	}
	v.releasePayload(old, oldSize)
	return nil
}

// Clone copies the vector into a new one of the same capacity allocated from
// dst.
func (v *Vec[H, T]) Clone(dst store.Store[H]) (*Vec[H, T], error) {
	clone, err := New(dst, v.capacity, v.c, WithLogger(v.logger))
	if err != nil {
		return nil, err
	}

	n := v.Len()
	if v.fixed {
		copy(clone.slots(n), v.slots(n))
	} else {
		for i := range n {
			if err := clone.write(i, v.read(i)); err != nil {
				clone.length.Store(int64(i) + 1)
				clone.Release()
				return nil, fmt.Errorf("concvec: clone of element %d: %w", i, err)
			}
		}
	}

	clone.length.Store(int64(n) + 1)
	return clone, nil
}

// Release frees every block held by the vector. The vector is left empty
// with no capacity.
func (v *Vec[H, T]) Release() {
	n := v.Len()
	if !v.fixed {
		for i := range n {
			v.releasePayload(v.payload(i))
		}
	}
	if !v.dangling {
		v.s.Deallocate(v.block, v.layout)
	}

	v.logger.Debug("vector released", "len", n, "capacity", v.capacity)
	v.length.Store(1)
	v.capacity = 0
	v.dangling = true
}

func (v *Vec[H, T]) String() string {
	return fmt.Sprint(v.Slice())
}

func count(length int64) int {
	if length < 0 {
		length = -length
	}
	return int(length - 1)
}

func (v *Vec[H, T]) slots(n int) []byte {
	return store.Bytes(v.s, v.block, n*v.slotSize)
}

func (v *Vec[H, T]) slot(i int) []byte {
	return v.slots(i + 1)[i*v.slotSize:]
}

func (v *Vec[H, T]) payload(i int) (H, int) {
	slot := v.slot(i)
	return store.ReadHandle[H](slot), int(binary.LittleEndian.Uint32(slot[v.sizeAt:]))
}

func (v *Vec[H, T]) releasePayload(h H, size int) {
	if size > 0 {
		v.s.Deallocate(h, store.MustLayout(size, 1))
	}
}

func (v *Vec[H, T]) read(i int) T {
	if v.fixed {
		return v.c.Decode(v.slot(i))
	}
	h, size := v.payload(i)
	return v.c.Decode(store.Bytes(v.s, h, size))
}

// write encodes value into slot i, allocating its payload block if needed.
// It does not touch the previous payload of the slot.
func (v *Vec[H, T]) write(i int, value T) error {
	if v.fixed {
		v.c.Encode(v.slot(i), value)
		return nil
	}

	size := v.c.Size(value)
	if uint64(size) > 1<<32-1 {
		return fmt.Errorf("%w: payload of %d bytes", store.ErrAlloc, size)
	}

	var (
		h   H
		err error
	)
	if size == 0 {
		h, err = v.s.Dangling(1)
	} else {
		h, _, err = v.s.Allocate(store.MustLayout(size, 1))
	}
	if err != nil {
		return err
	}
	v.c.Encode(store.Bytes(v.s, h, size), value)

	// The allocation may have moved the slots.
	slot := v.slot(i)
	store.PutHandle(slot, h)
	binary.LittleEndian.PutUint32(slot[v.sizeAt:], uint32(size))
	return nil
}
