// Package storetest is a conformance suite for store backends.
//
// Each backend test calls Run with a factory producing a fresh store. The
// suite only ever keeps one block live at a time unless the store reports
// store.Multiple.
package storetest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matthieu-m/storage/store"
)

// Factory creates a fresh, empty store.
type Factory[H store.Handle] func(t *testing.T) store.Store[H]

// Config describes the limits of the backend under test.
type Config struct {
	// MaxAlign is the largest alignment the backend must satisfy.
	MaxAlign int
	// RejectAlign, when set, is an alignment the backend must refuse.
	RejectAlign int
}

// Run executes the suite against stores returned by newStore. Every store
// must be able to hold a 64 byte block aligned to cfg.MaxAlign.
func Run[H store.Handle](t *testing.T, cfg Config, newStore Factory[H]) {
	t.Run("Capabilities", func(t *testing.T) {
		require.True(t, newStore(t).Capabilities().Valid())
	})

	t.Run("DanglingIsAligned", func(t *testing.T) {
		s := newStore(t)
		for align := 1; align <= cfg.MaxAlign; align *= 2 {
			h, err := s.Dangling(align)
			require.NoError(t, err, "align %d", align)
			require.Zero(t, store.Addr(s, h)%uintptr(align), "align %d", align)
		}
	})

	if cfg.RejectAlign > 0 {
		t.Run("DanglingAboveCeiling", func(t *testing.T) {
			_, err := newStore(t).Dangling(cfg.RejectAlign)
			require.ErrorIs(t, err, store.ErrAlloc)
		})

		t.Run("AllocateAboveCeiling", func(t *testing.T) {
			_, _, err := newStore(t).Allocate(store.MustLayout(8, cfg.RejectAlign))
			require.ErrorIs(t, err, store.ErrAlloc)
		})
	}

	t.Run("Allocate", func(t *testing.T) {
		s := newStore(t)
		for align := 1; align <= cfg.MaxAlign; align *= 2 {
			layout := store.MustLayout(24, align)
			h, n, err := s.Allocate(layout)
			require.NoError(t, err, "align %d", align)
			require.GreaterOrEqual(t, n, layout.Size)
			require.Zero(t, store.Addr(s, h)%uintptr(align), "align %d", align)

			b := store.Bytes(s, h, n)
			fill(b, byte(align))
			require.Equal(t, pattern(n, byte(align)), store.Bytes(s, h, n))

			s.Deallocate(h, layout)
		}
	})

	t.Run("AllocateZeroed", func(t *testing.T) {
		s := newStore(t)
		layout := store.MustLayout(32, 8)

		h, n, err := s.Allocate(layout)
		require.NoError(t, err)
		fill(store.Bytes(s, h, n), 0xAA)
		s.Deallocate(h, layout)

		h, n, err = store.AllocateZeroed(s, layout)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, layout.Size)
		require.Equal(t, make([]byte, n), store.Bytes(s, h, n))
		s.Deallocate(h, layout)
	})

	t.Run("GrowPreservesBytes", func(t *testing.T) {
		s := newStore(t)
		small, large := store.MustLayout(16, 8), store.MustLayout(48, 8)

		h, n, err := s.Allocate(small)
		require.NoError(t, err)
		fill(store.Bytes(s, h, n), 0x5A)

		h, n, err = store.Grow(s, h, small, large)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, large.Size)
		require.Equal(t, pattern(small.Size, 0x5A), store.Bytes(s, h, small.Size))
		s.Deallocate(h, large)
	})

	t.Run("GrowZeroedClearsTail", func(t *testing.T) {
		s := newStore(t)
		small, large := store.MustLayout(16, 8), store.MustLayout(48, 8)

		h, n, err := s.Allocate(small)
		require.NoError(t, err)
		fill(store.Bytes(s, h, n), 0x77)

		h, n, err = store.GrowZeroed(s, h, small, large)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, large.Size)

		b := store.Bytes(s, h, n)
		require.Equal(t, pattern(small.Size, 0x77), b[:small.Size])
		require.Equal(t, make([]byte, n-small.Size), b[small.Size:])
		s.Deallocate(h, large)
	})

	t.Run("ShrinkPreservesPrefix", func(t *testing.T) {
		s := newStore(t)
		large, small := store.MustLayout(48, 8), store.MustLayout(16, 8)

		h, n, err := s.Allocate(large)
		require.NoError(t, err)
		fill(store.Bytes(s, h, n), 0x33)

		h, n, err = store.Shrink(s, h, large, small)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, small.Size)
		require.Equal(t, pattern(small.Size, 0x33), store.Bytes(s, h, small.Size))
		s.Deallocate(h, small)
	})

	t.Run("ZeroSize", func(t *testing.T) {
		s := newStore(t)
		layout := store.MustLayout(0, 1)

		h, n, err := s.Allocate(layout)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 0)
		s.Deallocate(h, layout)
	})

	if !newStore(t).Capabilities().Has(store.Multiple) {
		return
	}

	t.Run("HandlesSurviveAllocation", func(t *testing.T) {
		s := newStore(t)
		layout := store.MustLayout(8, 8)

		handles := make([]H, 6)
		for i := range handles {
			h, n, err := s.Allocate(layout)
			require.NoError(t, err)
			fill(store.Bytes(s, h, n), byte(i+1))
			handles[i] = h
		}
		for i, h := range handles {
			require.Equal(t, pattern(layout.Size, byte(i+1)), store.Bytes(s, h, layout.Size), "block %d", i)
		}
		for _, h := range handles {
			s.Deallocate(h, layout)
		}
	})

	t.Run("GrowKeepsOthers", func(t *testing.T) {
		s := newStore(t)
		small, large := store.MustLayout(8, 8), store.MustLayout(40, 8)

		a, _, err := s.Allocate(small)
		require.NoError(t, err)
		fill(store.Bytes(s, a, small.Size), 1)

		b, _, err := s.Allocate(small)
		require.NoError(t, err)
		fill(store.Bytes(s, b, small.Size), 2)

		a, _, err = store.Grow(s, a, small, large)
		require.NoError(t, err)
		require.True(t, bytes.Equal(pattern(small.Size, 1), store.Bytes(s, a, small.Size)))
		require.True(t, bytes.Equal(pattern(small.Size, 2), store.Bytes(s, b, small.Size)))
	})
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}

func pattern(n int, v byte) []byte {
	return bytes.Repeat([]byte{v}, n)
}
