package bumpstore_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matthieu-m/storage/bumpstore"
	"github.com/matthieu-m/storage/internal/storetest"
	"github.com/matthieu-m/storage/store"
)

const blockAlign = 4096

func TestInlineConformance(t *testing.T) {
	cfg := storetest.Config{MaxAlign: blockAlign, RejectAlign: 2 * blockAlign}
	storetest.Run[uint32](t, cfg, func(t *testing.T) store.Store[uint32] {
		s, err := bumpstore.NewInline[uint32](1<<16, blockAlign)
		require.NoError(t, err)
		return s
	})
}

func TestSharedConformance(t *testing.T) {
	cfg := storetest.Config{MaxAlign: blockAlign, RejectAlign: 2 * blockAlign}
	storetest.Run[uint32](t, cfg, func(t *testing.T) store.Store[uint32] {
		b, err := bumpstore.NewBlock(1<<16, blockAlign)
		require.NoError(t, err)
		s, err := bumpstore.NewShared[uint32](b)
		require.NoError(t, err)
		return s
	})
}

func TestSmallHandles(t *testing.T) {
	_, err := bumpstore.NewInline[uint8](256, 8)
	require.ErrorIs(t, err, store.ErrAlloc)

	s, err := bumpstore.NewInline[uint8](255, 8)
	require.NoError(t, err)

	h, n, err := s.Allocate(store.MustLayout(255, 1))
	require.NoError(t, err)
	require.Equal(t, uint8(0), h)
	require.Equal(t, 255, n)

	_, _, err = s.Allocate(store.MustLayout(0, 1))
	require.NoError(t, err, "an empty block fits at the very end")

	_, _, err = s.Allocate(store.MustLayout(1, 1))
	require.ErrorIs(t, err, store.ErrAlloc)
}

func TestInvalidBlock(t *testing.T) {
	_, err := bumpstore.NewInline[uint32](64, 3)
	require.ErrorIs(t, err, store.ErrLayout)

	_, err = bumpstore.NewBlock(-1, 8)
	require.ErrorIs(t, err, store.ErrLayout)
}

func TestInlineExhaustion(t *testing.T) {
	s, err := bumpstore.NewInline[uint32](64, 8)
	require.NoError(t, err)

	layout := store.MustLayout(24, 8)
	a, _, err := s.Allocate(layout)
	require.NoError(t, err)
	b, _, err := s.Allocate(layout)
	require.NoError(t, err)
	require.Equal(t, uint32(0), a)
	require.Equal(t, uint32(24), b)

	_, _, err = s.Allocate(layout)
	require.ErrorIs(t, err, store.ErrAlloc)

	// Deallocation does not give anything back.
	s.Deallocate(b, layout)
	_, _, err = s.Allocate(layout)
	require.ErrorIs(t, err, store.ErrAlloc)

	s.Reset()
	require.Zero(t, s.Used())
	_, _, err = s.Allocate(layout)
	require.NoError(t, err)
}

func TestInlineGrow(t *testing.T) {
	s, err := bumpstore.NewInline[uint32](256, 16)
	require.NoError(t, err)
	var st store.Store[uint32] = s

	small, large := store.MustLayout(8, 8), store.MustLayout(32, 8)
	a, _, err := s.Allocate(small)
	require.NoError(t, err)
	copy(store.Bytes(st, a, 8), "last one")

	// The last block grows where it is.
	grown, n, err := s.Grow(a, small, large)
	require.NoError(t, err)
	require.Equal(t, a, grown)
	require.Equal(t, large.Size, n)
	require.Equal(t, 32, s.Used())

	b, _, err := s.Allocate(small)
	require.NoError(t, err)

	// Any other block is copied to the watermark.
	moved, _, err := s.Grow(grown, large, store.MustLayout(64, 8))
	require.NoError(t, err)
	require.Equal(t, uint32(40), moved)
	require.Equal(t, []byte("last one"), store.Bytes(st, moved, 8))
	require.Equal(t, 104, s.Used())

	// A stricter alignment than the block cannot be met.
	_, _, err = s.Grow(b, small, store.MustLayout(16, 32))
	require.ErrorIs(t, err, store.ErrAlloc)
}

func TestInlineShrink(t *testing.T) {
	s, err := bumpstore.NewInline[uint32](256, 16)
	require.NoError(t, err)

	_, _, err = s.Allocate(store.MustLayout(4, 4))
	require.NoError(t, err)
	large := store.MustLayout(32, 4)
	h, _, err := s.Allocate(large)
	require.NoError(t, err)
	require.Equal(t, uint32(4), h)

	kept, n, err := s.Shrink(h, large, store.MustLayout(8, 4))
	require.NoError(t, err)
	require.Equal(t, h, kept)
	require.Equal(t, large.Size, n)

	moved, _, err := s.Shrink(h, large, store.MustLayout(8, 16))
	require.NoError(t, err)
	require.Zero(t, int(moved)%16)
}

func TestDangling(t *testing.T) {
	s, err := bumpstore.NewInline[uint16](64, 64)
	require.NoError(t, err)

	h, err := s.Dangling(64)
	require.NoError(t, err)
	require.Zero(t, store.Addr[uint16](s, h)%64)

	_, err = s.Dangling(128)
	require.ErrorIs(t, err, store.ErrAlloc)
	_, err = s.Dangling(24)
	require.ErrorIs(t, err, store.ErrAlloc)
}

func TestSharedParts(t *testing.T) {
	blk, err := bumpstore.NewBlock(1024, 8)
	require.NoError(t, err)

	s, err := bumpstore.NewShared[uint16](blk)
	require.NoError(t, err)
	part, err := s.Share()
	require.NoError(t, err)
	require.True(t, s.IsSharingWith(part))
	require.Same(t, blk, part.Block())

	otherBlk, err := bumpstore.NewBlock(1024, 8)
	require.NoError(t, err)
	other, err := bumpstore.NewShared[uint16](otherBlk)
	require.NoError(t, err)
	require.False(t, s.IsSharingWith(other))
	require.NotEqual(t, blk.ID(), otherBlk.ID())

	layout := store.MustLayout(8, 8)
	h, _, err := s.Allocate(layout)
	require.NoError(t, err)
	copy(store.Bytes[uint16](s, h, 8), "via part")
	require.Equal(t, []byte("via part"), store.Bytes[uint16](part, h, 8))

	// Growth in place fails once another part moved the watermark.
	_, _, err = part.Allocate(layout)
	require.NoError(t, err)
	moved, _, err := s.Grow(h, layout, store.MustLayout(16, 8))
	require.NoError(t, err)
	require.NotEqual(t, h, moved)
	require.Equal(t, []byte("via part"), store.Bytes[uint16](part, moved, 8))

	_, err = bumpstore.NewShared[uint8](otherBlk)
	require.ErrorIs(t, err, store.ErrAlloc)
}

func TestSharedConcurrentAllocation(t *testing.T) {
	const workers, rounds, size = 8, 64, 16

	blk, err := bumpstore.NewBlock(workers*rounds*size, 8)
	require.NoError(t, err)

	var (
		mu   sync.Mutex
		seen = make(map[uint32]bool)
		wg   sync.WaitGroup
	)
	for range workers {
		s, err := bumpstore.NewShared[uint32](blk)
		require.NoError(t, err)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for range rounds {
				h, _, err := s.Allocate(store.MustLayout(size, 8))
				if err != nil {
					t.Error(err)
					return
				}
				mu.Lock()
				seen[h] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*rounds)
	require.Equal(t, blk.Size(), blk.Used())

	s, err := bumpstore.NewShared[uint32](blk)
	require.NoError(t, err)
	_, _, err = s.Allocate(store.MustLayout(1, 1))
	require.ErrorIs(t, err, store.ErrAlloc)

	blk.Reset()
	require.Zero(t, blk.Used())
}
