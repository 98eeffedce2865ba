package heapstore_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matthieu-m/storage/heapstore"
	"github.com/matthieu-m/storage/internal/storetest"
	"github.com/matthieu-m/storage/store"
)

func TestConformance(t *testing.T) {
	cfg := storetest.Config{MaxAlign: heapstore.MaxAlign, RejectAlign: 2 * heapstore.MaxAlign}
	storetest.Run[heapstore.Handle](t, cfg, func(t *testing.T) store.Store[heapstore.Handle] {
		return heapstore.New()
	})
}

func TestLimit(t *testing.T) {
	s := heapstore.New(heapstore.WithLimit(64))
	layout := store.MustLayout(48, 8)

	h, _, err := s.Allocate(layout)
	require.NoError(t, err)

	_, _, err = s.Allocate(layout)
	require.ErrorIs(t, err, store.ErrAlloc)

	_, _, err = s.Grow(h, layout, store.MustLayout(128, 8))
	require.ErrorIs(t, err, store.ErrAlloc)

	s.Deallocate(h, layout)
	h, _, err = s.Allocate(layout)
	require.NoError(t, err)

	stats := s.Stats()
	require.Equal(t, uint64(2), stats.Allocations)
	require.Equal(t, uint64(1), stats.Deallocations)
	require.Equal(t, uint64(2), stats.Failures)
	require.Equal(t, 1, stats.LiveBlocks)
	require.Equal(t, 48, stats.BytesInUse)
	require.Equal(t, 48, stats.PeakBytes)
	require.NoError(t, s.Validate())
}

func TestGrowInPlace(t *testing.T) {
	s := heapstore.New()
	small := store.MustLayout(1, 1)

	h, n, err := s.Allocate(small)
	require.NoError(t, err)

	// A byte-aligned block has no slack, growing within the usable size keeps
	// the handle.
	grown, m, err := s.Grow(h, small, store.MustLayout(n, 1))
	require.NoError(t, err)
	require.Equal(t, h, grown)
	require.Equal(t, n, m)

	moved, _, err := s.Grow(grown, store.MustLayout(n, 1), store.MustLayout(n+64, 1))
	require.NoError(t, err)
	require.NotEqual(t, h, moved)
	require.NoError(t, s.Validate())
}

func TestShrinkRealigns(t *testing.T) {
	s := heapstore.New()
	large := store.MustLayout(64, 1)

	h, _, err := s.Allocate(large)
	require.NoError(t, err)
	copy(store.Bytes(store.Store[heapstore.Handle](s), h, 4), "keep")

	h, _, err = s.Shrink(h, large, store.MustLayout(4, heapstore.MaxAlign))
	require.NoError(t, err)
	require.Zero(t, store.Addr(store.Store[heapstore.Handle](s), h)%heapstore.MaxAlign)
	require.Equal(t, []byte("keep"), store.Bytes(store.Store[heapstore.Handle](s), h, 4))
}

func TestSharing(t *testing.T) {
	s := heapstore.New()
	part, err := s.Share()
	require.NoError(t, err)
	require.True(t, s.IsSharingWith(part))
	require.True(t, part.IsSharingWith(s))
	require.Equal(t, s.ID(), part.ID())

	other := heapstore.New()
	require.False(t, s.IsSharingWith(other))
	require.False(t, s.IsSharingWith(nil))

	layout := store.MustLayout(16, 8)
	h, _, err := s.Allocate(layout)
	require.NoError(t, err)
	copy(store.Bytes(store.Store[heapstore.Handle](s), h, 16), "shared by parts!")

	require.Equal(t, []byte("shared by parts!"), store.Bytes(store.Store[heapstore.Handle](part), h, 16))
	part.Deallocate(h, layout)
	require.Zero(t, s.Stats().LiveBlocks)
}

func TestFreedHandlesAreReused(t *testing.T) {
	s := heapstore.New()
	layout := store.MustLayout(8, 8)

	a, _, err := s.Allocate(layout)
	require.NoError(t, err)
	s.Deallocate(a, layout)

	b, _, err := s.Allocate(layout)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.NoError(t, s.Validate())
}

func TestConcurrentParts(t *testing.T) {
	s := heapstore.New()
	layout := store.MustLayout(32, 8)

	const workers, rounds = 8, 200
	var wg sync.WaitGroup
	for w := range workers {
		part, err := s.Share()
		require.NoError(t, err)

		wg.Add(1)
		go func() {
			defer wg.Done()
			var st store.Store[heapstore.Handle] = part
			for i := range rounds {
				h, _, err := part.Allocate(layout)
				if err != nil {
					t.Error(err)
					return
				}
				b := store.Bytes(st, h, layout.Size)
				for j := range b {
					b[j] = byte(w + i)
				}
				for j := range b {
					if b[j] != byte(w+i) {
						t.Errorf("worker %d round %d: byte %d clobbered", w, i, j)
						return
					}
				}
				if i%2 == 0 {
					part.Deallocate(h, layout)
				}
			}
		}()
	}
	wg.Wait()

	require.NoError(t, s.Validate())
	require.Equal(t, workers*rounds/2, s.Stats().LiveBlocks)
}
