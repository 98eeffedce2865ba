package store_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matthieu-m/storage/heapstore"
	"github.com/matthieu-m/storage/store"
)

// plain hides the optional methods of the wrapped store, so that package
// functions take their fallback paths.
type plain struct {
	store.Store[heapstore.Handle]
	caps store.Capabilities
}

func (p plain) Capabilities() store.Capabilities {
	return p.caps
}

func newPlain(caps store.Capabilities) plain {
	return plain{Store: heapstore.New(), caps: caps}
}

func TestGrowFallback(t *testing.T) {
	s := newPlain(store.Multiple)
	small, large := store.MustLayout(8, 8), store.MustLayout(64, 8)

	h, _, err := s.Allocate(small)
	require.NoError(t, err)
	copy(store.Bytes[heapstore.Handle](s, h, 8), "abcdefgh")

	other, _, err := s.Allocate(small)
	require.NoError(t, err)
	copy(store.Bytes[heapstore.Handle](s, other, 8), "ijklmnop")

	nh, n, err := store.Grow[heapstore.Handle](s, h, small, large)
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, large.Size)
	require.NotEqual(t, h, nh)
	require.Equal(t, []byte("abcdefgh"), store.Bytes[heapstore.Handle](s, nh, 8))
	require.Equal(t, []byte("ijklmnop"), store.Bytes[heapstore.Handle](s, other, 8))
}

func TestShrinkFallback(t *testing.T) {
	s := newPlain(store.Multiple)
	large, small := store.MustLayout(32, 8), store.MustLayout(4, 4)

	h, _, err := s.Allocate(large)
	require.NoError(t, err)
	copy(store.Bytes[heapstore.Handle](s, h, 4), "wxyz")

	h, _, err = store.Shrink[heapstore.Handle](s, h, large, small)
	require.NoError(t, err)
	require.Equal(t, []byte("wxyz"), store.Bytes[heapstore.Handle](s, h, 4))
}

func TestFallbackNeedsMultiple(t *testing.T) {
	s := newPlain(store.Stable)
	small := store.MustLayout(8, 8)

	h, _, err := s.Allocate(small)
	require.NoError(t, err)

	_, _, err = store.Grow[heapstore.Handle](s, h, small, store.MustLayout(16, 8))
	require.ErrorIs(t, err, store.ErrAlloc)

	_, _, err = store.Shrink[heapstore.Handle](s, h, small, store.MustLayout(4, 4))
	require.ErrorIs(t, err, store.ErrAlloc)
}

func TestZeroedFallbacks(t *testing.T) {
	s := newPlain(store.Multiple)
	small, large := store.MustLayout(8, 8), store.MustLayout(32, 8)

	h, n, err := store.AllocateZeroed[heapstore.Handle](s, small)
	require.NoError(t, err)
	require.Equal(t, make([]byte, n), store.Bytes[heapstore.Handle](s, h, n))

	copy(store.Bytes[heapstore.Handle](s, h, 8), "01234567")

	h, n, err = store.GrowZeroed[heapstore.Handle](s, h, small, large)
	require.NoError(t, err)
	b := store.Bytes[heapstore.Handle](s, h, n)
	require.Equal(t, []byte("01234567"), b[:8])
	require.Equal(t, make([]byte, n-8), b[8:])
}

func TestRequire(t *testing.T) {
	s := newPlain(store.Multiple | store.Stable)
	require.NoError(t, store.Require[heapstore.Handle](s, store.Multiple))
	require.NoError(t, store.Require[heapstore.Handle](s, 0))

	err := store.Require[heapstore.Handle](s, store.Multiple|store.Concurrent)
	require.ErrorIs(t, err, store.ErrUnsupported)
	require.Contains(t, err.Error(), "concurrent")
}

func TestBytesEmpty(t *testing.T) {
	s := heapstore.New()
	h, err := s.Dangling(8)
	require.NoError(t, err)
	require.Nil(t, store.Bytes[heapstore.Handle](s, h, 0))
}
