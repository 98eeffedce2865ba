package singlestore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matthieu-m/storage/internal/storetest"
	"github.com/matthieu-m/storage/singlestore"
	"github.com/matthieu-m/storage/store"
)

func newStore(t *testing.T, size, align int) *singlestore.Store {
	s, err := singlestore.New(size, align)
	require.NoError(t, err)
	return s
}

func TestConformance(t *testing.T) {
	cfg := storetest.Config{MaxAlign: 4096, RejectAlign: 8192}
	storetest.Run[singlestore.Handle](t, cfg, func(t *testing.T) store.Store[singlestore.Handle] {
		return newStore(t, 64, 4096)
	})
}

func TestFits(t *testing.T) {
	s := newStore(t, 32, 16)
	require.False(t, s.Capabilities().Has(store.Multiple))

	_, n, err := s.Allocate(store.MustLayout(8, 4))
	require.NoError(t, err)
	require.Equal(t, 32, n, "the whole block is usable")

	_, _, err = s.Allocate(store.MustLayout(33, 1))
	require.ErrorIs(t, err, store.ErrAlloc)

	_, _, err = s.Allocate(store.MustLayout(8, 32))
	require.ErrorIs(t, err, store.ErrAlloc)

	h, _, err := s.Allocate(store.MustLayout(32, 16))
	require.NoError(t, err)
	_, _, err = s.Grow(h, store.MustLayout(32, 16), store.MustLayout(64, 16))
	require.ErrorIs(t, err, store.ErrAlloc)
}

func TestZeroed(t *testing.T) {
	s := newStore(t, 16, 8)
	small := store.MustLayout(4, 4)

	h, _, err := s.Allocate(small)
	require.NoError(t, err)
	b := store.Bytes[singlestore.Handle](s, h, 16)
	copy(b, "0123456789abcdef")

	h, n, err := s.GrowZeroed(h, small, store.MustLayout(8, 4))
	require.NoError(t, err)
	require.Equal(t, 16, n)
	b = store.Bytes[singlestore.Handle](s, h, n)
	require.Equal(t, []byte("0123"), b[:4])
	require.Equal(t, make([]byte, 12), b[4:])

	copy(b, "fedcba9876543210")
	h, n, err = s.AllocateZeroed(small)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 16), store.Bytes[singlestore.Handle](s, h, n))
}

func TestEmptyBlock(t *testing.T) {
	s := newStore(t, 0, 8)

	_, n, err := s.Allocate(store.MustLayout(0, 8))
	require.NoError(t, err)
	require.Zero(t, n)

	_, _, err = s.Allocate(store.MustLayout(1, 1))
	require.ErrorIs(t, err, store.ErrAlloc)
}

func TestInvalid(t *testing.T) {
	_, err := singlestore.New(8, 5)
	require.ErrorIs(t, err, store.ErrLayout)
}
