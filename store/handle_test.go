package store_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matthieu-m/storage/store"
)

func TestHandleCodec(t *testing.T) {
	b := make([]byte, 8)

	store.PutHandle(b, uint8(0xAB))
	require.Equal(t, uint8(0xAB), store.ReadHandle[uint8](b))

	store.PutHandle(b, uint16(0xBEEF))
	require.Equal(t, []byte{0xEF, 0xBE}, b[:2])
	require.Equal(t, uint16(0xBEEF), store.ReadHandle[uint16](b))

	store.PutHandle(b, uint32(0xDEADBEEF))
	require.Equal(t, uint32(0xDEADBEEF), store.ReadHandle[uint32](b))

	store.PutHandle(b, uint64(1<<63|42))
	require.Equal(t, uint64(1<<63|42), store.ReadHandle[uint64](b))
}

func TestHandleLayout(t *testing.T) {
	require.Equal(t, store.Layout{Size: 1, Align: 1}, store.HandleLayout[uint8]())
	require.Equal(t, store.Layout{Size: 4, Align: 4}, store.HandleLayout[uint32]())
	require.Equal(t, 8, store.HandleSize[uint64]())
}

func TestHandleFromOffset(t *testing.T) {
	h, ok := store.HandleFromOffset[uint8](255)
	require.True(t, ok)
	require.Equal(t, uint8(255), h)

	_, ok = store.HandleFromOffset[uint8](256)
	require.False(t, ok)

	_, ok = store.HandleFromOffset[uint16](-1)
	require.False(t, ok)

	h32, ok := store.HandleFromOffset[uint32](1 << 20)
	require.True(t, ok)
	require.Equal(t, uint32(1<<20), h32)
}

func TestCapabilities(t *testing.T) {
	c := store.Multiple | store.Stable
	require.True(t, c.Has(store.Multiple))
	require.False(t, c.Has(store.Multiple|store.Concurrent))
	require.True(t, c.Valid())
	require.False(t, store.Pinning.Valid())
	require.Equal(t, "multiple|stable", c.String())
	require.Equal(t, "none", store.Capabilities(0).String())
}
