// Package heapstore adapts the Go heap to the store contract.
//
// Every block is a separate Go allocation, so blocks never move: the store is
// Multiple, Stable and Pinning. It is internally synchronized (Concurrent)
// and supports Sharing: every part created with Share draws from the same
// block table and accounting.
//
// # Usage
//
//	s := heapstore.New(heapstore.WithLimit(1 << 20))
//	h, n, err := s.Allocate(store.MustLayout(64, 8))
//	...
//	s.Deallocate(h, store.MustLayout(64, 8))
//
// A limit turns the store into a bounded one: requests that would push the
// bytes in use past it fail with store.ErrAlloc.
package heapstore
