package store

import "errors"

var (
	// ErrAlloc reports that an allocation request could not be satisfied:
	// memory is exhausted or the layout constraints cannot be met. Callers
	// must not rely on any finer distinction.
	ErrAlloc = errors.New("store: allocation request could not be satisfied")

	// ErrUnsupported reports that a store lacks a capability a consumer
	// requires.
	ErrUnsupported = errors.New("store: missing required capability")

	// ErrSharing reports that a store part could not be shared.
	ErrSharing = errors.New("store: cannot share")

	// ErrLayout reports an invalid size or alignment.
	ErrLayout = errors.New("store: invalid layout")
)
