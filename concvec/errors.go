package concvec

import (
	"errors"
	"fmt"
)

// ErrFull reports a push into a vector already holding capacity elements.
var ErrFull = errors.New("concvec: vector is full")

// RejectedError hands back a value Push could not store. It unwraps to
// ErrFull, or to store.ErrAlloc when the payload block could not be
// allocated.
type RejectedError[T any] struct {
	Value T
	Err   error
}

func (e *RejectedError[T]) Error() string {
	return fmt.Sprintf("concvec: push rejected: %v", e.Err)
}

func (e *RejectedError[T]) Unwrap() error {
	return e.Err
}
