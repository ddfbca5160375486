// Package vector provides a fixed-length, bounds-checked container
// (C12), the Go counterpart of original_source/CppAD/CppAD_vector.h:
// a thin wrapper the rest of the module uses in place of a bare Go
// slice wherever out-of-range access should panic with an ad.UsageError
// rather than the runtime's own index-out-of-range panic, so a host
// embedding the engine sees one consistent error taxonomy.
package vector

import (
	"fmt"

	"github.com/dtolpin/tapead/ad"
)

// Vector is a fixed-length sequence of T, bounds-checked against
// ad.UsageError instead of a bare runtime panic.
type Vector[T any] struct {
	data []T
}

// New returns a Vector of length n, each entry zero-valued.
func New[T any](n int) Vector[T] {
	return Vector[T]{data: make([]T, n)}
}

// Of wraps an existing slice without copying it.
func Of[T any](data []T) Vector[T] {
	return Vector[T]{data: data}
}

// Len returns the number of entries.
func (v Vector[T]) Len() int { return len(v.data) }

func (v Vector[T]) checkIndex(i int) {
	if i < 0 || i >= len(v.data) {
		panic(&ad.UsageError{Msg: fmt.Sprintf("vector: index %d out of range [0,%d)", i, len(v.data))})
	}
}

// At returns the entry at index i.
func (v Vector[T]) At(i int) T {
	v.checkIndex(i)
	return v.data[i]
}

// Set assigns value to index i.
func (v Vector[T]) Set(i int, value T) {
	v.checkIndex(i)
	v.data[i] = value
}

// Slice returns the underlying slice, for interop with code that
// wants to range over it directly.
func (v Vector[T]) Slice() []T { return v.data }
