// Package native provides scope-bound ownership of raw OS resources.
package native

import (
	"unsafe"

	"github.com/Digni/winterm/internal/winapi"
)

// Guard owns exactly one native resource of type T and releases it at most
// once. A Guard holds either a valid resource or an invalid sentinel.
//
// Callers release with defer g.Release(). Reset lets one guard be reused
// across loop iterations without leaking the previous resource.
type Guard[T comparable] struct {
	raw     T
	release func(T) error
	invalid func(T) bool
}

// New wraps raw. release is called once for a valid resource; invalid
// reports sentinel values that must never be released.
func New[T comparable](raw T, release func(T) error, invalid func(T) bool) *Guard[T] {
	return &Guard[T]{raw: raw, release: release, invalid: invalid}
}

// NewHandle guards a kernel handle closed through sys.
func NewHandle(sys winapi.System, h winapi.Handle) *Guard[winapi.Handle] {
	return New(h, sys.CloseHandle, invalidHandle)
}

// NewMemory guards a block returned by sys.LocalAlloc.
func NewMemory(sys winapi.System, p unsafe.Pointer) *Guard[unsafe.Pointer] {
	return New(p, sys.LocalFree, func(p unsafe.Pointer) bool { return p == nil })
}

func invalidHandle(h winapi.Handle) bool {
	return h == 0 || h == winapi.InvalidHandle
}

// Raw returns the guarded value without transferring ownership.
func (g *Guard[T]) Raw() T {
	return g.raw
}

// Valid reports whether the guard currently owns a resource.
func (g *Guard[T]) Valid() bool {
	return !g.invalid(g.raw)
}

// Release frees the resource if one is held. Calling it again is a no-op.
// The guard drops the resource even if the release call fails, so a
// failing close is never retried against a value that may have been reused.
func (g *Guard[T]) Release() error {
	if !g.Valid() {
		return nil
	}
	raw := g.raw
	var zero T
	g.raw = zero
	return g.release(raw)
}

// Reset releases the current resource, then adopts raw.
func (g *Guard[T]) Reset(raw T) error {
	err := g.Release()
	g.raw = raw
	return err
}
