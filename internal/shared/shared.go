// Package shared provides a reference-counted ownership cell.
//
// A dependent object that needs another object to stay alive holds its own
// clone of the cell instead of a borrowed reference, so the dependency can
// never be destroyed underneath it.
package shared

// Shared is one handle to a reference-counted value. Each handle is released
// at most once; the value's release function runs when the last handle goes.
//
// Counts are plain ints: handles are used from a single thread.
type Shared[T any] struct {
	cell     *cell[T]
	released bool
}

type cell[T any] struct {
	value   T
	release func(T)
	count   int
}

// New wraps v with a count of one. release may be nil.
func New[T any](v T, release func(T)) *Shared[T] {
	return &Shared[T]{cell: &cell[T]{value: v, release: release, count: 1}}
}

// Clone returns a new, equally privileged handle.
func (s *Shared[T]) Clone() *Shared[T] {
	if s.released {
		panic("shared: clone of released handle")
	}
	s.cell.count++
	return &Shared[T]{cell: s.cell}
}

// Get returns the shared value. It panics on a released handle.
func (s *Shared[T]) Get() T {
	if s.released {
		panic("shared: use of released handle")
	}
	return s.cell.value
}

// Release drops this handle. It reports whether the value itself was
// released. A second Release of the same handle is a no-op.
func (s *Shared[T]) Release() bool {
	if s == nil || s.released {
		return false
	}
	s.released = true
	c := s.cell
	c.count--
	if c.count > 0 {
		return false
	}
	if c.release != nil {
		c.release(c.value)
	}
	var zero T
	c.value = zero
	return true
}

// Count returns the number of live handles.
func (s *Shared[T]) Count() int {
	return s.cell.count
}

// Released reports whether this handle has been released.
func (s *Shared[T]) Released() bool {
	return s.released
}
