// Package handles maps opaque 32-bit handles to native objects.
//
// A handle carries its table's tag in the high byte and a sequence number
// below it. Sequence numbers are never reused, so a stale handle cannot
// alias a newer object, and a handle from one table is rejected by another.
// Zero is never a valid handle.
package handles

import (
	"fmt"
	"sync"

	"github.com/blackbox-log/blackbox-log-go/domain/errors"
)

// Tag identifies a handle table.
type Tag uint8

const (
	TagFile    Tag = 0x01
	TagHeaders Tag = 0x02
	TagParser  Tag = 0x03
	TagBuilder Tag = 0x04
)

func (t Tag) String() string {
	switch t {
	case TagFile:
		return "file"
	case TagHeaders:
		return "headers"
	case TagParser:
		return "parser"
	case TagBuilder:
		return "builder"
	default:
		return fmt.Sprintf("Tag(0x%02x)", uint8(t))
	}
}

const (
	tagShift = 24
	seqMask  = 1<<tagShift - 1
)

// TagOf returns the table tag encoded in h.
func TagOf(h uint32) Tag { return Tag(h >> tagShift) }

// Table holds the live objects of one handle type.
type Table[T any] struct {
	mu    sync.Mutex
	items map[uint32]T
	tag   Tag
	next  uint32
}

// NewTable returns an empty table for tag.
func NewTable[T any](tag Tag) *Table[T] {
	return &Table[T]{tag: tag, items: make(map[uint32]T)}
}

// Tag returns the table's tag.
func (t *Table[T]) Tag() Tag { return t.tag }

// Insert stores v under a fresh handle.
func (t *Table[T]) Insert(v T) (uint32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.next == seqMask {
		return 0, fmt.Errorf("%s handles exhausted", t.tag)
	}
	t.next++
	h := uint32(t.tag)<<tagShift | t.next
	t.items[h] = v
	return h, nil
}

// Get returns the object behind h.
func (t *Table[T]) Get(h uint32) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.items[h]
	if !ok {
		var zero T
		return zero, &errors.HandleError{Kind: t.tag.String(), Handle: h}
	}
	return v, nil
}

// Remove deletes h and returns its object. Removing twice fails the same
// way as an unknown handle.
func (t *Table[T]) Remove(h uint32) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.items[h]
	if !ok {
		var zero T
		return zero, &errors.HandleError{Kind: t.tag.String(), Handle: h}
	}
	delete(t.items, h)
	return v, nil
}

// Len returns the number of live handles.
func (t *Table[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

// Drain removes and returns every live object.
func (t *Table[T]) Drain() []T {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]T, 0, len(t.items))
	for h, v := range t.items {
		out = append(out, v)
		delete(t.items, h)
	}
	return out
}
