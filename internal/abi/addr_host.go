//go:build !wasip1

package abi

import (
	"sort"
	"unsafe"
)

// Outside wasm there is no linear memory, so pinned buffers are laid out in
// a simulated 32-bit address space. Addresses are never reused and regions
// are separated by a guard word.
const simulatedBase = 0x10000

var space = struct {
	next    uint32
	bases   []uint32 // sorted
	regions map[uint32][]byte
}{
	next:    simulatedBase,
	regions: make(map[uint32][]byte),
}

func bindAddress(words []uint64) uint32 {
	span := uint32(len(words) * 8)
	base := space.next
	space.next += span + 8
	//nolint:gosec // G103: aliasing the pinned words as bytes
	space.regions[base] = unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), span)
	space.bases = append(space.bases, base)
	return base
}

func unbindAddress(ptr uint32) {
	delete(space.regions, ptr)
	i := sort.Search(len(space.bases), func(i int) bool { return space.bases[i] >= ptr })
	if i < len(space.bases) && space.bases[i] == ptr {
		space.bases = append(space.bases[:i], space.bases[i+1:]...)
	}
}

func resolveAddress(ptr, n uint32) ([]byte, bool) {
	i := sort.Search(len(space.bases), func(i int) bool { return space.bases[i] > ptr }) - 1
	if i < 0 {
		return nil, false
	}
	base := space.bases[i]
	region := space.regions[base]
	off := uint64(ptr - base)
	if off+uint64(n) > uint64(len(region)) {
		return nil, false
	}
	return region[off : off+uint64(n)], true
}
