//go:build wasip1

package abi

import "unsafe"

// On wasm32 a Go pointer is an offset into linear memory.
func bindAddress(words []uint64) uint32 {
	return uint32(uintptr(unsafe.Pointer(&words[0])))
}

func unbindAddress(uint32) {}

func resolveAddress(ptr, n uint32) ([]byte, bool) {
	// WASM linear memory: uint32 offset -> pointer conversion is safe and necessary
	//nolint:gosec // G103: Valid unsafe.Pointer use for WASM linear memory access
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), n), true
}
