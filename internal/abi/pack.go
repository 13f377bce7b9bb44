package abi

import "fmt"

// PtrHighBits is the shift of the pointer half in a packed pair.
const PtrHighBits = 32

// PackPtrLen packs a pointer and length into a single uint64.
// Pointer is stored in the high 32 bits, length in the low 32 bits.
// Panics if ptr is 0 and length > 0, indicating an invalid state.
func PackPtrLen(ptr, length uint32) uint64 {
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: invalid pack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return Pack(ptr, length)
}

// UnpackPtrLen unpacks a uint64 into its original pointer and length.
// Panics if ptr is 0 and length > 0, indicating an invalid packed value.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr, length = Unpack(packed)
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: invalid unpack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return ptr, length
}

// Pack joins two 32-bit results into the single value a wasm export can
// return. It is used for pairs that are not (ptr, len), such as
// (handle, eventPtr).
func Pack(hi, lo uint32) uint64 {
	return uint64(hi)<<PtrHighBits | uint64(lo)
}

// Unpack splits a value produced by Pack.
func Unpack(packed uint64) (hi, lo uint32) {
	return uint32(packed >> PtrHighBits), uint32(packed)
}
