// Package host runs the blackbox guest module and drives its export surface.
//
// It abstracts the underlying WASM engine (wazero), manages the guest's
// lifecycle, and handles the low-level ABI interactions: uploading input
// through allocate, decoding fixed-layout records out of linear memory,
// freeing every transfer-out value with the matching free export, and
// turning failed exports into typed errors through error_last.
//
// The same clients run against an in-process guest (NewInProcess), which
// lets the whole boundary be exercised without compiling a module.
package host
