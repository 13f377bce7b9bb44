package host

import (
	"context"
	"fmt"

	"github.com/blackbox-log/blackbox-log-go/infrastructure/wasm"
	"github.com/blackbox-log/blackbox-log-go/internal/abi"
)

// Guest is the raw surface a client drives: export calls plus access to
// linear memory.
type Guest interface {
	Call(ctx context.Context, name string, params ...uint64) (uint64, error)
	Read(ctx context.Context, ptr, n uint32) ([]byte, error)
	Write(ctx context.Context, ptr uint32, data []byte) error
}

var (
	_ Guest = (*Instance)(nil)
	_ Guest = (*InProcess)(nil)
)

// InProcess is a Guest backed by an export table of this process.
type InProcess struct {
	exports *wasm.Exports
}

// NewInProcess wraps an export table.
func NewInProcess(exports *wasm.Exports) *InProcess {
	return &InProcess{exports: exports}
}

// Call invokes an export by name.
func (g *InProcess) Call(_ context.Context, name string, params ...uint64) (uint64, error) {
	return g.exports.Call(name, params...)
}

// Read copies n bytes out of the simulated linear memory.
func (g *InProcess) Read(_ context.Context, ptr, n uint32) ([]byte, error) {
	data, ok := abi.Read(ptr, n)
	if !ok {
		return nil, fmt.Errorf("read of %d bytes at 0x%08x is out of bounds", n, ptr)
	}
	return data, nil
}

// Write copies data into the simulated linear memory.
func (g *InProcess) Write(_ context.Context, ptr uint32, data []byte) error {
	if !abi.Write(ptr, data) {
		return fmt.Errorf("write of %d bytes at 0x%08x is out of bounds", len(data), ptr)
	}
	return nil
}
