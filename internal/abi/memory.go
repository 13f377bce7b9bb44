// Package abi manages guest linear memory shared with the host.
//
// Every allocation handed across the boundary is pinned by the memory manager
// under its address until it is freed explicitly, either by the native owner
// (Buffer.Free) or by the host through one of the typed free exports
// (FreeTracked). Nothing is ever freed implicitly.
package abi

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/blackbox-log/blackbox-log-go/domain/errors"
)

// DefaultMaxTotalAllocations is the default ceiling on pinned bytes.
const DefaultMaxTotalAllocations = 100 * 1024 * 1024 // 100 MB

// Kind tags the element type of a pinned allocation. The host must free an
// allocation through the export matching its kind.
type Kind uint8

const (
	KindBytes Kind = iota + 1
	KindU32
	KindStr
	KindUnknownHeader
	KindFieldDef
	KindRecord
	KindEvent
	// KindInterned is string data owned by the native side. No free
	// export accepts it.
	KindInterned
)

var kindNames = [...]string{
	KindBytes:         "bytes",
	KindU32:           "u32",
	KindStr:           "str",
	KindUnknownHeader: "unknownHeader",
	KindFieldDef:      "fieldDef",
	KindRecord:        "record",
	KindEvent:         "event",
	KindInterned:      "interned",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// memoryManager keeps a reference to every pinned buffer so the Go GC cannot
// collect memory the host still addresses.
var memoryManager = struct {
	sync.Mutex
	ptrs           map[uint32]*Buffer
	totalAllocated int
	limit          int
}{
	ptrs:  make(map[uint32]*Buffer),
	limit: DefaultMaxTotalAllocations,
}

// Option configures the memory manager.
type Option func(*config)

type config struct {
	maxTotalAllocations int
}

// WithMaxTotalAllocations sets the ceiling on pinned bytes. Non-positive
// values are ignored.
func WithMaxTotalAllocations(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxTotalAllocations = n
		}
	}
}

// Configure applies options to the memory manager.
func Configure(opts ...Option) {
	memoryManager.Lock()
	defer memoryManager.Unlock()

	c := config{maxTotalAllocations: memoryManager.limit}
	for _, opt := range opts {
		opt(&c)
	}
	memoryManager.limit = c.maxTotalAllocations
}

// Buffer is an owning, zero-initialised, 8-byte aligned allocation in linear
// memory. It is freed exactly once; later calls to Free are no-ops.
type Buffer struct {
	words []uint64
	data  []byte
	kind  Kind
	ptr   uint32
	freed bool
}

// ReservedBytes is the headroom past the limit that only AllocReserved may
// use, so a last error can still be handed out once the limit is reached.
const ReservedBytes = 64 * 1024

// Alloc pins n zero bytes tagged with kind. A zero-length buffer still gets a
// distinct non-null address.
func Alloc(kind Kind, n int) (*Buffer, error) {
	return alloc(kind, n, 0)
}

// AllocReserved is Alloc with ReservedBytes of extra headroom. It is meant
// for error reporting only.
func AllocReserved(kind Kind, n int) (*Buffer, error) {
	return alloc(kind, n, ReservedBytes)
}

func alloc(kind Kind, n, headroom int) (*Buffer, error) {
	memoryManager.Lock()
	defer memoryManager.Unlock()

	if n < 0 || memoryManager.totalAllocated+n > memoryManager.limit+headroom {
		return nil, &errors.AllocError{
			Requested: n,
			InUse:     memoryManager.totalAllocated,
			Limit:     memoryManager.limit,
		}
	}

	words := make([]uint64, max(1, (n+7)/8))
	b := &Buffer{
		words: words,
		//nolint:gosec // G103: reinterpreting the pinned words as bytes
		data: unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), n),
		kind: kind,
	}
	b.ptr = bindAddress(words)

	memoryManager.ptrs[b.ptr] = b // PIN THE MEMORY
	memoryManager.totalAllocated += n
	return b, nil
}

// Adopt takes native ownership of a bytes buffer the host obtained through
// Allocate and filled with n bytes. The allocation is retagged with kind and
// its length narrowed to n.
func Adopt(kind Kind, ptr, n uint32) (*Buffer, error) {
	memoryManager.Lock()
	defer memoryManager.Unlock()

	b, ok := memoryManager.ptrs[ptr]
	switch {
	case !ok:
		return nil, &errors.MisuseError{Op: "adopt", Reason: fmt.Sprintf("pointer 0x%08x is not an allocation", ptr)}
	case b.kind != KindBytes:
		return nil, &errors.MisuseError{Op: "adopt", Reason: fmt.Sprintf("pointer 0x%08x holds %s, not bytes", ptr, b.kind)}
	case int(n) > len(b.data):
		return nil, &errors.MisuseError{Op: "adopt", Reason: fmt.Sprintf("length %d exceeds allocation of %d bytes", n, len(b.data))}
	}

	memoryManager.totalAllocated -= len(b.data) - int(n)
	b.data = b.data[:n]
	b.kind = kind
	return b, nil
}

// Ptr returns the buffer's address in linear memory.
func (b *Buffer) Ptr() uint32 { return b.ptr }

// Len returns the buffer's length in bytes.
func (b *Buffer) Len() int { return len(b.data) }

// Kind returns the element kind the buffer was tagged with.
func (b *Buffer) Kind() Kind { return b.kind }

// Bytes returns the live contents. The slice is invalid after Free.
func (b *Buffer) Bytes() []byte { return b.data }

// Pack returns the buffer's (ptr, byte length) pair.
func (b *Buffer) Pack() uint64 { return PackPtrLen(b.ptr, uint32(len(b.data))) }

// Free unpins the buffer. It reports whether this call released it.
func (b *Buffer) Free() bool {
	if b == nil {
		return false
	}
	memoryManager.Lock()
	defer memoryManager.Unlock()
	return release(b)
}

func release(b *Buffer) bool {
	if b.freed {
		return false
	}
	b.freed = true
	if memoryManager.ptrs[b.ptr] == b {
		delete(memoryManager.ptrs, b.ptr)
		unbindAddress(b.ptr)
		memoryManager.totalAllocated -= len(b.data)
		if memoryManager.totalAllocated < 0 {
			memoryManager.totalAllocated = 0
		}
	}
	b.words, b.data = nil, nil
	return true
}

// Allocate pins size bytes for the host to fill. A zero size yields 0.
func Allocate(size uint32) (uint32, error) {
	if size == 0 {
		return 0, nil
	}
	b, err := Alloc(KindBytes, int(size))
	if err != nil {
		return 0, err
	}
	return b.ptr, nil
}

// Deallocate frees a bytes buffer obtained through Allocate. Untracked
// pointers are ignored. The size argument is not trusted for accounting.
func Deallocate(ptr, _ uint32) bool {
	return FreeTracked(ptr, KindBytes)
}

// FreeTracked frees the allocation at ptr if its kind is one of kinds. It
// reports false, and leaves the allocation intact, on an unknown pointer
// or a kind mismatch.
func FreeTracked(ptr uint32, kinds ...Kind) bool {
	memoryManager.Lock()
	defer memoryManager.Unlock()

	b, ok := memoryManager.ptrs[ptr]
	if !ok {
		return false
	}
	for _, k := range kinds {
		if b.kind == k {
			return release(b)
		}
	}
	return false
}

// KindOf returns the kind of the allocation at ptr.
func KindOf(ptr uint32) (Kind, bool) {
	memoryManager.Lock()
	defer memoryManager.Unlock()

	b, ok := memoryManager.ptrs[ptr]
	if !ok {
		return 0, false
	}
	return b.kind, true
}

// FreeAllTracked frees every pinned allocation. Used on module shutdown and
// by tests.
func FreeAllTracked() {
	memoryManager.Lock()
	defer memoryManager.Unlock()

	for _, b := range memoryManager.ptrs {
		release(b)
	}
	memoryManager.totalAllocated = 0
}

// Stats returns the number of pinned allocations and their total size.
func Stats() (allocations, bytes int) {
	memoryManager.Lock()
	defer memoryManager.Unlock()
	return len(memoryManager.ptrs), memoryManager.totalAllocated
}

// View returns the n bytes at ptr without copying. The slice aliases linear
// memory and is only valid while the owning allocation is.
func View(ptr, n uint32) ([]byte, bool) {
	if ptr == 0 {
		return nil, n == 0
	}
	memoryManager.Lock()
	defer memoryManager.Unlock()
	return resolveAddress(ptr, n)
}

// Read copies n bytes out of linear memory.
func Read(ptr, n uint32) ([]byte, bool) {
	src, ok := View(ptr, n)
	if !ok {
		return nil, false
	}
	out := make([]byte, len(src))
	copy(out, src)
	return out, true
}

// Write copies data into linear memory at ptr.
func Write(ptr uint32, data []byte) bool {
	dst, ok := View(ptr, uint32(len(data)))
	if !ok {
		return false
	}
	copy(dst, data)
	return true
}
