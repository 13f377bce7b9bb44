package abi

import (
	stdErrors "errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackbox-log/blackbox-log-go/domain/errors"
)

// resetMemoryManager clears all tracked allocations for test isolation.
func resetMemoryManager() {
	FreeAllTracked()
}

func TestPackPtrLen(t *testing.T) {
	tests := []struct {
		name   string
		ptr    uint32
		length uint32
		want   uint64
	}{
		{
			name:   "typical values",
			ptr:    0x12345678,
			length: 0xABCDEF00,
			want:   (uint64(0x12345678) << PtrHighBits) | uint64(0xABCDEF00),
		},
		{
			name:   "zero pointer zero length",
			ptr:    0,
			length: 0,
			want:   0,
		},
		{
			name:   "max pointer",
			ptr:    0xFFFFFFFF,
			length: 1,
			want:   (uint64(0xFFFFFFFF) << PtrHighBits) | 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed := PackPtrLen(tt.ptr, tt.length)
			assert.Equal(t, tt.want, packed, "packed value mismatch")

			gotPtr, gotLen := UnpackPtrLen(packed)
			assert.Equal(t, tt.ptr, gotPtr, "unpacked pointer mismatch")
			assert.Equal(t, tt.length, gotLen, "unpacked length mismatch")
		})
	}
}

func TestPackPtrLen_PanicsOnNullPointerWithLength(t *testing.T) {
	assert.Panics(t, func() {
		PackPtrLen(0, 100)
	}, "expected panic for null pointer with non-zero length")
}

func TestUnpackPtrLen_PanicsOnInvalidPacked(t *testing.T) {
	assert.Panics(t, func() {
		// Invalid packed: ptr=0, len=1
		UnpackPtrLen(uint64(1))
	}, "expected panic for invalid packed value")
}

func TestPack_AllowsZeroHigh(t *testing.T) {
	hi, lo := Unpack(Pack(0, 7))
	assert.Zero(t, hi)
	assert.Equal(t, uint32(7), lo)
}

func TestAllocateDeallocate(t *testing.T) {
	resetMemoryManager()

	size := uint32(1024)
	ptr, err := Allocate(size)
	require.NoError(t, err)
	require.NotZero(t, ptr, "allocate returned 0")

	allocCount, totalBytes := Stats()
	assert.Equal(t, 1, allocCount, "expected 1 tracked allocation")
	assert.Equal(t, int(size), totalBytes, "total bytes mismatch")

	data := []byte("hello world")
	require.True(t, Write(ptr, data))
	readData, ok := Read(ptr, uint32(len(data)))
	require.True(t, ok)
	assert.Equal(t, data, readData, "memory read mismatch")

	assert.True(t, Deallocate(ptr, size))

	allocCount, totalBytes = Stats()
	assert.Equal(t, 0, allocCount, "expected 0 tracked allocations after deallocate")
	assert.Equal(t, 0, totalBytes, "expected 0 total bytes after deallocate")
}

func TestAllocate_ZeroSize(t *testing.T) {
	ptr, err := Allocate(0)
	require.NoError(t, err)
	assert.Zero(t, ptr, "allocate(0) should return 0")
}

func TestDeallocate_Idempotent(t *testing.T) {
	resetMemoryManager()

	ptr, err := Allocate(100)
	require.NoError(t, err)
	assert.True(t, Deallocate(ptr, 100))
	assert.False(t, Deallocate(ptr, 100), "second deallocate must be ignored")

	_, totalBytes := Stats()
	assert.Zero(t, totalBytes)
}

func TestAlloc_ZeroInitialisedAndAligned(t *testing.T) {
	resetMemoryManager()

	b, err := Alloc(KindRecord, 13)
	require.NoError(t, err)
	defer b.Free()

	assert.Equal(t, 13, b.Len())
	assert.Equal(t, make([]byte, 13), b.Bytes())
	assert.Zero(t, b.Ptr()%8, "allocations are 8-byte aligned")
	assert.Equal(t, KindRecord, b.Kind())
}

func TestAlloc_EmptyHasAddress(t *testing.T) {
	resetMemoryManager()

	a, err := Alloc(KindFieldDef, 0)
	require.NoError(t, err)
	b, err := Alloc(KindFieldDef, 0)
	require.NoError(t, err)

	assert.NotZero(t, a.Ptr())
	assert.NotEqual(t, a.Ptr(), b.Ptr(), "empty buffers get distinct addresses")
	assert.Equal(t, uint64(a.Ptr())<<PtrHighBits, a.Pack())

	assert.True(t, FreeTracked(a.Ptr(), KindFieldDef))
	assert.True(t, b.Free())
}

func TestAlloc_LimitExceeded(t *testing.T) {
	resetMemoryManager()
	Configure(WithMaxTotalAllocations(1024))
	defer Configure(WithMaxTotalAllocations(DefaultMaxTotalAllocations))

	b, err := Alloc(KindBytes, 1000)
	require.NoError(t, err)
	defer b.Free()

	_, err = Alloc(KindBytes, 100)
	var allocErr *errors.AllocError
	require.True(t, stdErrors.As(err, &allocErr))
	assert.Equal(t, 100, allocErr.Requested)
	assert.Equal(t, 1000, allocErr.InUse)
	assert.Equal(t, 1024, allocErr.Limit)

	ptr, err := Allocate(2048)
	assert.Error(t, err)
	assert.Zero(t, ptr)
}

func TestAllocReserved_PastLimit(t *testing.T) {
	resetMemoryManager()
	Configure(WithMaxTotalAllocations(1024))
	defer Configure(WithMaxTotalAllocations(DefaultMaxTotalAllocations))

	b, err := Alloc(KindBytes, 1024)
	require.NoError(t, err)
	defer b.Free()

	_, err = Alloc(KindBytes, 1)
	require.Error(t, err)

	r, err := AllocReserved(KindBytes, 512)
	require.NoError(t, err)
	defer r.Free()

	_, err = AllocReserved(KindBytes, ReservedBytes)
	assert.Error(t, err, "headroom is bounded too")

	s, err := NewReservedStr("alloc: out of room")
	require.NoError(t, err)
	assert.Equal(t, "alloc: out of room", s.String())
	assert.True(t, FreeTracked(s.Str().Ptr, KindBytes))
}

func TestConfigure_InvalidLimit(t *testing.T) {
	resetMemoryManager()

	// Zero or negative limits should be ignored
	Configure(WithMaxTotalAllocations(0))
	Configure(WithMaxTotalAllocations(-100))

	ptr, err := Allocate(1024)
	require.NoError(t, err)
	require.NotZero(t, ptr)
	Deallocate(ptr, 1024)
}

func TestBuffer_FreeExactlyOnce(t *testing.T) {
	resetMemoryManager()

	b, err := Alloc(KindU32, 16)
	require.NoError(t, err)

	assert.True(t, b.Free())
	assert.False(t, b.Free())
	assert.False(t, FreeTracked(b.Ptr(), KindU32), "host free after native free is ignored")

	allocCount, totalBytes := Stats()
	assert.Zero(t, allocCount)
	assert.Zero(t, totalBytes)
}

func TestFreeTracked_KindMismatchRefused(t *testing.T) {
	resetMemoryManager()

	b, err := Alloc(KindStr, 16)
	require.NoError(t, err)

	assert.False(t, FreeTracked(b.Ptr(), KindBytes, KindRecord))
	kind, ok := KindOf(b.Ptr())
	require.True(t, ok, "allocation must survive a mismatched free")
	assert.Equal(t, KindStr, kind)

	assert.True(t, FreeTracked(b.Ptr(), KindStr))
	_, ok = KindOf(b.Ptr())
	assert.False(t, ok)
	assert.False(t, b.Free(), "native free after host free is ignored")
}

func TestAdopt(t *testing.T) {
	resetMemoryManager()

	ptr, err := Allocate(32)
	require.NoError(t, err)
	require.True(t, Write(ptr, []byte("payload")))

	b, err := Adopt(KindBytes, ptr, 7)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(b.Bytes()))

	_, totalBytes := Stats()
	assert.Equal(t, 7, totalBytes)

	assert.True(t, b.Free())
	assert.False(t, Deallocate(ptr, 32))
}

func TestAdopt_Rejects(t *testing.T) {
	resetMemoryManager()

	var misuse *errors.MisuseError

	_, err := Adopt(KindBytes, 0xdead0, 1)
	assert.True(t, stdErrors.As(err, &misuse), "untracked pointer")

	ptr, err := Allocate(4)
	require.NoError(t, err)
	_, err = Adopt(KindBytes, ptr, 5)
	assert.True(t, stdErrors.As(err, &misuse), "length beyond allocation")

	rec, err := Alloc(KindRecord, 8)
	require.NoError(t, err)
	_, err = Adopt(KindBytes, rec.Ptr(), 8)
	assert.True(t, stdErrors.As(err, &misuse), "non-bytes allocation")

	FreeAllTracked()
}

func TestView_OutOfRange(t *testing.T) {
	resetMemoryManager()

	b, err := Alloc(KindBytes, 8)
	require.NoError(t, err)
	defer b.Free()

	_, ok := View(b.Ptr(), 8)
	assert.True(t, ok)
	_, ok = View(b.Ptr()+4, 4)
	assert.True(t, ok, "interior views resolve")
	_, ok = View(b.Ptr(), 64)
	assert.False(t, ok)
	_, ok = View(0, 0)
	assert.True(t, ok, "empty null view is valid")
	_, ok = View(0, 1)
	assert.False(t, ok)
}

func TestFreeAllTracked(t *testing.T) {
	resetMemoryManager()

	_, err := Allocate(100)
	require.NoError(t, err)
	_, err = Alloc(KindEvent, 24)
	require.NoError(t, err)

	allocCount, _ := Stats()
	require.Equal(t, 2, allocCount, "expected 2 tracked allocations")

	FreeAllTracked()

	allocCount, totalBytes := Stats()
	assert.Equal(t, 0, allocCount, "expected 0 allocations after FreeAllTracked")
	assert.Equal(t, 0, totalBytes, "expected 0 bytes after FreeAllTracked")
}

func TestConcurrency(t *testing.T) {
	resetMemoryManager()

	var wg sync.WaitGroup
	iterations := 100

	wg.Add(iterations)
	for i := 0; i < iterations; i++ {
		go func() {
			defer wg.Done()
			s, err := NewOwnedStr("concurrent test data")
			if err != nil {
				return
			}
			_, _ = s.Str().Resolve()
			s.Free()
		}()
	}
	wg.Wait()

	allocCount, _ := Stats()
	assert.Equal(t, 0, allocCount, "expected 0 allocations after concurrent operations")
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "fieldDef", KindFieldDef.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}
