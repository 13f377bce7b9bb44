// Package testutil provides common test utilities and assertions.
package testutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackbox-log/blackbox-log-go/internal/abi"
)

// ResetMemory frees every pinned allocation so each test starts from an
// empty memory manager.
func ResetMemory(t *testing.T) {
	t.Helper()
	abi.FreeAllTracked()
	t.Cleanup(abi.FreeAllTracked)
}

// AssertNoLeaks asserts that no pinned allocation is left.
func AssertNoLeaks(t *testing.T, msgAndArgs ...interface{}) {
	t.Helper()
	allocs, bytes := abi.Stats()
	assert.Zero(t, allocs, msgAndArgs...)
	assert.Zero(t, bytes, msgAndArgs...)
}

// AssertAllocDelta asserts the number of pinned allocations changed by want
// since before.
func AssertAllocDelta(t *testing.T, before, want int, msgAndArgs ...interface{}) {
	t.Helper()
	now, _ := abi.Stats()
	assert.Equal(t, want, now-before, msgAndArgs...)
}

// AssertJSONEqual compares two JSON strings for equality, ignoring formatting
func AssertJSONEqual(t *testing.T, expected, actual string, msgAndArgs ...interface{}) {
	t.Helper()

	var expectedJSON, actualJSON interface{}
	require.NoError(t, json.Unmarshal([]byte(expected), &expectedJSON), "expected JSON is invalid")
	require.NoError(t, json.Unmarshal([]byte(actual), &actualJSON), "actual JSON is invalid")

	assert.Equal(t, expectedJSON, actualJSON, msgAndArgs...)
}

// HostBytes pins a copy of data the way a host fills a buffer obtained
// from the allocate export.
func HostBytes(t *testing.T, data []byte) (ptr, n uint32) {
	t.Helper()
	if len(data) == 0 {
		return 0, 0
	}
	ptr, err := abi.Allocate(uint32(len(data)))
	require.NoError(t, err)
	require.True(t, abi.Write(ptr, data))
	return ptr, uint32(len(data))
}

// AdoptBytes pins a copy of data and takes native ownership of it.
func AdoptBytes(t *testing.T, data []byte) *abi.Buffer {
	t.Helper()
	if len(data) == 0 {
		b, err := abi.Alloc(abi.KindBytes, 0)
		require.NoError(t, err)
		return b
	}
	ptr, n := HostBytes(t, data)
	b, err := abi.Adopt(abi.KindBytes, ptr, n)
	require.NoError(t, err)
	return b
}
