package filter

import (
	stdErrors "errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackbox-log/blackbox-log-go/domain/entities"
	"github.com/blackbox-log/blackbox-log-go/domain/errors"
	"github.com/blackbox-log/blackbox-log-go/internal/abi"
	"github.com/blackbox-log/blackbox-log-go/internal/testutil"
)

// arenaWriter fills a builder's arena the way a host does.
type arenaWriter struct {
	t   *testing.T
	b   *Builder
	off uint32
}

func (w *arenaWriter) write(name string) abi.Str {
	w.t.Helper()
	ptr := w.b.ArenaPtr() + w.off
	require.True(w.t, abi.Write(ptr, []byte(name)))
	w.off += uint32(len(name))
	return abi.Str{Len: uint32(len(name)), Ptr: ptr}
}

func TestBuilder_Capacities(t *testing.T) {
	testutil.ResetMemory(t)

	b, err := New(64, 2, 1, -1)
	require.NoError(t, err)
	w := &arenaWriter{t: t, b: b}

	require.NoError(t, b.Push(entities.FrameKindMain, w.write("time")))
	require.NoError(t, b.Push(entities.FrameKindMain, w.write("motor0")))
	require.NoError(t, b.Push(entities.FrameKindSlow, w.write("flightModeFlags")))

	fs, err := b.Build()
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"time", "motor0"}, fs.Main.Names())
	assert.Equal(t, []string{"flightModeFlags"}, fs.Slow.Names())
	assert.True(t, fs.Gps.IsUnfiltered(), "a kind with no list is unfiltered")
	testutil.AssertNoLeaks(t, "build frees the arena")
}

func TestBuilder_HugeCapacityReservesNothing(t *testing.T) {
	testutil.ResetMemory(t)
	abi.Configure(abi.WithMaxTotalAllocations(1 << 20))
	defer abi.Configure(abi.WithMaxTotalAllocations(abi.DefaultMaxTotalAllocations))

	b, err := New(16, math.MaxInt32, -1, -1)
	require.NoError(t, err)
	w := &arenaWriter{t: t, b: b}

	assert.Zero(t, cap(b.lists[entities.FrameKindMain].refs))
	require.NoError(t, b.Push(entities.FrameKindMain, w.write("time")))
	assert.Less(t, cap(b.lists[entities.FrameKindMain].refs), 16)

	fs, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"time"}, fs.Main.Names())
	testutil.AssertNoLeaks(t)
}

func TestBuilder_SetSemantics(t *testing.T) {
	testutil.ResetMemory(t)

	b, err := New(32, 3, -1, -1)
	require.NoError(t, err)
	w := &arenaWriter{t: t, b: b}

	motor := w.write("motor0")
	require.NoError(t, b.Push(entities.FrameKindMain, motor))
	require.NoError(t, b.Push(entities.FrameKindMain, w.write("time")))
	require.NoError(t, b.Push(entities.FrameKindMain, motor))

	fs, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 2, fs.Main.Len(), "duplicates collapse")
	assert.Equal(t, []string{"motor0", "time"}, fs.Main.Names())
}

func TestBuilder_EmptyListFiltersEverything(t *testing.T) {
	testutil.ResetMemory(t)

	b, err := New(0, 0, -1, -1)
	require.NoError(t, err)
	fs, err := b.Build()
	require.NoError(t, err)

	require.NotNil(t, fs.Main)
	assert.False(t, fs.Main.IsUnfiltered())
	assert.False(t, fs.Main.Allows("time"))
	assert.Nil(t, fs.Slow)
}

func TestBuilder_Violations(t *testing.T) {
	testutil.ResetMemory(t)

	b, err := New(16, 1, -1, 0)
	require.NoError(t, err)
	defer b.Close()
	w := &arenaWriter{t: t, b: b}

	outside, err := abi.Alloc(abi.KindBytes, 4)
	require.NoError(t, err)

	name := w.write("time")
	tests := []struct {
		name string
		kind entities.FrameKind
		str  abi.Str
	}{
		{name: "unfiltered kind", kind: entities.FrameKindSlow, str: name},
		{name: "zero capacity", kind: entities.FrameKindGps, str: name},
		{name: "outside arena", kind: entities.FrameKindMain, str: abi.StrOf(outside)},
		{name: "overruns arena", kind: entities.FrameKindMain, str: abi.Str{Len: 17, Ptr: b.ArenaPtr()}},
		{name: "invalid kind", kind: entities.FrameKind(7), str: name},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var misuse *errors.MisuseError
			assert.True(t, stdErrors.As(b.Push(tt.kind, tt.str), &misuse))
		})
	}

	require.NoError(t, b.Push(entities.FrameKindMain, name))
	var misuse *errors.MisuseError
	assert.True(t, stdErrors.As(b.Push(entities.FrameKindMain, name), &misuse), "past reserved capacity")

	fs, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"time"}, fs.Main.Names(), "ignored pushes leave no trace")

	_, err = b.Build()
	assert.True(t, stdErrors.As(err, &misuse), "builders are consumed once")
	assert.True(t, stdErrors.As(b.Push(entities.FrameKindMain, name), &misuse))
	outside.Free()
}

func TestBuilder_DropsInvalidUTF8(t *testing.T) {
	testutil.ResetMemory(t)

	b, err := New(8, 2, -1, -1)
	require.NoError(t, err)
	require.True(t, abi.Write(b.ArenaPtr(), []byte{0xff, 0xfe, 'o', 'k'}))

	require.NoError(t, b.Push(entities.FrameKindMain, abi.Str{Len: 2, Ptr: b.ArenaPtr()}))
	require.NoError(t, b.Push(entities.FrameKindMain, abi.Str{Len: 2, Ptr: b.ArenaPtr() + 2}))

	fs, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, fs.Main.Names())
}

func TestBuilder_CloseUnconsumed(t *testing.T) {
	testutil.ResetMemory(t)

	b, err := New(128, 4, 4, 4)
	require.NoError(t, err)
	b.Close()
	b.Close()
	testutil.AssertNoLeaks(t)
}

func TestBuilder_ArenaAllocFailure(t *testing.T) {
	testutil.ResetMemory(t)

	abi.Configure(abi.WithMaxTotalAllocations(16))
	defer abi.Configure(abi.WithMaxTotalAllocations(abi.DefaultMaxTotalAllocations))

	_, err := New(1024, 1, 1, 1)
	var allocErr *errors.AllocError
	assert.True(t, stdErrors.As(err, &allocErr))
}
