package wasm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackbox-log/blackbox-log-go/domain/entities"
	"github.com/blackbox-log/blackbox-log-go/domain/errors"
	"github.com/blackbox-log/blackbox-log-go/infrastructure/textlog"
	"github.com/blackbox-log/blackbox-log-go/internal/abi"
	"github.com/blackbox-log/blackbox-log-go/internal/testutil"
	"github.com/blackbox-log/blackbox-log-go/wireformat"
)

func newExports(t *testing.T) (*Boundary, *Exports) {
	t.Helper()
	testutil.ResetMemory(t)
	b := New(textlog.New())
	t.Cleanup(b.Reset)
	return b, NewExports(b)
}

func call(t *testing.T, e *Exports, name string, params ...uint64) uint64 {
	t.Helper()
	result, err := e.Call(name, params...)
	require.NoError(t, err, name)
	return result
}

func openHeaders(t *testing.T, e *Exports, log []byte) uint64 {
	t.Helper()
	ptr, n := testutil.HostBytes(t, log)
	h := call(t, e, "headers_new", uint64(ptr), uint64(n))
	require.NotZero(t, h)
	return h
}

func resolveStr(t *testing.T, packed uint64) string {
	t.Helper()
	s, ok := abi.UnpackStr(packed).Resolve()
	require.True(t, ok)
	return s
}

func readEvent(t *testing.T, ptr uint32) wireformat.EventRecord {
	t.Helper()
	b, ok := abi.Read(ptr, wireformat.EventSize)
	require.True(t, ok)
	r, err := wireformat.ReadEvent(b)
	require.NoError(t, err)
	return r
}

func lastError(t *testing.T, e *Exports) *entities.ErrorDetail {
	t.Helper()
	packed := call(t, e, "error_last")
	if packed == 0 {
		return nil
	}
	ptr, n := abi.Unpack(packed)
	raw, ok := abi.Read(ptr, n)
	require.True(t, ok)
	call(t, e, "slice8_free", uint64(ptr), uint64(n))

	var d entities.ErrorDetail
	require.NoError(t, json.Unmarshal(raw, &d))
	return &d
}

func TestExports_Surface(t *testing.T) {
	_, e := newExports(t)

	for _, name := range []string{
		"allocate", "deallocate", "slice8_free", "sliceStr_free", "unknownHeaders_free", "frameDef_free",
		"error_last", "memory_stats",
		"file_new", "file_free", "file_logCount", "file_getHeaders",
		"headers_new", "headers_free", "headers_mainDef", "headers_slowDef", "headers_gpsDef",
		"headers_firmwareRevision", "headers_debugMode", "headers_pwmProtocol", "headers_boardInfo",
		"headers_craftName", "headers_firmwareKind", "headers_firmwareDate", "headers_firmwareVersion",
		"headers_disabledFields", "headers_features", "headers_unknown",
		"data_new", "data_free", "data_mainDef", "data_slowDef", "data_gpsDef", "data_stats",
		"data_next", "data_event",
		"filter_new", "filter_main", "filter_slow", "filter_gps", "filter_free",
	} {
		assert.True(t, e.Has(name), name)
	}
	names := e.Names()
	assert.IsNonDecreasing(t, names)
	assert.Len(t, names, 41)

	_, err := e.Call("nope")
	assert.Error(t, err)
	_, err = e.Call("allocate")
	assert.ErrorContains(t, err, "takes 1 params")
}

func TestExports_Middleware(t *testing.T) {
	testutil.ResetMemory(t)
	var seen []string
	record := func(name string, next ExportFunc) ExportFunc {
		return func(p []uint64) uint64 {
			seen = append(seen, name)
			return next(p)
		}
	}
	e := NewExports(New(textlog.New()), WithMiddleware(record))

	_, err := e.Call("memory_stats")
	require.NoError(t, err)
	assert.Equal(t, []string{"memory_stats"}, seen)
}

func TestBoundary_HeadersRoundTrip(t *testing.T) {
	_, e := newExports(t)
	h := openHeaders(t, e, testutil.NewLog().Bytes())

	assert.Equal(t, "Betaflight 4.2.9 (a1b2c3d4e) STM32F7X2", resolveStr(t, call(t, e, "headers_firmwareRevision", h)))
	assert.Equal(t, "GYRO_SCALED", resolveStr(t, call(t, e, "headers_debugMode", h)))
	assert.Equal(t, "DSHOT600", resolveStr(t, call(t, e, "headers_pwmProtocol", h)))
	assert.Equal(t, "MTKS MATEKH743", resolveStr(t, call(t, e, "headers_boardInfo", h)))
	assert.Equal(t, "quad", resolveStr(t, call(t, e, "headers_craftName", h)))
	assert.Equal(t, uint64(entities.FirmwareBetaflight), call(t, e, "headers_firmwareKind", h))

	ptr, count := abi.Unpack(call(t, e, "headers_mainDef", h))
	b, ok := abi.Read(ptr, count*wireformat.FieldDefSize)
	require.True(t, ok)
	defs, err := wireformat.ReadFieldDefs(b, int(count))
	require.NoError(t, err)
	require.Len(t, defs, len(testutil.MainFields))
	assert.True(t, defs[2].Signed)
	call(t, e, "frameDef_free", uint64(ptr), uint64(count))

	ptr, count = abi.Unpack(call(t, e, "headers_gpsDef", h))
	assert.NotZero(t, ptr, "an empty definition still has an address")
	assert.Zero(t, count)
	call(t, e, "frameDef_free", uint64(ptr), uint64(count))

	ptr, n := abi.Unpack(call(t, e, "headers_firmwareVersion", h))
	b, ok = abi.Read(ptr, n)
	require.True(t, ok)
	version, err := wireformat.ReadVersion(b)
	require.NoError(t, err)
	assert.Equal(t, entities.FirmwareVersion{Major: 4, Minor: 2, Patch: 9}, version)
	call(t, e, "slice8_free", uint64(ptr), uint64(n))

	ptr, count = abi.Unpack(call(t, e, "headers_features", h))
	assert.NotZero(t, count)
	call(t, e, "sliceStr_free", uint64(ptr), uint64(count))

	ptr, count = abi.Unpack(call(t, e, "headers_unknown", h))
	assert.Equal(t, uint32(2), count)
	call(t, e, "unknownHeaders_free", uint64(ptr), uint64(count))

	call(t, e, "headers_free", h)
	testutil.AssertNoLeaks(t)
}

func TestBoundary_DataSequence(t *testing.T) {
	_, e := newExports(t)
	h := openHeaders(t, e, testutil.NewLog().Bytes())

	parser, eventPtr := abi.Unpack(call(t, e, "data_new", h, 0))
	require.NotZero(t, parser)
	assert.Equal(t, uint64(eventPtr), call(t, e, "data_event", uint64(parser)))

	// Freeing the headers first leaves the parser usable.
	call(t, e, "headers_free", h)

	var got []entities.EventKind
	for range 8 {
		call(t, e, "data_next", uint64(parser))
		r := readEvent(t, eventPtr)
		got = append(got, r.Kind)
		if r.Kind == entities.EventKindMain && len(got) == 1 {
			fields, ok := abi.Read(r.FieldsPtr, r.FieldsLen*4)
			require.True(t, ok)
			assert.Equal(t, []uint32{0, 1000000, uint32(0xFFFFFFFB), 1200, 1300}, abi.ReadU32s(fields))
			assert.InDelta(t, 1.0, r.Time, 1e-9)
		}
	}
	assert.Equal(t, []entities.EventKind{
		entities.EventKindMain, entities.EventKindSlow, entities.EventKindMain, entities.EventKindEvent,
		entities.EventKindMain, entities.EventKindNone, entities.EventKindNone, entities.EventKindNone,
	}, got)

	ptr, n := abi.Unpack(call(t, e, "data_stats", uint64(parser)))
	b, ok := abi.Read(ptr, n)
	require.True(t, ok)
	stats, err := wireformat.ReadStats(b)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), stats.Counts.Main)
	assert.Equal(t, float32(1), stats.Progress)
	call(t, e, "slice8_free", uint64(ptr), uint64(n))

	call(t, e, "data_free", uint64(parser))
	testutil.AssertNoLeaks(t)
}

func TestBoundary_FilteredParser(t *testing.T) {
	_, e := newExports(t)
	h := openHeaders(t, e, testutil.NewLog().Bytes())

	builder, arena := abi.Unpack(call(t, e, "filter_new", 32, 2, uint64(uint32(0xFFFFFFFF)), uint64(uint32(0xFFFFFFFF))))
	require.NotZero(t, builder)
	require.True(t, abi.Write(arena, []byte("motor0time")))
	call(t, e, "filter_main", uint64(builder), uint64(arena), 6)
	call(t, e, "filter_main", uint64(builder), uint64(arena+6), 4)
	// Over capacity: ignored.
	call(t, e, "filter_main", uint64(builder), uint64(arena), 6)

	parser, _ := abi.Unpack(call(t, e, "data_new", h, uint64(builder)))
	require.NotZero(t, parser)

	ptr, count := abi.Unpack(call(t, e, "data_mainDef", uint64(parser)))
	b, ok := abi.Read(ptr, count*wireformat.FieldDefSize)
	require.True(t, ok)
	defs, err := wireformat.ReadFieldDefs(b, int(count))
	require.NoError(t, err)
	var names []string
	for _, d := range defs {
		s, ok := d.Name.Resolve()
		require.True(t, ok)
		names = append(names, s)
	}
	assert.Equal(t, []string{"time", "motor0"}, names, "engine order, not push order")
	call(t, e, "frameDef_free", uint64(ptr), uint64(count))

	// The builder was consumed by data_new.
	call(t, e, "filter_free", uint64(builder))
	assert.Nil(t, lastError(t, e))

	call(t, e, "data_free", uint64(parser))
	call(t, e, "headers_free", h)
	testutil.AssertNoLeaks(t)
}

func TestBoundary_HeaderParseFailure(t *testing.T) {
	_, e := newExports(t)
	ptr, n := testutil.HostBytes(t, []byte("not a blackbox log"))

	assert.Zero(t, call(t, e, "headers_new", uint64(ptr), uint64(n)))
	d := lastError(t, e)
	require.NotNil(t, d)
	assert.Equal(t, errors.TypeHeaderParse, d.Type)
	assert.Equal(t, "headers_new", d.Code)
	assert.Nil(t, lastError(t, e), "the last error is handed out once")

	testutil.AssertNoLeaks(t, "the input buffer is freed on failure")
}

func TestBoundary_EmptyInput(t *testing.T) {
	_, e := newExports(t)
	assert.Zero(t, call(t, e, "headers_new", 0, 0))
	assert.NotNil(t, lastError(t, e))
	testutil.AssertNoLeaks(t)
}

func TestBoundary_MisuseIsIgnored(t *testing.T) {
	_, e := newExports(t)

	call(t, e, "headers_free", 0x02000099)
	call(t, e, "data_next", 0)
	call(t, e, "filter_main", 0x04000001, 0, 0)
	assert.Zero(t, call(t, e, "file_logCount", 0x01000001))
	assert.Zero(t, call(t, e, "headers_craftName", 0x03000001), "wrong table tag")

	ptr, err := abi.Allocate(16)
	require.NoError(t, err)
	call(t, e, "frameDef_free", uint64(ptr), 0)
	call(t, e, "slice8_free", 0x7FFF0000, 4)

	assert.Nil(t, lastError(t, e), "misuse does not record an error")
	allocs, _ := abi.Stats()
	assert.Equal(t, 1, allocs, "wrong-kind free is refused")
	call(t, e, "deallocate", uint64(ptr), 16)
	testutil.AssertNoLeaks(t)
}

func TestBoundary_AllocFailure(t *testing.T) {
	_, e := newExports(t)
	abi.Configure(abi.WithMaxTotalAllocations(1024))
	t.Cleanup(func() { abi.Configure(abi.WithMaxTotalAllocations(abi.DefaultMaxTotalAllocations)) })

	assert.Zero(t, call(t, e, "allocate", 4096))
	d := lastError(t, e)
	require.NotNil(t, d)
	assert.Equal(t, errors.TypeAlloc, d.Type)

	assert.Zero(t, call(t, e, "filter_new", 4096, 1, 1, 1))
	assert.NotNil(t, lastError(t, e))
}

func TestBoundary_File(t *testing.T) {
	_, e := newExports(t)
	data := testutil.Concat(testutil.NewLog().Bytes(), testutil.NewLog().Header("Craft name", "wing").Bytes())
	ptr, n := testutil.HostBytes(t, data)

	f := call(t, e, "file_new", uint64(ptr), uint64(n))
	require.NotZero(t, f)
	assert.Equal(t, uint64(2), call(t, e, "file_logCount", f))

	h := call(t, e, "file_getHeaders", f, 1)
	require.NotZero(t, h)
	call(t, e, "file_free", f)
	assert.Equal(t, "wing", resolveStr(t, call(t, e, "headers_craftName", h)))

	assert.Zero(t, call(t, e, "file_getHeaders", f, 0), "file handle is gone")
	call(t, e, "headers_free", h)
	testutil.AssertNoLeaks(t)
}

func TestBoundary_PanicRecovered(t *testing.T) {
	b, e := newExports(t)

	result := b.guard("boom", func() uint64 { panic("kaboom") })
	assert.Zero(t, result)

	d := lastError(t, e)
	require.NotNil(t, d)
	assert.Equal(t, errors.TypePanic, d.Type)
	assert.Equal(t, "boom", d.Code)
	assert.Contains(t, d.Message, "kaboom")
	assert.NotEmpty(t, d.Stack)
}

func TestBoundary_Reset(t *testing.T) {
	b, e := newExports(t)
	h := openHeaders(t, e, testutil.NewLog().Bytes())
	call(t, e, "data_new", h, 0)
	call(t, e, "filter_new", 8, 0, 0, 0)

	live := b.Live()
	assert.Equal(t, 1, live["headers"])
	assert.Equal(t, 1, live["parser"])
	assert.Equal(t, 1, live["builder"])

	b.Reset()
	assert.Zero(t, b.Live()["headers"])
	testutil.AssertNoLeaks(t)
}
