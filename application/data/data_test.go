package data

import (
	"bytes"
	"encoding/json"
	stdErrors "errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackbox-log/blackbox-log-go/domain/entities"
	"github.com/blackbox-log/blackbox-log-go/domain/errors"
	"github.com/blackbox-log/blackbox-log-go/domain/ports"
	"github.com/blackbox-log/blackbox-log-go/internal/abi"
	"github.com/blackbox-log/blackbox-log-go/internal/shared"
	"github.com/blackbox-log/blackbox-log-go/internal/testutil"
	"github.com/blackbox-log/blackbox-log-go/wireformat"
)

// fakeDecoder replays frames through a single reused field buffer, the way
// engines hand out frames that are only valid until the next call.
type fakeDecoder struct {
	frames   []ports.Frame
	next     int
	scratch  []uint32
	counts   entities.Counts
	progress float32
	main     entities.FrameDef
	pulls    int
}

func (d *fakeDecoder) Next() (ports.Frame, bool) {
	d.pulls++
	if d.next >= len(d.frames) {
		return ports.Frame{}, false
	}
	f := d.frames[d.next]
	d.next++
	d.scratch = append(d.scratch[:0], f.Fields...)
	f.Fields = d.scratch
	switch f.Kind {
	case entities.EventKindEvent:
		d.counts.Event++
	case entities.EventKindMain:
		d.counts.Main++
	case entities.EventKindSlow:
		d.counts.Slow++
	case entities.EventKindGps:
		d.counts.Gps++
	}
	return f, true
}

func (d *fakeDecoder) Stats() entities.Stats {
	return entities.Stats{Counts: d.counts, Progress: d.progress}
}

func (d *fakeDecoder) MainFrameDef() entities.FrameDef        { return d.main }
func (d *fakeDecoder) SlowFrameDef() entities.FrameDef        { return nil }
func (d *fakeDecoder) GpsFrameDef() (entities.FrameDef, bool) { return nil, false }

func newParser(t *testing.T, d ports.Decoder, order *[]string, opts ...Option) *Parser {
	t.Helper()
	raw, err := abi.Alloc(abi.KindBytes, 16)
	require.NoError(t, err)
	hs := shared.New[ports.Headers](nil, func(ports.Headers) {
		if order != nil {
			*order = append(*order, "headers")
		}
	})
	rs := shared.New(raw, func(b *abi.Buffer) {
		if order != nil {
			*order = append(*order, "raw")
		}
		b.Free()
	})
	p, err := New(d, hs, rs, opts...)
	require.NoError(t, err)
	return p
}

func readSlot(t *testing.T, ptr uint32) wireformat.EventRecord {
	t.Helper()
	b, ok := abi.View(ptr, wireformat.EventSize)
	require.True(t, ok)
	rec, err := wireformat.ReadEvent(b)
	require.NoError(t, err)
	return rec
}

func sampleFrames() []ports.Frame {
	return []ports.Frame{
		{Kind: entities.EventKindMain, Time: 1, Fields: []uint32{1, 2, 3}},
		{Kind: entities.EventKindSlow, Fields: []uint32{7}},
		{Kind: entities.EventKindEvent},
		{Kind: entities.EventKindGps, Time: 1.5, Fields: []uint32{9, 9}},
		{Kind: entities.EventKindMain, Time: 2, Fields: []uint32{4, 5, 6}},
	}
}

func TestSlot_OneReleasePerTransition(t *testing.T) {
	testutil.ResetMemory(t)

	slot, err := NewSlot()
	require.NoError(t, err)
	before, _ := abi.Stats()

	sequence := []entities.EventKind{
		entities.EventKindMain, entities.EventKindSlow, entities.EventKindGps,
		entities.EventKindEvent, entities.EventKindNone, entities.EventKindMain,
		entities.EventKindMain, entities.EventKindGps, entities.EventKindNone,
	}

	var want [entities.EventKindGps + 1]int
	prev := entities.EventKindNone
	for _, kind := range sequence {
		ev, err := newEvent(ports.Frame{Kind: kind, Fields: []uint32{1, 2}})
		require.NoError(t, err)
		slot.Set(ev)
		want[prev]++
		prev = kind

		for _, k := range entities.EventKinds {
			assert.Equal(t, want[k], slot.Releases(k), "releases of %s after setting %s", k, kind)
		}
		assert.Equal(t, kind, readSlot(t, slot.Ptr()).Kind)
	}

	slot.Set(noneEvent{})
	testutil.AssertAllocDelta(t, before, 0, "every payload was released exactly once")

	slot.Free()
	testutil.AssertNoLeaks(t)
}

func TestParser_MatchesEngineSequence(t *testing.T) {
	testutil.ResetMemory(t)

	frames := sampleFrames()
	d := &fakeDecoder{frames: frames, progress: 0.5}
	p := newParser(t, d, nil)
	defer p.Close()

	ptr := p.EventPtr()
	assert.Equal(t, entities.EventKindNone, readSlot(t, ptr).Kind, "slot starts empty")

	for i := 0; i < len(frames)+3; i++ {
		require.NoError(t, p.Advance())
		assert.Equal(t, ptr, p.EventPtr(), "slot address never moves")

		rec := readSlot(t, ptr)
		if i >= len(frames) {
			assert.Equal(t, entities.EventKindNone, rec.Kind)
			continue
		}
		want := frames[i]
		assert.Equal(t, want.Kind, rec.Kind)
		if want.Kind.HasTime() {
			assert.Equal(t, want.Time, rec.Time)
		}
		if _, ok := want.Kind.FrameKind(); ok {
			assert.Equal(t, want.Fields, FieldValues(p.Event()))
			raw, ok := abi.View(rec.FieldsPtr, rec.FieldsLen*4)
			require.True(t, ok)
			assert.Equal(t, want.Fields, abi.ReadU32s(raw))
		}
	}

	assert.True(t, p.Exhausted())
	assert.Equal(t, len(frames)+1, d.pulls, "engine is not pulled after end of stream")

	stats := p.Stats()
	require.NoError(t, p.Advance())
	assert.Equal(t, stats, p.Stats())
	assert.Equal(t, entities.Counts{Event: 1, Main: 2, Slow: 1, Gps: 1}, stats.Counts)
}

func TestParser_OwnsFieldCopies(t *testing.T) {
	testutil.ResetMemory(t)

	d := &fakeDecoder{frames: sampleFrames()}
	p := newParser(t, d, nil)
	defer p.Close()

	require.NoError(t, p.Advance())
	d.scratch[0] = 999 // engine reuses its buffer
	assert.Equal(t, []uint32{1, 2, 3}, FieldValues(p.Event()))
}

func TestParser_StatsClamped(t *testing.T) {
	testutil.ResetMemory(t)

	for _, progress := range []float32{-1, 2} {
		p := newParser(t, &fakeDecoder{progress: progress}, nil)
		got := p.Stats().Progress
		assert.GreaterOrEqual(t, got, float32(0))
		assert.LessOrEqual(t, got, float32(1))

		rec, err := p.StatsRecord()
		require.NoError(t, err)
		s, err := wireformat.ReadStats(rec.Bytes())
		require.NoError(t, err)
		assert.Equal(t, p.Stats(), s)
		rec.Free()
		p.Close()
	}
	testutil.AssertNoLeaks(t)
}

func TestParser_CloseOrder(t *testing.T) {
	testutil.ResetMemory(t)

	var order []string
	p := newParser(t, &fakeDecoder{frames: sampleFrames()}, &order)
	require.NoError(t, p.Advance())

	p.Close()
	p.Close()
	assert.Equal(t, []string{"headers", "raw"}, order)
	testutil.AssertNoLeaks(t)

	var misuse *errors.MisuseError
	assert.True(t, stdErrors.As(p.Advance(), &misuse))
}

func TestParser_AllocFailure(t *testing.T) {
	testutil.ResetMemory(t)

	p := newParser(t, &fakeDecoder{frames: []ports.Frame{
		{Kind: entities.EventKindMain, Fields: make([]uint32, 1024)},
	}}, nil)
	defer p.Close()

	_, inUse := abi.Stats()
	abi.Configure(abi.WithMaxTotalAllocations(inUse + 64))
	defer abi.Configure(abi.WithMaxTotalAllocations(abi.DefaultMaxTotalAllocations))

	err := p.Advance()
	var allocErr *errors.AllocError
	require.True(t, stdErrors.As(err, &allocErr))
	assert.Equal(t, entities.EventKindNone, p.Event().Kind())
}

func TestParser_Logs(t *testing.T) {
	testutil.ResetMemory(t)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	p := newParser(t, &fakeDecoder{frames: []ports.Frame{
		{Kind: entities.EventKindMain, Fields: []uint32{1}},
		{Kind: entities.EventKindSlow, Fields: make([]uint32, 1024)},
	}}, nil, WithLogger(logger))
	defer p.Close()

	require.NoError(t, p.Advance())

	_, inUse := abi.Stats()
	abi.Configure(abi.WithMaxTotalAllocations(inUse + 64))
	require.Error(t, p.Advance())
	abi.Configure(abi.WithMaxTotalAllocations(abi.DefaultMaxTotalAllocations))

	require.NoError(t, p.Advance())
	require.True(t, p.Exhausted())

	var msgs []map[string]any
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var m map[string]any
		require.NoError(t, dec.Decode(&m))
		msgs = append(msgs, m)
	}
	require.Len(t, msgs, 2)
	assert.Equal(t, "frame dropped", msgs[0]["msg"])
	assert.Equal(t, "WARN", msgs[0]["level"])
	assert.Equal(t, "slow", msgs[0]["kind"])
	assert.Equal(t, "data stream exhausted", msgs[1]["msg"])
	assert.EqualValues(t, 1, msgs[1]["main"])
	assert.EqualValues(t, 1, msgs[1]["slow"])
}

func TestParser_FrameDefRecord(t *testing.T) {
	testutil.ResetMemory(t)

	def := entities.FrameDef{
		{Name: "time"},
		{Name: "gyroADC[0]", Signed: true, Unit: entities.UnitRotation},
	}
	p := newParser(t, &fakeDecoder{main: def}, nil)

	rec, err := p.FrameDefRecord(entities.FrameKindMain)
	require.NoError(t, err)
	fields, err := wireformat.ReadFieldDefs(rec.Bytes(), len(def))
	require.NoError(t, err)
	name, ok := fields[1].Name.Resolve()
	require.True(t, ok)
	assert.Equal(t, "gyroADC[0]", name)
	assert.True(t, fields[1].Signed)
	assert.Equal(t, entities.UnitRotation, fields[1].Unit)

	assert.Empty(t, p.FrameDef(entities.FrameKindGps), "missing GPS definition is empty")

	rec.Free()
	p.Close()
	testutil.AssertNoLeaks(t)
}
