// Package wireformat defines the fixed-layout records exchanged between the
// guest module and its host. Every record is little-endian with explicit
// padding; sizes and offsets are part of the ABI contract and must remain
// stable.
//
// Put functions are used by the guest to encode, Read functions by the host
// to decode. Strings inside records are abi.Str views that the reader
// resolves separately.
package wireformat

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/blackbox-log/blackbox-log-go/domain/entities"
	"github.com/blackbox-log/blackbox-log-go/internal/abi"
)

// Record sizes in bytes.
const (
	StrSize           = abi.StrSize
	FieldDefSize      = 12
	UnknownHeaderSize = 16
	EventSize         = 24
	DateSize          = 28
	VersionSize       = 12
	StatsSize         = 24
)

// Event record offsets. Main and Gps events carry a time followed by their
// fields; Slow events carry only fields, right after the kind.
const (
	EventKindOffset     = 0
	EventTimeOffset     = 8
	EventTimedFieldsLen = 16
	EventTimedFieldsPtr = 20
	EventSlowFieldsLen  = 8
	EventSlowFieldsPtr  = 12
)

var le = binary.LittleEndian

// FieldDefRecord is one element of a frame definition:
// [name len u32][name ptr u32][signed u8][unit u8][pad 2].
type FieldDefRecord struct {
	Name   abi.Str
	Signed bool
	Unit   entities.Unit
}

// Size implements abi.Structural.
func (FieldDefRecord) Size() int { return FieldDefSize }

// Put implements abi.Structural.
func (r FieldDefRecord) Put(b []byte) {
	r.Name.Put(b[0:8])
	b[8] = 0
	if r.Signed {
		b[8] = 1
	}
	b[9] = uint8(r.Unit)
	b[10], b[11] = 0, 0
}

// ReadFieldDef decodes a FieldDefRecord.
func ReadFieldDef(b []byte) (FieldDefRecord, error) {
	if len(b) < FieldDefSize {
		return FieldDefRecord{}, shortRecord("field definition", len(b), FieldDefSize)
	}
	unit, err := entities.ParseUnit(b[9])
	if err != nil {
		return FieldDefRecord{}, err
	}
	return FieldDefRecord{Name: abi.ReadStr(b[0:8]), Signed: b[8] != 0, Unit: unit}, nil
}

// ReadFieldDefs decodes a packed array of count records.
func ReadFieldDefs(b []byte, count int) ([]FieldDefRecord, error) {
	if len(b) < count*FieldDefSize {
		return nil, shortRecord("frame definition", len(b), count*FieldDefSize)
	}
	out := make([]FieldDefRecord, count)
	for i := range out {
		r, err := ReadFieldDef(b[i*FieldDefSize:])
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		out[i] = r
	}
	return out, nil
}

// ReadStrs decodes a packed array of count views.
func ReadStrs(b []byte, count int) ([]abi.Str, error) {
	if len(b) < count*StrSize {
		return nil, shortRecord("string slice", len(b), count*StrSize)
	}
	out := make([]abi.Str, count)
	for i := range out {
		out[i] = abi.ReadStr(b[i*StrSize:])
	}
	return out, nil
}

// UnknownHeaderRecord is [key str][value str].
type UnknownHeaderRecord struct {
	Key   abi.Str
	Value abi.Str
}

// Size implements abi.Structural.
func (UnknownHeaderRecord) Size() int { return UnknownHeaderSize }

// Put implements abi.Structural.
func (r UnknownHeaderRecord) Put(b []byte) {
	r.Key.Put(b[0:8])
	r.Value.Put(b[8:16])
}

// ReadUnknownHeaders decodes a packed array of count records.
func ReadUnknownHeaders(b []byte, count int) ([]UnknownHeaderRecord, error) {
	if len(b) < count*UnknownHeaderSize {
		return nil, shortRecord("unknown headers", len(b), count*UnknownHeaderSize)
	}
	out := make([]UnknownHeaderRecord, count)
	for i := range out {
		off := i * UnknownHeaderSize
		out[i] = UnknownHeaderRecord{Key: abi.ReadStr(b[off:]), Value: abi.ReadStr(b[off+8:])}
	}
	return out, nil
}

// EventRecord is the decoded form of the parser's event slot.
type EventRecord struct {
	Kind      entities.EventKind
	Time      float64
	FieldsLen uint32
	FieldsPtr uint32
}

// PutEvent rewrites the whole slot. Kinds without a payload zero it.
func PutEvent(b []byte, r EventRecord) {
	clear(b[:EventSize])
	b[EventKindOffset] = uint8(r.Kind)
	switch r.Kind {
	case entities.EventKindMain, entities.EventKindGps:
		le.PutUint64(b[EventTimeOffset:], math.Float64bits(r.Time))
		le.PutUint32(b[EventTimedFieldsLen:], r.FieldsLen)
		le.PutUint32(b[EventTimedFieldsPtr:], r.FieldsPtr)
	case entities.EventKindSlow:
		le.PutUint32(b[EventSlowFieldsLen:], r.FieldsLen)
		le.PutUint32(b[EventSlowFieldsPtr:], r.FieldsPtr)
	}
}

// ReadEvent decodes the slot.
func ReadEvent(b []byte) (EventRecord, error) {
	if len(b) < EventSize {
		return EventRecord{}, shortRecord("event", len(b), EventSize)
	}
	kind, err := entities.ParseEventKind(b[EventKindOffset])
	if err != nil {
		return EventRecord{}, err
	}
	r := EventRecord{Kind: kind}
	switch kind {
	case entities.EventKindMain, entities.EventKindGps:
		r.Time = math.Float64frombits(le.Uint64(b[EventTimeOffset:]))
		r.FieldsLen = le.Uint32(b[EventTimedFieldsLen:])
		r.FieldsPtr = le.Uint32(b[EventTimedFieldsPtr:])
	case entities.EventKindSlow:
		r.FieldsLen = le.Uint32(b[EventSlowFieldsLen:])
		r.FieldsPtr = le.Uint32(b[EventSlowFieldsPtr:])
	}
	return r, nil
}

// Firmware date record discriminants.
const (
	DateNone uint32 = 0
	DateOk   uint32 = 1
	DateErr  uint32 = 2
)

// DateRecord is [disc u32] followed by either
// year i32, month, day, hour, minute, second u32 (DateOk) or
// raw str len u32, ptr u32 (DateErr).
type DateRecord struct {
	Disc   uint32
	Year   int32
	Month  uint32
	Day    uint32
	Hour   uint32
	Minute uint32
	Second uint32
	Raw    abi.Str
}

// NewDateRecord projects a firmware date. raw views the unparsed text.
func NewDateRecord(d entities.FirmwareDate, raw abi.Str) DateRecord {
	switch d.Kind {
	case entities.FirmwareDateParsed:
		t := d.Time
		return DateRecord{
			Disc:   DateOk,
			Year:   int32(t.Year()),
			Month:  uint32(t.Month()),
			Day:    uint32(t.Day()),
			Hour:   uint32(t.Hour()),
			Minute: uint32(t.Minute()),
			Second: uint32(t.Second()),
		}
	case entities.FirmwareDateUnparsed:
		return DateRecord{Disc: DateErr, Raw: raw}
	default:
		return DateRecord{Disc: DateNone}
	}
}

// Size implements abi.Structural.
func (DateRecord) Size() int { return DateSize }

// Put implements abi.Structural.
func (r DateRecord) Put(b []byte) {
	clear(b[:DateSize])
	le.PutUint32(b[0:], r.Disc)
	switch r.Disc {
	case DateOk:
		le.PutUint32(b[4:], uint32(r.Year))
		le.PutUint32(b[8:], r.Month)
		le.PutUint32(b[12:], r.Day)
		le.PutUint32(b[16:], r.Hour)
		le.PutUint32(b[20:], r.Minute)
		le.PutUint32(b[24:], r.Second)
	case DateErr:
		r.Raw.Put(b[4:12])
	}
}

// ReadDate decodes a DateRecord.
func ReadDate(b []byte) (DateRecord, error) {
	if len(b) < DateSize {
		return DateRecord{}, shortRecord("firmware date", len(b), DateSize)
	}
	r := DateRecord{Disc: le.Uint32(b[0:])}
	switch r.Disc {
	case DateNone:
	case DateOk:
		r.Year = int32(le.Uint32(b[4:]))
		r.Month = le.Uint32(b[8:])
		r.Day = le.Uint32(b[12:])
		r.Hour = le.Uint32(b[16:])
		r.Minute = le.Uint32(b[20:])
		r.Second = le.Uint32(b[24:])
	case DateErr:
		r.Raw = abi.ReadStr(b[4:12])
	default:
		return DateRecord{}, fmt.Errorf("invalid firmware date discriminant: %d", r.Disc)
	}
	return r, nil
}

// FirmwareDate rebuilds the entity. raw is the resolved text of r.Raw.
func (r DateRecord) FirmwareDate(raw string) entities.FirmwareDate {
	switch r.Disc {
	case DateOk:
		t := time.Date(int(r.Year), time.Month(r.Month), int(r.Day),
			int(r.Hour), int(r.Minute), int(r.Second), 0, time.UTC)
		return entities.ParsedFirmwareDate(t)
	case DateErr:
		return entities.UnparsedFirmwareDate(raw)
	default:
		return entities.NoFirmwareDate()
	}
}

// VersionRecord is [major u32][minor u32][patch u32].
type VersionRecord entities.FirmwareVersion

// Size implements abi.Structural.
func (VersionRecord) Size() int { return VersionSize }

// Put implements abi.Structural.
func (r VersionRecord) Put(b []byte) {
	le.PutUint32(b[0:], r.Major)
	le.PutUint32(b[4:], r.Minor)
	le.PutUint32(b[8:], r.Patch)
}

// ReadVersion decodes a VersionRecord.
func ReadVersion(b []byte) (entities.FirmwareVersion, error) {
	if len(b) < VersionSize {
		return entities.FirmwareVersion{}, shortRecord("firmware version", len(b), VersionSize)
	}
	return entities.FirmwareVersion{
		Major: le.Uint32(b[0:]),
		Minor: le.Uint32(b[4:]),
		Patch: le.Uint32(b[8:]),
	}, nil
}

// StatsRecord is five u32 counts (event, main, slow, gps, gps home)
// followed by an f32 progress fraction.
type StatsRecord entities.Stats

// Size implements abi.Structural.
func (StatsRecord) Size() int { return StatsSize }

// Put implements abi.Structural.
func (r StatsRecord) Put(b []byte) {
	le.PutUint32(b[0:], r.Counts.Event)
	le.PutUint32(b[4:], r.Counts.Main)
	le.PutUint32(b[8:], r.Counts.Slow)
	le.PutUint32(b[12:], r.Counts.Gps)
	le.PutUint32(b[16:], r.Counts.GpsHome)
	le.PutUint32(b[20:], math.Float32bits(r.Progress))
}

// ReadStats decodes a StatsRecord.
func ReadStats(b []byte) (entities.Stats, error) {
	if len(b) < StatsSize {
		return entities.Stats{}, shortRecord("stats", len(b), StatsSize)
	}
	return entities.Stats{
		Counts: entities.Counts{
			Event:   le.Uint32(b[0:]),
			Main:    le.Uint32(b[4:]),
			Slow:    le.Uint32(b[8:]),
			Gps:     le.Uint32(b[12:]),
			GpsHome: le.Uint32(b[16:]),
		},
		Progress: math.Float32frombits(le.Uint32(b[20:])),
	}, nil
}

func shortRecord(what string, got, want int) error {
	return fmt.Errorf("%s record too short: %d bytes, want %d", what, got, want)
}
