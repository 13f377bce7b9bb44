package data

import (
	"github.com/blackbox-log/blackbox-log-go/domain/entities"
	"github.com/blackbox-log/blackbox-log-go/domain/ports"
	"github.com/blackbox-log/blackbox-log-go/internal/abi"
	"github.com/blackbox-log/blackbox-log-go/wireformat"
)

// Event is the parse event held by a Slot. Each variant owns its payload
// and releases it itself.
type Event interface {
	Kind() entities.EventKind
	record() wireformat.EventRecord
	release()
}

type noneEvent struct{}

func (noneEvent) Kind() entities.EventKind       { return entities.EventKindNone }
func (noneEvent) record() wireformat.EventRecord { return wireformat.EventRecord{} }
func (noneEvent) release()                       {}

type markerEvent struct{}

func (markerEvent) Kind() entities.EventKind { return entities.EventKindEvent }
func (markerEvent) record() wireformat.EventRecord {
	return wireformat.EventRecord{Kind: entities.EventKindEvent}
}
func (markerEvent) release() {}

// MainEvent is a decoded main frame.
type MainEvent struct {
	Time   float64
	Fields *abi.Buffer
}

func (*MainEvent) Kind() entities.EventKind { return entities.EventKindMain }
func (e *MainEvent) record() wireformat.EventRecord {
	return timedRecord(entities.EventKindMain, e.Time, e.Fields)
}
func (e *MainEvent) release() { e.Fields.Free() }

// SlowEvent is a decoded slow frame. Slow frames carry no time.
type SlowEvent struct {
	Fields *abi.Buffer
}

func (*SlowEvent) Kind() entities.EventKind { return entities.EventKindSlow }
func (e *SlowEvent) record() wireformat.EventRecord {
	return wireformat.EventRecord{
		Kind:      entities.EventKindSlow,
		FieldsLen: uint32(e.Fields.Len() / 4),
		FieldsPtr: e.Fields.Ptr(),
	}
}
func (e *SlowEvent) release() { e.Fields.Free() }

// GpsEvent is a decoded GPS frame.
type GpsEvent struct {
	Time   float64
	Fields *abi.Buffer
}

func (*GpsEvent) Kind() entities.EventKind { return entities.EventKindGps }
func (e *GpsEvent) record() wireformat.EventRecord {
	return timedRecord(entities.EventKindGps, e.Time, e.Fields)
}
func (e *GpsEvent) release() { e.Fields.Free() }

func timedRecord(kind entities.EventKind, t float64, fields *abi.Buffer) wireformat.EventRecord {
	return wireformat.EventRecord{
		Kind:      kind,
		Time:      t,
		FieldsLen: uint32(fields.Len() / 4),
		FieldsPtr: fields.Ptr(),
	}
}

// FieldValues returns a copy of the raw values of a frame event.
func FieldValues(e Event) []uint32 {
	switch e := e.(type) {
	case *MainEvent:
		return abi.ReadU32s(e.Fields.Bytes())
	case *SlowEvent:
		return abi.ReadU32s(e.Fields.Bytes())
	case *GpsEvent:
		return abi.ReadU32s(e.Fields.Bytes())
	default:
		return nil
	}
}

// newEvent copies an engine frame into an owned event. The engine's field
// slice is only valid until its next Next call.
func newEvent(f ports.Frame) (Event, error) {
	switch f.Kind {
	case entities.EventKindEvent:
		return markerEvent{}, nil
	case entities.EventKindMain, entities.EventKindSlow, entities.EventKindGps:
	default:
		return noneEvent{}, nil
	}

	fields, err := abi.PutU32s(f.Fields)
	if err != nil {
		return nil, err
	}
	switch f.Kind {
	case entities.EventKindMain:
		return &MainEvent{Time: f.Time, Fields: fields}, nil
	case entities.EventKindSlow:
		return &SlowEvent{Fields: fields}, nil
	default:
		return &GpsEvent{Time: f.Time, Fields: fields}, nil
	}
}
