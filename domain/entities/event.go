package entities

import "fmt"

// EventKind is the discriminant of the parse event slot. The zero value means
// no more data.
type EventKind uint8

const (
	EventKindNone  EventKind = 0
	EventKindEvent EventKind = 1
	EventKindMain  EventKind = 2
	EventKindSlow  EventKind = 3
	EventKindGps   EventKind = 4
)

// EventKinds lists every defined discriminant.
var EventKinds = []EventKind{EventKindNone, EventKindEvent, EventKindMain, EventKindSlow, EventKindGps}

// ParseEventKind decodes a boundary value.
func ParseEventKind(raw uint8) (EventKind, error) {
	if raw > uint8(EventKindGps) {
		return EventKindNone, fmt.Errorf("invalid parser event kind: %d", raw)
	}
	return EventKind(raw), nil
}

func (k EventKind) String() string {
	switch k {
	case EventKindNone:
		return "none"
	case EventKindEvent:
		return "event"
	case EventKindMain:
		return "main"
	case EventKindSlow:
		return "slow"
	case EventKindGps:
		return "gps"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// MarshalText encodes the kind by name.
func (k EventKind) MarshalText() ([]byte, error) {
	if _, err := ParseEventKind(uint8(k)); err != nil {
		return nil, err
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes an event kind name.
func (k *EventKind) UnmarshalText(text []byte) error {
	for _, kind := range EventKinds {
		if kind.String() == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown parser event kind %q", text)
}

// FrameKind maps a frame-carrying event to its frame kind.
func (k EventKind) FrameKind() (FrameKind, bool) {
	switch k {
	case EventKindMain:
		return FrameKindMain, true
	case EventKindSlow:
		return FrameKindSlow, true
	case EventKindGps:
		return FrameKindGps, true
	default:
		return 0, false
	}
}

// HasTime reports whether events of this kind carry a timestamp.
func (k EventKind) HasTime() bool {
	return k == EventKindMain || k == EventKindGps
}

// FieldValue is one decoded field, interpreted with its definition.
type FieldValue struct {
	Name  string `json:"name" yaml:"name"`
	Value int64  `json:"value" yaml:"value"`
	Unit  Unit   `json:"unit" yaml:"unit"`
}

// ParserEvent is a host-side copy of one event read out of the slot.
type ParserEvent struct {
	Kind EventKind `json:"kind" yaml:"kind"`
	// Time is the frame time in fractional seconds for main and GPS frames.
	Time   float64      `json:"time,omitempty" yaml:"time,omitempty"`
	Fields []FieldValue `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Field looks up a decoded value by name.
func (e *ParserEvent) Field(name string) (int64, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return 0, false
}

// Decode interprets raw field values against a frame definition. Signed
// fields are sign-extended from their 32-bit representation.
func Decode(def FrameDef, raw []uint32) ([]FieldValue, error) {
	if len(raw) != len(def) {
		return nil, fmt.Errorf("frame length (%d) does not match the definition's length (%d)", len(raw), len(def))
	}
	values := make([]FieldValue, len(raw))
	for i, field := range def {
		v := int64(raw[i])
		if field.Signed {
			v = int64(int32(raw[i]))
		}
		values[i] = FieldValue{Name: field.Name, Value: v, Unit: field.Unit}
	}
	return values, nil
}
