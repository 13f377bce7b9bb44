package entities

import "fmt"

// FrameKind identifies a telemetry record category. The numeric values are
// part of the boundary contract and must not change.
type FrameKind uint32

const (
	FrameKindMain FrameKind = 0
	FrameKindSlow FrameKind = 1
	FrameKindGps  FrameKind = 2
)

// FrameKinds lists every defined frame kind in code order.
var FrameKinds = []FrameKind{FrameKindMain, FrameKindSlow, FrameKindGps}

// ParseFrameKind decodes a boundary value. Undefined codes are rejected.
func ParseFrameKind(raw uint32) (FrameKind, error) {
	switch k := FrameKind(raw); k {
	case FrameKindMain, FrameKindSlow, FrameKindGps:
		return k, nil
	default:
		return 0, fmt.Errorf("invalid frame kind: %d", raw)
	}
}

// String returns the lower-case name used in logs and JSON output.
func (k FrameKind) String() string {
	switch k {
	case FrameKindMain:
		return "main"
	case FrameKindSlow:
		return "slow"
	case FrameKindGps:
		return "gps"
	default:
		return fmt.Sprintf("FrameKind(%d)", uint32(k))
	}
}

// MarshalText encodes the kind by name.
func (k FrameKind) MarshalText() ([]byte, error) {
	if _, err := ParseFrameKind(uint32(k)); err != nil {
		return nil, err
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a frame kind name.
func (k *FrameKind) UnmarshalText(text []byte) error {
	for _, kind := range FrameKinds {
		if kind.String() == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown frame kind %q", text)
}

// FieldDef describes one decoded field of a frame.
type FieldDef struct {
	Name   string `json:"name" yaml:"name"`
	Signed bool   `json:"signed" yaml:"signed"`
	Unit   Unit   `json:"unit" yaml:"unit"`
}

// FrameDef is the ordered field layout of a frame kind.
type FrameDef []FieldDef

// Names returns the field names in declaration order.
func (d FrameDef) Names() []string {
	names := make([]string, len(d))
	for i, f := range d {
		names[i] = f.Name
	}
	return names
}

// Index returns the position of the named field, or -1.
func (d FrameDef) Index(name string) int {
	for i, f := range d {
		if f.Name == name {
			return i
		}
	}
	return -1
}
