package entities

import (
	"fmt"
	"time"
)

// FirmwareKind identifies the flight controller firmware family.
type FirmwareKind uint32

const (
	FirmwareBetaflight FirmwareKind = 0
	FirmwareInav       FirmwareKind = 1
)

// FirmwareKinds lists every defined firmware kind in code order.
var FirmwareKinds = []FirmwareKind{FirmwareBetaflight, FirmwareInav}

// ParseFirmwareKind decodes a boundary value.
func ParseFirmwareKind(raw uint32) (FirmwareKind, error) {
	switch k := FirmwareKind(raw); k {
	case FirmwareBetaflight, FirmwareInav:
		return k, nil
	default:
		return 0, fmt.Errorf("invalid firmware kind: %d", raw)
	}
}

func (k FirmwareKind) String() string {
	switch k {
	case FirmwareBetaflight:
		return "Betaflight"
	case FirmwareInav:
		return "INAV"
	default:
		return fmt.Sprintf("FirmwareKind(%d)", uint32(k))
	}
}

// MarshalText encodes the kind by name.
func (k FirmwareKind) MarshalText() ([]byte, error) {
	if _, err := ParseFirmwareKind(uint32(k)); err != nil {
		return nil, err
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a firmware name as written by MarshalText.
func (k *FirmwareKind) UnmarshalText(text []byte) error {
	for _, kind := range FirmwareKinds {
		if kind.String() == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown firmware kind %q", text)
}

// FirmwareVersion is a semantic firmware version.
type FirmwareVersion struct {
	Major uint32 `json:"major" yaml:"major"`
	Minor uint32 `json:"minor" yaml:"minor"`
	Patch uint32 `json:"patch" yaml:"patch"`
}

func (v FirmwareVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// FirmwareDateKind is the discriminant of FirmwareDate.
type FirmwareDateKind uint32

const (
	FirmwareDateNone     FirmwareDateKind = 0
	FirmwareDateParsed   FirmwareDateKind = 1
	FirmwareDateUnparsed FirmwareDateKind = 2
)

// FirmwareDate is the firmware build date. A log may omit it, or carry a
// value the engine could not parse, in which case Raw holds the original text.
type FirmwareDate struct {
	Kind FirmwareDateKind `json:"kind" yaml:"kind"`
	Time time.Time        `json:"time,omitzero" yaml:"time,omitempty"`
	Raw  string           `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// NoFirmwareDate is the absent date.
func NoFirmwareDate() FirmwareDate { return FirmwareDate{Kind: FirmwareDateNone} }

// ParsedFirmwareDate wraps a successfully parsed date. Sub-second precision
// is dropped since the boundary record only carries whole seconds.
func ParsedFirmwareDate(t time.Time) FirmwareDate {
	return FirmwareDate{Kind: FirmwareDateParsed, Time: t.UTC().Truncate(time.Second)}
}

// UnparsedFirmwareDate keeps the raw header text.
func UnparsedFirmwareDate(raw string) FirmwareDate {
	return FirmwareDate{Kind: FirmwareDateUnparsed, Raw: raw}
}

func (d FirmwareDate) String() string {
	switch d.Kind {
	case FirmwareDateParsed:
		return d.Time.Format(time.RFC3339)
	case FirmwareDateUnparsed:
		return d.Raw
	default:
		return ""
	}
}
