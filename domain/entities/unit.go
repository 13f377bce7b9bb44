package entities

import "fmt"

// Unit is the physical unit tag of a field.
// NOTE: the codes are mirrored by host-side decoders; append only.
type Unit uint8

const (
	UnitUnitless Unit = iota
	UnitAcceleration
	UnitAltitude
	UnitAmperage
	UnitBoolean
	UnitFailsafePhase
	UnitFlightMode
	UnitGpsCoordinate
	UnitGpsHeading
	UnitRotation
	UnitState
	UnitVelocity
	UnitVoltage
)

var unitNames = [...]string{
	UnitUnitless:      "unitless",
	UnitAcceleration:  "acceleration",
	UnitAltitude:      "altitude",
	UnitAmperage:      "amperage",
	UnitBoolean:       "boolean",
	UnitFailsafePhase: "failsafePhase",
	UnitFlightMode:    "flightMode",
	UnitGpsCoordinate: "gpsCoordinate",
	UnitGpsHeading:    "gpsHeading",
	UnitRotation:      "rotation",
	UnitState:         "state",
	UnitVelocity:      "velocity",
	UnitVoltage:       "voltage",
}

// Units lists every defined unit in code order.
func Units() []Unit {
	units := make([]Unit, len(unitNames))
	for i := range unitNames {
		units[i] = Unit(i)
	}
	return units
}

// ParseUnit decodes a boundary value.
func ParseUnit(raw uint8) (Unit, error) {
	if int(raw) >= len(unitNames) {
		return UnitUnitless, fmt.Errorf("invalid unit: %d", raw)
	}
	return Unit(raw), nil
}

// UnitFromName is the inverse of Unit.String.
func UnitFromName(name string) (Unit, bool) {
	for i, n := range unitNames {
		if n == name {
			return Unit(i), true
		}
	}
	return UnitUnitless, false
}

func (u Unit) String() string {
	if int(u) < len(unitNames) {
		return unitNames[u]
	}
	return fmt.Sprintf("Unit(%d)", uint8(u))
}

// MarshalText encodes the unit by name so JSON and YAML output stay readable.
func (u Unit) MarshalText() ([]byte, error) {
	if int(u) >= len(unitNames) {
		return nil, fmt.Errorf("invalid unit: %d", uint8(u))
	}
	return []byte(unitNames[u]), nil
}

// UnmarshalText decodes a unit name.
func (u *Unit) UnmarshalText(text []byte) error {
	parsed, ok := UnitFromName(string(text))
	if !ok {
		return fmt.Errorf("unknown unit %q", text)
	}
	*u = parsed
	return nil
}
