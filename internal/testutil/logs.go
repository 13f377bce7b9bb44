package testutil

import (
	"bytes"
	"slices"
	"strings"
)

const productLine = "H Product:Blackbox flight data recorder by Nicholas Sherlock"

// Default field layouts of generated logs.
var (
	MainFields = []string{"loopIteration", "time", "gyroADC[0]", "motor0", "motor1"}
	SlowFields = []string{"flightModeFlags", "stateFlags", "failsafePhase", "rxSignalReceived"}
	GpsFields  = []string{"time", "GPS_numSat", "GPS_coord[0]", "GPS_coord[1]", "GPS_altitude", "GPS_speed", "GPS_ground_course"}
)

type header struct{ key, value string }

// LogBuilder renders text blackbox logs for tests.
type LogBuilder struct {
	headers []header
	frames  []string
	gps     bool
}

// NewLog returns a builder with a complete Betaflight header block, no GPS
// definition, and DefaultFrames.
func NewLog() *LogBuilder {
	return &LogBuilder{
		headers: []header{
			{"Data version", "2"},
			{"Firmware type", "Cleanflight"},
			{"Firmware revision", "Betaflight 4.2.9 (a1b2c3d4e) STM32F7X2"},
			{"Firmware date", "Oct 19 2021 20:26:55"},
			{"Board information", "MTKS MATEKH743"},
			{"Craft name", "quad"},
			{"Field I name", strings.Join(MainFields, ",")},
			{"Field I signed", "0,0,1,0,0"},
			{"Field S name", strings.Join(SlowFields, ",")},
			{"Field S signed", "0,0,0,0"},
			{"looptime", "125"},
			{"debug_mode", "6"},
			{"motor_pwm_protocol", "7"},
			{"features", "4456472"},
			{"disabled_fields", "4112"},
			{"vbat_scale", "110"},
		},
		frames: DefaultFrames(false),
	}
}

// DefaultFrames is a short flight: three valid main frames, a slow frame,
// an event and a malformed main frame. With gps it adds a GPS home frame and
// a GPS frame.
func DefaultFrames(gps bool) []string {
	frames := []string{
		"I 0,1000000,-5,1200,1300",
		"S 1,2,0,1",
		"I 1,1002000,3,1210,1310",
		"E 14,sync",
	}
	if gps {
		frames = append(frames,
			"H 473000000,-1220000000",
			"G 1003000,8,473000123,-1220000456,120,55,900",
		)
	}
	return append(frames,
		"I 2,1004000,oops,1215,1315",
		"I 3,1006000,7,1220,1320",
	)
}

// WithGps declares a GPS frame and switches to the GPS default frames.
func (b *LogBuilder) WithGps() *LogBuilder {
	if !b.gps {
		b.headers = append(b.headers,
			header{"Field G name", strings.Join(GpsFields, ",")},
			header{"Field G signed", "0,0,1,1,0,0,0"},
		)
		b.gps = true
		b.frames = DefaultFrames(true)
	}
	return b
}

// Header sets a header value, adding it when absent.
func (b *LogBuilder) Header(key, value string) *LogBuilder {
	for i := range b.headers {
		if b.headers[i].key == key {
			b.headers[i].value = value
			return b
		}
	}
	b.headers = append(b.headers, header{key, value})
	return b
}

// Without removes a header.
func (b *LogBuilder) Without(key string) *LogBuilder {
	b.headers = slices.DeleteFunc(b.headers, func(h header) bool { return h.key == key })
	return b
}

// Frames replaces the frame lines.
func (b *LogBuilder) Frames(lines ...string) *LogBuilder {
	b.frames = lines
	return b
}

// Bytes renders the log.
func (b *LogBuilder) Bytes() []byte {
	var buf bytes.Buffer
	buf.WriteString(productLine + "\n")
	for _, h := range b.headers {
		buf.WriteString("H " + h.key + ":" + h.value + "\n")
	}
	for _, f := range b.frames {
		buf.WriteString(f + "\n")
	}
	return buf.Bytes()
}

// Concat joins several logs into one file.
func Concat(logs ...[]byte) []byte {
	return bytes.Join(logs, nil)
}
