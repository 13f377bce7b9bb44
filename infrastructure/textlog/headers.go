package textlog

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/blackbox-log/blackbox-log-go/domain/entities"
	"github.com/blackbox-log/blackbox-log-go/domain/ports"
)

const firmwareDateLayout = "Jan _2 2006 15:04:05"

type headers struct {
	logger *slog.Logger
	data   []byte

	main, slow, gps entities.FrameDef
	hasGps          bool

	revision       string
	kind           entities.FirmwareKind
	version        entities.FirmwareVersion
	date           entities.FirmwareDate
	boardInfo      *string
	craftName      *string
	debugMode      string
	pwmProtocol    string
	disabledFields []string
	features       []string
	unknown        map[string]string
}

var _ ports.Headers = (*headers)(nil)

type frameFields struct {
	names  []string
	signed []bool
}

func parseHeaders(data []byte) (*headers, int, error) {
	line, pos := nextLine(data, 0)
	if string(line) != ProductLine {
		return nil, 0, ErrNotBlackbox
	}

	h := &headers{data: data, unknown: make(map[string]string)}
	fields := map[byte]*frameFields{'I': {}, 'S': {}, 'G': {}}
	var version string
	var haveVersion, haveRevision bool

	for pos < len(data) {
		line, next := nextLine(data, pos)
		key, value, ok := headerLine(line)
		if !ok {
			break
		}
		pos = next

		switch {
		case key == "Data version":
			version, haveVersion = value, true
		case strings.HasPrefix(key, "Field "):
			if !h.fieldHeader(fields, key, value) {
				h.unknown[key] = value
			}
		case key == "Firmware revision":
			if err := h.parseRevision(value); err != nil {
				return nil, 0, err
			}
			haveRevision = true
		case key == "Firmware date":
			if t, err := time.Parse(firmwareDateLayout, value); err == nil {
				h.date = entities.ParsedFirmwareDate(t)
			} else {
				h.date = entities.UnparsedFirmwareDate(value)
			}
		case key == "Firmware type":
		case key == "Board information":
			h.boardInfo = &value
		case key == "Craft name":
			h.craftName = &value
		case key == "debug_mode":
			h.debugMode = lookupName(debugModes, value)
		case key == "motor_pwm_protocol":
			h.pwmProtocol = lookupName(pwmProtocols, value)
		case key == "features":
			h.features = flagNames(featureFlags, value)
		case key == "disabled_fields":
			h.disabledFields = flagNames(disabledFieldFlags, value)
		default:
			h.unknown[key] = value
		}
	}

	if !haveVersion || version != SupportedDataVersion {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnsupportedVersion, version)
	}
	if !haveRevision {
		return nil, 0, fmt.Errorf("%w: missing firmware revision", ErrUnknownFirmware)
	}

	var err error
	if len(fields['I'].names) == 0 {
		return nil, 0, ErrMissingMainFrame
	}
	if h.main, err = fields['I'].def("main"); err != nil {
		return nil, 0, err
	}
	if h.slow, err = fields['S'].def("slow"); err != nil {
		return nil, 0, err
	}
	if len(fields['G'].names) > 0 {
		if h.gps, err = fields['G'].def("gps"); err != nil {
			return nil, 0, err
		}
		h.hasGps = true
	}
	if h.debugMode == "" {
		h.debugMode = debugModes[0]
	}
	if h.pwmProtocol == "" {
		h.pwmProtocol = pwmProtocols[0]
	}

	return h, pos, nil
}

// headerLine splits "H key:value". GPS home frames start with "H " too, but
// never contain a colon.
func headerLine(line []byte) (key, value string, ok bool) {
	rest, found := bytes.CutPrefix(line, []byte("H "))
	if !found {
		return "", "", false
	}
	k, v, found := bytes.Cut(rest, []byte{':'})
	if !found {
		return "", "", false
	}
	return string(k), string(v), true
}

func (h *headers) fieldHeader(fields map[byte]*frameFields, key, value string) bool {
	rest := strings.TrimPrefix(key, "Field ")
	if len(rest) < 3 || rest[1] != ' ' {
		return false
	}
	ff, ok := fields[rest[0]]
	if !ok {
		return false
	}
	switch rest[2:] {
	case "name":
		ff.names = strings.Split(value, ",")
	case "signed":
		ff.signed = ff.signed[:0]
		for _, s := range strings.Split(value, ",") {
			ff.signed = append(ff.signed, strings.TrimSpace(s) == "1")
		}
	default:
		return false
	}
	return true
}

func (ff *frameFields) def(kind string) (entities.FrameDef, error) {
	if ff.signed != nil && len(ff.signed) != len(ff.names) {
		return nil, fmt.Errorf("%w: %s frame has %d names but %d signedness flags",
			ErrFieldMismatch, kind, len(ff.names), len(ff.signed))
	}
	def := make(entities.FrameDef, len(ff.names))
	for i, name := range ff.names {
		def[i] = entities.FieldDef{Name: name, Unit: unitFor(name)}
		if ff.signed != nil {
			def[i].Signed = ff.signed[i]
		}
	}
	return def, nil
}

// parseRevision reads "<firmware> <major.minor.patch> ...".
func (h *headers) parseRevision(value string) error {
	parts := strings.Fields(value)
	if len(parts) < 2 {
		return fmt.Errorf("%w: %q", ErrUnknownFirmware, value)
	}
	switch strings.ToLower(parts[0]) {
	case "betaflight":
		h.kind = entities.FirmwareBetaflight
	case "inav":
		h.kind = entities.FirmwareInav
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFirmware, parts[0])
	}

	nums := strings.Split(parts[1], ".")
	if len(nums) != 3 {
		return fmt.Errorf("%w: invalid version %q", ErrUnknownFirmware, parts[1])
	}
	var v [3]uint32
	for i, n := range nums {
		x, err := strconv.ParseUint(n, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: invalid version %q", ErrUnknownFirmware, parts[1])
		}
		v[i] = uint32(x)
	}
	h.revision = value
	h.version = entities.FirmwareVersion{Major: v[0], Minor: v[1], Patch: v[2]}
	return nil
}

func (h *headers) MainFrameDef() entities.FrameDef { return h.main }
func (h *headers) SlowFrameDef() entities.FrameDef { return h.slow }

func (h *headers) GpsFrameDef() (entities.FrameDef, bool) { return h.gps, h.hasGps }

func (h *headers) FirmwareRevision() string                  { return h.revision }
func (h *headers) FirmwareKind() entities.FirmwareKind       { return h.kind }
func (h *headers) FirmwareVersion() entities.FirmwareVersion { return h.version }
func (h *headers) FirmwareDate() entities.FirmwareDate       { return h.date }

func (h *headers) BoardInfo() (string, bool) { return optional(h.boardInfo) }
func (h *headers) CraftName() (string, bool) { return optional(h.craftName) }

func (h *headers) DebugMode() string          { return h.debugMode }
func (h *headers) PwmProtocol() string        { return h.pwmProtocol }
func (h *headers) DisabledFields() []string   { return h.disabledFields }
func (h *headers) Features() []string         { return h.features }
func (h *headers) Unknown() map[string]string { return h.unknown }

func (h *headers) DataParser(c ports.Cursor, filters entities.FilterSet) ports.Decoder {
	pos := 0
	if tc, ok := c.(*cursor); ok {
		pos = tc.pos
	}
	return newDecoder(h, pos, filters)
}

func optional(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}
