package host

import (
	"context"

	"github.com/blackbox-log/blackbox-log-go/domain/entities"
	"github.com/blackbox-log/blackbox-log-go/internal/abi"
	"github.com/blackbox-log/blackbox-log-go/wireformat"
)

// LogHeaders is a guest headers handle.
type LogHeaders struct {
	c      *Client
	handle uint32
}

func (h *LogHeaders) call(ctx context.Context, export string) (uint64, error) {
	return h.c.call(ctx, export, uint64(h.handle))
}

// scalar resolves a string view owned by the handle. ok is false for an
// absent optional header.
func (h *LogHeaders) scalar(ctx context.Context, export string) (value string, ok bool, err error) {
	packed, err := h.call(ctx, export)
	if err != nil {
		return "", false, err
	}
	s := abi.UnpackStr(packed)
	if s.Absent() {
		return "", false, nil
	}
	value, err = h.c.readStr(ctx, s)
	return value, err == nil, err
}

func (h *LogHeaders) required(ctx context.Context, export string) (string, error) {
	v, _, err := h.scalar(ctx, export)
	return v, err
}

// FirmwareRevision returns the full firmware revision string.
func (h *LogHeaders) FirmwareRevision(ctx context.Context) (string, error) {
	return h.required(ctx, "headers_firmwareRevision")
}

// DebugMode returns the configured debug mode name.
func (h *LogHeaders) DebugMode(ctx context.Context) (string, error) {
	return h.required(ctx, "headers_debugMode")
}

// PwmProtocol returns the motor protocol name.
func (h *LogHeaders) PwmProtocol(ctx context.Context) (string, error) {
	return h.required(ctx, "headers_pwmProtocol")
}

// BoardInfo returns the board information, if present.
func (h *LogHeaders) BoardInfo(ctx context.Context) (string, bool, error) {
	return h.scalar(ctx, "headers_boardInfo")
}

// CraftName returns the craft name, if present.
func (h *LogHeaders) CraftName(ctx context.Context) (string, bool, error) {
	return h.scalar(ctx, "headers_craftName")
}

// FirmwareKind returns the firmware family.
func (h *LogHeaders) FirmwareKind(ctx context.Context) (entities.FirmwareKind, error) {
	raw, err := h.call(ctx, "headers_firmwareKind")
	if err != nil {
		return 0, err
	}
	return entities.ParseFirmwareKind(uint32(raw))
}

// FirmwareDate returns the firmware build date.
func (h *LogHeaders) FirmwareDate(ctx context.Context) (entities.FirmwareDate, error) {
	packed, err := h.c.callChecked(ctx, "headers_firmwareDate", uint64(h.handle))
	if err != nil {
		return entities.FirmwareDate{}, err
	}
	b, err := h.c.takeRecord(ctx, packed)
	if err != nil {
		return entities.FirmwareDate{}, err
	}
	rec, err := wireformat.ReadDate(b)
	if err != nil {
		return entities.FirmwareDate{}, err
	}
	raw, err := h.c.readStr(ctx, rec.Raw)
	if err != nil {
		return entities.FirmwareDate{}, err
	}
	return rec.FirmwareDate(raw), nil
}

// FirmwareVersion returns the parsed firmware version.
func (h *LogHeaders) FirmwareVersion(ctx context.Context) (entities.FirmwareVersion, error) {
	packed, err := h.c.callChecked(ctx, "headers_firmwareVersion", uint64(h.handle))
	if err != nil {
		return entities.FirmwareVersion{}, err
	}
	b, err := h.c.takeRecord(ctx, packed)
	if err != nil {
		return entities.FirmwareVersion{}, err
	}
	return wireformat.ReadVersion(b)
}

// FrameDef returns the declared field layout of kind. A log without GPS
// frames has an empty GPS definition.
func (h *LogHeaders) FrameDef(ctx context.Context, kind entities.FrameKind) (entities.FrameDef, error) {
	packed, err := h.c.callChecked(ctx, "headers_"+kind.String()+"Def", uint64(h.handle))
	if err != nil {
		return nil, err
	}
	return h.c.readFrameDef(ctx, packed)
}

// DisabledFields returns the names of the disabled field groups.
func (h *LogHeaders) DisabledFields(ctx context.Context) ([]string, error) {
	return h.strs(ctx, "headers_disabledFields")
}

// Features returns the names of the enabled features.
func (h *LogHeaders) Features(ctx context.Context) ([]string, error) {
	return h.strs(ctx, "headers_features")
}

func (h *LogHeaders) strs(ctx context.Context, export string) ([]string, error) {
	packed, err := h.c.callChecked(ctx, export, uint64(h.handle))
	if err != nil {
		return nil, err
	}
	return h.c.readStrs(ctx, packed)
}

// Unknown returns the unrecognised headers sorted by key.
func (h *LogHeaders) Unknown(ctx context.Context) ([]entities.UnknownHeader, error) {
	packed, err := h.c.callChecked(ctx, "headers_unknown", uint64(h.handle))
	if err != nil {
		return nil, err
	}
	b, count, err := h.c.take(ctx, packed, wireformat.UnknownHeaderSize, "unknownHeaders_free")
	if err != nil {
		return nil, err
	}
	recs, err := wireformat.ReadUnknownHeaders(b, count)
	if err != nil {
		return nil, err
	}
	out := make([]entities.UnknownHeader, len(recs))
	for i, r := range recs {
		if out[i].Key, err = h.c.readStr(ctx, r.Key); err != nil {
			return nil, err
		}
		if out[i].Value, err = h.c.readStr(ctx, r.Value); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Summary reads every projection into one snapshot.
func (h *LogHeaders) Summary(ctx context.Context) (entities.HeaderSummary, error) {
	var (
		s   entities.HeaderSummary
		err error
	)
	steps := []func() error{
		func() (err error) { s.FirmwareRevision, err = h.FirmwareRevision(ctx); return },
		func() (err error) { s.FirmwareKind, err = h.FirmwareKind(ctx); return },
		func() (err error) { s.FirmwareVersion, err = h.FirmwareVersion(ctx); return },
		func() (err error) { s.FirmwareDate, err = h.FirmwareDate(ctx); return },
		func() error { return optional(&s.BoardInfo, func() (string, bool, error) { return h.BoardInfo(ctx) }) },
		func() error { return optional(&s.CraftName, func() (string, bool, error) { return h.CraftName(ctx) }) },
		func() (err error) { s.DebugMode, err = h.DebugMode(ctx); return },
		func() (err error) { s.PwmProtocol, err = h.PwmProtocol(ctx); return },
		func() (err error) { s.DisabledFields, err = h.DisabledFields(ctx); return },
		func() (err error) { s.Features, err = h.Features(ctx); return },
		func() (err error) { s.Unknown, err = h.Unknown(ctx); return },
		func() (err error) { s.MainFrameDef, err = h.FrameDef(ctx, entities.FrameKindMain); return },
		func() (err error) { s.SlowFrameDef, err = h.FrameDef(ctx, entities.FrameKindSlow); return },
		func() (err error) { s.GpsFrameDef, err = h.FrameDef(ctx, entities.FrameKindGps); return },
	}
	for _, step := range steps {
		if err = step(); err != nil {
			return entities.HeaderSummary{}, err
		}
	}
	return s, nil
}

func optional(dst **string, get func() (string, bool, error)) error {
	v, ok, err := get()
	if err != nil {
		return err
	}
	if ok {
		*dst = &v
	}
	return nil
}

// DataParser starts decoding the log's frames. A nil filter set, or a nil
// filter for a kind, decodes every field of that kind.
func (h *LogHeaders) DataParser(ctx context.Context, filters *entities.FilterSet) (*DataParser, error) {
	var builder uint32
	if filters != nil {
		var err error
		if builder, err = h.c.newFilter(ctx, *filters); err != nil {
			return nil, err
		}
	}
	packed, err := h.c.callChecked(ctx, "data_new", uint64(h.handle), uint64(builder))
	if err != nil {
		return nil, err
	}
	parser, eventPtr := abi.Unpack(packed)
	return newDataParser(ctx, h.c, parser, eventPtr)
}

// Close frees the headers handle. Parsers built from it stay valid.
func (h *LogHeaders) Close(ctx context.Context) error {
	return h.c.closeHandle(ctx, "headers_free", h.handle)
}
