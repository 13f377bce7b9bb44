// Package headers projects an engine's parsed log headers into boundary
// values and builds data parsers from them.
package headers

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/blackbox-log/blackbox-log-go/application/data"
	"github.com/blackbox-log/blackbox-log-go/domain/entities"
	"github.com/blackbox-log/blackbox-log-go/domain/errors"
	"github.com/blackbox-log/blackbox-log-go/domain/ports"
	"github.com/blackbox-log/blackbox-log-go/internal/abi"
	"github.com/blackbox-log/blackbox-log-go/internal/shared"
	"github.com/blackbox-log/blackbox-log-go/wireformat"
)

// Scalar names a string-valued header projection.
type Scalar int

const (
	FirmwareRevision Scalar = iota
	DebugMode
	PwmProtocol
	BoardInfo
	CraftName
	scalarCount
)

// Option configures a Headers projection.
type Option func(*Headers)

// WithLogger sets the logger used by the projection and its parsers.
func WithLogger(l *slog.Logger) Option {
	return func(h *Headers) {
		if l != nil {
			h.logger = l
		}
	}
}

// Headers is the immutable projection of one log's headers. It holds its own
// handles on the engine headers and the raw bytes; parsers built from it
// hold further handles, so closing the projection first is harmless.
type Headers struct {
	logger  *slog.Logger
	headers *shared.Shared[ports.Headers]
	raw     *shared.Shared[*abi.Buffer]
	cursor  ports.Cursor

	// strs backs every view handed out by the projection.
	strs    *abi.StrTable
	scalars [scalarCount]abi.Str
	rawDate abi.Str
	unknown []entities.UnknownHeader

	closed bool
}

// Parse parses the headers at the start of buf. On success the projection
// owns buf; on failure buf is left to the caller.
func Parse(engine ports.Engine, buf *abi.Buffer, opts ...Option) (*Headers, error) {
	ph, cursor, err := engine.ParseHeaders(buf.Bytes())
	if err != nil {
		return nil, &errors.HeaderParseError{Err: err, Log: -1}
	}
	h, err := project(ph, cursor, opts)
	if err != nil {
		return nil, err
	}
	h.raw = shared.New(buf, func(b *abi.Buffer) { b.Free() })
	return h, nil
}

// Open parses the headers of log number index of a multi-log file. data is
// the log's slice of the bytes held by raw; on success the projection takes
// its own handle on raw.
func Open(engine ports.Engine, raw *shared.Shared[*abi.Buffer], data []byte, index int, opts ...Option) (*Headers, error) {
	ph, cursor, err := engine.ParseHeaders(data)
	if err != nil {
		return nil, &errors.HeaderParseError{Err: err, Log: index}
	}
	h, err := project(ph, cursor, opts)
	if err != nil {
		return nil, err
	}
	h.raw = raw.Clone()
	return h, nil
}

func project(ph ports.Headers, cursor ports.Cursor, opts []Option) (*Headers, error) {
	h := &Headers{
		logger:  slog.Default(),
		headers: shared.New(ph, nil),
		cursor:  cursor,
		strs:    abi.NewStrTable(),
	}
	for _, opt := range opts {
		opt(h)
	}

	for k, v := range ph.Unknown() {
		h.unknown = append(h.unknown, entities.UnknownHeader{Key: k, Value: v})
	}
	slices.SortFunc(h.unknown, func(a, b entities.UnknownHeader) int { return cmp.Compare(a.Key, b.Key) })

	if err := h.intern(); err != nil {
		h.strs.Free()
		h.headers.Release()
		return nil, err
	}
	return h, nil
}

// intern pins every scalar up front so accessors never allocate.
func (h *Headers) intern() error {
	ph := h.headers.Get()
	values := [scalarCount]struct {
		s  string
		ok bool
	}{
		FirmwareRevision: {ph.FirmwareRevision(), true},
		DebugMode:        {ph.DebugMode(), true},
		PwmProtocol:      {ph.PwmProtocol(), true},
	}
	values[BoardInfo].s, values[BoardInfo].ok = ph.BoardInfo()
	values[CraftName].s, values[CraftName].ok = ph.CraftName()

	for i, v := range values {
		if !v.ok {
			continue
		}
		s, err := h.strs.Intern(v.s)
		if err != nil {
			return err
		}
		h.scalars[i] = s
	}

	if d := ph.FirmwareDate(); d.Kind == entities.FirmwareDateUnparsed {
		s, err := h.strs.Intern(d.Raw)
		if err != nil {
			return err
		}
		h.rawDate = s
	}
	return nil
}

// Engine returns the engine's headers.
func (h *Headers) Engine() ports.Headers { return h.headers.Get() }

// MainFrameDef returns the declared main frame layout.
func (h *Headers) MainFrameDef() entities.FrameDef { return h.Engine().MainFrameDef() }

// SlowFrameDef returns the declared slow frame layout.
func (h *Headers) SlowFrameDef() entities.FrameDef { return h.Engine().SlowFrameDef() }

// GpsFrameDef returns the declared GPS frame layout; empty when the log has
// no GPS frames.
func (h *Headers) GpsFrameDef() entities.FrameDef {
	if def, ok := h.Engine().GpsFrameDef(); ok {
		return def
	}
	return entities.FrameDef{}
}

// FrameDef returns the declared layout of kind.
func (h *Headers) FrameDef(kind entities.FrameKind) entities.FrameDef {
	switch kind {
	case entities.FrameKindMain:
		return h.MainFrameDef()
	case entities.FrameKindSlow:
		return h.SlowFrameDef()
	default:
		return h.GpsFrameDef()
	}
}

func (h *Headers) FirmwareRevision() string { return h.Engine().FirmwareRevision() }

func (h *Headers) FirmwareKind() entities.FirmwareKind { return h.Engine().FirmwareKind() }

func (h *Headers) FirmwareVersion() entities.FirmwareVersion { return h.Engine().FirmwareVersion() }

func (h *Headers) FirmwareDate() entities.FirmwareDate { return h.Engine().FirmwareDate() }

func (h *Headers) BoardInfo() (string, bool) { return h.Engine().BoardInfo() }

func (h *Headers) CraftName() (string, bool) { return h.Engine().CraftName() }

func (h *Headers) DebugMode() string { return h.Engine().DebugMode() }

func (h *Headers) PwmProtocol() string { return h.Engine().PwmProtocol() }

func (h *Headers) DisabledFields() []string { return h.Engine().DisabledFields() }

func (h *Headers) Features() []string { return h.Engine().Features() }

// UnknownHeaders returns the unrecognised headers sorted by key.
func (h *Headers) UnknownHeaders() []entities.UnknownHeader { return h.unknown }

// Summary snapshots every projection.
func (h *Headers) Summary() entities.HeaderSummary {
	s := entities.HeaderSummary{
		FirmwareRevision: h.FirmwareRevision(),
		FirmwareKind:     h.FirmwareKind(),
		FirmwareVersion:  h.FirmwareVersion(),
		FirmwareDate:     h.FirmwareDate(),
		DebugMode:        h.DebugMode(),
		PwmProtocol:      h.PwmProtocol(),
		DisabledFields:   h.DisabledFields(),
		Features:         h.Features(),
		Unknown:          h.UnknownHeaders(),
		MainFrameDef:     h.MainFrameDef(),
		SlowFrameDef:     h.SlowFrameDef(),
		GpsFrameDef:      h.GpsFrameDef(),
	}
	if v, ok := h.BoardInfo(); ok {
		s.BoardInfo = &v
	}
	if v, ok := h.CraftName(); ok {
		s.CraftName = &v
	}
	return s
}

// View returns the boundary view of a scalar. Views are owned by the
// projection; optional scalars that are absent view as a zero Str.
func (h *Headers) View(s Scalar) abi.Str {
	if s < 0 || s >= scalarCount {
		return abi.Str{}
	}
	return h.scalars[s]
}

// FrameDefRecord pins the declared layout of kind as a FieldDef array.
func (h *Headers) FrameDefRecord(kind entities.FrameKind) (*abi.Buffer, error) {
	return wireformat.PutFrameDef(h.FrameDef(kind), h.strs)
}

// DisabledFieldsRecord pins the disabled field names as a Str array.
func (h *Headers) DisabledFieldsRecord() (*abi.Buffer, error) {
	return wireformat.PutStrs(h.DisabledFields(), h.strs)
}

// FeaturesRecord pins the feature names as a Str array.
func (h *Headers) FeaturesRecord() (*abi.Buffer, error) {
	return wireformat.PutStrs(h.Features(), h.strs)
}

// UnknownRecord pins the unknown headers, sorted by key.
func (h *Headers) UnknownRecord() (*abi.Buffer, error) {
	return wireformat.PutUnknownHeaders(h.unknown, h.strs)
}

// DateRecord pins the firmware date record.
func (h *Headers) DateRecord() (*abi.Buffer, error) {
	return wireformat.PutRecord(wireformat.NewDateRecord(h.FirmwareDate(), h.rawDate))
}

// VersionRecord pins the firmware version record.
func (h *Headers) VersionRecord() (*abi.Buffer, error) {
	return wireformat.PutRecord(wireformat.VersionRecord(h.FirmwareVersion()))
}

// DataParser builds a parser reading the frames after the header block.
// A nil filter set decodes every field.
func (h *Headers) DataParser(filters *entities.FilterSet) (*data.Parser, error) {
	var fs entities.FilterSet
	if filters != nil {
		fs = *filters
	}
	ph := h.headers.Get()
	decoder := ph.DataParser(h.cursor.Clone(), fs)
	h.logger.Debug("data parser created",
		"main_fields", len(decoder.MainFrameDef()),
		"slow_fields", len(decoder.SlowFrameDef()))
	return data.New(decoder, h.headers.Clone(), h.raw.Clone(), data.WithLogger(h.logger))
}

// Close releases the projection's own handles. Parsers built from it stay
// valid. Closing twice is a no-op.
func (h *Headers) Close() {
	if h.closed {
		return
	}
	h.closed = true
	h.headers.Release()
	h.raw.Release()
	h.strs.Free()
}
