package ports

import "github.com/blackbox-log/blackbox-log-go/domain/entities"

// Engine is the telemetry log parsing engine. The marshalling layer never
// interprets log contents itself; everything it exposes comes from here.
type Engine interface {
	// LogOffsets returns the start offset of every log contained in data.
	// A file without a recognisable log start yields a single offset 0 so the
	// header parser can report the failure.
	LogOffsets(data []byte) []int

	// ParseHeaders parses the header block at the start of data. On success
	// the returned cursor is positioned just after the header block. The
	// headers may keep references into data; callers must keep data alive
	// for as long as the headers and every decoder built from them.
	ParseHeaders(data []byte) (Headers, Cursor, error)
}

// Cursor is a read position into the log bytes following the header block.
type Cursor interface {
	// Clone returns an independent cursor at the same position.
	Clone() Cursor
}

// Headers is the engine's parsed header metadata. Implementations are
// immutable after parsing.
type Headers interface {
	MainFrameDef() entities.FrameDef
	SlowFrameDef() entities.FrameDef
	// GpsFrameDef returns false when the log declares no GPS frames.
	GpsFrameDef() (entities.FrameDef, bool)

	FirmwareRevision() string
	FirmwareKind() entities.FirmwareKind
	FirmwareVersion() entities.FirmwareVersion
	FirmwareDate() entities.FirmwareDate
	BoardInfo() (string, bool)
	CraftName() (string, bool)
	DebugMode() string
	PwmProtocol() string
	// DisabledFields and Features project flag sets as names in flag order.
	DisabledFields() []string
	Features() []string
	// Unknown returns unrecognised headers in no particular order.
	Unknown() map[string]string

	// DataParser builds a frame decoder reading from cursor. The decoder
	// borrows these headers.
	DataParser(cursor Cursor, filters entities.FilterSet) Decoder
}

// Frame is one decoded unit. The Fields slice is owned by the engine and is
// only valid until the next call to Decoder.Next.
type Frame struct {
	Kind entities.EventKind
	// Time is in seconds; only meaningful for main and GPS frames.
	Time   float64
	Fields []uint32
}

// Decoder pulls decoded frames. Malformed frames are skipped internally.
type Decoder interface {
	// Next returns the next unit, or false once the stream is exhausted.
	Next() (Frame, bool)
	Stats() entities.Stats

	// Frame definitions after filtering.
	MainFrameDef() entities.FrameDef
	SlowFrameDef() entities.FrameDef
	GpsFrameDef() (entities.FrameDef, bool)
}
