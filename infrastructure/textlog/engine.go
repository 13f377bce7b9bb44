// Package textlog is a line-oriented blackbox log engine.
//
// A log is a block of "H key:value" header lines introduced by the product
// line, followed by one frame per line: "I"/"P" main, "S" slow, "G" GPS,
// "H" GPS home (no colon) and "E" event frames, each carrying comma
// separated decimal field values. Malformed frames are skipped.
package textlog

import (
	"bytes"
	"errors"
	"log/slog"

	"github.com/blackbox-log/blackbox-log-go/domain/ports"
)

// ProductLine starts every log.
const ProductLine = "H Product:Blackbox flight data recorder by Nicholas Sherlock"

// SupportedDataVersion is the only accepted "Data version" header value.
const SupportedDataVersion = "2"

var (
	ErrNotBlackbox        = errors.New("not a blackbox log: missing product header")
	ErrUnsupportedVersion = errors.New("unsupported data version")
	ErrMissingMainFrame   = errors.New("missing main frame definition")
	ErrUnknownFirmware    = errors.New("unknown firmware")
	ErrFieldMismatch      = errors.New("field definition mismatch")
)

// Engine implements ports.Engine.
type Engine struct {
	logger *slog.Logger
}

var _ ports.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used to report skipped frames at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an engine.
func New(opts ...Option) *Engine {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LogOffsets implements ports.Engine.
func (e *Engine) LogOffsets(data []byte) []int {
	var offsets []int
	product := []byte(ProductLine)
	for pos := 0; pos < len(data); {
		i := bytes.Index(data[pos:], product)
		if i < 0 {
			break
		}
		at := pos + i
		if at == 0 || data[at-1] == '\n' {
			offsets = append(offsets, at)
		}
		pos = at + len(product)
	}
	if len(offsets) == 0 {
		return []int{0}
	}
	return offsets
}

// ParseHeaders implements ports.Engine.
func (e *Engine) ParseHeaders(data []byte) (ports.Headers, ports.Cursor, error) {
	h, pos, err := parseHeaders(data)
	if err != nil {
		return nil, nil, err
	}
	h.logger = e.logger
	return h, &cursor{pos: pos}, nil
}

type cursor struct {
	pos int
}

func (c *cursor) Clone() ports.Cursor {
	return &cursor{pos: c.pos}
}

// nextLine returns the line starting at pos without its terminator, and the
// position of the following line.
func nextLine(data []byte, pos int) (line []byte, next int) {
	i := bytes.IndexByte(data[pos:], '\n')
	if i < 0 {
		line, next = data[pos:], len(data)
	} else {
		line, next = data[pos:pos+i], pos+i+1
	}
	return bytes.TrimSuffix(line, []byte{'\r'}), next
}
