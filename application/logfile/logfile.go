// Package logfile splits a blackbox file into its logs.
package logfile

import (
	"fmt"
	"log/slog"

	"github.com/blackbox-log/blackbox-log-go/application/headers"
	"github.com/blackbox-log/blackbox-log-go/domain/errors"
	"github.com/blackbox-log/blackbox-log-go/domain/ports"
	"github.com/blackbox-log/blackbox-log-go/internal/abi"
	"github.com/blackbox-log/blackbox-log-go/internal/shared"
)

// Option configures a File.
type Option func(*File)

// WithLogger sets the logger passed down to every header projection.
func WithLogger(l *slog.Logger) Option {
	return func(f *File) {
		if l != nil {
			f.logger = l
		}
	}
}

// File owns the raw bytes of a file of one or more logs. Header projections
// opened from it share the bytes and outlive Close.
type File struct {
	logger  *slog.Logger
	engine  ports.Engine
	raw     *shared.Shared[*abi.Buffer]
	offsets []int
	closed  bool
}

// New takes ownership of buf.
func New(engine ports.Engine, buf *abi.Buffer, opts ...Option) *File {
	f := &File{
		logger:  slog.Default(),
		engine:  engine,
		raw:     shared.New(buf, func(b *abi.Buffer) { b.Free() }),
		offsets: engine.LogOffsets(buf.Bytes()),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger.Debug("log file opened", "bytes", buf.Len(), "logs", len(f.offsets))
	return f
}

// LogCount returns the number of logs in the file.
func (f *File) LogCount() int { return len(f.offsets) }

// Headers parses the headers of log index.
func (f *File) Headers(index int) (*headers.Headers, error) {
	if f.closed {
		return nil, &errors.MisuseError{Op: "file headers", Reason: "file is closed"}
	}
	if index < 0 || index >= len(f.offsets) {
		return nil, &errors.MisuseError{
			Op:     "file headers",
			Reason: fmt.Sprintf("log index %d out of range (%d logs)", index, len(f.offsets)),
		}
	}
	data := f.raw.Get().Bytes()
	end := len(data)
	if index+1 < len(f.offsets) {
		end = f.offsets[index+1]
	}
	return headers.Open(f.engine, f.raw, data[f.offsets[index]:end], index, headers.WithLogger(f.logger))
}

// Close releases the file's handle on the raw bytes.
func (f *File) Close() {
	if f.closed {
		return
	}
	f.closed = true
	f.raw.Release()
}
