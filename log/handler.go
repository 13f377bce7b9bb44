// Package log routes structured logging (slog) from the guest module to its host.
//
// Records are encoded as JSON LogMessageWire documents and handed to a sink.
// On wasip1 the default sink is the blackbox_host.log_message import; on
// other platforms it writes one JSON line per record to stderr.
package log

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"slices"
)

// Sink receives one encoded log message.
type Sink func(payload []byte)

// WasmLogHandler implements slog.Handler to route logs through a host function.
type WasmLogHandler struct {
	opts   handlerConfig
	attrs  []LogAttrWire
	groups []string
}

// HandlerOption configures the WasmLogHandler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	level     slog.Leveler
	addSource bool
	sink      Sink
}

// defaultHandlerConfig returns the default configuration.
func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		level: slog.LevelInfo,
		sink:  defaultSink,
	}
}

// WithLevel sets the minimum log level to report.
// Records below this level will be filtered on the guest side.
func WithLevel(level slog.Leveler) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file/line).
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// WithSink replaces the destination of encoded messages.
func WithSink(s Sink) HandlerOption {
	return func(c *handlerConfig) {
		if s != nil {
			c.sink = s
		}
	}
}

// NewHandler creates a new WasmLogHandler with the given options.
func NewHandler(opts ...HandlerOption) *WasmLogHandler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &WasmLogHandler{opts: cfg}
}

// SetDefault installs a WasmLogHandler as the slog default and returns the
// logger.
func SetDefault(opts ...HandlerOption) *slog.Logger {
	logger := slog.New(NewHandler(opts...))
	slog.SetDefault(logger)
	return logger
}

// Enabled reports whether the handler handles records at the given level.
func (h *WasmLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level.Level()
}

// WithAttrs returns a new WasmLogHandler that includes the given attributes.
func (h *WasmLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	newHandler := h.clone()
	for _, attr := range attrs {
		newHandler.attrs = appendAttr(newHandler.attrs, h.groups, attr)
	}
	return newHandler
}

// WithGroup returns a new WasmLogHandler with the given group name.
func (h *WasmLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	newHandler := h.clone()
	newHandler.groups = append(newHandler.groups, name)
	return newHandler
}

func (h *WasmLogHandler) clone() *WasmLogHandler {
	return &WasmLogHandler{
		opts:   h.opts,
		attrs:  slices.Clip(h.attrs),
		groups: slices.Clip(h.groups),
	}
}

// Handle serializes a slog.Record and sends it to the sink.
func (h *WasmLogHandler) Handle(_ context.Context, record slog.Record) error {
	logMsg := LogMessageWire{
		Level:     record.Level.String(),
		Message:   record.Message,
		Timestamp: record.Time,
		Attrs:     slices.Clone(h.attrs),
	}
	if h.opts.addSource && record.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{record.PC})
		f, _ := frames.Next()
		logMsg.Source = fmt.Sprintf("%s:%d", f.File, f.Line)
	}

	record.Attrs(func(attr slog.Attr) bool {
		logMsg.Attrs = appendAttr(logMsg.Attrs, h.groups, attr)
		return true
	})

	payload, err := json.Marshal(logMsg)
	if err != nil {
		// Fall back to stderr; a failing log call must not fail the caller.
		fmt.Fprintf(os.Stderr, "log: failed to marshal log message: %v, original: %s\n", err, record.Message)
		return nil
	}
	h.opts.sink(payload)
	return nil
}
