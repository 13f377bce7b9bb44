// Package blackbox wires a blackbox log engine into the guest module's
// export surface.
//
// A guest entry point calls Register once, typically from init, with the
// engine to expose:
//
//	func init() {
//	    blackbox.MustRegister(textlog.New())
//	}
package blackbox

import "log/slog"

// Version of the boundary ABI.
const Version = "0.3.0"

// Options configures Register.
type Options struct {
	// Logger receives the boundary's own records. Nil selects the platform
	// default: the host log import on wasip1, slog.Default elsewhere.
	Logger *slog.Logger `json:"-" validate:"-"`

	// AllocLimit caps the bytes pinned in linear memory at once.
	// Zero keeps the default.
	AllocLimit int `json:"alloc_limit" validate:"gte=0"`

	// LogLevel is the minimum level forwarded to the host.
	LogLevel string `json:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// Option configures Options.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithAllocLimit caps pinned linear memory at n bytes.
func WithAllocLimit(n int) Option {
	return func(o *Options) {
		o.AllocLimit = n
	}
}

// WithLogLevel sets the minimum forwarded level by name.
func WithLogLevel(level string) Option {
	return func(o *Options) {
		o.LogLevel = level
	}
}

func (o *Options) level() slog.Level {
	var level slog.Level
	if o.LogLevel == "" || level.UnmarshalText([]byte(o.LogLevel)) != nil {
		return slog.LevelInfo
	}
	return level
}
