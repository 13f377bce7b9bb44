package host

import "log/slog"

// Option defines a functional option for configuring the Executor.
type Option func(*Executor)

// WithLogger sets the logger guest log records are re-emitted through.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMemoryLimitPages caps the guest's linear memory, in 64 KiB pages.
// Zero keeps the engine default.
func WithMemoryLimitPages(pages uint32) Option {
	return func(e *Executor) {
		e.memoryLimitPages = pages
	}
}

// WithModuleName sets the name the guest module is instantiated under.
func WithModuleName(name string) Option {
	return func(e *Executor) {
		if name != "" {
			e.moduleName = name
		}
	}
}
