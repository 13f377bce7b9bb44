//go:build !wasip1

package blackbox

import "log/slog"

func defaultLogger(slog.Level) *slog.Logger {
	return slog.Default()
}
