//go:build wasip1

package blackbox

import (
	"log/slog"

	bblog "github.com/blackbox-log/blackbox-log-go/log"
)

// defaultLogger routes records to the host and makes that the slog default.
func defaultLogger(level slog.Level) *slog.Logger {
	return bblog.SetDefault(bblog.WithLevel(level))
}
