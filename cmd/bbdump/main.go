// Command bbdump prints the headers and events of blackbox logs by driving
// the guest module's export surface, either in-process or through wazero.
//
// Usage:
//
//	bbdump [flags] headers <log>
//	bbdump [flags] events <log>
//	bbdump schema headers|events
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := newFlagSet()
	flags.SetOutput(stderr)
	if err := flags.Parse(args); err != nil {
		return 2
	}
	cfg, err := LoadConfig(flags)
	if err != nil {
		fmt.Fprintln(stderr, "bbdump:", err)
		return 2
	}
	logger := newLogger(stderr, cfg.Level())

	rest := flags.Args()
	if len(rest) < 2 {
		fmt.Fprintln(stderr, "usage: bbdump [flags] headers|events <log> | schema headers|events")
		return 2
	}

	var cmdErr error
	switch cmd, arg := rest[0], rest[1]; cmd {
	case "schema":
		cmdErr = writeSchema(stdout, arg)
	case "headers", "events":
		cmdErr = dump(ctx, cfg, logger, cmd, arg, stdout)
	default:
		fmt.Fprintf(stderr, "bbdump: unknown command %q\n", cmd)
		return 2
	}
	if cmdErr != nil {
		logger.Error("command failed", "command", rest[0], "error", cmdErr)
		return 1
	}
	return 0
}

// newLogger picks a text handler for terminals and JSON otherwise.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
