package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/blackbox-log/blackbox-log-go/domain/entities"
	"github.com/blackbox-log/blackbox-log-go/host"
	"github.com/blackbox-log/blackbox-log-go/infrastructure/textlog"
	"github.com/blackbox-log/blackbox-log-go/infrastructure/wasm"
	"github.com/blackbox-log/blackbox-log-go/internal/abi"
)

// HeadersDocument is emitted once per log by the headers command.
type HeadersDocument struct {
	Log     int                    `json:"log" yaml:"log"`
	Headers entities.HeaderSummary `json:"headers" yaml:"headers"`
}

// EventDocument is emitted once per event by the events command.
type EventDocument struct {
	Log   int                  `json:"log" yaml:"log"`
	Event entities.ParserEvent `json:"event" yaml:"event"`
}

func writeSchema(w io.Writer, which string) error {
	var s *jsonschema.Schema
	switch which {
	case "headers":
		s = jsonschema.Reflect(&HeadersDocument{})
	case "events":
		s = jsonschema.Reflect(&EventDocument{})
	default:
		return fmt.Errorf("unknown schema %q", which)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// encoder writes documents in the configured format.
type encoder interface {
	Encode(v any) error
}

func newEncoder(w io.Writer, format string) (encoder, func() error) {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		return enc, enc.Close
	}
	return json.NewEncoder(w), func() error { return nil }
}

// connect returns a client over the configured guest and a cleanup.
func connect(ctx context.Context, cfg *Config, logger *slog.Logger) (*host.Client, func(), error) {
	if cfg.Guest == "" {
		if cfg.AllocLimit > 0 {
			abi.Configure(abi.WithMaxTotalAllocations(cfg.AllocLimit))
		}
		b := wasm.New(textlog.New(textlog.WithLogger(logger)), wasm.WithLogger(logger))
		exports := wasm.NewExports(b, wasm.WithMiddleware(wasm.LoggingMiddleware(logger)))
		return host.NewClient(host.NewInProcess(exports)), b.Reset, nil
	}

	wasmBytes, err := os.ReadFile(cfg.Guest)
	if err != nil {
		return nil, nil, err
	}
	e, err := host.NewExecutor(ctx, host.WithLogger(logger), host.WithMemoryLimitPages(cfg.MemoryPages))
	if err != nil {
		return nil, nil, err
	}
	inst, err := e.Load(ctx, wasmBytes)
	if err != nil {
		_ = e.Close(ctx)
		return nil, nil, err
	}
	return host.NewClient(inst), func() { _ = e.Close(ctx) }, nil
}

func dump(ctx context.Context, cfg *Config, logger *slog.Logger, cmd, path string, w io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	client, cleanup, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	file, err := client.OpenFile(ctx, data)
	if err != nil {
		return err
	}
	defer file.Close(ctx)

	n, err := file.LogCount(ctx)
	if err != nil {
		return err
	}
	enc, flush := newEncoder(w, cfg.Format)
	for i := range n {
		if cfg.Log >= 0 && i != cfg.Log {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		h, err := file.Headers(ctx, i)
		if err != nil {
			logger.Warn("skipping log", "index", i, "error", err)
			continue
		}
		if cmd == "headers" {
			err = dumpHeaders(ctx, h, i, enc)
		} else {
			err = dumpEvents(ctx, cfg, h, i, enc)
		}
		_ = h.Close(ctx)
		if err != nil {
			return err
		}
	}
	return flush()
}

func dumpHeaders(ctx context.Context, h *host.LogHeaders, index int, enc encoder) error {
	summary, err := h.Summary(ctx)
	if err != nil {
		return err
	}
	return enc.Encode(HeadersDocument{Log: index, Headers: summary})
}

func dumpEvents(ctx context.Context, cfg *Config, h *host.LogHeaders, index int, enc encoder) error {
	p, err := h.DataParser(ctx, cfg.Fields.FilterSet())
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	for count := 0; cfg.Limit == 0 || count < cfg.Limit; count++ {
		ev, err := p.Next(ctx)
		if err != nil {
			return err
		}
		if ev.Kind == entities.EventKindNone {
			break
		}
		if err := enc.Encode(EventDocument{Log: index, Event: ev}); err != nil {
			return err
		}
	}
	return nil
}
