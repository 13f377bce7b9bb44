package host

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	bblog "github.com/blackbox-log/blackbox-log-go/log"
)

// HostModule is the import module the guest logs through.
const HostModule = "blackbox_host"

// DefaultModuleName is the name guests are instantiated under.
const DefaultModuleName = "blackbox"

// Executor owns a wazero runtime able to run the guest module.
type Executor struct {
	runtime          wazero.Runtime
	logger           *slog.Logger
	memoryLimitPages uint32
	moduleName       string
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(ctx context.Context, opts ...Option) (*Executor, error) {
	e := &Executor{
		logger:     slog.Default(),
		moduleName: DefaultModuleName,
	}
	for _, opt := range opts {
		opt(e)
	}

	cfg := wazero.NewRuntimeConfig()
	if e.memoryLimitPages > 0 {
		cfg = cfg.WithMemoryLimitPages(e.memoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)
	e.runtime = rt

	if err := e.registerHostFunctions(ctx); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}

	return e, nil
}

// Close releases resources held by the executor and every instance.
func (e *Executor) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

func (e *Executor) registerHostFunctions(ctx context.Context) error {
	logger := e.logger.With("guest", e.moduleName)
	_, err := e.runtime.NewHostModuleBuilder(HostModule).
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, packed uint64) {
			ptr, length := uint32(packed>>32), uint32(packed)
			payload, ok := m.Memory().Read(ptr, length)
			if !ok {
				logger.Warn("guest log message out of bounds", "ptr", ptr, "len", length)
				return
			}
			msg, err := bblog.Decode(payload)
			if err != nil {
				logger.Warn("guest log message (raw)", "payload", string(payload), "error", err)
				return
			}
			if r := msg.Record(); logger.Handler().Enabled(ctx, r.Level) {
				_ = logger.Handler().Handle(ctx, r)
			}
		}).
		Export("log_message").
		Instantiate(ctx)
	return err
}

// Instance is an instantiated guest module.
type Instance struct {
	module api.Module
}

// Load instantiates the guest module.
func (e *Executor) Load(ctx context.Context, wasmBytes []byte) (*Instance, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to compile module: %w", err)
	}
	cfg := wazero.NewModuleConfig().
		WithName(e.moduleName).
		WithStartFunctions()
	mod, err := e.runtime.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate module: %w", err)
	}

	// Reactor modules initialise their runtime here.
	if init := mod.ExportedFunction("_initialize"); init != nil {
		if _, err := init.Call(ctx); err != nil {
			_ = mod.Close(ctx)
			return nil, fmt.Errorf("failed to call _initialize: %w", err)
		}
	}

	return &Instance{module: mod}, nil
}

// Call invokes an export. Parameters are raw wasm values.
func (i *Instance) Call(ctx context.Context, name string, params ...uint64) (uint64, error) {
	f := i.module.ExportedFunction(name)
	if f == nil {
		return 0, fmt.Errorf("export %q not found", name)
	}
	results, err := f.Call(ctx, params...)
	if err != nil {
		return 0, fmt.Errorf("call %s: %w", name, err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0], nil
}

// Read copies n bytes out of guest memory.
func (i *Instance) Read(_ context.Context, ptr, n uint32) ([]byte, error) {
	data, ok := i.module.Memory().Read(ptr, n)
	if !ok {
		return nil, fmt.Errorf("read of %d bytes at 0x%08x is out of bounds", n, ptr)
	}
	return bytes.Clone(data), nil
}

// Write copies data into guest memory.
func (i *Instance) Write(_ context.Context, ptr uint32, data []byte) error {
	if !i.module.Memory().Write(ptr, data) {
		return fmt.Errorf("write of %d bytes at 0x%08x is out of bounds", len(data), ptr)
	}
	return nil
}

// Close closes the module instance.
func (i *Instance) Close(ctx context.Context) error {
	return i.module.Close(ctx)
}
