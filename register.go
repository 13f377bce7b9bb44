package blackbox

import (
	"github.com/blackbox-log/blackbox-log-go/domain/ports"
	"github.com/blackbox-log/blackbox-log-go/infrastructure/wasm"
	"github.com/blackbox-log/blackbox-log-go/internal/abi"
)

// Register validates opts, configures the memory manager and installs a
// boundary over engine as the target of the module's exports.
func Register(engine ports.Engine, opts ...Option) (*wasm.Boundary, error) {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	if err := ValidateOptions(o); err != nil {
		return nil, err
	}

	if o.AllocLimit > 0 {
		abi.Configure(abi.WithMaxTotalAllocations(o.AllocLimit))
	}
	logger := o.Logger
	if logger == nil {
		logger = defaultLogger(o.level())
	}

	b := wasm.New(engine, wasm.WithLogger(logger))
	wasm.Install(b)
	logger.Debug("boundary registered", "version", Version, "alloc_limit", o.AllocLimit)
	return b, nil
}

// MustRegister is Register for init functions. It panics on invalid options.
func MustRegister(engine ports.Engine, opts ...Option) *wasm.Boundary {
	b, err := Register(engine, opts...)
	if err != nil {
		panic(err)
	}
	return b
}
