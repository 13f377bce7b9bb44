package wasm

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/blackbox-log/blackbox-log-go/application/headers"
	"github.com/blackbox-log/blackbox-log-go/domain/entities"
)

// ExportFunc is the uniform form of an export: raw 32/64-bit parameters in,
// at most one raw result out.
type ExportFunc func(params []uint64) uint64

// Export describes one entry of the export surface.
type Export struct {
	Name    string
	Params  int
	Results int
	Fn      ExportFunc
}

// Middleware wraps every export function of a table.
type Middleware func(name string, next ExportFunc) ExportFunc

// ExportsOption configures an export table.
type ExportsOption func(*exportsBuilder)

type exportsBuilder struct {
	middleware []Middleware
}

// WithMiddleware adds middleware to the table.
// Middleware executes in FIFO order (first added wraps first).
func WithMiddleware(mw ...Middleware) ExportsOption {
	return func(b *exportsBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}

// LoggingMiddleware logs every call at debug level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(name string, next ExportFunc) ExportFunc {
		return func(params []uint64) uint64 {
			start := time.Now()
			result := next(params)
			logger.Debug("export called",
				"export", name,
				"params", params,
				"result", result,
				"duration", time.Since(start))
			return result
		}
	}
}

// Exports is the immutable name table of a Boundary's exports.
type Exports struct {
	exports map[string]Export
	names   []string // sorted for consistent iteration
}

// NewExports builds the export table over b.
func NewExports(b *Boundary, opts ...ExportsOption) *Exports {
	eb := &exportsBuilder{}
	for _, opt := range opts {
		opt(eb)
	}

	list := surface(b)
	e := &Exports{exports: make(map[string]Export, len(list))}
	for _, exp := range list {
		for i := len(eb.middleware) - 1; i >= 0; i-- {
			exp.Fn = eb.middleware[i](exp.Name, exp.Fn)
		}
		e.exports[exp.Name] = exp
		e.names = append(e.names, exp.Name)
	}
	sort.Strings(e.names)
	return e
}

// Call invokes an export by name. A nil error with a zero result is the
// export's own failure signal; errors are reserved for unknown names and
// arity mismatches.
func (e *Exports) Call(name string, params ...uint64) (uint64, error) {
	exp, ok := e.exports[name]
	if !ok {
		return 0, fmt.Errorf("unknown export %q", name)
	}
	if len(params) != exp.Params {
		return 0, fmt.Errorf("export %q takes %d params, got %d", name, exp.Params, len(params))
	}
	return exp.Fn(params), nil
}

// Lookup returns the named export.
func (e *Exports) Lookup(name string) (Export, bool) {
	exp, ok := e.exports[name]
	return exp, ok
}

// Has reports whether name is exported.
func (e *Exports) Has(name string) bool {
	_, ok := e.exports[name]
	return ok
}

// Names returns the sorted export names.
func (e *Exports) Names() []string {
	result := make([]string, len(e.names))
	copy(result, e.names)
	return result
}

func u32(v uint64) uint32 { return uint32(v) }
func i32(v uint64) int32  { return int32(uint32(v)) }

func void(fn func(p []uint64)) func(p []uint64) uint64 {
	return func(p []uint64) uint64 {
		fn(p)
		return 0
	}
}

func surface(b *Boundary) []Export {
	exports := []Export{
		{Name: "allocate", Params: 1, Results: 1, Fn: func(p []uint64) uint64 { return uint64(b.Allocate(u32(p[0]))) }},
		{Name: "deallocate", Params: 2, Fn: void(func(p []uint64) { b.Deallocate(u32(p[0]), u32(p[1])) })},
		{Name: "slice8_free", Params: 2, Fn: void(func(p []uint64) { b.Slice8Free(u32(p[0]), u32(p[1])) })},
		{Name: "sliceStr_free", Params: 2, Fn: void(func(p []uint64) { b.SliceStrFree(u32(p[0]), u32(p[1])) })},
		{Name: "unknownHeaders_free", Params: 2, Fn: void(func(p []uint64) { b.UnknownHeadersFree(u32(p[0]), u32(p[1])) })},
		{Name: "frameDef_free", Params: 2, Fn: void(func(p []uint64) { b.FrameDefFree(u32(p[0]), u32(p[1])) })},
		{Name: "error_last", Results: 1, Fn: func([]uint64) uint64 { return b.ErrorLast() }},
		{Name: "memory_stats", Results: 1, Fn: func([]uint64) uint64 { return b.MemoryStats() }},

		{Name: "file_new", Params: 2, Results: 1, Fn: func(p []uint64) uint64 { return uint64(b.FileNew(u32(p[0]), u32(p[1]))) }},
		{Name: "file_free", Params: 1, Fn: void(func(p []uint64) { b.FileFree(u32(p[0])) })},
		{Name: "file_logCount", Params: 1, Results: 1, Fn: func(p []uint64) uint64 { return uint64(b.FileLogCount(u32(p[0]))) }},
		{Name: "file_getHeaders", Params: 2, Results: 1, Fn: func(p []uint64) uint64 { return uint64(b.FileGetHeaders(u32(p[0]), u32(p[1]))) }},

		{Name: "headers_new", Params: 2, Results: 1, Fn: func(p []uint64) uint64 { return uint64(b.HeadersNew(u32(p[0]), u32(p[1]))) }},
		{Name: "headers_free", Params: 1, Fn: void(func(p []uint64) { b.HeadersFree(u32(p[0])) })},
		{Name: "headers_firmwareKind", Params: 1, Results: 1, Fn: func(p []uint64) uint64 { return uint64(b.HeadersFirmwareKind(u32(p[0]))) }},
		{Name: "headers_firmwareDate", Params: 1, Results: 1, Fn: func(p []uint64) uint64 { return b.HeadersFirmwareDate(u32(p[0])) }},
		{Name: "headers_firmwareVersion", Params: 1, Results: 1, Fn: func(p []uint64) uint64 { return b.HeadersFirmwareVersion(u32(p[0])) }},
		{Name: "headers_disabledFields", Params: 1, Results: 1, Fn: func(p []uint64) uint64 { return b.HeadersDisabledFields(u32(p[0])) }},
		{Name: "headers_features", Params: 1, Results: 1, Fn: func(p []uint64) uint64 { return b.HeadersFeatures(u32(p[0])) }},
		{Name: "headers_unknown", Params: 1, Results: 1, Fn: func(p []uint64) uint64 { return b.HeadersUnknown(u32(p[0])) }},

		{Name: "data_new", Params: 2, Results: 1, Fn: func(p []uint64) uint64 { return b.DataNew(u32(p[0]), u32(p[1])) }},
		{Name: "data_free", Params: 1, Fn: void(func(p []uint64) { b.DataFree(u32(p[0])) })},
		{Name: "data_stats", Params: 1, Results: 1, Fn: func(p []uint64) uint64 { return b.DataStats(u32(p[0])) }},
		{Name: "data_next", Params: 1, Fn: void(func(p []uint64) { b.DataNext(u32(p[0])) })},
		{Name: "data_event", Params: 1, Results: 1, Fn: func(p []uint64) uint64 { return uint64(b.DataEvent(u32(p[0]))) }},

		{Name: "filter_new", Params: 4, Results: 1, Fn: func(p []uint64) uint64 {
			return b.FilterNew(u32(p[0]), i32(p[1]), i32(p[2]), i32(p[3]))
		}},
		{Name: "filter_free", Params: 1, Fn: void(func(p []uint64) { b.FilterFree(u32(p[0])) })},
	}

	for _, kind := range entities.FrameKinds {
		exports = append(exports,
			Export{Name: "headers_" + defExport(kind), Params: 1, Results: 1, Fn: func(p []uint64) uint64 {
				return b.HeadersFrameDef(kind, u32(p[0]))
			}},
			Export{Name: "data_" + defExport(kind), Params: 1, Results: 1, Fn: func(p []uint64) uint64 {
				return b.DataFrameDef(kind, u32(p[0]))
			}},
			Export{Name: "filter_" + kind.String(), Params: 3, Fn: void(func(p []uint64) {
				b.FilterPush(kind, u32(p[0]), u32(p[1]), u32(p[2]))
			})},
		)
	}
	for _, s := range []headers.Scalar{headers.FirmwareRevision, headers.DebugMode, headers.PwmProtocol, headers.BoardInfo, headers.CraftName} {
		exports = append(exports, Export{Name: "headers_" + scalarExport(s), Params: 1, Results: 1, Fn: func(p []uint64) uint64 {
			return b.HeadersScalar(s, u32(p[0]))
		}})
	}
	return exports
}
