// Package wasm is the guest module's export surface.
//
// Boundary implements every export over raw 32/64-bit arguments. It builds
// on every platform so the whole surface can be exercised in-process; on
// wasip1 a thin shim per export forwards to the installed Boundary.
//
// Failures follow three tiers. Fatal failures (header parse, allocation)
// return 0 and record the last error, retrievable once through error_last.
// Misuse (unknown handle, filter overrun, wrong free) is logged at warn
// level and ignored. Panics are recovered, logged with their stack, and
// recorded as the last error.
package wasm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/blackbox-log/blackbox-log-go/application/data"
	"github.com/blackbox-log/blackbox-log-go/application/filter"
	"github.com/blackbox-log/blackbox-log-go/application/headers"
	"github.com/blackbox-log/blackbox-log-go/application/logfile"
	"github.com/blackbox-log/blackbox-log-go/domain/entities"
	"github.com/blackbox-log/blackbox-log-go/domain/errors"
	"github.com/blackbox-log/blackbox-log-go/domain/ports"
	"github.com/blackbox-log/blackbox-log-go/internal/abi"
	"github.com/blackbox-log/blackbox-log-go/internal/handles"
)

// Option configures a Boundary.
type Option func(*Boundary)

// WithLogger sets the logger for the boundary and everything it creates.
func WithLogger(l *slog.Logger) Option {
	return func(b *Boundary) {
		if l != nil {
			b.logger = l
		}
	}
}

// Boundary owns the handle tables of one guest instance.
type Boundary struct {
	logger   *slog.Logger
	engine   ports.Engine
	files    *handles.Table[*logfile.File]
	headers  *handles.Table[*headers.Headers]
	parsers  *handles.Table[*data.Parser]
	builders *handles.Table[*filter.Builder]
	lastErr  *entities.ErrorDetail
}

// New returns a Boundary over engine.
func New(engine ports.Engine, opts ...Option) *Boundary {
	b := &Boundary{
		logger:   slog.Default(),
		engine:   engine,
		files:    handles.NewTable[*logfile.File](handles.TagFile),
		headers:  handles.NewTable[*headers.Headers](handles.TagHeaders),
		parsers:  handles.NewTable[*data.Parser](handles.TagParser),
		builders: handles.NewTable[*filter.Builder](handles.TagBuilder),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// guard runs an export body, turning a panic into a recorded failure.
func (b *Boundary) guard(op string, fn func() uint64) (result uint64) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			b.logger.Error("panic in export", "op", op, "panic", fmt.Sprint(r), "stack", string(stack))
			b.lastErr = &entities.ErrorDetail{
				Message: fmt.Sprintf("panic: %v", r),
				Type:    errors.TypePanic,
				Code:    op,
				Stack:   stack,
			}
			result = 0
		}
	}()
	return fn()
}

// fail records a fatal failure and returns 0.
func (b *Boundary) fail(op string, err error) uint64 {
	detail := errors.ToErrorDetail(err)
	if detail.Code == "" {
		detail.Code = op
	}
	b.logger.Error("export failed", "op", op, "error", err)
	b.lastErr = detail
	return 0
}

// misuse logs an ignored contract violation.
func (b *Boundary) misuse(op string, err error) uint64 {
	b.logger.Warn("ignoring invalid call", "op", op, "error", err)
	return 0
}

// LastError returns the pending last error without consuming it.
func (b *Boundary) LastError() *entities.ErrorDetail { return b.lastErr }

// Live returns the number of live handles per table, keyed by table name.
func (b *Boundary) Live() map[string]int {
	return map[string]int{
		handles.TagFile.String():    b.files.Len(),
		handles.TagHeaders.String(): b.headers.Len(),
		handles.TagParser.String():  b.parsers.Len(),
		handles.TagBuilder.String(): b.builders.Len(),
	}
}

// Reset closes every live handle in dependency order, drops the last error
// and frees all remaining pinned memory.
func (b *Boundary) Reset() {
	for _, p := range b.parsers.Drain() {
		p.Close()
	}
	for _, bl := range b.builders.Drain() {
		bl.Close()
	}
	for _, h := range b.headers.Drain() {
		h.Close()
	}
	for _, f := range b.files.Drain() {
		f.Close()
	}
	b.lastErr = nil
	abi.FreeAllTracked()
}

// Memory

// Allocate implements the allocate export.
func (b *Boundary) Allocate(size uint32) uint32 {
	return uint32(b.guard("allocate", func() uint64 {
		ptr, err := abi.Allocate(size)
		if err != nil {
			return b.fail("allocate", err)
		}
		return uint64(ptr)
	}))
}

// Deallocate implements the deallocate export.
func (b *Boundary) Deallocate(ptr, size uint32) {
	b.free("deallocate", ptr, abi.KindBytes)
}

// Slice8Free frees byte buffers and records handed out by the guest.
func (b *Boundary) Slice8Free(ptr, _ uint32) {
	b.free("slice8_free", ptr, abi.KindBytes, abi.KindRecord)
}

// SliceStrFree frees a Str array.
func (b *Boundary) SliceStrFree(ptr, _ uint32) {
	b.free("sliceStr_free", ptr, abi.KindStr)
}

// UnknownHeadersFree frees an UnknownHeader array.
func (b *Boundary) UnknownHeadersFree(ptr, _ uint32) {
	b.free("unknownHeaders_free", ptr, abi.KindUnknownHeader)
}

// FrameDefFree frees a FieldDef array.
func (b *Boundary) FrameDefFree(ptr, _ uint32) {
	b.free("frameDef_free", ptr, abi.KindFieldDef)
}

func (b *Boundary) free(op string, ptr uint32, kinds ...abi.Kind) {
	b.guard(op, func() uint64 {
		if ptr == 0 {
			return 0
		}
		if !abi.FreeTracked(ptr, kinds...) {
			kind, ok := abi.KindOf(ptr)
			reason := "pointer is not a live allocation"
			if ok {
				reason = fmt.Sprintf("allocation holds %s", kind)
			}
			return b.misuse(op, &errors.MisuseError{Op: op, Reason: fmt.Sprintf("0x%08x: %s", ptr, reason)})
		}
		return 0
	})
}

// ErrorLast hands out the pending last error as an owned JSON string and
// clears it. It returns 0 when there is none. The string may use the
// reserved headroom, so it is available after an allocation failure.
func (b *Boundary) ErrorLast() uint64 {
	return b.guard("error_last", func() uint64 {
		if b.lastErr == nil {
			return 0
		}
		payload, err := json.Marshal(b.lastErr)
		if err != nil {
			return 0
		}
		s, err := abi.NewReservedStr(string(payload))
		if err != nil {
			b.logger.Error("cannot hand out last error", "error", err)
			return 0
		}
		b.lastErr = nil
		return s.Str().Pack()
	})
}

// MemoryStats returns the packed (allocations, bytes) pinned right now.
func (b *Boundary) MemoryStats() uint64 {
	allocs, bytes := abi.Stats()
	return abi.Pack(uint32(allocs), uint32(bytes))
}

// adopt takes ownership of a host-filled input buffer.
func adopt(ptr, n uint32) (*abi.Buffer, error) {
	if ptr == 0 && n == 0 {
		return abi.Alloc(abi.KindBytes, 0)
	}
	return abi.Adopt(abi.KindBytes, ptr, n)
}
