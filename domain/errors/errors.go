// Package errors provides domain-specific error types for the marshalling layer.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/blackbox-log/blackbox-log-go/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// Error type names used in ErrorDetail.Type.
const (
	TypeHeaderParse = "header_parse"
	TypeAlloc       = "alloc"
	TypeHandle      = "handle"
	TypeMisuse      = "misuse"
	TypePanic       = "panic"
	TypeInternal    = "internal"
)

// DetailedError is an interface for custom error types that can convert themselves
// to a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to our structured ErrorDetail.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    TypeInternal,
	}
}

// FromErrorDetail rebuilds a typed error from its wire form.
func FromErrorDetail(op string, d *entities.ErrorDetail) error {
	if d == nil {
		return nil
	}
	switch d.Type {
	case TypeHeaderParse:
		e := &HeaderParseError{Err: stdErrors.New(d.Message), Log: -1}
		if log, ok := d.DetailInt("log"); ok {
			e.Log = log
		}
		return e
	default:
		return &GuestError{Op: op, Detail: d}
	}
}

// HeaderParseError reports a malformed header block. It is fatal: no headers
// handle is produced.
type HeaderParseError struct {
	Err error
	// Log is the index of the log inside a multi-log file, or -1.
	Log int
}

func (e *HeaderParseError) Error() string {
	if e.Log >= 0 {
		return fmt.Sprintf("failed to parse headers of log %d: %v", e.Log, e.Err)
	}
	return fmt.Sprintf("failed to parse headers: %v", e.Err)
}

func (e *HeaderParseError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *HeaderParseError) ToErrorDetail() *entities.ErrorDetail {
	d := entities.NewErrorDetail(TypeHeaderParse, e.Err.Error())
	if e.Log >= 0 {
		d.WithDetail("log", e.Log)
	}
	return d
}

// AllocError reports that a linear-memory allocation could not be satisfied.
type AllocError struct {
	Requested int
	InUse     int
	Limit     int
}

func (e *AllocError) Error() string {
	return fmt.Sprintf("allocation of %d bytes failed (in use: %d bytes, limit: %d bytes)",
		e.Requested, e.InUse, e.Limit)
}

// ToErrorDetail implements DetailedError.
func (e *AllocError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message: e.Error(),
		Type:    TypeAlloc,
		Details: map[string]any{"requested": e.Requested, "in_use": e.InUse, "limit": e.Limit},
	}
}

// HandleError reports an unknown, stale, or wrongly typed handle.
type HandleError struct {
	Kind   string
	Handle uint32
}

func (e *HandleError) Error() string {
	return fmt.Sprintf("invalid %s handle 0x%08x", e.Kind, e.Handle)
}

// ToErrorDetail implements DetailedError.
func (e *HandleError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: TypeHandle, Code: e.Kind}
}

// MisuseError reports a violated caller contract that was ignored rather
// than acted on (for example a filter push beyond its reserved capacity).
type MisuseError struct {
	Op     string
	Reason string
}

func (e *MisuseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// ToErrorDetail implements DetailedError.
func (e *MisuseError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Reason, Type: TypeMisuse, Code: e.Op}
}

// GuestError is a failure reported by the guest module to a host caller.
type GuestError struct {
	Op     string
	Detail *entities.ErrorDetail
}

func (e *GuestError) Error() string {
	if e.Detail == nil {
		return fmt.Sprintf("%s failed", e.Op)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Detail)
}

// Unwrap exposes the detail so errors.As can reach it.
func (e *GuestError) Unwrap() error {
	if e.Detail == nil {
		return nil
	}
	return e.Detail
}

// ToErrorDetail implements DetailedError.
func (e *GuestError) ToErrorDetail() *entities.ErrorDetail {
	return e.Detail
}
