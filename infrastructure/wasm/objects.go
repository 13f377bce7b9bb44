package wasm

import (
	stdErrors "errors"
	"fmt"

	"github.com/blackbox-log/blackbox-log-go/application/data"
	"github.com/blackbox-log/blackbox-log-go/application/filter"
	"github.com/blackbox-log/blackbox-log-go/application/headers"
	"github.com/blackbox-log/blackbox-log-go/application/logfile"
	"github.com/blackbox-log/blackbox-log-go/domain/entities"
	"github.com/blackbox-log/blackbox-log-go/domain/errors"
	"github.com/blackbox-log/blackbox-log-go/internal/abi"
	"github.com/blackbox-log/blackbox-log-go/wireformat"
)

// packSlice returns (ptr, count) for an array of size-byte records.
func packSlice(buf *abi.Buffer, size int) uint64 {
	return abi.Pack(buf.Ptr(), uint32(buf.Len()/size))
}

// packRecord returns (ptr, len) for a single record.
func packRecord(buf *abi.Buffer) uint64 {
	return buf.Pack()
}

// File

// FileNew takes the data buffer and returns a file handle.
func (b *Boundary) FileNew(ptr, n uint32) uint32 {
	return uint32(b.guard("file_new", func() uint64 {
		buf, err := adopt(ptr, n)
		if err != nil {
			return b.misuse("file_new", err)
		}
		f := logfile.New(b.engine, buf, logfile.WithLogger(b.logger))
		h, err := b.files.Insert(f)
		if err != nil {
			f.Close()
			return b.fail("file_new", err)
		}
		return uint64(h)
	}))
}

// FileFree closes a file handle. Headers opened from it stay valid.
func (b *Boundary) FileFree(h uint32) {
	b.guard("file_free", func() uint64 {
		f, err := b.files.Remove(h)
		if err != nil {
			return b.misuse("file_free", err)
		}
		f.Close()
		return 0
	})
}

// FileLogCount returns the number of logs in the file.
func (b *Boundary) FileLogCount(h uint32) uint32 {
	return uint32(b.guard("file_logCount", func() uint64 {
		f, err := b.files.Get(h)
		if err != nil {
			return b.misuse("file_logCount", err)
		}
		return uint64(f.LogCount())
	}))
}

// FileGetHeaders parses the headers of one log of the file.
func (b *Boundary) FileGetHeaders(h, index uint32) uint32 {
	return uint32(b.guard("file_getHeaders", func() uint64 {
		f, err := b.files.Get(h)
		if err != nil {
			return b.misuse("file_getHeaders", err)
		}
		hdr, err := f.Headers(int(index))
		if err != nil {
			var misuse *errors.MisuseError
			if stdErrors.As(err, &misuse) {
				return b.misuse("file_getHeaders", err)
			}
			return b.fail("file_getHeaders", err)
		}
		return b.insertHeaders("file_getHeaders", hdr)
	}))
}

// Headers

// HeadersNew parses the headers of the single log in the data buffer. On
// failure the buffer is freed and 0 is returned.
func (b *Boundary) HeadersNew(ptr, n uint32) uint32 {
	return uint32(b.guard("headers_new", func() uint64 {
		buf, err := adopt(ptr, n)
		if err != nil {
			return b.misuse("headers_new", err)
		}
		hdr, err := headers.Parse(b.engine, buf, headers.WithLogger(b.logger))
		if err != nil {
			buf.Free()
			return b.fail("headers_new", err)
		}
		return b.insertHeaders("headers_new", hdr)
	}))
}

func (b *Boundary) insertHeaders(op string, hdr *headers.Headers) uint64 {
	h, err := b.headers.Insert(hdr)
	if err != nil {
		hdr.Close()
		return b.fail(op, err)
	}
	return uint64(h)
}

// HeadersFree closes a headers handle. Parsers built from it stay valid.
func (b *Boundary) HeadersFree(h uint32) {
	b.guard("headers_free", func() uint64 {
		hdr, err := b.headers.Remove(h)
		if err != nil {
			return b.misuse("headers_free", err)
		}
		hdr.Close()
		return 0
	})
}

// withHeaders runs fn on a live headers handle.
func (b *Boundary) withHeaders(op string, h uint32, fn func(*headers.Headers) uint64) uint64 {
	return b.guard(op, func() uint64 {
		hdr, err := b.headers.Get(h)
		if err != nil {
			return b.misuse(op, err)
		}
		return fn(hdr)
	})
}

// HeadersFrameDef returns the declared layout of kind as (ptr, count).
func (b *Boundary) HeadersFrameDef(kind entities.FrameKind, h uint32) uint64 {
	op := "headers_" + defExport(kind)
	return b.withHeaders(op, h, func(hdr *headers.Headers) uint64 {
		buf, err := hdr.FrameDefRecord(kind)
		if err != nil {
			return b.fail(op, err)
		}
		return packSlice(buf, wireformat.FieldDefSize)
	})
}

// HeadersScalar returns a view of a string header owned by the handle.
func (b *Boundary) HeadersScalar(s headers.Scalar, h uint32) uint64 {
	return b.withHeaders("headers_"+scalarExport(s), h, func(hdr *headers.Headers) uint64 {
		return hdr.View(s).Pack()
	})
}

// HeadersFirmwareKind returns the firmware family.
func (b *Boundary) HeadersFirmwareKind(h uint32) uint32 {
	return uint32(b.withHeaders("headers_firmwareKind", h, func(hdr *headers.Headers) uint64 {
		return uint64(hdr.FirmwareKind())
	}))
}

// HeadersFirmwareDate returns the firmware date record as (ptr, len).
func (b *Boundary) HeadersFirmwareDate(h uint32) uint64 {
	return b.headersRecord("headers_firmwareDate", h, (*headers.Headers).DateRecord, 0)
}

// HeadersFirmwareVersion returns the firmware version record as (ptr, len).
func (b *Boundary) HeadersFirmwareVersion(h uint32) uint64 {
	return b.headersRecord("headers_firmwareVersion", h, (*headers.Headers).VersionRecord, 0)
}

// HeadersDisabledFields returns the disabled field names as (ptr, count).
func (b *Boundary) HeadersDisabledFields(h uint32) uint64 {
	return b.headersRecord("headers_disabledFields", h, (*headers.Headers).DisabledFieldsRecord, abi.StrSize)
}

// HeadersFeatures returns the enabled feature names as (ptr, count).
func (b *Boundary) HeadersFeatures(h uint32) uint64 {
	return b.headersRecord("headers_features", h, (*headers.Headers).FeaturesRecord, abi.StrSize)
}

// HeadersUnknown returns the unrecognised headers as (ptr, count).
func (b *Boundary) HeadersUnknown(h uint32) uint64 {
	return b.headersRecord("headers_unknown", h, (*headers.Headers).UnknownRecord, wireformat.UnknownHeaderSize)
}

// headersRecord pins a record; size 0 packs its byte length, otherwise the
// number of size-byte elements.
func (b *Boundary) headersRecord(op string, h uint32, build func(*headers.Headers) (*abi.Buffer, error), size int) uint64 {
	return b.withHeaders(op, h, func(hdr *headers.Headers) uint64 {
		buf, err := build(hdr)
		if err != nil {
			return b.fail(op, err)
		}
		if size == 0 {
			return packRecord(buf)
		}
		return packSlice(buf, size)
	})
}

// Data

// DataNew builds a parser from a headers handle. A non-zero builder is
// consumed; its handle is invalid afterwards. The result packs the parser
// handle with the address of its event slot.
func (b *Boundary) DataNew(h, builder uint32) uint64 {
	return b.withHeaders("data_new", h, func(hdr *headers.Headers) uint64 {
		var filters *entities.FilterSet
		if builder != 0 {
			bl, err := b.builders.Remove(builder)
			if err != nil {
				return b.misuse("data_new", err)
			}
			fs, err := bl.Build()
			bl.Close()
			if err != nil {
				return b.misuse("data_new", err)
			}
			filters = &fs
		}
		p, err := hdr.DataParser(filters)
		if err != nil {
			return b.fail("data_new", err)
		}
		ph, err := b.parsers.Insert(p)
		if err != nil {
			p.Close()
			return b.fail("data_new", err)
		}
		return abi.Pack(ph, p.EventPtr())
	})
}

// DataFree closes a parser, releasing its current event.
func (b *Boundary) DataFree(h uint32) {
	b.guard("data_free", func() uint64 {
		p, err := b.parsers.Remove(h)
		if err != nil {
			return b.misuse("data_free", err)
		}
		p.Close()
		return 0
	})
}

func (b *Boundary) withParser(op string, h uint32, fn func(*data.Parser) uint64) uint64 {
	return b.guard(op, func() uint64 {
		p, err := b.parsers.Get(h)
		if err != nil {
			return b.misuse(op, err)
		}
		return fn(p)
	})
}

// DataFrameDef returns the filtered layout of kind as (ptr, count).
func (b *Boundary) DataFrameDef(kind entities.FrameKind, h uint32) uint64 {
	op := "data_" + defExport(kind)
	return b.withParser(op, h, func(p *data.Parser) uint64 {
		buf, err := p.FrameDefRecord(kind)
		if err != nil {
			return b.fail(op, err)
		}
		return packSlice(buf, wireformat.FieldDefSize)
	})
}

// DataStats returns the parse statistics record as (ptr, len).
func (b *Boundary) DataStats(h uint32) uint64 {
	return b.withParser("data_stats", h, func(p *data.Parser) uint64 {
		buf, err := p.StatsRecord()
		if err != nil {
			return b.fail("data_stats", err)
		}
		return packRecord(buf)
	})
}

// DataNext advances the parser, rewriting its event slot in place. A fatal
// failure leaves the slot at None with the last error set, which tells it
// apart from end of stream.
func (b *Boundary) DataNext(h uint32) {
	b.withParser("data_next", h, func(p *data.Parser) uint64 {
		// A pending record after this call always belongs to it.
		b.lastErr = nil
		if err := p.Advance(); err != nil {
			var misuse *errors.MisuseError
			if stdErrors.As(err, &misuse) {
				return b.misuse("data_next", err)
			}
			return b.fail("data_next", err)
		}
		return 0
	})
}

// DataEvent returns the fixed address of the parser's event slot.
func (b *Boundary) DataEvent(h uint32) uint32 {
	return uint32(b.withParser("data_event", h, func(p *data.Parser) uint64 {
		return uint64(p.EventPtr())
	}))
}

// Filter

// FilterNew creates a builder with an arena of arenaSize bytes. Negative
// capacities leave their kind unfiltered. The result packs the builder
// handle with the arena address.
func (b *Boundary) FilterNew(arenaSize uint32, main, slow, gps int32) uint64 {
	return b.guard("filter_new", func() uint64 {
		bl, err := filter.New(arenaSize, main, slow, gps, filter.WithLogger(b.logger))
		if err != nil {
			return b.fail("filter_new", err)
		}
		h, err := b.builders.Insert(bl)
		if err != nil {
			bl.Close()
			return b.fail("filter_new", err)
		}
		return abi.Pack(h, bl.ArenaPtr())
	})
}

// FilterPush records a name already written into the builder's arena.
func (b *Boundary) FilterPush(kind entities.FrameKind, h, ptr, n uint32) {
	op := "filter_" + kind.String()
	b.guard(op, func() uint64 {
		bl, err := b.builders.Get(h)
		if err != nil {
			return b.misuse(op, err)
		}
		// Push reports its own violations.
		_ = bl.Push(kind, abi.Str{Ptr: ptr, Len: n})
		return 0
	})
}

// FilterFree frees an unconsumed builder.
func (b *Boundary) FilterFree(h uint32) {
	b.guard("filter_free", func() uint64 {
		bl, err := b.builders.Remove(h)
		if err != nil {
			return b.misuse("filter_free", err)
		}
		bl.Close()
		return 0
	})
}

func defExport(kind entities.FrameKind) string {
	return kind.String() + "Def"
}

func scalarExport(s headers.Scalar) string {
	switch s {
	case headers.FirmwareRevision:
		return "firmwareRevision"
	case headers.DebugMode:
		return "debugMode"
	case headers.PwmProtocol:
		return "pwmProtocol"
	case headers.BoardInfo:
		return "boardInfo"
	case headers.CraftName:
		return "craftName"
	default:
		return fmt.Sprintf("scalar%d", int(s))
	}
}
