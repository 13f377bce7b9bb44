// Package data implements the data parser exposed across the boundary: it
// advances the engine's frame decoder and mirrors each result into a
// fixed-address event slot.
package data

import (
	"log/slog"

	"github.com/blackbox-log/blackbox-log-go/domain/entities"
	"github.com/blackbox-log/blackbox-log-go/domain/errors"
	"github.com/blackbox-log/blackbox-log-go/domain/ports"
	"github.com/blackbox-log/blackbox-log-go/internal/abi"
	"github.com/blackbox-log/blackbox-log-go/internal/shared"
	"github.com/blackbox-log/blackbox-log-go/wireformat"
)

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the parser's logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// Parser owns an engine decoder together with its own handles on the
// headers and raw bytes the decoder reads, so those stay alive until Close
// regardless of what happens to the headers projection.
type Parser struct {
	logger  *slog.Logger
	decoder ports.Decoder
	headers *shared.Shared[ports.Headers]
	raw     *shared.Shared[*abi.Buffer]
	slot    *Slot
	strs    *abi.StrTable

	exhausted bool
	closed    bool
}

// New takes ownership of decoder and of the headers and raw clones. On
// failure the clones are released.
func New(decoder ports.Decoder, headers *shared.Shared[ports.Headers], raw *shared.Shared[*abi.Buffer], opts ...Option) (*Parser, error) {
	slot, err := NewSlot()
	if err != nil {
		headers.Release()
		raw.Release()
		return nil, err
	}
	p := &Parser{
		logger:  slog.Default(),
		decoder: decoder,
		headers: headers,
		raw:     raw,
		slot:    slot,
		strs:    abi.NewStrTable(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// EventPtr returns the fixed address of the event slot.
func (p *Parser) EventPtr() uint32 { return p.slot.Ptr() }

// Slot returns the event slot.
func (p *Parser) Slot() *Slot { return p.slot }

// Event returns the current event.
func (p *Parser) Event() Event { return p.slot.Current() }

// Exhausted reports whether the engine has signalled end of stream.
func (p *Parser) Exhausted() bool { return p.exhausted }

// Advance pulls the next unit from the engine into the slot. Once the
// stream is exhausted the slot stays None and Advance does nothing.
//
// If the event's payload cannot be allocated the slot is left None and the
// error returned; the frame is lost.
func (p *Parser) Advance() error {
	if p.closed {
		return &errors.MisuseError{Op: "advance", Reason: "parser is closed"}
	}
	if p.exhausted {
		return nil
	}

	frame, ok := p.decoder.Next()
	if !ok {
		p.exhausted = true
		p.slot.Set(noneEvent{})
		c := p.decoder.Stats().Counts
		p.logger.Debug("data stream exhausted",
			"main", c.Main, "slow", c.Slow, "gps", c.Gps, "events", c.Event)
		return nil
	}

	ev, err := newEvent(frame)
	if err != nil {
		p.slot.Set(noneEvent{})
		p.logger.Warn("frame dropped", "kind", frame.Kind.String(), "fields", len(frame.Fields), "error", err)
		return err
	}
	p.slot.Set(ev)
	return nil
}

// Stats returns the decoder's counters with progress bounded to [0, 1].
func (p *Parser) Stats() entities.Stats {
	s := p.decoder.Stats()
	s.Progress = entities.ClampProgress(s.Progress)
	return s
}

// StatsRecord pins a stats record.
func (p *Parser) StatsRecord() (*abi.Buffer, error) {
	return wireformat.PutRecord(wireformat.StatsRecord(p.Stats()))
}

// FrameDef returns the filtered definition actually being decoded. A log
// without GPS frames yields an empty GPS definition.
func (p *Parser) FrameDef(kind entities.FrameKind) entities.FrameDef {
	switch kind {
	case entities.FrameKindMain:
		return p.decoder.MainFrameDef()
	case entities.FrameKindSlow:
		return p.decoder.SlowFrameDef()
	case entities.FrameKindGps:
		if def, ok := p.decoder.GpsFrameDef(); ok {
			return def
		}
	}
	return entities.FrameDef{}
}

// FrameDefRecord pins the filtered definition of kind. Field names stay
// valid until Close.
func (p *Parser) FrameDefRecord(kind entities.FrameKind) (*abi.Buffer, error) {
	return wireformat.PutFrameDef(p.FrameDef(kind), p.strs)
}

// Close tears the parser down: decoder first, then its headers handle, then
// its raw bytes handle, and finally the event slot. Closing twice is a
// no-op.
func (p *Parser) Close() {
	if p.closed {
		return
	}
	p.closed = true

	p.decoder = nil
	p.headers.Release()
	p.raw.Release()
	p.slot.Free()
	p.strs.Free()
}
