package host

import (
	"context"
	"fmt"

	"github.com/blackbox-log/blackbox-log-go/domain/entities"
	"github.com/blackbox-log/blackbox-log-go/internal/abi"
	"github.com/blackbox-log/blackbox-log-go/wireformat"
)

// newFilter builds a guest filter builder from fs: one arena holding every
// name, and a reserved list per filtered kind.
func (c *Client) newFilter(ctx context.Context, fs entities.FilterSet) (uint32, error) {
	var (
		names [3][]string
		caps  [3]int32
		arena []byte
	)
	for i, kind := range entities.FrameKinds {
		f := fs.For(kind)
		if f.IsUnfiltered() {
			caps[i] = -1
			continue
		}
		names[i] = f.Names()
		caps[i] = int32(len(names[i]))
		for _, n := range names[i] {
			arena = append(arena, n...)
		}
	}

	packed, err := c.callChecked(ctx, "filter_new", uint64(len(arena)),
		uint64(uint32(caps[0])), uint64(uint32(caps[1])), uint64(uint32(caps[2])))
	if err != nil {
		return 0, err
	}
	builder, base := abi.Unpack(packed)
	if len(arena) > 0 {
		if err := c.guest.Write(ctx, base, arena); err != nil {
			_ = c.closeHandle(ctx, "filter_free", builder)
			return 0, err
		}
	}

	off := base
	for i, kind := range entities.FrameKinds {
		for _, n := range names[i] {
			if _, err := c.call(ctx, "filter_"+kind.String(), uint64(builder), uint64(off), uint64(len(n))); err != nil {
				_ = c.closeHandle(ctx, "filter_free", builder)
				return 0, err
			}
			off += uint32(len(n))
		}
	}
	return builder, nil
}

// DataParser is a guest parser handle. Each Next rewrites the guest's event
// slot; the returned event is a host copy.
type DataParser struct {
	c        *Client
	handle   uint32
	eventPtr uint32
	defs     [3]entities.FrameDef
}

func newDataParser(ctx context.Context, c *Client, handle, eventPtr uint32) (*DataParser, error) {
	p := &DataParser{c: c, handle: handle, eventPtr: eventPtr}
	for i, kind := range entities.FrameKinds {
		packed, err := c.callChecked(ctx, "data_"+kind.String()+"Def", uint64(handle))
		if err == nil {
			p.defs[i], err = c.readFrameDef(ctx, packed)
		}
		if err != nil {
			_ = p.Close(ctx)
			return nil, err
		}
	}
	return p, nil
}

// FrameDef returns the filtered field layout of kind.
func (p *DataParser) FrameDef(kind entities.FrameKind) entities.FrameDef {
	if int(kind) >= len(p.defs) {
		return nil
	}
	return p.defs[kind]
}

// Next advances the parser. An event of kind EventKindNone means the log is
// exhausted; further calls keep returning it. A guest failure inside the call
// is returned as an error instead.
func (p *DataParser) Next(ctx context.Context) (entities.ParserEvent, error) {
	if _, err := p.c.call(ctx, "data_next", uint64(p.handle)); err != nil {
		return entities.ParserEvent{}, err
	}
	b, err := p.c.guest.Read(ctx, p.eventPtr, wireformat.EventSize)
	if err != nil {
		return entities.ParserEvent{}, err
	}
	rec, err := wireformat.ReadEvent(b)
	if err != nil {
		return entities.ParserEvent{}, err
	}

	if rec.Kind == entities.EventKindNone {
		if err := p.c.pendingError(ctx, "data_next"); err != nil {
			return entities.ParserEvent{}, err
		}
	}

	ev := entities.ParserEvent{Kind: rec.Kind, Time: rec.Time}
	frame, ok := rec.Kind.FrameKind()
	if !ok {
		return ev, nil
	}
	raw, err := p.c.guest.Read(ctx, rec.FieldsPtr, rec.FieldsLen*4)
	if err != nil {
		return entities.ParserEvent{}, err
	}
	ev.Fields, err = entities.Decode(p.defs[frame], abi.ReadU32s(raw))
	if err != nil {
		return entities.ParserEvent{}, fmt.Errorf("%s event: %w", rec.Kind, err)
	}
	return ev, nil
}

// Stats returns the parser's progress counters.
func (p *DataParser) Stats(ctx context.Context) (entities.Stats, error) {
	packed, err := p.c.callChecked(ctx, "data_stats", uint64(p.handle))
	if err != nil {
		return entities.Stats{}, err
	}
	b, err := p.c.takeRecord(ctx, packed)
	if err != nil {
		return entities.Stats{}, err
	}
	return wireformat.ReadStats(b)
}

// Close frees the parser handle.
func (p *DataParser) Close(ctx context.Context) error {
	return p.c.closeHandle(ctx, "data_free", p.handle)
}
