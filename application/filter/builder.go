// Package filter builds per-frame-kind field filters from names the host
// writes into a single arena.
package filter

import (
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/blackbox-log/blackbox-log-go/domain/entities"
	"github.com/blackbox-log/blackbox-log-go/domain/errors"
	"github.com/blackbox-log/blackbox-log-go/internal/abi"
)

// arenaRef locates a name inside the arena.
type arenaRef struct {
	off, len uint32
}

// refList is a per-kind list holding at most limit names. It grows with each
// push, so the limit costs nothing up front.
type refList struct {
	refs  []arenaRef
	limit int
}

func (l *refList) full() bool { return len(l.refs) >= l.limit }

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger contract violations are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// Builder owns an arena and, per frame kind, either no list (unfiltered) or
// a list of names inside the arena. It is consumed by Build.
type Builder struct {
	logger *slog.Logger
	arena  *abi.Buffer
	lists  [len(kindOrder)]*refList
	done   bool
}

var kindOrder = [...]entities.FrameKind{entities.FrameKindMain, entities.FrameKindSlow, entities.FrameKindGps}

// New allocates an arena of arenaSize bytes. A negative capacity leaves its
// kind unfiltered; otherwise exactly that many names may be pushed.
func New(arenaSize uint32, main, slow, gps int32, opts ...Option) (*Builder, error) {
	arena, err := abi.Alloc(abi.KindBytes, int(arenaSize))
	if err != nil {
		return nil, err
	}
	b := &Builder{logger: slog.Default(), arena: arena}
	for _, opt := range opts {
		opt(b)
	}
	for i, c := range [...]int32{main, slow, gps} {
		if c >= 0 {
			b.lists[i] = &refList{limit: int(c)}
		}
	}
	return b, nil
}

// ArenaPtr returns the address the host writes names to.
func (b *Builder) ArenaPtr() uint32 { return b.arena.Ptr() }

// ArenaLen returns the arena size in bytes.
func (b *Builder) ArenaLen() int { return b.arena.Len() }

// Push records a name for kind. The view must already point inside the
// arena; the bytes are not copied until Build. Violations are logged and
// ignored.
func (b *Builder) Push(kind entities.FrameKind, name abi.Str) error {
	if err := b.push(kind, name); err != nil {
		b.logger.Warn("filter push ignored", "kind", kind, "error", err)
		return err
	}
	return nil
}

func (b *Builder) push(kind entities.FrameKind, name abi.Str) error {
	misuse := func(format string, args ...any) error {
		return &errors.MisuseError{Op: "filter push", Reason: fmt.Sprintf(format, args...)}
	}
	if b.done {
		return misuse("builder already consumed")
	}
	if int(kind) >= len(b.lists) {
		return misuse("invalid frame kind %d", uint32(kind))
	}
	list := b.lists[kind]
	switch {
	case list == nil:
		return misuse("%s frames are unfiltered", kind)
	case list.full():
		return misuse("%s filter is full (capacity %d)", kind, list.limit)
	}

	base, size := uint64(b.arena.Ptr()), uint64(b.arena.Len())
	start, end := uint64(name.Ptr), uint64(name.Ptr)+uint64(name.Len)
	if start < base || end > base+size {
		return misuse("name at 0x%08x+%d is outside the arena", name.Ptr, name.Len)
	}
	list.refs = append(list.refs, arenaRef{off: uint32(start - base), len: name.Len})
	return nil
}

// Build consumes the builder. Names are copied out of the arena, which is
// then freed. Names that are not valid UTF-8 are dropped.
func (b *Builder) Build() (entities.FilterSet, error) {
	if b.done {
		return entities.FilterSet{}, &errors.MisuseError{Op: "filter build", Reason: "builder already consumed"}
	}
	b.done = true

	var fs entities.FilterSet
	arena := b.arena.Bytes()
	for i, list := range b.lists {
		if list == nil {
			continue
		}
		names := make([]string, 0, len(list.refs))
		for _, r := range list.refs {
			end := uint64(r.off) + uint64(r.len)
			if end > uint64(len(arena)) || !utf8.Valid(arena[r.off:end]) {
				b.logger.Warn("filter name dropped", "kind", kindOrder[i], "offset", r.off, "len", r.len)
				continue
			}
			names = append(names, string(arena[r.off:end]))
		}
		f := entities.OnlyFields(names...)
		switch kindOrder[i] {
		case entities.FrameKindMain:
			fs.Main = f
		case entities.FrameKindSlow:
			fs.Slow = f
		case entities.FrameKindGps:
			fs.Gps = f
		}
	}
	b.arena.Free()
	return fs, nil
}

// Close frees an unconsumed builder's arena.
func (b *Builder) Close() {
	b.done = true
	b.arena.Free()
}
