package textlog

import (
	"bytes"
	"log/slog"
	"strconv"

	"github.com/blackbox-log/blackbox-log-go/domain/entities"
	"github.com/blackbox-log/blackbox-log-go/domain/ports"
)

// frameShape is the declared and surviving layout of one frame kind.
type frameShape struct {
	full     entities.FrameDef
	filtered entities.FrameDef
	keep     []int // source index of each surviving field
	timeIdx  int   // index of "time" in full, or -1
}

func newShape(def entities.FrameDef, filter *entities.FieldFilter) frameShape {
	filtered, keep := filter.Apply(def)
	return frameShape{full: def, filtered: filtered, keep: keep, timeIdx: def.Index("time")}
}

type decoder struct {
	logger *slog.Logger
	data   []byte
	start  int
	pos    int

	main, slow, gps frameShape
	hasGps          bool

	raw      []uint32
	out      []uint32
	lastTime float64
	counts   entities.Counts
	done     bool
}

var _ ports.Decoder = (*decoder)(nil)

func newDecoder(h *headers, pos int, filters entities.FilterSet) *decoder {
	d := &decoder{
		logger: h.logger,
		data:   h.data,
		start:  pos,
		pos:    pos,
		main:   newShape(h.main, filters.Main),
		slow:   newShape(h.slow, filters.Slow),
		hasGps: h.hasGps,
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if h.hasGps {
		d.gps = newShape(h.gps, filters.Gps)
	}
	return d
}

func (d *decoder) MainFrameDef() entities.FrameDef { return d.main.filtered }
func (d *decoder) SlowFrameDef() entities.FrameDef { return d.slow.filtered }

func (d *decoder) GpsFrameDef() (entities.FrameDef, bool) {
	return d.gps.filtered, d.hasGps
}

func (d *decoder) Stats() entities.Stats {
	progress := float32(1)
	if span := len(d.data) - d.start; span > 0 && !d.done {
		progress = float32(d.pos-d.start) / float32(span)
	}
	return entities.Stats{Counts: d.counts, Progress: entities.ClampProgress(progress)}
}

func (d *decoder) Next() (ports.Frame, bool) {
	for !d.done {
		if d.pos >= len(d.data) {
			d.done = true
			break
		}
		lineStart := d.pos
		line, next := nextLine(d.data, d.pos)
		d.pos = next

		if len(line) == 0 {
			continue
		}
		if bytes.Equal(line, []byte(ProductLine)) {
			// The next log begins here.
			d.pos = lineStart
			d.done = true
			break
		}
		if frame, ok := d.frame(line); ok {
			return frame, true
		}
	}
	return ports.Frame{}, false
}

func (d *decoder) frame(line []byte) (ports.Frame, bool) {
	if line[0] == 'E' && (len(line) == 1 || line[1] == ' ') {
		d.counts.Event++
		return ports.Frame{Kind: entities.EventKindEvent}, true
	}
	if len(line) < 2 || line[1] != ' ' {
		d.skip(line, "no frame marker")
		return ports.Frame{}, false
	}
	body := line[2:]

	switch line[0] {
	case 'I', 'P':
		if !d.values(body, d.main.full) {
			d.skip(line, "bad main frame")
			return ports.Frame{}, false
		}
		d.counts.Main++
		t := d.timeOf(d.main)
		d.lastTime = t
		return ports.Frame{Kind: entities.EventKindMain, Time: t, Fields: d.project(d.main)}, true

	case 'S':
		if !d.values(body, d.slow.full) {
			d.skip(line, "bad slow frame")
			return ports.Frame{}, false
		}
		d.counts.Slow++
		return ports.Frame{Kind: entities.EventKindSlow, Fields: d.project(d.slow)}, true

	case 'G':
		if !d.hasGps || !d.values(body, d.gps.full) {
			d.skip(line, "bad gps frame")
			return ports.Frame{}, false
		}
		d.counts.Gps++
		return ports.Frame{Kind: entities.EventKindGps, Time: d.timeOf(d.gps), Fields: d.project(d.gps)}, true

	case 'H':
		if bytes.IndexByte(body, ':') >= 0 || !d.values(body, nil) {
			d.skip(line, "bad gps home frame")
			return ports.Frame{}, false
		}
		d.counts.GpsHome++
		return ports.Frame{}, false

	default:
		d.skip(line, "unknown frame marker")
		return ports.Frame{}, false
	}
}

// values parses body into d.raw. A nil def accepts any number of unsigned
// or signed values.
func (d *decoder) values(body []byte, def entities.FrameDef) bool {
	d.raw = d.raw[:0]
	for i, field := range bytes.Split(body, []byte{','}) {
		if def != nil && i >= len(def) {
			return false
		}
		signed := def == nil || def[i].Signed
		s := string(bytes.TrimSpace(field))
		if signed {
			v, err := strconv.ParseInt(s, 10, 32)
			if err != nil {
				return false
			}
			d.raw = append(d.raw, uint32(int32(v)))
		} else {
			v, err := strconv.ParseUint(s, 10, 32)
			if err != nil {
				return false
			}
			d.raw = append(d.raw, uint32(v))
		}
	}
	return def == nil || len(d.raw) == len(def)
}

// timeOf converts the frame's "time" field from microseconds to seconds.
// Frames without one reuse the last main frame time.
func (d *decoder) timeOf(s frameShape) float64 {
	if s.timeIdx < 0 {
		return d.lastTime
	}
	return float64(d.raw[s.timeIdx]) / 1e6
}

func (d *decoder) project(s frameShape) []uint32 {
	d.out = d.out[:0]
	for _, i := range s.keep {
		d.out = append(d.out, d.raw[i])
	}
	return d.out
}

func (d *decoder) skip(line []byte, reason string) {
	d.logger.Debug("skipping malformed frame", "reason", reason, "line", string(line))
}
