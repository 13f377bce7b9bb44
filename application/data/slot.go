package data

import (
	"github.com/blackbox-log/blackbox-log-go/domain/entities"
	"github.com/blackbox-log/blackbox-log-go/internal/abi"
	"github.com/blackbox-log/blackbox-log-go/wireformat"
)

// Slot is a fixed-address event record. Every Set releases the previous
// event exactly once and rewrites the record in place, so a host that
// cached the address can keep re-reading it.
type Slot struct {
	rec      *abi.Buffer
	current  Event
	releases [entities.EventKindGps + 1]int
}

// NewSlot pins an empty (None) slot.
func NewSlot() (*Slot, error) {
	rec, err := abi.Alloc(abi.KindEvent, wireformat.EventSize)
	if err != nil {
		return nil, err
	}
	s := &Slot{rec: rec, current: noneEvent{}}
	wireformat.PutEvent(rec.Bytes(), s.current.record())
	return s, nil
}

// Ptr returns the record's address.
func (s *Slot) Ptr() uint32 { return s.rec.Ptr() }

// Current returns the event in the slot.
func (s *Slot) Current() Event { return s.current }

// Set replaces the current event.
func (s *Slot) Set(e Event) {
	s.drop()
	s.current = e
	wireformat.PutEvent(s.rec.Bytes(), e.record())
}

// Releases returns how many events of kind the slot has released.
func (s *Slot) Releases(kind entities.EventKind) int {
	if int(kind) >= len(s.releases) {
		return 0
	}
	return s.releases[kind]
}

func (s *Slot) drop() {
	prev := s.current
	s.current = noneEvent{}
	prev.release()
	s.releases[prev.Kind()]++
}

// Free releases the current event and unpins the record.
func (s *Slot) Free() {
	if s.rec == nil {
		return
	}
	s.drop()
	s.rec.Free()
	s.rec = nil
}
