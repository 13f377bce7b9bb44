package abi

import (
	"encoding/binary"
	"unicode/utf8"
)

// StrSize is the wire size of a Str.
const StrSize = 8

// Str is a borrowed (len, ptr) view of UTF-8 bytes in linear memory owned by
// something that outlives it. It is never freed through the view.
// A zero Ptr encodes an absent optional string.
type Str struct {
	Len uint32
	Ptr uint32
}

// StrOf views the whole of b.
func StrOf(b *Buffer) Str {
	return Str{Len: uint32(b.Len()), Ptr: b.Ptr()}
}

// Absent reports whether the view encodes "no value".
func (s Str) Absent() bool { return s.Ptr == 0 }

// Pack returns the scalar return form of the view.
func (s Str) Pack() uint64 { return Pack(s.Ptr, s.Len) }

// UnpackStr inverts Str.Pack.
func UnpackStr(packed uint64) Str {
	ptr, n := Unpack(packed)
	return Str{Len: n, Ptr: ptr}
}

// Resolve copies the viewed bytes out as a string. It fails on an absent
// view, an unmapped address, or invalid UTF-8.
func (s Str) Resolve() (string, bool) {
	if s.Absent() {
		return "", false
	}
	b, ok := View(s.Ptr, s.Len)
	if !ok || !utf8.Valid(b) {
		return "", false
	}
	return string(b), true
}

// Size implements Structural.
func (Str) Size() int { return StrSize }

// Put implements Structural: [len u32][ptr u32].
func (s Str) Put(b []byte) {
	binary.LittleEndian.PutUint32(b[0:], s.Len)
	binary.LittleEndian.PutUint32(b[4:], s.Ptr)
}

// ReadStr decodes a Str from its wire form.
func ReadStr(b []byte) Str {
	return Str{
		Len: binary.LittleEndian.Uint32(b[0:]),
		Ptr: binary.LittleEndian.Uint32(b[4:]),
	}
}

// OwnedStr is a string fabricated by the native side and pinned in its own
// buffer. The zero value is "no value"; the optional form needs no
// discriminant, so it has the size and alignment of the present form.
type OwnedStr struct {
	buf *Buffer
}

// NewOwnedStr pins a copy of s.
func NewOwnedStr(s string) (OwnedStr, error) {
	b, err := Alloc(KindBytes, len(s))
	if err != nil {
		return OwnedStr{}, err
	}
	copy(b.Bytes(), s)
	return OwnedStr{buf: b}, nil
}

// NewReservedStr is NewOwnedStr drawing on the reserved headroom past the
// allocation limit.
func NewReservedStr(s string) (OwnedStr, error) {
	b, err := AllocReserved(KindBytes, len(s))
	if err != nil {
		return OwnedStr{}, err
	}
	copy(b.Bytes(), s)
	return OwnedStr{buf: b}, nil
}

// IsSome reports whether o holds a string.
func (o OwnedStr) IsSome() bool { return o.buf != nil }

// Str views the owned bytes. The zero OwnedStr views as absent.
func (o OwnedStr) Str() Str {
	if o.buf == nil {
		return Str{}
	}
	return StrOf(o.buf)
}

// String returns the owned contents.
func (o OwnedStr) String() string {
	if o.buf == nil {
		return ""
	}
	return string(o.buf.Bytes())
}

// Free releases the owned bytes. Freeing the zero value is a no-op.
func (o OwnedStr) Free() bool {
	return o.buf.Free()
}
