package abi

import "encoding/binary"

// Structural is implemented by values with a fixed little-endian wire
// layout. Size is constant for a type; Put writes exactly Size bytes.
type Structural interface {
	Size() int
	Put(b []byte)
}

// U32 is a Structural uint32.
type U32 uint32

// Size implements Structural.
func (U32) Size() int { return 4 }

// Put implements Structural.
func (v U32) Put(b []byte) { binary.LittleEndian.PutUint32(b, uint32(v)) }

// PutSlice pins items as a contiguous array tagged with kind.
func PutSlice[T Structural](kind Kind, items []T) (*Buffer, error) {
	var zero T
	size := zero.Size()
	b, err := Alloc(kind, size*len(items))
	if err != nil {
		return nil, err
	}
	out := b.Bytes()
	for i, item := range items {
		item.Put(out[i*size : (i+1)*size])
	}
	return b, nil
}

// PutU32s pins a copy of values as a KindU32 array.
func PutU32s(values []uint32) (*Buffer, error) {
	b, err := Alloc(KindU32, 4*len(values))
	if err != nil {
		return nil, err
	}
	out := b.Bytes()
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[4*i:], v)
	}
	return b, nil
}

// ReadU32s decodes a little-endian uint32 array.
func ReadU32s(b []byte) []uint32 {
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[4*i:])
	}
	return out
}

// StrTable interns strings into pinned buffers so views of them stay valid
// for the table's lifetime. Empty strings get a real, non-null address.
type StrTable struct {
	strs map[string]*Buffer
}

// NewStrTable returns an empty table.
func NewStrTable() *StrTable {
	return &StrTable{strs: make(map[string]*Buffer)}
}

// Intern returns a view of s, pinning a copy on first use.
func (t *StrTable) Intern(s string) (Str, error) {
	if b, ok := t.strs[s]; ok {
		return StrOf(b), nil
	}
	b, err := Alloc(KindInterned, len(s))
	if err != nil {
		return Str{}, err
	}
	copy(b.Bytes(), s)
	t.strs[s] = b
	return StrOf(b), nil
}

// Len returns the number of interned strings.
func (t *StrTable) Len() int { return len(t.strs) }

// Free releases every interned string.
func (t *StrTable) Free() {
	for s, b := range t.strs {
		b.Free()
		delete(t.strs, s)
	}
}
