package entities

import "sort"

// FieldFilter restricts decoding of one frame kind. A nil *FieldFilter, or one
// with All set, includes every field; otherwise only the named fields survive.
type FieldFilter struct {
	All    bool
	fields map[string]struct{}
}

// Unfiltered returns a filter that keeps every field.
func Unfiltered() *FieldFilter {
	return &FieldFilter{All: true}
}

// OnlyFields returns a filter keeping the given names. Duplicates collapse;
// an empty list keeps nothing.
func OnlyFields(names ...string) *FieldFilter {
	f := &FieldFilter{fields: make(map[string]struct{}, len(names))}
	for _, n := range names {
		f.fields[n] = struct{}{}
	}
	return f
}

// IsUnfiltered reports whether every field is kept.
func (f *FieldFilter) IsUnfiltered() bool {
	return f == nil || f.All
}

// Allows reports whether the named field survives the filter.
func (f *FieldFilter) Allows(name string) bool {
	if f.IsUnfiltered() {
		return true
	}
	_, ok := f.fields[name]
	return ok
}

// Names returns the kept names sorted, or nil when unfiltered.
func (f *FieldFilter) Names() []string {
	if f.IsUnfiltered() {
		return nil
	}
	names := make([]string, 0, len(f.fields))
	for n := range f.fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of distinct kept names (0 when unfiltered).
func (f *FieldFilter) Len() int {
	if f.IsUnfiltered() {
		return 0
	}
	return len(f.fields)
}

// FilterSet is the frozen per-kind filter policy handed to the engine.
// The zero value is unfiltered for every kind.
type FilterSet struct {
	Main *FieldFilter
	Slow *FieldFilter
	Gps  *FieldFilter
}

// For returns the filter of one kind.
func (s *FilterSet) For(kind FrameKind) *FieldFilter {
	if s == nil {
		return nil
	}
	switch kind {
	case FrameKindMain:
		return s.Main
	case FrameKindSlow:
		return s.Slow
	case FrameKindGps:
		return s.Gps
	default:
		return nil
	}
}

// Apply narrows a frame definition, keeping the engine's declaration order.
// It also returns the source index of every surviving field.
func (f *FieldFilter) Apply(def FrameDef) (FrameDef, []int) {
	out := make(FrameDef, 0, len(def))
	idx := make([]int, 0, len(def))
	for i, field := range def {
		if f.Allows(field.Name) {
			out = append(out, field)
			idx = append(idx, i)
		}
	}
	return out, idx
}
