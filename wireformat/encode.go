package wireformat

import (
	"github.com/blackbox-log/blackbox-log-go/domain/entities"
	"github.com/blackbox-log/blackbox-log-go/internal/abi"
)

// PutFrameDef pins def as a FieldDef array. Names are interned in strs, so
// the array's views stay valid for as long as strs does.
func PutFrameDef(def entities.FrameDef, strs *abi.StrTable) (*abi.Buffer, error) {
	recs := make([]FieldDefRecord, len(def))
	for i, f := range def {
		name, err := strs.Intern(f.Name)
		if err != nil {
			return nil, err
		}
		recs[i] = FieldDefRecord{Name: name, Signed: f.Signed, Unit: f.Unit}
	}
	return abi.PutSlice(abi.KindFieldDef, recs)
}

// PutStrs pins values as a Str array interned in strs.
func PutStrs(values []string, strs *abi.StrTable) (*abi.Buffer, error) {
	views := make([]abi.Str, len(values))
	for i, v := range values {
		s, err := strs.Intern(v)
		if err != nil {
			return nil, err
		}
		views[i] = s
	}
	return abi.PutSlice(abi.KindStr, views)
}

// PutUnknownHeaders pins headers, in the given order, as an UnknownHeader
// array interned in strs.
func PutUnknownHeaders(headers []entities.UnknownHeader, strs *abi.StrTable) (*abi.Buffer, error) {
	recs := make([]UnknownHeaderRecord, len(headers))
	for i, h := range headers {
		k, err := strs.Intern(h.Key)
		if err != nil {
			return nil, err
		}
		v, err := strs.Intern(h.Value)
		if err != nil {
			return nil, err
		}
		recs[i] = UnknownHeaderRecord{Key: k, Value: v}
	}
	return abi.PutSlice(abi.KindUnknownHeader, recs)
}

// PutRecord pins a single fixed-size record.
func PutRecord(r abi.Structural) (*abi.Buffer, error) {
	b, err := abi.Alloc(abi.KindRecord, r.Size())
	if err != nil {
		return nil, err
	}
	r.Put(b.Bytes())
	return b, nil
}
