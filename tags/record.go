// SPDX-License-Identifier: MIT

package tags

import (
	"encoding/binary"
	"math"

	"github.com/arnevogt/tiffio"
)

// Value is one slot of a Record: the descriptor it belongs to, a
// presence flag, and the parsed native value.
type Value struct {
	desc    *Descriptor
	present bool

	uints      []uint64
	ints       []int64
	floats     []float64
	rationals  []tiffio.Rational
	srationals []tiffio.SRational
	str        string
	strs       []string
	raw        []byte
}

// Descriptor returns the descriptor this slot belongs to.
func (v *Value) Descriptor() *Descriptor { return v.desc }

// Present reports whether the tag carried a value. Required
// descriptors are always present after a successful extraction.
func (v *Value) Present() bool { return v.present }

// Clear marks the slot absent and drops its data.
func (v *Value) Clear() {
	*v = Value{desc: v.desc}
}

// Count returns the number of wire elements the value occupies: array
// length for numeric kinds, bytes including terminators for strings.
func (v *Value) Count() int {
	switch v.desc.Kind {
	case KindUint:
		return len(v.uints)
	case KindInt:
		return len(v.ints)
	case KindFloat:
		return len(v.floats)
	case KindRational:
		return len(v.rationals)
	case KindSRational:
		return len(v.srationals)
	case KindASCII:
		return len(v.str) + 1
	case KindASCIIList:
		n := 0
		for _, s := range v.strs {
			n += len(s) + 1
		}
		return n
	case KindBytes:
		return len(v.raw)
	}
	return 0
}

// WireSize returns the payload size in bytes when serialised with the
// primary wire type.
func (v *Value) WireSize() int64 {
	return int64(v.Count()) * int64(v.desc.Type.Size())
}

// ExternalSize returns the bytes the value contributes to the
// external data block of an IFD, or 0 when it fits the inline slot.
func (v *Value) ExternalSize(format tiffio.Format) int64 {
	if !v.present {
		return 0
	}
	if size := v.WireSize(); size > int64(format.InlineSize()) {
		return size
	}
	return 0
}

// Uint returns the first element of an unsigned value.
func (v *Value) Uint() uint64 {
	return v.uints[0]
}

// UintOr returns the first element, or def when the slot is absent.
func (v *Value) UintOr(def uint64) uint64 {
	if !v.present || len(v.uints) == 0 {
		return def
	}
	return v.uints[0]
}

func (v *Value) Uints() []uint64                { return v.uints }
func (v *Value) Ints() []int64                  { return v.ints }
func (v *Value) Floats() []float64              { return v.floats }
func (v *Value) Rationals() []tiffio.Rational   { return v.rationals }
func (v *Value) SRationals() []tiffio.SRational { return v.srationals }
func (v *Value) ASCII() string                  { return v.str }
func (v *Value) ASCIIList() []string            { return v.strs }
func (v *Value) Bytes() []byte                  { return v.raw }

func (v *Value) setCountErr(n int) error {
	if v.desc.Count > 0 && n != v.desc.Count {
		return tiffio.Errf(tiffio.KindInvalidTag, "tag %v: %d elements, descriptor requires %d", v.desc.Code, n, v.desc.Count)
	}
	return nil
}

// SetUints stores an unsigned value.
func (v *Value) SetUints(vals ...uint64) error {
	if v.desc.Kind != KindUint {
		return tiffio.Errf(tiffio.KindInvalidTagType, "tag %v is not unsigned", v.desc.Code)
	}
	if err := v.setCountErr(len(vals)); err != nil {
		return err
	}
	v.uints = append(v.uints[:0], vals...)
	v.present = true
	return nil
}

// SetInts stores a signed value.
func (v *Value) SetInts(vals ...int64) error {
	if v.desc.Kind != KindInt {
		return tiffio.Errf(tiffio.KindInvalidTagType, "tag %v is not signed", v.desc.Code)
	}
	if err := v.setCountErr(len(vals)); err != nil {
		return err
	}
	v.ints = append(v.ints[:0], vals...)
	v.present = true
	return nil
}

// SetFloats stores a floating point value.
func (v *Value) SetFloats(vals ...float64) error {
	if v.desc.Kind != KindFloat {
		return tiffio.Errf(tiffio.KindInvalidTagType, "tag %v is not floating point", v.desc.Code)
	}
	if err := v.setCountErr(len(vals)); err != nil {
		return err
	}
	v.floats = append(v.floats[:0], vals...)
	v.present = true
	return nil
}

// SetRationals stores an unsigned rational value.
func (v *Value) SetRationals(vals ...tiffio.Rational) error {
	if v.desc.Kind != KindRational {
		return tiffio.Errf(tiffio.KindInvalidTagType, "tag %v is not rational", v.desc.Code)
	}
	if err := v.setCountErr(len(vals)); err != nil {
		return err
	}
	v.rationals = append(v.rationals[:0], vals...)
	v.present = true
	return nil
}

// SetSRationals stores a signed rational value.
func (v *Value) SetSRationals(vals ...tiffio.SRational) error {
	if v.desc.Kind != KindSRational {
		return tiffio.Errf(tiffio.KindInvalidTagType, "tag %v is not signed rational", v.desc.Code)
	}
	if err := v.setCountErr(len(vals)); err != nil {
		return err
	}
	v.srationals = append(v.srationals[:0], vals...)
	v.present = true
	return nil
}

// SetASCII stores an ASCII value.
func (v *Value) SetASCII(s string) error {
	if v.desc.Kind != KindASCII {
		return tiffio.Errf(tiffio.KindInvalidTagType, "tag %v is not ASCII", v.desc.Code)
	}
	v.str = s
	v.present = true
	return nil
}

// SetASCIIList stores a NUL-separated ASCII list value.
func (v *Value) SetASCIIList(vals ...string) error {
	if v.desc.Kind != KindASCIIList {
		return tiffio.Errf(tiffio.KindInvalidTagType, "tag %v is not an ASCII list", v.desc.Code)
	}
	v.strs = append(v.strs[:0], vals...)
	v.present = true
	return nil
}

// SetBytes stores a raw byte value.
func (v *Value) SetBytes(raw []byte) error {
	if v.desc.Kind != KindBytes {
		return tiffio.Errf(tiffio.KindInvalidTagType, "tag %v is not a byte payload", v.desc.Code)
	}
	v.raw = append(v.raw[:0], raw...)
	v.present = true
	return nil
}

// CopyFrom copies another slot's payload into v. The two descriptors
// must agree on kind.
func (v *Value) CopyFrom(src *Value) error {
	if !src.present {
		v.Clear()
		return nil
	}
	switch src.desc.Kind {
	case KindUint:
		return v.SetUints(src.uints...)
	case KindInt:
		return v.SetInts(src.ints...)
	case KindFloat:
		return v.SetFloats(src.floats...)
	case KindRational:
		return v.SetRationals(src.rationals...)
	case KindSRational:
		return v.SetSRationals(src.srationals...)
	case KindASCII:
		return v.SetASCII(src.str)
	case KindASCIIList:
		return v.SetASCIIList(src.strs...)
	case KindBytes:
		return v.SetBytes(src.raw)
	}
	return tiffio.Errf(tiffio.KindInvalidTagType, "tag %v: unhandled kind", src.desc.Code)
}

// EqualValue reports whether two slots hold the same payload.
func (v *Value) EqualValue(other *Value) bool {
	if v.desc.Kind != other.desc.Kind || v.present != other.present {
		return false
	}
	if !v.present {
		return true
	}
	switch v.desc.Kind {
	case KindUint:
		return equalSlice(v.uints, other.uints)
	case KindInt:
		return equalSlice(v.ints, other.ints)
	case KindFloat:
		return equalSlice(v.floats, other.floats)
	case KindRational:
		return equalSlice(v.rationals, other.rationals)
	case KindSRational:
		return equalSlice(v.srationals, other.srationals)
	case KindASCII:
		return v.str == other.str
	case KindASCIIList:
		return equalSlice(v.strs, other.strs)
	case KindBytes:
		return equalSlice(v.raw, other.raw)
	}
	return false
}

func equalSlice[E comparable](a, b []E) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// EncodeData serialises the value's payload with the primary wire
// type into dst, which must hold WireSize() bytes, in the given byte
// order.
func (v *Value) EncodeData(dst []byte, order binary.ByteOrder) {
	elemSize := int(v.desc.Type.Size())
	switch v.desc.Kind {
	case KindUint:
		for i, u := range v.uints {
			tiffio.PutUint(dst[i*elemSize:], elemSize, order, u)
		}
	case KindInt:
		for i, s := range v.ints {
			tiffio.PutUint(dst[i*elemSize:], elemSize, order, uint64(s))
		}
	case KindFloat:
		for i, f := range v.floats {
			if v.desc.Type == tiffio.FLOAT {
				order.PutUint32(dst[i*4:], math.Float32bits(float32(f)))
			} else {
				order.PutUint64(dst[i*8:], math.Float64bits(f))
			}
		}
	case KindRational:
		for i, r := range v.rationals {
			order.PutUint32(dst[i*8:], r.Num)
			order.PutUint32(dst[i*8+4:], r.Den)
		}
	case KindSRational:
		for i, r := range v.srationals {
			order.PutUint32(dst[i*8:], uint32(r.Num))
			order.PutUint32(dst[i*8+4:], uint32(r.Den))
		}
	case KindASCII:
		copy(dst, v.str)
		dst[len(v.str)] = 0
	case KindASCIIList:
		pos := 0
		for _, s := range v.strs {
			copy(dst[pos:], s)
			pos += len(s)
			dst[pos] = 0
			pos++
		}
	case KindBytes:
		copy(dst, v.raw)
	}
}

// Record is a typed tuple of tag values, one slot per descriptor of
// its catalogue, in ascending tag-code order.
type Record struct {
	cat  Catalogue
	vals []Value
}

// NewRecord returns an empty record over the catalogue.
func NewRecord(cat Catalogue) *Record {
	r := &Record{cat: cat, vals: make([]Value, len(cat))}
	for i := range r.vals {
		r.vals[i].desc = &cat[i]
	}
	return r
}

// Catalogue returns the record's catalogue.
func (r *Record) Catalogue() Catalogue { return r.cat }

// Len returns the number of slots.
func (r *Record) Len() int { return len(r.vals) }

// At returns the slot at index i, in ascending tag-code order.
func (r *Record) At(i int) *Value { return &r.vals[i] }

// Value returns the slot for a tag code.
func (r *Record) Value(code tiffio.TagCode) (*Value, bool) {
	if i, found := r.index(code); found {
		return &r.vals[i], true
	}
	return nil, false
}

func (r *Record) index(code tiffio.TagCode) (int, bool) {
	lo, hi := 0, len(r.cat)
	for lo < hi {
		mid := (lo + hi) / 2
		if r.cat[mid].Code < code {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(r.cat) && r.cat[lo].Code == code {
		return lo, true
	}
	return 0, false
}

// PresentCount returns the number of slots that carry a value.
func (r *Record) PresentCount() int {
	n := 0
	for i := range r.vals {
		if r.vals[i].present {
			n++
		}
	}
	return n
}

// ExternalSize returns the total external-block bytes of all present
// values, each padded to 2-byte alignment.
func (r *Record) ExternalSize(format tiffio.Format) int64 {
	var total int64
	for i := range r.vals {
		if size := r.vals[i].ExternalSize(format); size > 0 {
			total += size + size&1
		}
	}
	return total
}

// EncodeExternal serialises one tag's external payload into dst with
// the chosen byte order. It fails when the value is absent or fits
// inline.
func (r *Record) EncodeExternal(code tiffio.TagCode, dst []byte, format tiffio.Format, order binary.ByteOrder) (int64, error) {
	v, found := r.Value(code)
	if !found || !v.present {
		return 0, tiffio.Errf(tiffio.KindInvalidTag, "tag %v has no value", code)
	}
	size := v.ExternalSize(format)
	if size == 0 {
		return 0, tiffio.Errf(tiffio.KindInvalidTag, "tag %v fits inline, no external payload", code)
	}
	if int64(len(dst)) < size {
		return 0, tiffio.Errf(tiffio.KindOutOfBounds, "tag %v needs %d bytes, have %d", code, size, len(dst))
	}
	v.EncodeData(dst[:size], order)
	return size, nil
}
