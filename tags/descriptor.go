// SPDX-License-Identifier: MIT

// Package tags maps TIFF tag codes to typed descriptors and holds
// typed records of tag values. A Catalogue is a strictly ascending
// list of descriptors; a Record is one value slot per descriptor.
// Descriptors are plain runtime data, validated when a catalogue is
// built.
package tags

import (
	"sort"

	"github.com/arnevogt/tiffio"
)

// ValueKind is the native shape a tag value takes after parsing.
type ValueKind int

const (
	KindUint ValueKind = iota
	KindInt
	KindFloat
	KindRational
	KindSRational
	KindASCII     // single string
	KindASCIIList // NUL-separated strings
	KindBytes     // raw bytes (UNDEFINED payloads)
)

// Descriptor describes one tag: its code, primary wire type, the
// native kind it parses into, the expected element count (0 for
// variable-length), whether it may be absent, and which alternate
// wire types may be promoted to the primary on read.
type Descriptor struct {
	Code     tiffio.TagCode
	Type     tiffio.DataType
	Kind     ValueKind
	Count    int // 0 = variable; otherwise exact element count
	Optional bool
	Alt      []tiffio.DataType
}

// kindFor returns the native kind implied by a wire type.
func kindFor(t tiffio.DataType) (ValueKind, bool) {
	switch {
	case t == tiffio.ASCII:
		return KindASCII, true
	case t == tiffio.UNDEFINED:
		return KindBytes, true
	case t == tiffio.RATIONAL:
		return KindRational, true
	case t == tiffio.SRATIONAL:
		return KindSRational, true
	case t.IsFloat():
		return KindFloat, true
	case t.IsSigned():
		return KindInt, true
	case t.IsIntegral():
		return KindUint, true
	}
	return 0, false
}

// Validate checks the descriptor invariants: the native kind must be
// memory-compatible with the primary wire type, rational descriptors
// take no promotions, string kinds pair only with ASCII, and every
// alternate must be a representation-compatible widening of the
// native kind.
func (d *Descriptor) Validate() error {
	if d.Type.Size() == 0 {
		return tiffio.Errf(tiffio.KindInvalidTagType, "tag %v: unknown wire type %d", d.Code, d.Type)
	}
	natural, ok := kindFor(d.Type)
	if !ok {
		return tiffio.Errf(tiffio.KindInvalidTagType, "tag %v: wire type %v has no native kind", d.Code, d.Type)
	}
	switch d.Kind {
	case KindASCII, KindASCIIList:
		if d.Type != tiffio.ASCII {
			return tiffio.Errf(tiffio.KindInvalidTagType, "tag %v: string kinds require the ASCII wire type", d.Code)
		}
	case KindRational, KindSRational:
		if natural != d.Kind {
			return tiffio.Errf(tiffio.KindInvalidTagType, "tag %v: kind %d incompatible with wire type %v", d.Code, d.Kind, d.Type)
		}
		if len(d.Alt) > 0 {
			return tiffio.Errf(tiffio.KindInvalidTagType, "tag %v: rational descriptors permit no alternate types", d.Code)
		}
	case KindBytes:
		if d.Type.Size() != 1 {
			return tiffio.Errf(tiffio.KindInvalidTagType, "tag %v: byte kind requires a 1-byte wire type", d.Code)
		}
	default:
		if natural != d.Kind {
			return tiffio.Errf(tiffio.KindInvalidTagType, "tag %v: kind %d incompatible with wire type %v", d.Code, d.Kind, d.Type)
		}
	}
	for _, alt := range d.Alt {
		if alt == d.Type {
			return tiffio.Errf(tiffio.KindInvalidTagType, "tag %v: alternate equals primary type", d.Code)
		}
		altKind, ok := kindFor(alt)
		if !ok || alt.IsRational() {
			return tiffio.Errf(tiffio.KindInvalidTagType, "tag %v: alternate type %v not promotable", d.Code, alt)
		}
		// Widening only: the alternate must fit in the primary and
		// stay in a compatible integer class. IFD-pointer variants
		// promote into plain unsigned integers.
		if alt.Size() > d.Type.Size() {
			return tiffio.Errf(tiffio.KindInvalidTagType, "tag %v: alternate %v wider than primary %v", d.Code, alt, d.Type)
		}
		switch d.Kind {
		case KindUint:
			if altKind != KindUint {
				return tiffio.Errf(tiffio.KindInvalidTagType, "tag %v: alternate %v cannot widen to unsigned", d.Code, alt)
			}
		case KindInt:
			if altKind != KindInt && altKind != KindUint {
				return tiffio.Errf(tiffio.KindInvalidTagType, "tag %v: alternate %v cannot widen to signed", d.Code, alt)
			}
		case KindFloat:
			if altKind != KindFloat {
				return tiffio.Errf(tiffio.KindInvalidTagType, "tag %v: alternate %v cannot widen to float", d.Code, alt)
			}
		default:
			return tiffio.Errf(tiffio.KindInvalidTagType, "tag %v: kind %d permits no alternates", d.Code, d.Kind)
		}
	}
	return nil
}

// Accepts reports whether the descriptor can parse a value stored
// with the given wire type, either directly or by promotion.
func (d *Descriptor) Accepts(t tiffio.DataType) bool {
	if t == d.Type {
		return true
	}
	for _, alt := range d.Alt {
		if alt == t {
			return true
		}
	}
	return false
}

// A Catalogue is a list of descriptors sorted by strictly ascending
// tag code. The sorting makes record extraction a two-pointer merge.
type Catalogue []Descriptor

// NewCatalogue validates the descriptors and returns them as a
// catalogue. Descriptors may be given in any order; duplicate codes
// are rejected.
func NewCatalogue(descs ...Descriptor) (Catalogue, error) {
	cat := make(Catalogue, len(descs))
	copy(cat, descs)
	sort.Slice(cat, func(i, j int) bool { return cat[i].Code < cat[j].Code })
	for i := range cat {
		if err := cat[i].Validate(); err != nil {
			return nil, err
		}
		if i > 0 && cat[i].Code == cat[i-1].Code {
			return nil, tiffio.Errf(tiffio.KindInvalidTag, "duplicate descriptor for tag %v", cat[i].Code)
		}
	}
	return cat, nil
}

// MustCatalogue is NewCatalogue for the package's own tables.
func MustCatalogue(descs ...Descriptor) Catalogue {
	cat, err := NewCatalogue(descs...)
	if err != nil {
		panic(err)
	}
	return cat
}

// Find returns the descriptor for a tag code.
func (c Catalogue) Find(code tiffio.TagCode) (*Descriptor, bool) {
	i := sort.Search(len(c), func(i int) bool { return c[i].Code >= code })
	if i < len(c) && c[i].Code == code {
		return &c[i], true
	}
	return nil, false
}

// Merge returns a catalogue containing all descriptors of c plus
// those of extra whose codes are not already present.
func (c Catalogue) Merge(extra Catalogue) (Catalogue, error) {
	merged := append(Catalogue(nil), c...)
	for _, d := range extra {
		if _, exists := c.Find(d.Code); !exists {
			merged = append(merged, d)
		}
	}
	return NewCatalogue(merged...)
}
