// SPDX-License-Identifier: MIT

package ifd

import (
	"math"

	"github.com/arnevogt/tiffio"
	"github.com/arnevogt/tiffio/storage"
	"github.com/arnevogt/tiffio/tags"
)

// ParseValue materialises one raw entry into the typed slot v
// according to its descriptor: wire-type check with promotion from
// declared alternates, count validation, inline-versus-external
// resolution, and per-element endian conversion. On failure the slot
// is left untouched.
func ParseValue(r storage.Reader, h tiffio.Header, e tiffio.Entry, v *tags.Value) error {
	d := v.Descriptor()
	if e.Code != d.Code {
		return tiffio.Errf(tiffio.KindInvalidTag, "entry %v parsed against descriptor %v", e.Code, d.Code)
	}
	if !d.Accepts(e.Type) {
		return tiffio.Errf(tiffio.KindInvalidTagType, "tag %v: wire type %v, descriptor takes %v", e.Code, e.Type, d.Type)
	}
	elemSize := e.Type.Size()

	// Scalar descriptors require exactly one element; for rational
	// descriptors the wire count is the number of rational pairs, so
	// the same rule applies unchanged.
	if d.Count > 0 && e.Count != uint64(d.Count) {
		return tiffio.Errf(tiffio.KindInvalidTag, "tag %v: count %d, descriptor requires %d", e.Code, e.Count, d.Count)
	}

	data, release, err := entryData(r, h, e, elemSize)
	if err != nil {
		return err
	}
	if release != nil {
		defer release()
	}

	switch d.Kind {
	case tags.KindUint:
		vals := make([]uint64, e.Count)
		for i := range vals {
			vals[i] = tiffio.ReadUint(data[uint64(i)*uint64(elemSize):], int(elemSize), h.Order)
		}
		return v.SetUints(vals...)
	case tags.KindInt:
		vals := make([]int64, e.Count)
		for i := range vals {
			raw := tiffio.ReadUint(data[uint64(i)*uint64(elemSize):], int(elemSize), h.Order)
			if e.Type.IsSigned() {
				vals[i] = signExtend(raw, elemSize)
			} else {
				vals[i] = int64(raw)
			}
		}
		return v.SetInts(vals...)
	case tags.KindFloat:
		vals := make([]float64, e.Count)
		for i := range vals {
			off := uint64(i) * uint64(elemSize)
			if elemSize == 4 {
				vals[i] = float64(math.Float32frombits(h.Order.Uint32(data[off:])))
			} else {
				vals[i] = math.Float64frombits(h.Order.Uint64(data[off:]))
			}
		}
		return v.SetFloats(vals...)
	case tags.KindRational:
		vals := make([]tiffio.Rational, e.Count)
		for i := range vals {
			off := uint64(i) * 8
			vals[i] = tiffio.Rational{Num: h.Order.Uint32(data[off:]), Den: h.Order.Uint32(data[off+4:])}
		}
		return v.SetRationals(vals...)
	case tags.KindSRational:
		vals := make([]tiffio.SRational, e.Count)
		for i := range vals {
			off := uint64(i) * 8
			vals[i] = tiffio.SRational{Num: int32(h.Order.Uint32(data[off:])), Den: int32(h.Order.Uint32(data[off+4:]))}
		}
		return v.SetSRationals(vals...)
	case tags.KindASCII:
		// The TIFF spec mandates a single NUL terminator, but real
		// files carry zero or several; trimming any trailing run is
		// always safe.
		end := len(data)
		for end > 0 && data[end-1] == 0 {
			end--
		}
		return v.SetASCII(string(data[:end]))
	case tags.KindASCIIList:
		var vals []string
		start := 0
		for start < len(data) {
			n := strnlen(data[start:])
			vals = append(vals, string(data[start:start+n]))
			// An unterminated last string is accepted as-is.
			start += n + 1
		}
		return v.SetASCIIList(vals...)
	case tags.KindBytes:
		return v.SetBytes(data)
	}
	return tiffio.Errf(tiffio.KindInvalidTagType, "tag %v: unhandled kind", e.Code)
}

func signExtend(raw uint64, size uint32) int64 {
	switch size {
	case 1:
		return int64(int8(raw))
	case 2:
		return int64(int16(raw))
	case 4:
		return int64(int32(raw))
	}
	return int64(raw)
}

// strnlen returns the index of the first NUL in data, or len(data)
// when there is none.
func strnlen(data []byte) int {
	for i, b := range data {
		if b == 0 {
			return i
		}
	}
	return len(data)
}
