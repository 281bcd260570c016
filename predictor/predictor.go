// SPDX-License-Identifier: MIT

// Package predictor implements the invertible transforms applied to
// sample data before compression: horizontal differencing on integer
// samples and bit-pattern differencing on floating point samples
// (16-, 24-, 32- and 64-bit). Both run in place over byte buffers.
//
// Encoding walks each row right to left so every delta reads the
// still-unmodified left neighbour; decoding walks left to right and
// accumulates. Integer arithmetic is modular at the sample width, so
// decode(encode(x)) holds even across wraparound.
package predictor

import (
	"encoding/binary"

	"github.com/arnevogt/tiffio"
)

// Params describes the buffer geometry a transform runs over.
// RowStride is in samples, not bytes; it is at least
// Width*SamplesPerPixel and larger when rows are padded.
type Params struct {
	ElemSize        int // bytes per sample: 1, 2, 4, 8; floats also 3
	Width           int // pixels per row
	Height          int // rows
	SamplesPerPixel int
	RowStride       int
	Order           binary.ByteOrder // byte order of the buffer
}

func (p Params) rowStride() int {
	if p.RowStride > 0 {
		return p.RowStride
	}
	return p.Width * p.SamplesPerPixel
}

func (p Params) validate(scheme tiffio.PredictorScheme, bufLen int) error {
	switch p.ElemSize {
	case 1, 2, 4, 8:
	case 3:
		if scheme != tiffio.PredictorFloatingPoint {
			return tiffio.Errf(tiffio.KindUnsupportedFeature, "3-byte samples support only the floating-point predictor")
		}
	default:
		return tiffio.Errf(tiffio.KindUnsupportedFeature, "unsupported sample size %d", p.ElemSize)
	}
	if p.Width <= 0 || p.Height <= 0 || p.SamplesPerPixel <= 0 {
		return tiffio.Errf(tiffio.KindInvalidFormat, "bad predictor geometry %d×%d×%d", p.Width, p.Height, p.SamplesPerPixel)
	}
	need := ((p.Height-1)*p.rowStride() + p.Width*p.SamplesPerPixel) * p.ElemSize
	if bufLen < need {
		return tiffio.Errf(tiffio.KindOutOfBounds, "buffer of %d bytes, geometry needs %d", bufLen, need)
	}
	return nil
}

// Encode applies the forward transform in place. Scheme
// PredictorNone is the identity.
func Encode(scheme tiffio.PredictorScheme, buf []byte, p Params) error {
	switch scheme {
	case tiffio.PredictorNone:
		return nil
	case tiffio.PredictorHorizontal:
		if err := p.validate(scheme, len(buf)); err != nil {
			return err
		}
		horizontal(buf, p, true)
		return nil
	case tiffio.PredictorFloatingPoint:
		if err := p.validate(scheme, len(buf)); err != nil {
			return err
		}
		floatingPoint(buf, p, true)
		return nil
	}
	return tiffio.Errf(tiffio.KindUnsupportedFeature, "unknown predictor %d", scheme)
}

// Decode applies the inverse transform in place.
func Decode(scheme tiffio.PredictorScheme, buf []byte, p Params) error {
	switch scheme {
	case tiffio.PredictorNone:
		return nil
	case tiffio.PredictorHorizontal:
		if err := p.validate(scheme, len(buf)); err != nil {
			return err
		}
		horizontal(buf, p, false)
		return nil
	case tiffio.PredictorFloatingPoint:
		if err := p.validate(scheme, len(buf)); err != nil {
			return err
		}
		floatingPoint(buf, p, false)
		return nil
	}
	return tiffio.Errf(tiffio.KindUnsupportedFeature, "unknown predictor %d", scheme)
}

// horizontal runs integer differencing. The 8-bit case dominates real
// files and skips all element decoding; 1 to 4 samples per pixel have
// their own loops so the per-sample offsets are constants.
func horizontal(buf []byte, p Params, encode bool) {
	if p.ElemSize == 1 {
		horizontalBytes(buf, p, encode)
		return
	}
	spp := p.SamplesPerPixel
	stride := p.rowStride() * p.ElemSize
	rowBytes := p.Width * spp * p.ElemSize
	pixel := spp * p.ElemSize
	for y := 0; y < p.Height; y++ {
		row := buf[y*stride : y*stride+rowBytes]
		if encode {
			for x := p.Width - 1; x >= 1; x-- {
				for s := 0; s < spp; s++ {
					off := x*pixel + s*p.ElemSize
					cur := tiffio.ReadUint(row[off:], p.ElemSize, p.Order)
					prev := tiffio.ReadUint(row[off-pixel:], p.ElemSize, p.Order)
					tiffio.PutUint(row[off:], p.ElemSize, p.Order, cur-prev)
				}
			}
		} else {
			for x := 1; x < p.Width; x++ {
				for s := 0; s < spp; s++ {
					off := x*pixel + s*p.ElemSize
					cur := tiffio.ReadUint(row[off:], p.ElemSize, p.Order)
					prev := tiffio.ReadUint(row[off-pixel:], p.ElemSize, p.Order)
					tiffio.PutUint(row[off:], p.ElemSize, p.Order, cur+prev)
				}
			}
		}
	}
}

func horizontalBytes(buf []byte, p Params, encode bool) {
	stride := p.rowStride()
	rowBytes := p.Width * p.SamplesPerPixel
	for y := 0; y < p.Height; y++ {
		row := buf[y*stride : y*stride+rowBytes]
		switch p.SamplesPerPixel {
		case 1:
			if encode {
				for x := len(row) - 1; x >= 1; x-- {
					row[x] -= row[x-1]
				}
			} else {
				for x := 1; x < len(row); x++ {
					row[x] += row[x-1]
				}
			}
		case 2:
			if encode {
				for x := len(row) - 1; x >= 2; x-- {
					row[x] -= row[x-2]
				}
			} else {
				for x := 2; x < len(row); x++ {
					row[x] += row[x-2]
				}
			}
		case 3:
			if encode {
				for x := len(row) - 1; x >= 3; x-- {
					row[x] -= row[x-3]
				}
			} else {
				for x := 3; x < len(row); x++ {
					row[x] += row[x-3]
				}
			}
		case 4:
			if encode {
				for x := len(row) - 1; x >= 4; x-- {
					row[x] -= row[x-4]
				}
			} else {
				for x := 4; x < len(row); x++ {
					row[x] += row[x-4]
				}
			}
		default:
			spp := p.SamplesPerPixel
			if encode {
				for x := len(row) - 1; x >= spp; x-- {
					row[x] -= row[x-spp]
				}
			} else {
				for x := spp; x < len(row); x++ {
					row[x] += row[x-spp]
				}
			}
		}
	}
}

// floatingPoint differences the integer bit representation of each
// float element; the float width decides the modulus. The transform
// never interprets the value, so NaNs and infinities round-trip
// bit-exactly.
func floatingPoint(buf []byte, p Params, encode bool) {
	spp := p.SamplesPerPixel
	stride := p.rowStride() * p.ElemSize
	rowBytes := p.Width * spp * p.ElemSize
	pixel := spp * p.ElemSize
	mask := uint64(1)<<(8*p.ElemSize) - 1
	if p.ElemSize == 8 {
		mask = ^uint64(0)
	}
	for y := 0; y < p.Height; y++ {
		row := buf[y*stride : y*stride+rowBytes]
		if encode {
			for x := p.Width - 1; x >= 1; x-- {
				for s := 0; s < spp; s++ {
					off := x*pixel + s*p.ElemSize
					cur := readBits(row[off:], p.ElemSize, p.Order)
					prev := readBits(row[off-pixel:], p.ElemSize, p.Order)
					putBits(row[off:], p.ElemSize, p.Order, (cur-prev)&mask)
				}
			}
		} else {
			for x := 1; x < p.Width; x++ {
				for s := 0; s < spp; s++ {
					off := x*pixel + s*p.ElemSize
					cur := readBits(row[off:], p.ElemSize, p.Order)
					prev := readBits(row[off-pixel:], p.ElemSize, p.Order)
					putBits(row[off:], p.ElemSize, p.Order, (cur+prev)&mask)
				}
			}
		}
	}
}

func readBits(buf []byte, size int, order binary.ByteOrder) uint64 {
	if size == 3 {
		return uint64(tiffio.ReadUint24(buf, order))
	}
	return tiffio.ReadUint(buf, size, order)
}

func putBits(buf []byte, size int, order binary.ByteOrder, v uint64) {
	if size == 3 {
		tiffio.PutUint24(buf, order, uint32(v))
		return
	}
	tiffio.PutUint(buf, size, order, v)
}
