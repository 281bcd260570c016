// SPDX-License-Identifier: MIT

// Package tile enumerates the chunks (tiles or strips) of an image
// and copies sample data between caller buffers and chunk buffers
// across the three supported interleaving conventions.
package tile

import (
	"github.com/arnevogt/tiffio"
)

// Layout names the memory ordering of a caller's image buffer.
type Layout int

const (
	// DHWC orders depth, height, width, channels: samples of one
	// pixel are adjacent (chunky).
	DHWC Layout = iota
	// DCHW orders depth, channels, height, width: planar per slice.
	DCHW
	// CDHW orders channels, depth, height, width: fully planar.
	CDHW
)

func (l Layout) String() string {
	switch l {
	case DHWC:
		return "DHWC"
	case DCHW:
		return "DCHW"
	case CDHW:
		return "CDHW"
	}
	return "Layout(?)"
}

// Shape describes the pixels of one image page.
type Shape struct {
	Width           uint32
	Height          uint32
	Depth           uint32 // 1 for plain 2D images
	BitsPerSample   uint16 // all samples share one width
	SamplesPerPixel uint16
	Format          tiffio.SampleFormat
	Planar          tiffio.Planar
}

// Validate rejects shapes the pipeline cannot carry.
func (s Shape) Validate() error {
	if s.Width == 0 || s.Height == 0 {
		return tiffio.Errf(tiffio.KindInvalidFormat, "empty image %d×%d", s.Width, s.Height)
	}
	if s.Depth == 0 {
		return tiffio.Errf(tiffio.KindInvalidFormat, "image depth must be at least 1")
	}
	if s.SamplesPerPixel == 0 {
		return tiffio.Errf(tiffio.KindInvalidFormat, "samples per pixel must be at least 1")
	}
	switch s.BitsPerSample {
	case 8, 16, 24, 32, 64:
	default:
		return tiffio.Errf(tiffio.KindUnsupportedFeature, "unsupported bits per sample %d", s.BitsPerSample)
	}
	if s.BitsPerSample == 24 && s.Format != tiffio.SampleFormatIEEEFloat {
		return tiffio.Errf(tiffio.KindUnsupportedFeature, "24-bit samples exist only as floats")
	}
	switch s.Planar {
	case tiffio.PlanarChunky, tiffio.PlanarSeparate:
	default:
		return tiffio.Errf(tiffio.KindInvalidFormat, "bad planar configuration %d", s.Planar)
	}
	switch s.Format {
	case tiffio.SampleFormatUint, tiffio.SampleFormatInt, tiffio.SampleFormatIEEEFloat, tiffio.SampleFormatUndefined:
	default:
		return tiffio.Errf(tiffio.KindInvalidFormat, "bad sample format %d", s.Format)
	}
	return nil
}

// BytesPerSample returns the byte size of one sample.
func (s Shape) BytesPerSample() int {
	return int(s.BitsPerSample) / 8
}

// PixelCount returns width × height × depth.
func (s Shape) PixelCount() int64 {
	return int64(s.Width) * int64(s.Height) * int64(s.Depth)
}

// BufferSize returns the byte size of a full image buffer for the
// shape, identical across the three layouts.
func (s Shape) BufferSize() int64 {
	return s.PixelCount() * int64(s.SamplesPerPixel) * int64(s.BytesPerSample())
}

// Region is an axis-aligned box over (channel, z, y, x): inclusive
// start, exclusive end.
type Region struct {
	C0, C1 uint32
	Z0, Z1 uint32
	Y0, Y1 uint32
	X0, X1 uint32
}

// FullRegion covers the whole image.
func FullRegion(s Shape) Region {
	return Region{
		C1: uint32(s.SamplesPerPixel),
		Z1: s.Depth,
		Y1: s.Height,
		X1: s.Width,
	}
}

// IsEmpty reports whether any extent is zero.
func (r Region) IsEmpty() bool {
	return r.C1 <= r.C0 || r.Z1 <= r.Z0 || r.Y1 <= r.Y0 || r.X1 <= r.X0
}

// Channels, Slices, Rows and Columns return the region extents.
func (r Region) Channels() uint32 { return r.C1 - r.C0 }
func (r Region) Slices() uint32   { return r.Z1 - r.Z0 }
func (r Region) Rows() uint32     { return r.Y1 - r.Y0 }
func (r Region) Columns() uint32  { return r.X1 - r.X0 }

// Clip intersects the region with the image bounds.
func (r Region) Clip(s Shape) Region {
	clipped := r
	if clipped.C1 > uint32(s.SamplesPerPixel) {
		clipped.C1 = uint32(s.SamplesPerPixel)
	}
	if clipped.Z1 > s.Depth {
		clipped.Z1 = s.Depth
	}
	if clipped.Y1 > s.Height {
		clipped.Y1 = s.Height
	}
	if clipped.X1 > s.Width {
		clipped.X1 = s.Width
	}
	return clipped
}

// BufferSize returns the byte size of a buffer holding the region.
func (r Region) BufferSize(s Shape) int64 {
	if r.IsEmpty() {
		return 0
	}
	return int64(r.Channels()) * int64(r.Slices()) * int64(r.Rows()) * int64(r.Columns()) * int64(s.BytesPerSample())
}
