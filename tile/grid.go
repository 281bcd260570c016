// SPDX-License-Identifier: MIT

package tile

import (
	"github.com/arnevogt/tiffio"
)

// Grid enumerates the chunks of a page. Strips are the tiled case
// with tile width = image width, tile depth = 1 and tile length =
// rows per strip; only edge padding differs: tiles are always padded
// to full extent, strips are not.
type Grid struct {
	Shape Shape
	Tiled bool

	TileWidth  uint32
	TileLength uint32
	TileDepth  uint32

	AcrossX uint32
	AcrossY uint32
	AcrossZ uint32
	Planes  uint32 // samples per pixel when planar, 1 when chunky
}

// Chunk is one unit of compression and random access: its linear
// index, image-space origin, extent, plane, and the sizes and offset
// the pipeline fills in.
type Chunk struct {
	Index int
	Plane int

	X, Y, Z uint32 // image-space origin
	W, H, D uint32 // extent within the image (clipped at edges)

	UncompressedSize int64
	CompressedSize   int64
	Offset           uint64
}

// NewTiledGrid lays the image out in tiles of the given extent.
// A tileDepth of 0 means 1.
func NewTiledGrid(s Shape, tileWidth, tileLength, tileDepth uint32) (Grid, error) {
	if err := s.Validate(); err != nil {
		return Grid{}, err
	}
	if tileDepth == 0 {
		tileDepth = 1
	}
	if tileWidth == 0 || tileLength == 0 {
		return Grid{}, tiffio.Errf(tiffio.KindInvalidFormat, "empty tile %d×%d", tileWidth, tileLength)
	}
	// The TIFF spec requires tile extents to be multiples of 16; the
	// grid accepts any non-zero extent and the writer does not check it.
	g := Grid{
		Shape:      s,
		Tiled:      true,
		TileWidth:  tileWidth,
		TileLength: tileLength,
		TileDepth:  tileDepth,
	}
	g.finish()
	return g, nil
}

// NewStrippedGrid lays the image out in strips of rowsPerStrip rows.
// A rowsPerStrip of 0 (or anything at or above the height) makes the
// whole image one strip.
func NewStrippedGrid(s Shape, rowsPerStrip uint32) (Grid, error) {
	if err := s.Validate(); err != nil {
		return Grid{}, err
	}
	if rowsPerStrip == 0 || rowsPerStrip > s.Height {
		rowsPerStrip = s.Height
	}
	g := Grid{
		Shape:      s,
		Tiled:      false,
		TileWidth:  s.Width,
		TileLength: rowsPerStrip,
		TileDepth:  1,
	}
	g.finish()
	return g, nil
}

func (g *Grid) finish() {
	g.AcrossX = (g.Shape.Width + g.TileWidth - 1) / g.TileWidth
	g.AcrossY = (g.Shape.Height + g.TileLength - 1) / g.TileLength
	g.AcrossZ = (g.Shape.Depth + g.TileDepth - 1) / g.TileDepth
	if g.Shape.Planar == tiffio.PlanarSeparate {
		g.Planes = uint32(g.Shape.SamplesPerPixel)
	} else {
		g.Planes = 1
	}
}

// Count returns the number of chunks.
func (g Grid) Count() int {
	return int(g.AcrossX) * int(g.AcrossY) * int(g.AcrossZ) * int(g.Planes)
}

// ChunkSamples returns the samples per pixel inside one chunk: the
// full vector for chunky layout, a single sample per plane otherwise.
func (g Grid) ChunkSamples() int {
	if g.Planes > 1 {
		return 1
	}
	return int(g.Shape.SamplesPerPixel)
}

// FullChunkSize returns the byte size of a full (padded) chunk.
func (g Grid) FullChunkSize() int64 {
	return int64(g.TileWidth) * int64(g.TileLength) * int64(g.TileDepth) *
		int64(g.ChunkSamples()) * int64(g.Shape.BytesPerSample())
}

// Chunk returns the chunk with the given linear index. Chunks are
// numbered in (plane, z, y, x) order, x fastest.
func (g Grid) Chunk(index int) Chunk {
	perPlane := int(g.AcrossX) * int(g.AcrossY) * int(g.AcrossZ)
	plane := index / perPlane
	rest := index % perPlane
	z := rest / (int(g.AcrossX) * int(g.AcrossY))
	rest %= int(g.AcrossX) * int(g.AcrossY)
	y := rest / int(g.AcrossX)
	x := rest % int(g.AcrossX)

	c := Chunk{
		Index: index,
		Plane: plane,
		X:     uint32(x) * g.TileWidth,
		Y:     uint32(y) * g.TileLength,
		Z:     uint32(z) * g.TileDepth,
	}
	c.W = min32(g.TileWidth, g.Shape.Width-c.X)
	c.H = min32(g.TileLength, g.Shape.Height-c.Y)
	c.D = min32(g.TileDepth, g.Shape.Depth-c.Z)
	return c
}

// ChunkIndex returns the linear index of the chunk holding the given
// plane and image position.
func (g Grid) ChunkIndex(plane int, z, y, x uint32) int {
	return ((plane*int(g.AcrossZ)+int(z/g.TileDepth))*int(g.AcrossY)+int(y/g.TileLength))*int(g.AcrossX) + int(x/g.TileWidth)
}

// DataSize returns the uncompressed byte size of a chunk as stored:
// tiles are padded to full extent, the last strip may be short.
func (g Grid) DataSize(c Chunk) int64 {
	if g.Tiled {
		return g.FullChunkSize()
	}
	return int64(g.TileWidth) * int64(c.H) * int64(g.ChunkSamples()) * int64(g.Shape.BytesPerSample())
}

// StoredRows returns the number of rows a chunk holds as stored.
func (g Grid) StoredRows(c Chunk) uint32 {
	if g.Tiled {
		return g.TileLength
	}
	return c.H
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
