// SPDX-License-Identifier: MIT

package tile

import (
	"github.com/arnevogt/tiffio"
)

// Dims is the extent of a buffer in pixels and channels.
type Dims struct {
	W, H, D, C int
}

// Point addresses a pixel and channel inside a buffer.
type Point struct {
	X, Y, Z, C int
}

// Extent is the size of a copied block.
type Extent struct {
	W, H, D, C int
}

type strides struct {
	x, y, z, c int
}

func layoutStrides(l Layout, d Dims) strides {
	switch l {
	case DHWC:
		return strides{x: d.C, y: d.W * d.C, z: d.W * d.H * d.C, c: 1}
	case DCHW:
		return strides{x: 1, y: d.W, c: d.W * d.H, z: d.W * d.H * d.C}
	default: // CDHW
		return strides{x: 1, y: d.W, z: d.W * d.H, c: d.W * d.H * d.D}
	}
}

func (s strides) at(p Point) int {
	return p.X*s.x + p.Y*s.y + p.Z*s.z + p.C*s.c
}

// CopyBlock copies a block of samples between two buffers that may
// use different interleaving conventions. Offsets and strides are in
// elements of elemSize bytes. When a full inner run is contiguous in
// both layouts the copy degenerates to memcpy per run; otherwise it
// falls back to element-wise moves.
func CopyBlock(dst []byte, dstLayout Layout, dstDims Dims, dstOrigin Point,
	src []byte, srcLayout Layout, srcDims Dims, srcOrigin Point,
	ext Extent, elemSize int) {

	if ext.W <= 0 || ext.H <= 0 || ext.D <= 0 || ext.C <= 0 {
		return
	}
	ds := layoutStrides(dstLayout, dstDims)
	ss := layoutStrides(srcLayout, srcDims)

	// Sample-interleaved on both sides with the full channel vector:
	// a whole row of pixels is one contiguous run.
	if dstLayout == DHWC && srcLayout == DHWC &&
		ext.C == dstDims.C && ext.C == srcDims.C &&
		dstOrigin.C == 0 && srcOrigin.C == 0 {
		run := ext.W * ext.C * elemSize
		for z := 0; z < ext.D; z++ {
			for y := 0; y < ext.H; y++ {
				do := ds.at(Point{X: dstOrigin.X, Y: dstOrigin.Y + y, Z: dstOrigin.Z + z, C: 0}) * elemSize
				so := ss.at(Point{X: srcOrigin.X, Y: srcOrigin.Y + y, Z: srcOrigin.Z + z, C: 0}) * elemSize
				copy(dst[do:do+run], src[so:so+run])
			}
		}
		return
	}

	rowContiguous := ds.x == 1 && ss.x == 1
	for c := 0; c < ext.C; c++ {
		for z := 0; z < ext.D; z++ {
			for y := 0; y < ext.H; y++ {
				dp := Point{X: dstOrigin.X, Y: dstOrigin.Y + y, Z: dstOrigin.Z + z, C: dstOrigin.C + c}
				sp := Point{X: srcOrigin.X, Y: srcOrigin.Y + y, Z: srcOrigin.Z + z, C: srcOrigin.C + c}
				do := ds.at(dp) * elemSize
				so := ss.at(sp) * elemSize
				if rowContiguous {
					run := ext.W * elemSize
					copy(dst[do:do+run], src[so:so+run])
					continue
				}
				for x := 0; x < ext.W; x++ {
					copy(dst[do:do+elemSize], src[so:so+elemSize])
					do += ds.x * elemSize
					so += ss.x * elemSize
				}
			}
		}
	}
}

// imageDims returns the caller-buffer dimensions for a shape.
func imageDims(s Shape) Dims {
	return Dims{W: int(s.Width), H: int(s.Height), D: int(s.Depth), C: int(s.SamplesPerPixel)}
}

// chunkDims returns the chunk-buffer dimensions: full tile extent for
// tiles, stored rows for strips, one channel per plane when planar.
func chunkDims(g Grid, c Chunk) Dims {
	return Dims{
		W: int(g.TileWidth),
		H: int(g.StoredRows(c)),
		D: int(g.TileDepth),
		C: g.ChunkSamples(),
	}
}

// chunkChannel returns the image channel a chunk starts at and the
// number of channels it carries.
func chunkChannel(g Grid, c Chunk) (int, int) {
	if g.Planes > 1 {
		return c.Plane, 1
	}
	return 0, int(g.Shape.SamplesPerPixel)
}

// CopyBufferToTile extracts chunk c from the caller's image buffer
// into tileBuf, which must hold Grid.DataSize(c) bytes. Chunk buffers
// are sample-interleaved. Tiles whose image extent is smaller than
// the tile extent are padded by replicating the edge pixels; strips
// are stored short instead.
func CopyBufferToTile(tileBuf, image []byte, layout Layout, g Grid, c Chunk) error {
	elemSize := g.Shape.BytesPerSample()
	td := chunkDims(g, c)
	chanStart, chanCount := chunkChannel(g, c)

	if want := g.DataSize(c); int64(len(tileBuf)) < want {
		return tiffio.Errf(tiffio.KindOutOfBounds, "chunk buffer of %d bytes, need %d", len(tileBuf), want)
	}
	if want := g.Shape.BufferSize(); int64(len(image)) < want {
		return tiffio.Errf(tiffio.KindOutOfBounds, "image buffer of %d bytes, need %d", len(image), want)
	}

	CopyBlock(
		tileBuf, DHWC, td, Point{},
		image, layout, imageDims(g.Shape), Point{X: int(c.X), Y: int(c.Y), Z: int(c.Z), C: chanStart},
		Extent{W: int(c.W), H: int(c.H), D: int(c.D), C: chanCount},
		elemSize)

	if g.Tiled {
		padTile(tileBuf, td, int(c.W), int(c.H), int(c.D), elemSize)
	}
	return nil
}

// padTile replicates the last valid column, row and slice of a
// sample-interleaved tile buffer out to the full tile extent.
func padTile(buf []byte, d Dims, validW, validH, validD, elemSize int) {
	pixel := d.C * elemSize
	rowLen := d.W * pixel
	slice := d.H * rowLen

	if validW < d.W {
		for z := 0; z < validD; z++ {
			for y := 0; y < validH; y++ {
				row := buf[z*slice+y*rowLen:]
				edge := row[(validW-1)*pixel : validW*pixel]
				for x := validW; x < d.W; x++ {
					copy(row[x*pixel:(x+1)*pixel], edge)
				}
			}
		}
	}
	if validH < d.H {
		for z := 0; z < validD; z++ {
			edge := buf[z*slice+(validH-1)*rowLen : z*slice+validH*rowLen]
			for y := validH; y < d.H; y++ {
				copy(buf[z*slice+y*rowLen:z*slice+(y+1)*rowLen], edge)
			}
		}
	}
	if validD < d.D {
		edge := buf[(validD-1)*slice : validD*slice]
		for z := validD; z < d.D; z++ {
			copy(buf[z*slice:(z+1)*slice], edge)
		}
	}
}

// CopyTileToBuffer writes decoded chunk c into the caller's image
// buffer, discarding any replicate padding outside the image extent.
func CopyTileToBuffer(image, tileBuf []byte, layout Layout, g Grid, c Chunk) error {
	elemSize := g.Shape.BytesPerSample()
	td := chunkDims(g, c)
	chanStart, chanCount := chunkChannel(g, c)

	if want := g.DataSize(c); int64(len(tileBuf)) < want {
		return tiffio.Errf(tiffio.KindOutOfBounds, "chunk buffer of %d bytes, need %d", len(tileBuf), want)
	}
	if want := g.Shape.BufferSize(); int64(len(image)) < want {
		return tiffio.Errf(tiffio.KindOutOfBounds, "image buffer of %d bytes, need %d", len(image), want)
	}

	CopyBlock(
		image, layout, imageDims(g.Shape), Point{X: int(c.X), Y: int(c.Y), Z: int(c.Z), C: chanStart},
		tileBuf, DHWC, td, Point{},
		Extent{W: int(c.W), H: int(c.H), D: int(c.D), C: chanCount},
		elemSize)
	return nil
}

// CopyTileToRegion writes the part of decoded chunk c that overlaps
// the region into dst, a buffer of exactly the region's extent in the
// given layout.
func CopyTileToRegion(dst []byte, layout Layout, region Region, tileBuf []byte, g Grid, c Chunk) error {
	if region.IsEmpty() {
		return nil
	}
	elemSize := g.Shape.BytesPerSample()
	td := chunkDims(g, c)
	chanStart, chanCount := chunkChannel(g, c)

	// Intersect the chunk's image-space box with the region.
	x0 := max32(region.X0, c.X)
	x1 := min32(region.X1, c.X+c.W)
	y0 := max32(region.Y0, c.Y)
	y1 := min32(region.Y1, c.Y+c.H)
	z0 := max32(region.Z0, c.Z)
	z1 := min32(region.Z1, c.Z+c.D)
	c0 := maxInt(int(region.C0), chanStart)
	c1 := minInt(int(region.C1), chanStart+chanCount)
	if x1 <= x0 || y1 <= y0 || z1 <= z0 || c1 <= c0 {
		return nil
	}

	regionDims := Dims{
		W: int(region.Columns()),
		H: int(region.Rows()),
		D: int(region.Slices()),
		C: int(region.Channels()),
	}
	if want := region.BufferSize(g.Shape); int64(len(dst)) < want {
		return tiffio.Errf(tiffio.KindOutOfBounds, "region buffer of %d bytes, need %d", len(dst), want)
	}

	CopyBlock(
		dst, layout, regionDims,
		Point{X: int(x0 - region.X0), Y: int(y0 - region.Y0), Z: int(z0 - region.Z0), C: c0 - int(region.C0)},
		tileBuf, DHWC, td,
		Point{X: int(x0 - c.X), Y: int(y0 - c.Y), Z: int(z0 - c.Z), C: c0 - chanStart},
		Extent{W: int(x1 - x0), H: int(y1 - y0), D: int(z1 - z0), C: c1 - c0},
		elemSize)
	return nil
}

func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
