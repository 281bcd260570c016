// SPDX-License-Identifier: MIT

// Package reader opens TIFF and BigTIFF files over any storage
// backend, walks their directory chain, and decodes whole pages or
// axis-aligned regions into caller buffers.
package reader

import (
	"encoding/binary"

	"github.com/arnevogt/tiffio"
	"github.com/arnevogt/tiffio/codec"
	"github.com/arnevogt/tiffio/ifd"
	"github.com/arnevogt/tiffio/predictor"
	"github.com/arnevogt/tiffio/storage"
	"github.com/arnevogt/tiffio/tags"
	"github.com/arnevogt/tiffio/tile"
)

// File is an open TIFF file: its header and directory chain.
type File struct {
	src    storage.Reader
	header tiffio.Header
	pages  []*Page
}

// Page is one directory of the file with its decoded layout.
type Page struct {
	file *File

	IFD    *ifd.IFD
	Record *tags.Record

	Shape       tile.Shape
	Grid        tile.Grid
	Compression tiffio.CompressionScheme
	Predictor   tiffio.PredictorScheme

	offsets []uint64
	counts  []uint64
}

// Open reads the header and every directory in the chain. Directory
// tags are extracted in relaxed mode against the extended catalogue,
// so unsorted files still parse.
func Open(src storage.Reader) (*File, error) {
	h, err := ifd.ReadHeader(src)
	if err != nil {
		return nil, err
	}
	dirs, err := ifd.WalkIFDs(src, h)
	if err != nil {
		return nil, err
	}
	f := &File{src: src, header: h}
	for _, d := range dirs {
		p, err := f.loadPage(d)
		if err != nil {
			return nil, err
		}
		f.pages = append(f.pages, p)
	}
	return f, nil
}

// Header returns the parsed file header.
func (f *File) Header() tiffio.Header { return f.header }

// NumPages returns the number of directories in the file.
func (f *File) NumPages() int { return len(f.pages) }

// Page returns the i-th page.
func (f *File) Page(i int) *Page { return f.pages[i] }

func (f *File) loadPage(d *ifd.IFD) (*Page, error) {
	rec := tags.NewRecord(tags.Extended)
	if err := ifd.ExtractRelaxed(f.src, f.header, d.Entries, rec); err != nil {
		return nil, err
	}
	p := &Page{file: f, IFD: d, Record: rec}
	if err := p.deriveLayout(); err != nil {
		return nil, err
	}
	return p, nil
}

func get(rec *tags.Record, code tiffio.TagCode) *tags.Value {
	v, _ := rec.Value(code)
	return v
}

func (p *Page) deriveLayout() error {
	rec := p.Record
	width := get(rec, tiffio.ImageWidth)
	height := get(rec, tiffio.ImageLength)

	bits := get(rec, tiffio.BitsPerSample).Uints()
	if len(bits) == 0 {
		return tiffio.Errf(tiffio.KindInvalidTag, "BitsPerSample missing")
	}
	for _, b := range bits[1:] {
		if b != bits[0] {
			return tiffio.Errf(tiffio.KindUnsupportedFeature, "heterogeneous bits per sample %v", bits)
		}
	}

	p.Shape = tile.Shape{
		Width:           uint32(width.Uint()),
		Height:          uint32(height.Uint()),
		Depth:           uint32(get(rec, tiffio.ImageDepth).UintOr(1)),
		BitsPerSample:   uint16(bits[0]),
		SamplesPerPixel: uint16(get(rec, tiffio.SamplesPerPixel).UintOr(1)),
		Format:          tiffio.SampleFormat(get(rec, tiffio.SampleFormatTag).UintOr(uint64(tiffio.SampleFormatUint))),
		Planar:          tiffio.Planar(get(rec, tiffio.PlanarConfiguration).UintOr(uint64(tiffio.PlanarChunky))),
	}
	if err := p.Shape.Validate(); err != nil {
		return err
	}

	p.Compression = tiffio.CompressionScheme(get(rec, tiffio.Compression).Uint())
	p.Predictor = tiffio.PredictorScheme(get(rec, tiffio.Predictor).UintOr(uint64(tiffio.PredictorNone)))

	tileOffsets := get(rec, tiffio.TileOffsets)
	stripOffsets := get(rec, tiffio.StripOffsets)
	var err error
	switch {
	case tileOffsets.Present():
		tw := get(rec, tiffio.TileWidth)
		tl := get(rec, tiffio.TileLength)
		if !tw.Present() || !tl.Present() {
			return tiffio.ErrfAt(tiffio.KindInvalidTag, int64(p.IFD.Offset), "tiled page misses TileWidth or TileLength")
		}
		td := uint32(get(rec, tiffio.TileDepth).UintOr(1))
		p.Grid, err = tile.NewTiledGrid(p.Shape, uint32(tw.Uint()), uint32(tl.Uint()), td)
		if err != nil {
			return err
		}
		p.offsets = tileOffsets.Uints()
		p.counts = get(rec, tiffio.TileByteCounts).Uints()
	case stripOffsets.Present():
		rows := uint32(get(rec, tiffio.RowsPerStrip).UintOr(0))
		p.Grid, err = tile.NewStrippedGrid(p.Shape, rows)
		if err != nil {
			return err
		}
		p.offsets = stripOffsets.Uints()
		p.counts = get(rec, tiffio.StripByteCounts).Uints()
	default:
		return tiffio.ErrfAt(tiffio.KindInvalidTag, int64(p.IFD.Offset), "page has neither strip nor tile offsets")
	}

	if len(p.offsets) != p.Grid.Count() || len(p.counts) != p.Grid.Count() {
		return tiffio.ErrfAt(tiffio.KindInvalidTag, int64(p.IFD.Offset),
			"layout needs %d chunks, file offers %d offsets and %d byte counts",
			p.Grid.Count(), len(p.offsets), len(p.counts))
	}
	return nil
}

// Chunk returns the metadata of chunk i, including its file offset
// and stored sizes.
func (p *Page) Chunk(i int) tile.Chunk {
	c := p.Grid.Chunk(i)
	c.Offset = p.offsets[i]
	c.CompressedSize = int64(p.counts[i])
	c.UncompressedSize = p.Grid.DataSize(c)
	return c
}

// ReadChunkData returns the raw stored bytes of chunk i.
func (p *Page) ReadChunkData(i int) ([]byte, error) {
	c := p.Chunk(i)
	view, err := p.file.src.ReadAt(int64(c.Offset), c.CompressedSize)
	if err != nil {
		return nil, err
	}
	defer view.Release()
	raw := view.Bytes()
	if int64(len(raw)) < c.CompressedSize {
		return nil, tiffio.ErrfAt(tiffio.KindUnexpectedEOF, int64(c.Offset), "chunk %d truncated", i)
	}
	return append([]byte(nil), raw...), nil
}

func (p *Page) newDecoder() (*codec.Decoder, error) {
	return codec.NewDecoder(p.Compression, p.Predictor, p.file.header.Order)
}

func (p *Page) decodeParams(c tile.Chunk, order binary.ByteOrder) predictor.Params {
	return predictor.Params{
		ElemSize:        p.Shape.BytesPerSample(),
		Width:           int(p.Grid.TileWidth),
		Height:          int(p.Grid.StoredRows(c)) * int(p.Grid.TileDepth),
		SamplesPerPixel: p.Grid.ChunkSamples(),
		Order:           order,
	}
}

// decodeChunk reads and decodes chunk i into scratch, returning the
// decoded samples in the given byte order.
func (p *Page) decodeChunk(dec *codec.Decoder, i int, scratch []byte, order binary.ByteOrder) (tile.Chunk, []byte, error) {
	c := p.Chunk(i)
	raw, err := p.ReadChunkData(i)
	if err != nil {
		return c, nil, err
	}
	dst := scratch[:c.UncompressedSize]
	if err := dec.DecodeChunk(dst, raw, p.decodeParams(c, order)); err != nil {
		return c, nil, err
	}
	return c, dst, nil
}

// ReadImage decodes the whole page into dst, which must hold
// Shape.BufferSize() bytes arranged in the given layout. Multi-byte
// samples land in order; pass binary.LittleEndian unless the consumer
// wants big-endian bytes.
func (p *Page) ReadImage(dst []byte, layout tile.Layout, order binary.ByteOrder) error {
	if int64(len(dst)) < p.Shape.BufferSize() {
		return tiffio.Errf(tiffio.KindOutOfBounds, "image buffer of %d bytes, page needs %d", len(dst), p.Shape.BufferSize())
	}
	dec, err := p.newDecoder()
	if err != nil {
		return err
	}
	scratch := make([]byte, p.Grid.FullChunkSize())
	for i := 0; i < p.Grid.Count(); i++ {
		c, data, err := p.decodeChunk(dec, i, scratch, order)
		if err != nil {
			return err
		}
		if err := tile.CopyTileToBuffer(dst, data, layout, p.Grid, c); err != nil {
			return err
		}
	}
	return nil
}

// ReadRegion decodes the chunks overlapping the region into dst,
// which must hold Region.BufferSize bytes of the region's extent in
// the given layout. Samples outside the image are never produced;
// replicate padding in edge tiles is discarded.
func (p *Page) ReadRegion(dst []byte, region tile.Region, layout tile.Layout, order binary.ByteOrder) error {
	region = region.Clip(p.Shape)
	if region.IsEmpty() {
		return nil
	}
	if int64(len(dst)) < region.BufferSize(p.Shape) {
		return tiffio.Errf(tiffio.KindOutOfBounds, "region buffer of %d bytes, need %d", len(dst), region.BufferSize(p.Shape))
	}
	dec, err := p.newDecoder()
	if err != nil {
		return err
	}
	scratch := make([]byte, p.Grid.FullChunkSize())
	for i := 0; i < p.Grid.Count(); i++ {
		c := p.Chunk(i)
		chanStart, chanCount := 0, int(p.Shape.SamplesPerPixel)
		if p.Grid.Planes > 1 {
			chanStart, chanCount = c.Plane, 1
		}
		if c.X >= region.X1 || c.X+c.W <= region.X0 ||
			c.Y >= region.Y1 || c.Y+c.H <= region.Y0 ||
			c.Z >= region.Z1 || c.Z+c.D <= region.Z0 ||
			uint32(chanStart) >= region.C1 || uint32(chanStart+chanCount) <= region.C0 {
			continue // chunk does not touch the region
		}
		c2, data, err := p.decodeChunk(dec, i, scratch, order)
		if err != nil {
			return err
		}
		if err := tile.CopyTileToRegion(dst, layout, region, data, p.Grid, c2); err != nil {
			return err
		}
	}
	return nil
}
