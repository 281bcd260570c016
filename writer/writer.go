// SPDX-License-Identifier: MIT

package writer

import (
	"encoding/binary"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/arnevogt/tiffio"
	"github.com/arnevogt/tiffio/codec"
	"github.com/arnevogt/tiffio/ifd"
	"github.com/arnevogt/tiffio/predictor"
	"github.com/arnevogt/tiffio/storage"
	"github.com/arnevogt/tiffio/tags"
	"github.com/arnevogt/tiffio/tile"
)

// ImageOptions describes one page of a file.
type ImageOptions struct {
	Shape  tile.Shape
	Layout tile.Layout
	// SampleOrder is the byte order of multi-byte samples in the
	// caller's buffer; little-endian when nil.
	SampleOrder binary.ByteOrder

	Tiled      bool
	TileWidth  uint32
	TileLength uint32
	TileDepth  uint32
	// RowsPerStrip applies to stripped pages; 0 writes the whole
	// image as one strip. It must divide the image height.
	RowsPerStrip uint32

	Compression tiffio.CompressionScheme
	Predictor   tiffio.PredictorScheme

	// UserTags carries additional tags for the page. Values that
	// collide with computed mandatory tags must match them; chunk
	// offset and byte-count tags are always rejected.
	UserTags *tags.Record

	// Config selects the write strategy; WriteOptimized when unset.
	Config *Config

	// Parallelism caps concurrent chunk encoders when the ordering
	// policy allows them; 0 means GOMAXPROCS.
	Parallelism int
}

func (o ImageOptions) sampleOrder() binary.ByteOrder {
	if o.SampleOrder == nil {
		return binary.LittleEndian
	}
	return o.SampleOrder
}

func (o ImageOptions) config() Config {
	if o.Config == nil {
		return WriteOptimized()
	}
	return *o.Config
}

// Writer produces a classic or BigTIFF file page by page. Pages are
// chained as they are written; Close writes the file header last,
// once the first directory's offset is known, and flushes.
type Writer struct {
	dst    storage.Writer
	format tiffio.Format
	order  binary.ByteOrder

	firstIFD   uint64
	nextPtrPos int64 // file position of the last directory's next pointer
	fileEnd    int64
	pages      int
}

// NewWriter starts a file of the given format and wire byte order on
// dst. Nothing is written until the first page.
func NewWriter(dst storage.Writer, format tiffio.Format, order binary.ByteOrder) *Writer {
	return &Writer{
		dst:        dst,
		format:     format,
		order:      order,
		nextPtrPos: -1,
		fileEnd:    int64(format.HeaderSize()),
	}
}

// Pages returns the number of pages written so far.
func (w *Writer) Pages() int { return w.pages }

// WriteImage appends one page: it derives the mandatory tags,
// validates user-supplied overrides, runs every chunk through the
// copy → predictor → compression pipeline, and writes chunk data and
// directory according to the configured strategy.
func (w *Writer) WriteImage(image []byte, opts ImageOptions) error {
	cfg := opts.config()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := opts.Shape.Validate(); err != nil {
		return err
	}
	if int64(len(image)) < opts.Shape.BufferSize() {
		return tiffio.Errf(tiffio.KindOutOfBounds, "image buffer of %d bytes, shape needs %d", len(image), opts.Shape.BufferSize())
	}
	// An unset predictor means none, as in buildRecord.
	if opts.Predictor == 0 {
		opts.Predictor = tiffio.PredictorNone
	}

	grid, err := w.makeGrid(opts)
	if err != nil {
		return err
	}
	if _, err := codec.Lookup(opts.Compression); err != nil {
		return err
	}

	rec, err := w.buildRecord(opts, grid)
	if err != nil {
		return err
	}

	chunks := make([]tile.Chunk, grid.Count())
	for i := range chunks {
		chunks[i] = grid.Chunk(i)
	}
	writeOrder := append([]tile.Chunk(nil), chunks...)
	cfg.Ordering.Order(writeOrder)

	buf := cfg.buffering()
	pageStart := w.fileEnd
	precalc := cfg.Offsets.RequiresSizePrecalculation() || !cfg.Placement.DataBeforeIFD()

	var ifdOffset, dataEnd int64
	if precalc {
		ifdOffset, dataEnd, err = w.writePrecalculated(image, opts, cfg, grid, chunks, writeOrder, buf, pageStart, rec)
	} else {
		ifdOffset, dataEnd, err = w.writeSinglePass(image, opts, cfg, grid, chunks, writeOrder, buf, pageStart, rec)
	}
	if err != nil {
		return err
	}

	builder := ifd.NewBuilder(w.format, w.order)
	if err := builder.AddRecord(rec); err != nil {
		return err
	}
	ifdImage, external, err := builder.Encode(uint64(ifdOffset) + uint64(builder.IFDSize()))
	if err != nil {
		return err
	}
	if err := buf.WriteAt(w.dst, ifdOffset, ifdImage); err != nil {
		return err
	}
	if err := buf.WriteAt(w.dst, ifdOffset+int64(len(ifdImage)), external); err != nil {
		return err
	}
	if err := buf.Flush(w.dst); err != nil {
		return err
	}

	ifdEnd := ifdOffset + int64(len(ifdImage)) + int64(len(external))
	w.fileEnd = maxInt64(dataEnd, ifdEnd)
	if uint64(w.fileEnd) > w.format.MaxOffset() {
		return tiffio.Errf(tiffio.KindInvalidFormat, "file of %d bytes exceeds %v offset range", w.fileEnd, w.format)
	}

	// Chain: patch the previous directory's next pointer, or record
	// the first directory for the header.
	if w.nextPtrPos >= 0 {
		ptr := make([]byte, w.format.OffsetSize())
		tiffio.PutUint(ptr, w.format.OffsetSize(), w.order, uint64(ifdOffset))
		if err := writeRange(w.dst, w.nextPtrPos, ptr); err != nil {
			return err
		}
	} else {
		w.firstIFD = uint64(ifdOffset)
	}
	w.nextPtrPos = ifdOffset + int64(w.format.IFDHeaderSize()) + int64(builder.EntryCount()*w.format.EntrySize())
	w.pages++
	return nil
}

// Close writes the file header with the first directory offset and
// flushes the backend. The header goes last so its pointer is final,
// the usual order for writers that do not know their layout up
// front.
func (w *Writer) Close() error {
	h := tiffio.Header{Order: w.order, Format: w.format, FirstIFD: w.firstIFD}
	buf := make([]byte, w.format.HeaderSize())
	h.EncodeHeader(buf)
	if err := writeRange(w.dst, 0, buf); err != nil {
		return err
	}
	return w.dst.Flush()
}

func (w *Writer) makeGrid(opts ImageOptions) (tile.Grid, error) {
	if opts.Tiled {
		return tile.NewTiledGrid(opts.Shape, opts.TileWidth, opts.TileLength, opts.TileDepth)
	}
	rows := opts.RowsPerStrip
	if rows == 0 || rows > opts.Shape.Height {
		rows = opts.Shape.Height
	}
	if opts.Shape.Height%rows != 0 {
		return tile.Grid{}, tiffio.Errf(tiffio.KindUnsupportedFeature,
			"rows per strip %d does not divide image height %d", rows, opts.Shape.Height)
	}
	return tile.NewStrippedGrid(opts.Shape, rows)
}

// encodeParams returns the predictor geometry of one stored chunk.
func encodeParams(g tile.Grid, c tile.Chunk, order binary.ByteOrder) predictor.Params {
	return predictor.Params{
		ElemSize:        g.Shape.BytesPerSample(),
		Width:           int(g.TileWidth),
		Height:          int(g.StoredRows(c)) * int(g.TileDepth),
		SamplesPerPixel: g.ChunkSamples(),
		Order:           order,
	}
}

// writePrecalculated encodes every chunk first, lays the page out
// with final sizes, and writes data and directory in their final
// positions.
func (w *Writer) writePrecalculated(image []byte, opts ImageOptions, cfg Config, grid tile.Grid,
	chunks, writeOrder []tile.Chunk, buf Buffering, pageStart int64, rec *tags.Record) (int64, int64, error) {

	encoded := make([][]byte, len(chunks))
	encodeOne := func(c tile.Chunk, enc *codec.Encoder, tileBuf []byte) error {
		data := tileBuf[:grid.DataSize(c)]
		if err := tile.CopyBufferToTile(data, image, opts.Layout, grid, c); err != nil {
			return err
		}
		out, err := enc.EncodeChunk(data, encodeParams(grid, c, opts.sampleOrder()))
		if err != nil {
			return err
		}
		encoded[c.Index] = append([]byte(nil), out...)
		return nil
	}

	workers := opts.Parallelism
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Ordering.Parallel() && workers > 1 && len(chunks) > 1 {
		var g errgroup.Group
		g.SetLimit(workers)
		work := make(chan tile.Chunk, len(chunks))
		for _, c := range writeOrder {
			work <- c
		}
		close(work)
		for i := 0; i < workers; i++ {
			g.Go(func() error {
				enc, err := codec.NewEncoder(opts.Compression, opts.Predictor, w.order)
				if err != nil {
					return err
				}
				tileBuf := make([]byte, grid.FullChunkSize())
				for c := range work {
					if err := encodeOne(c, enc, tileBuf); err != nil {
						return err
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return 0, 0, err
		}
	} else {
		enc, err := codec.NewEncoder(opts.Compression, opts.Predictor, w.order)
		if err != nil {
			return 0, 0, err
		}
		tileBuf := make([]byte, grid.FullChunkSize())
		for _, c := range writeOrder {
			if err := encodeOne(c, enc, tileBuf); err != nil {
				return 0, 0, err
			}
		}
	}

	// Directory size is known without the final offsets: the offset
	// arrays were pre-sized when the record was built.
	sizer := ifd.NewBuilder(w.format, w.order)
	if err := sizer.AddRecord(rec); err != nil {
		return 0, 0, err
	}
	ifdTotal := sizer.IFDSize() + sizer.ExternalSize()

	dataStart := pageStart
	if !cfg.Placement.DataBeforeIFD() {
		dataStart = pageStart + ifdTotal
	}
	off := dataStart
	for _, c := range writeOrder {
		chunks[c.Index].Offset = uint64(off)
		chunks[c.Index].UncompressedSize = grid.DataSize(c)
		chunks[c.Index].CompressedSize = int64(len(encoded[c.Index]))
		off += int64(len(encoded[c.Index]))
	}
	dataEnd := off
	if err := fillChunkArrays(rec, grid, chunks); err != nil {
		return 0, 0, err
	}

	for _, c := range writeOrder {
		if err := buf.WriteAt(w.dst, int64(chunks[c.Index].Offset), encoded[c.Index]); err != nil {
			return 0, 0, err
		}
	}
	return cfg.Placement.IFDOffset(pageStart, dataEnd), dataEnd, nil
}

// writeSinglePass streams each chunk to the file as soon as it is
// encoded and fills the directory afterwards.
func (w *Writer) writeSinglePass(image []byte, opts ImageOptions, cfg Config, grid tile.Grid,
	chunks, writeOrder []tile.Chunk, buf Buffering, pageStart int64, rec *tags.Record) (int64, int64, error) {

	enc, err := codec.NewEncoder(opts.Compression, opts.Predictor, w.order)
	if err != nil {
		return 0, 0, err
	}
	tileBuf := make([]byte, grid.FullChunkSize())
	off := pageStart
	for _, c := range writeOrder {
		data := tileBuf[:grid.DataSize(c)]
		if err := tile.CopyBufferToTile(data, image, opts.Layout, grid, c); err != nil {
			return 0, 0, err
		}
		out, err := enc.EncodeChunk(data, encodeParams(grid, c, opts.sampleOrder()))
		if err != nil {
			return 0, 0, err
		}
		if err := buf.WriteAt(w.dst, off, out); err != nil {
			return 0, 0, err
		}
		chunks[c.Index].Offset = uint64(off)
		chunks[c.Index].UncompressedSize = grid.DataSize(c)
		chunks[c.Index].CompressedSize = int64(len(out))
		off += int64(len(out))
	}
	dataEnd := off
	if err := fillChunkArrays(rec, grid, chunks); err != nil {
		return 0, 0, err
	}
	return cfg.Placement.IFDOffset(pageStart, dataEnd), dataEnd, nil
}

func fillChunkArrays(rec *tags.Record, grid tile.Grid, chunks []tile.Chunk) error {
	offsets := make([]uint64, len(chunks))
	counts := make([]uint64, len(chunks))
	for i, c := range chunks {
		offsets[i] = c.Offset
		counts[i] = uint64(c.CompressedSize)
	}
	offsetCode, countCode := tiffio.StripOffsets, tiffio.StripByteCounts
	if grid.Tiled {
		offsetCode, countCode = tiffio.TileOffsets, tiffio.TileByteCounts
	}
	if err := setUints(rec, offsetCode, offsets...); err != nil {
		return err
	}
	return setUints(rec, countCode, counts...)
}

func setUints(rec *tags.Record, code tiffio.TagCode, vals ...uint64) error {
	v, found := rec.Value(code)
	if !found {
		return tiffio.Errf(tiffio.KindInvalidTag, "catalogue misses tag %v", code)
	}
	return v.SetUints(vals...)
}
