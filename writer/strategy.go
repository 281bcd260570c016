// SPDX-License-Identifier: MIT

// Package writer plans and performs TIFF file writes: the four
// orthogonal strategy axes (IFD placement, chunk ordering, buffering,
// offset resolution), the standard configurations built from them,
// and the page writer that drives geometry, predictor, compression
// and directory building.
package writer

import (
	"sort"

	"github.com/arnevogt/tiffio"
	"github.com/arnevogt/tiffio/storage"
	"github.com/arnevogt/tiffio/tile"
)

// IFDPlacement decides where a page's directory lands in the file.
type IFDPlacement interface {
	// DataBeforeIFD reports whether chunk data is written before the
	// directory.
	DataBeforeIFD() bool
	// IFDOffset picks the directory position. pageStart is the first
	// free byte when the page began; dataEnd the first free byte
	// after all chunk data (equal to pageStart when data follows the
	// directory).
	IFDOffset(pageStart, dataEnd int64) int64
}

// PlaceAtStart puts the directory at the start of the page, before
// its image data, the way cloud-optimized layouts want it.
type PlaceAtStart struct{}

func (PlaceAtStart) DataBeforeIFD() bool                { return false }
func (PlaceAtStart) IFDOffset(pageStart, _ int64) int64 { return pageStart }

// PlaceAtEnd appends the directory after the image data.
type PlaceAtEnd struct{}

func (PlaceAtEnd) DataBeforeIFD() bool              { return true }
func (PlaceAtEnd) IFDOffset(_, dataEnd int64) int64 { return dataEnd }

// PlaceInline pins the directory to a caller-chosen absolute offset,
// for edit-in-place rewrites of an existing file.
type PlaceInline struct {
	Offset int64
}

func (PlaceInline) DataBeforeIFD() bool          { return true }
func (p PlaceInline) IFDOffset(_, _ int64) int64 { return p.Offset }

// ChunkOrdering decides the order chunks hit the file and whether
// they may be encoded concurrently.
type ChunkOrdering interface {
	Parallel() bool
	// Order rearranges the write order in place.
	Order(chunks []tile.Chunk)
}

// OrderImage sorts chunks by (z, plane, y, x), the order readers
// touch them.
type OrderImage struct{}

func (OrderImage) Parallel() bool { return true }

func (OrderImage) Order(chunks []tile.Chunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		a, b := chunks[i], chunks[j]
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.Plane != b.Plane {
			return a.Plane < b.Plane
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
}

// OrderSequential keeps chunks in linear index order and encodes them
// one at a time.
type OrderSequential struct{}

func (OrderSequential) Parallel() bool     { return false }
func (OrderSequential) Order([]tile.Chunk) {}

// OrderOnDemand leaves the order untouched and allows parallel
// encoding.
type OrderOnDemand struct{}

func (OrderOnDemand) Parallel() bool     { return true }
func (OrderOnDemand) Order([]tile.Chunk) {}

// Buffering aggregates (or not) the positioned writes of one page.
type Buffering interface {
	UsesTemporaryBuffer() bool
	WriteAt(w storage.Writer, offset int64, data []byte) error
	Flush(w storage.Writer) error
}

// DirectWrite forwards every write straight to the backend.
type DirectWrite struct{}

func (DirectWrite) UsesTemporaryBuffer() bool { return false }

func (DirectWrite) WriteAt(w storage.Writer, offset int64, data []byte) error {
	return writeRange(w, offset, data)
}

func (DirectWrite) Flush(w storage.Writer) error { return nil }

// BufferedWrite aggregates contiguous writes and forwards them once
// they reach the flush threshold or stop being contiguous.
type BufferedWrite struct {
	// MinFlushSize is the aggregation threshold; 64 KiB when zero.
	MinFlushSize int

	start   int64
	pending []byte
}

func (*BufferedWrite) UsesTemporaryBuffer() bool { return true }

func (b *BufferedWrite) threshold() int {
	if b.MinFlushSize > 0 {
		return b.MinFlushSize
	}
	return 64 * 1024
}

func (b *BufferedWrite) WriteAt(w storage.Writer, offset int64, data []byte) error {
	if len(b.pending) > 0 && offset != b.start+int64(len(b.pending)) {
		if err := b.Flush(w); err != nil {
			return err
		}
	}
	if len(b.pending) == 0 {
		b.start = offset
	}
	b.pending = append(b.pending, data...)
	if len(b.pending) >= b.threshold() {
		return b.Flush(w)
	}
	return nil
}

func (b *BufferedWrite) Flush(w storage.Writer) error {
	if len(b.pending) == 0 {
		return nil
	}
	err := writeRange(w, b.start, b.pending)
	b.pending = b.pending[:0]
	return err
}

// StreamingWrite stages every write of the page in one growing slab
// and commits it as a single range on flush.
type StreamingWrite struct {
	base  int64
	valid bool
	slab  []byte
}

func (*StreamingWrite) UsesTemporaryBuffer() bool { return true }

func (s *StreamingWrite) WriteAt(w storage.Writer, offset int64, data []byte) error {
	if !s.valid {
		s.base = offset
		s.valid = true
	}
	if offset < s.base {
		// A write before the staging base (a directory placed ahead
		// of already-staged data) grows the slab at the front.
		shift := s.base - offset
		grown := make([]byte, int64(len(s.slab))+shift)
		copy(grown[shift:], s.slab)
		s.slab = grown
		s.base = offset
	}
	end := offset - s.base + int64(len(data))
	if end > int64(len(s.slab)) {
		grown := make([]byte, end)
		copy(grown, s.slab)
		s.slab = grown
	}
	copy(s.slab[offset-s.base:], data)
	return nil
}

func (s *StreamingWrite) Flush(w storage.Writer) error {
	if !s.valid || len(s.slab) == 0 {
		return nil
	}
	err := writeRange(w, s.base, s.slab)
	s.slab = s.slab[:0]
	s.valid = false
	return err
}

func writeRange(w storage.Writer, offset int64, data []byte) error {
	size, err := w.Size()
	if err != nil {
		return err
	}
	if end := offset + int64(len(data)); end > size {
		if err := w.Resize(end); err != nil {
			return err
		}
	}
	view, err := w.WriteAt(offset, int64(len(data)))
	if err != nil {
		return err
	}
	copy(view.Bytes(), data)
	return view.Flush()
}

// OffsetResolution decides when chunk offsets become known.
type OffsetResolution interface {
	// RequiresSizePrecalculation forces every chunk to be encoded
	// before any file write, so all offsets are final up front.
	RequiresSizePrecalculation() bool
	// SupportsStreaming allows the page to live in a staging buffer
	// until flush.
	SupportsStreaming() bool
	// WriteOffsetsImmediately marks the edit-mode policy, which needs a
	// pinned directory. WriteImage writes that directory once, after
	// all chunks of the page, with final offsets; it does not patch
	// entries as chunks land.
	WriteOffsetsImmediately() bool
}

// TwoPassOffsets encodes everything first and writes once.
type TwoPassOffsets struct{}

func (TwoPassOffsets) RequiresSizePrecalculation() bool { return true }
func (TwoPassOffsets) SupportsStreaming() bool          { return true }
func (TwoPassOffsets) WriteOffsetsImmediately() bool    { return false }

// LazyOffsets writes chunks as they are encoded and fills the
// directory afterwards.
type LazyOffsets struct{}

func (LazyOffsets) RequiresSizePrecalculation() bool { return false }
func (LazyOffsets) SupportsStreaming() bool          { return false }
func (LazyOffsets) WriteOffsetsImmediately() bool    { return false }

// ImmediateOffsets is the edit-mode policy for a pinned directory. The
// directory is written once after the page's chunks, not patched
// entry by entry.
type ImmediateOffsets struct{}

func (ImmediateOffsets) RequiresSizePrecalculation() bool { return false }
func (ImmediateOffsets) SupportsStreaming() bool          { return false }
func (ImmediateOffsets) WriteOffsetsImmediately() bool    { return true }

// Config combines the four strategy axes. NewBuffering returns a
// fresh buffering state per page; nil means direct writes.
type Config struct {
	Placement    IFDPlacement
	Ordering     ChunkOrdering
	NewBuffering func() Buffering
	Offsets      OffsetResolution
}

func (c Config) buffering() Buffering {
	if c.NewBuffering == nil {
		return DirectWrite{}
	}
	return c.NewBuffering()
}

// Validate rejects configurations whose policies contradict each
// other.
func (c Config) Validate() error {
	if c.Placement == nil || c.Ordering == nil || c.Offsets == nil {
		return tiffio.Errf(tiffio.KindInvalidFormat, "write configuration misses a policy")
	}
	buf := c.buffering()
	if c.Offsets.RequiresSizePrecalculation() && buf.UsesTemporaryBuffer() && !c.Offsets.SupportsStreaming() {
		return tiffio.Errf(tiffio.KindInvalidFormat, "buffered writes need an offset policy that supports streaming")
	}
	if !c.Placement.DataBeforeIFD() && !c.Offsets.RequiresSizePrecalculation() && !buf.UsesTemporaryBuffer() {
		return tiffio.Errf(tiffio.KindInvalidFormat, "directory before data needs precalculated sizes or a staging buffer")
	}
	if c.Offsets.WriteOffsetsImmediately() {
		if _, inline := c.Placement.(PlaceInline); !inline {
			return tiffio.Errf(tiffio.KindInvalidFormat, "immediate offsets need a pinned directory position")
		}
	}
	return nil
}

// ReadOptimized places directories first and writes each page as one
// staged range: the layout cloud readers prefer.
func ReadOptimized() Config {
	return Config{
		Placement:    PlaceAtStart{},
		Ordering:     OrderImage{},
		NewBuffering: func() Buffering { return &StreamingWrite{} },
		Offsets:      TwoPassOffsets{},
	}
}

// WriteOptimized streams chunks straight to the file and appends the
// directory: minimal memory, one pass.
func WriteOptimized() Config {
	return Config{
		Placement: PlaceAtEnd{},
		Ordering:  OrderSequential{},
		Offsets:   LazyOffsets{},
	}
}

// Streaming stages each page in memory and commits it as a single
// contiguous write.
func Streaming() Config {
	return Config{
		Placement:    PlaceAtEnd{},
		Ordering:     OrderSequential{},
		NewBuffering: func() Buffering { return &StreamingWrite{} },
		Offsets:      TwoPassOffsets{},
	}
}

// EditInPlace rewrites a page whose directory position is fixed.
func EditInPlace(ifdOffset int64) Config {
	return Config{
		Placement: PlaceInline{Offset: ifdOffset},
		Ordering:  OrderOnDemand{},
		Offsets:   ImmediateOffsets{},
	}
}
