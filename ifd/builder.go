// SPDX-License-Identifier: MIT

package ifd

import (
	"encoding/binary"
	"sort"

	"github.com/arnevogt/tiffio"
	"github.com/arnevogt/tiffio/storage"
	"github.com/arnevogt/tiffio/tags"
)

// Builder assembles an IFD byte image and its external-data block
// from typed tag values. Values too large for the inline slot land in
// the external block at 2-byte alignment; their entry slots hold
// offsets relative to the block start until Encode learns the
// absolute base.
type Builder struct {
	format  tiffio.Format
	order   binary.ByteOrder
	entries []builderEntry
	ext     []byte
	next    uint64
}

type builderEntry struct {
	entry    tiffio.Entry
	relative int64 // offset into ext, or -1 for inline values
}

// NewBuilder returns a builder targeting the given format and wire
// byte order.
func NewBuilder(format tiffio.Format, order binary.ByteOrder) *Builder {
	return &Builder{format: format, order: order}
}

// Reset clears the builder for reuse, keeping its allocations.
func (b *Builder) Reset() {
	b.entries = b.entries[:0]
	b.ext = b.ext[:0]
	b.next = 0
}

// SetNextIFD sets the next-IFD pointer written after the entry array.
func (b *Builder) SetNextIFD(offset uint64) {
	b.next = offset
}

// Add encodes one present value into the directory.
func (b *Builder) Add(v *tags.Value) error {
	if !v.Present() {
		return tiffio.Errf(tiffio.KindInvalidTag, "tag %v: cannot add absent value", v.Descriptor().Code)
	}
	d := v.Descriptor()
	size := v.WireSize()
	e := builderEntry{
		entry:    tiffio.Entry{Code: d.Code, Type: d.Type, Count: uint64(v.Count())},
		relative: -1,
	}
	if size <= int64(b.format.InlineSize()) {
		v.EncodeData(e.entry.Inline[:size], b.order)
	} else {
		if len(b.ext)&1 == 1 {
			b.ext = append(b.ext, 0) // keep wide values 2-byte aligned
		}
		e.relative = int64(len(b.ext))
		start := len(b.ext)
		b.ext = append(b.ext, make([]byte, size)...)
		v.EncodeData(b.ext[start:], b.order)
	}
	b.entries = append(b.entries, e)
	return nil
}

// AddRecord adds every present value of the record.
func (b *Builder) AddRecord(rec *tags.Record) error {
	for i := 0; i < rec.Len(); i++ {
		if v := rec.At(i); v.Present() {
			if err := b.Add(v); err != nil {
				return err
			}
		}
	}
	return nil
}

// EntryCount returns the number of entries added so far.
func (b *Builder) EntryCount() int {
	return len(b.entries)
}

// IFDSize returns the byte size of the serialised directory: header,
// entries, next-IFD pointer.
func (b *Builder) IFDSize() int64 {
	return int64(b.format.IFDHeaderSize()) +
		int64(len(b.entries))*int64(b.format.EntrySize()) +
		int64(b.format.OffsetSize())
}

// ExternalSize returns the byte size of the external-data block.
func (b *Builder) ExternalSize() int64 {
	return int64(len(b.ext))
}

// Encode serialises the directory with the external block based at
// the given absolute file offset, patching every relative offset.
// Entries are sorted by ascending code first, as the TIFF invariant
// requires.
func (b *Builder) Encode(externalBase uint64) (ifdImage, external []byte, err error) {
	sort.SliceStable(b.entries, func(i, j int) bool {
		return b.entries[i].entry.Code < b.entries[j].entry.Code
	})
	for i := 1; i < len(b.entries); i++ {
		if b.entries[i].entry.Code == b.entries[i-1].entry.Code {
			return nil, nil, tiffio.Errf(tiffio.KindInvalidTag, "duplicate tag %v in IFD", b.entries[i].entry.Code)
		}
	}
	if maxEnd := externalBase + uint64(len(b.ext)); maxEnd > b.format.MaxOffset() {
		return nil, nil, tiffio.Errf(tiffio.KindInvalidFormat, "external data at %d exceeds %v offset range", maxEnd, b.format)
	}

	ifdImage = make([]byte, b.IFDSize())
	if b.format == tiffio.Big {
		b.order.PutUint64(ifdImage, uint64(len(b.entries)))
	} else {
		if len(b.entries) > 0xFFFF {
			return nil, nil, tiffio.Errf(tiffio.KindInvalidFormat, "%d entries exceed the classic IFD limit", len(b.entries))
		}
		b.order.PutUint16(ifdImage, uint16(len(b.entries)))
	}
	entrySize := b.format.EntrySize()
	pos := b.format.IFDHeaderSize()
	for _, be := range b.entries {
		e := be.entry
		if be.relative >= 0 {
			e.SetOffset(b.format, b.order, externalBase+uint64(be.relative))
		}
		e.EncodeEntry(ifdImage[pos:], b.format, b.order)
		pos += entrySize
	}
	if b.format == tiffio.Big {
		b.order.PutUint64(ifdImage[pos:], b.next)
	} else {
		b.order.PutUint32(ifdImage[pos:], uint32(b.next))
	}
	return ifdImage, b.ext, nil
}

// WriteTo serialises the directory at ifdOffset with the external
// block immediately after it, growing the writer as needed. It
// returns ifdOffset so the caller can patch the previous directory's
// next-IFD pointer or the file header.
func (b *Builder) WriteTo(w storage.Writer, ifdOffset uint64) (uint64, error) {
	ifdImage, external, err := b.Encode(ifdOffset + uint64(b.IFDSize()))
	if err != nil {
		return 0, err
	}
	total := int64(len(ifdImage) + len(external))
	size, err := w.Size()
	if err != nil {
		return 0, err
	}
	if end := int64(ifdOffset) + total; end > size {
		if err := w.Resize(end); err != nil {
			return 0, err
		}
	}
	view, err := w.WriteAt(int64(ifdOffset), total)
	if err != nil {
		return 0, err
	}
	copy(view.Bytes(), ifdImage)
	copy(view.Bytes()[len(ifdImage):], external)
	if err := view.Flush(); err != nil {
		return 0, err
	}
	return ifdOffset, nil
}
