// SPDX-License-Identifier: MIT

// Package ifd reads and writes TIFF Image File Directories: the
// header walk, the tag-entry arrays, typed value extraction against a
// tag catalogue, and the builder that serialises a typed record back
// into an IFD image plus an external-data block.
package ifd

import (
	"math"

	"github.com/arnevogt/tiffio"
	"github.com/arnevogt/tiffio/storage"
)

// IFD is one parsed directory: its file offset, the raw tag entries
// still in wire order, and the offset of the next directory (0
// terminates the chain). The IFD owns its entry slice.
type IFD struct {
	Offset     uint64
	Entries    []tiffio.Entry
	NextOffset uint64
}

// Sorted reports whether the entries are in strictly ascending
// tag-code order, as the TIFF specification requires.
func (d *IFD) Sorted() bool {
	for i := 1; i < len(d.Entries); i++ {
		if d.Entries[i].Code <= d.Entries[i-1].Code {
			return false
		}
	}
	return true
}

// Find returns the entry with the given code, assuming sorted
// entries.
func (d *IFD) Find(code tiffio.TagCode) (*tiffio.Entry, bool) {
	lo, hi := 0, len(d.Entries)
	for lo < hi {
		mid := (lo + hi) / 2
		if d.Entries[mid].Code < code {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(d.Entries) && d.Entries[lo].Code == code {
		return &d.Entries[lo], true
	}
	return nil, false
}

// ReadHeader reads and validates the file header and returns it; the
// header's FirstIFD field is the first-IFD offset.
func ReadHeader(r storage.Reader) (tiffio.Header, error) {
	buf := make([]byte, tiffio.BigHeaderSize)
	n, err := r.ReadInto(buf, 0)
	if err != nil {
		return tiffio.Header{}, err
	}
	return tiffio.ParseHeader(buf[:n])
}

// ReadIFDHeader returns the entry count of the IFD at offset.
func ReadIFDHeader(r storage.Reader, h tiffio.Header, offset uint64) (uint64, error) {
	buf := make([]byte, h.Format.IFDHeaderSize())
	if err := storage.ReadFull(r, buf, int64(offset)); err != nil {
		return 0, err
	}
	if h.Format == tiffio.Big {
		return h.Order.Uint64(buf), nil
	}
	return uint64(h.Order.Uint16(buf)), nil
}

// NextIFDOffset reads the next-IFD pointer of the IFD at offset with
// the given entry count.
func NextIFDOffset(r storage.Reader, h tiffio.Header, offset, entryCount uint64) (uint64, error) {
	pos := offset + uint64(h.Format.IFDHeaderSize()) + entryCount*uint64(h.Format.EntrySize())
	buf := make([]byte, h.Format.OffsetSize())
	if err := storage.ReadFull(r, buf, int64(pos)); err != nil {
		return 0, err
	}
	if h.Format == tiffio.Big {
		return h.Order.Uint64(buf), nil
	}
	return uint64(h.Order.Uint32(buf)), nil
}

// ReadIFD reads the directory at offset: header, entry array and the
// next-IFD pointer. Entries keep their wire-endian inline slots.
func ReadIFD(r storage.Reader, h tiffio.Header, offset uint64) (*IFD, error) {
	d := &IFD{}
	if err := ReadIFDInto(r, h, offset, d); err != nil {
		return nil, err
	}
	return d, nil
}

// ReadIFDInto is ReadIFD reusing the capacity of d's entry slice.
func ReadIFDInto(r storage.Reader, h tiffio.Header, offset uint64, d *IFD) error {
	count, err := ReadIFDHeader(r, h, offset)
	if err != nil {
		return err
	}
	fileSize, err := r.Size()
	if err != nil {
		return err
	}
	entrySize := uint64(h.Format.EntrySize())
	arrayPos := offset + uint64(h.Format.IFDHeaderSize())
	if arrayPos >= uint64(fileSize) || count > (uint64(fileSize)-arrayPos)/entrySize {
		return tiffio.ErrfAt(tiffio.KindInvalidFormat, int64(offset), "IFD claims %d entries beyond end of file", count)
	}

	view, err := r.ReadAt(int64(arrayPos), int64(count*entrySize))
	if err != nil {
		return err
	}
	defer view.Release()
	raw := view.Bytes()
	if uint64(len(raw)) < count*entrySize {
		return tiffio.ErrfAt(tiffio.KindUnexpectedEOF, int64(arrayPos), "IFD entry array truncated")
	}

	if cap(d.Entries) < int(count) {
		d.Entries = make([]tiffio.Entry, count)
	} else {
		d.Entries = d.Entries[:count]
	}
	for i := uint64(0); i < count; i++ {
		d.Entries[i] = tiffio.ParseEntry(raw[i*entrySize:], h.Format, h.Order)
	}

	next, err := NextIFDOffset(r, h, offset, count)
	if err != nil {
		return err
	}
	d.Offset = offset
	d.NextOffset = next
	return nil
}

// WalkIFDs reads the whole directory chain starting at the header's
// first-IFD offset. Cyclic chains are detected and rejected.
func WalkIFDs(r storage.Reader, h tiffio.Header) ([]*IFD, error) {
	var dirs []*IFD
	seen := make(map[uint64]bool)
	for offset := h.FirstIFD; offset != 0; {
		if seen[offset] {
			return nil, tiffio.ErrfAt(tiffio.KindInvalidFormat, int64(offset), "IFD chain loops back on itself")
		}
		seen[offset] = true
		d, err := ReadIFD(r, h, offset)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, d)
		offset = d.NextOffset
	}
	return dirs, nil
}

// entryData returns the payload bytes of an entry, either the inline
// slot or the external range it points to. The release func is nil
// for inline data.
func entryData(r storage.Reader, h tiffio.Header, e tiffio.Entry, elemSize uint32) ([]byte, func(), error) {
	size := e.Count * uint64(elemSize)
	if size > math.MaxInt64 {
		return nil, nil, tiffio.Errf(tiffio.KindInvalidTag, "tag %v: payload of %d bytes", e.Code, size)
	}
	if size <= uint64(h.Format.InlineSize()) {
		return e.Inline[:size], nil, nil
	}
	offset := e.Offset(h.Format, h.Order)
	view, err := r.ReadAt(int64(offset), int64(size))
	if err != nil {
		return nil, nil, err
	}
	data := view.Bytes()
	if uint64(len(data)) < size {
		view.Release()
		return nil, nil, tiffio.ErrfAt(tiffio.KindUnexpectedEOF, int64(offset), "tag %v: external payload truncated", e.Code)
	}
	return data, view.Release, nil
}
