// SPDX-License-Identifier: MIT

package tiffio

import "encoding/binary"

// Format discriminates classic TIFF (32-bit offsets) from BigTIFF
// (64-bit offsets).
type Format int

const (
	Classic Format = iota
	Big
)

func (f Format) String() string {
	if f == Big {
		return "BigTIFF"
	}
	return "TIFF"
}

const (
	classicVersion = 42
	bigVersion     = 43

	// ClassicHeaderSize and BigHeaderSize are the on-disk sizes of
	// the file headers.
	ClassicHeaderSize = 8
	BigHeaderSize     = 16
)

// HeaderSize returns the file header size in bytes.
func (f Format) HeaderSize() int {
	if f == Big {
		return BigHeaderSize
	}
	return ClassicHeaderSize
}

// IFDHeaderSize returns the size of the entry-count field that opens
// an IFD.
func (f Format) IFDHeaderSize() int {
	if f == Big {
		return 8
	}
	return 2
}

// EntrySize returns the on-disk size of one tag entry.
func (f Format) EntrySize() int {
	if f == Big {
		return 20
	}
	return 12
}

// OffsetSize returns the size of file offsets, including the
// next-IFD pointer that closes an IFD.
func (f Format) OffsetSize() int {
	if f == Big {
		return 8
	}
	return 4
}

// InlineSize returns the size of the value-or-offset slot embedded in
// a tag entry.
func (f Format) InlineSize() int {
	if f == Big {
		return 8
	}
	return 4
}

// MaxOffset returns the largest file offset representable in the
// format.
func (f Format) MaxOffset() uint64 {
	if f == Big {
		return 1<<64 - 1
	}
	return 1<<32 - 1
}

// Header is the decoded file header: the wire byte order, the format,
// and the offset of the first IFD. An offset of 0 means the file has
// no IFDs.
type Header struct {
	Order    binary.ByteOrder
	Format   Format
	FirstIFD uint64
}

// ParseHeader decodes and validates a classic or BigTIFF file header.
// buf must hold at least the first 8 bytes of the file; BigTIFF needs
// 16.
func ParseHeader(buf []byte) (Header, error) {
	var h Header
	if len(buf) < ClassicHeaderSize {
		return h, ErrfAt(KindUnexpectedEOF, 0, "file shorter than a TIFF header (%d bytes)", len(buf))
	}
	switch {
	case buf[0] == 'I' && buf[1] == 'I':
		h.Order = binary.LittleEndian
	case buf[0] == 'M' && buf[1] == 'M':
		h.Order = binary.BigEndian
	default:
		return h, ErrfAt(KindInvalidHeader, 0, "bad byte-order mark %02x %02x", buf[0], buf[1])
	}
	switch version := h.Order.Uint16(buf[2:]); version {
	case classicVersion:
		h.Format = Classic
		h.FirstIFD = uint64(h.Order.Uint32(buf[4:]))
	case bigVersion:
		h.Format = Big
		if len(buf) < BigHeaderSize {
			return h, ErrfAt(KindUnexpectedEOF, 0, "file shorter than a BigTIFF header (%d bytes)", len(buf))
		}
		if offsetSize := h.Order.Uint16(buf[4:]); offsetSize != 8 {
			return h, ErrfAt(KindInvalidHeader, 4, "BigTIFF offset size %d, must be 8", offsetSize)
		}
		if reserved := h.Order.Uint16(buf[6:]); reserved != 0 {
			return h, ErrfAt(KindInvalidHeader, 6, "BigTIFF reserved field %d, must be 0", reserved)
		}
		h.FirstIFD = h.Order.Uint64(buf[8:])
	default:
		return h, ErrfAt(KindInvalidHeader, 2, "bad TIFF version %d", version)
	}
	return h, nil
}

// EncodeHeader serialises the header into buf, which must hold
// Format.HeaderSize() bytes.
func (h Header) EncodeHeader(buf []byte) {
	if h.Order == binary.LittleEndian {
		buf[0], buf[1] = 'I', 'I'
	} else {
		buf[0], buf[1] = 'M', 'M'
	}
	if h.Format == Big {
		h.Order.PutUint16(buf[2:], bigVersion)
		h.Order.PutUint16(buf[4:], 8)
		h.Order.PutUint16(buf[6:], 0)
		h.Order.PutUint64(buf[8:], h.FirstIFD)
		return
	}
	h.Order.PutUint16(buf[2:], classicVersion)
	h.Order.PutUint32(buf[4:], uint32(h.FirstIFD))
}

// Entry is a decoded tag entry. Code, Type and Count are in native
// byte order; the inline slot keeps its wire-endian bytes untouched
// so values can be materialised lazily.
type Entry struct {
	Code   TagCode
	Type   DataType
	Count  uint64
	Inline [8]byte
}

// ParseEntry decodes one tag entry from buf.
func ParseEntry(buf []byte, f Format, order binary.ByteOrder) Entry {
	e := Entry{
		Code: TagCode(order.Uint16(buf)),
		Type: DataType(order.Uint16(buf[2:])),
	}
	if f == Big {
		e.Count = order.Uint64(buf[4:])
		copy(e.Inline[:], buf[12:20])
	} else {
		e.Count = uint64(order.Uint32(buf[4:]))
		copy(e.Inline[:4], buf[8:12])
	}
	return e
}

// EncodeEntry serialises the entry into buf, which must hold
// Format.EntrySize() bytes.
func (e Entry) EncodeEntry(buf []byte, f Format, order binary.ByteOrder) {
	order.PutUint16(buf, uint16(e.Code))
	order.PutUint16(buf[2:], uint16(e.Type))
	if f == Big {
		order.PutUint64(buf[4:], e.Count)
		copy(buf[12:20], e.Inline[:])
		return
	}
	order.PutUint32(buf[4:], uint32(e.Count))
	copy(buf[8:12], e.Inline[:4])
}

// DataSize returns count × element size of the entry's payload.
func (e Entry) DataSize() uint64 {
	return e.Count * uint64(e.Type.Size())
}

// IsInline reports whether the payload fits in the inline slot.
func (e Entry) IsInline(f Format) bool {
	return e.DataSize() <= uint64(f.InlineSize())
}

// Offset reads the inline slot as a file offset. Only meaningful when
// the payload is external.
func (e Entry) Offset(f Format, order binary.ByteOrder) uint64 {
	if f == Big {
		return order.Uint64(e.Inline[:])
	}
	return uint64(order.Uint32(e.Inline[:4]))
}

// SetOffset stores a file offset into the inline slot.
func (e *Entry) SetOffset(f Format, order binary.ByteOrder, offset uint64) {
	if f == Big {
		order.PutUint64(e.Inline[:], offset)
		return
	}
	order.PutUint32(e.Inline[:4], uint32(offset))
}
