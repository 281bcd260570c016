// SPDX-License-Identifier: MIT

package storage

import (
	"github.com/arnevogt/tiffio"
)

func errShortRead(offset int64, want, got int) error {
	return tiffio.ErrfAt(tiffio.KindUnexpectedEOF, offset, "need %d bytes, source has %d", want, got)
}

// Buffer is an in-memory backend over a borrowed byte slice. Reads
// and writes are zero-copy slices of the underlying memory. Resize
// within the slice's capacity reslices in place; growing beyond it
// reallocates, after which the original slice is no longer aliased.
type Buffer struct {
	data     []byte
	readable bool
	writable bool
}

// NewBuffer returns a read-write buffer backend.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data, readable: true, writable: true}
}

// NewBufferReader returns a read-only buffer backend.
func NewBufferReader(data []byte) *Buffer {
	return &Buffer{data: data, readable: true}
}

// NewBufferWriter returns a write-only buffer backend.
func NewBufferWriter(data []byte) *Buffer {
	return &Buffer{data: data, writable: true}
}

// Bytes returns the current backing slice.
func (b *Buffer) Bytes() []byte {
	return b.data
}

func (b *Buffer) Size() (int64, error) {
	return int64(len(b.data)), nil
}

func (b *Buffer) MustAllocate() bool    { return false }
func (b *Buffer) InplaceReadback() bool { return true }

func (b *Buffer) ReadAt(offset, size int64) (ReadView, error) {
	if !b.readable {
		return nil, tiffio.Errf(tiffio.KindReadError, "buffer is write-only")
	}
	if offset < 0 || offset >= int64(len(b.data)) {
		return nil, tiffio.ErrfAt(tiffio.KindOutOfBounds, offset, "read past end of %d-byte buffer", len(b.data))
	}
	end := offset + size
	if end > int64(len(b.data)) {
		end = int64(len(b.data))
	}
	return borrowedView(b.data[offset:end]), nil
}

func (b *Buffer) ReadInto(dst []byte, offset int64) (int, error) {
	if !b.readable {
		return 0, tiffio.Errf(tiffio.KindReadError, "buffer is write-only")
	}
	if offset < 0 || offset >= int64(len(b.data)) {
		return 0, tiffio.ErrfAt(tiffio.KindOutOfBounds, offset, "read past end of %d-byte buffer", len(b.data))
	}
	return copy(dst, b.data[offset:]), nil
}

func (b *Buffer) Resize(size int64) error {
	if !b.writable {
		return tiffio.Errf(tiffio.KindWriteError, "buffer is read-only")
	}
	if size <= int64(cap(b.data)) {
		old := len(b.data)
		b.data = b.data[:size]
		for i := old; i < int(size); i++ {
			b.data[i] = 0
		}
		return nil
	}
	grown := make([]byte, size)
	copy(grown, b.data)
	b.data = grown
	return nil
}

func (b *Buffer) WriteAt(offset, size int64) (WriteView, error) {
	if !b.writable {
		return nil, tiffio.Errf(tiffio.KindWriteError, "buffer is read-only")
	}
	if offset < 0 || offset+size > int64(len(b.data)) {
		return nil, tiffio.ErrfAt(tiffio.KindOutOfBounds, offset, "write of %d bytes past end of %d-byte buffer", size, len(b.data))
	}
	return inplaceView(b.data[offset : offset+size]), nil
}

func (b *Buffer) Flush() error { return nil }

// borrowedView is a zero-copy read view; releasing it only drops the
// reference.
type borrowedView []byte

func (v borrowedView) Bytes() []byte { return v }
func (v borrowedView) Release()      {}

// inplaceView is a zero-copy write view; bytes land in the backing
// store as they are written, so Flush has nothing left to do.
type inplaceView []byte

func (v inplaceView) Bytes() []byte  { return v }
func (v inplaceView) Flush() error   { return nil }
func (v inplaceView) Release() error { return nil }
