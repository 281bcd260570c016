// SPDX-License-Identifier: MIT

package storage

import (
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/arnevogt/tiffio"
)

// File is a positioned-I/O backend over an *os.File. Go's ReadAt and
// WriteAt are pread/pwrite on Unix and offset-carrying overlapped I/O
// on Windows, so the backend needs no platform split. Read views
// allocate; write views buffer and commit on flush.
type File struct {
	f        *os.File
	writable bool
}

// OpenFile opens path read-only.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, tiffio.WrapErr(tiffio.KindFileNotFound, err, path)
		}
		return nil, tiffio.WrapErr(tiffio.KindIOError, err, path)
	}
	return &File{f: f}, nil
}

// CreateFile creates or truncates path for writing.
func CreateFile(path string) (*File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, tiffio.WrapErr(tiffio.KindIOError, err, path)
	}
	return &File{f: f, writable: true}, nil
}

// NewFile wraps an already-open file. Set writable if the descriptor
// was opened for writing.
func NewFile(f *os.File, writable bool) *File {
	return &File{f: f, writable: writable}
}

// Close closes the underlying file.
func (b *File) Close() error {
	return b.f.Close()
}

func (b *File) Size() (int64, error) {
	info, err := b.f.Stat()
	if err != nil {
		return 0, tiffio.WrapErr(tiffio.KindIOError, err, "stat")
	}
	return info.Size(), nil
}

func (b *File) MustAllocate() bool    { return true }
func (b *File) InplaceReadback() bool { return true }

func (b *File) ReadAt(offset, size int64) (ReadView, error) {
	fileSize, err := b.Size()
	if err != nil {
		return nil, err
	}
	if offset < 0 || offset >= fileSize {
		return nil, tiffio.ErrfAt(tiffio.KindOutOfBounds, offset, "read past end of %d-byte file", fileSize)
	}
	if offset+size > fileSize {
		size = fileSize - offset
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(io.NewSectionReader(b.f, offset, size), buf); err != nil {
		return nil, tiffio.WrapErr(tiffio.KindReadError, err, "pread")
	}
	return ownedView(buf), nil
}

func (b *File) ReadInto(dst []byte, offset int64) (int, error) {
	fileSize, err := b.Size()
	if err != nil {
		return 0, err
	}
	if offset < 0 || offset >= fileSize {
		return 0, tiffio.ErrfAt(tiffio.KindOutOfBounds, offset, "read past end of %d-byte file", fileSize)
	}
	n, err := b.f.ReadAt(dst, offset)
	if err != nil && err != io.EOF {
		return n, tiffio.WrapErr(tiffio.KindReadError, err, "pread")
	}
	return n, nil
}

func (b *File) Resize(size int64) error {
	if !b.writable {
		return tiffio.Errf(tiffio.KindWriteError, "file opened read-only")
	}
	if err := b.f.Truncate(size); err != nil {
		return tiffio.WrapErr(tiffio.KindWriteError, err, "truncate")
	}
	return nil
}

func (b *File) WriteAt(offset, size int64) (WriteView, error) {
	if !b.writable {
		return nil, tiffio.Errf(tiffio.KindWriteError, "file opened read-only")
	}
	return &fileWriteView{f: b.f, offset: offset, buf: make([]byte, size)}, nil
}

func (b *File) Flush() error {
	if err := b.f.Sync(); err != nil {
		return tiffio.WrapErr(tiffio.KindWriteError, err, "sync")
	}
	return nil
}

// ownedView owns a private heap buffer.
type ownedView []byte

func (v ownedView) Bytes() []byte { return v }
func (v ownedView) Release()      {}

// fileWriteView stages bytes in memory and commits them with a single
// pwrite on flush.
type fileWriteView struct {
	f       *os.File
	offset  int64
	buf     []byte
	flushed bool
}

func (v *fileWriteView) Bytes() []byte { return v.buf }

func (v *fileWriteView) Flush() error {
	if _, err := v.f.WriteAt(v.buf, v.offset); err != nil {
		return tiffio.WrapErr(tiffio.KindWriteError, err, "pwrite")
	}
	v.flushed = true
	return nil
}

func (v *fileWriteView) Release() error {
	if v.flushed {
		return nil
	}
	return v.Flush()
}
