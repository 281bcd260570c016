// SPDX-License-Identifier: MIT

//go:build unix

package storage

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/arnevogt/tiffio"
)

// Mmap is a memory-mapped file backend. Read and write views are
// zero-copy slices of the mapping; writes are visible in place and
// Flush runs msync. Resize remaps.
type Mmap struct {
	f        *os.File
	data     []byte
	writable bool
}

// OpenMmap maps path read-only.
func OpenMmap(path string) (*Mmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, tiffio.WrapErr(tiffio.KindFileNotFound, err, path)
	}
	return mapFile(f, false)
}

// CreateMmap creates path, sizes it, and maps it read-write.
func CreateMmap(path string, size int64) (*Mmap, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, tiffio.WrapErr(tiffio.KindIOError, err, path)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, tiffio.WrapErr(tiffio.KindIOError, err, "truncate")
	}
	return mapFile(f, true)
}

func mapFile(f *os.File, writable bool) (*Mmap, error) {
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, tiffio.WrapErr(tiffio.KindIOError, err, "stat")
	}
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	var data []byte
	if info.Size() > 0 {
		data, err = unix.Mmap(int(f.Fd()), 0, int(info.Size()), prot, unix.MAP_SHARED)
		if err != nil {
			f.Close()
			return nil, tiffio.WrapErr(tiffio.KindIOError, err, "mmap")
		}
	}
	return &Mmap{f: f, data: data, writable: writable}, nil
}

// Close unmaps and closes the file.
func (m *Mmap) Close() error {
	if m.data != nil {
		if err := unix.Munmap(m.data); err != nil {
			return tiffio.WrapErr(tiffio.KindIOError, err, "munmap")
		}
		m.data = nil
	}
	return m.f.Close()
}

func (m *Mmap) Size() (int64, error) {
	return int64(len(m.data)), nil
}

func (m *Mmap) MustAllocate() bool    { return false }
func (m *Mmap) InplaceReadback() bool { return true }

func (m *Mmap) ReadAt(offset, size int64) (ReadView, error) {
	if offset < 0 || offset >= int64(len(m.data)) {
		return nil, tiffio.ErrfAt(tiffio.KindOutOfBounds, offset, "read past end of %d-byte mapping", len(m.data))
	}
	end := offset + size
	if end > int64(len(m.data)) {
		end = int64(len(m.data))
	}
	return borrowedView(m.data[offset:end]), nil
}

func (m *Mmap) ReadInto(dst []byte, offset int64) (int, error) {
	if offset < 0 || offset >= int64(len(m.data)) {
		return 0, tiffio.ErrfAt(tiffio.KindOutOfBounds, offset, "read past end of %d-byte mapping", len(m.data))
	}
	return copy(dst, m.data[offset:]), nil
}

func (m *Mmap) Resize(size int64) error {
	if !m.writable {
		return tiffio.Errf(tiffio.KindWriteError, "mapping is read-only")
	}
	if m.data != nil {
		if err := unix.Munmap(m.data); err != nil {
			return tiffio.WrapErr(tiffio.KindIOError, err, "munmap")
		}
		m.data = nil
	}
	if err := m.f.Truncate(size); err != nil {
		return tiffio.WrapErr(tiffio.KindWriteError, err, "truncate")
	}
	if size > 0 {
		data, err := unix.Mmap(int(m.f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			return tiffio.WrapErr(tiffio.KindIOError, err, "mmap")
		}
		m.data = data
	}
	return nil
}

func (m *Mmap) WriteAt(offset, size int64) (WriteView, error) {
	if !m.writable {
		return nil, tiffio.Errf(tiffio.KindWriteError, "mapping is read-only")
	}
	if offset < 0 || offset+size > int64(len(m.data)) {
		return nil, tiffio.ErrfAt(tiffio.KindOutOfBounds, offset, "write of %d bytes past end of %d-byte mapping", size, len(m.data))
	}
	return inplaceView(m.data[offset : offset+size]), nil
}

func (m *Mmap) Flush() error {
	if m.data == nil {
		return nil
	}
	if err := unix.Msync(m.data, unix.MS_SYNC); err != nil {
		return tiffio.WrapErr(tiffio.KindWriteError, err, "msync")
	}
	return nil
}
