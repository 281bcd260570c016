// SPDX-License-Identifier: MIT

//go:build !unix

package storage

import "github.com/arnevogt/tiffio"

// Mmap falls back to positioned I/O on platforms without a Unix mmap.
type Mmap struct {
	*File
}

func OpenMmap(path string) (*Mmap, error) {
	f, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	return &Mmap{File: f}, nil
}

func CreateMmap(path string, size int64) (*Mmap, error) {
	f, err := CreateFile(path)
	if err != nil {
		return nil, err
	}
	if err := f.Resize(size); err != nil {
		f.Close()
		return nil, tiffio.WrapErr(tiffio.KindIOError, err, "resize")
	}
	return &Mmap{File: f}, nil
}
