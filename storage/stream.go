// SPDX-License-Identifier: MIT

package storage

import (
	"io"
	"sync"

	"github.com/arnevogt/tiffio"
)

// Stream is a portable read backend over any io.ReadSeeker. A mutex
// serialises the seek+read pairs, so concurrent use from several
// goroutines is safe at the cost of lock contention. Views allocate.
type Stream struct {
	mu sync.Mutex
	rs io.ReadSeeker
}

// NewStream wraps an io.ReadSeeker.
func NewStream(rs io.ReadSeeker) *Stream {
	return &Stream{rs: rs}
}

func (s *Stream) Size() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sizeLocked()
}

func (s *Stream) sizeLocked() (int64, error) {
	pos, err := s.rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, tiffio.WrapErr(tiffio.KindIOError, err, "seek")
	}
	end, err := s.rs.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, tiffio.WrapErr(tiffio.KindIOError, err, "seek")
	}
	if _, err := s.rs.Seek(pos, io.SeekStart); err != nil {
		return 0, tiffio.WrapErr(tiffio.KindIOError, err, "seek")
	}
	return end, nil
}

func (s *Stream) MustAllocate() bool { return true }

func (s *Stream) ReadAt(offset, size int64) (ReadView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	streamSize, err := s.sizeLocked()
	if err != nil {
		return nil, err
	}
	if offset < 0 || offset >= streamSize {
		return nil, tiffio.ErrfAt(tiffio.KindOutOfBounds, offset, "read past end of %d-byte stream", streamSize)
	}
	if offset+size > streamSize {
		size = streamSize - offset
	}
	if _, err := s.rs.Seek(offset, io.SeekStart); err != nil {
		return nil, tiffio.WrapErr(tiffio.KindIOError, err, "seek")
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(s.rs, buf); err != nil {
		return nil, tiffio.WrapErr(tiffio.KindReadError, err, "read")
	}
	return ownedView(buf), nil
}

func (s *Stream) ReadInto(dst []byte, offset int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	streamSize, err := s.sizeLocked()
	if err != nil {
		return 0, err
	}
	if offset < 0 || offset >= streamSize {
		return 0, tiffio.ErrfAt(tiffio.KindOutOfBounds, offset, "read past end of %d-byte stream", streamSize)
	}
	if _, err := s.rs.Seek(offset, io.SeekStart); err != nil {
		return 0, tiffio.WrapErr(tiffio.KindIOError, err, "seek")
	}
	n, err := io.ReadFull(s.rs, dst)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		err = nil // truncated read
	}
	if err != nil {
		return n, tiffio.WrapErr(tiffio.KindReadError, err, "read")
	}
	return n, nil
}

// StreamWriter is a portable write backend over any io.WriteSeeker,
// for example a *writerseeker.WriterSeeker staging buffer or a file
// opened without positional I/O. A mutex serialises access; views
// buffer and commit on flush.
type StreamWriter struct {
	mu   sync.Mutex
	ws   io.WriteSeeker
	size int64
}

// NewStreamWriter wraps an io.WriteSeeker. The stream is assumed to
// start empty.
func NewStreamWriter(ws io.WriteSeeker) *StreamWriter {
	return &StreamWriter{ws: ws}
}

func (s *StreamWriter) Size() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size, nil
}

func (s *StreamWriter) InplaceReadback() bool { return true }

func (s *StreamWriter) Resize(size int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if size > s.size {
		// Extend by writing a zero byte at the last position; seeking
		// alone does not reliably grow all WriteSeeker implementations.
		if _, err := s.ws.Seek(size-1, io.SeekStart); err != nil {
			return tiffio.WrapErr(tiffio.KindIOError, err, "seek")
		}
		if _, err := s.ws.Write([]byte{0}); err != nil {
			return tiffio.WrapErr(tiffio.KindWriteError, err, "write")
		}
	}
	s.size = size
	return nil
}

func (s *StreamWriter) WriteAt(offset, size int64) (WriteView, error) {
	return &streamWriteView{s: s, offset: offset, buf: make([]byte, size)}, nil
}

func (s *StreamWriter) Flush() error { return nil }

func (s *StreamWriter) commit(offset int64, buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.ws.Seek(offset, io.SeekStart); err != nil {
		return tiffio.WrapErr(tiffio.KindIOError, err, "seek")
	}
	if _, err := s.ws.Write(buf); err != nil {
		return tiffio.WrapErr(tiffio.KindWriteError, err, "write")
	}
	if end := offset + int64(len(buf)); end > s.size {
		s.size = end
	}
	return nil
}

type streamWriteView struct {
	s       *StreamWriter
	offset  int64
	buf     []byte
	flushed bool
}

func (v *streamWriteView) Bytes() []byte { return v.buf }

func (v *streamWriteView) Flush() error {
	if err := v.s.commit(v.offset, v.buf); err != nil {
		return err
	}
	v.flushed = true
	return nil
}

func (v *streamWriteView) Release() error {
	if v.flushed {
		return nil
	}
	return v.Flush()
}
