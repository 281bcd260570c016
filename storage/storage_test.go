// SPDX-License-Identifier: MIT

package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/orcaman/writerseeker"

	"github.com/arnevogt/tiffio"
)

func testReader(t *testing.T, r Reader, content []byte) {
	t.Helper()

	size, err := r.Size()
	if err != nil {
		t.Fatal(err)
	}
	if size != int64(len(content)) {
		t.Errorf("Size: got %d, want %d", size, len(content))
	}

	view, err := r.ReadAt(2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(view.Bytes(), content[2:5]) {
		t.Errorf("ReadAt(2,3): got %v", view.Bytes())
	}
	view.Release()

	// Read at end of source fails with OutOfBounds.
	if _, err := r.ReadAt(size, 1); !tiffio.IsKind(err, tiffio.KindOutOfBounds) {
		t.Errorf("ReadAt(size,1): got %v, want OutOfBounds", err)
	}

	// Read extending past the end truncates.
	view, err = r.ReadAt(size-2, 100)
	if err != nil {
		t.Fatal(err)
	}
	if got := view.Bytes(); len(got) != 2 || !bytes.Equal(got, content[size-2:]) {
		t.Errorf("truncated read: got %v", got)
	}
	view.Release()

	// ReadInto truncates, too.
	dst := make([]byte, 100)
	n, err := r.ReadInto(dst, size-2)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || !bytes.Equal(dst[:2], content[size-2:]) {
		t.Errorf("ReadInto: got n=%d %v", n, dst[:n])
	}
}

func TestBufferReader(t *testing.T) {
	content := []byte("0123456789")
	testReader(t, NewBufferReader(content), content)
}

func TestBufferZeroCopy(t *testing.T) {
	content := []byte("0123456789")
	b := NewBuffer(content)
	if b.MustAllocate() {
		t.Error("buffer backend must not allocate")
	}
	view, err := b.ReadAt(0, 4)
	if err != nil {
		t.Fatal(err)
	}
	content[0] = 'X'
	if view.Bytes()[0] != 'X' {
		t.Error("read view should alias the backing slice")
	}
}

func TestBufferWrite(t *testing.T) {
	b := NewBuffer(make([]byte, 8))
	view, err := b.WriteAt(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	copy(view.Bytes(), "abcd")
	if err := view.Flush(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b.Bytes(), []byte("\x00\x00\x00\x00abcd")) {
		t.Errorf("got %q", b.Bytes())
	}
	if _, err := b.WriteAt(6, 4); !tiffio.IsKind(err, tiffio.KindOutOfBounds) {
		t.Errorf("out-of-range write: got %v", err)
	}
}

func TestBufferResize(t *testing.T) {
	b := NewBuffer([]byte("abcd"))
	if err := b.Resize(8); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b.Bytes(), []byte("abcd\x00\x00\x00\x00")) {
		t.Errorf("got %q", b.Bytes())
	}
	if err := b.Resize(2); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b.Bytes(), []byte("ab")) {
		t.Errorf("got %q", b.Bytes())
	}
	// Shrinking then growing again must not resurrect old bytes.
	if err := b.Resize(4); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b.Bytes(), []byte("ab\x00\x00")) {
		t.Errorf("got %q", b.Bytes())
	}
}

func TestBufferModes(t *testing.T) {
	if _, err := NewBufferReader([]byte("ab")).WriteAt(0, 1); !tiffio.IsKind(err, tiffio.KindWriteError) {
		t.Errorf("write on read-only: got %v", err)
	}
	if _, err := NewBufferWriter(make([]byte, 2)).ReadAt(0, 1); !tiffio.IsKind(err, tiffio.KindReadError) {
		t.Errorf("read on write-only: got %v", err)
	}
}

func TestFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.bin")
	content := []byte("0123456789")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if !f.MustAllocate() {
		t.Error("file backend reads must allocate")
	}
	testReader(t, f, content)
}

func TestFileBackendWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	f, err := CreateFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Resize(8); err != nil {
		t.Fatal(err)
	}
	view, err := f.WriteAt(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	copy(view.Bytes(), "abcd")
	if err := view.Release(); err != nil { // release without flush must flush
		t.Fatal(err)
	}
	if err := f.Flush(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("\x00\x00\x00\x00abcd")) {
		t.Errorf("got %q", got)
	}
}

func TestFileNotFound(t *testing.T) {
	if _, err := OpenFile(filepath.Join(t.TempDir(), "missing.tif")); !tiffio.IsKind(err, tiffio.KindFileNotFound) {
		t.Errorf("got %v, want FileNotFound", err)
	}
}

func TestMmapBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.bin")
	content := []byte("0123456789")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := OpenMmap(path)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	testReader(t, m, content)
}

func TestMmapWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	m, err := CreateMmap(path, 8)
	if err != nil {
		t.Fatal(err)
	}
	view, err := m.WriteAt(0, 8)
	if err != nil {
		t.Fatal(err)
	}
	copy(view.Bytes(), "abcdefgh")
	if err := view.Flush(); err != nil {
		t.Fatal(err)
	}
	if err := m.Flush(); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("abcdefgh")) {
		t.Errorf("got %q", got)
	}
}

func TestStreamReader(t *testing.T) {
	content := []byte("0123456789")
	testReader(t, NewStream(bytes.NewReader(content)), content)
}

func TestStreamReaderConcurrent(t *testing.T) {
	content := []byte(strings.Repeat("0123456789", 100))
	s := NewStream(bytes.NewReader(content))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(off int64) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				view, err := s.ReadAt(off, 10)
				if err != nil {
					t.Error(err)
					return
				}
				if !bytes.Equal(view.Bytes(), content[off:off+10]) {
					t.Errorf("offset %d: got %q", off, view.Bytes())
					return
				}
				view.Release()
			}
		}(int64(i * 10))
	}
	wg.Wait()
}

func TestStreamWriter(t *testing.T) {
	ws := &writerseeker.WriterSeeker{}
	s := NewStreamWriter(ws)
	if err := s.Resize(8); err != nil {
		t.Fatal(err)
	}
	view, err := s.WriteAt(2, 4)
	if err != nil {
		t.Fatal(err)
	}
	copy(view.Bytes(), "abcd")
	if err := view.Flush(); err != nil {
		t.Fatal(err)
	}
	size, err := s.Size()
	if err != nil {
		t.Fatal(err)
	}
	if size != 8 {
		t.Errorf("size: got %d, want 8", size)
	}
	var out bytes.Buffer
	if _, err := out.ReadFrom(ws.BytesReader()); err != nil {
		t.Fatal(err)
	}
	if got := out.Bytes(); !bytes.Equal(got[2:6], []byte("abcd")) {
		t.Errorf("got %q", got)
	}
}

func TestReaderAtBackend(t *testing.T) {
	content := []byte("0123456789")
	testReader(t, NewReaderAt(bytes.NewReader(content), int64(len(content))), content)
}
