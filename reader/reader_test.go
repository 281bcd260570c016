// SPDX-License-Identifier: MIT

package reader

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/arnevogt/tiffio"
	"github.com/arnevogt/tiffio/storage"
	"github.com/arnevogt/tiffio/tile"
)

// buildClassicStripped assembles a minimal little-endian stripped
// file by hand: 4×4 gray, zlib-compressed, one strip.
func buildClassicStripped(t *testing.T, pixels []byte) []byte {
	t.Helper()
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(pixels); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	var file bytes.Buffer
	file.Write([]byte{'I', 'I', 42, 0, 8, 0, 0, 0})

	dataOffset := uint32(8)
	put16 := binary.LittleEndian.PutUint16
	put32 := binary.LittleEndian.PutUint32

	entry := func(code uint16, typ uint16, count, value uint32) []byte {
		e := make([]byte, 12)
		put16(e, code)
		put16(e[2:], typ)
		put32(e[4:], count)
		put32(e[8:], value)
		return e
	}

	// Image data first, directory after it.
	file.Write(compressed.Bytes())
	ifdOffset := uint32(file.Len())

	entries := [][]byte{
		entry(uint16(tiffio.ImageWidth), 3, 1, 4),
		entry(uint16(tiffio.ImageLength), 3, 1, 4),
		entry(uint16(tiffio.BitsPerSample), 3, 1, 8),
		entry(uint16(tiffio.Compression), 3, 1, 8), // deflate
		entry(uint16(tiffio.StripOffsets), 4, 1, dataOffset),
		entry(uint16(tiffio.RowsPerStrip), 3, 1, 4),
		entry(uint16(tiffio.StripByteCounts), 4, 1, uint32(compressed.Len())),
	}
	countBuf := make([]byte, 2)
	put16(countBuf, uint16(len(entries)))
	file.Write(countBuf)
	for _, e := range entries {
		file.Write(e)
	}
	file.Write([]byte{0, 0, 0, 0})

	out := file.Bytes()
	put32(out[4:], ifdOffset)
	return out
}

func TestOpenHandAssembledFile(t *testing.T) {
	pixels := []byte{
		0, 1, 2, 3,
		10, 11, 12, 13,
		20, 21, 22, 23,
		30, 31, 32, 33,
	}
	file := buildClassicStripped(t, pixels)
	f, err := Open(storage.NewBufferReader(file))
	if err != nil {
		t.Fatal(err)
	}
	if f.NumPages() != 1 {
		t.Fatalf("pages: %d", f.NumPages())
	}
	p := f.Page(0)
	if p.Shape.Width != 4 || p.Shape.Height != 4 || p.Shape.SamplesPerPixel != 1 {
		t.Fatalf("shape: %+v", p.Shape)
	}
	if p.Compression != tiffio.CompressionDeflate {
		t.Fatalf("compression: %d", p.Compression)
	}
	decoded := make([]byte, p.Shape.BufferSize())
	if err := p.ReadImage(decoded, tile.DHWC, binary.LittleEndian); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decoded, pixels) {
		t.Errorf("got %v", decoded)
	}
}

func TestOpenFromDiskBackends(t *testing.T) {
	pixels := make([]byte, 16)
	for i := range pixels {
		pixels[i] = byte(i)
	}
	path := filepath.Join(t.TempDir(), "test.tif")
	if err := os.WriteFile(path, buildClassicStripped(t, pixels), 0o644); err != nil {
		t.Fatal(err)
	}

	fileBackend, err := storage.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer fileBackend.Close()
	mmapBackend, err := storage.OpenMmap(path)
	if err != nil {
		t.Fatal(err)
	}
	defer mmapBackend.Close()

	for _, src := range []storage.Reader{fileBackend, mmapBackend} {
		f, err := Open(src)
		if err != nil {
			t.Fatal(err)
		}
		decoded := make([]byte, 16)
		if err := f.Page(0).ReadImage(decoded, tile.DHWC, binary.LittleEndian); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(decoded, pixels) {
			t.Error("decode mismatch")
		}
	}
}

func TestUnknownCompression(t *testing.T) {
	pixels := make([]byte, 16)
	file := buildClassicStripped(t, pixels)
	// Patch the Compression entry value to an unregistered scheme.
	// The entry array starts after data; find it by scanning for the
	// tag code.
	for i := 0; i+12 <= len(file); i++ {
		if binary.LittleEndian.Uint16(file[i:]) == uint16(tiffio.Compression) &&
			binary.LittleEndian.Uint16(file[i+2:]) == 3 {
			binary.LittleEndian.PutUint32(file[i+8:], 4711)
			break
		}
	}
	f, err := Open(storage.NewBufferReader(file))
	if err != nil {
		t.Fatal(err)
	}
	p := f.Page(0)
	dst := make([]byte, p.Shape.BufferSize())
	if err := p.ReadImage(dst, tile.DHWC, binary.LittleEndian); !tiffio.IsKind(err, tiffio.KindUnsupportedCompression) {
		t.Errorf("got %v, want UnsupportedCompression", err)
	}
}

func TestMissingChunkTags(t *testing.T) {
	// A directory with neither strip nor tile offsets must fail at
	// open time.
	file := []byte{
		'I', 'I', 42, 0, 8, 0, 0, 0,
		3, 0,
		0x00, 0x01, 3, 0, 1, 0, 0, 0, 4, 0, 0, 0, // ImageWidth
		0x01, 0x01, 3, 0, 1, 0, 0, 0, 4, 0, 0, 0, // ImageLength
		0x02, 0x01, 3, 0, 1, 0, 0, 0, 8, 0, 0, 0, // BitsPerSample
		0, 0, 0, 0,
	}
	if _, err := Open(storage.NewBufferReader(file)); !tiffio.IsKind(err, tiffio.KindInvalidTag) {
		t.Errorf("got %v, want InvalidTag", err)
	}
}
