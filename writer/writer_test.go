// SPDX-License-Identifier: MIT

package writer

import (
	"bytes"
	"encoding/binary"
	"reflect"
	"testing"

	"github.com/arnevogt/tiffio"
	"github.com/arnevogt/tiffio/reader"
	"github.com/arnevogt/tiffio/storage"
	"github.com/arnevogt/tiffio/tags"
	"github.com/arnevogt/tiffio/tile"
)

func gray8(w, h uint32) tile.Shape {
	return tile.Shape{
		Width: w, Height: h, Depth: 1,
		BitsPerSample: 8, SamplesPerPixel: 1,
		Format: tiffio.SampleFormatUint, Planar: tiffio.PlanarChunky,
	}
}

func gradient(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i % 251)
	}
	return buf
}

func writeOnePage(t *testing.T, image []byte, opts ImageOptions, format tiffio.Format, order binary.ByteOrder) []byte {
	t.Helper()
	dst := storage.NewBuffer(nil)
	w := NewWriter(dst, format, order)
	if err := w.WriteImage(image, opts); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return dst.Bytes()
}

func TestBigTIFFSingleTile(t *testing.T) {
	// 64×64 8-bit gray BigTIFF with one uncompressed 64×64 tile: the
	// round trip must return the same 4096 bytes, one 8-byte tile
	// offset, and TileByteCounts = [4096].
	image := gradient(64 * 64)
	file := writeOnePage(t, image, ImageOptions{
		Shape: gray8(64, 64), Tiled: true, TileWidth: 64, TileLength: 64,
		Compression: tiffio.CompressionNone, Predictor: tiffio.PredictorNone,
	}, tiffio.Big, binary.LittleEndian)

	f, err := reader.Open(storage.NewBufferReader(file))
	if err != nil {
		t.Fatal(err)
	}
	if f.Header().Format != tiffio.Big || f.NumPages() != 1 {
		t.Fatalf("format %v pages %d", f.Header().Format, f.NumPages())
	}
	p := f.Page(0)
	counts := get(p.Record, tiffio.TileByteCounts).Uints()
	if !reflect.DeepEqual(counts, []uint64{4096}) {
		t.Errorf("TileByteCounts: got %v", counts)
	}
	offsets := get(p.Record, tiffio.TileOffsets).Uints()
	if len(offsets) != 1 || offsets[0] == 0 {
		t.Errorf("TileOffsets: got %v", offsets)
	}
	decoded := make([]byte, p.Shape.BufferSize())
	if err := p.ReadImage(decoded, tile.DHWC, binary.LittleEndian); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decoded, image) {
		t.Error("decoded pixels differ from the input")
	}
}

func get(rec *tags.Record, code tiffio.TagCode) *tags.Value {
	v, _ := rec.Value(code)
	return v
}

func TestRoundTripMatrix(t *testing.T) {
	shape := tile.Shape{
		Width: 70, Height: 50, Depth: 1,
		BitsPerSample: 16, SamplesPerPixel: 3,
		Format: tiffio.SampleFormatUint, Planar: tiffio.PlanarChunky,
	}
	image := gradient(int(shape.BufferSize()))

	type variant struct {
		name string
		opts ImageOptions
	}
	variants := []variant{
		{"strippedNone", ImageOptions{Shape: shape, RowsPerStrip: 10, Compression: tiffio.CompressionNone}},
		{"strippedDeflatePredicted", ImageOptions{Shape: shape, RowsPerStrip: 25,
			Compression: tiffio.CompressionDeflate, Predictor: tiffio.PredictorHorizontal}},
		{"tiledZstd", ImageOptions{Shape: shape, Tiled: true, TileWidth: 32, TileLength: 32,
			Compression: tiffio.CompressionZstd}},
		{"tiledPackBits", ImageOptions{Shape: shape, Tiled: true, TileWidth: 16, TileLength: 16,
			Compression: tiffio.CompressionPackBits, Predictor: tiffio.PredictorHorizontal}},
		{"tiledLZMA", ImageOptions{Shape: shape, Tiled: true, TileWidth: 64, TileLength: 32,
			Compression: tiffio.CompressionLZMA}},
	}
	for _, format := range []tiffio.Format{tiffio.Classic, tiffio.Big} {
		for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
			for _, v := range variants {
				file := writeOnePage(t, image, v.opts, format, order)
				f, err := reader.Open(storage.NewBufferReader(file))
				if err != nil {
					t.Fatalf("%v %v %s: %v", format, order, v.name, err)
				}
				p := f.Page(0)
				if p.Shape != shape {
					t.Fatalf("%s: shape changed: %+v", v.name, p.Shape)
				}
				decoded := make([]byte, p.Shape.BufferSize())
				if err := p.ReadImage(decoded, tile.DHWC, binary.LittleEndian); err != nil {
					t.Fatalf("%v %v %s: %v", format, order, v.name, err)
				}
				if !bytes.Equal(decoded, image) {
					t.Errorf("%v %v %s: decoded pixels differ", format, order, v.name)
				}
			}
		}
	}
}

func TestRoundTripPlanar(t *testing.T) {
	shape := tile.Shape{
		Width: 40, Height: 30, Depth: 1,
		BitsPerSample: 8, SamplesPerPixel: 3,
		Format: tiffio.SampleFormatUint, Planar: tiffio.PlanarSeparate,
	}
	image := gradient(int(shape.BufferSize()))
	file := writeOnePage(t, image, ImageOptions{
		Shape: shape, Layout: tile.CDHW, Tiled: true, TileWidth: 16, TileLength: 16,
		Compression: tiffio.CompressionDeflate, Predictor: tiffio.PredictorHorizontal,
	}, tiffio.Classic, binary.LittleEndian)

	f, err := reader.Open(storage.NewBufferReader(file))
	if err != nil {
		t.Fatal(err)
	}
	p := f.Page(0)
	if p.Grid.Planes != 3 {
		t.Fatalf("planes: got %d", p.Grid.Planes)
	}
	decoded := make([]byte, p.Shape.BufferSize())
	if err := p.ReadImage(decoded, tile.CDHW, binary.LittleEndian); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decoded, image) {
		t.Error("planar round trip failed")
	}
}

func TestRoundTripFloatPredictor(t *testing.T) {
	shape := tile.Shape{
		Width: 32, Height: 16, Depth: 1,
		BitsPerSample: 32, SamplesPerPixel: 1,
		Format: tiffio.SampleFormatIEEEFloat, Planar: tiffio.PlanarChunky,
	}
	image := make([]byte, shape.BufferSize())
	for i := 0; i < 32*16; i++ {
		binary.LittleEndian.PutUint32(image[i*4:], uint32(i)*0x3DCCCCCD/16)
	}
	file := writeOnePage(t, image, ImageOptions{
		Shape: shape, RowsPerStrip: 8,
		Compression: tiffio.CompressionDeflate, Predictor: tiffio.PredictorFloatingPoint,
	}, tiffio.Classic, binary.BigEndian)

	f, err := reader.Open(storage.NewBufferReader(file))
	if err != nil {
		t.Fatal(err)
	}
	p := f.Page(0)
	if p.Predictor != tiffio.PredictorFloatingPoint {
		t.Fatalf("predictor tag: got %d", p.Predictor)
	}
	decoded := make([]byte, p.Shape.BufferSize())
	if err := p.ReadImage(decoded, tile.DHWC, binary.LittleEndian); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decoded, image) {
		t.Error("float predictor round trip failed")
	}
}

func TestMultiPageChain(t *testing.T) {
	dst := storage.NewBuffer(nil)
	w := NewWriter(dst, tiffio.Classic, binary.LittleEndian)
	img1 := gradient(100 * 10)
	img2 := gradient(200 * 10)
	if err := w.WriteImage(img1, ImageOptions{Shape: gray8(100, 10), Compression: tiffio.CompressionNone}); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteImage(img2, ImageOptions{Shape: gray8(200, 10), Compression: tiffio.CompressionNone}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := reader.Open(storage.NewBufferReader(dst.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if f.NumPages() != 2 {
		t.Fatalf("pages: got %d", f.NumPages())
	}
	if f.Page(0).IFD.NextOffset != f.Page(1).IFD.Offset {
		t.Error("first page's next pointer does not reach the second")
	}
	if f.Page(1).IFD.NextOffset != 0 {
		t.Error("second page must terminate the chain")
	}
	if w1 := f.Page(0).Shape.Width; w1 != 100 {
		t.Errorf("page 1 width: got %d", w1)
	}
	if w2 := f.Page(1).Shape.Width; w2 != 200 {
		t.Errorf("page 2 width: got %d", w2)
	}
}

func TestConflictingUserTag(t *testing.T) {
	cat := tags.MustCatalogue(
		tags.Descriptor{Code: tiffio.ImageWidth, Type: tiffio.LONG, Kind: tags.KindUint, Count: 1, Optional: true},
	)
	user := tags.NewRecord(cat)
	uw, _ := user.Value(tiffio.ImageWidth)
	if err := uw.SetUints(500); err != nil {
		t.Fatal(err)
	}

	dst := storage.NewBuffer(nil)
	w := NewWriter(dst, tiffio.Classic, binary.LittleEndian)
	err := w.WriteImage(gradient(512*8), ImageOptions{
		Shape: gray8(512, 8), Compression: tiffio.CompressionNone, UserTags: user,
	})
	if !tiffio.IsKind(err, tiffio.KindInvalidTag) {
		t.Fatalf("got %v, want InvalidTag", err)
	}
	// The writer must not have produced a file.
	if size, _ := dst.Size(); size > int64(tiffio.ClassicHeaderSize) {
		t.Errorf("output written despite the error: %d bytes", size)
	}
}

func TestUserSuppliedChunkOffsetsRejected(t *testing.T) {
	cat := tags.MustCatalogue(
		tags.Descriptor{Code: tiffio.StripOffsets, Type: tiffio.LONG, Kind: tags.KindUint, Optional: true},
	)
	user := tags.NewRecord(cat)
	uo, _ := user.Value(tiffio.StripOffsets)
	if err := uo.SetUints(1234); err != nil {
		t.Fatal(err)
	}
	w := NewWriter(storage.NewBuffer(nil), tiffio.Classic, binary.LittleEndian)
	err := w.WriteImage(gradient(16), ImageOptions{
		Shape: gray8(4, 4), Compression: tiffio.CompressionNone, UserTags: user,
	})
	if !tiffio.IsKind(err, tiffio.KindInvalidTag) {
		t.Errorf("got %v, want InvalidTag", err)
	}
}

func TestUserMetadataTagsSurvive(t *testing.T) {
	cat := tags.MustCatalogue(
		tags.Descriptor{Code: tiffio.Software, Type: tiffio.ASCII, Kind: tags.KindASCII, Optional: true},
		tags.Descriptor{Code: tiffio.ImageWidth, Type: tiffio.LONG, Kind: tags.KindUint, Count: 1, Optional: true},
	)
	user := tags.NewRecord(cat)
	us, _ := user.Value(tiffio.Software)
	if err := us.SetASCII("tiffio"); err != nil {
		t.Fatal(err)
	}
	uw, _ := user.Value(tiffio.ImageWidth)
	if err := uw.SetUints(64); err != nil { // equal to computed: accepted
		t.Fatal(err)
	}

	file := writeOnePage(t, gradient(64*8), ImageOptions{
		Shape: gray8(64, 8), Compression: tiffio.CompressionNone, UserTags: user,
	}, tiffio.Classic, binary.LittleEndian)

	f, err := reader.Open(storage.NewBufferReader(file))
	if err != nil {
		t.Fatal(err)
	}
	software := get(f.Page(0).Record, tiffio.Software)
	if software.ASCII() != "tiffio" {
		t.Errorf("Software: got %q", software.ASCII())
	}
}

func TestShortLastStripRejected(t *testing.T) {
	w := NewWriter(storage.NewBuffer(nil), tiffio.Classic, binary.LittleEndian)
	err := w.WriteImage(gradient(10*25), ImageOptions{
		Shape: gray8(10, 25), RowsPerStrip: 8, Compression: tiffio.CompressionNone,
	})
	if !tiffio.IsKind(err, tiffio.KindUnsupportedFeature) {
		t.Errorf("got %v, want UnsupportedFeature", err)
	}
}

func TestEdgeTilePadding(t *testing.T) {
	// 70×50 in 32×32 tiles: edge tiles carry replicated samples on
	// disk, and reading discards them again.
	shape := gray8(70, 50)
	image := gradient(70 * 50)
	file := writeOnePage(t, image, ImageOptions{
		Shape: shape, Tiled: true, TileWidth: 32, TileLength: 32,
		Compression: tiffio.CompressionNone,
	}, tiffio.Classic, binary.LittleEndian)

	f, err := reader.Open(storage.NewBufferReader(file))
	if err != nil {
		t.Fatal(err)
	}
	p := f.Page(0)
	// Every stored tile is full-size despite the partial edges.
	for _, count := range get(p.Record, tiffio.TileByteCounts).Uints() {
		if count != 32*32 {
			t.Errorf("tile byte count %d, want 1024", count)
		}
	}
	decoded := make([]byte, p.Shape.BufferSize())
	if err := p.ReadImage(decoded, tile.DHWC, binary.LittleEndian); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decoded, image) {
		t.Error("edge padding leaked into the decoded image")
	}
}

func TestWriteConfigs(t *testing.T) {
	shape := gray8(64, 48)
	image := gradient(64 * 48)
	configs := map[string]Config{
		"readOptimized":  ReadOptimized(),
		"writeOptimized": WriteOptimized(),
		"streaming":      Streaming(),
	}
	for name, cfg := range configs {
		cfg := cfg
		file := writeOnePage(t, image, ImageOptions{
			Shape: shape, Tiled: true, TileWidth: 16, TileLength: 16,
			Compression: tiffio.CompressionDeflate, Config: &cfg,
		}, tiffio.Classic, binary.LittleEndian)
		f, err := reader.Open(storage.NewBufferReader(file))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		decoded := make([]byte, shape.BufferSize())
		if err := f.Page(0).ReadImage(decoded, tile.DHWC, binary.LittleEndian); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !bytes.Equal(decoded, image) {
			t.Errorf("%s: decoded pixels differ", name)
		}
	}
}

func TestReadOptimizedPutsIFDFirst(t *testing.T) {
	cfg := ReadOptimized()
	file := writeOnePage(t, gradient(32*32), ImageOptions{
		Shape: gray8(32, 32), Tiled: true, TileWidth: 32, TileLength: 32,
		Compression: tiffio.CompressionNone, Config: &cfg,
	}, tiffio.Classic, binary.LittleEndian)
	f, err := reader.Open(storage.NewBufferReader(file))
	if err != nil {
		t.Fatal(err)
	}
	p := f.Page(0)
	if p.IFD.Offset != uint64(tiffio.ClassicHeaderSize) {
		t.Errorf("IFD at %d, want right after the header", p.IFD.Offset)
	}
	if offsets := get(p.Record, tiffio.TileOffsets).Uints(); offsets[0] <= p.IFD.Offset {
		t.Errorf("tile data at %d should follow the directory", offsets[0])
	}
}

func TestParallelEncoding(t *testing.T) {
	shape := gray8(256, 256)
	image := gradient(256 * 256)
	cfg := ReadOptimized()
	file := writeOnePage(t, image, ImageOptions{
		Shape: shape, Tiled: true, TileWidth: 32, TileLength: 32,
		Compression: tiffio.CompressionZstd, Config: &cfg, Parallelism: 4,
	}, tiffio.Classic, binary.LittleEndian)
	f, err := reader.Open(storage.NewBufferReader(file))
	if err != nil {
		t.Fatal(err)
	}
	decoded := make([]byte, shape.BufferSize())
	if err := f.Page(0).ReadImage(decoded, tile.DHWC, binary.LittleEndian); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decoded, image) {
		t.Error("parallel encode round trip failed")
	}
}

func TestRegionRead(t *testing.T) {
	shape := gray8(64, 64)
	image := gradient(64 * 64)
	file := writeOnePage(t, image, ImageOptions{
		Shape: shape, Tiled: true, TileWidth: 16, TileLength: 16,
		Compression: tiffio.CompressionDeflate,
	}, tiffio.Classic, binary.LittleEndian)
	f, err := reader.Open(storage.NewBufferReader(file))
	if err != nil {
		t.Fatal(err)
	}
	p := f.Page(0)
	region := tile.Region{C1: 1, Z1: 1, Y0: 10, Y1: 30, X0: 5, X1: 45}
	dst := make([]byte, region.BufferSize(p.Shape))
	if err := p.ReadRegion(dst, region, tile.DHWC, binary.LittleEndian); err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			want := image[(y+10)*64+x+5]
			if dst[y*40+x] != want {
				t.Fatalf("region (%d,%d): got %d, want %d", x, y, dst[y*40+x], want)
			}
		}
	}
}

func TestConfigValidation(t *testing.T) {
	bad := Config{
		Placement: PlaceAtStart{},
		Ordering:  OrderSequential{},
		Offsets:   LazyOffsets{},
	}
	if err := bad.Validate(); !tiffio.IsKind(err, tiffio.KindInvalidFormat) {
		t.Errorf("IFD-first without sizes: got %v", err)
	}
	immediate := Config{
		Placement: PlaceAtEnd{},
		Ordering:  OrderOnDemand{},
		Offsets:   ImmediateOffsets{},
	}
	if err := immediate.Validate(); !tiffio.IsKind(err, tiffio.KindInvalidFormat) {
		t.Errorf("immediate without pinned IFD: got %v", err)
	}
	for _, good := range []Config{ReadOptimized(), WriteOptimized(), Streaming(), EditInPlace(1024)} {
		if err := good.Validate(); err != nil {
			t.Errorf("named config rejected: %v", err)
		}
	}
}

func TestUnknownCompressionRejected(t *testing.T) {
	w := NewWriter(storage.NewBuffer(nil), tiffio.Classic, binary.LittleEndian)
	err := w.WriteImage(gradient(16), ImageOptions{
		Shape: gray8(4, 4), Compression: tiffio.CompressionScheme(4711),
	})
	if !tiffio.IsKind(err, tiffio.KindUnsupportedCompression) {
		t.Errorf("got %v, want UnsupportedCompression", err)
	}
}
