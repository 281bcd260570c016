// Tool for rewriting TIFF files with a different compression,
// predictor, chunk layout or container format. Every page is decoded
// and re-encoded through the full pipeline.
//
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/orcaman/writerseeker"

	"github.com/arnevogt/tiffio"
	"github.com/arnevogt/tiffio/reader"
	"github.com/arnevogt/tiffio/storage"
	"github.com/arnevogt/tiffio/tile"
	"github.com/arnevogt/tiffio/writer"
)

var compressionByName = map[string]tiffio.CompressionScheme{
	"none":     tiffio.CompressionNone,
	"deflate":  tiffio.CompressionDeflate,
	"packbits": tiffio.CompressionPackBits,
	"lzma":     tiffio.CompressionLZMA,
	"zstd":     tiffio.CompressionZstd,
}

func main() {
	in := flag.String("in", "", "path to input file")
	out := flag.String("out", "", "path to output file")
	compression := flag.String("compression", "deflate", "none, deflate, packbits, lzma or zstd")
	predict := flag.Bool("predictor", false, "apply horizontal differencing before compression")
	tileSize := flag.Uint("tile", 0, "rewrite into square tiles of this size (0 keeps strips)")
	rows := flag.Uint("rows", 0, "rows per strip for stripped output (0 = whole image)")
	big := flag.Bool("bigtiff", false, "write BigTIFF instead of classic TIFF")
	stage := flag.Bool("stage", false, "assemble the output in memory before touching the file")
	flag.Parse()
	if *in == "" || *out == "" {
		fmt.Fprintln(os.Stderr, "usage: tiffrepack -in src.tif -out dst.tif [options]")
		os.Exit(2)
	}
	scheme, found := compressionByName[strings.ToLower(*compression)]
	if !found {
		log.Fatalf("unknown compression %q", *compression)
	}
	if err := repack(*in, *out, scheme, *predict, uint32(*tileSize), uint32(*rows), *big, *stage); err != nil {
		log.Fatal(err)
	}
}

func repack(in, out string, scheme tiffio.CompressionScheme, predict bool,
	tileSize, rowsPerStrip uint32, big, stage bool) error {

	src, err := storage.OpenMmap(in)
	if err != nil {
		return err
	}
	defer src.Close()

	f, err := reader.Open(src)
	if err != nil {
		return err
	}

	format := tiffio.Classic
	if big {
		format = tiffio.Big
	}

	var dst storage.Writer
	var staged *writerseeker.WriterSeeker
	if stage {
		staged = &writerseeker.WriterSeeker{}
		dst = storage.NewStreamWriter(staged)
	} else {
		file, err := storage.CreateFile(out)
		if err != nil {
			return err
		}
		defer file.Close()
		dst = file
	}

	w := writer.NewWriter(dst, format, binary.LittleEndian)
	for i := 0; i < f.NumPages(); i++ {
		p := f.Page(i)
		image := make([]byte, p.Shape.BufferSize())
		if err := p.ReadImage(image, tile.DHWC, binary.LittleEndian); err != nil {
			return fmt.Errorf("page %d: %w", i, err)
		}
		opts := writer.ImageOptions{
			Shape:       p.Shape,
			Layout:      tile.DHWC,
			Compression: scheme,
		}
		if predict {
			opts.Predictor = tiffio.PredictorHorizontal
		}
		if tileSize > 0 {
			opts.Tiled = true
			opts.TileWidth = tileSize
			opts.TileLength = tileSize
		} else {
			opts.RowsPerStrip = pickRowsPerStrip(p.Shape.Height, rowsPerStrip)
		}
		if err := w.WriteImage(image, opts); err != nil {
			return fmt.Errorf("page %d: %w", i, err)
		}
		log.Printf("page %d: %dx%d, %d chunks", i, p.Shape.Width, p.Shape.Height, p.Grid.Count())
	}
	if err := w.Close(); err != nil {
		return err
	}

	if stage {
		file, err := os.Create(out)
		if err != nil {
			return err
		}
		if _, err := io.Copy(file, staged.BytesReader()); err != nil {
			file.Close()
			return err
		}
		return file.Close()
	}
	return nil
}

// pickRowsPerStrip keeps the requested strip height when it divides
// the image, otherwise falls back to one strip for the whole image.
func pickRowsPerStrip(height, requested uint32) uint32 {
	if requested == 0 || height%requested != 0 {
		return 0
	}
	return requested
}
