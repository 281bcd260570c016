// Tool for plotting a histogram of the sample values of a TIFF page
// as a PNG image.
//
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math"

	"github.com/fogleman/gg"

	"github.com/arnevogt/tiffio"
	"github.com/arnevogt/tiffio/reader"
	"github.com/arnevogt/tiffio/storage"
	"github.com/arnevogt/tiffio/tile"
)

func main() {
	in := flag.String("in", "", "path to TIFF file")
	out := flag.String("out", "histogram.png", "path to output PNG")
	page := flag.Int("page", 0, "page to plot")
	bins := flag.Int("bins", 256, "number of histogram bins")
	logY := flag.Bool("log", false, "logarithmic counts axis")
	flag.Parse()
	if *in == "" {
		log.Fatal("need -in")
	}
	if err := plotHistogram(*in, *out, *page, *bins, *logY); err != nil {
		log.Fatal(err)
	}
}

func plotHistogram(in, out string, page, bins int, logY bool) error {
	src, err := storage.OpenMmap(in)
	if err != nil {
		return err
	}
	defer src.Close()

	f, err := reader.Open(src)
	if err != nil {
		return err
	}
	if page < 0 || page >= f.NumPages() {
		return fmt.Errorf("page %d out of range, file has %d", page, f.NumPages())
	}
	p := f.Page(page)
	image := make([]byte, p.Shape.BufferSize())
	if err := p.ReadImage(image, tile.DHWC, binary.LittleEndian); err != nil {
		return err
	}

	counts, lo, hi := binSamples(image, p.Shape, bins)
	log.Printf("%s page %d: %d samples in [%g, %g]",
		in, page, p.Shape.PixelCount()*int64(p.Shape.SamplesPerPixel), lo, hi)

	return render(counts, lo, hi, logY, out)
}

// binSamples decodes every sample to float64 and bins the value
// range.
func binSamples(image []byte, s tile.Shape, bins int) ([]int, float64, float64) {
	elem := s.BytesPerSample()
	n := len(image) / elem
	values := make([]float64, n)
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < n; i++ {
		v := sampleAt(image[i*elem:], s)
		values[i] = v
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	counts := make([]int, bins)
	span := hi - lo
	if span == 0 {
		span = 1
	}
	for _, v := range values {
		bin := int(float64(bins-1) * (v - lo) / span)
		counts[bin]++
	}
	return counts, lo, hi
}

func sampleAt(buf []byte, s tile.Shape) float64 {
	switch {
	case s.Format == tiffio.SampleFormatIEEEFloat && s.BitsPerSample == 32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))
	case s.Format == tiffio.SampleFormatIEEEFloat && s.BitsPerSample == 64:
		return math.Float64frombits(binary.LittleEndian.Uint64(buf))
	case s.Format == tiffio.SampleFormatIEEEFloat && s.BitsPerSample == 16:
		return float64(tiffio.Float16(binary.LittleEndian.Uint16(buf)).Float32())
	case s.Format == tiffio.SampleFormatIEEEFloat && s.BitsPerSample == 24:
		return float64(tiffio.Float24(tiffio.ReadUint24(buf, binary.LittleEndian)).Float32())
	case s.Format == tiffio.SampleFormatInt:
		switch s.BitsPerSample {
		case 8:
			return float64(int8(buf[0]))
		case 16:
			return float64(int16(binary.LittleEndian.Uint16(buf)))
		case 32:
			return float64(int32(binary.LittleEndian.Uint32(buf)))
		default:
			return float64(int64(binary.LittleEndian.Uint64(buf)))
		}
	default:
		switch s.BitsPerSample {
		case 8:
			return float64(buf[0])
		case 16:
			return float64(binary.LittleEndian.Uint16(buf))
		case 32:
			return float64(binary.LittleEndian.Uint32(buf))
		default:
			return float64(binary.LittleEndian.Uint64(buf))
		}
	}
}

func render(counts []int, lo, hi float64, logY bool, out string) error {
	const width, height, margin = 1024, 640, 24.0
	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}
	scale := func(c int) float64 {
		if !logY {
			return float64(c) / float64(maxCount)
		}
		if c == 0 {
			return 0
		}
		return math.Log1p(float64(c)) / math.Log1p(float64(maxCount))
	}

	plotW := float64(width) - 2*margin
	plotH := float64(height) - 2*margin
	barW := plotW / float64(len(counts))
	dc.SetRGB(0.2, 0.4, 0.8)
	for i, c := range counts {
		barH := scale(c) * plotH
		dc.DrawRectangle(margin+float64(i)*barW, margin+plotH-barH, barW, barH)
		dc.Fill()
	}

	// Axes.
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawLine(margin, margin, margin, margin+plotH)
	dc.DrawLine(margin, margin+plotH, margin+plotW, margin+plotH)
	dc.Stroke()

	return dc.SavePNG(out)
}
