// SPDX-License-Identifier: MIT

package tags

import "github.com/arnevogt/tiffio"

// Shorthands for the descriptor tables below.
var (
	short     = tiffio.SHORT
	long      = tiffio.LONG
	long8     = tiffio.LONG8
	ascii     = tiffio.ASCII
	rational  = tiffio.RATIONAL
	double    = tiffio.DOUBLE
	undefined = tiffio.UNDEFINED
	byteT     = tiffio.BYTE
)

func scalarUint(code tiffio.TagCode, t tiffio.DataType, optional bool, alt ...tiffio.DataType) Descriptor {
	return Descriptor{Code: code, Type: t, Kind: KindUint, Count: 1, Optional: optional, Alt: alt}
}

func vectorUint(code tiffio.TagCode, t tiffio.DataType, optional bool, alt ...tiffio.DataType) Descriptor {
	return Descriptor{Code: code, Type: t, Kind: KindUint, Count: 0, Optional: optional, Alt: alt}
}

func asciiTag(code tiffio.TagCode, optional bool) Descriptor {
	return Descriptor{Code: code, Type: ascii, Kind: KindASCII, Count: 0, Optional: optional}
}

// BaselineStripped covers simple strip-based classic TIFF images.
var BaselineStripped = MustCatalogue(
	scalarUint(tiffio.ImageWidth, long, false, short),
	scalarUint(tiffio.ImageLength, long, false, short),
	vectorUint(tiffio.BitsPerSample, short, false),
	scalarUint(tiffio.Compression, short, false),
	vectorUint(tiffio.StripOffsets, long, false, short),
	scalarUint(tiffio.SamplesPerPixel, short, true),
	scalarUint(tiffio.RowsPerStrip, long, false, short),
	vectorUint(tiffio.StripByteCounts, long, false, short),
	scalarUint(tiffio.Predictor, short, true),
	scalarUint(tiffio.SampleFormatTag, short, true),
)

// BaselineTiled covers simple tile-based classic TIFF images.
var BaselineTiled = MustCatalogue(
	scalarUint(tiffio.ImageWidth, long, false, short),
	scalarUint(tiffio.ImageLength, long, false, short),
	vectorUint(tiffio.BitsPerSample, short, false),
	scalarUint(tiffio.Compression, short, false),
	scalarUint(tiffio.SamplesPerPixel, short, true),
	scalarUint(tiffio.Predictor, short, true),
	scalarUint(tiffio.TileWidth, long, false, short),
	scalarUint(tiffio.TileLength, long, false, short),
	vectorUint(tiffio.TileOffsets, long, false, short),
	vectorUint(tiffio.TileByteCounts, long, false, short),
	scalarUint(tiffio.SampleFormatTag, short, true),
)

// BaselineStrippedBig is BaselineStripped with 64-bit offset arrays
// for BigTIFF.
var BaselineStrippedBig = MustCatalogue(
	scalarUint(tiffio.ImageWidth, long, false, short),
	scalarUint(tiffio.ImageLength, long, false, short),
	vectorUint(tiffio.BitsPerSample, short, false),
	scalarUint(tiffio.Compression, short, false),
	vectorUint(tiffio.StripOffsets, long8, false, short, long),
	scalarUint(tiffio.SamplesPerPixel, short, true),
	scalarUint(tiffio.RowsPerStrip, long, false, short),
	vectorUint(tiffio.StripByteCounts, long8, false, short, long),
	scalarUint(tiffio.Predictor, short, true),
	scalarUint(tiffio.SampleFormatTag, short, true),
)

// BaselineTiledBig is BaselineTiled with 64-bit offset arrays for
// BigTIFF.
var BaselineTiledBig = MustCatalogue(
	scalarUint(tiffio.ImageWidth, long, false, short),
	scalarUint(tiffio.ImageLength, long, false, short),
	vectorUint(tiffio.BitsPerSample, short, false),
	scalarUint(tiffio.Compression, short, false),
	scalarUint(tiffio.SamplesPerPixel, short, true),
	scalarUint(tiffio.Predictor, short, true),
	scalarUint(tiffio.TileWidth, long, false, short),
	scalarUint(tiffio.TileLength, long, false, short),
	vectorUint(tiffio.TileOffsets, long8, false, short, long),
	vectorUint(tiffio.TileByteCounts, long8, false, short, long),
	scalarUint(tiffio.SampleFormatTag, short, true),
)

// Extended covers most image files: both stripped and tiled layout
// tags (all optional, so one catalogue serves both), depth, metadata
// strings and the GeoTIFF keys. Offset arrays use the BigTIFF-safe
// Long8 primary with Short/Long promotions so the same catalogue
// reads classic files.
var Extended = MustCatalogue(
	scalarUint(tiffio.NewSubfileType, long, true, short),
	scalarUint(tiffio.SubfileType, short, true),
	scalarUint(tiffio.ImageWidth, long, false, short),
	scalarUint(tiffio.ImageLength, long, false, short),
	vectorUint(tiffio.BitsPerSample, short, false),
	scalarUint(tiffio.Compression, short, false),
	scalarUint(tiffio.PhotometricInterpretation, short, true),
	scalarUint(tiffio.FillOrder, short, true),
	asciiTag(tiffio.DocumentName, true),
	asciiTag(tiffio.ImageDescription, true),
	asciiTag(tiffio.Make, true),
	asciiTag(tiffio.Model, true),
	vectorUint(tiffio.StripOffsets, long8, true, short, long),
	scalarUint(tiffio.Orientation, short, true),
	scalarUint(tiffio.SamplesPerPixel, short, true),
	scalarUint(tiffio.RowsPerStrip, long, true, short),
	vectorUint(tiffio.StripByteCounts, long8, true, short, long),
	vectorUint(tiffio.MinSampleValue, short, true),
	vectorUint(tiffio.MaxSampleValue, short, true),
	Descriptor{Code: tiffio.XResolution, Type: rational, Kind: KindRational, Count: 1, Optional: true},
	Descriptor{Code: tiffio.YResolution, Type: rational, Kind: KindRational, Count: 1, Optional: true},
	scalarUint(tiffio.PlanarConfiguration, short, true),
	scalarUint(tiffio.ResolutionUnit, short, true),
	Descriptor{Code: tiffio.PageNumber, Type: short, Kind: KindUint, Count: 2, Optional: true},
	vectorUint(tiffio.TransferFunction, short, true),
	asciiTag(tiffio.Software, true),
	asciiTag(tiffio.DateTime, true),
	asciiTag(tiffio.Artist, true),
	asciiTag(tiffio.HostComputer, true),
	scalarUint(tiffio.Predictor, short, true),
	Descriptor{Code: tiffio.WhitePoint, Type: rational, Kind: KindRational, Count: 2, Optional: true},
	Descriptor{Code: tiffio.PrimaryChromaticities, Type: rational, Kind: KindRational, Count: 6, Optional: true},
	vectorUint(tiffio.ColorMap, short, true),
	scalarUint(tiffio.TileWidth, long, true, short),
	scalarUint(tiffio.TileLength, long, true, short),
	vectorUint(tiffio.TileOffsets, long8, true, short, long),
	vectorUint(tiffio.TileByteCounts, long8, true, short, long),
	vectorUint(tiffio.SubIFDs, long8, true, short, long, tiffio.IFD, tiffio.IFD8),
	Descriptor{Code: tiffio.InkNames, Type: ascii, Kind: KindASCIIList, Count: 0, Optional: true},
	scalarUint(tiffio.NumberOfInks, short, true),
	Descriptor{Code: tiffio.ExtraSamples, Type: byteT, Kind: KindUint, Count: 0, Optional: true},
	scalarUint(tiffio.SampleFormatTag, short, true),
	Descriptor{Code: tiffio.SMinSampleValue, Type: undefined, Kind: KindBytes, Count: 0, Optional: true},
	Descriptor{Code: tiffio.SMaxSampleValue, Type: undefined, Kind: KindBytes, Count: 0, Optional: true},
	Descriptor{Code: tiffio.JPEGTables, Type: undefined, Kind: KindBytes, Count: 0, Optional: true},
	Descriptor{Code: tiffio.XMP, Type: byteT, Kind: KindBytes, Count: 0, Optional: true},
	scalarUint(tiffio.ImageDepth, long, true, short),
	scalarUint(tiffio.TileDepth, long, true, short),
	asciiTag(tiffio.Copyright, true),
	Descriptor{Code: tiffio.ModelPixelScale, Type: double, Kind: KindFloat, Count: 0, Optional: true},
	Descriptor{Code: tiffio.ModelTiepoint, Type: double, Kind: KindFloat, Count: 0, Optional: true},
	Descriptor{Code: tiffio.ICCProfile, Type: undefined, Kind: KindBytes, Count: 0, Optional: true},
	vectorUint(tiffio.GeoKeyDirectory, short, true),
	Descriptor{Code: tiffio.GeoDoubleParams, Type: double, Kind: KindFloat, Count: 0, Optional: true},
	asciiTag(tiffio.GeoAsciiParams, true),
)

// Baseline returns the baseline catalogue for a format and layout.
func Baseline(format tiffio.Format, tiled bool) Catalogue {
	if format == tiffio.Big {
		if tiled {
			return BaselineTiledBig
		}
		return BaselineStrippedBig
	}
	if tiled {
		return BaselineTiled
	}
	return BaselineStripped
}
