// SPDX-License-Identifier: MIT

// Package tiffio holds the wire-level vocabulary of the TIFF and
// BigTIFF container formats: data types, tag codes, the fixed-layout
// header and directory records, and the error taxonomy shared by all
// subpackages. Parsing, encoding and the image pipeline live in the
// subpackages.
package tiffio

// DataType identifies one of the TIFF wire data types (uppercase
// names as in the TIFF specification).
type DataType uint16

const (
	BYTE      DataType = 1
	ASCII     DataType = 2
	SHORT     DataType = 3
	LONG      DataType = 4
	RATIONAL  DataType = 5
	SBYTE     DataType = 6
	UNDEFINED DataType = 7
	SSHORT    DataType = 8
	SLONG     DataType = 9
	SRATIONAL DataType = 10
	FLOAT     DataType = 11
	DOUBLE    DataType = 12
	IFD       DataType = 13 // TIFF Supplement 1
	LONG8     DataType = 16 // BigTIFF
	SLONG8    DataType = 17 // BigTIFF
	IFD8      DataType = 18 // BigTIFF
)

var typeSizes = map[DataType]uint32{
	BYTE:      1,
	ASCII:     1,
	SHORT:     2,
	LONG:      4,
	RATIONAL:  8,
	SBYTE:     1,
	UNDEFINED: 1,
	SSHORT:    2,
	SLONG:     4,
	SRATIONAL: 8,
	FLOAT:     4,
	DOUBLE:    8,
	IFD:       4,
	LONG8:     8,
	SLONG8:    8,
	IFD8:      8,
}

// Size returns the byte size of a single value of the type, or 0 for
// unknown types.
func (t DataType) Size() uint32 {
	return typeSizes[t]
}

var typeNames = map[DataType]string{
	BYTE:      "Byte",
	ASCII:     "ASCII",
	SHORT:     "Short",
	LONG:      "Long",
	RATIONAL:  "Rational",
	SBYTE:     "SByte",
	UNDEFINED: "Undefined",
	SSHORT:    "SShort",
	SLONG:     "SLong",
	SRATIONAL: "SRational",
	FLOAT:     "Float",
	DOUBLE:    "Double",
	IFD:       "IFD",
	LONG8:     "Long8",
	SLONG8:    "SLong8",
	IFD8:      "IFD8",
}

func (t DataType) String() string {
	if name, found := typeNames[t]; found {
		return name
	}
	return "Unknown"
}

// IsIntegral reports whether the type is one of the unsigned or
// signed TIFF integer types.
func (t DataType) IsIntegral() bool {
	switch t {
	case BYTE, SHORT, LONG, LONG8, SBYTE, SSHORT, SLONG, SLONG8, IFD, IFD8:
		return true
	}
	return false
}

// IsSigned reports whether the type is a signed integer type.
func (t DataType) IsSigned() bool {
	switch t {
	case SBYTE, SSHORT, SLONG, SLONG8:
		return true
	}
	return false
}

// IsRational reports whether the type is a rational type.
func (t DataType) IsRational() bool {
	return t == RATIONAL || t == SRATIONAL
}

// IsFloat reports whether the type is an IEEE floating point type.
func (t DataType) IsFloat() bool {
	return t == FLOAT || t == DOUBLE
}

// IsIFDPointer reports whether values of the type point at another
// IFD.
func (t DataType) IsIFDPointer() bool {
	return t == IFD || t == IFD8
}

// TagCode identifies a TIFF tag.
type TagCode uint16

// Tags from TIFF 6.0 unless noted otherwise.
const (
	NewSubfileType            TagCode = 0x0FE
	SubfileType               TagCode = 0x0FF
	ImageWidth                TagCode = 0x100
	ImageLength               TagCode = 0x101
	BitsPerSample             TagCode = 0x102
	Compression               TagCode = 0x103
	PhotometricInterpretation TagCode = 0x106
	Threshholding             TagCode = 0x107
	CellWidth                 TagCode = 0x108
	CellLength                TagCode = 0x109
	FillOrder                 TagCode = 0x10A
	DocumentName              TagCode = 0x10D
	ImageDescription          TagCode = 0x10E
	Make                      TagCode = 0x10F
	Model                     TagCode = 0x110
	StripOffsets              TagCode = 0x111
	Orientation               TagCode = 0x112
	SamplesPerPixel           TagCode = 0x115
	RowsPerStrip              TagCode = 0x116
	StripByteCounts           TagCode = 0x117
	MinSampleValue            TagCode = 0x118
	MaxSampleValue            TagCode = 0x119
	XResolution               TagCode = 0x11A
	YResolution               TagCode = 0x11B
	PlanarConfiguration       TagCode = 0x11C
	PageName                  TagCode = 0x11D
	XPosition                 TagCode = 0x11E
	YPosition                 TagCode = 0x11F
	FreeOffsets               TagCode = 0x120
	FreeByteCounts            TagCode = 0x121
	GrayResponseUnit          TagCode = 0x122
	GrayResponseCurve         TagCode = 0x123
	ResolutionUnit            TagCode = 0x128
	PageNumber                TagCode = 0x129
	TransferFunction          TagCode = 0x12D
	Software                  TagCode = 0x131
	DateTime                  TagCode = 0x132
	Artist                    TagCode = 0x13B
	HostComputer              TagCode = 0x13C
	Predictor                 TagCode = 0x13D
	WhitePoint                TagCode = 0x13E
	PrimaryChromaticities     TagCode = 0x13F
	ColorMap                  TagCode = 0x140
	HalftoneHints             TagCode = 0x141
	TileWidth                 TagCode = 0x142
	TileLength                TagCode = 0x143
	TileOffsets               TagCode = 0x144
	TileByteCounts            TagCode = 0x145
	SubIFDs                   TagCode = 0x14A // Supplement 1
	InkSet                    TagCode = 0x14C
	InkNames                  TagCode = 0x14D
	NumberOfInks              TagCode = 0x14E
	DotRange                  TagCode = 0x150
	TargetPrinter             TagCode = 0x151
	ExtraSamples              TagCode = 0x152
	SampleFormatTag           TagCode = 0x153
	SMinSampleValue           TagCode = 0x154
	SMaxSampleValue           TagCode = 0x155
	JPEGTables                TagCode = 0x15B // Supplement 2
	YCbCrCoefficients         TagCode = 0x211
	YCbCrSubSampling          TagCode = 0x212
	YCbCrPositioning          TagCode = 0x213
	ReferenceBlackWhite       TagCode = 0x214
	XMP                       TagCode = 0x2BC // XMP part 3
	Copyright                 TagCode = 0x8298
	ModelPixelScale           TagCode = 0x830E // GeoTIFF
	IPTC                      TagCode = 0x83BB
	ModelTiepoint             TagCode = 0x8482 // GeoTIFF
	ModelTransformation       TagCode = 0x85D8 // GeoTIFF
	ExifIFD                   TagCode = 0x8769 // Exif 2.3
	ICCProfile                TagCode = 0x8773
	GeoKeyDirectory           TagCode = 0x87AF // GeoTIFF
	GeoDoubleParams           TagCode = 0x87B0 // GeoTIFF
	GeoAsciiParams            TagCode = 0x87B1 // GeoTIFF
	GPSIFD                    TagCode = 0x8825 // Exif 2.3
	ImageDepth                TagCode = 0x80E5 // SGI
	TileDepth                 TagCode = 0x80E6 // SGI
)

var tagNames = map[TagCode]string{
	NewSubfileType:            "NewSubfileType",
	SubfileType:               "SubfileType",
	ImageWidth:                "ImageWidth",
	ImageLength:               "ImageLength",
	BitsPerSample:             "BitsPerSample",
	Compression:               "Compression",
	PhotometricInterpretation: "PhotometricInterpretation",
	Threshholding:             "Threshholding",
	CellWidth:                 "CellWidth",
	CellLength:                "CellLength",
	FillOrder:                 "FillOrder",
	DocumentName:              "DocumentName",
	ImageDescription:          "ImageDescription",
	Make:                      "Make",
	Model:                     "Model",
	StripOffsets:              "StripOffsets",
	Orientation:               "Orientation",
	SamplesPerPixel:           "SamplesPerPixel",
	RowsPerStrip:              "RowsPerStrip",
	StripByteCounts:           "StripByteCounts",
	MinSampleValue:            "MinSampleValue",
	MaxSampleValue:            "MaxSampleValue",
	XResolution:               "XResolution",
	YResolution:               "YResolution",
	PlanarConfiguration:       "PlanarConfiguration",
	PageName:                  "PageName",
	XPosition:                 "XPosition",
	YPosition:                 "YPosition",
	FreeOffsets:               "FreeOffsets",
	FreeByteCounts:            "FreeByteCounts",
	GrayResponseUnit:          "GrayResponseUnit",
	GrayResponseCurve:         "GrayResponseCurve",
	ResolutionUnit:            "ResolutionUnit",
	PageNumber:                "PageNumber",
	TransferFunction:          "TransferFunction",
	Software:                  "Software",
	DateTime:                  "DateTime",
	Artist:                    "Artist",
	HostComputer:              "HostComputer",
	Predictor:                 "Predictor",
	WhitePoint:                "WhitePoint",
	PrimaryChromaticities:     "PrimaryChromaticities",
	ColorMap:                  "ColorMap",
	HalftoneHints:             "HalftoneHints",
	TileWidth:                 "TileWidth",
	TileLength:                "TileLength",
	TileOffsets:               "TileOffsets",
	TileByteCounts:            "TileByteCounts",
	SubIFDs:                   "SubIFDs",
	InkSet:                    "InkSet",
	InkNames:                  "InkNames",
	NumberOfInks:              "NumberOfInks",
	DotRange:                  "DotRange",
	TargetPrinter:             "TargetPrinter",
	ExtraSamples:              "ExtraSamples",
	SampleFormatTag:           "SampleFormat",
	SMinSampleValue:           "SMinSampleValue",
	SMaxSampleValue:           "SMaxSampleValue",
	JPEGTables:                "JPEGTables",
	YCbCrCoefficients:         "YCbCrCoefficients",
	YCbCrSubSampling:          "YCbCrSubSampling",
	YCbCrPositioning:          "YCbCrPositioning",
	ReferenceBlackWhite:       "ReferenceBlackWhite",
	XMP:                       "XMP",
	Copyright:                 "Copyright",
	ModelPixelScale:           "ModelPixelScale",
	IPTC:                      "IPTC",
	ModelTiepoint:             "ModelTiepoint",
	ModelTransformation:       "ModelTransformation",
	ExifIFD:                   "ExifIFD",
	ICCProfile:                "ICCProfile",
	GeoKeyDirectory:           "GeoKeyDirectory",
	GeoDoubleParams:           "GeoDoubleParams",
	GeoAsciiParams:            "GeoAsciiParams",
	GPSIFD:                    "GPSIFD",
	ImageDepth:                "ImageDepth",
	TileDepth:                 "TileDepth",
}

func (c TagCode) String() string {
	if name, found := tagNames[c]; found {
		return name
	}
	return "Tag(" + itoa(uint64(c)) + ")"
}

// itoa avoids pulling strconv into the hot path of error formatting.
func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// CompressionScheme is the value of the Compression tag.
type CompressionScheme uint16

const (
	CompressionNone       CompressionScheme = 1
	CompressionCCITT      CompressionScheme = 2
	CompressionLZW        CompressionScheme = 5
	CompressionJPEG       CompressionScheme = 7
	CompressionDeflate    CompressionScheme = 8
	CompressionPackBits   CompressionScheme = 32773
	CompressionDeflateOld CompressionScheme = 32946
	CompressionLZMA       CompressionScheme = 34925
	CompressionZstd       CompressionScheme = 34926
	CompressionZstdAlt    CompressionScheme = 50000
)

// PredictorScheme is the value of the Predictor tag.
type PredictorScheme uint16

const (
	PredictorNone          PredictorScheme = 1
	PredictorHorizontal    PredictorScheme = 2
	PredictorFloatingPoint PredictorScheme = 3
)

// Photometric is the value of the PhotometricInterpretation tag.
type Photometric uint16

const (
	PhotometricWhiteIsZero Photometric = 0
	PhotometricBlackIsZero Photometric = 1
	PhotometricRGB         Photometric = 2
	PhotometricPalette     Photometric = 3
)

// Planar is the value of the PlanarConfiguration tag.
type Planar uint16

const (
	PlanarChunky   Planar = 1 // samples interleaved within each pixel
	PlanarSeparate Planar = 2 // one plane per sample
)

// SampleFormat is the value of the SampleFormat tag.
type SampleFormat uint16

const (
	SampleFormatUint      SampleFormat = 1
	SampleFormatInt       SampleFormat = 2
	SampleFormatIEEEFloat SampleFormat = 3
	SampleFormatUndefined SampleFormat = 4
)

// Rational is an unsigned fraction, numerator over denominator.
type Rational struct {
	Num uint32
	Den uint32
}

// SRational is a signed fraction, numerator over denominator.
type SRational struct {
	Num int32
	Den int32
}
