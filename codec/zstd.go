// SPDX-License-Identifier: MIT

package codec

import (
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/arnevogt/tiffio"
)

// zstdCodec is Zstandard, registered under both identifiers seen in
// the wild: 34926 and the GDAL registration 50000. The shared encoder
// and decoder are stateless in their EncodeAll/DecodeAll form and
// safe for concurrent use.
type zstdCodec struct {
	scheme tiffio.CompressionScheme
}

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
	zstdErr  error
)

func init() {
	Register(zstdCodec{scheme: tiffio.CompressionZstd})
	Register(zstdCodec{scheme: tiffio.CompressionZstdAlt})
}

func zstdInit() error {
	zstdOnce.Do(func() {
		zstdEnc, zstdErr = zstd.NewWriter(nil)
		if zstdErr != nil {
			return
		}
		zstdDec, zstdErr = zstd.NewReader(nil)
	})
	return zstdErr
}

func (c zstdCodec) Scheme() tiffio.CompressionScheme {
	return c.scheme
}

func (c zstdCodec) Compress(dst, src []byte) ([]byte, error) {
	if err := zstdInit(); err != nil {
		return nil, tiffio.WrapErr(tiffio.KindCompressionError, err, "zstd init")
	}
	return zstdEnc.EncodeAll(src, dst[:0]), nil
}

func (c zstdCodec) Decompress(dst, src []byte) (int, error) {
	if err := zstdInit(); err != nil {
		return 0, tiffio.WrapErr(tiffio.KindCompressionError, err, "zstd init")
	}
	out, err := zstdDec.DecodeAll(src, dst[:0])
	if err != nil {
		return 0, tiffio.WrapErr(tiffio.KindCompressionError, err, "zstd")
	}
	if len(out) < len(dst) {
		return len(out), tiffio.Errf(tiffio.KindCompressionError, "zstd stream ends after %d of %d bytes", len(out), len(dst))
	}
	return copy(dst, out), nil
}
