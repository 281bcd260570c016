// SPDX-License-Identifier: MIT

package codec

import (
	"bytes"
	"io"

	"github.com/ulikunitz/xz/lzma"

	"github.com/arnevogt/tiffio"
)

// lzmaCodec is compression scheme 34925, the LZMA registration
// written by libtiff/GDAL builds with liblzma support.
type lzmaCodec struct{}

func init() {
	Register(lzmaCodec{})
}

func (lzmaCodec) Scheme() tiffio.CompressionScheme {
	return tiffio.CompressionLZMA
}

func (lzmaCodec) Compress(dst, src []byte) ([]byte, error) {
	buf := bytes.NewBuffer(dst[:0])
	lw, err := lzma.NewWriter(buf)
	if err != nil {
		return nil, tiffio.WrapErr(tiffio.KindCompressionError, err, "lzma init")
	}
	if _, err := lw.Write(src); err != nil {
		return nil, tiffio.WrapErr(tiffio.KindCompressionError, err, "lzma")
	}
	if err := lw.Close(); err != nil {
		return nil, tiffio.WrapErr(tiffio.KindCompressionError, err, "lzma close")
	}
	return buf.Bytes(), nil
}

func (lzmaCodec) Decompress(dst, src []byte) (int, error) {
	lr, err := lzma.NewReader(bytes.NewReader(src))
	if err != nil {
		return 0, tiffio.WrapErr(tiffio.KindCompressionError, err, "lzma init")
	}
	n, err := io.ReadFull(lr, dst)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return n, tiffio.WrapErr(tiffio.KindCompressionError, err, "lzma")
	}
	if n < len(dst) {
		return n, tiffio.Errf(tiffio.KindCompressionError, "lzma stream ends after %d of %d bytes", n, len(dst))
	}
	return n, nil
}
