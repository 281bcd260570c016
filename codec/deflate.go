// SPDX-License-Identifier: MIT

package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/arnevogt/tiffio"
)

// deflateCodec is the zlib-wrapped deflate stream of compression
// scheme 8, also registered under the legacy Adobe code 32946 that
// old writers emit for the same format.
type deflateCodec struct {
	scheme tiffio.CompressionScheme
}

func init() {
	Register(deflateCodec{scheme: tiffio.CompressionDeflate})
	Register(deflateCodec{scheme: tiffio.CompressionDeflateOld})
}

func (c deflateCodec) Scheme() tiffio.CompressionScheme {
	return c.scheme
}

func (c deflateCodec) Compress(dst, src []byte) ([]byte, error) {
	buf := bytes.NewBuffer(dst[:0])
	zw, err := zlib.NewWriterLevel(buf, zlib.BestCompression)
	if err != nil {
		return nil, tiffio.WrapErr(tiffio.KindCompressionError, err, "deflate init")
	}
	if _, err := zw.Write(src); err != nil {
		return nil, tiffio.WrapErr(tiffio.KindCompressionError, err, "deflate")
	}
	if err := zw.Close(); err != nil {
		return nil, tiffio.WrapErr(tiffio.KindCompressionError, err, "deflate close")
	}
	return buf.Bytes(), nil
}

func (c deflateCodec) Decompress(dst, src []byte) (int, error) {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return 0, tiffio.WrapErr(tiffio.KindCompressionError, err, "inflate init")
	}
	defer zr.Close()
	n, err := io.ReadFull(zr, dst)
	if err != nil && err != io.ErrUnexpectedEOF {
		return n, tiffio.WrapErr(tiffio.KindCompressionError, err, "inflate")
	}
	if n < len(dst) {
		return n, tiffio.Errf(tiffio.KindCompressionError, "deflate stream ends after %d of %d bytes", n, len(dst))
	}
	return n, nil
}
