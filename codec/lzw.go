// SPDX-License-Identifier: MIT

package codec

import (
	"bytes"
	"io"

	"golang.org/x/image/tiff/lzw"

	"github.com/arnevogt/tiffio"
)

// lzwCodec is compression scheme 5: the TIFF variant of LZW with
// MSB-first bit order and the early code-width change. Only
// decompression is available; x/image/tiff/lzw ships no writer for
// the variant and the plain compress/lzw stream is not compatible.
type lzwCodec struct{}

func init() {
	Register(lzwCodec{})
}

func (lzwCodec) Scheme() tiffio.CompressionScheme {
	return tiffio.CompressionLZW
}

func (lzwCodec) Compress(dst, src []byte) ([]byte, error) {
	return nil, tiffio.Errf(tiffio.KindUnsupportedFeature, "LZW compression is not supported, only decompression")
}

func (lzwCodec) Decompress(dst, src []byte) (int, error) {
	lr := lzw.NewReader(bytes.NewReader(src), lzw.MSB, 8)
	defer lr.Close()
	n, err := io.ReadFull(lr, dst)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return n, tiffio.WrapErr(tiffio.KindCompressionError, err, "lzw")
	}
	if n < len(dst) {
		return n, tiffio.Errf(tiffio.KindCompressionError, "lzw stream ends after %d of %d bytes", n, len(dst))
	}
	return n, nil
}
