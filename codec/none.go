// SPDX-License-Identifier: MIT

package codec

import "github.com/arnevogt/tiffio"

// noneCodec is compression scheme 1: a plain copy.
type noneCodec struct{}

func init() {
	Register(noneCodec{})
}

func (noneCodec) Scheme() tiffio.CompressionScheme {
	return tiffio.CompressionNone
}

func (noneCodec) Compress(dst, src []byte) ([]byte, error) {
	return append(dst[:0], src...), nil
}

func (noneCodec) Decompress(dst, src []byte) (int, error) {
	if len(src) < len(dst) {
		return 0, tiffio.Errf(tiffio.KindCompressionError, "uncompressed chunk of %d bytes, expected %d", len(src), len(dst))
	}
	return copy(dst, src), nil
}
