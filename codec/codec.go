// SPDX-License-Identifier: MIT

// Package codec holds the pluggable compression surface of the TIFF
// pipeline and the per-chunk encoder/decoder that chains predictor,
// endian conversion and compression. Compressors operate on byte
// ranges and know nothing about endianness or sample geometry.
//
// Shipped codecs: none (1), LZW (5, decompression only), Deflate
// (8 and the legacy 32946), PackBits (32773), LZMA (34925), and
// Zstandard (34926 and 50000).
package codec

import (
	"sync"

	"github.com/arnevogt/tiffio"
)

// A Compressor turns a byte range into its compressed form. dst is a
// reusable scratch slice that may be nil; the returned slice aliases
// it when capacity suffices.
type Compressor interface {
	Scheme() tiffio.CompressionScheme
	Compress(dst, src []byte) ([]byte, error)
}

// A Decompressor expands src into dst, whose length is the expected
// output size, and returns the bytes written.
type Decompressor interface {
	Scheme() tiffio.CompressionScheme
	Decompress(dst, src []byte) (int, error)
}

// A Codec is both directions of one compression scheme. Codecs must
// be safe for concurrent use; per-call state lives on the stack or in
// the dst scratch the caller passes.
type Codec interface {
	Compressor
	Decompressor
}

var (
	registryMu sync.RWMutex
	registry   = make(map[tiffio.CompressionScheme]Codec)
)

// Register makes a codec available to the pipeline under its scheme,
// replacing any previous registration.
func Register(c Codec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[c.Scheme()] = c
}

// Lookup returns the codec for a scheme, or an
// UnsupportedCompression error naming it.
func Lookup(scheme tiffio.CompressionScheme) (Codec, error) {
	registryMu.RLock()
	c, found := registry[scheme]
	registryMu.RUnlock()
	if !found {
		return nil, tiffio.Errf(tiffio.KindUnsupportedCompression, "no codec for compression %d", scheme)
	}
	return c, nil
}

// Supported reports whether a codec is registered for the scheme.
func Supported(scheme tiffio.CompressionScheme) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, found := registry[scheme]
	return found
}
