// SPDX-License-Identifier: MIT

package codec

import (
	"encoding/binary"

	"github.com/arnevogt/tiffio"
	"github.com/arnevogt/tiffio/predictor"
)

// Encoder runs the per-chunk encode pipeline: predictor, endian
// conversion to the wire order, compression. Its scratch buffers are
// reused across chunks, so an Encoder serves one goroutine; give each
// worker its own.
type Encoder struct {
	codec     Codec
	pred      tiffio.PredictorScheme
	wireOrder binary.ByteOrder
	scratch   []byte
}

// NewEncoder returns an encoder for a compression scheme, predictor
// and wire byte order. Unknown schemes fail with
// UnsupportedCompression.
func NewEncoder(scheme tiffio.CompressionScheme, pred tiffio.PredictorScheme, wireOrder binary.ByteOrder) (*Encoder, error) {
	c, err := Lookup(scheme)
	if err != nil {
		return nil, err
	}
	return &Encoder{codec: c, pred: pred, wireOrder: wireOrder}, nil
}

// EncodeChunk transforms one chunk buffer in place (predictor, then
// byte order) and compresses it. The returned slice aliases the
// encoder's scratch buffer and is valid until the next call; the
// caller records its length as the chunk's compressed size.
func (e *Encoder) EncodeChunk(chunk []byte, p predictor.Params) ([]byte, error) {
	if err := predictor.Encode(e.pred, chunk, p); err != nil {
		return nil, err
	}
	if e.wireOrder != p.Order {
		tiffio.ByteSwap(chunk, p.ElemSize)
	}
	out, err := e.codec.Compress(e.scratch, chunk)
	if err != nil {
		return nil, err
	}
	e.scratch = out[:0]
	return out, nil
}

// Clear releases the scratch buffers.
func (e *Encoder) Clear() {
	e.scratch = nil
}

// Decoder runs the per-chunk decode pipeline: decompression, endian
// conversion from the wire order, inverse predictor. Like Encoder it
// is single-goroutine.
type Decoder struct {
	codec     Codec
	pred      tiffio.PredictorScheme
	wireOrder binary.ByteOrder
}

// NewDecoder returns a decoder for a compression scheme, predictor
// and wire byte order.
func NewDecoder(scheme tiffio.CompressionScheme, pred tiffio.PredictorScheme, wireOrder binary.ByteOrder) (*Decoder, error) {
	c, err := Lookup(scheme)
	if err != nil {
		return nil, err
	}
	return &Decoder{codec: c, pred: pred, wireOrder: wireOrder}, nil
}

// DecodeChunk expands src into dst, whose length is the expected
// uncompressed size, then undoes byte order and predictor in place.
// dst may be the caller's final destination when the backend supports
// in-place readback.
func (d *Decoder) DecodeChunk(dst, src []byte, p predictor.Params) error {
	if _, err := d.codec.Decompress(dst, src); err != nil {
		return err
	}
	if d.wireOrder != p.Order {
		tiffio.ByteSwap(dst, p.ElemSize)
	}
	return predictor.Decode(d.pred, dst, p)
}
