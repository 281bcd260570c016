// SPDX-License-Identifier: MIT

package codec

import "github.com/arnevogt/tiffio"

// packBitsCodec is compression scheme 32773, the byte-oriented
// run-length scheme from the TIFF baseline: a control byte n is
// followed by n+1 literal bytes when 0 ≤ n ≤ 127, or repeats the next
// byte 1-n times when -127 ≤ n ≤ -1; -128 is a no-op.
type packBitsCodec struct{}

func init() {
	Register(packBitsCodec{})
}

func (packBitsCodec) Scheme() tiffio.CompressionScheme {
	return tiffio.CompressionPackBits
}

func (packBitsCodec) Compress(dst, src []byte) ([]byte, error) {
	out := dst[:0]
	i := 0
	for i < len(src) {
		// Measure the run starting here.
		run := 1
		for i+run < len(src) && run < 128 && src[i+run] == src[i] {
			run++
		}
		if run >= 2 {
			out = append(out, byte(1-run), src[i])
			i += run
			continue
		}
		// Literal stretch: up to the next run of 3+ or 128 bytes.
		start := i
		i++
		for i < len(src) && i-start < 128 {
			if i+2 < len(src) && src[i] == src[i+1] && src[i] == src[i+2] {
				break
			}
			i++
		}
		out = append(out, byte(i-start-1))
		out = append(out, src[start:i]...)
	}
	return out, nil
}

func (packBitsCodec) Decompress(dst, src []byte) (int, error) {
	pos := 0
	i := 0
	for i < len(src) && pos < len(dst) {
		n := int8(src[i])
		i++
		switch {
		case n >= 0:
			count := int(n) + 1
			if i+count > len(src) || pos+count > len(dst) {
				return pos, tiffio.Errf(tiffio.KindCompressionError, "packbits literal run overflows")
			}
			copy(dst[pos:], src[i:i+count])
			i += count
			pos += count
		case n == -128:
			// no-op
		default:
			count := 1 - int(n)
			if i >= len(src) || pos+count > len(dst) {
				return pos, tiffio.Errf(tiffio.KindCompressionError, "packbits repeat run overflows")
			}
			b := src[i]
			i++
			for j := 0; j < count; j++ {
				dst[pos] = b
				pos++
			}
		}
	}
	if pos < len(dst) {
		return pos, tiffio.Errf(tiffio.KindCompressionError, "packbits stream ends after %d of %d bytes", pos, len(dst))
	}
	return pos, nil
}
