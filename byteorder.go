// SPDX-License-Identifier: MIT

package tiffio

import "encoding/binary"

// ByteSwap reverses the byte order of every element in buf in place.
// The buffer length must be a multiple of elemSize; elemSize must be
// 1, 2, 3, 4 or 8 (3 covers 24-bit float samples). Swapping twice
// restores the original bytes.
func ByteSwap(buf []byte, elemSize int) {
	switch elemSize {
	case 1:
	case 2:
		for i := 0; i+2 <= len(buf); i += 2 {
			buf[i], buf[i+1] = buf[i+1], buf[i]
		}
	case 3:
		for i := 0; i+3 <= len(buf); i += 3 {
			buf[i], buf[i+2] = buf[i+2], buf[i]
		}
	case 4:
		for i := 0; i+4 <= len(buf); i += 4 {
			buf[i], buf[i+3] = buf[i+3], buf[i]
			buf[i+1], buf[i+2] = buf[i+2], buf[i+1]
		}
	case 8:
		for i := 0; i+8 <= len(buf); i += 8 {
			buf[i], buf[i+7] = buf[i+7], buf[i]
			buf[i+1], buf[i+6] = buf[i+6], buf[i+1]
			buf[i+2], buf[i+5] = buf[i+5], buf[i+2]
			buf[i+3], buf[i+4] = buf[i+4], buf[i+3]
		}
	default:
		panic("tiffio: ByteSwap element size must be 1, 2, 3, 4 or 8")
	}
}

// ConvertOrder rewrites buf from one byte order to another, swapping
// exactly when the orders differ.
func ConvertOrder(buf []byte, elemSize int, from, to binary.ByteOrder) {
	if from != to {
		ByteSwap(buf, elemSize)
	}
}

// ReadUint reads an unsigned integer of the given byte width.
func ReadUint(buf []byte, size int, order binary.ByteOrder) uint64 {
	switch size {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(order.Uint16(buf))
	case 4:
		return uint64(order.Uint32(buf))
	case 8:
		return order.Uint64(buf)
	}
	panic("tiffio: ReadUint size must be 1, 2, 4 or 8")
}

// PutUint writes an unsigned integer of the given byte width.
func PutUint(buf []byte, size int, order binary.ByteOrder, v uint64) {
	switch size {
	case 1:
		buf[0] = byte(v)
	case 2:
		order.PutUint16(buf, uint16(v))
	case 4:
		order.PutUint32(buf, uint32(v))
	case 8:
		order.PutUint64(buf, v)
	default:
		panic("tiffio: PutUint size must be 1, 2, 4 or 8")
	}
}

// ReadUint24 reads a 3-byte unsigned integer, used only for Float24
// sample data.
func ReadUint24(buf []byte, order binary.ByteOrder) uint32 {
	if order == binary.LittleEndian {
		return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16
	}
	return uint32(buf[2]) | uint32(buf[1])<<8 | uint32(buf[0])<<16
}

// PutUint24 writes a 3-byte unsigned integer.
func PutUint24(buf []byte, order binary.ByteOrder, v uint32) {
	if order == binary.LittleEndian {
		buf[0] = byte(v)
		buf[1] = byte(v >> 8)
		buf[2] = byte(v >> 16)
		return
	}
	buf[0] = byte(v >> 16)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v)
}
