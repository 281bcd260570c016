// SPDX-License-Identifier: MIT

package tiffio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestParseHeaderClassicLittle(t *testing.T) {
	h, err := ParseHeader([]byte{'I', 'I', 42, 0, 8, 0, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	if h.Order != binary.LittleEndian || h.Format != Classic || h.FirstIFD != 8 {
		t.Errorf("got %+v", h)
	}
}

func TestParseHeaderClassicBig(t *testing.T) {
	h, err := ParseHeader([]byte{'M', 'M', 0, 42, 0, 0, 0, 8})
	if err != nil {
		t.Fatal(err)
	}
	if h.Order != binary.BigEndian || h.Format != Classic || h.FirstIFD != 8 {
		t.Errorf("got %+v", h)
	}
}

func TestParseHeaderBigTIFF(t *testing.T) {
	buf := []byte{'I', 'I', 43, 0, 8, 0, 0, 0, 16, 0, 0, 0, 0, 0, 0, 0}
	h, err := ParseHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	if h.Format != Big || h.FirstIFD != 16 {
		t.Errorf("got %+v", h)
	}
}

func TestParseHeaderErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		buf  []byte
		kind Kind
	}{
		{"short", []byte{'I', 'I', 42}, KindUnexpectedEOF},
		{"badMagic", []byte{'X', 'X', 42, 0, 8, 0, 0, 0}, KindInvalidHeader},
		{"badVersion", []byte{'I', 'I', 44, 0, 8, 0, 0, 0}, KindInvalidHeader},
		{"badOffsetSize", []byte{'I', 'I', 43, 0, 4, 0, 0, 0, 16, 0, 0, 0, 0, 0, 0, 0}, KindInvalidHeader},
		{"badReserved", []byte{'I', 'I', 43, 0, 8, 0, 1, 0, 16, 0, 0, 0, 0, 0, 0, 0}, KindInvalidHeader},
		{"shortBig", []byte{'I', 'I', 43, 0, 8, 0, 0, 0}, KindUnexpectedEOF},
	} {
		if _, err := ParseHeader(tc.buf); !IsKind(err, tc.kind) {
			t.Errorf("%s: got %v, want kind %v", tc.name, err, tc.kind)
		}
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	for _, h := range []Header{
		{binary.LittleEndian, Classic, 8},
		{binary.BigEndian, Classic, 1234},
		{binary.LittleEndian, Big, 16},
		{binary.BigEndian, Big, 1 << 40},
	} {
		buf := make([]byte, h.Format.HeaderSize())
		h.EncodeHeader(buf)
		got, err := ParseHeader(buf)
		if err != nil {
			t.Fatal(err)
		}
		if got != h {
			t.Errorf("got %+v, want %+v", got, h)
		}
	}
}

func TestEntryRoundTrip(t *testing.T) {
	for _, f := range []Format{Classic, Big} {
		for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
			e := Entry{Code: ImageWidth, Type: SHORT, Count: 1}
			order.PutUint16(e.Inline[:], 640)
			buf := make([]byte, f.EntrySize())
			e.EncodeEntry(buf, f, order)
			got := ParseEntry(buf, f, order)
			if got != e {
				t.Errorf("%v %v: got %+v, want %+v", f, order, got, e)
			}
		}
	}
}

func TestEntryInline(t *testing.T) {
	e := Entry{Code: ImageWidth, Type: SHORT, Count: 2}
	if !e.IsInline(Classic) || !e.IsInline(Big) {
		t.Error("4-byte value should be inline in both formats")
	}
	e.Count = 3
	if e.IsInline(Classic) {
		t.Error("6-byte value should be external in classic format")
	}
	if !e.IsInline(Big) {
		t.Error("6-byte value should be inline in BigTIFF")
	}
}

func TestByteSwapInvolution(t *testing.T) {
	for _, size := range []int{1, 2, 3, 4, 8} {
		buf := make([]byte, 24)
		for i := range buf {
			buf[i] = byte(i * 7)
		}
		orig := append([]byte(nil), buf...)
		ByteSwap(buf, size)
		if size > 1 && bytes.Equal(buf, orig) {
			t.Errorf("size %d: swap is a no-op", size)
		}
		ByteSwap(buf, size)
		if !bytes.Equal(buf, orig) {
			t.Errorf("size %d: double swap is not identity", size)
		}
	}
}

func TestConvertOrder(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	ConvertOrder(buf, 2, binary.LittleEndian, binary.LittleEndian)
	if !bytes.Equal(buf, []byte{1, 2, 3, 4}) {
		t.Error("same-order conversion must not touch the bytes")
	}
	ConvertOrder(buf, 2, binary.LittleEndian, binary.BigEndian)
	if !bytes.Equal(buf, []byte{2, 1, 4, 3}) {
		t.Errorf("got %v", buf)
	}
}

func TestTypeSizes(t *testing.T) {
	want := map[DataType]uint32{
		BYTE: 1, ASCII: 1, SHORT: 2, LONG: 4, RATIONAL: 8,
		SBYTE: 1, UNDEFINED: 1, SSHORT: 2, SLONG: 4, SRATIONAL: 8,
		FLOAT: 4, DOUBLE: 8, IFD: 4, LONG8: 8, SLONG8: 8, IFD8: 8,
	}
	for typ, size := range want {
		if got := typ.Size(); got != size {
			t.Errorf("%v: got size %d, want %d", typ, got, size)
		}
	}
	if got := DataType(99).Size(); got != 0 {
		t.Errorf("unknown type: got size %d, want 0", got)
	}
}

func TestFloat16RoundTrip(t *testing.T) {
	for _, v := range []float32{0, 1, -1, 0.5, 2048, -0.25, 65504} {
		f := Float16FromFloat32(v)
		if got := f.Float32(); got != v {
			t.Errorf("%g: round-tripped to %g", v, got)
		}
	}
}

func TestFloat16Limits(t *testing.T) {
	if got := Float16FromFloat32(1e30).Float32(); got <= 65504 {
		t.Errorf("overflow should give +inf, got %g", got)
	}
	// Denormal half: 2^-24 is the smallest positive value.
	tiny := float32(5.9604645e-08)
	if got := Float16FromFloat32(tiny).Float32(); got != tiny {
		t.Errorf("smallest denormal: got %g, want %g", got, tiny)
	}
}

func TestFloat24RoundTrip(t *testing.T) {
	for _, v := range []float32{0, 1, -1, 0.5, 1024, -3.25} {
		f := Float24FromFloat32(v)
		if got := f.Float32(); got != v {
			t.Errorf("%g: round-tripped to %g", v, got)
		}
	}
}

func TestUint24(t *testing.T) {
	buf := make([]byte, 3)
	PutUint24(buf, binary.LittleEndian, 0x123456)
	if ReadUint24(buf, binary.LittleEndian) != 0x123456 {
		t.Error("little-endian round trip failed")
	}
	if !bytes.Equal(buf, []byte{0x56, 0x34, 0x12}) {
		t.Errorf("got % x", buf)
	}
	PutUint24(buf, binary.BigEndian, 0x123456)
	if ReadUint24(buf, binary.BigEndian) != 0x123456 {
		t.Error("big-endian round trip failed")
	}
	if !bytes.Equal(buf, []byte{0x12, 0x34, 0x56}) {
		t.Errorf("got % x", buf)
	}
}
