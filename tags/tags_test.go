// SPDX-License-Identifier: MIT

package tags

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/arnevogt/tiffio"
)

func TestCatalogueSorted(t *testing.T) {
	for name, cat := range map[string]Catalogue{
		"BaselineStripped":    BaselineStripped,
		"BaselineTiled":       BaselineTiled,
		"BaselineStrippedBig": BaselineStrippedBig,
		"BaselineTiledBig":    BaselineTiledBig,
		"Extended":            Extended,
	} {
		for i := 1; i < len(cat); i++ {
			if cat[i].Code <= cat[i-1].Code {
				t.Errorf("%s: codes not strictly ascending at %d (%v, %v)", name, i, cat[i-1].Code, cat[i].Code)
			}
		}
	}
}

func TestCatalogueRejectsDuplicates(t *testing.T) {
	_, err := NewCatalogue(
		scalarUint(tiffio.ImageWidth, long, false),
		scalarUint(tiffio.ImageWidth, short, false),
	)
	if !tiffio.IsKind(err, tiffio.KindInvalidTag) {
		t.Errorf("got %v, want InvalidTag", err)
	}
}

func TestDescriptorValidation(t *testing.T) {
	for _, tc := range []struct {
		name string
		desc Descriptor
		ok   bool
	}{
		{"plain", scalarUint(tiffio.ImageWidth, long, false, short), true},
		{"rationalWithAlt", Descriptor{Code: tiffio.XResolution, Type: rational, Kind: KindRational, Count: 1, Alt: []tiffio.DataType{long}}, false},
		{"stringOnShort", Descriptor{Code: tiffio.Software, Type: short, Kind: KindASCII}, false},
		{"narrowingAlt", Descriptor{Code: tiffio.ImageWidth, Type: short, Kind: KindUint, Count: 1, Alt: []tiffio.DataType{long}}, false},
		{"signedAltForUint", Descriptor{Code: tiffio.ImageWidth, Type: long, Kind: KindUint, Count: 1, Alt: []tiffio.DataType{tiffio.SSHORT}}, false},
		{"unknownType", Descriptor{Code: tiffio.ImageWidth, Type: tiffio.DataType(99), Kind: KindUint, Count: 1}, false},
		{"ifdPointerAlt", vectorUint(tiffio.SubIFDs, long8, true, short, long, tiffio.IFD, tiffio.IFD8), true},
	} {
		err := tc.desc.Validate()
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: validation should have failed", tc.name)
		}
	}
}

func TestRecordAccess(t *testing.T) {
	rec := NewRecord(BaselineStripped)
	v, found := rec.Value(tiffio.ImageWidth)
	if !found {
		t.Fatal("ImageWidth slot missing")
	}
	if v.Present() {
		t.Error("fresh slot should be absent")
	}
	if err := v.SetUints(640); err != nil {
		t.Fatal(err)
	}
	if !v.Present() || v.Uint() != 640 {
		t.Errorf("got %v", v.Uints())
	}
	if _, found := rec.Value(tiffio.TagCode(0x9999)); found {
		t.Error("unknown code should not resolve")
	}
	if rec.PresentCount() != 1 {
		t.Errorf("PresentCount: got %d, want 1", rec.PresentCount())
	}
}

func TestValueTypeChecks(t *testing.T) {
	rec := NewRecord(BaselineStripped)
	v, _ := rec.Value(tiffio.ImageWidth)
	if err := v.SetASCII("nope"); !tiffio.IsKind(err, tiffio.KindInvalidTagType) {
		t.Errorf("got %v, want InvalidTagType", err)
	}
	if err := v.SetUints(1, 2); !tiffio.IsKind(err, tiffio.KindInvalidTag) {
		t.Errorf("scalar with 2 elements: got %v, want InvalidTag", err)
	}
}

func TestExternalSize(t *testing.T) {
	rec := NewRecord(BaselineStripped)
	offsets, _ := rec.Value(tiffio.StripOffsets)
	if err := offsets.SetUints(8); err != nil {
		t.Fatal(err)
	}
	// One Long fits the classic inline slot.
	if got := offsets.ExternalSize(tiffio.Classic); got != 0 {
		t.Errorf("inline value: got external size %d", got)
	}
	if err := offsets.SetUints(8, 4104, 8200); err != nil {
		t.Fatal(err)
	}
	if got := offsets.ExternalSize(tiffio.Classic); got != 12 {
		t.Errorf("got external size %d, want 12", got)
	}
	if got := offsets.ExternalSize(tiffio.Big); got != 12 {
		t.Errorf("BigTIFF: got external size %d, want 12", got)
	}
	if got := rec.ExternalSize(tiffio.Classic); got != 12 {
		t.Errorf("record total: got %d, want 12", got)
	}
}

func TestASCIIExternalAlignment(t *testing.T) {
	rec := NewRecord(Extended)
	software, _ := rec.Value(tiffio.Software)
	if err := software.SetASCII("writer"); err != nil {
		t.Fatal(err)
	}
	// "writer" + NUL = 7 bytes, padded to 8 in the external block.
	if got := software.ExternalSize(tiffio.Classic); got != 7 {
		t.Errorf("got %d, want 7", got)
	}
	if got := rec.ExternalSize(tiffio.Classic); got != 8 {
		t.Errorf("aligned total: got %d, want 8", got)
	}
}

func TestEncodeData(t *testing.T) {
	rec := NewRecord(BaselineStripped)
	width, _ := rec.Value(tiffio.ImageWidth)
	if err := width.SetUints(640); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, width.WireSize())
	width.EncodeData(buf, binary.LittleEndian)
	if !bytes.Equal(buf, []byte{0x80, 0x02, 0, 0}) {
		t.Errorf("got % x", buf)
	}
	width.EncodeData(buf, binary.BigEndian)
	if !bytes.Equal(buf, []byte{0, 0, 0x02, 0x80}) {
		t.Errorf("got % x", buf)
	}
}

func TestEncodeASCIIList(t *testing.T) {
	rec := NewRecord(Extended)
	inks, _ := rec.Value(tiffio.InkNames)
	if err := inks.SetASCIIList("cyan", "magenta"); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, inks.WireSize())
	inks.EncodeData(buf, binary.LittleEndian)
	if !bytes.Equal(buf, []byte("cyan\x00magenta\x00")) {
		t.Errorf("got %q", buf)
	}
}

func TestMerge(t *testing.T) {
	extra := MustCatalogue(
		Descriptor{Code: tiffio.TagCode(0x9000), Type: long, Kind: KindUint, Count: 1, Optional: true},
	)
	merged, err := BaselineStripped.Merge(extra)
	if err != nil {
		t.Fatal(err)
	}
	if _, found := merged.Find(tiffio.TagCode(0x9000)); !found {
		t.Error("merged catalogue should contain the extra tag")
	}
	if _, found := merged.Find(tiffio.ImageWidth); !found {
		t.Error("merged catalogue should keep the original tags")
	}
}
