// Tool for printing the structure of TIFF and BigTIFF files: header,
// directory chain and tags. It does not print chunk statistics.
//
// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/arnevogt/tiffio"
	"github.com/arnevogt/tiffio/ifd"
	"github.com/arnevogt/tiffio/storage"
	"github.com/arnevogt/tiffio/tags"
)

var printer = message.NewPrinter(language.English)

func main() {
	cataloguePath := flag.String("catalogue", "", "path to a YAML file with extra tag descriptors")
	showXMP := flag.Bool("xmp", false, "pretty-print the XMP packet if present")
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: tiffinfo [-catalogue extra.yaml] [-xmp] file.tif...")
		os.Exit(2)
	}

	cat := tags.Extended
	if *cataloguePath != "" {
		extra, err := loadCatalogue(*cataloguePath)
		if err != nil {
			log.Fatal(err)
		}
		if cat, err = cat.Merge(extra); err != nil {
			log.Fatal(err)
		}
	}

	for _, path := range flag.Args() {
		if err := printFile(path, cat, *showXMP); err != nil {
			log.Fatal(err)
		}
	}
}

// catalogueFile is the YAML schema for user-supplied tag tables.
type catalogueFile struct {
	Tags []struct {
		Code     uint16 `yaml:"code"`
		Name     string `yaml:"name"`
		Type     string `yaml:"type"`
		Count    int    `yaml:"count"`
		Optional bool   `yaml:"optional"`
	} `yaml:"tags"`
}

var typesByName = map[string]tiffio.DataType{
	"byte": tiffio.BYTE, "ascii": tiffio.ASCII, "short": tiffio.SHORT,
	"long": tiffio.LONG, "rational": tiffio.RATIONAL, "sbyte": tiffio.SBYTE,
	"undefined": tiffio.UNDEFINED, "sshort": tiffio.SSHORT, "slong": tiffio.SLONG,
	"srational": tiffio.SRATIONAL, "float": tiffio.FLOAT, "double": tiffio.DOUBLE,
	"long8": tiffio.LONG8, "slong8": tiffio.SLONG8,
}

func loadCatalogue(path string) (tags.Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file catalogueFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var descs []tags.Descriptor
	for _, t := range file.Tags {
		typ, found := typesByName[strings.ToLower(t.Type)]
		if !found {
			return nil, fmt.Errorf("%s: unknown type %q for tag %d", path, t.Type, t.Code)
		}
		kind := tags.KindUint
		switch {
		case typ == tiffio.ASCII:
			kind = tags.KindASCII
		case typ == tiffio.UNDEFINED:
			kind = tags.KindBytes
		case typ == tiffio.RATIONAL:
			kind = tags.KindRational
		case typ == tiffio.SRATIONAL:
			kind = tags.KindSRational
		case typ.IsFloat():
			kind = tags.KindFloat
		case typ.IsSigned():
			kind = tags.KindInt
		}
		descs = append(descs, tags.Descriptor{
			Code: tiffio.TagCode(t.Code), Type: typ, Kind: kind,
			Count: t.Count, Optional: t.Optional,
		})
	}
	return tags.NewCatalogue(descs...)
}

func printFile(path string, cat tags.Catalogue, showXMP bool) error {
	src, err := storage.OpenFile(path)
	if err != nil {
		return err
	}
	defer src.Close()

	h, err := ifd.ReadHeader(src)
	if err != nil {
		return err
	}
	size, err := src.Size()
	if err != nil {
		return err
	}
	endian := "little-endian"
	if h.Order.String() == "BigEndian" {
		endian = "big-endian"
	}
	printer.Printf("%s: %v, %s, %d bytes\n", path, h.Format, endian, size)

	dirs, err := ifd.WalkIFDs(src, h)
	if err != nil {
		return err
	}
	for i, d := range dirs {
		printer.Printf("  directory %d at offset %d, %d entries", i, d.Offset, len(d.Entries))
		if !d.Sorted() {
			fmt.Print(" (unsorted)")
		}
		fmt.Println()
		for _, e := range d.Entries {
			printEntry(src, h, e, cat)
			if showXMP && e.Code == tiffio.XMP {
				printXMP(src, h, e, cat)
			}
		}
	}
	return nil
}

func printEntry(src storage.Reader, h tiffio.Header, e tiffio.Entry, cat tags.Catalogue) {
	where := "inline"
	if !e.IsInline(h.Format) {
		where = printer.Sprintf("offset %d", e.Offset(h.Format, h.Order))
	}
	desc, known := cat.Find(e.Code)
	if !known {
		printer.Printf("    %v  %v[%d]  %s\n", e.Code, e.Type, e.Count, where)
		return
	}
	rec := tags.NewRecord(tags.Catalogue{*desc})
	v := rec.At(0)
	if err := ifd.ParseValue(src, h, e, v); err != nil {
		printer.Printf("    %v  %v[%d]  %s  <%v>\n", e.Code, e.Type, e.Count, where, err)
		return
	}
	printer.Printf("    %v  %v[%d]  %s  %s\n", e.Code, e.Type, e.Count, where, formatValue(v))
}

func formatValue(v *tags.Value) string {
	d := v.Descriptor()
	switch d.Kind {
	case tags.KindASCII:
		return fmt.Sprintf("%q", v.ASCII())
	case tags.KindASCIIList:
		return fmt.Sprintf("%q", v.ASCIIList())
	case tags.KindBytes:
		if len(v.Bytes()) > 16 {
			return printer.Sprintf("%d bytes", len(v.Bytes()))
		}
		return fmt.Sprintf("% x", v.Bytes())
	case tags.KindRational:
		return fmt.Sprint(v.Rationals())
	case tags.KindSRational:
		return fmt.Sprint(v.SRationals())
	case tags.KindFloat:
		return fmt.Sprint(v.Floats())
	case tags.KindInt:
		return fmt.Sprint(v.Ints())
	default:
		vals := v.Uints()
		if len(vals) > 8 {
			return printer.Sprintf("%v... (%d values)", vals[:8], len(vals))
		}
		return fmt.Sprint(vals)
	}
}

func printXMP(src storage.Reader, h tiffio.Header, e tiffio.Entry, cat tags.Catalogue) {
	desc, found := cat.Find(tiffio.XMP)
	if !found {
		return
	}
	rec := tags.NewRecord(tags.Catalogue{*desc})
	v := rec.At(0)
	if err := ifd.ParseValue(src, h, e, v); err != nil {
		return
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(v.Bytes()); err != nil {
		log.Printf("XMP packet does not parse as XML: %v", err)
		return
	}
	doc.Indent(2)
	text, err := doc.WriteToString()
	if err != nil {
		return
	}
	fmt.Println(text)
}
