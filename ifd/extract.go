// SPDX-License-Identifier: MIT

package ifd

import (
	"sort"

	"github.com/arnevogt/tiffio"
	"github.com/arnevogt/tiffio/storage"
	"github.com/arnevogt/tiffio/tags"
)

// Extract projects the raw entries onto the typed record with a
// two-pointer merge over both ascending-code sequences, O(n+m).
// Unknown file tags are skipped; a missing required descriptor fails
// with InvalidTag; missing optional descriptors come back absent.
// Entries must be sorted; on unsorted input tags may be silently
// missed, which is what ExtractRelaxed guards against.
func Extract(r storage.Reader, h tiffio.Header, entries []tiffio.Entry, rec *tags.Record) error {
	i := 0
	for j := 0; j < rec.Len(); j++ {
		v := rec.At(j)
		d := v.Descriptor()
		for i < len(entries) && entries[i].Code < d.Code {
			i++ // tag not in the record: skip, never fail
		}
		if i < len(entries) && entries[i].Code == d.Code {
			if err := ParseValue(r, h, entries[i], v); err != nil {
				return err
			}
			i++
			continue
		}
		if !d.Optional {
			return tiffio.Errf(tiffio.KindInvalidTag, "required tag %v missing from IFD", d.Code)
		}
		v.Clear()
	}
	return nil
}

// ExtractRelaxed tolerates unsorted IFDs: when the entries are out of
// order it sorts a local copy before running the strict merge.
func ExtractRelaxed(r storage.Reader, h tiffio.Header, entries []tiffio.Entry, rec *tags.Record) error {
	if !sortedEntries(entries) {
		local := make([]tiffio.Entry, len(entries))
		copy(local, entries)
		sort.Slice(local, func(i, j int) bool { return local[i].Code < local[j].Code })
		entries = local
	}
	return Extract(r, h, entries, rec)
}

func sortedEntries(entries []tiffio.Entry) bool {
	for i := 1; i < len(entries); i++ {
		if entries[i].Code < entries[i-1].Code {
			return false
		}
	}
	return true
}
