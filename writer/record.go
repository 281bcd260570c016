// SPDX-License-Identifier: MIT

package writer

import (
	"github.com/arnevogt/tiffio"
	"github.com/arnevogt/tiffio/tags"
	"github.com/arnevogt/tiffio/tile"
)

// writerExtras are the tags the writer derives beyond the baseline
// layout set.
var writerExtras = tags.MustCatalogue(
	tags.Descriptor{Code: tiffio.PhotometricInterpretation, Type: tiffio.SHORT, Kind: tags.KindUint, Count: 1, Optional: true},
	tags.Descriptor{Code: tiffio.PlanarConfiguration, Type: tiffio.SHORT, Kind: tags.KindUint, Count: 1, Optional: true},
	tags.Descriptor{Code: tiffio.ImageDepth, Type: tiffio.LONG, Kind: tags.KindUint, Count: 1, Optional: true},
	tags.Descriptor{Code: tiffio.TileDepth, Type: tiffio.LONG, Kind: tags.KindUint, Count: 1, Optional: true},
)

// forbiddenUserTags are always computed by the writer; a
// user-supplied value is an error, not a conflict to resolve.
var forbiddenUserTags = map[tiffio.TagCode]bool{
	tiffio.StripOffsets:    true,
	tiffio.StripByteCounts: true,
	tiffio.TileOffsets:     true,
	tiffio.TileByteCounts:  true,
}

// buildRecord derives the mandatory tags for a page and folds in the
// user's tag record. User values for computed tags must equal the
// computed value; chunk offset and byte-count tags are rejected
// outright; everything else is copied through.
func (w *Writer) buildRecord(opts ImageOptions, grid tile.Grid) (*tags.Record, error) {
	cat := tags.Baseline(w.format, opts.Tiled)
	cat, err := cat.Merge(writerExtras)
	if err != nil {
		return nil, err
	}
	if opts.UserTags != nil {
		if cat, err = cat.Merge(opts.UserTags.Catalogue()); err != nil {
			return nil, err
		}
	}
	rec := tags.NewRecord(cat)
	s := opts.Shape

	computed := make(map[tiffio.TagCode]bool)
	set := func(code tiffio.TagCode, vals ...uint64) error {
		computed[code] = true
		return setUints(rec, code, vals...)
	}

	if err := set(tiffio.ImageWidth, uint64(s.Width)); err != nil {
		return nil, err
	}
	if err := set(tiffio.ImageLength, uint64(s.Height)); err != nil {
		return nil, err
	}
	bits := make([]uint64, s.SamplesPerPixel)
	for i := range bits {
		bits[i] = uint64(s.BitsPerSample)
	}
	if err := set(tiffio.BitsPerSample, bits...); err != nil {
		return nil, err
	}
	if err := set(tiffio.Compression, uint64(opts.Compression)); err != nil {
		return nil, err
	}
	if err := set(tiffio.SamplesPerPixel, uint64(s.SamplesPerPixel)); err != nil {
		return nil, err
	}
	if err := set(tiffio.PlanarConfiguration, uint64(s.Planar)); err != nil {
		return nil, err
	}
	if err := set(tiffio.SampleFormatTag, uint64(s.Format)); err != nil {
		return nil, err
	}
	if opts.Predictor != 0 && opts.Predictor != tiffio.PredictorNone {
		if err := set(tiffio.Predictor, uint64(opts.Predictor)); err != nil {
			return nil, err
		}
	} else {
		computed[tiffio.Predictor] = true // user may not smuggle one in
	}
	if s.Depth > 1 {
		if err := set(tiffio.ImageDepth, uint64(s.Depth)); err != nil {
			return nil, err
		}
	}

	if opts.Tiled {
		if err := set(tiffio.TileWidth, uint64(grid.TileWidth)); err != nil {
			return nil, err
		}
		if err := set(tiffio.TileLength, uint64(grid.TileLength)); err != nil {
			return nil, err
		}
		if s.Depth > 1 {
			if err := set(tiffio.TileDepth, uint64(grid.TileDepth)); err != nil {
				return nil, err
			}
		}
		computed[tiffio.RowsPerStrip] = true // not valid on tiled pages
	} else {
		if err := set(tiffio.RowsPerStrip, uint64(grid.TileLength)); err != nil {
			return nil, err
		}
		computed[tiffio.TileWidth] = true
		computed[tiffio.TileLength] = true
		computed[tiffio.TileDepth] = true
	}

	// Placeholder chunk arrays: the counts size the directory before
	// the real offsets exist.
	zeros := make([]uint64, grid.Count())
	if opts.Tiled {
		if err := set(tiffio.TileOffsets, zeros...); err != nil {
			return nil, err
		}
		if err := set(tiffio.TileByteCounts, zeros...); err != nil {
			return nil, err
		}
	} else {
		if err := set(tiffio.StripOffsets, zeros...); err != nil {
			return nil, err
		}
		if err := set(tiffio.StripByteCounts, zeros...); err != nil {
			return nil, err
		}
	}

	// Photometric interpretation defaults from the sample count and
	// may be overridden by the user.
	photometric := uint64(tiffio.PhotometricBlackIsZero)
	if s.SamplesPerPixel >= 3 {
		photometric = uint64(tiffio.PhotometricRGB)
	}
	if opts.UserTags != nil {
		if uv, found := opts.UserTags.Value(tiffio.PhotometricInterpretation); found && uv.Present() {
			photometric = uv.Uint()
		}
	}
	if err := setUints(rec, tiffio.PhotometricInterpretation, photometric); err != nil {
		return nil, err
	}
	computed[tiffio.PhotometricInterpretation] = true // merged above

	if opts.UserTags != nil {
		if err := mergeUserTags(rec, opts.UserTags, computed); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func mergeUserTags(rec *tags.Record, user *tags.Record, computed map[tiffio.TagCode]bool) error {
	for i := 0; i < user.Len(); i++ {
		uv := user.At(i)
		if !uv.Present() {
			continue
		}
		code := uv.Descriptor().Code
		if forbiddenUserTags[code] {
			return tiffio.Errf(tiffio.KindInvalidTag, "tag %v is computed by the writer and may not be supplied", code)
		}
		slot, found := rec.Value(code)
		if !found {
			return tiffio.Errf(tiffio.KindInvalidTag, "tag %v missing from the writer catalogue", code)
		}
		if code == tiffio.PhotometricInterpretation {
			continue // already folded in as an override
		}
		if computed[code] {
			if !slot.Present() {
				if code == tiffio.Predictor && uv.UintOr(0) == uint64(tiffio.PredictorNone) {
					continue // an explicit "none" matches the omitted tag
				}
				// Otherwise a computed-but-unset tag (tile tags on
				// stripped pages and vice versa) conflicts.
				return tiffio.Errf(tiffio.KindInvalidTag, "tag %v conflicts with the page layout", code)
			}
			if !slot.EqualValue(uv) {
				return tiffio.Errf(tiffio.KindInvalidTag, "user tag %v disagrees with the computed value", code)
			}
			continue
		}
		if err := slot.CopyFrom(uv); err != nil {
			return err
		}
	}
	return nil
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
