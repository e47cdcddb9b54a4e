package chunk

import (
	"sort"

	"audiotrace/models"
)

// Aligner turns one chunk's matched rows into per-song offset
// alignments via an offset-difference histogram: for each matched
// hash, diff = (the row's stored anchor time in the library) - (that
// hash's local anchor time within the chunk). The song/diff pair with
// the most support is the chunk's best alignment for that song.
//
// Per Open Question 1, this follows dejavu's "batched variant"
// (return_matches_chunk): offset-diffs are deduplicated per (hash,
// song) with a set before they're counted into the histogram, so a
// single hash that happens to collide with a song at several offsets
// cannot cast more than one vote per distinct offset. Hashes that
// genuinely recur at the same relative offset across many anchors
// still accumulate votes normally.
type Aligner struct{}

// Align produces at most one Alignment per song that has at least
// cfg.MinHashesMatched deduplicated supporting hashes, ranked and
// capped to cfg.TopN as described on AlignConfig. OffsetSec is the
// peak offset-diff in seconds (library anchor minus chunk-local
// anchor); Recognize projects it onto the query timeline. songs maps
// song ID to its stored metadata, used for FingerprintedHashes.
// Aligned is always set true here; the framing-constant check (Open
// Question 2) is made afterwards by Recognize via FramingAgrees.
func (Aligner) Align(ch ChunkHashes, rows ChunkRows, songs map[uint32]models.Song, cfg AlignConfig) []Alignment {
	if len(rows.Rows) == 0 {
		return nil
	}

	byHash := map[string][]models.HashRow{}
	for _, r := range rows.Rows {
		byHash[r.Hash] = append(byHash[r.Hash], r)
	}

	// histogram[songID][offsetDiffMs] = vote count
	histogram := map[uint32]map[int64]int{}
	// matchedHashes[songID] = distinct hashes that matched at all, pre-dedup
	matchedHashes := map[uint32]map[string]struct{}{}

	for hash, hashRows := range byHash {
		couple, ok := ch.Hashes[hash]
		if !ok {
			continue
		}
		localMs := int64(couple.AnchorTimeMs)

		perSongDiffs := map[uint32]map[int64]struct{}{}
		for _, r := range hashRows {
			diffs, ok := perSongDiffs[r.SongID]
			if !ok {
				diffs = map[int64]struct{}{}
				perSongDiffs[r.SongID] = diffs
			}
			diffs[int64(r.OffsetMs)-localMs] = struct{}{}

			mh, ok := matchedHashes[r.SongID]
			if !ok {
				mh = map[string]struct{}{}
				matchedHashes[r.SongID] = mh
			}
			mh[hash] = struct{}{}
		}

		for songID, diffs := range perSongDiffs {
			h, ok := histogram[songID]
			if !ok {
				h = map[int64]int{}
				histogram[songID] = h
			}
			for diff := range diffs {
				h[diff]++
			}
		}
	}

	alignments := make([]Alignment, 0, len(histogram))
	for songID, h := range histogram {
		var peakDiff int64
		var peakCount int
		for diff, count := range h {
			if count > peakCount {
				peakCount = count
				peakDiff = diff
			}
		}

		if peakCount < cfg.MinHashesMatched {
			continue
		}

		song := songs[songID]

		alignments = append(alignments, Alignment{
			ChunkIndex:          ch.ChunkIndex,
			StartSec:            ch.StartSec,
			SongID:              songID,
			OffsetSec:           float64(peakDiff) / 1000.0,
			HashesMatched:       len(matchedHashes[songID]),
			DedupHashes:         peakCount,
			FingerprintedHashes: song.TotalHashes,
			Aligned:             true,
		})
	}

	// Rank by peak_count (DedupHashes) descending, tie-break by higher
	// HashesMatched, then by lower SongID, and keep only the top
	// cfg.TopN candidates for this chunk.
	sort.Slice(alignments, func(i, j int) bool {
		a, b := alignments[i], alignments[j]
		if a.DedupHashes != b.DedupHashes {
			return a.DedupHashes > b.DedupHashes
		}
		if a.HashesMatched != b.HashesMatched {
			return a.HashesMatched > b.HashesMatched
		}
		return a.SongID < b.SongID
	})

	if cfg.TopN > 0 && len(alignments) > cfg.TopN {
		alignments = alignments[:cfg.TopN]
	}

	return alignments
}

// FramingAgrees reports whether a song's stored DSP framing constants
// match the constants a query was fingerprinted with (Open Question
// 2). Recognize calls this after Align and, on a mismatch, clears
// Aligned on that song's alignments so OffsetSec is not trusted while
// the hash-count-based confidence still stands.
func FramingAgrees(song models.Song, queryCfg FramingConstants) bool {
	if song.WindowSize == 0 && song.HopSize == 0 && song.SampleRate == 0 && song.DSPRatio == 0 {
		// no framing recorded for this song (e.g. pre-existing library
		// entry); give it the benefit of the doubt.
		return true
	}
	return song.WindowSize == queryCfg.WindowSize &&
		song.HopSize == queryCfg.HopSize &&
		song.SampleRate == queryCfg.SampleRate &&
		song.DSPRatio == queryCfg.DSPRatio
}

// FramingConstants is the subset of shazam.FingerprintConfig (plus
// the sample rate it was run against) relevant to the framing-
// agreement check, kept separate from shazam.FingerprintConfig so this
// package doesn't need to import shazam just for a comparison.
type FramingConstants struct {
	WindowSize int
	HopSize    int
	SampleRate int
	DSPRatio   int
}
