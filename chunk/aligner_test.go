package chunk

import (
	"testing"

	"audiotrace/models"
)

func TestAlignerPicksPeakOffset(t *testing.T) {
	ch := ChunkHashes{
		ChunkIndex: 0,
		StartSec:   0,
		Hashes: map[string]models.Couple{
			"AAAA": {AnchorTimeMs: 1000},
			"BBBB": {AnchorTimeMs: 2000},
			"CCCC": {AnchorTimeMs: 3000},
		},
	}

	// all three hashes agree on songID 7 at a diff of 500ms; one stray
	// match for songID 9 should lose.
	rows := ChunkRows{
		ChunkIndex: 0,
		StartSec:   0,
		Rows: []models.HashRow{
			{Hash: "AAAA", SongID: 7, OffsetMs: 1500},
			{Hash: "BBBB", SongID: 7, OffsetMs: 2500},
			{Hash: "CCCC", SongID: 7, OffsetMs: 3500},
			{Hash: "AAAA", SongID: 9, OffsetMs: 9999},
		},
	}

	songs := map[uint32]models.Song{
		7: {ID: 7, TotalHashes: 100},
		9: {ID: 9, TotalHashes: 100},
	}

	alignments := Aligner{}.Align(ch, rows, songs, DefaultAlignConfig())

	var got7 *Alignment
	for i := range alignments {
		if alignments[i].SongID == 7 {
			got7 = &alignments[i]
		}
	}
	if got7 == nil {
		t.Fatalf("expected an alignment for song 7, got %+v", alignments)
	}
	if got7.DedupHashes != 3 {
		t.Errorf("expected 3 deduplicated supporting hashes for song 7, got %d", got7.DedupHashes)
	}
	if got7.OffsetSec != 0.5 {
		t.Errorf("expected peak offset of 0.5s, got %v", got7.OffsetSec)
	}
}

func TestAlignerDedupesRepeatedOffsetPerHash(t *testing.T) {
	ch := ChunkHashes{
		Hashes: map[string]models.Couple{
			"AAAA": {AnchorTimeMs: 0},
		},
	}

	// the same hash matches song 1 at the same diff twice (e.g. a
	// duplicate row) -- this must not inflate the vote count.
	rows := ChunkRows{
		Rows: []models.HashRow{
			{Hash: "AAAA", SongID: 1, OffsetMs: 100},
			{Hash: "AAAA", SongID: 1, OffsetMs: 100},
		},
	}

	alignments := Aligner{}.Align(ch, rows, map[uint32]models.Song{1: {ID: 1}}, DefaultAlignConfig())
	if len(alignments) != 1 || alignments[0].DedupHashes != 1 {
		t.Fatalf("expected a single deduplicated vote, got %+v", alignments)
	}
}

func TestAlignerRanksAndTruncatesToTopN(t *testing.T) {
	ch := ChunkHashes{
		Hashes: map[string]models.Couple{
			"AAAA": {AnchorTimeMs: 0},
			"BBBB": {AnchorTimeMs: 0},
			"CCCC": {AnchorTimeMs: 0},
			"DDDD": {AnchorTimeMs: 0},
		},
	}

	// song 1: 1 vote, song 2: 2 votes, song 3: 3 votes, song 4: 1 vote
	// (same vote count as song 1, but a lower SongID should win the tie).
	rows := ChunkRows{
		Rows: []models.HashRow{
			{Hash: "AAAA", SongID: 1, OffsetMs: 0},
			{Hash: "AAAA", SongID: 2, OffsetMs: 0},
			{Hash: "BBBB", SongID: 2, OffsetMs: 0},
			{Hash: "AAAA", SongID: 3, OffsetMs: 0},
			{Hash: "BBBB", SongID: 3, OffsetMs: 0},
			{Hash: "CCCC", SongID: 3, OffsetMs: 0},
			{Hash: "DDDD", SongID: 4, OffsetMs: 0},
		},
	}

	songs := map[uint32]models.Song{
		1: {ID: 1, TotalHashes: 10},
		2: {ID: 2, TotalHashes: 10},
		3: {ID: 3, TotalHashes: 10},
		4: {ID: 4, TotalHashes: 10},
	}

	cfg := AlignConfig{MinHashesMatched: 1, TopN: 2}
	alignments := Aligner{}.Align(ch, rows, songs, cfg)

	if len(alignments) != 2 {
		t.Fatalf("expected exactly TopN=2 alignments, got %d: %+v", len(alignments), alignments)
	}
	if alignments[0].SongID != 3 || alignments[0].DedupHashes != 3 {
		t.Errorf("expected song 3 (3 votes) ranked first, got %+v", alignments[0])
	}
	if alignments[1].SongID != 2 || alignments[1].DedupHashes != 2 {
		t.Errorf("expected song 2 (2 votes) ranked second, got %+v", alignments[1])
	}
}
