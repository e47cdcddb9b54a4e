package db

import (
	"context"
	"strings"
	"testing"

	"audiotrace/errs"
	"audiotrace/models"

	"github.com/mdobak/go-xerrors"
)

const (
	canonicalHashA = "0000000000000000AAAA" // 20 uppercase hex chars
	canonicalHashB = "0000000000000000BBBB"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := newSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	id, err := store.InsertSong(ctx, models.Song{Key: "k1", Title: "Song", Artist: "Artist"})
	if err != nil {
		t.Fatalf("InsertSong failed: %v", err)
	}

	hashes := map[string]models.Couple{
		canonicalHashA: {AnchorTimeMs: 1000, SongID: id},
		canonicalHashB: {AnchorTimeMs: 2000, SongID: id},
	}
	if err := store.InsertHashes(ctx, id, hashes); err != nil {
		t.Fatalf("InsertHashes failed: %v", err)
	}
	if err := store.SetSongFingerprinted(ctx, id, len(hashes)); err != nil {
		t.Fatalf("SetSongFingerprinted failed: %v", err)
	}

	song, ok, err := store.GetSongByKey(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("GetSongByKey failed: ok=%v err=%v", ok, err)
	}
	if !song.Fingerprinted || song.TotalHashes != 2 {
		t.Errorf("expected song marked fingerprinted with 2 hashes, got %+v", song)
	}

	rows, err := store.Lookup(ctx, []string{canonicalHashA, strings.Repeat("F", 20)}, nil)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Hash != canonicalHashA || rows[0].SongID != id {
		t.Fatalf("expected exactly one matching row for %s, got %+v", canonicalHashA, rows)
	}

	if err := store.DeleteSongs(ctx, []uint32{id}); err != nil {
		t.Fatalf("DeleteSongs failed: %v", err)
	}
	if _, ok, _ := store.GetSong(ctx, id); ok {
		t.Errorf("expected song to be gone after DeleteSongs")
	}
}

func TestSQLiteStoreRejectsNonCanonicalHash(t *testing.T) {
	store, err := newSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if _, err := store.Lookup(ctx, []string{"too-short"}, nil); err == nil || !xerrors.Is(err, errs.KindBadHash) {
		t.Errorf("expected Lookup to reject a non-canonical hash with KindBadHash, got %v", err)
	}

	bad := map[string]models.Couple{"not-hex-and-wrong-width": {AnchorTimeMs: 0, SongID: 1}}
	if err := store.InsertHashes(ctx, 1, bad); err == nil || !xerrors.Is(err, errs.KindBadHash) {
		t.Errorf("expected InsertHashes to reject a non-canonical hash with KindBadHash, got %v", err)
	}
}
