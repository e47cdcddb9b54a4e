package chunk

import (
	"context"
	"testing"

	"audiotrace/models"
)

// fakeStore implements db.Store with everything but Lookup stubbed
// out, and records how many times Lookup was called so tests can
// assert the coalesced (one-call) shape.
type fakeStore struct {
	rows        []models.HashRow
	lookupCalls int
}

func (f *fakeStore) Lookup(ctx context.Context, hashes []string, filter []uint32) ([]models.HashRow, error) {
	f.lookupCalls++
	wanted := map[string]bool{}
	for _, h := range hashes {
		wanted[h] = true
	}
	var out []models.HashRow
	for _, r := range f.rows {
		if wanted[r.Hash] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertSong(ctx context.Context, song models.Song) (uint32, error) { return 0, nil }
func (f *fakeStore) SetSongFingerprinted(ctx context.Context, songID uint32, totalHashes int) error {
	return nil
}
func (f *fakeStore) InsertHashes(ctx context.Context, songID uint32, fingerprints map[string]models.Couple) error {
	return nil
}
func (f *fakeStore) SetSongFraming(ctx context.Context, songID uint32, sampleRate, windowSize, hopSize, dspRatio int) error {
	return nil
}
func (f *fakeStore) DeleteSongs(ctx context.Context, ids []uint32) error { return nil }
func (f *fakeStore) GetSong(ctx context.Context, id uint32) (models.Song, bool, error) {
	return models.Song{}, false, nil
}
func (f *fakeStore) GetSongByKey(ctx context.Context, key string) (models.Song, bool, error) {
	return models.Song{}, false, nil
}
func (f *fakeStore) ListSongs(ctx context.Context) ([]models.Song, error) { return nil, nil }
func (f *fakeStore) CountSongs(ctx context.Context) (int, error)          { return 0, nil }
func (f *fakeStore) CountHashes(ctx context.Context) (int, error)        { return 0, nil }
func (f *fakeStore) DeleteCollection(ctx context.Context, name string) error { return nil }
func (f *fakeStore) BeforeFork(ctx context.Context) error                 { return nil }
func (f *fakeStore) AfterFork(ctx context.Context) error                  { return nil }
func (f *fakeStore) Close() error                                        { return nil }

func TestMatcherCoalescesIntoOneLookupCall(t *testing.T) {
	store := &fakeStore{
		rows: []models.HashRow{
			{Hash: "AAAA", SongID: 1, OffsetMs: 100},
			{Hash: "BBBB", SongID: 1, OffsetMs: 200},
		},
	}

	chunks := []ChunkHashes{
		{ChunkIndex: 0, Hashes: map[string]models.Couple{"AAAA": {AnchorTimeMs: 0}}},
		{ChunkIndex: 1, Hashes: map[string]models.Couple{"BBBB": {AnchorTimeMs: 0}}},
	}

	out, err := Matcher{}.Lookup(context.Background(), store, chunks, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.lookupCalls != 1 {
		t.Errorf("expected exactly one coalesced Lookup call, got %d", store.lookupCalls)
	}

	if len(out) != 2 || len(out[0].Rows) != 1 || out[0].Rows[0].Hash != "AAAA" {
		t.Fatalf("expected chunk 0 to get its own AAAA row, got %+v", out)
	}
	if len(out[1].Rows) != 1 || out[1].Rows[0].Hash != "BBBB" {
		t.Fatalf("expected chunk 1 to get its own BBBB row, got %+v", out)
	}
}
