package chunk

import (
	"context"
	"math"
	"testing"

	"audiotrace/models"
	"audiotrace/shazam"
)

// fakeRecognizeStore matches every hash it's asked about to a single
// song, letting this test exercise the full chunk→fingerprint→match→
// align→reduce pipeline without depending on the exact hashes a real
// recording would produce.
type fakeRecognizeStore struct {
	song models.Song
}

func (f *fakeRecognizeStore) Lookup(ctx context.Context, hashes []string, filter []uint32) ([]models.HashRow, error) {
	rows := make([]models.HashRow, 0, len(hashes))
	for _, h := range hashes {
		rows = append(rows, models.HashRow{Hash: h, SongID: f.song.ID, OffsetMs: 0})
	}
	return rows, nil
}

func (f *fakeRecognizeStore) GetSong(ctx context.Context, id uint32) (models.Song, bool, error) {
	if id == f.song.ID {
		return f.song, true, nil
	}
	return models.Song{}, false, nil
}

func (f *fakeRecognizeStore) InsertSong(ctx context.Context, song models.Song) (uint32, error) {
	return 0, nil
}
func (f *fakeRecognizeStore) SetSongFingerprinted(ctx context.Context, songID uint32, totalHashes int) error {
	return nil
}
func (f *fakeRecognizeStore) InsertHashes(ctx context.Context, songID uint32, fingerprints map[string]models.Couple) error {
	return nil
}
func (f *fakeRecognizeStore) SetSongFraming(ctx context.Context, songID uint32, sampleRate, windowSize, hopSize, dspRatio int) error {
	return nil
}
func (f *fakeRecognizeStore) DeleteSongs(ctx context.Context, ids []uint32) error { return nil }
func (f *fakeRecognizeStore) GetSongByKey(ctx context.Context, key string) (models.Song, bool, error) {
	return models.Song{}, false, nil
}
func (f *fakeRecognizeStore) ListSongs(ctx context.Context) ([]models.Song, error) { return nil, nil }
func (f *fakeRecognizeStore) CountSongs(ctx context.Context) (int, error)          { return 0, nil }
func (f *fakeRecognizeStore) CountHashes(ctx context.Context) (int, error)         { return 0, nil }
func (f *fakeRecognizeStore) DeleteCollection(ctx context.Context, name string) error {
	return nil
}
func (f *fakeRecognizeStore) BeforeFork(ctx context.Context) error { return nil }
func (f *fakeRecognizeStore) AfterFork(ctx context.Context) error  { return nil }
func (f *fakeRecognizeStore) Close() error                        { return nil }

func TestRecognizeEndToEndProducesTimelineForMatchingFraming(t *testing.T) {
	const sampleRate = 8000

	cfg := shazam.FingerprintConfig{
		DSPRatio:       1,
		WindowSize:     64,
		HopSize:        32,
		MaxFreqHz:      3500,
		TargetZoneSize: 3,
		FreqBands:      [][2]int{{0, 8}, {8, 16}, {16, 32}},
	}

	store := &fakeRecognizeStore{song: models.Song{
		ID:            7,
		Key:           "k7",
		Title:         "Song",
		Artist:        "Artist",
		Fingerprinted: true,
		TotalHashes:   50,
		SampleRate:    sampleRate,
		WindowSize:    cfg.WindowSize,
		HopSize:       cfg.HopSize,
		DSPRatio:      cfg.DSPRatio,
	}}

	samples := make([]float64, 2*sampleRate)
	for i := range samples {
		samples[i] = math.Sin(2*math.Pi*440*float64(i)/sampleRate) + 0.3*math.Sin(2*math.Pi*900*float64(i)/sampleRate)
	}

	opts := RecognizeOptions{
		Chunk:  ChunkConfig{ChunkDurationSec: 1, OverlapSec: 0, Workers: 2},
		Align:  DefaultAlignConfig(),
		Reduce: DefaultReduceConfig(),
	}

	timeline, err := Recognize(context.Background(), samples, sampleRate, store, cfg, opts)
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if len(timeline) == 0 {
		t.Fatalf("expected at least one detection, got none")
	}

	for _, d := range timeline {
		if d.SongID != 7 || d.SongTitle != "Song" || d.SongArtist != "Artist" {
			t.Errorf("expected every detection to resolve to the matching song, got %+v", d)
		}
	}
}

func TestRecognizeRejectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &fakeRecognizeStore{song: models.Song{ID: 1}}
	cfg := shazam.DefaultMusicConfig()

	_, err := Recognize(ctx, []float64{1, 2, 3}, 8000, store, cfg, RecognizeOptions{
		Chunk: DefaultChunkConfig(1),
	})
	if err == nil {
		t.Fatalf("expected Recognize to reject an already-cancelled context")
	}
}
