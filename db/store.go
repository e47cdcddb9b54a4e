// Package db implements the hash index / song store behind a narrow
// Store interface, with two selectable backends: MongoDB (the
// primary, document-oriented backend) and an embedded SQLite database
// for local or offline use. Callers talk to the store only through
// Store and the legacy Client wrapper below; neither backend leaks
// driver types across the package boundary.
package db

import (
	"context"
	"fmt"

	"audiotrace/errs"
	"audiotrace/models"
	"audiotrace/shazam"
	"audiotrace/utils"
)

// lookupBatchSize returns LOOKUP_BATCH_SIZE (default 15000): the most
// hashes either backend will place in a single store query before
// splitting Lookup into multiple round trips and concatenating the
// results.
func lookupBatchSize() int {
	return utils.GetEnvInt("LOOKUP_BATCH_SIZE", 15000)
}

// insertBatchSize returns INSERT_BATCH_SIZE (default 1000): the most
// fingerprint rows either backend will write per batch during
// InsertHashes.
func insertBatchSize() int {
	return utils.GetEnvInt("INSERT_BATCH_SIZE", 1000)
}

// isCanonicalHash reports whether hash is a well-formed fingerprint
// token: exactly shazam.FingerprintReduction uppercase hex characters.
func isCanonicalHash(hash string) bool {
	if len(hash) != shazam.FingerprintReduction {
		return false
	}
	for _, r := range hash {
		isDigit := r >= '0' && r <= '9'
		isUpperHex := r >= 'A' && r <= 'F'
		if !isDigit && !isUpperHex {
			return false
		}
	}
	return true
}

// validateHash rejects a single non-canonical hash token with
// errs.BadHash; used by InsertHashes, which checks every map key this
// way before writing any row.
func validateHash(hash string) error {
	if !isCanonicalHash(hash) {
		return errs.BadHash(hash, fmt.Errorf("want %d uppercase hex characters", shazam.FingerprintReduction))
	}
	return nil
}

// validateHashes rejects the first non-canonical hash token it finds
// with errs.BadHash, so a malformed hash from a caller (or corrupted
// query state) fails at the store boundary instead of silently
// matching nothing or colliding with an unrelated token.
func validateHashes(hashes []string) error {
	for _, h := range hashes {
		if !isCanonicalHash(h) {
			return errs.BadHash(h, fmt.Errorf("want %d uppercase hex characters", shazam.FingerprintReduction))
		}
	}
	return nil
}

// Store is the narrow interface the chunked recognition pipeline and
// the ingestion path use to reach persistence. It is deliberately
// small: a batched Lookup for the matcher, and straightforward CRUD
// for ingestion and administration.
type Store interface {
	// InsertSong registers a new library entry and returns its ID.
	InsertSong(ctx context.Context, song models.Song) (uint32, error)
	// SetSongFingerprinted marks a song as fully fingerprinted and
	// records its hash count, once ingestion completes successfully.
	SetSongFingerprinted(ctx context.Context, songID uint32, totalHashes int) error
	// InsertHashes batches fingerprint inserts for one song.
	InsertHashes(ctx context.Context, songID uint32, fingerprints map[string]models.Couple) error
	// SetSongFraming records the DSP framing constants a song was
	// fingerprinted with, so a later query fingerprinted under
	// different constants can be detected (see chunk.FramingAgrees).
	SetSongFraming(ctx context.Context, songID uint32, sampleRate, windowSize, hopSize, dspRatio int) error
	// DeleteSongs removes songs and all their hashes, best-effort,
	// cascading per spec's delete_songs_by_id behavior.
	DeleteSongs(ctx context.Context, ids []uint32) error

	// Lookup returns every (hash, song, offset) row whose hash is in
	// hashes, optionally restricted to songFilter (nil/empty means
	// search the whole library). It is the one call the batched matcher
	// makes; backends split hashes into LOOKUP_BATCH_SIZE-sized queries
	// and concatenate the results.
	Lookup(ctx context.Context, hashes []string, songFilter []uint32) ([]models.HashRow, error)

	GetSong(ctx context.Context, id uint32) (models.Song, bool, error)
	GetSongByKey(ctx context.Context, key string) (models.Song, bool, error)
	ListSongs(ctx context.Context) ([]models.Song, error)
	CountSongs(ctx context.Context) (int, error)
	CountHashes(ctx context.Context) (int, error)
	DeleteCollection(ctx context.Context, name string) error

	// BeforeFork/AfterFork are no-ops for both backends: this repo
	// parallelizes recognition with goroutines, never forked worker
	// processes, so there is no connection state to quiesce or
	// reopen around a fork boundary. Kept to preserve the spec's
	// store lifecycle hooks for a deployment that does fork.
	BeforeFork(ctx context.Context) error
	AfterFork(ctx context.Context) error

	Close() error
}

// Client is the package's public entrypoint, wrapping whichever Store
// backend DB_BACKEND selects and adding the convenience methods the
// CLI and HTTP handlers were written against.
type Client struct {
	Store
}

// NewDBClient opens the backend selected by the DB_BACKEND env var
// ("mongo", the default, or "sqlite") using MONGO_URI/MONGO_DB or
// SQLITE_PATH respectively.
func NewDBClient() (*Client, error) {
	backend := utils.GetEnv("DB_BACKEND", "mongo")

	switch backend {
	case "sqlite":
		path := utils.GetEnv("SQLITE_PATH", "songs.db")
		store, err := newSQLiteStore(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %v", err)
		}
		return &Client{Store: store}, nil

	case "mongo":
		uri := utils.GetEnv("MONGO_URI", "mongodb://localhost:27017")
		dbName := utils.GetEnv("MONGO_DB", "audiotrace")
		store, err := newMongoStore(uri, dbName)
		if err != nil {
			return nil, fmt.Errorf("failed to open mongo store: %v", err)
		}
		return &Client{Store: store}, nil

	default:
		return nil, fmt.Errorf("unknown DB_BACKEND %q (want \"mongo\" or \"sqlite\")", backend)
	}
}

// RegisterSong inserts a new song entry keyed by (title, artist) and
// returns its generated ID, refusing to insert a duplicate key.
func (c *Client) RegisterSong(title, artist, fileSHA1 string) (uint32, error) {
	ctx := context.Background()
	key := utils.GenerateSongKey(title, artist)

	if existing, ok, err := c.Store.GetSongByKey(ctx, key); err != nil {
		return 0, err
	} else if ok {
		return existing.ID, fmt.Errorf("song '%s' by '%s' already registered", title, artist)
	}

	return c.InsertSong(ctx, models.Song{
		Key:      key,
		Title:    title,
		Artist:   artist,
		FileSHA1: fileSHA1,
	})
}

// StoreFingerprints writes every (hash -> couple) entry, grouping by
// song ID since a single fingerprint map always belongs to one song in
// this code path, then marks the song fingerprinted.
func (c *Client) StoreFingerprints(fingerprints map[string]models.Couple) error {
	ctx := context.Background()

	bySong := map[uint32]map[string]models.Couple{}
	for hash, couple := range fingerprints {
		m, ok := bySong[couple.SongID]
		if !ok {
			m = map[string]models.Couple{}
			bySong[couple.SongID] = m
		}
		m[hash] = couple
	}

	for songID, hashes := range bySong {
		if err := c.InsertHashes(ctx, songID, hashes); err != nil {
			return err
		}
		if err := c.SetSongFingerprinted(ctx, songID, len(hashes)); err != nil {
			return err
		}
	}

	return nil
}

// DeleteSongByID removes a single song and its hashes.
func (c *Client) DeleteSongByID(id uint32) error {
	return c.DeleteSongs(context.Background(), []uint32{id})
}

// GetSongByKey is the legacy, context-free form of Store.GetSongByKey.
func (c *Client) GetSongByKey(key string) (models.Song, bool, error) {
	return c.Store.GetSongByKey(context.Background(), key)
}

// TotalSongs returns the number of library entries.
func (c *Client) TotalSongs() (int, error) {
	return c.CountSongs(context.Background())
}

// TotalFingerprints returns the total number of stored hashes across
// all songs.
func (c *Client) TotalFingerprints() (int, error) {
	return c.CountHashes(context.Background())
}

// GetAllSongs lists every library entry.
func (c *Client) GetAllSongs() ([]models.Song, error) {
	return c.ListSongs(context.Background())
}

// DeleteCollection is the legacy, context-free form of
// Store.DeleteCollection.
func (c *Client) DeleteCollection(name string) error {
	return c.Store.DeleteCollection(context.Background(), name)
}

// SetSongFraming is the legacy, context-free form of
// Store.SetSongFraming.
func (c *Client) SetSongFraming(songID uint32, sampleRate, windowSize, hopSize, dspRatio int) error {
	return c.Store.SetSongFraming(context.Background(), songID, sampleRate, windowSize, hopSize, dspRatio)
}
