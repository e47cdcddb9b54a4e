package db

import (
	"context"
	"database/sql"
	"fmt"

	"audiotrace/models"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteStore is the embedded Store backend, for local or offline
// use where standing up a MongoDB instance is overkill. It mirrors
// the same two-table shape as the mongo backend.
type sqliteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS songs (
	id INTEGER PRIMARY KEY,
	key TEXT UNIQUE,
	title TEXT,
	artist TEXT,
	file_sha1 TEXT,
	total_hashes INTEGER,
	duration_ms INTEGER,
	fingerprinted INTEGER DEFAULT 0,
	sample_rate INTEGER,
	window_size INTEGER,
	hop_size INTEGER,
	dsp_ratio INTEGER
);
CREATE TABLE IF NOT EXISTS fingerprints (
	hash TEXT NOT NULL,
	song_id INTEGER NOT NULL,
	offset_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fingerprints_hash ON fingerprints(hash);
`

func newSQLiteStore(path string) (*sqliteStore, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("sqlite ping failed: %v", err)
	}
	if _, err := conn.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("sqlite schema init failed: %v", err)
	}
	return &sqliteStore{db: conn}, nil
}

func (s *sqliteStore) InsertSong(ctx context.Context, song models.Song) (uint32, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO songs (key, title, artist, file_sha1, duration_ms, sample_rate, window_size, hop_size, dsp_ratio)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		song.Key, song.Title, song.Artist, song.FileSHA1, song.DurationMs,
		song.SampleRate, song.WindowSize, song.HopSize, song.DSPRatio)
	if err != nil {
		return 0, fmt.Errorf("store unavailable: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint32(id), nil
}

func (s *sqliteStore) SetSongFraming(ctx context.Context, songID uint32, sampleRate, windowSize, hopSize, dspRatio int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE songs SET sample_rate = ?, window_size = ?, hop_size = ?, dsp_ratio = ? WHERE id = ?`,
		sampleRate, windowSize, hopSize, dspRatio, songID)
	return err
}

func (s *sqliteStore) SetSongFingerprinted(ctx context.Context, songID uint32, totalHashes int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE songs SET fingerprinted = 1, total_hashes = ? WHERE id = ?`, totalHashes, songID)
	return err
}

// InsertHashes commits in INSERT_BATCH_SIZE-sized transactions rather
// than one transaction for the whole fingerprint map, bounding how
// much write-ahead log a single ingestion run accumulates.
func (s *sqliteStore) InsertHashes(ctx context.Context, songID uint32, fingerprints map[string]models.Couple) error {
	if len(fingerprints) == 0 {
		return nil
	}
	for hash := range fingerprints {
		if err := validateHash(hash); err != nil {
			return err
		}
	}

	batchSize := insertBatchSize()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store unavailable: %v", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO fingerprints (hash, song_id, offset_ms) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}

	n := 0
	for hash, couple := range fingerprints {
		if _, err := stmt.ExecContext(ctx, hash, songID, couple.AnchorTimeMs); err != nil {
			stmt.Close()
			tx.Rollback()
			return err
		}
		n++

		if n%batchSize == 0 {
			stmt.Close()
			if err := tx.Commit(); err != nil {
				return err
			}
			tx, err = s.db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("store unavailable: %v", err)
			}
			stmt, err = tx.PrepareContext(ctx, `INSERT INTO fingerprints (hash, song_id, offset_ms) VALUES (?, ?, ?)`)
			if err != nil {
				tx.Rollback()
				return err
			}
		}
	}

	stmt.Close()
	return tx.Commit()
}

func (s *sqliteStore) DeleteSongs(ctx context.Context, ids []uint32) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM fingerprints WHERE song_id = ?`, id); err != nil {
			tx.Rollback()
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM songs WHERE id = ?`, id); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Lookup issues one query per LOOKUP_BATCH_SIZE-sized slice of hashes
// and concatenates the results, matching the spec's batching policy
// (avoids a single IN (...) clause unbounded in size).
func (s *sqliteStore) Lookup(ctx context.Context, hashes []string, songFilter []uint32) ([]models.HashRow, error) {
	if len(hashes) == 0 {
		return nil, nil
	}
	if err := validateHashes(hashes); err != nil {
		return nil, err
	}

	batchSize := lookupBatchSize()
	var out []models.HashRow

	for start := 0; start < len(hashes); start += batchSize {
		end := start + batchSize
		if end > len(hashes) {
			end = len(hashes)
		}
		batch := hashes[start:end]

		query := `SELECT hash, song_id, offset_ms FROM fingerprints WHERE hash IN (` + placeholders(len(batch)) + `)`
		args := make([]interface{}, 0, len(batch)+len(songFilter))
		for _, h := range batch {
			args = append(args, h)
		}
		if len(songFilter) > 0 {
			query += ` AND song_id IN (` + placeholders(len(songFilter)) + `)`
			for _, id := range songFilter {
				args = append(args, id)
			}
		}

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("store unavailable during lookup: %v", err)
		}

		for rows.Next() {
			var row models.HashRow
			if err := rows.Scan(&row.Hash, &row.SongID, &row.OffsetMs); err != nil {
				rows.Close()
				return nil, err
			}
			out = append(out, row)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

func placeholders(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			s += ","
		}
		s += "?"
	}
	return s
}

func (s *sqliteStore) scanSong(row interface {
	Scan(dest ...interface{}) error
}) (models.Song, error) {
	var song models.Song
	var fingerprinted int
	err := row.Scan(&song.ID, &song.Key, &song.Title, &song.Artist, &song.FileSHA1,
		&song.TotalHashes, &song.DurationMs, &fingerprinted,
		&song.SampleRate, &song.WindowSize, &song.HopSize, &song.DSPRatio)
	song.Fingerprinted = fingerprinted != 0
	return song, err
}

const songColumns = `id, key, title, artist, file_sha1, total_hashes, duration_ms, fingerprinted, sample_rate, window_size, hop_size, dsp_ratio`

func (s *sqliteStore) GetSong(ctx context.Context, id uint32) (models.Song, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+songColumns+` FROM songs WHERE id = ?`, id)
	song, err := s.scanSong(row)
	if err == sql.ErrNoRows {
		return models.Song{}, false, nil
	}
	if err != nil {
		return models.Song{}, false, err
	}
	return song, true, nil
}

func (s *sqliteStore) GetSongByKey(ctx context.Context, key string) (models.Song, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+songColumns+` FROM songs WHERE key = ?`, key)
	song, err := s.scanSong(row)
	if err == sql.ErrNoRows {
		return models.Song{}, false, nil
	}
	if err != nil {
		return models.Song{}, false, err
	}
	return song, true, nil
}

func (s *sqliteStore) ListSongs(ctx context.Context) ([]models.Song, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+songColumns+` FROM songs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var songs []models.Song
	for rows.Next() {
		song, err := s.scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}

func (s *sqliteStore) CountSongs(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM songs`).Scan(&n)
	return n, err
}

func (s *sqliteStore) CountHashes(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fingerprints`).Scan(&n)
	return n, err
}

func (s *sqliteStore) DeleteCollection(ctx context.Context, name string) error {
	table := "songs"
	if name == "fingerprints" {
		table = "fingerprints"
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM `+table)
	return err
}

func (s *sqliteStore) BeforeFork(ctx context.Context) error { return nil }
func (s *sqliteStore) AfterFork(ctx context.Context) error  { return nil }

func (s *sqliteStore) Close() error { return s.db.Close() }
