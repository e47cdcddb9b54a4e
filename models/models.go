// Package models holds the plain data shapes shared across the
// fingerprinting, storage, and recognition packages.
package models

// Couple pairs a fingerprint's anchor time (within its source song or
// query, in milliseconds) with the song it was generated from. It is
// the value half of a hash -> couple fingerprint entry.
type Couple struct {
	AnchorTimeMs uint32
	SongID       uint32
}

// Song is a single fingerprinted entry in the library. WindowSize,
// HopSize, SampleRate, and DSPRatio capture the framing constants used
// at ingestion time, so a query fingerprinted under different settings
// can be detected and its offsets treated as untrustworthy rather than
// silently misaligned.
type Song struct {
	ID            uint32
	Key           string
	Title         string
	Artist        string
	FileSHA1      string
	TotalHashes   int
	DurationMs    int
	Fingerprinted bool

	SampleRate int
	WindowSize int
	HopSize    int
	DSPRatio   int
}

// HashRow is a single (hash, song, offset) tuple as stored in, and
// returned from, the hash index.
type HashRow struct {
	Hash    string
	SongID  uint32
	OffsetMs uint32
}
