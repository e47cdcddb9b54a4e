// Package utils collects small filesystem, env, and ID helpers shared
// across the recognition pipeline. None of it is domain-specific; it
// exists so every other package has one place to get these from.
package utils

import (
	"crypto/sha1"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"strconv"

	"github.com/google/uuid"
)

// CreateFolder creates dir (and any missing parents) if it doesn't
// already exist.
func CreateFolder(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}

// MoveFile renames src to dst, falling back to copy+remove when the
// rename fails (e.g. crossing a filesystem boundary, as tmp dirs
// sometimes do).
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return os.Remove(src)
}

// GetEnv returns the value of key, or fallback if unset or empty.
func GetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetEnvInt is GetEnv for an integer-valued setting: returns fallback
// if key is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// GetEnvFloat is GetEnv for a float64-valued setting: returns fallback
// if key is unset, empty, or not a valid float.
func GetEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// GenerateUniqueID returns a random uint32 ID: the FNV-1a hash of a
// freshly generated UUID. It is not checked against stored song IDs.
func GenerateUniqueID() uint32 {
	id := uuid.New()
	h := fnv.New32a()
	h.Write(id[:])
	return h.Sum32()
}

// GenerateSongKey returns a stable lookup key for a (title, artist)
// pair, used to detect duplicate library entries before fingerprinting.
func GenerateSongKey(title, artist string) string {
	sum := sha1.Sum([]byte(title + "|" + artist))
	return fmt.Sprintf("%x", sum)
}

// ExtendMap copies every entry of src into dst, overwriting on key
// collision. Used to merge per-chunk fingerprint maps produced by the
// ingestion-time chunked fingerprinter.
func ExtendMap[K comparable, V any](dst map[K]V, src map[K]V) {
	for k, v := range src {
		dst[k] = v
	}
}
