package chunk

import (
	"context"

	"audiotrace/db"
)

// Matcher resolves every chunk's fingerprint hashes against the
// library with exactly one Store.Lookup call (which the backend splits
// into LOOKUP_BATCH_SIZE-sized queries), then scatters the combined
// result rows back out to the chunks whose hash set they belong to.
// This coalesced shape — one Lookup over the union of every chunk's
// hashes, instead of one query per chunk — is the behavior
// dejavu's return_matches_chunk implements and that spec.md requires
// the matcher follow instead of the teacher's single whole-file match.
type Matcher struct{}

// Lookup performs the coalesced batched lookup described above and
// returns each chunk's matched rows in the same order as chunks.
func (Matcher) Lookup(ctx context.Context, store db.Store, chunks []ChunkHashes, filter SongFilter) ([]ChunkRows, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	union := map[string]struct{}{}
	for _, c := range chunks {
		for hash := range c.Hashes {
			union[hash] = struct{}{}
		}
	}

	hashes := make([]string, 0, len(union))
	for hash := range union {
		hashes = append(hashes, hash)
	}

	rows, err := store.Lookup(ctx, hashes, filter)
	if err != nil {
		return nil, err
	}

	// Group once by hash so scattering to N chunks is O(rows), not
	// O(rows * chunks).
	byHash := map[string][]int{}
	for i, row := range rows {
		byHash[row.Hash] = append(byHash[row.Hash], i)
	}

	out := make([]ChunkRows, len(chunks))
	for ci, c := range chunks {
		var matched []int
		for hash := range c.Hashes {
			matched = append(matched, byHash[hash]...)
		}

		out[ci] = ChunkRows{ChunkIndex: c.ChunkIndex, StartSec: c.StartSec}
		for _, idx := range matched {
			out[ci].Rows = append(out[ci].Rows, rows[idx])
		}
	}

	return out, nil
}
