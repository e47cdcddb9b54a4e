package chunk

import (
	"context"
	"fmt"

	"audiotrace/db"
	"audiotrace/errs"
	"audiotrace/models"
	"audiotrace/shazam"
)

// Recognize wires the chunker, worker pool, matcher, aligner, and
// reducer together into the single externally callable recognition
// operation: split samples into chunks, fingerprint them in parallel,
// resolve every chunk against store with one coalesced lookup, align
// each chunk's matches into a per-song offset histogram, and reduce
// the result into a deduplicated timeline.
func Recognize(ctx context.Context, samples []float64, sampleRate int, store db.Store, fpCfg shazam.FingerprintConfig, opts RecognizeOptions) (Timeline, error) {
	select {
	case <-ctx.Done():
		return nil, errs.Cancelled("recognize:start", ctx.Err())
	default:
	}

	chunks := Chunker{}.Split(samples, sampleRate, opts.Chunk)
	if len(chunks) == 0 {
		return nil, errs.Decode("query", fmt.Errorf("no chunks produced from %d samples at %d Hz", len(samples), sampleRate))
	}

	pool := WorkerPool{Workers: opts.Chunk.Workers}
	chunkHashes, fpErr := pool.FingerprintAll(ctx, chunks, fpCfg)
	if len(chunkHashes) == 0 {
		if fpErr != nil {
			return nil, fpErr
		}
		return nil, errs.Decode("query", fmt.Errorf("every chunk failed to fingerprint"))
	}

	select {
	case <-ctx.Done():
		return nil, errs.Cancelled("recognize:after-fingerprint", ctx.Err())
	default:
	}

	chunkRows, err := Matcher{}.Lookup(ctx, store, chunkHashes, opts.Filter)
	if err != nil {
		return nil, err
	}

	songs, err := loadSongs(ctx, store, chunkRows)
	if err != nil {
		return nil, err
	}

	queryFraming := FramingConstants{
		WindowSize: fpCfg.WindowSize,
		HopSize:    fpCfg.HopSize,
		SampleRate: sampleRate,
		DSPRatio:   fpCfg.DSPRatio,
	}

	aligner := Aligner{}
	var detections []Detection
	for i, ch := range chunkHashes {
		rows := chunkRows[i]
		alignments := aligner.Align(ch, rows, songs, opts.Align)

		for _, a := range alignments {
			song := songs[a.SongID]
			a.Aligned = FramingAgrees(song, queryFraming)

			confidence := 0.0
			if a.FingerprintedHashes > 0 {
				confidence = float64(a.DedupHashes) / float64(a.FingerprintedHashes)
			}

			// project onto the query timeline: the song's start lies
			// OffsetSec before this chunk's start.
			offsetSec := a.StartSec - a.OffsetSec
			if !a.Aligned {
				// framing disagreement: the offset math assumes both
				// sides were fingerprinted with the same window/hop/
				// sample-rate/DSP-ratio, so don't report a misleading
				// number.
				offsetSec = a.StartSec
			}

			detections = append(detections, Detection{
				SongID:        a.SongID,
				SongTitle:     song.Title,
				SongArtist:    song.Artist,
				OffsetSec:     offsetSec,
				Confidence:    confidence,
				HashesMatched: a.DedupHashes,
			})
		}
	}

	timeline := Reducer{}.Reduce(detections, opts.Reduce)

	if fpErr != nil {
		// some chunks failed to fingerprint but enough survived to
		// produce a timeline; surface the partial failure without
		// discarding the (still meaningful) result.
		return timeline, fpErr
	}
	return timeline, nil
}

func loadSongs(ctx context.Context, store db.Store, chunkRows []ChunkRows) (map[uint32]models.Song, error) {
	ids := map[uint32]struct{}{}
	for _, cr := range chunkRows {
		for _, r := range cr.Rows {
			ids[r.SongID] = struct{}{}
		}
	}

	songs := make(map[uint32]models.Song, len(ids))
	for id := range ids {
		song, ok, err := store.GetSong(ctx, id)
		if err != nil {
			return nil, errs.StoreUnavailable("GetSong", true, err)
		}
		if ok {
			songs[id] = song
		}
	}
	return songs, nil
}
