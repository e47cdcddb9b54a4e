package chunk

import (
	"context"
	"errors"
	"log"

	"audiotrace/errs"
	"audiotrace/shazam"
)

// WorkerPool fingerprints chunks in parallel, generalizing the jobs
// channel / results channel / fixed worker count pattern the teacher
// uses in its own processFilesConcurrently (there, over whole files;
// here, over chunks of a single query recording).
type WorkerPool struct {
	Workers int
}

type chunkResult struct {
	index int
	hash  ChunkHashes
	err   error
}

// FingerprintAll fingerprints every chunk concurrently and returns
// their ChunkHashes in chunk-index order, regardless of how the
// workers happened to finish — ordering is restored by indexing into
// a pre-sized slice, not by the order results arrive on the channel.
// A chunk whose fingerprinting fails is skipped and its
// ChunkFingerprintError collected; Recognize decides whether that's
// fatal. Cancelling ctx stops dispatching new chunks to idle workers
// and returns errs.Cancelled once in-flight work drains.
func (p WorkerPool) FingerprintAll(ctx context.Context, chunks []Chunk, fp shazam.FingerprintConfig) ([]ChunkHashes, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(chunks) {
		workers = len(chunks)
	}

	jobs := make(chan Chunk, len(chunks))
	results := make(chan chunkResult, len(chunks))

	for w := 0; w < workers; w++ {
		go func() {
			for c := range jobs {
				select {
				case <-ctx.Done():
					results <- chunkResult{index: c.Index, err: errs.Cancelled("fingerprint worker", ctx.Err())}
					continue
				default:
				}

				hashes, err := fingerprintChunk(c, fp)
				if err != nil {
					results <- chunkResult{index: c.Index, err: errs.ChunkFingerprint(c.Index, err)}
					continue
				}
				results <- chunkResult{index: c.Index, hash: hashes}
			}
		}()
	}

	for _, c := range chunks {
		jobs <- c
	}
	close(jobs)

	out := make([]ChunkHashes, len(chunks))
	present := make([]bool, len(chunks))
	var errsOut []error

	for i := 0; i < len(chunks); i++ {
		r := <-results
		if r.err != nil {
			errsOut = append(errsOut, r.err)
			log.Printf("[chunk %d] fingerprint failed: %v", r.index, r.err)
			continue
		}
		out[r.index] = r.hash
		present[r.index] = true
	}

	ordered := make([]ChunkHashes, 0, len(chunks))
	for i, ok := range present {
		if ok {
			ordered = append(ordered, out[i])
		}
	}

	if len(errsOut) > 0 {
		return ordered, errors.Join(errsOut...)
	}
	return ordered, nil
}

func fingerprintChunk(c Chunk, fp shazam.FingerprintConfig) (ChunkHashes, error) {
	spectro, err := shazam.Spectrogram(c.Samples, c.SampleRate, fp)
	if err != nil {
		return ChunkHashes{}, err
	}

	peaks := shazam.ExtractPeaks(spectro, c.DurationSec, c.SampleRate, fp)
	hashes := shazam.Fingerprint(peaks, 0, fp)

	return ChunkHashes{ChunkIndex: c.Index, StartSec: c.StartSec, Hashes: hashes}, nil
}
