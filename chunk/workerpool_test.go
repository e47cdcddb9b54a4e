package chunk

import (
	"context"
	"testing"

	"audiotrace/shazam"
)

func TestWorkerPoolFingerprintAllPreservesOrderRegardlessOfWorkerCount(t *testing.T) {
	cfg := shazam.FingerprintConfig{
		DSPRatio: 1, WindowSize: 8, HopSize: 4, MaxFreqHz: 4000,
		TargetZoneSize: 2,
		FreqBands:      [][2]int{{0, 4}},
	}

	chunks := make([]Chunk, 6)
	for i := range chunks {
		samples := make([]float64, 64)
		for j := range samples {
			samples[j] = float64(j%7) - 3 // cheap deterministic signal
		}
		chunks[i] = Chunk{Index: i, StartSec: float64(i), DurationSec: 1, Samples: samples, SampleRate: 64}
	}

	for _, workers := range []int{1, 3, 8} {
		pool := WorkerPool{Workers: workers}
		out, err := pool.FingerprintAll(context.Background(), chunks, cfg)
		if err != nil {
			t.Fatalf("workers=%d: unexpected error: %v", workers, err)
		}
		if len(out) != len(chunks) {
			t.Fatalf("workers=%d: expected %d results, got %d", workers, len(chunks), len(out))
		}
		for i, ch := range out {
			if ch.ChunkIndex != i {
				t.Errorf("workers=%d: expected index-ordered results, got %d at position %d", workers, ch.ChunkIndex, i)
			}
		}
	}
}
