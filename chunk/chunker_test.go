package chunk

import "testing"

func TestChunkerSplitContiguousOverlap(t *testing.T) {
	sampleRate := 100
	samples := make([]float64, sampleRate*10) // 10 seconds

	cfg := ChunkConfig{ChunkDurationSec: 3, OverlapSec: 1}
	chunks := Chunker{}.Split(samples, sampleRate, cfg)

	if len(chunks) == 0 {
		t.Fatalf("expected at least one chunk")
	}

	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d: got index %d", i, c.Index)
		}
		if len(c.Samples) == 0 {
			t.Errorf("chunk %d: empty samples", i)
		}
	}

	// step = 3 - 1 = 2s, so consecutive chunks should start 2s apart
	if len(chunks) > 1 {
		step := chunks[1].StartSec - chunks[0].StartSec
		if step != 2 {
			t.Errorf("expected 2s step between chunks, got %v", step)
		}
	}
}

func TestChunkerSplitDropsIncompleteTail(t *testing.T) {
	sampleRate := 100
	samples := make([]float64, sampleRate*7) // 7 seconds

	cfg := ChunkConfig{ChunkDurationSec: 5, OverlapSec: 0}
	chunks := Chunker{}.Split(samples, sampleRate, cfg)

	if len(chunks) != 1 {
		t.Fatalf("expected only the one full 5s chunk, with the 2s tail dropped, got %d", len(chunks))
	}
	if chunks[0].DurationSec != 5 {
		t.Errorf("expected full 5s chunk, got %v", chunks[0].DurationSec)
	}
}

func TestChunkerSplitKeepsExactMultiple(t *testing.T) {
	sampleRate := 100
	samples := make([]float64, sampleRate*10) // exactly 10 seconds

	cfg := ChunkConfig{ChunkDurationSec: 5, OverlapSec: 0}
	chunks := Chunker{}.Split(samples, sampleRate, cfg)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 full 5s chunks for an exact 10s multiple, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.DurationSec != 5 {
			t.Errorf("chunk %d: expected full 5s duration, got %v", i, c.DurationSec)
		}
	}
}

func TestChunkerSplitEmptyInput(t *testing.T) {
	if got := (Chunker{}).Split(nil, 44100, DefaultChunkConfig(1)); got != nil {
		t.Errorf("expected nil for empty samples, got %v", got)
	}
}
