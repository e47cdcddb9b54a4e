package chunk

import "testing"

func TestReducerDedupesWithinBin(t *testing.T) {
	detections := []Detection{
		{SongID: 1, OffsetSec: 10.0, Confidence: 0.4, HashesMatched: 4},
		{SongID: 1, OffsetSec: 11.5, Confidence: 0.6, HashesMatched: 6},
		{SongID: 1, OffsetSec: 40.0, Confidence: 0.9, HashesMatched: 9}, // different bin
	}

	timeline := Reducer{}.Reduce(detections, ReduceConfig{BinSizeSec: 5})

	if len(timeline) != 2 {
		t.Fatalf("expected 2 bins, got %d: %+v", len(timeline), timeline)
	}

	first := timeline[0]
	if first.OffsetSec != 10.0 {
		t.Errorf("expected earliest offset 10.0 kept, got %v", first.OffsetSec)
	}
	if first.Confidence != 0.5 {
		t.Errorf("expected averaged confidence 0.5, got %v", first.Confidence)
	}
}

func TestReducerSortsByOffset(t *testing.T) {
	detections := []Detection{
		{SongID: 2, OffsetSec: 30, Confidence: 1},
		{SongID: 1, OffsetSec: 5, Confidence: 1},
	}

	timeline := Reducer{}.Reduce(detections, DefaultReduceConfig())

	if len(timeline) != 2 || timeline[0].OffsetSec > timeline[1].OffsetSec {
		t.Fatalf("expected timeline sorted ascending by offset, got %+v", timeline)
	}
}

func TestReducerConfidenceThreshold(t *testing.T) {
	detections := []Detection{
		{SongID: 1, OffsetSec: 1, Confidence: 0.1},
		{SongID: 1, OffsetSec: 2, Confidence: 0.9},
	}

	timeline := Reducer{}.Reduce(detections, ReduceConfig{BinSizeSec: 5, ConfidenceThreshold: 0.5})

	if len(timeline) != 1 {
		t.Fatalf("expected low-confidence detection filtered out, got %+v", timeline)
	}
}
