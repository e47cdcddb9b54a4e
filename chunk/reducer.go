package chunk

import (
	"math"
	"sort"
)

// Reducer collapses raw per-chunk detections into a deduplicated
// timeline, a direct port of dejavu's process_json: detections below
// ConfidenceThreshold are dropped, the rest are grouped by
// (song, floor(offset / BinSizeSec)), and each bin keeps the
// earliest offset seen plus the mean confidence across everything
// that landed in it. The result is sorted by offset.
type Reducer struct{}

type binKey struct {
	songID uint32
	bin    int64
}

// Reduce bins detections as described above and returns them sorted
// by OffsetSec ascending.
func (Reducer) Reduce(detections []Detection, cfg ReduceConfig) Timeline {
	binSize := cfg.BinSizeSec
	if binSize <= 0 {
		binSize = 5
	}

	type acc struct {
		det         Detection
		confSum     float64
		confCount   int
		hashesSum   int
	}

	bins := map[binKey]*acc{}
	order := []binKey{}

	for _, d := range detections {
		if d.Confidence < cfg.ConfidenceThreshold {
			continue
		}

		key := binKey{songID: d.SongID, bin: int64(math.Floor(d.OffsetSec / binSize))}
		a, ok := bins[key]
		if !ok {
			a = &acc{det: d}
			bins[key] = a
			order = append(order, key)
		} else if d.OffsetSec < a.det.OffsetSec {
			// earliest offset wins, per process_json
			a.det.OffsetSec = d.OffsetSec
		}
		a.confSum += d.Confidence
		a.confCount++
		a.hashesSum += d.HashesMatched
	}

	out := make(Timeline, 0, len(order))
	for _, key := range order {
		a := bins[key]
		det := a.det
		det.Confidence = a.confSum / float64(a.confCount)
		det.HashesMatched = a.hashesSum
		out = append(out, det)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].OffsetSec < out[j].OffsetSec
	})

	return out
}
