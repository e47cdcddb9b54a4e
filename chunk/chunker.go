package chunk

// Chunker splits a query recording's samples into overlapping windows.
type Chunker struct{}

// tailEpsilonSec absorbs float64 accumulation error in the start+=step
// loop below so a chunk whose true length is an exact multiple of
// chunkDur isn't dropped for landing a few nanoseconds short.
const tailEpsilonSec = 1e-6

// Split divides samples into contiguous, overlapping windows of
// cfg.ChunkDurationSec with cfg.OverlapSec overlap between consecutive
// windows, matching the step-size math in the teacher's own
// FingerprintAudioChunked ("step = chunkDur - overlap"). A final
// window that would run short of a full cfg.ChunkDurationSec is
// dropped rather than truncated, matching librosa.util.frame's silent
// discard of an incomplete trailing frame.
func (Chunker) Split(samples []float64, sampleRate int, cfg ChunkConfig) []Chunk {
	if len(samples) == 0 || sampleRate <= 0 {
		return nil
	}

	chunkDur := cfg.ChunkDurationSec
	if chunkDur <= 0 {
		chunkDur = float64(len(samples)) / float64(sampleRate)
	}

	step := chunkDur - cfg.OverlapSec
	if step <= 0 {
		step = chunkDur
	}

	totalDur := float64(len(samples)) / float64(sampleRate)

	var chunks []Chunk
	idx := 0
	for start := 0.0; start < totalDur; start += step {
		if start+chunkDur > totalDur+tailEpsilonSec {
			break
		}

		startSample := int(start * float64(sampleRate))
		endSample := startSample + int(chunkDur*float64(sampleRate))
		if endSample > len(samples) {
			endSample = len(samples)
		}
		if startSample >= endSample {
			break
		}

		windowSamples := make([]float64, endSample-startSample)
		copy(windowSamples, samples[startSample:endSample])

		chunks = append(chunks, Chunk{
			Index:       idx,
			StartSec:    start,
			DurationSec: float64(endSample-startSample) / float64(sampleRate),
			Samples:     windowSamples,
			SampleRate:  sampleRate,
		})
		idx++
	}

	return chunks
}
