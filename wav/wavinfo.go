package wav

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WavInfo holds decoded PCM samples from a mono (or down-mixed) WAV
// file, normalized to float64 in [-1, 1], along with the metadata the
// spectrogram and chunk pipelines need.
type WavInfo struct {
	LeftChannelSamples []float64
	SampleRate         int
	Duration           float64 // seconds
}

// ReadWavInfo decodes a PCM WAV file produced by ConvertToWAV or
// ExtractChunkAsWAV. Stereo files are down-mixed to mono by averaging
// channels, matching the single-channel samples the fingerprinting
// pipeline expects.
func ReadWavInfo(path string) (*WavInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav file: %v", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%s is not a valid WAV file", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode PCM buffer: %v", err)
	}
	decoder.FwdToPCM()

	numChannels := buf.Format.NumChannels
	if numChannels < 1 {
		numChannels = 1
	}

	samples := downmixToMono(buf, numChannels)
	sampleRate := buf.Format.SampleRate

	duration := 0.0
	if sampleRate > 0 {
		duration = float64(len(samples)) / float64(sampleRate)
	}

	return &WavInfo{
		LeftChannelSamples: samples,
		SampleRate:         sampleRate,
		Duration:           duration,
	}, nil
}

func downmixToMono(buf *audio.IntBuffer, numChannels int) []float64 {
	maxAmp := float64(int(1) << (uint(buf.SourceBitDepth) - 1))
	if maxAmp <= 0 {
		maxAmp = 32768
	}

	frames := len(buf.Data) / numChannels
	samples := make([]float64, frames)

	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < numChannels; c++ {
			sum += float64(buf.Data[i*numChannels+c])
		}
		samples[i] = (sum / float64(numChannels)) / maxAmp
	}

	return samples
}
