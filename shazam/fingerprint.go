package shazam

import (
	"audiotrace/models"
	"audiotrace/utils"
	"audiotrace/wav"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
	"time"
)

// FingerprintReduction is the fixed width, in hex characters, of a
// canonical hash token, read from FINGERPRINT_REDUCTION (default 20)
// once at process start. It mirrors dejavu's FINGERPRINT_REDUCTION:
// truncating the underlying SHA1 digest to this many hex characters
// bounds storage at the cost of a higher (still astronomically
// unlikely) collision probability.
var FingerprintReduction = utils.GetEnvInt("FINGERPRINT_REDUCTION", 20)

// Fingerprint generates fingerprints from a list of peaks. Each
// fingerprint is a (hash -> couple) entry: the hash is a canonical,
// fixed-width hex token derived from an anchor/target peak pair and a
// time delta, and the couple holds the anchor time and song ID.
func Fingerprint(peaks []Peak, songID uint32, cfg FingerprintConfig) map[string]models.Couple {
	fingerprints := map[string]models.Couple{}

	for i, anchor := range peaks {
		for j := i + 1; j < len(peaks) && j <= i+cfg.TargetZoneSize; j++ {
			target := peaks[j]
			hash := createAddress(anchor, target)
			fingerprints[hash] = models.Couple{
				AnchorTimeMs: uint32(anchor.Time * 1000),
				SongID:       songID,
			}
		}
	}

	return fingerprints
}

// createAddress canonicalizes an anchor/target peak pair (frequencies
// truncated to 10 Hz bins, plus the time delta between them) into a fixed-width uppercase-hex hash token. Two equal
// (anchor, target) pairs always hash to the same token regardless of
// which song or chunk produced them, which is what lets a query chunk's
// hash set be intersected against the stored library by simple string
// equality.
func createAddress(anchor, target Peak) string {
	anchorFreqBin := uint32(anchor.Freq / 10)
	targetFreqBin := uint32(target.Freq / 10)
	deltaMsRaw := uint32((target.Time - anchor.Time) * 1000)

	var buf [12]byte
	binary.BigEndian.PutUint32(buf[0:4], anchorFreqBin)
	binary.BigEndian.PutUint32(buf[4:8], targetFreqBin)
	binary.BigEndian.PutUint32(buf[8:12], deltaMsRaw)

	digest := sha1.Sum(buf[:])
	full := hex.EncodeToString(digest[:])
	return strings.ToUpper(full[:FingerprintReduction])
}

// FingerprintAudioChunked processes an audio file in bounded-memory
// chunks using ffmpeg for segment extraction. each chunk is independently
// converted to WAV, fingerprinted, and merged into the result map.
// memory usage is proportional to chunkDurationSec, not total file length.
func FingerprintAudioChunked(inputPath string, songID uint32, cfg FingerprintConfig) (map[string]models.Couple, error) {
	duration, err := wav.GetAudioDuration(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get audio duration: %v", err)
	}

	log.Printf("[fingerprint] file duration: %.0fs (%.1f hours), chunk size: %.0fs",
		duration, duration/3600, cfg.ChunkDurationSec)

	fingerprints := make(map[string]models.Couple)

	chunkDur := cfg.ChunkDurationSec
	if chunkDur <= 0 {
		chunkDur = duration
	}

	// small overlap avoids losing peak pairs that straddle chunk boundaries
	overlap := 5.0
	step := chunkDur - overlap
	if step <= 0 {
		step = chunkDur
	}

	chunkIdx := 0
	for start := 0.0; start < duration; start += step {
		dur := chunkDur
		if start+dur > duration {
			dur = duration - start
		}
		if dur <= 0 {
			break
		}

		chunkStart := time.Now()
		log.Printf("[chunk %d] extracting %.0fs - %.0fs", chunkIdx, start, start+dur)

		chunkPath, err := wav.ExtractChunkAsWAV(inputPath, start, dur)
		if err != nil {
			return nil, fmt.Errorf("chunk extraction at %.0fs failed: %v", start, err)
		}

		wavInfo, err := wav.ReadWavInfo(chunkPath)
		os.Remove(chunkPath)
		if err != nil {
			return nil, fmt.Errorf("reading chunk wav at %.0fs failed: %v", start, err)
		}

		spectro, err := Spectrogram(wavInfo.LeftChannelSamples, wavInfo.SampleRate, cfg)
		if err != nil {
			return nil, fmt.Errorf("spectrogram at %.0fs failed: %v", start, err)
		}

		peaks := ExtractPeaks(spectro, wavInfo.Duration, wavInfo.SampleRate, cfg)

		// offset peak times so they reflect position in the full file
		for i := range peaks {
			peaks[i].Time += start
		}

		chunkFP := Fingerprint(peaks, songID, cfg)
		utils.ExtendMap(fingerprints, chunkFP)

		log.Printf("[chunk %d] %d peaks, %d fingerprints, took %s",
			chunkIdx, len(peaks), len(chunkFP), time.Since(chunkStart))

		// release chunk memory before next iteration
		wavInfo = nil
		spectro = nil
		runtime.GC()

		chunkIdx++
	}

	log.Printf("[fingerprint] total: %d fingerprints from %d chunks", len(fingerprints), chunkIdx)
	return fingerprints, nil
}

// FingerprintAudio is a convenience wrapper that processes the entire
// file using the default music config. kept for backward compatibility.
func FingerprintAudio(songFilePath string, songID uint32) (map[string]models.Couple, error) {
	return FingerprintAudioChunked(songFilePath, songID, DefaultMusicConfig())
}
