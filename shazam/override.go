package shazam

import (
	"os"

	"github.com/tidwall/gjson"
)

// LoadConfigOverrides reads an optional JSON tuning file (e.g.
// "fpconfig.json") and applies any fields it sets on top of base,
// returning the merged config. A missing file is not an error; base
// is returned unchanged. Only scalar tunables are overridable here —
// FreqBands stays whatever base already has, since reshaping the band
// table from JSON buys little over picking a different base config.
func LoadConfigOverrides(path string, base FingerprintConfig) FingerprintConfig {
	data, err := os.ReadFile(path)
	if err != nil {
		return base
	}

	cfg := base
	root := gjson.ParseBytes(data)

	if v := root.Get("dspRatio"); v.Exists() {
		cfg.DSPRatio = int(v.Int())
	}
	if v := root.Get("windowSize"); v.Exists() {
		cfg.WindowSize = int(v.Int())
	}
	if v := root.Get("hopSize"); v.Exists() {
		cfg.HopSize = int(v.Int())
	}
	if v := root.Get("maxFreqHz"); v.Exists() {
		cfg.MaxFreqHz = v.Float()
	}
	if v := root.Get("targetZoneSize"); v.Exists() {
		cfg.TargetZoneSize = int(v.Int())
	}
	if v := root.Get("chunkDurationSec"); v.Exists() {
		cfg.ChunkDurationSec = v.Float()
	}

	return cfg
}
