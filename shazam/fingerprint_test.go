package shazam

import "testing"

func TestFingerprintHashIsCanonicalAndDeterministic(t *testing.T) {
	peaks := []Peak{
		{Freq: 440, Time: 0.0},
		{Freq: 880, Time: 0.1},
	}
	cfg := FingerprintConfig{TargetZoneSize: 5}

	a := Fingerprint(peaks, 1, cfg)
	b := Fingerprint(peaks, 1, cfg)

	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("expected exactly one fingerprint pair, got %d and %d", len(a), len(b))
	}

	for hash := range a {
		if len(hash) != FingerprintReduction {
			t.Errorf("expected hash width %d, got %d (%q)", FingerprintReduction, len(hash), hash)
		}
		for _, r := range hash {
			isUpperHex := (r >= '0' && r <= '9') || (r >= 'A' && r <= 'F')
			if !isUpperHex {
				t.Errorf("hash %q contains non-uppercase-hex rune %q", hash, r)
			}
		}
		if _, ok := b[hash]; !ok {
			t.Errorf("same peak pair produced different hashes across calls")
		}
	}
}

func TestFingerprintIsOrderSensitiveOnlyWithinTargetZone(t *testing.T) {
	cfg := FingerprintConfig{TargetZoneSize: 1}
	peaks := []Peak{
		{Freq: 100, Time: 0},
		{Freq: 200, Time: 1},
		{Freq: 300, Time: 2},
	}

	fp := Fingerprint(peaks, 1, cfg)
	// with TargetZoneSize 1, each anchor pairs with exactly the next
	// peak: (0,1) and (1,2), never (0,2).
	if len(fp) != 2 {
		t.Fatalf("expected 2 fingerprints with TargetZoneSize=1, got %d", len(fp))
	}
}
