package errs

import (
	"errors"
	"testing"

	"github.com/mdobak/go-xerrors"
)

func TestDecodeWrapsCauseAndKind(t *testing.T) {
	cause := errors.New("truncated riff header")
	err := Decode("clip.wav", cause)

	if !xerrors.Is(err, KindDecode) {
		t.Errorf("expected Decode error to carry KindDecode")
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected Decode error to wrap the original cause")
	}
}

func TestStoreUnavailableRetryable(t *testing.T) {
	cause := errors.New("connection refused")

	retryable := StoreUnavailable("Lookup", true, cause)
	if !IsRetryable(retryable) {
		t.Errorf("expected retryable StoreUnavailable to report IsRetryable true")
	}

	permanent := StoreUnavailable("Lookup", false, cause)
	if IsRetryable(permanent) {
		t.Errorf("expected non-retryable StoreUnavailable to report IsRetryable false")
	}

	if IsRetryable(cause) {
		t.Errorf("expected an unrelated error to not be retryable")
	}
}

func TestBadHashCarriesKind(t *testing.T) {
	err := BadHash("not-canonical", errors.New("wrong width"))
	if !xerrors.Is(err, KindBadHash) {
		t.Errorf("expected BadHash error to carry KindBadHash")
	}
}

func TestChunkFingerprintIncludesIndex(t *testing.T) {
	err := ChunkFingerprint(3, errors.New("fft failed"))
	if !xerrors.Is(err, KindChunkFingerprint) {
		t.Errorf("expected ChunkFingerprint error to carry KindChunkFingerprint")
	}
}
