// Package errs carries the recognition pipeline's error taxonomy as
// typed, stack-annotated error kinds so callers can branch on kind
// instead of matching strings.
package errs

import (
	"fmt"

	"github.com/mdobak/go-xerrors"
)

// Kinds. Each is a distinct go-xerrors.Kind; wrap a cause with .New or
// .Wrap and compare with xerrors.Is(err, KindDecode) etc.
var (
	KindDecode           = xerrors.NewKind("decode_error")
	KindStoreUnavailable = xerrors.NewKind("store_unavailable")
	KindBadHash          = xerrors.NewKind("bad_hash")
	KindChunkFingerprint = xerrors.NewKind("chunk_fingerprint_error")
	KindCancelled        = xerrors.NewKind("cancelled")
)

// Decode wraps a failure to decode or extract samples from an input
// audio file (bad container, unsupported codec, truncated data).
func Decode(path string, cause error) error {
	return KindDecode.Wrap(cause, fmt.Sprintf("decode %s", path))
}

// storeUnavailable carries a Retryable bit alongside the go-xerrors
// kind, since the spec's StoreUnavailable needs one and the library's
// Kind type doesn't.
type storeUnavailable struct {
	err       error
	retryable bool
}

func (e *storeUnavailable) Error() string  { return e.err.Error() }
func (e *storeUnavailable) Unwrap() error  { return e.err }
func (e *storeUnavailable) Retryable() bool { return e.retryable }

// StoreUnavailable reports that the hash index / song store could not
// be reached or returned a transport-level failure.
func StoreUnavailable(op string, retryable bool, cause error) error {
	wrapped := KindStoreUnavailable.Wrap(cause, fmt.Sprintf("store unavailable during %s", op))
	return &storeUnavailable{err: wrapped, retryable: retryable}
}

// IsRetryable reports whether err is a StoreUnavailable marked retryable.
func IsRetryable(err error) bool {
	var su *storeUnavailable
	for err != nil {
		if s, ok := err.(*storeUnavailable); ok {
			su = s
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return su != nil && su.retryable
}

// BadHash reports a hash token that failed canonicalization (wrong
// width, non-hex characters) at a store or matcher boundary.
func BadHash(hash string, cause error) error {
	return KindBadHash.Wrap(cause, fmt.Sprintf("bad hash %q", hash))
}

// ChunkFingerprint wraps a failure to fingerprint a single chunk in
// the worker pool, identified by its index.
func ChunkFingerprint(chunkIndex int, cause error) error {
	return KindChunkFingerprint.Wrap(cause, fmt.Sprintf("chunk %d fingerprint failed", chunkIndex))
}

// Cancelled reports that a pipeline stage stopped because its context
// was cancelled or deadline-exceeded before it completed.
func Cancelled(stage string, cause error) error {
	return KindCancelled.Wrap(cause, fmt.Sprintf("cancelled during %s", stage))
}
