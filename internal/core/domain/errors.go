package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidItem indicates a sync item violates its tagged-variant
	// schema. The item is skipped; the batch continues.
	ErrInvalidItem = errors.New("invalid sync item")

	// ErrHashMismatch indicates the adapter-declared content hash does
	// not match the recomputed digest. The item is skipped and the
	// discrepancy surfaced as a warning.
	ErrHashMismatch = errors.New("content hash mismatch")

	// ErrInvalidFilter indicates a malformed integration filter.
	ErrInvalidFilter = errors.New("invalid integration filter")

	// ErrInvalidCursor indicates a cursor that cannot be decoded.
	ErrInvalidCursor = errors.New("invalid sync cursor")

	// ErrMalformedResult indicates a sync result envelope that violates
	// its own invariants. Unlike item-level faults this aborts the cycle.
	ErrMalformedResult = errors.New("malformed sync result")

	// ErrSyncInProgress indicates a sync cycle is already running for
	// the connection. The caller may retry once the cycle completes.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrVersionConflict indicates an optimistic-concurrency check
	// failed at the store. The cycle aborts without partial commit.
	ErrVersionConflict = errors.New("version conflict")

	// ErrStoreFailure indicates the document store was unavailable or
	// failed mid-cycle. All writes for the cycle are discarded and the
	// cursor left untouched.
	ErrStoreFailure = errors.New("store failure")

	// ErrAdapterFailure indicates the adapter call itself failed
	// (network, auth, malformed envelope). The cycle aborts with the
	// cursor unchanged.
	ErrAdapterFailure = errors.New("adapter failure")

	// ErrUnsupportedKind indicates an unknown source adapter kind.
	ErrUnsupportedKind = errors.New("unsupported source kind")

	// ErrRateLimited indicates the provider API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// IsRetryable reports whether a failed cycle may simply be re-run.
// Reconciliation is idempotent, so every transient fault is safe to
// retry with no special recovery logic; schema-level faults are not.
func IsRetryable(err error) bool {
	switch {
	case errors.Is(err, ErrVersionConflict),
		errors.Is(err, ErrStoreFailure),
		errors.Is(err, ErrAdapterFailure),
		errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrSyncInProgress):
		return true
	default:
		return false
	}
}
