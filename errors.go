package gitblobs

import "github.com/pkg/errors"

var (
	// ErrNotFound is the error returned when a referenced object, ref, or HEAD is absent.
	ErrNotFound = errors.New("not found")

	// ErrDepthExceeded is the error returned when a history walk exceeds its depth bound.
	ErrDepthExceeded = errors.New("maximum depth exceeded")

	// ErrNotReachable is the error returned when a history walk
	// exhausts every path from its starting commit without meeting its target.
	ErrNotReachable = errors.New("commit not reachable")

	// ErrNotFastForwardable is the error returned when HEAD is not where a linear update begins.
	ErrNotFastForwardable = errors.New("not fast-forwardable")

	// ErrConflict reports that a merge found divergent edits.
	ErrConflict = errors.New("merge conflict")

	// ErrInconsistent is the error returned for a bundle that refers to objects it does not carry.
	ErrInconsistent = errors.New("inconsistent bundle")

	// ErrUnsupportedCapability is the error returned when an operation needs an ExtStore
	// and the store is not one.
	ErrUnsupportedCapability = errors.New("unsupported storage capability")

	// ErrMissingHeadPointer is the error returned when a snapshot bundle does not name its HEAD commit.
	ErrMissingHeadPointer = errors.New("bundle header missing HEAD commit")

	// ErrHashMismatch is the error returned when an object's content does not hash to its recorded hash.
	ErrHashMismatch = errors.New("hash mismatch")

	// ErrInvalidUTF8 is the error returned when a hashed string is not valid UTF-8.
	// Such strings have no faithful JSON encoding.
	ErrInvalidUTF8 = errors.New("invalid UTF-8")
)
