package classify

import "errors"

var (
	// ErrEmptyFilename rejects submissions without a filename. Client fault,
	// never retried.
	ErrEmptyFilename = errors.New("filename must not be empty")

	// ErrStaging means the input could not be written to the staging store.
	// Nothing was dispatched; the caller may resubmit.
	ErrStaging = errors.New("staging store write failed")

	// ErrDispatch means the staging write succeeded but the task message
	// could not be published. The staged object is left in place, orphans
	// are harmless.
	ErrDispatch = errors.New("task dispatch failed")
)
