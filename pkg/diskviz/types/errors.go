package types

import "errors"

var (
	// ErrCancelled is returned alongside a partial result when the scan's
	// context is cancelled.
	ErrCancelled = errors.New("scan cancelled")

	// ErrWorkerFailure indicates a worker failed unexpectedly and the scan
	// was aborted.
	ErrWorkerFailure = errors.New("scan worker failed")

	// ErrRootUnreadable indicates the scan root could not be opened.
	ErrRootUnreadable = errors.New("scan root cannot be opened")
)
