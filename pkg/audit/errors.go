package audit

import "errors"

var (
	// ErrStorageNil indicates the pipeline was constructed without storage.
	ErrStorageNil = errors.New("audit: storage cannot be nil")

	// ErrDrainTimeout indicates shutdown gave up waiting for the queue to
	// empty. In-flight work is abandoned, not cancelled.
	ErrDrainTimeout = errors.New("audit: queue drain timed out")
)
