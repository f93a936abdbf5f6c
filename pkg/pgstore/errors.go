package pgstore

import "errors"

var (
	// ErrInsertFailed wraps failures writing an audit row.
	ErrInsertFailed = errors.New("pgstore: failed to insert audit entry")

	// ErrLookupFailed wraps relation and pre-image query failures.
	ErrLookupFailed = errors.New("pgstore: lookup failed")

	// ErrInvalidIdentifier indicates an entity or column name unsafe to
	// interpolate into a query.
	ErrInvalidIdentifier = errors.New("pgstore: invalid identifier")

	// ErrEmptyFilter indicates a pre-image fetch without predicates, which
	// would scan the whole table.
	ErrEmptyFilter = errors.New("pgstore: empty pre-image filter")
)
