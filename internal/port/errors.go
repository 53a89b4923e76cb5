package port

import "errors"

var (
	// ErrOptimisticLock is returned when a write carries a stale version.
	ErrOptimisticLock = errors.New("optimistic lock conflict")

	// ErrBeerInUse is returned when deleting a beer that order lines still reference.
	ErrBeerInUse = errors.New("beer is referenced by order lines")

	// ErrUnknownReference is returned when a line references a beer that does not exist.
	ErrUnknownReference = errors.New("referenced beer does not exist")
)
