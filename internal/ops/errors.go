package ops

import "errors"

var (
	// ErrAlreadyExists is returned by CreateTransfer when a concurrent
	// attempt already won the race on (tenant, externalRef).
	ErrAlreadyExists = errors.New("ops: transfer already exists")

	// ErrNotFound is returned by single-entity lookups that find nothing.
	ErrNotFound = errors.New("ops: not found")
)
