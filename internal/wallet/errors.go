package wallet

import "errors"

var (
	// ErrAlreadyExists is returned by Create when a concurrent ensureWallet
	// call already won the race on the natural key.
	ErrAlreadyExists = errors.New("wallet: already exists")

	// ErrNotFound is returned by single-entity lookups that find nothing.
	ErrNotFound = errors.New("wallet: not found")
)
