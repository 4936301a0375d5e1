package ledger

import "errors"

// Internal races the repository layer reports to the service layer so it
// can implement the "loser reads and returns the winner" discipline spec
// §4.1/§5 require on unique-index conflicts.
var (
	// ErrAccountAlreadyExists is returned by CreateAccount when a
	// concurrent getOrCreateAccount call already won the race.
	ErrAccountAlreadyExists = errors.New("ledger: account already exists")

	// ErrTransactionAlreadyExists is returned by InsertTransaction when
	// (tenant, externalRef, chargeRole) already has a posted row.
	ErrTransactionAlreadyExists = errors.New("ledger: transaction already exists")

	// ErrNotFound is returned by single-entity lookups that find nothing.
	ErrNotFound = errors.New("ledger: not found")
)
