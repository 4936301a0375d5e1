package ops

import "context"

// Repository is the storage contract OPS depends on for the Transfer
// aggregate (spec §6: "transfers: unique index on (tenant, externalRef)").
type Repository interface {
	// Create inserts a new Transfer; implementations translate a unique-key
	// violation on (tenant, externalRef) into ErrAlreadyExists.
	Create(ctx context.Context, t *Transfer) error

	// Get looks up a Transfer by id.
	Get(ctx context.Context, id string) (*Transfer, error)

	// GetByExternalRef looks up a Transfer by its natural key, used to
	// reconcile a replayed request against the original attempt.
	GetByExternalRef(ctx context.Context, tenantID, externalRef string) (*Transfer, error)

	// UpdateStatus transitions a Transfer's status and links it to the
	// posted ledger transaction ids once they exist.
	UpdateStatus(ctx context.Context, id string, status Status, debitTxID, creditTxID *string) error

	// ExistsNonTerminal implements idempotency.NonTerminalFinder: reports
	// whether a non-terminal Transfer already carries idempotencyKey.
	ExistsNonTerminal(ctx context.Context, tenantID, idempotencyKey string) (bool, error)
}
